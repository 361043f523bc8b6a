package main

import (
	"context"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"

	"github.com/monteslu/m4a-stems/pkg/config"
	"github.com/monteslu/m4a-stems/pkg/mp4"
	"github.com/monteslu/m4a-stems/pkg/stemfile"
)

type pitchCmd struct {
	Set pitchSetCmd `command:"set" description:"Write a vocal pitch curve"`
}

func (c *pitchCmd) Execute(args []string) error { return nil }

func (c *pitchCmd) Run(ctx context.Context, cfg *config.Config, log logger.Logger, args []string) error {
	return errors.New("stemkit pitch: specify a subcommand (set)")
}

type pitchSetCmd struct {
	SampleRate uint32 `long:"sample-rate" description:"Pitch-curve sample rate, in Hz" required:"yes"`
	Points     string `long:"points" description:"Comma-separated midi_note:cents pairs, e.g. 60:0,62:-5,64:12" required:"yes"`
	Backup     bool   `long:"backup" description:"Write a backup of the original file before tagging"`

	Positional struct {
		File string `positional-arg-name:"file" required:"yes"`
	} `positional-args:"yes"`
}

func (c *pitchSetCmd) Execute(args []string) error { return nil }

func (c *pitchSetCmd) Run(ctx context.Context, cfg *config.Config, log logger.Logger, args []string) error {
	points, err := parsePitchPoints(c.Points)
	if err != nil {
		return err
	}

	mutate := func(buf []byte) ([]byte, error) {
		return mp4.WriteVocalPitch(buf, c.SampleRate, points)
	}

	if c.Backup {
		return stemfile.MutateWithBackup(c.Positional.File, cfg.BackupSuffix, mutate)
	}
	return stemfile.Mutate(c.Positional.File, mutate)
}

func parsePitchPoints(raw string) ([]mp4.PitchPoint, error) {
	fields := strings.Split(raw, ",")
	points := make([]mp4.PitchPoint, 0, len(fields))
	for _, f := range fields {
		pair := strings.SplitN(strings.TrimSpace(f), ":", 2)
		if len(pair) != 2 {
			return nil, errors.Errorf("invalid pitch point %q, want midi_note:cents", f)
		}
		note, err := strconv.ParseUint(pair[0], 10, 8)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid midi note in %q", f)
		}
		cents, err := strconv.ParseInt(pair[1], 10, 8)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid cents in %q", f)
		}
		points = append(points, mp4.PitchPoint{MIDINote: uint8(note), Cents: int8(cents)})
	}
	return points, nil
}
