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

type onsetsCmd struct {
	Set onsetsSetCmd `command:"set" description:"Write onset markers"`
}

func (c *onsetsCmd) Execute(args []string) error { return nil }

func (c *onsetsCmd) Run(ctx context.Context, cfg *config.Config, log logger.Logger, args []string) error {
	return errors.New("stemkit onsets: specify a subcommand (set)")
}

type onsetsSetCmd struct {
	Times  string `long:"times" description:"Comma-separated onset times in seconds, e.g. 0.5,1.25,4" required:"yes"`
	Backup bool   `long:"backup" description:"Write a backup of the original file before tagging"`

	Positional struct {
		File string `positional-arg-name:"file" required:"yes"`
	} `positional-args:"yes"`
}

func (c *onsetsSetCmd) Execute(args []string) error { return nil }

func (c *onsetsSetCmd) Run(ctx context.Context, cfg *config.Config, log logger.Logger, args []string) error {
	times, err := parseOnsetTimes(c.Times)
	if err != nil {
		return err
	}

	mutate := func(buf []byte) ([]byte, error) {
		return mp4.WriteOnsets(buf, times)
	}

	if c.Backup {
		return stemfile.MutateWithBackup(c.Positional.File, cfg.BackupSuffix, mutate)
	}
	return stemfile.Mutate(c.Positional.File, mutate)
}

func parseOnsetTimes(raw string) ([]float64, error) {
	fields := strings.Split(raw, ",")
	times := make([]float64, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid onset time %q", f)
		}
		times = append(times, v)
	}
	return times, nil
}
