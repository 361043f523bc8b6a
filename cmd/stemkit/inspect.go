package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"

	"github.com/monteslu/m4a-stems/pkg/config"
	"github.com/monteslu/m4a-stems/pkg/mp4"
)

type inspectCmd struct {
	Positional struct {
		File string `positional-arg-name:"file" required:"yes"`
	} `positional-args:"yes"`
}

func (c *inspectCmd) Execute(args []string) error { return nil }

func (c *inspectCmd) Run(ctx context.Context, cfg *config.Config, log logger.Logger, args []string) error {
	buf, err := os.ReadFile(c.Positional.File)
	if err != nil {
		return errors.WithStack(err)
	}

	infos, err := mp4.GetTrackInfo(buf)
	if err != nil {
		return errors.WithStack(err)
	}

	for _, info := range infos {
		if info.Error != "" {
			fmt.Printf("track %d: error: %s\n", info.Index, info.Error)
			continue
		}
		fmt.Printf("track %d: %d samples, %.2fs @ %dHz\n", info.Index, info.SampleCount, info.DurationSec, info.Timescale)
	}

	if title, ok, err := mp4.ReadIlstAtom(buf, mp4.IlstKey{Type: mp4.AtomTitle}); err == nil && ok {
		fmt.Printf("title: %s\n", title)
	}
	if artist, ok, err := mp4.ReadIlstAtom(buf, mp4.IlstKey{Type: mp4.AtomArtist}); err == nil && ok {
		fmt.Printf("artist: %s\n", artist)
	}
	if key, ok, err := mp4.ReadMusicalKey(buf); err == nil && ok {
		fmt.Printf("musical key: %s\n", key)
	}

	return nil
}
