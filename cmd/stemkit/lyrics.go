package main

import (
	"context"
	"os"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"

	"github.com/monteslu/m4a-stems/pkg/config"
	"github.com/monteslu/m4a-stems/pkg/lyrics"
	"github.com/monteslu/m4a-stems/pkg/mp4"
	"github.com/monteslu/m4a-stems/pkg/stemfile"
)

type lyricsCmd struct {
	Set lyricsSetCmd `command:"set" description:"Write a lyrics document from a JSON file"`
}

func (c *lyricsCmd) Execute(args []string) error { return nil }

func (c *lyricsCmd) Run(ctx context.Context, cfg *config.Config, log logger.Logger, args []string) error {
	return errors.New("stemkit lyrics: specify a subcommand (set)")
}

type lyricsSetCmd struct {
	Backup bool `long:"backup" description:"Write a backup of the original file before tagging"`

	Positional struct {
		File     string `positional-arg-name:"file" required:"yes"`
		JSONFile string `positional-arg-name:"lyrics.json" required:"yes"`
	} `positional-args:"yes"`
}

func (c *lyricsSetCmd) Execute(args []string) error { return nil }

func (c *lyricsSetCmd) Run(ctx context.Context, cfg *config.Config, log logger.Logger, args []string) error {
	raw, err := os.ReadFile(c.Positional.JSONFile)
	if err != nil {
		return errors.WithStack(err)
	}
	doc, err := lyrics.Unmarshal(raw)
	if err != nil {
		return err
	}
	docJSON, err := doc.Marshal()
	if err != nil {
		return err
	}

	mutate := func(buf []byte) ([]byte, error) {
		return mp4.WriteLyricsJSON(buf, docJSON)
	}

	if c.Backup {
		return stemfile.MutateWithBackup(c.Positional.File, cfg.BackupSuffix, mutate)
	}
	return stemfile.Mutate(c.Positional.File, mutate)
}
