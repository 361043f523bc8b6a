package main

import (
	"context"
	"os"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"

	"github.com/monteslu/m4a-stems/pkg/config"
	"github.com/monteslu/m4a-stems/pkg/mp4"
	"github.com/monteslu/m4a-stems/pkg/stemfile"
)

type tagCmd struct {
	Title  string `long:"title" description:"Set the title (©nam) tag"`
	Artist string `long:"artist" description:"Set the artist (©ART) tag"`
	Album  string `long:"album" description:"Set the album (©alb) tag"`
	Genre  string `long:"genre" description:"Set the genre (©gen) tag"`
	Tempo  uint16 `long:"tempo" description:"Set the tempo (tmpo) tag, in BPM"`
	Backup bool   `long:"backup" description:"Write a backup of the original file before tagging"`

	Positional struct {
		File string `positional-arg-name:"file" required:"yes"`
	} `positional-args:"yes"`
}

func (c *tagCmd) Execute(args []string) error { return nil }

func (c *tagCmd) Run(ctx context.Context, cfg *config.Config, log logger.Logger, args []string) error {
	mutate := func(buf []byte) ([]byte, error) {
		var err error
		if c.Title != "" {
			if buf, err = mp4.WriteItunesText(buf, mp4.AtomTitle, c.Title); err != nil {
				return nil, err
			}
		}
		if c.Artist != "" {
			if buf, err = mp4.WriteItunesText(buf, mp4.AtomArtist, c.Artist); err != nil {
				return nil, err
			}
		}
		if c.Album != "" {
			if buf, err = mp4.WriteItunesText(buf, mp4.AtomAlbum, c.Album); err != nil {
				return nil, err
			}
		}
		if c.Genre != "" {
			if buf, err = mp4.WriteItunesText(buf, mp4.AtomGenre, c.Genre); err != nil {
				return nil, err
			}
		}
		if c.Tempo != 0 {
			if buf, err = mp4.WriteTempo(buf, c.Tempo); err != nil {
				return nil, err
			}
		}
		return buf, nil
	}

	if _, err := os.Stat(c.Positional.File); err != nil {
		return errors.WithStack(err)
	}

	if c.Backup {
		return stemfile.MutateWithBackup(c.Positional.File, cfg.BackupSuffix, mutate)
	}
	return stemfile.Mutate(c.Positional.File, mutate)
}
