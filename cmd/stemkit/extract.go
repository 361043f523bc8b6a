package main

import (
	"context"
	"fmt"

	"github.com/robinjoseph08/golib/logger"

	"github.com/monteslu/m4a-stems/pkg/config"
	"github.com/monteslu/m4a-stems/pkg/stemfile"
)

type extractCmd struct {
	OutDir string `short:"o" long:"out-dir" description:"Directory to write extracted tracks to (defaults to the config's output_dir)"`

	Positional struct {
		File string `positional-arg-name:"file" required:"yes"`
	} `positional-args:"yes"`
}

func (c *extractCmd) Execute(args []string) error { return nil }

func (c *extractCmd) Run(ctx context.Context, cfg *config.Config, log logger.Logger, args []string) error {
	outDir := c.OutDir
	if outDir == "" {
		outDir = cfg.OutputDir
	}

	paths, err := stemfile.BatchExtract(ctx, c.Positional.File, outDir, cfg.MaxConcurrentExtracts, log)
	if err != nil {
		return err
	}

	for _, p := range paths {
		fmt.Println(p)
	}
	return nil
}
