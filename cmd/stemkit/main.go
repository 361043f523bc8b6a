// Command stemkit inspects, extracts, and tags M4A karaoke-stems
// containers from the command line.
package main

import (
	"context"
	"fmt"
	"os"

	flags "github.com/jessevdk/go-flags"
	"github.com/robinjoseph08/golib/logger"

	"github.com/monteslu/m4a-stems/pkg/config"
)

type options struct {
	Inspect inspectCmd `command:"inspect" description:"Print track and metadata information for a file"`
	Extract extractCmd `command:"extract" description:"Synthesize standalone stem files from a container"`
	Tag     tagCmd     `command:"tag" description:"Write iTunes-style metadata tags"`
	Lyrics  lyricsCmd  `command:"lyrics" description:"Manage the lyrics document"`
	Pitch   pitchCmd   `command:"pitch" description:"Manage the vocal pitch curve"`
	Onsets  onsetsCmd  `command:"onsets" description:"Manage onset markers"`
}

func main() {
	log := logger.New()

	cfg, err := config.New()
	if err != nil {
		log.Err(err).Fatal("config error")
	}

	var opts options
	parser := flags.NewParser(&opts, flags.Default)
	parser.CommandHandler = func(command flags.Commander, args []string) error {
		if command == nil {
			return nil
		}
		runner, ok := command.(cmdRunner)
		if !ok {
			return fmt.Errorf("command %T does not implement cmdRunner", command)
		}
		return runner.Run(context.Background(), cfg, log, args)
	}

	if _, err := parser.Parse(); err != nil {
		if flags.WroteHelp(err) {
			os.Exit(0)
		}
		log.Err(err).Fatal("command failed")
	}
}

// cmdRunner is implemented by every stemkit subcommand. args is the
// command's positional (non-flag) arguments.
type cmdRunner interface {
	Run(ctx context.Context, cfg *config.Config, log logger.Logger, args []string) error
}
