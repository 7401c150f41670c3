package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/twinlink/twinlink/pkg/config"
	"github.com/twinlink/twinlink/pkg/contentkey"
	"github.com/twinlink/twinlink/pkg/linkop"
	"github.com/twinlink/twinlink/pkg/logger"
	"github.com/twinlink/twinlink/pkg/reporter"
	"github.com/twinlink/twinlink/pkg/scandriver"
)

var log = logger.GetLogger("cmd")

// runDedupe is the root command's action: load config, resolve the
// link mode and reporter from flags, then run one Scanner driver pass
// over every path argument. A non-nil return here is a fatal,
// run-aborting error (invalid flags, a config file that failed to
// load, or the walk itself failing); per-path errors are reported and
// counted by the Scanner driver without ever reaching this return.
func runDedupe(cmd *cobra.Command, args []string) error {
	logger.Init(FlagLogFile, FlagVerbosity)

	cfg, err := config.Load(FlagConfigFile)
	if err != nil {
		return errors.Wrap(err, "loading config")
	}
	cfg.Excludes = append(cfg.Excludes, FlagExclude...)

	mode, err := linkop.ParseMode(cfg.LinkMode)
	if err != nil {
		return errors.Wrap(err, "config")
	}
	switch {
	case cmd.Flags().Changed("reflink"):
		mode = linkop.ReflinkOnly
	case cmd.Flags().Changed("reflink-or-hardlink"):
		mode = linkop.Reflink
	}

	var rep reporter.Reporter
	if FlagJSON {
		rep = reporter.NewJSONReporter(os.Stdout)
	} else {
		rep = reporter.NewTextReporter(os.Stdout)
	}

	salt, err := contentkey.NewSalt()
	if err != nil {
		return errors.Wrap(err, "generating run salt")
	}

	opts := scandriver.Options{
		Config:    cfg,
		Small:     FlagSmall,
		LinkMode:  mode,
		DryRun:    FlagDryRun,
		NoMerging: FlagJSON && FlagDryRun,
		Reporter:  rep,
	}

	driver := scandriver.New(opts, salt)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	log.WithField("paths", args).Info("starting scan")
	if err := driver.Run(ctx, args); err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}
	return nil
}
