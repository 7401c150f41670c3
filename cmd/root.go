// Package cmd wires twinlink's cobra commands. Structured the way the
// teacher splits cmd/tqm/main.go's flag registration from each
// command's own file (cmd/orphan.go, cmd/update.go, cmd/version.go).
package cmd

import (
	"github.com/spf13/cobra"
)

var (
	// FlagConfigFile is the path to an optional YAML settings file
	// (-c/--config), teacher's --config pattern.
	FlagConfigFile string
	// FlagLogFile is an optional path to additionally write rotated
	// logs to, on top of stdout.
	FlagLogFile string
	// FlagVerbosity follows cobra's CountVarP convention: 0 = info,
	// 1 = debug, 2+ = trace.
	FlagVerbosity int

	// FlagDryRun skips the Link Operation; duplicates are still found
	// and reported.
	FlagDryRun bool
	// FlagSmall disables the one-block minimum-size skip.
	FlagSmall bool
	// FlagReflink requests reflink clones, erroring per-file if the
	// filesystem cannot provide one.
	FlagReflink bool
	// FlagReflinkOrHardlink requests a reflink clone, falling back to a
	// hardlink per file when the filesystem declines.
	FlagReflinkOrHardlink bool
	// FlagJSON switches the reporter to the machine-readable event
	// stream.
	FlagJSON bool
	// FlagExclude lists base names to skip entirely during the walk.
	FlagExclude []string
)

// RootCommand builds the twinlink CLI: deduplication is the root
// command's own action (there is exactly one thing this binary does),
// with version as its one subcommand.
func RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "twinlink [flags] path...",
		Short: "Find byte-identical files and collapse them to shared storage",
		Long: `twinlink locates byte-identical files among the given paths and
collapses them to share one copy of their data, via hardlink or
reflink, doing the minimum I/O necessary and touching nothing until a
match is confirmed.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runDedupe,
	}

	root.PersistentFlags().StringVarP(&FlagConfigFile, "config", "c", "", "Path to a YAML config file")
	root.PersistentFlags().StringVarP(&FlagLogFile, "log", "l", "", "Additionally write rotated logs to this file")
	root.PersistentFlags().CountVarP(&FlagVerbosity, "verbose", "v", "Verbose level (-v debug, -vv trace)")

	root.Flags().BoolVarP(&FlagDryRun, "dry-run", "d", false, "Find duplicates and report them without linking anything")
	root.Flags().BoolVarP(&FlagSmall, "small", "s", false, "Include files smaller than one filesystem block")
	root.Flags().BoolVar(&FlagReflink, "reflink", false, "Use copy-on-write reflink clones; fail per-file if unsupported")
	root.Flags().BoolVar(&FlagReflinkOrHardlink, "reflink-or-hardlink", false, "Try a reflink clone, falling back to a hardlink per file")
	root.Flags().BoolVar(&FlagJSON, "json", false, "Emit a machine-readable JSON summary instead of progress text")
	root.Flags().StringArrayVar(&FlagExclude, "exclude", nil, "Skip directory entries with this exact base name (repeatable)")

	root.MarkFlagsMutuallyExclusive("reflink", "reflink-or-hardlink")

	root.AddCommand(VersionCommand())

	return root
}
