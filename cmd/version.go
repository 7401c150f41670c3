package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/twinlink/twinlink/pkg/buildinfo"
	"github.com/twinlink/twinlink/pkg/linkop"
)

// VersionCommand prints the build metadata ldflags stamped into this
// binary, plus the reflink capability this particular build carries for
// the platform it was compiled for. The latter is worth surfacing on its
// own: --reflink-or-hardlink silently falls back to hardlinks per file
// rather than failing the run, so a user chasing down why every duplicate on a
// no-CoW build came back as a hardlink should be able to answer that
// question without a scan.
func VersionCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "version",
		Short: "Print version info",
		Long:  `Print version info`,
		Example: `  twinlink version
  twinlink version --help`,
	}

	command.RunE = func(cmd *cobra.Command, args []string) error {
		fmt.Printf("twinlink version: %s commit: %s built at: %s\n",
			buildinfo.Version, buildinfo.GitCommit, buildinfo.Timestamp)
		fmt.Printf("platform: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		fmt.Printf("reflink support: %t\n", linkop.ReflinkBuildSupport())
		return nil
	}

	return command
}
