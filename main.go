// Command masonry is a build backend for Python projects declared in a
// pyproject.toml manifest: it turns a source tree into reproducible sdist and
// wheel artifacts, and exposes the standard build hooks to installer
// frontends that drive the backend as a process.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/datawire/masonry/pkg/cliutil"
)

var argparser = &cobra.Command{
	Use:   "masonry {[flags]|SUBCOMMAND...}",
	Short: "Build Python sdists and wheels from a pyproject.toml manifest",

	Args: cliutil.OnlySubcommands,
	RunE: cliutil.RunSubcommands,

	SilenceErrors: true, // main() will handle this after .ExecuteContext() returns
	SilenceUsage:  true, // our FlagErrorFunc will handle it
}

func init() {
	argparser.SetFlagErrorFunc(cliutil.FlagErrorFunc)
	argparser.SetHelpTemplate(cliutil.HelpTemplate)
}

func main() {
	ctx := context.Background()

	if err := argparser.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(argparser.ErrOrStderr(), "%s: error: %v\n", argparser.CommandPath(), err)
		os.Exit(1)
	}
}
