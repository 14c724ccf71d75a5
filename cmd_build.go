package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/datawire/masonry/pkg/cliutil"
	"github.com/datawire/masonry/pkg/python/pep517"
)

func init() {
	var flagSrcDir string
	var flagOutDir string

	addBuildCommand := func(use, short string, build func(cmd *cobra.Command) (string, error)) {
		cmd := &cobra.Command{
			Use:   use,
			Short: short,
			Args:  cliutil.WrapPositionalArgs(cobra.NoArgs),
			RunE: func(cmd *cobra.Command, _ []string) error {
				filename, err := build(cmd)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), filename)
				return nil
			},
		}
		cmd.Flags().StringVarP(&flagSrcDir, "src-dir", "C", ".",
			"Source tree containing pyproject.toml")
		cmd.Flags().StringVarP(&flagOutDir, "out-dir", "o", "dist",
			"Directory to write the artifact into")
		argparser.AddCommand(cmd)
	}

	addBuildCommand("build-sdist", "Build a source distribution (.tar.gz)",
		func(cmd *cobra.Command) (string, error) {
			return pep517.BuildSdist(cmd.Context(), flagSrcDir, flagOutDir, nil)
		})
	addBuildCommand("build-wheel", "Build a binary distribution (.whl)",
		func(cmd *cobra.Command) (string, error) {
			return pep517.BuildWheel(cmd.Context(), flagSrcDir, flagOutDir, nil, "")
		})
	addBuildCommand("build-editable", "Build an editable wheel that imports from the source tree",
		func(cmd *cobra.Command) (string, error) {
			return pep517.BuildEditable(cmd.Context(), flagSrcDir, flagOutDir, nil)
		})
}
