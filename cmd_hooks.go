package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/datawire/masonry/pkg/cliutil"
	"github.com/datawire/masonry/pkg/python/pep517"
)

func init() {
	var flagSrcDir string

	requiresCmd := &cobra.Command{
		Use:   "get-requires {sdist|wheel}",
		Short: "Print the extra requirements for building the given artifact",
		Args:  cliutil.WrapPositionalArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			var requires []string
			var err error
			switch args[0] {
			case "sdist":
				requires, err = pep517.GetRequiresForBuildSdist(cmd.Context(), flagSrcDir, nil)
			case "wheel":
				requires, err = pep517.GetRequiresForBuildWheel(cmd.Context(), flagSrcDir, nil)
			default:
				return fmt.Errorf("unknown artifact kind %q", args[0])
			}
			if err != nil {
				return err
			}
			for _, requirement := range requires {
				fmt.Fprintln(cmd.OutOrStdout(), requirement)
			}
			return nil
		},
	}
	requiresCmd.Flags().StringVarP(&flagSrcDir, "src-dir", "C", ".",
		"Source tree containing pyproject.toml")
	argparser.AddCommand(requiresCmd)

	var flagMetaSrcDir string
	metadataCmd := &cobra.Command{
		Use:   "prepare-metadata OUT_DIRECTORY",
		Short: "Emit only the .dist-info directory (METADATA, WHEEL, entry_points.txt, RECORD)",
		Args:  cliutil.WrapPositionalArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			distInfoName, err := pep517.PrepareMetadataForBuildWheel(
				cmd.Context(), flagMetaSrcDir, args[0], nil)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), distInfoName)
			return nil
		},
	}
	metadataCmd.Flags().StringVarP(&flagMetaSrcDir, "src-dir", "C", ".",
		"Source tree containing pyproject.toml")
	argparser.AddCommand(metadataCmd)
}
