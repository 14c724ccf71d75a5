package main

import (
	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	"github.com/datawire/masonry/pkg/cliutil"
	"github.com/datawire/masonry/pkg/manifest"
)

// inspectView is the YAML shape of `masonry inspect`: the assembled package
// after manifest validation, with dependencies in their canonical string
// form.
type inspectView struct {
	Name           string              `json:"name"`
	Version        string              `json:"version,omitempty"`
	Description    string              `json:"description,omitempty"`
	RequiresPython string              `json:"requires-python,omitempty"`
	Dependencies   map[string][]string `json:"dependencies,omitempty"`
	Extras         map[string][]string `json:"extras,omitempty"`
	Scripts        map[string]string   `json:"scripts,omitempty"`
	URLs           map[string]string   `json:"urls,omitempty"`
}

func init() {
	var flagSrcDir string
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Validate the manifest and print the assembled package as YAML",
		Args:  cliutil.WrapPositionalArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			pkg, err := manifest.Load(cmd.Context(), flagSrcDir, manifest.Options{})
			if err != nil {
				return err
			}

			view := inspectView{
				Name:         pkg.CanonicalName(),
				Description:  pkg.Description,
				Dependencies: make(map[string][]string),
				Extras:       pkg.Extras,
				Scripts:      make(map[string]string),
				URLs:         pkg.URLs,
			}
			if pkg.Version != nil {
				view.Version = pkg.Version.String()
			}
			if !pkg.RequiresPython.IsAny() {
				view.RequiresPython = pkg.RequiresPython.String()
			}
			for _, group := range pkg.Groups {
				for _, dep := range group.Dependencies {
					view.Dependencies[group.Name] = append(view.Dependencies[group.Name], dep.String())
				}
			}
			for name, target := range pkg.Scripts {
				view.Scripts[name] = target.Reference
			}

			out, err := yaml.Marshal(view)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
	cmd.Flags().StringVarP(&flagSrcDir, "src-dir", "C", ".",
		"Source tree containing pyproject.toml")
	argparser.AddCommand(cmd)
}
