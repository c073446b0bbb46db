package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hupe1980/webdevchat/catalog"
)

func newPersonasCommand(flags *rootFlags) *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "personas",
		Short: "List the configured personas",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := flags.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			registry, err := catalog.FromConfig(*cfg)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			entry := registry.Entry()
			for _, p := range registry.Personas() {
				marker := " "
				if p == entry {
					marker = "*"
				}
				fmt.Fprintf(out, "%s %s: %s\n", marker, p.Name(), p.Description())
				if verbose && p.HasCandidates() {
					names := make([]string, 0, len(p.Candidates()))
					for _, c := range p.Candidates() {
						names = append(names, c.Name())
					}
					fmt.Fprintf(out, "    routes to: %s\n", strings.Join(names, ", "))
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show delegation candidates")
	return cmd
}
