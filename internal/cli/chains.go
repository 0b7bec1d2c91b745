package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/yolodolo42/txagent/internal/agent"
)

func newChainsCmd(st *state) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "chains",
		Short: "List configured chains",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := st.registry()
			if err != nil {
				return err
			}

			// same view a model gets from list_chains
			out, err := agent.NewToolRegistry(nil, reg).Call(cmd.Context(), agent.ToolListChains, nil)
			if err != nil {
				return err
			}
			if asJSON {
				fmt.Fprintln(cmd.OutOrStdout(), out.Text)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderBlocks(terminalWidth(), out.Blocks))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the chain table as JSON")
	return cmd
}
