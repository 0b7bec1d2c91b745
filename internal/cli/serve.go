package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/yolodolo42/txagent/internal/agent"
	"github.com/yolodolo42/txagent/internal/config"
	"github.com/yolodolo42/txagent/internal/mcpserver"
)

func newServeCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the transaction tools to an MCP client over stdio",
		Long: `serve speaks the Model Context Protocol on stdin/stdout and exposes
eth_transfer, erc20_transfer, eth_swap_to_erc20 and list_chains.

stdin carries the protocol, so the signing key must come from the
environment or from a keystore whose password is in the environment.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if st.cfg.Signer.Source == config.SignerPrompt {
				return fmt.Errorf("signer.source %q reads from the terminal and cannot be used with serve", config.SignerPrompt)
			}

			ex, done, err := st.executor()
			if err != nil {
				return err
			}
			defer done()

			srv := mcpserver.New(agent.NewToolRegistry(ex, ex.Registry()), Version, st.log)
			return srv.Serve(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}
