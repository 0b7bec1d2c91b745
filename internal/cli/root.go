package cli

import (
	"github.com/spf13/cobra"
)

// Version is stamped at build time with -ldflags "-X .../internal/cli.Version=...".
var Version = "dev"

// NewRootCmd builds the full command tree around a fresh state.
func NewRootCmd() *cobra.Command {
	return newRootCmd(newState())
}

func newRootCmd(st *state) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "txagent",
		Short: "EVM transaction agent",
		Long: `txagent submits native transfers, ERC-20 transfers and native-to-token swaps
on EVM chains, either directly from the command line or on behalf of a
tool-calling model (chat, ask, or an MCP client through serve).

Every amount is checked against a fixed ceiling before any network contact.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return st.load(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, st)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&st.cfgFile, "config", "", "config file (default is $HOME/.txagent/config.yaml)")
	flags.String("chains", "", "chains file (YAML or JSON)")
	flags.String("data-dir", "", "directory for keystore, journal and session logs")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	flags.String("log-format", "", "log format (text or json)")
	flags.String("signer", "", "signing key source (env, keystore or prompt)")

	for key, flag := range map[string]string{
		"chains_file":   "chains",
		"data_dir":      "data-dir",
		"log.level":     "log-level",
		"log.format":    "log-format",
		"signer.source": "signer",
	} {
		_ = st.v.BindPFlag(key, flags.Lookup(flag))
	}

	rootCmd.AddCommand(
		newSendCmd(st),
		newSwapCmd(st),
		newChainsCmd(st),
		newHistoryCmd(st),
		newServeCmd(st),
		newChatCmd(st),
		newAskCmd(st),
		newWalletCmd(st),
	)
	return rootCmd
}

func Execute() error {
	return NewRootCmd().Execute()
}
