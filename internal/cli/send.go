package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/yolodolo42/txagent/internal/agent"
	"github.com/yolodolo42/txagent/internal/exec"
	"github.com/yolodolo42/txagent/internal/ui"
)

func newSendCmd(st *state) *cobra.Command {
	var (
		chainName, to, amount, token string
		yes                          bool
	)

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send the native asset or an ERC-20 token",
		Example: `  txagent send --chain sepolia --to 0x... --amount 0.01
  txagent send --chain sepolia --token USDC --to 0x... --amount 25`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ex, done, err := st.executor()
			if err != nil {
				return err
			}
			defer done()

			asset := strings.TrimSpace(token)
			title := "Send token transfer"
			if asset == "" {
				title = "Send native transfer"
				asset = "native"
				if info, ok := ex.Registry().Lookup(chainName); ok {
					asset = info.Symbol()
				}
			}
			what := amount + " " + asset

			if !yes {
				ok, err := st.confirm(cmd, title,
					ui.Field{Key: "Chain", Value: chainName},
					ui.Field{Key: "To", Value: to},
					ui.Field{Key: "Amount", Value: what},
				)
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
					return nil
				}
			}

			res, err := ex.Transfer(cmd.Context(), exec.TransferRequest{
				Chain:  chainName,
				Token:  token,
				To:     to,
				Amount: amount,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderBlocks(terminalWidth(), []agent.UIBlock{agent.SubmissionBlock(res, what+" to "+to)}))
			return nil
		},
	}

	cmd.Flags().StringVar(&chainName, "chain", "", "chain name from the chains file")
	cmd.Flags().StringVar(&to, "to", "", "recipient address")
	cmd.Flags().StringVar(&amount, "amount", "", "amount in whole units, e.g. 0.5")
	cmd.Flags().StringVar(&token, "token", "", "ERC-20 token symbol or address (omit for the native asset)")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	_ = cmd.MarkFlagRequired("chain")
	_ = cmd.MarkFlagRequired("to")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func newSwapCmd(st *state) *cobra.Command {
	var (
		chainName, token, amount string
		yes                      bool
	)

	cmd := &cobra.Command{
		Use:     "swap",
		Short:   "Swap the native asset for an ERC-20 token",
		Example: `  txagent swap --chain sepolia --token USDC --amount 0.1`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ex, done, err := st.executor()
			if err != nil {
				return err
			}
			defer done()

			native := "native"
			if info, ok := ex.Registry().Lookup(chainName); ok {
				native = info.Symbol()
			}
			what := amount + " " + native + " for " + token

			if !yes {
				ok, err := st.confirm(cmd, "Swap",
					ui.Field{Key: "Chain", Value: chainName},
					ui.Field{Key: "Spend", Value: amount + " " + native},
					ui.Field{Key: "Buy", Value: token},
					ui.Field{Key: "Slippage", Value: "0.5%"},
				)
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
					return nil
				}
			}

			res, err := ex.Swap(cmd.Context(), exec.SwapRequest{Chain: chainName, Token: token, Amount: amount})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderBlocks(terminalWidth(), []agent.UIBlock{agent.SubmissionBlock(res, what)}))
			return nil
		},
	}

	cmd.Flags().StringVar(&chainName, "chain", "", "chain name from the chains file")
	cmd.Flags().StringVar(&token, "token", "", "ERC-20 token symbol or address to buy")
	cmd.Flags().StringVar(&amount, "amount", "", "native amount to spend in whole units")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	_ = cmd.MarkFlagRequired("chain")
	_ = cmd.MarkFlagRequired("token")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}
