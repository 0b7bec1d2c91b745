package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/yolodolo42/txagent/internal/agent"
	"github.com/yolodolo42/txagent/internal/exec"
	"github.com/yolodolo42/txagent/internal/journal"
)

func newHistoryCmd(st *state) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent invocations from the submission journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := st.openJournal()
			if err != nil {
				return err
			}
			if store == nil {
				return fmt.Errorf("journal is disabled (journal.enabled=false)")
			}
			defer store.Close()

			entries, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No invocations recorded yet.")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderBlocks(terminalWidth(), []agent.UIBlock{historyTable(entries)}))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of entries to show")
	return cmd
}

func historyTable(entries []journal.Entry) agent.UIBlock {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		outcome := e.TxHash
		if e.Status == journal.StatusFailed {
			outcome = e.ErrorCode
		}
		amount := e.Amount + " " + e.Token
		switch {
		case e.Op == string(exec.OpSwap):
			amount = e.Amount + " native for " + e.Token
		case e.Token == "":
			amount = e.Amount + " native"
		}
		rows = append(rows, []string{
			e.CreatedAt.Local().Format(time.DateTime),
			e.Op,
			e.Chain,
			amount,
			e.Recipient,
			string(e.Status),
			outcome,
		})
	}
	return agent.TableBlock(
		fmt.Sprintf("Recent invocations (%d)", len(entries)),
		[]string{"Time", "Op", "Chain", "Amount", "To", "Status", "Tx hash / error"},
		rows,
	)
}
