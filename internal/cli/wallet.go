package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/yolodolo42/txagent/internal/wallet"
)

const minPasswordLen = 8

func newWalletCmd(st *state) *cobra.Command {
	walletCmd := &cobra.Command{
		Use:   "wallet",
		Short: "Manage keystore accounts",
		Long: `Create, import and list encrypted keystore accounts under <data_dir>/keystore.
Set signer.source=keystore and signer.address to sign with one of them.`,
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new keystore account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			km, err := wallet.NewKeystoreManager(st.cfg.DataDir)
			if err != nil {
				return fmt.Errorf("failed to initialize keystore: %w", err)
			}
			password, err := st.newPassword("Enter password for new wallet: ")
			if err != nil {
				return err
			}

			account, err := km.CreateAccount(password)
			if err != nil {
				return fmt.Errorf("failed to create account: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Wallet created.")
			fmt.Fprintf(out, "Address:  %s\n", account.Address.Hex())
			fmt.Fprintf(out, "Keystore: %s\n", account.URL.Path)
			fmt.Fprintln(out, "\nBack up the keystore file and remember the password.")
			return nil
		},
	}

	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Import a private key into the keystore",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := st.secret("Private key (hex): ")
			if err != nil {
				return fmt.Errorf("failed to read private key: %w", err)
			}
			key = strings.TrimSpace(key)
			if key == "" {
				return fmt.Errorf("private key is required")
			}

			km, err := wallet.NewKeystoreManager(st.cfg.DataDir)
			if err != nil {
				return fmt.Errorf("failed to initialize keystore: %w", err)
			}
			password, err := st.newPassword("Enter password to encrypt wallet: ")
			if err != nil {
				return err
			}

			account, err := km.ImportKey(key, password)
			if err != nil {
				return fmt.Errorf("failed to import key: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Wallet imported.")
			fmt.Fprintf(out, "Address:  %s\n", account.Address.Hex())
			fmt.Fprintf(out, "Keystore: %s\n", account.URL.Path)
			return nil
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List keystore accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			km, err := wallet.NewKeystoreManager(st.cfg.DataDir)
			if err != nil {
				return fmt.Errorf("failed to initialize keystore: %w", err)
			}

			out := cmd.OutOrStdout()
			accounts := km.ListAccounts()
			if len(accounts) == 0 {
				fmt.Fprintln(out, "No wallets found.")
				fmt.Fprintln(out, "Use 'txagent wallet create' or 'txagent wallet import' to add one.")
				return nil
			}

			fmt.Fprintf(out, "Found %d wallet(s):\n\n", len(accounts))
			for i, acc := range accounts {
				marker := " "
				if strings.EqualFold(acc.Address.Hex(), st.cfg.Signer.Address) {
					marker = "*"
				}
				fmt.Fprintf(out, "%s %d. %s\n", marker, i+1, acc.Address.Hex())
			}
			return nil
		},
	}

	walletCmd.AddCommand(createCmd, importCmd, listCmd)
	return walletCmd
}

// newPassword asks twice and enforces a minimum length.
func (s *state) newPassword(prompt string) (string, error) {
	password, err := s.secret(prompt)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	if len(password) < minPasswordLen {
		return "", fmt.Errorf("password must be at least %d characters", minPasswordLen)
	}

	confirm, err := s.secret("Confirm password: ")
	if err != nil {
		return "", fmt.Errorf("failed to read password confirmation: %w", err)
	}
	if password != confirm {
		return "", fmt.Errorf("passwords do not match")
	}
	return password, nil
}
