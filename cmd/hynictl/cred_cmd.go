package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hynigo/hyni/internal/credstore"
)

func newCredCmd() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "cred",
		Short: "Manage the local provider credential vault",
	}
	cmd.PersistentFlags().StringVar(&dbPath, "db", "", "path to the credential vault file (default hyni-credentials.db)")

	cmd.AddCommand(newCredSetCmd(&dbPath))
	cmd.AddCommand(newCredListCmd(&dbPath))
	cmd.AddCommand(newCredDeleteCmd(&dbPath))
	return cmd
}

func openCredStore(dbPath string) (*credstore.SQLiteStore, error) {
	return credstore.OpenSQLiteStore(dbPath)
}

func newCredSetCmd(dbPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "set <name> <provider> <api-key>",
		Short: "Create or replace a named credential",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openCredStore(*dbPath)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			cred, err := store.Put(args[0], args[1], args[2], nil)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved credential %q for provider %q\n", cred.Name, cred.Provider)
			return nil
		},
	}
}

func newCredListCmd(dbPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored credentials (API keys masked)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openCredStore(*dbPath)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			for _, cred := range store.List() {
				fmt.Fprintf(cmd.OutOrStdout(), "%-20s provider=%-12s key=%s\n", cred.Name, cred.Provider, cred.APIKey)
			}
			return nil
		},
	}
}

func newCredDeleteCmd(dbPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a stored credential",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openCredStore(*dbPath)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()
			return store.Delete(args[0])
		},
	}
}
