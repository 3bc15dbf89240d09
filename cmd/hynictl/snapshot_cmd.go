package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hynigo/hyni/internal/snapshotstore"
)

func newSnapshotCmd() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Manage saved conversation snapshots (Context.ExportState blobs)",
	}
	cmd.PersistentFlags().StringVar(&dbPath, "db", "", "path to the snapshot store file (default hyni-snapshots.db)")

	cmd.AddCommand(newSnapshotImportCmd(&dbPath))
	cmd.AddCommand(newSnapshotExportCmd(&dbPath))
	cmd.AddCommand(newSnapshotListCmd(&dbPath))
	cmd.AddCommand(newSnapshotDeleteCmd(&dbPath))
	return cmd
}

func newSnapshotImportCmd(dbPath *string) *cobra.Command {
	var provider string
	cmd := &cobra.Command{
		Use:   "import <name> <state-file>",
		Short: "Store a Context.ExportState JSON file under name",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := os.ReadFile(args[1])
			if err != nil {
				return fmt.Errorf("reading state file: %w", err)
			}
			store, err := snapshotstore.Open(*dbPath)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()
			if err := store.Save(args[0], provider, state); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved snapshot %q\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&provider, "provider", "", "provider name the snapshot was exported from")
	return cmd
}

func newSnapshotExportCmd(dbPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "export <name> <out-file>",
		Short: "Write a stored snapshot back out to a state file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := snapshotstore.Open(*dbPath)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			state, _, ok := store.Load(args[0])
			if !ok {
				return fmt.Errorf("snapshot not found: %s", args[0])
			}
			return os.WriteFile(args[1], state, 0o600)
		},
	}
}

func newSnapshotListCmd(dbPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored snapshot names",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := snapshotstore.Open(*dbPath)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			names, err := store.List()
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}

func newSnapshotDeleteCmd(dbPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a stored snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := snapshotstore.Open(*dbPath)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()
			return store.Delete(args[0])
		},
	}
}
