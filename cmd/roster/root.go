package main

import (
	"os"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "roster",
		Short: "Roster reconciliation tools: preview, commit, audit, snapshots",
	}
	cmd.AddCommand(newPreviewCmd())
	cmd.AddCommand(newCommitCmd())
	cmd.AddCommand(newSnapshotCmd())
	cmd.AddCommand(newChangelogCmd())
	return cmd
}

func execute() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
