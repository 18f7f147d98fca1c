package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/iota-uz/meibo/modules/roster/domain/entities/changelog"
)

func newChangelogCmd() *cobra.Command {
	var (
		orgID      string
		batchID    string
		entityType string
		entityID   string
		limit      int
		offset     int
	)

	cmd := &cobra.Command{
		Use:   "changelog",
		Short: "List audit trail entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			oid, err := uuid.Parse(orgID)
			if err != nil {
				return fmt.Errorf("invalid --org: %w", err)
			}

			ctx, closePool, err := withPoolContext(cmd)
			if err != nil {
				return err
			}
			defer closePool()

			entries, err := newAuditService().ListChangeLogs(ctx, oid, &changelog.FindParams{
				BatchID:    batchID,
				EntityType: entityType,
				EntityID:   entityID,
				Limit:      limit,
				Offset:     offset,
			})
			if err != nil {
				return err
			}
			return writeJSON(entries)
		},
	}

	cmd.Flags().StringVar(&orgID, "org", "", "organization id (uuid)")
	cmd.Flags().StringVar(&batchID, "batch", "", "filter by import batch id")
	cmd.Flags().StringVar(&entityType, "entity-type", "", "filter by entity type")
	cmd.Flags().StringVar(&entityID, "entity", "", "filter by entity id (employee number)")
	cmd.Flags().IntVar(&limit, "limit", 100, "maximum entries to print")
	cmd.Flags().IntVar(&offset, "offset", 0, "entries to skip")
	_ = cmd.MarkFlagRequired("org")
	return cmd
}
