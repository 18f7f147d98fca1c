package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/iota-uz/meibo/modules/roster/infrastructure/persistence"
	"github.com/iota-uz/meibo/modules/roster/services"
	"github.com/iota-uz/meibo/pkg/composables"
)

func newAuditService() *services.AuditService {
	return services.NewAuditService(
		persistence.NewChangelogRepository(),
		persistence.NewUnitRepository(),
		persistence.NewEmployeeRepository(),
		persistence.NewSnapshotRepository(),
	)
}

func withPoolContext(cmd *cobra.Command) (context.Context, func(), error) {
	pool, err := connectDB(cmd.Context())
	if err != nil {
		return nil, nil, err
	}
	return composables.WithPool(cmd.Context(), pool), pool.Close, nil
}

func newSnapshotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Create and compare organization snapshots",
	}
	cmd.AddCommand(newSnapshotCreateCmd())
	cmd.AddCommand(newSnapshotShowCmd())
	cmd.AddCommand(newSnapshotDiffCmd())
	return cmd
}

func newSnapshotCreateCmd() *cobra.Command {
	var orgID string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Capture the current hierarchy and head count",
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

			snap, err := newAuditService().CreateOrganizationSnapshot(ctx, oid)
			if err != nil {
				return err
			}
			return writeJSON(snap)
		},
	}

	cmd.Flags().StringVar(&orgID, "org", "", "organization id (uuid)")
	_ = cmd.MarkFlagRequired("org")
	return cmd
}

func newSnapshotShowCmd() *cobra.Command {
	var id string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print one snapshot by id",
		RunE: func(cmd *cobra.Command, args []string) error {
			sid, err := uuid.Parse(id)
			if err != nil {
				return fmt.Errorf("invalid --id: %w", err)
			}

			ctx, closePool, err := withPoolContext(cmd)
			if err != nil {
				return err
			}
			defer closePool()

			snap, err := newAuditService().GetSnapshot(ctx, sid)
			if err != nil {
				return err
			}
			return writeJSON(snap)
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "snapshot id (uuid)")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func newSnapshotDiffCmd() *cobra.Command {
	var (
		orgID  string
		fromID string
		toID   string
	)

	cmd := &cobra.Command{
		Use:   "diff",
		Short: "Compare two snapshots (--to defaults to the latest)",
		RunE: func(cmd *cobra.Command, args []string) error {
			oid, err := uuid.Parse(orgID)
			if err != nil {
				return fmt.Errorf("invalid --org: %w", err)
			}
			fid, err := uuid.Parse(fromID)
			if err != nil {
				return fmt.Errorf("invalid --from: %w", err)
			}

			ctx, closePool, err := withPoolContext(cmd)
			if err != nil {
				return err
			}
			defer closePool()

			svc := newAuditService()
			prev, err := svc.GetSnapshot(ctx, fid)
			if err != nil {
				return err
			}

			next := prev
			if toID != "" {
				tid, err := uuid.Parse(toID)
				if err != nil {
					return fmt.Errorf("invalid --to: %w", err)
				}
				next, err = svc.GetSnapshot(ctx, tid)
				if err != nil {
					return err
				}
			} else {
				next, err = svc.LatestSnapshot(ctx, oid)
				if err != nil {
					return err
				}
			}

			return writeJSON(svc.CompareSnapshots(prev, next))
		},
	}

	cmd.Flags().StringVar(&orgID, "org", "", "organization id (uuid)")
	cmd.Flags().StringVar(&fromID, "from", "", "baseline snapshot id (uuid)")
	cmd.Flags().StringVar(&toID, "to", "", "target snapshot id (uuid, defaults to latest)")
	_ = cmd.MarkFlagRequired("org")
	_ = cmd.MarkFlagRequired("from")
	return cmd
}
