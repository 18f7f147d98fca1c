package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/iota-uz/meibo/modules/roster/importer"
	"github.com/iota-uz/meibo/modules/roster/infrastructure/persistence"
	"github.com/iota-uz/meibo/modules/roster/services"
	"github.com/iota-uz/meibo/pkg/composables"
	"github.com/iota-uz/meibo/pkg/configuration"
)

type previewOutput struct {
	File        string                  `json:"file"`
	New         int                     `json:"new"`
	Updated     int                     `json:"updated"`
	Transferred int                     `json:"transferred"`
	Retired     int                     `json:"retired"`
	Duplicates  int                     `json:"duplicates"`
	RowErrors   []importer.RowError     `json:"rowErrors,omitempty"`
	Details     *services.PreviewResult `json:"details,omitempty"`
}

func newPreviewCmd() *cobra.Command {
	var (
		orgID   string
		file    string
		details bool
	)

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Classify a roster file against the persisted roster without writing anything",
		RunE: func(cmd *cobra.Command, args []string) error {
			oid, err := uuid.Parse(orgID)
			if err != nil {
				return fmt.Errorf("invalid --org: %w", err)
			}

			conf := configuration.Use()
			rows, err := importer.ReadRoster(file)
			if err != nil {
				return err
			}
			parser := importer.NewParser(conf.Importer.DefaultPosition)
			batch, rowErrs := parser.ProcessAll(rows)

			pool, err := connectDB(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()
			ctx := composables.WithPool(cmd.Context(), pool)

			svc := services.NewReconcileService(persistence.NewEmployeeRepository())
			result, err := svc.Preview(ctx, oid, batch)
			if err != nil {
				return err
			}
			result.Errors = rowErrs

			out := previewOutput{
				File:        file,
				New:         len(result.NewEmployees),
				Updated:     len(result.UpdatedEmployees),
				Transferred: len(result.TransferredEmployees),
				Retired:     len(result.RetiredEmployees),
				Duplicates:  len(result.ExcludedDuplicates),
				RowErrors:   rowErrs,
			}
			if details {
				out.Details = result
			}
			return writeJSON(out)
		},
	}

	cmd.Flags().StringVar(&orgID, "org", "", "organization id (uuid)")
	cmd.Flags().StringVar(&file, "file", "", "roster file (csv or xlsx)")
	cmd.Flags().BoolVar(&details, "details", false, "include per-employee classification details")
	_ = cmd.MarkFlagRequired("org")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
