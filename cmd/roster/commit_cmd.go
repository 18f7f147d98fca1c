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
	"github.com/iota-uz/meibo/pkg/eventbus"
)

func newCommitCmd() *cobra.Command {
	var (
		orgID      string
		file       string
		actor      string
		policyPath string
	)

	cmd := &cobra.Command{
		Use:   "commit",
		Short: "Apply a roster file as one transaction and record the audit trail",
		RunE: func(cmd *cobra.Command, args []string) error {
			oid, err := uuid.Parse(orgID)
			if err != nil {
				return fmt.Errorf("invalid --org: %w", err)
			}

			conf := configuration.Use()
			log := conf.Logger()

			if policyPath == "" {
				policyPath = conf.Importer.ManagerPolicyPath
			}
			policy := services.DefaultManagerPolicy()
			if policyPath != "" {
				policy, err = services.LoadManagerPolicy(policyPath)
				if err != nil {
					return fmt.Errorf("failed to load manager policy: %w", err)
				}
			}

			rows, err := importer.ReadRoster(file)
			if err != nil {
				return err
			}
			parser := importer.NewParser(conf.Importer.DefaultPosition)
			batch, rowErrs := parser.ProcessAll(rows)
			for _, re := range rowErrs {
				log.WithField("line", re.Line).Warn(re.Message)
			}

			pool, err := connectDB(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()
			ctx := composables.WithPool(cmd.Context(), pool)

			employees := persistence.NewEmployeeRepository()
			units := persistence.NewUnitRepository()
			audit := services.NewAuditService(
				persistence.NewChangelogRepository(),
				units,
				employees,
				persistence.NewSnapshotRepository(),
			)
			svc := services.NewImportService(
				employees, units, audit, policy, eventbus.NewEventPublisher(log), log,
			)

			result, err := svc.Commit(ctx, oid, actor, batch)
			if result != nil {
				if wErr := writeJSON(result); wErr != nil {
					return wErr
				}
			}
			return err
		},
	}

	cmd.Flags().StringVar(&orgID, "org", "", "organization id (uuid)")
	cmd.Flags().StringVar(&file, "file", "", "roster file (csv or xlsx)")
	cmd.Flags().StringVar(&actor, "actor", "cli", "actor recorded in the audit trail")
	cmd.Flags().StringVar(&policyPath, "policy", "", "manager policy YAML (defaults to IMPORT_MANAGER_POLICY)")
	_ = cmd.MarkFlagRequired("org")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
