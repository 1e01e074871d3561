package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openlands/caselens/internal/infrastructure/database/postgres"
	"github.com/openlands/caselens/internal/infrastructure/database/postgres/repositories"
	"github.com/openlands/caselens/internal/infrastructure/dataset"
	"github.com/openlands/caselens/pkg/errors"
)

var importRunMigrations bool

// NewImportCmd creates the import command, which loads dataset CSV exports
// into the historical case store.
func NewImportCmd(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import dataset CSV exports into the historical case store",
		Long:  "Parse every <dataset>.csv under --data-dir and insert the records into\nPostgreSQL.  Rows already present (same dataset and case number) are left\nuntouched, so re-running an import is safe.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runImport(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&importRunMigrations, "migrate", false, "Run pending schema migrations before importing")
	return cmd
}

func runImport(cmd *cobra.Command, opts *RootOptions) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	logger, err := newLogger(opts)
	if err != nil {
		return err
	}

	datasets, err := resolveDatasets(opts, cfg)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	conn, err := postgres.NewConnection(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer conn.Close()

	if importRunMigrations {
		if err := postgres.RunMigrations(postgres.BuildDSN(cfg.Database), "file://"+cfg.Database.MigrationPath); err != nil {
			return err
		}
	}

	source := dataset.NewFileSource(opts.DataDir, logger)
	repo := repositories.NewHistoryRepository(conn.Pool(), logger)

	var total int
	for _, ds := range datasets {
		records, err := source.Load(ds)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Printf("%s: no records\n", ds)
			continue
		}
		if err := repo.InsertCases(ctx, records); err != nil {
			return errors.Wrap(err, errors.ErrCodeCaseImportFailed,
				fmt.Sprintf("failed to import dataset %q", ds))
		}
		fmt.Printf("%s: imported %d records\n", ds, len(records))
		total += len(records)
	}

	fmt.Printf("done: %d records across %d datasets\n", total, len(datasets))
	return nil
}
