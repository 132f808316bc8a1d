package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"f0oster/ntdsinspect/activedirectory"
	"f0oster/ntdsinspect/database"
	"f0oster/ntdsinspect/snapshot"
	"f0oster/ntdsinspect/versioning"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func (a *app) exportCommand() *cobra.Command {
	var dsn string
	cmd := &cobra.Command{
		Use:   "export-pg <ntds-file>",
		Short: "Write object snapshots to PostgreSQL",
		Long: `Store a versioned snapshot of every object with an objectGUID in
PostgreSQL. Exporting a later copy of the same domain adds a new version
for every changed object and records its attribute changes.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if dsn == "" {
				dsn = a.cfg.PostgresDSN
			}
			if dsn == "" {
				return errors.New("no PostgreSQL connection string, use --dsn or NTDS_PG_DSN")
			}

			in, closeDB, err := a.open(args[0])
			if err != nil {
				return err
			}
			defer closeDB()

			ctx := cmd.Context()
			pool, err := database.Connect(ctx, dsn, a.logger)
			if err != nil {
				return err
			}
			defer pool.Close()

			summary, err := export(ctx, database.NewDBClient(pool), in, args[0], a.logger)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %d, updated %d, unchanged %d\n",
				summary.Created, summary.Updated, summary.Unchanged)
			return nil
		},
	}
	cmd.Flags().StringVar(&dsn, "dsn", "", "PostgreSQL connection string")
	return cmd
}

// export snapshots every object of in and hands them to the versioning
// service under the domain the database belongs to.
func export(ctx context.Context, client *database.DBClient, in *activedirectory.Instance, source string, logger *zap.Logger) (versioning.Summary, error) {
	domainDN, err := in.DomainDN()
	if err != nil {
		return versioning.Summary{}, fmt.Errorf("failed to determine the domain: %w", err)
	}
	domainID := versioning.DomainID(domainDN)

	snaps := takeSnapshots(in, nil, logger)
	highest := highestUSN(snaps)

	if err := client.EnsureSchema(ctx); err != nil {
		return versioning.Summary{}, err
	}
	if err := client.InsertDomain(ctx, database.DomainRecord{
		DomainID:   domainID,
		DomainName: domainDN,
		SourceFile: filepath.Base(source),
		HighestUSN: highest,
	}); err != nil {
		return versioning.Summary{}, err
	}

	svc := versioning.NewService(client, snapshot.NewService(), domainID, logger)
	summary, err := svc.ProcessSnapshots(ctx, snaps)
	if err != nil {
		return summary, err
	}
	if err := client.UpdateDomainLastProcessedUSN(ctx, domainID, highest); err != nil {
		return summary, err
	}
	return summary, nil
}

func highestUSN(snaps []*snapshot.Snapshot) int64 {
	var highest int64
	for _, s := range snaps {
		if s.USNChanged > highest {
			highest = s.USNChanged
		}
	}
	return highest
}
