package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

func NewETLSetupCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Create the postgres tables and influx bucket used by etl",
		Args:  cobra.NoArgs,
		RunE:  etlSetup,
	}

	addStorageFlags(cmd)

	return cmd
}

func etlSetup(cmd *cobra.Command, args []string) error {
	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	store := storageFromFlags(cmd)

	db, err := store.openPostgres()
	if err != nil {
		return err
	}
	defer db.Close()

	client := store.influxClient()
	defer client.Close()

	// the tables are only committed once the bucket exists
	err = inTx(ctx, db, logger, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, buildSetupQuery(store.DatasetTable, store.StatisticTable)); err != nil {
			return fmt.Errorf("setup query: %w", err)
		}
		_, err := store.ensureBucket(ctx, client)
		return err
	})
	if err != nil {
		return err
	}

	logger.Info("storage ready",
		slog.String("dataset_table", store.DatasetTable),
		slog.String("statistic_table", store.StatisticTable),
		slog.String("bucket", store.InfluxBucket),
	)

	return nil
}
