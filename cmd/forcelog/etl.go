package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/influxdata/influxdb-client-go/v2"
	"github.com/spf13/cobra"

	"github.com/subtlepseudonym/forcelog"
)

func NewETLCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "etl FILE...",
		Short: "Load rig log statistics into postgres and raw results into influx",
		Args:  cobra.MinimumNArgs(1),
		RunE:  etl,
	}

	flags := cmd.Flags()
	flags.String("device", DefaultDevice, "Load cell device name")
	flags.String("rig", DefaultRig, "Test rig name")
	addStorageFlags(cmd)

	return cmd
}

func etl(cmd *cobra.Command, args []string) error {
	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}
	p, err := newPipeline(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	store := storageFromFlags(cmd)
	tags := lineTags(cmd)

	db, err := store.openPostgres()
	if err != nil {
		return err
	}
	defer db.Close()

	client := store.influxClient()
	defer client.Close()

	for _, arg := range args {
		ds, err := load(p, arg)
		if err != nil {
			return err
		}

		err = etlDataset(ctx, store, db, client, ds, tags, logger)
		if err != nil {
			return fmt.Errorf("etl %s: %w", arg, err)
		}
	}

	return nil
}

// etlDataset writes the statistics of ds to postgres and its rows to influx.
// The postgres transaction only commits once influx accepted the rows.
func etlDataset(ctx context.Context, store storage, db *sql.DB, client influxdb2.Client, ds *forcelog.Dataset, tags map[string]string, logger *slog.Logger) error {
	summary := newSummary(ds, tags)
	datasetQuery, err := buildDatasetQuery(store.DatasetTable, ds, summary)
	if err != nil {
		return fmt.Errorf("build dataset query: %w", err)
	}

	buf := new(bytes.Buffer)
	if err := forcelog.WriteLineProtocol(buf, ds, tags); err != nil {
		return fmt.Errorf("write line protocol: %w", err)
	}

	var datasetID string
	var statistics int
	err = inTx(ctx, db, logger, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, datasetQuery.SQL, datasetQuery.Args...).Scan(&datasetID)
		if err != nil {
			return fmt.Errorf("sql insert dataset: %w", err)
		}

		queries, err := buildStatisticQueries(store.StatisticTable, datasetID, summary.Statistics)
		if err != nil {
			return fmt.Errorf("build statistic queries: %w", err)
		}
		for _, query := range queries {
			if _, err := tx.ExecContext(ctx, query.SQL, query.Args...); err != nil {
				return fmt.Errorf("sql insert statistic: %w", err)
			}
		}
		statistics = len(queries)

		influxAPI := client.WriteAPIBlocking(store.InfluxOrg, store.InfluxBucket)
		if err := influxAPI.WriteRecord(ctx, buf.String()); err != nil {
			return fmt.Errorf("write influx records: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info("dataset loaded",
		slog.String("dataset_id", datasetID),
		slog.String("name", ds.Name),
		slog.Int("rows", len(ds.Rows)),
		slog.Int("statistics", statistics),
	)

	return nil
}
