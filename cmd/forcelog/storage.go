package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/domain"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
)

// storage names the postgres tables and influx bucket shared by etl and setup
type storage struct {
	PostgresDSN    string
	DatasetTable   string
	StatisticTable string
	InfluxHost     string
	InfluxToken    string
	InfluxOrg      string
	InfluxBucket   string
}

func addStorageFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.String("postgres", "", "Postgres DSN")
	flags.String("postgres_dataset_table", "dataset", "Postgres table")
	flags.String("postgres_statistic_table", "statistic", "Postgres table")
	flags.String("influx_host", "", "InfluxDB DSN")
	flags.String("influx_token", "", "InfluxDB API token")
	flags.String("influx_org", "default", "InfluxDB organization")
	flags.String("influx_bucket", "forcelog", "InfluxDB bucket")

	cmd.MarkFlagRequired("postgres")
	cmd.MarkFlagRequired("influx_host")
	cmd.MarkFlagRequired("influx_token")
}

func storageFromFlags(cmd *cobra.Command) storage {
	flags := cmd.Flags()
	var s storage
	s.PostgresDSN, _ = flags.GetString("postgres")
	s.DatasetTable, _ = flags.GetString("postgres_dataset_table")
	s.StatisticTable, _ = flags.GetString("postgres_statistic_table")
	s.InfluxHost, _ = flags.GetString("influx_host")
	s.InfluxToken, _ = flags.GetString("influx_token")
	s.InfluxOrg, _ = flags.GetString("influx_org")
	s.InfluxBucket, _ = flags.GetString("influx_bucket")

	return s
}

func (s storage) openPostgres() (*sql.DB, error) {
	db, err := sql.Open("postgres", s.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	return db, nil
}

// influxClient writes points with nanosecond precision, matching
// forcelog.WriteLineProtocol
func (s storage) influxClient() influxdb2.Client {
	options := influxdb2.DefaultOptions()
	options.SetPrecision(time.Nanosecond)

	return influxdb2.NewClientWithOptions(s.InfluxHost, s.InfluxToken, options)
}

// ensureBucket creates the storage bucket unless it already exists
func (s storage) ensureBucket(ctx context.Context, client influxdb2.Client) (*domain.Bucket, error) {
	buckets := client.BucketsAPI()
	if bucket, err := buckets.FindBucketByName(ctx, s.InfluxBucket); err == nil {
		return bucket, nil
	}

	org, err := client.OrganizationsAPI().FindOrganizationByName(ctx, s.InfluxOrg)
	if err != nil {
		return nil, fmt.Errorf("influx find org %s: %w", s.InfluxOrg, err)
	}

	bucket, err := buckets.CreateBucketWithName(ctx, org, s.InfluxBucket)
	if err != nil {
		return nil, fmt.Errorf("influx create bucket %s: %w", s.InfluxBucket, err)
	}
	return bucket, nil
}

// inTx runs fn in a transaction which commits only when fn succeeds
func inTx(ctx context.Context, db *sql.DB, logger *slog.Logger, fn func(tx *sql.Tx) error) (ret error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin sql transaction: %w", err)
	}
	defer func() {
		if ret == nil {
			return
		}
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			logger.Error("failed to rollback transaction", slog.String("error", err.Error()))
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit sql: %w", err)
	}
	return nil
}
