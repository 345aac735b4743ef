// Command nosqlcore-bench wires the core end-to-end: it builds a table and
// a GC loop, inserts a batch of rows plus one already-expired row, triggers
// a sweep, and logs how many partitions and rows remain. It exists to
// exercise the module the way
// a caller embedding it would, not as a shipped service.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/MyJetTools/my-no-sql-core/config"
	"github.com/MyJetTools/my-no-sql-core/dbrow"
	"github.com/MyJetTools/my-no-sql-core/dbtable"
	"github.com/MyJetTools/my-no-sql-core/gc"
	"github.com/MyJetTools/my-no-sql-core/instant"
	"github.com/MyJetTools/my-no-sql-core/jsonrow"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	log, err := zap.NewDevelopment()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	cfg := config.Load(viper.New())

	now := instant.Now()
	attributes := dbtable.NewAttributes(now)
	attributes.Update(cfg.DefaultPersist, false, 0, false, 0)

	table := dbtable.New("bench", attributes, now)
	seedRows(log, table)

	registry := gc.NewTableRegistry()
	registry.Register(table)

	service := gc.NewService(log.Named("gc"), gc.Config{Interval: cfg.GCInterval}, registry)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	group, ctx := errgroup.WithContext(ctx)
	service.Start(ctx, group)

	service.Loop.TriggerWait()
	cancel()
	if err := group.Wait(); err != nil {
		return err
	}

	log.Info("bench finished",
		zap.Int("partitions_remaining", table.PartitionsAmount()),
		zap.Int("rows_remaining", table.RowsAmount()))
	return nil
}

func seedRows(log *zap.Logger, table *dbtable.DbTable) {
	now := instant.Now()

	for i := 0; i < 5; i++ {
		raw := fmt.Sprintf(`{"PartitionKey":"p","RowKey":"row-%d"}`, i)
		parsed, err := jsonrow.Parse([]byte(raw))
		if err != nil {
			log.Fatal("seed row failed to parse", zap.Error(err))
		}
		table.InsertRow(dbrow.NewFromParsed(parsed, now), now, true)
	}

	expired := fmt.Sprintf(`{"PartitionKey":"p","RowKey":"expired","Expires":"%s"}`, "2019-01-01T00:00:00")
	parsed, err := jsonrow.Parse([]byte(expired))
	if err != nil {
		log.Fatal("seed expired row failed to parse", zap.Error(err))
	}
	table.InsertRow(dbrow.NewFromParsed(parsed, now), now, true)
}
