// Package gc runs the background sweep that turns a table's GetDataToGc
// plan into actual partition and row removals, on a fixed interval.
package gc

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gopkg.in/spacemonkeygo/monkit.v2"

	"github.com/MyJetTools/my-no-sql-core/dbtable"
	"github.com/MyJetTools/my-no-sql-core/instant"
	"github.com/MyJetTools/my-no-sql-core/internal/sync2"
)

var mon = monkit.Package()

// Config controls how often the sweep runs.
type Config struct {
	Interval time.Duration
}

// Tables is the subset of a table registry the sweep needs: every table it
// should plan and sweep against.
type Tables interface {
	EachTable(func(table *dbtable.DbTable))
}

// Service periodically plans and applies garbage collection across every
// table a Tables implementation exposes.
type Service struct {
	log    *zap.Logger
	config Config
	tables Tables

	Loop *sync2.Cycle
}

// NewService builds a Service with its Cycle ready to Run or Start.
func NewService(log *zap.Logger, config Config, tables Tables) *Service {
	return &Service{
		log:    log,
		config: config,
		tables: tables,
		Loop:   sync2.NewCycle(config.Interval),
	}
}

// Run blocks, sweeping every table once per interval until ctx is done.
func (s *Service) Run(ctx context.Context) error {
	return s.Loop.Run(ctx, s.sweep)
}

// Start launches Run in group, returning immediately.
func (s *Service) Start(ctx context.Context, group *errgroup.Group) {
	s.Loop.Start(ctx, group, s.sweep)
}

func (s *Service) sweep(ctx context.Context) (err error) {
	defer mon.Task()(&ctx)(&err)

	now := instant.Now()
	s.tables.EachTable(func(table *dbtable.DbTable) {
		select {
		case <-ctx.Done():
			return
		default:
		}
		s.sweepTable(ctx, table, now)
	})
	return nil
}

func (s *Service) sweepTable(ctx context.Context, table *dbtable.DbTable, now instant.Instant) (err error) {
	defer mon.Task()(&ctx)(&err)

	plan := table.GetDataToGc(now)
	if plan.IsEmpty() {
		return nil
	}

	log := s.log.With(zap.String("table", table.Name))

	for _, partitionKey := range plan.PartitionsToExpire() {
		if _, ok := table.RemovePartition(partitionKey, now); ok {
			log.Debug("gc removed expired partition", zap.String("partitionKey", partitionKey))
		}
	}

	for partitionKey, rowKeys := range plan.RowsToExpire() {
		removed := table.BulkRemoveRows(partitionKey, rowKeys, true, now)
		if len(removed) > 0 {
			log.Debug("gc removed expired rows",
				zap.String("partitionKey", partitionKey),
				zap.Int("count", len(removed)))
		}
	}
	return nil
}
