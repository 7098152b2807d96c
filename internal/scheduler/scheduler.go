package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"MacroPull/internal/domain/models"
	drepo "MacroPull/internal/domain/repository"
	"MacroPull/internal/usecase"
	xlogger "MacroPull/pkg/logger"
)

// Acquirer produces unified tables.
type Acquirer interface {
	Acquire(ctx context.Context, p usecase.AcquireParams) (*models.Table, error)
}

// Config lists what the jobs work on.
type Config struct {
	MacroCron   string
	PublishCron string
	// Series are warmed by the macro job, sentinel ids included.
	Series  []string
	Watches []usecase.AcquireParams
	// JobTimeout bounds one run of either job.
	JobTimeout time.Duration
}

// Scheduler runs the cache-warming and publishing jobs on cron schedules.
type Scheduler struct {
	cron      *cron.Cron
	cfg       Config
	macro     drepo.MacroProvider
	acquirer  Acquirer
	publisher drepo.TablePublisher
	archive   drepo.SeriesArchive
	logger    *xlogger.Logger

	mu  sync.Mutex
	ctx context.Context
}

func New(cfg Config, macro drepo.MacroProvider, acquirer Acquirer, publisher drepo.TablePublisher, archive drepo.SeriesArchive, logger *xlogger.Logger) *Scheduler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 10 * time.Minute
	}
	cl := cronLogger{l: logger}
	return &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		cfg:       cfg,
		macro:     macro,
		acquirer:  acquirer,
		publisher: publisher,
		archive:   archive,
		logger:    logger,
		ctx:       context.Background(),
	}
}

// Register adds both jobs. An empty spec leaves that job unscheduled.
func (s *Scheduler) Register() error {
	if s.cfg.MacroCron != "" {
		if _, err := s.cron.AddFunc(s.cfg.MacroCron, func() { s.WarmMacro(s.baseContext()) }); err != nil {
			return fmt.Errorf("register macro job: %w", err)
		}
	}
	if s.cfg.PublishCron != "" {
		if _, err := s.cron.AddFunc(s.cfg.PublishCron, func() { s.PublishWatches(s.baseContext()) }); err != nil {
			return fmt.Errorf("register publish job: %w", err)
		}
	}
	return nil
}

// Start runs the cron loop. Jobs inherit ctx.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()
	s.cron.Start()
	s.logger.Info("scheduler started",
		xlogger.String("macro_cron", s.cfg.MacroCron),
		xlogger.String("publish_cron", s.cfg.PublishCron),
		xlogger.Int("watches", len(s.cfg.Watches)),
	)
}

// Stop stops scheduling and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler stop: %w", ctx.Err())
	}
}

// RunNow runs both jobs once, macro first so the publish job finds a warm
// cache.
func (s *Scheduler) RunNow(ctx context.Context) {
	s.WarmMacro(ctx)
	s.PublishWatches(ctx)
}

func (s *Scheduler) baseContext() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx
}

// WarmMacro refreshes every configured series and archives the result.
func (s *Scheduler) WarmMacro(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.JobTimeout)
	defer cancel()

	start := time.Now()
	warmed := 0
	for _, id := range s.cfg.Series {
		if ctx.Err() != nil {
			s.logger.Warn("macro job interrupted", xlogger.Error(ctx.Err()))
			return
		}
		series := s.macro.FetchMacro(ctx, id)
		if series.Empty() {
			s.logger.Warn("macro series not warmed", xlogger.String("series", id))
			continue
		}
		warmed++
		if err := s.archive.StoreSeries(ctx, series); err != nil {
			s.logger.Error("archive series failed", xlogger.String("series", id), xlogger.Error(err))
		}
	}
	s.logger.Info("macro job finished",
		xlogger.Int("warmed", warmed),
		xlogger.Int("configured", len(s.cfg.Series)),
		xlogger.Duration("took_ms", time.Since(start)),
	)
}

// PublishWatches acquires every watch and hands the tables downstream.
func (s *Scheduler) PublishWatches(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.JobTimeout)
	defer cancel()

	start := time.Now()
	published := 0
	for _, w := range s.cfg.Watches {
		if ctx.Err() != nil {
			s.logger.Warn("publish job interrupted", xlogger.Error(ctx.Err()))
			return
		}
		log := s.logger.With(xlogger.String("instrument", w.Instrument), xlogger.String("timeframe", w.Timeframe))

		table, err := s.acquirer.Acquire(ctx, w)
		if err != nil {
			log.Error("watch rejected", xlogger.Error(err))
			continue
		}
		if table.Len() == 0 {
			log.Warn("no data for watch")
			continue
		}
		if err := s.publisher.PublishTable(ctx, table); err != nil {
			log.Error("publish table failed", xlogger.Error(err))
		} else {
			published++
		}
		if err := s.archive.StoreTable(ctx, table); err != nil {
			log.Error("archive table failed", xlogger.Error(err))
		}
	}
	s.logger.Info("publish job finished",
		xlogger.Int("published", published),
		xlogger.Int("watches", len(s.cfg.Watches)),
		xlogger.Duration("took_ms", time.Since(start)),
	)
}

// cronLogger adapts the structured logger to cron.Logger.
type cronLogger struct {
	l *xlogger.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug("cron: "+msg, kvFields(keysAndValues)...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error("cron: "+msg, append(kvFields(keysAndValues), xlogger.Error(err))...)
}

func kvFields(kv []interface{}) []xlogger.Field {
	fields := make([]xlogger.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		fields = append(fields, xlogger.Any(key, kv[i+1]))
	}
	return fields
}
