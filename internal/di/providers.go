package di

import (
	"context"
	"fmt"
	"time"

	domrepo "MacroPull/internal/domain/repository"
	"MacroPull/internal/handler/api"
	internalrepo "MacroPull/internal/repository"
	"MacroPull/internal/scheduler"
	"MacroPull/internal/service/aggregate"
	"MacroPull/internal/service/macro"
	"MacroPull/internal/service/ratelimit"
	"MacroPull/internal/service/sources"
	"MacroPull/internal/usecase"
	"MacroPull/pkg/cache"
	pkgch "MacroPull/pkg/clickhouse"
	"MacroPull/pkg/config"
	xhttp "MacroPull/pkg/http"
	pkgkafka "MacroPull/pkg/kafka"
	xlogger "MacroPull/pkg/logger"
	"MacroPull/pkg/metrics"
	"MacroPull/pkg/server"
)

// SeriesCaches separates the per-series macro cache from the composite cache
// so each keeps its own freshness window.
type SeriesCaches struct {
	Macro     *internalrepo.SeriesCache
	Composite *internalrepo.SeriesCache
}

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*xlogger.Logger, error) {
	l, err := xlogger.New(&xlogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(xlogger.String("env", cfg.Environment)), nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() domrepo.Metrics {
	return metrics.New()
}

// ProvideHTTPClient creates the REST client shared by every HTTP adapter.
func ProvideHTTPClient(cfg *config.Config) *xhttp.Client {
	return xhttp.NewClient(
		xhttp.WithTimeout(cfg.HTTP.Timeout),
		xhttp.WithRetry(cfg.HTTP.Attempts, cfg.HTTP.Backoff),
		xhttp.WithUserAgent(cfg.HTTP.UserAgent),
	)
}

// ProvideCacheStore creates the cache backend, optionally fronted by memory.
func ProvideCacheStore(cfg *config.Config) (cache.Store, error) {
	var store cache.Store
	switch cfg.Cache.Backend {
	case "redis":
		rs, err := cache.NewRedisStore(
			cache.WithRedisHost(cfg.Cache.Redis.Host),
			cache.WithRedisPort(cfg.Cache.Redis.Port),
			cache.WithRedisPassword(cfg.Cache.Redis.Password),
			cache.WithRedisDB(cfg.Cache.Redis.DB),
			cache.WithRedisPrefix(cfg.Cache.Redis.Prefix),
			cache.WithRedisPool(cfg.Cache.Redis.PoolSize, cfg.Cache.Redis.MinIdle, cfg.Cache.Redis.Timeout),
		)
		if err != nil {
			return nil, fmt.Errorf("redis cache: %w", err)
		}
		store = rs
	case "memory":
		return cache.NewMemoryStore(), nil
	default:
		codec, err := cache.NewCodec(cfg.Cache.Format)
		if err != nil {
			return nil, err
		}
		fs, err := cache.NewFileStore(
			cache.WithDir(cfg.Cache.Dir),
			cache.WithExtension(codec.Extension()),
		)
		if err != nil {
			return nil, fmt.Errorf("file cache: %w", err)
		}
		store = fs
	}
	if cfg.Cache.MemoryFront {
		return cache.NewLayeredStore(store), nil
	}
	return store, nil
}

// ProvideCodec returns the table codec for cache payloads.
func ProvideCodec(cfg *config.Config) (cache.Codec, error) {
	return cache.NewCodec(cfg.Cache.Format)
}

// ProvideSeriesCaches builds the macro and composite caches over one store.
func ProvideSeriesCaches(cfg *config.Config, store cache.Store, codec cache.Codec, m domrepo.Metrics, logger *xlogger.Logger) *SeriesCaches {
	return &SeriesCaches{
		Macro:     internalrepo.NewSeriesCache(store, codec, cfg.Cache.MacroWindow, m, logger),
		Composite: internalrepo.NewSeriesCache(store, codec, cfg.Cache.AggWindow, m, logger),
	}
}

// ProvidePacer spaces upstream calls made while building the composite.
func ProvidePacer(cfg *config.Config) *ratelimit.Pacer {
	return ratelimit.NewPacer(cfg.Aggregate.Delay)
}

// ProvideYahoo creates the generic adapter; it also serves FX quotes.
func ProvideYahoo(cfg *config.Config, client *xhttp.Client, pacer *ratelimit.Pacer) *sources.Yahoo {
	return sources.NewYahoo(cfg.Sources.Yahoo.BaseURL, client, sources.WithYahooPacer(pacer))
}

// ProvideTradingView creates the feed adapter shared by the bar chain and
// the TradingView composite.
func ProvideTradingView(cfg *config.Config, logger *xlogger.Logger) *sources.TradingView {
	tv := cfg.Sources.TradingView
	return sources.NewTradingView(
		tv.URL,
		tv.DefaultExchange,
		sources.WithTVOrigin(tv.Origin),
		sources.WithTVTimeout(tv.Timeout),
		sources.WithTVMaxBars(tv.MaxBars),
		sources.WithTVLogger(logger),
	)
}

// ProvideBarChain assembles the enabled adapters in the configured order.
func ProvideBarChain(cfg *config.Config, client *xhttp.Client, tv *sources.TradingView, yahoo *sources.Yahoo, m domrepo.Metrics, logger *xlogger.Logger) *sources.Chain {
	sc := cfg.Sources
	entries := make([]sources.Entry, 0, len(sc.Order))
	for _, key := range sc.Order {
		switch key {
		case sources.SourceTV:
			if !sc.TradingView.Enabled {
				continue
			}
			entries = append(entries, sources.Entry{Key: key, Source: tv})
		case sources.SourceExchange:
			if !sc.Binance.Enabled {
				continue
			}
			entries = append(entries, sources.Entry{Key: key, Source: sources.NewBinance(
				sc.Binance.BaseURL, client, sc.Binance.PageSize, sc.Binance.MaxBars, logger,
			)})
		case sources.SourceGeneric:
			if !sc.Yahoo.Enabled {
				continue
			}
			entries = append(entries, sources.Entry{Key: key, Source: yahoo})
		}
	}
	return sources.NewChain(entries,
		sources.WithBreaker(sc.Breaker.MaxFailures, sc.Breaker.ResetTimeout),
		sources.WithMetrics(m),
		sources.WithLogger(logger),
	)
}

// ProvideMacroFetcher creates the cached FRED fetcher (API first, CSV second).
func ProvideMacroFetcher(cfg *config.Config, caches *SeriesCaches, client *xhttp.Client, pacer *ratelimit.Pacer, m domrepo.Metrics, logger *xlogger.Logger) *macro.Fetcher {
	return macro.NewFetcher(caches.Macro, []domrepo.MacroSource{
		macro.NewFredAPI(cfg.Macro.FredBaseURL, cfg.Macro.FredAPIKey, client),
		macro.NewFredCSV(cfg.Macro.FredCSVURL, client),
	}, m, logger, macro.WithPacer(pacer))
}

// ProvideAggregator creates the composite aggregator over the configured
// sources and routes the sentinel id through it.
func ProvideAggregator(
	cfg *config.Config,
	fetcher *macro.Fetcher,
	yahoo *sources.Yahoo,
	tv *sources.TradingView,
	pacer *ratelimit.Pacer,
	caches *SeriesCaches,
	m domrepo.Metrics,
	logger *xlogger.Logger,
) (*aggregate.Aggregator, error) {
	ac := cfg.Aggregate
	var srcs []aggregate.Source
	for _, name := range ac.Sources {
		switch name {
		case "tradingview":
			if !cfg.Sources.TradingView.Enabled {
				continue
			}
			components, err := aggregate.ParseComponents(ac.TV.Components, aggregate.DefaultTVComponents())
			if err != nil {
				return nil, fmt.Errorf("tradingview aggregate components: %w", err)
			}
			econ := sources.NewTVEconomics(tv, pacer, ac.TV.MacroBars, ac.TV.FXBars, logger)
			srcs = append(srcs, aggregate.Source{Name: name, Macro: econ, FX: econ, Components: components})
		case "fred":
			components, err := aggregate.ParseComponents(ac.Components, aggregate.DefaultComponents())
			if err != nil {
				return nil, fmt.Errorf("fred aggregate components: %w", err)
			}
			srcs = append(srcs, aggregate.Source{Name: name, Macro: fetcher, FX: yahoo, Components: components})
		}
	}

	agg := aggregate.New(srcs, caches.Composite,
		aggregate.WithCacheKey(ac.CacheKey),
		aggregate.WithTolerance(ac.FXTolerance),
		aggregate.WithMetrics(m),
		aggregate.WithLogger(logger),
	)
	fetcher.Route(ac.Sentinel, agg)

	names := make([]string, len(srcs))
	for i, s := range srcs {
		names[i] = s.Name
	}
	logger.Info("composite routed",
		xlogger.String("sentinel", ac.Sentinel),
		xlogger.Strings("sources", names),
	)
	return agg, nil
}

// ProvideMacroProvider exposes the routed fetcher. Taking the aggregator
// guarantees the sentinel route exists before anyone resolves series.
func ProvideMacroProvider(fetcher *macro.Fetcher, _ *aggregate.Aggregator) domrepo.MacroProvider {
	return fetcher
}

// ProvideAcquisition creates the acquisition use case.
func ProvideAcquisition(chain *sources.Chain, mp domrepo.MacroProvider, m domrepo.Metrics, logger *xlogger.Logger) *usecase.AcquisitionUseCase {
	return usecase.NewAcquisitionUseCase(chain, mp, m, logger)
}

// ProvideKafkaProducer creates a Kafka producer.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.BatchBytes, cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithHashByKey(true),
		pkgkafka.WithAutoCreateTopic(cfg.Kafka.AutoCreate),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvidePublisher selects the table publisher.
func ProvidePublisher(cfg *config.Config, m domrepo.Metrics, logger *xlogger.Logger) (domrepo.TablePublisher, error) {
	if cfg.Publisher.Type != "kafka" {
		return internalrepo.NopPublisher{}, nil
	}
	producer, err := ProvideKafkaProducer(cfg)
	if err != nil {
		return nil, err
	}
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.Topic, m, logger), nil
}

// ProvideClickHouseClient creates a ClickHouse client.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	ch := cfg.ClickHouse
	client, err := pkgch.NewClient(
		pkgch.WithEndpoint(ch.Host, ch.Port, ch.Database),
		pkgch.WithCredentials(ch.User, ch.Password),
		pkgch.WithPool(ch.MaxOpenConns, ch.MaxIdleConns, 0),
		pkgch.WithHTTP(ch.UseHTTP),
		pkgch.WithAsyncInsert(ch.AsyncInsert, ch.WaitForAsync),
		pkgch.WithTimeouts(ch.DialTimeout, ch.ReadTimeout, ch.WriteTimeout, ch.MaxExecutionTime),
		pkgch.WithTables(ch.RowsTable, ch.SeriesTable),
		pkgch.WithBatchSize(ch.BatchSize),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideArchive selects the archive backend and prepares its schema.
func ProvideArchive(cfg *config.Config, logger *xlogger.Logger) (domrepo.SeriesArchive, error) {
	switch cfg.Archive.Type {
	case "clickhouse":
		client, err := ProvideClickHouseClient(cfg)
		if err != nil {
			return nil, err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		archive, err := internalrepo.NewClickHouseArchive(ctx, client, logger)
		if err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("clickhouse archive: %w", err)
		}
		return archive, nil
	case "sqlite":
		archive, err := internalrepo.NewSQLiteArchive(cfg.Archive.SQLitePath, logger)
		if err != nil {
			return nil, fmt.Errorf("sqlite archive: %w", err)
		}
		return archive, nil
	default:
		return internalrepo.NopArchive{}, nil
	}
}

// ProvideScheduler creates the refresh scheduler from the configured watches.
func ProvideScheduler(
	cfg *config.Config,
	mp domrepo.MacroProvider,
	acq *usecase.AcquisitionUseCase,
	pub domrepo.TablePublisher,
	archive domrepo.SeriesArchive,
	logger *xlogger.Logger,
) *scheduler.Scheduler {
	watches := make([]usecase.AcquireParams, 0, len(cfg.Scheduler.Watches))
	for _, w := range cfg.Scheduler.Watches {
		watches = append(watches, usecase.AcquireParams{
			Instrument: w.Instrument,
			Timeframe:  w.Timeframe,
			Limit:      w.Limit,
			Source:     w.Source,
			Overlay:    w.Overlay,
		})
	}
	series := make([]string, 0, len(cfg.Macro.Series)+1)
	series = append(series, cfg.Macro.Series...)
	series = append(series, cfg.Aggregate.Sentinel)
	return scheduler.New(scheduler.Config{
		MacroCron:   cfg.Scheduler.MacroCron,
		PublishCron: cfg.Scheduler.PublishCron,
		Series:      series,
		Watches:     watches,
	}, mp, acq, pub, archive, logger)
}

// ProvideHealthHandler creates the /healthz handler.
func ProvideHealthHandler(logger *xlogger.Logger, archive domrepo.SeriesArchive, chain *sources.Chain) *api.HealthHandler {
	return api.NewHealthHandler(logger, archive, chain.Names())
}

// ProvideHTTPServer creates the ops server exposing /healthz and /metrics.
func ProvideHTTPServer(cfg *config.Config, h *api.HealthHandler, logger *xlogger.Logger) *xhttp.Server {
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	return xhttp.NewServer(h,
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithMetricsPath(metricsPath),
		xhttp.WithLogger(logger),
	)
}

// ProvideApp creates the application.
func ProvideApp(
	cfg *config.Config,
	srv *xhttp.Server,
	sched *scheduler.Scheduler,
	pub domrepo.TablePublisher,
	archive domrepo.SeriesArchive,
	store cache.Store,
	logger *xlogger.Logger,
) *server.App {
	return server.New(cfg, srv, sched, pub, archive, store, logger)
}
