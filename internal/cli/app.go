package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/coinsight/internal/cache"
	"github.com/ppiankov/coinsight/internal/history"
	"github.com/ppiankov/coinsight/internal/layout"
	"github.com/ppiankov/coinsight/internal/llm"
	"github.com/ppiankov/coinsight/internal/model"
	"github.com/ppiankov/coinsight/internal/pipeline"
	"github.com/ppiankov/coinsight/internal/sources"
	"github.com/ppiankov/coinsight/internal/store"
	"github.com/ppiankov/coinsight/internal/util"
	"github.com/ppiankov/coinsight/internal/worker"
)

// app holds the services every command is built from
type app struct {
	cfg      *model.Config
	logger   *zap.Logger
	store    *store.Store
	fetcher  *sources.Fetcher
	history  history.Repository
	analyzer *pipeline.Analyzer
}

// newApp loads the configuration and wires the services. Missing
// credentials are not fatal here: the operation that needs them fails
// with a stage error instead.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	resolvePaths(cfg)

	logger, err := newLogger(cfg.Output.Verbose || verbose)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	a := &app{cfg: cfg, logger: logger, store: store.New(cfg.DataDir)}

	var fetchCache cache.Cache
	if cfg.Cache.Enabled {
		fetchCache = cache.NewLayeredCache(cfg.Cache.MemoryTTL, cfg.Cache.Dir, cfg.Cache.DiskTTL)
	}

	opts := []sources.Option{
		sources.WithLimiter(worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize)),
		sources.WithLogger(logger),
	}
	if fetchCache != nil {
		opts = append(opts, sources.WithCache(fetchCache, cfg.Cache.DiskTTL))
	}
	if cfg.HTTP.RespectRobots {
		robotsClient := &http.Client{
			Timeout:   15 * time.Second,
			Transport: util.NewTransport(cfg.HTTP.HTTPProxy, cfg.HTTP.HTTPSProxy, ""),
		}
		opts = append(opts, sources.WithRobots(util.NewRobotsChecker(cfg.HTTP.UserAgent, robotsClient, time.Hour)))
	}
	a.fetcher = sources.NewFetcher(cfg.HTTP, opts...)

	if cfg.History.Enabled && cfg.History.SQLitePath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.History.SQLitePath), 0o755); err != nil {
			return nil, fmt.Errorf("create history directory: %w", err)
		}
	}
	a.history, err = history.Open(ctx, cfg.History)
	if err != nil {
		logger.Warn("history unavailable, runs will not be recorded", zap.Error(err))
		a.history = history.Discard{}
	}

	provider, err := llm.NewProvider(llm.ConfigFromModel(cfg.LLM, cfg.HTTP))
	if err != nil {
		logger.Warn("text-generation provider unavailable", zap.String("provider", cfg.LLM.Provider), zap.Error(err))
		provider = nil
	}
	if provider != nil && fetchCache != nil {
		provider = llm.NewCachedProvider(provider, fetchCache, cfg.Cache.DiskTTL)
	}

	extractor, err := layout.NewExtractor(cfg.Layout, cfg.HTTP, layout.WithLogger(logger))
	if err != nil {
		logger.Warn("layout extractor unavailable", zap.String("provider", cfg.Layout.Provider), zap.Error(err))
		extractor = nil
	}

	a.analyzer = pipeline.NewAnalyzer(a.store, provider, cfg.Analysis,
		pipeline.WithExtractor(extractor),
		pipeline.WithHistory(a.history),
		pipeline.WithLogger(logger),
	)
	return a, nil
}

// resolvePaths keeps the history database inside the data directory
// unless a custom path was configured
func resolvePaths(cfg *model.Config) {
	def := model.DefaultConfig()
	if cfg.History.SQLitePath == def.History.SQLitePath {
		cfg.History.SQLitePath = filepath.Join(cfg.DataDir, filepath.Base(def.History.SQLitePath))
	}
}

func (a *app) homepage() *sources.HomepageScraper {
	return sources.NewHomepageScraper(a.fetcher, a.cfg.Company.Name, a.logger)
}

func (a *app) news() *sources.NewsClient {
	return sources.NewNewsClient(a.cfg.News, a.fetcher.Client(), a.logger)
}

func (a *app) reports() *sources.ReportFinder {
	return sources.NewReportFinder(a.fetcher, a.store, a.cfg.Company, a.cfg.HTTP.MaxReportBytes, a.logger)
}

// Close releases the history database and flushes the logger
func (a *app) Close() {
	if err := a.history.Close(); err != nil {
		a.logger.Warn("close history", zap.Error(err))
	}
	_ = a.logger.Sync()
}

// printProgress writes the newest progress line to stderr
func printProgress(e model.ProgressEvent) {
	if len(e.Messages) == 0 {
		return
	}
	fmt.Fprintf(os.Stderr, "[%3.0f%%] %s\n", e.Fraction*100, e.Messages[len(e.Messages)-1])
}
