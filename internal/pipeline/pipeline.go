// Package pipeline runs the annual-report analysis from the cached PDF to
// the synthesized insight, and the company background overview.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/coinsight/internal/history"
	"github.com/ppiankov/coinsight/internal/insight"
	"github.com/ppiankov/coinsight/internal/layout"
	"github.com/ppiankov/coinsight/internal/llm"
	"github.com/ppiankov/coinsight/internal/model"
	"github.com/ppiankov/coinsight/internal/statement"
	"github.com/ppiankov/coinsight/internal/store"
	"github.com/ppiankov/coinsight/internal/tables"
)

// Stage names the step an analysis failed in
type Stage string

const (
	StageParse      Stage = "parse"
	StageLocate     Stage = "locate"
	StageResolve    Stage = "resolve"
	StageClassify   Stage = "classify"
	StageSynthesize Stage = "synthesize"
)

// StageError aborts an analysis. Artifacts written by earlier stages
// are left in place.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func stageErr(stage Stage, err error) error {
	return &StageError{Stage: stage, Err: err}
}

// Option configures an Analyzer
type Option func(*Analyzer)

// WithLogger sets the logger; the default discards
func WithLogger(l *zap.Logger) Option {
	return func(a *Analyzer) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithHistory records every run in repo
func WithHistory(repo history.Repository) Option {
	return func(a *Analyzer) {
		if repo != nil {
			a.history = repo
		}
	}
}

// WithExtractor sets the layout extractor used when the report has not
// been parsed yet
func WithExtractor(e layout.Extractor) Option {
	return func(a *Analyzer) { a.extractor = e }
}

// Analyzer walks one report through
// Unparsed → Parsed → Located → Resolved → Classified → Synthesized
type Analyzer struct {
	store     *store.Store
	provider  llm.Provider
	extractor layout.Extractor
	history   history.Repository
	cfg       model.AnalysisConfig
	logger    *zap.Logger
	now       func() time.Time
}

// NewAnalyzer returns an analyzer over the artifacts in st
func NewAnalyzer(st *store.Store, provider llm.Provider, cfg model.AnalysisConfig, opts ...Option) *Analyzer {
	a := &Analyzer{
		store:    st,
		provider: provider,
		history:  history.Discard{},
		cfg:      cfg,
		logger:   zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Parse runs layout extraction on the downloaded report and caches the
// result next to it
func (a *Analyzer) Parse(ctx context.Context) (*model.ParsedDocument, error) {
	if a.extractor == nil {
		return nil, stageErr(StageParse, errors.New("no layout extractor configured"))
	}
	path, err := a.store.ReportPath()
	if err != nil {
		return nil, stageErr(StageParse, err)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, stageErr(StageParse, fmt.Errorf("open report: %w", err))
	}
	defer func() { _ = f.Close() }()

	started := a.now()
	res, err := a.extractor.Analyze(ctx, f)
	if err != nil {
		return nil, stageErr(StageParse, err)
	}
	saved, err := a.store.SaveParsed(a.extractor.Name(), res.Document, res.Raw)
	if err != nil {
		return nil, stageErr(StageParse, err)
	}

	a.logger.Info("report parsed",
		zap.String("provider", a.extractor.Name()),
		zap.Int("pages", len(res.Document.Pages)),
		zap.Int("tables", len(res.Document.Tables)),
		zap.String("cache", saved),
		zap.Duration("took", a.now().Sub(started)))
	return res.Document, nil
}

// Analyze runs every stage after Parsed and stores the report. The
// cached layout is used when present; otherwise the report is parsed
// first. progress may be nil.
func (a *Analyzer) Analyze(ctx context.Context, progress func(model.ProgressEvent)) (*model.AnalysisReport, error) {
	report := &model.AnalysisReport{
		RunID:      history.NewRunID(),
		StartedAt:  a.now().UTC(),
		Classified: map[string]string{},
	}
	if a.provider != nil {
		report.LLM.Provider = a.provider.Name()
	}

	r := &run{Analyzer: a, report: report, progress: progress}
	err := r.execute(ctx)
	report.FinishedAt = a.now().UTC()

	record := &model.RunRecord{
		ID:         report.RunID,
		Kind:       history.KindAnnualReport,
		StartedAt:  report.StartedAt,
		FinishedAt: report.FinishedAt,
		Status:     history.StatusSucceeded,
		Provider:   report.LLM.Provider,
		Model:      report.LLM.Model,
		Output:     report.Insight,
	}
	if err != nil {
		report.ErrorDetail = err.Error()
		record.Status = history.StatusFailed
		record.Error = err.Error()
		var se *StageError
		if errors.As(err, &se) {
			record.Stage = string(se.Stage)
		}
	}
	a.record(ctx, record)

	if err != nil {
		a.logger.Warn("analysis failed", zap.String("run", report.RunID), zap.Error(err))
		return report, err
	}
	if err := a.store.SaveAnalysis(report); err != nil {
		a.logger.Warn("could not save analysis", zap.Error(err))
	}
	a.logger.Info("analysis finished",
		zap.String("run", report.RunID),
		zap.Int("statements", len(report.Entries)),
		zap.Int("tokens", report.TokensUsed),
		zap.Duration("took", report.FinishedAt.Sub(report.StartedAt)))
	return report, nil
}

// Overview generates the company background from the homepage and news
// snapshots and stores it
func (a *Analyzer) Overview(ctx context.Context) (*model.BackgroundReport, error) {
	report := &model.BackgroundReport{
		RunID:     history.NewRunID(),
		CreatedAt: a.now().UTC(),
	}
	if a.provider != nil {
		report.LLM.Provider = a.provider.Name()
	}

	ov, err := insight.NewBackground(a.provider, a.store, insight.WithLogger(a.logger)).Overview(ctx)
	record := &model.RunRecord{
		ID:         report.RunID,
		Kind:       history.KindBackground,
		StartedAt:  report.CreatedAt,
		FinishedAt: a.now().UTC(),
		Status:     history.StatusSucceeded,
		Provider:   report.LLM.Provider,
	}
	if err != nil {
		record.Status = history.StatusFailed
		record.Error = err.Error()
		a.record(ctx, record)
		return nil, err
	}

	report.Overview = ov.Text
	report.NewsDate = ov.NewsDate
	report.HomeDate = ov.HomepageDate
	report.LLM.Model = ov.Model
	report.TokensUsed = ov.TokensUsed
	record.Model = ov.Model
	record.Output = ov.Text
	a.record(ctx, record)

	if err := a.store.SaveOverview(report); err != nil {
		a.logger.Warn("could not save overview", zap.Error(err))
	}
	return report, nil
}

func (a *Analyzer) record(ctx context.Context, rec *model.RunRecord) {
	// history failures are logged, never returned
	if err := a.history.Record(context.WithoutCancel(ctx), rec); err != nil {
		a.logger.Warn("could not record run", zap.String("run", rec.ID), zap.Error(err))
	}
}

// run carries one analysis through its stages
type run struct {
	*Analyzer
	report   *model.AnalysisReport
	progress func(model.ProgressEvent)
	messages []string
}

const stageCount = 5

func (r *run) step(done int, msg string) {
	r.messages = append(r.messages, msg)
	if r.progress == nil {
		return
	}
	r.progress(model.ProgressEvent{
		Messages: append([]string(nil), r.messages...),
		Fraction: float64(done) / stageCount,
	})
}

func (r *run) execute(ctx context.Context) error {
	doc, err := r.parsed(ctx)
	if err != nil {
		return err
	}
	r.report.PageCount = len(doc.Pages)
	r.report.TableCount = len(doc.Tables)
	if path, err := r.store.ReportPath(); err == nil {
		r.report.ReportPath = path
	}
	r.step(1, fmt.Sprintf("Parsed: %d pages, %d tables", len(doc.Pages), len(doc.Tables)))

	ix := tables.BuildPageIndex(doc)
	entries, err := r.locate(ctx, doc, ix)
	if err != nil {
		return stageErr(StageLocate, err)
	}
	r.report.Entries = entries
	r.step(2, fmt.Sprintf("Located %d statements", len(entries)))

	items := make([]statement.Classified, len(entries))
	for i, e := range entries {
		found, err := ix.ResolveEntry(e)
		if err != nil {
			return stageErr(StageResolve, err)
		}
		items[i] = statement.Classified{Entry: e, Tables: found}
	}
	r.step(3, "Resolved statement tables")

	classifier := statement.NewClassifier(r.provider, statement.WithLogger(r.logger))
	for i := range items {
		if err := ctx.Err(); err != nil {
			return stageErr(StageClassify, err)
		}
		category, tokens, err := classifier.Classify(ctx, items[i].Entry.Name)
		if err != nil {
			return stageErr(StageClassify, err)
		}
		r.report.TokensUsed += tokens
		items[i].Category = category
		r.report.Classified[items[i].Entry.Name] = string(category)
	}
	r.report.Categories = statement.GroupByCategory(items)
	r.report.Rendered = tables.RenderCategories(doc, r.report.Categories)
	r.step(4, fmt.Sprintf("Classified into %d categories", len(r.report.Categories)))

	res, err := insight.NewSynthesizer(r.provider, insight.WithLogger(r.logger)).Synthesize(ctx, r.report.Rendered)
	if err != nil {
		return stageErr(StageSynthesize, err)
	}
	r.report.Insight = res.Text
	r.report.LLM.Model = res.Model
	r.report.TokensUsed += res.TokensUsed
	r.step(stageCount, "Insight generated")
	return nil
}

func (r *run) parsed(ctx context.Context) (*model.ParsedDocument, error) {
	doc, err := r.store.LoadParsedDocument()
	if err == nil {
		return doc, nil
	}
	if !errors.Is(err, store.ErrNotFound) || r.extractor == nil {
		return nil, stageErr(StageParse, err)
	}
	r.logger.Info("no cached layout, parsing report")
	return r.Parse(ctx)
}

func (r *run) locate(ctx context.Context, doc *model.ParsedDocument, ix *tables.PageIndex) ([]model.StatementEntry, error) {
	opts := []statement.Option{
		statement.WithLogger(r.logger),
		statement.WithTOCPages(r.cfg.TOCPages),
		statement.WithWindow(r.cfg.RefineWindow),
	}

	pairs, tokens, err := statement.NewLocator(r.provider, opts...).Pairs(ctx, doc)
	r.report.TokensUsed += tokens
	if err != nil {
		return nil, err
	}
	r.report.Pairs = pairs

	entries, err := statement.Entries(pairs, ix)
	if err != nil {
		return nil, err
	}
	if !r.cfg.RefineBoundaries || len(entries) == 0 {
		return entries, nil
	}

	refined, tokens, err := statement.NewRefiner(r.provider, opts...).Refine(ctx, doc, entries)
	r.report.TokensUsed += tokens
	if err != nil {
		return nil, err
	}
	r.report.Refined = true
	return refined, nil
}
