// Package pipeline implements the record processing stages: survey and
// problem cleaning, tier-based sync routing, and completion. Stages run
// strictly in that order, each scanning the store for records matching its
// own precondition flags, so a crash between stages leaves work in a state
// the next run resumes from.
package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/gc-feedback/feedback-sync/internal/config"
	"github.com/gc-feedback/feedback-sync/internal/fetcher"
	"github.com/gc-feedback/feedback-sync/internal/registry"
	"github.com/gc-feedback/feedback-sync/internal/scrub"
	"github.com/gc-feedback/feedback-sync/internal/store"
	"github.com/gc-feedback/feedback-sync/pkg/airtable"
)

// SheetAppender is the spreadsheet surface the pipeline writes to: the
// tier-2 inventory and the duplicate tracker.
type SheetAppender interface {
	AppendURL(ctx context.Context, url string) error
	AppendDuplicate(ctx context.Context, date, timestamp, url, comment string) error
}

// Pipeline wires the stages to their collaborators.
type Pipeline struct {
	cfg       *config.Config
	store     store.Store
	sanitizer scrub.Sanitizer
	fetch     fetcher.Fetcher
	sheets    SheetAppender
	airtable  airtable.Client

	// now allows test injection of the completion timestamp.
	now func() time.Time
}

// New creates a Pipeline with all dependencies.
func New(
	cfg *config.Config,
	st store.Store,
	sanitizer scrub.Sanitizer,
	fetch fetcher.Fetcher,
	sheets SheetAppender,
	airtableClient airtable.Client,
) *Pipeline {
	return &Pipeline{
		cfg:       cfg,
		store:     st,
		sanitizer: sanitizer,
		fetch:     fetch,
		sheets:    sheets,
		airtable:  airtableClient,
		now:       time.Now,
	}
}

// Run executes one complete pass: cleaning, tier import, sync, completion.
// Per-record failures inside a stage are logged and skipped; only a failed
// tier feed load aborts the run, since routing cannot proceed without tier
// data.
func (p *Pipeline) Run(ctx context.Context) error {
	stage := func(name string, fn func(context.Context) error) error {
		start := time.Now()
		err := fn(ctx)
		if err != nil {
			zap.L().Error("stage failed",
				zap.String("stage", name),
				zap.Duration("elapsed", time.Since(start)),
				zap.Error(err),
			)
			return err
		}
		zap.L().Info("stage complete",
			zap.String("stage", name),
			zap.Duration("elapsed", time.Since(start)),
		)
		return nil
	}

	if err := stage("clean_surveys", p.CleanSurveys); err != nil {
		return err
	}
	if err := stage("clean_problems", p.CleanProblems); err != nil {
		return err
	}

	tiers, err := registry.Load(ctx, p.fetch, registry.Config{
		Tier1FeedURL: p.cfg.Feeds.Tier1URL,
		Tier2FeedURL: p.cfg.Feeds.Tier2URL,
	}, p.sheets)
	if err != nil {
		return eris.Wrap(err, "pipeline: load tier feeds")
	}

	if err := stage("sync_problems", func(ctx context.Context) error {
		return p.SyncProblems(ctx, tiers)
	}); err != nil {
		return err
	}
	return stage("complete_processing", p.CompleteProcessing)
}
