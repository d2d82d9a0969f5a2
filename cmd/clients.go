package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/gc-feedback/feedback-sync/internal/fetcher"
	"github.com/gc-feedback/feedback-sync/internal/pipeline"
	"github.com/gc-feedback/feedback-sync/internal/registry"
	"github.com/gc-feedback/feedback-sync/internal/scrub"
	"github.com/gc-feedback/feedback-sync/internal/store"
	"github.com/gc-feedback/feedback-sync/pkg/airtable"
	"github.com/gc-feedback/feedback-sync/pkg/sheets"
)

func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.NewSQLite(cfg.Store.Path)
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

func newSheetsAppender() *sheets.Appender {
	return sheets.NewAppender(sheets.AppenderConfig{
		InventorySpreadsheetID: cfg.Sheets.InventorySpreadsheetID,
		InventoryRange:         cfg.Sheets.InventoryRange,
		DuplicateSpreadsheetID: cfg.Sheets.DuplicateSpreadsheetID,
		DuplicateRange:         cfg.Sheets.DuplicateRange,
	}, func() (sheets.Client, error) {
		return sheets.NewClient(cfg.Sheets.Token), nil
	})
}

func newPipeline(st store.Store) *pipeline.Pipeline {
	return pipeline.New(
		cfg,
		st,
		scrub.NewRedactor(),
		fetcher.NewHTTPFetcher(fetcher.HTTPOptions{}),
		newSheetsAppender(),
		airtable.NewClient(cfg.Airtable.Key),
	)
}

func loadTiers(ctx context.Context) (*registry.Tiers, error) {
	return registry.Load(ctx, fetcher.NewHTTPFetcher(fetcher.HTTPOptions{}), registry.Config{
		Tier1FeedURL: cfg.Feeds.Tier1URL,
		Tier2FeedURL: cfg.Feeds.Tier2URL,
	}, newSheetsAppender())
}
