// Package registry loads the two tier URL feeds and answers the
// membership queries the sync stage routes with.
package registry

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/gc-feedback/feedback-sync/internal/fetcher"
)

// Appender is the external inventory the registry forwards new tier-2
// URLs to.
type Appender interface {
	AppendURL(ctx context.Context, url string) error
}

// Config names the two feed locations.
type Config struct {
	Tier1FeedURL string
	Tier2FeedURL string
}

// Tier1Entry is the destination assignment for a tier-1 URL.
type Tier1Entry struct {
	Model string
	Base  string
}

// Tiers holds one run's snapshot of both membership sets. Lookups key on
// normalized (already lowercased) URLs. Tier-2 additions made during the
// run live only in memory; the external feed is never written back.
type Tiers struct {
	tier1    map[string]Tier1Entry
	tier2    map[string]struct{}
	appender Appender
}

// Load fetches both feeds and builds the run's tier snapshot. Individual
// malformed rows are skipped with a warning; an unreachable or headerless
// feed fails the load outright.
func Load(ctx context.Context, f fetcher.Fetcher, cfg Config, appender Appender) (*Tiers, error) {
	t := &Tiers{
		tier1:    make(map[string]Tier1Entry),
		tier2:    make(map[string]struct{}),
		appender: appender,
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return t.loadTier1(gCtx, f, cfg.Tier1FeedURL)
	})
	g.Go(func() error {
		return t.loadTier2(gCtx, f, cfg.Tier2FeedURL)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	zap.L().Info("tier feeds loaded",
		zap.Int("tier1_urls", len(t.tier1)),
		zap.Int("tier2_urls", len(t.tier2)),
	)
	return t, nil
}

func (t *Tiers) loadTier1(ctx context.Context, f fetcher.Fetcher, feedURL string) error {
	body, err := f.Download(ctx, feedURL)
	if err != nil {
		return eris.Wrap(err, "registry: fetch tier 1 feed")
	}
	defer body.Close() //nolint:errcheck

	err = fetcher.EachRecord(ctx, body, func(rec fetcher.Record) error {
		u := strings.ToLower(rec["URL"])
		if u == "" {
			return eris.New("tier 1 row missing URL")
		}
		t.tier1[u] = Tier1Entry{
			Model: rec["MODEL"],
			Base:  strings.ToLower(rec["BASE"]),
		}
		return nil
	})
	return eris.Wrap(err, "registry: parse tier 1 feed")
}

func (t *Tiers) loadTier2(ctx context.Context, f fetcher.Fetcher, feedURL string) error {
	body, err := f.Download(ctx, feedURL)
	if err != nil {
		return eris.Wrap(err, "registry: fetch tier 2 feed")
	}
	defer body.Close() //nolint:errcheck

	err = fetcher.EachRecord(ctx, body, func(rec fetcher.Record) error {
		u := strings.ToLower(rec["URL"])
		if u == "" {
			return eris.New("tier 2 row missing URL")
		}
		t.tier2[u] = struct{}{}
		return nil
	})
	return eris.Wrap(err, "registry: parse tier 2 feed")
}

// Tier1 returns the destination assignment for a normalized URL.
func (t *Tiers) Tier1(url string) (Tier1Entry, bool) {
	e, ok := t.tier1[url]
	return e, ok
}

// IsTier1 reports tier-1 membership for a normalized URL.
func (t *Tiers) IsTier1(url string) bool {
	_, ok := t.tier1[url]
	return ok
}

// IsTier2 reports tier-2 membership for a normalized URL.
func (t *Tiers) IsTier2(url string) bool {
	_, ok := t.tier2[url]
	return ok
}

// RegisterTier2 adds a URL to the in-memory tier-2 set and forwards it to
// the external inventory. The in-memory add always happens, so the same
// URL is never registered twice within a run even when the forward fails;
// the append's own retries are the appender's concern.
func (t *Tiers) RegisterTier2(ctx context.Context, url string) error {
	t.tier2[url] = struct{}{}
	if err := t.appender.AppendURL(ctx, url); err != nil {
		return eris.Wrapf(err, "registry: forward tier 2 url %s", url)
	}
	return nil
}

// Tier1Count reports the number of loaded tier-1 URLs.
func (t *Tiers) Tier1Count() int { return len(t.tier1) }

// Tier2Count reports the number of tier-2 URLs, including run additions.
func (t *Tiers) Tier2Count() int { return len(t.tier2) }
