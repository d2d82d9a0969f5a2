package sheets

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/gc-feedback/feedback-sync/internal/resilience"
)

// AppenderConfig names the spreadsheet targets the pipeline appends to.
type AppenderConfig struct {
	// InventorySpreadsheetID holds the tier-2 URL inventory.
	InventorySpreadsheetID string
	// InventoryRange is the append range for new tier-2 URLs.
	InventoryRange string
	// DuplicateSpreadsheetID holds the duplicate-comment tracker.
	DuplicateSpreadsheetID string
	// DuplicateRange is the 4-column append range for duplicate rows.
	DuplicateRange string
}

// ClientFactory builds the underlying API client. Creation is deferred to
// first use so a run that appends nothing never authenticates.
type ClientFactory func() (Client, error)

// Appender wraps the spreadsheet client with bounded retry and a shared,
// lazily created client handle. Delivery is at-least-once; callers own the
// responsibility of not appending the same logical fact twice.
type Appender struct {
	cfg     AppenderConfig
	retry   resilience.RetryConfig
	factory ClientFactory

	mu     sync.RWMutex
	client Client
}

// NewAppender creates an Appender that builds its client on first use via
// factory and retries failed appends per resilience.DefaultRetryConfig.
func NewAppender(cfg AppenderConfig, factory ClientFactory) *Appender {
	retry := resilience.DefaultRetryConfig()
	retry.OnRetry = resilience.RetryLogger("sheets", "append")
	return &Appender{
		cfg:     cfg,
		retry:   retry,
		factory: factory,
	}
}

// AppendURL appends a single URL to the tier-2 inventory spreadsheet.
func (a *Appender) AppendURL(ctx context.Context, url string) error {
	zap.L().Debug("appending url to inventory", zap.String("url", url))
	return a.append(ctx, a.cfg.InventorySpreadsheetID, a.cfg.InventoryRange, []string{url})
}

// AppendDuplicate appends one duplicate-comment row (date, timestamp, URL,
// original comment text) to the duplicate tracker.
func (a *Appender) AppendDuplicate(ctx context.Context, date, timestamp, url, comment string) error {
	zap.L().Debug("appending duplicate comment", zap.String("date", date), zap.String("url", url))
	return a.append(ctx, a.cfg.DuplicateSpreadsheetID, a.cfg.DuplicateRange, []string{date, timestamp, url, comment})
}

func (a *Appender) append(ctx context.Context, spreadsheetID, appendRange string, values []string) error {
	return resilience.Do(ctx, a.retry, func(ctx context.Context) error {
		client, err := a.getClient()
		if err != nil {
			return err
		}
		return client.Append(ctx, spreadsheetID, appendRange, values)
	})
}

// getClient returns the shared client, creating it on first call. The
// double check keeps concurrent first callers from racing a second handle
// into existence.
func (a *Appender) getClient() (Client, error) {
	a.mu.RLock()
	c := a.client
	a.mu.RUnlock()
	if c != nil {
		return c, nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.client != nil {
		return a.client, nil
	}

	c, err := a.factory()
	if err != nil {
		return nil, eris.Wrap(err, "sheets: create client")
	}
	a.client = c
	return c, nil
}

// Reset drops the cached client so the next append re-creates it. Used by
// tests that swap the factory.
func (a *Appender) Reset() {
	a.mu.Lock()
	a.client = nil
	a.mu.Unlock()
}
