package pipeline

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/gc-feedback/feedback-sync/internal/model"
	"github.com/gc-feedback/feedback-sync/internal/registry"
	"github.com/gc-feedback/feedback-sync/internal/urlutil"
)

// SyncProblems routes every scrubbed record by tier membership: unknown
// URLs are registered in the tier-2 inventory, known tier-2 URLs are
// marked and skipped, and tier-1 URLs become destination rows. Each run
// routes at most cfg.Sync.MaxRecords records; the rest keep their pending
// flag for the next run. Routed records are saved in one batch at the end,
// so a record whose external write succeeded but whose save was lost is
// re-routed next run rather than stranded.
func (p *Pipeline) SyncProblems(ctx context.Context, tiers *registry.Tiers) error {
	problems, err := p.store.ListProblemsPendingSync(ctx)
	if err != nil {
		return eris.Wrap(err, "pipeline: list problems pending sync")
	}
	zap.L().Info("syncing problem records",
		zap.Int("pending", len(problems)),
		zap.Int("cap", p.cfg.Sync.MaxRecords),
	)

	var routed []*model.Problem
	for i := range problems {
		if len(routed) >= p.cfg.Sync.MaxRecords {
			zap.L().Info("sync cap reached, deferring remainder",
				zap.Int("deferred", len(problems)-i),
			)
			break
		}
		prob := &problems[i]
		if err := p.routeProblem(ctx, prob, tiers); err != nil {
			zap.L().Error("could not sync record",
				zap.String("id", prob.ID),
				zap.String("url", prob.URL),
				zap.Error(err),
			)
			continue
		}
		routed = append(routed, prob)
	}

	if len(routed) == 0 {
		return nil
	}
	if err := p.store.SaveProblems(ctx, routed); err != nil {
		return eris.Wrap(err, "pipeline: save synced records")
	}
	zap.L().Info("synced records saved", zap.Int("count", len(routed)))
	return nil
}

// routeProblem rewrites the record's URL to its normalized form, then
// dispatches on tier membership. UTM parameters are captured before
// normalization strips them. On success the sync flag is set; the caller
// persists it.
func (p *Pipeline) routeProblem(ctx context.Context, prob *model.Problem, tiers *registry.Tiers) error {
	utm := urlutil.ExtractUTM(prob.URL)
	prob.URL = urlutil.Normalize(prob.URL)

	switch {
	case tiers.IsTier2(prob.URL):
		// Tier 2 wins over tier 1: inventory-only, no destination row.
		zap.L().Debug("url already in tier 2 inventory", zap.String("url", prob.URL))
	case tiers.IsTier1(prob.URL):
		entry, _ := tiers.Tier1(prob.URL)
		if err := p.createRow(ctx, prob, entry, utm); err != nil {
			return err
		}
	default:
		if err := tiers.RegisterTier2(ctx, prob.URL); err != nil {
			return err
		}
		zap.L().Info("unlisted url added to tier 2 inventory", zap.String("url", prob.URL))
	}

	prob.AirtableSync = model.FlagDone
	return nil
}

func (p *Pipeline) createRow(ctx context.Context, prob *model.Problem, entry registry.Tier1Entry, utm string) error {
	baseID, ok := p.cfg.Airtable.Bases[entry.Base]
	if !ok {
		// A feed assignment with no configured base produces no row; the
		// record still counts as synced so it is not retried forever.
		zap.L().Warn("no base configured for tier 1 assignment",
			zap.String("base", entry.Base),
			zap.String("url", prob.URL),
		)
		return nil
	}

	row := model.Row{
		UniqueID:    prob.ID,
		Date:        prob.ProblemDate,
		TimeStamp:   prob.TimeStamp,
		URL:         prob.URL,
		Lang:        strings.ToUpper(prob.Language),
		Comment:     prob.ProblemDetails,
		UTM:         utm,
		MainSection: prob.Section,
		Institution: prob.Institution,
		Theme:       prob.Theme,
		PageTitle:   prob.Title,
		Status:      model.RowStatusNew,
	}
	if err := p.airtable.CreateRecord(ctx, baseID, p.cfg.Airtable.Table, row); err != nil {
		return eris.Wrapf(err, "pipeline: create row in base %s", entry.Base)
	}
	zap.L().Info("created destination row",
		zap.String("id", prob.ID),
		zap.String("base", entry.Base),
	)
	return nil
}
