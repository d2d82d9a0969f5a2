package pipeline

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/gc-feedback/feedback-sync/internal/model"
)

// CompleteProcessing finalizes every record whose scrub and sync flags are
// both done: it stamps the processed date and sets the terminal flag.
// Records still missing a prerequisite flag are left untouched for a
// later run.
func (p *Pipeline) CompleteProcessing(ctx context.Context) error {
	problems, err := p.store.ListProblemsPendingCompletion(ctx)
	if err != nil {
		return eris.Wrap(err, "pipeline: list problems pending completion")
	}

	today := p.now().Format(model.DateLayout)
	completed := 0
	for i := range problems {
		prob := &problems[i]
		if !prob.PersonalInfoProcessed.IsDone() || !prob.AirtableSync.IsDone() {
			continue
		}
		prob.ProcessedDate = today
		prob.Processed = model.FlagDone
		if err := p.store.SaveProblem(ctx, prob); err != nil {
			zap.L().Error("could not finalize record",
				zap.String("id", prob.ID),
				zap.Error(err),
			)
			continue
		}
		completed++
	}
	zap.L().Info("completion pass finished",
		zap.Int("scanned", len(problems)),
		zap.Int("completed", completed),
	)
	return nil
}
