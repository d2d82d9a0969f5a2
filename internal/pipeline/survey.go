package pipeline

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/gc-feedback/feedback-sync/internal/model"
	"github.com/gc-feedback/feedback-sync/internal/validate"
)

// CleanSurveys scrubs every top-task survey awaiting processing. A survey
// with markup in any answer is deleted outright; otherwise each answered
// field is sanitized in place (whitespace-only answers collapse to "") and
// the survey is finalized in one step, since surveys have no downstream
// sync stage.
func (p *Pipeline) CleanSurveys(ctx context.Context) error {
	surveys, err := p.store.ListSurveysPendingClean(ctx)
	if err != nil {
		return eris.Wrap(err, "pipeline: list surveys pending clean")
	}
	zap.L().Info("cleaning survey records", zap.Int("count", len(surveys)))

	for i := range surveys {
		s := &surveys[i]
		if err := p.cleanSurvey(ctx, s); err != nil {
			zap.L().Error("could not clean survey record",
				zap.String("id", s.ID),
				zap.Error(err),
			)
		}
	}
	return nil
}

func (p *Pipeline) cleanSurvey(ctx context.Context, s *model.TopTaskSurvey) error {
	answers := []*string{s.ThemeOther, s.TaskOther, s.TaskImproveComment, s.TaskWhyNotComment}
	for _, a := range answers {
		if a != nil && validate.ContainsHTML(*a) {
			zap.L().Info("deleting survey with markup", zap.String("id", s.ID))
			return p.store.DeleteSurvey(ctx, s.ID)
		}
	}

	for _, a := range answers {
		if a == nil {
			continue
		}
		// Whitespace garbage collapses to the canonical empty answer,
		// which stays distinguishable from never-answered (nil).
		if *a != "" && strings.TrimSpace(*a) == "" {
			*a = ""
			continue
		}
		*a = p.sanitizer.Clean(*a)
	}

	s.PersonalInfoProcessed = model.FlagDone
	s.Processed = model.FlagDone
	s.ProcessedDate = p.now().Format(model.DateLayout)
	return p.store.SaveSurvey(ctx, s)
}
