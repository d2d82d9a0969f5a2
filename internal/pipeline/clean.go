package pipeline

import (
	"context"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/gc-feedback/feedback-sync/internal/model"
	"github.com/gc-feedback/feedback-sync/internal/validate"
)

const (
	// maxCommentLength is the longest comment worth keeping, counted in
	// characters rather than bytes; anything past it is pasted content,
	// not feedback.
	maxCommentLength = 301

	// placeholderURL is the landing page the intake form falls back to when
	// it cannot resolve the submitting page.
	placeholderURL = "https://www.canada.ca/"
)

// CleanProblems scrubs every problem record awaiting personal-info
// processing. Junk and duplicate records are deleted; survivors get their
// comment sanitized and their flag set. A failure on one record never
// stops the scan.
func (p *Pipeline) CleanProblems(ctx context.Context) error {
	problems, err := p.store.ListProblemsPendingScrub(ctx)
	if err != nil {
		return eris.Wrap(err, "pipeline: list problems pending scrub")
	}
	zap.L().Info("cleaning problem records", zap.Int("count", len(problems)))

	seen := make(map[string]struct{}, len(problems))
	for i := range problems {
		prob := &problems[i]
		if err := p.cleanProblem(ctx, prob, seen); err != nil {
			zap.L().Error("could not clean problem record",
				zap.String("id", prob.ID),
				zap.String("url", prob.URL),
				zap.Error(err),
			)
		}
	}
	return nil
}

func (p *Pipeline) cleanProblem(ctx context.Context, prob *model.Problem, seen map[string]struct{}) error {
	if reason := junkReason(prob); reason != "" {
		zap.L().Info("deleting junk record",
			zap.String("id", prob.ID),
			zap.String("reason", reason),
		)
		return p.store.DeleteProblem(ctx, prob.ID)
	}

	key := validate.DuplicateKey(prob.ProblemDetails)
	if _, dup := seen[key]; dup {
		zap.L().Info("deleting duplicate record", zap.String("id", prob.ID))
		// Logged with the original, unscrubbed text so reviewers can
		// tell duplicates apart; the tracker is access controlled.
		p.logDuplicate(ctx, prob)
		return p.store.DeleteProblem(ctx, prob.ID)
	}
	seen[key] = struct{}{}

	prob.ProblemDetails = p.sanitizer.Clean(prob.ProblemDetails)
	prob.PersonalInfoProcessed = model.FlagDone
	return p.store.SaveProblem(ctx, prob)
}

// junkReason classifies a record as junk, returning the matched rule name
// or "" when the record should be kept.
func junkReason(prob *model.Problem) string {
	switch {
	case validate.NormalizeSpace(prob.ProblemDetails) == "":
		return "blank comment"
	case validate.ContainsHTML(prob.ProblemDetails):
		return "html in comment"
	case prob.URL == placeholderURL:
		return "placeholder url"
	case utf8.RuneCountInString(prob.ProblemDetails) > maxCommentLength:
		return "comment too long"
	}
	return ""
}

// logDuplicate appends the record to the duplicate tracker. The append is
// best effort: the record is deleted either way, so a tracker outage only
// costs the audit row.
func (p *Pipeline) logDuplicate(ctx context.Context, prob *model.Problem) {
	date := prob.ProblemDate
	if date == "" {
		date = p.now().Format(model.DateLayout)
	}
	if err := p.sheets.AppendDuplicate(ctx, date, prob.TimeStamp, prob.URL, prob.ProblemDetails); err != nil {
		zap.L().Error("could not log duplicate to tracker",
			zap.String("id", prob.ID),
			zap.String("url", prob.URL),
			zap.Error(err),
		)
	}
}
