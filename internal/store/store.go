// Package store persists feedback records and exposes the flag-keyed
// queries each pipeline stage scans with.
package store

import (
	"context"

	"github.com/gc-feedback/feedback-sync/internal/model"
)

// Store is the persistence interface for the two record collections. The
// "pending" queries match records whose flag is unset, empty, or the
// literal "false", the three historic encodings of not-yet-done work.
// ListSurveysPendingClean is the exception: it matches the literal "false" only
// (survey intake always writes the flag).
type Store interface {
	// Problems
	ListProblemsPendingScrub(ctx context.Context) ([]model.Problem, error)
	ListProblemsPendingSync(ctx context.Context) ([]model.Problem, error)
	ListProblemsPendingCompletion(ctx context.Context) ([]model.Problem, error)
	CreateProblem(ctx context.Context, p *model.Problem) error
	SaveProblem(ctx context.Context, p *model.Problem) error
	SaveProblems(ctx context.Context, ps []*model.Problem) error
	DeleteProblem(ctx context.Context, id string) error

	// Top task surveys
	ListSurveysPendingClean(ctx context.Context) ([]model.TopTaskSurvey, error)
	CreateSurvey(ctx context.Context, s *model.TopTaskSurvey) error
	SaveSurvey(ctx context.Context, s *model.TopTaskSurvey) error
	DeleteSurvey(ctx context.Context, id string) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
