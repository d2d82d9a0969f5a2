package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/gc-feedback/feedback-sync/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS problems (
	id                      TEXT PRIMARY KEY,
	url                     TEXT NOT NULL,
	problem_details         TEXT NOT NULL DEFAULT '',
	problem_date            TEXT,
	time_stamp              TEXT,
	language                TEXT,
	institution             TEXT,
	section                 TEXT,
	theme                   TEXT,
	title                   TEXT,
	personal_info_processed TEXT,
	airtable_sync           TEXT,
	processed               TEXT,
	processed_date          TEXT
);

CREATE INDEX IF NOT EXISTS idx_problems_pii  ON problems(personal_info_processed);
CREATE INDEX IF NOT EXISTS idx_problems_sync ON problems(airtable_sync);
CREATE INDEX IF NOT EXISTS idx_problems_done ON problems(processed);

CREATE TABLE IF NOT EXISTS top_task_surveys (
	id                      TEXT PRIMARY KEY,
	date_time               TEXT,
	theme_other             TEXT,
	task_other              TEXT,
	task_improve_comment    TEXT,
	task_why_not_comment    TEXT,
	personal_info_processed TEXT,
	processed               TEXT,
	processed_date          TEXT
);

CREATE INDEX IF NOT EXISTS idx_surveys_done ON top_task_surveys(processed);
`

// Migrate creates the schema if it does not exist.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteMigration); err != nil {
		return eris.Wrap(err, "sqlite: migrate")
	}
	return nil
}

// Close closes the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const problemCols = `id, url, problem_details, COALESCE(problem_date, ''), COALESCE(time_stamp, ''),
	COALESCE(language, ''), COALESCE(institution, ''), COALESCE(section, ''), COALESCE(theme, ''), COALESCE(title, ''),
	COALESCE(personal_info_processed, ''), COALESCE(airtable_sync, ''), COALESCE(processed, ''), COALESCE(processed_date, '')`

func (s *SQLiteStore) listProblems(ctx context.Context, flagCol string) ([]model.Problem, error) {
	query := `SELECT ` + problemCols + ` FROM problems
		WHERE COALESCE(` + flagCol + `, '') IN ('', 'false') ORDER BY rowid`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list problems by %s", flagCol)
	}
	defer rows.Close() //nolint:errcheck

	var out []model.Problem
	for rows.Next() {
		var p model.Problem
		var pii, syncFlag, done string
		if err := rows.Scan(&p.ID, &p.URL, &p.ProblemDetails, &p.ProblemDate, &p.TimeStamp,
			&p.Language, &p.Institution, &p.Section, &p.Theme, &p.Title,
			&pii, &syncFlag, &done, &p.ProcessedDate); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan problem")
		}
		p.PersonalInfoProcessed = model.ParseFlag(pii)
		p.AirtableSync = model.ParseFlag(syncFlag)
		p.Processed = model.ParseFlag(done)
		out = append(out, p)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate problems")
}

// ListProblemsPendingScrub returns problems whose PII scrub has not run.
func (s *SQLiteStore) ListProblemsPendingScrub(ctx context.Context) ([]model.Problem, error) {
	return s.listProblems(ctx, "personal_info_processed")
}

// ListProblemsPendingSync returns problems not yet routed to a destination.
func (s *SQLiteStore) ListProblemsPendingSync(ctx context.Context) ([]model.Problem, error) {
	return s.listProblems(ctx, "airtable_sync")
}

// ListProblemsPendingCompletion returns problems not yet finalized.
func (s *SQLiteStore) ListProblemsPendingCompletion(ctx context.Context) ([]model.Problem, error) {
	return s.listProblems(ctx, "processed")
}

// CreateProblem inserts a new problem, assigning an ID when absent. Empty
// flags are stored as NULL to mirror records created before the flags
// existed.
func (s *SQLiteStore) CreateProblem(ctx context.Context, p *model.Problem) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO problems (id, url, problem_details, problem_date, time_stamp,
			language, institution, section, theme, title,
			personal_info_processed, airtable_sync, processed, processed_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULLIF(?, ''), NULLIF(?, ''), NULLIF(?, ''), NULLIF(?, ''))`,
		p.ID, p.URL, p.ProblemDetails, p.ProblemDate, p.TimeStamp,
		p.Language, p.Institution, p.Section, p.Theme, p.Title,
		string(p.PersonalInfoProcessed), string(p.AirtableSync), string(p.Processed), p.ProcessedDate,
	)
	return eris.Wrap(err, "sqlite: create problem")
}

const saveProblemSQL = `
	UPDATE problems SET url = ?, problem_details = ?,
		personal_info_processed = ?, airtable_sync = ?, processed = ?, processed_date = NULLIF(?, '')
	WHERE id = ?`

// SaveProblem persists the mutable fields of a problem.
func (s *SQLiteStore) SaveProblem(ctx context.Context, p *model.Problem) error {
	res, err := s.db.ExecContext(ctx, saveProblemSQL,
		p.URL, p.ProblemDetails,
		p.PersonalInfoProcessed.String(), p.AirtableSync.String(), p.Processed.String(), p.ProcessedDate,
		p.ID,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: save problem")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: save problem rows affected")
	}
	if n == 0 {
		return eris.Errorf("sqlite: problem %s not found", p.ID)
	}
	return nil
}

// SaveProblems persists a batch of problems in one transaction.
func (s *SQLiteStore) SaveProblems(ctx context.Context, ps []*model.Problem) error {
	if len(ps) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin batch save")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, saveProblemSQL)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare batch save")
	}
	defer stmt.Close() //nolint:errcheck

	for _, p := range ps {
		if _, err := stmt.ExecContext(ctx,
			p.URL, p.ProblemDetails,
			p.PersonalInfoProcessed.String(), p.AirtableSync.String(), p.Processed.String(), p.ProcessedDate,
			p.ID,
		); err != nil {
			return eris.Wrapf(err, "sqlite: batch save problem %s", p.ID)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit batch save")
}

// DeleteProblem removes a problem permanently.
func (s *SQLiteStore) DeleteProblem(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM problems WHERE id = ?`, id)
	return eris.Wrap(err, "sqlite: delete problem")
}

// ListSurveysPendingClean returns surveys whose processed flag is the
// literal "false".
func (s *SQLiteStore) ListSurveysPendingClean(ctx context.Context) ([]model.TopTaskSurvey, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, COALESCE(date_time, ''), theme_other, task_other, task_improve_comment, task_why_not_comment,
			COALESCE(personal_info_processed, ''), COALESCE(processed, ''), COALESCE(processed_date, '')
		FROM top_task_surveys WHERE processed = 'false' ORDER BY rowid`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list surveys pending clean")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.TopTaskSurvey
	for rows.Next() {
		var sv model.TopTaskSurvey
		var themeOther, taskOther, improve, whyNot sql.NullString
		var pii, done string
		if err := rows.Scan(&sv.ID, &sv.DateTime, &themeOther, &taskOther, &improve, &whyNot,
			&pii, &done, &sv.ProcessedDate); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan survey")
		}
		sv.ThemeOther = nullable(themeOther)
		sv.TaskOther = nullable(taskOther)
		sv.TaskImproveComment = nullable(improve)
		sv.TaskWhyNotComment = nullable(whyNot)
		sv.PersonalInfoProcessed = model.ParseFlag(pii)
		sv.Processed = model.ParseFlag(done)
		out = append(out, sv)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate surveys")
}

// CreateSurvey inserts a new survey response, assigning an ID when absent.
func (s *SQLiteStore) CreateSurvey(ctx context.Context, sv *model.TopTaskSurvey) error {
	if sv.ID == "" {
		sv.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO top_task_surveys (id, date_time, theme_other, task_other, task_improve_comment, task_why_not_comment,
			personal_info_processed, processed, processed_date)
		VALUES (?, ?, ?, ?, ?, ?, NULLIF(?, ''), NULLIF(?, ''), NULLIF(?, ''))`,
		sv.ID, sv.DateTime, sv.ThemeOther, sv.TaskOther, sv.TaskImproveComment, sv.TaskWhyNotComment,
		string(sv.PersonalInfoProcessed), string(sv.Processed), sv.ProcessedDate,
	)
	return eris.Wrap(err, "sqlite: create survey")
}

// SaveSurvey persists the mutable fields of a survey.
func (s *SQLiteStore) SaveSurvey(ctx context.Context, sv *model.TopTaskSurvey) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE top_task_surveys SET theme_other = ?, task_other = ?, task_improve_comment = ?, task_why_not_comment = ?,
			personal_info_processed = ?, processed = ?, processed_date = NULLIF(?, '')
		WHERE id = ?`,
		sv.ThemeOther, sv.TaskOther, sv.TaskImproveComment, sv.TaskWhyNotComment,
		sv.PersonalInfoProcessed.String(), sv.Processed.String(), sv.ProcessedDate,
		sv.ID,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: save survey")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: save survey rows affected")
	}
	if n == 0 {
		return eris.Errorf("sqlite: survey %s not found", sv.ID)
	}
	return nil
}

// DeleteSurvey removes a survey permanently.
func (s *SQLiteStore) DeleteSurvey(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM top_task_surveys WHERE id = ?`, id)
	return eris.Wrap(err, "sqlite: delete survey")
}

func nullable(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}
