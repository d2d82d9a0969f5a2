package pipeline

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gc-feedback/feedback-sync/internal/config"
	"github.com/gc-feedback/feedback-sync/internal/model"
	"github.com/gc-feedback/feedback-sync/internal/registry"
	"github.com/gc-feedback/feedback-sync/internal/scrub"
)

// fakeStore is an in-memory store.Store that records mutations.
type fakeStore struct {
	problems []model.Problem
	surveys  []model.TopTaskSurvey

	savedProblems   []model.Problem
	batchSaved      []model.Problem
	savedSurveys    []model.TopTaskSurvey
	deletedProblems []string
	deletedSurveys  []string

	saveProblemErr error
	saveSurveyErr  error
}

func (f *fakeStore) ListProblemsPendingScrub(ctx context.Context) ([]model.Problem, error) {
	return f.problems, nil
}

func (f *fakeStore) ListProblemsPendingSync(ctx context.Context) ([]model.Problem, error) {
	return f.problems, nil
}

func (f *fakeStore) ListProblemsPendingCompletion(ctx context.Context) ([]model.Problem, error) {
	return f.problems, nil
}

func (f *fakeStore) CreateProblem(ctx context.Context, p *model.Problem) error { return nil }

func (f *fakeStore) SaveProblem(ctx context.Context, p *model.Problem) error {
	if f.saveProblemErr != nil {
		return f.saveProblemErr
	}
	f.savedProblems = append(f.savedProblems, *p)
	return nil
}

func (f *fakeStore) SaveProblems(ctx context.Context, ps []*model.Problem) error {
	for _, p := range ps {
		f.batchSaved = append(f.batchSaved, *p)
	}
	return nil
}

func (f *fakeStore) DeleteProblem(ctx context.Context, id string) error {
	f.deletedProblems = append(f.deletedProblems, id)
	return nil
}

func (f *fakeStore) ListSurveysPendingClean(ctx context.Context) ([]model.TopTaskSurvey, error) {
	return f.surveys, nil
}

func (f *fakeStore) CreateSurvey(ctx context.Context, s *model.TopTaskSurvey) error { return nil }

func (f *fakeStore) SaveSurvey(ctx context.Context, s *model.TopTaskSurvey) error {
	if f.saveSurveyErr != nil {
		return f.saveSurveyErr
	}
	f.savedSurveys = append(f.savedSurveys, *s)
	return nil
}

func (f *fakeStore) DeleteSurvey(ctx context.Context, id string) error {
	f.deletedSurveys = append(f.deletedSurveys, id)
	return nil
}

func (f *fakeStore) Migrate(ctx context.Context) error { return nil }
func (f *fakeStore) Close() error                      { return nil }

// fakeSheets records inventory and duplicate appends.
type fakeSheets struct {
	inventoryURLs []string
	duplicates    [][4]string
	appendErr     error
}

func (f *fakeSheets) AppendURL(ctx context.Context, url string) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.inventoryURLs = append(f.inventoryURLs, url)
	return nil
}

func (f *fakeSheets) AppendDuplicate(ctx context.Context, date, timestamp, url, comment string) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.duplicates = append(f.duplicates, [4]string{date, timestamp, url, comment})
	return nil
}

// fakeAirtable records created rows keyed by base.
type createdRow struct {
	baseID string
	table  string
	row    model.Row
}

type fakeAirtable struct {
	rows      []createdRow
	createErr error
}

func (f *fakeAirtable) CreateRecord(ctx context.Context, baseID, table string, fields any) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.rows = append(f.rows, createdRow{baseID: baseID, table: table, row: fields.(model.Row)})
	return nil
}

// feedFetcher serves canned CSV documents keyed by URL.
type feedFetcher struct {
	feeds map[string]string
}

func (f *feedFetcher) Download(ctx context.Context, url string) (io.ReadCloser, error) {
	doc, ok := f.feeds[url]
	if !ok {
		return nil, eris.Errorf("unreachable feed %s", url)
	}
	return io.NopCloser(strings.NewReader(doc)), nil
}

func testConfig() *config.Config {
	return &config.Config{
		Feeds: config.FeedsConfig{
			Tier1URL: "https://feeds.example/tier1.csv",
			Tier2URL: "https://feeds.example/tier2.csv",
		},
		Airtable: config.AirtableConfig{
			Key:   "key",
			Table: "Page feedback",
			Bases: map[string]string{
				"main":   "appMain",
				"health": "appHealth",
				"cra":    "appCRA",
			},
		},
		Sync: config.SyncConfig{MaxRecords: 150},
	}
}

func testPipeline(st *fakeStore, sheets *fakeSheets, at *fakeAirtable) *Pipeline {
	p := New(testConfig(), st, scrub.NewRedactor(), nil, sheets, at)
	p.now = func() time.Time { return time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC) }
	return p
}

func loadTestTiers(t *testing.T, sheets *fakeSheets) *registry.Tiers {
	t.Helper()
	f := &feedFetcher{feeds: map[string]string{
		"https://feeds.example/tier1.csv": strings.Join([]string{
			"URL,MODEL,BASE",
			"https://canada.ca/en/revenue-agency.html,GC,CRA",
			"https://canada.ca/en/health.html,GC,Health",
			"https://canada.ca/en/orphan.html,GC,Defence",
			"https://canada.ca/en/overlap.html,GC,Main",
		}, "\n"),
		"https://feeds.example/tier2.csv": strings.Join([]string{
			"URL",
			"https://canada.ca/en/weather.html",
			"https://canada.ca/en/overlap.html",
		}, "\n"),
	}}
	tiers, err := registry.Load(context.Background(), f, registry.Config{
		Tier1FeedURL: "https://feeds.example/tier1.csv",
		Tier2FeedURL: "https://feeds.example/tier2.csv",
	}, sheets)
	require.NoError(t, err)
	return tiers
}

func TestCleanProblemsDeletesJunk(t *testing.T) {
	st := &fakeStore{problems: []model.Problem{
		{ID: "blank", URL: "https://canada.ca/en/x.html", ProblemDetails: "   \t  "},
		{ID: "html", URL: "https://canada.ca/en/x.html", ProblemDetails: "<p>spam <b>link</b></p>"},
		{ID: "placeholder", URL: "https://www.canada.ca/", ProblemDetails: "real comment"},
		{ID: "long", URL: "https://canada.ca/en/x.html", ProblemDetails: strings.Repeat("a", 302)},
		{ID: "keep", URL: "https://canada.ca/en/x.html", ProblemDetails: "the form is broken"},
	}}
	sheets := &fakeSheets{}
	p := testPipeline(st, sheets, &fakeAirtable{})

	require.NoError(t, p.CleanProblems(context.Background()))

	assert.ElementsMatch(t, []string{"blank", "html", "placeholder", "long"}, st.deletedProblems)
	require.Len(t, st.savedProblems, 1)
	assert.Equal(t, "keep", st.savedProblems[0].ID)
	assert.Equal(t, model.FlagDone, st.savedProblems[0].PersonalInfoProcessed)
	assert.Empty(t, sheets.duplicates, "junk is not logged as duplicate")
}

func TestCleanProblemsBoundaryLength(t *testing.T) {
	st := &fakeStore{problems: []model.Problem{
		{ID: "at-limit", URL: "https://canada.ca/en/x.html", ProblemDetails: strings.Repeat("a", 301)},
	}}
	p := testPipeline(st, &fakeSheets{}, &fakeAirtable{})

	require.NoError(t, p.CleanProblems(context.Background()))
	assert.Empty(t, st.deletedProblems, "301 characters is still within bounds")
	assert.Len(t, st.savedProblems, 1)
}

func TestCleanProblemsLengthCapCountsCharactersNotBytes(t *testing.T) {
	st := &fakeStore{problems: []model.Problem{
		// 200 characters, 400 bytes: well under the cap for a reader.
		{ID: "accented", URL: "https://canada.ca/en/x.html", ProblemDetails: strings.Repeat("é", 200)},
		{ID: "too-long", URL: "https://canada.ca/en/x.html", ProblemDetails: strings.Repeat("é", 302)},
	}}
	p := testPipeline(st, &fakeSheets{}, &fakeAirtable{})

	require.NoError(t, p.CleanProblems(context.Background()))
	assert.Equal(t, []string{"too-long"}, st.deletedProblems)
	require.Len(t, st.savedProblems, 1)
	assert.Equal(t, "accented", st.savedProblems[0].ID)
}

func TestCleanProblemsDeletesDuplicatesAndLogsOriginalText(t *testing.T) {
	st := &fakeStore{problems: []model.Problem{
		{
			ID: "first", URL: "https://canada.ca/en/x.html",
			ProblemDetails: "Call me at 613-555-0101", ProblemDate: "2024-03-01", TimeStamp: "09:15",
		},
		{
			ID: "second", URL: "https://canada.ca/en/y.html",
			ProblemDetails: "  call me at 613-555-0101  ", ProblemDate: "2024-03-02", TimeStamp: "09:20",
		},
		{
			ID: "dateless", URL: "https://canada.ca/en/z.html",
			ProblemDetails: "CALL ME AT 613-555-0101", TimeStamp: "09:25",
		},
	}}
	sheets := &fakeSheets{}
	p := testPipeline(st, sheets, &fakeAirtable{})

	require.NoError(t, p.CleanProblems(context.Background()))

	assert.Equal(t, []string{"second", "dateless"}, st.deletedProblems)
	require.Len(t, st.savedProblems, 1)
	assert.Equal(t, "first", st.savedProblems[0].ID)
	assert.NotContains(t, st.savedProblems[0].ProblemDetails, "613-555-0101",
		"survivor's comment is scrubbed")

	require.Len(t, sheets.duplicates, 2)
	assert.Equal(t, [4]string{"2024-03-02", "09:20", "https://canada.ca/en/y.html", "  call me at 613-555-0101  "},
		sheets.duplicates[0], "duplicate tracker gets the unscrubbed text")
	assert.Equal(t, "2024-03-15", sheets.duplicates[1][0],
		"missing record date falls back to today")
}

func TestCleanProblemsDeletesDuplicateWhenTrackerFails(t *testing.T) {
	st := &fakeStore{problems: []model.Problem{
		{ID: "first", URL: "https://canada.ca/en/x.html", ProblemDetails: "same text"},
		{ID: "second", URL: "https://canada.ca/en/y.html", ProblemDetails: "same text"},
	}}
	p := testPipeline(st, &fakeSheets{appendErr: eris.New("tracker down")}, &fakeAirtable{})

	require.NoError(t, p.CleanProblems(context.Background()))
	assert.Contains(t, st.deletedProblems, "second",
		"tracker outage does not keep the duplicate around")
}

func TestCleanProblemsContinuesPastSaveFailure(t *testing.T) {
	st := &fakeStore{
		problems: []model.Problem{
			{ID: "a", URL: "https://canada.ca/en/x.html", ProblemDetails: "comment a"},
			{ID: "junk", URL: "https://canada.ca/en/x.html", ProblemDetails: ""},
		},
		saveProblemErr: eris.New("write failed"),
	}
	p := testPipeline(st, &fakeSheets{}, &fakeAirtable{})

	require.NoError(t, p.CleanProblems(context.Background()),
		"per-record failures never abort the stage")
	assert.Equal(t, []string{"junk"}, st.deletedProblems)
}

func strPtr(s string) *string { return &s }

func TestCleanSurveysSanitizesAndFinalizes(t *testing.T) {
	st := &fakeStore{surveys: []model.TopTaskSurvey{
		{
			ID:                 "s1",
			ThemeOther:         strPtr("  passport   renewal "),
			TaskOther:          nil,
			TaskImproveComment: strPtr("email me at jo@example.com"),
			TaskWhyNotComment:  strPtr("   "),
		},
	}}
	p := testPipeline(st, &fakeSheets{}, &fakeAirtable{})

	require.NoError(t, p.CleanSurveys(context.Background()))

	require.Len(t, st.savedSurveys, 1)
	s := st.savedSurveys[0]
	assert.Equal(t, "passport   renewal", *s.ThemeOther, "sanitizer trims the ends only")
	assert.Nil(t, s.TaskOther, "unanswered fields stay nil")
	assert.NotContains(t, *s.TaskImproveComment, "jo@example.com")
	assert.Equal(t, "", *s.TaskWhyNotComment, "whitespace-only answers collapse to empty")
	assert.Equal(t, model.FlagDone, s.PersonalInfoProcessed)
	assert.Equal(t, model.FlagDone, s.Processed)
	assert.Equal(t, "2024-03-15", s.ProcessedDate)
}

func TestCleanSurveysDeletesMarkup(t *testing.T) {
	st := &fakeStore{surveys: []model.TopTaskSurvey{
		{ID: "spam", TaskOther: strPtr("<a href=\"http://spam\">click</a>")},
		{ID: "clean", TaskOther: strPtr("find tax forms")},
	}}
	p := testPipeline(st, &fakeSheets{}, &fakeAirtable{})

	require.NoError(t, p.CleanSurveys(context.Background()))
	assert.Equal(t, []string{"spam"}, st.deletedSurveys)
	require.Len(t, st.savedSurveys, 1)
	assert.Equal(t, "clean", st.savedSurveys[0].ID)
}

func TestSyncProblemsRoutesByTier(t *testing.T) {
	st := &fakeStore{problems: []model.Problem{
		{
			ID:  "tier1",
			URL: "https://Canada.ca/en/revenue-agency.html?utm_source=news&utm_medium=email&page=2",
			ProblemDetails: "cannot find my T4", ProblemDate: "2024-03-10", TimeStamp: "14:02",
			Language: "en", Institution: "CRA", Section: "taxes", Theme: "taxes", Title: "Revenue agency",
		},
		{ID: "tier2", URL: "https://canada.ca/en/weather.html#forecast", ProblemDetails: "map is blank"},
		{ID: "unknown", URL: "https://canada.ca/en/brand-new.html?ref=x", ProblemDetails: "broken link"},
	}}
	sheets := &fakeSheets{}
	at := &fakeAirtable{}
	p := testPipeline(st, sheets, at)
	tiers := loadTestTiers(t, sheets)

	require.NoError(t, p.SyncProblems(context.Background(), tiers))

	// Tier 1: one destination row in the assigned base.
	require.Len(t, at.rows, 1)
	assert.Equal(t, "appCRA", at.rows[0].baseID)
	assert.Equal(t, "Page feedback", at.rows[0].table)
	row := at.rows[0].row
	assert.Equal(t, "tier1", row.UniqueID)
	assert.Equal(t, "https://canada.ca/en/revenue-agency.html", row.URL, "row carries the normalized url")
	assert.Equal(t, "utm_source=news&utm_medium=email", row.UTM, "utm captured before normalization")
	assert.Equal(t, "EN", row.Lang)
	assert.Equal(t, model.RowStatusNew, row.Status)

	// Unknown: registered in the tier-2 inventory, normalized.
	assert.Equal(t, []string{"https://canada.ca/en/brand-new.html"}, sheets.inventoryURLs)
	assert.True(t, tiers.IsTier2("https://canada.ca/en/brand-new.html"))

	// All three are marked synced and batch saved.
	require.Len(t, st.batchSaved, 3)
	for _, saved := range st.batchSaved {
		assert.Equal(t, model.FlagDone, saved.AirtableSync, saved.ID)
	}
}

func TestSyncProblemsHonorsCap(t *testing.T) {
	var problems []model.Problem
	for _, id := range []string{"a", "b", "c", "d"} {
		problems = append(problems, model.Problem{
			ID: id, URL: "https://canada.ca/en/weather.html", ProblemDetails: "x",
		})
	}
	st := &fakeStore{problems: problems}
	sheets := &fakeSheets{}
	p := testPipeline(st, sheets, &fakeAirtable{})
	p.cfg.Sync.MaxRecords = 2
	tiers := loadTestTiers(t, sheets)

	require.NoError(t, p.SyncProblems(context.Background(), tiers))
	require.Len(t, st.batchSaved, 2)
	assert.Equal(t, "a", st.batchSaved[0].ID)
	assert.Equal(t, "b", st.batchSaved[1].ID)
}

func TestSyncProblemsSkipsRecordOnRowFailure(t *testing.T) {
	st := &fakeStore{problems: []model.Problem{
		{ID: "fails", URL: "https://canada.ca/en/health.html", ProblemDetails: "x"},
		{ID: "tier2-ok", URL: "https://canada.ca/en/weather.html", ProblemDetails: "y"},
	}}
	sheets := &fakeSheets{}
	p := testPipeline(st, sheets, &fakeAirtable{createErr: eris.New("service unavailable")})
	tiers := loadTestTiers(t, sheets)

	require.NoError(t, p.SyncProblems(context.Background(), tiers))

	require.Len(t, st.batchSaved, 1, "failed record keeps its pending flag")
	assert.Equal(t, "tier2-ok", st.batchSaved[0].ID)
}

func TestSyncProblemsSkipsRecordOnInventoryFailure(t *testing.T) {
	st := &fakeStore{problems: []model.Problem{
		{ID: "unknown", URL: "https://canada.ca/en/brand-new.html", ProblemDetails: "x"},
	}}
	badSheets := &fakeSheets{appendErr: eris.New("sheet unavailable")}
	tiers := loadTestTiers(t, badSheets)
	p := testPipeline(st, badSheets, &fakeAirtable{})

	require.NoError(t, p.SyncProblems(context.Background(), tiers))
	assert.Empty(t, st.batchSaved, "record stays pending when its inventory append fails")
	assert.True(t, tiers.IsTier2("https://canada.ca/en/brand-new.html"),
		"the in-memory add still happened, so the run never re-registers the url")
}

func TestSyncProblemsTier2WinsOverTier1(t *testing.T) {
	st := &fakeStore{problems: []model.Problem{
		{ID: "both", URL: "https://canada.ca/en/overlap.html", ProblemDetails: "x"},
	}}
	sheets := &fakeSheets{}
	at := &fakeAirtable{}
	p := testPipeline(st, sheets, at)
	tiers := loadTestTiers(t, sheets)

	require.NoError(t, p.SyncProblems(context.Background(), tiers))
	assert.Empty(t, at.rows, "tier-2 membership suppresses the destination row")
	assert.Empty(t, sheets.inventoryURLs)
	require.Len(t, st.batchSaved, 1)
	assert.Equal(t, model.FlagDone, st.batchSaved[0].AirtableSync)
}

func TestSyncProblemsUnconfiguredBaseStillMarksSynced(t *testing.T) {
	st := &fakeStore{problems: []model.Problem{
		{ID: "orphan", URL: "https://canada.ca/en/orphan.html", ProblemDetails: "x"},
	}}
	sheets := &fakeSheets{}
	at := &fakeAirtable{}
	p := testPipeline(st, sheets, at)
	tiers := loadTestTiers(t, sheets)

	require.NoError(t, p.SyncProblems(context.Background(), tiers))
	assert.Empty(t, at.rows, "no row without a configured base")
	require.Len(t, st.batchSaved, 1)
	assert.Equal(t, model.FlagDone, st.batchSaved[0].AirtableSync)
}

func TestCompleteProcessingGatesOnBothFlags(t *testing.T) {
	st := &fakeStore{problems: []model.Problem{
		{ID: "ready", PersonalInfoProcessed: model.FlagDone, AirtableSync: model.FlagDone},
		{ID: "unsynced", PersonalInfoProcessed: model.FlagDone, AirtableSync: model.FlagPending},
		{ID: "unscrubbed", AirtableSync: model.FlagDone},
	}}
	p := testPipeline(st, &fakeSheets{}, &fakeAirtable{})

	require.NoError(t, p.CompleteProcessing(context.Background()))

	require.Len(t, st.savedProblems, 1)
	done := st.savedProblems[0]
	assert.Equal(t, "ready", done.ID)
	assert.Equal(t, model.FlagDone, done.Processed)
	assert.Equal(t, "2024-03-15", done.ProcessedDate)
}
