package registry

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

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

type recordingAppender struct {
	urls []string
	err  error
}

func (a *recordingAppender) AppendURL(ctx context.Context, url string) error {
	a.urls = append(a.urls, url)
	return a.err
}

func testFeeds() *feedFetcher {
	return &feedFetcher{feeds: map[string]string{
		"https://feeds.example/tier1.csv": strings.Join([]string{
			"URL,MODEL,BASE",
			"https://Canada.ca/en/revenue-agency.html,GC,CRA",
			"https://canada.ca/en/health.html,GC,Health",
			",GC,Main", // malformed: skipped
			"https://canada.ca/en/immigration.html,GC,IRCC",
		}, "\n"),
		"https://feeds.example/tier2.csv": strings.Join([]string{
			"URL",
			"https://canada.ca/en/weather.html",
			"https://Canada.ca/en/Passports.html",
		}, "\n"),
	}}
}

func testConfig() Config {
	return Config{
		Tier1FeedURL: "https://feeds.example/tier1.csv",
		Tier2FeedURL: "https://feeds.example/tier2.csv",
	}
}

func TestLoadBuildsBothTiers(t *testing.T) {
	tiers, err := Load(context.Background(), testFeeds(), testConfig(), &recordingAppender{})
	require.NoError(t, err)

	assert.Equal(t, 3, tiers.Tier1Count(), "malformed row skipped")
	assert.Equal(t, 2, tiers.Tier2Count())

	// Keys are lowercased on load.
	entry, ok := tiers.Tier1("https://canada.ca/en/revenue-agency.html")
	require.True(t, ok)
	assert.Equal(t, "cra", entry.Base)
	assert.Equal(t, "GC", entry.Model)

	assert.True(t, tiers.IsTier2("https://canada.ca/en/passports.html"))
	assert.False(t, tiers.IsTier2("https://canada.ca/en/unknown.html"))
	assert.False(t, tiers.IsTier1("https://canada.ca/en/weather.html"))
}

func TestLoadFailsWhenFeedUnreachable(t *testing.T) {
	f := testFeeds()
	delete(f.feeds, "https://feeds.example/tier2.csv")

	_, err := Load(context.Background(), f, testConfig(), &recordingAppender{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tier 2")
}

func TestRegisterTier2(t *testing.T) {
	app := &recordingAppender{}
	tiers, err := Load(context.Background(), testFeeds(), testConfig(), app)
	require.NoError(t, err)

	require.NoError(t, tiers.RegisterTier2(context.Background(), "https://canada.ca/en/new-page.html"))
	assert.True(t, tiers.IsTier2("https://canada.ca/en/new-page.html"))
	assert.Equal(t, []string{"https://canada.ca/en/new-page.html"}, app.urls)
}

func TestRegisterTier2KeepsLocalAddOnForwardFailure(t *testing.T) {
	app := &recordingAppender{err: eris.New("sheet unavailable")}
	tiers, err := Load(context.Background(), testFeeds(), testConfig(), app)
	require.NoError(t, err)

	err = tiers.RegisterTier2(context.Background(), "https://canada.ca/en/new-page.html")
	require.Error(t, err)
	assert.True(t, tiers.IsTier2("https://canada.ca/en/new-page.html"),
		"in-memory add must survive a failed forward so the run never re-registers the URL")
}
