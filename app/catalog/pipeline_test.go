package catalog

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lysyi3m/catalog-comb/app/cfg"
	"github.com/lysyi3m/catalog-comb/app/database"
	"github.com/lysyi3m/catalog-comb/app/feed"
	"github.com/lysyi3m/catalog-comb/app/page"
	"github.com/lysyi3m/catalog-comb/app/source"
	"github.com/lysyi3m/catalog-comb/app/summarizer"
)

const siteBase = "https://shop.example.com"

const threeEntryFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:g="http://base.google.com/ns/1.0">
  <channel>
    <title>Upstream</title>
    <item>
      <g:id>SKU-1</g:id>
      <title>Desk Lamp</title>
      <link>https://upstream.example.com/buy/1</link>
      <description>A bright lamp</description>
      <g:price>120.00 SAR</g:price>
      <g:availability>in stock</g:availability>
      <g:image_link>https://cdn.example.com/1.jpg</g:image_link>
    </item>
    <item>
      <g:id>SKU-2</g:id>
      <title>Office Chair</title>
      <link>https://upstream.example.com/buy/2</link>
      <g:availability>in stock</g:availability>
      <g:image_link>https://cdn.example.com/2.jpg</g:image_link>
    </item>
    <item>
      <g:id>SKU-3</g:id>
      <title>Bookshelf "Tall" &lt;Oak&gt;</title>
      <link>https://upstream.example.com/buy/3</link>
      <g:price>SAR 450</g:price>
      <g:availability>preorder</g:availability>
      <g:image_link>https://cdn.example.com/3.jpg</g:image_link>
    </item>
  </channel>
</rss>`

type stubFetcher struct {
	data []byte
	err  error
}

func (f *stubFetcher) Run(ctx context.Context) (*source.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &source.Document{Data: f.data, Origin: source.OriginFile, Location: "feed.xml"}, nil
}

type memoryHistory struct {
	runs []database.Run
	err  error
}

func (h *memoryHistory) CreateRun(run database.Run) (int64, error) {
	if h.err != nil {
		return 0, h.err
	}
	h.runs = append(h.runs, run)
	return int64(len(h.runs)), nil
}

func (h *memoryHistory) GetRun(id int64) (*database.Run, error) {
	return nil, nil
}

func (h *memoryHistory) GetLatestRun() (*database.Run, error) {
	return nil, nil
}

func (h *memoryHistory) ListRuns(limit int) ([]database.Run, error) {
	return h.runs, nil
}

func newTestPipeline(t *testing.T, fetcher Fetcher, dir string) *Pipeline {
	t.Helper()

	profile, err := cfg.LoadProfile(cfg.ProfileMerchant, "")
	require.NoError(t, err)
	profile.Channel.Link = siteBase + "/"

	template, err := page.LoadTemplate("")
	require.NoError(t, err)

	return NewPipeline(
		fetcher,
		feed.NewValidator(profile.RequiredFields, "SAR", profile.DefaultCondition),
		summarizer.NewTruncator(summarizer.DefaultWidth),
		feed.NewGenerator(siteBase, profile.Channel),
		feed.NewSitemap(siteBase),
		page.NewRenderer(siteBase, template),
		Options{OutputDir: dir, Profile: profile.Name},
	)
}

func TestPipelineEndToEnd(t *testing.T) {
	dir := t.TempDir()
	history := &memoryHistory{}
	pipeline := newTestPipeline(t, &stubFetcher{data: []byte(threeEntryFeed)}, dir).WithHistory(history)

	report, err := pipeline.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, report.Total)
	assert.Equal(t, 2, report.Kept)
	assert.Equal(t, 1, report.Skipped())
	assert.Equal(t, database.RunStatusSuccess, report.Status)
	require.Len(t, report.Skips, 1)
	assert.Equal(t, 2, report.Skips[0].Index)
	assert.Contains(t, report.Skips[0].Reason, "price")

	rss, err := os.ReadFile(filepath.Join(dir, FeedFile))
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(rss), "<item>"))
	assert.NotContains(t, string(rss), "SKU-2")
	assert.Contains(t, string(rss), "<g:price>450 SAR</g:price>")

	entries, err := os.ReadDir(filepath.Join(dir, page.PagesDir))
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "sku-1", entries[0].Name())
	assert.Equal(t, "sku-3", entries[1].Name())

	html, err := os.ReadFile(filepath.Join(dir, page.PagesDir, "sku-3", "index.html"))
	require.NoError(t, err)
	assert.Contains(t, string(html), "Bookshelf &#34;Tall&#34; &lt;Oak&gt;")
	assert.NotContains(t, string(html), "<Oak>")

	sitemap, err := os.ReadFile(filepath.Join(dir, SitemapFile))
	require.NoError(t, err)
	assert.Contains(t, string(sitemap), "<loc>https://shop.example.com/product/sku-3/</loc>")

	reportJSON, err := os.ReadFile(filepath.Join(dir, ReportFile))
	require.NoError(t, err)
	assert.Contains(t, string(reportJSON), `"kept": 2`)
	assert.Contains(t, string(reportJSON), `"skipped": 1`)

	require.Len(t, history.runs, 1)
	assert.Equal(t, 2, history.runs[0].Kept)
	assert.Equal(t, "missing required: [price]", history.runs[0].Skips[0].Reason)
}

func TestPipelineIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	pipeline := newTestPipeline(t, &stubFetcher{data: []byte(threeEntryFeed)}, dir)

	_, err := pipeline.Run(context.Background())
	require.NoError(t, err)
	first := snapshot(t, dir)

	_, err = pipeline.Run(context.Background())
	require.NoError(t, err)
	second := snapshot(t, dir)

	assert.Equal(t, first, second)
}

func TestPipelineRemovesStalePages(t *testing.T) {
	dir := t.TempDir()
	stale := filepath.Join(dir, page.PagesDir, "gone", "index.html")
	require.NoError(t, os.MkdirAll(filepath.Dir(stale), 0755))
	require.NoError(t, os.WriteFile(stale, []byte("old"), 0644))

	_, err := newTestPipeline(t, &stubFetcher{data: []byte(threeEntryFeed)}, dir).Run(context.Background())
	require.NoError(t, err)

	_, err = os.Stat(stale)
	assert.True(t, os.IsNotExist(err))
}

func TestPipelineFetchFailureWritesNothing(t *testing.T) {
	dir := t.TempDir()
	history := &memoryHistory{}
	fetchErr := errors.New("failed to fetch feed: HTTP error: 500")
	pipeline := newTestPipeline(t, &stubFetcher{err: fetchErr}, dir).WithHistory(history)

	report, err := pipeline.Run(context.Background())
	require.ErrorIs(t, err, fetchErr)
	assert.Equal(t, database.RunStatusFailed, report.Status)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	require.Len(t, history.runs, 1)
	assert.Equal(t, fetchErr.Error(), history.runs[0].Error)
}

func TestPipelineParseFailure(t *testing.T) {
	dir := t.TempDir()
	pipeline := newTestPipeline(t, &stubFetcher{data: []byte("<html><body>not a feed")}, dir)

	report, err := pipeline.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, database.RunStatusFailed, report.Status)

	_, statErr := os.Stat(filepath.Join(dir, FeedFile))
	assert.True(t, os.IsNotExist(statErr))
}

func TestPipelineZeroKeptWritesNothing(t *testing.T) {
	dir := t.TempDir()
	feedData := `<rss version="2.0"><channel><title>x</title>
<item><title>No price</title><guid>a</guid></item>
</channel></rss>`

	report, err := newTestPipeline(t, &stubFetcher{data: []byte(feedData)}, dir).Run(context.Background())
	require.ErrorIs(t, err, ErrNoProducts)
	assert.Equal(t, database.RunStatusEmpty, report.Status)
	assert.Equal(t, 1, report.Total)
	assert.Equal(t, 0, report.Kept)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestPipelineHistoryFailureIsNotFatal(t *testing.T) {
	dir := t.TempDir()
	history := &memoryHistory{err: errors.New("disk full")}

	_, err := newTestPipeline(t, &stubFetcher{data: []byte(threeEntryFeed)}, dir).WithHistory(history).Run(context.Background())
	assert.NoError(t, err)
}

func TestPipelineSlugCollisions(t *testing.T) {
	dir := t.TempDir()
	feedData := `<rss version="2.0" xmlns:g="http://base.google.com/ns/1.0"><channel><title>x</title>
<item><g:id>Lamp</g:id><title>A</title><link>https://u.example/a</link><g:price>1</g:price><g:availability>in stock</g:availability><g:image_link>https://c.example/a.jpg</g:image_link></item>
<item><g:id>LAMP!</g:id><title>B</title><link>https://u.example/b</link><g:price>2</g:price><g:availability>in stock</g:availability><g:image_link>https://c.example/b.jpg</g:image_link></item>
</channel></rss>`

	_, err := newTestPipeline(t, &stubFetcher{data: []byte(feedData)}, dir).Run(context.Background())
	require.NoError(t, err)

	for _, slug := range []string{"lamp", "lamp-2"} {
		_, err := os.Stat(filepath.Join(dir, page.PagesDir, slug, "index.html"))
		assert.NoError(t, err, "expected page for %s", slug)
	}
}

func TestWriteSummary(t *testing.T) {
	report := &Report{
		Source:  "feed.xml",
		Profile: "merchant",
		Total:   15,
		Kept:    3,
	}
	for i := 1; i <= 12; i++ {
		report.Skips = append(report.Skips, feed.SkipReason{Index: i, Reason: "missing id"})
	}

	var buf bytes.Buffer
	report.WriteSummary(&buf, 10)
	out := buf.String()

	assert.Equal(t, 10, strings.Count(out, "skipped: missing id"))
	assert.Contains(t, out, "... and 2 more skipped entries")
	assert.Contains(t, out, "Kept 3/15 products")
	assert.Contains(t, out, "Skipped  12")
}

func snapshot(t *testing.T, dir string) map[string]string {
	t.Helper()

	files := map[string]string{}
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() || d.Name() == ReportFile {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(dir, path)
		files[rel] = string(data)
		return nil
	})
	require.NoError(t, err)

	return files
}
