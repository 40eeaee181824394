package cmd

import (
	"bytes"
	"context"
	"encoding/csv"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/LouYuanbo1/journalcrawler/internal/config"
	"github.com/LouYuanbo1/journalcrawler/internal/domain/model"
	"github.com/LouYuanbo1/journalcrawler/internal/infra/persistence/journal"
	"github.com/LouYuanbo1/journalcrawler/internal/service/dataset"
	"github.com/LouYuanbo1/journalcrawler/internal/service/harvest"
)

const savedArticle = `<html><body>
<h1 property="name">Attention and working memory</h1>
<div class="doi"><a href="https://doi.org/10.1177/0001">https://doi.org/10.1177/0001</a></div>
<div class="meta-panel__onlineDate">First published online March 3, 2020</div>
<span property="author"><span property="givenName">Maria</span><span property="familyName">Lopez</span></span>
<div property="affiliation"><span property="name">Bar-Ilan University</span></div>
<figure class="graphic"><img src="/na101/fig1.jpg"><figcaption>Figure 1.</figcaption></figure>
<figure class="graphic"><img src="/na101/fig2.jpg"><figcaption>Figure 2.</figcaption></figure>
</body></html>`

func TestExportJournal_LatestRun(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "journal.db")

	j, err := journal.Open(ctx, dbPath)
	require.NoError(t, err)
	require.NoError(t, j.Append(ctx, "20200101-000000", "https://a", map[string]string{dataset.ColTitle: "Old"}))
	require.NoError(t, j.Append(ctx, "20200102-000000", "https://b", map[string]string{dataset.ColTitle: "First", dataset.ColAuthorCount: "2"}))
	require.NoError(t, j.Append(ctx, "20200102-000000", "https://c", map[string]string{dataset.ColTitle: "Second"}))
	require.NoError(t, j.Close())

	out := filepath.Join(dir, "out", "rows.csv")
	n, err := exportJournal(ctx, dbPath, "", out, "Sheet1")
	require.NoError(t, err)
	require.Equal(t, 2, n)

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	require.Equal(t, dataset.Columns(), records[0])
	require.Equal(t, "First", records[1][0])
	require.Equal(t, "Second", records[2][0])
	require.Equal(t, dataset.NotAvailable, records[2][3])
}

func TestExportJournal_ExplicitRun(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "journal.db")

	j, err := journal.Open(ctx, dbPath)
	require.NoError(t, err)
	require.NoError(t, j.Append(ctx, "r1", "https://a", map[string]string{dataset.ColTitle: "Old"}))
	require.NoError(t, j.Append(ctx, "r2", "https://b", map[string]string{dataset.ColTitle: "New"}))
	require.NoError(t, j.Close())

	n, err := exportJournal(ctx, dbPath, "r1", filepath.Join(dir, "rows.md"), "Sheet1")
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestExportJournal_Errors(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	_, err := exportJournal(ctx, "", "", filepath.Join(dir, "rows.csv"), "Sheet1")
	require.Error(t, err)

	_, err = exportJournal(ctx, filepath.Join(dir, "empty.db"), "", filepath.Join(dir, "rows.csv"), "Sheet1")
	require.ErrorIs(t, err, journal.ErrNoRuns)
}

func TestExtractFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "article.html")
	require.NoError(t, os.WriteFile(path, []byte(savedArticle), 0o644))

	cfg, err := config.ParseConfig([]byte(`{journal: {base_url: "https://journals.example.org"}}`))
	require.NoError(t, err)

	extractURL = "https://journals.example.org/doi/full/10.1177/0001"
	t.Cleanup(func() { extractURL = "" })

	var buf bytes.Buffer
	require.NoError(t, extractFile(context.Background(), cfg, path, &buf))

	out := buf.String()
	require.Contains(t, out, "Attention and working memory")
	require.Contains(t, out, "March 3, 2020")
	require.Contains(t, out, "Maria Lopez")
	require.Contains(t, out, "https://journals.example.org/na101/fig1.jpg")
	// 两张图只保留一张
	require.NotContains(t, out, "fig2.jpg")
	require.NotContains(t, out, dataset.NotAvailable)
}

func TestExtractFile_MissingTitle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "article.html")
	require.NoError(t, os.WriteFile(path, []byte("<html><body></body></html>"), 0o644))

	cfg, err := config.ParseConfig([]byte(`{journal: {base_url: "https://journals.example.org"}}`))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.Error(t, extractFile(context.Background(), cfg, path, &buf))
	require.Empty(t, buf.String())
}

type closeCountingSink struct {
	harvest.Sink
	closed int
}

func (s *closeCountingSink) Close(ctx context.Context) error {
	s.closed++
	return s.Sink.Close(ctx)
}

func TestInitSinks_ClosesJournalWhenIndexSetupFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := srv.URL
	srv.Close()

	dir := t.TempDir()
	cfg, err := config.ParseConfig([]byte(`{
		journal: {base_url: "https://journals.example.org"},
		output: {path: "` + filepath.Join(dir, "out.csv") + `", journal_db: "` + filepath.Join(dir, "journal.db") + `"},
		elasticsearch: {enabled: true, address: "` + addr + `"},
	}`))
	require.NoError(t, err)

	var journalSink *closeCountingSink
	newJournalSink = func(j *journal.Journal, runID string) harvest.Sink {
		journalSink = &closeCountingSink{Sink: harvest.NewJournalSink(j, runID)}
		return journalSink
	}
	t.Cleanup(func() { newJournalSink = harvest.NewJournalSink })

	sinks, err := initSinks(context.Background(), cfg)
	require.Error(t, err)
	require.Nil(t, sinks)
	require.NotNil(t, journalSink)
	require.Equal(t, 1, journalSink.closed)
}

func TestInitSinks_JournalOnly(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.ParseConfig([]byte(`{
		journal: {base_url: "https://journals.example.org"},
		output: {path: "` + filepath.Join(dir, "out.csv") + `", journal_db: "` + filepath.Join(dir, "journal.db") + `"},
	}`))
	require.NoError(t, err)

	sinks, err := initSinks(context.Background(), cfg)
	require.NoError(t, err)
	require.Len(t, sinks, 1)
	require.NoError(t, sinks[0].Write(context.Background(), model.Record{Title: "Solo", Article: model.ArticleRef{URL: "https://a"}}))
	require.NoError(t, sinks[0].Close(context.Background()))
}
