package harvest

import (
	"context"

	"github.com/LouYuanbo1/journalcrawler/internal/domain/model"
	"github.com/LouYuanbo1/journalcrawler/internal/infra/persistence/journal"
	"github.com/LouYuanbo1/journalcrawler/internal/service/dataset"
)

// Sink receives every accepted record as soon as it is extracted.
// Sink errors are logged and never abort the run.
type Sink interface {
	Name() string
	Write(ctx context.Context, rec model.Record) error
	Close(ctx context.Context) error
}

type journalSink struct {
	journal *journal.Journal
	runID   string
}

// NewJournalSink 把每一行立即写入 SQLite,中途退出也不会丢失已完成的行
func NewJournalSink(j *journal.Journal, runID string) Sink {
	return &journalSink{journal: j, runID: runID}
}

func (s *journalSink) Name() string {
	return "journal"
}

func (s *journalSink) Write(ctx context.Context, rec model.Record) error {
	return s.journal.Append(ctx, s.runID, rec.Article.URL, dataset.Cells(rec))
}

func (s *journalSink) Close(ctx context.Context) error {
	return s.journal.Close()
}
