package es

import (
	"context"
	"log/slog"

	"github.com/LouYuanbo1/journalcrawler/internal/domain/model"
	"github.com/LouYuanbo1/journalcrawler/internal/infra/embedding"
)

type ArticleIndexer interface {
	BulkIndexDocsWithID(ctx context.Context, docs []*model.ArticleDoc) error
}

// RecordSink 攒够一批记录后(可选地)生成向量再批量写入索引
type RecordSink struct {
	indexer   ArticleIndexer
	embedder  embedding.Embedder
	index     string
	dims      int
	batchSize int
	buf       []*model.ArticleDoc
}

// NewRecordSink embedder 可以为 nil,此时不写向量字段
func NewRecordSink(indexer ArticleIndexer, embedder embedding.Embedder, index string, dims, batchSize int) *RecordSink {
	if embedder == nil {
		dims = 0
	}
	return &RecordSink{
		indexer:   indexer,
		embedder:  embedder,
		index:     index,
		dims:      dims,
		batchSize: max(batchSize, 1),
	}
}

func (s *RecordSink) Name() string {
	return "elasticsearch"
}

func (s *RecordSink) Write(ctx context.Context, rec model.Record) error {
	s.buf = append(s.buf, rec.ToDocument(s.index, s.dims))
	if len(s.buf) < s.batchSize {
		return nil
	}
	return s.flush(ctx)
}

func (s *RecordSink) Close(ctx context.Context) error {
	return s.flush(ctx)
}

func (s *RecordSink) flush(ctx context.Context) error {
	if len(s.buf) == 0 {
		return nil
	}
	docs := s.buf
	s.buf = nil
	if s.embedder != nil {
		// 向量失败不影响文档本身入库
		if err := embedding.EmbedDocuments(ctx, s.embedder, docs); err != nil {
			slog.WarnContext(ctx, "embedding incomplete", "docs", len(docs), "err", err)
		}
	}
	return s.indexer.BulkIndexDocsWithID(ctx, docs)
}
