package embedding

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/LouYuanbo1/journalcrawler/internal/domain/model"
)

// Embedder 文本向量化
type Embedder interface {
	BatchSize() int
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// EmbedDocuments 按批次生成向量并写回文档,失败的批次保持无向量
func EmbedDocuments[D model.Document](ctx context.Context, e Embedder, docs []D) error {
	batchSize := max(e.BatchSize(), 1)
	var failed int
	for i := 0; i < len(docs); i += batchSize {
		end := min(i+batchSize, len(docs))
		texts := make([]string, 0, end-i)
		for _, doc := range docs[i:end] {
			texts = append(texts, doc.GetEmbeddingString())
		}
		vectors, err := e.Embed(ctx, texts)
		if err != nil {
			slog.WarnContext(ctx, "embed batch failed", "from", i, "to", end, "err", err)
			failed += end - i
			continue
		}
		for j := range vectors {
			if i+j < end {
				docs[i+j].SetEmbedding(vectors[j])
			}
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d documents were not embedded", failed, len(docs))
	}
	return nil
}
