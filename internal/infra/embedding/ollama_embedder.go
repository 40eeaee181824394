package embedding

import (
	"context"
	"strconv"

	"github.com/LouYuanbo1/journalcrawler/internal/config"
	"github.com/cloudwego/eino-ext/components/embedding/ollama"
	einoembedding "github.com/cloudwego/eino/components/embedding"
)

type embedder struct {
	model     einoembedding.Embedder
	batchSize int
}

// InitEmbedder 初始化 ollama 嵌入器
func InitEmbedder(ctx context.Context, cfg *config.Config) (Embedder, error) {
	model, err := ollama.NewEmbedder(ctx, &ollama.EmbeddingConfig{
		Model:   cfg.Embedder.Model,
		BaseURL: cfg.Embedder.Host + ":" + strconv.Itoa(cfg.Embedder.Port),
	})
	if err != nil {
		return nil, err
	}
	return NewEmbedder(model, cfg.Embedder.BatchSize), nil
}

// NewEmbedder 包装任意 eino 嵌入组件
func NewEmbedder(model einoembedding.Embedder, batchSize int) Embedder {
	return &embedder{model: model, batchSize: batchSize}
}

func (e *embedder) BatchSize() int {
	return e.batchSize
}

// Embed eino 返回 float64 向量,索引里存 float32
func (e *embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors, err := e.model.EmbedStrings(ctx, texts)
	if err != nil {
		return nil, err
	}
	out := make([][]float32, 0, len(vectors))
	for _, v64 := range vectors {
		v32 := make([]float32, len(v64))
		for i, f := range v64 {
			v32[i] = float32(f)
		}
		out = append(out, v32)
	}
	return out, nil
}
