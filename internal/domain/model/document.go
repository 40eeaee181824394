package model

import (
	"strings"

	"github.com/elastic/go-elasticsearch/v9/typedapi/types"
)

// Document 所有写入检索索引的文档都要实现这个接口
type Document interface {
	GetID() string
	GetIndex() string
	GetTypeMapping() *types.TypeMapping
	GetEmbeddingString() string
	SetEmbedding(embedding []float32)
	GetEmbedding() []float32
}

const DefaultArticleIndex = "journal_articles"

// ArticleDoc is the search-index form of a Record.
type ArticleDoc struct {
	Index           string    `json:"-"`
	Dims            int       `json:"-"`
	DOI             string    `json:"doi"`
	Title           string    `json:"title"`
	PublicationDate string    `json:"publication_date"`
	Year            string    `json:"year"`
	IssueURL        string    `json:"issue_url"`
	ArticleURL      string    `json:"article_url"`
	AuthorCount     int       `json:"author_count"`
	FirstAuthor     string    `json:"first_author"`
	LastAuthor      string    `json:"last_author,omitempty"`
	Affiliations    []string  `json:"affiliations,omitempty"`
	ImageCaptions   []string  `json:"image_captions,omitempty"`
	TableCaptions   []string  `json:"table_captions,omitempty"`
	Embedding       []float32 `json:"embedding,omitempty"`
}

func (r Record) ToDocument(index string, dims int) *ArticleDoc {
	if index == "" {
		index = DefaultArticleIndex
	}
	doc := &ArticleDoc{
		Index:           index,
		Dims:            dims,
		DOI:             r.DOI,
		Title:           r.Title,
		PublicationDate: r.PublicationDate,
		Year:            r.Article.Year,
		IssueURL:        r.Article.IssueURL,
		ArticleURL:      r.Article.URL,
		AuthorCount:     r.AuthorCount,
		FirstAuthor:     r.FirstAuthor.Name,
	}
	if last, ok := r.LastAuthor.Get(); ok {
		doc.LastAuthor = last.Name
	}
	for _, aff := range []Optional[string]{r.FirstAffiliation, r.LastAffiliation} {
		if v, ok := aff.Get(); ok {
			doc.Affiliations = append(doc.Affiliations, v)
		}
	}
	for _, img := range r.Images {
		if c, ok := img.Caption.Get(); ok {
			doc.ImageCaptions = append(doc.ImageCaptions, c)
		}
	}
	for _, tbl := range r.Tables {
		if c, ok := tbl.Caption.Get(); ok {
			doc.TableCaptions = append(doc.TableCaptions, c)
		}
	}
	return doc
}

// DOI is stable across runs, re-harvesting overwrites instead of duplicating.
func (d *ArticleDoc) GetID() string {
	if d.DOI != "" {
		return d.DOI
	}
	return d.ArticleURL
}

func (d *ArticleDoc) GetIndex() string {
	return d.Index
}

func (d *ArticleDoc) GetTypeMapping() *types.TypeMapping {
	props := map[string]types.Property{
		"doi":              types.NewKeywordProperty(),
		"title":            types.NewTextProperty(),
		"publication_date": types.NewKeywordProperty(),
		"year":             types.NewKeywordProperty(),
		"issue_url":        types.NewKeywordProperty(),
		"article_url":      types.NewKeywordProperty(),
		"author_count":     types.NewIntegerNumberProperty(),
		"first_author":     types.NewTextProperty(),
		"last_author":      types.NewTextProperty(),
		"affiliations":     types.NewTextProperty(),
		"image_captions":   types.NewTextProperty(),
		"table_captions":   types.NewTextProperty(),
	}
	if d.Dims > 0 {
		vector := types.NewDenseVectorProperty()
		dims := d.Dims
		vector.Dims = &dims
		props["embedding"] = vector
	}
	return &types.TypeMapping{Properties: props}
}

// 标题和图表说明一起做向量
func (d *ArticleDoc) GetEmbeddingString() string {
	parts := make([]string, 0, 1+len(d.ImageCaptions)+len(d.TableCaptions))
	parts = append(parts, d.Title)
	parts = append(parts, d.ImageCaptions...)
	parts = append(parts, d.TableCaptions...)
	return strings.Join(parts, "\n")
}

func (d *ArticleDoc) SetEmbedding(embedding []float32) {
	d.Embedding = embedding
}

func (d *ArticleDoc) GetEmbedding() []float32 {
	return d.Embedding
}
