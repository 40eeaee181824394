// Package extractor 从已加载的文章页抽取结构化记录
package extractor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/LouYuanbo1/journalcrawler/internal/domain/model"
	"github.com/LouYuanbo1/journalcrawler/internal/infra/gender"
	"github.com/LouYuanbo1/journalcrawler/internal/infra/render"
	"github.com/LouYuanbo1/journalcrawler/param"
)

// Extractor reads one Record from the article page active in page.
// A missing required field yields an error matching model.ErrRequiredFieldMissing;
// missing optional sections are recorded as Absent.
type Extractor interface {
	Extract(ctx context.Context, page render.Session, article model.ArticleRef) (model.Record, error)
}

type extractor struct {
	classifier gender.Classifier
	selectors  param.Selectors
	scroll     param.Scroll
}

func InitExtractor(classifier gender.Classifier, selectors param.Selectors, scroll param.Scroll) Extractor {
	return &extractor{
		classifier: classifier,
		selectors:  selectors,
		scroll:     scroll,
	}
}

func (e *extractor) Extract(ctx context.Context, page render.Session, article model.ArticleRef) (model.Record, error) {
	if err := scroll(ctx, page, e.scroll); err != nil {
		if ctx.Err() != nil {
			return model.Record{}, err
		}
		slog.WarnContext(ctx, "scroll before extraction failed", "article", article.URL, "err", err)
	}

	rec := model.Record{Article: article}
	var err error

	if rec.Title, err = e.requiredText(ctx, page, "title", e.selectors.Title); err != nil {
		return model.Record{}, err
	}
	if rec.DOI, err = e.doi(ctx, page); err != nil {
		return model.Record{}, err
	}
	if rec.PublicationDate, err = e.publicationDate(ctx, page); err != nil {
		return model.Record{}, err
	}

	authors, err := page.FindMany(ctx, e.selectors.Author)
	if err != nil {
		return model.Record{}, fmt.Errorf("读取作者列表失败: %w", err)
	}
	if len(authors) == 0 {
		return model.Record{}, &model.RequiredFieldError{Field: "authors", Selector: e.selectors.Author}
	}
	rec.AuthorCount = len(authors)

	firstName, err := e.authorName(ctx, authors[0])
	if err != nil {
		return model.Record{}, &model.RequiredFieldError{Field: "first author", Selector: e.selectors.Author, Err: err}
	}
	rec.FirstAuthor = model.Author{Name: firstName, Gender: e.classify(ctx, firstName)}

	affiliations, err := page.FindMany(ctx, e.selectors.Affiliation)
	if err != nil {
		slog.WarnContext(ctx, "affiliations unavailable", "article", article.URL, "err", err)
	}
	if len(affiliations) > 0 {
		rec.FirstAffiliation = e.affiliation(ctx, affiliations[0])
	}

	if rec.AuthorCount > 1 {
		rec.LastAuthor = e.lastAuthor(ctx, authors[len(authors)-1], article)
		// 最后作者缺失时其单位也不记录
		if rec.LastAuthor.IsFound() && len(affiliations) > 0 {
			rec.LastAffiliation = e.affiliation(ctx, affiliations[len(affiliations)-1])
		}
	}

	rec.Images = e.figures(ctx, page, e.selectors.ImageFigure, true, article)
	rec.Tables = e.figures(ctx, page, e.selectors.TableFigure, false, article)
	return rec, nil
}

func (e *extractor) requiredText(ctx context.Context, q render.Queryable, field, selector string) (string, error) {
	el, err := q.FindOne(ctx, selector)
	if err != nil {
		return "", &model.RequiredFieldError{Field: field, Selector: selector, Err: err}
	}
	text, err := el.Text(ctx)
	if err != nil {
		return "", &model.RequiredFieldError{Field: field, Selector: selector, Err: err}
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", &model.RequiredFieldError{Field: field, Selector: selector}
	}
	return text, nil
}

// doi DOI 取链接的 href 而不是显示文本
func (e *extractor) doi(ctx context.Context, page render.Session) (string, error) {
	sel := e.selectors.DOI
	el, err := page.FindOne(ctx, sel)
	if err != nil {
		return "", &model.RequiredFieldError{Field: "doi", Selector: sel, Err: err}
	}
	href, ok, err := render.AbsAttribute(ctx, page, el, "href")
	if err != nil {
		return "", &model.RequiredFieldError{Field: "doi", Selector: sel, Err: err}
	}
	if !ok || href == "" {
		return "", &model.RequiredFieldError{Field: "doi", Selector: sel}
	}
	return href, nil
}

func (e *extractor) publicationDate(ctx context.Context, page render.Session) (string, error) {
	text, err := e.requiredText(ctx, page, "publication date", e.selectors.OnlineDate)
	if err != nil {
		return "", err
	}
	_, date, found := strings.Cut(text, e.selectors.OnlineDatePrefix)
	date = strings.TrimSpace(date)
	if !found || date == "" {
		return "", &model.RequiredFieldError{
			Field:    "publication date",
			Selector: e.selectors.OnlineDate,
			Err:      fmt.Errorf("%q does not contain %q", text, e.selectors.OnlineDatePrefix),
		}
	}
	return date, nil
}

func (e *extractor) authorName(ctx context.Context, author render.Element) (string, error) {
	given, err := e.requiredText(ctx, author, "given name", e.selectors.GivenName)
	if err != nil {
		return "", err
	}
	family, err := e.requiredText(ctx, author, "family name", e.selectors.FamilyName)
	if err != nil {
		return "", err
	}
	return given + " " + family, nil
}

// classify 用名字的第一个词查询性别,失败只记录日志。
// 分类器对未知名字返回空标签,视为没有分类结果
func (e *extractor) classify(ctx context.Context, name string) model.Optional[model.Gender] {
	fields := strings.Fields(name)
	if len(fields) == 0 || e.classifier == nil {
		return model.Absent[model.Gender]()
	}
	g, err := e.classifier.Classify(ctx, fields[0])
	if err != nil {
		slog.WarnContext(ctx, "gender classification failed", "name", fields[0], "err", err)
		return model.Absent[model.Gender]()
	}
	if g.Label == "" {
		slog.DebugContext(ctx, "gender unknown", "name", fields[0], "probability", g.Probability)
		return model.Absent[model.Gender]()
	}
	return model.Found(g)
}

// lastAuthor 姓名和性别一起出现或一起缺失
func (e *extractor) lastAuthor(ctx context.Context, author render.Element, article model.ArticleRef) model.Optional[model.Author] {
	name, err := e.authorName(ctx, author)
	if err != nil {
		slog.WarnContext(ctx, "last author section absent", "article", article.URL, "err", err)
		return model.Absent[model.Author]()
	}
	g := e.classify(ctx, name)
	if !g.IsFound() {
		slog.WarnContext(ctx, "last author dropped without classification", "article", article.URL, "name", name)
		return model.Absent[model.Author]()
	}
	return model.Found(model.Author{Name: name, Gender: g})
}

func (e *extractor) affiliation(ctx context.Context, aff render.Element) model.Optional[string] {
	el, err := aff.FindOne(ctx, e.selectors.AffiliationName)
	if err != nil {
		return model.Absent[string]()
	}
	text, err := el.TextContent(ctx)
	if err != nil {
		return model.Absent[string]()
	}
	return model.Found(strings.TrimSpace(text))
}

// figures 页面中每个图表会出现两次,只保留前 floor(n/2) 个
func (e *extractor) figures(ctx context.Context, page render.Session, selector string, withLink bool, article model.ArticleRef) []model.Figure {
	all, err := page.FindMany(ctx, selector)
	if err != nil {
		slog.WarnContext(ctx, "figures unavailable", "article", article.URL, "selector", selector, "err", err)
		return nil
	}
	kept := all[:len(all)/2]
	if len(kept) == 0 {
		return nil
	}

	out := make([]model.Figure, 0, len(kept))
	for _, fig := range kept {
		var f model.Figure
		if el, err := fig.FindOne(ctx, e.selectors.FigCaption); err == nil {
			if text, err := el.Text(ctx); err == nil {
				f.Caption = model.Found(text)
			}
		} else if !errors.Is(err, render.ErrNotFound) {
			slog.WarnContext(ctx, "figure caption unreadable", "article", article.URL, "err", err)
		}
		if withLink {
			if el, err := fig.FindOne(ctx, e.selectors.FigImage); err == nil {
				if src, ok, err := render.AbsAttribute(ctx, page, el, "src"); err == nil && ok {
					f.Link = model.Found(src)
				}
			}
		}
		out = append(out, f)
	}
	return out
}
