// Package harvest 顶层驱动: 遍历目录、抽取每篇文章、下载图片并累积数据集
package harvest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/LouYuanbo1/journalcrawler/internal/domain/model"
	"github.com/LouYuanbo1/journalcrawler/internal/infra/render"
	"github.com/LouYuanbo1/journalcrawler/internal/service/asset"
	"github.com/LouYuanbo1/journalcrawler/internal/service/dataset"
	"github.com/LouYuanbo1/journalcrawler/internal/service/extractor"
	"github.com/LouYuanbo1/journalcrawler/internal/service/navigator"
)

type Pipeline struct {
	session    render.Session
	navigator  navigator.Navigator
	extractor  extractor.Extractor
	downloader asset.Downloader
	sinks      []Sink
}

// InitPipeline downloader may be nil to skip assets.
func InitPipeline(
	session render.Session,
	nav navigator.Navigator,
	ex extractor.Extractor,
	downloader asset.Downloader,
	sinks ...Sink,
) *Pipeline {
	return &Pipeline{
		session:    session,
		navigator:  nav,
		extractor:  ex,
		downloader: downloader,
		sinks:      sinks,
	}
}

// Run walks the whole catalog from the issue archive page. On a fatal error
// the rows accepted so far are still returned.
func (p *Pipeline) Run(ctx context.Context) (ds dataset.Dataset, sum Summary, err error) {
	ds = dataset.Empty()
	defer p.closeSinks(ctx, &sum)

	decades, err := p.navigator.ListDecades(ctx)
	if err != nil {
		return ds, sum, err
	}
	slog.InfoContext(ctx, "decades listed", "count", len(decades))

	for _, decade := range decades {
		if err := p.navigator.EnterDecade(ctx, decade); err != nil {
			return ds, sum, err
		}
		sum.Decades++

		years, err := p.navigator.ListYears(ctx)
		if err != nil {
			return ds, sum, err
		}
		for _, yearNode := range years {
			year, err := p.navigator.EnterYear(ctx, yearNode)
			if err != nil {
				return ds, sum, err
			}
			sum.Years++

			issues, err := p.navigator.ListIssues(ctx, year)
			if err != nil {
				return ds, sum, err
			}
			for _, issue := range issues {
				err := p.navigator.WithIssueContext(ctx, issue, func(ctx context.Context) error {
					var err error
					ds, err = p.harvestIssue(ctx, ds, issue, &sum)
					return err
				})
				if err != nil {
					return ds, sum, fmt.Errorf("期刊 %s 处理失败: %w", issue.URL, err)
				}
				sum.Issues++
			}
		}
	}
	return ds, sum, nil
}

func (p *Pipeline) harvestIssue(ctx context.Context, ds dataset.Dataset, issue model.IssueRef, sum *Summary) (dataset.Dataset, error) {
	articles, err := p.navigator.ListArticles(ctx, issue)
	if err != nil {
		return ds, err
	}
	slog.InfoContext(ctx, "articles listed", "issue", issue.URL, "count", len(articles))

	for _, article := range articles {
		rec, err := p.harvestArticle(ctx, article)
		if err != nil {
			if ctx.Err() != nil {
				return ds, ctx.Err()
			}
			// 单篇文章失败只跳过该文章
			sum.ArticlesSkipped++
			slog.WarnContext(ctx, "article skipped",
				"article", article.URL,
				"required_field_missing", errors.Is(err, model.ErrRequiredFieldMissing),
				"err", err)
			continue
		}
		sum.ArticlesOK++

		if p.downloader != nil {
			res := p.downloader.DownloadAll(ctx, rec)
			sum.AssetsOK += res.Downloaded
			sum.AssetsFailed += res.Failed
		}

		ds = ds.Append(rec)
		p.writeSinks(ctx, rec, sum)
	}
	return ds, nil
}

func (p *Pipeline) harvestArticle(ctx context.Context, article model.ArticleRef) (model.Record, error) {
	if err := p.session.Load(ctx, article.URL); err != nil {
		return model.Record{}, fmt.Errorf("打开文章失败: %w", err)
	}
	return p.extractor.Extract(ctx, p.session, article)
}

func (p *Pipeline) writeSinks(ctx context.Context, rec model.Record, sum *Summary) {
	for _, sink := range p.sinks {
		if err := sink.Write(ctx, rec); err != nil {
			sum.SinkErrors++
			slog.WarnContext(ctx, "sink write failed", "sink", sink.Name(), "article", rec.Article.URL, "err", err)
		}
	}
}

func (p *Pipeline) closeSinks(ctx context.Context, sum *Summary) {
	ctx = context.WithoutCancel(ctx)
	for _, sink := range p.sinks {
		if err := sink.Close(ctx); err != nil {
			sum.SinkErrors++
			slog.WarnContext(ctx, "sink close failed", "sink", sink.Name(), "err", err)
		}
	}
}
