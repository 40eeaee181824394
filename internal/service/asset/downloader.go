// Package asset 下载文章引用的受保护图片。每个资源都在一个全新的隔离会话中
// 重新协商 cookie 令牌
package asset

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/LouYuanbo1/journalcrawler/internal/domain/model"
	"github.com/LouYuanbo1/journalcrawler/internal/infra/download"
	"github.com/LouYuanbo1/journalcrawler/internal/infra/render"
	"golang.org/x/sync/errgroup"
)

const (
	SelectFirst = "first"
	SelectNamed = "named"
)

var ErrNoToken = errors.New("no token cookie issued")

// TokenPolicy decides which cookie of the isolated session becomes the token
// and under which name it is sent back.
type TokenPolicy struct {
	HeaderName string
	Selection  string
	CookieName string
}

// Select returns the token value from cookies.
func (p TokenPolicy) Select(cookies []render.Cookie) (string, error) {
	if p.Selection == SelectNamed {
		for _, c := range cookies {
			if c.Name == p.CookieName {
				return c.Value, nil
			}
		}
		return "", fmt.Errorf("%w: cookie %q not set", ErrNoToken, p.CookieName)
	}
	if len(cookies) == 0 {
		return "", ErrNoToken
	}
	return cookies[0].Value, nil
}

type Options struct {
	ImageRoot   string
	UserAgent   string
	Token       TokenPolicy
	Concurrency int
}

// Result 单篇文章的下载统计
type Result struct {
	Downloaded int
	Failed     int
}

type Downloader interface {
	// Download fetches one asset into ref.Dir and returns the written path.
	Download(ctx context.Context, ref model.AssetRef) (string, error)
	// DownloadAll fetches every image link of rec. A failed asset is logged
	// and does not stop the others.
	DownloadAll(ctx context.Context, rec model.Record) Result
}

type downloader struct {
	launcher render.Launcher
	fetcher  download.Fetcher
	opts     Options
}

func InitDownloader(launcher render.Launcher, fetcher download.Fetcher, opts Options) Downloader {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	return &downloader{launcher: launcher, fetcher: fetcher, opts: opts}
}

// token 打开隔离会话访问资源地址拿到 cookie,无论结果如何都会关闭会话
func (d *downloader) token(ctx context.Context, rawURL string) (string, error) {
	sess, err := d.launcher.Isolated(ctx)
	if err != nil {
		return "", fmt.Errorf("打开隔离会话失败: %w", err)
	}
	defer func() {
		if err := sess.Close(); err != nil {
			slog.WarnContext(ctx, "closing token session failed", "asset", rawURL, "err", err)
		}
	}()

	if err := sess.Load(ctx, rawURL); err != nil {
		return "", fmt.Errorf("令牌页面加载失败: %w", err)
	}
	cookies, err := sess.Cookies(ctx)
	if err != nil {
		return "", fmt.Errorf("读取 cookie 失败: %w", err)
	}
	return d.opts.Token.Select(cookies)
}

func (d *downloader) Download(ctx context.Context, ref model.AssetRef) (string, error) {
	if err := download.EnsureDir(ref.Dir); err != nil {
		return "", err
	}
	value, err := d.token(ctx, ref.URL)
	if err != nil {
		return "", &model.AssetFetchError{URL: ref.URL, Err: err}
	}
	headers := map[string]string{
		"User-Agent": d.opts.UserAgent,
		"Cookie":     d.opts.Token.HeaderName + "=" + value,
	}
	return d.fetcher.Fetch(ctx, ref.URL, ref.Dir, headers)
}

func (d *downloader) DownloadAll(ctx context.Context, rec model.Record) Result {
	refs := model.AssetRefs(d.opts.ImageRoot, rec)
	if len(refs) == 0 {
		return Result{}
	}
	if err := download.EnsureDir(refs[0].Dir); err != nil {
		slog.WarnContext(ctx, "asset directory unavailable", "article", rec.Article.URL, "err", err)
		return Result{Failed: len(refs)}
	}

	var ok, failed atomic.Int64
	var g errgroup.Group
	g.SetLimit(d.opts.Concurrency)
	for _, ref := range refs {
		g.Go(func() error {
			path, err := d.Download(ctx, ref)
			if err != nil {
				failed.Add(1)
				slog.WarnContext(ctx, "asset download failed", "article", rec.Article.URL, "asset", ref.URL, "err", err)
				return nil
			}
			ok.Add(1)
			slog.DebugContext(ctx, "asset saved", "asset", ref.URL, "path", path)
			return nil
		})
	}
	_ = g.Wait()
	return Result{Downloaded: int(ok.Load()), Failed: int(failed.Load())}
}
