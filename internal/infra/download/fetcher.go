package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/LouYuanbo1/journalcrawler/internal/domain/model"
	"github.com/go-resty/resty/v2"
)

const DefaultChunkSize = 8192

// Fetcher 以流的方式把 url 写到 dir/basename(url),非 2xx 状态返回 *model.AssetFetchError
type Fetcher interface {
	Fetch(ctx context.Context, rawURL, dir string, headers map[string]string) (string, error)
}

type Options struct {
	ChunkSize        int
	Timeout          time.Duration
	CloudflareBypass bool
}

type restyFetcher struct {
	client    *resty.Client
	chunkSize int
}

func InitFetcher(opts Options) Fetcher {
	client := resty.New()
	if opts.CloudflareBypass {
		client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	}
	if opts.Timeout > 0 {
		client.SetTimeout(opts.Timeout)
	}
	chunkSize := opts.ChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &restyFetcher{client: client, chunkSize: chunkSize}
}

// EnsureDir 目录已存在时不报错
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir %s: %w", dir, err)
	}
	return nil
}

// FileName is the last segment of the URL path, query excluded.
func FileName(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	name := path.Base(u.Path)
	if name == "/" || name == "." || name == "" {
		return "", fmt.Errorf("url %s has no file name", rawURL)
	}
	return name, nil
}

func (f *restyFetcher) Fetch(ctx context.Context, rawURL, dir string, headers map[string]string) (string, error) {
	name, err := FileName(rawURL)
	if err != nil {
		return "", &model.AssetFetchError{URL: rawURL, Err: err}
	}

	resp, err := f.client.R().
		SetContext(ctx).
		SetHeaders(headers).
		SetDoNotParseResponse(true).
		Get(rawURL)
	if err != nil {
		return "", &model.AssetFetchError{URL: rawURL, Err: err}
	}
	body := resp.RawBody()
	defer body.Close()

	if !resp.IsSuccess() {
		return "", &model.AssetFetchError{URL: rawURL, StatusCode: resp.StatusCode()}
	}

	dest := filepath.Join(dir, name)
	if err := f.writeStream(dest, body); err != nil {
		return "", &model.AssetFetchError{URL: rawURL, StatusCode: resp.StatusCode(), Err: err}
	}
	return dest, nil
}

// writeStream 按固定大小分块写入,失败时删除写了一半的文件
func (f *restyFetcher) writeStream(dest string, body io.Reader) (err error) {
	file, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := file.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			_ = os.Remove(dest)
		}
	}()

	buf := make([]byte, f.chunkSize)
	for {
		n, rerr := body.Read(buf)
		if n > 0 {
			if _, werr := file.Write(buf[:n]); werr != nil {
				return werr
			}
		}
		if errors.Is(rerr, io.EOF) {
			return nil
		}
		if rerr != nil {
			return rerr
		}
	}
}
