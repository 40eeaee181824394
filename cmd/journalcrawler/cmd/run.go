package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/LouYuanbo1/journalcrawler/internal/config"
	"github.com/LouYuanbo1/journalcrawler/internal/domain/model"
	"github.com/LouYuanbo1/journalcrawler/internal/infra/download"
	"github.com/LouYuanbo1/journalcrawler/internal/infra/embedding"
	"github.com/LouYuanbo1/journalcrawler/internal/infra/gender"
	"github.com/LouYuanbo1/journalcrawler/internal/infra/persistence/es"
	"github.com/LouYuanbo1/journalcrawler/internal/infra/persistence/journal"
	"github.com/LouYuanbo1/journalcrawler/internal/infra/render"
	"github.com/LouYuanbo1/journalcrawler/internal/service/asset"
	"github.com/LouYuanbo1/journalcrawler/internal/service/dataset"
	"github.com/LouYuanbo1/journalcrawler/internal/service/extractor"
	"github.com/LouYuanbo1/journalcrawler/internal/service/harvest"
	"github.com/LouYuanbo1/journalcrawler/internal/service/navigator"
	"github.com/LouYuanbo1/journalcrawler/internal/service/portal"
)

var skipLogin bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Crawl the whole archive and write the dataset",
	Long: `Sign in (when credentials are configured), open the issue archive and
walk every decade, year, issue and article. The finished table is written to
output.path; rows are also journaled to output.journal_db as they are produced
so an interrupted run can still be exported with "journalcrawler export".`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		return runHarvest(ctx, appcfg)
	},
}

func runHarvest(ctx context.Context, cfg *config.Config) error {
	launcher, err := initLaunchers(ctx, cfg)
	if err != nil {
		return err
	}
	defer launcher.Close()

	session, err := launcher.Primary(ctx)
	if err != nil {
		return fmt.Errorf("创建主会话失败: %w", err)
	}
	sel := cfg.SelectorSet()
	traversal := cfg.TraversalParam()

	p := portal.InitPortal(session, sel, portal.Options{LoginWait: cfg.LoginWait()})
	if cfg.HasCredentials() && !skipLogin {
		err := p.Login(ctx, portal.Credentials{
			LoginURL:    cfg.Journal.LoginURL,
			Institution: cfg.Journal.Institution,
			Email:       cfg.Journal.Email,
			Password:    cfg.Journal.Password,
		})
		if err != nil {
			return err
		}
	}
	if err := p.Land(ctx, cfg.Journal.BaseURL); err != nil {
		return err
	}

	classifier, err := gender.InitGenderizeClassifier(cfg)
	if err != nil {
		return err
	}

	var downloader asset.Downloader
	if cfg.Assets.Enabled {
		fetcher := download.InitFetcher(download.Options{
			ChunkSize:        cfg.Assets.ChunkSize,
			Timeout:          cfg.AssetTimeout(),
			CloudflareBypass: cfg.Assets.CloudflareBypass,
		})
		downloader = asset.InitDownloader(launcher, fetcher, asset.Options{
			ImageRoot: cfg.Assets.ImageRoot,
			UserAgent: cfg.Assets.UserAgent,
			Token: asset.TokenPolicy{
				HeaderName: cfg.Assets.CookieHeaderName,
				Selection:  cfg.Assets.CookieSelection,
				CookieName: cfg.Assets.CookieName,
			},
			Concurrency: cfg.Assets.Concurrency,
		})
	}

	sinks, err := initSinks(ctx, cfg)
	if err != nil {
		return err
	}

	pipeline := harvest.InitPipeline(
		session,
		navigator.InitNavigator(session, sel, traversal),
		extractor.InitExtractor(classifier, sel, traversal.Scroll),
		downloader,
		sinks...,
	)
	ds, sum, runErr := pipeline.Run(ctx)
	sum.Render(os.Stdout)

	// 中途失败也导出已经完成的行
	if err := dataset.Export(cfg.Output.Path, cfg.Output.Sheet, ds.Finalize()); err != nil {
		return errors.Join(runErr, err)
	}
	slog.InfoContext(ctx, "dataset written", "path", cfg.Output.Path, "rows", ds.Len())
	return runErr
}

func initLaunchers(ctx context.Context, cfg *config.Config) (render.Launcher, error) {
	primary, err := render.InitLauncher(ctx, cfg, cfg.Render.Backend)
	if err != nil {
		return nil, err
	}
	if cfg.Render.TokenBackend == cfg.Render.Backend {
		return primary, nil
	}
	token, err := render.InitLauncher(ctx, cfg, cfg.Render.TokenBackend)
	if err != nil {
		primary.Close()
		return nil, err
	}
	return render.Split(primary, token), nil
}

var newJournalSink = harvest.NewJournalSink

// initSinks 中途失败时关闭已经创建的 sink
func initSinks(ctx context.Context, cfg *config.Config) (sinks []harvest.Sink, err error) {
	defer func() {
		if err == nil {
			return
		}
		for _, s := range sinks {
			if closeErr := s.Close(ctx); closeErr != nil {
				slog.WarnContext(ctx, "close sink failed", "sink", s.Name(), "err", closeErr)
			}
		}
		sinks = nil
	}()

	if cfg.Output.JournalDB != "" {
		j, err := journal.Open(ctx, cfg.Output.JournalDB)
		if err != nil {
			return sinks, err
		}
		runID := time.Now().Format("20060102-150405")
		slog.InfoContext(ctx, "journaling rows", "db", cfg.Output.JournalDB, "run", runID)
		sinks = append(sinks, newJournalSink(j, runID))
	}

	if cfg.Elasticsearch.Enabled {
		client, err := initArticleClient(cfg)
		if err != nil {
			return sinks, err
		}
		if err := client.CreateIndexWithMapping(ctx); err != nil {
			return sinks, err
		}
		var embedder embedding.Embedder
		if cfg.Embedder.Enabled {
			embedder, err = embedding.InitEmbedder(ctx, cfg)
			if err != nil {
				return sinks, fmt.Errorf("初始化Embedder失败: %w", err)
			}
		}
		sinks = append(sinks, es.NewRecordSink(client, embedder, cfg.Elasticsearch.Index, cfg.Embedder.Dims, cfg.Embedder.BatchSize))
	}
	return sinks, nil
}

func initArticleClient(cfg *config.Config) (es.TypedEsClient[*model.ArticleDoc], error) {
	dims := 0
	if cfg.Embedder.Enabled {
		dims = cfg.Embedder.Dims
	}
	schema := &model.ArticleDoc{Index: cfg.Elasticsearch.Index, Dims: dims}
	return es.InitTypedEsClient(cfg, schema, func() *model.ArticleDoc { return &model.ArticleDoc{} })
}

func init() {
	runCmd.Flags().BoolVar(&skipLogin, "skip-login", false, "do not run the institutional sign-in even if credentials are configured")
	rootCmd.AddCommand(runCmd)
}
