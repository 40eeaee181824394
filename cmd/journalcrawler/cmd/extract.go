package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/LouYuanbo1/journalcrawler/internal/config"
	"github.com/LouYuanbo1/journalcrawler/internal/domain/model"
	"github.com/LouYuanbo1/journalcrawler/internal/infra/gender"
	"github.com/LouYuanbo1/journalcrawler/internal/infra/render"
	"github.com/LouYuanbo1/journalcrawler/internal/service/dataset"
	"github.com/LouYuanbo1/journalcrawler/internal/service/extractor"
)

var (
	extractURL    string
	extractGender bool
)

var extractCmd = &cobra.Command{
	Use:   "extract <article.html>",
	Short: "Extract one record from a saved article page",
	Long: `Run the record extractor over an article page saved to disk and print
the resulting row. Useful to check selector overrides without a browser.

Examples:
  journalcrawler extract saved/article.html --url https://journals.sagepub.com/doi/full/10.1177/0956797620904990`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return extractFile(cmd.Context(), appcfg, args[0], cmd.OutOrStdout())
	},
}

func extractFile(ctx context.Context, cfg *config.Config, path string, w io.Writer) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	location := extractURL
	if location == "" {
		location = "file://" + path
	}
	snap, err := render.NewSnapshot(location, f)
	if err != nil {
		return err
	}

	var classifier gender.Classifier
	if extractGender {
		if classifier, err = gender.InitGenderizeClassifier(cfg); err != nil {
			return err
		}
	}
	ex := extractor.InitExtractor(classifier, cfg.SelectorSet(), cfg.TraversalParam().Scroll)
	rec, err := ex.Extract(ctx, snap, model.ArticleRef{URL: location})
	if err != nil {
		return fmt.Errorf("抽取失败: %w", err)
	}
	renderRow(w, dataset.Empty().Append(rec).Finalize())
	return nil
}

// renderRow 单行数据竖着打印,一列一行
func renderRow(w io.Writer, t dataset.Table) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleRounded)
	tw.Style().Format.Header = text.FormatDefault
	tw.AppendHeader(table.Row{"Column", "Value"})
	for i, col := range t.Columns {
		for _, row := range t.Rows {
			if row[i] == dataset.NotAvailable {
				continue
			}
			tw.AppendRow(table.Row{col, row[i]})
		}
	}
	tw.Render()
}

func init() {
	extractCmd.Flags().StringVar(&extractURL, "url", "", "original URL of the page, used to resolve relative links")
	extractCmd.Flags().BoolVar(&extractGender, "gender", false, "query the gender classifier for author names")
	rootCmd.AddCommand(extractCmd)
}
