package cmd

import (
	"fmt"
	"strings"

	"github.com/elastic/go-elasticsearch/v9/typedapi/types"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var searchSize int

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search harvested articles in Elasticsearch",
	Long: `Full-text search over titles, authors and figure captions of the
articles indexed by "run" when elasticsearch.enabled is set.

Examples:
  journalcrawler search "working memory"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := initArticleClient(appcfg)
		if err != nil {
			return err
		}
		query := &types.Query{
			MultiMatch: &types.MultiMatchQuery{
				Query:  strings.Join(args, " "),
				Fields: []string{"title^3", "first_author", "last_author", "image_captions", "table_captions"},
			},
		}
		docs, total, err := client.SearchDoc(cmd.Context(), query, 0, searchSize)
		if err != nil {
			return err
		}
		if len(docs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No results found")
			return nil
		}

		tw := table.NewWriter()
		tw.SetOutputMirror(cmd.OutOrStdout())
		tw.SetStyle(table.StyleRounded)
		tw.AppendHeader(table.Row{"Year", "Title", "First author", "DOI"})
		for _, doc := range docs {
			tw.AppendRow(table.Row{doc.Year, doc.Title, doc.FirstAuthor, doc.DOI})
		}
		tw.AppendFooter(table.Row{"", fmt.Sprintf("%d of %d", len(docs), total)})
		tw.Render()
		return nil
	},
}

func init() {
	searchCmd.Flags().IntVarP(&searchSize, "size", "n", 10, "number of results")
	rootCmd.AddCommand(searchCmd)
}
