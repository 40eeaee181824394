package harvest

import (
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
)

// Summary counts what a run visited and produced.
type Summary struct {
	Decades         int
	Years           int
	Issues          int
	ArticlesOK      int
	ArticlesSkipped int
	AssetsOK        int
	AssetsFailed    int
	SinkErrors      int
}

func (s Summary) Render(w io.Writer) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Stage", "Count"})
	tw.AppendRows([]table.Row{
		{"decades", s.Decades},
		{"years", s.Years},
		{"issues", s.Issues},
		{"articles extracted", s.ArticlesOK},
		{"articles skipped", s.ArticlesSkipped},
		{"assets downloaded", s.AssetsOK},
		{"assets failed", s.AssetsFailed},
		{"sink errors", s.SinkErrors},
	})
	tw.Render()
}
