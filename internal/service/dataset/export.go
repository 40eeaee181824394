package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/xuri/excelize/v2"
)

// numericColumns are written as numbers to spreadsheets when they parse as one.
var numericColumns = map[string]bool{
	ColAuthorCount:      true,
	ColFirstProbability: true,
	ColLastProbability:  true,
	ColImageCount:       true,
	ColTableCount:       true,
}

// Export writes the table to path in the format given by its extension.
func Export(path, sheet string, t Table) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("创建输出目录失败: %w", err)
		}
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return WriteXLSX(path, sheet, t)
	case ".csv":
		return writeFile(path, t, WriteCSV)
	case ".md":
		return writeFile(path, t, WriteMarkdown)
	default:
		return fmt.Errorf("unsupported output format %q", filepath.Ext(path))
	}
}

func writeFile(path string, t Table, write func(io.Writer, Table) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("创建输出文件失败: %w", err)
	}
	if err := write(f, t); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func WriteXLSX(path, sheet string, t Table) error {
	f := excelize.NewFile()
	defer f.Close()

	if sheet == "" {
		sheet = "Sheet1"
	}
	if sheet != "Sheet1" {
		if err := f.SetSheetName("Sheet1", sheet); err != nil {
			return fmt.Errorf("重命名工作表失败: %w", err)
		}
	}

	header := make([]any, len(t.Columns))
	for i, col := range t.Columns {
		header[i] = col
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("写入表头失败: %w", err)
	}

	for r, row := range t.Rows {
		cells := make([]any, len(row))
		for i, v := range row {
			cells[i] = xlsxValue(t.Columns[i], v)
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
			return fmt.Errorf("写入第 %d 行失败: %w", r+1, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("保存 %s 失败: %w", path, err)
	}
	return nil
}

func xlsxValue(col, v string) any {
	if !numericColumns[col] {
		return v
	}
	if n, err := strconv.ParseFloat(v, 64); err == nil {
		return n
	}
	return v
}

func WriteCSV(w io.Writer, t Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return err
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return fmt.Errorf("写入 CSV 失败: %w", err)
	}
	return nil
}

func WriteMarkdown(w io.Writer, t Table) error {
	tw := newTableWriter(t, table.StyleDefault)
	_, err := io.WriteString(w, tw.RenderMarkdown()+"\n")
	return err
}

// Render prints the table to w in the console style.
func Render(w io.Writer, t Table) {
	tw := newTableWriter(t, table.StyleRounded)
	tw.SetOutputMirror(w)
	tw.Render()
}

// 表头保持列名原样,go-pretty 默认会转成大写
func newTableWriter(t Table, style table.Style) table.Writer {
	tw := table.NewWriter()
	tw.SetStyle(style)
	tw.Style().Format.Header = text.FormatDefault

	header := make(table.Row, len(t.Columns))
	for i, col := range t.Columns {
		header[i] = col
	}
	tw.AppendHeader(header)

	rows := make([]table.Row, 0, len(t.Rows))
	for _, row := range t.Rows {
		r := make(table.Row, len(row))
		for i, v := range row {
			r[i] = v
		}
		rows = append(rows, r)
	}
	tw.AppendRows(rows)
	return tw
}
