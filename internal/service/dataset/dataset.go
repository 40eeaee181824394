package dataset

import (
	"fmt"
	"log/slog"
	"slices"
	"strconv"

	"github.com/LouYuanbo1/journalcrawler/internal/domain/model"
)

const (
	// Capacity is the number of indexed image and table slots in the schema.
	Capacity = 10
	// NotAvailable fills every unset cell at finalize time.
	NotAvailable = "Not Available"
)

const (
	ColTitle            = "Paper title"
	ColDOI              = "Paper DOI"
	ColPublicationDate  = "Publication Date"
	ColAuthorCount      = "Number of authors"
	ColFirstAuthor      = "Name of the first author"
	ColLastAuthor       = "Name of the last author"
	ColFirstGender      = "Gender of the first author"
	ColLastGender       = "Gender of the last author"
	ColFirstProbability = "First author gender probability"
	ColLastProbability  = "Last author gender probability"
	ColFirstAffiliation = "Affiliation of the first author"
	ColLastAffiliation  = "Affiliation of the last author"
	ColImageCount       = "Number of Images"
	ColTableCount       = "Number of Tables"
)

func ImageCaptionCol(i int) string { return fmt.Sprintf("Image %d caption", i) }
func ImageLinkCol(i int) string    { return fmt.Sprintf("Image %d Link", i) }
func TableCaptionCol(i int) string { return fmt.Sprintf("Table %d caption", i) }

var columns = buildColumns()

func buildColumns() []string {
	cols := []string{
		ColTitle,
		ColDOI,
		ColPublicationDate,
		ColAuthorCount,
		ColFirstAuthor,
		ColLastAuthor,
		ColFirstGender,
		ColLastGender,
		ColFirstProbability,
		ColLastProbability,
		ColFirstAffiliation,
		ColLastAffiliation,
		ColImageCount,
	}
	for i := 1; i <= Capacity; i++ {
		cols = append(cols, ImageCaptionCol(i))
	}
	for i := 1; i <= Capacity; i++ {
		cols = append(cols, ImageLinkCol(i))
	}
	cols = append(cols, ColTableCount)
	for i := 1; i <= Capacity; i++ {
		cols = append(cols, TableCaptionCol(i))
	}
	return cols
}

// Columns returns the fixed schema in output order.
func Columns() []string {
	return slices.Clone(columns)
}

// Row holds the set cells of one record. A missing key is an unset cell.
type Row map[string]string

// Dataset 追加写入的数据集;Append 返回新版本,旧版本保持不变
type Dataset struct {
	rows []Row
}

func Empty() Dataset {
	return Dataset{}
}

func (d Dataset) Append(rec model.Record) Dataset {
	return d.AppendRow(Cells(rec))
}

// AppendRow keeps only cells that belong to the schema.
func (d Dataset) AppendRow(row Row) Dataset {
	clean := make(Row, len(row))
	for _, col := range columns {
		if v, ok := row[col]; ok {
			clean[col] = v
		}
	}
	// Clip 保证 append 一定重新分配,不会写进旧版本共享的底层数组
	return Dataset{rows: append(slices.Clip(d.rows), clean)}
}

func (d Dataset) Len() int {
	return len(d.rows)
}

// Cells maps a record onto the schema. Slots beyond Capacity stay in the
// record but have no column.
func Cells(rec model.Record) Row {
	row := Row{
		ColTitle:           rec.Title,
		ColDOI:             rec.DOI,
		ColPublicationDate: rec.PublicationDate,
		ColAuthorCount:     strconv.Itoa(rec.AuthorCount),
		ColFirstAuthor:     rec.FirstAuthor.Name,
		ColImageCount:      strconv.Itoa(rec.ImageCount()),
		ColTableCount:      strconv.Itoa(rec.TableCount()),
	}
	setGender(row, ColFirstGender, ColFirstProbability, rec.FirstAuthor.Gender)
	setOptional(row, ColFirstAffiliation, rec.FirstAffiliation)

	// 最后作者的姓名、性别、概率、单位整体写入
	if last, ok := rec.LastAuthor.Get(); ok && labeled(last.Gender) {
		row[ColLastAuthor] = last.Name
		setGender(row, ColLastGender, ColLastProbability, last.Gender)
		setOptional(row, ColLastAffiliation, rec.LastAffiliation)
	}

	for i, img := range rec.Images {
		if i >= Capacity {
			slog.Warn("images beyond schema capacity dropped from row",
				"article", rec.Article.URL, "retained", len(rec.Images), "capacity", Capacity)
			break
		}
		setOptional(row, ImageCaptionCol(i+1), img.Caption)
		setOptional(row, ImageLinkCol(i+1), img.Link)
	}
	for i, tbl := range rec.Tables {
		if i >= Capacity {
			slog.Warn("tables beyond schema capacity dropped from row",
				"article", rec.Article.URL, "retained", len(rec.Tables), "capacity", Capacity)
			break
		}
		setOptional(row, TableCaptionCol(i+1), tbl.Caption)
	}
	return row
}

func setOptional(row Row, col string, v model.Optional[string]) {
	if s, ok := v.Get(); ok {
		row[col] = s
	}
}

func labeled(g model.Optional[model.Gender]) bool {
	gender, ok := g.Get()
	return ok && gender.Label != ""
}

// 性别和概率一起写入或一起缺失
func setGender(row Row, labelCol, probCol string, g model.Optional[model.Gender]) {
	if !labeled(g) {
		return
	}
	gender, _ := g.Get()
	row[labelCol] = gender.Label
	row[probCol] = strconv.FormatFloat(gender.Probability, 'f', -1, 64)
}

// Table is a finalized dataset: every cell is set.
type Table struct {
	Columns []string
	Rows    [][]string
}

// Finalize fills every unset cell with NotAvailable.
func (d Dataset) Finalize() Table {
	t := Table{Columns: Columns(), Rows: make([][]string, 0, len(d.rows))}
	for _, row := range d.rows {
		out := make([]string, len(columns))
		for i, col := range columns {
			if v, ok := row[col]; ok {
				out[i] = v
			} else {
				out[i] = NotAvailable
			}
		}
		t.Rows = append(t.Rows, out)
	}
	return t
}

// Column returns the cells of one column, top to bottom.
func (t Table) Column(name string) ([]string, bool) {
	idx := slices.Index(t.Columns, name)
	if idx < 0 {
		return nil, false
	}
	out := make([]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		out = append(out, row[idx])
	}
	return out, true
}
