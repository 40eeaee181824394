package extractor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/LouYuanbo1/journalcrawler/internal/domain/model"
	"github.com/LouYuanbo1/journalcrawler/internal/infra/render"
	"github.com/LouYuanbo1/journalcrawler/internal/infra/render/rendertest"
	"github.com/LouYuanbo1/journalcrawler/internal/service/dataset"
	"github.com/LouYuanbo1/journalcrawler/param"
	"github.com/stretchr/testify/require"
)

const articleURL = "https://journals.example.org/doi/full/10.1177/0001"

type fakeClassifier struct {
	calls   []string
	fail    map[string]error
	unknown map[string]bool
}

func (f *fakeClassifier) Classify(ctx context.Context, firstName string) (model.Gender, error) {
	f.calls = append(f.calls, firstName)
	if err := f.fail[firstName]; err != nil {
		return model.Gender{}, err
	}
	if f.unknown[firstName] {
		return model.Gender{}, nil
	}
	if strings.HasSuffix(firstName, "a") {
		return model.Gender{Label: "female", Probability: 0.97}, nil
	}
	return model.Gender{Label: "male", Probability: 0.91}, nil
}

type author struct{ given, family string }

type page struct {
	title   string
	doi     string
	date    string
	authors []author
	affs    []string
	images  int
	tables  int
}

func (p page) html() string {
	var b strings.Builder
	b.WriteString("<html><body>")
	if p.title != "" {
		fmt.Fprintf(&b, `<h1 property="name">%s</h1>`, p.title)
	}
	if p.doi != "" {
		fmt.Fprintf(&b, `<div class="doi"><a href="%s">%s</a></div>`, p.doi, p.doi)
	}
	if p.date != "" {
		fmt.Fprintf(&b, `<div class="meta-panel__onlineDate">%s</div>`, p.date)
	}
	for _, a := range p.authors {
		b.WriteString(`<span property="author">`)
		if a.given != "" {
			fmt.Fprintf(&b, `<span property="givenName">%s</span>`, a.given)
		}
		if a.family != "" {
			fmt.Fprintf(&b, `<span property="familyName">%s</span>`, a.family)
		}
		b.WriteString(`</span>`)
	}
	for _, aff := range p.affs {
		fmt.Fprintf(&b, `<div property="affiliation"><span property="name">%s</span></div>`, aff)
	}
	for i := 1; i <= p.images; i++ {
		fmt.Fprintf(&b, `<figure class="graphic"><img src="/na101/fig%d.jpg"><figcaption>Figure %d.  Caption</figcaption></figure>`, i, i)
	}
	for i := 1; i <= p.tables; i++ {
		fmt.Fprintf(&b, `<figure class="table"><figcaption>Table %d.</figcaption></figure>`, i)
	}
	b.WriteString("</body></html>")
	return b.String()
}

func fullPage() page {
	return page{
		title: "Attention and working memory",
		doi:   "https://doi.org/10.1177/0001",
		date:  "First published online March 3, 2020",
		authors: []author{
			{"Maria", "Lopez"},
			{"Noam", "Levi"},
			{"David", "Cohen"},
		},
		affs:   []string{" Bar-Ilan University ", "Hebrew University", "Tel Aviv University"},
		images: 7,
		tables: 5,
	}
}

func load(t *testing.T, p page) *rendertest.Session {
	t.Helper()
	site := rendertest.NewSite().AddPage(articleURL, p.html())
	s := rendertest.NewSession(site)
	require.NoError(t, s.Load(context.Background(), articleURL))
	return s
}

func extract(t *testing.T, s render.Session, classifier *fakeClassifier) (model.Record, error) {
	t.Helper()
	ex := InitExtractor(classifier, param.DefaultSelectors(), param.Scroll{})
	return ex.Extract(context.Background(), s, model.ArticleRef{Year: "2020", URL: articleURL})
}

func TestExtract_FullArticle(t *testing.T) {
	classifier := &fakeClassifier{}
	rec, err := extract(t, load(t, fullPage()), classifier)
	require.NoError(t, err)

	require.Equal(t, "Attention and working memory", rec.Title)
	require.Equal(t, "https://doi.org/10.1177/0001", rec.DOI)
	require.Equal(t, "March 3, 2020", rec.PublicationDate)
	require.Equal(t, 3, rec.AuthorCount)
	require.Equal(t, "Maria Lopez", rec.FirstAuthor.Name)
	require.Equal(t, model.Found(model.Gender{Label: "female", Probability: 0.97}), rec.FirstAuthor.Gender)
	require.Equal(t, model.Found("Bar-Ilan University"), rec.FirstAffiliation)

	last, ok := rec.LastAuthor.Get()
	require.True(t, ok)
	require.Equal(t, "David Cohen", last.Name)
	require.Equal(t, model.Found(model.Gender{Label: "male", Probability: 0.91}), last.Gender)
	require.Equal(t, model.Found("Tel Aviv University"), rec.LastAffiliation)
	require.Equal(t, []string{"Maria", "David"}, classifier.calls)

	// 7 张图保留 3 张,5 张表保留 2 张
	require.Equal(t, 3, rec.ImageCount())
	require.Equal(t, 2, rec.TableCount())
	require.Equal(t, model.Found("Figure 1. Caption"), rec.Images[0].Caption)
	require.Equal(t, model.Found("https://journals.example.org/na101/fig3.jpg"), rec.Images[2].Link)
	require.Equal(t, model.Found("Table 2."), rec.Tables[1].Caption)
	require.False(t, rec.Tables[0].Link.IsFound())
	require.Equal(t, "2020", rec.Article.Year)
}

func TestExtract_FigureHalving(t *testing.T) {
	for _, n := range []int{0, 1, 2, 3, 4, 7, 21} {
		t.Run(fmt.Sprint(n), func(t *testing.T) {
			p := fullPage()
			p.images = n
			rec, err := extract(t, load(t, p), &fakeClassifier{})
			require.NoError(t, err)
			require.Equal(t, n/2, rec.ImageCount())
			for i, img := range rec.Images {
				require.Equal(t, model.Found(fmt.Sprintf("https://journals.example.org/na101/fig%d.jpg", i+1)), img.Link)
			}
		})
	}
}

func TestExtract_SingleAuthor(t *testing.T) {
	p := fullPage()
	p.authors = p.authors[:1]
	classifier := &fakeClassifier{}

	rec, err := extract(t, load(t, p), classifier)
	require.NoError(t, err)
	require.Equal(t, 1, rec.AuthorCount)
	require.False(t, rec.LastAuthor.IsFound())
	require.False(t, rec.LastAffiliation.IsFound())
	require.Equal(t, []string{"Maria"}, classifier.calls)
}

func TestExtract_LastAuthorSectionIsAtomic(t *testing.T) {
	t.Run("name incomplete", func(t *testing.T) {
		p := fullPage()
		p.authors[2] = author{given: "David"}
		rec, err := extract(t, load(t, p), &fakeClassifier{})
		require.NoError(t, err)
		require.Equal(t, 3, rec.AuthorCount)
		require.False(t, rec.LastAuthor.IsFound())
		require.False(t, rec.LastAffiliation.IsFound())
		// 最后作者缺失不影响图表
		require.Equal(t, 3, rec.ImageCount())
	})

	t.Run("classifier fails", func(t *testing.T) {
		classifier := &fakeClassifier{fail: map[string]error{"David": errors.New("429")}}
		rec, err := extract(t, load(t, fullPage()), classifier)
		require.NoError(t, err)
		require.False(t, rec.LastAuthor.IsFound())
		require.True(t, rec.FirstAuthor.Gender.IsFound())
	})

	t.Run("name unknown to classifier", func(t *testing.T) {
		classifier := &fakeClassifier{unknown: map[string]bool{"David": true}}
		rec, err := extract(t, load(t, fullPage()), classifier)
		require.NoError(t, err)
		require.False(t, rec.LastAuthor.IsFound())
		require.False(t, rec.LastAffiliation.IsFound())

		row := dataset.Empty().Append(rec).Finalize()
		for _, col := range []string{dataset.ColLastAuthor, dataset.ColLastGender, dataset.ColLastProbability} {
			cells, ok := row.Column(col)
			require.True(t, ok)
			require.Equal(t, []string{dataset.NotAvailable}, cells, col)
		}
	})
}

func TestExtract_FirstAuthorUnknownGender(t *testing.T) {
	classifier := &fakeClassifier{unknown: map[string]bool{"Maria": true}}
	rec, err := extract(t, load(t, fullPage()), classifier)
	require.NoError(t, err)
	require.Equal(t, "Maria Lopez", rec.FirstAuthor.Name)
	require.False(t, rec.FirstAuthor.Gender.IsFound())
	require.True(t, rec.LastAuthor.IsFound())
}

func TestExtract_FirstAuthorClassifierFailureIsNotFatal(t *testing.T) {
	classifier := &fakeClassifier{fail: map[string]error{"Maria": errors.New("quota")}}
	rec, err := extract(t, load(t, fullPage()), classifier)
	require.NoError(t, err)
	require.Equal(t, "Maria Lopez", rec.FirstAuthor.Name)
	require.False(t, rec.FirstAuthor.Gender.IsFound())
}

func TestExtract_NoAffiliations(t *testing.T) {
	p := fullPage()
	p.affs = nil
	rec, err := extract(t, load(t, p), &fakeClassifier{})
	require.NoError(t, err)
	require.False(t, rec.FirstAffiliation.IsFound())
	require.False(t, rec.LastAffiliation.IsFound())
	require.True(t, rec.LastAuthor.IsFound())
}

func TestExtract_RequiredFields(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(p *page)
		field string
	}{
		{"title", func(p *page) { p.title = "" }, "title"},
		{"doi", func(p *page) { p.doi = "" }, "doi"},
		{"date", func(p *page) { p.date = "" }, "publication date"},
		{"date prefix", func(p *page) { p.date = "March 3, 2020" }, "publication date"},
		{"authors", func(p *page) { p.authors = nil }, "authors"},
		{"first author name", func(p *page) { p.authors[0] = author{family: "Lopez"} }, "first author"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := fullPage()
			tt.edit(&p)
			_, err := extract(t, load(t, p), &fakeClassifier{})
			require.ErrorIs(t, err, model.ErrRequiredFieldMissing)

			var rfe *model.RequiredFieldError
			require.True(t, errors.As(err, &rfe))
			require.Equal(t, tt.field, rfe.Field)
		})
	}
}

func TestExtract_Scrolls(t *testing.T) {
	site := rendertest.NewSite().AddPage(articleURL, fullPage().html())
	s := rendertest.NewSession(site)
	require.NoError(t, s.Load(context.Background(), articleURL))

	ex := InitExtractor(&fakeClassifier{}, param.DefaultSelectors(), param.Scroll{ScrollTimes: 3})
	_, err := ex.Extract(context.Background(), s, model.ArticleRef{URL: articleURL})
	require.NoError(t, err)

	scripts := site.Scripts()
	require.Len(t, scripts, 3)
	for _, src := range scripts {
		require.True(t, strings.HasPrefix(src, "() => window.scrollTo"), src)
	}
}

func TestExtract_Snapshot(t *testing.T) {
	snap, err := render.NewSnapshot(articleURL, strings.NewReader(fullPage().html()))
	require.NoError(t, err)

	ex := InitExtractor(&fakeClassifier{}, param.DefaultSelectors(), param.Scroll{ScrollTimes: 2})
	rec, err := ex.Extract(context.Background(), snap, model.ArticleRef{URL: articleURL})
	require.NoError(t, err)
	require.Equal(t, "Attention and working memory", rec.Title)
	require.Equal(t, model.Found("https://journals.example.org/na101/fig1.jpg"), rec.Images[0].Link)
}
