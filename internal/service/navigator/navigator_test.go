package navigator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/LouYuanbo1/journalcrawler/internal/domain/model"
	"github.com/LouYuanbo1/journalcrawler/internal/infra/render"
	"github.com/LouYuanbo1/journalcrawler/internal/infra/render/rendertest"
	"github.com/LouYuanbo1/journalcrawler/param"
	"github.com/stretchr/testify/require"
)

const loiURL = "https://journals.example.org/loi/abc"

const decadeList = `<ul class="tab__nav rlist loi__tab__nav loi__list">
  <li data-view="d2020">2020 - 2029</li>
  <li data-view="d2010">2010 - 2019</li>
</ul>`

const yearList = `<ul class="tab__nav rlist loi__tab__nav loi__list">
  <li data-view="y2021">2021</li>
  <li data-view="y2020">2020</li>
</ul>`

func pane(inner string) string {
	return `<html><body>` + decadeList +
		`<div class="tab__pane nested-tab active">` + yearList + inner + `</div></body></html>`
}

func newSite() *rendertest.Site {
	return rendertest.NewSite().
		AddPage(loiURL, `<html><body>`+decadeList+`</body></html>`).
		AddPage("d2020", pane("")).
		AddPage("d2010", `<html><body>`+decadeList+`<div class="tab__pane nested-tab active"><ul class="tab__nav rlist loi__tab__nav loi__list"><li>2019</li></ul></div></body></html>`).
		AddPage("y2021", pane(`<div id="loi-2021"><a class="loi__issue__link" href="/toc/abc/2021/1">1</a></div>`)).
		AddPage("y2020", pane(`<div id="loi-2020">
  <a class="loi__issue__link" href="/toc/abc/2020/3">3</a>
  <a class="loi__issue__link" href="/toc/abc/2020/2">2</a>
  <a class="loi__issue__link" href="https://journals.example.org/toc/abc/2020/1">1</a>
</div>`))
}

func newNavigator(t *testing.T, site *rendertest.Site, order param.IssueOrder) (Navigator, *rendertest.Session) {
	t.Helper()
	s := rendertest.NewSession(site)
	require.NoError(t, s.Load(context.Background(), loiURL))
	nav := InitNavigator(s, param.DefaultSelectors(), param.Traversal{WaitTimeout: time.Second, IssueOrder: order})
	return nav, s
}

func labels(nodes []model.HierarchyNode) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.Label)
	}
	return out
}

func TestListDecades(t *testing.T) {
	nav, _ := newNavigator(t, newSite(), param.IssueOrderOldestFirst)

	decades, err := nav.ListDecades(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"2020 - 2029", "2010 - 2019"}, labels(decades))
	require.Equal(t, model.LevelDecade, decades[1].Level)
	require.Equal(t, 1, decades[1].Position)
}

func TestListYears_TimeoutIsHierarchyError(t *testing.T) {
	nav, s := newNavigator(t, newSite(), param.IssueOrderOldestFirst)

	_, err := nav.ListYears(context.Background())
	require.ErrorIs(t, err, model.ErrHierarchyTimeout)
	require.ErrorIs(t, err, render.ErrWaitTimeout)

	var hte *model.HierarchyTimeoutError
	require.True(t, errors.As(err, &hte))
	require.Equal(t, model.LevelYear, hte.Level)
	require.Equal(t, 1, s.Waits())
}

func TestEnterYear_RefetchesAfterNavigation(t *testing.T) {
	ctx := context.Background()
	nav, _ := newNavigator(t, newSite(), param.IssueOrderOldestFirst)

	decades, err := nav.ListDecades(ctx)
	require.NoError(t, err)
	require.NoError(t, nav.EnterDecade(ctx, decades[0]))

	years, err := nav.ListYears(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"2021", "2020"}, labels(years))

	year, err := nav.EnterYear(ctx, years[0])
	require.NoError(t, err)
	require.Equal(t, "2021", year)

	// years[1] 的句柄已经过期,EnterYear 按位置重新取
	_, err = years[1].Handle.(render.Element).Text(ctx)
	require.ErrorIs(t, err, rendertest.ErrStale)

	year, err = nav.EnterYear(ctx, years[1])
	require.NoError(t, err)
	require.Equal(t, "2020", year)
}

func TestEnterDecade_SecondDecade(t *testing.T) {
	ctx := context.Background()
	nav, _ := newNavigator(t, newSite(), param.IssueOrderOldestFirst)

	decades, err := nav.ListDecades(ctx)
	require.NoError(t, err)
	require.NoError(t, nav.EnterDecade(ctx, decades[0]))
	require.NoError(t, nav.EnterDecade(ctx, decades[1]))

	years, err := nav.ListYears(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"2019"}, labels(years))
}

func TestEnterDecade_PositionOutOfRange(t *testing.T) {
	nav, _ := newNavigator(t, newSite(), param.IssueOrderOldestFirst)

	err := nav.EnterDecade(context.Background(), model.HierarchyNode{Level: model.LevelDecade, Position: 5})
	require.Error(t, err)
}

func enterYear2020(t *testing.T, nav Navigator) string {
	t.Helper()
	ctx := context.Background()
	decades, err := nav.ListDecades(ctx)
	require.NoError(t, err)
	require.NoError(t, nav.EnterDecade(ctx, decades[0]))
	years, err := nav.ListYears(ctx)
	require.NoError(t, err)
	year, err := nav.EnterYear(ctx, years[1])
	require.NoError(t, err)
	return year
}

func issueURLs(issues []model.IssueRef) []string {
	out := make([]string, 0, len(issues))
	for _, i := range issues {
		out = append(out, i.URL)
	}
	return out
}

func TestListIssues_Order(t *testing.T) {
	tests := []struct {
		order param.IssueOrder
		want  []string
	}{
		{param.IssueOrderOldestFirst, []string{
			"https://journals.example.org/toc/abc/2020/1",
			"https://journals.example.org/toc/abc/2020/2",
			"https://journals.example.org/toc/abc/2020/3",
		}},
		{param.IssueOrderListing, []string{
			"https://journals.example.org/toc/abc/2020/3",
			"https://journals.example.org/toc/abc/2020/2",
			"https://journals.example.org/toc/abc/2020/1",
		}},
	}
	for _, tt := range tests {
		t.Run(string(tt.order), func(t *testing.T) {
			nav, _ := newNavigator(t, newSite(), tt.order)
			year := enterYear2020(t, nav)

			issues, err := nav.ListIssues(context.Background(), year)
			require.NoError(t, err)
			require.Equal(t, tt.want, issueURLs(issues))
			for _, issue := range issues {
				require.Equal(t, "2020", issue.Year)
			}
		})
	}
}

func TestListIssues_MissingYearContainer(t *testing.T) {
	nav, _ := newNavigator(t, newSite(), param.IssueOrderOldestFirst)
	enterYear2020(t, nav)

	_, err := nav.ListIssues(context.Background(), "1999")
	var hte *model.HierarchyTimeoutError
	require.True(t, errors.As(err, &hte))
	require.Equal(t, model.LevelIssue, hte.Level)
	require.Contains(t, hte.Selector, "1999")
}

const issueURL = "https://journals.example.org/toc/abc/2020/1"

const tocPage = `<html><body>
<section><h4>Editorial</h4><a href="/doi/full/10.1/ed">Editorial</a></section>
<section><h4>Regular Articles</h4><div><a href="/doi/full/10.1/a1">A1</a></div></section>
<section><a href="/doi/full/10.1/a2">A2</a><a href="/doi/pdf/10.1/a2">pdf</a></section>
<section><p>no link</p></section>
<section><h4>Book Reviews</h4><a href="/doi/full/10.1/br">BR</a></section>
<section><a href="/doi/full/10.1/late">late</a></section>
</body></html>`

func TestWithIssueContext(t *testing.T) {
	ctx := context.Background()
	site := newSite().AddPage(issueURL, tocPage)
	nav, s := newNavigator(t, site, param.IssueOrderOldestFirst)
	issue := model.IssueRef{Year: "2020", URL: issueURL}

	var articles []model.ArticleRef
	err := nav.WithIssueContext(ctx, issue, func(ctx context.Context) error {
		require.NotEqual(t, render.ContextID(0), s.Active())
		loc, err := s.Location(ctx)
		require.NoError(t, err)
		require.Equal(t, issueURL, loc)

		articles, err = nav.ListArticles(ctx, issue)
		return err
	})
	require.NoError(t, err)

	require.Equal(t, []model.ArticleRef{
		{Year: "2020", IssueURL: issueURL, URL: "https://journals.example.org/doi/full/10.1/a1"},
		{Year: "2020", IssueURL: issueURL, URL: "https://journals.example.org/doi/full/10.1/a2"},
	}, articles)

	require.Equal(t, render.ContextID(0), s.Active())
	require.Zero(t, s.OpenContexts())
	loc, err := s.Location(ctx)
	require.NoError(t, err)
	require.Equal(t, loiURL, loc)
}

func TestWithIssueContext_RestoresOnError(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	site := newSite().AddPage(issueURL, tocPage)
	nav, s := newNavigator(t, site, param.IssueOrderOldestFirst)

	err := nav.WithIssueContext(ctx, model.IssueRef{Year: "2020", URL: issueURL}, func(ctx context.Context) error {
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.Equal(t, render.ContextID(0), s.Active())
	require.Zero(t, s.OpenContexts())

	// 期刊页加载失败时同样回收标签页
	err = nav.WithIssueContext(ctx, model.IssueRef{Year: "2020", URL: "https://journals.example.org/missing"}, func(ctx context.Context) error {
		t.Fatal("fn must not run when the issue fails to load")
		return nil
	})
	require.Error(t, err)
	require.Equal(t, render.ContextID(0), s.Active())
	require.Zero(t, s.OpenContexts())
}

func TestListArticles_NoRegularSection(t *testing.T) {
	ctx := context.Background()
	site := newSite().AddPage(issueURL, `<html><body><section><h4>Editorial</h4><a href="/x">x</a></section></body></html>`)
	nav, s := newNavigator(t, site, param.IssueOrderOldestFirst)
	require.NoError(t, s.Load(ctx, issueURL))

	articles, err := nav.ListArticles(ctx, model.IssueRef{Year: "2020", URL: issueURL})
	require.NoError(t, err)
	require.Empty(t, articles)
}

// switchFailSession fails the next failures switches away from the root context.
type switchFailSession struct {
	*rendertest.Session
	failures int
}

func (s *switchFailSession) SwitchTo(ctx context.Context, id render.ContextID) error {
	if id != 0 && s.failures > 0 {
		s.failures--
		return errors.New("target detached")
	}
	return s.Session.SwitchTo(ctx, id)
}

func TestWithIssueContext_ClosesContextWhenSwitchFails(t *testing.T) {
	ctx := context.Background()
	site := newSite().AddPage(issueURL, tocPage)
	inner := rendertest.NewSession(site)
	require.NoError(t, inner.Load(ctx, loiURL))
	s := &switchFailSession{Session: inner, failures: 1}
	nav := InitNavigator(s, param.DefaultSelectors(), param.Traversal{WaitTimeout: time.Second})

	err := nav.WithIssueContext(ctx, model.IssueRef{Year: "2020", URL: issueURL}, func(ctx context.Context) error {
		t.Fatal("fn must not run when the switch fails")
		return nil
	})
	require.ErrorContains(t, err, "target detached")
	require.Equal(t, render.ContextID(0), inner.Active())
	require.Zero(t, inner.OpenContexts())
	require.Equal(t, []string{loiURL}, site.Loads())
}

func TestListIssues_QuotesYearLabel(t *testing.T) {
	tests := []struct {
		name  string
		label string
		id    string
	}{
		{name: "quote", label: "2020'", id: "loi-2020'"},
		{name: "backslash", label: `20\20`, id: `loi-20\20`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			site := rendertest.NewSite().AddPage(loiURL, pane(
				`<div id="`+tt.id+`"><a class="loi__issue__link" href="/toc/abc/odd/1">1</a></div>`))
			nav, _ := newNavigator(t, site, param.IssueOrderListing)

			issues, err := nav.ListIssues(context.Background(), tt.label)
			require.NoError(t, err)
			require.Equal(t, []string{"https://journals.example.org/toc/abc/odd/1"}, issueURLs(issues))
		})
	}
}
