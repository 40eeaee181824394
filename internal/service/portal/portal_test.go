package portal

import (
	"context"
	"testing"
	"time"

	"github.com/LouYuanbo1/journalcrawler/internal/infra/render"
	"github.com/LouYuanbo1/journalcrawler/internal/infra/render/rendertest"
	"github.com/LouYuanbo1/journalcrawler/param"
	"github.com/stretchr/testify/require"
)

const (
	loginURL = "https://journals.example.org/action/ssostart"
	homeURL  = "https://journals.example.org/home/abc"
)

func loginPage(proofHref string) string {
	return `<html><body>
<button class="css-1mgww4f">Accept</button>
<input class="form-control js--autocomplete-element">
<div id="autoComplete_result_0">Bar-Ilan University</div>
<div class="ORRU02D-k-a">Next</div>
<input id="i0116">
<input id="i0118">
<div id="idDiv_SAOTCS_Proofs"><div><div><div><div class="table-cell text-left content"` + proofHref + `>Approve</div></div></div></div></div>
</body></html>`
}

const homePage = `<html><body><a data-id="all-issues" data-view="loi">All Issues</a></body></html>`

func newPortal(site *rendertest.Site) (Portal, *rendertest.Session) {
	s := rendertest.NewSession(site)
	return InitPortal(s, param.DefaultSelectors(), Options{StepTimeout: time.Second, LoginWait: time.Minute}), s
}

var creds = Credentials{
	LoginURL:    loginURL,
	Institution: "Bar-Ilan University",
	Email:       "reader@example.org",
	Password:    "secret",
}

func TestLogin(t *testing.T) {
	site := rendertest.NewSite().
		AddPage(loginURL, loginPage(` href="`+homeURL+`"`)).
		AddPage(homeURL, homePage)
	p, s := newPortal(site)

	require.NoError(t, p.Login(context.Background(), creds))

	require.Equal(t, []string{
		".form-control js--autocomplete-element=Bar-Ilan University",
		"#i0116=reader@example.org" + render.KeyEnter,
		"#i0118=secret" + render.KeyEnter,
	}, site.Keys())
	require.Equal(t, []string{
		".css-1mgww4f",
		"#autoComplete_result_0",
		".ORRU02D-k-a",
		".table-cell text-left content",
	}, site.Clicks())

	loc, err := s.Location(context.Background())
	require.NoError(t, err)
	require.Equal(t, homeURL, loc)
}

func TestLogin_MarkerNeverAppears(t *testing.T) {
	site := rendertest.NewSite().AddPage(loginURL, loginPage(""))
	p, _ := newPortal(site)

	err := p.Login(context.Background(), creds)
	require.ErrorIs(t, err, render.ErrWaitTimeout)
}

func TestLogin_MissingRequiredStep(t *testing.T) {
	site := rendertest.NewSite().AddPage(loginURL, `<html><body><input class="form-control js--autocomplete-element"></body></html>`)
	p, _ := newPortal(site)

	err := p.Login(context.Background(), creds)
	require.ErrorIs(t, err, render.ErrWaitTimeout)
	require.ErrorContains(t, err, "institution result")
}

func TestLand(t *testing.T) {
	tests := []struct {
		name   string
		banner string
		clicks []string
	}{
		{name: "with consent banner", banner: `<button class="css-1mgww4f">Accept</button>`, clicks: []string{".css-1mgww4f", "All Issues"}},
		{name: "without consent banner", clicks: []string{"All Issues"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			site := rendertest.NewSite().
				AddPage(homeURL, `<html><body>`+tt.banner+`<a data-id="all-issues" data-view="loi">All Issues</a></body></html>`).
				AddPage("loi", `<html><body><ul class="tab__nav rlist loi__tab__nav loi__list"><li>2020 - 2029</li></ul></body></html>`)
			p, s := newPortal(site)

			require.NoError(t, p.Land(context.Background(), homeURL))
			require.Equal(t, tt.clicks, site.Clicks())
			_, err := s.FindOne(context.Background(), param.DefaultSelectors().DecadeList)
			require.NoError(t, err)
		})
	}
}
