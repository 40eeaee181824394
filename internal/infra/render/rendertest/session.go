// Package rendertest provides an in-memory render.Session for tests.
//
// A Site maps URLs to HTML. Loading a URL replaces the active document.
// Clicking an element that carries a data-view attribute swaps the document
// for Pages[data-view] while keeping the location, which is how client-side
// rendered listings are simulated. Clicking an element with an href loads it.
// Elements obtained before a document swap become stale and fail with ErrStale.
package rendertest

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/LouYuanbo1/journalcrawler/internal/infra/render"
	"github.com/PuerkitoBio/goquery"
)

var ErrStale = errors.New("stale element reference")

// Site is the scripted web shared by every session of a Launcher.
type Site struct {
	mu         sync.Mutex
	pages      map[string]string
	cookies    map[string][]render.Cookie
	loadErrors map[string]error
	loads      []string
	clicks     []string
	keys       []string
	scripts    []string
}

func NewSite() *Site {
	return &Site{
		pages:      map[string]string{},
		cookies:    map[string][]render.Cookie{},
		loadErrors: map[string]error{},
	}
}

// AddPage registers html under key, a URL or a data-view name.
func (s *Site) AddPage(key, html string) *Site {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages[key] = html
	return s
}

// SetCookies makes every session that loads url receive cookies.
func (s *Site) SetCookies(url string, cookies ...render.Cookie) *Site {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cookies[url] = cookies
	return s
}

func (s *Site) FailLoad(url string, err error) *Site {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadErrors[url] = err
	return s
}

func (s *Site) Loads() []string   { return s.snapshot(&s.loads) }
func (s *Site) Clicks() []string  { return s.snapshot(&s.clicks) }
func (s *Site) Keys() []string    { return s.snapshot(&s.keys) }
func (s *Site) Scripts() []string { return s.snapshot(&s.scripts) }

func (s *Site) snapshot(list *[]string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), *list...)
}

func (s *Site) record(list *[]string, entry string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	*list = append(*list, entry)
}

func (s *Site) page(key string) (string, []render.Cookie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadErrors[key]; err != nil {
		return "", nil, err
	}
	html, ok := s.pages[key]
	if !ok {
		return "", nil, fmt.Errorf("rendertest: no page registered for %q", key)
	}
	return html, s.cookies[key], nil
}

type tab struct {
	location   string
	doc        *goquery.Document
	generation int
}

type Session struct {
	site   *Site
	mu     sync.Mutex
	tabs   map[render.ContextID]*tab
	active render.ContextID
	nextID render.ContextID
	jar    []render.Cookie
	closed bool
	waits  int
}

var _ render.Session = (*Session)(nil)

func NewSession(site *Site) *Session {
	blank, _ := goquery.NewDocumentFromReader(strings.NewReader("<html><body></body></html>"))
	return &Session{
		site:   site,
		tabs:   map[render.ContextID]*tab{0: {location: "about:blank", doc: blank}},
		nextID: 1,
	}
}

func (s *Session) current() (*tab, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, errors.New("rendertest: session is closed")
	}
	t, ok := s.tabs[s.active]
	if !ok {
		return nil, fmt.Errorf("rendertest: context %d is closed", s.active)
	}
	return t, nil
}

func (s *Session) show(t *tab, location, key string) error {
	html, cookies, err := s.site.page(key)
	if err != nil {
		return err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t.location = location
	t.doc = doc
	t.generation++
	s.jar = append(s.jar, cookies...)
	return nil
}

func (s *Session) Load(ctx context.Context, url string) error {
	t, err := s.current()
	if err != nil {
		return err
	}
	s.site.record(&s.site.loads, url)
	return s.show(t, url, url)
}

func (s *Session) Location(ctx context.Context) (string, error) {
	t, err := s.current()
	if err != nil {
		return "", err
	}
	return t.location, nil
}

func (s *Session) FindOne(ctx context.Context, selector string) (render.Element, error) {
	t, err := s.current()
	if err != nil {
		return nil, err
	}
	return (&element{s: s, t: t, gen: t.generation, sel: t.doc.Selection}).FindOne(ctx, selector)
}

func (s *Session) FindMany(ctx context.Context, selector string) ([]render.Element, error) {
	t, err := s.current()
	if err != nil {
		return nil, err
	}
	return (&element{s: s, t: t, gen: t.generation, sel: t.doc.Selection}).FindMany(ctx, selector)
}

// WaitFor never sleeps: rendering has already happened when a view is swapped in.
func (s *Session) WaitFor(ctx context.Context, selector string, timeout time.Duration) (render.Element, error) {
	s.mu.Lock()
	s.waits++
	s.mu.Unlock()
	el, err := s.FindOne(ctx, selector)
	if errors.Is(err, render.ErrNotFound) {
		return nil, fmt.Errorf("%w: %q after %s", render.ErrWaitTimeout, selector, timeout)
	}
	return el, err
}

func (s *Session) Waits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.waits
}

func (s *Session) HTML(ctx context.Context) (string, error) {
	t, err := s.current()
	if err != nil {
		return "", err
	}
	return goquery.OuterHtml(t.doc.Selection)
}

// RunScript records src and leaves out untouched.
func (s *Session) RunScript(ctx context.Context, src string, out any) error {
	if _, err := s.current(); err != nil {
		return err
	}
	s.site.record(&s.site.scripts, src)
	return nil
}

func (s *Session) Cookies(ctx context.Context) ([]render.Cookie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]render.Cookie(nil), s.jar...), nil
}

func (s *Session) OpenContext(ctx context.Context) (render.ContextID, error) {
	blank, _ := goquery.NewDocumentFromReader(strings.NewReader("<html><body></body></html>"))
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.tabs[id] = &tab{location: "about:blank", doc: blank}
	return id, nil
}

func (s *Session) SwitchTo(ctx context.Context, id render.ContextID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tabs[id]; !ok {
		return fmt.Errorf("rendertest: context %d does not exist", id)
	}
	s.active = id
	return nil
}

func (s *Session) CloseContext(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == 0 {
		return render.ErrRootContext
	}
	if _, ok := s.tabs[s.active]; !ok {
		return fmt.Errorf("rendertest: context %d is already closed", s.active)
	}
	delete(s.tabs, s.active)
	return nil
}

func (s *Session) Active() render.ContextID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// OpenContexts counts contexts other than the root that are still open.
func (s *Session) OpenContexts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tabs) - 1
}

func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

type element struct {
	s   *Session
	t   *tab
	gen int
	sel *goquery.Selection
}

func (e *element) check() error {
	e.s.mu.Lock()
	defer e.s.mu.Unlock()
	if e.t.generation != e.gen {
		return ErrStale
	}
	return nil
}

func (e *element) wrap(sel *goquery.Selection) *element {
	return &element{s: e.s, t: e.t, gen: e.gen, sel: sel}
}

func (e *element) FindOne(ctx context.Context, selector string) (render.Element, error) {
	if err := e.check(); err != nil {
		return nil, err
	}
	found := e.sel.Find(selector).First()
	if found.Length() == 0 {
		return nil, fmt.Errorf("%w: %q", render.ErrNotFound, selector)
	}
	return e.wrap(found), nil
}

func (e *element) FindMany(ctx context.Context, selector string) ([]render.Element, error) {
	if err := e.check(); err != nil {
		return nil, err
	}
	var elements []render.Element
	e.sel.Find(selector).Each(func(_ int, s *goquery.Selection) {
		elements = append(elements, e.wrap(s))
	})
	return elements, nil
}

func (e *element) Text(ctx context.Context) (string, error) {
	if err := e.check(); err != nil {
		return "", err
	}
	return strings.Join(strings.Fields(e.sel.Text()), " "), nil
}

func (e *element) TextContent(ctx context.Context) (string, error) {
	if err := e.check(); err != nil {
		return "", err
	}
	return e.sel.Text(), nil
}

func (e *element) Attribute(ctx context.Context, name string) (string, bool, error) {
	if err := e.check(); err != nil {
		return "", false, err
	}
	v, ok := e.sel.Attr(name)
	return v, ok, nil
}

func (e *element) describe() string {
	if id, ok := e.sel.Attr("id"); ok {
		return "#" + id
	}
	if class, ok := e.sel.Attr("class"); ok {
		return "." + class
	}
	return strings.Join(strings.Fields(e.sel.Text()), " ")
}

func (e *element) Click(ctx context.Context) error {
	if err := e.check(); err != nil {
		return err
	}
	e.s.site.record(&e.s.site.clicks, e.describe())
	if view, ok := e.sel.Attr("data-view"); ok {
		return e.s.show(e.t, e.t.location, view)
	}
	if href, ok := e.sel.Attr("href"); ok {
		target := href
		if base, err := url.Parse(e.t.location); err == nil {
			if ref, err := url.Parse(href); err == nil {
				target = base.ResolveReference(ref).String()
			}
		}
		e.s.site.record(&e.s.site.loads, target)
		return e.s.show(e.t, target, target)
	}
	return nil
}

func (e *element) SendKeys(ctx context.Context, keys string) error {
	if err := e.check(); err != nil {
		return err
	}
	e.s.site.record(&e.s.site.keys, e.describe()+"="+keys)
	return nil
}

// Launcher hands out sessions over one Site.
type Launcher struct {
	Site *Site

	mu       sync.Mutex
	primary  *Session
	isolated []*Session
}

var _ render.Launcher = (*Launcher)(nil)

func NewLauncher(site *Site) *Launcher {
	return &Launcher{Site: site}
}

func (l *Launcher) Primary(ctx context.Context) (render.Session, error) {
	return l.PrimarySession(), nil
}

// PrimarySession exposes the concrete primary session for assertions.
func (l *Launcher) PrimarySession() *Session {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.primary == nil {
		l.primary = NewSession(l.Site)
	}
	return l.primary
}

func (l *Launcher) Isolated(ctx context.Context) (render.Session, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s := NewSession(l.Site)
	l.isolated = append(l.isolated, s)
	return s, nil
}

// IsolatedSessions returns every session handed out by Isolated, in order.
func (l *Launcher) IsolatedSessions() []*Session {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*Session(nil), l.isolated...)
}

func (l *Launcher) Close() {}
