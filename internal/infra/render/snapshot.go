package render

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Snapshot is a read-only Session over HTML that was saved to disk.
// Navigation, scripts and input are not available.
type Snapshot struct {
	location string
	doc      *goquery.Document
}

var _ Session = (*Snapshot)(nil)

func NewSnapshot(location string, r io.Reader) (*Snapshot, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse snapshot: %w", err)
	}
	return &Snapshot{location: location, doc: doc}, nil
}

func (s *Snapshot) Load(ctx context.Context, url string) error {
	return fmt.Errorf("load %s: %w", url, ErrUnsupported)
}

func (s *Snapshot) Location(ctx context.Context) (string, error) {
	return s.location, nil
}

func (s *Snapshot) FindOne(ctx context.Context, selector string) (Element, error) {
	return selectionFindOne(s.doc.Selection, selector)
}

func (s *Snapshot) FindMany(ctx context.Context, selector string) ([]Element, error) {
	return selectionFindMany(s.doc.Selection, selector), nil
}

// WaitFor 静态页面不会再变化,找不到直接视为超时
func (s *Snapshot) WaitFor(ctx context.Context, selector string, timeout time.Duration) (Element, error) {
	el, err := s.FindOne(ctx, selector)
	if err != nil {
		return nil, fmt.Errorf("%w: %q after %s", ErrWaitTimeout, selector, timeout)
	}
	return el, nil
}

func (s *Snapshot) HTML(ctx context.Context) (string, error) {
	return goquery.OuterHtml(s.doc.Selection)
}

func (s *Snapshot) RunScript(ctx context.Context, src string, out any) error {
	return ErrUnsupported
}

func (s *Snapshot) Cookies(ctx context.Context) ([]Cookie, error) {
	return nil, nil
}

func (s *Snapshot) OpenContext(ctx context.Context) (ContextID, error) {
	return 0, ErrUnsupported
}

func (s *Snapshot) SwitchTo(ctx context.Context, id ContextID) error {
	if id != 0 {
		return ErrUnsupported
	}
	return nil
}

func (s *Snapshot) CloseContext(ctx context.Context) error {
	return ErrRootContext
}

func (s *Snapshot) Active() ContextID {
	return 0
}

func (s *Snapshot) Close() error {
	return nil
}

type selectionElement struct {
	sel *goquery.Selection
}

func selectionFindOne(root *goquery.Selection, selector string) (Element, error) {
	found := root.Find(selector).First()
	if found.Length() == 0 {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, selector)
	}
	return &selectionElement{sel: found}, nil
}

func selectionFindMany(root *goquery.Selection, selector string) []Element {
	found := root.Find(selector)
	elements := make([]Element, 0, found.Length())
	found.Each(func(_ int, s *goquery.Selection) {
		elements = append(elements, &selectionElement{sel: s})
	})
	return elements
}

func (e *selectionElement) FindOne(ctx context.Context, selector string) (Element, error) {
	return selectionFindOne(e.sel, selector)
}

func (e *selectionElement) FindMany(ctx context.Context, selector string) ([]Element, error) {
	return selectionFindMany(e.sel, selector), nil
}

// Text approximates innerText by collapsing whitespace runs.
func (e *selectionElement) Text(ctx context.Context) (string, error) {
	return strings.Join(strings.Fields(e.sel.Text()), " "), nil
}

func (e *selectionElement) TextContent(ctx context.Context) (string, error) {
	return e.sel.Text(), nil
}

func (e *selectionElement) Attribute(ctx context.Context, name string) (string, bool, error) {
	v, ok := e.sel.Attr(name)
	return v, ok, nil
}

func (e *selectionElement) Click(ctx context.Context) error {
	return ErrUnsupported
}

func (e *selectionElement) SendKeys(ctx context.Context, keys string) error {
	return ErrUnsupported
}
