// Package render 浏览器渲染会话的抽象,屏蔽 chromedp 与 rod 两种后端的差异
package render

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound    = errors.New("no element matches selector")
	ErrWaitTimeout = errors.New("timed out waiting for selector")
	// ErrRootContext is returned when closing the context a session was opened with.
	ErrRootContext = errors.New("cannot close the root browsing context")
	ErrUnsupported = errors.New("operation not supported by this session")
)

// KeyEnter appended to SendKeys input submits the field.
const KeyEnter = "\r"

type ContextID int

type Cookie struct {
	Name   string
	Value  string
	Domain string
}

// Queryable is anything CSS selectors can be run against: a page or an element.
type Queryable interface {
	// FindOne returns the first match without waiting, or ErrNotFound.
	FindOne(ctx context.Context, selector string) (Element, error)
	// FindMany returns every match in document order without waiting; no match is an empty slice.
	FindMany(ctx context.Context, selector string) ([]Element, error)
}

type Element interface {
	Queryable
	// Text is the rendered, whitespace-trimmed text.
	Text(ctx context.Context) (string, error)
	// TextContent is the raw DOM textContent.
	TextContent(ctx context.Context) (string, error)
	Attribute(ctx context.Context, name string) (string, bool, error)
	Click(ctx context.Context) error
	SendKeys(ctx context.Context, keys string) error
}

// Session drives one browser. Exactly one browsing context is active at a time;
// every page operation applies to it.
type Session interface {
	Queryable
	Load(ctx context.Context, url string) error
	Location(ctx context.Context) (string, error)
	// WaitFor polls until selector matches or timeout elapses (ErrWaitTimeout).
	WaitFor(ctx context.Context, selector string, timeout time.Duration) (Element, error)
	HTML(ctx context.Context) (string, error)
	// RunScript evaluates a JS function expression such as `() => 1` and decodes its result into out.
	RunScript(ctx context.Context, src string, out any) error
	Cookies(ctx context.Context) ([]Cookie, error)

	// OpenContext creates a blank browsing context without activating it.
	OpenContext(ctx context.Context) (ContextID, error)
	SwitchTo(ctx context.Context, id ContextID) error
	// CloseContext closes the active context; callers must SwitchTo another one afterwards.
	CloseContext(ctx context.Context) error
	Active() ContextID

	Close() error
}

// Launcher hands out sessions on one browser process.
type Launcher interface {
	// Primary returns the long-lived session that walks the catalog.
	Primary(ctx context.Context) (Session, error)
	// Isolated opens a fresh session sharing no cookies or storage with any other.
	Isolated(ctx context.Context) (Session, error)
	Close()
}
