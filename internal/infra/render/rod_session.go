package render

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/LouYuanbo1/journalcrawler/internal/config"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

type rodLauncher struct {
	mu      sync.Mutex
	browser *rod.Browser
	stealth bool
	primary *rodSession
}

func InitRodLauncher(cfg *config.Config) (Launcher, error) {
	urlStr, err := rodLauncherFromConfig(cfg).Launch()
	if err != nil {
		return nil, fmt.Errorf("启动浏览器失败: %w", err)
	}
	log.Printf("浏览器连接URL: %s", urlStr)

	browser := rod.New().ControlURL(urlStr).Trace(cfg.Rod.Trace)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("连接浏览器失败: %w", err)
	}
	return &rodLauncher{browser: browser, stealth: cfg.Rod.Stealth}, nil
}

func (rl *rodLauncher) newPage(browser *rod.Browser) (*rod.Page, error) {
	if rl.stealth {
		return stealth.Page(browser)
	}
	return browser.Page(proto.TargetCreateTarget{})
}

func (rl *rodLauncher) Primary(ctx context.Context) (Session, error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if rl.primary != nil {
		return rl.primary, nil
	}
	page, err := rl.newPage(rl.browser)
	if err != nil {
		return nil, fmt.Errorf("创建页面失败: %w", err)
	}
	rl.primary = newRodSession(rl, rl.browser, page, false)
	return rl.primary, nil
}

// Isolated 每次使用独立的 incognito 浏览器上下文,cookie 与主会话互不可见
func (rl *rodLauncher) Isolated(ctx context.Context) (Session, error) {
	incognito, err := rl.browser.Context(ctx).Incognito()
	if err != nil {
		return nil, fmt.Errorf("创建 incognito 上下文失败: %w", err)
	}
	page, err := rl.newPage(incognito)
	if err != nil {
		_ = incognito.Close()
		return nil, fmt.Errorf("创建页面失败: %w", err)
	}
	return newRodSession(rl, incognito, page, true), nil
}

func (rl *rodLauncher) Close() {
	if err := rl.browser.Close(); err != nil {
		log.Printf("关闭浏览器失败: %v", err)
	}
}

type rodSession struct {
	mu       sync.Mutex
	launcher *rodLauncher
	browser  *rod.Browser
	// 关闭会话时是否同时销毁 browser(incognito 上下文)
	ownsBrowser bool
	pages       map[ContextID]*rod.Page
	active      ContextID
	nextID      ContextID
}

func newRodSession(rl *rodLauncher, browser *rod.Browser, root *rod.Page, ownsBrowser bool) *rodSession {
	return &rodSession{
		launcher:    rl,
		browser:     browser,
		ownsBrowser: ownsBrowser,
		pages:       map[ContextID]*rod.Page{0: root},
		nextID:      1,
	}
}

func (rs *rodSession) page(ctx context.Context) (*rod.Page, error) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	p, ok := rs.pages[rs.active]
	if !ok {
		return nil, fmt.Errorf("browsing context %d is closed", rs.active)
	}
	return p.Context(ctx), nil
}

func (rs *rodSession) Load(ctx context.Context, url string) error {
	p, err := rs.page(ctx)
	if err != nil {
		return err
	}
	if err := p.Navigate(url); err != nil {
		return fmt.Errorf("load %s: %w", url, err)
	}
	if err := p.WaitLoad(); err != nil {
		return fmt.Errorf("load %s: %w", url, err)
	}
	return nil
}

func (rs *rodSession) Location(ctx context.Context) (string, error) {
	p, err := rs.page(ctx)
	if err != nil {
		return "", err
	}
	info, err := p.Info()
	if err != nil {
		return "", err
	}
	return info.URL, nil
}

func (rs *rodSession) FindOne(ctx context.Context, selector string) (Element, error) {
	p, err := rs.page(ctx)
	if err != nil {
		return nil, err
	}
	has, el, err := p.Has(selector)
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", selector, err)
	}
	if !has {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, selector)
	}
	return &rodElement{el: el}, nil
}

func (rs *rodSession) FindMany(ctx context.Context, selector string) ([]Element, error) {
	p, err := rs.page(ctx)
	if err != nil {
		return nil, err
	}
	els, err := p.Elements(selector)
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", selector, err)
	}
	return wrapRodElements(els), nil
}

func (rs *rodSession) WaitFor(ctx context.Context, selector string, timeout time.Duration) (Element, error) {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	p, err := rs.page(waitCtx)
	if err != nil {
		return nil, err
	}
	// Element 会一直重试直到匹配或 waitCtx 超时
	el, err := p.Element(selector)
	switch {
	case err == nil:
		return &rodElement{el: el.Context(ctx)}, nil
	case ctx.Err() != nil:
		return nil, ctx.Err()
	case errors.Is(err, context.DeadlineExceeded):
		return nil, fmt.Errorf("%w: %q after %s", ErrWaitTimeout, selector, timeout)
	default:
		return nil, fmt.Errorf("wait for %q: %w", selector, err)
	}
}

func (rs *rodSession) HTML(ctx context.Context) (string, error) {
	p, err := rs.page(ctx)
	if err != nil {
		return "", err
	}
	return p.HTML()
}

func (rs *rodSession) RunScript(ctx context.Context, src string, out any) error {
	p, err := rs.page(ctx)
	if err != nil {
		return err
	}
	res, err := p.Eval(src)
	if err != nil {
		return fmt.Errorf("执行脚本失败: %w", err)
	}
	if out == nil {
		return nil
	}
	return res.Value.Unmarshal(out)
}

func (rs *rodSession) Cookies(ctx context.Context) ([]Cookie, error) {
	p, err := rs.page(ctx)
	if err != nil {
		return nil, err
	}
	got, err := p.Cookies(nil)
	if err != nil {
		return nil, fmt.Errorf("读取 cookie 失败: %w", err)
	}
	cookies := make([]Cookie, 0, len(got))
	for _, c := range got {
		cookies = append(cookies, Cookie{Name: c.Name, Value: c.Value, Domain: c.Domain})
	}
	return cookies, nil
}

func (rs *rodSession) OpenContext(ctx context.Context) (ContextID, error) {
	page, err := rs.launcher.newPage(rs.browser)
	if err != nil {
		return 0, fmt.Errorf("打开新标签页失败: %w", err)
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	id := rs.nextID
	rs.nextID++
	rs.pages[id] = page
	return id, nil
}

func (rs *rodSession) SwitchTo(ctx context.Context, id ContextID) error {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	page, ok := rs.pages[id]
	if !ok {
		return fmt.Errorf("browsing context %d does not exist", id)
	}
	rs.active = id
	_, err := page.Context(ctx).Activate()
	return err
}

func (rs *rodSession) CloseContext(ctx context.Context) error {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if rs.active == 0 {
		return ErrRootContext
	}
	page, ok := rs.pages[rs.active]
	if !ok {
		return fmt.Errorf("browsing context %d is already closed", rs.active)
	}
	delete(rs.pages, rs.active)
	return page.Context(ctx).Close()
}

func (rs *rodSession) Active() ContextID {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.active
}

func (rs *rodSession) Close() error {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	var errs []error
	for id, page := range rs.pages {
		if id == 0 && !rs.ownsBrowser {
			continue
		}
		if err := page.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(rs.pages, id)
	}
	rs.active = 0
	if rs.ownsBrowser {
		if err := rs.browser.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type rodElement struct {
	el *rod.Element
}

func wrapRodElements(els rod.Elements) []Element {
	elements := make([]Element, 0, len(els))
	for _, el := range els {
		elements = append(elements, &rodElement{el: el})
	}
	return elements
}

func (re *rodElement) FindOne(ctx context.Context, selector string) (Element, error) {
	has, el, err := re.el.Context(ctx).Has(selector)
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", selector, err)
	}
	if !has {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, selector)
	}
	return &rodElement{el: el}, nil
}

func (re *rodElement) FindMany(ctx context.Context, selector string) ([]Element, error) {
	els, err := re.el.Context(ctx).Elements(selector)
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", selector, err)
	}
	return wrapRodElements(els), nil
}

func (re *rodElement) Text(ctx context.Context) (string, error) {
	text, err := re.el.Context(ctx).Text()
	return strings.TrimSpace(text), err
}

func (re *rodElement) TextContent(ctx context.Context) (string, error) {
	v, err := re.el.Context(ctx).Property("textContent")
	if err != nil {
		return "", err
	}
	return v.Str(), nil
}

func (re *rodElement) Attribute(ctx context.Context, name string) (string, bool, error) {
	v, err := re.el.Context(ctx).Attribute(name)
	if err != nil || v == nil {
		return "", false, err
	}
	return *v, true, nil
}

func (re *rodElement) Click(ctx context.Context) error {
	return re.el.Context(ctx).Click(proto.InputMouseButtonLeft, 1)
}

// SendKeys 末尾的 KeyEnter 转成一次回车按键
func (re *rodElement) SendKeys(ctx context.Context, keys string) error {
	el := re.el.Context(ctx)
	text, submit := strings.CutSuffix(keys, KeyEnter)
	if text != "" {
		if err := el.Input(text); err != nil {
			return err
		}
	}
	if submit {
		return el.Type(input.Enter)
	}
	return nil
}
