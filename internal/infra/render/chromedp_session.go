package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/LouYuanbo1/journalcrawler/internal/config"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

type chromedpLauncher struct {
	mu            sync.Mutex
	allocCtx      context.Context
	allocCtxFuc   context.CancelFunc
	browserCtx    context.Context
	browserCtxFuc context.CancelFunc
	timeoutCtxFuc context.CancelFunc
	primary       *chromedpSession
}

// InitChromedpLauncher 启动浏览器进程,LifeTime 大于 0 时整个进程受其时长限制
func InitChromedpLauncher(ctx context.Context, cfg *config.Config) (Launcher, error) {
	var (
		timeoutCtx    context.Context
		cancelTimeout context.CancelFunc
	)
	if cfg.Chromedp.LifeTime > 0 {
		timeoutCtx, cancelTimeout = context.WithTimeout(ctx, time.Duration(cfg.Chromedp.LifeTime)*time.Second)
	} else {
		timeoutCtx, cancelTimeout = context.WithCancel(ctx)
	}
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(timeoutCtx, chromedpAllocatorOptions(cfg)...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)

	// 第一次 Run 才真正拉起浏览器
	if err := chromedp.Run(browserCtx, network.Enable()); err != nil {
		cancelBrowser()
		cancelAlloc()
		cancelTimeout()
		return nil, fmt.Errorf("启动 chromedp 浏览器失败: %w", err)
	}

	return &chromedpLauncher{
		allocCtx:      allocCtx,
		allocCtxFuc:   cancelAlloc,
		browserCtx:    browserCtx,
		browserCtxFuc: cancelBrowser,
		timeoutCtxFuc: cancelTimeout,
	}, nil
}

func (cl *chromedpLauncher) Primary(ctx context.Context) (Session, error) {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	if cl.primary == nil {
		// 主会话直接用浏览器的第一个标签页,关闭会话不影响浏览器
		cl.primary = newChromedpSession(cl.browserCtx, nil)
	}
	return cl.primary, nil
}

func (cl *chromedpLauncher) Isolated(ctx context.Context) (Session, error) {
	tabCtx, cancel := chromedp.NewContext(cl.browserCtx, chromedp.WithNewBrowserContext())
	if err := startTab(ctx, tabCtx, cancel); err != nil {
		return nil, fmt.Errorf("创建隔离会话失败: %w", err)
	}
	return newChromedpSession(tabCtx, cancel), nil
}

func (cl *chromedpLauncher) Close() {
	cl.browserCtxFuc()
	cl.allocCtxFuc()
	cl.timeoutCtxFuc()
}

type chromedpTab struct {
	ctx    context.Context
	cancel context.CancelFunc
}

type chromedpSession struct {
	mu         sync.Mutex
	root       context.Context
	rootCancel context.CancelFunc
	tabs       map[ContextID]chromedpTab
	active     ContextID
	nextID     ContextID
}

func newChromedpSession(root context.Context, rootCancel context.CancelFunc) *chromedpSession {
	return &chromedpSession{
		root:       root,
		rootCancel: rootCancel,
		tabs:       map[ContextID]chromedpTab{0: {ctx: root}},
		nextID:     1,
	}
}

// startTab 新标签页的第一次 Run 会创建 target,它的事件循环绑定在这次 Run 的 ctx 上,
// 所以必须直接用 tabCtx 执行。调用方 ctx 在启动期间取消时整个标签页一起关闭。
func startTab(ctx, tabCtx context.Context, cancelTab context.CancelFunc) error {
	stop := context.AfterFunc(ctx, cancelTab)
	err := chromedp.Run(tabCtx, network.Enable())
	if !stop() && err == nil {
		err = ctx.Err()
	}
	if err != nil {
		cancelTab()
		return err
	}
	return nil
}

// runWithCaller 在已经启动的标签页上执行动作,调用方的 ctx 取消时中断动作但不关闭标签页
func runWithCaller(ctx, tabCtx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(tabCtx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(runCtx, actions...)
}

func (cs *chromedpSession) activeTab() (context.Context, error) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	tab, ok := cs.tabs[cs.active]
	if !ok {
		return nil, fmt.Errorf("browsing context %d is closed", cs.active)
	}
	return tab.ctx, nil
}

func (cs *chromedpSession) run(ctx context.Context, actions ...chromedp.Action) error {
	tabCtx, err := cs.activeTab()
	if err != nil {
		return err
	}
	return runWithCaller(ctx, tabCtx, actions...)
}

func (cs *chromedpSession) Load(ctx context.Context, url string) error {
	if err := cs.run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("load %s: %w", url, err)
	}
	return nil
}

func (cs *chromedpSession) Location(ctx context.Context) (string, error) {
	var location string
	err := cs.run(ctx, chromedp.Location(&location))
	return location, err
}

func (cs *chromedpSession) FindOne(ctx context.Context, selector string) (Element, error) {
	tabCtx, err := cs.activeTab()
	if err != nil {
		return nil, err
	}
	return chromedpFindOne(ctx, tabCtx, selector)
}

func (cs *chromedpSession) FindMany(ctx context.Context, selector string) ([]Element, error) {
	tabCtx, err := cs.activeTab()
	if err != nil {
		return nil, err
	}
	return chromedpFindMany(ctx, tabCtx, selector)
}

func (cs *chromedpSession) WaitFor(ctx context.Context, selector string, timeout time.Duration) (Element, error) {
	tabCtx, err := cs.activeTab()
	if err != nil {
		return nil, err
	}
	waitCtx, cancel := context.WithTimeout(tabCtx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var nodes []*cdp.Node
	err = chromedp.Run(waitCtx, chromedp.Nodes(selector, &nodes, chromedp.ByQuery))
	switch {
	case err == nil && len(nodes) > 0:
		return &chromedpElement{tab: tabCtx, node: nodes[0]}, nil
	case ctx.Err() != nil:
		return nil, ctx.Err()
	case err == nil || errors.Is(err, context.DeadlineExceeded):
		return nil, fmt.Errorf("%w: %q after %s", ErrWaitTimeout, selector, timeout)
	default:
		return nil, fmt.Errorf("wait for %q: %w", selector, err)
	}
}

func (cs *chromedpSession) HTML(ctx context.Context) (string, error) {
	var html string
	err := cs.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	return html, err
}

func (cs *chromedpSession) RunScript(ctx context.Context, src string, out any) error {
	return cs.run(ctx, chromedp.Evaluate("("+src+")()", out))
}

func (cs *chromedpSession) Cookies(ctx context.Context) ([]Cookie, error) {
	var cookies []Cookie
	err := cs.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		got, err := network.GetCookies().Do(ctx)
		if err != nil {
			return err
		}
		for _, c := range got {
			cookies = append(cookies, Cookie{Name: c.Name, Value: c.Value, Domain: c.Domain})
		}
		return nil
	}))
	if err != nil {
		return nil, fmt.Errorf("读取 cookie 失败: %w", err)
	}
	return cookies, nil
}

func (cs *chromedpSession) OpenContext(ctx context.Context) (ContextID, error) {
	tabCtx, cancel := chromedp.NewContext(cs.root)
	if err := startTab(ctx, tabCtx, cancel); err != nil {
		return 0, fmt.Errorf("打开新标签页失败: %w", err)
	}
	cs.mu.Lock()
	defer cs.mu.Unlock()
	id := cs.nextID
	cs.nextID++
	cs.tabs[id] = chromedpTab{ctx: tabCtx, cancel: cancel}
	return id, nil
}

func (cs *chromedpSession) SwitchTo(ctx context.Context, id ContextID) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if _, ok := cs.tabs[id]; !ok {
		return fmt.Errorf("browsing context %d does not exist", id)
	}
	cs.active = id
	return nil
}

func (cs *chromedpSession) CloseContext(ctx context.Context) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if cs.active == 0 {
		return ErrRootContext
	}
	tab, ok := cs.tabs[cs.active]
	if !ok {
		return fmt.Errorf("browsing context %d is already closed", cs.active)
	}
	// 取消 NewContext 返回的 ctx 会关闭对应的 target
	tab.cancel()
	delete(cs.tabs, cs.active)
	return nil
}

func (cs *chromedpSession) Active() ContextID {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.active
}

func (cs *chromedpSession) Close() error {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	for id, tab := range cs.tabs {
		if id == 0 {
			continue
		}
		tab.cancel()
		delete(cs.tabs, id)
	}
	cs.active = 0
	if cs.rootCancel != nil {
		cs.rootCancel()
		cs.rootCancel = nil
	}
	return nil
}

type chromedpElement struct {
	tab  context.Context
	node *cdp.Node
}

func chromedpFindOne(ctx, tabCtx context.Context, selector string, opts ...chromedp.QueryOption) (Element, error) {
	var nodes []*cdp.Node
	opts = append([]chromedp.QueryOption{chromedp.ByQuery, chromedp.AtLeast(0)}, opts...)
	if err := runWithCaller(ctx, tabCtx, chromedp.Nodes(selector, &nodes, opts...)); err != nil {
		return nil, fmt.Errorf("query %q: %w", selector, err)
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, selector)
	}
	return &chromedpElement{tab: tabCtx, node: nodes[0]}, nil
}

func chromedpFindMany(ctx, tabCtx context.Context, selector string, opts ...chromedp.QueryOption) ([]Element, error) {
	var nodes []*cdp.Node
	opts = append([]chromedp.QueryOption{chromedp.ByQueryAll, chromedp.AtLeast(0)}, opts...)
	if err := runWithCaller(ctx, tabCtx, chromedp.Nodes(selector, &nodes, opts...)); err != nil {
		return nil, fmt.Errorf("query %q: %w", selector, err)
	}
	elements := make([]Element, 0, len(nodes))
	for _, n := range nodes {
		elements = append(elements, &chromedpElement{tab: tabCtx, node: n})
	}
	return elements, nil
}

func (ce *chromedpElement) ids() []cdp.NodeID {
	return []cdp.NodeID{ce.node.NodeID}
}

func (ce *chromedpElement) FindOne(ctx context.Context, selector string) (Element, error) {
	return chromedpFindOne(ctx, ce.tab, selector, chromedp.FromNode(ce.node))
}

func (ce *chromedpElement) FindMany(ctx context.Context, selector string) ([]Element, error) {
	return chromedpFindMany(ctx, ce.tab, selector, chromedp.FromNode(ce.node))
}

func (ce *chromedpElement) Text(ctx context.Context) (string, error) {
	var text string
	err := runWithCaller(ctx, ce.tab, chromedp.Text(ce.ids(), &text, chromedp.ByNodeID))
	return strings.TrimSpace(text), err
}

func (ce *chromedpElement) TextContent(ctx context.Context) (string, error) {
	var text string
	err := runWithCaller(ctx, ce.tab, chromedp.TextContent(ce.ids(), &text, chromedp.ByNodeID))
	return text, err
}

func (ce *chromedpElement) Attribute(ctx context.Context, name string) (string, bool, error) {
	var (
		value string
		ok    bool
	)
	err := runWithCaller(ctx, ce.tab, chromedp.AttributeValue(ce.ids(), name, &value, &ok, chromedp.ByNodeID))
	return value, ok, err
}

func (ce *chromedpElement) Click(ctx context.Context) error {
	slog.DebugContext(ctx, "chromedp click", "node", ce.node.LocalName)
	return runWithCaller(ctx, ce.tab, chromedp.Click(ce.ids(), chromedp.ByNodeID))
}

func (ce *chromedpElement) SendKeys(ctx context.Context, keys string) error {
	return runWithCaller(ctx, ce.tab, chromedp.SendKeys(ce.ids(), keys, chromedp.ByNodeID))
}
