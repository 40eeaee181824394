// Package navigator 驱动渲染会话逐层遍历期刊目录: 年代 → 年份 → 期 → 文章
package navigator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/LouYuanbo1/journalcrawler/internal/domain/model"
	"github.com/LouYuanbo1/journalcrawler/internal/infra/render"
	"github.com/LouYuanbo1/journalcrawler/param"
)

// Navigator never keeps element handles across a navigation. Enter* re-reads
// the listing and clicks the entry at node.Position.
type Navigator interface {
	ListDecades(ctx context.Context) ([]model.HierarchyNode, error)
	EnterDecade(ctx context.Context, node model.HierarchyNode) error
	ListYears(ctx context.Context) ([]model.HierarchyNode, error)
	// EnterYear returns the year label read at click time.
	EnterYear(ctx context.Context, node model.HierarchyNode) (string, error)
	// ListIssues returns the issues of year in the configured IssueOrder.
	ListIssues(ctx context.Context, year string) ([]model.IssueRef, error)
	// WithIssueContext runs fn with the issue loaded in its own browsing
	// context. The context is closed and the previous one re-activated on
	// every return path.
	WithIssueContext(ctx context.Context, issue model.IssueRef, fn func(ctx context.Context) error) error
	// ListArticles reads the article links of the issue page in the active context.
	ListArticles(ctx context.Context, issue model.IssueRef) ([]model.ArticleRef, error)
}

type navigator struct {
	session   render.Session
	selectors param.Selectors
	wait      time.Duration
	order     param.IssueOrder
}

func InitNavigator(session render.Session, selectors param.Selectors, traversal param.Traversal) Navigator {
	order := traversal.IssueOrder
	if !order.IsValid() {
		order = param.IssueOrderOldestFirst
	}
	return &navigator{
		session:   session,
		selectors: selectors,
		wait:      traversal.WaitTimeout,
		order:     order,
	}
}

// waitLevel 等待某一层级的列表容器出现,超时即为该层级的致命错误
func (n *navigator) waitLevel(ctx context.Context, level model.Level, selector string) (render.Element, error) {
	el, err := n.session.WaitFor(ctx, selector, n.wait)
	if err == nil {
		return el, nil
	}
	if errors.Is(err, render.ErrWaitTimeout) {
		return nil, &model.HierarchyTimeoutError{Level: level, Selector: selector, Err: err}
	}
	return nil, fmt.Errorf("等待 %s 列表失败: %w", level, err)
}

func (n *navigator) items(ctx context.Context, level model.Level, list render.Element) ([]model.HierarchyNode, error) {
	els, err := list.FindMany(ctx, n.selectors.ListItem)
	if err != nil {
		return nil, fmt.Errorf("读取 %s 列表项失败: %w", level, err)
	}
	nodes := make([]model.HierarchyNode, 0, len(els))
	for i, el := range els {
		label, err := el.Text(ctx)
		if err != nil {
			return nil, fmt.Errorf("读取 %s 列表项文本失败: %w", level, err)
		}
		nodes = append(nodes, model.HierarchyNode{Label: label, Level: level, Position: i, Handle: el})
	}
	return nodes, nil
}

func (n *navigator) decadeListSelector() string {
	return n.selectors.DecadeList
}

func (n *navigator) yearListSelector() string {
	return n.selectors.ActivePane + " " + n.selectors.YearList
}

func (n *navigator) ListDecades(ctx context.Context) ([]model.HierarchyNode, error) {
	list, err := n.waitLevel(ctx, model.LevelDecade, n.decadeListSelector())
	if err != nil {
		return nil, err
	}
	return n.items(ctx, model.LevelDecade, list)
}

func (n *navigator) ListYears(ctx context.Context) ([]model.HierarchyNode, error) {
	if _, err := n.waitLevel(ctx, model.LevelYear, n.selectors.ActivePane); err != nil {
		return nil, err
	}
	list, err := n.waitLevel(ctx, model.LevelYear, n.yearListSelector())
	if err != nil {
		return nil, err
	}
	return n.items(ctx, model.LevelYear, list)
}

// refetch 重新读取当前层级列表并按位置取出条目
func (n *navigator) refetch(ctx context.Context, node model.HierarchyNode, list func(context.Context) ([]model.HierarchyNode, error)) (render.Element, string, error) {
	nodes, err := list(ctx)
	if err != nil {
		return nil, "", err
	}
	if node.Position < 0 || node.Position >= len(nodes) {
		return nil, "", fmt.Errorf("%s 已不在列表中 (当前 %d 项)", node, len(nodes))
	}
	fresh := nodes[node.Position]
	if fresh.Label != node.Label {
		slog.WarnContext(ctx, "hierarchy entry label changed since listing",
			"level", node.Level, "position", node.Position, "was", node.Label, "now", fresh.Label)
	}
	el, ok := fresh.Handle.(render.Element)
	if !ok {
		return nil, "", fmt.Errorf("%s 缺少元素句柄", fresh)
	}
	return el, fresh.Label, nil
}

func (n *navigator) EnterDecade(ctx context.Context, node model.HierarchyNode) error {
	el, label, err := n.refetch(ctx, node, n.ListDecades)
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "entering decade", "decade", label)
	if err := el.Click(ctx); err != nil {
		return fmt.Errorf("点击年代 %q 失败: %w", label, err)
	}
	return nil
}

func (n *navigator) EnterYear(ctx context.Context, node model.HierarchyNode) (string, error) {
	el, label, err := n.refetch(ctx, node, n.ListYears)
	if err != nil {
		return "", err
	}
	slog.InfoContext(ctx, "entering year", "year", label)
	if err := el.Click(ctx); err != nil {
		return "", fmt.Errorf("点击年份 %q 失败: %w", label, err)
	}
	return label, nil
}

func (n *navigator) ListIssues(ctx context.Context, year string) ([]model.IssueRef, error) {
	if _, err := n.waitLevel(ctx, model.LevelIssue, n.selectors.ActivePane); err != nil {
		return nil, err
	}
	yearSel := fmt.Sprintf("%s div[id$='%s']", n.selectors.ActivePane, cssString(year))
	container, err := n.waitLevel(ctx, model.LevelIssue, yearSel)
	if err != nil {
		return nil, err
	}
	links, err := container.FindMany(ctx, n.selectors.IssueLink)
	if err != nil {
		return nil, fmt.Errorf("读取 %s 年的期刊链接失败: %w", year, err)
	}

	issues := make([]model.IssueRef, 0, len(links))
	for _, link := range links {
		href, ok, err := render.AbsAttribute(ctx, n.session, link, "href")
		if err != nil {
			return nil, fmt.Errorf("读取期刊链接失败: %w", err)
		}
		if !ok || href == "" {
			continue
		}
		issues = append(issues, model.IssueRef{Year: year, URL: href})
	}
	if n.order == param.IssueOrderOldestFirst {
		// 页面按新到旧列出
		slices.Reverse(issues)
	}
	return issues, nil
}

func (n *navigator) WithIssueContext(ctx context.Context, issue model.IssueRef, fn func(ctx context.Context) error) (err error) {
	prev := n.session.Active()
	id, err := n.session.OpenContext(ctx)
	if err != nil {
		return fmt.Errorf("打开新标签页失败: %w", err)
	}
	// 标签页打开后无论切换是否成功都要回收
	defer func() {
		if cleanupErr := n.closeIssueContext(context.WithoutCancel(ctx), id, prev); cleanupErr != nil {
			err = errors.Join(err, cleanupErr)
		}
	}()
	if err := n.session.SwitchTo(ctx, id); err != nil {
		return fmt.Errorf("切换到新标签页失败: %w", err)
	}

	slog.InfoContext(ctx, "opening issue", "year", issue.Year, "issue", issue.URL)
	if err := n.session.Load(ctx, issue.URL); err != nil {
		return fmt.Errorf("打开期刊 %s 失败: %w", issue.URL, err)
	}
	return fn(ctx)
}

// closeIssueContext 关闭 id 并切回 prev。CloseContext 只作用于当前标签页,
// 所以 id 还不是当前标签页时先切过去。
func (n *navigator) closeIssueContext(ctx context.Context, id, prev render.ContextID) error {
	var errs []error
	if n.session.Active() != id {
		if err := n.session.SwitchTo(ctx, id); err != nil {
			slog.WarnContext(ctx, "issue context left open", "context", id, "err", err)
			errs = append(errs, err)
		}
	}
	if n.session.Active() == id {
		errs = append(errs, n.session.CloseContext(ctx))
	}
	errs = append(errs, n.session.SwitchTo(ctx, prev))
	return errors.Join(errs...)
}

// cssString 转义后可以放进单引号的 CSS 字符串
func cssString(s string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s)
}

// ListArticles 取 "Regular Articles" 小节以及其后没有自己标题的兄弟小节,
// 每个小节的第一个链接即一篇文章
func (n *navigator) ListArticles(ctx context.Context, issue model.IssueRef) ([]model.ArticleRef, error) {
	sections, err := n.session.FindMany(ctx, n.selectors.TocSection)
	if err != nil {
		return nil, fmt.Errorf("读取目录小节失败: %w", err)
	}

	start := -1
	for i, section := range sections {
		heading, ok, err := n.heading(ctx, section)
		if err != nil {
			return nil, err
		}
		if ok && heading == n.selectors.RegularToc {
			start = i
			break
		}
	}
	if start < 0 {
		slog.WarnContext(ctx, "issue has no regular articles section",
			"issue", issue.URL, "heading", n.selectors.RegularToc)
		return nil, nil
	}

	collected := []render.Element{sections[start]}
	for _, section := range sections[start+1:] {
		_, ok, err := n.heading(ctx, section)
		if err != nil {
			return nil, err
		}
		if ok {
			break
		}
		collected = append(collected, section)
	}

	articles := make([]model.ArticleRef, 0, len(collected))
	for _, section := range collected {
		link, err := section.FindOne(ctx, n.selectors.TocLink)
		if errors.Is(err, render.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("读取文章链接失败: %w", err)
		}
		href, ok, err := render.AbsAttribute(ctx, n.session, link, "href")
		if err != nil {
			return nil, fmt.Errorf("读取文章链接失败: %w", err)
		}
		if !ok || href == "" {
			continue
		}
		articles = append(articles, model.ArticleRef{Year: issue.Year, IssueURL: issue.URL, URL: href})
	}
	return articles, nil
}

func (n *navigator) heading(ctx context.Context, section render.Element) (string, bool, error) {
	h, err := section.FindOne(ctx, n.selectors.TocHeading)
	if errors.Is(err, render.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("读取小节标题失败: %w", err)
	}
	text, err := h.Text(ctx)
	if err != nil {
		return "", false, err
	}
	return strings.TrimSpace(text), true, nil
}
