// Package portal 处理进入目录之前的页面交互: 机构登录、cookie 提示和 "All Issues" 入口
package portal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/LouYuanbo1/journalcrawler/internal/infra/render"
	"github.com/LouYuanbo1/journalcrawler/param"
)

const DefaultStepTimeout = 5 * time.Second

type Credentials struct {
	LoginURL    string
	Institution string
	Email       string
	Password    string
}

type Options struct {
	// StepTimeout bounds the wait for each form element of the login ceremony.
	StepTimeout time.Duration
	// LoginWait bounds the wait for the post-login marker, which covers
	// out-of-band verification such as an MFA prompt.
	LoginWait time.Duration
}

type Portal interface {
	// Login runs the institutional sign-in and returns once the post-login
	// marker is present or LoginWait elapses.
	Login(ctx context.Context, creds Credentials) error
	// Land opens the journal home page and moves to the issue archive.
	Land(ctx context.Context, baseURL string) error
}

type portal struct {
	session   render.Session
	selectors param.Selectors
	opts      Options
}

func InitPortal(session render.Session, selectors param.Selectors, opts Options) Portal {
	if opts.StepTimeout <= 0 {
		opts.StepTimeout = DefaultStepTimeout
	}
	return &portal{session: session, selectors: selectors, opts: opts}
}

func (p *portal) Login(ctx context.Context, creds Credentials) error {
	slog.InfoContext(ctx, "logging in", "url", creds.LoginURL, "institution", creds.Institution)
	if err := p.session.Load(ctx, creds.LoginURL); err != nil {
		return fmt.Errorf("打开登录页失败: %w", err)
	}
	p.acceptCookies(ctx)

	if err := p.sendKeys(ctx, "institution", p.selectors.InstitutionInput, creds.Institution); err != nil {
		return err
	}
	if err := p.click(ctx, "institution result", p.selectors.InstitutionResult); err != nil {
		return err
	}
	if err := p.click(ctx, "institution next", p.selectors.InstitutionNext); err != nil {
		return err
	}
	if err := p.sendKeys(ctx, "email", p.selectors.EmailInput, creds.Email+render.KeyEnter); err != nil {
		return err
	}
	// 已保存过账号时会先出现账号选择
	p.optionalClick(ctx, "credential tile", p.selectors.CredentialTile)
	if err := p.sendKeys(ctx, "password", p.selectors.PasswordInput, creds.Password+render.KeyEnter); err != nil {
		return err
	}
	p.optionalClick(ctx, "verification option", p.selectors.ProofOption)

	slog.InfoContext(ctx, "waiting for sign-in to complete", "marker", p.selectors.PostLoginMarker, "timeout", p.opts.LoginWait)
	if _, err := p.session.WaitFor(ctx, p.selectors.PostLoginMarker, p.opts.LoginWait); err != nil {
		return fmt.Errorf("登录未完成: %w", err)
	}
	slog.InfoContext(ctx, "signed in")
	return nil
}

func (p *portal) Land(ctx context.Context, baseURL string) error {
	if err := p.session.Load(ctx, baseURL); err != nil {
		return fmt.Errorf("打开首页失败: %w", err)
	}
	p.acceptCookies(ctx)
	if err := p.click(ctx, "all issues", p.selectors.AllIssues); err != nil {
		return err
	}
	return nil
}

// acceptCookies cookie 提示不存在时只记录日志
func (p *portal) acceptCookies(ctx context.Context) {
	el, err := p.session.FindOne(ctx, p.selectors.CookieAccept)
	if err != nil {
		slog.DebugContext(ctx, "no cookie consent banner", "err", err)
		return
	}
	if err := el.Click(ctx); err != nil {
		slog.WarnContext(ctx, "dismissing cookie consent failed", "err", err)
	}
}

func (p *portal) element(ctx context.Context, step, selector string) (render.Element, error) {
	el, err := p.session.WaitFor(ctx, selector, p.opts.StepTimeout)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", step, err)
	}
	return el, nil
}

func (p *portal) click(ctx context.Context, step, selector string) error {
	el, err := p.element(ctx, step, selector)
	if err != nil {
		return err
	}
	if err := el.Click(ctx); err != nil {
		return fmt.Errorf("%s: 点击失败: %w", step, err)
	}
	return nil
}

func (p *portal) optionalClick(ctx context.Context, step, selector string) {
	err := p.click(ctx, step, selector)
	switch {
	case err == nil:
	case errors.Is(err, render.ErrWaitTimeout):
		slog.DebugContext(ctx, "optional login step skipped", "step", step)
	default:
		slog.WarnContext(ctx, "optional login step failed", "step", step, "err", err)
	}
}

func (p *portal) sendKeys(ctx context.Context, step, selector, keys string) error {
	el, err := p.element(ctx, step, selector)
	if err != nil {
		return err
	}
	if err := el.SendKeys(ctx, keys); err != nil {
		return fmt.Errorf("%s: 输入失败: %w", step, err)
	}
	return nil
}
