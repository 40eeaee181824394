package extractor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/LouYuanbo1/journalcrawler/internal/infra/render"
	"github.com/LouYuanbo1/journalcrawler/param"
)

// scroll 多次滚动页面以触发图表懒加载。会话不支持脚本时直接跳过
func scroll(ctx context.Context, page render.Session, opts param.Scroll) error {
	for i := range opts.ScrollTimes {
		// 滑动到底部或 70%-100% 的随机位置
		ratio := 1.0
		if i%2 == 1 {
			ratio = 0.7 + rand.Float64()*0.3
		}
		js := fmt.Sprintf(`() => window.scrollTo({top: document.body.scrollHeight * %f, behavior: 'smooth'})`, ratio)
		err := page.RunScript(ctx, js, nil)
		if errors.Is(err, render.ErrUnsupported) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("第 %d 次滑动失败: %w", i+1, err)
		}
		slog.DebugContext(ctx, "scrolled article page", "pass", i+1, "ratio", ratio)

		if opts.Pause > 0 {
			timer := time.NewTimer(opts.Pause)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
	}
	return nil
}
