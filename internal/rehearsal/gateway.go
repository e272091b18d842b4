package rehearsal

import (
	"context"
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"offerpilot/internal/config"
	"offerpilot/internal/enroll"
	"offerpilot/pkg/model"
)

const dialogClass = "offerpilot-rehearsal-dialog"

// Options 控制模拟页面的行为
type Options struct {
	// BatchSize 初始可见的卡片数，其余每次滚到底部追加一批；<=0 表示全部可见
	BatchSize int
	// Reject 标签包含任一子串时弹出错误文案
	Reject []string
	// Silent 标签包含任一子串时不弹出确认框
	Silent []string
	// DialogDelay 每次点击后前 DialogDelay 次查询看不到确认框，模拟弹框渲染延迟
	DialogDelay int
}

type detached struct {
	tile   *goquery.Selection
	parent *goquery.Selection
}

// Gateway 基于已保存 HTML 的页面模拟，实现 enroll.PageGateway
type Gateway struct {
	doc     *goquery.Document
	page    config.Page
	opts    Options
	pending []detached
	finds   int
	stats   Stats
}

// Stats 模拟页面上发生的交互次数
type Stats struct {
	Scrolls   int
	Nudges    int
	Triggers  int
	Dialogs   int
	Dismissed int
	Revealed  int
}

var _ enroll.PageGateway = (*Gateway)(nil)

// Load 解析 HTML 并按 BatchSize 摘下懒加载部分
func Load(r io.Reader, page config.Page, opts Options) (*Gateway, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}
	g := &Gateway{doc: doc, page: page, opts: opts}

	if opts.BatchSize > 0 {
		g.doc.Find(page.EnrollSelector).Each(func(i int, b *goquery.Selection) {
			if i < opts.BatchSize {
				return
			}
			tile := g.tileOf(b)
			g.pending = append(g.pending, detached{tile: tile, parent: tile.Parent()})
		})
		for _, d := range g.pending {
			d.tile.Remove()
		}
	}
	return g, nil
}

func (g *Gateway) tileOf(b *goquery.Selection) *goquery.Selection {
	if g.page.ContainerSelector != "" {
		if tile := b.Closest(g.page.ContainerSelector); tile.Length() > 0 {
			return tile
		}
	}
	return b
}

// enrolled 按钮所在卡片是否已有报名标记
func (g *Gateway) enrolled(b *goquery.Selection) bool {
	if g.page.ContainerSelector == "" || g.page.EnrolledSelector == "" {
		return false
	}
	return b.Closest(g.page.ContainerSelector).Find(g.page.EnrolledSelector).Length() > 0
}

func (g *Gateway) IsDocumentReady(context.Context) (bool, error) {
	return g.doc.Find(g.page.EnrollSelector).Length() > 0, nil
}

func (g *Gateway) ListCandidates(context.Context) ([]model.Candidate, error) {
	out := make([]model.Candidate, 0)
	g.doc.Find(g.page.EnrollSelector).Each(func(_ int, b *goquery.Selection) {
		label, _ := b.Attr(g.page.LabelAttribute)
		out = append(out, model.Candidate{Label: label, Enrolled: g.enrolled(b)})
	})
	return out, nil
}

func (g *Gateway) TriggerAction(_ context.Context, label string) error {
	btn := g.doc.Find(g.page.EnrollSelector).FilterFunction(func(_ int, b *goquery.Selection) bool {
		v, _ := b.Attr(g.page.LabelAttribute)
		return v == label && !g.enrolled(b)
	}).First()
	if btn.Length() == 0 {
		return fmt.Errorf("%w: %s", enroll.ErrControlNotFound, label)
	}
	g.stats.Triggers++
	g.finds = 0

	if containsAny(label, g.opts.Silent) {
		return nil
	}

	msg := "You're enrolled in this offer."
	if containsAny(label, g.opts.Reject) {
		msg = g.page.ErrorText
	} else {
		name := strings.TrimSpace(strings.TrimPrefix(label, "Enroll in Offer for"))
		g.tileOf(btn).AppendHtml(fmt.Sprintf(`<div aria-label="Enrolled for %s">Enrolled</div>`, html.EscapeString(name)))
	}
	g.doc.Find("body").AppendHtml(fmt.Sprintf(
		`<div class="%s" role="dialog"><p>%s</p><button class="modal-close-btn" aria-label="Close" title="Close">×</button></div>`,
		dialogClass, html.EscapeString(msg),
	))
	g.stats.Dialogs++
	return nil
}

func (g *Gateway) FindConfirmation(context.Context) (bool, error) {
	g.finds++
	if g.finds <= g.opts.DialogDelay {
		return false, nil
	}
	return g.doc.Find(g.page.CloseSelector).Length() > 0, nil
}

func (g *Gateway) DismissConfirmation(context.Context) error {
	dialogs := g.doc.Find("." + dialogClass)
	if dialogs.Length() > 0 {
		g.stats.Dismissed++
	}
	dialogs.Remove()
	return nil
}

func (g *Gateway) BodyText(context.Context) (string, error) {
	return g.doc.Find("body").Text(), nil
}

// ScrollToEnd 每次追加一批被摘下的卡片
func (g *Gateway) ScrollToEnd(context.Context) error {
	g.stats.Scrolls++
	n := g.opts.BatchSize
	if n > len(g.pending) {
		n = len(g.pending)
	}
	for _, d := range g.pending[:n] {
		d.parent.AppendSelection(d.tile)
	}
	g.pending = g.pending[n:]
	g.stats.Revealed += n
	return nil
}

func (g *Gateway) ScrollBy(context.Context, int) error {
	g.stats.Nudges++
	return nil
}

// Stats 当前交互统计
func (g *Gateway) Stats() Stats { return g.stats }

// Pending 尚未加载的卡片数
func (g *Gateway) Pending() int { return len(g.pending) }

// HTML 当前页面
func (g *Gateway) HTML() (string, error) { return g.doc.Html() }

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if sub != "" && strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
