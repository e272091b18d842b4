package cdp

import (
	"fmt"

	"github.com/tidwall/sjson"

	"offerpilot/internal/config"
)

// 页面脚本主体，参数对象 p 由 Scripts 注入
const (
	readyBody = `return document.readyState === 'complete' && document.querySelectorAll(p.enroll).length > 0;`

	enrolledFn = `function enrolled(b) {
  var tile = p.container ? b.closest(p.container) : null;
  return tile && p.enrolled ? !!tile.querySelector(p.enrolled) : false;
}
`

	listBody = enrolledFn + `return Array.from(document.querySelectorAll(p.enroll)).map(function (b) {
  return {label: b.getAttribute(p.attr) || '', enrolled: enrolled(b)};
});`

	// 同名按钮中跳过已报名卡片，与 listBody 的判定一致
	triggerBody = enrolledFn + `var bs = document.querySelectorAll(p.enroll);
for (var i = 0; i < bs.length; i++) {
  if ((bs[i].getAttribute(p.attr) || '') === p.label && !enrolled(bs[i])) { bs[i].click(); return true; }
}
return false;`

	findBody    = `return !!document.querySelector(p.close);`
	dismissBody = `var b = document.querySelector(p.close); if (!b) { return false; } b.click(); return true;`
	bodyText    = `return document.body ? document.body.innerText : '';`
	scrollEnd   = `window.scrollTo(0, document.body ? document.body.scrollHeight : 0); return true;`
	scrollBy    = `window.scrollBy(0, p.dy); return true;`
)

// Scripts 生成 Runtime.evaluate 表达式，选择器以 JSON 形式传入避免转义问题
type Scripts struct {
	params string
}

// NewScripts 根据页面配置构造参数对象
func NewScripts(p config.Page) (*Scripts, error) {
	params := "{}"
	pairs := []struct{ key, val string }{
		{"enroll", p.EnrollSelector},
		{"container", p.ContainerSelector},
		{"enrolled", p.EnrolledSelector},
		{"close", p.CloseSelector},
		{"attr", p.LabelAttribute},
	}
	var err error
	for _, kv := range pairs {
		if params, err = sjson.Set(params, kv.key, kv.val); err != nil {
			return nil, fmt.Errorf("build script params: %w", err)
		}
	}
	return &Scripts{params: params}, nil
}

func (s *Scripts) Ready() string       { return wrap(readyBody, s.params) }
func (s *Scripts) List() string        { return wrap(listBody, s.params) }
func (s *Scripts) Find() string        { return wrap(findBody, s.params) }
func (s *Scripts) Dismiss() string     { return wrap(dismissBody, s.params) }
func (s *Scripts) BodyText() string    { return wrap(bodyText, s.params) }
func (s *Scripts) ScrollToEnd() string { return wrap(scrollEnd, s.params) }

// Trigger 点击指定标签的按钮
func (s *Scripts) Trigger(label string) (string, error) {
	params, err := sjson.Set(s.params, "label", label)
	if err != nil {
		return "", fmt.Errorf("build trigger params: %w", err)
	}
	return wrap(triggerBody, params), nil
}

// ScrollBy 纵向滚动 dy 像素
func (s *Scripts) ScrollBy(dy int) (string, error) {
	params, err := sjson.Set(s.params, "dy", dy)
	if err != nil {
		return "", fmt.Errorf("build scroll params: %w", err)
	}
	return wrap(scrollBy, params), nil
}

func wrap(body, params string) string {
	return "(function (p) {\n" + body + "\n})(" + params + ")"
}
