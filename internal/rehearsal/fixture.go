package rehearsal

import (
	"fmt"
	"html"
	"strings"
)

// Synthetic 生成与真实优惠页结构一致的页面，前 enrolled 个已报名
func Synthetic(merchants []string, enrolled int) string {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html><html><head><title>Merchant Offers</title></head><body>\n<main class=\"offers\">\n")
	for i, m := range merchants {
		name := html.EscapeString(m)
		b.WriteString("<app-mo-offer-tile>\n")
		fmt.Fprintf(&b, "  <h3>%s</h3>\n", name)
		fmt.Fprintf(&b, "  <button aria-label=\"Enroll in Offer for %s\">Enroll</button>\n", name)
		if i < enrolled {
			fmt.Fprintf(&b, "  <div aria-label=\"Enrolled for %s\">Enrolled</div>\n", name)
		}
		b.WriteString("</app-mo-offer-tile>\n")
	}
	b.WriteString("</main>\n</body></html>\n")
	return b.String()
}

// Merchants 生成 n 个示例商户名
func Merchants(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("Merchant %03d", i+1)
	}
	return out
}
