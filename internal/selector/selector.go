// 包 selector 提供基于 goquery 的取值表达式：
// - 文本：".name" 或 "."（取当前节点文本）
// - 属性："a@href"/"@data-season"（当前节点属性）
// - 回退：使用 "||" 连接多个候选，按先后尝试
// 规则来自 rules.yaml，取值失败返回空串，由调用方决定回退值。
package selector

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Value 解析表达式并支持使用 "||" 作为回退分隔，例如："a@href||@href" 或 ".year||."。
func Value(scope *goquery.Selection, expr string) string {
	expr = strings.TrimSpace(expr)
	if expr == "" || scope == nil {
		return ""
	}
	for _, p := range strings.Split(expr, "||") {
		if v := single(scope, strings.TrimSpace(p)); v != "" {
			return v
		}
	}
	return ""
}

// single 解析单个表达式：文本或属性读取。
func single(scope *goquery.Selection, expr string) string {
	if expr == "" {
		return ""
	}
	if expr == "." {
		return clean(scope.Text())
	}
	if at := strings.Index(expr, "@"); at != -1 {
		sel := strings.TrimSpace(expr[:at])
		attr := strings.TrimSpace(expr[at+1:])
		if sel == "" {
			val, _ := scope.Attr(attr)
			return strings.TrimSpace(val)
		}
		val, _ := scope.Find(sel).First().Attr(attr)
		return strings.TrimSpace(val)
	}
	return clean(scope.Find(expr).First().Text())
}

// OwnText 只取节点自身的文本子节点，不含嵌套元素，
// 例如 <h5>2021 <span>11th Grade</span></h5> 返回 "2021"。
func OwnText(sel *goquery.Selection) string {
	if sel == nil || len(sel.Nodes) == 0 {
		return ""
	}
	var buf bytes.Buffer
	for c := sel.Nodes[0].FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			buf.WriteString(c.Data)
		}
	}
	return clean(buf.String())
}

// clean 折叠空白（含 &nbsp;）并去掉首尾空白。
func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
