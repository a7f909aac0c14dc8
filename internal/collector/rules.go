package collector

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// strippedText 把每个文本节点去掉首尾空白后直接拼接，
// 这样 "<h3> 2025-10-17 </h3>" 和 "<li><a> 标题 </a></li>" 都能得到干净的文本
func strippedText(s *goquery.Selection) string {
	var b strings.Builder
	for _, n := range s.Nodes {
		collectText(n, &b)
	}
	return b.String()
}

func collectText(n *html.Node, b *strings.Builder) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(strings.TrimSpace(n.Data))
		return
	case html.CommentNode:
		return
	case html.ElementNode:
		if n.Data == "script" || n.Data == "style" {
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, b)
	}
}

// absoluteURL 把相对地址解析到站点域名下；无法解析时返回空串
func absoluteURL(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	base = strings.TrimRight(base, "/")
	if strings.HasPrefix(href, "//") {
		return "https:" + href
	}
	if strings.HasPrefix(href, "/") {
		return base + href
	}
	b, err := url.Parse(base + "/")
	if err != nil {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	abs := b.ResolveReference(ref)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return ""
	}
	return abs.String()
}

// attrContains 按 BeautifulSoup 的 class_/id_ lambda 语义：属性值（小写）包含任一关键字
func attrContains(s *goquery.Selection, attr string, keywords ...string) bool {
	v, ok := s.Attr(attr)
	if !ok || v == "" {
		return false
	}
	v = strings.ToLower(v)
	for _, k := range keywords {
		if strings.Contains(v, k) {
			return true
		}
	}
	return false
}

// firstMatching 在 selector 命中的元素中按文档顺序取第一个满足 pred 的
func firstMatching(root *goquery.Selection, selector string, pred func(*goquery.Selection) bool) *goquery.Selection {
	return root.Find(selector).FilterFunction(func(_ int, s *goquery.Selection) bool {
		return pred(s)
	}).First()
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}

func parseDocument(raw string) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(raw))
}

// stringify 把 JSON 中可能是数字或字符串的 id 统一为字符串
func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%v", t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

// ---------- 日期规则 ----------

var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// isoDate 解析 ISO8601 时间戳（允许空格分隔与 Z 后缀），返回日期部分
func isoDate(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	s = strings.Replace(s, "Z", "+00:00", 1)
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(dateLayout), true
		}
	}
	return "", false
}

// datePattern 是一条"正则 + 规范化"的日期规则
type datePattern struct {
	re        *regexp.Regexp
	normalize func(m []string) string
}

// 依次尝试：ISO、斜杠（日/月/年）、点号（日.月.年），先命中者为准
var datePatterns = []datePattern{
	{
		re:        regexp.MustCompile(`(\d{4})-(\d{2})-(\d{2})`),
		normalize: func(m []string) string { return m[1] + "-" + m[2] + "-" + m[3] },
	},
	{
		re:        regexp.MustCompile(`(\d{1,2})/(\d{1,2})/(\d{4})`),
		normalize: func(m []string) string { return m[3] + "-" + pad2(m[2]) + "-" + pad2(m[1]) },
	},
	{
		re:        regexp.MustCompile(`(\d{1,2})\.(\d{1,2})\.(\d{4})`),
		normalize: func(m []string) string { return m[3] + "-" + pad2(m[2]) + "-" + pad2(m[1]) },
	},
}

func matchDatePattern(s string) (string, bool) {
	for _, p := range datePatterns {
		if m := p.re.FindStringSubmatch(s); m != nil {
			return p.normalize(m), true
		}
	}
	return "", false
}

var swedishMonths = map[string]string{
	"januari": "01", "februari": "02", "mars": "03", "april": "04",
	"maj": "05", "juni": "06", "juli": "07", "augusti": "08",
	"september": "09", "oktober": "10", "november": "11", "december": "12",
}

// swedishDate 解析 "16 september 2025" 这种瑞典语日期
func swedishDate(s string) (string, bool) {
	parts := strings.Fields(strings.ToLower(s))
	if len(parts) != 3 {
		return "", false
	}
	month, ok := swedishMonths[parts[1]]
	if !ok {
		return "", false
	}
	if len(parts[2]) != 4 || !isDigits(parts[2]) || !isDigits(parts[0]) || len(parts[0]) > 2 {
		return "", false
	}
	return parts[2] + "-" + month + "-" + pad2(parts[0]), true
}

func pad2(s string) string {
	if len(s) == 1 {
		return "0" + s
	}
	return s
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// newArticle 统一输出约束：标题与链接非空且链接为绝对地址，否则丢弃
func newArticle(src SourceName, title, link string, date DateString, now time.Time) (Article, bool) {
	title = strings.TrimSpace(title)
	link = strings.TrimSpace(link)
	if title == "" || link == "" {
		return Article{}, false
	}
	if !strings.HasPrefix(link, "http://") && !strings.HasPrefix(link, "https://") {
		return Article{}, false
	}
	return Article{
		Title:     title,
		URL:       link,
		Date:      date,
		Source:    src,
		ScrapedAt: Timestamp(now),
	}, true
}

func today(now time.Time) DateString {
	return DateString(now.Format(dateLayout))
}
