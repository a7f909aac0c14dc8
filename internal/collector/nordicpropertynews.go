package collector

import (
	"log"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	nordicPropertyNewsDomain  = "https://www.nordicpropertynews.com"
	nordicPropertyNewsListURL = nordicPropertyNewsDomain + "/?page=1"
)

// linkRule 为标题找到对应的链接，找不到返回空 Selection
type linkRule func(heading *goquery.Selection) *goquery.Selection

// 依次尝试：外层 a.black-link，父元素下的 a.black-link，父元素下任意带 href 的 a
var headingLinkRules = []linkRule{
	func(h *goquery.Selection) *goquery.Selection {
		return h.Closest("a.black-link")
	},
	func(h *goquery.Selection) *goquery.Selection {
		return h.Parent().Find("a.black-link[href]").First()
	},
	func(h *goquery.Selection) *goquery.Selection {
		return h.Parent().Find("a[href]").First()
	},
}

// HeadingLinkExtractor 以 h2.article-header 为锚点在附近找链接，日期取抓取当天
type HeadingLinkExtractor struct {
	Source SourceName
	Domain string
	Rules  []linkRule
	Now    func() time.Time
}

func NewNordicPropertyNewsExtractor(now func() time.Time) *HeadingLinkExtractor {
	return &HeadingLinkExtractor{
		Source: SourceNordicPropertyNews,
		Domain: nordicPropertyNewsDomain,
		Rules:  headingLinkRules,
		Now:    now,
	}
}

func (e *HeadingLinkExtractor) Extract(raw string) []Article {
	doc, err := parseDocument(raw)
	if err != nil {
		log.Printf("%s: parse page error: %v", e.Source, err)
		return nil
	}
	now := clock(e.Now)

	headings := doc.Find("h2.article-header")
	var articles []Article
	headings.Each(func(_ int, h *goquery.Selection) {
		title := strings.TrimSpace(strippedText(h))
		href := e.link(h)
		if href == "" {
			log.Printf("%s: no link for %q", e.Source, title)
			return
		}
		if art, ok := newArticle(e.Source, title, absoluteURL(e.Domain, href), today(now), now); ok {
			articles = append(articles, art)
		}
	})
	log.Printf("%s: found %d headers, extracted %d articles", e.Source, headings.Length(), len(articles))
	return articles
}

func (e *HeadingLinkExtractor) link(h *goquery.Selection) string {
	for _, rule := range e.Rules {
		if a := rule(h); a.Length() > 0 {
			if href, ok := a.Attr("href"); ok && strings.TrimSpace(href) != "" {
				return href
			}
		}
	}
	return ""
}
