package collector

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const diDomain = "https://www.di.se"

// DIPageURL 列表接口按当天日期与页码分页
func DIPageURL(now func() time.Time) func(page int) string {
	return func(page int) string {
		if page < 1 {
			page = 1
		}
		return fmt.Sprintf("%s/get-list-articles/?template=tagPage&id=di.tag.fastighet&lastday=%s&page=%d",
			diDomain, clock(now).Format(dateLayout), page)
	}
}

// dateRule 从文章节点读出日期，读不到时返回 false
type dateRule func(item *goquery.Selection) (string, bool)

// PaginatedListExtractor 解析 article.news-item 列表，日期按 Rules 顺序尝试，先命中者为准
type PaginatedListExtractor struct {
	Source SourceName
	Domain string
	Rules  []dateRule
	Now    func() time.Time
}

func NewDIExtractor(now func() time.Time) *PaginatedListExtractor {
	return &PaginatedListExtractor{
		Source: SourceDI,
		Domain: diDomain,
		Rules:  diDateRules,
		Now:    now,
	}
}

var diDateRules = []dateRule{
	// data-day 属性
	func(item *goquery.Selection) (string, bool) {
		v, ok := item.Attr("data-day")
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	},
	// <time datetime="...">
	func(item *goquery.Selection) (string, bool) {
		v, ok := item.Find("time[datetime]").First().Attr("datetime")
		if !ok {
			return "", false
		}
		return isoDate(v)
	},
	// <time class="global-xs-bold">16 september 2025</time>
	func(item *goquery.Selection) (string, bool) {
		t := item.Find("time.global-xs-bold").First()
		if t.Length() == 0 {
			return "", false
		}
		return swedishDate(strippedText(t))
	},
	// 其余 time 文本：ISO、斜杠、点号格式
	func(item *goquery.Selection) (string, bool) {
		t := item.Find("time").First()
		if t.Length() == 0 {
			return "", false
		}
		return matchDatePattern(strippedText(t))
	},
}

func (e *PaginatedListExtractor) Extract(raw string) []Article {
	doc, err := parseDocument(raw)
	if err != nil {
		log.Printf("%s: parse page error: %v", e.Source, err)
		return nil
	}
	now := clock(e.Now)

	items := doc.Find("article.news-item")
	var articles []Article
	items.Each(func(_ int, item *goquery.Selection) {
		title := strings.TrimSpace(strippedText(item.Find("h2.news-item__heading").First()))
		if title == "" {
			return
		}
		href, ok := item.Find("a[href]").First().Attr("href")
		if !ok {
			return
		}
		art, ok := newArticle(e.Source, title, absoluteURL(e.Domain, href), e.date(item, now), now)
		if !ok {
			return
		}
		art.ArticleID, _ = item.Attr("data-id")
		articles = append(articles, art)
	})
	log.Printf("%s: found %d items, extracted %d articles", e.Source, items.Length(), len(articles))
	return articles
}

func (e *PaginatedListExtractor) date(item *goquery.Selection, now time.Time) DateString {
	for _, rule := range e.Rules {
		if d, ok := rule(item); ok {
			return DateString(d)
		}
	}
	return today(now)
}
