package collector

import (
	"log"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	lokalguidenDomain  = "https://www.lokalguiden.se"
	lokalguidenListURL = lokalguidenDomain + "/magasinet/?page=1"
)

// AttributeListExtractor 解析带 data-id 的文章块；页面没有发布日期，统一用抓取当天
type AttributeListExtractor struct {
	Source      SourceName
	Domain      string
	LinkPattern string
	Now         func() time.Time
}

func NewLokalguidenExtractor(now func() time.Time) *AttributeListExtractor {
	return &AttributeListExtractor{
		Source:      SourceLokalguiden,
		Domain:      lokalguidenDomain,
		LinkPattern: "/magasinet/artikel/",
		Now:         now,
	}
}

func (e *AttributeListExtractor) Extract(raw string) []Article {
	doc, err := parseDocument(raw)
	if err != nil {
		log.Printf("%s: parse page error: %v", e.Source, err)
		return nil
	}
	now := clock(e.Now)

	blocks := doc.Find("div.article[data-id]")
	var articles []Article
	blocks.Each(func(_ int, block *goquery.Selection) {
		// 引言和广告块
		if block.HasClass("quote-article") {
			return
		}
		title := strings.TrimSpace(strippedText(block.Find("p.title").First()))
		if title == "" {
			return
		}
		link := firstMatching(block, "a[href]", func(a *goquery.Selection) bool {
			href, _ := a.Attr("href")
			return strings.Contains(href, e.LinkPattern)
		})
		if link.Length() == 0 {
			return
		}
		href, _ := link.Attr("href")
		art, ok := newArticle(e.Source, title, absoluteURL(e.Domain, href), today(now), now)
		if !ok {
			return
		}
		if cat := block.Find("span.category").First(); cat.Length() > 0 {
			art.Category = strings.TrimSpace(strippedText(cat))
		}
		art.ArticleID, _ = block.Attr("data-id")
		articles = append(articles, art)
	})
	log.Printf("%s: found %d blocks, extracted %d articles", e.Source, blocks.Length(), len(articles))
	return articles
}
