package collector

import (
	"log"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	cisionDomain  = "https://news.cision.com"
	cisionListURL = cisionDomain + "/ListItems?i=04004003&pageIx=1"
)

// CardGridExtractor 解析卡片网格：div.card-item > article > a.bodytext.content，
// 链接内含 h2 标题与 time 日期
type CardGridExtractor struct {
	Source SourceName
	Domain string
	Now    func() time.Time
}

func NewCisionExtractor(now func() time.Time) *CardGridExtractor {
	return &CardGridExtractor{Source: SourceCision, Domain: cisionDomain, Now: now}
}

func (e *CardGridExtractor) Extract(raw string) []Article {
	doc, err := parseDocument(raw)
	if err != nil {
		log.Printf("%s: parse page error: %v", e.Source, err)
		return nil
	}
	now := clock(e.Now)

	cards := doc.Find("div.card-item")
	var articles []Article
	cards.Each(func(_ int, card *goquery.Selection) {
		link := card.Find("article").First().Find("a.bodytext.content").First()
		if link.Length() == 0 {
			return
		}
		href, _ := link.Attr("href")
		title := strings.TrimSpace(strippedText(link.Find("h2").First()))
		date := cardDate(link.Find("time").First())
		if art, ok := newArticle(e.Source, title, absoluteURL(e.Domain, href), date, now); ok {
			articles = append(articles, art)
		}
	})
	log.Printf("%s: found %d cards, extracted %d articles", e.Source, cards.Length(), len(articles))
	return articles
}

// cardDate 依次取 pubdate、datetime 属性与文本；ISO 时间戳只保留日期，其他格式原样保留
func cardDate(t *goquery.Selection) DateString {
	if t.Length() == 0 {
		return ""
	}
	var raw string
	for _, attr := range []string{"pubdate", "datetime"} {
		if v, ok := t.Attr(attr); ok && strings.TrimSpace(v) != "" {
			raw = strings.TrimSpace(v)
			break
		}
	}
	if raw == "" {
		raw = strings.TrimSpace(strippedText(t))
	}
	if raw == "" {
		return ""
	}
	if strings.ContainsAny(raw, "ZT") {
		if d, ok := isoDate(raw); ok {
			return DateString(d)
		}
	}
	return DateString(raw)
}
