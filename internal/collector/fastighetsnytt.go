package collector

import (
	"encoding/json"
	"log"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	fastighetsnyttBase       = "https://www.fastighetsnytt.se/"
	defaultFastighetsnyttCat = "Okategoriserad"
)

// EmbeddedJSONExtractor 读取 Next.js 页面内嵌的 __NEXT_DATA__，
// 在 props.containers 中取 type=articlelisting 的条目
type EmbeddedJSONExtractor struct {
	Source SourceName
	Base   string
	Now    func() time.Time
}

func NewFastighetsnyttExtractor(now func() time.Time) *EmbeddedJSONExtractor {
	return &EmbeddedJSONExtractor{Source: SourceFastighetsnytt, Base: fastighetsnyttBase, Now: now}
}

type nextData struct {
	Props struct {
		Containers []json.RawMessage `json:"containers"`
	} `json:"props"`
}

type nextContainer struct {
	Type    string `json:"type"`
	Article struct {
		URL             string `json:"url"`
		HeadlineHTML    string `json:"headlineHtml"`
		PublicationTime string `json:"publicationTime"`
		ID              any    `json:"id"`
		SectionPath     []struct {
			Name string `json:"name"`
		} `json:"sectionPath"`
	} `json:"article"`
}

func (e *EmbeddedJSONExtractor) Extract(raw string) []Article {
	doc, err := parseDocument(raw)
	if err != nil {
		log.Printf("%s: parse page error: %v", e.Source, err)
		return nil
	}
	now := clock(e.Now)

	script := doc.Find(`script#__NEXT_DATA__[type="application/json"]`).First()
	if script.Length() == 0 {
		log.Printf("%s: __NEXT_DATA__ not found", e.Source)
		return nil
	}
	var data nextData
	if err := json.Unmarshal([]byte(script.Text()), &data); err != nil {
		log.Printf("%s: decode __NEXT_DATA__ error: %v", e.Source, err)
		return nil
	}

	base := strings.TrimRight(e.Base, "/")
	var articles []Article
	for _, rawContainer := range data.Props.Containers {
		var c nextContainer
		// 单个条目结构异常时跳过，不影响其他条目
		if err := json.Unmarshal(rawContainer, &c); err != nil {
			log.Printf("%s: skip container: %v", e.Source, err)
			continue
		}
		if c.Type != "articlelisting" || c.Article.URL == "" {
			continue
		}
		link := c.Article.URL
		if !strings.HasPrefix(link, "http") {
			link = base + "/" + strings.TrimLeft(link, "/")
		}
		date := today(now)
		if c.Article.PublicationTime != "" {
			if d, ok := isoDate(c.Article.PublicationTime); ok {
				date = DateString(d)
			}
		}
		art, ok := newArticle(e.Source, stripTags(c.Article.HeadlineHTML), link, date, now)
		if !ok {
			continue
		}
		art.Category = defaultFastighetsnyttCat
		if len(c.Article.SectionPath) > 0 && c.Article.SectionPath[0].Name != "" {
			art.Category = c.Article.SectionPath[0].Name
		}
		art.ArticleID = stringify(c.Article.ID)
		art.PublicationTime = c.Article.PublicationTime
		articles = append(articles, art)
	}
	log.Printf("%s: extracted %d articles from %d containers", e.Source, len(articles), len(data.Props.Containers))
	return articles
}

// stripTags 把 headlineHtml 解析为纯文本
func stripTags(s string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.TrimSpace(s)
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
