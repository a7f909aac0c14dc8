package collector

import (
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const fastighetsvarldenDomain = "https://www.fastighetsvarlden.se"

var (
	dateHeaderRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	pageLinkRe   = regexp.MustCompile(`/page/(\d+)/`)
)

// 按文档顺序扫描的块级元素
const dateSectionBlocks = "h2, h3, h4, p, div, li, ul"

// DateSectionExtractor 解析按日期分组的归档页：
// 文本恰为 YYYY-MM-DD 的元素设定当前日期，其后元素中的链接都打上这个日期。
type DateSectionExtractor struct {
	Source   SourceName
	Domain   string
	Sections []string
	Excludes []string
	// MinTitleLen 标题字符数必须大于该值
	MinTitleLen int
	// 主策略无结果时的兜底策略
	FallbackSections    []string
	FallbackMinTitleLen int
	Now                 func() time.Time
}

func NewFastighetsvarldenExtractor(now func() time.Time) *DateSectionExtractor {
	return &DateSectionExtractor{
		Source:              SourceFastighetsvarlden,
		Domain:              fastighetsvarldenDomain,
		Sections:            []string{"/notiser/", "/nyheter/", "/analys-fakta/", "/portrattet/"},
		Excludes:            []string{"/page/", "/arkivet/"},
		MinTitleLen:         5,
		FallbackSections:    []string{"/notiser/", "/analys-fakta/"},
		FallbackMinTitleLen: 10,
		Now:                 now,
	}
}

// FastighetsvarldenPageURL 第 1 页是归档首页，其余为 /arkivet/page/N/
func FastighetsvarldenPageURL(page int) string {
	if page <= 1 {
		return fastighetsvarldenDomain + "/arkivet"
	}
	return fmt.Sprintf("%s/arkivet/page/%d/", fastighetsvarldenDomain, page)
}

func (e *DateSectionExtractor) Extract(raw string) []Article {
	doc, err := parseDocument(raw)
	if err != nil {
		log.Printf("%s: parse page error: %v", e.Source, err)
		return nil
	}
	now := clock(e.Now)

	content := e.mainContent(doc)
	articles := e.extractDated(content, now)
	if len(articles) == 0 {
		log.Printf("%s: no dated sections found, trying fallback", e.Source)
		articles = e.extractFallback(doc, now)
	}
	log.Printf("%s: extracted %d articles", e.Source, len(articles))
	return articles
}

// mainContent 先按 id 再按 class 找包含 "content" 的 main/div，都没有时用整页
func (e *DateSectionExtractor) mainContent(doc *goquery.Document) *goquery.Selection {
	if s := firstMatching(doc.Selection, "main, div", func(s *goquery.Selection) bool {
		return attrContains(s, "id", "content")
	}); s.Length() > 0 {
		return s
	}
	if s := firstMatching(doc.Selection, "main, div", func(s *goquery.Selection) bool {
		return attrContains(s, "class", "content")
	}); s.Length() > 0 {
		return s
	}
	return doc.Selection
}

func (e *DateSectionExtractor) extractDated(content *goquery.Selection, now time.Time) []Article {
	var (
		articles    []Article
		seen        = make(map[string]struct{})
		currentDate string
	)
	content.Find(dateSectionBlocks).Each(func(_ int, el *goquery.Selection) {
		text := strings.TrimSpace(strippedText(el))
		if dateHeaderRe.MatchString(text) {
			currentDate = text
			return
		}
		if currentDate == "" {
			return
		}
		// 包含日期标题的外层容器跨越了多个日期分组，其链接交给内层元素处理
		if containsDateHeader(el) {
			return
		}
		el.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
			href, _ := a.Attr("href")
			link := absoluteURL(e.Domain, href)
			title := strings.TrimSpace(strippedText(a))
			if !e.accept(link, title) {
				return
			}
			if _, ok := seen[link]; ok {
				return
			}
			if art, ok := newArticle(e.Source, title, link, DateString(currentDate), now); ok {
				seen[link] = struct{}{}
				articles = append(articles, art)
			}
		})
	})
	return articles
}

func containsDateHeader(el *goquery.Selection) bool {
	found := false
	el.Find(dateSectionBlocks).EachWithBreak(func(_ int, child *goquery.Selection) bool {
		if dateHeaderRe.MatchString(strings.TrimSpace(strippedText(child))) {
			found = true
			return false
		}
		return true
	})
	return found
}

func (e *DateSectionExtractor) accept(link, title string) bool {
	if link == "" || !strings.HasPrefix(link, e.Domain) {
		return false
	}
	if !containsAny(link, e.Sections) || containsAny(link, e.Excludes) {
		return false
	}
	return runeLen(title) > e.MinTitleLen
}

// extractFallback 在正文容器里广泛收集链接，不带日期
func (e *DateSectionExtractor) extractFallback(doc *goquery.Document, now time.Time) []Article {
	container := firstMatching(doc.Selection, "main, article, div", func(s *goquery.Selection) bool {
		return attrContains(s, "class", "content", "main", "posts")
	})
	if container.Length() == 0 {
		container = doc.Selection
	}

	var articles []Article
	seen := make(map[string]struct{})
	container.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		link := absoluteURL(e.Domain, href)
		title := strings.TrimSpace(strippedText(a))
		if runeLen(title) <= e.FallbackMinTitleLen {
			return
		}
		if !containsAny(link, e.FallbackSections) || containsAny(link, e.Excludes) {
			return
		}
		if _, ok := seen[link]; ok {
			return
		}
		if art, ok := newArticle(e.Source, title, link, "", now); ok {
			seen[link] = struct{}{}
			articles = append(articles, art)
		}
	})
	return articles
}

// MaxPage 从首页分页信息读出总页数，找不到时为 1
func (e *DateSectionExtractor) MaxPage(raw string) int {
	doc, err := parseDocument(raw)
	if err != nil {
		return 1
	}

	maxPage := 0
	pagination := firstMatching(doc.Selection, "div, nav, ul", func(s *goquery.Selection) bool {
		return attrContains(s, "class", "pagination", "paging", "page-numbers")
	})
	if pagination.Length() > 0 {
		pagination.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
			href, _ := a.Attr("href")
			maxPage = max(maxPage, pageFromLink(href))
		})
		pagination.Find("a, span").Each(func(_ int, s *goquery.Selection) {
			if n, err := strconv.Atoi(strings.TrimSpace(strippedText(s))); err == nil {
				maxPage = max(maxPage, n)
			}
		})
	}
	if maxPage == 0 {
		doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
			href, _ := a.Attr("href")
			maxPage = max(maxPage, pageFromLink(href))
		})
	}
	if maxPage < 1 {
		return 1
	}
	log.Printf("%s: detected %d pages", e.Source, maxPage)
	return maxPage
}

func pageFromLink(href string) int {
	m := pageLinkRe.FindStringSubmatch(href)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}

func containsAny(s string, parts []string) bool {
	for _, p := range parts {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
