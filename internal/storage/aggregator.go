package storage

import (
	"errors"
	"sort"
	"strings"

	"github.com/LJTian/EstateNews/internal/collector"
)

const defaultPerPage = 20

var ErrUnknownSource = errors.New("unknown source")

// Query 是读路径的查询条件；Source 为空或 "all" 表示全部新闻源
type Query struct {
	Source  string
	Search  string
	Page    int
	PerPage int
}

// Page 是一页聚合结果
type Page struct {
	Articles   []collector.Article `json:"articles"`
	Total      int                 `json:"total"`
	Page       int                 `json:"page"`
	PerPage    int                 `json:"per_page"`
	TotalPages int                 `json:"total_pages"`
	LastScrape *string             `json:"last_scrape"`
}

// Aggregator 每次调用都从磁盘重新加载各源文件，合并、过滤、排序后分页
type Aggregator struct {
	Dir     string
	Sources []collector.SourceName
}

func NewAggregator(dir string) *Aggregator {
	return &Aggregator{Dir: dir, Sources: collector.AllSources}
}

func (a *Aggregator) List(q Query) (Page, error) {
	names, err := a.selectSources(q.Source)
	if err != nil {
		return Page{}, err
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PerPage <= 0 {
		q.PerPage = defaultPerPage
	}

	var (
		articles   []collector.Article
		lastScrape string
	)
	for _, name := range names {
		store := OpenSourceStore(a.Dir, name)
		for _, art := range store.Articles() {
			if art.Source == "" {
				art.Source = name
			}
			articles = append(articles, art)
		}
		lastScrape = maxString(lastScrape, store.LastScrape())
	}

	if search := strings.ToLower(q.Search); search != "" {
		filtered := articles[:0]
		for _, art := range articles {
			if strings.Contains(strings.ToLower(art.Title), search) {
				filtered = append(filtered, art)
			}
		}
		articles = filtered
	}

	// 按日期倒序；没有日期的视为空串排在最后，同日期保持合并顺序
	sort.SliceStable(articles, func(i, j int) bool {
		return articles[i].Date > articles[j].Date
	})

	total := len(articles)
	totalPages := 1
	if total > 0 {
		totalPages = (total + q.PerPage - 1) / q.PerPage
	}
	start := min((q.Page-1)*q.PerPage, total)
	end := min(start+q.PerPage, total)

	return Page{
		Articles:   append([]collector.Article{}, articles[start:end]...),
		Total:      total,
		Page:       q.Page,
		PerPage:    q.PerPage,
		TotalPages: totalPages,
		LastScrape: ref(lastScrape),
	}, nil
}

// Count 返回全部新闻源的文章总数和最近抓取时间
func (a *Aggregator) Count() (int, string) {
	var (
		total      int
		lastScrape string
	)
	for _, name := range a.Sources {
		store := OpenSourceStore(a.Dir, name)
		total += store.Len()
		lastScrape = maxString(lastScrape, store.LastScrape())
	}
	return total, lastScrape
}

func (a *Aggregator) selectSources(source string) ([]collector.SourceName, error) {
	source = strings.TrimSpace(strings.ToLower(source))
	if source == "" || source == "all" {
		return a.Sources, nil
	}
	name, ok := collector.ParseSourceName(source)
	if !ok {
		return nil, ErrUnknownSource
	}
	return []collector.SourceName{name}, nil
}
