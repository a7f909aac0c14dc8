package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/LJTian/EstateNews/internal/collector"
)

// 每个新闻源对应的数据文件名
var fileNames = map[collector.SourceName]string{
	collector.SourceFastighetsvarlden:  "fastighet_news_data.json",
	collector.SourceCision:             "cision_news_data.json",
	collector.SourceLokalguiden:        "lokalguiden_news_data.json",
	collector.SourceDI:                 "di_news_data.json",
	collector.SourceFastighetsnytt:     "fastighetsnytt_news_data.json",
	collector.SourceNordicPropertyNews: "nordicpropertynews_news_data.json",
}

// 这几个源的文件里带 "source" 字段
var taggedSources = map[collector.SourceName]bool{
	collector.SourceCision:      true,
	collector.SourceLokalguiden: true,
	collector.SourceDI:          true,
}

// FileName 返回新闻源的数据文件名
func FileName(name collector.SourceName) string {
	if f, ok := fileNames[name]; ok {
		return f
	}
	return string(name) + "_news_data.json"
}

// archiveFile 是支持全量翻页的源的文件结构
type archiveFile struct {
	LastFullScrape        *string             `json:"last_full_scrape"`
	LastIncrementalScrape *string             `json:"last_incremental_scrape"`
	LastPageScraped       int                 `json:"last_page_scraped"`
	TotalPages            int                 `json:"total_pages"`
	TotalArticles         int                 `json:"total_articles"`
	Articles              []collector.Article `json:"articles"`
}

// feedFile 是其余源的文件结构
type feedFile struct {
	LastScrape    *string             `json:"last_scrape"`
	TotalArticles int                 `json:"total_articles"`
	Source        string              `json:"source,omitempty"`
	Articles      []collector.Article `json:"articles"`
}

// storedFile 读取时兼容两种结构
type storedFile struct {
	LastScrape            *string             `json:"last_scrape"`
	LastFullScrape        *string             `json:"last_full_scrape"`
	LastIncrementalScrape *string             `json:"last_incremental_scrape"`
	LastPageScraped       int                 `json:"last_page_scraped"`
	TotalPages            int                 `json:"total_pages"`
	Articles              []collector.Article `json:"articles"`
}

// SourceStore 是单个新闻源的去重存储：内存中的文章序列 + URL 集合，整体落盘为一个 JSON 文件。
// 文章只追加不删除。
type SourceStore struct {
	mu      sync.RWMutex
	path    string
	source  collector.SourceName
	archive bool

	articles []collector.Article
	seen     map[string]struct{}

	lastScrape      string
	lastFull        string
	lastIncremental string
	lastPage        int
	totalPages      int
}

// OpenSourceStore 加载 dir 下该源的数据文件；文件不存在或损坏时从空结构开始，不返回错误
func OpenSourceStore(dir string, name collector.SourceName) *SourceStore {
	s := &SourceStore{
		path:    filepath.Join(dir, FileName(name)),
		source:  name,
		archive: name == collector.SourceFastighetsvarlden,
		seen:    make(map[string]struct{}),
	}

	bs, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Printf("warn: read %s: %v", s.path, err)
		}
		return s
	}
	var f storedFile
	if err := json.Unmarshal(bs, &f); err != nil {
		log.Printf("warn: %s is corrupted, starting fresh: %v", s.path, err)
		return s
	}

	s.lastScrape = deref(f.LastScrape)
	s.lastFull = deref(f.LastFullScrape)
	s.lastIncremental = deref(f.LastIncrementalScrape)
	s.lastPage = f.LastPageScraped
	s.totalPages = f.TotalPages
	for _, a := range f.Articles {
		if a.URL == "" {
			continue
		}
		if _, ok := s.seen[a.URL]; ok {
			continue
		}
		s.seen[a.URL] = struct{}{}
		s.articles = append(s.articles, a)
	}
	return s
}

func (s *SourceStore) Source() collector.SourceName { return s.source }

func (s *SourceStore) Path() string { return s.path }

func (s *SourceStore) IsDuplicate(url string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.seen[url]
	return ok
}

// Record 在同一把锁内登记 URL 并追加文章；URL 已存在时不做任何修改
func (s *SourceStore) Record(a collector.Article) bool {
	if a.URL == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[a.URL]; ok {
		return false
	}
	if a.Source == "" {
		a.Source = s.source
	}
	s.seen[a.URL] = struct{}{}
	s.articles = append(s.articles, a)
	return true
}

// Articles 返回文章序列的副本，顺序为发现顺序
func (s *SourceStore) Articles() []collector.Article {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]collector.Article, len(s.articles))
	copy(out, s.articles)
	return out
}

func (s *SourceStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.articles)
}

// MarkScraped 记录抓取时间；全量源区分 full / incremental
func (s *SourceStore) MarkScraped(at time.Time, full bool) {
	ts := collector.Timestamp(at)
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case !s.archive:
		s.lastScrape = ts
	case full:
		s.lastFull = ts
	default:
		s.lastIncremental = ts
	}
}

// LastScrape 返回最近一次抓取时间（全量源取两者中较新的），从未抓取时为空
func (s *SourceStore) LastScrape() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maxString(s.lastScrape, s.lastFull, s.lastIncremental)
}

func (s *SourceStore) LastPage() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastPage
}

func (s *SourceStore) SetLastPage(page int) {
	s.mu.Lock()
	s.lastPage = page
	s.mu.Unlock()
}

func (s *SourceStore) TotalPages() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.totalPages
}

func (s *SourceStore) SetTotalPages(n int) {
	s.mu.Lock()
	s.totalPages = n
	s.mu.Unlock()
}

// Save 整体重写数据文件（先写临时文件再 rename），total_articles 每次重新计算
func (s *SourceStore) Save() error {
	s.mu.RLock()
	payload := s.snapshotLocked()
	s.mu.RUnlock()

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(payload); err != nil {
		return fmt.Errorf("encode %s: %w", s.source, err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return nil
}

func (s *SourceStore) snapshotLocked() any {
	articles := make([]collector.Article, len(s.articles))
	copy(articles, s.articles)
	if s.archive {
		return archiveFile{
			LastFullScrape:        ref(s.lastFull),
			LastIncrementalScrape: ref(s.lastIncremental),
			LastPageScraped:       s.lastPage,
			TotalPages:            s.totalPages,
			TotalArticles:         len(articles),
			Articles:              articles,
		}
	}
	f := feedFile{
		LastScrape:    ref(s.lastScrape),
		TotalArticles: len(articles),
		Articles:      articles,
	}
	if taggedSources[s.source] {
		f.Source = string(s.source)
	}
	return f
}

func ref(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// maxString 按字典序取最大值；时间戳格式固定，字典序即时间序
func maxString(vals ...string) string {
	var out string
	for _, v := range vals {
		if v > out {
			out = v
		}
	}
	return out
}
