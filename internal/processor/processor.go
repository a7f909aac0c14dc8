package processor

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"

	"github.com/LJTian/EstateNews/internal/collector"
)

// Recorder 是单个新闻源的去重存储
type Recorder interface {
	IsDuplicate(url string) bool
	// Record 追加文章并登记 URL，URL 已存在时返回 false
	Record(a collector.Article) bool
}

// Processor 负责一批候选文章的清洗、翻译与入库
type Processor struct {
	Translator collector.Translator
}

func NewProcessor(t collector.Translator) *Processor {
	if t == nil {
		t = collector.NopTranslator{}
	}
	return &Processor{Translator: t}
}

// Normalize 去掉首尾空白，丢弃缺少标题或链接的条目，并按 URL 做批内去重
func (p *Processor) Normalize(items []collector.Article) []collector.Article {
	out := make([]collector.Article, 0, len(items))
	seen := make(map[string]struct{})

	for _, it := range items {
		it.Title = strings.TrimSpace(it.Title)
		it.URL = strings.TrimSpace(it.URL)
		if it.Title == "" || it.URL == "" {
			continue
		}
		id := HashURL(it.URL)
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, it)
	}

	return out
}

// Ingest 过滤已存在的文章，新文章按需翻译后写入 rec，返回本次新增的文章
func (p *Processor) Ingest(rec Recorder, items []collector.Article, translate bool) []collector.Article {
	var added []collector.Article
	for _, it := range p.Normalize(items) {
		if rec.IsDuplicate(it.URL) {
			continue
		}
		if translate {
			original := it.Title
			it.Title = p.Translator.Translate(original)
			if it.Title == "" {
				it.Title = original
			}
			it.OriginalTitle = original
		}
		if rec.Record(it) {
			added = append(added, it)
		}
	}
	return added
}

// CountNew 只统计不在 rec 中的文章数，不写入
func (p *Processor) CountNew(rec Recorder, items []collector.Article) int {
	n := 0
	for _, it := range p.Normalize(items) {
		if !rec.IsDuplicate(it.URL) {
			n++
		}
	}
	return n
}

// HashURL 对 URL 取 SHA-1 作为稳定指纹
func HashURL(url string) string {
	h := sha1.New()
	h.Write([]byte(url))
	return hex.EncodeToString(h.Sum(nil))
}
