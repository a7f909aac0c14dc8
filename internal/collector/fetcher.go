package collector

import (
	"bytes"
	"encoding/json"
	"time"
)

// SourceName 是固定的新闻源枚举
type SourceName string

const (
	SourceFastighetsvarlden  SourceName = "fastighetsvarlden"
	SourceCision             SourceName = "cision"
	SourceLokalguiden        SourceName = "lokalguiden"
	SourceDI                 SourceName = "di"
	SourceFastighetsnytt     SourceName = "fastighetsnytt"
	SourceNordicPropertyNews SourceName = "nordicpropertynews"
)

// AllSources 按固定顺序列出全部新闻源，编排与聚合都按这个顺序遍历
var AllSources = []SourceName{
	SourceFastighetsvarlden,
	SourceCision,
	SourceLokalguiden,
	SourceDI,
	SourceFastighetsnytt,
	SourceNordicPropertyNews,
}

// ParseSourceName 校验字符串是否是已知新闻源
func ParseSourceName(s string) (SourceName, bool) {
	for _, name := range AllSources {
		if string(name) == s {
			return name, true
		}
	}
	return "", false
}

// DateString 是宽松规范化的日期（通常为 YYYY-MM-DD），空值序列化为 null
type DateString string

func (d DateString) MarshalJSON() ([]byte, error) {
	if d == "" {
		return []byte("null"), nil
	}
	return json.Marshal(string(d))
}

func (d *DateString) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*d = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*d = DateString(s)
	return nil
}

// Article 是统一后的文章结构，也是落盘 JSON 中 articles 数组的元素
type Article struct {
	Title         string     `json:"title"`
	OriginalTitle string     `json:"original_title,omitempty"`
	URL           string     `json:"url"`
	Date          DateString `json:"date"`
	Source        SourceName `json:"source,omitempty"`
	ScrapedAt     string     `json:"scraped_at"`

	// 以下为部分新闻源特有的字段
	Category        string `json:"category,omitempty"`
	ArticleID       string `json:"article_id,omitempty"`
	PublicationTime string `json:"publication_time,omitempty"`
}

// Extractor 把一页原始内容（HTML 或 JSON）解析为候选文章。
// 实现不返回错误：内部解析失败只记日志，返回尽可能多的结果。
type Extractor interface {
	Extract(raw string) []Article
}

// PageCounter 由支持全量翻页的解析器实现，从首页分页信息中读出总页数
type PageCounter interface {
	MaxPage(raw string) int
}

// Source 描述一个新闻源：地址模板 + 解析策略
type Source struct {
	Name    SourceName
	Label   string
	BaseURL string
	// Translate 为 true 时新文章标题会被翻译，原文保存在 OriginalTitle
	Translate bool
	// Archive 为 true 表示支持按页全量抓取（PageURL 的 page 参数有意义）
	Archive   bool
	PageURL   func(page int) string
	Extractor Extractor
}

const (
	scrapedAtLayout = "2006-01-02T15:04:05.000000"
	dateLayout      = "2006-01-02"
)

// Timestamp 返回与落盘格式一致的时间戳（字典序即时间序）
func Timestamp(t time.Time) string {
	return t.Format(scrapedAtLayout)
}

func clock(now func() time.Time) time.Time {
	if now == nil {
		return time.Now()
	}
	return now()
}
