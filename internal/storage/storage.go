package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/LJTian/EstateNews/internal/collector"
	"github.com/LJTian/EstateNews/internal/processor"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ArticleRecord 是文章在 Postgres 中的镜像，(source, url) 唯一
type ArticleRecord struct {
	ID            string            `gorm:"primaryKey;size:40" json:"id"`
	Source        string            `gorm:"size:64;uniqueIndex:idx_source_url;index" json:"source"`
	URL           string            `gorm:"size:1024;uniqueIndex:idx_source_url" json:"url"`
	Title         string            `gorm:"size:512" json:"title"`
	OriginalTitle string            `gorm:"size:512" json:"originalTitle"`
	Date          string            `gorm:"size:32;index" json:"date"` // 宽松规范化的日期，通常为 YYYY-MM-DD
	ScrapedAt     string            `gorm:"size:32" json:"scrapedAt"`
	ExtraData     datatypes.JSONMap `gorm:"type:jsonb" json:"extraData"`

	CreatedAt time.Time `json:"createdAt"`
}

// Mirror 把新入库的文章同步一份到 Postgres，JSON 文件仍是主存储
type Mirror struct {
	DB *gorm.DB
}

func NewMirror(dsn string) (*Mirror, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&ArticleRecord{}); err != nil {
		return nil, err
	}

	return &Mirror{DB: db}, nil
}

// toValidUTF8 将字符串规范为合法 UTF-8，避免 PostgreSQL invalid byte sequence 错误
func toValidUTF8(s string) string {
	return strings.ToValidUTF8(s, "\uFFFD")
}

// truncateRunesDB 按 rune 数截断字符串，确保不会超过数据库字段长度（例如 varchar(512)）
func truncateRunesDB(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	rs := []rune(s)
	if len(rs) <= limit {
		return s
	}
	return string(rs[:limit])
}

func toRecord(source collector.SourceName, a collector.Article) ArticleRecord {
	if a.Source != "" {
		source = a.Source
	}
	extra := datatypes.JSONMap{}
	if a.Category != "" {
		extra["category"] = a.Category
	}
	if a.ArticleID != "" {
		extra["article_id"] = a.ArticleID
	}
	if a.PublicationTime != "" {
		extra["publication_time"] = a.PublicationTime
	}
	return ArticleRecord{
		ID:            processor.HashURL(string(source) + "|" + a.URL),
		Source:        string(source),
		URL:           a.URL,
		Title:         truncateRunesDB(toValidUTF8(a.Title), 512),
		OriginalTitle: truncateRunesDB(toValidUTF8(a.OriginalTitle), 512),
		Date:          truncateRunesDB(string(a.Date), 32),
		ScrapedAt:     a.ScrapedAt,
		ExtraData:     extra,
	}
}

// Sync 写入一批文章，(source, url) 已存在的忽略
func (m *Mirror) Sync(ctx context.Context, source collector.SourceName, articles []collector.Article) error {
	if len(articles) == 0 {
		return nil
	}
	records := make([]ArticleRecord, 0, len(articles))
	for _, a := range articles {
		records = append(records, toRecord(source, a))
	}
	err := m.DB.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(&records, 100).Error
	if err != nil {
		return fmt.Errorf("mirror %s: %w", source, err)
	}
	return nil
}

// Count 返回镜像中该源的文章数，source 为空时统计全部
func (m *Mirror) Count(ctx context.Context, source string) (int64, error) {
	var n int64
	db := m.DB.WithContext(ctx).Model(&ArticleRecord{})
	if source != "" {
		db = db.Where("source = ?", source)
	}
	if err := db.Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}
