package collector

import (
	"context"
	"log"
	"time"

	"github.com/gocolly/colly/v2"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// RetryPolicy 描述单个请求的重试与限速策略
type RetryPolicy struct {
	MaxAttempts int
	// RetryDelay 为传输失败后下次重试前的等待
	RetryDelay time.Duration
	// RateLimit 为每次成功请求后固定的等待，用来限制对站点的请求频率
	RateLimit time.Duration
	Timeout   time.Duration
}

// DefaultRetryPolicy 3 次尝试，失败等 5 秒，成功后等 2 秒
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		RetryDelay:  5 * time.Second,
		RateLimit:   2 * time.Second,
		Timeout:     30 * time.Second,
	}
}

// PageFetcher 抓取一个页面，失败时返回 ok=false 而不是错误
type PageFetcher interface {
	Get(ctx context.Context, pageURL string) (body string, ok bool)
}

// Client 基于 colly 的页面抓取器，按 RetryPolicy 重试
type Client struct {
	Policy    RetryPolicy
	UserAgent string
	Headers   map[string]string
}

func NewClient(policy RetryPolicy) *Client {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 1
	}
	return &Client{
		Policy:    policy,
		UserAgent: defaultUserAgent,
		Headers: map[string]string{
			"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
			"Accept-Language": "en-US,en;q=0.5",
		},
	}
}

func (c *Client) Get(ctx context.Context, pageURL string) (string, bool) {
	attempts := c.Policy.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	for attempt := 1; attempt <= attempts; attempt++ {
		log.Printf("fetch %s (attempt %d/%d)", pageURL, attempt, attempts)
		body, err := c.visit(pageURL)
		if err == nil {
			sleepContext(ctx, c.Policy.RateLimit)
			return body, true
		}
		log.Printf("fetch %s error: %v", pageURL, err)
		if attempt < attempts {
			log.Printf("retrying in %s...", c.Policy.RetryDelay)
			if !sleepContext(ctx, c.Policy.RetryDelay) {
				return "", false
			}
		}
	}
	log.Printf("fetch %s failed after %d attempts", pageURL, attempts)
	return "", false
}

// visit 每次新建 collector 并允许重复访问，重试同一地址时不会被判为已访问
func (c *Client) visit(pageURL string) (string, error) {
	col := colly.NewCollector(
		colly.UserAgent(c.UserAgent),
		colly.AllowURLRevisit(),
	)
	if c.Policy.Timeout > 0 {
		col.SetRequestTimeout(c.Policy.Timeout)
	}

	col.OnRequest(func(r *colly.Request) {
		for k, v := range c.Headers {
			r.Headers.Set(k, v)
		}
	})

	var body []byte
	col.OnResponse(func(r *colly.Response) {
		body = r.Body
	})

	if err := col.Visit(pageURL); err != nil {
		return "", err
	}
	return string(body), nil
}

// sleepContext 等待 d，ctx 取消时提前返回 false
func sleepContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
