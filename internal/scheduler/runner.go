package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/LJTian/EstateNews/internal/collector"
	"github.com/LJTian/EstateNews/internal/processor"
	"github.com/LJTian/EstateNews/internal/storage"
)

// Mode 是一次抓取的方式
type Mode string

const (
	ModeIncremental Mode = "incremental"
	ModeFull        Mode = "full"
)

// Status 是一次抓取的状态：idle → starting → checking → completed|error|stopped
type Status string

const (
	StatusIdle      Status = "idle"
	StatusStarting  Status = "starting"
	StatusChecking  Status = "checking"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
	StatusStopped   Status = "stopped"
)

func (s Status) terminal() bool {
	return s == StatusCompleted || s == StatusError || s == StatusStopped
}

// 全量翻页时每处理这么多页落盘一次
const flushEveryPages = 10

var (
	ErrRunInProgress = errors.New("scrape already in progress")
	ErrNoRun         = errors.New("no scrape in progress")
)

// Progress 是抓取进度，原地覆盖，不保留历史
type Progress struct {
	Status           Status                 `json:"status"`
	Mode             Mode                   `json:"mode,omitempty"`
	Message          string                 `json:"message"`
	CurrentSource    collector.SourceName   `json:"current_source,omitempty"`
	SourceIndex      int                    `json:"source_index"`
	TotalSources     int                    `json:"total_sources"`
	CurrentPage      int                    `json:"current_page"`
	TotalPages       int                    `json:"total_pages"`
	ArticlesScraped  int                    `json:"articles_scraped"`
	NewArticles      int                    `json:"new_articles"`
	SourcesCompleted []collector.SourceName `json:"sources_completed"`
}

func (p Progress) clone() Progress {
	p.SourcesCompleted = append([]collector.SourceName{}, p.SourcesCompleted...)
	return p
}

// Run 是一次抓取的上下文，进度通过 Snapshot 读取
type Run struct {
	mu       sync.RWMutex
	progress Progress
	stop     atomic.Bool
	done     chan struct{}
	notify   func(Progress)
}

func newRun(mode Mode, notify func(Progress)) *Run {
	return &Run{
		progress: Progress{Status: StatusStarting, Mode: mode, Message: "Starting..."},
		done:     make(chan struct{}),
		notify:   notify,
	}
}

func (r *Run) Snapshot() Progress {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.progress.clone()
}

// Stopped 表示已请求停止
func (r *Run) Stopped() bool { return r.stop.Load() }

// Done 在抓取协程退出后关闭
func (r *Run) Done() <-chan struct{} { return r.done }

func (r *Run) finished() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}

func (r *Run) update(fn func(p *Progress)) {
	r.mu.Lock()
	fn(&r.progress)
	snap := r.progress.clone()
	r.mu.Unlock()
	if r.notify != nil {
		r.notify(snap)
	}
}

// requestStop 在同一临界区内检查终态并置为 stopped；已结束的抓取保持原状态
func (r *Run) requestStop() bool {
	r.mu.Lock()
	if r.progress.Status.terminal() {
		r.mu.Unlock()
		return false
	}
	r.stop.Store(true)
	r.progress.Status = StatusStopped
	r.progress.Message = "Scraping stopped by user"
	snap := r.progress.clone()
	r.mu.Unlock()
	if r.notify != nil {
		r.notify(snap)
	}
	return true
}

func (r *Run) fail(err error) {
	log.Printf("scrape error: %v", err)
	r.update(func(p *Progress) {
		p.Status = StatusError
		p.Message = "Error: " + err.Error()
	})
}

// Sink 接收每个源新入库的文章，例如 Postgres 镜像
type Sink interface {
	Sync(ctx context.Context, source collector.SourceName, articles []collector.Article) error
}

type Options struct {
	Sources   []collector.Source
	Fetcher   collector.PageFetcher
	Processor *processor.Processor
	DataDir   string
	Sinks     []Sink
	// IncrementalPages 增量抓取时全量源检查的页数
	IncrementalPages int
	Notify           func(Progress)
	Now              func() time.Time
}

// Runner 按固定顺序依次抓取各新闻源，同一时间只允许一个抓取在进行
type Runner struct {
	opts Options

	mu      sync.Mutex
	current *Run
}

func NewRunner(opts Options) *Runner {
	if opts.Processor == nil {
		opts.Processor = processor.NewProcessor(nil)
	}
	if opts.IncrementalPages < 1 {
		opts.IncrementalPages = 1
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Runner{opts: opts}
}

func (r *Runner) Sources() []collector.Source { return r.opts.Sources }

func (r *Runner) DataDir() string { return r.opts.DataDir }

// Start 在后台协程开始一次抓取；已有抓取在进行时返回 ErrRunInProgress，不排队
func (r *Runner) Start(ctx context.Context, mode Mode) (*Run, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current != nil && !r.current.finished() {
		return nil, ErrRunInProgress
	}
	if mode != ModeFull {
		mode = ModeIncremental
	}
	run := newRun(mode, r.opts.Notify)
	r.current = run
	go r.execute(ctx, run, mode)
	return run, nil
}

// RunSync 开始一次抓取并等待结束
func (r *Runner) RunSync(ctx context.Context, mode Mode) (Progress, error) {
	run, err := r.Start(ctx, mode)
	if err != nil {
		return Progress{}, err
	}
	<-run.Done()
	return run.Snapshot(), nil
}

// Stop 请求停止当前抓取；正在进行的请求不会被打断，在下一个检查点退出
func (r *Runner) Stop() error {
	r.mu.Lock()
	run := r.current
	r.mu.Unlock()
	if run == nil || run.finished() {
		return ErrNoRun
	}
	if !run.requestStop() {
		return ErrNoRun
	}
	return nil
}

// Progress 返回当前（或最近一次）抓取的进度快照
func (r *Runner) Progress() Progress {
	r.mu.Lock()
	run := r.current
	r.mu.Unlock()
	if run == nil {
		return Progress{Status: StatusIdle, Message: "Ready", SourcesCompleted: []collector.SourceName{}}
	}
	return run.Snapshot()
}

func (r *Runner) execute(ctx context.Context, run *Run, mode Mode) {
	defer close(run.done)
	defer func() {
		if rec := recover(); rec != nil {
			run.fail(fmt.Errorf("panic: %v", rec))
		}
	}()

	run.update(func(p *Progress) {
		if p.Status == StatusStarting {
			p.Status = StatusChecking
		}
	})

	var err error
	switch mode {
	case ModeFull:
		err = r.fullScan(ctx, run)
	default:
		err = r.incremental(ctx, run)
	}
	if err != nil {
		run.fail(err)
		return
	}
	if run.Stopped() {
		log.Printf("scrape stopped by user")
		return
	}
	run.update(func(p *Progress) {
		if p.Status == StatusStopped {
			return
		}
		p.Status = StatusCompleted
	})
}

func (r *Runner) incremental(ctx context.Context, run *Run) error {
	log.Println("start incremental check...")
	run.update(func(p *Progress) {
		p.TotalSources = len(r.opts.Sources)
	})

	total := 0
	for i, src := range r.opts.Sources {
		// 停止请求在源与源之间生效
		if run.Stopped() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		run.update(func(p *Progress) {
			p.CurrentSource = src.Name
			p.SourceIndex = i + 1
			p.CurrentPage = 0
			p.TotalPages = 0
			p.Message = fmt.Sprintf("Checking %s for new articles...", src.Label)
		})

		n := r.scrapeSource(ctx, run, src)
		total += n
		run.update(func(p *Progress) {
			p.NewArticles = total
			p.ArticlesScraped = total
			p.SourcesCompleted = append(p.SourcesCompleted, src.Name)
		})
	}

	if !run.Stopped() {
		run.update(func(p *Progress) {
			p.Message = fmt.Sprintf("Check completed! Found %d new articles", total)
		})
	}
	log.Printf("incremental check done, %d new articles", total)
	return nil
}

// ScrapeSource 抓取单个源的最新页面并落盘，返回新增文章数。
// 不向上返回错误：全部请求失败时返回 0，且不改动该源的数据文件。
func (r *Runner) ScrapeSource(ctx context.Context, src collector.Source) int {
	return r.scrapeSource(ctx, nil, src)
}

func (r *Runner) scrapeSource(ctx context.Context, run *Run, src collector.Source) (added int) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("scrape %s panic: %v", src.Name, rec)
			added = 0
		}
	}()

	store := storage.OpenSourceStore(r.opts.DataDir, src.Name)
	pages := 1
	if src.Archive {
		pages = r.opts.IncrementalPages
	}

	var (
		newArticles []collector.Article
		fetched     bool
	)
	for page := 1; page <= pages; page++ {
		if page > 1 && (ctx.Err() != nil || (run != nil && run.Stopped())) {
			break
		}
		if run != nil && pages > 1 {
			run.update(func(p *Progress) {
				p.CurrentPage = page
				p.TotalPages = pages
			})
		}

		raw, ok := r.opts.Fetcher.Get(ctx, src.PageURL(page))
		if !ok {
			log.Printf("warn: failed to fetch %s page %d, skipping", src.Name, page)
			continue
		}
		fetched = true

		items := extract(src, raw)
		fresh := r.opts.Processor.Ingest(store, items, src.Translate)
		newArticles = append(newArticles, fresh...)
		log.Printf("%s page %d: found %d articles, %d new", src.Name, page, len(items), len(fresh))

		// 第 1 页之后出现没有新文章的页面即停止
		if page > 1 && len(fresh) == 0 {
			break
		}
	}

	if !fetched {
		log.Printf("warn: %s: nothing fetched, store left unchanged", src.Name)
		return 0
	}

	store.MarkScraped(r.opts.Now(), false)
	r.flush(ctx, store, newArticles)
	log.Printf("%s done, new=%d total=%d", src.Name, len(newArticles), store.Len())
	return len(newArticles)
}

func (r *Runner) fullScan(ctx context.Context, run *Run) error {
	src, ok := r.archiveSource()
	if !ok {
		return errors.New("no archive source configured")
	}
	store := storage.OpenSourceStore(r.opts.DataDir, src.Name)
	start := store.LastPage() + 1

	first, ok := r.opts.Fetcher.Get(ctx, src.PageURL(1))
	if !ok {
		return errors.New("failed to fetch first page")
	}
	maxPage := 1
	if pc, ok := src.Extractor.(collector.PageCounter); ok {
		maxPage = pc.MaxPage(first)
	}
	store.SetTotalPages(maxPage)

	run.update(func(p *Progress) {
		p.CurrentSource = src.Name
		p.SourceIndex = 1
		p.TotalSources = 1
		p.TotalPages = maxPage
		p.ArticlesScraped = store.Len()
	})
	if start == 1 {
		log.Printf("start full scrape: %d pages", maxPage)
	} else {
		log.Printf("resume full scrape: pages %d-%d", start, maxPage)
	}

	var (
		pending  []collector.Article
		newTotal int
	)
	for page := start; page <= maxPage; page++ {
		if run.Stopped() {
			log.Printf("full scrape stopped at page %d", page)
			break
		}
		if err := ctx.Err(); err != nil {
			r.flush(ctx, store, pending)
			return err
		}
		run.update(func(p *Progress) {
			p.CurrentPage = page
			p.Message = fmt.Sprintf("Scraping page %d of %d...", page, maxPage)
		})

		raw := first
		if page != 1 {
			if raw, ok = r.opts.Fetcher.Get(ctx, src.PageURL(page)); !ok {
				log.Printf("warn: failed to fetch page %d, skipping", page)
				continue
			}
		}

		items := extract(src, raw)
		fresh := r.opts.Processor.Ingest(store, items, src.Translate)
		pending = append(pending, fresh...)
		newTotal += len(fresh)
		store.SetLastPage(page)

		count := store.Len()
		run.update(func(p *Progress) {
			p.ArticlesScraped = count
			p.NewArticles = newTotal
		})
		log.Printf("page %d/%d: found %d articles, %d new (total %d)", page, maxPage, len(items), len(fresh), count)

		if page%flushEveryPages == 0 {
			r.flush(ctx, store, pending)
			pending = nil
			log.Printf("progress saved at page %d: %d articles", page, count)
		}
	}

	store.MarkScraped(r.opts.Now(), true)
	r.flush(ctx, store, pending)
	if !run.Stopped() {
		run.update(func(p *Progress) {
			p.SourcesCompleted = append(p.SourcesCompleted, src.Name)
			p.Message = fmt.Sprintf("Full scrape completed! Total articles: %d", store.Len())
		})
	}
	log.Printf("full scrape done, %d new articles, %d total", newTotal, store.Len())
	return nil
}

// flush 落盘并把新文章同步给各个 Sink；失败只记日志
func (r *Runner) flush(ctx context.Context, store *storage.SourceStore, fresh []collector.Article) {
	if err := store.Save(); err != nil {
		log.Printf("save %s error: %v", store.Source(), err)
	}
	if len(fresh) == 0 {
		return
	}
	for _, sink := range r.opts.Sinks {
		if err := sink.Sync(ctx, store.Source(), fresh); err != nil {
			log.Printf("warn: sync %s: %v", store.Source(), err)
		}
	}
}

func (r *Runner) archiveSource() (collector.Source, bool) {
	for _, s := range r.opts.Sources {
		if s.Archive {
			return s, true
		}
	}
	return collector.Source{}, false
}

// extract 解析失败（panic）时记日志并视为空结果
func extract(src collector.Source, raw string) (items []collector.Article) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("parse %s error: %v", src.Name, rec)
			items = nil
		}
	}()
	return src.Extractor.Extract(raw)
}

// CheckResult 是检查新文章的结果，不落盘
type CheckResult struct {
	Total     int                          `json:"total"`
	PerSource map[collector.SourceName]int `json:"per_source"`
}

// CheckNew 抓取每个源的第 1 页，统计不在存储中的文章数
func (r *Runner) CheckNew(ctx context.Context) CheckResult {
	res := CheckResult{PerSource: make(map[collector.SourceName]int, len(r.opts.Sources))}
	for _, src := range r.opts.Sources {
		if ctx.Err() != nil {
			break
		}
		raw, ok := r.opts.Fetcher.Get(ctx, src.PageURL(1))
		if !ok {
			log.Printf("warn: check %s: fetch failed", src.Name)
			res.PerSource[src.Name] = 0
			continue
		}
		store := storage.OpenSourceStore(r.opts.DataDir, src.Name)
		n := r.opts.Processor.CountNew(store, extract(src, raw))
		res.PerSource[src.Name] = n
		res.Total += n
	}
	log.Printf("check done, %d new articles available", res.Total)
	return res
}

// State 是界面打开时需要的初始状态
type State struct {
	NeedsScraping bool    `json:"needs_scraping"`
	ArticleCount  int     `json:"article_count"`
	LastScrape    *string `json:"last_scrape"`
	DataDir       string  `json:"data_dir"`
}

// InitialState 汇总所有源的文章数与最近抓取时间；界面每次打开都会触发一次检查
func (r *Runner) InitialState() State {
	names := make([]collector.SourceName, 0, len(r.opts.Sources))
	for _, s := range r.opts.Sources {
		names = append(names, s.Name)
	}
	agg := &storage.Aggregator{Dir: r.opts.DataDir, Sources: names}
	count, last := agg.Count()
	st := State{NeedsScraping: true, ArticleCount: count, DataDir: r.opts.DataDir}
	if last != "" {
		st.LastScrape = &last
	}
	return st
}
