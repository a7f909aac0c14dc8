package scheduler

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// 延迟执行首轮检查，避免与用户首次打开页面的请求争抢资源，首屏加载更快
const defaultStartupDelay = 15 * time.Second

// Scheduler 按 cron 表达式定期触发增量抓取
type Scheduler struct {
	cron         *cron.Cron
	runner       *Runner
	StartupDelay time.Duration
}

func New(spec string, runner *Runner) (*Scheduler, error) {
	c := cron.New()

	s := &Scheduler{
		cron:         c,
		runner:       runner,
		StartupDelay: defaultStartupDelay,
	}

	_, err := c.AddFunc(spec, s.runOnce)
	if err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	if s.StartupDelay < 0 {
		return
	}
	time.AfterFunc(s.StartupDelay, func() {
		go s.runOnce()
	})
}

// Stop 停止 cron，返回的 context 在正在执行的任务结束后关闭
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// RunOnce 对外暴露的单次执行入口，方便手动触发
func (s *Scheduler) RunOnce() {
	s.runOnce()
}

func (s *Scheduler) runOnce() {
	log.Println("start scheduled check...")

	p, err := s.runner.RunSync(context.Background(), ModeIncremental)
	if errors.Is(err, ErrRunInProgress) {
		log.Println("scheduled check skipped: scrape already in progress")
		return
	}
	if err != nil {
		log.Printf("scheduled check error: %v", err)
		return
	}
	log.Printf("scheduled check done: status=%s new=%d", p.Status, p.NewArticles)
}
