package main

import (
	"log"
	"net/http"
	"path/filepath"

	"github.com/LJTian/EstateNews/internal/api"
	"github.com/LJTian/EstateNews/internal/collector"
	"github.com/LJTian/EstateNews/internal/config"
	"github.com/LJTian/EstateNews/internal/processor"
	"github.com/LJTian/EstateNews/internal/scheduler"
	"github.com/LJTian/EstateNews/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// .env 不存在时直接使用环境变量
	_ = godotenv.Load()
	cfg := config.Load()

	var translator collector.Translator = collector.NopTranslator{}
	if cfg.Translate {
		rdb := storage.NewRedisClient(cfg.RedisAddr)
		translator = storage.NewTranslationCache(rdb, collector.NewWebTranslator(cfg.TranslateTarget), cfg.TranslateTarget)
	}

	var sinks []scheduler.Sink
	if cfg.PostgresDSN != "" {
		mirror, err := storage.NewMirror(cfg.PostgresDSN)
		if err != nil {
			log.Printf("warn: postgres mirror disabled: %v", err)
		} else {
			sinks = append(sinks, mirror)
		}
	}

	sources := collector.DefaultSources(config.Now)
	runner := scheduler.NewRunner(scheduler.Options{
		Sources:          sources,
		Fetcher:          collector.NewClient(cfg.RetryPolicy()),
		Processor:        processor.NewProcessor(translator),
		DataDir:          cfg.DataDir,
		Sinks:            sinks,
		IncrementalPages: cfg.IncrementalPages,
		Now:              config.Now,
	})

	s, err := scheduler.New(cfg.CronSpec, runner)
	if err != nil {
		log.Fatalf("init scheduler failed: %v", err)
	}
	s.Start()

	r := gin.Default()
	r.Use(api.CORS(cfg.Origins()))
	// 若配置了全局访问密码，则启用 Basic Auth 保护（/health 仍然免认证）
	if cfg.BasicAuthUser != "" && cfg.BasicAuthPass != "" {
		r.Use(api.BasicAuth(cfg.BasicAuthUser, cfg.BasicAuthPass))
	}

	apiServer := api.NewServer(runner, storage.NewAggregator(cfg.DataDir), sources)
	apiServer.RegisterRoutes(r)

	// 若配置了前端目录，则托管 SPA 静态文件并做 fallback
	if cfg.WebRoot != "" {
		assetsDir := filepath.Join(cfg.WebRoot, "assets")
		indexFile := filepath.Join(cfg.WebRoot, "index.html")
		r.Static("/assets", assetsDir)
		r.NoRoute(func(c *gin.Context) {
			if c.Request.Method != http.MethodGet {
				c.Status(http.StatusNotFound)
				return
			}
			// SPA：未匹配 API 的 GET 均返回 index.html
			c.File(indexFile)
		})
	}

	addr := ":" + cfg.AppPort
	log.Printf("starting api server at %s ...", addr)
	if err := r.Run(addr); err != nil {
		log.Fatalf("server exit: %v", err)
	}
}
