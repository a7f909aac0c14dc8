package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/LJTian/EstateNews/internal/collector"
	"github.com/LJTian/EstateNews/internal/scheduler"
	"github.com/LJTian/EstateNews/internal/storage"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// 检查新文章要逐个请求六个站点，给足时间
const checkTimeout = 3 * time.Minute

// Runner 是界面需要的抓取操作
type Runner interface {
	Start(ctx context.Context, mode scheduler.Mode) (*scheduler.Run, error)
	Stop() error
	Progress() scheduler.Progress
	CheckNew(ctx context.Context) scheduler.CheckResult
	InitialState() scheduler.State
}

// Lister 是文章读路径
type Lister interface {
	List(q storage.Query) (storage.Page, error)
}

type Server struct {
	runner  Runner
	lister  Lister
	sources []collector.Source
}

func NewServer(runner Runner, lister Lister, sources []collector.Source) *Server {
	return &Server{runner: runner, lister: lister, sources: sources}
}

func (s *Server) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", s.health)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/articles", s.listArticles)
		v1.GET("/sources", s.listSources)
		v1.GET("/state", s.state)
		v1.GET("/progress", s.progress)
		v1.GET("/check", s.checkNew)
		v1.POST("/scrape", s.startIncremental)
		v1.POST("/scrape/full", s.startFull)
		v1.POST("/scrape/stop", s.stop)
	}
}

func writeOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": "success",
		"data":    data,
	})
}

func writeError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"code":    code,
		"message": message,
	})
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) listArticles(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	perPage, err := strconv.Atoi(c.DefaultQuery("per_page", "20"))
	if err != nil || perPage <= 0 {
		perPage = 20
	}

	result, err := s.lister.List(storage.Query{
		Source:  c.DefaultQuery("source", "all"),
		Search:  c.Query("search"),
		Page:    page,
		PerPage: perPage,
	})
	if errors.Is(err, storage.ErrUnknownSource) {
		writeError(c, http.StatusBadRequest, "bad_request", "unknown source")
		return
	}
	if err != nil {
		writeError(c, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}
	writeOK(c, result)
}

type sourceInfo struct {
	Name      collector.SourceName `json:"name"`
	Label     string               `json:"label"`
	BaseURL   string               `json:"base_url"`
	Archive   bool                 `json:"archive"`
	Translate bool                 `json:"translate"`
}

func (s *Server) listSources(c *gin.Context) {
	out := make([]sourceInfo, 0, len(s.sources))
	for _, src := range s.sources {
		out = append(out, sourceInfo{
			Name:      src.Name,
			Label:     src.Label,
			BaseURL:   src.BaseURL,
			Archive:   src.Archive,
			Translate: src.Translate,
		})
	}
	writeOK(c, out)
}

func (s *Server) state(c *gin.Context) {
	writeOK(c, s.runner.InitialState())
}

func (s *Server) progress(c *gin.Context) {
	writeOK(c, s.runner.Progress())
}

func (s *Server) checkNew(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), checkTimeout)
	defer cancel()
	writeOK(c, s.runner.CheckNew(ctx))
}

func (s *Server) startIncremental(c *gin.Context) {
	s.start(c, scheduler.ModeIncremental)
}

func (s *Server) startFull(c *gin.Context) {
	s.start(c, scheduler.ModeFull)
}

// start 抓取在后台进行，不跟随请求的 context 取消
func (s *Server) start(c *gin.Context, mode scheduler.Mode) {
	run, err := s.runner.Start(context.Background(), mode)
	if errors.Is(err, scheduler.ErrRunInProgress) {
		writeError(c, http.StatusConflict, "busy", "scrape already in progress")
		return
	}
	if err != nil {
		writeError(c, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"code":    "ok",
		"message": "started",
		"data":    run.Snapshot(),
	})
}

func (s *Server) stop(c *gin.Context) {
	if err := s.runner.Stop(); err != nil {
		writeError(c, http.StatusConflict, "idle", "no scrape in progress")
		return
	}
	writeOK(c, s.runner.Progress())
}

// CORS 允许配置的前端来源访问 API
func CORS(origins []string) gin.HandlerFunc {
	allowCreds := !(len(origins) == 1 && origins[0] == "*")
	return cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: allowCreds,
		MaxAge:           12 * time.Hour,
	})
}

// BasicAuth 为整个站点增加一个简单的 Basic Auth 访问密码。
// /health 不做认证，便于健康检查。
func BasicAuth(user, pass string) gin.HandlerFunc {
	const realm = "Restricted"
	uBytes := []byte(user)
	pBytes := []byte(pass)

	return func(c *gin.Context) {
		if c.Request.URL.Path == "/health" {
			c.Next()
			return
		}
		u, p, ok := c.Request.BasicAuth()
		if !ok ||
			subtle.ConstantTimeCompare([]byte(u), uBytes) != 1 ||
			subtle.ConstantTimeCompare([]byte(p), pBytes) != 1 {
			c.Header("WWW-Authenticate", `Basic realm="`+realm+`"`)
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Next()
	}
}
