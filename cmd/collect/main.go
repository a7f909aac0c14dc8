package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strings"

	"github.com/LJTian/EstateNews/internal/collector"
	"github.com/LJTian/EstateNews/internal/config"
	"github.com/LJTian/EstateNews/internal/processor"
	"github.com/LJTian/EstateNews/internal/scheduler"
	"github.com/LJTian/EstateNews/internal/storage"
	"github.com/joho/godotenv"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
)

var (
	fullMode   bool
	sourceName string
	noTrans    bool

	listSource  string
	listSearch  string
	listPage    int
	listPerPage int
)

var cfg *config.Config

// 一个仅执行一次采集任务的命令行入口：适合手动触发采集
var rootCmd = &cobra.Command{
	Use:   "collect",
	Short: "Scrape Swedish real-estate news sources once",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		_ = godotenv.Load()
		cfg = config.Load()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		runner := newRunner(true)

		if sourceName != "" {
			name, ok := collector.ParseSourceName(sourceName)
			if !ok {
				return fmt.Errorf("unknown source %q", sourceName)
			}
			src, _ := collector.FindSource(runner.Sources(), name)
			n := runner.ScrapeSource(context.Background(), src)
			fmt.Printf("%s: %d new articles\n", src.Label, n)
			return nil
		}

		mode := scheduler.ModeIncremental
		if fullMode {
			mode = scheduler.ModeFull
		}
		p, err := runner.RunSync(context.Background(), mode)
		if err != nil {
			return err
		}
		fmt.Printf("%s: %s\n", p.Status, p.Message)
		if p.Status == scheduler.StatusError {
			return fmt.Errorf("scrape failed")
		}
		return nil
	},
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Count new articles on each source without saving them",
	Run: func(cmd *cobra.Command, args []string) {
		res := newRunner(false).CheckNew(context.Background())
		for _, name := range collector.AllSources {
			fmt.Printf("%-20s %d\n", name, res.PerSource[name])
		}
		fmt.Printf("%-20s %d\n", "total", res.Total)
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Print stored articles, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		page, err := storage.NewAggregator(cfg.DataDir).List(storage.Query{
			Source:  listSource,
			Search:  listSearch,
			Page:    listPage,
			PerPage: listPerPage,
		})
		if err != nil {
			return err
		}
		printTable(os.Stdout, page.Articles)
		fmt.Printf("page %d/%d, %d articles\n", page.Page, page.TotalPages, page.Total)
		return nil
	},
}

func init() {
	rootCmd.Flags().BoolVar(&fullMode, "full", false, "Scrape the whole Fastighetsvärlden archive instead of latest pages")
	rootCmd.Flags().StringVar(&sourceName, "source", "", "Only scrape one source, e.g. di or cision")
	rootCmd.PersistentFlags().BoolVar(&noTrans, "no-translate", false, "Keep titles untranslated")

	listCmd.Flags().StringVar(&listSource, "source", "all", "Source to list")
	listCmd.Flags().StringVar(&listSearch, "search", "", "Case-insensitive title filter")
	listCmd.Flags().IntVar(&listPage, "page", 1, "Page number")
	listCmd.Flags().IntVar(&listPerPage, "per-page", 20, "Articles per page")

	rootCmd.AddCommand(checkCmd, listCmd)
}

func newRunner(translate bool) *scheduler.Runner {
	var translator collector.Translator = collector.NopTranslator{}
	if translate && cfg.Translate && !noTrans {
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

	return scheduler.NewRunner(scheduler.Options{
		Sources:          collector.DefaultSources(config.Now),
		Fetcher:          collector.NewClient(cfg.RetryPolicy()),
		Processor:        processor.NewProcessor(translator),
		DataDir:          cfg.DataDir,
		Sinks:            sinks,
		IncrementalPages: cfg.IncrementalPages,
		Notify:           logProgress(),
		Now:              config.Now,
	})
}

// logProgress 只在提示文字变化时打印一行
func logProgress() func(scheduler.Progress) {
	last := ""
	return func(p scheduler.Progress) {
		if p.Message == "" || p.Message == last {
			return
		}
		last = p.Message
		log.Printf("[%s] %s", p.Status, p.Message)
	}
}

const titleWidth = 60

func printTable(w io.Writer, articles []collector.Article) {
	header := []string{"DATE", "SOURCE", "TITLE"}
	rows := make([][]string, 0, len(articles))
	for _, a := range articles {
		date := string(a.Date)
		if date == "" {
			date = "-"
		}
		rows = append(rows, []string{date, string(a.Source), runewidth.Truncate(a.Title, titleWidth, "...")})
	}

	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if n := runewidth.StringWidth(cell); n > widths[i] {
				widths[i] = n
			}
		}
	}

	line := func(cells []string) {
		var sb strings.Builder
		for i, cell := range cells {
			if i > 0 {
				sb.WriteString("  ")
			}
			if i == len(cells)-1 {
				sb.WriteString(cell)
				continue
			}
			sb.WriteString(runewidth.FillRight(cell, widths[i]))
		}
		fmt.Fprintln(w, sb.String())
	}

	line(header)
	for _, row := range rows {
		line(row)
	}
}

// sourceNames 供 --source 的帮助信息使用
func sourceNames() string {
	names := make([]string, 0, len(collector.AllSources))
	for _, n := range collector.AllSources {
		names = append(names, string(n))
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

func main() {
	rootCmd.Long = "Scrape Swedish real-estate news once and exit.\nSources: " + sourceNames()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
