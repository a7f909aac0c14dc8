package collector

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const translateMaxResponseBytes = 256 * 1024

const (
	translateMaxLen        = 500
	translateClientTimeout = 20 * time.Second

	defaultGoogleURL   = "https://translate.googleapis.com/translate_a/single"
	defaultMyMemoryURL = "https://api.mymemory.translated.net/get"
)

// Translator 尽力翻译，失败时返回原文
type Translator interface {
	Translate(text string) string
}

// WebTranslator 依次尝试 Google Translate 直接 API → MyMemory，均失败则返回原文。
// 源语言固定为瑞典语。
type WebTranslator struct {
	Client      *http.Client
	Source      string
	Target      string
	GoogleURL   string
	MyMemoryURL string
}

func NewWebTranslator(target string) *WebTranslator {
	if target == "" {
		target = "en"
	}
	return &WebTranslator{
		Client:      &http.Client{Timeout: translateClientTimeout},
		Source:      "sv",
		Target:      target,
		GoogleURL:   defaultGoogleURL,
		MyMemoryURL: defaultMyMemoryURL,
	}
}

func (w *WebTranslator) Translate(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return text
	}
	query := text
	if rs := []rune(query); len(rs) > translateMaxLen {
		query = string(rs[:translateMaxLen])
	}

	if out := w.viaGoogle(query); out != "" {
		return out
	}
	if out := w.viaMyMemory(query); out != "" {
		return out
	}
	return text
}

// viaGoogle 使用 Google Translate 公开 API（client=gtx，无需 TKK/密钥）
func (w *WebTranslator) viaGoogle(text string) string {
	apiURL := fmt.Sprintf("%s?client=gtx&sl=%s&tl=%s&dt=t&q=%s",
		w.GoogleURL, url.QueryEscape(w.Source), url.QueryEscape(w.Target), url.QueryEscape(text))
	body, ok := w.get("google-gtx", apiURL)
	if !ok {
		return ""
	}

	// 响应格式: [[["译文","原文",...],...],...]
	var raw []any
	if err := json.Unmarshal(body, &raw); err != nil {
		log.Printf("translate (google-gtx): decode error: %v", err)
		return ""
	}
	if len(raw) == 0 {
		return ""
	}
	outer, ok := raw[0].([]any)
	if !ok {
		return ""
	}
	var result strings.Builder
	for _, seg := range outer {
		pair, ok := seg.([]any)
		if !ok || len(pair) < 1 {
			continue
		}
		if s, ok := pair[0].(string); ok {
			result.WriteString(s)
		}
	}
	return strings.TrimSpace(result.String())
}

func (w *WebTranslator) viaMyMemory(text string) string {
	apiURL := w.MyMemoryURL + "?langpair=" + url.QueryEscape(w.Source+"|"+w.Target) + "&q=" + url.QueryEscape(text)
	body, ok := w.get("mymemory", apiURL)
	if !ok {
		return ""
	}
	var out struct {
		ResponseData struct {
			TranslatedText string `json:"translatedText"`
		} `json:"responseData"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		log.Printf("translate (mymemory): decode error: %v", err)
		return ""
	}
	return strings.TrimSpace(out.ResponseData.TranslatedText)
}

func (w *WebTranslator) get(name, apiURL string) ([]byte, bool) {
	req, err := http.NewRequest(http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, false
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	client := w.Client
	if client == nil {
		client = &http.Client{Timeout: translateClientTimeout}
	}
	resp, err := client.Do(req)
	if err != nil {
		log.Printf("translate (%s): %v", name, err)
		return nil, false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("translate (%s): status %d", name, resp.StatusCode)
		return nil, false
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, translateMaxResponseBytes))
	if err != nil {
		return nil, false
	}
	return body, true
}

// NopTranslator 不做翻译，关闭翻译时使用
type NopTranslator struct{}

func (NopTranslator) Translate(text string) string { return text }
