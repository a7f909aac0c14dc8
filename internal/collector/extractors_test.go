package collector

import (
	"testing"
	"time"
)

func fixedNow() time.Time {
	return time.Date(2025, 10, 17, 9, 30, 0, 0, time.UTC)
}

const archivePage = `<html><body>
<div id="main-content">
  <h3>2025-10-17</h3>
  <ul>
    <li><a href="/notiser/bolag-a-koper-fastighet/">Bolag A köper fastighet i Malmö</a></li>
    <li><a href="https://www.fastighetsvarlden.se/nyheter/ny-vd/"> Ny vd på Bolag B </a></li>
    <li><a href="/arkivet/page/2/">Nästa sida med många ord</a></li>
    <li><a href="/notiser/kort/">Kort</a></li>
  </ul>
  <p>Uppdaterad 2025-10-16 kl 10</p>
  <h3>2025-10-16</h3>
  <ul>
    <li><a href="/analys-fakta/marknaden-2025/">Marknaden under 2025</a></li>
    <li><a href="https://example.com/notiser/extern/">Extern länk med lång titel</a></li>
  </ul>
</div>
</body></html>`

func TestDateSectionExtractorTagsLinksWithCurrentHeader(t *testing.T) {
	e := NewFastighetsvarldenExtractor(fixedNow)
	got := e.Extract(archivePage)

	want := []struct {
		url  string
		date DateString
	}{
		{"https://www.fastighetsvarlden.se/notiser/bolag-a-koper-fastighet/", "2025-10-17"},
		{"https://www.fastighetsvarlden.se/nyheter/ny-vd/", "2025-10-17"},
		{"https://www.fastighetsvarlden.se/analys-fakta/marknaden-2025/", "2025-10-16"},
	}
	if len(got) != len(want) {
		t.Fatalf("Extract returned %d articles, want %d: %+v", len(got), len(want), got)
	}
	for i, w := range want {
		if got[i].URL != w.url || got[i].Date != w.date {
			t.Errorf("article %d = (%s, %s), want (%s, %s)", i, got[i].URL, got[i].Date, w.url, w.date)
		}
		if got[i].Source != SourceFastighetsvarlden {
			t.Errorf("article %d source = %q", i, got[i].Source)
		}
		if got[i].ScrapedAt != "2025-10-17T09:30:00.000000" {
			t.Errorf("article %d scraped_at = %q", i, got[i].ScrapedAt)
		}
	}
	if got[1].Title != "Ny vd på Bolag B" {
		t.Fatalf("title not trimmed: %q", got[1].Title)
	}
}

func TestDateSectionExtractorOuterContainerDoesNotStealLinks(t *testing.T) {
	page := `<html><body><main>
<div class="list">
  <div><h2>2025-10-17</h2><p><a href="/notiser/forsta-nyheten/">Första nyheten idag</a></p></div>
  <div><h2>2025-10-16</h2><p><a href="/notiser/andra-nyheten/">Andra nyheten igår</a></p></div>
</div>
</main></body></html>`
	got := NewFastighetsvarldenExtractor(fixedNow).Extract(page)
	if len(got) != 2 {
		t.Fatalf("Extract returned %d articles, want 2: %+v", len(got), got)
	}
	if got[0].Date != "2025-10-17" || got[1].Date != "2025-10-16" {
		t.Fatalf("dates = %s, %s; want 2025-10-17, 2025-10-16", got[0].Date, got[1].Date)
	}
}

func TestDateSectionExtractorFallback(t *testing.T) {
	page := `<html><body><main>
<a href="/notiser/lang-titel/">En lång titel om fastigheter</a>
<a href="/nyheter/x/">Nyheter titel som är lång</a>
<a href="/notiser/page/2/">Notiser sida två lång</a>
<a href="/notiser/k/">Kort titel</a>
</main></body></html>`
	got := NewFastighetsvarldenExtractor(fixedNow).Extract(page)
	if len(got) != 1 {
		t.Fatalf("fallback returned %d articles, want 1: %+v", len(got), got)
	}
	if got[0].URL != "https://www.fastighetsvarlden.se/notiser/lang-titel/" {
		t.Fatalf("unexpected url %q", got[0].URL)
	}
	if got[0].Date != "" {
		t.Fatalf("fallback article should carry no date, got %q", got[0].Date)
	}
}

func TestDateSectionExtractorFallbackNeedsContentClass(t *testing.T) {
	page := `<html><body>
<header><article class="promo"><a href="/kampanj/">Kampanj utan datum</a></article></header>
<article><a href="/om-oss/">Om oss och vår redaktion</a></article>
<div class="posts"><a href="/notiser/en-lang-notis-titel/">En lang notis titel har</a></div>
</body></html>`
	got := NewFastighetsvarldenExtractor(fixedNow).Extract(page)
	if len(got) != 1 {
		t.Fatalf("fallback returned %d articles, want 1: %+v", len(got), got)
	}
	if got[0].URL != "https://www.fastighetsvarlden.se/notiser/en-lang-notis-titel/" {
		t.Fatalf("unexpected url %q", got[0].URL)
	}
}

func TestDateSectionExtractorMaxPage(t *testing.T) {
	cases := []struct {
		name string
		html string
		want int
	}{
		{
			name: "pagination container",
			html: `<div class="pagination"><a href="/arkivet/page/2/">2</a><a href="/arkivet/page/3/">3</a><span>…</span><a href="/arkivet/page/148/">Sista</a></div>`,
			want: 148,
		},
		{
			name: "numeric text only",
			html: `<nav class="page-numbers"><span>1</span><a href="#">52</a></nav>`,
			want: 52,
		},
		{
			name: "loose page links",
			html: `<p><a href="https://www.fastighetsvarlden.se/arkivet/page/7/">äldre</a></p>`,
			want: 7,
		},
		{
			name: "no pagination",
			html: `<p>inget här</p>`,
			want: 1,
		},
	}
	e := NewFastighetsvarldenExtractor(fixedNow)
	for _, tc := range cases {
		if got := e.MaxPage(tc.html); got != tc.want {
			t.Errorf("%s: MaxPage = %d, want %d", tc.name, got, tc.want)
		}
	}
}

func TestFastighetsvarldenPageURL(t *testing.T) {
	if got := FastighetsvarldenPageURL(1); got != "https://www.fastighetsvarlden.se/arkivet" {
		t.Fatalf("page 1 url = %q", got)
	}
	if got := FastighetsvarldenPageURL(12); got != "https://www.fastighetsvarlden.se/arkivet/page/12/" {
		t.Fatalf("page 12 url = %q", got)
	}
}

func TestCardGridExtractor(t *testing.T) {
	page := `<html><body>
<div class="card-item"><article><a class="bodytext content" href="/se/bolag/r/nyhet,c123"><h2> Bolag tecknar avtal </h2><time pubdate="2025-10-09 06:00:00Z">9 okt</time></a></article></div>
<div class="card-item"><article><a class="bodytext content" href="https://news.cision.com/se/x"><h2>Rapport</h2><time datetime="2025-10-08T07:30:00+02:00"></time></a></article></div>
<div class="card-item"><article><a class="bodytext content" href="/se/y"><h2>Text datum</h2><time>8 oktober 2025</time></a></article></div>
<div class="card-item"><article><a class="bodytext content" href="/se/utan-tid"><h2>Utan tid</h2></a></article></div>
<div class="card-item"><article><a class="other" href="/se/z"><h2>Fel klass</h2></a></article></div>
<div class="card-item"><a class="bodytext content" href="/se/no-article"><h2>Utan article</h2></a></div>
</body></html>`
	got := NewCisionExtractor(fixedNow).Extract(page)

	want := []struct {
		title, url string
		date       DateString
	}{
		{"Bolag tecknar avtal", "https://news.cision.com/se/bolag/r/nyhet,c123", "2025-10-09"},
		{"Rapport", "https://news.cision.com/se/x", "2025-10-08"},
		{"Text datum", "https://news.cision.com/se/y", "8 oktober 2025"},
		{"Utan tid", "https://news.cision.com/se/utan-tid", ""},
	}
	if len(got) != len(want) {
		t.Fatalf("Extract returned %d articles, want %d: %+v", len(got), len(want), got)
	}
	for i, w := range want {
		if got[i].Title != w.title || got[i].URL != w.url || got[i].Date != w.date {
			t.Errorf("article %d = %+v, want %+v", i, got[i], w)
		}
	}
}

func TestAttributeListExtractor(t *testing.T) {
	page := `<html><body>
<div class="article" data-id="101"><p class="title">Ny kontorshub i Göteborg</p><a href="/magasinet/artikel/ny-kontorshub">Läs</a><span class="category"> Kontor </span></div>
<div class="article quote-article" data-id="102"><p class="title">Citat</p><a href="/magasinet/artikel/citat">Läs</a></div>
<div class="article" data-id="103"><p class="title">Utan artikellänk</p><a href="/annons">x</a></div>
<div class="article"><p class="title">Utan id</p><a href="/magasinet/artikel/utan-id">Läs</a></div>
<div class="article" data-id="104"><p class="title">Utan kategori</p><a href="/om">om</a><a href="https://www.lokalguiden.se/magasinet/artikel/utan-kategori">Läs</a></div>
</body></html>`
	got := NewLokalguidenExtractor(fixedNow).Extract(page)
	if len(got) != 2 {
		t.Fatalf("Extract returned %d articles, want 2: %+v", len(got), got)
	}
	first := got[0]
	if first.URL != "https://www.lokalguiden.se/magasinet/artikel/ny-kontorshub" {
		t.Errorf("url = %q", first.URL)
	}
	if first.Category != "Kontor" || first.ArticleID != "101" {
		t.Errorf("category/id = %q/%q", first.Category, first.ArticleID)
	}
	if first.Date != "2025-10-17" {
		t.Errorf("date = %q, want scrape date", first.Date)
	}
	if got[1].Category != "" || got[1].ArticleID != "104" {
		t.Errorf("second article = %+v", got[1])
	}
}

func TestPaginatedListExtractorDateRules(t *testing.T) {
	page := `<html><body>
<article class="news-item" data-id="d1" data-day="2025-09-15"><a href="/nyheter/a/"><h2 class="news-item__heading">Affär A</h2></a><time class="global-xs-bold">1 januari 2020</time></article>
<article class="news-item" data-id="d2"><a href="/nyheter/b/"><h2 class="news-item__heading">Affär B</h2></a><time class="global-xs-bold">16 september 2025</time></article>
<article class="news-item" data-id="d3"><a href="/nyheter/c/"><h2 class="news-item__heading">Affär C</h2></a><time datetime="2025-09-14T08:00:00Z">igår</time></article>
<article class="news-item" data-id="d4"><a href="/nyheter/d/"><h2 class="news-item__heading">Affär D</h2></a><time>3/9/2025</time></article>
<article class="news-item" data-id="d5"><a href="/nyheter/e/"><h2 class="news-item__heading">Affär E</h2></a><time>1.8.2025</time></article>
<article class="news-item" data-id="d6"><a href="/nyheter/f/"><h2 class="news-item__heading">Affär F</h2></a></article>
<article class="news-item" data-id="d7"><a href="/nyheter/g/"></a></article>
</body></html>`
	got := NewDIExtractor(fixedNow).Extract(page)

	want := []DateString{"2025-09-15", "2025-09-16", "2025-09-14", "2025-09-03", "2025-08-01", "2025-10-17"}
	if len(got) != len(want) {
		t.Fatalf("Extract returned %d articles, want %d: %+v", len(got), len(want), got)
	}
	for i, w := range want {
		if got[i].Date != w {
			t.Errorf("article %d (%s) date = %q, want %q", i, got[i].Title, got[i].Date, w)
		}
	}
	if got[0].URL != "https://www.di.se/nyheter/a/" || got[0].ArticleID != "d1" {
		t.Fatalf("first article = %+v", got[0])
	}
}

func TestDIPageURL(t *testing.T) {
	got := DIPageURL(fixedNow)(2)
	want := "https://www.di.se/get-list-articles/?template=tagPage&id=di.tag.fastighet&lastday=2025-10-17&page=2"
	if got != want {
		t.Fatalf("DIPageURL = %q, want %q", got, want)
	}
}

func TestEmbeddedJSONExtractor(t *testing.T) {
	page := `<html><head></head><body>
<script id="__NEXT_DATA__" type="application/json">{"props":{"containers":[
 {"type":"articlelisting","article":{"url":"/nyheter/affar-1","headlineHtml":"<span class=\"kicker\"><b>Stor</b> <i>affär</i></span> &amp; mer","publicationTime":"2025-10-10T08:15:00Z","id":12345,"sectionPath":[{"name":"Transaktioner"}]}},
 {"type":"banner"},
 {"type":"articlelisting","article":{"url":"/nyheter/affar-2","headlineHtml":"Utan sektion","id":"abc"}},
 {"type":"articlelisting","article":"broken"}
]}}</script>
</body></html>`
	got := NewFastighetsnyttExtractor(fixedNow).Extract(page)
	if len(got) != 2 {
		t.Fatalf("Extract returned %d articles, want 2: %+v", len(got), got)
	}

	a := got[0]
	if a.Title != "Stor affär & mer" {
		t.Errorf("title = %q", a.Title)
	}
	if a.URL != "https://www.fastighetsnytt.se/nyheter/affar-1" {
		t.Errorf("url = %q", a.URL)
	}
	if a.Date != "2025-10-10" || a.PublicationTime != "2025-10-10T08:15:00Z" {
		t.Errorf("date/publication_time = %q/%q", a.Date, a.PublicationTime)
	}
	if a.ArticleID != "12345" || a.Category != "Transaktioner" {
		t.Errorf("id/category = %q/%q", a.ArticleID, a.Category)
	}

	b := got[1]
	if b.Category != "Okategoriserad" || b.Date != "2025-10-17" || b.ArticleID != "abc" {
		t.Errorf("second article = %+v", b)
	}
}

func TestEmbeddedJSONExtractorMissingPayload(t *testing.T) {
	e := NewFastighetsnyttExtractor(fixedNow)
	if got := e.Extract(`<html><body><p>ingen data</p></body></html>`); len(got) != 0 {
		t.Fatalf("expected no articles, got %+v", got)
	}
	bad := `<script id="__NEXT_DATA__" type="application/json">{not json</script>`
	if got := e.Extract(bad); len(got) != 0 {
		t.Fatalf("expected no articles for invalid json, got %+v", got)
	}
}

func TestHeadingLinkExtractorRules(t *testing.T) {
	page := `<html><body>
<div class="post"><a class="black-link" href="/news/a"><h2 class="article-header">Deal A</h2></a></div>
<div class="post"><h2 class="article-header">Deal B</h2><a href="/other">x</a><a class="black-link" href="https://www.nordicpropertynews.com/news/b">Read</a></div>
<div class="post"><h2 class="article-header">Deal C</h2><a href="/news/c">more</a></div>
<div class="post"><h2 class="article-header">Deal D</h2></div>
</body></html>`
	got := NewNordicPropertyNewsExtractor(fixedNow).Extract(page)

	want := []string{
		"https://www.nordicpropertynews.com/news/a",
		"https://www.nordicpropertynews.com/news/b",
		"https://www.nordicpropertynews.com/news/c",
	}
	if len(got) != len(want) {
		t.Fatalf("Extract returned %d articles, want %d: %+v", len(got), len(want), got)
	}
	for i, w := range want {
		if got[i].URL != w {
			t.Errorf("article %d url = %q, want %q", i, got[i].URL, w)
		}
		if got[i].Date != "2025-10-17" {
			t.Errorf("article %d date = %q", i, got[i].Date)
		}
	}
}

func TestExtractorsToleratesEmptyInput(t *testing.T) {
	for _, src := range DefaultSources(fixedNow) {
		if got := src.Extractor.Extract(""); len(got) != 0 {
			t.Errorf("%s: expected no articles from empty page, got %d", src.Name, len(got))
		}
	}
}
