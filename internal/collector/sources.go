package collector

import "time"

func fixedURL(u string) func(int) string {
	return func(int) string { return u }
}

// DefaultSources 返回六个新闻源，顺序与 AllSources 一致
func DefaultSources(now func() time.Time) []Source {
	return []Source{
		{
			Name:      SourceFastighetsvarlden,
			Label:     "Fastighetsvarlden",
			BaseURL:   fastighetsvarldenDomain,
			Translate: true,
			Archive:   true,
			PageURL:   FastighetsvarldenPageURL,
			Extractor: NewFastighetsvarldenExtractor(now),
		},
		{
			Name:      SourceCision,
			Label:     "Cision",
			BaseURL:   cisionDomain,
			Translate: true,
			PageURL:   fixedURL(cisionListURL),
			Extractor: NewCisionExtractor(now),
		},
		{
			Name:      SourceLokalguiden,
			Label:     "Lokalguiden",
			BaseURL:   lokalguidenDomain,
			Translate: true,
			PageURL:   fixedURL(lokalguidenListURL),
			Extractor: NewLokalguidenExtractor(now),
		},
		{
			Name:      SourceDI,
			Label:     "DI",
			BaseURL:   diDomain,
			Translate: true,
			PageURL:   DIPageURL(now),
			Extractor: NewDIExtractor(now),
		},
		{
			Name:      SourceFastighetsnytt,
			Label:     "Fastighetsnytt",
			BaseURL:   fastighetsnyttBase,
			Translate: true,
			PageURL:   fixedURL(fastighetsnyttBase),
			Extractor: NewFastighetsnyttExtractor(now),
		},
		{
			// 英文站点，不翻译
			Name:      SourceNordicPropertyNews,
			Label:     "Nordic Property News",
			BaseURL:   nordicPropertyNewsDomain,
			PageURL:   fixedURL(nordicPropertyNewsListURL),
			Extractor: NewNordicPropertyNewsExtractor(now),
		},
	}
}

// FindSource 按名称查找
func FindSource(sources []Source, name SourceName) (Source, bool) {
	for _, s := range sources {
		if s.Name == name {
			return s, true
		}
	}
	return Source{}, false
}
