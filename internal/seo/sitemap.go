// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package seo builds the sitemap and robots.txt of the public site.
package seo

import (
	"encoding/xml"
	"strings"
	"time"
)

// XMLNamespace is the sitemap XML namespace.
const XMLNamespace = "http://www.sitemaps.org/schemas/sitemap/0.9"

// xhtmlNamespace carries the hreflang alternates.
const xhtmlNamespace = "http://www.w3.org/1999/xhtml"

// ChangeFreq represents the change frequency of a URL.
type ChangeFreq string

// Change frequencies used by the site.
const (
	ChangeFreqDaily   ChangeFreq = "daily"
	ChangeFreqWeekly  ChangeFreq = "weekly"
	ChangeFreqMonthly ChangeFreq = "monthly"
)

// Alternate links a URL to its translation.
type Alternate struct {
	Rel      string `xml:"rel,attr"`
	HrefLang string `xml:"hreflang,attr"`
	Href     string `xml:"href,attr"`
}

// SitemapURL represents a single URL entry in the sitemap.
type SitemapURL struct {
	Loc        string      `xml:"loc"`
	LastMod    string      `xml:"lastmod,omitempty"`
	ChangeFreq ChangeFreq  `xml:"changefreq,omitempty"`
	Priority   string      `xml:"priority,omitempty"`
	Alternates []Alternate `xml:"xhtml:link,omitempty"`
}

// Sitemap represents the complete sitemap document.
type Sitemap struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	XHTML   string       `xml:"xmlns:xhtml,attr,omitempty"`
	URLs    []SitemapURL `xml:"url"`
}

// SitemapPost is a published blog post.
type SitemapPost struct {
	Slug      string
	UpdatedAt time.Time
}

// SitemapBuilder collects the URLs of the public site.
type SitemapBuilder struct {
	siteURL   string
	languages []string
	urls      []SitemapURL
}

// NewSitemapBuilder creates a builder. Every section URL is listed with an
// alternate per language, served under the /{lang} prefix.
func NewSitemapBuilder(siteURL string, languages ...string) *SitemapBuilder {
	return &SitemapBuilder{
		siteURL:   strings.TrimRight(siteURL, "/"),
		languages: languages,
		urls:      make([]SitemapURL, 0),
	}
}

func (b *SitemapBuilder) alternates(path string) []Alternate {
	if len(b.languages) == 0 {
		return nil
	}
	out := make([]Alternate, 0, len(b.languages))
	for _, lang := range b.languages {
		href := b.siteURL + "/" + lang
		if path != "/" {
			href += path
		}
		out = append(out, Alternate{Rel: "alternate", HrefLang: lang, Href: href})
	}
	return out
}

// AddHomepage adds the landing page.
func (b *SitemapBuilder) AddHomepage() {
	b.urls = append(b.urls, SitemapURL{
		Loc:        b.siteURL + "/",
		ChangeFreq: ChangeFreqDaily,
		Priority:   "1.0",
		Alternates: b.alternates("/"),
	})
}

// AddSection adds a listing page such as /news.
func (b *SitemapBuilder) AddSection(path string, freq ChangeFreq, priority string) {
	b.urls = append(b.urls, SitemapURL{
		Loc:        b.siteURL + path,
		ChangeFreq: freq,
		Priority:   priority,
		Alternates: b.alternates(path),
	})
}

// AddPost adds a blog post.
func (b *SitemapBuilder) AddPost(p SitemapPost) {
	path := "/blog/" + p.Slug
	u := SitemapURL{
		Loc:        b.siteURL + path,
		ChangeFreq: ChangeFreqMonthly,
		Priority:   "0.6",
		Alternates: b.alternates(path),
	}
	if !p.UpdatedAt.IsZero() {
		u.LastMod = p.UpdatedAt.UTC().Format(time.RFC3339)
	}
	b.urls = append(b.urls, u)
}

// Len returns the number of URLs collected so far.
func (b *SitemapBuilder) Len() int {
	return len(b.urls)
}

// Build generates the sitemap XML.
func (b *SitemapBuilder) Build() ([]byte, error) {
	sitemap := Sitemap{
		XMLNS: XMLNamespace,
		URLs:  b.urls,
	}
	if len(b.languages) > 0 {
		sitemap.XHTML = xhtmlNamespace
	}

	output := []byte(xml.Header)
	xmlBytes, err := xml.MarshalIndent(sitemap, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(output, xmlBytes...), nil
}
