package seo

import "strings"

type OpenGraph struct {
	Title       string
	Description string
	Image       string
	Type        string
	URL         string
}

type Twitter struct {
	Card  string
	Site  string
	Image string
}

type Meta struct {
	Title       string
	Description string
	Canonical   string
	Lang        string
	OG          OpenGraph
	Twitter     Twitter
}

// Page fills a Meta with the site title suffix and the OpenGraph/Twitter mirrors of the basic fields.
func Page(siteName, title, description, canonical, image string) Meta {
	full := siteName
	if t := strings.TrimSpace(title); t != "" && t != siteName {
		full = t + " | " + siteName
	}
	card := "summary"
	if image != "" {
		card = "summary_large_image"
	}
	return Meta{
		Title:       full,
		Description: truncate(description, 160),
		Canonical:   canonical,
		OG: OpenGraph{
			Title:       full,
			Description: truncate(description, 200),
			Image:       image,
			Type:        "website",
			URL:         canonical,
		},
		Twitter: Twitter{Card: card, Image: image},
	}
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n-1])) + "…"
}
