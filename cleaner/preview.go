// Package cleaner renders fetched pages as Markdown so a caller can check
// what a session cookie store actually gives access to.
package cleaner

import (
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"

	"github.com/use-agent/autologin/models"
)

// Preview is a readable rendering of a page.
type Preview struct {
	Title     string `json:"title"`
	Excerpt   string `json:"excerpt,omitempty"`
	SiteName  string `json:"site_name,omitempty"`
	Markdown  string `json:"markdown"`
	Extracted bool   `json:"extracted"` // false when readability fell back to the whole page
}

// Previewer converts HTML pages to Previews. The converter is shared and
// goroutine-safe.
type Previewer struct {
	mdConverter *converter.Converter
	maxChars    int
}

// NewPreviewer creates a Previewer that truncates Markdown to maxChars runes
// (0 means no limit).
func NewPreviewer(maxChars int) *Previewer {
	return &Previewer{
		mdConverter: newMarkdownConverter(),
		maxChars:    maxChars,
	}
}

// Preview extracts the main content of rawHTML with readability and converts
// it to Markdown.
func (p *Previewer) Preview(rawHTML, sourceURL string) (*Preview, error) {
	if strings.TrimSpace(rawHTML) == "" {
		return nil, models.NewLoginError(models.ErrCodeParse, "page body is empty", nil)
	}

	article, ok := ExtractContent(rawHTML, sourceURL)
	md, err := ToMarkdown(p.mdConverter, article.Content, sourceURL)
	if err != nil {
		return nil, models.NewLoginError(models.ErrCodeParse, "markdown conversion failed", err)
	}

	return &Preview{
		Title:     strings.TrimSpace(article.Title),
		Excerpt:   article.Excerpt,
		SiteName:  article.SiteName,
		Markdown:  truncateRunes(strings.TrimSpace(md), p.maxChars),
		Extracted: ok,
	}, nil
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
