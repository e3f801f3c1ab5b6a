package autologin

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// LoginLink is a hyperlink that probably leads to a login page.
type LoginLink struct {
	Href string `json:"href"` // absolute
	Text string `json:"text"`
}

var loginLinkTokens = []string{"login", "log in", "signin", "sign in", "log-in", "sign-in"}

// ExtractLoginLinks returns the anchors whose visible text or resolved
// path mentions logging in, in document order. Duplicates are kept.
func ExtractLoginLinks(doc *goquery.Document, base *url.URL) []LoginLink {
	if doc == nil {
		return nil
	}
	var links []LoginLink
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href := strings.TrimSpace(s.AttrOr("href", ""))
		u, err := resolveHref(base, href)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return
		}
		text := strings.Join(strings.Fields(s.Text()), " ")
		if !mentionsLogin(text) && !mentionsLogin(u.Path) {
			return
		}
		links = append(links, LoginLink{Href: u.String(), Text: text})
	})
	return links
}

func resolveHref(base *url.URL, href string) (*url.URL, error) {
	if base == nil {
		return url.Parse(href)
	}
	return base.Parse(href)
}

func mentionsLogin(s string) bool {
	s = strings.ToLower(s)
	for _, tok := range loginLinkTokens {
		if strings.Contains(s, tok) {
			return true
		}
	}
	return false
}
