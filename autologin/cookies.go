package autologin

import (
	"net"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/publicsuffix"
)

// Cookie is a snapshot of one entry in a CookieStore.
type Cookie struct {
	Name     string        `json:"name"`
	Value    string        `json:"value"`
	Domain   string        `json:"domain"`
	Path     string        `json:"path"`
	HostOnly bool          `json:"host_only"`
	Expires  time.Time     `json:"expires,omitzero"` // zero for session cookies
	Secure   bool          `json:"secure"`
	HttpOnly bool          `json:"http_only"`
	SameSite http.SameSite `json:"same_site,omitempty"`
}

// Expired reports whether the cookie had expired at t.
func (c Cookie) Expired(t time.Time) bool {
	return !c.Expires.IsZero() && !c.Expires.After(t)
}

type cookieKey struct {
	domain string
	path   string
	name   string
}

type storedCookie struct {
	Cookie
	seq uint64
}

// CookieStore is the session cookie store of one login attempt. Entries are
// keyed by (domain, path, name); a newer Set-Cookie for the same key
// overwrites the older one. Entries are never removed: a cookie the server
// expires is kept with its expired state and simply stops being sent.
//
// CookieStore implements http.CookieJar so it can be attached to an
// http.Client and follow redirect chains.
type CookieStore struct {
	mu      sync.Mutex
	entries map[cookieKey]*storedCookie
	seq     uint64
	now     func() time.Time
}

var _ http.CookieJar = (*CookieStore)(nil)

// NewCookieStore returns an empty store.
func NewCookieStore() *CookieStore {
	return &CookieStore{
		entries: make(map[cookieKey]*storedCookie),
		now:     time.Now,
	}
}

// Clone returns a detached deep copy. Cloning a nil store yields an empty one.
func (s *CookieStore) Clone() *CookieStore {
	out := NewCookieStore()
	if s == nil {
		return out
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out.now = s.now
	out.seq = s.seq
	for k, v := range s.entries {
		c := *v
		out.entries[k] = &c
	}
	return out
}

// Len returns the number of entries, expired ones included.
func (s *CookieStore) Len() int {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// All returns every entry in the order it was first set.
func (s *CookieStore) All() []Cookie {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := make([]*storedCookie, 0, len(s.entries))
	for _, v := range s.entries {
		stored = append(stored, v)
	}
	sort.Slice(stored, func(i, j int) bool { return stored[i].seq < stored[j].seq })
	out := make([]Cookie, len(stored))
	for i, v := range stored {
		out[i] = v.Cookie
	}
	return out
}

// Active returns the entries that have not expired.
func (s *CookieStore) Active() []Cookie {
	if s == nil {
		return nil
	}
	now := s.now()
	var out []Cookie
	for _, c := range s.All() {
		if !c.Expired(now) {
			out = append(out, c)
		}
	}
	return out
}

// Get looks up a single entry by its key.
func (s *CookieStore) Get(domain, path, name string) (Cookie, bool) {
	if s == nil {
		return Cookie{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.entries[cookieKey{domain: strings.ToLower(domain), path: path, name: name}]
	if !ok {
		return Cookie{}, false
	}
	return v.Cookie, true
}

// Put inserts or overwrites an entry directly, bypassing Set-Cookie scoping.
// Used to seed a store from cookies the caller already holds.
func (s *CookieStore) Put(c Cookie) {
	if c.Path == "" {
		c.Path = "/"
	}
	c.Domain = strings.ToLower(strings.TrimPrefix(c.Domain, "."))
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store(c)
}

// SetCookies merges Set-Cookie results received from u.
func (s *CookieStore) SetCookies(u *url.URL, cookies []*http.Cookie) {
	if u == nil || len(cookies) == 0 {
		return
	}
	host := canonicalHost(u)
	if host == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for _, hc := range cookies {
		if hc == nil || hc.Name == "" {
			continue
		}
		domain, hostOnly, ok := cookieDomain(host, hc.Domain)
		if !ok {
			continue
		}
		path := hc.Path
		if path == "" || path[0] != '/' {
			path = defaultPath(u.Path)
		}
		s.store(Cookie{
			Name:     hc.Name,
			Value:    hc.Value,
			Domain:   domain,
			Path:     path,
			HostOnly: hostOnly,
			Expires:  cookieExpiry(hc, now),
			Secure:   hc.Secure,
			HttpOnly: hc.HttpOnly,
			SameSite: hc.SameSite,
		})
	}
}

// Cookies returns the cookies to send in a request to u, longest path first.
func (s *CookieStore) Cookies(u *url.URL) []*http.Cookie {
	if u == nil {
		return nil
	}
	host := canonicalHost(u)
	if host == "" {
		return nil
	}
	secure := u.Scheme == "https"
	path := u.Path
	if path == "" {
		path = "/"
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	var matched []*storedCookie
	for _, e := range s.entries {
		if e.Expired(now) || (e.Secure && !secure) {
			continue
		}
		if !domainMatch(host, e.Domain, e.HostOnly) || !pathMatch(path, e.Path) {
			continue
		}
		matched = append(matched, e)
	}
	sort.Slice(matched, func(i, j int) bool {
		if len(matched[i].Path) != len(matched[j].Path) {
			return len(matched[i].Path) > len(matched[j].Path)
		}
		return matched[i].seq < matched[j].seq
	})
	out := make([]*http.Cookie, len(matched))
	for i, e := range matched {
		out[i] = &http.Cookie{Name: e.Name, Value: e.Value}
	}
	return out
}

// store must be called with s.mu held. An overwrite keeps the original
// position so All stays in first-set order.
func (s *CookieStore) store(c Cookie) {
	key := cookieKey{domain: c.Domain, path: c.Path, name: c.Name}
	if old, ok := s.entries[key]; ok {
		old.Cookie = c
		return
	}
	s.seq++
	s.entries[key] = &storedCookie{Cookie: c, seq: s.seq}
}

func canonicalHost(u *url.URL) string {
	return strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
}

// cookieDomain applies the Domain attribute rules of RFC 6265 section 5.3.
func cookieDomain(host, attr string) (domain string, hostOnly bool, ok bool) {
	attr = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(attr), "."))
	if attr == "" {
		return host, true, true
	}
	if net.ParseIP(host) != nil {
		return host, true, attr == host
	}
	if ps, _ := publicsuffix.PublicSuffix(attr); ps == attr {
		return host, true, host == attr
	}
	if host != attr && !strings.HasSuffix(host, "."+attr) {
		return "", false, false
	}
	return attr, false, true
}

func cookieExpiry(c *http.Cookie, now time.Time) time.Time {
	switch {
	case c.MaxAge < 0:
		return time.Unix(1, 0).UTC()
	case c.MaxAge > 0:
		return now.Add(time.Duration(c.MaxAge) * time.Second)
	default:
		return c.Expires
	}
}

func defaultPath(p string) string {
	if p == "" || p[0] != '/' {
		return "/"
	}
	i := strings.LastIndex(p, "/")
	if i == 0 {
		return "/"
	}
	return p[:i]
}

func domainMatch(host, domain string, hostOnly bool) bool {
	if host == domain {
		return true
	}
	return !hostOnly && strings.HasSuffix(host, "."+domain)
}

func pathMatch(reqPath, cookiePath string) bool {
	if reqPath == cookiePath {
		return true
	}
	if !strings.HasPrefix(reqPath, cookiePath) {
		return false
	}
	return strings.HasSuffix(cookiePath, "/") || reqPath[len(cookiePath)] == '/'
}
