package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"sync"
	"syscall"
	"time"
)

// EventLoginCompleted is sent after every login attempt that produced a
// session, whether or not a form was found.
const EventLoginCompleted = "login.completed"

// SignatureHeader carries "sha256=<hex>" when a secret is configured.
const SignatureHeader = "X-Autologin-Signature"

// Event is the payload sent to webhook endpoints.
type Event struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data"`
}

// LoginData describes a finished login attempt. It names cookies but never
// carries their values or any credential.
type LoginData struct {
	URL            string   `json:"url"`
	FormFound      bool     `json:"form_found"`
	UsernameMapped bool     `json:"username_mapped"`
	SubmitStatus   int      `json:"submit_status,omitempty"`
	CookieNames    []string `json:"cookie_names"`
	LinkCount      int      `json:"link_count"`
}

// ErrForbiddenTarget is returned for webhook URLs that are not http(s) or
// that point at a loopback, private, link-local or unspecified address.
var ErrForbiddenTarget = errors.New("webhook: target not allowed")

// Sender delivers events over HTTP.
type Sender struct {
	client       *http.Client
	delays       []time.Duration
	allowPrivate bool
	wg           sync.WaitGroup
}

// Option configures a Sender.
type Option func(*Sender)

// AllowPrivateTargets lets the Sender post to loopback and private
// networks, for deployments whose receivers live next to the service.
func AllowPrivateTargets() Option {
	return func(s *Sender) { s.allowPrivate = true }
}

// NewSender creates a Sender that retries failed deliveries after 1s, 5s
// and 30s. Unless AllowPrivateTargets is given, connections are only made
// to public addresses; the check runs on the resolved IP at dial time.
// Deliveries do not go through HTTP proxies.
func NewSender(opts ...Option) *Sender {
	s := &Sender{
		delays: []time.Duration{0, 1 * time.Second, 5 * time.Second, 30 * time.Second},
	}
	for _, opt := range opts {
		opt(s)
	}

	dialer := &net.Dialer{Timeout: 5 * time.Second}
	if !s.allowPrivate {
		dialer.Control = func(_, address string, _ syscall.RawConn) error {
			ap, err := netip.ParseAddrPort(address)
			if err != nil || !publicAddr(ap.Addr()) {
				return fmt.Errorf("%w: %s", ErrForbiddenTarget, address)
			}
			return nil
		}
	}
	s.client = &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			DialContext:         dialer.DialContext,
			TLSHandshakeTimeout: 5 * time.Second,
			MaxIdleConnsPerHost: 2,
			IdleConnTimeout:     30 * time.Second,
		},
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return s
}

// CheckTarget validates a webhook URL before any event is queued. Host
// names are accepted here and checked again once resolved.
func (s *Sender) CheckTarget(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Hostname() == "" {
		return fmt.Errorf("%w: must be an absolute http(s) URL", ErrForbiddenTarget)
	}
	if s.allowPrivate {
		return nil
	}
	if u.Hostname() == "localhost" {
		return fmt.Errorf("%w: %s", ErrForbiddenTarget, u.Hostname())
	}
	if addr, err := netip.ParseAddr(u.Hostname()); err == nil && !publicAddr(addr) {
		return fmt.Errorf("%w: %s", ErrForbiddenTarget, u.Hostname())
	}
	return nil
}

func publicAddr(a netip.Addr) bool {
	a = a.Unmap()
	return a.IsValid() &&
		!a.IsLoopback() &&
		!a.IsPrivate() &&
		!a.IsLinkLocalUnicast() &&
		!a.IsLinkLocalMulticast() &&
		!a.IsInterfaceLocalMulticast() &&
		!a.IsMulticast() &&
		!a.IsUnspecified()
}

// Sign returns the hex HMAC-SHA256 of body under secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Deliver sends a webhook event synchronously.
func (s *Sender) Deliver(ctx context.Context, url, secret string, event *Event) error {
	if err := s.CheckTarget(url); err != nil {
		return err
	}
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("webhook: marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Autologin-Webhook/1.0")
	if secret != "" {
		req.Header.Set(SignatureHeader, "sha256="+Sign(secret, body))
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: deliver: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook: endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

// DeliverAsync sends a webhook event in the background, retrying on failure.
func (s *Sender) DeliverAsync(url, secret string, event *Event) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		var lastErr error
		for attempt, delay := range s.delays {
			if attempt > 0 && errors.Is(lastErr, ErrForbiddenTarget) {
				break
			}
			if delay > 0 {
				time.Sleep(delay)
			}
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			err := s.Deliver(ctx, url, secret, event)
			cancel()
			lastErr = err
			if err == nil {
				slog.Info("webhook delivered",
					"event", event.Type,
					"session_id", event.SessionID,
					"attempt", attempt+1,
				)
				return
			}
			slog.Warn("webhook delivery failed",
				"event", event.Type,
				"session_id", event.SessionID,
				"attempt", attempt+1,
				"error", err,
			)
		}
		slog.Error("webhook delivery exhausted all retries",
			"event", event.Type,
			"session_id", event.SessionID,
		)
	}()
}

// Wait blocks until all background deliveries have finished.
func (s *Sender) Wait() {
	s.wg.Wait()
}
