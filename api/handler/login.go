package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/autologin/autologin"
	"github.com/use-agent/autologin/keychain"
	"github.com/use-agent/autologin/models"
	"github.com/use-agent/autologin/session"
	"github.com/use-agent/autologin/webhook"
)

// Login returns a handler for POST /api/v1/login.
//
// Orchestration flow:
//  1. Parse & validate request.
//  2. Resolve credentials (request body, else keychain).
//  3. Resolve the starting cookie store (existing session, else empty).
//  4. Run the login attempt.
//  5. Optionally save the credentials to the keychain.
//  6. Store or update the session, fire the webhook, respond.
func Login(al *autologin.AutoLogin, ss *session.Store, kc *keychain.Keychain, wh *webhook.Sender) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		ctx := c.Request.Context()

		// ── 1. Parse request ────────────────────────────────────────
		var req models.LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		if err := req.Validate(); err != nil {
			badRequest(c, err)
			return
		}
		if req.WebhookURL != "" && wh != nil {
			if err := wh.CheckTarget(req.WebhookURL); err != nil {
				respondError(c, models.NewLoginError(models.ErrCodeInvalidInput, "webhook_url is not allowed", err))
				return
			}
		}

		// ── 2. Credentials ──────────────────────────────────────────
		creds := autologin.Credentials{Username: req.Username, Password: req.Password}
		if creds.Password == "" {
			stored, err := kc.LoadCredentials(ctx, req.KeychainKey)
			if err != nil {
				respondError(c, err)
				return
			}
			creds = stored
		}

		// ── 3. Starting cookies ─────────────────────────────────────
		var jar *autologin.CookieStore
		if req.SessionID != "" {
			sess, ok := ss.Get(req.SessionID)
			if !ok {
				respondError(c, models.NewLoginError(models.ErrCodeNotFound, "session not found", nil))
				return
			}
			jar = sess.Cookies
		}

		// ── 4. Login attempt ────────────────────────────────────────
		res, err := al.Login(ctx, autologin.LoginRequest{
			URL:         req.URL,
			Credentials: creds,
			Cookies:     jar,
		})
		if err != nil {
			respondError(c, err)
			return
		}

		// ── 5. Keychain ─────────────────────────────────────────────
		saved := false
		if req.SaveToKeychain {
			if err := kc.SaveCredentials(ctx, req.KeychainKey, res.URL, creds); err != nil {
				respondError(c, err)
				return
			}
			saved = true
		}

		// ── 6. Session, webhook, response ───────────────────────────
		var sess session.Session
		if req.SessionID != "" {
			var ok bool
			if sess, ok = ss.Update(req.SessionID, res); !ok {
				sess = ss.Create(res)
			}
		} else {
			sess = ss.Create(res)
		}

		if req.WebhookURL != "" && wh != nil {
			wh.DeliverAsync(req.WebhookURL, req.WebhookSecret, loginEvent(sess.ID, res))
		}

		slog.Info("login attempt finished",
			"session_id", sess.ID,
			"form_found", res.FormFound,
			"username_mapped", res.UsernameMapped,
			"cookies", len(res.Cookies.Active()),
			"duration_ms", time.Since(start).Milliseconds(),
		)

		c.JSON(http.StatusOK, models.LoginResponse{
			Success:         true,
			SessionID:       sess.ID,
			URL:             res.URL,
			PageStatus:      res.PageStatus,
			PageTitle:       res.PageTitle,
			FormFound:       res.FormFound,
			UsernameMapped:  res.UsernameMapped,
			Form:            formView(res.Form, res.Classification),
			Submit:          submitView(res.Submit),
			Links:           linkViews(res.Links),
			Cookies:         cookieViews(res.Cookies),
			SavedToKeychain: saved,
			Timing:          models.TimingInfo{TotalMs: time.Since(start).Milliseconds()},
		})
	}
}

func loginEvent(sessionID string, res *autologin.Result) *webhook.Event {
	active := res.Cookies.Active()
	names := make([]string, 0, len(active))
	for _, c := range active {
		names = append(names, c.Name)
	}
	data := webhook.LoginData{
		URL:            autologin.RedactURL(res.URL),
		FormFound:      res.FormFound,
		UsernameMapped: res.UsernameMapped,
		CookieNames:    names,
		LinkCount:      len(res.Links),
	}
	if res.Submit != nil {
		data.SubmitStatus = res.Submit.StatusCode
	}
	return &webhook.Event{
		Type:      webhook.EventLoginCompleted,
		SessionID: sessionID,
		Timestamp: time.Now().Unix(),
		Data:      data,
	}
}
