package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/autologin/autologin"
	"github.com/use-agent/autologin/cleaner"
	"github.com/use-agent/autologin/models"
	"github.com/use-agent/autologin/session"
)

var errSessionNotFound = models.NewLoginError(models.ErrCodeNotFound, "session not found", nil)

// GetSession returns a handler for GET /api/v1/sessions/:id.
func GetSession(ss *session.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := ss.Get(c.Param("id"))
		if !ok {
			respondError(c, errSessionNotFound)
			return
		}
		c.JSON(http.StatusOK, sessionResponse(sess))
	}
}

// DeleteSession returns a handler for DELETE /api/v1/sessions/:id.
func DeleteSession(ss *session.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !ss.Delete(c.Param("id")) {
			respondError(c, errSessionNotFound)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// PreviewSession returns a handler for POST /api/v1/sessions/:id/preview.
//
// It fetches a page with the session's cookies and renders it as Markdown,
// which is how a caller checks that the login actually worked. The
// session itself is not modified.
func PreviewSession(ss *session.Store, al *autologin.AutoLogin, pv *cleaner.Previewer) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		sess, ok := ss.Get(c.Param("id"))
		if !ok {
			respondError(c, errSessionNotFound)
			return
		}

		var req models.PreviewRequest
		if c.Request.ContentLength != 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				badRequest(c, err)
				return
			}
		}
		target := req.URL
		if target == "" {
			target = sess.URL
		}

		page, _, err := al.Client().Fetch(c.Request.Context(), target, sess.Cookies)
		if err != nil {
			respondError(c, err)
			return
		}

		preview, err := pv.Preview(page.HTML, page.URL)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, models.PreviewResponse{
			Success:    true,
			SessionID:  sess.ID,
			URL:        page.URL,
			StatusCode: page.StatusCode,
			Title:      preview.Title,
			Markdown:   preview.Markdown,
			Extracted:  preview.Extracted,
			Timing:     models.TimingInfo{TotalMs: time.Since(start).Milliseconds()},
		})
	}
}
