package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/autologin/autologin"
	"github.com/use-agent/autologin/models"
)

// Links returns a handler for POST /api/v1/links. It only reads the page;
// no credentials are involved.
func Links(al *autologin.AutoLogin) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.LinksRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}

		links, page, err := al.FindLoginLinks(c.Request.Context(), req.URL, nil)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, models.LinksResponse{
			Success:    true,
			URL:        page.URL,
			StatusCode: page.StatusCode,
			Links:      linkViews(links),
		})
	}
}
