package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/autologin/keychain"
	"github.com/use-agent/autologin/models"
)

// ListKeychain returns a handler for GET /api/v1/keychain. Passwords are
// never returned.
func ListKeychain(kc *keychain.Keychain) gin.HandlerFunc {
	return func(c *gin.Context) {
		items, err := kc.Store().List(c.Request.Context())
		if err != nil {
			respondError(c, models.NewLoginError(models.ErrCodeInternal, "keychain list failed", err))
			return
		}
		views := make([]models.KeychainItemView, 0, len(items))
		for _, it := range items {
			views = append(views, models.KeychainItemView{
				Key:       it.Key,
				URL:       it.URL,
				Username:  it.Username,
				CreatedAt: it.CreatedAt,
				UpdatedAt: it.UpdatedAt,
			})
		}
		c.JSON(http.StatusOK, models.KeychainListResponse{Success: true, Items: views})
	}
}

// PutKeychain returns a handler for PUT /api/v1/keychain/:key.
func PutKeychain(kc *keychain.Keychain) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.Param("key")
		if err := keychain.ValidateKey(key); err != nil {
			respondError(c, err)
			return
		}
		var req models.KeychainPutRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}

		err := kc.Store().Save(c.Request.Context(), keychain.Item{
			Key:      key,
			URL:      req.URL,
			Username: req.Username,
			Password: req.Password,
		})
		if err != nil {
			respondError(c, models.NewLoginError(models.ErrCodeInternal, "keychain save failed", err))
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// DeleteKeychain returns a handler for DELETE /api/v1/keychain/:key.
func DeleteKeychain(kc *keychain.Keychain) gin.HandlerFunc {
	return func(c *gin.Context) {
		err := kc.Store().Delete(c.Request.Context(), c.Param("key"))
		switch {
		case errors.Is(err, keychain.ErrNotFound):
			respondError(c, models.NewLoginError(models.ErrCodeNotFound, "keychain item not found", err))
		case err != nil:
			respondError(c, models.NewLoginError(models.ErrCodeInternal, "keychain delete failed", err))
		default:
			c.Status(http.StatusNoContent)
		}
	}
}
