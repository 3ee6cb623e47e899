package httpHandler

import (
	"net/http"

	"safr-server/usecases"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

type TokenHandler struct {
	store *usecases.CredentialStore
}

func NewTokenHandler(store *usecases.CredentialStore) *TokenHandler {
	return &TokenHandler{store: store}
}

type tokenRequest struct {
	Username string `form:"username" binding:"required"`
	Password string `form:"password" binding:"required"`
}

// IssueToken handles POST /token with an OAuth2 password-grant style form body.
func (h *TokenHandler) IssueToken(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindWith(&req, binding.Form); err != nil {
		respondBindError(c, err)
		return
	}

	token, err := h.store.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, token)
}
