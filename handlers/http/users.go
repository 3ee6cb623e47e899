package httpHandler

import (
	"net/http"

	"safr-server/usecases"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	store *usecases.CredentialStore
}

func NewUserHandler(store *usecases.CredentialStore) *UserHandler {
	return &UserHandler{store: store}
}

type registerRequest struct {
	Username string `json:"username" binding:"required,max=64"`
	Email    string `json:"email" binding:"omitempty,email,max=254"`
	Password string `json:"password" binding:"required,max=72"`
}

// Register handles POST /users/
func (h *UserHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	user, err := h.store.Register(c.Request.Context(), usecases.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "User created successfully",
		"data":    user,
	})
}

// Me handles GET /users/me
func (h *UserHandler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": CurrentUser(c)})
}
