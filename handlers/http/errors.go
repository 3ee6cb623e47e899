package httpHandler

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"safr-server/logging"
	"safr-server/usecases"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var validatorOnce sync.Once

// ConfigureValidator makes binding errors report json/form field names
// instead of Go field names.
func ConfigureValidator() {
	validatorOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			for _, tag := range []string{"json", "form"} {
				name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
				if name == "-" {
					return ""
				}
				if name != "" {
					return name
				}
			}
			return ""
		})
	})
}

// respondError writes the status matching the use case error kind.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, usecases.ErrValidation):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, usecases.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, usecases.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, usecases.ErrUnauthorized):
		c.Header("WWW-Authenticate", "Bearer")
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	default:
		_ = c.Error(err)
		logging.Error().Err(err).Str("request_id", logging.RequestID(c)).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// respondBindError reports a malformed request body or query as 422.
func respondBindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		details := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			rule := fe.Tag()
			if fe.Param() != "" {
				rule = fmt.Sprintf("%s=%s", rule, fe.Param())
			}
			details[fe.Field()] = rule
		}
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":   "Invalid request",
			"details": details,
		})
		return
	}
	c.JSON(http.StatusUnprocessableEntity, gin.H{
		"error":   "Invalid request",
		"details": err.Error(),
	})
}
