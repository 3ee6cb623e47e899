package httpHandler

import (
	"net/http"

	"safr-server/usecases"

	"github.com/gin-gonic/gin"
)

type CityHandler struct {
	useCase *usecases.CityUseCase
}

func NewCityHandler(useCase *usecases.CityUseCase) *CityHandler {
	return &CityHandler{useCase: useCase}
}

// ListCities handles GET /cities/
func (h *CityHandler) ListCities(c *gin.Context) {
	var q pageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondBindError(c, err)
		return
	}

	cities, err := h.useCase.List(c.Request.Context(), q.Skip, q.Limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  cities,
		"count": len(cities),
	})
}

// GetCity handles GET /cities/:city_id
func (h *CityHandler) GetCity(c *gin.Context) {
	id, ok := idParam(c, "city_id")
	if !ok {
		return
	}

	city, err := h.useCase.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": city})
}
