package handlers

import (
	"net/http"

	"safr-server/cache"

	"github.com/gin-gonic/gin"
)

type CacheHandler struct {
	cities *cache.CityCache
}

func NewCacheHandler(cities *cache.CityCache) *CacheHandler {
	return &CacheHandler{cities: cities}
}

// GetCacheStats GET /cache/stats
func (h *CacheHandler) GetCacheStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.cities.Stats())
}

// ClearCache DELETE /cache
func (h *CacheHandler) ClearCache(c *gin.Context) {
	h.cities.Clear()
	c.JSON(http.StatusOK, gin.H{"status": "cleared"})
}
