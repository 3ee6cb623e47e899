package httpHandler

import (
	"net/http"

	"safr-server/usecases"

	"github.com/gin-gonic/gin"
)

type RankingHandler struct {
	useCase *usecases.RankingUseCase
}

func NewRankingHandler(useCase *usecases.RankingUseCase) *RankingHandler {
	return &RankingHandler{useCase: useCase}
}

type rankingRequest struct {
	PersonalScore *float64 `json:"personal_score" binding:"required,gte=0,lte=100"`
}

type listRankingsQuery struct {
	pageQuery
	SortDesc bool `form:"sort_desc,default=true"`
}

// PutRanking handles PUT /rankings/cities/:city_id (create or update)
func (h *RankingHandler) PutRanking(c *gin.Context) {
	cityID, ok := idParam(c, "city_id")
	if !ok {
		return
	}

	var req rankingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	ranking, err := h.useCase.Upsert(c.Request.Context(), CurrentUser(c).ID, cityID, *req.PersonalScore)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": ranking})
}

// GetRanking handles GET /rankings/cities/:city_id
func (h *RankingHandler) GetRanking(c *gin.Context) {
	cityID, ok := idParam(c, "city_id")
	if !ok {
		return
	}

	ranking, err := h.useCase.Get(c.Request.Context(), CurrentUser(c).ID, cityID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": ranking})
}

// DeleteRanking handles DELETE /rankings/cities/:city_id
func (h *RankingHandler) DeleteRanking(c *gin.Context) {
	cityID, ok := idParam(c, "city_id")
	if !ok {
		return
	}

	if err := h.useCase.Delete(c.Request.Context(), CurrentUser(c).ID, cityID); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ListMyRankings handles GET /rankings/me
func (h *RankingHandler) ListMyRankings(c *gin.Context) {
	var q listRankingsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondBindError(c, err)
		return
	}

	rankings, total, err := h.useCase.List(c.Request.Context(), CurrentUser(c).ID, usecases.ListOptions{
		Skip:     q.Skip,
		Limit:    q.Limit,
		SortDesc: q.SortDesc,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  rankings,
		"count": len(rankings),
		"total": total,
	})
}
