package analytics

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}

	r.GET("/analytics/low-stock", h.LowStock)
	r.GET("/analytics/near-expiration", h.NearExpiration)
	r.GET("/analytics/top-consumed", h.TopConsumed)
	r.GET("/analytics/most-borrowed", h.MostBorrowed)
}

func (h *Handler) LowStock(c *gin.Context) {
	items, err := h.svc.LowStock(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorBody("INTERNAL", err.Error()))
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "total": len(items)})
}

func (h *Handler) NearExpiration(c *gin.Context) {
	items, err := h.svc.NearExpiration(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorBody("INTERNAL", err.Error()))
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "total": len(items)})
}

func (h *Handler) TopConsumed(c *gin.Context) {
	items, err := h.svc.TopConsumed(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorBody("INTERNAL", err.Error()))
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "total": len(items)})
}

func (h *Handler) MostBorrowed(c *gin.Context) {
	items, err := h.svc.MostBorrowed(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorBody("INTERNAL", err.Error()))
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "total": len(items)})
}

type errorDTO struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func errorBody(code, msg string) errorDTO {
	var e errorDTO
	e.Error.Code = code
	e.Error.Message = msg
	return e
}
