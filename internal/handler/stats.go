package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/newhorizons/case-service/internal/service"
	"go.uber.org/zap"
)

type StatsHandler struct {
	svc *service.StatsService
	log *zap.Logger
}

func NewStatsHandler(svc *service.StatsService, log *zap.Logger) *StatsHandler {
	return &StatsHandler{svc: svc, log: log}
}

func (h *StatsHandler) Tickets(c *gin.Context) {
	st, err := h.svc.Tickets(c.Request.Context(), actor(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stats": st})
}

func (h *StatsHandler) Activity(c *gin.Context) {
	items, err := h.svc.Activity(c.Request.Context(), actor(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"activity": items})
}
