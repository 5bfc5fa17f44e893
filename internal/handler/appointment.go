package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/newhorizons/case-service/internal/model"
	"github.com/newhorizons/case-service/internal/service"
	"go.uber.org/zap"
)

type AppointmentHandler struct {
	svc *service.AppointmentService
	log *zap.Logger
}

func NewAppointmentHandler(svc *service.AppointmentService, log *zap.Logger) *AppointmentHandler {
	return &AppointmentHandler{svc: svc, log: log}
}

type createAppointmentRequest struct {
	Date     time.Time `json:"date" binding:"required"`
	Type     string    `json:"type" binding:"required,oneof=MEDICAL PSYCHOLOGICAL"`
	TicketID uint64    `json:"ticketId" binding:"required"`
	Link     *string   `json:"link"`
}

func (h *AppointmentHandler) Create(c *gin.Context) {
	var req createAppointmentRequest
	if !bind(c, h.log, &req) {
		return
	}
	a, err := h.svc.Create(c.Request.Context(), actor(c), service.CreateAppointmentInput{
		Date:     req.Date,
		Type:     model.AppointmentType(req.Type),
		TicketID: req.TicketID,
		Link:     req.Link,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"appointment": a})
}

type listAppointmentsQuery struct {
	TicketID uint64 `form:"ticketId"`
}

func (h *AppointmentHandler) List(c *gin.Context) {
	var q listAppointmentsQuery
	if !bindQuery(c, h.log, &q) {
		return
	}
	items, err := h.svc.List(c.Request.Context(), actor(c), q.TicketID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"appointments": items})
}

type updateAppointmentStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *AppointmentHandler) UpdateStatus(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req updateAppointmentStatusRequest
	if !bind(c, h.log, &req) {
		return
	}
	a, err := h.svc.UpdateStatus(c.Request.Context(), actor(c), id, req.Status)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"appointment": a})
}
