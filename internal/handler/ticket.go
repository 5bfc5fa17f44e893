package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/newhorizons/case-service/internal/model"
	"github.com/newhorizons/case-service/internal/service"
	"go.uber.org/zap"
)

type TicketHandler struct {
	svc *service.TicketService
	log *zap.Logger
}

func NewTicketHandler(svc *service.TicketService, log *zap.Logger) *TicketHandler {
	return &TicketHandler{svc: svc, log: log}
}

type createTicketRequest struct {
	Title       string          `json:"title" binding:"required"`
	Description string          `json:"description" binding:"required"`
	Priority    string          `json:"priority" binding:"omitempty,oneof=LOW MEDIUM HIGH URGENT"`
	Type        string          `json:"type" binding:"omitempty,oneof=WORK_VISA STUDENT_VISA RESIDENCY CITIZENSHIP OTHER"`
	ClientID    string          `json:"clientId"`
	Metadata    json.RawMessage `json:"metadata"`
}

func (h *TicketHandler) Create(c *gin.Context) {
	var req createTicketRequest
	if !bind(c, h.log, &req) {
		return
	}
	t, err := h.svc.Create(c.Request.Context(), actor(c), service.CreateTicketInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    model.Priority(req.Priority),
		Type:        model.TicketType(req.Type),
		ClientID:    req.ClientID,
		Metadata:    req.Metadata,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ticket": t})
}

type listTicketsQuery struct {
	Page      int    `form:"page" binding:"omitempty,min=1"`
	Limit     int    `form:"limit" binding:"omitempty,min=1,max=100"`
	Status    string `form:"status" binding:"omitempty,oneof=OPEN IN_PROGRESS RESOLVED CLOSED"`
	Priority  string `form:"priority" binding:"omitempty,oneof=LOW MEDIUM HIGH URGENT"`
	Type      string `form:"type" binding:"omitempty,oneof=WORK_VISA STUDENT_VISA RESIDENCY CITIZENSHIP OTHER"`
	Search    string `form:"search"`
	AdvisorID string `form:"advisorId"`
	ClientID  string `form:"clientId"`
}

func (h *TicketHandler) List(c *gin.Context) {
	var q listTicketsQuery
	if !bindQuery(c, h.log, &q) {
		return
	}
	page, err := h.svc.List(c.Request.Context(), actor(c), service.ListTicketsInput{
		Status:    model.TicketStatus(q.Status),
		Priority:  model.Priority(q.Priority),
		Type:      model.TicketType(q.Type),
		AdvisorID: q.AdvisorID,
		ClientID:  q.ClientID,
		Search:    q.Search,
		Page:      q.Page,
		Limit:     q.Limit,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *TicketHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	t, err := h.svc.Get(c.Request.Context(), actor(c), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ticket": t})
}

type updateTicketRequest struct {
	Status    *string         `json:"status" binding:"omitempty,oneof=OPEN IN_PROGRESS RESOLVED CLOSED"`
	Priority  *string         `json:"priority" binding:"omitempty,oneof=LOW MEDIUM HIGH URGENT"`
	AdvisorID *string         `json:"advisorId"`
	Metadata  json.RawMessage `json:"metadata"`
}

// Update serves both PATCH /tickets/:id and the staff-only /tickets/:id/assign.
func (h *TicketHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req updateTicketRequest
	if !bind(c, h.log, &req) {
		return
	}
	in := service.UpdateTicketInput{AdvisorID: req.AdvisorID, Metadata: req.Metadata}
	if req.Status != nil {
		s := model.TicketStatus(*req.Status)
		in.Status = &s
	}
	if req.Priority != nil {
		p := model.Priority(*req.Priority)
		in.Priority = &p
	}
	t, err := h.svc.Update(c.Request.Context(), actor(c), id, in)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ticket": t})
}
