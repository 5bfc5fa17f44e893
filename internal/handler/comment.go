package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/newhorizons/case-service/internal/service"
	"go.uber.org/zap"
)

type CommentHandler struct {
	svc *service.CommentService
	log *zap.Logger
}

func NewCommentHandler(svc *service.CommentService, log *zap.Logger) *CommentHandler {
	return &CommentHandler{svc: svc, log: log}
}

func (h *CommentHandler) List(c *gin.Context) {
	ticketID, ok := paramID(c, "id")
	if !ok {
		return
	}
	comments, err := h.svc.List(c.Request.Context(), actor(c), ticketID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"comments": comments})
}

type createCommentRequest struct {
	Content string `json:"content"`
}

func (h *CommentHandler) Create(c *gin.Context) {
	ticketID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req createCommentRequest
	if !bind(c, h.log, &req) {
		return
	}
	comment, err := h.svc.Create(c.Request.Context(), actor(c), ticketID, req.Content)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"comment": comment})
}
