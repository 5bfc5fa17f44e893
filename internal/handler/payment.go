package handler

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/newhorizons/case-service/internal/model"
	"github.com/newhorizons/case-service/internal/service"
	"go.uber.org/zap"
)

// amount accepts 12.5 as well as "12.50", as browsers send both.
type amount float64

func (a *amount) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(b, `"`)
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	v, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return err
	}
	*a = amount(v)
	return nil
}

type PaymentHandler struct {
	svc *service.PaymentService
	log *zap.Logger
}

func NewPaymentHandler(svc *service.PaymentService, log *zap.Logger) *PaymentHandler {
	return &PaymentHandler{svc: svc, log: log}
}

type createOrderRequest struct {
	TicketID uint64 `json:"ticketId" binding:"required"`
	Amount   amount `json:"amount" binding:"required"`
}

func (h *PaymentHandler) CreateOrder(c *gin.Context) {
	var req createOrderRequest
	if !bind(c, h.log, &req) {
		return
	}
	order, err := h.svc.CreateOrder(c.Request.Context(), actor(c), req.TicketID, float64(req.Amount))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": order.ID})
}

type captureOrderRequest struct {
	OrderID  string `json:"orderID" binding:"required"`
	TicketID uint64 `json:"ticketId" binding:"required"`
}

func (h *PaymentHandler) CaptureOrder(c *gin.Context) {
	var req captureOrderRequest
	if !bind(c, h.log, &req) {
		return
	}
	p, err := h.svc.CaptureOrder(c.Request.Context(), actor(c), req.OrderID, req.TicketID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": model.PaymentStatusCompleted, "payment": p})
}
