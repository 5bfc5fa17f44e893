package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/newhorizons/case-service/internal/service"
	"go.uber.org/zap"
)

// CheckoutHandler serves the public purchase flow; callers have no session yet.
type CheckoutHandler struct {
	svc *service.CheckoutService
	log *zap.Logger
}

func NewCheckoutHandler(svc *service.CheckoutService, log *zap.Logger) *CheckoutHandler {
	return &CheckoutHandler{svc: svc, log: log}
}

type initCheckoutRequest struct {
	ProgramID string  `json:"programId" binding:"required"`
	Amount    *amount `json:"amount"`
	Adults    int     `json:"adults" binding:"min=0"`
	Children  int     `json:"children" binding:"min=0"`
}

func (h *CheckoutHandler) Init(c *gin.Context) {
	var req initCheckoutRequest
	if !bind(c, h.log, &req) {
		return
	}
	in := service.InitCheckoutInput{ProgramID: req.ProgramID, Adults: req.Adults, Children: req.Children}
	if req.Amount != nil {
		v := float64(*req.Amount)
		in.Amount = &v
	}
	order, err := h.svc.Init(c.Request.Context(), in)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

type clientDetails struct {
	Email        string `json:"email"`
	FullName     string `json:"fullName"`
	ProgramLabel string `json:"programLabel"`
	Adults       int    `json:"adults"`
	Children     int    `json:"children"`
	Address      string `json:"address"`
	City         string `json:"city"`
	Country      string `json:"country"`
}

type captureCheckoutRequest struct {
	OrderID       string          `json:"orderID" binding:"required"`
	ClientDetails json.RawMessage `json:"clientDetails"`
}

func (h *CheckoutHandler) Capture(c *gin.Context) {
	var req captureCheckoutRequest
	if !bind(c, h.log, &req) {
		return
	}
	var d clientDetails
	if len(req.ClientDetails) > 0 {
		if err := json.Unmarshal(req.ClientDetails, &d); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid client details"})
			return
		}
	}
	res, err := h.svc.Capture(c.Request.Context(), req.OrderID, service.ClientDetails{
		Email:        d.Email,
		FullName:     d.FullName,
		ProgramLabel: d.ProgramLabel,
		Adults:       d.Adults,
		Children:     d.Children,
		Address:      d.Address,
		City:         d.City,
		Country:      d.Country,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
