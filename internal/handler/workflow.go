package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/newhorizons/case-service/internal/model"
	"github.com/newhorizons/case-service/internal/workflow"
)

// WorkflowHandler exposes the workflow table so the UI renders from the same source.
type WorkflowHandler struct {
	table *workflow.Table
}

func NewWorkflowHandler(table *workflow.Table) *WorkflowHandler {
	return &WorkflowHandler{table: table}
}

func (h *WorkflowHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"workflows": h.table.Definitions(),
		"programs":  h.table.Programs(),
	})
}

func (h *WorkflowHandler) Get(c *gin.Context) {
	tt := model.TicketType(c.Param("type"))
	if !h.table.Known(tt) {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown ticket type"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"workflow": h.table.Lookup(tt)})
}
