package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/newhorizons/case-service/internal/service"
	"go.uber.org/zap"
)

type AttachmentHandler struct {
	svc      *service.AttachmentService
	maxBytes int64
	log      *zap.Logger
}

func NewAttachmentHandler(svc *service.AttachmentService, maxUploadMB int64, log *zap.Logger) *AttachmentHandler {
	return &AttachmentHandler{svc: svc, maxBytes: maxUploadMB << 20, log: log}
}

func (h *AttachmentHandler) List(c *gin.Context) {
	ticketID, ok := paramID(c, "id")
	if !ok {
		return
	}
	items, err := h.svc.List(c.Request.Context(), actor(c), ticketID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"attachments": items})
}

// Upload takes a multipart form with the file under "file".
func (h *AttachmentHandler) Upload(c *gin.Context) {
	ticketID, ok := paramID(c, "id")
	if !ok {
		return
	}
	// Leave room for the multipart envelope around the file itself.
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes+1<<20)
	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return
	}
	if fh.Size > h.maxBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	defer f.Close()

	a, err := h.svc.Upload(c.Request.Context(), actor(c), ticketID, service.Upload{
		Filename: fh.Filename,
		MIMEType: fh.Header.Get("Content-Type"),
		Body:     f,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"attachment": a})
}
