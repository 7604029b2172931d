package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"harbor-chat/internal/auth"
	"harbor-chat/internal/domain"
	"harbor-chat/internal/services"
	"harbor-chat/internal/transport/httpdto"
)

type AttachmentHandler struct {
	service *services.AttachmentService
}

func NewAttachmentHandler(service *services.AttachmentService) *AttachmentHandler {
	return &AttachmentHandler{service: service}
}

// CreateUpload reserves an attachment slot and returns a presigned PUT
// URL. The attachment stays in the uploading state until a send links it
// to a message.
func (h *AttachmentHandler) CreateUpload(c *gin.Context) {
	userID, ok := auth.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	var req httpdto.CreateUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}

	slot, err := h.service.CreateUpload(c.Request.Context(), userID, domain.MediaType(req.MediaType), req.FileName, req.MimeType, req.FileSize)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.CreateUploadResponse{
		AttachmentID: slot.Attachment.ID,
		UploadURL:    slot.UploadURL,
		Headers:      slot.Headers,
	}))
}

// SignedURL resolves a short-lived GET URL for an attachment the viewer
// may see.
func (h *AttachmentHandler) SignedURL(c *gin.Context) {
	userID, ok := auth.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	attachmentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid attachment id", "INVALID_REQUEST"))
		return
	}

	signed, err := h.service.SignedGetURL(c.Request.Context(), attachmentID, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.AttachmentURLResponse{
		URL:       signed.URL,
		ExpiresAt: signed.ExpiresAt,
	}))
}
