package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"harbor-chat/internal/auth"
	"harbor-chat/internal/domain"
	"harbor-chat/internal/services"
	"harbor-chat/internal/transport/httpdto"
)

type ThreadHandler struct {
	service *services.ThreadService
}

func NewThreadHandler(service *services.ThreadService) *ThreadHandler {
	return &ThreadHandler{service: service}
}

// List returns the viewer's conversations, newest activity first. A
// non-empty q query parameter switches to participant-name search.
func (h *ThreadHandler) List(c *gin.Context) {
	userID, ok := auth.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	query := c.Query("q")
	var (
		summaries []domain.ConversationSummary
		err       error
	)
	if query != "" {
		summaries, err = h.service.Search(c.Request.Context(), userID, query)
	} else {
		summaries, err = h.service.List(c.Request.Context(), userID)
	}
	if err != nil {
		respondError(c, err)
		return
	}

	items := make([]httpdto.ThreadResponse, 0, len(summaries))
	for _, s := range summaries {
		items = append(items, httpdto.NewThreadResponse(s))
	}

	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(items))
}

func (h *ThreadHandler) Create(c *gin.Context) {
	userID, ok := auth.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	var req httpdto.CreateThreadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}

	summary, err := h.service.Create(c.Request.Context(), userID, req.OtherUserID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.NewThreadResponse(summary)))
}

func (h *ThreadHandler) MarkRead(c *gin.Context) {
	userID, ok := auth.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	threadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid thread id", "INVALID_REQUEST"))
		return
	}

	var req httpdto.MarkReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}
	at := req.At
	if at.IsZero() {
		at = time.Now().UTC()
	}

	if err := h.service.MarkRead(c.Request.Context(), threadID, userID, at); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"marked": true}))
}
