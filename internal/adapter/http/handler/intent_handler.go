package handler

import (
	"encoding/base64"
	"time"

	"paynow-terminal-gateway/internal/adapter/http/dto"
	"paynow-terminal-gateway/internal/core/domain"
	"paynow-terminal-gateway/internal/core/ports"
	"paynow-terminal-gateway/pkg/apperror"
	"paynow-terminal-gateway/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// IntentHandler handles payment intent endpoints.
type IntentHandler struct {
	dispatcher ports.Dispatcher
	store      ports.IntentStore
}

// NewIntentHandler creates a new IntentHandler.
func NewIntentHandler(dispatcher ports.Dispatcher, store ports.IntentStore) *IntentHandler {
	return &IntentHandler{dispatcher: dispatcher, store: store}
}

// Create handles POST /api/v1/terminals/:id/intents.
func (h *IntentHandler) Create(c *gin.Context) {
	var req dto.CreateIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	intent, err := h.dispatcher.CreateIntent(c.Request.Context(), ports.CreateIntentRequest{
		TerminalID:  c.Param("id"),
		AmountCents: req.AmountCents,
		Currency:    req.Currency,
		Reference:   req.Reference,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toIntentResponse(intent))
}

// Resolve handles POST /api/v1/intents/:id/resolve.
func (h *IntentHandler) Resolve(c *gin.Context) {
	intentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("intent id must be a UUID"))
		return
	}

	var req dto.ResolveIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	intent, err := h.dispatcher.Resolve(c.Request.Context(), intentID, domain.IntentStatus(req.Outcome))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toIntentResponse(intent))
}

// Get handles GET /api/v1/intents/:id.
func (h *IntentHandler) Get(c *gin.Context) {
	intentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("intent id must be a UUID"))
		return
	}

	intent, err := h.store.Get(c.Request.Context(), intentID)
	if err != nil {
		response.Error(c, apperror.InternalError(err))
		return
	}
	if intent == nil {
		response.Error(c, apperror.ErrIntentNotFound())
		return
	}

	response.OK(c, toIntentResponse(intent))
}

// toIntentResponse converts a domain.PaymentIntent to its DTO.
func toIntentResponse(intent *domain.PaymentIntent) *dto.IntentResponse {
	resp := &dto.IntentResponse{
		ID:          intent.ID.String(),
		TerminalID:  intent.TerminalID,
		AmountCents: intent.AmountCents,
		Currency:    intent.Currency,
		Reference:   intent.Reference,
		Payload:     intent.Payload,
		QRMediaType: intent.QRMediaType,
		Status:      string(intent.Status),
		CreatedAt:   intent.CreatedAt.Format(time.RFC3339),
		ExpiresAt:   intent.ExpiresAt.Format(time.RFC3339),
	}
	if len(intent.QRImage) > 0 {
		resp.QRImage = base64.StdEncoding.EncodeToString(intent.QRImage)
	}
	if intent.ResolvedAt != nil {
		s := intent.ResolvedAt.Format(time.RFC3339)
		resp.ResolvedAt = &s
	}
	return resp
}
