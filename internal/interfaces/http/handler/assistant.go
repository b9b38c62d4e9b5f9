package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/marmoleria/backend/internal/application/assistant"
)

// AssistantHandler serves generated sales coaching and campaign copy
type AssistantHandler struct {
	BaseHandler
	assistant *assistant.AssistantService
}

// NewAssistantHandler creates a new assistant handler
func NewAssistantHandler(svc *assistant.AssistantService) *AssistantHandler {
	return &AssistantHandler{assistant: svc}
}

// Suggest godoc
// @ID           suggestForAdvisor
// @Summary      Coaching suggestions from an advisor's recent sales
// @Tags         assistant
// @Accept       json
// @Produce      json
// @Param        advisor path string true "Advisor"
// @Param        request body assistant.SuggestionInput false "Options"
// @Success      200 {object} APIResponse[textgen.Suggestion]
// @Failure      429 {object} ErrorResponse
// @Failure      503 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /assistant/advisors/{advisor}/suggestions [post]
func (h *AssistantHandler) Suggest(c *gin.Context) {
	var in assistant.SuggestionInput
	if c.Request.ContentLength != 0 && !h.BindJSON(c, &in) {
		return
	}
	in.Advisor = c.Param("advisor")
	s, err := h.assistant.SuggestForAdvisor(c.Request.Context(), in)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, s)
}

// Campaign godoc
// @ID           writeCampaignMessage
// @Summary      Campaign copy featuring catalog products
// @Tags         assistant
// @Accept       json
// @Produce      json
// @Param        request body assistant.CampaignInput true "Campaign"
// @Success      200 {object} APIResponse[textgen.CampaignMessage]
// @Failure      400 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Failure      429 {object} ErrorResponse
// @Failure      503 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /assistant/campaigns [post]
func (h *AssistantHandler) Campaign(c *gin.Context) {
	var in assistant.CampaignInput
	if !h.BindJSON(c, &in) {
		return
	}
	msg, err := h.assistant.CampaignMessage(c.Request.Context(), in)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, msg)
}
