package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/yungbote/clubops-backend/internal/http/response"
	"github.com/yungbote/clubops-backend/internal/platform/dbctx"
	"github.com/yungbote/clubops-backend/internal/services"
)

type RewardHandler struct {
	rewards services.RewardService
	query   services.QueryService
}

func NewRewardHandler(rewards services.RewardService, query services.QueryService) *RewardHandler {
	return &RewardHandler{rewards: rewards, query: query}
}

type rewardRuleView struct {
	Name   string                     `json:"name"`
	Reason string                     `json:"reason"`
	Grants map[string]decimal.Decimal `json:"grants"`
}

// GET /api/v1/rewards/rules
func (h *RewardHandler) ListRules(c *gin.Context) {
	rules := h.rewards.Rules()
	out := make([]rewardRuleView, 0, len(rules))
	for _, r := range rules {
		out = append(out, rewardRuleView{Name: r.Name, Reason: r.Reason, Grants: r.Grants})
	}
	response.RespondOK(c, gin.H{"rules": out})
}

// POST /api/v1/rewards/:rule/trigger (admin)
func (h *RewardHandler) Trigger(c *gin.Context) {
	var req struct {
		Subject    string               `json:"subject"`
		Recipients map[string]uuid.UUID `json:"recipients"`
		Metadata   map[string]any       `json:"metadata"`
	}
	if err := bindJSON(c, &req); err != nil {
		response.RespondErr(c, err)
		return
	}
	res, err := h.rewards.Trigger(c.Request.Context(), services.TriggerRewardInput{
		Rule:       c.Param("rule"),
		Subject:    req.Subject,
		Recipients: req.Recipients,
		Metadata:   req.Metadata,
	})
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	grants := make([]gin.H, 0, len(res.Results))
	for _, r := range res.Results {
		grants = append(grants, gin.H{
			"role":           r.Role,
			"recipient_id":   r.RecipientID,
			"outcome":        r.Outcome,
			"transaction_id": r.TransactionID,
			"balance":        r.Balance,
		})
	}
	response.RespondOK(c, gin.H{"scope": res.Scope, "grants": grants})
}

// GET /api/v1/rewards/markers?scope=
func (h *RewardHandler) ListMarkers(c *gin.Context) {
	rows, err := h.query.ListRewardMarkers(dbctx.Context{Ctx: c.Request.Context()}, strings.TrimSpace(c.Query("scope")))
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"markers": rows})
}
