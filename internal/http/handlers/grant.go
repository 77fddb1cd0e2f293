package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/yungbote/clubops-backend/internal/http/response"
	"github.com/yungbote/clubops-backend/internal/services"
)

type GrantHandler struct {
	grants services.GrantService
}

func NewGrantHandler(grants services.GrantService) *GrantHandler {
	return &GrantHandler{grants: grants}
}

// POST /api/v1/grants (admin)
func (h *GrantHandler) Grant(c *gin.Context) {
	var req struct {
		AccountID      uuid.UUID       `json:"account_id"`
		Amount         decimal.Decimal `json:"amount"`
		Reason         string          `json:"reason"`
		IdempotencyKey string          `json:"idempotency_key"`
	}
	if err := bindJSON(c, &req); err != nil {
		response.RespondErr(c, err)
		return
	}
	res, err := h.grants.Grant(c.Request.Context(), services.ManualGrantInput{
		AccountID:      req.AccountID,
		Amount:         req.Amount,
		Reason:         req.Reason,
		IdempotencyKey: idempotencyKey(c, req.IdempotencyKey),
		GrantedBy:      callerID(c),
	})
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"transaction": ledgerView(res)})
}

// POST /api/v1/grants/batch (admin)
func (h *GrantHandler) BatchGrant(c *gin.Context) {
	var req struct {
		BatchID string `json:"batch_id"`
		Reason  string `json:"reason"`
		Items   []struct {
			AccountID uuid.UUID       `json:"account_id"`
			Amount    decimal.Decimal `json:"amount"`
		} `json:"items"`
	}
	if err := bindJSON(c, &req); err != nil {
		response.RespondErr(c, err)
		return
	}
	items := make([]services.BatchGrantItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, services.BatchGrantItem{AccountID: it.AccountID, Amount: it.Amount})
	}
	res, err := h.grants.BatchGrant(c.Request.Context(), services.BatchGrantInput{
		BatchID:   idempotencyKey(c, req.BatchID),
		Reason:    req.Reason,
		Items:     items,
		GrantedBy: callerID(c),
	})
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"batch": res})
}
