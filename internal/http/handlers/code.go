package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	domainagg "github.com/yungbote/clubops-backend/internal/domain/aggregates"
	"github.com/yungbote/clubops-backend/internal/http/response"
	"github.com/yungbote/clubops-backend/internal/platform/dbctx"
	"github.com/yungbote/clubops-backend/internal/services"
)

type CodeHandler struct {
	codes domainagg.RedemptionAggregate
	query services.QueryService
}

func NewCodeHandler(codes domainagg.RedemptionAggregate, query services.QueryService) *CodeHandler {
	return &CodeHandler{codes: codes, query: query}
}

// POST /api/v1/codes (admin)
func (h *CodeHandler) Issue(c *gin.Context) {
	var req struct {
		ResourceID  uuid.UUID       `json:"resource_id"`
		GrantAmount decimal.Decimal `json:"grant_amount"`
	}
	if err := bindJSON(c, &req); err != nil {
		response.RespondErr(c, err)
		return
	}
	res, err := h.codes.Issue(c.Request.Context(), domainagg.IssueCodeInput{
		ResourceID:  req.ResourceID,
		GrantAmount: req.GrantAmount,
		IssuedBy:    callerID(c),
	})
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"code": gin.H{
		"code":        res.Code,
		"resource_id": res.ResourceID,
		"issued_at":   res.IssuedAt,
	}})
}

// GET /api/v1/codes/:code (admin)
func (h *CodeHandler) Get(c *gin.Context) {
	row, err := h.query.GetCode(dbctx.Context{Ctx: c.Request.Context()}, c.Param("code"))
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"code": row})
}

// GET /api/v1/resources/:resource_id/codes (admin)
func (h *CodeHandler) ListByResource(c *gin.Context) {
	resourceID, err := uuidParam(c, "resource_id")
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	limit, err := queryLimit(c)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	rows, err := h.query.ListCodesByResource(dbctx.Context{Ctx: c.Request.Context()}, resourceID, limit)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"codes": rows})
}

type grantView struct {
	Kind          string          `json:"kind"`
	AccountID     uuid.UUID       `json:"account_id"`
	TransactionID uuid.UUID       `json:"transaction_id"`
	Amount        decimal.Decimal `json:"amount"`
	Balance       decimal.Decimal `json:"balance"`
}

// POST /api/v1/codes/:code/redeem
func (h *CodeHandler) Redeem(c *gin.Context) {
	var req struct {
		RedeemerID *uuid.UUID `json:"redeemer_id"`
	}
	if c.Request.ContentLength != 0 {
		if err := bindJSON(c, &req); err != nil {
			response.RespondErr(c, err)
			return
		}
	}
	redeemer, err := actorOrCaller(c, req.RedeemerID)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	res, err := h.codes.Redeem(c.Request.Context(), domainagg.RedeemCodeInput{Code: c.Param("code"), RedeemerID: redeemer})
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"redemption": gin.H{
		"code":        res.Code,
		"redeemer_id": res.RedeemerID,
		"resource_id": res.ResourceID,
		"redeemed_at": res.RedeemedAt,
		"grant": grantView{
			Kind:          res.Grant.Kind,
			AccountID:     res.Grant.AccountID,
			TransactionID: res.Grant.TransactionID,
			Amount:        res.Grant.Amount,
			Balance:       res.Grant.Balance,
		},
	}})
}

// DELETE /api/v1/codes/:code (admin)
func (h *CodeHandler) Revoke(c *gin.Context) {
	res, err := h.codes.Revoke(c.Request.Context(), domainagg.RevokeCodeInput{Code: c.Param("code")})
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"revoked": gin.H{"code": res.Code, "revoked_at": res.RevokedAt.Format(time.RFC3339Nano)}})
}
