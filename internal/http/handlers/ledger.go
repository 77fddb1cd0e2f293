package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	domainagg "github.com/yungbote/clubops-backend/internal/domain/aggregates"
	"github.com/yungbote/clubops-backend/internal/http/response"
	"github.com/yungbote/clubops-backend/internal/platform/apierr"
	"github.com/yungbote/clubops-backend/internal/platform/ctxutil"
	"github.com/yungbote/clubops-backend/internal/platform/dbctx"
	"github.com/yungbote/clubops-backend/internal/services"
)

type LedgerHandler struct {
	ledger domainagg.LedgerAggregate
	query  services.QueryService
}

func NewLedgerHandler(ledger domainagg.LedgerAggregate, query services.QueryService) *LedgerHandler {
	return &LedgerHandler{ledger: ledger, query: query}
}

type ledgerResultView struct {
	AccountID     uuid.UUID       `json:"account_id"`
	TransactionID uuid.UUID       `json:"transaction_id"`
	Applied       bool            `json:"applied"`
	Balance       decimal.Decimal `json:"balance"`
	TotalEarned   decimal.Decimal `json:"total_earned"`
	RecordedAt    time.Time       `json:"recorded_at"`
}

func ledgerView(res domainagg.LedgerResult) ledgerResultView {
	return ledgerResultView{
		AccountID:     res.AccountID,
		TransactionID: res.TransactionID,
		Applied:       res.Applied,
		Balance:       res.Balance,
		TotalEarned:   res.TotalEarned,
		RecordedAt:    res.RecordedAt,
	}
}

type movementRequest struct {
	Amount         decimal.Decimal `json:"amount"`
	Reason         string          `json:"reason"`
	IdempotencyKey string          `json:"idempotency_key"`
	Metadata       map[string]any  `json:"metadata"`
}

// POST /api/v1/accounts
func (h *LedgerHandler) CreateAccount(c *gin.Context) {
	var req struct {
		OwnerID *uuid.UUID `json:"owner_id"`
	}
	if err := bindJSON(c, &req); err != nil {
		response.RespondErr(c, err)
		return
	}
	owner, err := actorOrCaller(c, req.OwnerID)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	res, err := h.ledger.CreateAccount(c.Request.Context(), domainagg.CreateAccountInput{OwnerID: owner})
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"account": gin.H{
		"id":       res.AccountID,
		"owner_id": res.OwnerID,
		"created":  res.Created,
		"balance":  res.Balance,
	}})
}

// GET /api/v1/accounts/:id
func (h *LedgerHandler) GetAccount(c *gin.Context) {
	id, err := uuidParam(c, "id")
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	acct, err := h.query.GetAccount(dbctx.Context{Ctx: c.Request.Context()}, id)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	if err := requireOwnerOrAdmin(c, acct.OwnerID); err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"account": acct})
}

// GET /api/v1/owners/:owner_id/account
func (h *LedgerHandler) GetAccountByOwner(c *gin.Context) {
	owner, err := uuidParam(c, "owner_id")
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	if err := requireOwnerOrAdmin(c, owner); err != nil {
		response.RespondErr(c, err)
		return
	}
	acct, err := h.query.GetAccountByOwner(dbctx.Context{Ctx: c.Request.Context()}, owner)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"account": acct})
}

// GET /api/v1/accounts/:id/transactions?before=&limit=
func (h *LedgerHandler) ListTransactions(c *gin.Context) {
	id, err := uuidParam(c, "id")
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	before, err := queryTime(c, "before")
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	limit, err := queryLimit(c)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	acct, err := h.query.GetAccount(dbc, id)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	if err := requireOwnerOrAdmin(c, acct.OwnerID); err != nil {
		response.RespondErr(c, err)
		return
	}
	txs, err := h.query.ListTransactions(dbc, id, before, limit)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"transactions": txs})
}

// POST /api/v1/accounts/:id/earn (admin)
func (h *LedgerHandler) Earn(c *gin.Context) {
	id, req, ok := h.movement(c)
	if !ok {
		return
	}
	res, err := h.ledger.Earn(c.Request.Context(), domainagg.EarnInput{
		AccountID:      id,
		Amount:         req.Amount,
		Reason:         req.Reason,
		IdempotencyKey: idempotencyKey(c, req.IdempotencyKey),
		Metadata:       req.Metadata,
	})
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"result": ledgerView(res)})
}

// POST /api/v1/accounts/:id/spend
func (h *LedgerHandler) Spend(c *gin.Context) {
	id, req, ok := h.movement(c)
	if !ok {
		return
	}
	if !ctxutil.GetRequestData(c.Request.Context()).IsAdmin() {
		acct, err := h.query.GetAccount(dbctx.Context{Ctx: c.Request.Context()}, id)
		if err != nil {
			response.RespondErr(c, err)
			return
		}
		if err := requireOwnerOrAdmin(c, acct.OwnerID); err != nil {
			response.RespondErr(c, err)
			return
		}
	}
	res, err := h.ledger.Spend(c.Request.Context(), domainagg.SpendInput{
		AccountID:      id,
		Amount:         req.Amount,
		Reason:         req.Reason,
		IdempotencyKey: idempotencyKey(c, req.IdempotencyKey),
		Metadata:       req.Metadata,
	})
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"result": ledgerView(res)})
}

func (h *LedgerHandler) movement(c *gin.Context) (uuid.UUID, movementRequest, bool) {
	var req movementRequest
	id, err := uuidParam(c, "id")
	if err == nil {
		err = bindJSON(c, &req)
	}
	if err != nil {
		response.RespondErr(c, err)
		return uuid.Nil, req, false
	}
	return id, req, true
}

func requireOwnerOrAdmin(c *gin.Context, ownerID uuid.UUID) error {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd.IsAdmin() || (rd != nil && rd.ActorID == ownerID) {
		return nil
	}
	return apierr.New(http.StatusForbidden, "forbidden", fmt.Errorf("not your account"))
}
