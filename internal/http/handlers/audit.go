package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/clubops-backend/internal/data/aggregates"
	"github.com/yungbote/clubops-backend/internal/http/response"
)

type AuditHandler struct {
	auditor *aggregates.Auditor
}

func NewAuditHandler(auditor *aggregates.Auditor) *AuditHandler {
	return &AuditHandler{auditor: auditor}
}

// POST /api/v1/admin/audit (admin)
func (h *AuditHandler) Verify(c *gin.Context) {
	report, err := h.auditor.Verify(c.Request.Context())
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"clean": report.Clean(), "report": report})
}
