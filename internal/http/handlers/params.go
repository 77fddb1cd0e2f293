package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/clubops-backend/internal/platform/apierr"
	"github.com/yungbote/clubops-backend/internal/platform/ctxutil"
)

const headerIdempotencyKey = "Idempotency-Key"

func uuidParam(c *gin.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, apierr.New(http.StatusBadRequest, "invalid_"+name, err)
	}
	return id, nil
}

func bindJSON(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		return apierr.New(http.StatusBadRequest, "invalid_body", err)
	}
	return nil
}

// actorOrCaller returns the explicit actor when an admin names one, and the
// authenticated caller otherwise.
func actorOrCaller(c *gin.Context, explicit *uuid.UUID) (uuid.UUID, error) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if explicit != nil && *explicit != uuid.Nil {
		if rd != nil && !rd.IsAdmin() && rd.ActorID != *explicit {
			return uuid.Nil, apierr.New(http.StatusForbidden, "forbidden", fmt.Errorf("cannot act for another actor"))
		}
		return *explicit, nil
	}
	if rd == nil || rd.ActorID == uuid.Nil {
		return uuid.Nil, apierr.New(http.StatusBadRequest, "missing_actor_id", fmt.Errorf("actor id required"))
	}
	return rd.ActorID, nil
}

func callerID(c *gin.Context) *uuid.UUID {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil || rd.ActorID == uuid.Nil {
		return nil
	}
	id := rd.ActorID
	return &id
}

// idempotencyKey prefers the header over the body field.
func idempotencyKey(c *gin.Context, body string) string {
	if h := strings.TrimSpace(c.GetHeader(headerIdempotencyKey)); h != "" {
		return h
	}
	return strings.TrimSpace(body)
}

func queryLimit(c *gin.Context) (int, error) {
	raw := strings.TrimSpace(c.Query("limit"))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apierr.New(http.StatusBadRequest, "invalid_limit", fmt.Errorf("limit must be a non-negative integer"))
	}
	return n, nil
}

func queryTime(c *gin.Context, name string) (*time.Time, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return nil, apierr.New(http.StatusBadRequest, "invalid_"+name, err)
	}
	return &t, nil
}
