package ctxutil

import (
	"context"

	"github.com/google/uuid"
)

type requestDataKey struct{}

const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// RequestData is the authenticated caller, set by the auth middleware.
type RequestData struct {
	ActorID uuid.UUID
	Role    string
}

func (rd *RequestData) IsAdmin() bool { return rd != nil && rd.Role == RoleAdmin }

func WithRequestData(ctx context.Context, rd *RequestData) context.Context {
	return context.WithValue(ctx, requestDataKey{}, rd)
}

func GetRequestData(ctx context.Context) *RequestData {
	val := ctx.Value(requestDataKey{})
	if rd, ok := val.(*RequestData); ok {
		return rd
	}
	return nil
}
