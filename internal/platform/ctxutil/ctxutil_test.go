package ctxutil

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestContextRoundTrip(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, GetTraceData(ctx))
	assert.Nil(t, GetRequestData(ctx))

	actor := uuid.New()
	ctx = WithTraceData(ctx, &TraceData{TraceID: "t", RequestID: "r"})
	ctx = WithRequestData(ctx, &RequestData{ActorID: actor, Role: RoleAdmin})

	assert.Equal(t, "r", GetTraceData(ctx).RequestID)
	assert.Equal(t, actor, GetRequestData(ctx).ActorID)
	assert.True(t, GetRequestData(ctx).IsAdmin())

	var none *RequestData
	assert.False(t, none.IsAdmin())
}
