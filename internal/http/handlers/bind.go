package handlers

import (
	"context"
	"io"
	"time"

	"github.com/geocoder89/todolist/internal/schema"
	"github.com/gin-gonic/gin"
)

// storeTimeout bounds each storage round trip made by a handler.
const storeTimeout = 3 * time.Second

// readObject reads the request body as a JSON object. On failure it has
// already written the response.
func readObject(ctx *gin.Context) (map[string]any, bool) {
	var body []byte

	if ctx.Request.Body != nil {
		b, err := io.ReadAll(ctx.Request.Body)
		if err != nil {
			RespondErr(ctx, err)
			return nil, false
		}
		body = b
	}

	raw, err := schema.Decode(body)
	if err != nil {
		RespondErr(ctx, err)
		return nil, false
	}

	return raw, true
}

func storeCtx(ctx *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx.Request.Context(), storeTimeout)
}
