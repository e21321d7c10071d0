package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/geocoder89/todolist/internal/domain/todo"
	"github.com/geocoder89/todolist/internal/domain/user"
	"github.com/geocoder89/todolist/internal/schema"
	"github.com/gin-gonic/gin"
)

// HTTPError is an error that already knows its status and client message.
type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	return e.Message
}

func NewHTTPError(status int, message string) *HTTPError {
	return &HTTPError{Status: status, Message: message}
}

func RespondError(ctx *gin.Context, status int, message string) {
	ctx.AbortWithStatusJSON(status, gin.H{"error": message})
}

// RespondErr maps every error a handler can produce to a status code and a
// {"error": "..."} body. Unexpected errors are logged and never shown to the
// client.
func RespondErr(ctx *gin.Context, err error) {
	var (
		vErr *schema.ValidationError
		hErr *HTTPError
		mErr *http.MaxBytesError
	)

	switch {
	case errors.As(err, &vErr):
		RespondError(ctx, http.StatusBadRequest, vErr.Error())
	case errors.As(err, &hErr):
		RespondError(ctx, hErr.Status, hErr.Message)
	case errors.As(err, &mErr):
		RespondError(ctx, http.StatusRequestEntityTooLarge, "Request body too large")
	case errors.Is(err, schema.ErrNotObject):
		RespondError(ctx, http.StatusBadRequest, "Request body must be a JSON object")
	case errors.Is(err, user.ErrEmailTaken):
		RespondError(ctx, http.StatusConflict, "Email already in use")
	case errors.Is(err, user.ErrNotFound):
		RespondError(ctx, http.StatusNotFound, "User not found")
	case errors.Is(err, todo.ErrNotFound):
		RespondError(ctx, http.StatusNotFound, "Item not found")
	default:
		slog.Default().ErrorContext(ctx.Request.Context(), "request_failed",
			"method", ctx.Request.Method,
			"route", ctx.FullPath(),
			"err", err,
		)
		RespondError(ctx, http.StatusInternalServerError, "Internal server error")
	}
}
