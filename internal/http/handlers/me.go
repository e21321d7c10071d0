package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/geocoder89/todolist/internal/domain/todo"
	"github.com/geocoder89/todolist/internal/domain/user"
	"github.com/geocoder89/todolist/internal/http/middlewares"
	"github.com/geocoder89/todolist/internal/schema"
	"github.com/gin-gonic/gin"
)

type AccountStore interface {
	FindUserByID(ctx context.Context, id string) (user.User, error)
	UpdateUser(ctx context.Context, id string, fields user.Fields) error
	DeleteUser(ctx context.Context, id string) error
	GetAllUserData(ctx context.Context, userID string) (user.Data, error)
}

type MeHandler struct {
	users  AccountStore
	hasher PasswordHasher
	now    func() time.Time
}

func NewMeHandler(users AccountStore, hasher PasswordHasher) *MeHandler {
	return &MeHandler{users: users, hasher: hasher, now: time.Now}
}

type ExportResponse struct {
	ExportedAt string          `json:"exportedAt"`
	User       user.PublicUser `json:"user"`
	Todos      []todo.Item     `json:"todos"`
}

// actor returns the verified caller id. Routes without RequireAuth never
// reach these handlers, so absence is a wiring bug.
func actor(ctx *gin.Context) (string, bool) {
	id, ok := middlewares.UserIDFromContext(ctx)
	if !ok {
		RespondError(ctx, http.StatusUnauthorized, "Authentication required")
	}
	return id, ok
}

func (h *MeHandler) Get(ctx *gin.Context) {
	id, ok := actor(ctx)
	if !ok {
		return
	}

	cctx, cancel := storeCtx(ctx)
	defer cancel()

	u, err := h.users.FindUserByID(cctx, id)
	if err != nil {
		RespondErr(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, u.Public())
}

func (h *MeHandler) Update(ctx *gin.Context) {
	id, ok := actor(ctx)
	if !ok {
		return
	}

	raw, ok := readObject(ctx)
	if !ok {
		return
	}

	in, err := schema.ParseUpdateMe(raw)
	if err != nil {
		RespondErr(ctx, err)
		return
	}

	cctx, cancel := storeCtx(ctx)
	defer cancel()

	current, err := h.users.FindUserByID(cctx, id)
	if err != nil {
		RespondErr(ctx, err)
		return
	}

	if in.ChangesCredentials() && !h.hasher.Verify(*in.CurrentPassword, current.Password) {
		RespondErr(ctx, NewHTTPError(http.StatusForbidden, "Current password is incorrect"))
		return
	}

	fields := user.Fields{Name: in.Name, Email: in.Email}
	if in.NewPassword != nil {
		hash, err := h.hasher.Hash(*in.NewPassword)
		if err != nil {
			RespondErr(ctx, passwordErr("newPassword", err))
			return
		}
		fields.Password = &hash
	}

	cctx, cancel = storeCtx(ctx)
	defer cancel()

	if err := h.users.UpdateUser(cctx, id, fields); err != nil {
		RespondErr(ctx, err)
		return
	}

	updated, err := h.users.FindUserByID(cctx, id)
	if err != nil {
		RespondErr(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, updated.Public())
}

func (h *MeHandler) Delete(ctx *gin.Context) {
	id, ok := actor(ctx)
	if !ok {
		return
	}

	raw, ok := readObject(ctx)
	if !ok {
		return
	}

	in, err := schema.ParseDeleteMe(raw)
	if err != nil {
		RespondErr(ctx, err)
		return
	}

	cctx, cancel := storeCtx(ctx)
	defer cancel()

	u, err := h.users.FindUserByID(cctx, id)
	if err != nil {
		RespondErr(ctx, err)
		return
	}

	if !h.hasher.Verify(in.Password, u.Password) {
		RespondErr(ctx, NewHTTPError(http.StatusForbidden, "Password is incorrect"))
		return
	}

	cctx, cancel = storeCtx(ctx)
	defer cancel()

	if err := h.users.DeleteUser(cctx, id); err != nil {
		RespondErr(ctx, err)
		return
	}

	ctx.Status(http.StatusNoContent)
}

func (h *MeHandler) Export(ctx *gin.Context) {
	id, ok := actor(ctx)
	if !ok {
		return
	}

	cctx, cancel := storeCtx(ctx)
	defer cancel()

	data, err := h.users.GetAllUserData(cctx, id)
	if err != nil {
		RespondErr(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, ExportResponse{
		ExportedAt: user.FormatTime(h.now()),
		User:       data.User,
		Todos:      data.Todos,
	})
}
