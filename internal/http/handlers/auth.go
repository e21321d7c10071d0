package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/geocoder89/todolist/internal/domain/user"
	"github.com/geocoder89/todolist/internal/observability"
	"github.com/geocoder89/todolist/internal/schema"
	"github.com/geocoder89/todolist/internal/security"
	"github.com/gin-gonic/gin"
)

type UserRegistrar interface {
	FindUserByEmail(ctx context.Context, email string) (user.User, error)
	CreateUser(ctx context.Context, u user.User) error
}

type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, hash string) bool
	VerifyOrDummy(plain string, hash *string) bool
}

type TokenIssuer interface {
	Issue(userID, email string) (string, error)
}

type AuthHandler struct {
	users  UserRegistrar
	hasher PasswordHasher
	tokens TokenIssuer
	prom   *observability.Prom
}

func NewAuthHandler(users UserRegistrar, hasher PasswordHasher, tokens TokenIssuer, prom *observability.Prom) *AuthHandler {
	return &AuthHandler{
		users:  users,
		hasher: hasher,
		tokens: tokens,
		prom:   prom,
	}
}

type AuthResponse struct {
	Token string          `json:"token"`
	User  user.PublicUser `json:"user"`
}

var errInvalidCredentials = NewHTTPError(http.StatusUnauthorized, "Invalid credentials")

func (h *AuthHandler) Register(ctx *gin.Context) {
	raw, ok := readObject(ctx)
	if !ok {
		return
	}

	in, err := schema.ParseRegister(raw)
	if err != nil {
		RespondErr(ctx, err)
		return
	}

	cctx, cancel := storeCtx(ctx)
	defer cancel()

	_, err = h.users.FindUserByEmail(cctx, in.Email)
	switch {
	case err == nil:
		h.prom.AuthAttempt("register", "conflict")
		RespondErr(ctx, user.ErrEmailTaken)
		return
	case !errors.Is(err, user.ErrNotFound):
		RespondErr(ctx, err)
		return
	}

	hash, err := h.hasher.Hash(in.Password)
	if err != nil {
		RespondErr(ctx, passwordErr("password", err))
		return
	}

	u := user.New(in.Name, in.Email, hash)

	// fresh context: hashing may have used most of the previous budget
	cctx, cancel = storeCtx(ctx)
	defer cancel()

	if err := h.users.CreateUser(cctx, u); err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			h.prom.AuthAttempt("register", "conflict")
		}
		RespondErr(ctx, err)
		return
	}

	token, err := h.tokens.Issue(u.ID, u.Email)
	if err != nil {
		RespondErr(ctx, err)
		return
	}

	h.prom.AuthAttempt("register", "success")
	ctx.JSON(http.StatusCreated, AuthResponse{Token: token, User: u.Public()})
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	raw, ok := readObject(ctx)
	if !ok {
		return
	}

	in, err := schema.ParseLogin(raw)
	if err != nil {
		RespondErr(ctx, err)
		return
	}

	cctx, cancel := storeCtx(ctx)
	defer cancel()

	var hash *string

	u, err := h.users.FindUserByEmail(cctx, in.Email)
	switch {
	case err == nil:
		hash = &u.Password
	case !errors.Is(err, user.ErrNotFound):
		RespondErr(ctx, err)
		return
	}

	// an unknown email still pays for a full comparison
	if !h.hasher.VerifyOrDummy(in.Password, hash) {
		h.prom.AuthAttempt("login", "invalid")
		RespondErr(ctx, errInvalidCredentials)
		return
	}

	token, err := h.tokens.Issue(u.ID, u.Email)
	if err != nil {
		RespondErr(ctx, err)
		return
	}

	h.prom.AuthAttempt("login", "success")
	ctx.JSON(http.StatusOK, AuthResponse{Token: token, User: u.Public()})
}

// passwordErr turns bcrypt's length limit into a validation failure.
func passwordErr(field string, err error) error {
	if errors.Is(err, security.ErrPasswordTooLong) {
		return &schema.ValidationError{Violations: []schema.Violation{{
			Field:   field,
			Message: `Field "` + field + `" must be at most 72 bytes`,
		}}}
	}
	return err
}
