package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/geocoder89/todolist/internal/domain/todo"
	"github.com/geocoder89/todolist/internal/schema"
	"github.com/gin-gonic/gin"
)

type ItemStore interface {
	GetItems(ctx context.Context, userID string) ([]todo.Item, error)
	GetItem(ctx context.Context, id, userID string) (todo.Item, error)
	StoreItem(ctx context.Context, item todo.Item) error
	UpdateItem(ctx context.Context, id, userID string, patch todo.Patch) error
	RemoveItem(ctx context.Context, id, userID string) (bool, error)
}

type ItemsHandler struct {
	items ItemStore
}

func NewItemsHandler(items ItemStore) *ItemsHandler {
	return &ItemsHandler{items: items}
}

func itemNotFound(id string) *HTTPError {
	return NewHTTPError(http.StatusNotFound, fmt.Sprintf("Item with id %q not found", id))
}

func (h *ItemsHandler) List(ctx *gin.Context) {
	userID, ok := actor(ctx)
	if !ok {
		return
	}

	cctx, cancel := storeCtx(ctx)
	defer cancel()

	items, err := h.items.GetItems(cctx, userID)
	if err != nil {
		RespondErr(ctx, err)
		return
	}
	if items == nil {
		items = []todo.Item{}
	}

	RespondJSONWithETag(ctx, http.StatusOK, items)
}

func (h *ItemsHandler) Add(ctx *gin.Context) {
	userID, ok := actor(ctx)
	if !ok {
		return
	}

	raw, ok := readObject(ctx)
	if !ok {
		return
	}

	in, err := schema.ParseAddItem(raw)
	if err != nil {
		RespondErr(ctx, err)
		return
	}

	item := todo.New(in.Name, userID)

	cctx, cancel := storeCtx(ctx)
	defer cancel()

	if err := h.items.StoreItem(cctx, item); err != nil {
		RespondErr(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, item)
}

// Update merges the sent fields over the stored item and returns the
// re-read result.
func (h *ItemsHandler) Update(ctx *gin.Context) {
	userID, ok := actor(ctx)
	if !ok {
		return
	}

	id := ctx.Param("id")

	raw, ok := readObject(ctx)
	if !ok {
		return
	}

	in, err := schema.ParseUpdateItem(raw)
	if err != nil {
		RespondErr(ctx, err)
		return
	}

	cctx, cancel := storeCtx(ctx)
	defer cancel()

	existing, err := h.items.GetItem(cctx, id, userID)
	if err != nil {
		RespondErr(ctx, notFoundAs(err, id))
		return
	}

	patch := todo.Patch{Name: existing.Name, Completed: existing.Completed}
	if in.Name != nil {
		patch.Name = *in.Name
	}
	if in.Completed != nil {
		patch.Completed = *in.Completed
	}

	if err := h.items.UpdateItem(cctx, id, userID, patch); err != nil {
		RespondErr(ctx, err)
		return
	}

	updated, err := h.items.GetItem(cctx, id, userID)
	if err != nil {
		RespondErr(ctx, notFoundAs(err, id))
		return
	}

	ctx.JSON(http.StatusOK, updated)
}

func (h *ItemsHandler) Delete(ctx *gin.Context) {
	userID, ok := actor(ctx)
	if !ok {
		return
	}

	id := ctx.Param("id")

	cctx, cancel := storeCtx(ctx)
	defer cancel()

	removed, err := h.items.RemoveItem(cctx, id, userID)
	if err != nil {
		RespondErr(ctx, err)
		return
	}
	if !removed {
		RespondErr(ctx, itemNotFound(id))
		return
	}

	ctx.Status(http.StatusNoContent)
}

func notFoundAs(err error, id string) error {
	if errors.Is(err, todo.ErrNotFound) {
		return itemNotFound(id)
	}
	return err
}
