// Package storetest is the behavioural contract every repo.Store must pass.
// Each store package calls Run from its own tests with a factory returning a
// fresh, initialised store.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/geocoder89/todolist/internal/domain/todo"
	"github.com/geocoder89/todolist/internal/domain/user"
	"github.com/geocoder89/todolist/internal/repo"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Factory func(t *testing.T) repo.Store

func Run(t *testing.T, newStore Factory) {
	t.Helper()

	cases := []struct {
		name string
		fn   func(t *testing.T, s repo.Store)
	}{
		{"InitIsIdempotent", testInitIdempotent},
		{"ItemRoundTrip", testItemRoundTrip},
		{"EmptyListIsNotNil", testEmptyList},
		{"TenantIsolation", testTenantIsolation},
		{"NotOwnedBehavesAsMissing", testNotOwned},
		{"UpdateItem", testUpdateItem},
		{"RemoveTwice", testRemoveTwice},
		{"CreateAndFindUser", testCreateAndFindUser},
		{"DuplicateEmail", testDuplicateEmail},
		{"UpdateUserPartial", testUpdateUserPartial},
		{"UpdateUserEmailTaken", testUpdateUserEmailTaken},
		{"DeleteUserCascades", testDeleteUserCascades},
		{"GetAllUserData", testGetAllUserData},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.fn(t, newStore(t))
		})
	}
}

func ctxT(t *testing.T) context.Context {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// mkUser stores a user with a unique email and returns it. created_at is
// truncated to whole seconds since not every store keeps sub-second precision.
func mkUser(t *testing.T, s repo.Store, name string) user.User {
	t.Helper()

	u := user.New(name, uuid.NewString()+"@example.com", "$2a$04$hash")
	u.CreatedAt = u.CreatedAt.Truncate(time.Second)

	require.NoError(t, s.CreateUser(ctxT(t), u))
	return u
}

func mkItem(t *testing.T, s repo.Store, name, userID string) todo.Item {
	t.Helper()

	it := todo.New(name, userID)
	require.NoError(t, s.StoreItem(ctxT(t), it))
	return it
}

func testInitIdempotent(t *testing.T, s repo.Store) {
	ctx := ctxT(t)
	require.NoError(t, s.Init(ctx))

	u := mkUser(t, s, "Ada")
	mkItem(t, s, "survives re-init", u.ID)

	require.NoError(t, s.Init(ctx))

	items, err := s.GetItems(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func testItemRoundTrip(t *testing.T, s repo.Store) {
	ctx := ctxT(t)
	u := mkUser(t, s, "Ada")

	want := mkItem(t, s, "Buy milk", u.ID)

	got, err := s.GetItem(ctx, want.ID, u.ID)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.False(t, got.Completed)
}

func testEmptyList(t *testing.T, s repo.Store) {
	items, err := s.GetItems(ctxT(t), uuid.NewString())
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func testTenantIsolation(t *testing.T, s repo.Store) {
	ctx := ctxT(t)
	a := mkUser(t, s, "A")
	b := mkUser(t, s, "B")

	a1 := mkItem(t, s, "a1", a.ID)
	a2 := mkItem(t, s, "a2", a.ID)
	b1 := mkItem(t, s, "b1", b.ID)

	itemsA, err := s.GetItems(ctx, a.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []todo.Item{a1, a2}, itemsA)

	itemsB, err := s.GetItems(ctx, b.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []todo.Item{b1}, itemsB)
}

func testNotOwned(t *testing.T, s repo.Store) {
	ctx := ctxT(t)
	owner := mkUser(t, s, "Owner")
	other := mkUser(t, s, "Other")
	it := mkItem(t, s, "private", owner.ID)

	_, err := s.GetItem(ctx, it.ID, other.ID)
	assert.ErrorIs(t, err, todo.ErrNotFound)

	_, err = s.GetItem(ctx, uuid.NewString(), owner.ID)
	assert.ErrorIs(t, err, todo.ErrNotFound)

	require.NoError(t, s.UpdateItem(ctx, it.ID, other.ID, todo.Patch{Name: "hijacked", Completed: true}))

	removed, err := s.RemoveItem(ctx, it.ID, other.ID)
	require.NoError(t, err)
	assert.False(t, removed)

	got, err := s.GetItem(ctx, it.ID, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, it, got, "item must be untouched by another user")
}

func testUpdateItem(t *testing.T, s repo.Store) {
	ctx := ctxT(t)
	u := mkUser(t, s, "Ada")
	it := mkItem(t, s, "old", u.ID)

	require.NoError(t, s.UpdateItem(ctx, it.ID, u.ID, todo.Patch{Name: "new", Completed: true}))

	got, err := s.GetItem(ctx, it.ID, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "new", got.Name)
	assert.True(t, got.Completed)

	require.NoError(t, s.UpdateItem(ctx, uuid.NewString(), u.ID, todo.Patch{Name: "x"}),
		"updating a missing row is a no-op")
}

func testRemoveTwice(t *testing.T, s repo.Store) {
	ctx := ctxT(t)
	u := mkUser(t, s, "Ada")
	it := mkItem(t, s, "gone soon", u.ID)

	removed, err := s.RemoveItem(ctx, it.ID, u.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = s.RemoveItem(ctx, it.ID, u.ID)
	require.NoError(t, err)
	assert.False(t, removed)

	_, err = s.GetItem(ctx, it.ID, u.ID)
	assert.ErrorIs(t, err, todo.ErrNotFound)
}

func testCreateAndFindUser(t *testing.T, s repo.Store) {
	ctx := ctxT(t)
	u := mkUser(t, s, "Ada")

	byEmail, err := s.FindUserByEmail(ctx, u.Email)
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)
	assert.Equal(t, u.Password, byEmail.Password, "full record includes the hash")
	assert.True(t, u.CreatedAt.Equal(byEmail.CreatedAt), "created_at %v != %v", u.CreatedAt, byEmail.CreatedAt)

	byID, err := s.FindUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.Email, byID.Email)
	assert.Equal(t, u.Name, byID.Name)

	_, err = s.FindUserByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, user.ErrNotFound)

	_, err = s.FindUserByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, user.ErrNotFound)
}

func testDuplicateEmail(t *testing.T, s repo.Store) {
	u := mkUser(t, s, "Ada")

	dup := user.New("Imposter", u.Email, "$2a$04$other")
	err := s.CreateUser(ctxT(t), dup)
	assert.ErrorIs(t, err, user.ErrEmailTaken)
}

func testUpdateUserPartial(t *testing.T, s repo.Store) {
	ctx := ctxT(t)
	u := mkUser(t, s, "Ada")

	name := "Grace"
	require.NoError(t, s.UpdateUser(ctx, u.ID, user.Fields{Name: &name}))

	got, err := s.FindUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Grace", got.Name)
	assert.Equal(t, u.Email, got.Email)
	assert.Equal(t, u.Password, got.Password)

	email := uuid.NewString() + "@example.org"
	hash := "$2a$04$newhash"
	require.NoError(t, s.UpdateUser(ctx, u.ID, user.Fields{Email: &email, Password: &hash}))

	got, err = s.FindUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Grace", got.Name)
	assert.Equal(t, email, got.Email)
	assert.Equal(t, hash, got.Password)

	require.NoError(t, s.UpdateUser(ctx, u.ID, user.Fields{}), "no fields is a no-op")
}

func testUpdateUserEmailTaken(t *testing.T, s repo.Store) {
	a := mkUser(t, s, "A")
	b := mkUser(t, s, "B")

	err := s.UpdateUser(ctxT(t), b.ID, user.Fields{Email: &a.Email})
	assert.ErrorIs(t, err, user.ErrEmailTaken)
}

func testDeleteUserCascades(t *testing.T, s repo.Store) {
	ctx := ctxT(t)
	doomed := mkUser(t, s, "Doomed")
	kept := mkUser(t, s, "Kept")

	mkItem(t, s, "d1", doomed.ID)
	mkItem(t, s, "d2", doomed.ID)
	k1 := mkItem(t, s, "k1", kept.ID)

	require.NoError(t, s.DeleteUser(ctx, doomed.ID))

	_, err := s.FindUserByID(ctx, doomed.ID)
	assert.ErrorIs(t, err, user.ErrNotFound)

	items, err := s.GetItems(ctx, doomed.ID)
	require.NoError(t, err)
	assert.Empty(t, items)

	items, err = s.GetItems(ctx, kept.ID)
	require.NoError(t, err)
	assert.Equal(t, []todo.Item{k1}, items)
}

func testGetAllUserData(t *testing.T, s repo.Store) {
	ctx := ctxT(t)
	u := mkUser(t, s, "Ada")
	it := mkItem(t, s, "export me", u.ID)

	data, err := s.GetAllUserData(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.Public(), data.User)
	assert.Equal(t, []todo.Item{it}, data.Todos)

	empty := mkUser(t, s, "Empty")
	data, err = s.GetAllUserData(ctx, empty.ID)
	require.NoError(t, err)
	assert.NotNil(t, data.Todos)
	assert.Empty(t, data.Todos)

	_, err = s.GetAllUserData(ctx, uuid.NewString())
	assert.ErrorIs(t, err, user.ErrNotFound)
}
