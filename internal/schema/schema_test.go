package schema_test

import (
	"testing"

	"github.com/geocoder89/todolist/internal/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireViolation(t *testing.T, err error, want string) {
	t.Helper()

	var vErr *schema.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, want, vErr.Error())
}

func TestDecode(t *testing.T) {
	raw, err := schema.Decode([]byte(`{"name":"x"}`))
	require.NoError(t, err)
	assert.Equal(t, "x", raw["name"])

	raw, err = schema.Decode(nil)
	require.NoError(t, err)
	assert.Empty(t, raw)

	_, err = schema.Decode([]byte(`[1,2]`))
	assert.ErrorIs(t, err, schema.ErrNotObject)

	_, err = schema.Decode([]byte(`{bad json`))
	assert.ErrorIs(t, err, schema.ErrNotObject)
}

func TestParseRegister(t *testing.T) {
	t.Run("normalises", func(t *testing.T) {
		in, err := schema.ParseRegister(map[string]any{
			"name":     "  Ada Lovelace ",
			"email":    "TEST@EXAMPLE.COM",
			"password": "password123",
		})
		require.NoError(t, err)
		assert.Equal(t, "Ada Lovelace", in.Name)
		assert.Equal(t, "test@example.com", in.Email)
		assert.Equal(t, "password123", in.Password)
	})

	t.Run("reports every field in order", func(t *testing.T) {
		_, err := schema.ParseRegister(map[string]any{})
		requireViolation(t, err,
			`Field "name" is required, Field "email" is required, Field "password" is required`)
	})

	t.Run("blank name, bad email, short password", func(t *testing.T) {
		_, err := schema.ParseRegister(map[string]any{
			"name":     "   ",
			"email":    "not-an-email",
			"password": "short",
		})
		requireViolation(t, err,
			`Field "name" must be a non-empty string, Field "email" must be a valid email address, Field "password" must be at least 8 characters`)
	})

	t.Run("wrong type", func(t *testing.T) {
		_, err := schema.ParseRegister(map[string]any{
			"name":     42.0,
			"email":    "a@b.com",
			"password": "password123",
		})
		requireViolation(t, err, `Field "name" must be a string`)
	})
}

func TestParseLogin(t *testing.T) {
	in, err := schema.ParseLogin(map[string]any{"email": "User@Example.com", "password": "x"})
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", in.Email)
	assert.Equal(t, "x", in.Password, "login does not check password length")

	_, err = schema.ParseLogin(map[string]any{"email": "user@example.com"})
	requireViolation(t, err, `Field "password" is required`)
}

func TestParseAddItem(t *testing.T) {
	in, err := schema.ParseAddItem(map[string]any{"name": "  Buy milk  "})
	require.NoError(t, err)
	assert.Equal(t, "Buy milk", in.Name)

	_, err = schema.ParseAddItem(map[string]any{"name": ""})
	requireViolation(t, err, `Field "name" must be a non-empty string`)

	_, err = schema.ParseAddItem(map[string]any{})
	requireViolation(t, err, `Field "name" is required`)
}

func TestParseUpdateItem(t *testing.T) {
	tests := []struct {
		name    string
		raw     map[string]any
		wantErr string
		check   func(t *testing.T, in schema.UpdateItemInput)
	}{
		{
			name: "completed only",
			raw:  map[string]any{"completed": true},
			check: func(t *testing.T, in schema.UpdateItemInput) {
				assert.Nil(t, in.Name)
				require.NotNil(t, in.Completed)
				assert.True(t, *in.Completed)
			},
		},
		{
			name: "name trimmed",
			raw:  map[string]any{"name": " New "},
			check: func(t *testing.T, in schema.UpdateItemInput) {
				require.NotNil(t, in.Name)
				assert.Equal(t, "New", *in.Name)
				assert.Nil(t, in.Completed)
			},
		},
		{
			name:    "empty body",
			raw:     map[string]any{},
			wantErr: `At least one field ("name" or "completed") must be provided`,
		},
		{
			name:    "completed not boolean",
			raw:     map[string]any{"completed": "yes"},
			wantErr: `Field "completed" must be a boolean`,
		},
		{
			name:    "blank name",
			raw:     map[string]any{"name": "  "},
			wantErr: `Field "name" must be a non-empty string`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, err := schema.ParseUpdateItem(tt.raw)
			if tt.wantErr != "" {
				requireViolation(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.check(t, in)
		})
	}
}

func TestParseUpdateMe(t *testing.T) {
	t.Run("name alone needs no current password", func(t *testing.T) {
		in, err := schema.ParseUpdateMe(map[string]any{"name": " Grace "})
		require.NoError(t, err)
		require.NotNil(t, in.Name)
		assert.Equal(t, "Grace", *in.Name)
		assert.False(t, in.ChangesCredentials())
	})

	t.Run("email change requires current password", func(t *testing.T) {
		_, err := schema.ParseUpdateMe(map[string]any{"email": "new@x.com"})
		requireViolation(t, err, `"currentPassword" is required when changing email or password`)
	})

	t.Run("empty current password is missing", func(t *testing.T) {
		_, err := schema.ParseUpdateMe(map[string]any{"newPassword": "longenough", "currentPassword": ""})
		requireViolation(t, err, `"currentPassword" is required when changing email or password`)
	})

	t.Run("field and cross-field violations are both listed", func(t *testing.T) {
		_, err := schema.ParseUpdateMe(map[string]any{"newPassword": "short"})
		requireViolation(t, err,
			`Field "newPassword" must be at least 8 characters, "currentPassword" is required when changing email or password`)

		_, err = schema.ParseUpdateMe(map[string]any{"email": "nope"})
		requireViolation(t, err,
			`Field "email" must be a valid email address, "currentPassword" is required when changing email or password`)
	})

	t.Run("type errors skip the cross-field rule", func(t *testing.T) {
		_, err := schema.ParseUpdateMe(map[string]any{"name": 7.0, "newPassword": "longenough"})
		requireViolation(t, err, `Field "name" must be a string`)
	})

	t.Run("email normalised", func(t *testing.T) {
		in, err := schema.ParseUpdateMe(map[string]any{"email": "New@X.com", "currentPassword": "password123"})
		require.NoError(t, err)
		require.NotNil(t, in.Email)
		assert.Equal(t, "new@x.com", *in.Email)
		assert.True(t, in.ChangesCredentials())
	})
}

func TestParseDeleteMe(t *testing.T) {
	in, err := schema.ParseDeleteMe(map[string]any{"password": "anything"})
	require.NoError(t, err)
	assert.Equal(t, "anything", in.Password)

	_, err = schema.ParseDeleteMe(map[string]any{})
	requireViolation(t, err, `Field "password" is required`)
}
