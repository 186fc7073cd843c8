package services

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/cct-academy/course-portal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUser_IsAdmin(t *testing.T) {
	client, srv := newStore(t)
	svc := NewUserService(client)
	srv.Seed("admins", map[string]interface{}{"email": "boss@example.com"})

	ok, err := svc.IsAdmin(context.Background(), "Boss@Example.com")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.IsAdmin(context.Background(), "ana@example.com")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.IsAdmin(context.Background(), "")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUser_ProfileCreatedOnFirstAccess(t *testing.T) {
	client, srv := newStore(t)
	svc := NewUserService(client)
	caller := model.Identity{Email: "ana@example.com", Name: "Ana"}

	profile, err := svc.Profile(context.Background(), caller)
	require.NoError(t, err)
	assert.Equal(t, "Ana", profile.Name)
	assert.True(t, profile.Active)

	_, err = svc.Profile(context.Background(), caller)
	require.NoError(t, err)
	assert.Len(t, srv.Rows("users"), 1)

	updated, err := svc.UpdateProfile(context.Background(), caller, ProfileInput{Name: "Ana Maria", Phone: "+55 11 99999-0000"})
	require.NoError(t, err)
	assert.Equal(t, "Ana Maria", updated.Name)
	assert.Equal(t, "+55 11 99999-0000", updated.Phone)
}

func TestUser_AdminCRUD(t *testing.T) {
	client, srv := newStore(t)
	svc := NewUserService(client)
	ctx := context.Background()

	_, err := svc.Create(ctx, UserInput{Name: "No email"})
	assert.True(t, errors.Is(err, ErrInvalidInput))

	user, err := svc.Create(ctx, UserInput{Email: "Bia@example.com", Name: "Bia"})
	require.NoError(t, err)
	assert.Equal(t, "bia@example.com", user.Email)
	assert.True(t, user.Active)

	found, err := svc.FindByEmail(ctx, "bia@example.com")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, user.ID, found.ID)

	updated, err := svc.Update(ctx, user.ID, UserInput{Name: "Bia S", Active: boolPtr(false)})
	require.NoError(t, err)
	assert.False(t, updated.Active)
	assert.Equal(t, "bia@example.com", updated.Email)

	_, err = svc.Update(ctx, 999, UserInput{Name: "x"})
	assert.True(t, errors.Is(err, ErrNotFound))

	users, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)

	require.NoError(t, svc.Delete(ctx, user.ID))
	missing, err := svc.FindByEmail(ctx, "bia@example.com")
	require.NoError(t, err)
	assert.Nil(t, missing)
	assert.Empty(t, srv.Rows("users"))
}

func TestUser_UpstreamFailureSurfaces(t *testing.T) {
	client, srv := newStore(t)
	srv.Fail("users", http.StatusServiceUnavailable, "down")

	_, err := NewUserService(client).List(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "down")
}
