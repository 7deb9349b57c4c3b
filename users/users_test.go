package users_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/go-session-client/users"
	fakeuserrepo "github.com/jrsteele09/go-session-client/users/repofake"
	"github.com/stretchr/testify/require"
)

func TestValidatePasswordStrength(t *testing.T) {
	require.NoError(t, users.ValidatePasswordStrength("Password1"))
	require.Error(t, users.ValidatePasswordStrength("short1A"))
	require.Error(t, users.ValidatePasswordStrength("password1"))
	require.Error(t, users.ValidatePasswordStrength("PASSWORD1"))
	require.Error(t, users.ValidatePasswordStrength("Passwordx"))
}

func TestCheckPassword(t *testing.T) {
	hash, err := users.HashPassword("Password1")
	require.NoError(t, err)

	u := &users.User{Email: "a@example.com", PasswordHash: hash}
	require.True(t, u.CheckPassword("Password1"))
	require.False(t, u.CheckPassword("password1"))

	federated := &users.User{Email: "b@example.com", Providers: []string{"github"}}
	require.False(t, federated.CheckPassword(""))
	require.True(t, federated.HasProvider("github"))
	require.False(t, federated.HasProvider("google"))
}

func TestAuthUser(t *testing.T) {
	joined := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	u := &users.User{ID: "u1", Email: "a@example.com", Username: "a", Role: users.RoleMember, DateJoined: joined, Blocked: true}

	au := u.AuthUser()
	require.Equal(t, "u1", au.ID)
	require.Equal(t, "member", au.Role)
	require.False(t, au.IsActive)
	require.Equal(t, joined, au.CreatedAt)
	require.Equal(t, joined, au.UpdatedAt)
}

func TestFakeUserRepo(t *testing.T) {
	repo := fakeuserrepo.NewFakeUserRepo()

	u := &users.User{Email: "Alice@Example.com", Username: "alice"}
	require.NoError(t, repo.Upsert(u))
	require.NotEmpty(t, u.ID)

	t.Run("lookup is case insensitive", func(t *testing.T) {
		got, err := repo.GetByEmail("alice@example.com")
		require.NoError(t, err)
		require.Equal(t, u.ID, got.ID)
	})

	t.Run("reads are copies", func(t *testing.T) {
		got, err := repo.GetByID(u.ID)
		require.NoError(t, err)
		got.Username = "mallory"

		again, err := repo.GetByID(u.ID)
		require.NoError(t, err)
		require.Equal(t, "alice", again.Username)
	})

	t.Run("setters", func(t *testing.T) {
		at := time.Now().UTC()
		require.NoError(t, repo.SetLastLogin("alice@example.com", at))
		require.NoError(t, repo.SetBlocked("alice@example.com", true))

		got, err := repo.GetByEmail("alice@example.com")
		require.NoError(t, err)
		require.True(t, got.Blocked)
		require.Equal(t, at, got.LastLogin)

		require.ErrorIs(t, repo.SetBlocked("nobody@example.com", true), users.ErrNotFound)
	})

	t.Run("list pages", func(t *testing.T) {
		require.NoError(t, repo.Upsert(&users.User{Email: "bob@example.com"}))
		all, err := repo.List(0, 0)
		require.NoError(t, err)
		require.Len(t, all, 2)

		page, err := repo.List(1, 1)
		require.NoError(t, err)
		require.Len(t, page, 1)
		require.Equal(t, "bob@example.com", page[0].Email)

		empty, err := repo.List(5, 1)
		require.NoError(t, err)
		require.Empty(t, empty)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repo.Delete("bob@example.com"))
		_, err := repo.GetByEmail("bob@example.com")
		require.ErrorIs(t, err, users.ErrNotFound)
		require.ErrorIs(t, repo.Delete("bob@example.com"), users.ErrNotFound)
	})
}
