package adapters

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cuecards_backend/internal/feature/auth/domain/entity"
	"cuecards_backend/internal/feature/auth/usecase"
)

func TestCredentialsGorm_Create(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCredentialsGorm(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, 1, "hash-1"))

	creds, err := repo.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "hash-1", creds.PasswordHash)
	assert.Nil(t, creds.LastPasswordHash, "a fresh row has no previous hash")
	assert.Equal(t, entity.InitialCredentialVersion, creds.Version)

	err = repo.Create(ctx, 1, "hash-2")
	assert.ErrorIs(t, err, usecase.ErrCredentialsExist)
}

func TestCredentialsGorm_UpdatePassword(t *testing.T) {
	t.Run("bumps version and rotates hashes", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewCredentialsGorm(db)
		ctx := context.Background()
		require.NoError(t, repo.Create(ctx, 7, "first"))

		version, err := repo.UpdatePassword(ctx, 7, "second", "first")
		require.NoError(t, err)
		assert.Equal(t, 2, version)

		version, err = repo.UpdatePassword(ctx, 7, "third", "second")
		require.NoError(t, err)
		assert.Equal(t, 3, version)

		creds, err := repo.Get(ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, "third", creds.PasswordHash)
		require.NotNil(t, creds.LastPasswordHash)
		assert.Equal(t, "second", *creds.LastPasswordHash)
		assert.Equal(t, 3, creds.Version)
	})

	t.Run("inserts when absent", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewCredentialsGorm(db)

		version, err := repo.UpdatePassword(context.Background(), 9, "hash", "")
		require.NoError(t, err)
		assert.Equal(t, entity.InitialCredentialVersion, version)

		creds, err := repo.Get(context.Background(), 9)
		require.NoError(t, err)
		assert.Nil(t, creds.LastPasswordHash)
	})

	t.Run("concurrent updates get distinct versions", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewCredentialsGorm(db)
		ctx := context.Background()
		require.NoError(t, repo.Create(ctx, 3, "initial"))

		const workers = 10
		var (
			wg       sync.WaitGroup
			mu       sync.Mutex
			versions []int
		)
		for range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				v, err := repo.UpdatePassword(ctx, 3, "new", "old")
				assert.NoError(t, err)
				mu.Lock()
				versions = append(versions, v)
				mu.Unlock()
			}()
		}
		wg.Wait()

		sort.Ints(versions)
		expected := make([]int, workers)
		for i := range expected {
			expected[i] = i + 2
		}
		assert.Equal(t, expected, versions, "every update must observe its own increment")

		current, err := repo.GetVersion(ctx, 3)
		require.NoError(t, err)
		assert.Equal(t, workers+1, current)
	})
}

func TestCredentialsGorm_GetVersion(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCredentialsGorm(db)
	ctx := context.Background()

	_, err := repo.GetVersion(ctx, 42)
	assert.ErrorIs(t, err, usecase.ErrCredentialsNotFound)

	_, err = repo.Get(ctx, 42)
	assert.ErrorIs(t, err, usecase.ErrCredentialsNotFound)

	require.NoError(t, repo.Create(ctx, 42, "hash"))
	version, err := repo.GetVersion(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, 1, version)
}

func TestCredentialsGorm_Delete(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCredentialsGorm(db)
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, 5, "hash"))

	require.NoError(t, repo.Delete(ctx, 5))
	_, err := repo.GetVersion(ctx, 5)
	assert.ErrorIs(t, err, usecase.ErrCredentialsNotFound)

	assert.NoError(t, repo.Delete(ctx, 5), "deleting a missing row is not an error")
}
