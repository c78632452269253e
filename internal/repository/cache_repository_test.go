package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	appErrors "github.com/noah-isme/sma-exam-results/pkg/errors"
)

func TestCacheRepositoryWithoutClient(t *testing.T) {
	repo := NewCacheRepository(nil, "", nil)
	ctx := context.Background()

	var dest map[string]string
	assert.ErrorIs(t, repo.Get(ctx, "results:exam-1:all:", &dest), appErrors.ErrCacheMiss)
	assert.NoError(t, repo.Set(ctx, "results:exam-1:all:", map[string]string{"a": "b"}, time.Minute))
	assert.NoError(t, repo.DeleteByPattern(ctx, "results:exam-1:*"))
}

func TestCacheRepositoryNamespacesKeys(t *testing.T) {
	assert.Equal(t, "results:exam-1:*", NewCacheRepository(nil, "", nil).key("results:exam-1:*"))
	assert.Equal(t, "exam-results:results:exam-1:*", NewCacheRepository(nil, "exam-results", nil).key("results:exam-1:*"))
}

func TestEventRepositoryWithoutClient(t *testing.T) {
	repo := NewEventRepository(nil, "results.publication")
	_, err := repo.Publish(context.Background(), map[string]int{"affected_students": 3})
	assert.Error(t, err)
}
