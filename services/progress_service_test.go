package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProgressService(t *testing.T) (*ProgressService, func() []map[string]interface{}) {
	client, srv := newStore(t)
	seedCourse(srv, 5, 1, 2)
	svc := NewProgressService(client, NewCatalogService(client))
	return svc, func() []map[string]interface{} { return srv.Rows("user_progress") }
}

func TestProgress_EmptyBeforeCompletion(t *testing.T) {
	svc, _ := newProgressService(t)

	progress, err := svc.CourseProgress(context.Background(), "alice@example.com", 5)
	require.NoError(t, err)
	assert.NotNil(t, progress)
	assert.Empty(t, progress)
}

func TestProgress_CompleteThenRead(t *testing.T) {
	svc, _ := newProgressService(t)
	ctx := context.Background()
	svc.now = fixedClock(time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC))

	require.NoError(t, svc.Complete(ctx, ProgressInput{UserEmail: "alice@example.com", LessonID: 50000}))

	progress, err := svc.CourseProgress(ctx, "alice@example.com", 5)
	require.NoError(t, err)
	require.Len(t, progress, 1)
	assert.Equal(t, int64(50000), progress[0].LessonID)
	assert.True(t, progress[0].Completed)
	require.NotNil(t, progress[0].CompletedAt)
	assert.True(t, progress[0].CompletedAt.Equal(time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)))

	other, err := svc.CourseProgress(ctx, "bob@example.com", 5)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestProgress_CompleteUncompleteIdempotent(t *testing.T) {
	svc, rows := newProgressService(t)
	ctx := context.Background()
	in := ProgressInput{UserEmail: "alice@example.com", LessonID: 50001}

	require.NoError(t, svc.Complete(ctx, in))
	require.NoError(t, svc.Complete(ctx, in))
	assert.Len(t, rows(), 1)

	for i := 0; i < 2; i++ {
		require.NoError(t, svc.Uncomplete(ctx, in))
		progress, err := svc.CourseProgress(ctx, "alice@example.com", 5)
		require.NoError(t, err)
		require.Len(t, progress, 1)
		assert.False(t, progress[0].Completed)
		assert.Nil(t, progress[0].CompletedAt)
	}
	assert.Len(t, rows(), 1)
}

func TestProgress_ConcurrentCompletesKeepOneRow(t *testing.T) {
	svc, rows := newProgressService(t)
	in := ProgressInput{UserEmail: "Alice@Example.com", LessonID: 50000}

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- svc.Complete(context.Background(), in)
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	require.Len(t, rows(), 1)
	assert.Equal(t, "alice@example.com", rows()[0]["user_email"])
	progress, err := svc.CourseProgress(context.Background(), "alice@example.com", 5)
	require.NoError(t, err)
	assert.Len(t, progress, 1)
}

func TestProgress_RecompleteAfterUncomplete(t *testing.T) {
	svc, rows := newProgressService(t)
	ctx := context.Background()
	in := ProgressInput{UserEmail: "alice@example.com", LessonID: 50001}

	require.NoError(t, svc.Complete(ctx, in))
	require.NoError(t, svc.Uncomplete(ctx, in))
	require.NoError(t, svc.Complete(ctx, in))

	require.Len(t, rows(), 1)
	assert.Equal(t, true, rows()[0]["completed"])
	assert.NotNil(t, rows()[0]["completed_at"])
}

func TestProgress_UncompleteWithoutRowIsNoop(t *testing.T) {
	svc, rows := newProgressService(t)
	require.NoError(t, svc.Uncomplete(context.Background(), ProgressInput{UserEmail: "alice@example.com", LessonID: 50000}))
	assert.Empty(t, rows())
}

func TestProgress_RequiresFields(t *testing.T) {
	svc, _ := newProgressService(t)
	err := svc.Complete(context.Background(), ProgressInput{LessonID: 1})
	assert.True(t, errors.Is(err, ErrInvalidInput))
	err = svc.Uncomplete(context.Background(), ProgressInput{UserEmail: "a@example.com"})
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestProgress_Completion(t *testing.T) {
	svc, _ := newProgressService(t)
	ctx := context.Background()

	require.NoError(t, svc.Complete(ctx, ProgressInput{UserEmail: "alice@example.com", LessonID: 50000}))
	c, err := svc.Completion(ctx, "alice@example.com", 5)
	require.NoError(t, err)
	assert.Equal(t, Completion{TotalLessons: 2, CompletedLessons: 1, Percentage: 50}, c)

	c, err = svc.Completion(ctx, "alice@example.com", 404)
	require.NoError(t, err)
	assert.Equal(t, 0, c.TotalLessons)
}
