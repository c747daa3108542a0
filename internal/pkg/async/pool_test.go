package async_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkfolio/internal/pkg/async"
)

func TestPoolExecutesAllTasks(t *testing.T) {
	tasks := []async.Task{
		{Name: "a", Execute: func() (interface{}, error) { return int64(1), nil }},
		{Name: "b", Execute: func() (interface{}, error) { return int64(2), nil }},
		{Name: "c", Execute: func() (interface{}, error) { return nil, errors.New("query failed") }},
	}

	results := async.NewPool(2).Execute(context.Background(), tasks)

	require.Len(t, results, 3)
	assert.Equal(t, int64(1), results["a"].Data)
	assert.Equal(t, int64(2), results["b"].Data)
	assert.Error(t, results["c"].Err)
}

func TestPoolReturnsAfterCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	release := make(chan struct{})
	tasks := []async.Task{
		{Name: "blocked", Execute: func() (interface{}, error) {
			<-release
			return int64(1), nil
		}},
		{Name: "queued", Execute: func() (interface{}, error) { return int64(2), nil }},
	}

	done := make(chan map[string]async.Result, 1)
	go func() {
		done <- async.NewPool(1).Execute(ctx, tasks)
	}()

	cancel()

	select {
	case results := <-done:
		_, completed := results["blocked"]
		assert.False(t, completed, "a still-running task must not appear in the results")
	case <-time.After(5 * time.Second):
		t.Fatal("Execute did not return after cancellation")
	}

	close(release)
}
