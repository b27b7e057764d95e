package queue

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestClient creates a miniredis instance and returns a connected RedisClient.
func setupTestClient(t *testing.T) (*RedisClient, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client, err := NewRedisClient(RedisOptions{
		URL:            fmt.Sprintf("redis://%s", mr.Addr()),
		ConnectTimeout: 5 * time.Second,
		ReadTimeout:    5 * time.Second,
		WriteTimeout:   5 * time.Second,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = client.Close()
	})
	return client, mr
}

func testJob(id string, index, total int) ImportJob {
	return ImportJob{
		JobID:       id,
		Index:       index,
		Total:       total,
		Path:        fmt.Sprintf("/exports/%d.json", index),
		SubmittedAt: time.Now().UnixMilli(),
	}
}

func TestNewRedisClient(t *testing.T) {
	t.Run("successful connection", func(t *testing.T) {
		mr := miniredis.RunT(t)
		client, err := NewRedisClient(RedisOptions{URL: fmt.Sprintf("redis://%s", mr.Addr())})
		require.NoError(t, err)
		require.NotNil(t, client)
		defer client.Close()
	})

	t.Run("connection failure", func(t *testing.T) {
		_, err := NewRedisClient(RedisOptions{
			URL:            "redis://localhost:99999",
			ConnectTimeout: 100 * time.Millisecond,
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to connect to Redis")
	})

	t.Run("invalid URL", func(t *testing.T) {
		_, err := NewRedisClient(RedisOptions{URL: "invalid://url"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse Redis URL")
	})
}

func TestPushPop(t *testing.T) {
	t.Run("FIFO order", func(t *testing.T) {
		client, _ := setupTestClient(t)
		ctx := context.Background()

		for i := 0; i < 3; i++ {
			require.NoError(t, client.Push(ctx, "test-queue", testJob("job-1", i, 3)))
		}
		n, err := client.Len(ctx, "test-queue")
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)

		for i := 0; i < 3; i++ {
			job, err := client.Pop(ctx, "test-queue", time.Second)
			require.NoError(t, err)
			require.NotNil(t, job)
			assert.Equal(t, i, job.Index)
			assert.Equal(t, fmt.Sprintf("/exports/%d.json", i), job.Path)
		}
	})

	t.Run("timeout on empty queue", func(t *testing.T) {
		client, _ := setupTestClient(t)
		job, err := client.Pop(context.Background(), "empty", time.Second)
		require.NoError(t, err)
		assert.Nil(t, job)
	})

	t.Run("malformed job", func(t *testing.T) {
		client, mr := setupTestClient(t)
		_, err := mr.Lpush("bad", "not json")
		require.NoError(t, err)
		_, err = client.Pop(context.Background(), "bad", time.Second)
		assert.ErrorContains(t, err, "failed to unmarshal import job")
	})
}

func TestPublishSubscribe(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	channel := ResultChannel("job-1")
	results, err := client.Subscribe(ctx, channel)
	require.NoError(t, err)

	sent := JobResult{JobID: "job-1", Index: 2, Path: "/a.json", Success: true, TotalNodes: 7, WorkerID: "w"}
	require.NoError(t, client.Publish(ctx, channel, sent))

	select {
	case got := <-results:
		assert.Equal(t, sent, got)
	case <-ctx.Done():
		t.Fatal("no result received")
	}

	cancel()
	assert.Eventually(t, func() bool {
		_, open := <-results
		return !open
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWorkerBookkeeping(t *testing.T) {
	client, mr := setupTestClient(t)
	ctx := context.Background()

	n, err := client.WorkerCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	require.NoError(t, client.IncrementWorkerCount(ctx))
	require.NoError(t, client.IncrementWorkerCount(ctx))
	require.NoError(t, client.DecrementWorkerCount(ctx))
	n, err = client.WorkerCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, client.Heartbeat(ctx, "w1", 30*time.Second))
	assert.True(t, mr.Exists("binxgraph:worker:w1:health"))
	mr.FastForward(31 * time.Second)
	assert.False(t, mr.Exists("binxgraph:worker:w1:health"))
}
