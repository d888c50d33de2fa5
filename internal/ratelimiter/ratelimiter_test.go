package ratelimiter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaitAllowsFirstCallImmediately(t *testing.T) {
	hl := New(1, 1, time.Minute)
	defer hl.Close()

	start := time.Now()
	err := hl.Wait(context.Background(), "example.com")
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestWaitThrottlesSecondCallToSameHost(t *testing.T) {
	hl := New(5, 1, time.Minute)
	defer hl.Close()

	ctx := context.Background()
	require.NoError(t, hl.Wait(ctx, "example.com"))
	start := time.Now()
	require.NoError(t, hl.Wait(ctx, "example.com"))
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
}

func TestWaitDoesNotThrottleAcrossDistinctHosts(t *testing.T) {
	hl := New(1, 1, time.Minute)
	defer hl.Close()

	ctx := context.Background()
	require.NoError(t, hl.Wait(ctx, "a.example.com"))
	start := time.Now()
	require.NoError(t, hl.Wait(ctx, "b.example.com"))
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestWaitRespectsContextCancellation(t *testing.T) {
	hl := New(0.5, 1, time.Minute)
	defer hl.Close()

	ctx := context.Background()
	require.NoError(t, hl.Wait(ctx, "slow.example.com"))

	cctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := hl.Wait(cctx, "slow.example.com")
	assert.Error(t, err)
}

func TestBucketForReusesExistingBucket(t *testing.T) {
	hl := New(1, 1, time.Minute)
	defer hl.Close()

	hl.bucketFor("example.com")
	hl.bucketFor("example.com")
	assert.Equal(t, 1, hl.Len())
}

func TestEvictIdleRemovesStaleBuckets(t *testing.T) {
	hl := New(1, 1, time.Millisecond)
	defer hl.Close()

	hl.bucketFor("example.com")
	require.Equal(t, 1, hl.Len())
	time.Sleep(5 * time.Millisecond)
	hl.evictIdle()
	assert.Equal(t, 0, hl.Len())
}
