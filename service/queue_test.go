package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vote-ledger/blockchain/evb"
	"vote-ledger/config"
)

func TestQueueSubmit(t *testing.T) {
	vs := newService(t)
	qp := NewQueueProcessor(vs, 10, 0)
	qp.Start()
	defer qp.Stop()

	receipt, err := qp.Submit(context.Background(), voter(1), vote("alice"))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), receipt.BlockIndex)

	receipt, err = qp.SubmitEncrypted(context.Background(), voter(2), "RSA2048:opaque")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), receipt.BlockIndex)

	_, err = qp.Submit(context.Background(), "bad", vote("alice"))
	assert.ErrorIs(t, err, ErrInvalidVoterHash)
}

func TestQueueConcurrentSubmitters(t *testing.T) {
	vs := newService(t)
	qp := NewQueueProcessor(vs, 64, 0)
	qp.Start()
	defer qp.Stop()

	const n = 20
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := qp.Submit(context.Background(), voter(i), vote("alice"))
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}

	chain := vs.Chain()
	require.Len(t, chain, n+1)
	assert.True(t, evb.ValidateChain(chain).IsValid)
}

func TestQueueFullRejects(t *testing.T) {
	vs := newService(t)
	qp := NewQueueProcessor(vs, 1, 0) // not started, nothing drains

	first := qp.QueueVote(context.Background(), voter(1), vote("alice"))
	second := qp.QueueVote(context.Background(), voter(2), vote("bob"))

	res := <-second
	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err, ErrQueueFull)
	assert.Equal(t, ErrQueueFull.Error(), res.ErrorMessage)

	qp.Stop()
	res = <-first
	assert.ErrorIs(t, res.Err, ErrQueueStopped)

	res = <-qp.QueueVote(context.Background(), voter(3), vote("carol"))
	assert.ErrorIs(t, res.Err, ErrQueueStopped)

	qp.Stop()
}

func TestQueueSkipsCancelledRequests(t *testing.T) {
	vs := newService(t)
	qp := NewQueueProcessor(vs, 4, 0)

	ctx, cancel := context.WithCancel(context.Background())
	ch := qp.QueueVote(ctx, voter(1), vote("alice"))
	cancel()

	qp.Start()
	defer qp.Stop()

	res := <-ch
	assert.ErrorIs(t, res.Err, context.Canceled)
	assert.Equal(t, 0, vs.Statistics().TotalBlocks)
}

func TestQueueStopCancelsMining(t *testing.T) {
	vs := newService(t, func(c *config.Config) { c.Difficulty = 64 })
	qp := NewQueueProcessor(vs, 4, 0)
	qp.Start()

	ch := qp.QueueVote(context.Background(), voter(1), vote("alice"))
	qp.Stop()

	res := <-ch
	assert.False(t, res.Success)
	assert.Error(t, res.Err)
}
