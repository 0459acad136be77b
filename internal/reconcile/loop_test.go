package reconcile

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Klingon-tech/slpwallet/internal/ledger"
	"github.com/Klingon-tech/slpwallet/pkg/tx"
	"github.com/Klingon-tech/slpwallet/pkg/types"
	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testAddr = types.Address{Type: types.AddressP2PKH, Hash: [20]byte{0x11, 0x22}}

func payment(b byte, value uint64) *tx.Transaction {
	return &tx.Transaction{
		Hash:    types.Hash{0xAB, b},
		Outputs: []tx.Output{{Index: 0, Value: value, Address: testAddr.Short()}},
	}
}

type chanStream struct {
	ctx context.Context
	ch  chan *tx.Transaction
}

func (s *chanStream) Recv() (*tx.Transaction, error) {
	select {
	case <-s.ctx.Done():
		return nil, s.ctx.Err()
	case t, ok := <-s.ch:
		if !ok {
			return nil, io.EOF
		}
		return t, nil
	}
}

type blockStream struct {
	ctx context.Context
	ch  chan int32
}

func (s *blockStream) Recv() (int32, error) {
	select {
	case <-s.ctx.Done():
		return 0, s.ctx.Err()
	case h, ok := <-s.ch:
		if !ok {
			return 0, io.EOF
		}
		return h, nil
	}
}

type fakeNet struct {
	mu         sync.Mutex
	history    *tx.History
	historyErr error
	txs        map[types.Hash]*tx.Transaction
	fetchErr   error
	broadcast  types.Hash

	subscribeFailures int
	subscribes        atomic.Int32
	live              chan *tx.Transaction
	blocks            chan int32
}

func newFakeNet(history ...*tx.Transaction) *fakeNet {
	return &fakeNet{
		history: &tx.History{Confirmed: history},
		txs:     make(map[types.Hash]*tx.Transaction),
		live:    make(chan *tx.Transaction),
		blocks:  make(chan int32),
	}
}

func (n *fakeNet) FetchHistory(context.Context, types.Address) (*tx.History, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.history, n.historyErr
}

func (n *fakeNet) FetchTransaction(_ context.Context, txid types.Hash) (*tx.Transaction, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fetchErr != nil {
		return nil, n.fetchErr
	}
	t, ok := n.txs[txid]
	if !ok {
		return nil, errors.New("not found")
	}
	return t, nil
}

func (n *fakeNet) Broadcast(context.Context, []byte) (types.Hash, error) {
	return n.broadcast, nil
}

func (n *fakeNet) Subscribe(ctx context.Context, _ types.Address) (TxStream, error) {
	count := n.subscribes.Add(1)
	n.mu.Lock()
	fail := int(count) <= n.subscribeFailures
	live := n.live
	n.mu.Unlock()
	if fail {
		return nil, errors.New("connection refused")
	}
	return &chanStream{ctx: ctx, ch: live}, nil
}

func (n *fakeNet) SubscribeBlocks(ctx context.Context) (BlockStream, error) {
	return &blockStream{ctx: ctx, ch: n.blocks}, nil
}

// dropLive ends the current transaction stream and prepares a new one.
func (n *fakeNet) dropLive() {
	n.mu.Lock()
	defer n.mu.Unlock()
	close(n.live)
	n.live = make(chan *tx.Transaction)
}

func fastBackoff() backoff.BackOff {
	return backoff.NewConstantBackOff(time.Millisecond)
}

func newLoop(t *testing.T, net *fakeNet, updates *atomic.Int32) (*Loop, *ledger.Ledger) {
	t.Helper()
	l := ledger.New(testAddr, nil)
	loop, err := New(net, l, Config{
		DedupCapacity: 16,
		NewBackoff:    fastBackoff,
		OnUpdate:      func() { updates.Add(1) },
	})
	require.NoError(t, err)
	return loop, l
}

func waitConnected(t *testing.T, loop *Loop) {
	t.Helper()
	require.Eventually(t, func() bool { return loop.State() == StateConnected }, time.Second, time.Millisecond)
}

func TestLoop_StartLoadsHistory(t *testing.T) {
	net := newFakeNet(payment(1, 5000), payment(2, 7000))
	var updates atomic.Int32
	loop, l := newLoop(t, net, &updates)

	require.NoError(t, loop.Start(context.Background()))
	defer loop.Stop()

	assert.Equal(t, int64(12000), l.BaseBalance())
	assert.Equal(t, int32(1), updates.Load())
	assert.Equal(t, 2, loop.SeenCount())
	waitConnected(t, loop)
}

func TestLoop_StartFailsOnHistoryError(t *testing.T) {
	net := newFakeNet()
	net.historyErr = errors.New("slp index disabled")
	var updates atomic.Int32
	loop, _ := newLoop(t, net, &updates)

	require.Error(t, loop.Start(context.Background()))
	assert.Equal(t, StateDisconnected, loop.State())
	loop.Stop()
}

func TestLoop_LiveTransactionsDeduplicated(t *testing.T) {
	net := newFakeNet()
	var updates atomic.Int32
	loop, l := newLoop(t, net, &updates)
	require.NoError(t, loop.Start(context.Background()))
	defer loop.Stop()
	waitConnected(t, loop)

	net.live <- payment(1, 1000)
	net.live <- payment(1, 1000)
	net.live <- payment(2, 2000)

	require.Eventually(t, func() bool { return l.BaseBalance() == 3000 }, time.Second, time.Millisecond)
	require.Eventually(t, func() bool { return updates.Load() == 3 }, time.Second, time.Millisecond)
	assert.Equal(t, 2, loop.SeenCount())
}

func TestLoop_ReconnectsAfterStreamEnds(t *testing.T) {
	net := newFakeNet()
	var updates atomic.Int32
	loop, l := newLoop(t, net, &updates)
	require.NoError(t, loop.Start(context.Background()))
	defer loop.Stop()
	waitConnected(t, loop)

	net.dropLive()
	require.Eventually(t, func() bool { return net.subscribes.Load() >= 2 }, time.Second, time.Millisecond)
	waitConnected(t, loop)

	net.mu.Lock()
	live := net.live
	net.mu.Unlock()
	live <- payment(3, 3000)
	require.Eventually(t, func() bool { return l.BaseBalance() == 3000 }, time.Second, time.Millisecond)
}

func TestLoop_RetriesFailedSubscribe(t *testing.T) {
	net := newFakeNet()
	net.subscribeFailures = 3
	var updates atomic.Int32
	loop, _ := newLoop(t, net, &updates)
	require.NoError(t, loop.Start(context.Background()))
	defer loop.Stop()

	waitConnected(t, loop)
	assert.Equal(t, int32(4), net.subscribes.Load())
}

func TestLoop_StopCancelsPendingRetry(t *testing.T) {
	net := newFakeNet()
	net.subscribeFailures = 1 << 30
	l := ledger.New(testAddr, nil)
	loop, err := New(net, l, Config{
		NewBackoff: func() backoff.BackOff { return backoff.NewConstantBackOff(time.Hour) },
	})
	require.NoError(t, err)
	require.NoError(t, loop.Start(context.Background()))
	require.Eventually(t, func() bool { return net.subscribes.Load() >= 1 }, time.Second, time.Millisecond)

	done := make(chan struct{})
	go func() {
		loop.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not interrupt the backoff wait")
	}
	assert.Equal(t, StateDisconnected, loop.State())
	assert.Equal(t, int32(1), net.subscribes.Load())
}

func TestLoop_BroadcastEchoes(t *testing.T) {
	net := newFakeNet()
	sent := payment(9, 4000)
	net.broadcast = sent.Hash
	net.txs[sent.Hash] = sent
	var updates atomic.Int32
	loop, l := newLoop(t, net, &updates)
	require.NoError(t, loop.Start(context.Background()))
	defer loop.Stop()
	waitConnected(t, loop)

	txid, err := loop.Broadcast(context.Background(), []byte{0x01})
	require.NoError(t, err)
	assert.Equal(t, sent.Hash, txid)
	assert.Equal(t, int64(4000), l.BaseBalance())
	assert.Equal(t, int32(2), updates.Load())

	// The live notification for the same transaction is a no-op.
	net.live <- sent
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, int32(2), updates.Load())
}

func TestLoop_BroadcastEchoFailureIsNotFatal(t *testing.T) {
	net := newFakeNet()
	net.broadcast = types.Hash{0x42}
	net.fetchErr = errors.New("timeout")
	var updates atomic.Int32
	loop, _ := newLoop(t, net, &updates)

	txid, err := loop.Broadcast(context.Background(), []byte{0x01})
	require.NoError(t, err)
	assert.Equal(t, types.Hash{0x42}, txid)
}

func TestLoop_TracksHeight(t *testing.T) {
	net := newFakeNet()
	var updates atomic.Int32
	loop, _ := newLoop(t, net, &updates)
	require.NoError(t, loop.Start(context.Background()))
	defer loop.Stop()

	net.blocks <- 800000
	net.blocks <- 800001
	require.Eventually(t, func() bool { return loop.Height() == 800001 }, time.Second, time.Millisecond)
	assert.Equal(t, StateConnected, loop.BlockState())
}

func TestLoop_Reload(t *testing.T) {
	net := newFakeNet(payment(1, 5000))
	var updates atomic.Int32
	loop, l := newLoop(t, net, &updates)
	require.NoError(t, loop.Start(context.Background()))
	defer loop.Stop()

	net.mu.Lock()
	net.history = &tx.History{
		Confirmed:   []*tx.Transaction{payment(1, 5000)},
		Unconfirmed: []*tx.Transaction{payment(2, 600)},
	}
	net.mu.Unlock()

	require.NoError(t, loop.Reload(context.Background()))
	assert.Equal(t, int64(5600), l.BaseBalance())
	assert.Equal(t, 2, loop.SeenCount())
}

func TestNew_RejectsNegativeCapacity(t *testing.T) {
	_, err := New(newFakeNet(), ledger.New(testAddr, nil), Config{DedupCapacity: -1})
	assert.Error(t, err)
}

func TestLoop_Retarget(t *testing.T) {
	net := newFakeNet(payment(1, 5000))
	var updates atomic.Int32
	loop, l := newLoop(t, net, &updates)
	require.NoError(t, loop.Start(context.Background()))

	assert.Error(t, loop.Retarget(testAddr), "running loop cannot be retargeted")

	loop.Stop()
	other := types.Address{Type: types.AddressP2PKH, Hash: [20]byte{0x33}}
	require.NoError(t, loop.Retarget(other))
	assert.Equal(t, other, l.Address())
	assert.Equal(t, int64(0), l.BaseBalance())
	assert.Equal(t, 0, loop.SeenCount())
}
