// Package reconcile keeps the ledger in step with the network.
//
// A Loop absorbs the address history once, then follows live transaction
// and block streams. Each stream is supervised by the same reconnect state
// machine: Disconnected, Connecting, Connected and back to Disconnected
// when the stream ends, followed by a backoff delay and another attempt.
// Stream failures are logged and retried until the loop is stopped.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Klingon-tech/slpwallet/internal/dedup"
	"github.com/Klingon-tech/slpwallet/internal/ledger"
	"github.com/Klingon-tech/slpwallet/internal/log"
	"github.com/Klingon-tech/slpwallet/internal/walleterr"
	"github.com/Klingon-tech/slpwallet/pkg/tx"
	"github.com/Klingon-tech/slpwallet/pkg/types"
	"github.com/cenkalti/backoff/v4"
)

// DefaultBackoff is the delay between subscription attempts.
const DefaultBackoff = 500 * time.Millisecond

// TxStream delivers transactions touching the subscribed address.
type TxStream interface {
	Recv() (*tx.Transaction, error)
}

// BlockStream delivers the height of each new block.
type BlockStream interface {
	Recv() (int32, error)
}

// Network is what the loop needs from a node.
type Network interface {
	FetchHistory(ctx context.Context, addr types.Address) (*tx.History, error)
	FetchTransaction(ctx context.Context, txid types.Hash) (*tx.Transaction, error)
	Broadcast(ctx context.Context, raw []byte) (types.Hash, error)
	Subscribe(ctx context.Context, addr types.Address) (TxStream, error)
	SubscribeBlocks(ctx context.Context) (BlockStream, error)
}

// Config configures a Loop.
type Config struct {
	// DedupCapacity bounds the set of recently processed txids.
	DedupCapacity int
	// NewBackoff builds the retry policy of one stream. Defaults to a
	// constant DefaultBackoff.
	NewBackoff func() backoff.BackOff
	// OnUpdate runs after every absorbed batch.
	OnUpdate func()
}

// Loop reconciles a ledger with the network.
type Loop struct {
	net      Network
	ledger   *ledger.Ledger
	seen     *dedup.Cache[types.Hash]
	policy   func() backoff.BackOff
	onUpdate func()

	txState    stateVar
	blockState stateVar
	height     atomic.Int32

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// New creates a loop feeding l from net.
func New(net Network, l *ledger.Ledger, cfg Config) (*Loop, error) {
	capacity := cfg.DedupCapacity
	if capacity == 0 {
		capacity = dedup.DefaultCapacity
	}
	seen, err := dedup.New[types.Hash](capacity)
	if err != nil {
		return nil, err
	}
	policy := cfg.NewBackoff
	if policy == nil {
		policy = func() backoff.BackOff { return backoff.NewConstantBackOff(DefaultBackoff) }
	}
	return &Loop{
		net:      net,
		ledger:   l,
		seen:     seen,
		policy:   policy,
		onUpdate: cfg.OnUpdate,
	}, nil
}

// Start absorbs the address history and starts following the live
// streams. A failed history fetch is returned and nothing is started.
func (l *Loop) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running {
		return errors.New("reconcile loop already running")
	}
	if err := l.loadHistory(ctx); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	l.cancel = cancel
	l.running = true

	l.wg.Add(2)
	go func() {
		defer l.wg.Done()
		l.supervise(runCtx, "transactions", &l.txState, l.followTransactions)
	}()
	go func() {
		defer l.wg.Done()
		l.supervise(runCtx, "blocks", &l.blockState, l.followBlocks)
	}()

	log.Reconcile.Info().Str("address", l.ledger.Address().String()).Msg("Reconcile loop started")
	return nil
}

// Stop cancels both streams and any pending retry, then waits for them
// to exit. The loop ends Disconnected.
func (l *Loop) Stop() {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return
	}
	l.cancel()
	l.running = false
	l.mu.Unlock()

	l.wg.Wait()
	log.Reconcile.Info().Msg("Reconcile loop stopped")
}

// State returns the state of the transaction stream.
func (l *Loop) State() State {
	return l.txState.load()
}

// BlockState returns the state of the block stream.
func (l *Loop) BlockState() State {
	return l.blockState.load()
}

// Height returns the latest block height seen, 0 before the first block.
func (l *Loop) Height() int32 {
	return l.height.Load()
}

// SeenCount returns the number of txids held by the dedup cache.
func (l *Loop) SeenCount() int {
	return l.seen.Len()
}

// Reload clears the ledger and absorbs the address history again.
func (l *Loop) Reload(ctx context.Context) error {
	l.ledger.Reset(l.ledger.Address())
	l.seen.Purge()
	return l.loadHistory(ctx)
}

// Retarget points a stopped loop at a new address. The ledger and the
// dedup cache are cleared; the next Start loads the new history.
func (l *Loop) Retarget(addr types.Address) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running {
		return errors.New("cannot retarget a running reconcile loop")
	}
	l.ledger.Reset(addr)
	l.seen.Purge()
	return nil
}

func (l *Loop) loadHistory(ctx context.Context) error {
	addr := l.ledger.Address()
	hist, err := l.net.FetchHistory(ctx, addr)
	if err != nil {
		return fmt.Errorf("fetch history: %w", err)
	}
	all := hist.All()
	for _, t := range all {
		if t != nil {
			l.seen.Insert(t.Hash)
		}
	}
	stats := l.ledger.Absorb(ctx, all)
	log.Reconcile.Info().
		Int("confirmed", len(hist.Confirmed)).
		Int("unconfirmed", len(hist.Unconfirmed)).
		Int("skipped", stats.Skipped).
		Msg("Loaded address history")
	l.notify()
	return nil
}

// Process absorbs a single transaction unless it was already processed.
// It reports whether the transaction was new.
func (l *Loop) Process(ctx context.Context, t *tx.Transaction) bool {
	if t == nil || l.seen.Seen(t.Hash) {
		return false
	}
	l.ledger.Absorb(ctx, []*tx.Transaction{t})
	log.Reconcile.Debug().Str("tx", t.Hash.String()).Msg("Absorbed transaction")
	l.notify()
	return true
}

// Broadcast submits a signed transaction and absorbs it right away, so the
// ledger reflects the spend before the live notification arrives. A failed
// echo fetch is logged; the live stream will deliver the transaction.
func (l *Loop) Broadcast(ctx context.Context, raw []byte) (types.Hash, error) {
	txid, err := l.net.Broadcast(ctx, raw)
	if err != nil {
		return types.Hash{}, fmt.Errorf("broadcast: %w", err)
	}
	t, err := l.net.FetchTransaction(ctx, txid)
	if err != nil {
		log.Reconcile.Warn().Err(err).Str("tx", txid.String()).Msg("Echo fetch failed")
		return txid, nil
	}
	l.Process(ctx, t)
	return txid, nil
}

func (l *Loop) notify() {
	if l.onUpdate != nil {
		l.onUpdate()
	}
}

// supervise runs follow until ctx is cancelled, waiting out the backoff
// policy between attempts. follow calls connected once its stream is up.
func (l *Loop) supervise(ctx context.Context, name string, st *stateVar, follow func(ctx context.Context, connected func()) error) {
	policy := l.policy()
	for {
		st.set(StateConnecting)
		err := follow(ctx, func() {
			st.set(StateConnected)
			policy.Reset()
			log.Reconcile.Debug().Str("stream", name).Msg("Subscribed")
		})
		st.set(StateDisconnected)
		if ctx.Err() != nil {
			return
		}

		delay := policy.NextBackOff()
		if delay == backoff.Stop {
			delay = DefaultBackoff
		}
		log.Reconcile.Warn().
			Err(walleterr.Wrap(walleterr.KindTransientNetwork, name, err)).
			Dur("retry_in", delay).
			Msg("Subscription ended")

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

func (l *Loop) followTransactions(ctx context.Context, connected func()) error {
	stream, err := l.net.Subscribe(ctx, l.ledger.Address())
	if err != nil {
		return err
	}
	connected()
	for {
		t, err := stream.Recv()
		if err != nil {
			return err
		}
		l.Process(ctx, t)
	}
}

func (l *Loop) followBlocks(ctx context.Context, connected func()) error {
	stream, err := l.net.SubscribeBlocks(ctx)
	if err != nil {
		return err
	}
	connected()
	for {
		h, err := stream.Recv()
		if err != nil {
			return err
		}
		if h > l.height.Load() {
			l.height.Store(h)
		}
		log.Reconcile.Trace().Int32("height", h).Msg("New block")
	}
}
