// Package ledger tracks the coins of a single address.
//
// The ledger keeps two double-entry books per asset: outputs received by
// the address and outputs the address has spent. A coin is spendable when
// it has been received and not spent; a balance is received minus spent.
// Both books are keyed by outpoint, so absorbing a transaction twice
// changes nothing.
package ledger

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/Klingon-tech/slpwallet/internal/log"
	"github.com/Klingon-tech/slpwallet/internal/token"
	"github.com/Klingon-tech/slpwallet/internal/walleterr"
	"github.com/Klingon-tech/slpwallet/pkg/tx"
	"github.com/Klingon-tech/slpwallet/pkg/types"
	"github.com/shopspring/decimal"
)

// Stats summarizes one Absorb call.
type Stats struct {
	Transactions int
	Received     int
	Spent        int
	Skipped      int
	NewTokens    int
}

// Ledger is the single-writer coin ledger. Absorb calls are serialized;
// readers always receive copies.
type Ledger struct {
	// absorbMu serializes writers across the metadata fetch.
	absorbMu sync.Mutex

	mu      sync.RWMutex
	address types.Address
	fetcher token.Fetcher

	baseIn   map[types.OutpointKey]BaseCoin
	baseOut  map[types.OutpointKey]BaseCoin
	tokenIn  map[types.TokenID]map[types.OutpointKey]TokenCoin
	tokenOut map[types.TokenID]map[types.OutpointKey]TokenCoin

	// tokenCoins remembers every token coin ever observed, spent or not.
	tokenCoins map[types.OutpointKey]TokenCoin
	metadata   map[types.TokenID]*token.Metadata
	seq        uint64
}

// New creates an empty ledger for address. fetcher may be nil, in which
// case token metadata is never resolved.
func New(address types.Address, fetcher token.Fetcher) *Ledger {
	l := &Ledger{
		address:    address,
		fetcher:    fetcher,
		tokenCoins: make(map[types.OutpointKey]TokenCoin),
		metadata:   make(map[types.TokenID]*token.Metadata),
	}
	l.resetBooks()
	return l
}

func (l *Ledger) resetBooks() {
	l.baseIn = make(map[types.OutpointKey]BaseCoin)
	l.baseOut = make(map[types.OutpointKey]BaseCoin)
	l.tokenIn = make(map[types.TokenID]map[types.OutpointKey]TokenCoin)
	l.tokenOut = make(map[types.TokenID]map[types.OutpointKey]TokenCoin)
}

// Address returns the tracked address.
func (l *Ledger) Address() types.Address {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.address
}

// Reset clears both books, optionally switching the tracked address.
// Token metadata and the token coin lookup survive.
func (l *Ledger) Reset(address types.Address) {
	l.absorbMu.Lock()
	defer l.absorbMu.Unlock()
	l.mu.Lock()
	defer l.mu.Unlock()
	l.address = address
	l.resetBooks()
}

// Absorb records every input and output of txs that touches the tracked
// address, then resolves metadata for tokens seen for the first time.
// Malformed inputs and outputs are skipped one by one. A failed metadata
// fetch is logged and leaves the token tracked without metadata.
func (l *Ledger) Absorb(ctx context.Context, txs []*tx.Transaction) Stats {
	l.absorbMu.Lock()
	defer l.absorbMu.Unlock()

	stats, tokenIDs := l.record(txs)

	var missing []types.TokenID
	l.mu.RLock()
	for _, id := range tokenIDs {
		if _, ok := l.metadata[id]; !ok {
			missing = append(missing, id)
		}
	}
	l.mu.RUnlock()
	stats.NewTokens = len(missing)

	if len(missing) > 0 && l.fetcher != nil {
		l.backfillMetadata(ctx, missing)
	}

	log.Ledger.Debug().
		Int("txs", stats.Transactions).
		Int("received", stats.Received).
		Int("spent", stats.Spent).
		Int("skipped", stats.Skipped).
		Int("new_tokens", stats.NewTokens).
		Msg("Absorbed transactions")
	return stats
}

// record applies txs to the books and returns the token IDs it touched in
// first-seen order.
func (l *Ledger) record(txs []*tx.Transaction) (Stats, []types.TokenID) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var stats Stats
	var tokenIDs []types.TokenID
	seen := make(map[types.TokenID]bool)
	noteToken := func(id types.TokenID) {
		if !seen[id] {
			seen[id] = true
			tokenIDs = append(tokenIDs, id)
		}
	}

	for _, t := range txs {
		if t == nil {
			continue
		}
		if err := t.Validate(); err != nil {
			stats.Skipped++
			logSkip(t.Hash, "transaction", 0, err)
			continue
		}
		stats.Transactions++

		for i := range t.Inputs {
			in := &t.Inputs[i]
			if !l.address.Matches(in.Address) {
				continue
			}
			if err := in.Validate(); err != nil {
				stats.Skipped++
				logSkip(t.Hash, "input", in.Index, err)
				continue
			}
			key := in.PrevOut.Key()
			if in.Token != nil {
				coin := l.tokenCoin(in.PrevOut, in.Value, in.Address, in.Token)
				b := book(l.tokenIn, in.Token.ID)
				b[key] = l.keepSeq(b, key, coin)
				l.noteTokenCoin(key, coin)
				noteToken(in.Token.ID)
			} else {
				coin := BaseCoin{Outpoint: in.PrevOut, Amount: in.Value, Address: in.Address}
				l.baseIn[key] = l.keepBaseSeq(l.baseIn, key, coin)
			}
			stats.Spent++
		}

		for i := range t.Outputs {
			out := &t.Outputs[i]
			if out.Address == "" || !l.address.Matches(out.Address) {
				continue
			}
			if err := out.Validate(); err != nil {
				stats.Skipped++
				logSkip(t.Hash, "output", out.Index, err)
				continue
			}
			op := t.Outpoint(*out)
			key := op.Key()
			if out.Token != nil {
				coin := l.tokenCoin(op, out.Value, out.Address, out.Token)
				b := book(l.tokenOut, out.Token.ID)
				b[key] = l.keepSeq(b, key, coin)
				l.noteTokenCoin(key, coin)
				noteToken(out.Token.ID)
			} else {
				coin := BaseCoin{Outpoint: op, Amount: out.Value, Address: out.Address}
				l.baseOut[key] = l.keepBaseSeq(l.baseOut, key, coin)
			}
			stats.Received++
		}
	}
	return stats, tokenIDs
}

func (l *Ledger) tokenCoin(op types.Outpoint, dust uint64, addr string, td *types.TokenData) TokenCoin {
	return TokenCoin{
		Outpoint:  op,
		TokenID:   td.ID,
		Amount:    token.FromBaseUnits(td.Amount),
		Address:   addr,
		Dust:      dust,
		MintBaton: td.MintBaton,
	}
}

// keepSeq stamps coin with the sequence number of an existing entry for
// key, or a fresh one. Re-recording a coin keeps its original position.
func (l *Ledger) keepSeq(m map[types.OutpointKey]TokenCoin, key types.OutpointKey, coin TokenCoin) TokenCoin {
	if prev, ok := m[key]; ok {
		coin.seq = prev.seq
		return coin
	}
	l.seq++
	coin.seq = l.seq
	return coin
}

func (l *Ledger) keepBaseSeq(m map[types.OutpointKey]BaseCoin, key types.OutpointKey, coin BaseCoin) BaseCoin {
	if prev, ok := m[key]; ok {
		coin.seq = prev.seq
		return coin
	}
	l.seq++
	coin.seq = l.seq
	return coin
}

func (l *Ledger) noteTokenCoin(key types.OutpointKey, coin TokenCoin) {
	if _, ok := l.tokenCoins[key]; !ok {
		l.tokenCoins[key] = coin
	}
}

func book(m map[types.TokenID]map[types.OutpointKey]TokenCoin, id types.TokenID) map[types.OutpointKey]TokenCoin {
	b, ok := m[id]
	if !ok {
		b = make(map[types.OutpointKey]TokenCoin)
		m[id] = b
	}
	return b
}

func logSkip(txid types.Hash, what string, index uint32, err error) {
	err = walleterr.Wrap(walleterr.KindMalformedTransaction, "absorb", err)
	log.Ledger.Warn().
		Err(err).
		Str("tx", txid.String()).
		Str("entry", what).
		Uint32("index", index).
		Msg("Skipping malformed entry")
}

func (l *Ledger) backfillMetadata(ctx context.Context, ids []types.TokenID) {
	fetched, err := l.fetcher.FetchTokenMetadata(ctx, ids)
	if err != nil {
		log.Ledger.Warn().Err(err).Int("tokens", len(ids)).Msg("Token metadata fetch failed")
	}
	if len(fetched) == 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for id, meta := range fetched {
		if meta == nil {
			continue
		}
		if !meta.Kind().Valid() {
			log.Ledger.Warn().Str("token", id.String()).Msg("Token has an unrecognized type")
		}
		l.metadata[id] = meta
	}
}

// SpendableBaseCoins returns the received base coins not yet spent.
func (l *Ledger) SpendableBaseCoins() map[types.OutpointKey]BaseCoin {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[types.OutpointKey]BaseCoin, len(l.baseOut))
	for k, c := range l.baseOut {
		if _, spent := l.baseIn[k]; !spent {
			out[k] = c
		}
	}
	return out
}

// SpendableTokenCoins returns the received coins of one token not yet spent.
func (l *Ledger) SpendableTokenCoins(id types.TokenID) map[types.OutpointKey]TokenCoin {
	l.mu.RLock()
	defer l.mu.RUnlock()
	spent := l.tokenIn[id]
	out := make(map[types.OutpointKey]TokenCoin, len(l.tokenOut[id]))
	for k, c := range l.tokenOut[id] {
		if _, ok := spent[k]; !ok {
			out[k] = c
		}
	}
	return out
}

// BaseBalance returns received minus spent base value. It goes negative
// only when spends were absorbed without the outputs they consume.
func (l *Ledger) BaseBalance() int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var bal int64
	for _, c := range l.baseOut {
		bal += int64(c.Amount)
	}
	for _, c := range l.baseIn {
		bal -= int64(c.Amount)
	}
	return bal
}

// TokenBalances returns received minus spent base units per token.
func (l *Ledger) TokenBalances() map[types.TokenID]decimal.Decimal {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[types.TokenID]decimal.Decimal)
	for id, coins := range l.tokenIn {
		bal := decimal.Zero
		for _, c := range coins {
			bal = bal.Sub(c.Amount)
		}
		out[id] = bal
	}
	for id, coins := range l.tokenOut {
		bal := out[id]
		for _, c := range coins {
			bal = bal.Add(c.Amount)
		}
		out[id] = bal
	}
	return out
}

// TokenCoin looks up any token coin the ledger has observed, including
// coins already spent.
func (l *Ledger) TokenCoin(key types.OutpointKey) (TokenCoin, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	c, ok := l.tokenCoins[key]
	return c, ok
}

// Metadata returns the resolved metadata for a token.
func (l *Ledger) Metadata(id types.TokenID) (*token.Metadata, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	m, ok := l.metadata[id]
	if !ok {
		return nil, false
	}
	cp := *m
	return &cp, true
}

// Resolve returns the metadata for a token, fetching and caching it when
// the ledger has none. A token the fetcher does not know is an
// UnknownTokenType error.
func (l *Ledger) Resolve(ctx context.Context, id types.TokenID) (*token.Metadata, error) {
	if meta, ok := l.Metadata(id); ok {
		return meta, nil
	}
	if l.fetcher == nil {
		return nil, walleterr.New(walleterr.KindUnknownTokenType, "resolve metadata", "token %s", id)
	}
	fetched, err := l.fetcher.FetchTokenMetadata(ctx, []types.TokenID{id})
	if err != nil {
		return nil, fmt.Errorf("resolve metadata: %w", err)
	}
	meta := fetched[id]
	if meta == nil {
		return nil, walleterr.New(walleterr.KindUnknownTokenType, "resolve metadata", "token %s not found", id)
	}

	l.mu.Lock()
	l.metadata[id] = meta
	l.mu.Unlock()
	log.Ledger.Debug().Str("token", id.String()).Str("ticker", meta.Ticker()).Msg("Resolved token metadata")

	cp := *meta
	return &cp, nil
}

// TokenIDs returns every token the ledger has books for, sorted by ID.
func (l *Ledger) TokenIDs() []types.TokenID {
	l.mu.RLock()
	defer l.mu.RUnlock()
	seen := make(map[types.TokenID]bool)
	var ids []types.TokenID
	for id := range l.tokenOut {
		seen[id] = true
		ids = append(ids, id)
	}
	for id := range l.tokenIn {
		if !seen[id] {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool {
		return bytes.Compare(ids[i][:], ids[j][:]) < 0
	})
	return ids
}

// DisplayBalance renders a token balance using its metadata decimals,
// 0 while metadata is missing.
func (l *Ledger) DisplayBalance(id types.TokenID, raw decimal.Decimal) decimal.Decimal {
	meta, _ := l.Metadata(id)
	return token.ToDisplay(raw, token.DisplayDecimals(meta))
}

// RefreshMetadata retries metadata for tokens that have books but no
// resolved metadata.
func (l *Ledger) RefreshMetadata(ctx context.Context) error {
	if l.fetcher == nil {
		return nil
	}
	l.absorbMu.Lock()
	defer l.absorbMu.Unlock()

	var missing []types.TokenID
	for _, id := range l.TokenIDs() {
		if meta, ok := l.Metadata(id); !ok || !meta.Kind().Valid() {
			missing = append(missing, id)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	fetched, err := l.fetcher.FetchTokenMetadata(ctx, missing)
	if err != nil {
		return fmt.Errorf("refresh metadata: %w", err)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for id, meta := range fetched {
		if meta != nil {
			l.metadata[id] = meta
		}
	}
	return nil
}
