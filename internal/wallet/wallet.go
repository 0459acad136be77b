package wallet

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Klingon-tech/slpwallet/internal/ledger"
	"github.com/Klingon-tech/slpwallet/internal/log"
	"github.com/Klingon-tech/slpwallet/internal/reconcile"
	"github.com/Klingon-tech/slpwallet/internal/token"
	"github.com/Klingon-tech/slpwallet/internal/txbuilder"
	"github.com/Klingon-tech/slpwallet/pkg/types"
	"github.com/cenkalti/backoff/v4"
	"github.com/shopspring/decimal"
)

// Network is the node the wallet talks to.
type Network interface {
	reconcile.Network
	token.Fetcher
}

// Config configures a Wallet.
type Config struct {
	// FeeRate in satoshis per byte. Zero selects the minimum relay rate.
	FeeRate uint64
	// DedupCapacity bounds the set of processed txids.
	DedupCapacity int
	// NewBackoff builds the stream retry policy.
	NewBackoff func() backoff.BackOff
	// Metadata replaces the network as the token metadata source, for
	// example with a persistent cache in front of it.
	Metadata token.Fetcher
	// Persist stores a new secret before the wallet switches to it.
	Persist func(*Secret) error
	// OnUpdate runs whenever the ledger changes.
	OnUpdate func()
}

// Account describes the wallet's single address.
type Account struct {
	Address types.Address `json:"address"`
	Kind    SecretKind    `json:"kind"`
	Path    string        `json:"path,omitempty"`
}

// Status reports the reconcile state.
type Status struct {
	Address     string `json:"address"`
	State       string `json:"state"`
	BlockState  string `json:"block_state"`
	Height      int32  `json:"height"`
	Seen        int    `json:"seen"`
	Running     bool   `json:"running"`
	BaseBalance int64  `json:"base_balance"`
}

// Wallet ties the ledger, the reconcile loop and the assembler to the
// address of one secret.
type Wallet struct {
	cfg    Config
	ledger *ledger.Ledger
	loop   *reconcile.Loop

	mu      sync.RWMutex
	secret  *Secret
	running bool

	// sendMu serializes drafting and broadcasting so that two sends never
	// select the same coins.
	sendMu sync.Mutex
}

// New creates a wallet for secret. Call Start to load history.
func New(secret *Secret, net Network, cfg Config) (*Wallet, error) {
	if secret == nil {
		return nil, errors.New("wallet secret is required")
	}
	fetcher := cfg.Metadata
	if fetcher == nil {
		fetcher = net
	}
	l := ledger.New(secret.Address(), fetcher)
	loop, err := reconcile.New(net, l, reconcile.Config{
		DedupCapacity: cfg.DedupCapacity,
		NewBackoff:    cfg.NewBackoff,
		OnUpdate:      cfg.OnUpdate,
	})
	if err != nil {
		return nil, err
	}
	return &Wallet{cfg: cfg, ledger: l, loop: loop, secret: secret}, nil
}

// Start absorbs the address history and follows the live streams.
func (w *Wallet) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.loop.Start(ctx); err != nil {
		return err
	}
	w.running = true
	return nil
}

// Stop halts the live streams.
func (w *Wallet) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.loop.Stop()
	w.running = false
}

// Ledger returns the wallet's ledger.
func (w *Wallet) Ledger() *ledger.Ledger {
	return w.ledger
}

// Secret returns the current secret.
func (w *Wallet) Secret() *Secret {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.secret
}

// Address returns the wallet address.
func (w *Wallet) Address() types.Address {
	return w.Secret().Address()
}

// Account describes the wallet address and how its key was obtained.
func (w *Wallet) Account() Account {
	s := w.Secret()
	return Account{Address: s.Address(), Kind: s.Kind(), Path: s.Path()}
}

// Balance summarizes the ledger.
func (w *Wallet) Balance() Balance {
	return Summarize(w.ledger)
}

// BaseCoins returns the spendable base coins, smallest first.
func (w *Wallet) BaseCoins() []ledger.BaseCoin {
	return ledger.SortBaseCoins(w.ledger.SpendableBaseCoins())
}

// TokenCoins returns the spendable coins of one token, smallest first.
func (w *Wallet) TokenCoins(id types.TokenID) []ledger.TokenCoin {
	return ledger.SortTokenCoins(w.ledger.SpendableTokenCoins(id))
}

// TokenInfo returns the metadata of a token. Metadata the ledger does not
// hold yet is fetched and cached there.
func (w *Wallet) TokenInfo(ctx context.Context, id types.TokenID) (*token.Metadata, error) {
	return w.ledger.Resolve(ctx, id)
}

// Status reports the reconcile state.
func (w *Wallet) Status() Status {
	w.mu.RLock()
	running := w.running
	w.mu.RUnlock()
	return Status{
		Address:     w.Address().String(),
		State:       w.loop.State().String(),
		BlockState:  w.loop.BlockState().String(),
		Height:      w.loop.Height(),
		Seen:        w.loop.SeenCount(),
		Running:     running,
		BaseBalance: w.ledger.BaseBalance(),
	}
}

// Reload clears the ledger and absorbs the address history again.
func (w *Wallet) Reload(ctx context.Context) error {
	if err := w.loop.Reload(ctx); err != nil {
		return err
	}
	return w.ledger.RefreshMetadata(ctx)
}

// NewDraft starts an empty draft funded from the wallet's coins.
func (w *Wallet) NewDraft() (*txbuilder.Assembler, error) {
	return txbuilder.New(w.Address(), w.ledger, w.cfg.FeeRate)
}

// Submit signs a draft with the wallet key, broadcasts it and absorbs it.
func (w *Wallet) Submit(ctx context.Context, a *txbuilder.Assembler) (*txbuilder.Signed, error) {
	signed, err := a.Sign(txbuilder.KeySigner{Key: w.Secret().Key()})
	if err != nil {
		return nil, err
	}
	txid, err := w.loop.Broadcast(ctx, signed.Raw)
	if err != nil {
		return nil, err
	}
	if txid != signed.TxID {
		log.Wallet.Warn().
			Str("local", signed.TxID.String()).
			Str("node", txid.String()).
			Msg("Node reported a different txid")
		signed.TxID = txid
	}
	log.Wallet.Info().
		Str("tx", signed.TxID.String()).
		Uint64("fee", signed.Fee).
		Uint64("amount", signed.SendAmount).
		Msg("Transaction sent")
	return signed, nil
}

// Send pays amount satoshis to address.
func (w *Wallet) Send(ctx context.Context, address string, amount uint64) (*txbuilder.Signed, error) {
	w.sendMu.Lock()
	defer w.sendMu.Unlock()

	a, err := w.NewDraft()
	if err != nil {
		return nil, err
	}
	if err := a.AddBaseOutput(address, amount); err != nil {
		return nil, err
	}
	return w.Submit(ctx, a)
}

// SendToken sends a display-unit amount of a token to address.
func (w *Wallet) SendToken(ctx context.Context, address string, id types.TokenID, amount string) (*txbuilder.Signed, error) {
	meta, err := w.TokenInfo(ctx, id)
	if err != nil {
		return nil, err
	}
	raw, err := tokenAmount(meta, amount)
	if err != nil {
		return nil, err
	}

	w.sendMu.Lock()
	defer w.sendMu.Unlock()

	a, err := w.NewDraft()
	if err != nil {
		return nil, err
	}
	if err := a.AddTokenOutput(address, raw, id); err != nil {
		return nil, err
	}
	return w.Submit(ctx, a)
}

// tokenAmount converts a display amount into base units. An NFT child
// always moves its single unit, so its amount is not parsed.
func tokenAmount(meta *token.Metadata, amount string) (decimal.Decimal, error) {
	if meta.Kind() == token.KindNFTChild {
		return decimal.NewFromInt(1), nil
	}
	decimals, err := meta.Decimals()
	if err != nil {
		return decimal.Zero, err
	}
	raw, err := token.ParseDisplay(amount, decimals)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", txbuilder.ErrInvalidAmount, err)
	}
	return raw, nil
}

// ImportSecret replaces the wallet key with a mnemonic or WIF. The new
// secret is persisted first, then the ledger is rebuilt for its address.
func (w *Wallet) ImportSecret(ctx context.Context, s string) error {
	secret, err := ParseSecret(s)
	if err != nil {
		return err
	}
	if w.cfg.Persist != nil {
		if err := w.cfg.Persist(secret); err != nil {
			return fmt.Errorf("persist secret: %w", err)
		}
	}

	w.sendMu.Lock()
	defer w.sendMu.Unlock()
	w.mu.Lock()
	defer w.mu.Unlock()

	wasRunning := w.running
	w.loop.Stop()
	w.running = false
	if err := w.loop.Retarget(secret.Address()); err != nil {
		return err
	}
	w.secret = secret
	log.Wallet.Info().
		Str("address", secret.Address().String()).
		Str("kind", string(secret.Kind())).
		Msg("Wallet secret replaced")

	if !wasRunning {
		return nil
	}
	if err := w.loop.Start(ctx); err != nil {
		return fmt.Errorf("restart after import: %w", err)
	}
	w.running = true
	return nil
}
