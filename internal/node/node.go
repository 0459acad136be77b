// Package node assembles a running wallet daemon from its configuration:
// keystore, token metadata database, bchd connection, wallet engine and
// owner API. It can be embedded in any binary.
package node

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Klingon-tech/slpwallet/config"
	"github.com/Klingon-tech/slpwallet/internal/bchd"
	klog "github.com/Klingon-tech/slpwallet/internal/log"
	"github.com/Klingon-tech/slpwallet/internal/reconcile"
	"github.com/Klingon-tech/slpwallet/internal/rpc"
	"github.com/Klingon-tech/slpwallet/internal/storage"
	"github.com/Klingon-tech/slpwallet/internal/token"
	"github.com/Klingon-tech/slpwallet/internal/wallet"
	"github.com/Klingon-tech/slpwallet/pkg/types"
	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

// Options carries what cannot come from the config file.
type Options struct {
	// Password unlocks or creates the keystore.
	Password []byte
	// Network replaces the bchd connection. Used by tests and embedders
	// that bring their own node.
	Network wallet.Network
	// KeystoreParams overrides the key derivation cost.
	KeystoreParams *wallet.EncryptionParams
}

// Node is a fully-initialized wallet daemon.
type Node struct {
	cfg    *config.Config
	logger zerolog.Logger

	db       storage.DB
	tokens   *token.Store
	keystore *wallet.Keystore
	client   *bchd.Client // nil when Options.Network was given.
	wallet   *wallet.Wallet

	rpcServer *rpc.Server

	// newMnemonic is set when New created the keystore.
	newMnemonic string
}

// New creates and initializes a Node. It opens storage, unlocks or creates
// the keystore and connects the wallet, but starts nothing. Call Start.
func New(cfg *config.Config, opts Options) (*Node, error) {
	// ── 1. Set address prefix ───────────────────────────────────────
	types.SetAddressPrefix(cfg.Network.AddressPrefix())

	// ── 2. Init logger ──────────────────────────────────────────────
	logFile := expandPath(cfg.Log.File)
	if logFile == "" {
		if err := os.MkdirAll(cfg.LogsDir(), 0700); err != nil {
			return nil, fmt.Errorf("creating logs dir: %w", err)
		}
		logFile = filepath.Join(cfg.LogsDir(), "slpwallet.log")
	}
	if err := klog.Init(cfg.Log.Level, cfg.Log.JSON, logFile); err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}
	logger := klog.WithComponent("node")
	logger.Info().
		Str("network", string(cfg.Network)).
		Str("bchd", cfg.BCHD.Target).
		Msg("Starting SLP wallet")

	n := &Node{cfg: cfg, logger: logger}

	// ── 3. Keystore ─────────────────────────────────────────────────
	params := wallet.DefaultParams()
	if opts.KeystoreParams != nil {
		params = *opts.KeystoreParams
	}
	ks, err := wallet.NewKeystore(expandPath(cfg.KeystorePath()), params)
	if err != nil {
		return nil, err
	}
	n.keystore = ks
	secret, err := n.openSecret(opts.Password)
	if err != nil {
		return nil, err
	}

	// ── 4. Token metadata database ──────────────────────────────────
	db, err := storage.NewBadger(cfg.TokenDBDir())
	if err != nil {
		return nil, fmt.Errorf("open token database at %s: %w", cfg.TokenDBDir(), err)
	}
	n.db = db
	n.tokens = token.NewStore(storage.NewPrefixDB(db, []byte(string(cfg.Network)+"/")))

	// ── 5. Network ──────────────────────────────────────────────────
	network := opts.Network
	if network == nil {
		client, err := bchd.Dial(bchd.Config{
			Target:  cfg.BCHD.Target,
			TLS:     cfg.BCHD.TLS,
			CACert:  expandPath(cfg.BCHD.CACert),
			Timeout: cfg.BCHD.Timeout,
		})
		if err != nil {
			n.close()
			return nil, err
		}
		n.client = client
		network = client
	}

	// ── 6. Wallet ───────────────────────────────────────────────────
	password := append([]byte(nil), opts.Password...)
	retry := cfg.Wallet.ReconnectBackoff
	w, err := wallet.New(secret, network, wallet.Config{
		FeeRate:       cfg.Wallet.FeeRate,
		DedupCapacity: cfg.Wallet.DedupCapacity,
		NewBackoff:    func() backoff.BackOff { return backoff.NewConstantBackOff(retry) },
		Metadata:      token.NewCachedFetcher(n.tokens, network),
		Persist:       func(s *wallet.Secret) error { return ks.Save(s, password) },
	})
	if err != nil {
		n.close()
		return nil, fmt.Errorf("create wallet: %w", err)
	}
	n.wallet = w

	// ── 7. RPC server ───────────────────────────────────────────────
	if cfg.RPC.Enabled {
		n.rpcServer = rpc.New(cfg.RPCListenAddr(), w, rpc.Config{
			AllowedIPs:  cfg.RPC.AllowedIPs,
			CORSOrigins: cfg.RPC.CORSOrigins,
		})
	}

	logger.Info().Str("address", w.Address().String()).Msg("Wallet unlocked")
	return n, nil
}

// openSecret loads the keystore, creating it with a fresh mnemonic on
// first start.
func (n *Node) openSecret(password []byte) (*wallet.Secret, error) {
	if len(password) == 0 {
		return nil, errors.New("keystore password is required")
	}
	if n.keystore.Exists() {
		secret, err := n.keystore.Load(password)
		if err != nil {
			return nil, fmt.Errorf("unlock keystore %s: %w", n.keystore.Path(), err)
		}
		return secret, nil
	}

	secret, err := wallet.NewSecret()
	if err != nil {
		return nil, err
	}
	if err := n.keystore.Create(secret, password); err != nil {
		return nil, fmt.Errorf("create keystore: %w", err)
	}
	n.newMnemonic = secret.Mnemonic()
	n.logger.Info().Str("path", n.keystore.Path()).Msg("Created new keystore")
	return secret, nil
}

// Start loads the address history, follows the live streams and opens
// the owner API.
func (n *Node) Start(ctx context.Context) error {
	if err := n.wallet.Start(ctx); err != nil {
		return fmt.Errorf("start wallet: %w", err)
	}
	if n.rpcServer != nil {
		if err := n.rpcServer.Start(); err != nil {
			n.wallet.Stop()
			return err
		}
	}
	bal := n.wallet.Balance()
	n.logger.Info().
		Int64("base", bal.Base).
		Int("tokens", len(bal.Tokens)).
		Msg("Wallet synced")
	return nil
}

// Stop shuts everything down. It is safe to call after a failed Start.
func (n *Node) Stop() {
	if n.rpcServer != nil {
		if err := n.rpcServer.Stop(); err != nil {
			n.logger.Warn().Err(err).Msg("RPC shutdown")
		}
	}
	if n.wallet != nil {
		n.wallet.Stop()
	}
	n.logger.Info().Msg("Goodbye!")
	n.close()
}

func (n *Node) close() {
	if n.client != nil {
		n.client.Close()
	}
	if n.db != nil {
		n.db.Close()
	}
	klog.Close()
}

// Wallet returns the wallet engine.
func (n *Node) Wallet() *wallet.Wallet {
	return n.wallet
}

// NewMnemonic returns the mnemonic of a keystore created by New, or ""
// when an existing keystore was unlocked. It is shown to the user once.
func (n *Node) NewMnemonic() string {
	return n.newMnemonic
}

// RPCAddr returns the address the RPC server is listening on.
func (n *Node) RPCAddr() string {
	if n.rpcServer == nil {
		return ""
	}
	return n.rpcServer.Addr()
}

// WaitSynced blocks until the transaction stream is connected or ctx ends.
func (n *Node) WaitSynced(ctx context.Context) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		if n.wallet.Status().State == reconcile.StateConnected.String() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
