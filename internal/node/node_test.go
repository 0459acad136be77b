package node

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Klingon-tech/slpwallet/config"
	"github.com/Klingon-tech/slpwallet/internal/reconcile"
	"github.com/Klingon-tech/slpwallet/internal/rpcclient"
	"github.com/Klingon-tech/slpwallet/internal/token"
	"github.com/Klingon-tech/slpwallet/internal/wallet"
	"github.com/Klingon-tech/slpwallet/pkg/tx"
	"github.com/Klingon-tech/slpwallet/pkg/types"
)

var testTokenID = types.TokenID{0x5A}

// stubNetwork funds whatever address asks for its history with one base
// coin and one token coin, and keeps its streams idle.
type stubNetwork struct {
	metaCalls int
}

func (s *stubNetwork) FetchHistory(_ context.Context, addr types.Address) (*tx.History, error) {
	t := &tx.Transaction{Hash: types.Hash{0xC1}, BlockHeight: 10}
	t.Outputs = []tx.Output{
		{Index: 0, Value: 5000, Address: addr.String()},
		{Index: 1, Value: 546, Address: addr.String(), Token: &types.TokenData{ID: testTokenID, Amount: 250, Type: 1}},
	}
	return &tx.History{Confirmed: []*tx.Transaction{t}}, nil
}

func (s *stubNetwork) FetchTransaction(context.Context, types.Hash) (*tx.Transaction, error) {
	return nil, os.ErrNotExist
}

func (s *stubNetwork) Broadcast(context.Context, []byte) (types.Hash, error) {
	return types.Hash{}, os.ErrPermission
}

func (s *stubNetwork) Subscribe(ctx context.Context, _ types.Address) (reconcile.TxStream, error) {
	return idleStream{ctx}, nil
}

func (s *stubNetwork) SubscribeBlocks(ctx context.Context) (reconcile.BlockStream, error) {
	return idleBlocks{ctx}, nil
}

func (s *stubNetwork) FetchTokenMetadata(_ context.Context, ids []types.TokenID) (map[types.TokenID]*token.Metadata, error) {
	s.metaCalls++
	out := make(map[types.TokenID]*token.Metadata)
	for _, id := range ids {
		if id == testTokenID {
			out[id] = &token.Metadata{ID: id, Details: token.Fungible{Name: "Stub", Ticker: "STB", Decimals: 1}}
		}
	}
	return out, nil
}

type idleStream struct{ ctx context.Context }

func (s idleStream) Recv() (*tx.Transaction, error) {
	<-s.ctx.Done()
	return nil, s.ctx.Err()
}

type idleBlocks struct{ ctx context.Context }

func (s idleBlocks) Recv() (int32, error) {
	<-s.ctx.Done()
	return 0, s.ctx.Err()
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default(config.Regtest)
	cfg.DataDir = t.TempDir()
	cfg.Log.Level = "error"
	cfg.RPC.Port = 0
	return cfg
}

func testOptions(net wallet.Network) Options {
	params := wallet.EncryptionParams{Memory: 64, Iterations: 1, Parallelism: 1}
	return Options{
		Password:       []byte("node-test-password"),
		Network:        net,
		KeystoreParams: &params,
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home dir")
	}
	t.Setenv("SLPWALLET_TEST_DIR", "/srv/wallet")
	tests := []struct {
		input, want string
	}{
		{"~/foo/bar", filepath.Join(home, "foo/bar")},
		{"~/.slpwallet/keystore.json", filepath.Join(home, ".slpwallet/keystore.json")},
		{"/absolute/path", "/absolute/path"},
		{"relative/path", "relative/path"},
		{"~", home},
		{"~user/path", "~user/path"},
		{"$SLPWALLET_TEST_DIR/keystore.json", "/srv/wallet/keystore.json"},
		{"", ""},
	}
	for _, tt := range tests {
		got := expandPath(tt.input)
		if got != tt.want {
			t.Errorf("expandPath(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestNew_RequiresPassword(t *testing.T) {
	cfg := testConfig(t)
	opts := testOptions(&stubNetwork{})
	opts.Password = nil
	if _, err := New(cfg, opts); err == nil {
		t.Fatal("expected error without a password")
	}
}

func TestNode_CreateStartStop(t *testing.T) {
	cfg := testConfig(t)
	net := &stubNetwork{}

	n, err := New(cfg, testOptions(net))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if n.NewMnemonic() == "" {
		t.Fatal("first start should create a mnemonic keystore")
	}
	if types.GetAddressPrefix() != types.RegtestPrefix {
		t.Errorf("address prefix = %s, want %s", types.GetAddressPrefix(), types.RegtestPrefix)
	}
	if _, err := os.Stat(cfg.KeystorePath()); err != nil {
		t.Fatalf("keystore not written: %v", err)
	}

	if err := n.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := n.WaitSynced(ctx); err != nil {
		t.Fatalf("WaitSynced: %v", err)
	}

	bal := n.Wallet().Balance()
	if bal.Base != 5000 {
		t.Errorf("base = %d, want 5000", bal.Base)
	}
	if len(bal.Tokens) != 1 || bal.Tokens[0].Display.String() != "25" {
		t.Errorf("tokens = %+v", bal.Tokens)
	}

	// Token metadata went through the persistent cache.
	if has, err := n.tokens.Has(testTokenID); err != nil || !has {
		t.Errorf("metadata not persisted: has=%v err=%v", has, err)
	}

	// The owner API answers on the bound port.
	client := rpcclient.New("http://" + n.RPCAddr())
	acct, err := client.Address()
	if err != nil {
		t.Fatalf("rpc Address: %v", err)
	}
	if acct.Address != n.Wallet().Address() {
		t.Errorf("rpc address = %s, want %s", acct.Address, n.Wallet().Address())
	}

	addr := n.Wallet().Address()
	n.Stop()

	// Reopening unlocks the same keystore and reuses cached metadata.
	calls := net.metaCalls
	n2, err := New(cfg, testOptions(net))
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer n2.Stop()
	if n2.NewMnemonic() != "" {
		t.Error("reopen should not create a new mnemonic")
	}
	if n2.Wallet().Address() != addr {
		t.Errorf("reopened address = %s, want %s", n2.Wallet().Address(), addr)
	}
	if err := n2.Start(context.Background()); err != nil {
		t.Fatalf("restart: %v", err)
	}
	if net.metaCalls != calls {
		t.Errorf("metadata fetched again after restart: %d calls, want %d", net.metaCalls, calls)
	}
}

func TestNew_WrongPassword(t *testing.T) {
	cfg := testConfig(t)
	n, err := New(cfg, testOptions(&stubNetwork{}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	n.Stop()

	opts := testOptions(&stubNetwork{})
	opts.Password = []byte("not-the-password")
	if _, err := New(cfg, opts); err == nil {
		t.Fatal("expected unlock failure")
	}
}
