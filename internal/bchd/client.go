// Package bchd talks to a bchd node over its gRPC API. It is the only
// code that sees wire-order hashes; everything it returns uses display
// order.
package bchd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Klingon-tech/slpwallet/internal/log"
	"github.com/Klingon-tech/slpwallet/internal/reconcile"
	"github.com/Klingon-tech/slpwallet/internal/token"
	"github.com/Klingon-tech/slpwallet/internal/walleterr"
	"github.com/Klingon-tech/slpwallet/pkg/tx"
	"github.com/Klingon-tech/slpwallet/pkg/types"
	"github.com/gcash/bchd/bchrpc/pb"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
)

// ErrNoSlpIndex is returned when the node cannot report token data.
var ErrNoSlpIndex = errors.New("connected bchd does not have slp index enabled")

// DefaultTimeout bounds unary calls.
const DefaultTimeout = 30 * time.Second

// Config selects and secures the bchd endpoint.
type Config struct {
	Target  string
	TLS     bool
	CACert  string
	Timeout time.Duration
}

// Client is a bchd gRPC client.
type Client struct {
	conn    *grpc.ClientConn
	rpc     pb.BchrpcClient
	timeout time.Duration
}

// Dial connects to the node described by cfg. The connection is
// established lazily by the first call.
func Dial(cfg Config) (*Client, error) {
	var creds credentials.TransportCredentials
	switch {
	case !cfg.TLS:
		creds = insecure.NewCredentials()
	case cfg.CACert != "":
		c, err := credentials.NewClientTLSFromFile(cfg.CACert, "")
		if err != nil {
			return nil, fmt.Errorf("load bchd CA: %w", err)
		}
		creds = c
	default:
		creds = credentials.NewClientTLSFromCert(nil, "")
	}

	conn, err := grpc.NewClient(cfg.Target, grpc.WithTransportCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("dial bchd %s: %w", cfg.Target, err)
	}
	c := newClient(pb.NewBchrpcClient(conn), cfg.Timeout)
	c.conn = conn
	log.Network.Info().Str("target", cfg.Target).Bool("tls", cfg.TLS).Msg("bchd client created")
	return c, nil
}

func newClient(rpc pb.BchrpcClient, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{rpc: rpc, timeout: timeout}
}

// Close releases the connection.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

func (c *Client) call(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.timeout)
}

// transient marks connection-level failures so callers can tell them
// from request errors.
func transient(op string, err error) error {
	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded, codes.Canceled, codes.ResourceExhausted, codes.Aborted:
		return walleterr.Wrap(walleterr.KindTransientNetwork, op, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

// BlockchainInfo is the subset of node state the wallet uses.
type BlockchainInfo struct {
	Height   int32
	BestHash types.Hash
	SlpIndex bool
}

// GetBlockchainInfo reports the node's tip and index support.
func (c *Client) GetBlockchainInfo(ctx context.Context) (*BlockchainInfo, error) {
	ctx, cancel := c.call(ctx)
	defer cancel()
	resp, err := c.rpc.GetBlockchainInfo(ctx, &pb.GetBlockchainInfoRequest{})
	if err != nil {
		return nil, transient("get blockchain info", err)
	}
	info := &BlockchainInfo{Height: resp.GetBestHeight(), SlpIndex: resp.GetSlpIndex()}
	if h, err := types.HashFromWire(resp.GetBestBlockHash()); err == nil {
		info.BestHash = h
	}
	return info, nil
}

// FetchHistory returns every confirmed and mempool transaction touching addr.
func (c *Client) FetchHistory(ctx context.Context, addr types.Address) (*tx.History, error) {
	info, err := c.GetBlockchainInfo(ctx)
	if err != nil {
		return nil, err
	}
	if !info.SlpIndex {
		return nil, ErrNoSlpIndex
	}

	ctx, cancel := c.call(ctx)
	defer cancel()
	resp, err := c.rpc.GetAddressTransactions(ctx, &pb.GetAddressTransactionsRequest{Address: addr.String()})
	if err != nil {
		return nil, transient("get address transactions", err)
	}

	hist := &tx.History{}
	for _, p := range resp.GetConfirmedTransactions() {
		if t := convertOrSkip(p); t != nil {
			hist.Confirmed = append(hist.Confirmed, t)
		}
	}
	for _, m := range resp.GetUnconfirmedTransactions() {
		if t := convertOrSkip(m.GetTransaction()); t != nil {
			hist.Unconfirmed = append(hist.Unconfirmed, t)
		}
	}
	log.Network.Debug().
		Int("confirmed", len(hist.Confirmed)).
		Int("unconfirmed", len(hist.Unconfirmed)).
		Msg("Fetched address history")
	return hist, nil
}

func convertOrSkip(p *pb.Transaction) *tx.Transaction {
	t, err := txFromPB(p)
	if err != nil {
		log.Network.Warn().
			Err(walleterr.Wrap(walleterr.KindMalformedTransaction, "convert", err)).
			Msg("Skipping transaction")
		return nil
	}
	return t
}

// FetchTokenMetadata implements token.Fetcher.
func (c *Client) FetchTokenMetadata(ctx context.Context, ids []types.TokenID) (map[types.TokenID]*token.Metadata, error) {
	if len(ids) == 0 {
		return map[types.TokenID]*token.Metadata{}, nil
	}
	req := &pb.GetSlpTokenMetadataRequest{TokenIds: make([][]byte, len(ids))}
	for i, id := range ids {
		req.TokenIds[i] = types.Hash(id).Bytes()
	}

	ctx, cancel := c.call(ctx)
	defer cancel()
	resp, err := c.rpc.GetSlpTokenMetadata(ctx, req)
	if err != nil {
		return nil, transient("get token metadata", err)
	}

	out := make(map[types.TokenID]*token.Metadata, len(resp.GetTokenMetadata()))
	for _, m := range resp.GetTokenMetadata() {
		meta, err := metadataFromPB(m)
		if err != nil {
			log.Network.Warn().Err(err).Msg("Skipping token metadata")
			continue
		}
		out[meta.ID] = meta
	}
	return out, nil
}

// Broadcast submits a signed transaction and returns its txid.
func (c *Client) Broadcast(ctx context.Context, raw []byte) (types.Hash, error) {
	ctx, cancel := c.call(ctx)
	defer cancel()
	resp, err := c.rpc.SubmitTransaction(ctx, &pb.SubmitTransactionRequest{Transaction: raw})
	if err != nil {
		return types.Hash{}, transient("submit transaction", err)
	}
	txid, err := types.HashFromWire(resp.GetHash())
	if err != nil {
		return types.Hash{}, fmt.Errorf("submit transaction: %w", err)
	}
	log.Network.Info().Str("tx", txid.String()).Msg("Transaction submitted")
	return txid, nil
}

// FetchTransaction looks up a transaction by txid.
func (c *Client) FetchTransaction(ctx context.Context, txid types.Hash) (*tx.Transaction, error) {
	ctx, cancel := c.call(ctx)
	defer cancel()
	resp, err := c.rpc.GetTransaction(ctx, &pb.GetTransactionRequest{Hash: txid.WireBytes()})
	if err != nil {
		return nil, transient("get transaction", err)
	}
	t, err := txFromPB(resp.GetTransaction())
	if err != nil {
		return nil, walleterr.Wrap(walleterr.KindMalformedTransaction, "get transaction", err)
	}
	return t, nil
}

type txStream struct {
	stream pb.Bchrpc_SubscribeTransactionsClient
}

// Recv returns the next mempool transaction, skipping notifications that
// cannot be converted.
func (s *txStream) Recv() (*tx.Transaction, error) {
	for {
		n, err := s.stream.Recv()
		if err != nil {
			return nil, transient("transaction stream", err)
		}
		p := n.GetUnconfirmedTransaction().GetTransaction()
		if p == nil {
			p = n.GetConfirmedTransaction()
		}
		if t := convertOrSkip(p); t != nil {
			return t, nil
		}
	}
}

// Subscribe streams mempool transactions touching addr until ctx ends.
func (c *Client) Subscribe(ctx context.Context, addr types.Address) (reconcile.TxStream, error) {
	stream, err := c.rpc.SubscribeTransactions(ctx, &pb.SubscribeTransactionsRequest{
		Subscribe:      &pb.TransactionFilter{Addresses: []string{addr.String()}},
		IncludeMempool: true,
	})
	if err != nil {
		return nil, transient("subscribe transactions", err)
	}
	return &txStream{stream: stream}, nil
}

type blockStream struct {
	stream pb.Bchrpc_SubscribeBlocksClient
}

// Recv returns the height of the next block.
func (s *blockStream) Recv() (int32, error) {
	n, err := s.stream.Recv()
	if err != nil {
		return 0, transient("block stream", err)
	}
	return n.GetBlockInfo().GetHeight(), nil
}

// SubscribeBlocks streams new block heights until ctx ends.
func (c *Client) SubscribeBlocks(ctx context.Context) (reconcile.BlockStream, error) {
	stream, err := c.rpc.SubscribeBlocks(ctx, &pb.SubscribeBlocksRequest{})
	if err != nil {
		return nil, transient("subscribe blocks", err)
	}
	return &blockStream{stream: stream}, nil
}

var (
	_ reconcile.Network = (*Client)(nil)
	_ token.Fetcher     = (*Client)(nil)
)
