package bchd

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/Klingon-tech/slpwallet/internal/token"
	"github.com/Klingon-tech/slpwallet/internal/walleterr"
	"github.com/Klingon-tech/slpwallet/pkg/tx"
	"github.com/Klingon-tech/slpwallet/pkg/types"
	"github.com/gcash/bchd/bchrpc/pb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// fakeRPC answers the calls the client makes. Unimplemented methods
// panic through the nil embedded interface.
type fakeRPC struct {
	pb.BchrpcClient

	slpIndex  bool
	history   *pb.GetAddressTransactionsResponse
	metadata  []*pb.SlpTokenMetadata
	submitted []byte
	submitErr error
	txs       map[string]*pb.Transaction
	notes     []*pb.TransactionNotification
	blocks    []*pb.BlockNotification

	lastAddress string
	lastTokens  [][]byte
}

func (f *fakeRPC) GetBlockchainInfo(context.Context, *pb.GetBlockchainInfoRequest, ...grpc.CallOption) (*pb.GetBlockchainInfoResponse, error) {
	return &pb.GetBlockchainInfoResponse{BestHeight: 800000, SlpIndex: f.slpIndex}, nil
}

func (f *fakeRPC) GetAddressTransactions(_ context.Context, req *pb.GetAddressTransactionsRequest, _ ...grpc.CallOption) (*pb.GetAddressTransactionsResponse, error) {
	f.lastAddress = req.GetAddress()
	return f.history, nil
}

func (f *fakeRPC) GetSlpTokenMetadata(_ context.Context, req *pb.GetSlpTokenMetadataRequest, _ ...grpc.CallOption) (*pb.GetSlpTokenMetadataResponse, error) {
	f.lastTokens = req.GetTokenIds()
	return &pb.GetSlpTokenMetadataResponse{TokenMetadata: f.metadata}, nil
}

func (f *fakeRPC) SubmitTransaction(_ context.Context, req *pb.SubmitTransactionRequest, _ ...grpc.CallOption) (*pb.SubmitTransactionResponse, error) {
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	f.submitted = req.GetTransaction()
	return &pb.SubmitTransactionResponse{Hash: wireHash(0x42)}, nil
}

func (f *fakeRPC) GetTransaction(_ context.Context, req *pb.GetTransactionRequest, _ ...grpc.CallOption) (*pb.GetTransactionResponse, error) {
	t, ok := f.txs[string(req.GetHash())]
	if !ok {
		return nil, status.Error(codes.NotFound, "transaction not found")
	}
	return &pb.GetTransactionResponse{Transaction: t}, nil
}

func (f *fakeRPC) SubscribeTransactions(context.Context, *pb.SubscribeTransactionsRequest, ...grpc.CallOption) (pb.Bchrpc_SubscribeTransactionsClient, error) {
	return &fakeTxStream{notes: f.notes}, nil
}

func (f *fakeRPC) SubscribeBlocks(context.Context, *pb.SubscribeBlocksRequest, ...grpc.CallOption) (pb.Bchrpc_SubscribeBlocksClient, error) {
	return &fakeBlockStream{blocks: f.blocks}, nil
}

type fakeTxStream struct {
	grpc.ClientStream
	notes []*pb.TransactionNotification
}

func (s *fakeTxStream) Recv() (*pb.TransactionNotification, error) {
	if len(s.notes) == 0 {
		return nil, io.EOF
	}
	n := s.notes[0]
	s.notes = s.notes[1:]
	return n, nil
}

type fakeBlockStream struct {
	grpc.ClientStream
	blocks []*pb.BlockNotification
}

func (s *fakeBlockStream) Recv() (*pb.BlockNotification, error) {
	if len(s.blocks) == 0 {
		return nil, status.Error(codes.Unavailable, "connection closed")
	}
	b := s.blocks[0]
	s.blocks = s.blocks[1:]
	return b, nil
}

// wireHash returns a hash whose display form starts with b, in wire order.
func wireHash(b byte) []byte {
	return types.Hash{b}.WireBytes()
}

func testAddress(t *testing.T) types.Address {
	t.Helper()
	addr, err := types.NewP2PKHAddress(make([]byte, 20))
	require.NoError(t, err)
	return addr
}

func pbTx(hash byte, addr string) *pb.Transaction {
	return &pb.Transaction{
		Hash: wireHash(hash),
		Inputs: []*pb.Transaction_Input{{
			Index:    0,
			Outpoint: &pb.Transaction_Input_Outpoint{Hash: wireHash(0x01), Index: 3},
			Value:    5000,
			Address:  "qother",
		}},
		Outputs: []*pb.Transaction_Output{{
			Index:   0,
			Value:   4000,
			Address: addr,
		}},
	}
}

func TestFetchHistory(t *testing.T) {
	addr := testAddress(t)
	confirmed := pbTx(0x10, addr.String())
	confirmed.BlockHeight = 700
	rpc := &fakeRPC{
		slpIndex: true,
		history: &pb.GetAddressTransactionsResponse{
			ConfirmedTransactions: []*pb.Transaction{confirmed, {Hash: []byte{0x01}}},
			UnconfirmedTransactions: []*pb.MempoolTransaction{
				{Transaction: pbTx(0x11, addr.String())},
			},
		},
	}
	c := newClient(rpc, 0)

	hist, err := c.FetchHistory(context.Background(), addr)
	require.NoError(t, err)
	assert.Equal(t, addr.String(), rpc.lastAddress)
	require.Len(t, hist.Confirmed, 1, "malformed transaction skipped")
	require.Len(t, hist.Unconfirmed, 1)

	got := hist.Confirmed[0]
	assert.Equal(t, types.Hash{0x10}, got.Hash)
	assert.Equal(t, int32(700), got.BlockHeight)
	assert.Equal(t, types.Outpoint{TxID: types.Hash{0x01}, Index: 3}, got.Inputs[0].PrevOut)
	assert.Equal(t, uint64(4000), got.Outputs[0].Value)
	assert.Len(t, hist.All(), 2)
}

func TestFetchHistory_RequiresSlpIndex(t *testing.T) {
	c := newClient(&fakeRPC{slpIndex: false}, 0)
	_, err := c.FetchHistory(context.Background(), testAddress(t))
	assert.ErrorIs(t, err, ErrNoSlpIndex)
}

func TestFetchTokenMetadata(t *testing.T) {
	fungible := types.TokenID{0xAA}
	child := types.TokenID{0xCC}
	group := types.Hash{0xDD}
	rpc := &fakeRPC{metadata: []*pb.SlpTokenMetadata{
		{
			TokenId:   types.Hash(fungible).Bytes(),
			TokenType: pb.SlpTokenType_V1_FUNGIBLE,
			TypeMetadata: &pb.SlpTokenMetadata_V1Fungible_{V1Fungible: &pb.SlpTokenMetadata_V1Fungible{
				TokenTicker: "TST",
				TokenName:   "Test Token",
				Decimals:    2,
			}},
		},
		{
			TokenId:   types.Hash(child).Bytes(),
			TokenType: pb.SlpTokenType_V1_NFT1_CHILD,
			TypeMetadata: &pb.SlpTokenMetadata_V1Nft1Child{V1Nft1Child: &pb.SlpTokenMetadata_V1NFT1Child{
				TokenTicker: "KID",
				TokenName:   "Child",
				GroupId:     group.Bytes(),
			}},
		},
		{TokenId: []byte{0x01}},
	}}
	c := newClient(rpc, 0)

	got, err := c.FetchTokenMetadata(context.Background(), []types.TokenID{fungible, child})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, [][]byte{types.Hash(fungible).Bytes(), types.Hash(child).Bytes()}, rpc.lastTokens)

	f, ok := got[fungible].Details.(token.Fungible)
	require.True(t, ok)
	assert.Equal(t, "TST", f.Ticker)
	assert.Equal(t, "Test Token", f.Name)
	assert.Equal(t, uint8(2), f.Decimals)

	nft, ok := got[child].Details.(token.NFTChild)
	require.True(t, ok)
	assert.Equal(t, "KID", nft.Ticker)
	assert.Equal(t, types.TokenID(group), nft.GroupID)
}

func TestFetchTokenMetadata_Empty(t *testing.T) {
	c := newClient(&fakeRPC{}, 0)
	got, err := c.FetchTokenMetadata(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestBroadcast(t *testing.T) {
	rpc := &fakeRPC{}
	c := newClient(rpc, 0)

	txid, err := c.Broadcast(context.Background(), []byte{0x02, 0x00})
	require.NoError(t, err)
	assert.Equal(t, types.Hash{0x42}, txid)
	assert.Equal(t, []byte{0x02, 0x00}, rpc.submitted)
}

func TestBroadcast_TransientError(t *testing.T) {
	c := newClient(&fakeRPC{submitErr: status.Error(codes.Unavailable, "down")}, 0)
	_, err := c.Broadcast(context.Background(), []byte{0x02})
	require.Error(t, err)
	assert.Equal(t, walleterr.KindTransientNetwork, walleterr.KindOf(err))
}

func TestBroadcast_RejectedIsNotTransient(t *testing.T) {
	c := newClient(&fakeRPC{submitErr: status.Error(codes.InvalidArgument, "bad-txns")}, 0)
	_, err := c.Broadcast(context.Background(), []byte{0x02})
	require.Error(t, err)
	assert.Equal(t, walleterr.KindUnknown, walleterr.KindOf(err))
}

func TestFetchTransaction(t *testing.T) {
	addr := testAddress(t)
	rpc := &fakeRPC{txs: map[string]*pb.Transaction{
		string(wireHash(0x10)): pbTx(0x10, addr.String()),
	}}
	c := newClient(rpc, 0)

	got, err := c.FetchTransaction(context.Background(), types.Hash{0x10})
	require.NoError(t, err)
	assert.Equal(t, types.Hash{0x10}, got.Hash)

	_, err = c.FetchTransaction(context.Background(), types.Hash{0x11})
	assert.Error(t, err)
}

func TestSubscribe(t *testing.T) {
	addr := testAddress(t)
	rpc := &fakeRPC{notes: []*pb.TransactionNotification{
		{Transaction: &pb.TransactionNotification_UnconfirmedTransaction{
			UnconfirmedTransaction: &pb.MempoolTransaction{Transaction: &pb.Transaction{Hash: []byte{0x01}}},
		}},
		{Transaction: &pb.TransactionNotification_UnconfirmedTransaction{
			UnconfirmedTransaction: &pb.MempoolTransaction{Transaction: pbTx(0x20, addr.String())},
		}},
	}}
	c := newClient(rpc, 0)

	stream, err := c.Subscribe(context.Background(), addr)
	require.NoError(t, err)

	got, err := stream.Recv()
	require.NoError(t, err)
	assert.Equal(t, types.Hash{0x20}, got.Hash, "malformed notification skipped")

	_, err = stream.Recv()
	assert.True(t, errors.Is(err, io.EOF))
}

func TestSubscribeBlocks(t *testing.T) {
	rpc := &fakeRPC{blocks: []*pb.BlockNotification{
		{Block: &pb.BlockNotification_BlockInfo{BlockInfo: &pb.BlockInfo{Height: 101}}},
		{Block: &pb.BlockNotification_BlockInfo{BlockInfo: &pb.BlockInfo{Height: 102}}},
	}}
	c := newClient(rpc, 0)

	stream, err := c.SubscribeBlocks(context.Background())
	require.NoError(t, err)

	for _, want := range []int32{101, 102} {
		h, err := stream.Recv()
		require.NoError(t, err)
		assert.Equal(t, want, h)
	}
	_, err = stream.Recv()
	assert.Equal(t, walleterr.KindTransientNetwork, walleterr.KindOf(err))
}

func TestTxFromPB_AddressFromScript(t *testing.T) {
	addr := testAddress(t)
	script, err := tx.PayToAddrScript(addr)
	require.NoError(t, err)

	p := pbTx(0x20, "")
	p.Outputs[0].PubkeyScript = script
	p.Outputs = append(p.Outputs, &pb.Transaction_Output{
		Index:        1,
		PubkeyScript: []byte{0x6a, 0x04, 'S', 'L', 'P', 0x00},
	})

	got, err := txFromPB(p)
	require.NoError(t, err)
	assert.Equal(t, addr.String(), got.Outputs[0].Address)
	assert.Empty(t, got.Outputs[1].Address)
	assert.Equal(t, "qother", got.Inputs[0].Address)
}
