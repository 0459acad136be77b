package bchd

import (
	"fmt"

	"github.com/Klingon-tech/slpwallet/internal/token"
	"github.com/Klingon-tech/slpwallet/pkg/tx"
	"github.com/Klingon-tech/slpwallet/pkg/types"
	"github.com/gcash/bchd/bchrpc/pb"
)

// txFromPB converts a bchd transaction. Hashes arrive in wire order and
// leave in display order.
func txFromPB(p *pb.Transaction) (*tx.Transaction, error) {
	if p == nil {
		return nil, fmt.Errorf("nil transaction")
	}
	hash, err := types.HashFromWire(p.GetHash())
	if err != nil {
		return nil, fmt.Errorf("transaction hash: %w", err)
	}
	t := &tx.Transaction{
		Hash:        hash,
		BlockHeight: p.GetBlockHeight(),
		Inputs:      make([]tx.Input, 0, len(p.GetInputs())),
		Outputs:     make([]tx.Output, 0, len(p.GetOutputs())),
	}

	for _, in := range p.GetInputs() {
		conv := tx.Input{
			Index:   in.GetIndex(),
			Value:   satoshis(in.GetValue()),
			Address: addressOf(in.GetAddress(), in.GetPreviousScript()),
			Token:   tokenFromPB(in.GetSlpToken()),
		}
		// A missing or malformed outpoint leaves PrevOut zero; the ledger
		// skips such inputs.
		if op := in.GetOutpoint(); op != nil {
			if prev, err := types.HashFromWire(op.GetHash()); err == nil {
				conv.PrevOut = types.Outpoint{TxID: prev, Index: op.GetIndex()}
			}
		}
		t.Inputs = append(t.Inputs, conv)
	}

	for _, out := range p.GetOutputs() {
		t.Outputs = append(t.Outputs, tx.Output{
			Index:   out.GetIndex(),
			Value:   satoshis(out.GetValue()),
			Address: addressOf(out.GetAddress(), out.GetPubkeyScript()),
			Token:   tokenFromPB(out.GetSlpToken()),
		})
	}
	return t, nil
}

// addressOf prefers the address bchd reports and falls back to decoding
// the locking script. Null-data and non-standard scripts have none.
func addressOf(reported string, script []byte) string {
	if reported != "" || tx.IsNullData(script) {
		return reported
	}
	if addr, ok := tx.ExtractAddress(script); ok {
		return addr.String()
	}
	return ""
}

func satoshis(v int64) uint64 {
	if v < 0 {
		return 0
	}
	return uint64(v)
}

func tokenFromPB(s *pb.SlpToken) *types.TokenData {
	if s == nil {
		return nil
	}
	td := &types.TokenData{
		Amount:    s.GetAmount(),
		Type:      uint8(s.GetTokenType()),
		MintBaton: s.GetIsMintBaton(),
	}
	// Token IDs are carried in display order. A bad length leaves the ID
	// zero, which the ledger rejects.
	copy(td.ID[:], s.GetTokenId())
	if len(s.GetTokenId()) != types.HashSize {
		td.ID = types.TokenID{}
	}
	return td
}

// metadataFromPB maps bchd token metadata onto the token kinds. Unknown
// types yield metadata without details.
func metadataFromPB(m *pb.SlpTokenMetadata) (*token.Metadata, error) {
	id, err := types.HashFromBytes(m.GetTokenId())
	if err != nil {
		return nil, fmt.Errorf("token id: %w", err)
	}
	meta := &token.Metadata{ID: types.TokenID(id)}

	switch token.Kind(m.GetTokenType()) {
	case token.KindFungible:
		if v := m.GetV1Fungible(); v != nil {
			meta.Details = token.Fungible{
				Name:     v.GetTokenName(),
				Ticker:   v.GetTokenTicker(),
				Decimals: uint8(v.GetDecimals()),
			}
		}
	case token.KindNFTGroup:
		if v := m.GetV1Nft1Group(); v != nil {
			meta.Details = token.NFTGroup{
				Name:     v.GetTokenName(),
				Ticker:   v.GetTokenTicker(),
				Decimals: uint8(v.GetDecimals()),
			}
		}
	case token.KindNFTChild:
		if v := m.GetV1Nft1Child(); v != nil {
			child := token.NFTChild{Name: v.GetTokenName(), Ticker: v.GetTokenTicker()}
			copy(child.GroupID[:], v.GetGroupId())
			meta.Details = child
		}
	}
	return meta, nil
}
