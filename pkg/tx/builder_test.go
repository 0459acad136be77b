package tx

import (
	"bytes"
	"testing"

	"github.com/Klingon-tech/slpwallet/pkg/crypto"
	"github.com/Klingon-tech/slpwallet/pkg/types"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
)

func testKey(t *testing.T) (*crypto.PrivateKey, []byte) {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	script, err := PayToAddrScript(crypto.AddressFromPubKey(key.PublicKey()))
	if err != nil {
		t.Fatalf("PayToAddrScript: %v", err)
	}
	return key, script
}

func TestBuilder_SignVerify(t *testing.T) {
	key, script := testKey(t)

	b := NewBuilder()
	b.AddInput(types.Outpoint{TxID: types.Hash{0x01}, Index: 0}, script, 100000)
	b.AddInput(types.Outpoint{TxID: types.Hash{0x02}, Index: 3}, script, 2000)
	b.AddOutput(wire.NewTxOut(50000, script))

	if err := b.Sign(key); err != nil {
		t.Fatalf("Sign: %v", err)
	}

	for i, in := range b.MsgTx().TxIn {
		pushes, err := txscript.PushedData(in.SignatureScript)
		if err != nil {
			t.Fatalf("input %d: PushedData: %v", i, err)
		}
		if len(pushes) != 2 {
			t.Fatalf("input %d: got %d pushes, want 2", i, len(pushes))
		}
		sig, pub := pushes[0], pushes[1]
		if sig[len(sig)-1] != 0x41 {
			t.Errorf("input %d: hash type = %#x, want 0x41", i, sig[len(sig)-1])
		}
		if !bytes.Equal(pub, key.PublicKey()) {
			t.Errorf("input %d: wrong pubkey pushed", i)
		}
		digest, err := b.SignatureHash(i)
		if err != nil {
			t.Fatalf("input %d: SignatureHash: %v", i, err)
		}
		if !crypto.VerifySignature(digest, sig[:len(sig)-1], pub) {
			t.Errorf("input %d: signature does not verify", i)
		}
	}
}

func TestBuilder_SignatureHash_CommitsToAmount(t *testing.T) {
	_, script := testKey(t)
	op := types.Outpoint{TxID: types.Hash{0x09}, Index: 1}

	a := NewBuilder().AddInput(op, script, 1000).AddOutput(wire.NewTxOut(500, script))
	b := NewBuilder().AddInput(op, script, 1001).AddOutput(wire.NewTxOut(500, script))

	ha, err := a.SignatureHash(0)
	if err != nil {
		t.Fatal(err)
	}
	hb, err := b.SignatureHash(0)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(ha, hb) {
		t.Error("digest should commit to the spent amount")
	}
}

func TestBuilder_Sign_WrongKey(t *testing.T) {
	_, script := testKey(t)
	other, _ := testKey(t)

	b := NewBuilder()
	b.AddInput(types.Outpoint{TxID: types.Hash{0x01}}, script, 1000)
	b.AddOutput(wire.NewTxOut(500, script))

	if err := b.Sign(other); err == nil {
		t.Fatal("signing with a foreign key should fail")
	}
}

func TestBuilder_SignatureHash_OutOfRange(t *testing.T) {
	b := NewBuilder()
	if _, err := b.SignatureHash(0); err == nil {
		t.Error("expected error for missing input")
	}
}

func TestBuilder_Serialize(t *testing.T) {
	key, script := testKey(t)
	op := types.Outpoint{TxID: types.Hash{0xaa, 0xbb}, Index: 7}

	b := NewBuilder().AddInput(op, script, 3000).AddOutput(wire.NewTxOut(2000, script))
	if err := b.Sign(key); err != nil {
		t.Fatalf("Sign: %v", err)
	}
	raw, err := b.Serialize()
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}

	var decoded wire.MsgTx
	if err := decoded.Deserialize(bytes.NewReader(raw)); err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if decoded.Version != TxVersion {
		t.Errorf("version = %d", decoded.Version)
	}
	prev := decoded.TxIn[0].PreviousOutPoint
	if !bytes.Equal(prev.Hash[:], op.TxID.WireBytes()) || prev.Index != 7 {
		t.Errorf("prevout = %v", prev)
	}
	if crypto.TxID(raw).String() != decoded.TxHash().String() {
		t.Errorf("TxID = %s, wire TxHash = %s", crypto.TxID(raw), decoded.TxHash())
	}
}
