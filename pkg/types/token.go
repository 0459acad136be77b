package types

// TokenData is the SLP marker bchd attaches to a transaction input or
// output: which token it carries, how many base units and the token type.
type TokenData struct {
	ID     TokenID `json:"id"`
	Amount uint64  `json:"amount"`
	Type   uint8   `json:"type"`
	// MintBaton outputs carry no amount and are not spendable token coins.
	MintBaton bool `json:"mint_baton,omitempty"`
}
