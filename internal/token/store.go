package token

import (
	"encoding/json"
	"fmt"

	"github.com/Klingon-tech/slpwallet/internal/storage"
	"github.com/Klingon-tech/slpwallet/pkg/types"
)

var prefixToken = []byte("t/") // t/<tokenID(32)> -> metadata JSON

// metadataJSON is the stored form of Metadata: a flat record tagged by kind.
type metadataJSON struct {
	Kind     Kind           `json:"kind"`
	Name     string         `json:"name"`
	Ticker   string         `json:"ticker"`
	Decimals uint8          `json:"decimals"`
	GroupID  *types.TokenID `json:"group_id,omitempty"`
}

func encodeMetadata(m *Metadata) metadataJSON {
	j := metadataJSON{Kind: m.Kind()}
	switch d := m.Details.(type) {
	case Fungible:
		j.Name, j.Ticker, j.Decimals = d.Name, d.Ticker, d.Decimals
	case NFTGroup:
		j.Name, j.Ticker, j.Decimals = d.Name, d.Ticker, d.Decimals
	case NFTChild:
		gid := d.GroupID
		j.Name, j.Ticker, j.GroupID = d.Name, d.Ticker, &gid
	}
	return j
}

func decodeMetadata(id types.TokenID, j metadataJSON) *Metadata {
	m := &Metadata{ID: id}
	switch j.Kind {
	case KindFungible:
		m.Details = Fungible{Name: j.Name, Ticker: j.Ticker, Decimals: j.Decimals}
	case KindNFTGroup:
		m.Details = NFTGroup{Name: j.Name, Ticker: j.Ticker, Decimals: j.Decimals}
	case KindNFTChild:
		child := NFTChild{Name: j.Name, Ticker: j.Ticker}
		if j.GroupID != nil {
			child.GroupID = *j.GroupID
		}
		m.Details = child
	}
	return m
}

// MarshalJSON encodes metadata in its flat tagged form.
func (m Metadata) MarshalJSON() ([]byte, error) {
	type withID struct {
		ID types.TokenID `json:"id"`
		metadataJSON
	}
	return json.Marshal(withID{ID: m.ID, metadataJSON: encodeMetadata(&m)})
}

// Store persists token metadata.
type Store struct {
	db storage.DB
}

// NewStore creates a token metadata store.
func NewStore(db storage.DB) *Store {
	return &Store{db: db}
}

// Put stores metadata for a token.
func (s *Store) Put(meta *Metadata) error {
	data, err := json.Marshal(encodeMetadata(meta))
	if err != nil {
		return fmt.Errorf("token marshal: %w", err)
	}
	return s.db.Put(tokenKey(meta.ID), data)
}

// Get retrieves metadata for a token.
func (s *Store) Get(id types.TokenID) (*Metadata, error) {
	data, err := s.db.Get(tokenKey(id))
	if err != nil {
		return nil, fmt.Errorf("token get: %w", err)
	}
	var j metadataJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("token unmarshal: %w", err)
	}
	return decodeMetadata(id, j), nil
}

// Has checks if metadata exists for a token.
func (s *Store) Has(id types.TokenID) (bool, error) {
	return s.db.Has(tokenKey(id))
}

// ForEach iterates over all token metadata entries.
// Return a non-nil error from fn to stop iteration early.
func (s *Store) ForEach(fn func(*Metadata) error) error {
	return s.db.ForEach(prefixToken, func(key, value []byte) error {
		// Key layout: "t/" + tokenID(32).
		if len(key) < len(prefixToken)+types.HashSize {
			return nil // Malformed key, skip.
		}
		var id types.TokenID
		copy(id[:], key[len(prefixToken):])

		var j metadataJSON
		if err := json.Unmarshal(value, &j); err != nil {
			return nil // Skip corrupt entries.
		}
		return fn(decodeMetadata(id, j))
	})
}

// List returns all token metadata entries.
func (s *Store) List() ([]*Metadata, error) {
	entries := []*Metadata{}
	err := s.ForEach(func(meta *Metadata) error {
		entries = append(entries, meta)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func tokenKey(id types.TokenID) []byte {
	key := make([]byte, len(prefixToken)+types.HashSize)
	copy(key, prefixToken)
	copy(key[len(prefixToken):], id[:])
	return key
}
