package token

import (
	"context"

	"github.com/Klingon-tech/slpwallet/internal/log"
	"github.com/Klingon-tech/slpwallet/pkg/types"
)

// Fetcher looks up metadata for a set of tokens. Tokens the backend does
// not know are absent from the result.
type Fetcher interface {
	FetchTokenMetadata(ctx context.Context, ids []types.TokenID) (map[types.TokenID]*Metadata, error)
}

// CachedFetcher serves metadata from a Store and asks the wrapped Fetcher
// only for tokens the store has not seen, persisting what comes back.
type CachedFetcher struct {
	store *Store
	next  Fetcher
}

// NewCachedFetcher wraps next with a persistent cache.
func NewCachedFetcher(store *Store, next Fetcher) *CachedFetcher {
	return &CachedFetcher{store: store, next: next}
}

// FetchTokenMetadata implements Fetcher.
func (c *CachedFetcher) FetchTokenMetadata(ctx context.Context, ids []types.TokenID) (map[types.TokenID]*Metadata, error) {
	out := make(map[types.TokenID]*Metadata, len(ids))
	var missing []types.TokenID
	for _, id := range ids {
		meta, err := c.store.Get(id)
		if err != nil {
			missing = append(missing, id)
			continue
		}
		out[id] = meta
	}
	if len(missing) == 0 {
		return out, nil
	}

	fetched, err := c.next.FetchTokenMetadata(ctx, missing)
	if err != nil {
		return out, err
	}
	for id, meta := range fetched {
		out[id] = meta
		// Unknown kinds are retried on the next request.
		if !meta.Kind().Valid() {
			continue
		}
		if err := c.store.Put(meta); err != nil {
			log.Token.Warn().Err(err).Str("token", id.String()).Msg("Failed to persist token metadata")
		}
	}
	return out, nil
}
