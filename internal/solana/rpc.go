package solana

import "context"

// RPCClient defines the read-only Solana JSON-RPC surface the backfill
// engine needs: signature discovery and full transaction fetch.
type RPCClient interface {
	// GetTransaction retrieves a transaction by signature. Returns nil, nil
	// if the transaction is not known to the node.
	GetTransaction(ctx context.Context, signature string) (*Transaction, error)

	// GetSignaturesForAddress retrieves signatures mentioning address, most
	// recent first, honoring opts for pagination.
	GetSignaturesForAddress(ctx context.Context, address string, opts *SignaturesOpts) ([]SignatureInfo, error)

	// GetBlockTime retrieves the estimated production time of a slot.
	GetBlockTime(ctx context.Context, slot int64) (*int64, error)
}

// Transaction represents a Solana transaction as needed for event scanning.
type Transaction struct {
	Slot      int64
	Signature string
	BlockTime int64 // Unix timestamp (seconds), 0 if unknown
	Meta      *TransactionMeta
}

// TransactionMeta contains the parts of transaction metadata event
// extraction cares about.
type TransactionMeta struct {
	Err         interface{}
	LogMessages []string
}
