// Package chainindex is the builder's external collaborator: it resolves
// wallet-owned outpoints to their identifier ranges, reports per-script dust
// limits, and measures transaction virtual size. The builder itself neither
// opens nor closes this resource — it is handed a read snapshot for the
// builder's lifetime by the caller.
package chainindex

import (
	"context"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/rawblock/ordinal-engine/internal/bitcoin"
	"github.com/rawblock/ordinal-engine/internal/db"
	"github.com/rawblock/ordinal-engine/pkg/rangemanifest"
	"github.com/rawblock/ordinal-engine/pkg/txbuilder"
)

// Store is a read snapshot over the persisted range index, backed by
// Postgres, with a Bitcoin RPC client available for UTXO discovery.
type Store struct {
	db  *db.PostgresStore
	rpc *bitcoin.Client
}

func NewStore(dbStore *db.PostgresStore, rpc *bitcoin.Client) *Store {
	return &Store{db: dbStore, rpc: rpc}
}

// Height returns the highest block height the range index has fully
// scanned, or 0 if it has not yet indexed anything.
func (s *Store) Height(ctx context.Context) (int64, error) {
	return s.db.IndexedHeight(ctx)
}

// Manifest resolves owned outpoints to their ordered, disjoint identifier
// ranges. Outpoints absent from the index (spent, unindexed, or not
// carrying any range) are simply omitted from the result.
func (s *Store) Manifest(ctx context.Context, ownedOutpoints []wire.OutPoint) (rangemanifest.Manifest, error) {
	return s.db.GetOutputRanges(ctx, ownedOutpoints)
}

// OwnedOutpoints asks the wallet's Bitcoin node for every UTXO controlled by
// the given addresses, as wire.OutPoints ready to hand to Manifest. Each
// address is imported into the node's watch-only wallet first, since
// ListUnspent only ever sees addresses the wallet has been told to watch.
func (s *Store) OwnedOutpoints(addresses []string) ([]wire.OutPoint, error) {
	for _, addr := range addresses {
		if err := s.rpc.ImportAddress(addr, "ordinal-engine"); err != nil {
			return nil, fmt.Errorf("chainindex: watching address %s: %w", addr, err)
		}
	}

	utxos, err := s.rpc.ListUnspent(addresses)
	if err != nil {
		return nil, fmt.Errorf("chainindex: listing unspent: %w", err)
	}

	outpoints := make([]wire.OutPoint, 0, len(utxos))
	for _, u := range utxos {
		hash, err := chainhash.NewHashFromStr(u.TxID)
		if err != nil {
			return nil, fmt.Errorf("chainindex: parsing txid %s: %w", u.TxID, err)
		}
		outpoints = append(outpoints, wire.OutPoint{Hash: *hash, Index: u.Vout})
	}
	return outpoints, nil
}

// DustLimit reports the minimum economically relayable value for an output
// carrying pkScript. A thin pass-through so callers outside pkg/txbuilder
// can reach the same script-class table the builder itself uses.
func DustLimit(pkScript []byte) btcutil.Amount {
	return txbuilder.DustLimit(pkScript)
}

// Vsize reports tx's virtual size under BIP 141 witness discounting:
// weight = stripped_size*3 + total_size, vsize = ceil(weight / 4).
func Vsize(tx *wire.MsgTx) int64 {
	stripped := tx.SerializeSizeStripped()
	total := tx.SerializeSize()
	weight := stripped*3 + total
	return int64((weight + 3) / 4)
}
