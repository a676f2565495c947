// Package scanner walks confirmed blocks and assigns identifier ranges to
// every output, persisting the growing range index as it goes.
package scanner

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"github.com/btcsuite/btcd/btcjson"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/rawblock/ordinal-engine/internal/bitcoin"
	"github.com/rawblock/ordinal-engine/internal/db"
	"github.com/rawblock/ordinal-engine/pkg/ordinal"
	"github.com/rawblock/ordinal-engine/pkg/rangemanifest"
)

// RangeScanner iterates confirmed blocks and allocates identifier ranges to
// every output: the coinbase output receives the block's subsidy plus every
// fee collected from the block's other transactions, and every other output
// receives a prefix of its transaction's concatenated input ranges.
type RangeScanner struct {
	btcClient *bitcoin.Client
	dbStore   *db.PostgresStore
	alertFunc func(BlockIndexedEvent)

	currentHeight atomic.Int64
	blocksScanned atomic.Int64
	isRunning     atomic.Bool
}

// BlockIndexedEvent is emitted once a block's ranges have been committed.
type BlockIndexedEvent struct {
	Height       int64  `json:"height"`
	Hash         string `json:"hash"`
	Transactions int    `json:"transactions"`
	Timestamp    string `json:"timestamp"`
}

// ScanProgress reports the scanner's current state for the API.
type ScanProgress struct {
	IsRunning     bool  `json:"isRunning"`
	CurrentHeight int64 `json:"currentHeight"`
	BlocksScanned int64 `json:"blocksScanned"`
}

func NewRangeScanner(btcClient *bitcoin.Client, dbStore *db.PostgresStore, alertFunc func(BlockIndexedEvent)) *RangeScanner {
	return &RangeScanner{
		btcClient: btcClient,
		dbStore:   dbStore,
		alertFunc: alertFunc,
	}
}

func (s *RangeScanner) GetProgress() ScanProgress {
	return ScanProgress{
		IsRunning:     s.isRunning.Load(),
		CurrentHeight: s.currentHeight.Load(),
		BlocksScanned: s.blocksScanned.Load(),
	}
}

// ScanRange indexes a height range asynchronously. Heights must be scanned
// in order from the index's current tip for the range arithmetic to stay
// correct — an input's ranges must already be recorded before the block
// that spends it is processed.
func (s *RangeScanner) ScanRange(ctx context.Context, startHeight, endHeight int64) {
	if s.isRunning.Load() {
		log.Println("[RangeScanner] scan already in progress, ignoring duplicate request")
		return
	}

	s.isRunning.Store(true)
	s.blocksScanned.Store(0)

	go func() {
		defer s.isRunning.Store(false)

		log.Printf("[RangeScanner] indexing blocks %d -> %d (%d blocks)",
			startHeight, endHeight, endHeight-startHeight+1)

		for height := startHeight; height <= endHeight; height++ {
			select {
			case <-ctx.Done():
				log.Printf("[RangeScanner] scan cancelled at block %d", height)
				return
			default:
			}

			s.currentHeight.Store(height)
			if err := s.indexBlock(ctx, height); err != nil {
				log.Printf("[RangeScanner] error indexing block %d: %v", height, err)
				return
			}
			s.blocksScanned.Add(1)
		}

		log.Printf("[RangeScanner] scan complete: %d blocks indexed", s.blocksScanned.Load())
	}()
}

// indexBlock allocates ranges for every output in height's block and
// commits them, along with the new index tip, to the store.
func (s *RangeScanner) indexBlock(ctx context.Context, height int64) error {
	hash, err := s.btcClient.RPC.GetBlockHash(height)
	if err != nil {
		return err
	}

	block, err := s.btcClient.GetBlockVerbose(hash)
	if err != nil {
		return err
	}
	if len(block.Tx) == 0 {
		return nil
	}

	var feeRanges []rangemanifest.Range

	for _, txidStr := range block.Tx[1:] {
		txHash, err := chainhash.NewHashFromStr(txidStr)
		if err != nil {
			continue
		}
		rawTx, err := s.btcClient.GetRawTransaction(txHash)
		if err != nil {
			return err
		}

		inputRanges, err := s.consumeInputs(ctx, rawTx.Vin)
		if err != nil {
			return err
		}

		leftover, err := s.allocateOutputs(ctx, *txHash, rawTx.Vout, inputRanges)
		if err != nil {
			return err
		}
		feeRanges = append(feeRanges, leftover...)
	}

	coinbaseHash, err := chainhash.NewHashFromStr(block.Tx[0])
	if err != nil {
		return err
	}
	coinbaseTx, err := s.btcClient.GetRawTransaction(coinbaseHash)
	if err != nil {
		return err
	}

	subsidy := ordinal.Height(height).Subsidy()
	var coinbaseRanges []rangemanifest.Range
	if subsidy > 0 {
		start := uint64(ordinal.Height(height).StartingIdentifier())
		coinbaseRanges = append(coinbaseRanges, rangemanifest.Range{Start: start, End: start + subsidy})
	}
	coinbaseRanges = append(coinbaseRanges, feeRanges...)

	if _, err := s.allocateOutputs(ctx, *coinbaseHash, coinbaseTx.Vout, coinbaseRanges); err != nil {
		return err
	}

	if err := s.dbStore.SaveIndexedHeight(ctx, height, hash.String()); err != nil {
		return err
	}

	if s.alertFunc != nil {
		s.alertFunc(BlockIndexedEvent{
			Height:       height,
			Hash:         hash.String(),
			Transactions: len(block.Tx),
			Timestamp:    time.Now().Format(time.RFC3339),
		})
	}
	return nil
}

// consumeInputs looks up the recorded ranges for every input of a
// transaction, in input order, and deletes them from the store — their
// ranges now belong to this transaction's outputs instead.
func (s *RangeScanner) consumeInputs(ctx context.Context, vin []btcjson.Vin) ([]rangemanifest.Range, error) {
	var ranges []rangemanifest.Range
	for _, in := range vin {
		if in.Txid == "" {
			continue // coinbase input of a non-coinbase tx cannot happen; defensive only
		}
		prevHash, err := chainhash.NewHashFromStr(in.Txid)
		if err != nil {
			continue
		}
		op := wire.OutPoint{Hash: *prevHash, Index: in.Vout}

		manifest, err := s.dbStore.GetOutputRanges(ctx, []wire.OutPoint{op})
		if err != nil {
			return nil, err
		}
		if len(manifest) == 1 {
			ranges = append(ranges, manifest[0].Ranges...)
		}
		if err := s.dbStore.DeleteOutputRanges(ctx, op); err != nil {
			return nil, err
		}
	}
	return ranges, nil
}

// allocateOutputs hands out a prefix of ranges to each output in turn,
// sized to the output's satoshi value, and persists the result. It returns
// whatever ranges are left over once every output has been satisfied — the
// transaction's fee, for a non-coinbase transaction.
func (s *RangeScanner) allocateOutputs(ctx context.Context, txHash chainhash.Hash, vout []btcjson.Vout, ranges []rangemanifest.Range) ([]rangemanifest.Range, error) {
	remaining := ranges
	for _, out := range vout {
		amount, err := btcToSatoshi(out.Value)
		if err != nil {
			return nil, err
		}
		if amount == 0 {
			continue
		}

		taken, rest, ok := rangemanifest.Take(remaining, amount)
		if !ok {
			// Fewer ordinal-bearing sats available than this output claims —
			// the index has a gap upstream (e.g. it did not start at
			// genesis). Leave the rest of this transaction's outputs empty
			// rather than misattributing ranges.
			break
		}
		remaining = rest

		if len(taken) == 0 {
			continue
		}
		op := wire.OutPoint{Hash: txHash, Index: out.N}
		if err := s.dbStore.SaveOutputRanges(ctx, op, taken); err != nil {
			return nil, err
		}
	}
	return remaining, nil
}

func btcToSatoshi(btc float64) (uint64, error) {
	amt, err := btcutil.NewAmount(btc)
	if err != nil {
		return 0, err
	}
	if amt < 0 {
		return 0, nil
	}
	return uint64(amt), nil
}
