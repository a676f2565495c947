// Package mempool watches the chain tip and keeps the range index current,
// broadcasting new-block and new-epoch notifications over the websocket hub.
package mempool

import (
	"context"
	"log"
	"time"

	"github.com/rawblock/ordinal-engine/internal/api"
	"github.com/rawblock/ordinal-engine/internal/bitcoin"
	"github.com/rawblock/ordinal-engine/internal/scanner"
	"github.com/rawblock/ordinal-engine/pkg/ordinal"
)

// TipEvent is broadcast whenever the watcher observes the chain has grown.
type TipEvent struct {
	Height    int64  `json:"height"`
	Epoch     uint64 `json:"epoch,omitempty"`
	NewEpoch  bool   `json:"newEpoch"`
	Timestamp string `json:"timestamp"`
}

// ChainWatcher polls the node for its current height and, whenever it has
// advanced past the range index's indexed tip, drives the scanner forward
// and broadcasts the result.
type ChainWatcher struct {
	btcClient    *bitcoin.Client
	wsHub        *api.Hub
	rangeScanner *scanner.RangeScanner
	lastEpoch    uint64
	haveEpoch    bool
}

func NewChainWatcher(btcClient *bitcoin.Client, wsHub *api.Hub, rangeScanner *scanner.RangeScanner) *ChainWatcher {
	return &ChainWatcher{
		btcClient:    btcClient,
		wsHub:        wsHub,
		rangeScanner: rangeScanner,
	}
}

// Run polls the node's block count every tick and, on growth, drives the
// range scanner across the new heights and broadcasts a TipEvent.
func (w *ChainWatcher) Run(ctx context.Context, indexedHeight func(context.Context) (int64, error)) {
	if w.btcClient == nil {
		log.Println("[ChainWatcher] Bitcoin client is nil; watcher will not start")
		return
	}

	log.Println("Starting chain tip watcher...")

	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Stopping chain tip watcher...")
			return
		case <-ticker.C:
			w.poll(ctx, indexedHeight)
		}
	}
}

func (w *ChainWatcher) poll(ctx context.Context, indexedHeight func(context.Context) (int64, error)) {
	tip, err := w.btcClient.RPC.GetBlockCount()
	if err != nil {
		log.Printf("[ChainWatcher] error fetching block count: %v", err)
		return
	}

	indexed, err := indexedHeight(ctx)
	if err != nil {
		log.Printf("[ChainWatcher] error reading indexed height: %v", err)
		return
	}

	if tip <= indexed {
		return
	}

	start := indexed + 1
	if indexed == 0 {
		start = 0
	}
	w.rangeScanner.ScanRange(ctx, start, tip)

	epoch := uint64(ordinal.EpochFromHeight(ordinal.Height(tip)))
	newEpoch := w.haveEpoch && epoch != w.lastEpoch
	w.lastEpoch, w.haveEpoch = epoch, true

	if w.wsHub == nil {
		return
	}
	w.wsHub.BroadcastEvent("tip", TipEvent{
		Height:    tip,
		Epoch:     epoch,
		NewEpoch:  newEpoch,
		Timestamp: time.Now().Format(time.RFC3339),
	})
}
