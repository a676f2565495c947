package api

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rawblock/ordinal-engine/internal/bitcoin"
	"github.com/rawblock/ordinal-engine/internal/chainindex"
	"github.com/rawblock/ordinal-engine/internal/db"
	"github.com/rawblock/ordinal-engine/internal/scanner"
	"github.com/rawblock/ordinal-engine/pkg/ordinal"
	"github.com/rawblock/ordinal-engine/pkg/rangemanifest"
	"github.com/rawblock/ordinal-engine/pkg/txbuilder"
)

// maxScanBlocks caps the block range for a single indexing job to prevent
// runaway resource exhaustion from unconstrained requests.
const maxScanBlocks int64 = 50_000

type APIHandler struct {
	dbStore      *db.PostgresStore
	btcClient    *bitcoin.Client
	wsHub        *Hub
	rangeScanner *scanner.RangeScanner
	chainStore   *chainindex.Store
}

func SetupRouter(dbStore *db.PostgresStore, btcClient *bitcoin.Client, wsHub *Hub, rangeScanner *scanner.RangeScanner) *gin.Engine {
	r := gin.Default()

	// Enable CORS — configurable via ALLOWED_ORIGINS env var
	// Production: ALLOWED_ORIGINS=https://rawblock.net,https://www.rawblock.net
	// Development: ALLOWED_ORIGINS=http://localhost:3000 (or leave empty for *)
	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if allowedOrigins == "" || allowedOrigins == "*" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		} else {
			for _, allowed := range strings.Split(allowedOrigins, ",") {
				if strings.TrimSpace(allowed) == origin {
					c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
					break
				}
			}
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	var chainStore *chainindex.Store
	if dbStore != nil {
		chainStore = chainindex.NewStore(dbStore, btcClient)
	}

	handler := &APIHandler{
		dbStore:      dbStore,
		btcClient:    btcClient,
		wsHub:        wsHub,
		rangeScanner: rangeScanner,
		chainStore:   chainStore,
	}

	// ── Public endpoints (no auth) ─────────────────────────────
	pub := r.Group("/api/v1")
	{
		pub.GET("/health", handler.handleHealth)
		pub.GET("/stream", wsHub.Subscribe)
		pub.GET("/ordinal/:value", handler.handleParseOrdinal)
		pub.GET("/epochs", handler.handleEpochs)
		pub.GET("/supply", handler.handleSupply)
		pub.GET("/range/:start/:end", handler.handleRange)
		pub.GET("/scan/progress", handler.handleScanProgress)
		pub.GET("/wallet/manifest", handler.handleWalletManifest)
	}

	// ── Protected endpoints (require bearer token if API_AUTH_TOKEN set) ──
	auth := r.Group("/api/v1")
	auth.Use(AuthMiddleware())
	// 10 builds/minute per IP, burst of 3 — each call is an RPC round trip
	// against the node plus, for /scan, a full range-scanner sweep.
	auth.Use(NewRateLimiter(10, 3).Middleware())
	{
		auth.POST("/tx/build", handler.handleBuildTransaction)
		auth.GET("/tx/build/:buildId", handler.handleGetBuiltTransaction)
		auth.POST("/scan", handler.handleStartScan)
	}

	// Serve Static Dashboard
	r.Static("/dashboard", "./public")

	return r
}

// handleParseOrdinal accepts any of the four textual identifier forms (or a
// bare integer) and returns every representation plus its rarity class.
func (h *APIHandler) handleParseOrdinal(c *gin.Context) {
	id, err := ordinal.Parse(c.Param("value"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"integer":    id.N(),
		"name":       id.Name(),
		"decimal":    id.Decimal().String(),
		"degree":     id.Degree().String(),
		"percentile": id.Percentile(),
		"height":     uint64(id.Height()),
		"epoch":      uint64(id.Epoch()),
		"period":     id.Period(),
		"cycle":      id.Cycle(),
		"rarity":     id.Rarity().String(),
		"isCommon":   id.IsCommon(),
	})
}

// handleEpochs enumerates every halving epoch's starting height, starting
// identifier, and size, stopping once the subsidy has fully exhausted.
func (h *APIHandler) handleEpochs(c *gin.Context) {
	type epochRow struct {
		Epoch              uint64 `json:"epoch"`
		StartingHeight     uint64 `json:"startingHeight"`
		StartingIdentifier uint64 `json:"startingIdentifier"`
		Size               uint64 `json:"size"`
	}

	var rows []epochRow
	for e := ordinal.Epoch(0); ; e++ {
		size := e.Size()
		if size == 0 {
			break
		}
		rows = append(rows, epochRow{
			Epoch:              uint64(e),
			StartingHeight:     uint64(e.StartingHeight()),
			StartingIdentifier: uint64(e.StartingIdentifier()),
			Size:               size,
		})
	}

	c.JSON(http.StatusOK, gin.H{"epochs": rows})
}

// handleSupply recomputes the total supply from the subsidy schedule and
// reports whether it matches the documented constant.
func (h *APIHandler) handleSupply(c *gin.Context) {
	var total uint64
	for e := ordinal.Epoch(0); ; e++ {
		size := e.Size()
		if size == 0 {
			break
		}
		total += size
	}

	c.JSON(http.StatusOK, gin.H{
		"computed": total,
		"expected": ordinal.Supply,
		"matches":  total == ordinal.Supply,
	})
}

// handleRange describes a half-open identifier range: its value in atomic
// units and the rarity of its first identifier.
func (h *APIHandler) handleRange(c *gin.Context) {
	start, err1 := strconv.ParseUint(c.Param("start"), 10, 64)
	end, err2 := strconv.ParseUint(c.Param("end"), 10, 64)
	if err1 != nil || err2 != nil || start >= end {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid range: expected start < end"})
		return
	}

	r := rangemanifest.Range{Start: start, End: end}
	c.JSON(http.StatusOK, gin.H{
		"start":  start,
		"end":    end,
		"value":  r.Size(),
		"rarity": ordinal.Identifier(start).Rarity().String(),
	})
}

// handleWalletManifest resolves every UTXO held by the given addresses to
// its recorded identifier ranges — the exact shape the builder consumes.
// GET /api/v1/wallet/manifest?address=tb1...&address=tb1...
func (h *APIHandler) handleWalletManifest(c *gin.Context) {
	if h.chainStore == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "range index not connected"})
		return
	}

	addresses := c.QueryArray("address")
	if len(addresses) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "at least one address query parameter is required"})
		return
	}

	outpoints, err := h.chainStore.OwnedOutpoints(addresses)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	manifest, err := h.chainStore.Manifest(c.Request.Context(), outpoints)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	type entryView struct {
		OutPoint string                `json:"outpoint"`
		Ranges   []rangemanifest.Range `json:"ranges"`
		Value    uint64                `json:"value"`
		Cardinal bool                  `json:"cardinal"`
	}
	rows := make([]entryView, 0, len(manifest))
	for _, e := range manifest {
		rows = append(rows, entryView{
			OutPoint: e.OutPoint.String(),
			Ranges:   e.Ranges,
			Value:    e.Value(),
			Cardinal: e.IsCardinal(),
		})
	}

	c.JSON(http.StatusOK, gin.H{"utxos": rows})
}

// handleHealth returns engine status for service discovery.
func (h *APIHandler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":       "operational",
		"engine":       "ordinal-engine",
		"dbConnected":  h.dbStore != nil,
		"rpcConnected": h.btcClient != nil,
	})
}

// handleScanProgress returns the current progress of the range scanner.
func (h *APIHandler) handleScanProgress(c *gin.Context) {
	if h.rangeScanner == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "range scanner not initialized"})
		return
	}
	c.JSON(http.StatusOK, h.rangeScanner.GetProgress())
}

// handleStartScan launches a range-index scan over [startHeight, endHeight].
// POST /api/v1/scan { "startHeight": 0, "endHeight": 2016 }
func (h *APIHandler) handleStartScan(c *gin.Context) {
	if h.rangeScanner == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "range scanner not initialized"})
		return
	}

	var req struct {
		StartHeight int64 `json:"startHeight"`
		EndHeight   int64 `json:"endHeight"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body. expected: {startHeight, endHeight}"})
		return
	}

	if req.StartHeight < 0 || req.EndHeight < 0 || req.StartHeight > req.EndHeight {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid block range"})
		return
	}
	if req.EndHeight-req.StartHeight > maxScanBlocks {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "block range too large",
			"maxBlocks": maxScanBlocks,
			"hint":      "split into multiple smaller requests",
		})
		return
	}

	if h.btcClient != nil {
		if chainTip, err := h.btcClient.RPC.GetBlockCount(); err == nil && req.EndHeight > chainTip {
			req.EndHeight = chainTip
		}
	}

	h.rangeScanner.ScanRange(context.Background(), req.StartHeight, req.EndHeight)

	c.JSON(http.StatusOK, gin.H{
		"status":      "scan_started",
		"startHeight": req.StartHeight,
		"endHeight":   req.EndHeight,
		"totalBlocks": req.EndHeight - req.StartHeight + 1,
	})
}

// buildRequest is the wire shape for POST /api/v1/tx/build. Ranges maps each
// wallet-owned outpoint ("txid:vout") to its ordered, disjoint identifier
// ranges.
type buildRequest struct {
	Ranges    map[string][][2]uint64 `json:"ranges"`
	Ordinal   uint64                 `json:"ordinal"`
	Recipient string                 `json:"recipient"`
	Change    []string               `json:"change"`
}

// handleBuildTransaction runs the range/ordinal/recipient/change inputs
// through the transaction builder and returns the constructed transaction,
// or one of the four typed builder errors.
func (h *APIHandler) handleBuildTransaction(c *gin.Context) {
	var req buildRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	params := bitcoin.NetParamsFromEnv()

	recipient, err := btcutil.DecodeAddress(req.Recipient, params)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid recipient address: " + err.Error()})
		return
	}

	change := make([]btcutil.Address, 0, len(req.Change))
	for _, addr := range req.Change {
		decoded, err := btcutil.DecodeAddress(addr, params)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid change address " + addr + ": " + err.Error()})
			return
		}
		change = append(change, decoded)
	}

	manifest, err := decodeManifest(req.Ranges)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tx, err := txbuilder.BuildTransaction(manifest, req.Ordinal, recipient, change)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rawHex, err := serializeTx(tx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	buildID := uuid.New()
	if h.dbStore != nil {
		if err := h.dbStore.SaveBuiltTransaction(c.Request.Context(), tx, buildID, req.Ordinal, req.Recipient, rawHex); err != nil {
			// Non-fatal: the transaction is still valid even if the audit log fails.
			c.Header("X-Persist-Warning", err.Error())
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"buildId": buildID.String(),
		"txid":    tx.TxHash().String(),
		"hex":     rawHex,
	})
}

// handleGetBuiltTransaction re-fetches a previously built transaction by its
// build correlation ID, letting a client that lost the original response
// recover it without re-running the builder.
func (h *APIHandler) handleGetBuiltTransaction(c *gin.Context) {
	if h.dbStore == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "database not connected"})
		return
	}

	buildID, err := uuid.Parse(c.Param("buildId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid build id"})
		return
	}

	txid, rawHex, err := h.dbStore.BuiltTransactionByBuildID(c.Request.Context(), buildID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no transaction found for build id"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"buildId": buildID.String(),
		"txid":    txid,
		"hex":     rawHex,
	})
}

func serializeTx(tx *wire.MsgTx) (string, error) {
	var buf bytes.Buffer
	if err := tx.Serialize(&buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf.Bytes()), nil
}

func decodeManifest(ranges map[string][][2]uint64) (rangemanifest.Manifest, error) {
	manifest := make(rangemanifest.Manifest, 0, len(ranges))
	for key, pairs := range ranges {
		op, err := decodeOutPoint(key)
		if err != nil {
			return nil, err
		}
		entryRanges := make([]rangemanifest.Range, 0, len(pairs))
		for _, pair := range pairs {
			entryRanges = append(entryRanges, rangemanifest.Range{Start: pair[0], End: pair[1]})
		}
		manifest = append(manifest, rangemanifest.Entry{OutPoint: op, Ranges: entryRanges})
	}
	if err := manifest.Validate(); err != nil {
		return nil, err
	}
	return manifest, nil
}

func decodeOutPoint(s string) (wire.OutPoint, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return wire.OutPoint{}, errors.New("outpoint must be formatted txid:vout")
	}
	hash, err := chainhash.NewHashFromStr(parts[0])
	if err != nil {
		return wire.OutPoint{}, err
	}
	index, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return wire.OutPoint{}, errors.New("invalid output index in outpoint " + s)
	}
	return wire.OutPoint{Hash: *hash, Index: uint32(index)}, nil
}
