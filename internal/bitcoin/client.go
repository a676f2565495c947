package bitcoin

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/btcsuite/btcd/btcjson"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/rpcclient"
)

// Client wraps a Bitcoin Core JSON-RPC connection with the watch-only wallet
// machinery the range scanner and the wallet-manifest endpoint need: reading
// raw blocks and transactions by hash, and resolving a set of addresses to
// their current UTXOs.
type Client struct {
	RPC       *rpcclient.Client
	WalletRPC *rpcclient.Client
	Config    Config
}

type Config struct {
	Host   string
	User   string
	Pass   string
	Params *chaincfg.Params
}

// NetParamsFromEnv selects the address network from BITCOIN_NETWORK,
// defaulting to testnet.
func NetParamsFromEnv() *chaincfg.Params {
	switch os.Getenv("BITCOIN_NETWORK") {
	case "mainnet":
		return &chaincfg.MainNetParams
	case "regtest":
		return &chaincfg.RegressionNetParams
	default:
		return &chaincfg.TestNet3Params
	}
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.Params == nil {
		cfg.Params = NetParamsFromEnv()
	}

	connCfg := &rpcclient.ConnConfig{
		Host:         cfg.Host,
		User:         cfg.User,
		Pass:         cfg.Pass,
		HTTPPostMode: true, // Bitcoin Core only supports HTTP POST mode
		DisableTLS:   true, // Assuming local node without TLS for this setup
	}

	log.Printf("Connecting to Bitcoin RPC at %s...", cfg.Host)
	client, err := rpcclient.New(connCfg, nil)
	if err != nil {
		return nil, err
	}

	// Verify connection
	blockCount, err := client.GetBlockCount()
	if err != nil {
		client.Shutdown()
		return nil, err
	}

	log.Printf("Connected to Bitcoin Node. Current Block Height: %d", blockCount)

	c := &Client{RPC: client, Config: cfg}

	// Ensure a wallet is loaded for watch-only operations
	if err := c.InitializeWallet(); err != nil {
		log.Printf("Warning: Failed to initialize wallet: %v. Watch-only features might fail.", err)
	} else {
		log.Println("Wallet initialized successfully.")
	}

	return c, nil
}

func (c *Client) Shutdown() {
	c.RPC.Shutdown()
}

// GetRawTransaction returns the verbose (decoded vin/vout) form of a
// confirmed transaction — what the range scanner needs to allocate ranges
// across its inputs and outputs.
func (c *Client) GetRawTransaction(txHash *chainhash.Hash) (*btcjson.TxRawResult, error) {
	return c.RPC.GetRawTransactionVerbose(txHash)
}

func (c *Client) GetBlockVerbose(blockHash *chainhash.Hash) (*btcjson.GetBlockVerboseResult, error) {
	return c.RPC.GetBlockVerbose(blockHash)
}

func (c *Client) GetBlockHash(blockHeight int64) (*chainhash.Hash, error) {
	return c.RPC.GetBlockHash(blockHeight)
}

// --- Wallet Management ---
//
// The node tracks wallet-owned outputs through a single watch-only
// descriptor wallet (importdescriptors is only available on descriptor
// wallets). ListUnspent only finds
// an address once it has been imported into that wallet, so OwnedOutpoints
// imports on every call — importdescriptors is idempotent, so re-importing
// an already-watched address is a cheap no-op.

func (c *Client) CreateWallet(name string) error {
	// Explicit DESCRIPTOR wallet (descriptors=true): ImportAddress watches
	// addresses via importdescriptors, which a legacy wallet rejects.
	// createwallet "name" disable_private_keys blank passphrase avoid_reuse descriptors load_on_startup
	params := []interface{}{
		name,  // name
		true,  // disable_private_keys
		false, // blank
		"",    // passphrase
		false, // avoid_reuse
		true,  // descriptors
		true,  // load_on_startup
	}

	rawParams := make([]json.RawMessage, len(params))
	for i, v := range params {
		marshaled, err := json.Marshal(v)
		if err != nil {
			return err
		}
		rawParams[i] = marshaled
	}

	_, err := c.RPC.RawRequest("createwallet", rawParams)
	return err
}

func (c *Client) LoadWallet(name string) error {
	_, err := c.RPC.LoadWallet(name)
	return err
}

func (c *Client) ListWallets() ([]string, error) {
	rawResp, err := c.RPC.RawRequest("listwallets", nil)
	if err != nil {
		return nil, err
	}

	var wallets []string
	if err := json.Unmarshal(rawResp, &wallets); err != nil {
		return nil, err
	}
	return wallets, nil
}

const watchWalletName = "ordinal_engine_watch"

// InitializeWallet ensures the watch-only wallet exists and is loaded.
func (c *Client) InitializeWallet() error {
	wallets, err := c.ListWallets()
	if err != nil {
		return err
	}

	for _, w := range wallets {
		if w == watchWalletName || w == "" { // "" is default wallet
			return nil
		}
	}

	if err := c.LoadWallet(watchWalletName); err != nil {
		// Load failed: assume it doesn't exist yet and create it.
		if err := c.CreateWallet(watchWalletName); err != nil {
			return err
		}
	}

	walletConnCfg := &rpcclient.ConnConfig{
		Host:         c.Config.Host + "/wallet/" + watchWalletName,
		User:         c.Config.User,
		Pass:         c.Config.Pass,
		HTTPPostMode: true,
		DisableTLS:   true,
	}

	walletClient, err := rpcclient.New(walletConnCfg, nil)
	if err != nil {
		return err
	}
	c.WalletRPC = walletClient
	return nil
}

type descriptorImportRequest struct {
	Desc      string      `json:"desc"`
	Active    bool        `json:"active"`
	Timestamp interface{} `json:"timestamp"` // "now" or 0
	Label     string      `json:"label"`
}

// ImportAddress adds address to the watch-only wallet via importdescriptors,
// without a rescan — the range scanner, not the wallet, is the source of
// truth for historical ranges, so the wallet only needs to see new activity
// from the moment it starts watching.
func (c *Client) ImportAddress(address string, label string) error {
	client := c.RPC
	if c.WalletRPC != nil {
		client = c.WalletRPC
	}

	descStr := "addr(" + address + ")"
	descParam, err := json.Marshal(descStr)
	if err != nil {
		return err
	}

	resp, err := client.RawRequest("getdescriptorinfo", []json.RawMessage{descParam})
	if err != nil {
		return err
	}

	var info struct {
		Descriptor string `json:"descriptor"` // canonical desc with checksum
	}
	if err := json.Unmarshal(resp, &info); err != nil {
		return err
	}

	req := descriptorImportRequest{
		Desc:      info.Descriptor,
		Active:    false, // addr() is not solvable, so it cannot be an active descriptor
		Timestamp: "now",
		Label:     label,
	}

	reqBytes, err := json.Marshal([]descriptorImportRequest{req})
	if err != nil {
		return err
	}

	_, err = client.RawRequest("importdescriptors", []json.RawMessage{reqBytes})
	return err
}

// ListUnspent returns watch-only UTXOs for the given addresses.
func (c *Client) ListUnspent(addresses []string) ([]btcjson.ListUnspentResult, error) {
	decodedAddrs := make([]btcutil.Address, 0, len(addresses))
	for _, addr := range addresses {
		decoded, err := btcutil.DecodeAddress(addr, c.Config.Params)
		if err != nil {
			return nil, fmt.Errorf("bitcoin: decoding address %s: %w", addr, err)
		}
		decodedAddrs = append(decodedAddrs, decoded)
	}

	client := c.RPC
	if c.WalletRPC != nil {
		client = c.WalletRPC
	}
	return client.ListUnspentMinMaxAddresses(0, 9999999, decodedAddrs)
}
