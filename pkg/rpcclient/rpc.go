package rpcclient

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// This file holds typed convenience wrappers over Call for the common node
// methods. Every wrapper consumes its Result through Await, so blocking
// callers (background context) and suspend-style callers (cancellable
// context) both get the behavior their context asks for.

// BlockchainInfo is a reply to the getblockchaininfo method.
type BlockchainInfo struct {
	Chain         string  `json:"chain"`
	Blocks        uint64  `json:"blocks"`
	Headers       uint64  `json:"headers"`
	BestBlockHash string  `json:"bestblockhash"`
	Difficulty    float64 `json:"difficulty"`
}

// NetworkInfo is a reply to the getnetworkinfo method.
type NetworkInfo struct {
	Version     int64  `json:"version"`
	Subversion  string `json:"subversion"`
	Connections int    `json:"connections"`
}

// MempoolInfo is a reply to the getmempoolinfo method.
type MempoolInfo struct {
	Size  uint64 `json:"size"`
	Bytes uint64 `json:"bytes"`
}

// AssetData describes one Evrmore asset as returned by getassetdata.
type AssetData struct {
	Name       string  `json:"name"`
	Amount     float64 `json:"amount"`
	Units      int     `json:"units"`
	Reissuable int     `json:"reissuable"`
	HasIPFS    int     `json:"has_ipfs"`
	IPFSHash   string  `json:"ipfs_hash,omitempty"`
}

// AddressInfo is a reply to the validateaddress method.
type AddressInfo struct {
	IsValid      bool   `json:"isvalid"`
	Address      string `json:"address"`
	ScriptPubKey string `json:"scriptPubKey,omitempty"`
}

func (c *Client) performRequest(ctx context.Context, method string, p []any, v any) error {
	if ctx == nil {
		ctx = c.ctx
	}
	return c.Call(ctx, method, p...).AwaitInto(ctx, v)
}

// GetBlockCount returns the height of the most-work fully-validated chain.
func (c *Client) GetBlockCount(ctx context.Context) (uint64, error) {
	var resp uint64
	if err := c.performRequest(ctx, "getblockcount", nil, &resp); err != nil {
		return resp, err
	}
	return resp, nil
}

// GetBestBlockHash returns the hash of the tip of the best chain.
func (c *Client) GetBestBlockHash(ctx context.Context) (string, error) {
	var resp string
	if err := c.performRequest(ctx, "getbestblockhash", nil, &resp); err != nil {
		return resp, err
	}
	return resp, nil
}

// GetBlockHash returns the hash of the block at the given height.
func (c *Client) GetBlockHash(ctx context.Context, height uint64) (string, error) {
	var resp string
	if err := c.performRequest(ctx, "getblockhash", []any{height}, &resp); err != nil {
		return resp, err
	}
	return resp, nil
}

// GetBlock returns a block by hash. With verbosity 0 the node responds with
// the serialized block as a hex string, with 1 and 2 with JSON objects of
// increasing detail. The payload is returned raw, its interpretation is the
// caller's business.
func (c *Client) GetBlock(ctx context.Context, hash string, verbosity int) (json.RawMessage, error) {
	var resp json.RawMessage
	if err := c.performRequest(ctx, "getblock", []any{hash, verbosity}, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// GetBlockchainInfo returns the state of the node's best chain.
func (c *Client) GetBlockchainInfo(ctx context.Context) (*BlockchainInfo, error) {
	resp := new(BlockchainInfo)
	if err := c.performRequest(ctx, "getblockchaininfo", nil, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// GetNetworkInfo returns the node's P2P network state.
func (c *Client) GetNetworkInfo(ctx context.Context) (*NetworkInfo, error) {
	resp := new(NetworkInfo)
	if err := c.performRequest(ctx, "getnetworkinfo", nil, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// GetMempoolInfo returns statistics of the node's transaction pool.
func (c *Client) GetMempoolInfo(ctx context.Context) (*MempoolInfo, error) {
	resp := new(MempoolInfo)
	if err := c.performRequest(ctx, "getmempoolinfo", nil, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// GetRawMempool returns the IDs of all transactions in the node's pool.
func (c *Client) GetRawMempool(ctx context.Context) ([]string, error) {
	var resp []string
	if err := c.performRequest(ctx, "getrawmempool", nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// GetRawTransaction returns a transaction by ID, serialized as a hex string
// when verbose is false and as a JSON object when it is true.
func (c *Client) GetRawTransaction(ctx context.Context, txid string, verbose bool) (json.RawMessage, error) {
	var resp json.RawMessage
	if err := c.performRequest(ctx, "getrawtransaction", []any{txid, verbose}, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// SendRawTransaction submits a serialized transaction to the node and
// returns its ID.
func (c *Client) SendRawTransaction(ctx context.Context, hexstr string) (string, error) {
	var resp string
	if err := c.performRequest(ctx, "sendrawtransaction", []any{hexstr}, &resp); err != nil {
		return resp, err
	}
	return resp, nil
}

// ValidateAddress asks the node whether the address is valid.
func (c *Client) ValidateAddress(ctx context.Context, address string) (*AddressInfo, error) {
	resp := new(AddressInfo)
	if err := c.performRequest(ctx, "validateaddress", []any{address}, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// GetAssetData returns metadata of an Evrmore asset.
func (c *Client) GetAssetData(ctx context.Context, name string) (*AssetData, error) {
	resp := new(AssetData)
	if err := c.performRequest(ctx, "getassetdata", []any{name}, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// ListAssets returns assets matching the pattern ("*" for all). The node's
// reply shape depends on verbose, so it is returned raw.
func (c *Client) ListAssets(ctx context.Context, pattern string, verbose bool) (json.RawMessage, error) {
	var resp json.RawMessage
	if err := c.performRequest(ctx, "listassets", []any{pattern, verbose}, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// Uptime returns how long the node has been running.
func (c *Client) Uptime(ctx context.Context) (time.Duration, error) {
	var secs int64
	if err := c.performRequest(ctx, "uptime", nil, &secs); err != nil {
		return 0, err
	}
	return time.Duration(secs) * time.Second, nil
}

// StressResult aggregates the outcome of a Stress run.
type StressResult struct {
	Calls       int
	Failures    int
	Elapsed     time.Duration
	AvgLatency  time.Duration
	CallsPerSec float64
}

// Stress fires numCalls invocations of method at the node with the given
// concurrency and reports throughput figures. Calls carry a cancellable
// context, so an unpinned client routes them through the suspend-mode
// session, the one built for concurrent in-flight calls.
func (c *Client) Stress(ctx context.Context, method string, numCalls, concurrency int) (*StressResult, error) {
	if ctx == nil {
		ctx = c.ctx
	}
	if concurrency < 1 {
		concurrency = 1
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		failures int
		totalLat time.Duration
		jobs     = make(chan struct{})
	)
	start := time.Now()
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range jobs {
				callStart := time.Now()
				_, err := c.Call(ctx, method).Await(ctx)
				mu.Lock()
				totalLat += time.Since(callStart)
				if err != nil {
					failures++
				}
				mu.Unlock()
			}
		}()
	}
	for i := 0; i < numCalls; i++ {
		jobs <- struct{}{}
	}
	close(jobs)
	wg.Wait()

	elapsed := time.Since(start)
	res := &StressResult{
		Calls:    numCalls,
		Failures: failures,
		Elapsed:  elapsed,
	}
	if numCalls > 0 {
		res.AvgLatency = totalLat / time.Duration(numCalls)
		res.CallsPerSec = float64(numCalls) / elapsed.Seconds()
	}
	return res, nil
}
