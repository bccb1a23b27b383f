// Copyright (C) 2025, NEAR Connect contributors. All rights reserved.
// Licensed under the Apache License, Version 2.0

// Package nearrpc is the thin NEAR JSON-RPC client the signing flows lean
// on: it fetches the access-key nonce and the latest finalized block, and
// broadcasts an already-signed transaction. Nothing here touches the
// device.
package nearrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

// MainnetEndpoint is the default public RPC endpoint.
const MainnetEndpoint = "https://rpc.mainnet.near.org"

// Client talks JSON-RPC 2.0 over HTTP to a NEAR node.
type Client struct {
	endpoint string
	http     *http.Client
}

// NewClient returns a client for the given endpoint. Per-call deadlines
// come from the caller's context; the HTTP client only caps pathological
// hangs.
func NewClient(endpoint string) *Client {
	return &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: 60 * time.Second},
	}
}

type rpcRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      string      `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (e *rpcError) Error() string {
	if len(e.Data) > 0 {
		return "nearrpc: " + e.Message + ": " + string(e.Data)
	}
	return "nearrpc: " + e.Message
}

func (c *Client) call(ctx context.Context, method string, params, result interface{}) error {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      "near-connect",
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return errors.Wrap(err, "marshaling request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "building request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "calling %s", method)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "reading response")
	}
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("nearrpc: %s returned HTTP %d: %s", method, resp.StatusCode, raw)
	}

	var envelope rpcResponse
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return errors.Wrapf(err, "decoding %s response", method)
	}
	if envelope.Error != nil {
		return envelope.Error
	}
	if result == nil {
		return nil
	}
	return errors.Wrapf(json.Unmarshal(envelope.Result, result), "decoding %s result", method)
}

// AccessKeyView is the nonce and permission kind of one access key.
type AccessKeyView struct {
	Nonce       uint64          `json:"nonce"`
	Permission  json.RawMessage `json:"permission"`
	BlockHeight uint64          `json:"block_height"`
	BlockHash   string          `json:"block_hash"`
	// NEAR reports a missing key inside the result rather than as an RPC
	// error.
	Err string `json:"error"`
}

// ViewAccessKey fetches the access key of publicKey on accountID at the
// latest finalized block.
func (c *Client) ViewAccessKey(ctx context.Context, accountID, publicKey string) (*AccessKeyView, error) {
	var view AccessKeyView
	err := c.call(ctx, "query", map[string]interface{}{
		"request_type": "view_access_key",
		"finality":     "final",
		"account_id":   accountID,
		"public_key":   publicKey,
	}, &view)
	if err != nil {
		return nil, err
	}
	if view.Err != "" {
		return nil, errors.Errorf("nearrpc: view_access_key: %s", view.Err)
	}
	return &view, nil
}

// Block is the height and hash of a block header.
type Block struct {
	Height uint64 `json:"height"`
	Hash   string `json:"hash"`
}

// LatestBlock fetches the latest finalized block header.
func (c *Client) LatestBlock(ctx context.Context) (*Block, error) {
	var result struct {
		Header Block `json:"header"`
	}
	err := c.call(ctx, "block", map[string]interface{}{"finality": "final"}, &result)
	if err != nil {
		return nil, err
	}
	return &result.Header, nil
}

// BroadcastTxCommit submits a base64-encoded signed transaction and waits
// for it to be processed. The raw execution outcome is returned for the
// caller to interpret.
func (c *Client) BroadcastTxCommit(ctx context.Context, signedTxBase64 string) (json.RawMessage, error) {
	var outcome json.RawMessage
	err := c.call(ctx, "broadcast_tx_commit", []string{signedTxBase64}, &outcome)
	if err != nil {
		return nil, err
	}
	return outcome, nil
}
