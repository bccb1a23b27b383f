// Copyright (C) 2025, NEAR Connect contributors. All rights reserved.
// Licensed under the Apache License, Version 2.0

// Package wallet sequences the four user-facing signing operations: it
// encodes payloads with neartx, obtains nonces and block hashes over
// nearrpc, and drives the device through the apdu client, reconnecting
// and reopening the app when the session is gone.
package wallet

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/frol/near-connect-go/internal/logging"
	"github.com/frol/near-connect-go/pkg/apdu"
	"github.com/frol/near-connect-go/pkg/ble"
	"github.com/frol/near-connect-go/pkg/neartx"
	"github.com/frol/near-connect-go/pkg/nearrpc"
)

// delegateWindow is how many blocks past the current height a delegate
// action stays valid.
const delegateWindow = 120

// Link is the transport surface the orchestrator drives.
// *ble.Transport satisfies it.
type Link interface {
	Connected() bool
	Scan(ctx context.Context) error
	Devices() []ble.Advertisement
	Connect(ctx context.Context, identifier string) error
	NegotiateMTU(ctx context.Context) error
	Disconnect() error
}

// Device is the command surface of the hardware wallet. *apdu.Client
// satisfies it.
type Device interface {
	GetPublicKey(ctx context.Context, path apdu.DerivationPath) ([]byte, error)
	Sign(ctx context.Context, payload []byte, path apdu.DerivationPath) ([]byte, error)
	OpenNearApplication(ctx context.Context) error
}

// RPC is the node-facing collaborator. *nearrpc.Client satisfies it.
type RPC interface {
	ViewAccessKey(ctx context.Context, accountID, publicKey string) (*nearrpc.AccessKeyView, error)
	LatestBlock(ctx context.Context) (*nearrpc.Block, error)
	BroadcastTxCommit(ctx context.Context, signedTxBase64 string) (json.RawMessage, error)
}

// ErrNoDeviceFound is returned when scanning ends without discovering any
// supported device.
var ErrNoDeviceFound = errors.New("wallet: no device found")

// Wallet ties the codec, the APDU client and the RPC collaborator
// together. Operations are sequential per user action; the wallet must not
// be shared between concurrent signers.
type Wallet struct {
	link   Link
	device Device
	rpc    RPC
	path   apdu.DerivationPath

	// ScanWindow bounds the discovery phase of a reconnect.
	ScanWindow time.Duration
	// PreferredDevice, when non-empty, restricts discovery to peripherals
	// whose name contains it or whose identifier matches it exactly.
	PreferredDevice string
}

// New returns a wallet signing with the key on path.
func New(link Link, device Device, rpc RPC, path apdu.DerivationPath) *Wallet {
	return &Wallet{
		link:       link,
		device:     device,
		rpc:        rpc,
		path:       path,
		ScanWindow: 15 * time.Second,
	}
}

// ensureReady makes sure a session is live, running the
// reconnect-and-reopen-app sub-flow when it is not.
func (w *Wallet) ensureReady(ctx context.Context) error {
	if w.link.Connected() {
		return nil
	}
	logging.L().Info("no live session, reconnecting")

	adv, err := w.discover(ctx)
	if err != nil {
		return err
	}
	if err := w.link.Connect(ctx, adv.Identifier); err != nil {
		return errors.Wrap(err, "wallet: connecting")
	}
	if err := w.link.NegotiateMTU(ctx); err != nil {
		return errors.Wrap(err, "wallet: negotiating transfer unit")
	}
	if err := w.device.OpenNearApplication(ctx); err != nil {
		return errors.Wrap(err, "wallet: opening app")
	}
	return nil
}

// discover scans until the first supported device shows up or the scan
// window closes.
func (w *Wallet) discover(ctx context.Context) (ble.Advertisement, error) {
	scanCtx, cancel := context.WithTimeout(ctx, w.ScanWindow)
	defer cancel()

	scanErr := make(chan error, 1)
	go func() { scanErr <- w.link.Scan(scanCtx) }()

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		if adv, ok := w.pickDevice(); ok {
			cancel()
			<-scanErr
			return adv, nil
		}
		select {
		case <-ticker.C:
		case err := <-scanErr:
			// Scan bailed before the window closed, eg. the adapter is off.
			if err != nil {
				return ble.Advertisement{}, errors.Wrap(err, "wallet: scanning")
			}
			if adv, ok := w.pickDevice(); ok {
				return adv, nil
			}
			return ble.Advertisement{}, ErrNoDeviceFound
		case <-scanCtx.Done():
			<-scanErr
			if adv, ok := w.pickDevice(); ok {
				return adv, nil
			}
			return ble.Advertisement{}, ErrNoDeviceFound
		}
	}
}

// pickDevice selects the first discovered peripheral passing the
// PreferredDevice filter.
func (w *Wallet) pickDevice() (ble.Advertisement, bool) {
	for _, adv := range w.link.Devices() {
		if w.PreferredDevice == "" ||
			adv.Identifier == w.PreferredDevice ||
			strings.Contains(adv.Name, w.PreferredDevice) {
			return adv, true
		}
	}
	return ble.Advertisement{}, false
}

// PublicKey retrieves the key on the wallet's derivation path, in the
// textual "ed25519:<base58>" form used for display and RPC calls.
func (w *Wallet) PublicKey(ctx context.Context) (neartx.PublicKey, error) {
	if err := w.ensureReady(ctx); err != nil {
		return neartx.PublicKey{}, err
	}
	raw, err := w.device.GetPublicKey(ctx, w.path)
	if err != nil {
		return neartx.PublicKey{}, errors.Wrap(err, "wallet: retrieving public key")
	}
	return neartx.PublicKeyFromBytes(raw)
}

// SignTransaction builds a transaction from signerID to receiverID with
// the given actions, fetching the nonce and block hash from the node, and
// has the device sign it. It returns the Borsh-encoded signed envelope,
// ready for base64 encoding and broadcast. A failure mid-signing is
// surfaced as is; retrying restarts the whole operation.
func (w *Wallet) SignTransaction(ctx context.Context, signerID, receiverID string, actions []neartx.Action) ([]byte, error) {
	if err := w.ensureReady(ctx); err != nil {
		return nil, err
	}
	raw, err := w.device.GetPublicKey(ctx, w.path)
	if err != nil {
		return nil, errors.Wrap(err, "wallet: retrieving public key")
	}
	publicKey, err := neartx.PublicKeyFromBytes(raw)
	if err != nil {
		return nil, err
	}

	accessKey, err := w.rpc.ViewAccessKey(ctx, signerID, publicKey.String())
	if err != nil {
		return nil, errors.Wrap(err, "wallet: fetching access key")
	}
	block, err := w.rpc.LatestBlock(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "wallet: fetching block")
	}
	blockHash, err := neartx.DecodeBlockHash(block.Hash)
	if err != nil {
		return nil, err
	}

	tx := neartx.Transaction{
		SignerID:   signerID,
		PublicKey:  publicKey,
		Nonce:      accessKey.Nonce + 1,
		ReceiverID: receiverID,
		BlockHash:  blockHash,
		Actions:    actions,
	}
	payload, err := tx.Encode()
	if err != nil {
		return nil, err
	}

	rawSig, err := w.device.Sign(ctx, payload, w.path)
	if err != nil {
		return nil, errors.Wrap(err, "wallet: signing transaction")
	}
	signature, err := neartx.SignatureFromBytes(rawSig)
	if err != nil {
		return nil, err
	}

	signed := neartx.SignedTransaction{Transaction: tx, Signature: signature}
	return signed.Encode()
}

// SignAndSendTransaction signs as SignTransaction does, then broadcasts
// the base64-encoded envelope and returns the node's execution outcome.
func (w *Wallet) SignAndSendTransaction(ctx context.Context, signerID, receiverID string, actions []neartx.Action) (json.RawMessage, error) {
	signed, err := w.SignTransaction(ctx, signerID, receiverID, actions)
	if err != nil {
		return nil, err
	}
	return w.rpc.BroadcastTxCommit(ctx, base64.StdEncoding.EncodeToString(signed))
}

// SignDelegateAction builds and signs a NEP-366 delegate action valid for
// the next 120 blocks. It returns the sha256 hash of the signed payload
// and the Borsh-encoded signed envelope; broadcasting is the relayer's
// job, never the wallet's.
func (w *Wallet) SignDelegateAction(ctx context.Context, senderID, receiverID string, actions []neartx.Action) ([32]byte, []byte, error) {
	if err := w.ensureReady(ctx); err != nil {
		return [32]byte{}, nil, err
	}
	raw, err := w.device.GetPublicKey(ctx, w.path)
	if err != nil {
		return [32]byte{}, nil, errors.Wrap(err, "wallet: retrieving public key")
	}
	publicKey, err := neartx.PublicKeyFromBytes(raw)
	if err != nil {
		return [32]byte{}, nil, err
	}

	accessKey, err := w.rpc.ViewAccessKey(ctx, senderID, publicKey.String())
	if err != nil {
		return [32]byte{}, nil, errors.Wrap(err, "wallet: fetching access key")
	}
	block, err := w.rpc.LatestBlock(ctx)
	if err != nil {
		return [32]byte{}, nil, errors.Wrap(err, "wallet: fetching block")
	}

	delegate := neartx.DelegateAction{
		SenderID:       senderID,
		ReceiverID:     receiverID,
		Actions:        actions,
		Nonce:          accessKey.Nonce + 1,
		MaxBlockHeight: block.Height + delegateWindow,
		PublicKey:      publicKey,
	}
	payload, err := delegate.SignPayload()
	if err != nil {
		return [32]byte{}, nil, err
	}
	hash, err := delegate.Hash()
	if err != nil {
		return [32]byte{}, nil, err
	}

	rawSig, err := w.device.Sign(ctx, payload, w.path)
	if err != nil {
		return [32]byte{}, nil, errors.Wrap(err, "wallet: signing delegate action")
	}
	signature, err := neartx.SignatureFromBytes(rawSig)
	if err != nil {
		return [32]byte{}, nil, err
	}

	signed := neartx.SignedDelegateAction{DelegateAction: delegate, Signature: signature}
	encoded, err := signed.Encode()
	if err != nil {
		return [32]byte{}, nil, err
	}
	return hash, encoded, nil
}

// SignMessage signs a NEP-413 off-chain message for recipient. A nil
// nonce draws a random one. It returns the 64-byte signature and the
// nonce that was used; no network interaction is involved.
func (w *Wallet) SignMessage(ctx context.Context, message, recipient string, nonce *[32]byte) ([]byte, [32]byte, error) {
	if err := w.ensureReady(ctx); err != nil {
		return nil, [32]byte{}, err
	}

	var n [32]byte
	if nonce != nil {
		n = *nonce
	} else {
		var err error
		if n, err = neartx.NewMessageNonce(); err != nil {
			return nil, [32]byte{}, err
		}
	}

	payload := neartx.SignMessagePayload{Message: message, Nonce: n, Recipient: recipient}
	signature, err := w.device.Sign(ctx, payload.SignPayload(), w.path)
	if err != nil {
		return nil, [32]byte{}, errors.Wrap(err, "wallet: signing message")
	}
	return signature, n, nil
}

// Disconnect tears the device session down.
func (w *Wallet) Disconnect() error {
	return w.link.Disconnect()
}
