// Copyright (C) 2025, NEAR Connect contributors. All rights reserved.
// Licensed under the Apache License, Version 2.0

package apdu

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/frol/near-connect-go/internal/logging"
	"github.com/frol/near-connect-go/pkg/neartx"
)

// Exchanger performs one command/response round trip with the device.
// *ble.Transport satisfies it.
type Exchanger interface {
	Exchange(ctx context.Context, buf []byte) ([]byte, error)
}

const (
	dashboardName = "BOLOS"
	nearAppName   = "NEAR"
)

// settleDelay gives the device time to return to the dashboard after
// quitting an app before the open command is issued.
var settleDelay = 1 * time.Second

// Version is the three-part app version the device reports.
type Version struct {
	Major, Minor, Patch uint8
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Client speaks the NEAR app and dashboard command set over a transport.
type Client struct {
	transport Exchanger
	network   byte
}

// NewClient returns a client using the mainnet network discriminator.
func NewClient(transport Exchanger) *Client {
	return &Client{transport: transport, network: networkMainnet}
}

func (c *Client) exchange(ctx context.Context, cmd Command) ([]byte, error) {
	raw, err := cmd.Bytes()
	if err != nil {
		return nil, err
	}
	resp, err := c.transport.Exchange(ctx, raw)
	if err != nil {
		return nil, err
	}
	payload, sw, err := splitStatus(resp)
	if err != nil {
		return nil, err
	}
	if sw != swOK {
		return nil, classifyStatus(sw)
	}
	return payload, nil
}

// GetVersion queries the running app's version. Beyond its face value it
// acts as a device-state reset: the device expects a version query before
// key retrieval and signing or it rejects them.
func (c *Client) GetVersion(ctx context.Context) (Version, error) {
	payload, err := c.exchange(ctx, Command{CLA: claNear, INS: insGetVersion})
	if err != nil {
		return Version{}, err
	}
	if len(payload) < 3 {
		return Version{}, fmt.Errorf("apdu: version reply of %d bytes", len(payload))
	}
	return Version{Major: payload[0], Minor: payload[1], Patch: payload[2]}, nil
}

// GetPublicKey retrieves the raw 32-byte public key on the given
// derivation path.
func (c *Client) GetPublicKey(ctx context.Context, path DerivationPath) ([]byte, error) {
	if _, err := c.GetVersion(ctx); err != nil {
		return nil, err
	}
	payload, err := c.exchange(ctx, Command{
		CLA:  claNear,
		INS:  insGetPublicKey,
		P2:   c.network,
		Data: path.Bytes(),
	})
	if err != nil {
		return nil, err
	}
	if len(payload) != 32 {
		return nil, fmt.Errorf("apdu: public key reply of %d bytes", len(payload))
	}
	return payload, nil
}

// Sign asks the device to sign payload with the key on path and returns
// the 64-byte signature. A payload starting with the NEP-413 or NEP-366
// magic prefix has the prefix stripped and selects the corresponding
// signing instruction; anything else signs as a plain transaction. The
// combined path+payload buffer is sent in chunks of at most 123 bytes;
// only the last chunk's response carries the signature. A failure mid-chunk
// is surfaced as is; retrying means restarting from the first chunk.
func (c *Client) Sign(ctx context.Context, payload []byte, path DerivationPath) ([]byte, error) {
	ins := byte(insSignTransaction)
	switch {
	case bytes.HasPrefix(payload, neartx.PrefixNEP413[:]):
		ins = insSignNEP413Message
		payload = payload[len(neartx.PrefixNEP413):]
	case bytes.HasPrefix(payload, neartx.PrefixNEP366[:]):
		ins = insSignNEP366Delegate
		payload = payload[len(neartx.PrefixNEP366):]
	}

	if _, err := c.GetVersion(ctx); err != nil {
		return nil, err
	}

	buf := append(path.Bytes(), payload...)
	var reply []byte
	for first := true; first || len(buf) > 0; first = false {
		chunk := maxChunk
		if chunk > len(buf) {
			chunk = len(buf)
		}
		p1 := byte(p1MoreChunks)
		if chunk == len(buf) {
			p1 = p1LastChunk
		}
		var err error
		reply, err = c.exchange(ctx, Command{
			CLA:  claNear,
			INS:  ins,
			P1:   p1,
			P2:   c.network,
			Data: buf[:chunk],
		})
		if err != nil {
			return nil, err
		}
		buf = buf[chunk:]
	}
	if len(reply) != 64 {
		return nil, fmt.Errorf("apdu: signature reply of %d bytes", len(reply))
	}
	return reply, nil
}

// GetRunningAppName reports the name of the app currently open on the
// device; the dashboard reports itself as BOLOS.
func (c *Client) GetRunningAppName(ctx context.Context) (string, error) {
	payload, err := c.exchange(ctx, Command{CLA: claBolos, INS: insGetAppAndVersion})
	if err != nil {
		return "", err
	}
	// [format][name length][name][version length][version]
	if len(payload) < 2 || len(payload) < 2+int(payload[1]) {
		return "", fmt.Errorf("apdu: malformed app name reply of %d bytes", len(payload))
	}
	return string(payload[2 : 2+int(payload[1])]), nil
}

// OpenNearApplication navigates the device to the NEAR app: a no-op when
// it is already open, otherwise the current app is quit (unless the device
// sits at its dashboard), the device is given a moment to settle, and the
// app is opened by name. The open prompt may require user confirmation.
func (c *Client) OpenNearApplication(ctx context.Context) error {
	name, err := c.GetRunningAppName(ctx)
	if err != nil {
		return err
	}
	if name == nearAppName {
		return nil
	}
	logging.L().Infof("device is running %q, switching to %s", name, nearAppName)

	if name != dashboardName {
		if _, err := c.exchange(ctx, Command{CLA: claBolos, INS: insQuitApp}); err != nil {
			return err
		}
		select {
		case <-time.After(settleDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	_, err = c.exchange(ctx, Command{
		CLA:  claMCU,
		INS:  insOpenApp,
		Data: []byte(nearAppName),
	})
	return err
}
