// Copyright (C) 2025, NEAR Connect contributors. All rights reserved.
// Licensed under the Apache License, Version 2.0

package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"math/big"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/frol/near-connect-go/internal/config"
	"github.com/frol/near-connect-go/pkg/apdu"
	"github.com/frol/near-connect-go/pkg/ble"
	"github.com/frol/near-connect-go/pkg/neartx"
	"github.com/frol/near-connect-go/pkg/nearrpc"
	"github.com/frol/near-connect-go/pkg/wallet"
)

// buildWallet wires the transport, the APDU client and the RPC client
// from the environment configuration.
func buildWallet() (*wallet.Wallet, *apdu.Client) {
	transport := ble.NewTransport(ble.NewCentral())
	device := apdu.NewClient(transport)
	node := nearrpc.NewClient(config.GetString(config.RPCEndpointKey))
	w := wallet.New(transport, device, node, config.GetDerivationPath())
	w.ScanWindow = config.GetScanTimeout()
	w.PreferredDevice = config.GetString(config.DeviceKey)
	return w, device
}

func newScanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "List hardware wallets advertising nearby",
		RunE: func(cmd *cobra.Command, _ []string) error {
			transport := ble.NewTransport(ble.NewCentral())
			ctx, cancel := context.WithTimeout(cmd.Context(), config.GetScanTimeout())
			defer cancel()
			if err := transport.Scan(ctx); err != nil && ctx.Err() == nil {
				return err
			}
			devices := transport.Devices()
			if len(devices) == 0 {
				return errors.New("no devices found")
			}
			for _, device := range devices {
				fmt.Printf("%s\t%s\t%d dBm\n", device.Identifier, device.Name, device.RSSI)
			}
			return nil
		},
	}
}

func newPublicKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "public-key",
		Short: "Print the public key on the configured derivation path",
		RunE: func(cmd *cobra.Command, _ []string) error {
			w, _ := buildWallet()
			defer w.Disconnect()
			publicKey, err := w.PublicKey(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Println(publicKey.String())
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the NEAR app version running on the device",
		RunE: func(cmd *cobra.Command, _ []string) error {
			w, device := buildWallet()
			defer w.Disconnect()
			// PublicKey forces the connect-and-open-app flow first.
			if _, err := w.PublicKey(cmd.Context()); err != nil {
				return err
			}
			version, err := device.GetVersion(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Println(version)
			return nil
		},
	}
}

func newSignTransferCmd() *cobra.Command {
	var signer, receiver, amount string
	var send bool

	cmd := &cobra.Command{
		Use:   "sign-transfer",
		Short: "Sign a token transfer, optionally broadcasting it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			deposit, ok := new(big.Int).SetString(amount, 10)
			if !ok || deposit.Sign() < 0 {
				return errors.Errorf("invalid amount %q: expected yoctoNEAR as a decimal integer", amount)
			}
			w, _ := buildWallet()
			defer w.Disconnect()

			actions := []neartx.Action{neartx.Transfer{Deposit: deposit}}
			if send {
				outcome, err := w.SignAndSendTransaction(cmd.Context(), signer, receiver, actions)
				if err != nil {
					return err
				}
				fmt.Println(string(outcome))
				return nil
			}
			signed, err := w.SignTransaction(cmd.Context(), signer, receiver, actions)
			if err != nil {
				return err
			}
			fmt.Println(base64.StdEncoding.EncodeToString(signed))
			return nil
		},
	}
	cmd.Flags().StringVar(&signer, "signer", "", "account id holding the key on the device")
	cmd.Flags().StringVar(&receiver, "receiver", "", "account id receiving the transfer")
	cmd.Flags().StringVar(&amount, "amount", "", "amount in yoctoNEAR")
	cmd.Flags().BoolVar(&send, "send", false, "broadcast the signed transaction and wait for the outcome")
	cmd.MarkFlagRequired("signer")
	cmd.MarkFlagRequired("receiver")
	cmd.MarkFlagRequired("amount")
	return cmd
}

func newSignMessageCmd() *cobra.Command {
	var message, recipient, nonceBase64 string

	cmd := &cobra.Command{
		Use:   "sign-message",
		Short: "Sign an off-chain message for a recipient",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var nonce *[32]byte
			if nonceBase64 != "" {
				raw, err := base64.StdEncoding.DecodeString(nonceBase64)
				if err != nil || len(raw) != 32 {
					return errors.New("invalid nonce: expected 32 base64-encoded bytes")
				}
				nonce = new([32]byte)
				copy(nonce[:], raw)
			}
			w, _ := buildWallet()
			defer w.Disconnect()

			signature, used, err := w.SignMessage(cmd.Context(), message, recipient, nonce)
			if err != nil {
				return err
			}
			fmt.Printf("signature: %s\n", base64.StdEncoding.EncodeToString(signature))
			fmt.Printf("nonce: %s\n", base64.StdEncoding.EncodeToString(used[:]))
			return nil
		},
	}
	cmd.Flags().StringVar(&message, "message", "", "message text to sign")
	cmd.Flags().StringVar(&recipient, "recipient", "", "intended recipient, ie. a dapp hostname")
	cmd.Flags().StringVar(&nonceBase64, "nonce", "", "32-byte base64 nonce; random when omitted")
	cmd.MarkFlagRequired("message")
	cmd.MarkFlagRequired("recipient")
	return cmd
}
