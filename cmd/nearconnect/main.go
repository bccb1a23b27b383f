// Copyright (C) 2025, NEAR Connect contributors. All rights reserved.
// Licensed under the Apache License, Version 2.0

// nearconnect drives a NEAR hardware wallet over Bluetooth LE from the
// command line: discovering devices, reading the public key and signing
// transactions, meta transactions and off-chain messages.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/frol/near-connect-go/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "nearconnect",
	Short: "Sign NEAR transactions with a hardware wallet over Bluetooth LE",
	Long: `nearconnect talks to the NEAR app on a Ledger hardware wallet over
Bluetooth LE. Configuration is read from NEARCONNECT_-prefixed environment
variables; see the repository README for the full list.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(*cobra.Command, []string) error {
		return config.InitConfig()
	},
}

func main() {
	rootCmd.AddCommand(
		newScanCmd(),
		newPublicKeyCmd(),
		newVersionCmd(),
		newSignTransferCmd(),
		newSignMessageCmd(),
	)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
