// Copyright (C) 2025, NEAR Connect contributors. All rights reserved.
// Licensed under the Apache License, Version 2.0

// Package config reads the tool's settings from NEARCONNECT_-prefixed
// environment variables, with sensible mainnet defaults.
package config

import (
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/frol/near-connect-go/pkg/apdu"
	"github.com/frol/near-connect-go/pkg/nearrpc"
)

const (
	// RPCEndpointKey is the URL of the JSON-RPC node used for nonces, block
	// hashes and broadcasting
	RPCEndpointKey = "RPC_ENDPOINT"
	// DerivationPathKey is the BIP-44 path of the signing key, ie. 44'/397'/0'/0'/1'
	DerivationPathKey = "DERIVATION_PATH"
	// ScanTimeoutKey is how long to scan for a device before giving up, as a
	// Go duration string
	ScanTimeoutKey = "SCAN_TIMEOUT"
	// DeviceKey restricts discovery to a device whose advertised name
	// contains the value, or whose identifier matches it exactly
	DeviceKey = "DEVICE"
	// LogLevelKey is a zap level name: debug, info, warn, error
	LogLevelKey = "LOG_LEVEL"
)

var vip *viper.Viper

func InitConfig() error {
	vip = viper.New()
	vip.SetEnvPrefix("NEARCONNECT")
	vip.AutomaticEnv()

	vip.SetDefault(RPCEndpointKey, nearrpc.MainnetEndpoint)
	vip.SetDefault(DerivationPathKey, apdu.DefaultPath)
	vip.SetDefault(ScanTimeoutKey, "15s")
	vip.SetDefault(DeviceKey, "")
	vip.SetDefault(LogLevelKey, "info")

	return validate()
}

func validate() error {
	if _, err := apdu.ParsePath(GetString(DerivationPathKey)); err != nil {
		return errors.Wrapf(err, "config: invalid %s", DerivationPathKey)
	}
	if _, err := time.ParseDuration(GetString(ScanTimeoutKey)); err != nil {
		return errors.Wrapf(err, "config: invalid %s", ScanTimeoutKey)
	}
	return nil
}

func GetString(key string) string {
	return vip.GetString(key)
}

// GetDerivationPath returns the configured signing path. InitConfig has
// already validated it.
func GetDerivationPath() apdu.DerivationPath {
	path, _ := apdu.ParsePath(GetString(DerivationPathKey))
	return path
}

// GetScanTimeout returns the configured discovery window.
func GetScanTimeout() time.Duration {
	d, _ := time.ParseDuration(GetString(ScanTimeoutKey))
	return d
}
