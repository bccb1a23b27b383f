// Copyright (C) 2025, NEAR Connect contributors. All rights reserved.
// Licensed under the Apache License, Version 2.0

package ble

import "strings"

// DeviceModel describes one supported hardware-wallet model: its advertised
// service and the three characteristic endpoints the transport talks
// through. WriteCmdCharacteristic (write without acknowledgment) is empty
// on models that do not expose one.
type DeviceModel struct {
	Name                   string
	Service                string
	NotifyCharacteristic   string
	WriteCharacteristic    string
	WriteCmdCharacteristic string
}

// Supported device models, matched against the advertised service of a
// discovered peripheral. The matching descriptor fixes the characteristic
// UUIDs for the rest of the session.
var DeviceModels = []DeviceModel{
	{
		Name:                   "Ledger Nano X",
		Service:                "13d63400-2c97-0004-0000-4c6564676572",
		NotifyCharacteristic:   "13d63400-2c97-0004-0001-4c6564676572",
		WriteCharacteristic:    "13d63400-2c97-0004-0002-4c6564676572",
		WriteCmdCharacteristic: "13d63400-2c97-0004-0003-4c6564676572",
	},
	{
		Name:                   "Ledger Stax",
		Service:                "13d63400-2c97-6004-0000-4c6564676572",
		NotifyCharacteristic:   "13d63400-2c97-6004-0001-4c6564676572",
		WriteCharacteristic:    "13d63400-2c97-6004-0002-4c6564676572",
		WriteCmdCharacteristic: "13d63400-2c97-6004-0003-4c6564676572",
	},
	{
		Name:                   "Ledger Flex",
		Service:                "13d63400-2c97-3004-0000-4c6564676572",
		NotifyCharacteristic:   "13d63400-2c97-3004-0001-4c6564676572",
		WriteCharacteristic:    "13d63400-2c97-3004-0002-4c6564676572",
		WriteCmdCharacteristic: "13d63400-2c97-3004-0003-4c6564676572",
	},
}

// LookupService returns the device model advertising the given service
// UUID.
func LookupService(uuid string) (DeviceModel, bool) {
	for _, m := range DeviceModels {
		if strings.EqualFold(m.Service, uuid) {
			return m, true
		}
	}
	return DeviceModel{}, false
}

// ServiceUUIDs returns the union of all supported advertised services, the
// scan filter.
func ServiceUUIDs() []string {
	uuids := make([]string, len(DeviceModels))
	for i, m := range DeviceModels {
		uuids[i] = m.Service
	}
	return uuids
}
