// Copyright (c) 2025 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfigFromFile(t *testing.T) {
	path := writeConfig(t, `
serial:
  device: /dev/ttyUSB0
  baud_rate: 9600
  parity: e
master:
  rx_timeout: 250ms
slave:
  station_address: 17
  last_register: 1023
  persistence:
    type: file
    path: /var/lib/modbus/regs.bin
`)

	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)

	require.Equal(t, "/dev/ttyUSB0", cfg.Serial.Device)
	require.Equal(t, 9600, cfg.Serial.BaudRate)
	require.Equal(t, "E", cfg.Serial.Parity, "parity is upper-cased by the fixup")
	require.Equal(t, 8, cfg.Serial.DataBits, "data bits default applied")
	require.Equal(t, 1, cfg.Serial.StopBits, "stop bits default applied")
	require.Equal(t, 500*time.Millisecond, cfg.Serial.Timeout, "timeout default applied")

	require.Equal(t, 250*time.Millisecond, cfg.Master.RxTimeout)
	require.Equal(t, 5*time.Millisecond, cfg.Master.PollInterval, "poll interval default applied")

	require.Equal(t, uint8(17), cfg.Slave.StationAddress)
	require.Equal(t, uint16(1023), cfg.Slave.LastRegister)
	require.Equal(t, "file", cfg.Slave.Persistence.Type)
}

func TestLoadConfigDefaultsWithoutFile(t *testing.T) {
	// Run from an empty directory so no stray config.yaml is picked up.
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { os.Chdir(wd) })

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	require.Equal(t, 100*time.Millisecond, cfg.Master.RxTimeout)
	require.Equal(t, uint8(1), cfg.Slave.StationAddress)
	require.Equal(t, uint16(0xFFFF), cfg.Slave.LastRegister)
	require.Equal(t, "memory", cfg.Slave.Persistence.Type)
	require.Equal(t, "info", cfg.Log.Level)
}

func TestLoadConfigFlagOverlay(t *testing.T) {
	path := writeConfig(t, `
serial:
  device: /dev/ttyUSB0
`)

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("serial.device", "", "")
	flags.String("log.level", "info", "")
	require.NoError(t, flags.Set("serial.device", "/dev/ttyS9"))

	cfg, err := LoadConfig(path, flags)
	require.NoError(t, err)
	require.Equal(t, "/dev/ttyS9", cfg.Serial.Device, "explicit flag wins over file")
	require.Equal(t, "info", cfg.Log.Level)
}

func TestLoadConfigRejectsBroadcastStation(t *testing.T) {
	path := writeConfig(t, `
slave:
  station_address: 0
`)
	_, err := LoadConfig(path, nil)
	require.Error(t, err)
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	require.Error(t, err)
}
