// Copyright (c) 2025 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Command modbus-slave serves a station address on the configured
// serial bus until SIGINT/SIGTERM, answering register reads/writes
// and the custom packet opcodes out of a regstore.Store.
//
//	modbus-slave --serial.device /dev/ttyUSB1 --slave.station_address 17
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/ffutop/modbus-rtu-engine/enginerunner"
	"github.com/ffutop/modbus-rtu-engine/internal/config"
	"github.com/ffutop/modbus-rtu-engine/internal/logging"
	"github.com/ffutop/modbus-rtu-engine/regstore"
	"github.com/ffutop/modbus-rtu-engine/rtuslave"
	"github.com/ffutop/modbus-rtu-engine/serialhw"
)

func main() {
	flags := pflag.CommandLine
	configFile := flags.String("config", "", "Path to config file")

	// Config-file overrides; flag names double as config keys.
	flags.String("serial.device", "", "Serial device path")
	flags.Int("serial.baud_rate", 19200, "Baud rate")
	flags.Uint8("slave.station_address", 1, "Station address to serve (1-247)")
	flags.Uint16("slave.last_register", 0xFFFF, "Highest served register index")
	flags.String("slave.persistence.type", "memory", "Register persistence: memory, file, mmap")
	flags.String("slave.persistence.path", "", "Backing file for file/mmap persistence")
	flags.String("log.level", "info", "Log level: debug, info, warn, error")
	pflag.Parse()

	cfg, err := config.LoadConfig(*configFile, flags)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Log)

	storage, err := openStorage(cfg.Slave.Persistence)
	if err != nil {
		slog.Error("Failed to open persistence", "err", err)
		os.Exit(1)
	}
	store, err := regstore.New(cfg.Slave.LastRegister, storage)
	if err != nil {
		slog.Error("Failed to load register store", "err", err)
		os.Exit(1)
	}
	defer store.Close()

	port := serialhw.NewPort(serialhw.Config{
		Device:             cfg.Serial.Device,
		BaudRate:           cfg.Serial.BaudRate,
		DataBits:           cfg.Serial.DataBits,
		Parity:             cfg.Serial.Parity,
		StopBits:           cfg.Serial.StopBits,
		ReadTimeout:        cfg.Serial.Timeout,
		RS485:              cfg.Serial.RS485,
		DelayRtsBeforeSend: cfg.Serial.DelayRtsBeforeSend,
		DelayRtsAfterSend:  cfg.Serial.DelayRtsAfterSend,
		RtsHighDuringSend:  cfg.Serial.RtsHighDuringSend,
		RtsHighAfterSend:   cfg.Serial.RtsHighAfterSend,
		RxDuringTx:         cfg.Serial.RxDuringTx,
	})
	defer port.Close()

	driver := serialhw.NewSlaveDriver(port)
	session := &rtuslave.Session{}
	if err := rtuslave.Init(session, cfg.Slave.StationAddress, cfg.Slave.LastRegister, rtuslave.Callbacks{
		Standby:    driver.Standby,
		SendAnswer: driver.SendAnswer,
		GetReg:     store.GetReg,
		SetReg:     store.SetReg,
		GetPacket:  store.GetPacket,
		SetPacket:  store.SetPacket,
	}); err != nil {
		slog.Error("Failed to initialize slave session", "err", err)
		os.Exit(1)
	}
	driver.Bind(session)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	slog.Info("Serving Modbus RTU slave",
		"device", cfg.Serial.Device,
		"address", cfg.Slave.StationAddress,
		"last_register", cfg.Slave.LastRegister)

	enginerunner.RunForever(ctx, cfg.Slave.PollInterval, func() {
		if err := rtuslave.Check(session); err != nil {
			slog.Warn("Dropped inbound frame", "err", err)
		}
	})

	slog.Info("Goodbye.")
}

func openStorage(cfg config.PersistenceConfig) (regstore.Storage, error) {
	switch cfg.Type {
	case "", "memory":
		return regstore.NewMemoryStorage(), nil
	case "file":
		return regstore.NewFileStorage(cfg.Path)
	case "mmap":
		return regstore.NewMmapStorage(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown persistence type %q", cfg.Type)
	}
}
