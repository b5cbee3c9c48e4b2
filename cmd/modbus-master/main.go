// Copyright (c) 2025 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Command modbus-master issues one read or write transaction against
// a slave on the configured serial bus and prints the result.
//
//	modbus-master --serial.device /dev/ttyUSB0 --slave 17 --op read --first 107 --count 2
//	modbus-master --serial.device /dev/ttyUSB0 --slave 1 --op write --first 210 --values 65535,65535
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/ffutop/modbus-rtu-engine/enginerunner"
	"github.com/ffutop/modbus-rtu-engine/internal/config"
	"github.com/ffutop/modbus-rtu-engine/internal/logging"
	"github.com/ffutop/modbus-rtu-engine/rtumaster"
	"github.com/ffutop/modbus-rtu-engine/serialhw"
)

func main() {
	flags := pflag.CommandLine
	configFile := flags.String("config", "", "Path to config file")
	slaveAddr := flags.Uint8("slave", 1, "Target slave station address")
	op := flags.String("op", "read", "Operation: read or write")
	first := flags.Uint16("first", 0, "First register address")
	count := flags.Uint16("count", 1, "Number of registers to read")
	values := flags.String("values", "", "Comma-separated register values to write")

	// Config-file overrides; flag names double as config keys.
	flags.String("serial.device", "", "Serial device path")
	flags.Int("serial.baud_rate", 19200, "Baud rate")
	flags.String("log.level", "info", "Log level: debug, info, warn, error")
	pflag.Parse()

	cfg, err := config.LoadConfig(*configFile, flags)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Log)

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

	driver := serialhw.NewMasterDriver(port)
	session := &rtumaster.Session{}
	if err := rtumaster.Init(session, rtumaster.Config{
		Send:      driver.Send,
		Recv:      driver.Recv,
		RxTimeout: cfg.Master.RxTimeout,
	}); err != nil {
		slog.Error("Failed to initialize master session", "err", err)
		os.Exit(1)
	}
	driver.Bind(session)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var buf []uint16
	req := enginerunner.Request{
		Check: func() (rtumaster.Outcome, bool) { return rtumaster.Check(session) },
	}
	switch *op {
	case "read":
		buf = make([]uint16, *count)
		req.Issue = func() error {
			return rtumaster.ReadRegs(session, *slaveAddr, *first, *count, buf)
		}
	case "write":
		vals, err := parseValues(*values)
		if err != nil {
			slog.Error("Bad --values", "err", err)
			os.Exit(2)
		}
		req.Issue = func() error {
			return rtumaster.WriteRegs(session, *slaveAddr, *first, uint16(len(vals)), vals)
		}
	default:
		slog.Error("Unknown operation", "op", *op)
		os.Exit(2)
	}

	queue := enginerunner.NewTransactionQueue(ctx, cfg.Master.PollInterval, 1)
	retrier := &enginerunner.Retrier{
		MaxAttempts: cfg.Master.Retries,
		Backoff:     cfg.Master.RetryBackoff,
	}
	outcome, err := retrier.Run(ctx, queue, req)
	if err != nil {
		slog.Error("Transaction failed", "err", err)
		os.Exit(1)
	}

	switch outcome.State {
	case rtumaster.Processed:
		if *op == "read" {
			for i, v := range buf {
				fmt.Printf("reg[%d] = %#04x (%d)\n", int(*first)+i, v, v)
			}
		} else {
			fmt.Printf("wrote %d register(s) at %d\n", len(strings.Split(*values, ",")), *first)
		}
	case rtumaster.ErrReported:
		slog.Error("Slave reported exception", "code", fmt.Sprintf("%#02x", outcome.ExceptionCode))
		os.Exit(1)
	default:
		slog.Error("Transaction did not complete", "state", outcome.State.String())
		os.Exit(1)
	}
}

func parseValues(s string) ([]uint16, error) {
	if s == "" {
		return nil, fmt.Errorf("no values given")
	}
	parts := strings.Split(s, ",")
	vals := make([]uint16, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.ParseUint(strings.TrimSpace(p), 0, 16)
		if err != nil {
			return nil, fmt.Errorf("value %q: %w", p, err)
		}
		vals = append(vals, uint16(n))
	}
	return vals, nil
}
