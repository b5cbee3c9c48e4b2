// Copyright (c) 2025 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package config loads the settings the cmd/modbus-master and
// cmd/modbus-slave front-ends run with: one serial port binding plus
// the engine parameters, read from a YAML file through viper with a
// pflag overlay on top.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config defines the global configuration structure
type Config struct {
	Serial SerialConfig `mapstructure:"serial"`
	Master MasterConfig `mapstructure:"master"`
	Slave  SlaveConfig  `mapstructure:"slave"`
	Log    LogConfig    `mapstructure:"log"`
}

// LogConfig defines logging configuration
type LogConfig struct {
	Level string `mapstructure:"level"` // debug, info, warn, error
	File  string `mapstructure:"file"`  // Log file path
}

// SerialConfig defines the RTU port binding
type SerialConfig struct {
	Device   string        `mapstructure:"device"`
	BaudRate int           `mapstructure:"baud_rate"`
	DataBits int           `mapstructure:"data_bits"`
	Parity   string        `mapstructure:"parity"`
	StopBits int           `mapstructure:"stop_bits"`
	Timeout  time.Duration `mapstructure:"timeout"`

	// RS485 specific
	RS485              bool          `mapstructure:"rs485"`
	DelayRtsBeforeSend time.Duration `mapstructure:"delay_rts_before_send"`
	DelayRtsAfterSend  time.Duration `mapstructure:"delay_rts_after_send"`
	RtsHighDuringSend  bool          `mapstructure:"rts_high_during_send"`
	RtsHighAfterSend   bool          `mapstructure:"rts_high_after_send"`
	RxDuringTx         bool          `mapstructure:"rx_during_tx"`
}

// MasterConfig defines the master engine's transaction parameters
type MasterConfig struct {
	RxTimeout    time.Duration `mapstructure:"rx_timeout"`    // Per-request reply window
	PollInterval time.Duration `mapstructure:"poll_interval"` // Check cadence
	Retries      int           `mapstructure:"retries"`       // Attempts per transaction, minimum 1
	RetryBackoff time.Duration `mapstructure:"retry_backoff"` // Base delay between attempts
}

// SlaveConfig defines the slave engine's station parameters
type SlaveConfig struct {
	StationAddress uint8             `mapstructure:"station_address"` // 1-247
	LastRegister   uint16            `mapstructure:"last_register"`   // Highest served register index
	PollInterval   time.Duration     `mapstructure:"poll_interval"`   // Check cadence
	Persistence    PersistenceConfig `mapstructure:"persistence"`
}

// PersistenceConfig defines data storage settings
type PersistenceConfig struct {
	Type string `mapstructure:"type"` // "memory", "file", "mmap"
	Path string `mapstructure:"path"` // File path for "file/mmap" type
}

// LoadConfig loads configuration from file. flags, when non-nil,
// overlay the file's values: any flag the user set on the command
// line wins over the file, and flag names double as viper keys
// ("serial.device", "master.rx_timeout", ...).
func LoadConfig(configFile string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/modbus-rtu/")
		v.AddConfigPath("$HOME/.modbus-rtu")
		v.AddConfigPath(".")
	}

	// Set defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("master.rx_timeout", 100*time.Millisecond)
	v.SetDefault("master.poll_interval", 5*time.Millisecond)
	v.SetDefault("master.retries", 1)
	v.SetDefault("master.retry_backoff", 50*time.Millisecond)
	v.SetDefault("slave.station_address", 1)
	v.SetDefault("slave.last_register", 0xFFFF)
	v.SetDefault("slave.poll_interval", 5*time.Millisecond)
	v.SetDefault("slave.persistence.type", "memory")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("failed to bind flags: %w", err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// No file found along the search path: defaults plus flags
		// must carry the whole configuration.
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate / Fixups
	fixupSerial(&config.Serial)
	if config.Slave.StationAddress == 0 {
		return nil, fmt.Errorf("slave.station_address must be in [1,247], got 0")
	}
	if config.Master.Retries < 1 {
		config.Master.Retries = 1
	}

	return &config, nil
}

func fixupSerial(s *SerialConfig) {
	s.Parity = strings.ToUpper(s.Parity)
	if s.BaudRate == 0 {
		s.BaudRate = 19200
	}
	if s.DataBits == 0 {
		s.DataBits = 8
	}
	if s.Parity == "" {
		s.Parity = "N"
	}
	if s.StopBits == 0 {
		s.StopBits = 1
	}
	if s.Timeout == 0 {
		s.Timeout = 500 * time.Millisecond
	}
}
