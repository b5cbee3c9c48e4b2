// Copyright (c) 2014 Quoc-Viet Nguyen. All rights reserved.
// Copyright (c) 2025 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package serialhw adapts a real RS-485/RS-232 serial port to the
// driver contracts expected by rtumaster and rtuslave: Recv/Standby
// hand the receive wait off to a background goroutine and return
// immediately, reporting completion later through the session's
// OnRxDone/OnRxError callbacks; Send/SendAnswer perform the write
// synchronously and then call the session's OnTxDone.
package serialhw

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/grid-x/serial"
)

// Config describes one serial port binding plus the inter-character
// and idle-close timing the driver needs to frame RTU traffic.
type Config struct {
	Device   string
	BaudRate int
	DataBits int
	Parity   string
	StopBits int

	// ReadTimeout bounds a single underlying port read; it is not the
	// protocol-level RxTimeout owned by rtumaster.Session.
	ReadTimeout time.Duration
	// IdleTimeout closes the underlying port after this much inactivity;
	// zero disables the idle-close behavior.
	IdleTimeout time.Duration

	// RS485 enables half-duplex RTS line control on ports that
	// support it; the remaining fields only apply when it is set.
	RS485              bool
	DelayRtsBeforeSend time.Duration
	DelayRtsAfterSend  time.Duration
	RtsHighDuringSend  bool
	RtsHighAfterSend   bool
	RxDuringTx         bool
}

// Port owns the underlying serial.Port and its idle-close timer.
// Opening is lazy: the first Send/Standby call connects it.
type Port struct {
	cfg Config

	mu           sync.Mutex
	conn         io.ReadWriteCloser
	lastActivity time.Time
	closeTimer   *time.Timer
}

// NewPort allocates a Port bound to cfg. The underlying serial.Port is
// not opened until the first transmit or receive arm.
func NewPort(cfg Config) *Port {
	return &Port{cfg: cfg}
}

// NewTestPort builds a Port around an already-open connection,
// bypassing serial.Open. It lets tests and in-process harnesses drive
// the driver logic over a net.Pipe instead of a real UART; the
// connection should support read deadlines for frame-gap detection.
func NewTestPort(cfg Config, conn io.ReadWriteCloser) *Port {
	return &Port{cfg: cfg, conn: conn}
}

// Connect opens the underlying port if it is not already open.
func (p *Port) Connect(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connect(ctx)
}

func (p *Port) connect(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	if p.conn != nil {
		return nil
	}
	conn, err := serial.Open(&serial.Config{
		Address:  p.cfg.Device,
		BaudRate: p.cfg.BaudRate,
		DataBits: p.cfg.DataBits,
		Parity:   p.cfg.Parity,
		StopBits: p.cfg.StopBits,
		Timeout:  p.cfg.ReadTimeout,
		RS485: serial.RS485Config{
			Enabled:            p.cfg.RS485,
			DelayRtsBeforeSend: p.cfg.DelayRtsBeforeSend,
			DelayRtsAfterSend:  p.cfg.DelayRtsAfterSend,
			RtsHighDuringSend:  p.cfg.RtsHighDuringSend,
			RtsHighAfterSend:   p.cfg.RtsHighAfterSend,
			RxDuringTx:         p.cfg.RxDuringTx,
		},
	})
	if err != nil {
		return fmt.Errorf("serialhw: could not open %s: %w", p.cfg.Device, err)
	}
	p.conn = conn
	return nil
}

// Close closes the underlying port if it is open.
func (p *Port) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.close()
}

func (p *Port) close() error {
	if p.conn == nil {
		return nil
	}
	err := p.conn.Close()
	p.conn = nil
	return err
}

// write performs one blocking write, connecting first if needed, and
// touches the idle-close timer. Caller must not hold p.mu.
func (p *Port) write(data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.connect(context.Background()); err != nil {
		return err
	}
	p.lastActivity = time.Now()
	p.startCloseTimer()

	_, err := p.conn.Write(data)
	return err
}

// reader returns the live connection for a read, connecting first if
// needed. Caller must not hold p.mu.
func (p *Port) reader() (io.Reader, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.connect(context.Background()); err != nil {
		return nil, err
	}
	p.lastActivity = time.Now()
	p.startCloseTimer()
	return p.conn, nil
}

func (p *Port) startCloseTimer() {
	if p.cfg.IdleTimeout <= 0 {
		return
	}
	if p.closeTimer == nil {
		p.closeTimer = time.AfterFunc(p.cfg.IdleTimeout, p.closeIdle)
	} else {
		p.closeTimer.Reset(p.cfg.IdleTimeout)
	}
}

func (p *Port) closeIdle() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cfg.IdleTimeout <= 0 {
		return
	}
	if idle := time.Since(p.lastActivity); idle >= p.cfg.IdleTimeout {
		slog.Debug("serialhw: closing idle port", "device", p.cfg.Device, "idle", idle)
		p.close()
	}
}

// characterDelay and frameDelay follow the standard Modbus RTU
// inter-character/inter-frame timing table: 750us/1750us above
// 19200 baud, otherwise scaled from the bit rate.
func (p *Port) characterDelay() time.Duration {
	if p.cfg.BaudRate <= 0 || p.cfg.BaudRate > 19200 {
		return 750 * time.Microsecond
	}
	return time.Duration(15000000/p.cfg.BaudRate) * time.Microsecond
}

func (p *Port) frameDelay() time.Duration {
	if p.cfg.BaudRate <= 0 || p.cfg.BaudRate > 19200 {
		return 1750 * time.Microsecond
	}
	return time.Duration(35000000/p.cfg.BaudRate) * time.Microsecond
}

// settleDelay is how long to wait after writing nChars characters
// before the line is expected to have gone quiet.
func (p *Port) settleDelay(nChars int) time.Duration {
	return time.Duration(nChars)*p.characterDelay() + p.frameDelay()
}

// gapTimeout is the per-read silence window readFrame uses to decide
// a frame has ended: 3.5 times characterDelay, capped at the port's
// own configured read timeout so a slow/fake baud rate in tests still
// terminates promptly.
func (p *Port) gapTimeout() time.Duration {
	gap := time.Duration(3.5 * float64(p.characterDelay()))
	if p.cfg.ReadTimeout > 0 && p.cfg.ReadTimeout < gap {
		return p.cfg.ReadTimeout
	}
	return gap
}
