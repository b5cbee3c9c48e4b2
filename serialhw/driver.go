// Copyright (c) 2025 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package serialhw

import (
	"io"
	"log/slog"
	"time"

	"github.com/ffutop/modbus-rtu-engine/rtumaster"
	"github.com/ffutop/modbus-rtu-engine/rtuslave"
)

// maxADU matches the engine packages' own frame ceiling: 1 address +
// 253 data + 2 CRC, plus the guard byte both sessions reserve.
const maxADU = 257

// MasterDriver binds one rtumaster.Session to a physical serial port.
// Its Send/Recv method values satisfy rtumaster.SendFunc/RecvFunc and
// are handed to rtumaster.Init as a Config. The write half of a
// transaction is small enough to perform synchronously inside Send;
// only the receive wait, which can run for a full RxTimeout, is
// pushed to a background goroutine so the callbacks stay non-blocking
// where it actually matters.
type MasterDriver struct {
	port    *Port
	session *rtumaster.Session
}

// NewMasterDriver allocates a driver over port. Bind must be called
// with the target session before the driver is used.
func NewMasterDriver(port *Port) *MasterDriver {
	return &MasterDriver{port: port}
}

// Bind wires the driver to the session whose callbacks it will drive.
// Reply frames are read into a separate buffer and copied into the
// session by OnRxDone; the session's RxBuffer is not used.
func (d *MasterDriver) Bind(s *rtumaster.Session) {
	d.session = s
}

// Send implements rtumaster.SendFunc.
func (d *MasterDriver) Send(data []byte) error {
	if err := d.port.write(data); err != nil {
		return err
	}
	d.session.OnTxDone()
	return nil
}

// Recv implements rtumaster.RecvFunc: it arms a background read of
// the reply frame and reports completion asynchronously.
func (d *MasterDriver) Recv() error {
	r, err := d.port.reader()
	if err != nil {
		return err
	}
	go d.receive(r)
	return nil
}

func (d *MasterDriver) receive(r io.Reader) {
	gap := d.port.gapTimeout()
	deadline := time.Now().Add(d.port.settleDelay(maxADU) + gap)
	data, err := readFrame(r, maxADU, deadline, gap)
	if err != nil {
		slog.Debug("serialhw: master receive error", "error", err)
		d.session.OnRxError()
		return
	}
	d.session.OnRxDone(data)
}

// SlaveDriver binds one rtuslave.Session to a physical serial port,
// supplying the Standby/SendAnswer half of the driver contract.
type SlaveDriver struct {
	port    *Port
	session *rtuslave.Session
}

// NewSlaveDriver allocates a driver over port. Bind must be called
// with the target session before the driver is used.
func NewSlaveDriver(port *Port) *SlaveDriver {
	return &SlaveDriver{port: port}
}

// Bind wires the driver to the session whose callbacks it will drive.
func (d *SlaveDriver) Bind(s *rtuslave.Session) {
	d.session = s
}

// Standby implements rtuslave.StandbyFunc: it arms a background read
// for the next inbound request frame.
func (d *SlaveDriver) Standby() error {
	r, err := d.port.reader()
	if err != nil {
		return err
	}
	go d.receive(r)
	return nil
}

func (d *SlaveDriver) receive(r io.Reader) {
	// A slave has no a-priori deadline on the next request; block on
	// the port's own per-read timeout repeatedly until a frame starts,
	// then apply the same inter-character gap detection as the master.
	gap := d.port.gapTimeout()
	for {
		deadline := time.Now().Add(d.port.settleDelay(maxADU) + gap)
		data, err := readFrame(r, maxADU, deadline, gap)
		if err == ErrTimeout {
			continue
		}
		if err != nil {
			d.session.OnRxError()
			return
		}
		d.session.OnRxDone(data)
		return
	}
}

// SendAnswer implements rtuslave.SendAnswerFunc.
func (d *SlaveDriver) SendAnswer(data []byte) error {
	if err := d.port.write(data); err != nil {
		return err
	}
	d.session.OnTxDone()
	return nil
}
