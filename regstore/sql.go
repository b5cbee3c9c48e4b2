// Copyright (c) 2025 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package regstore

import (
	"database/sql"
	"fmt"
	"log/slog"
)

// SQLStorage persists registers and the packet payload through
// database/sql, upserting the changed rows on every OnWrite. The
// actual driver (sqlite3, mysql, postgres...) is the caller's choice
// and must be blank-imported wherever NewSQLStorage is invoked.
type SQLStorage struct {
	driver string
	dsn    string
	db     *sql.DB
	snap   *Snapshot
}

func NewSQLStorage(driver, dsn string) *SQLStorage {
	return &SQLStorage{driver: driver, dsn: dsn}
}

func (s *SQLStorage) Load() (*Snapshot, error) {
	db, err := sql.Open(s.driver, s.dsn)
	if err != nil {
		return nil, fmt.Errorf("regstore: open db: %w", err)
	}
	s.db = db

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("regstore: init schema: %w", err)
	}

	snap := &Snapshot{Registers: make([]uint16, MaxRegisters)}

	rows, err := db.Query("SELECT address, value FROM holding_registers")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("regstore: query registers: %w", err)
	}
	for rows.Next() {
		var addr int
		var val int64
		if err := rows.Scan(&addr, &val); err != nil {
			continue
		}
		if addr < 0 || addr >= MaxRegisters {
			continue
		}
		snap.Registers[addr] = uint16(val)
	}
	rows.Close()

	var packet []byte
	row := db.QueryRow("SELECT payload FROM packet_payload WHERE id = 0")
	if err := row.Scan(&packet); err == nil {
		snap.Packet = packet
	}

	s.snap = snap
	return snap, nil
}

func (s *SQLStorage) initSchema() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS holding_registers (
		address INTEGER PRIMARY KEY,
		value INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS packet_payload (
		id INTEGER PRIMARY KEY,
		payload BLOB NOT NULL
	);
	`)
	return err
}

// OnWrite upserts the changed rows. Real-time persistence means doing
// this synchronously rather than batching on a timer: a slave under
// active polling can't afford to lose the last few writes to a power
// failure.
func (s *SQLStorage) OnWrite(table TableType, address, quantity uint16) {
	if s.db == nil {
		return
	}

	switch table {
	case TableHolding:
		for i := 0; i < int(quantity); i++ {
			addr := int(address) + i
			query := "INSERT INTO holding_registers (address, value) VALUES (?, ?) ON CONFLICT(address) DO UPDATE SET value=excluded.value"
			if _, err := s.db.Exec(query, addr, int64(s.snap.Registers[addr])); err != nil {
				slog.Error("regstore: persist register", "addr", addr, "error", err)
			}
		}
	case TablePacket:
		query := "INSERT INTO packet_payload (id, payload) VALUES (0, ?) ON CONFLICT(id) DO UPDATE SET payload=excluded.payload"
		if _, err := s.db.Exec(query, s.snap.Packet); err != nil {
			slog.Error("regstore: persist packet", "error", err)
		}
	}
}

func (s *SQLStorage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
