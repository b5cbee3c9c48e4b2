// Copyright (c) 2025 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package modbus

import "testing"

func TestExceptionBit(t *testing.T) {
	if IsException(FuncReadHoldingRegisters) {
		t.Fatal("0x03 should not read as an exception")
	}
	fn := WithException(FuncReadHoldingRegisters)
	if fn != 0x83 || !IsException(fn) {
		t.Fatalf("WithException(0x03) = %#02x, want 0x83", fn)
	}
	if got := WithoutException(fn); got != FuncReadHoldingRegisters {
		t.Fatalf("WithoutException(0x83) = %#02x, want 0x03", got)
	}
}

func TestExceptionError(t *testing.T) {
	cases := []struct {
		code byte
		want string
	}{
		{ExIllegalFunction, "modbus: exception - ILLEGAL FUNCTION"},
		{ExIllegalDataAddress, "modbus: exception - ILLEGAL DATA ADDRESS"},
		{ExIllegalDataValue, "modbus: exception - ILLEGAL DATA VALUE"},
		{ExSlaveDeviceFailure, "modbus: exception - SLAVE DEVICE FAILURE"},
		{0x7F, "modbus: exception - CODE 0x7f UNDEFINED"},
	}
	for _, c := range cases {
		e := Exception(c.code)
		if e.Error() != c.want {
			t.Errorf("Exception(%#02x).Error() = %q, want %q", c.code, e.Error(), c.want)
		}
		if e.Code() != c.code {
			t.Errorf("Exception(%#02x).Code() = %#02x", c.code, e.Code())
		}
	}
}
