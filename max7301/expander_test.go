package max7301

import (
	"errors"
	"testing"

	"github.com/go-test/deep"
)

func TestRawRegisterAccess(t *testing.T) {
	chip := newSimChip()
	ex := New(chip)
	ex.SetDebug(true)

	if err := ex.WriteRegister(PortRange(12), 0x81); err != nil {
		t.Fatalf("WriteRegister: %v", err)
	}
	v, err := ex.ReadRegister(SinglePort(19))
	if err != nil {
		t.Fatalf("ReadRegister: %v", err)
	}
	if got, want := v, byte(0x01); got != want {
		t.Errorf("got 0x%02X want 0x%02X", got, want)
	}
	want := []busOp{
		wr(PortRange(12), 0x81),
		rd(SinglePort(19), 0x01),
	}
	if diff := deep.Equal(chip.ops, want); diff != nil {
		t.Error(diff)
	}
}

func TestRawInvalidRegister(t *testing.T) {
	chip := newSimChip()
	ex := New(chip)
	for _, addr := range []RegisterAddress{0x01, 0x20, 0x43, 0x60} {
		if _, err := ex.ReadRegister(addr); !errors.Is(err, ErrInvalidRegister) {
			t.Errorf("read %s: got %v want ErrInvalidRegister", addr, err)
		}
		if err := ex.WriteRegister(addr, 0); !errors.Is(err, ErrInvalidRegister) {
			t.Errorf("write %s: got %v want ErrInvalidRegister", addr, err)
		}
	}
	if got := len(chip.ops); got != 0 {
		t.Errorf("got %d transactions want 0", got)
	}
}

func TestRawTransportErrorUnchanged(t *testing.T) {
	chip := newSimChip()
	chip.failOn(Configuration)
	ex := New(chip)
	if _, err := ex.ReadRegister(Configuration); err != errBus {
		t.Errorf("read: got %v want errBus unwrapped", err)
	}
	if err := ex.WriteRegister(Configuration, 1); err != errBus {
		t.Errorf("write: got %v want errBus unwrapped", err)
	}
}

func TestSinglePortAccess(t *testing.T) {
	chip := newSimChip()
	ex := New(chip)
	p := MustPort(30)

	if err := ex.WritePort(p, true); err != nil {
		t.Fatalf("WritePort: %v", err)
	}
	if !chip.level(p) {
		t.Error("P30 not high on the device")
	}
	high, err := ex.ReadPort(p)
	if err != nil {
		t.Fatalf("ReadPort: %v", err)
	}
	if !high {
		t.Error("ReadPort: got low want high")
	}
	want := []busOp{wr(0x3E, 0x01), rd(0x3E, 0x01)}
	if diff := deep.Equal(chip.ops, want); diff != nil {
		t.Error(diff)
	}

	if _, err := ex.ReadPort(3); !errors.Is(err, ErrInvalidPort) {
		t.Errorf("got %v want ErrInvalidPort", err)
	}
	if err := ex.WritePort(32, true); !errors.Is(err, ErrInvalidPort) {
		t.Errorf("got %v want ErrInvalidPort", err)
	}
}

func TestPortRangeAccess(t *testing.T) {
	chip := newSimChip()
	ex := New(chip)

	// Unaligned start: bits cover P26..P31, the top two are ignored.
	if err := ex.WritePorts(MustPort(26), 0xFF); err != nil {
		t.Fatalf("WritePorts: %v", err)
	}
	for n := 26; n <= 31; n++ {
		if !chip.level(MustPort(n)) {
			t.Errorf("P%d not high", n)
		}
	}
	if chip.level(MustPort(25)) {
		t.Error("P25 high")
	}

	v, err := ex.ReadPorts(MustPort(24))
	if err != nil {
		t.Fatalf("ReadPorts: %v", err)
	}
	if got, want := v, byte(0xFC); got != want {
		t.Errorf("got 0x%02X want 0x%02X", got, want)
	}
	v, err = ex.ReadPorts(MustPort(28))
	if err != nil {
		t.Fatalf("ReadPorts: %v", err)
	}
	if got, want := v, byte(0x0F); got != want {
		t.Errorf("got 0x%02X want 0x%02X", got, want)
	}
}
