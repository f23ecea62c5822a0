package max7301

import (
	"errors"
	"testing"
)

func TestPortMapping(t *testing.T) {
	tests := []struct {
		port      int
		valueReg  RegisterAddress
		valueBit  uint8
		modeReg   RegisterAddress
		modeShift uint8
	}{
		{4, 0x44, 0, 0x09, 0},
		{7, 0x44, 3, 0x09, 6},
		{11, 0x44, 7, 0x0A, 6},
		{12, 0x4C, 0, 0x0B, 0},
		{19, 0x4C, 7, 0x0C, 6},
		{20, 0x54, 0, 0x0D, 0},
		{27, 0x54, 7, 0x0E, 6},
		{28, 0x5C, 0, 0x0F, 0},
		{31, 0x5C, 3, 0x0F, 6},
	}
	for _, test := range tests {
		p := MustPort(test.port)
		if got, want := p.ValueRegister(), test.valueReg; got != want {
			t.Errorf("%s: value register got %s want %s", p, got, want)
		}
		if got, want := p.ValueBit(), test.valueBit; got != want {
			t.Errorf("%s: value bit got %d want %d", p, got, want)
		}
		if got, want := p.ModeRegister(), test.modeReg; got != want {
			t.Errorf("%s: mode register got %s want %s", p, got, want)
		}
		if got, want := p.ModeShift(), test.modeShift; got != want {
			t.Errorf("%s: mode shift got %d want %d", p, got, want)
		}
	}
}

func TestPortMappingIsInjective(t *testing.T) {
	type slot struct {
		addr RegisterAddress
		bit  uint8
	}
	values := make(map[slot]Port)
	modes := make(map[slot]Port)
	for _, p := range AllPorts() {
		v := slot{p.ValueRegister(), p.ValueBit()}
		if other, ok := values[v]; ok {
			t.Errorf("%s and %s share value bit %s/%d", p, other, v.addr, v.bit)
		}
		values[v] = p
		m := slot{p.ModeRegister(), p.ModeShift()}
		if other, ok := modes[m]; ok {
			t.Errorf("%s and %s share mode field %s/%d", p, other, m.addr, m.bit)
		}
		modes[m] = p
		if !p.ValueRegister().Valid() || !p.ModeRegister().Valid() {
			t.Errorf("%s maps outside the register map", p)
		}
	}
	if got, want := len(values), NumPorts; got != want {
		t.Errorf("got %d value slots want %d", got, want)
	}
}

func TestNewPort(t *testing.T) {
	for _, n := range []int{-1, 0, 3, 32, 255} {
		if _, err := NewPort(n); !errors.Is(err, ErrInvalidPort) {
			t.Errorf("NewPort(%d): got %v want ErrInvalidPort", n, err)
		}
	}
	for n := MinPort; n <= MaxPort; n++ {
		p, err := NewPort(n)
		if err != nil {
			t.Fatalf("NewPort(%d): %v", n, err)
		}
		if got, want := int(p), n; got != want {
			t.Errorf("got %d want %d", got, want)
		}
	}
}

func TestMustPortPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustPort(2) didn't panic")
		}
	}()
	MustPort(2)
}

func TestRegisterValid(t *testing.T) {
	valid := []RegisterAddress{0x00, 0x04, 0x06, 0x09, 0x0F, 0x24, 0x3F, 0x44, 0x5F}
	invalid := []RegisterAddress{0x01, 0x05, 0x08, 0x10, 0x20, 0x23, 0x40, 0x43, 0x60, 0xFF}
	for _, a := range valid {
		if !a.Valid() {
			t.Errorf("0x%02X: got invalid want valid", uint8(a))
		}
	}
	for _, a := range invalid {
		if a.Valid() {
			t.Errorf("0x%02X: got valid want invalid", uint8(a))
		}
	}
}

func TestRegisterConstructors(t *testing.T) {
	if got, want := SinglePort(MustPort(9)), RegisterAddress(0x29); got != want {
		t.Errorf("SinglePort(9): got 0x%02X want 0x%02X", uint8(got), uint8(want))
	}
	if got, want := PortRange(MustPort(13)), RegisterAddress(0x4D); got != want {
		t.Errorf("PortRange(13): got 0x%02X want 0x%02X", uint8(got), uint8(want))
	}
	addr, err := BankConfig(3)
	if err != nil {
		t.Fatalf("BankConfig(3): %v", err)
	}
	if got, want := addr, RegisterAddress(0x0C); got != want {
		t.Errorf("BankConfig(3): got 0x%02X want 0x%02X", uint8(got), uint8(want))
	}
	for _, b := range []int{-1, 7} {
		if _, err := BankConfig(b); !errors.Is(err, ErrInvalidRegister) {
			t.Errorf("BankConfig(%d): got %v want ErrInvalidRegister", b, err)
		}
	}
}

func TestFullMask(t *testing.T) {
	tests := []struct {
		addr RegisterAddress
		want byte
	}{
		{PortRange(4), 0xFF},
		{PortRange(24), 0xFF},
		{PortRange(25), 0x7F},
		{PortRange(28), 0x0F},
		{PortRange(31), 0x01},
		{Configuration, 0xFF},
		{0x0B, 0xFF},
	}
	for _, test := range tests {
		if got := test.addr.fullMask(); got != test.want {
			t.Errorf("%s: got 0x%02X want 0x%02X", test.addr, got, test.want)
		}
	}
}

func TestRegisterString(t *testing.T) {
	tests := []struct {
		addr RegisterAddress
		want string
	}{
		{Noop, "Noop"},
		{Configuration, "Configuration"},
		{TransitionDetectMask, "TransitionDetectMask"},
		{0x0D, "BankConfig(4)"},
		{0x3F, "SinglePort(31)"},
		{0x4C, "PortRange(12)"},
		{0x7E, "Register(0x7E)"},
	}
	for _, test := range tests {
		if got := test.addr.String(); got != test.want {
			t.Errorf("0x%02X: got %q want %q", uint8(test.addr), got, test.want)
		}
	}
	if got, want := MustPort(12).String(), "P12"; got != want {
		t.Errorf("got %q want %q", got, want)
	}
}
