package main

import (
	"testing"

	"github.com/epicfatigue/drivers/max7301"
)

func TestParseByte(t *testing.T) {
	tests := []struct {
		in   string
		want byte
		ok   bool
	}{
		{"0x44", 0x44, true},
		{"68", 68, true},
		{"0", 0, true},
		{"0x100", 0, false},
		{"nope", 0, false},
	}
	for _, test := range tests {
		got, err := parseByte(test.in)
		if (err == nil) != test.ok {
			t.Errorf("%q: got err %v want ok=%v", test.in, err, test.ok)
			continue
		}
		if test.ok && got != test.want {
			t.Errorf("%q: got 0x%02X want 0x%02X", test.in, got, test.want)
		}
	}
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]bool{"1": true, "high": true, "on": true, "0": false, "low": false, "off": false} {
		got, err := parseLevel(in)
		if err != nil {
			t.Errorf("%q: %v", in, err)
		}
		if got != want {
			t.Errorf("%q: got %v want %v", in, got, want)
		}
	}
	if _, err := parseLevel("2"); err == nil {
		t.Error("parseLevel(2): got nil error")
	}
}

type countedChip struct {
	regs map[max7301.RegisterAddress]byte
}

func (c *countedChip) ReadRegister(addr max7301.RegisterAddress) (byte, error) {
	return c.regs[addr], nil
}

func (c *countedChip) WriteRegister(addr max7301.RegisterAddress, v byte) error {
	c.regs[addr] = v
	return nil
}

func TestCountingInterface(t *testing.T) {
	counter := &countingInterface{Interface: &countedChip{regs: map[max7301.RegisterAddress]byte{}}}
	io := newExpander(counter).Transactional()
	if err := io.Refresh(max7301.Ports(max7301.AllPorts()...).WithModes()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	// 4 value groups and 7 mode banks.
	if got, want := counter.reads, 11; got != want {
		t.Errorf("got %d reads want %d", got, want)
	}
}

func TestCommandTree(t *testing.T) {
	for _, path := range [][]string{
		{"reg", "read"},
		{"reg", "write"},
		{"port", "get"},
		{"port", "set"},
		{"configure"},
		{"dump"},
	} {
		cmd, _, err := rootCmd.Find(path)
		if err != nil {
			t.Errorf("%v: %v", path, err)
			continue
		}
		if got, want := cmd.Name(), path[len(path)-1]; got != want {
			t.Errorf("%v: got %q want %q", path, got, want)
		}
	}
}
