// factory.go
//
// MAX7301/MAX7300 driver factory for reef-pi.
//
// This file integrates the expander into reef-pi's HAL:
//
//   - Declares driver metadata (name/description/capabilities)
//   - Exposes UI configuration parameters
//   - Validates configuration
//   - Constructs a driver instance and configures port modes
//
// The bus handed to NewDriver picks the transport:
//   - i2c.Bus   MAX7300 at Address
//   - conn.Conn MAX7301 on an SPI connection (Address is ignored)
//   - Interface any other transport, used as-is
//
// Ports listed in Outputs become digital output pins, ports listed in Inputs
// become digital input pins. Other ports are left as the device has them.
//
package max7301

import (
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"

	"github.com/reef-pi/hal"
	"github.com/reef-pi/rpi/i2c"
	"periph.io/x/conn/v3"
)

const (
	paramAddress = "Address" // string, e.g. "0x40"
	paramMode    = "Mode"    // "immediate" or "transactional"
	paramOutputs = "Outputs" // port list, e.g. "4-11,20"
	paramInputs  = "Inputs"  // port list
	paramPullup  = "Pullup"  // bool, inputs get the internal pull-up
	paramDebug   = "Debug"   // bool

	modeImmediate     = "immediate"
	modeTransactional = "transactional"

	minI2CAddr = 0x40
	maxI2CAddr = 0x4F
)

type factory struct {
	meta       hal.Metadata
	parameters []hal.ConfigParameter
}

var (
	f    *factory
	once sync.Once
)

func Factory() hal.DriverFactory {
	once.Do(func() {
		f = &factory{
			meta: hal.Metadata{
				Name:        "max7301",
				Description: "MAX7301 (SPI) / MAX7300 (I2C) 28-port GPIO expander. Ports 4..31, each an output or an input with optional pull-up.",
				Capabilities: []hal.Capability{
					hal.DigitalInput,
					hal.DigitalOutput,
				},
			},
			parameters: []hal.ConfigParameter{
				{Name: paramAddress, Type: hal.String, Order: 0, Default: "0x40"},
				{Name: paramMode, Type: hal.String, Order: 1, Default: modeImmediate},
				{Name: paramOutputs, Type: hal.String, Order: 2, Default: "4-31"},
				{Name: paramInputs, Type: hal.String, Order: 3, Default: ""},
				{Name: paramPullup, Type: hal.Boolean, Order: 4, Default: true},
				{Name: paramDebug, Type: hal.Boolean, Order: 5, Default: false},
			},
		}
	})
	return f
}

func (f *factory) Metadata() hal.Metadata               { return f.meta }
func (f *factory) GetParameters() []hal.ConfigParameter { return f.parameters }

// parseAddr accepts "0x40" style hex or "64" style decimal.
func parseAddr(s string) (byte, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return 0, fmt.Errorf("empty address")
	}
	if strings.HasPrefix(s, "0x") {
		v, err := strconv.ParseUint(s[2:], 16, 8)
		return byte(v), err
	}
	v, err := strconv.ParseUint(s, 10, 8)
	return byte(v), err
}

func parseMode(params map[string]interface{}) string {
	s, _ := params[paramMode].(string)
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return modeImmediate
	}
	return s
}

func (f *factory) ValidateParameters(params map[string]interface{}) (bool, map[string][]string) {
	errs := make(map[string][]string)

	addrStr, _ := params[paramAddress].(string)
	addrStr = strings.TrimSpace(addrStr)
	if addrStr == "" {
		errs[paramAddress] = append(errs[paramAddress], "is required (e.g. 0x40)")
	} else {
		addr, err := parseAddr(addrStr)
		if err != nil {
			errs[paramAddress] = append(errs[paramAddress], "must be a valid I2C address like 0x40..0x4F")
		} else if addr < minI2CAddr || addr > maxI2CAddr {
			errs[paramAddress] = append(errs[paramAddress], "must be within 0x40..0x4F")
		}
	}

	switch parseMode(params) {
	case modeImmediate, modeTransactional:
	default:
		errs[paramMode] = append(errs[paramMode], "must be immediate or transactional")
	}

	lists := make(map[string][]Port)
	for _, name := range []string{paramOutputs, paramInputs} {
		v, ok := params[name]
		if !ok {
			continue
		}
		s, ok := v.(string)
		if !ok {
			errs[name] = append(errs[name], "must be a port list like 4-11,20")
			continue
		}
		ports, err := ParsePorts(s)
		if err != nil {
			errs[name] = append(errs[name], err.Error())
			continue
		}
		lists[name] = ports
	}
	if both := overlap(lists[paramOutputs], lists[paramInputs]); len(both) > 0 {
		errs[paramInputs] = append(errs[paramInputs], "ports "+FormatPorts(both)+" are also listed in Outputs")
	}

	for _, name := range []string{paramPullup, paramDebug} {
		if v, ok := params[name]; ok {
			if _, ok := v.(bool); !ok {
				errs[name] = append(errs[name], "must be boolean")
			}
		}
	}

	if len(errs) > 0 {
		return false, errs
	}
	return true, nil
}

func overlap(a, b []Port) []Port {
	var both []Port
	for _, p := range a {
		for _, q := range b {
			if p == q {
				both = append(both, p)
			}
		}
	}
	return both
}

func boolParam(params map[string]interface{}, name string, def bool) bool {
	if b, ok := params[name].(bool); ok {
		return b
	}
	return def
}

func portsParam(params map[string]interface{}, name string) []Port {
	s, _ := params[name].(string)
	ports, _ := ParsePorts(s)
	return ports
}

func (f *factory) NewDriver(params map[string]interface{}, bus interface{}) (hal.Driver, error) {
	if ok, failures := f.ValidateParameters(params); !ok {
		return nil, fmt.Errorf(hal.ToErrorString(failures))
	}

	addrStr, _ := params[paramAddress].(string)
	addr, err := parseAddr(addrStr)
	if err != nil {
		return nil, fmt.Errorf("max7301: invalid Address %q: %w", addrStr, err)
	}

	var iface Interface
	switch b := bus.(type) {
	case Interface:
		iface = b
	case i2c.Bus:
		iface = NewI2C(addr, b)
	case conn.Conn:
		iface = NewSPI(b)
	default:
		return nil, fmt.Errorf("max7301: expected i2c.Bus or conn.Conn, got %T", bus)
	}

	debug := boolParam(params, paramDebug, false)
	if debug {
		if b, err := json.MarshalIndent(params, "", "  "); err == nil {
			log.Printf("max7301 NewDriver params:\n%s", string(b))
		}
	}

	outputs := portsParam(params, paramOutputs)
	inputs := portsParam(params, paramInputs)
	inMode := InputFloating
	if boolParam(params, paramPullup, true) {
		inMode = InputPullup
	}

	name := fmt.Sprint(iface)
	ex := New(iface)
	ex.SetDebug(debug)

	err = ex.Configure().
		Ports(outputs, Output).
		Ports(inputs, inMode).
		Shutdown(false).
		Commit()
	if err != nil {
		return nil, fmt.Errorf("max7301 %s: configure ports: %w", name, err)
	}

	d := &max7301Driver{
		ex:    ex,
		name:  name,
		debug: debug,
		meta:  f.meta,
	}
	if err := d.open(parseMode(params), outputs, inputs); err != nil {
		return nil, err
	}

	if d.debug {
		log.Printf("max7301 %s init mode=%s outputs=%s inputs=%s (%s)",
			d.name, parseMode(params), FormatPorts(outputs), FormatPorts(inputs), inMode)
	}
	return d, nil
}
