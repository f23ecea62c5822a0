// Command max7301 pokes at a MAX7301 port expander on an SPI bus.
//
//	max7301 --spi SPI0.0 configure --output 4-11 --input 12-19 --pullup
//	max7301 port set 7 1
//	max7301 dump 4-19
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	"github.com/epicfatigue/drivers/max7301"
)

var (
	rootOpts = struct {
		spi   string
		freq  string
		debug bool
	}{}

	rootCmd = &cobra.Command{
		Use:           "max7301",
		Short:         "Access a MAX7301 GPIO expander",
		Long:          "Read and write registers and ports of a MAX7301 28-port GPIO expander over SPI.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&rootOpts.spi, "spi", "", "SPI port name (default: first available)")
	rootCmd.PersistentFlags().StringVar(&rootOpts.freq, "freq", "4MHz", "SPI clock frequency")
	rootCmd.PersistentFlags().BoolVar(&rootOpts.debug, "debug", false, "log every register transaction")

	rootCmd.AddCommand(regCmd, portCmd, configureCmd, dumpCmd)
}

// device holds an open expander and the SPI port behind it.
type device struct {
	*max7301.Expander
	port spi.PortCloser
	conn spi.Conn
}

func (d *device) Close() error {
	return d.port.Close()
}

func open() (*device, error) {
	var freq physic.Frequency
	if err := freq.Set(rootOpts.freq); err != nil {
		return nil, fmt.Errorf("invalid --freq %q: %w", rootOpts.freq, err)
	}

	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}

	port, err := spireg.Open(rootOpts.spi)
	if err != nil {
		return nil, fmt.Errorf("open spi %q: %w", rootOpts.spi, err)
	}
	c, err := port.Connect(freq, spi.Mode0, 8)
	if err != nil {
		port.Close() //nolint:errcheck
		return nil, fmt.Errorf("connect spi %s: %w", port, err)
	}

	if rootOpts.debug {
		log.Printf("opened max7301 at %s (%s)", port, freq)
	}
	return &device{Expander: newExpander(max7301.NewSPI(c)), port: port, conn: c}, nil
}

func newExpander(iface max7301.Interface) *max7301.Expander {
	ex := max7301.New(iface)
	ex.SetDebug(rootOpts.debug)
	return ex
}

// withDevice runs fn with an open device and closes it afterwards.
func withDevice(fn func(d *device) error) error {
	d, err := open()
	if err != nil {
		return err
	}
	defer d.Close()
	return fn(d)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "max7301:", err)
		os.Exit(1)
	}
}
