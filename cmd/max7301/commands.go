package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/epicfatigue/drivers/max7301"
)

// parseByte accepts "0x44" style hex or "68" style decimal.
func parseByte(s string) (byte, error) {
	v, err := strconv.ParseUint(s, 0, 8)
	return byte(v), err
}

func parseLevel(s string) (bool, error) {
	switch s {
	case "1", "high", "on":
		return true, nil
	case "0", "low", "off":
		return false, nil
	}
	return false, fmt.Errorf("invalid level %q (want 0 or 1)", s)
}

var (
	regCmd = &cobra.Command{
		Use:   "reg",
		Short: "Raw register access",
	}

	regReadCmd = &cobra.Command{
		Use:   "read ADDR",
		Short: "Read one register",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := parseByte(args[0])
			if err != nil {
				return fmt.Errorf("invalid address %q: %w", args[0], err)
			}
			return withDevice(func(d *device) error {
				v, err := d.ReadRegister(max7301.RegisterAddress(addr))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s = 0x%02X\n", max7301.RegisterAddress(addr), v)
				return nil
			})
		},
	}

	regWriteCmd = &cobra.Command{
		Use:   "write ADDR VALUE",
		Short: "Write one register",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := parseByte(args[0])
			if err != nil {
				return fmt.Errorf("invalid address %q: %w", args[0], err)
			}
			v, err := parseByte(args[1])
			if err != nil {
				return fmt.Errorf("invalid value %q: %w", args[1], err)
			}
			return withDevice(func(d *device) error {
				return d.WriteRegister(max7301.RegisterAddress(addr), v)
			})
		},
	}

	portCmd = &cobra.Command{
		Use:   "port",
		Short: "Single port access",
	}

	portGetCmd = &cobra.Command{
		Use:   "get PORTS",
		Short: "Read port levels, one bus read per port",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ports, err := max7301.ParsePorts(args[0])
			if err != nil {
				return err
			}
			return withDevice(func(d *device) error {
				io := d.Immediate()
				for _, p := range ports {
					pin, err := io.Pin(p)
					if err != nil {
						return err
					}
					high, err := pin.IsHigh()
					pin.Release() //nolint:errcheck
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\n", p, b2i(high))
				}
				return nil
			})
		},
	}

	portSetCmd = &cobra.Command{
		Use:   "set PORT 0|1",
		Short: "Drive one port",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid port %q: %w", args[0], err)
			}
			p, err := max7301.NewPort(n)
			if err != nil {
				return err
			}
			high, err := parseLevel(args[1])
			if err != nil {
				return err
			}
			return withDevice(func(d *device) error {
				pin, err := d.Immediate().Pin(p)
				if err != nil {
					return err
				}
				defer pin.Release() //nolint:errcheck
				return pin.Set(high)
			})
		},
	}

	configureOpts = struct {
		outputs     string
		inputs      string
		pullup      bool
		shutdown    bool
		transitions bool
	}{}

	configureCmd = &cobra.Command{
		Use:   "configure",
		Short: "Set port modes and the configuration register",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			outputs, err := max7301.ParsePorts(configureOpts.outputs)
			if err != nil {
				return err
			}
			inputs, err := max7301.ParsePorts(configureOpts.inputs)
			if err != nil {
				return err
			}
			inMode := max7301.InputFloating
			if configureOpts.pullup {
				inMode = max7301.InputPullup
			}
			return withDevice(func(d *device) error {
				return d.Configure().
					Ports(outputs, max7301.Output).
					Ports(inputs, inMode).
					Shutdown(configureOpts.shutdown).
					DetectTransitions(configureOpts.transitions).
					Commit()
			})
		},
	}

	dumpCmd = &cobra.Command{
		Use:   "dump [PORTS]",
		Short: "Read port levels and modes in one batch",
		Long:  "Refresh the listed ports (default: all) through the write-back cache, reading each register once, and print their modes and levels.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ports := max7301.AllPorts()
			if len(args) == 1 {
				var err error
				if ports, err = max7301.ParsePorts(args[0]); err != nil {
					return err
				}
			}
			return withDevice(func(d *device) error {
				counter := &countingInterface{Interface: max7301.NewSPI(d.conn)}
				io := newExpander(counter).Transactional()
				if err := io.Refresh(max7301.Ports(ports...).WithModes()); err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for _, p := range ports {
					pin, err := io.Pin(p)
					if err != nil {
						return err
					}
					mode, err := pin.Mode()
					if err != nil {
						return err
					}
					high, err := pin.IsHigh()
					if err != nil {
						return err
					}
					pin.Release() //nolint:errcheck
					fmt.Fprintf(out, "%s\t%-13s\t%d\n", p, mode, b2i(high))
				}
				fmt.Fprintf(out, "%d ports, %d register reads\n", len(ports), counter.reads)
				return nil
			})
		},
	}
)

func init() {
	regCmd.AddCommand(regReadCmd, regWriteCmd)
	portCmd.AddCommand(portGetCmd, portSetCmd)

	configureCmd.Flags().StringVar(&configureOpts.outputs, "output", "", "ports to switch to output, e.g. 4-11,20")
	configureCmd.Flags().StringVar(&configureOpts.inputs, "input", "", "ports to switch to input")
	configureCmd.Flags().BoolVar(&configureOpts.pullup, "pullup", false, "enable the pull-up on --input ports")
	configureCmd.Flags().BoolVar(&configureOpts.shutdown, "shutdown", false, "put the device in shutdown")
	configureCmd.Flags().BoolVar(&configureOpts.transitions, "transitions", false, "enable transition detection")
}

// countingInterface counts register reads for the dump summary.
type countingInterface struct {
	max7301.Interface
	reads int
}

func (c *countingInterface) ReadRegister(addr max7301.RegisterAddress) (byte, error) {
	c.reads++
	return c.Interface.ReadRegister(addr)
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}
