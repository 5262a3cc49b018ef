package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	pinDeviceName string
	pinName       string
	pinHigh       bool
	pinLow        bool
)

var pinCmd = &cobra.Command{
	Use:   "pin",
	Short: "Control pins via boundary scan",
	Long: `Control individual pins on devices in the JTAG chain using boundary scan.
Each run discovers and validates the chain itself before driving the pin;
with the simulator, --sim-ids supplies the IDCODEs it returns.

Examples:
  # Drive pin PA0 high on STM32F303
  jtag pin --device STM32F303_F334_LQFP64 --pin PA0 --high

  # Drive pin PA1 low on STM32F303
  jtag pin --device STM32F303_F334_LQFP64 --pin PA1 --low

  # With simulator (single device)
  jtag pin --count 1 --sim-ids 0x06438041 --device STM32F303_F334_LQFP64 --pin PA0 --high`,
	RunE: runPin,
}

func init() {
	rootCmd.AddCommand(pinCmd)

	// Pin-specific flags
	pinCmd.Flags().StringVarP(&pinDeviceName, "device", "d", "",
		"device name (entity name from BSDL)")
	pinCmd.Flags().StringVarP(&pinName, "pin", "p", "",
		"pin name (e.g., PA0, PB5)")
	pinCmd.Flags().BoolVar(&pinHigh, "high", false,
		"drive pin high (true/1)")
	pinCmd.Flags().BoolVar(&pinLow, "low", false,
		"drive pin low (false/0)")

	// Chain setup flags (for simulator mode)
	pinCmd.Flags().IntVarP(&deviceCount, "count", "c", 1,
		"number of devices in chain (for simulator)")
	pinCmd.Flags().StringSliceVar(&simIDCodes, "sim-ids", nil,
		"simulator: IDCODEs to return")
	pinCmd.Flags().StringVarP(&bsdlDir, "bsdl", "b", "testdata",
		"directory containing BSDL files")
	pinCmd.Flags().StringVarP(&adapterType, "adapter", "a", "simulator",
		"JTAG adapter type")

	// Mark required
	pinCmd.MarkFlagRequired("device")
	pinCmd.MarkFlagRequired("pin")
}

func runPin(cmd *cobra.Command, args []string) error {
	// Validate flags
	if !pinHigh && !pinLow {
		return fmt.Errorf("must specify either --high or --low")
	}
	if pinHigh && pinLow {
		return fmt.Errorf("cannot specify both --high and --low")
	}

	ctrl, err := discoverChain(adapterType, adapterSerial, adapterSpeed, bsdlDir, deviceCount)
	if err != nil {
		return err
	}

	targetDevice, ok := ctrl.Chain.DeviceByName(pinDeviceName)
	if !ok {
		fmt.Printf("Device '%s' not found in chain.\n\nAvailable devices:\n", pinDeviceName)
		for i, dev := range ctrl.Chain.Devices {
			idcode := uint32(0)
			if dev.IDCode != nil {
				idcode = dev.IDCode.Value
			}
			fmt.Printf("  %d. %s (IDCODE: 0x%08X)\n", i+1, dev.Name, idcode)
		}
		return fmt.Errorf("device not found: %s", pinDeviceName)
	}

	pin, ok := targetDevice.Pinmap[pinName]
	if !ok {
		return fmt.Errorf("pin not found: %s on device %s", pinName, pinDeviceName)
	}

	level := pinHigh // true if --high, false if --low
	action := "low"
	if level {
		action = "high"
	}

	if verbose {
		fmt.Printf("Target device: %s\n", targetDevice.Name)
	}
	fmt.Printf("Setting pin %s on device %s to %s...\n", pinName, pinDeviceName, action)

	// Per the EXTEST contract: enter EXTEST first, then drive cells, then
	// await one scan cycle to latch and shift the new boundary values out.
	if err := ctrl.Extest(); err != nil {
		return fmt.Errorf("failed to enter EXTEST: %w", err)
	}
	if err := pin.SetValue(level); err != nil {
		return fmt.Errorf("failed to set pin value: %w", err)
	}
	if pin.ControlCell != nil {
		if err := pin.OutputEnable(true); err != nil {
			return fmt.Errorf("failed to enable pin output: %w", err)
		}
	}
	if err := ctrl.Cycle(); err != nil {
		return fmt.Errorf("failed to cycle the boundary scan: %w", err)
	}

	fmt.Printf("Pin %s set to %s successfully\n", pinName, action)

	if verbose {
		fmt.Println("\nBoundary scan operation completed.")
		fmt.Printf("The output cell for pin %s has been programmed to drive %s.\n", pinName, action)
		fmt.Printf("Total boundary cells: %d\n", len(targetDevice.Cells))
	}

	return nil
}
