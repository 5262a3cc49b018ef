package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/OpenTraceLab/OpenTraceJTAG/pkg/jtag"
	"github.com/OpenTraceLab/OpenTraceJTAG/pkg/stapl"
	"github.com/OpenTraceLab/OpenTraceJTAG/pkg/tap"
	"github.com/spf13/cobra"
)

var staplOptional bool

var staplCmd = &cobra.Command{
	Use:   "stapl <device_url> <stapl_file> <action>...",
	Short: "Run a STAPL program against a JTAG adapter",
	Long: `Parse and execute a JEDEC JESD71 STAPL program, driving the TAP through the
named action(s) in order. device_url selects the adapter: "sim://" runs
against the in-process simulator, anything else opens the first discovered
CMSIS-DAP or Pico USB interface.

Examples:
  jtag stapl sim:// program.stp PROGRAM
  jtag stapl sim:// program.stp ERASE PROGRAM VERIFY --optional`,
	Args: cobra.MinimumNArgs(3),
	RunE: runStapl,
}

func init() {
	staplCmd.Flags().BoolVar(&staplOptional, "optional", false,
		"do not fail the whole run if an action ends in an EXIT error")
	rootCmd.AddCommand(staplCmd)
}

func runStapl(cmd *cobra.Command, args []string) error {
	deviceURL, file, actions := args[0], args[1], args[2:]

	src, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("read stapl file: %w", err)
	}

	prog, err := stapl.Parse(string(src))
	if err != nil {
		return fmt.Errorf("parse stapl file: %w", err)
	}
	if err := stapl.VerifyCRC(string(src), prog); err != nil {
		return fmt.Errorf("verify CRC: %w", err)
	}

	adapter, err := openAdapter(deviceURL)
	if err != nil {
		return fmt.Errorf("open adapter %s: %w", deviceURL, err)
	}

	ctl := tap.NewController(jtag.NewAdapterTransport(adapter))
	host := stapl.NewControllerHost(ctl)
	in := stapl.NewInterpreter(prog, host)

	for _, action := range actions {
		if verbose {
			fmt.Printf("running action %s\n", action)
		}
		if err := in.Run(action); err != nil {
			var ee *stapl.ExitError
			if staplOptional && errorsAsExit(err, &ee) {
				fmt.Printf("action %s exited with code %d (ignored: --optional)\n", action, ee.Code)
				continue
			}
			return fmt.Errorf("action %s: %w", action, err)
		}
	}

	for _, ev := range host.Exports {
		fmt.Printf("%s = %s\n", ev.Key, ev.Value)
	}

	return nil
}

func errorsAsExit(err error, target **stapl.ExitError) bool {
	for err != nil {
		if e, ok := err.(*stapl.ExitError); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// openAdapter resolves a device_url into a connected jtag.Adapter. "sim://"
// always succeeds against the in-process simulator; anything else picks the
// first discovered CMSIS-DAP or Pico USB interface (the rest of device_url is
// not used to choose between interfaces).
func openAdapter(deviceURL string) (jtag.Adapter, error) {
	if strings.HasPrefix(deviceURL, "sim://") {
		return jtag.NewSimAdapter(jtag.AdapterInfo{
			Name:   "JTAG Simulator",
			Vendor: "OpenTraceLab",
			Model:  "sim",
		}), nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	infos, err := jtag.DiscoverInterfaces(ctx)
	if err != nil {
		return nil, err
	}

	for _, info := range infos {
		switch info.Kind {
		case jtag.InterfaceKindCMSISDAP:
			return jtag.NewCMSISDAPAdapter(info.VendorID, info.ProductID)
		case jtag.InterfaceKindPico:
			return jtag.NewPicoProbeAdapter(info.Path)
		}
	}

	return nil, fmt.Errorf("no matching JTAG interface found for %q", deviceURL)
}
