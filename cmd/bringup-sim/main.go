// Command bringup-sim runs the early bring-up sequence against fully
// simulated hardware: a synthetic post-boot-stage description tree, an
// in-memory register bus and recording stand-ins for the management
// controller, bridge, interrupt controller and console. It exists to
// exercise and inspect the sequence off-target.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"

	"github.com/vk/bringup/internal/cli"
	"github.com/vk/bringup/internal/ctxlog"
	"github.com/vk/bringup/internal/fixup"
	"github.com/vk/bringup/internal/platform"
	"github.com/vk/bringup/internal/sim"
	"github.com/vk/bringup/internal/treedump"
)

func main() {
	if err := run(os.Stdout, os.Args[1:]); err != nil {
		if exitErr, ok := err.(*cli.ExitError); ok {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run holds the whole program so tests can drive it with a buffer.
func run(outW io.Writer, args []string) error {
	opts, shouldExit, err := cli.Parse(args, outW)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}
	if opts.NoColor {
		color.NoColor = true
	}

	logger := cli.NewLogger(opts.LogLevel, opts.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)

	cfg := platform.Defaults()
	if opts.PlatformPath != "" {
		cfg, err = platform.Load(ctx, opts.PlatformPath)
		if err != nil {
			return fmt.Errorf("load platform overrides: %w", err)
		}
	}

	world, err := sim.NewWorld(cfg, sim.Options{
		Chips:                 opts.Chips,
		VUARTEnabled:          opts.VUART,
		BaseAddressConfigured: opts.BARConfigured,
		FailBaseAddressRead:   opts.FailBARRead,
		ExistingConsole:       opts.ExistingConsole,
		ExistingInventory:     opts.ExistingInventory,
	})
	if err != nil {
		return err
	}

	if err := world.Sequencer().RunOnce(ctx); err != nil {
		return fmt.Errorf("bring-up sequence failed: %w", err)
	}

	printSummary(outW, world)

	if opts.CheckIdempotent {
		if err := checkIdempotent(ctx, outW, world); err != nil {
			return err
		}
	}

	if opts.DumpTree {
		dump, err := treedump.Render(world.Tree)
		if err != nil {
			return err
		}
		fmt.Fprint(outW, dump)
	}
	return nil
}

func printSummary(w io.Writer, world *sim.World) {
	ok := color.New(color.FgGreen).SprintFunc()
	warn := color.New(color.FgYellow).SprintFunc()

	fmt.Fprintf(w, "uart path:        %s\n", ok(world.Management.ActiveUART()))
	fmt.Fprintf(w, "command channel:  %s\n", wiringStatus(ok, world.Management.CommandChannel != nil))
	fmt.Fprintf(w, "bridge:           %s\n", wiringStatus(ok, world.Bridge.Inited))
	fmt.Fprintf(w, "console:          %s\n", wiringStatus(ok, world.Console.Started))

	if n := len(world.Bus.Writes()); n > 0 {
		fmt.Fprintf(w, "register writes:  %d\n", n)
	} else {
		fmt.Fprintf(w, "register writes:  %s\n", warn("none"))
	}
	fmt.Fprintf(w, "tree nodes:       %d\n", world.Tree.NodeCount())
}

func wiringStatus(paint func(...interface{}) string, done bool) string {
	if done {
		return paint("configured")
	}
	return "not configured"
}

// checkIdempotent reruns the tree fixups on the already-repaired tree and
// fails if the second pass changed anything.
func checkIdempotent(ctx context.Context, outW io.Writer, world *sim.World) error {
	before, err := treedump.Render(world.Tree)
	if err != nil {
		return err
	}

	reconciler := &fixup.Reconciler{Config: world.Config, Chips: world.Chips}
	if err := reconciler.Reconcile(ctx, world.Tree); err != nil {
		return err
	}
	injector := &fixup.Injector{Config: world.Config, Chips: world.Chips}
	if err := injector.InjectInventoryBus(ctx, world.Tree); err != nil {
		return err
	}

	after, err := treedump.Render(world.Tree)
	if err != nil {
		return err
	}

	if diff := treedump.Diff(before, after); diff != "" {
		color.New(color.FgRed).Fprintln(outW, "tree fixups are not idempotent:")
		fmt.Fprintln(outW, diff)
		return &cli.ExitError{Code: 1, Message: "tree fixups are not idempotent"}
	}
	color.New(color.FgGreen).Fprintln(outW, "idempotence check passed: second fixup pass changed nothing")
	return nil
}
