// Package bringup orchestrates the one-shot early bring-up sequence: tree
// reconciliation, register correction, interrupt routing policy, bridge
// init, UART path selection and console start.
//
// The sequence runs exactly once per boot, on the designated boot processor,
// before any other processor or subsystem is active. Nothing here locks:
// within that window concurrent access is structurally impossible, and the
// single-invocation guard on the sequencer is the mechanism that keeps the
// precondition honest. The sequencer must not be invoked again after drivers
// have started touching the same tree or registers.
package bringup

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/bringup/internal/chip"
	"github.com/vk/bringup/internal/ctxlog"
	"github.com/vk/bringup/internal/devtree"
	"github.com/vk/bringup/internal/fixup"
	"github.com/vk/bringup/internal/platform"
	"github.com/vk/bringup/internal/scom"
)

// ErrAlreadyRun is returned when RunOnce is invoked a second time. The
// sequence is not retryable: a partial earlier run has already mutated
// hardware state.
var ErrAlreadyRun = errors.New("bring-up sequence already ran")

// IRQPolicy selects where the external interrupt controller delivers
// interrupts.
type IRQPolicy int

const (
	// IRQPolicyFirmware routes external interrupts to this firmware.
	IRQPolicyFirmware IRQPolicy = iota
	// IRQPolicyOS routes external interrupts to the eventual OS.
	IRQPolicyOS
)

// InterruptController is the external interrupt controller abstraction.
type InterruptController interface {
	SetExternalPolicy(policy IRQPolicy) error
}

// HostBridge is the low-level bridge used to reach the management
// controller's internal bus. Init either succeeds or the boot cannot
// continue.
type HostBridge interface {
	Init() error
}

// ManagementIO programs the management controller's I/O decoding: which
// UART path is active and where the command channel interrupt is wired.
// Setup calls are one-shot register programming with no return data.
type ManagementIO interface {
	// VUARTEnabled reports whether the firmware image already enabled the
	// virtual UART path. It is a read-only configuration flag, observed
	// once at the start of the UART decision.
	VUARTEnabled() bool
	DisableSIOUART()
	SetupVUART(ioBase, irq uint32)
	SetupSIOUART(ioBase, irq uint32)
	SetupCommandChannel(ioBase, irq uint32)
}

// Console is the external console driver the sequencer hands off to.
type Console interface {
	Start(withInterrupts bool) error
}

// Sequencer wires the fixup layer to the platform collaborators and runs
// the bring-up order.
type Sequencer struct {
	Tree       *devtree.Tree
	Chips      *chip.Directory
	Config     platform.Config
	Registers  scom.Transport
	Interrupts InterruptController
	Bridge     HostBridge
	Management ManagementIO
	Console    Console

	ran bool
}

// RunOnce executes the bring-up sequence in its fixed order. No step is
// retried and there is no rollback: a failed fatal step aborts with an
// error, a recoverable step logs and continues. The first call consumes the
// sequencer whether it succeeds or not; later calls return ErrAlreadyRun.
func (s *Sequencer) RunOnce(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	if s.ran {
		return ErrAlreadyRun
	}
	s.ran = true

	// Repair the hardware description before anything attaches to it.
	reconciler := &fixup.Reconciler{Config: s.Config, Chips: s.Chips}
	if err := reconciler.Reconcile(ctx, s.Tree); err != nil {
		return fmt.Errorf("reconcile hardware description: %w", err)
	}
	injector := &fixup.Injector{Config: s.Config, Chips: s.Chips}
	if err := injector.InjectInventoryBus(ctx, s.Tree); err != nil {
		return fmt.Errorf("inject inventory bus: %w", err)
	}

	// The base address must be in place before interrupts can route to us.
	corrector := &fixup.Corrector{Config: s.Config.BaseAddress, Chips: s.Chips, Bus: s.Registers}
	if err := corrector.FixBaseAddress(ctx); err != nil {
		return fmt.Errorf("fix base address: %w", err)
	}

	if err := s.Interrupts.SetExternalPolicy(IRQPolicyFirmware); err != nil {
		return fmt.Errorf("set external interrupt policy: %w", err)
	}

	if err := s.Bridge.Init(); err != nil {
		return fmt.Errorf("initialize management bridge: %w", err)
	}

	// Exactly one UART path ends up active. The decision is driven solely
	// by the firmware configuration flag read here; there is no fallback.
	uart := s.Config.UART
	if s.Management.VUARTEnabled() {
		logger.Info("Using virtual UART.")
		s.Management.DisableSIOUART()
		s.Management.SetupVUART(uart.IOBase, uart.IRQ)
	} else {
		logger.Info("Using SuperIO UART.")
		s.Management.SetupSIOUART(uart.IOBase, uart.IRQ)
	}

	// Firmware images are known to misconfigure the command channel
	// interrupt, so it is reprogrammed unconditionally.
	cc := s.Config.CommandChannel
	s.Management.SetupCommandChannel(cc.IOBase, cc.IRQ)

	if err := s.Console.Start(true); err != nil {
		return fmt.Errorf("start console: %w", err)
	}

	logger.Info("Bring-up sequence complete.")
	return nil
}
