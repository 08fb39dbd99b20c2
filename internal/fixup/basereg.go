package fixup

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/bringup/internal/chip"
	"github.com/vk/bringup/internal/ctxlog"
	"github.com/vk/bringup/internal/platform"
	"github.com/vk/bringup/internal/scom"
)

// Corrector programs the base-address control register that some firmware
// images forget to populate. The register is platform-global, so the first
// chip in iteration order stands in for the platform.
type Corrector struct {
	Config platform.BaseAddress
	Chips  *chip.Directory
	Bus    scom.Transport
}

// FixBaseAddress reads the register and, only when its enable bit is clear,
// writes the fixed platform value with the enable bit set. An enable bit
// already set means a later stage legitimately configured the register and
// the value is left untouched.
//
// This is the one correction whose failure is recoverable: on a transport
// error the register is left alone, the failure is logged for triage, and
// boot continues in a possibly degraded state. An empty chip directory is
// still fatal — there is no platform to correct.
func (c *Corrector) FixBaseAddress(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	ch := c.Chips.First()
	if ch == nil {
		return errors.New("fix base address: chip directory is empty")
	}

	val, err := c.Bus.Read(ch.ID, c.Config.Register)
	if err != nil {
		logger.Error("Base address register read failed, leaving it uncorrected.",
			"chip", ch.ID, "register", fmt.Sprintf("%#x", uint32(c.Config.Register)), "error", err)
		return nil
	}

	if val&c.Config.EnableBit != 0 {
		logger.Debug("Base address register already configured.",
			"chip", ch.ID, "value", fmt.Sprintf("%#x", val))
		return nil
	}

	if err := c.Bus.Write(ch.ID, c.Config.Register, c.Config.Value); err != nil {
		logger.Error("Base address register write failed.",
			"chip", ch.ID, "value", fmt.Sprintf("%#x", c.Config.Value), "error", err)
		return nil
	}

	logger.Info("Base address register corrected.",
		"chip", ch.ID, "value", fmt.Sprintf("%#x", c.Config.Value))
	return nil
}
