package platform

import (
	"context"
	"fmt"
	"math/big"
	"strconv"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/bringup/internal/ctxlog"
	"github.com/vk/bringup/internal/scom"
)

// HCL has no hex integer literals, so register and I/O addresses are written
// as strings ("0x3f8") and parsed with base auto-detection. Plain decimal
// attributes may be written as numbers.
var fileSchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "bus_class"},
	},
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "uart"},
		{Type: "command_channel"},
		{Type: "inventory"},
		{Type: "base_address"},
	},
}

// Load parses an HCL override file and applies it on top of Defaults().
// Attributes and blocks absent from the file keep their default values.
func Load(ctx context.Context, path string) (Config, error) {
	logger := ctxlog.FromContext(ctx)
	cfg := Defaults()

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return cfg, fmt.Errorf("parse %s: %w", path, diags)
	}

	content, diags := file.Body.Content(fileSchema)
	if diags.HasErrors() {
		return cfg, fmt.Errorf("decode %s: %w", path, diags)
	}

	if attr, ok := content.Attributes["bus_class"]; ok {
		if err := setString(&cfg.BusClass)(attr); err != nil {
			return cfg, err
		}
	}

	for _, block := range content.Blocks {
		attrs, diags := block.Body.JustAttributes()
		if diags.HasErrors() {
			return cfg, fmt.Errorf("decode %s block in %s: %w", block.Type, path, diags)
		}

		var setters map[string]attrSetter
		switch block.Type {
		case "uart":
			setters = map[string]attrSetter{
				"io_base":  setUint32(&cfg.UART.IOBase),
				"io_len":   setUint32(&cfg.UART.IOLen),
				"irq":      setUint32(&cfg.UART.IRQ),
				"clock_hz": setUint32(&cfg.UART.ClockHz),
				"baud":     setUint32(&cfg.UART.Baud),
			}
		case "command_channel":
			setters = map[string]attrSetter{
				"io_base": setUint32(&cfg.CommandChannel.IOBase),
				"io_len":  setUint32(&cfg.CommandChannel.IOLen),
				"irq":     setUint32(&cfg.CommandChannel.IRQ),
			}
		case "inventory":
			setters = map[string]attrSetter{
				"controller_class":  setString(&cfg.Inventory.ControllerClass),
				"bus_classes":       setStringList(&cfg.Inventory.BusClasses),
				"controller_base":   setUint32(&cfg.Inventory.ControllerBase),
				"controller_stride": setUint32(&cfg.Inventory.ControllerStride),
				"engine":            setUint32(&cfg.Inventory.Engine),
				"clock_hz":          setUint32(&cfg.Inventory.ClockHz),
				"bus_ports":         setUint32List(&cfg.Inventory.BusPorts),
				"bus_hz":            setUint32(&cfg.Inventory.BusHz),
				"device_addr":       setUint32(&cfg.Inventory.DeviceAddr),
				"device_name":       setString(&cfg.Inventory.DeviceName),
				"device_class":      setString(&cfg.Inventory.DeviceClass),
				"device_label":      setString(&cfg.Inventory.DeviceLabel),
			}
		case "base_address":
			setters = map[string]attrSetter{
				"register":   setRegister(&cfg.BaseAddress.Register),
				"value":      setUint64(&cfg.BaseAddress.Value),
				"enable_bit": setUint64(&cfg.BaseAddress.EnableBit),
			}
		}

		if err := applyAttrs(block.Type, attrs, setters); err != nil {
			return cfg, fmt.Errorf("%s: %w", path, err)
		}
	}

	logger.Debug("Platform overrides loaded.", "path", path, "bus_class", cfg.BusClass)
	return cfg, nil
}

type attrSetter func(*hcl.Attribute) error

func applyAttrs(blockType string, attrs hcl.Attributes, setters map[string]attrSetter) error {
	for name, attr := range attrs {
		set, ok := setters[name]
		if !ok {
			return fmt.Errorf("block %s: unsupported attribute %q", blockType, name)
		}
		if err := set(attr); err != nil {
			return fmt.Errorf("block %s, attribute %s: %w", blockType, name, err)
		}
	}
	return nil
}

func setString(dst *string) attrSetter {
	return func(attr *hcl.Attribute) error {
		val, err := attrValue(attr)
		if err != nil {
			return err
		}
		if val.Type() != cty.String {
			return fmt.Errorf("expected a string, got %s", val.Type().FriendlyName())
		}
		*dst = val.AsString()
		return nil
	}
}

func setUint32(dst *uint32) attrSetter {
	return func(attr *hcl.Attribute) error {
		val, err := attrValue(attr)
		if err != nil {
			return err
		}
		u, err := uintValue(val)
		if err != nil {
			return err
		}
		if u > 0xffffffff {
			return fmt.Errorf("value %#x does not fit in 32 bits", u)
		}
		*dst = uint32(u)
		return nil
	}
}

func setUint64(dst *uint64) attrSetter {
	return func(attr *hcl.Attribute) error {
		val, err := attrValue(attr)
		if err != nil {
			return err
		}
		u, err := uintValue(val)
		if err != nil {
			return err
		}
		*dst = u
		return nil
	}
}

func setRegister(dst *scom.RegisterID) attrSetter {
	return func(attr *hcl.Attribute) error {
		var raw uint32
		if err := setUint32(&raw)(attr); err != nil {
			return err
		}
		*dst = scom.RegisterID(raw)
		return nil
	}
}

func setStringList(dst *[]string) attrSetter {
	return func(attr *hcl.Attribute) error {
		val, err := attrValue(attr)
		if err != nil {
			return err
		}
		if !val.CanIterateElements() {
			return fmt.Errorf("expected a list, got %s", val.Type().FriendlyName())
		}
		var out []string
		for it := val.ElementIterator(); it.Next(); {
			_, elem := it.Element()
			if elem.Type() != cty.String {
				return fmt.Errorf("expected a string element, got %s", elem.Type().FriendlyName())
			}
			out = append(out, elem.AsString())
		}
		*dst = out
		return nil
	}
}

func setUint32List(dst *[]uint32) attrSetter {
	return func(attr *hcl.Attribute) error {
		val, err := attrValue(attr)
		if err != nil {
			return err
		}
		if !val.CanIterateElements() {
			return fmt.Errorf("expected a list, got %s", val.Type().FriendlyName())
		}
		var out []uint32
		for it := val.ElementIterator(); it.Next(); {
			_, elem := it.Element()
			u, err := uintValue(elem)
			if err != nil {
				return err
			}
			if u > 0xffffffff {
				return fmt.Errorf("element %#x does not fit in 32 bits", u)
			}
			out = append(out, uint32(u))
		}
		*dst = out
		return nil
	}
}

func attrValue(attr *hcl.Attribute) (cty.Value, error) {
	val, diags := attr.Expr.Value(nil)
	if diags.HasErrors() {
		return cty.NilVal, fmt.Errorf("evaluate: %w", diags)
	}
	return val, nil
}

// uintValue accepts either an exact cty number or a string in Go integer
// literal syntax (hex with 0x, octal, decimal).
func uintValue(val cty.Value) (uint64, error) {
	switch val.Type() {
	case cty.Number:
		bf := val.AsBigFloat()
		u, acc := bf.Uint64()
		if acc != big.Exact {
			return 0, fmt.Errorf("number %s is not an exact unsigned integer", bf.String())
		}
		return u, nil
	case cty.String:
		u, err := strconv.ParseUint(val.AsString(), 0, 64)
		if err != nil {
			return 0, fmt.Errorf("parse %q: %w", val.AsString(), err)
		}
		return u, nil
	default:
		return 0, fmt.Errorf("expected a number or numeric string, got %s", val.Type().FriendlyName())
	}
}
