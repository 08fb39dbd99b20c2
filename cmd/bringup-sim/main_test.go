package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunDefaultSimulation(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run(&out, []string{"-no-color", "-log-level", "error"}))

	assert.Contains(t, out.String(), "uart path:")
	assert.Contains(t, out.String(), "sio")
	assert.Contains(t, out.String(), "console:")
}

func TestRunDumpContainsSynthesizedNodes(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run(&out, []string{"-no-color", "-log-level", "error", "-dump"}))

	assert.Contains(t, out.String(), "serial@i3f8")
	assert.Contains(t, out.String(), "ipmi-bt@ie4")
	assert.Contains(t, out.String(), "i2cm@a0020")
}

func TestRunIdempotenceCheck(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run(&out, []string{"-no-color", "-log-level", "error", "-check-idempotent"}))
	assert.Contains(t, out.String(), "idempotence check passed")
}

func TestRunVirtualUART(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run(&out, []string{"-no-color", "-log-level", "error", "-vuart"}))
	assert.Contains(t, out.String(), "vuart")
}

func TestRunRejectsBadFlags(t *testing.T) {
	var out bytes.Buffer
	err := run(&out, []string{"-chips", "0"})
	require.Error(t, err)
}

func TestRunHelp(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run(&out, []string{"-h"}))
	assert.Contains(t, out.String(), "Usage:")
}
