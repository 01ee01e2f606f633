package hardware

import (
	"context"
	"testing"
)

func TestProbeNeverErrors(t *testing.T) {
	info := Probe(context.Background())
	if info.CPU.TotalMemoryMB < 0 || info.GPU.TotalMemoryMB < 0 {
		t.Fatalf("expected non-negative memory figures, got %+v", info)
	}
}

func TestParseMeminfoLine(t *testing.T) {
	if v := parseMeminfoLine("MemTotal:       16384000 kB"); v != 16384000 {
		t.Fatalf("got %d", v)
	}
	if v := parseMeminfoLine("garbage"); v != 0 {
		t.Fatalf("expected 0 for malformed line, got %d", v)
	}
}
