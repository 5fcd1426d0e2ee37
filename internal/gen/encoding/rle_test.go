package encoding

import (
	"context"
	"testing"

	"worldforge.ai/internal/gen/tuning"
	"worldforge.ai/internal/gen/world"
)

func TestRLE_RoundTrip(t *testing.T) {
	in := make([]uint16, 0, 200)
	in = append(in, 1, 1, 1, 2, 2, 3)
	for i := 0; i < 50; i++ {
		in = append(in, 65535)
	}
	in = append(in, 9, 10, 10, 10)

	enc := EncodeRLE(in)
	out, err := DecodeRLE(enc, len(in))
	if err != nil {
		t.Fatalf("DecodeRLE: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("len mismatch: got %d want %d", len(out), len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("mismatch at %d: got %d want %d", i, out[i], in[i])
		}
	}
}

func TestDecodeRLE_RejectsWrongLength(t *testing.T) {
	enc := EncodeRLE([]uint16{4, 4, 4, 4})
	if _, err := DecodeRLE(enc, 3); err == nil {
		t.Fatalf("expected overflow error")
	}
	if _, err := DecodeRLE(enc, 5); err == nil {
		t.Fatalf("expected short payload error")
	}
	if _, err := DecodeRLE("!!", 1); err == nil {
		t.Fatalf("expected base64 error")
	}
}

func TestQuantize_Bounds(t *testing.T) {
	q := Quantize([]float64{-0.2, 0, 0.5, 1, 1.7})
	want := []uint16{0, 0, 32768, 65535, 65535}
	for i := range want {
		if q[i] != want[i] {
			t.Fatalf("Quantize[%d] = %d want %d", i, q[i], want[i])
		}
	}
	back := Dequantize(q)
	if back[3] != 1 || back[0] != 0 {
		t.Fatalf("Dequantize endpoints: %v", back)
	}
}

func TestLayer_EveryNameEncodes(t *testing.T) {
	w, err := world.Generate(context.Background(), 3, 24, 16, tuning.Defaults())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	for _, name := range LayerNames() {
		vals, err := Layer(w, name)
		if err != nil {
			t.Fatalf("layer %s: %v", name, err)
		}
		if len(vals) != 24*16 {
			t.Fatalf("layer %s has %d cells", name, len(vals))
		}
		back, err := DecodeRLE(EncodeRLE(vals), len(vals))
		if err != nil {
			t.Fatalf("layer %s round trip: %v", name, err)
		}
		for i := range vals {
			if back[i] != vals[i] {
				t.Fatalf("layer %s differs at %d", name, i)
			}
		}
		if _, ok := LayerKind(name); !ok {
			t.Fatalf("layer %s has no kind", name)
		}
	}
	if _, err := Layer(w, "lava"); err == nil {
		t.Fatalf("unknown layer accepted")
	}
}
