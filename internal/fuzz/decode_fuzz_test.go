package fuzztests

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"shade/internal/diag"
	"shade/internal/ir"
	"shade/internal/irbin"
)

// decodeTimeout bounds a single decode + validate. Exceeding it points at
// an unbounded walk over a malformed graph.
const decodeTimeout = 5 * time.Second

func FuzzDecode(f *testing.F) {
	addCorpusSeeds(f)
	f.Fuzz(func(t *testing.T, input []byte) {
		input = clampInput(input)

		bag := diag.NewBag(64)
		m, err := irbin.Decode(bytes.NewReader(input), irbin.DecodeOptions{Reporter: diag.BagReporter{Bag: bag}})
		if err != nil {
			var de *irbin.DecodeError
			if !errors.As(err, &de) {
				t.Fatalf("decode returned %T, want *irbin.DecodeError", err)
			}
			if bag.Len() != 1 {
				t.Fatalf("decode failure reported %d diagnostics", bag.Len())
			}
			return
		}
		if err := ir.Validate(m, ir.Options{MaxErrors: 64}); err != nil {
			return
		}
		data, err := irbin.Marshal(m)
		if err != nil {
			t.Fatalf("valid module does not encode: %v", err)
		}
		again, err := irbin.Unmarshal(data)
		if err != nil {
			t.Fatalf("re-decode: %v", err)
		}
		if want, got := ir.Disassemble(m), ir.Disassemble(again); want != got {
			t.Fatalf("round trip changed the module\n%s\n---\n%s", want, got)
		}
	})
}

// FuzzDecodeNoHang runs decode and validation under a deadline.
func FuzzDecodeNoHang(f *testing.F) {
	addCorpusSeeds(f)
	f.Fuzz(func(t *testing.T, input []byte) {
		input = clampInput(input)

		ctx, cancel := context.WithTimeout(context.Background(), decodeTimeout)
		defer cancel()

		done := make(chan struct{})
		go func() {
			defer close(done)
			m, err := irbin.Unmarshal(input)
			if err != nil {
				return
			}
			if ir.Validate(m, ir.Options{MaxErrors: 16}) == nil {
				_ = ir.Disassemble(m)
			}
		}()

		select {
		case <-done:
		case <-ctx.Done():
			t.Fatalf("decode did not finish within %v (input length %d)", decodeTimeout, len(input))
		}
	})
}
