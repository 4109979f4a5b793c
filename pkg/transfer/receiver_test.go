package transfer

import (
	"bytes"
	"errors"
	"testing"
)

func testConfig(capacity int) Config {
	config := DefaultConfig()
	config.BufferCapacity = capacity
	return config
}

func patterned(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i*7 + 3)
	}
	return data
}

func TestReceiver_ThreeFragments(t *testing.T) {
	r := NewReceiver(testConfig(4096))
	blob := patterned(3800)

	fragments := []Fragment{
		{Offset: 0, Data: blob[0:1500]},
		{Offset: 1500, Data: blob[1500:3000]},
		{Offset: 3000, Data: blob[3000:3800]},
	}

	for i, f := range fragments[:2] {
		c, err := r.Receive(f)
		if err != nil {
			t.Fatalf("Receive(%d) error = %v", i, err)
		}
		if c != nil {
			t.Fatalf("Receive(%d) completed early", i)
		}
		if r.State() != StateAccumulating {
			t.Errorf("State() after fragment %d = %v, want %v", i, r.State(), StateAccumulating)
		}
	}

	c, err := r.Receive(fragments[2])
	if err != nil {
		t.Fatalf("Receive(final) error = %v", err)
	}
	if c == nil {
		t.Fatalf("Receive(final) returned no completion")
	}
	if len(c.Image) != 3800 {
		t.Errorf("len(Image) = %d, want 3800", len(c.Image))
	}
	if !bytes.Equal(c.Image, blob) {
		t.Errorf("Image content mismatch")
	}
	if c.Fragments != 3 || c.Bytes != 3800 {
		t.Errorf("Completion = {Fragments: %d, Bytes: %d}, want {3, 3800}", c.Fragments, c.Bytes)
	}
	if r.State() != StateIdle {
		t.Errorf("State() = %v, want %v", r.State(), StateIdle)
	}

	stats := r.Stats()
	if stats.GetRxFragments() != 3 {
		t.Errorf("RxFragments = %d, want 3", stats.GetRxFragments())
	}
	if stats.GetRxBytes() != 3800 {
		t.Errorf("RxBytes = %d, want 3800", stats.GetRxBytes())
	}
	if stats.GetTransfers() != 1 {
		t.Errorf("Transfers = %d, want 1", stats.GetTransfers())
	}
}

func TestReceiver_SingleShortFragment(t *testing.T) {
	r := NewReceiver(testConfig(4096))
	data := patterned(200)

	c, err := r.Receive(Fragment{Offset: 0, Data: data})
	if err != nil {
		t.Fatalf("Receive() error = %v", err)
	}
	if c == nil {
		t.Fatalf("Receive() returned no completion")
	}
	if !bytes.Equal(c.Image, data) {
		t.Errorf("Image = %d bytes, want the 200-byte fragment", len(c.Image))
	}
	if r.State() != StateIdle {
		t.Errorf("State() = %v, want %v", r.State(), StateIdle)
	}
}

func TestReceiver_OverflowLeavesStateUnchanged(t *testing.T) {
	tests := []struct {
		name  string
		setup []Fragment
		state State
	}{
		{"while idle", nil, StateIdle},
		{"while accumulating", []Fragment{{Offset: 0, Data: patterned(1500)}}, StateAccumulating},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReceiver(testConfig(4096))
			for _, f := range tt.setup {
				if _, err := r.Receive(f); err != nil {
					t.Fatalf("setup Receive() error = %v", err)
				}
			}
			before := append([]byte(nil), r.Buffer().storage...)
			extent := r.Buffer().Len()

			c, err := r.Receive(Fragment{Offset: 4000, Data: make([]byte, 200)})
			if !errors.Is(err, ErrBufferOverflow) {
				t.Fatalf("Receive() error = %v, want %v", err, ErrBufferOverflow)
			}
			if c != nil {
				t.Errorf("Receive() returned completion on overflow")
			}
			if r.State() != tt.state {
				t.Errorf("State() = %v, want %v", r.State(), tt.state)
			}
			if !bytes.Equal(r.Buffer().storage, before) || r.Buffer().Len() != extent {
				t.Errorf("buffer modified by rejected fragment")
			}
			if r.Stats().GetBufferOverflows() != 1 {
				t.Errorf("BufferOverflows = %d, want 1", r.Stats().GetBufferOverflows())
			}
		})
	}
}

func TestReceiver_FragmentTooLarge(t *testing.T) {
	r := NewReceiver(testConfig(4096))

	_, err := r.Receive(Fragment{Offset: 0, Data: make([]byte, 1501)})
	if !errors.Is(err, ErrFragmentTooLarge) {
		t.Fatalf("Receive() error = %v, want %v", err, ErrFragmentTooLarge)
	}
	if r.State() != StateIdle {
		t.Errorf("State() = %v, want %v", r.State(), StateIdle)
	}
	if r.Stats().GetOversizedFragments() != 1 {
		t.Errorf("OversizedFragments = %d, want 1", r.Stats().GetOversizedFragments())
	}
}

func TestReceiver_WriteOrderIndependence(t *testing.T) {
	blob := patterned(4500)
	full := []Fragment{
		{Offset: 0, Data: blob[0:1500]},
		{Offset: 1500, Data: blob[1500:3000]},
		{Offset: 3000, Data: blob[3000:4500]},
	}
	final := Fragment{Offset: 4500, Data: blob[4500:]}

	orders := [][]int{
		{0, 1, 2},
		{2, 1, 0},
		{1, 0, 2},
		{2, 0, 1},
	}

	for _, order := range orders {
		r := NewReceiver(testConfig(4608))
		for _, i := range order {
			c, err := r.Receive(full[i])
			if err != nil {
				t.Fatalf("order %v: Receive() error = %v", order, err)
			}
			if c != nil {
				t.Fatalf("order %v: completed on a full fragment", order)
			}
		}
		c, err := r.Receive(final)
		if err != nil || c == nil {
			t.Fatalf("order %v: final Receive() = %v, %v", order, c, err)
		}
		if !bytes.Equal(c.Image, blob) {
			t.Errorf("order %v: snapshot differs from blob", order)
		}
	}
}

func TestReceiver_DuplicateFragmentsIdempotent(t *testing.T) {
	blob := patterned(3200)
	first := Fragment{Offset: 0, Data: blob[0:1500]}
	second := Fragment{Offset: 1500, Data: blob[1500:3000]}
	last := Fragment{Offset: 3000, Data: blob[3000:]}

	r := NewReceiver(testConfig(4096))
	for _, f := range []Fragment{first, second, first, second, second} {
		if c, err := r.Receive(f); err != nil || c != nil {
			t.Fatalf("Receive() = %v, %v", c, err)
		}
	}
	c, err := r.Receive(last)
	if err != nil || c == nil {
		t.Fatalf("final Receive() = %v, %v", c, err)
	}
	if !bytes.Equal(c.Image, blob) {
		t.Errorf("snapshot differs from blob after duplicates")
	}
}

func TestReceiver_OneCompletionPerShortFragment(t *testing.T) {
	r := NewReceiver(testConfig(4096))

	sequence := []struct {
		f        Fragment
		complete bool
	}{
		{Fragment{Offset: 0, Data: make([]byte, 1500)}, false},
		{Fragment{Offset: 1500, Data: make([]byte, 10)}, true},
		{Fragment{Offset: 0, Data: make([]byte, 20)}, true},
		{Fragment{Offset: 0, Data: make([]byte, 1500)}, false},
		{Fragment{Offset: 1500, Data: make([]byte, 1500)}, false},
		{Fragment{Offset: 3000, Data: nil}, true},
	}

	completions := 0
	for i, step := range sequence {
		c, err := r.Receive(step.f)
		if err != nil {
			t.Fatalf("step %d: Receive() error = %v", i, err)
		}
		if (c != nil) != step.complete {
			t.Errorf("step %d: completion = %v, want %v", i, c != nil, step.complete)
		}
		if c != nil {
			completions++
		}
	}

	if completions != 3 {
		t.Errorf("completions = %d, want 3", completions)
	}
	if r.Stats().GetTransfers() != 3 {
		t.Errorf("Transfers = %d, want 3", r.Stats().GetTransfers())
	}
}

func TestReceiver_NewTransferStartsFreshExtent(t *testing.T) {
	r := NewReceiver(testConfig(4096))

	if _, err := r.Receive(Fragment{Offset: 0, Data: make([]byte, 1500)}); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Receive(Fragment{Offset: 1500, Data: make([]byte, 100)}); err != nil {
		t.Fatal(err)
	}

	c, err := r.Receive(Fragment{Offset: 0, Data: []byte{1, 2, 3}})
	if err != nil || c == nil {
		t.Fatalf("Receive() = %v, %v", c, err)
	}
	if len(c.Image) != 3 {
		t.Errorf("len(Image) = %d, want 3", len(c.Image))
	}
	if c.Fragments != 1 {
		t.Errorf("Fragments = %d, want 1", c.Fragments)
	}
}

func TestReceiver_Reset(t *testing.T) {
	r := NewReceiver(testConfig(4096))
	if _, err := r.Receive(Fragment{Offset: 0, Data: make([]byte, 1500)}); err != nil {
		t.Fatal(err)
	}
	if !r.InProgress() {
		t.Fatalf("InProgress() = false after full fragment")
	}

	r.Reset()

	if r.InProgress() || r.State() != StateIdle {
		t.Errorf("State() after Reset = %v, want %v", r.State(), StateIdle)
	}
	if r.Buffer().Len() != 0 {
		t.Errorf("Buffer().Len() after Reset = %d, want 0", r.Buffer().Len())
	}
}

func TestReceiver_StatisticsDisabled(t *testing.T) {
	config := testConfig(4096)
	config.EnableStatistics = false
	r := NewReceiver(config)

	if _, err := r.Receive(Fragment{Offset: 0, Data: []byte{1}}); err != nil {
		t.Fatalf("Receive() error = %v", err)
	}
	if r.Stats() != nil {
		t.Errorf("Stats() = %v, want nil", r.Stats())
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"default", func(c *Config) {}, false},
		{"zero chunk", func(c *Config) { c.MaxChunkSize = 0 }, true},
		{"negative capacity", func(c *Config) { c.BufferCapacity = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.modify(&config)
			if err := config.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestStateString(t *testing.T) {
	if StateIdle.String() != "Idle" || StateAccumulating.String() != "Accumulating" {
		t.Errorf("unexpected state names %q, %q", StateIdle, StateAccumulating)
	}
}
