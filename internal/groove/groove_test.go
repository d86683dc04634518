package groove

import (
	"math"
	"math/rand"
	"strings"
	"testing"
)

func TestSwingDownbeatUnaffected(t *testing.T) {
	s := SwingSettings{Amount: 0.5, Resolution: 240}
	if got := ApplySwing(0, s, 480); got != 0 {
		t.Errorf("downbeat swung: got %g, want 0", got)
	}
	if got := ApplySwing(480, s, 480); got != 480 {
		t.Errorf("next downbeat swung: got %g, want 480", got)
	}
}

func TestSwingDelaysOffbeat(t *testing.T) {
	s := SwingSettings{Amount: 0.5, Resolution: 240}
	got := ApplySwing(240, s, 480)
	if got <= 240 {
		t.Errorf("offbeat not delayed: got %g", got)
	}
	if got != 240+240*0.5 {
		t.Errorf("offbeat delay: got %g, want 360", got)
	}
}

func TestSwingZeroAmountNoOp(t *testing.T) {
	s := SwingSettings{Amount: 0, Resolution: 240}
	if got := ApplySwing(240, s, 480); got != 240 {
		t.Errorf("zero amount changed ticks: got %g", got)
	}
}

func TestSwingDefaultResolution(t *testing.T) {
	// With no resolution the swung subdivision is half a beat (240 at 480 tpb).
	s := SwingSettings{Amount: 1}
	got := ApplySwing(240, s, 480)
	if got != 480 {
		t.Errorf("default resolution: got %g, want 480", got)
	}
}

func TestHumanizeBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	s := HumanizeSettings{TimingMs: 10}
	// 10 ms at 120 BPM and 480 tpb is 9.6 ticks.
	maxOffset := 9.6
	for i := 0; i < 1000; i++ {
		got := ApplyHumanize(1000, s, rng, 120, 480)
		if math.Abs(got-1000) > maxOffset+1e-9 {
			t.Fatalf("offset out of bounds: %g", got-1000)
		}
	}
}

func TestHumanizeClampsToZero(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	s := HumanizeSettings{TimingMs: 100}
	for i := 0; i < 1000; i++ {
		if got := ApplyHumanize(0, s, rng, 120, 480); got < 0 {
			t.Fatalf("negative ticks after humanize: %g", got)
		}
	}
}

func TestHumanizeZeroTimingNoOp(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	if got := ApplyHumanize(100, HumanizeSettings{}, rng, 120, 480); got != 100 {
		t.Errorf("zero timing changed ticks: got %g", got)
	}
}

func TestHumanizeVelocityStaysNormalized(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	s := HumanizeSettings{Velocity: 0.3}
	for i := 0; i < 1000; i++ {
		v := HumanizeVelocity(0.9, s, rng)
		if v < 0 || v > 1 {
			t.Fatalf("velocity out of range: %g", v)
		}
	}
}

func TestGrooveLookup(t *testing.T) {
	tmpl := &Template{
		Name:   "pushed",
		Length: 16,
		Entries: []Entry{
			{Position: 2, Offset: 12, Velocity: 1.2, Gate: 0.8},
		},
	}
	// Tick 240 at 480 tpb is sixteenth index 2.
	adj := Apply(240, tmpl, 480)
	if adj.Offset != 12 || adj.Velocity != 1.2 || adj.Gate != 0.8 {
		t.Errorf("matched entry: got %+v", adj)
	}
	// Index 0 has no entry: identity.
	adj = Apply(0, tmpl, 480)
	if adj.Offset != 0 || adj.Velocity != 1 || adj.Gate != 1 {
		t.Errorf("identity adjustment: got %+v", adj)
	}
}

func TestGrooveWrapsPattern(t *testing.T) {
	tmpl := &Template{
		Name:    "short",
		Length:  4,
		Entries: []Entry{{Position: 1, Offset: 5, Velocity: 1, Gate: 1}},
	}
	// Pattern is 4 sixteenths = 480 ticks; tick 600 wraps to index 1.
	adj := Apply(600, tmpl, 480)
	if adj.Offset != 5 {
		t.Errorf("wrapped lookup: got %+v", adj)
	}
}

func TestGrooveNilTemplateIdentity(t *testing.T) {
	adj := Apply(123, nil, 480)
	if adj.Offset != 0 || adj.Velocity != 1 || adj.Gate != 1 {
		t.Errorf("nil template: got %+v", adj)
	}
}

func TestReadTemplatesYAML(t *testing.T) {
	src := `
templates:
  - name: mpc-swing-62
    length: 16
    entries:
      - position: 2
        offset: 14
        velocity: 1.1
      - position: 6
        offset: 14
`
	tmpls, err := ReadTemplates(strings.NewReader(src))
	if err != nil {
		t.Fatalf("ReadTemplates: %v", err)
	}
	if len(tmpls) != 1 {
		t.Fatalf("got %d templates, want 1", len(tmpls))
	}
	if tmpls[0].Name != "mpc-swing-62" || len(tmpls[0].Entries) != 2 {
		t.Errorf("template: %+v", tmpls[0])
	}
	adj := Apply(240, &tmpls[0], 480)
	if adj.Offset != 14 || adj.Velocity != 1.1 {
		t.Errorf("adjustment from loaded template: %+v", adj)
	}
}

func TestReadTemplatesRejectsZeroLength(t *testing.T) {
	src := "templates:\n  - name: broken\n    length: 0\n"
	if _, err := ReadTemplates(strings.NewReader(src)); err == nil {
		t.Error("expected error for zero-length template")
	}
}
