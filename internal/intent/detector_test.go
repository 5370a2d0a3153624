package intent

import "testing"

func TestFirstSampleSeedsWithoutFiring(t *testing.T) {
	d := NewDetector(0.05, 3)

	// Appearing mid-frame is not a movement, whatever the position.
	if d.Observe(0.9) {
		t.Fatalf("expected the first sample to only seed the baseline")
	}
	if d.Observe(0.9) {
		t.Fatalf("expected a held position to stay quiet")
	}
	if !d.Observe(0.7) {
		t.Fatalf("expected a qualifying delta from the seeded baseline to fire")
	}
}

func TestDetectorEdges(t *testing.T) {
	d := NewDetector(0.05, 3)

	d.Observe(0.0)
	if !d.Observe(0.5) {
		t.Fatalf("expected intent for delta above threshold")
	}

	// Cooldown swallows the next three samples even with large deltas.
	for i := 0; i < 3; i++ {
		if d.Observe(float64(i)) {
			t.Fatalf("expected cooldown to suppress intent at tick %d", i)
		}
	}

	// Cooldown expired; a fresh qualifying delta fires again.
	if !d.Observe(2.5) {
		t.Fatalf("expected intent after cooldown expiry")
	}
}

func TestSlowDriftNeverFires(t *testing.T) {
	d := NewDetector(0.05, 30)

	signal := 0.0
	d.Observe(signal)
	for i := 0; i < 100; i++ {
		signal += 0.04
		if signal > 1 {
			signal = 1
		}
		if d.Observe(signal) {
			t.Fatalf("expected sub-threshold drift to never fire, fired at tick %d", i)
		}
	}
}

func TestExactThresholdDoesNotFire(t *testing.T) {
	d := NewDetector(0.05, 30)
	d.Observe(0.0)
	if d.Observe(0.05) {
		t.Fatalf("expected strict comparison: delta equal to threshold must not fire")
	}
}
