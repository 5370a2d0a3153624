package sim

import (
	"math"
	"testing"
)

func TestGapHeightShrinksToFloor(t *testing.T) {
	e := newTestEngine(Field{Width: 800, Height: 800})

	if got := e.gapHeight(); math.Abs(got-180) > 1e-9 {
		t.Fatalf("expected base gap 180 at score 0, got %f", got)
	}

	e.score = 30
	if got := e.gapHeight(); math.Abs(got-120) > 1e-9 {
		t.Fatalf("expected gap floored at 120 after score 30, got %f", got)
	}

	e.score = 500
	if got := e.gapHeight(); math.Abs(got-120) > 1e-9 {
		t.Fatalf("expected floor to hold for any score, got %f", got)
	}
}

func TestBaseGapClampedToQuarterHeight(t *testing.T) {
	e := newTestEngine(Field{Width: 800, Height: 600})
	if got, want := e.baseGap, 150.0; math.Abs(got-want) > 1e-9 {
		t.Fatalf("expected base gap clamped to %f on a 600px field, got %f", want, got)
	}
}

func TestSpawnRespectsStubHeights(t *testing.T) {
	e := newTestEngine(Field{Width: 800, Height: 800})
	e.StartRun()

	for score := 0; score <= 200; score += 10 {
		e.score = score
		e.obstacles = e.obstacles[:0]
		e.spawnObstacle()

		ob := e.obstacles[0]
		if ob.x != 800 {
			t.Fatalf("score %d: expected spawn at right edge, got %f", score, ob.x)
		}
		if ob.gapTop < e.tuning.MinStubHeight {
			t.Fatalf("score %d: top stub too short, gapTop %f", score, ob.gapTop)
		}
		if bottom := e.field.Height - ob.gapBottom; bottom < e.tuning.MinStubHeight {
			t.Fatalf("score %d: bottom stub too short, %f", score, bottom)
		}
		if gap := ob.gapBottom - ob.gapTop; gap < e.tuning.MinGap-1e-9 {
			t.Fatalf("score %d: gap %f below minimum", score, gap)
		}
	}
}

func TestSpawnTimerFiresOncePerInterval(t *testing.T) {
	e := newTestEngine(Field{Width: 800, Height: 800})
	e.StartRun()
	e.av.y = 400
	e.av.targetY = 400

	e.Update(1500)
	if len(e.obstacles) != 1 {
		t.Fatalf("expected one spawn after exceeding interval, got %d", len(e.obstacles))
	}
	if e.spawnMs != 0 {
		t.Fatalf("expected spawn timer reset, got %f", e.spawnMs)
	}

	e.Update(100)
	if len(e.obstacles) != 1 {
		t.Fatalf("expected no extra spawn inside interval, got %d", len(e.obstacles))
	}
}

func TestCompactRemovesOffscreenObstacles(t *testing.T) {
	e := newTestEngine(Field{Width: 800, Height: 800})
	e.obstacles = append(e.obstacles,
		obstacle{x: -200, gapTop: 100, gapBottom: 280},
		obstacle{x: -71, gapTop: 100, gapBottom: 280},
		obstacle{x: -69, gapTop: 100, gapBottom: 280},
		obstacle{x: 400, gapTop: 100, gapBottom: 280},
	)

	e.compactObstacles()

	if len(e.obstacles) != 2 {
		t.Fatalf("expected two obstacles kept, got %d", len(e.obstacles))
	}
	if e.obstacles[0].x != -69 || e.obstacles[1].x != 400 {
		t.Fatalf("expected spawn order preserved after compaction: %+v", e.obstacles)
	}
}
