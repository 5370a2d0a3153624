package sim

type obstacle struct {
	x         float64
	gapTop    float64
	gapBottom float64
	passed    bool
}

// scorePasses flips the passed flag on every obstacle whose trailing edge has
// crossed the avatar and increments the score by exactly one per flip. The
// new score takes effect on the next tick's obstacle motion.
func (e *Engine) scorePasses() {
	for i := range e.obstacles {
		ob := &e.obstacles[i]
		if ob.passed {
			continue
		}
		if ob.x+e.tuning.ObstacleWidth < e.av.x {
			ob.passed = true
			e.score++
		}
	}
}

// compactObstacles removes obstacles fully off the left edge, preserving
// spawn order for the rest.
func (e *Engine) compactObstacles() {
	kept := e.obstacles[:0]
	for _, ob := range e.obstacles {
		if ob.x+e.tuning.ObstacleWidth >= 0 {
			kept = append(kept, ob)
		}
	}
	e.obstacles = kept
}

// gapHeight shrinks the passable band with score, floored at MinGap and
// bounded by what the field can hold between the minimum pipe stubs.
func (e *Engine) gapHeight() float64 {
	gap := e.baseGap - float64(e.score)*e.tuning.GapShrinkPerPoint
	if gap < e.tuning.MinGap {
		gap = e.tuning.MinGap
	}
	if max := e.field.Height - 2*e.tuning.MinStubHeight; gap > max {
		gap = max
	}
	return gap
}

// spawnObstacle creates one pipe pair at the right edge. The gap position is
// uniform over the band that keeps at least MinStubHeight of pipe above and
// below.
func (e *Engine) spawnObstacle() {
	gap := e.gapHeight()
	span := e.field.Height - 2*e.tuning.MinStubHeight - gap
	if span < 0 {
		span = 0
	}
	gapTop := e.tuning.MinStubHeight + e.rng.Float64()*span
	e.obstacles = append(e.obstacles, obstacle{
		x:         e.field.Width,
		gapTop:    gapTop,
		gapBottom: gapTop + gap,
	})
}
