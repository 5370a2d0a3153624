package sim

// collides reports whether the avatar currently overlaps the ceiling, the
// floor, or any pipe pair. The predicate is pure geometry over the current
// state; the same inputs always produce the same answer.
func (e *Engine) collides() bool {
	if e.av.y-e.av.radius < 0 || e.av.y+e.av.radius > e.field.Height {
		return true
	}
	for i := range e.obstacles {
		if e.avatarHitsObstacle(&e.obstacles[i]) {
			return true
		}
	}
	return false
}

// avatarHitsObstacle checks one pipe pair: the horizontal extents must
// intersect and the avatar's vertical extent must not sit fully inside the
// gap.
func (e *Engine) avatarHitsObstacle(ob *obstacle) bool {
	left := ob.x
	right := ob.x + e.tuning.ObstacleWidth
	if e.av.x+e.av.radius <= left || e.av.x-e.av.radius >= right {
		return false
	}
	return e.av.y-e.av.radius < ob.gapTop || e.av.y+e.av.radius > ob.gapBottom
}
