package hub

import (
	"sync/atomic"
	"time"
)

type telemetryCounters struct {
	ticksTotal         atomic.Uint64
	tickDurationMillis atomic.Int64
	bytesSent          atomic.Uint64
	framesSent         atomic.Uint64
	sessionsJoined     atomic.Uint64
	sessionsDropped    atomic.Uint64
}

type TelemetrySnapshot struct {
	TicksTotal         uint64 `json:"ticksTotal"`
	TickDurationMillis int64  `json:"tickDurationMillis"`
	BytesSent          uint64 `json:"bytesSent"`
	FramesSent         uint64 `json:"framesSent"`
	SessionsJoined     uint64 `json:"sessionsJoined"`
	SessionsDropped    uint64 `json:"sessionsDropped"`
}

func (t *telemetryCounters) RecordTick(duration time.Duration) {
	t.ticksTotal.Add(1)
	millis := duration.Milliseconds()
	if millis < 0 {
		millis = 0
	}
	t.tickDurationMillis.Store(millis)
}

func (t *telemetryCounters) RecordBroadcast(bytes int) {
	if bytes < 0 {
		bytes = 0
	}
	t.bytesSent.Add(uint64(bytes))
	t.framesSent.Add(1)
}

func (t *telemetryCounters) Snapshot() TelemetrySnapshot {
	return TelemetrySnapshot{
		TicksTotal:         t.ticksTotal.Load(),
		TickDurationMillis: t.tickDurationMillis.Load(),
		BytesSent:          t.bytesSent.Load(),
		FramesSent:         t.framesSent.Load(),
		SessionsJoined:     t.sessionsJoined.Load(),
		SessionsDropped:    t.sessionsDropped.Load(),
	}
}
