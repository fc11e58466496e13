package types

// ---- Common service state (retained) ----

type ServiceState struct {
	Level  string `json:"level"`  // one of the Level constants
	Status string `json:"status"` // short machine string
	TS     int64  `json:"ts_ms"`
	Error  string `json:"error,omitempty"`
}

// Levels carried in ServiceState.Level.
const (
	LevelIdle     = "idle"
	LevelUp       = "up"
	LevelDegraded = "degraded"
	LevelError    = "error"
	LevelDown     = "down"
)

// Info envelope each service exposes (retained).
type Info struct {
	SchemaVersion int    `json:"schema_version"`
	Driver        string `json:"driver"`
	Detail        any    `json:"detail,omitempty"`
}

// Reply is the generic request/reply envelope. Code mirrors errcode values.
type Reply struct {
	OK    bool   `json:"ok"`
	Code  string `json:"code,omitempty"`
	Error string `json:"error,omitempty"`
	Value any    `json:"value,omitempty"`
}

// Heartbeat is published retained by the heartbeat service.
type Heartbeat struct {
	Seq      uint32 `json:"seq"`
	UptimeMS int64  `json:"uptime_ms"`
	TS       int64  `json:"ts_ms"`
}
