package models

// Stream states published to the status board.
const (
	StreamStatusConnecting = "connecting"
	StreamStatusStreaming  = "streaming"
	StreamStatusReconnect  = "reconnecting"
	StreamStatusFailed     = "failed"
	StreamStatusStopped    = "stopped"
)

// Status board field names. The board is a flat key/value hash so
// collaborators can read individual fields cheaply.
const (
	StatusFieldStream         = "stream_status"
	StatusFieldStreamAttempts = "stream_attempts"
	StatusFieldLastCandleAt   = "last_candle_at"
	StatusFieldLastRunAt      = "scheduler_last_run"
	StatusFieldUsersProcessed = "scheduler_users"
	StatusFieldSucceeded      = "scheduler_succeeded"
	StatusFieldFailed         = "scheduler_failed"
	StatusFieldBackfillDepth  = "backfill_depth"
)
