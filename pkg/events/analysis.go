package events

import "time"

const (
	TypeSessionCreated  = "analysis.session_created"
	TypeSessionClosed   = "analysis.session_closed"
	TypeDatasetLoaded   = "analysis.dataset_loaded"
	TypeUploadFailed    = "analysis.upload_failed"
	TypeTurnCompleted   = "analysis.turn_completed"
	TypeAggregationSkew = "analysis.aggregation_skew"
)

func SessionCreated(sessionID string) BaseEvent {
	return newEvent(TypeSessionCreated, map[string]interface{}{"session_id": sessionID})
}

func SessionClosed(sessionID, reason string) BaseEvent {
	return newEvent(TypeSessionClosed, map[string]interface{}{"session_id": sessionID, "reason": reason})
}

func DatasetLoaded(sessionID, fileName string, rows, columns int) BaseEvent {
	return newEvent(TypeDatasetLoaded, map[string]interface{}{
		"session_id": sessionID,
		"file_name":  fileName,
		"rows":       rows,
		"columns":    columns,
	})
}

func UploadFailed(sessionID, fileName, kind string) BaseEvent {
	return newEvent(TypeUploadFailed, map[string]interface{}{
		"session_id": sessionID,
		"file_name":  fileName,
		"error_kind": kind,
	})
}

func TurnCompleted(sessionID, status, kind string, elapsed time.Duration) BaseEvent {
	return newEvent(TypeTurnCompleted, map[string]interface{}{
		"session_id": sessionID,
		"status":     status,
		"error_kind": kind,
		"elapsed_ms": elapsed.Milliseconds(),
	})
}

func AggregationSkew(sessionID string, skipped int) BaseEvent {
	return newEvent(TypeAggregationSkew, map[string]interface{}{"session_id": sessionID, "skipped": skipped})
}

func newEvent(typ string, data map[string]interface{}) BaseEvent {
	return BaseEvent{Type: typ, Data: data, OccurredAt: time.Now().UTC()}
}
