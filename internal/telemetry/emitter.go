package telemetry

import (
	"context"
	"time"
)

// EventType names an auth event.
type EventType string

const (
	EventTokenIssued        EventType = "token_issued"
	EventSessionRevoked     EventType = "session_revoked"
	EventCredentialRejected EventType = "credential_rejected"
	EventGRPCRequest        EventType = "grpc_request"
)

// Event is one auth event. SessionIDHash is the stored hash, never the raw session id.
type Event struct {
	Type          EventType
	UserID        string
	SessionIDHash string
	Reason        string // reject kind for EventCredentialRejected
	Source        string // SourceAuth or SourceGRPC; EmitAsync defaults it
	Metadata      []byte // optional JSON body
	CreatedAt     time.Time
}

// EventEmitter emits auth events (e.g. to OTel Logs). Best-effort; callers log and ignore errors.
type EventEmitter interface {
	Emit(ctx context.Context, event *Event) error
}
