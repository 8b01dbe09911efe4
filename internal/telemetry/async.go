package telemetry

import (
	"context"
	"log"
	"time"
)

// Event sources.
const (
	SourceAuth = "auth"
	SourceGRPC = "grpc"
)

// emitTimeout bounds one background emit.
const emitTimeout = 5 * time.Second

// ShutdownDrainDuration is how long serve waits after the servers stop before closing the OTel
// providers. It is never shorter than emitTimeout.
const ShutdownDrainDuration = emitTimeout

// EmitAsync stamps event and hands it to emitter in the background, detached from the request
// context. A zero CreatedAt becomes the current UTC time and an empty Source becomes SourceAuth.
// Nil emitter or event is a no-op. Failures are logged and dropped.
func EmitAsync(emitter EventEmitter, event *Event) {
	if emitter == nil || event == nil {
		return
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	if event.Source == "" {
		event.Source = SourceAuth
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), emitTimeout)
		defer cancel()
		if err := emitter.Emit(ctx, event); err != nil {
			log.Printf("telemetry: dropped %s event (user %q): %v", event.Type, event.UserID, err)
		}
	}()
}
