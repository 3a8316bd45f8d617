package provisioning

import (
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"
)

// Logger is the minimal printf-style logging surface.
type Logger interface {
	Printf(format string, v ...interface{})
}

// Observer defines the interface for structured observability during a run.
type Observer interface {
	Logger

	// Event emits a structured event
	Event(event Event)

	// Progress reports progress for a phase
	Progress(phase string, current, total int)

	// WithFields returns a new Observer with additional context fields
	WithFields(fields map[string]string) Observer
}

// Event represents a structured lifecycle event.
type Event struct {
	Type      EventType         // Type of event
	Phase     string            // Run phase (e.g., "apply", "teardown", "probe")
	Message   string            // Human-readable message
	Resource  string            // Stage, node or endpoint name if applicable
	Timestamp time.Time         // When the event occurred
	Fields    map[string]string // Additional contextual fields
}

// EventType represents the type of lifecycle event.
type EventType string

const (
	// EventPhaseStarted indicates a run phase has started.
	EventPhaseStarted EventType = "phase.started"
	// EventPhaseCompleted indicates a run phase completed successfully.
	EventPhaseCompleted EventType = "phase.completed"
	// EventPhaseFailed indicates a run phase failed.
	EventPhaseFailed EventType = "phase.failed"

	// EventStageApplying indicates a stage is being initialised and applied.
	EventStageApplying EventType = "stage.applying"
	// EventStageApplied indicates a stage was applied successfully.
	EventStageApplied EventType = "stage.applied"
	// EventStageSkipped indicates a stage was not applied.
	EventStageSkipped EventType = "stage.skipped"
	// EventStageFailed indicates init or apply of a stage failed.
	EventStageFailed EventType = "stage.failed"
	// EventStageDestroying indicates a stage is being destroyed.
	EventStageDestroying EventType = "stage.destroying"
	// EventStageDestroyed indicates a stage was destroyed successfully.
	EventStageDestroyed EventType = "stage.destroyed"
	// EventStageDestroyFailed indicates destroying a stage failed.
	EventStageDestroyFailed EventType = "stage.destroy_failed"

	// EventAttemptFailed indicates one attempt of a retried check failed.
	EventAttemptFailed EventType = "attempt.failed"

	// EventProgress indicates progress in a long-running operation.
	EventProgress EventType = "progress"
)

// ConsoleObserver implements Observer on top of a logr.Logger.
type ConsoleObserver struct {
	logger        logr.Logger
	contextFields map[string]string
}

// NewConsoleObserver creates an observer that writes through the standard
// log package.
func NewConsoleObserver() *ConsoleObserver {
	return NewObserver(funcr.New(func(prefix, args string) {
		if prefix != "" {
			log.Printf("%s: %s", prefix, args)
			return
		}
		log.Print(args)
	}, funcr.Options{}))
}

// NewObserver creates an observer that writes to logger.
func NewObserver(logger logr.Logger) *ConsoleObserver {
	return &ConsoleObserver{
		logger:        logger,
		contextFields: make(map[string]string),
	}
}

// Printf implements Logger.
func (o *ConsoleObserver) Printf(format string, v ...interface{}) {
	o.logger.Info(fmt.Sprintf(format, v...), o.keysAndValues(nil)...)
}

// Event implements Observer.
func (o *ConsoleObserver) Event(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	msg := formatEvent(event)
	kv := o.keysAndValues(event.Fields)

	if isFailure(event.Type) {
		o.logger.Error(nil, msg, kv...)
		return
	}
	o.logger.Info(msg, kv...)
}

// Progress implements Observer.
func (o *ConsoleObserver) Progress(phase string, current, total int) {
	if total == 0 {
		o.Printf("[%s] Progress: %d/%d", phase, current, total)
		return
	}
	percentage := (current * 100) / total
	o.Printf("[%s] Progress: %d/%d (%d%%)", phase, current, total, percentage)
}

// WithFields implements Observer.
func (o *ConsoleObserver) WithFields(fields map[string]string) Observer {
	newFields := make(map[string]string, len(o.contextFields)+len(fields))
	for k, v := range o.contextFields {
		newFields[k] = v
	}
	for k, v := range fields {
		newFields[k] = v
	}

	return &ConsoleObserver{
		logger:        o.logger,
		contextFields: newFields,
	}
}

// keysAndValues merges context fields with event fields (event fields win)
// and returns them as sorted logr key/value pairs.
func (o *ConsoleObserver) keysAndValues(fields map[string]string) []interface{} {
	merged := make(map[string]string, len(o.contextFields)+len(fields))
	for k, v := range o.contextFields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	if len(merged) == 0 {
		return nil
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	kv := make([]interface{}, 0, 2*len(keys))
	for _, k := range keys {
		kv = append(kv, k, merged[k])
	}
	return kv
}

func isFailure(t EventType) bool {
	return t == EventPhaseFailed || t == EventStageFailed || t == EventStageDestroyFailed
}

// formatEvent formats an event for console output.
func formatEvent(event Event) string {
	var parts []string

	parts = append(parts, string(event.Type))

	if event.Phase != "" {
		parts = append(parts, fmt.Sprintf("[%s]", event.Phase))
	}

	if event.Resource != "" {
		parts = append(parts, fmt.Sprintf("resource=%s", event.Resource))
	}

	parts = append(parts, event.Message)

	return strings.Join(parts, " ")
}

// Helper functions for common events

// LogPhaseStart logs a phase start event.
func LogPhaseStart(observer Observer, phase string) {
	observer.Event(Event{
		Type:    EventPhaseStarted,
		Phase:   phase,
		Message: "starting",
	})
}

// LogPhaseComplete logs a phase completion event.
func LogPhaseComplete(observer Observer, phase string, duration time.Duration) {
	observer.Event(Event{
		Type:    EventPhaseCompleted,
		Phase:   phase,
		Message: fmt.Sprintf("completed in %v", duration.Round(time.Millisecond)),
	})
}

// LogPhaseFailed logs a phase failure event.
func LogPhaseFailed(observer Observer, phase string, err error) {
	observer.Event(Event{
		Type:    EventPhaseFailed,
		Phase:   phase,
		Message: fmt.Sprintf("failed: %v", err),
	})
}

// LogStage logs a stage lifecycle event. dir is attached as a field when set.
func LogStage(observer Observer, eventType EventType, phase, stage, dir, message string) {
	event := Event{
		Type:     eventType,
		Phase:    phase,
		Resource: stage,
		Message:  message,
	}
	if dir != "" {
		event.Fields = map[string]string{"dir": dir}
	}
	observer.Event(event)
}

// LogAttemptFailed logs a failed attempt of a retried check.
func LogAttemptFailed(observer Observer, phase, resource string, attempt, maxAttempts int, detail string) {
	observer.Event(Event{
		Type:     EventAttemptFailed,
		Phase:    phase,
		Resource: resource,
		Message:  fmt.Sprintf("attempt %d/%d failed: %s", attempt, maxAttempts, firstLine(detail)),
		Fields: map[string]string{
			"attempt": fmt.Sprintf("%d", attempt),
		},
	})
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
