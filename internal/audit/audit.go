package audit

import (
	"encoding/json"
	"log"
	"time"
)

// Event is one audit trail line for the application lifecycle. Every
// submission and every review decision produces exactly one event.
type Event struct {
	Timestamp     time.Time `json:"timestamp"`
	EventType     string    `json:"event_type"`
	ApplicationID string    `json:"application_id"`
	ActorID       string    `json:"actor_id"`
	Status        string    `json:"status"`
	Details       any       `json:"details,omitempty"`
}

type Logger struct{}

func NewLogger() *Logger {
	return &Logger{}
}

func (a *Logger) LogSubmission(applicationID, ownerID, purpose string) {
	a.log(Event{
		Timestamp:     time.Now(),
		EventType:     "SUBMISSION",
		ApplicationID: applicationID,
		ActorID:       ownerID,
		Status:        "submitted",
		Details:       map[string]string{"loan_purpose": purpose},
	})
}

func (a *Logger) LogTransition(applicationID, adminID, from, to, note string) {
	details := map[string]string{"from": from}
	if note != "" {
		details["note"] = note
	}
	a.log(Event{
		Timestamp:     time.Now(),
		EventType:     "TRANSITION",
		ApplicationID: applicationID,
		ActorID:       adminID,
		Status:        to,
		Details:       details,
	})
}

func (a *Logger) LogError(applicationID, actorID string, err error) {
	a.log(Event{
		Timestamp:     time.Now(),
		EventType:     "ERROR",
		ApplicationID: applicationID,
		ActorID:       actorID,
		Status:        "FAILED",
		Details:       map[string]string{"error": err.Error()},
	})
}

func (a *Logger) log(event Event) {
	data, _ := json.Marshal(event)
	log.Printf("AUDIT: %s", string(data))
}
