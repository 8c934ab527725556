package analytics

import (
	"context"
	"time"
)

const (
	EventGenerateLead  = "generate_lead"
	EventCalculateCost = "calculate_cost"
	EventClick         = "click"

	GeneralLeadLabel = "General"
)

// Event is a single analytics notification. Params mirror the key/value
// pairs the site's tag manager expects.
type Event struct {
	Name       string                 `json:"name"`
	Params     map[string]interface{} `json:"params,omitempty"`
	OccurredAt time.Time              `json:"occurred_at"`
}

// Tracker delivers events on a best-effort basis. Implementations must not
// block the caller on delivery and never report failures back.
type Tracker interface {
	Track(ctx context.Context, event Event)
}

type Noop struct{}

func NewNoop() *Noop {
	return &Noop{}
}

func (Noop) Track(ctx context.Context, event Event) {}

func LeadGenerated(projectType string) Event {
	return Event{
		Name: EventGenerateLead,
		Params: map[string]interface{}{
			"event_category": "Contact",
			"event_label":    projectType,
		},
		OccurredAt: time.Now().UTC(),
	}
}

func CostCalculated(projectType string, estimatedCost int) Event {
	return Event{
		Name: EventCalculateCost,
		Params: map[string]interface{}{
			"project_type":   projectType,
			"estimated_cost": estimatedCost,
		},
		OccurredAt: time.Now().UTC(),
	}
}

func QuoteRequested(service string) Event {
	return Event{
		Name: EventClick,
		Params: map[string]interface{}{
			"event_category": "Button",
			"event_label":    "Request Construction Quote - " + service,
			"value":          1,
		},
		OccurredAt: time.Now().UTC(),
	}
}
