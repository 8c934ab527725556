package shell

import (
	"encoding/json"

	"contractor-backend/internal/analytics"
	"contractor-backend/internal/estimate"
	"contractor-backend/internal/lead"
)

// State is the serialisable form of a Shell.
type State struct {
	OpenModal       Modal           `json:"openModal"`
	SelectedService string          `json:"selectedService,omitempty"`
	ScrollLocked    bool            `json:"scrollLocked"`
	Wizard          lead.Wizard     `json:"wizard"`
	Calculator      estimate.Inputs `json:"calculator"`
}

func (s *Shell) Snapshot() State {
	return State{
		OpenModal:       s.openModal,
		SelectedService: s.selectedService,
		ScrollLocked:    s.scrollLocked,
		Wizard:          *s.wizard,
		Calculator:      s.calc.Inputs(),
	}
}

// Restore rebuilds a Shell from st. An invalid calculator selection falls
// back to the defaults.
func Restore(st State, tracker analytics.Tracker) *Shell {
	s := New(tracker)
	switch st.OpenModal {
	case ModalContact, ModalCalculator:
		s.openModal = st.OpenModal
	default:
		s.openModal = ModalNone
	}
	s.selectedService = st.SelectedService
	s.scrollLocked = st.ScrollLocked

	w := st.Wizard
	if w.Step < lead.StepProjectDetails || w.Step > lead.StepReview {
		w.Reset()
	}
	if w.Touched == nil {
		w.Touched = map[lead.Field]bool{}
	}
	*s.wizard = w

	_ = s.calc.Set(st.Calculator)
	return s
}

func (s *Shell) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Snapshot())
}

func Decode(data []byte, tracker analytics.Tracker) (*Shell, error) {
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, err
	}
	return Restore(st, tracker), nil
}
