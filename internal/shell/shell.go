// Package shell holds the page-level state of one visitor: which modal is
// open, which service was picked, whether background scrolling is locked, and
// the lead wizard and cost calculator those modals render.
package shell

import (
	"context"
	"errors"
	"time"

	"contractor-backend/internal/analytics"
	"contractor-backend/internal/estimate"
	"contractor-backend/internal/lead"
)

type Modal string

const (
	ModalNone       Modal = "none"
	ModalContact    Modal = "contact"
	ModalCalculator Modal = "calculator"
)

var ErrModalNotOpen = errors.New("modal is not open")

// Shell is not safe for concurrent use.
type Shell struct {
	openModal       Modal
	selectedService string
	scrollLocked    bool
	wizard          *lead.Wizard
	calc            *estimate.Calculator
	tracker         analytics.Tracker
}

func New(tracker analytics.Tracker) *Shell {
	if tracker == nil {
		tracker = analytics.NewNoop()
	}
	s := &Shell{
		openModal: ModalNone,
		wizard:    lead.NewWizard(),
		calc:      estimate.NewCalculator(),
		tracker:   tracker,
	}
	s.calc.OnHandoff(s.openContactFromHandoff)
	return s
}

func (s *Shell) OpenModal() Modal                 { return s.openModal }
func (s *Shell) SelectedService() string          { return s.selectedService }
func (s *Shell) ScrollLocked() bool               { return s.scrollLocked }
func (s *Shell) Calculator() *estimate.Calculator { return s.calc }

// Wizard returns the lead wizard while the contact modal is open.
func (s *Shell) Wizard() (*lead.Wizard, error) {
	if s.openModal != ModalContact {
		return nil, ErrModalNotOpen
	}
	return s.wizard, nil
}

// RequestQuote opens a fresh lead wizard for service.
func (s *Shell) RequestQuote(ctx context.Context, service string) {
	s.tracker.Track(ctx, analytics.QuoteRequested(service))
	s.openContact(service, 0)
}

func (s *Shell) OpenCalculator() {
	if s.openModal == ModalContact {
		s.closeContact()
	}
	s.openModal = ModalCalculator
}

func (s *Shell) UpdateEstimate(in estimate.Inputs) (estimate.Estimate, error) {
	if s.openModal != ModalCalculator {
		return estimate.Estimate{}, ErrModalNotOpen
	}
	if err := s.calc.Set(in); err != nil {
		return estimate.Estimate{}, err
	}
	return s.calc.Estimate(), nil
}

// RequestExactQuote hands the calculator selection to the lead wizard. The
// calculator closes and the contact modal opens prefilled.
func (s *Shell) RequestExactQuote(ctx context.Context) (estimate.Handoff, error) {
	if s.openModal != ModalCalculator {
		return estimate.Handoff{}, ErrModalNotOpen
	}
	est := s.calc.Estimate()
	s.tracker.Track(ctx, analytics.CostCalculated(string(est.Inputs.ProjectType), est.Low))
	return s.calc.RequestQuote(), nil
}

func (s *Shell) openContactFromHandoff(h estimate.Handoff) {
	s.openModal = ModalNone
	s.openContact(h.Service, h.EstimatedBudget)
}

func (s *Shell) openContact(service string, estimatedBudget int) {
	s.selectedService = service
	s.wizard.Reset()
	s.wizard.Prefill(service, estimatedBudget)
	s.openModal = ModalContact
	s.scrollLocked = true
}

// CloseModal closes whichever modal is open. Closing the contact modal
// discards the draft. Scrolling is always restored.
func (s *Shell) CloseModal() {
	if s.openModal == ModalContact {
		s.closeContact()
	}
	s.openModal = ModalNone
	s.scrollLocked = false
}

func (s *Shell) closeContact() {
	s.wizard.Reset()
	s.openModal = ModalNone
	s.scrollLocked = false
}

// FinishSubmit applies the delivery outcome of a submission started with
// the wizard's BeginSubmit. A successful delivery closes the contact modal.
// A wizard that was reset in the meantime, or is busy with a later
// submission, is left untouched.
func (s *Shell) FinishSubmit(ctx context.Context, sub lead.Submission, deliveryErr error) error {
	if s.openModal != ModalContact || !s.wizard.Owns(sub) {
		if deliveryErr != nil {
			return &lead.SubmissionFailure{Err: deliveryErr}
		}
		return nil
	}
	if err := s.wizard.FinishSubmit(deliveryErr); err != nil {
		return err
	}
	s.tracker.Track(ctx, analytics.LeadGenerated(leadLabel(sub)))
	s.CloseModal()
	return nil
}

// leadLabel names the lead for analytics; a lead without a chosen
// project type is reported as "General".
func leadLabel(sub lead.Submission) string {
	if sub.ProjectType == "" || sub.ProjectType == lead.GeneralProjectType {
		return analytics.GeneralLeadLabel
	}
	return sub.ProjectType
}

// Submit validates, delivers and finishes a submission in one call.
func (s *Shell) Submit(ctx context.Context, d lead.Deliverer, now time.Time) error {
	w, err := s.Wizard()
	if err != nil {
		return err
	}
	sub, err := w.BeginSubmit(now)
	if err != nil {
		return err
	}
	return s.FinishSubmit(ctx, sub, d.Deliver(ctx, sub))
}

// Dispose is called when the visitor's page goes away without closing
// anything. It only guarantees scrolling is restored.
func (s *Shell) Dispose() {
	s.scrollLocked = false
}
