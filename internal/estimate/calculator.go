package estimate

// Handoff carries the calculator's selection to the lead form when the
// visitor asks for an exact quote.
type Handoff struct {
	Service         string `json:"service"`
	EstimatedBudget int    `json:"estimatedBudget"`
}

type HandoffListener func(Handoff)

// Calculator keeps the current selection and its derived estimate. Every
// setter recomputes synchronously.
type Calculator struct {
	inputs    Inputs
	current   Estimate
	listeners []HandoffListener
}

func NewCalculator() *Calculator {
	c := &Calculator{}
	// defaults are always valid
	_ = c.Set(DefaultInputs())
	return c
}

func (c *Calculator) Inputs() Inputs {
	return c.inputs
}

func (c *Calculator) Estimate() Estimate {
	return c.current
}

// Set replaces the whole selection. Invalid input leaves the previous selection in place.
func (c *Calculator) Set(in Inputs) error {
	est, err := Calculate(in)
	if err != nil {
		return err
	}
	c.inputs = in
	c.current = est
	return nil
}

func (c *Calculator) SetProjectType(p ProjectType) error {
	in := c.inputs
	in.ProjectType = p
	return c.Set(in)
}

func (c *Calculator) SetSize(size int) error {
	in := c.inputs
	in.SizeSqFt = size
	return c.Set(in)
}

func (c *Calculator) SetQuality(q Quality) error {
	in := c.inputs
	in.Quality = q
	return c.Set(in)
}

// OnHandoff registers fn to receive every quote request. It returns a
// function that removes the registration.
func (c *Calculator) OnHandoff(fn HandoffListener) func() {
	c.listeners = append(c.listeners, fn)
	idx := len(c.listeners) - 1
	return func() {
		if idx < len(c.listeners) {
			c.listeners[idx] = nil
		}
	}
}

// RequestQuote notifies listeners with the current project type and estimate.
func (c *Calculator) RequestQuote() Handoff {
	h := Handoff{
		Service:         string(c.inputs.ProjectType),
		EstimatedBudget: c.current.Low,
	}
	for _, fn := range c.listeners {
		if fn != nil {
			fn(h)
		}
	}
	return h
}
