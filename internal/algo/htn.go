package algo

import (
	"errors"
	"fmt"

	"github.com/elektrokombinacija/taxi-htn/internal/core"
)

var (
	// ErrRejected is returned when a task cannot be decomposed in the
	// given state. Decompose never returns a partial plan with it.
	ErrRejected = errors.New("decomposition rejected")

	// ErrNoPassenger is a method-level rejection: nobody is waiting.
	ErrNoPassenger = errors.New("no passenger waiting")

	// ErrNotApplicable is a generic method-level rejection.
	ErrNotApplicable = errors.New("method not applicable")

	// ErrExpansionLimit is returned when decomposition exceeds its budget.
	ErrExpansionLimit = errors.New("expansion limit exceeded")
)

// Method is one way to decompose a compound task. A non-nil error means
// the method does not apply.
type Method struct {
	Name      string
	Decompose func(s core.WorldState, t Task) ([]Task, error)
}

// Domain maps each compound task to its methods in priority order.
type Domain struct {
	methods map[TaskName][]Method
}

// NewDomain creates an empty domain.
func NewDomain() *Domain {
	return &Domain{methods: make(map[TaskName][]Method)}
}

// Declare appends methods for a task name.
func (d *Domain) Declare(name TaskName, methods ...Method) {
	d.methods[name] = append(d.methods[name], methods...)
}

// Methods returns the methods declared for name.
func (d *Domain) Methods(name TaskName) []Method {
	return d.methods[name]
}

var taxiDomain = newTaxiDomain()

// TaxiDomain returns the shared taxi method table.
func TaxiDomain() *Domain {
	return taxiDomain
}

func newTaxiDomain() *Domain {
	d := NewDomain()
	d.Declare(TaskTransport,
		Method{Name: "transport_with_passenger", Decompose: transportWithPassenger},
		Method{Name: "transport_without_passenger", Decompose: transportWithoutPassenger},
	)
	d.Declare(TaskGetPassenger, Method{Name: "get_passenger", Decompose: getPassenger})
	d.Declare(TaskDeliverPassenger, Method{Name: "deliver_passenger", Decompose: deliverPassenger})
	d.Declare(TaskNavigate, Method{Name: "navigate_bfs", Decompose: navigate})
	return d
}

func transportWithPassenger(s core.WorldState, _ Task) ([]Task, error) {
	if !s.InTaxi {
		return nil, ErrNotApplicable
	}
	return []Task{Navigate(s.Destination), Primitive(core.Dropoff)}, nil
}

func transportWithoutPassenger(s core.WorldState, _ Task) ([]Task, error) {
	if !s.PassengerWaiting() {
		return nil, ErrNoPassenger
	}
	return []Task{GetPassenger(), DeliverPassenger()}, nil
}

func getPassenger(s core.WorldState, _ Task) ([]Task, error) {
	if !s.PassengerWaiting() {
		return nil, ErrNoPassenger
	}
	return []Task{Navigate(s.Passenger), Primitive(core.Pickup)}, nil
}

func deliverPassenger(s core.WorldState, _ Task) ([]Task, error) {
	return []Task{Navigate(s.Destination), Primitive(core.Dropoff)}, nil
}

func navigate(s core.WorldState, t Task) ([]Task, error) {
	if s.Taxi == t.Target {
		return nil, nil
	}
	path, ok := FindPath(s.Grid, s.Taxi, t.Target)
	if !ok {
		return nil, fmt.Errorf("%w: %v -> %v", ErrUnreachable, s.Taxi, t.Target)
	}
	actions, err := PathActions(path)
	if err != nil {
		return nil, err
	}
	return Plan(actions).Tasks(), nil
}

// DefaultMaxExpansions bounds compound-task expansions per Decompose call.
const DefaultMaxExpansions = 10000

// Decomposer expands compound tasks depth-first into a plan. The first
// method that applies is committed to; a later failure rejects the whole
// call rather than retrying another method.
type Decomposer struct {
	domain        *Domain
	maxExpansions int
}

// DecomposerOption configures a Decomposer.
type DecomposerOption func(*Decomposer)

// WithDomain replaces the method table.
func WithDomain(d *Domain) DecomposerOption {
	return func(dc *Decomposer) { dc.domain = d }
}

// WithMaxExpansions sets the expansion budget; n <= 0 disables it.
func WithMaxExpansions(n int) DecomposerOption {
	return func(dc *Decomposer) { dc.maxExpansions = n }
}

// NewDecomposer creates a decomposer over the taxi domain.
func NewDecomposer(opts ...DecomposerOption) *Decomposer {
	d := &Decomposer{domain: TaxiDomain(), maxExpansions: DefaultMaxExpansions}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Decompose turns task into primitive actions starting from state.
// Primitive tasks are applied to a running copy of the state so later
// methods see the effects of earlier actions.
func (d *Decomposer) Decompose(state core.WorldState, task Task) (Plan, error) {
	pending := []Task{task}
	plan := Plan{}
	expansions := 0

	for len(pending) > 0 {
		t := pending[0]
		pending = pending[1:]

		if t.IsPrimitive() {
			next, ok := core.Apply(state, t.Action)
			if !ok {
				return nil, fmt.Errorf("%w: %v not applicable at %v", ErrRejected, t.Action, state)
			}
			state = next
			plan = append(plan, t.Action)
			continue
		}

		expansions++
		if d.maxExpansions > 0 && expansions > d.maxExpansions {
			return nil, fmt.Errorf("%w: %w after %d expansions", ErrRejected, ErrExpansionLimit, d.maxExpansions)
		}

		subtasks, err := d.expand(state, t)
		if err != nil {
			return nil, err
		}
		if len(subtasks) > 0 {
			pending = append(append(make([]Task, 0, len(subtasks)+len(pending)), subtasks...), pending...)
		}
	}

	return plan, nil
}

// expand tries t's methods in order and returns the first decomposition.
func (d *Decomposer) expand(state core.WorldState, t Task) ([]Task, error) {
	methods := d.domain.Methods(t.Name)
	if len(methods) == 0 {
		return nil, fmt.Errorf("%w: no methods for %v", ErrRejected, t)
	}
	var last error
	for _, m := range methods {
		subtasks, err := m.Decompose(state, t)
		if err == nil {
			return subtasks, nil
		}
		last = err
	}
	return nil, fmt.Errorf("%w: %v: %w", ErrRejected, t, last)
}
