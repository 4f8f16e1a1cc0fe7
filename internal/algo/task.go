package algo

import (
	"fmt"
	"strings"

	"github.com/elektrokombinacija/taxi-htn/internal/core"
)

// TaskName identifies a task variant.
type TaskName int

const (
	TaskPrimitive        TaskName = iota // directly executable, carries an Action
	TaskTransport                        // deliver the current passenger
	TaskGetPassenger                     // reach and board the waiting passenger
	TaskDeliverPassenger                 // reach the destination and drop off
	TaskNavigate                         // drive to Target
)

func (n TaskName) String() string {
	return [...]string{"primitive", "transport", "get_passenger", "deliver_passenger", "navigate"}[n]
}

// Task is a node of the task network. Target is used by TaskNavigate and
// Action by TaskPrimitive.
type Task struct {
	Name   TaskName
	Target core.Position
	Action core.Action
}

// Transport is the top-level goal.
func Transport() Task { return Task{Name: TaskTransport} }

// GetPassenger returns the pickup subtask.
func GetPassenger() Task { return Task{Name: TaskGetPassenger} }

// DeliverPassenger returns the delivery subtask.
func DeliverPassenger() Task { return Task{Name: TaskDeliverPassenger} }

// Navigate returns a compound move to target.
func Navigate(target core.Position) Task {
	return Task{Name: TaskNavigate, Target: target}
}

// Primitive wraps an executable action.
func Primitive(a core.Action) Task {
	return Task{Name: TaskPrimitive, Action: a}
}

// IsPrimitive reports whether t maps directly to an operator.
func (t Task) IsPrimitive() bool {
	return t.Name == TaskPrimitive
}

func (t Task) String() string {
	switch t.Name {
	case TaskPrimitive:
		return t.Action.String()
	case TaskNavigate:
		return fmt.Sprintf("navigate%v", t.Target)
	default:
		return t.Name.String()
	}
}

// Plan is an ordered sequence of primitive actions.
type Plan []core.Action

func (p Plan) String() string {
	names := make([]string, len(p))
	for i, a := range p {
		names[i] = a.String()
	}
	return "[" + strings.Join(names, " ") + "]"
}

// Tasks returns p as primitive tasks.
func (p Plan) Tasks() []Task {
	out := make([]Task, len(p))
	for i, a := range p {
		out[i] = Primitive(a)
	}
	return out
}
