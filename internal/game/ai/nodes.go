// Package ai drives server-only AIState with small behavior trees.
package ai

import (
	"time"

	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/core/models"
)

// Status represents the execution result of a behavior node tick.
type Status int

const (
	StatusSuccess Status = iota
	StatusFailure
	StatusRunning
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusFailure:
		return "failure"
	case StatusRunning:
		return "running"
	default:
		return "unknown"
	}
}

// TickContext is what a node sees while the tree runs for one entity.
type TickContext struct {
	Registry *models.EntityRegistry
	Entity   *models.Entity
	Tick     uint64
	DT       time.Duration
}

// Node is the fundamental behavior tree node. Nodes are shared between
// entities and keep no per-entity state; that lives in components.
type Node interface {
	Name() string
	Tick(t TickContext) (Status, error)
}

type baseNode struct{ name string }

func (b baseNode) Name() string { return b.name }

// ActionFunc wraps a function as an action node.
type ActionFunc struct {
	baseNode
	Fn func(t TickContext) (Status, error)
}

func Action(name string, fn func(t TickContext) (Status, error)) ActionFunc {
	return ActionFunc{baseNode: baseNode{name: name}, Fn: fn}
}

func (a ActionFunc) Tick(t TickContext) (Status, error) { return a.Fn(t) }

// ConditionFunc succeeds when Fn reports true.
type ConditionFunc struct {
	baseNode
	Fn func(t TickContext) bool
}

func Condition(name string, fn func(t TickContext) bool) ConditionFunc {
	return ConditionFunc{baseNode: baseNode{name: name}, Fn: fn}
}

func (c ConditionFunc) Tick(t TickContext) (Status, error) {
	if c.Fn(t) {
		return StatusSuccess, nil
	}
	return StatusFailure, nil
}

// Sequence runs children until one fails; success if all succeed; running if a child is running.
type Sequence struct {
	baseNode
	children []Node
}

func NewSequence(name string, children ...Node) *Sequence {
	return &Sequence{baseNode: baseNode{name: name}, children: children}
}

func (s *Sequence) Tick(t TickContext) (Status, error) {
	for _, ch := range s.children {
		st, err := ch.Tick(t)
		if err != nil {
			return StatusFailure, err
		}
		if st != StatusSuccess {
			return st, nil
		}
	}
	return StatusSuccess, nil
}

// Selector runs children until one succeeds or is running; failure if all fail.
type Selector struct {
	baseNode
	children []Node
}

func NewSelector(name string, children ...Node) *Selector {
	return &Selector{baseNode: baseNode{name: name}, children: children}
}

func (s *Selector) Tick(t TickContext) (Status, error) {
	for _, ch := range s.children {
		st, err := ch.Tick(t)
		if err != nil {
			return StatusFailure, err
		}
		if st != StatusFailure {
			return st, nil
		}
	}
	return StatusFailure, nil
}

// Inverter swaps success and failure of its child.
type Inverter struct {
	baseNode
	child Node
}

func NewInverter(name string, child Node) *Inverter {
	return &Inverter{baseNode: baseNode{name: name}, child: child}
}

func (i *Inverter) Tick(t TickContext) (Status, error) {
	st, err := i.child.Tick(t)
	switch {
	case err != nil:
		return StatusFailure, err
	case st == StatusSuccess:
		return StatusFailure, nil
	case st == StatusFailure:
		return StatusSuccess, nil
	}
	return st, nil
}
