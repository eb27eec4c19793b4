package models

import (
	"encoding/json"
	"strings"
)

// StateKind classifies a workflow state.
type StateKind int

const (
	StateKindUnknown StateKind = iota
	StateKindOpen
	StateKindInProgress
	StateKindClosed
	StateKindCancelled
	StateKindCustom
)

var stateKindNames = map[StateKind]string{
	StateKindOpen:       "open",
	StateKindInProgress: "in_progress",
	StateKindClosed:     "closed",
	StateKindCancelled:  "cancelled",
}

// StateType is Open, InProgress, Closed, Cancelled or Custom(name).
// Custom keeps the provider's raw name so no distinction is lost.
type StateType struct {
	kind StateKind
	name string
}

var (
	StateOpen       = StateType{kind: StateKindOpen}
	StateInProgress = StateType{kind: StateKindInProgress}
	StateClosed     = StateType{kind: StateKindClosed}
	StateCancelled  = StateType{kind: StateKindCancelled}
)

// CustomState returns the Custom variant carrying name.
func CustomState(name string) StateType {
	return StateType{kind: StateKindCustom, name: name}
}

// ParseStateType maps a string to a StateType. It never fails: any name that
// is not a known classification becomes Custom(name).
func ParseStateType(s string) StateType {
	normalized := strings.ToLower(strings.TrimSpace(s))
	switch normalized {
	case "open":
		return StateOpen
	case "in_progress", "inprogress", "in progress":
		return StateInProgress
	case "closed":
		return StateClosed
	case "cancelled", "canceled":
		return StateCancelled
	}
	return CustomState(s)
}

func (s StateType) Kind() StateKind { return s.kind }

// Name returns the raw name of a Custom state, or "" for the closed variants.
func (s StateType) Name() string { return s.name }

func (s StateType) IsCustom() bool { return s.kind == StateKindCustom }

func (s StateType) String() string {
	if s.kind == StateKindCustom {
		return s.name
	}
	return stateKindNames[s.kind]
}

func (s StateType) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *StateType) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = ParseStateType(raw)
	return nil
}

// PriorityLevel classifies a priority.
type PriorityLevel int

const (
	PriorityLevelUnknown PriorityLevel = iota
	PriorityLevelNone
	PriorityLevelLowest
	PriorityLevelLow
	PriorityLevelMedium
	PriorityLevelHigh
	PriorityLevelHighest
	PriorityLevelCustom
)

var priorityLevelNames = map[PriorityLevel]string{
	PriorityLevelNone:    "none",
	PriorityLevelLowest:  "lowest",
	PriorityLevelLow:     "low",
	PriorityLevelMedium:  "medium",
	PriorityLevelHigh:    "high",
	PriorityLevelHighest: "highest",
}

// Priority is None, Lowest, Low, Medium, High, Highest or Custom(name).
// How the levels order against each other is up to each provider.
type Priority struct {
	level PriorityLevel
	name  string
}

var (
	PriorityNone    = Priority{level: PriorityLevelNone}
	PriorityLowest  = Priority{level: PriorityLevelLowest}
	PriorityLow     = Priority{level: PriorityLevelLow}
	PriorityMedium  = Priority{level: PriorityLevelMedium}
	PriorityHigh    = Priority{level: PriorityLevelHigh}
	PriorityHighest = Priority{level: PriorityLevelHighest}
)

// CustomPriority returns the Custom variant carrying name.
func CustomPriority(name string) Priority {
	return Priority{level: PriorityLevelCustom, name: name}
}

// ParsePriority maps a string to a Priority. Unknown names become Custom(name).
func ParsePriority(s string) Priority {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "":
		return PriorityNone
	case "lowest":
		return PriorityLowest
	case "low":
		return PriorityLow
	case "medium":
		return PriorityMedium
	case "high":
		return PriorityHigh
	case "highest":
		return PriorityHighest
	}
	return CustomPriority(s)
}

func (p Priority) Level() PriorityLevel { return p.level }

// Name returns the raw name of a Custom priority.
func (p Priority) Name() string { return p.name }

func (p Priority) IsCustom() bool { return p.level == PriorityLevelCustom }

func (p Priority) String() string {
	if p.level == PriorityLevelCustom {
		return p.name
	}
	return priorityLevelNames[p.level]
}

func (p Priority) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

func (p *Priority) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = ParsePriority(raw)
	return nil
}

// ProjectState is the lifecycle state of a project.
type ProjectState string

const (
	ProjectPlanned   ProjectState = "planned"
	ProjectStarted   ProjectState = "started"
	ProjectCompleted ProjectState = "completed"
	ProjectCanceled  ProjectState = "canceled"
	ProjectPaused    ProjectState = "paused"
)
