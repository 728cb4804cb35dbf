package model

import "time"

// PrerequisiteType identifies the condition a prerequisite checks.
type PrerequisiteType string

const (
	// PrerequisitePreviousSession requires a non-cancelled registration for
	// the referenced session.
	PrerequisitePreviousSession PrerequisiteType = "PREVIOUS_SESSION"
	// PrerequisiteCheckinRequired requires an actual check-in record for the
	// referenced session, not just a registration.
	PrerequisiteCheckinRequired PrerequisiteType = "CHECKIN_REQUIRED"
)

// Valid reports whether the prerequisite type is one of the known values.
func (t PrerequisiteType) Valid() bool {
	return t == PrerequisitePreviousSession || t == PrerequisiteCheckinRequired
}

// PrerequisiteOperator combines the prerequisites sharing a group.
type PrerequisiteOperator string

const (
	OperatorAnd PrerequisiteOperator = "AND"
	OperatorOr  PrerequisiteOperator = "OR"
)

// Valid reports whether the operator is one of the known values.
func (o PrerequisiteOperator) Valid() bool {
	return o == OperatorAnd || o == OperatorOr
}

// SessionPrerequisite is a condition a registrant must meet before being
// admitted to a session. Prerequisites sharing a GroupID are combined with
// the group's operator; an empty GroupID makes the prerequisite its own
// group.
type SessionPrerequisite struct {
	ID                    string               `json:"id"`
	SessionID             string               `json:"session_id"`
	Type                  PrerequisiteType     `json:"type"`
	PrerequisiteSessionID *string              `json:"prerequisite_session_id,omitempty"`
	GroupID               string               `json:"group_id,omitempty"`
	Operator              PrerequisiteOperator `json:"operator"`
	Priority              int                  `json:"priority"`
	IsRequired            bool                 `json:"is_required"`
	GracePeriodHours      int                  `json:"grace_period_hours"`
	AllowGracePeriod      bool                 `json:"allow_grace_period"`
	AllowAdminOverride    bool                 `json:"allow_admin_override"`
	ErrorMessage          string               `json:"error_message,omitempty"`
	CreatedAt             time.Time            `json:"created_at"`
}

// CreatePrerequisiteRequest is the payload for attaching a prerequisite to a
// session.
type CreatePrerequisiteRequest struct {
	SessionID             string  `json:"session_id" validate:"required"`
	Type                  string  `json:"type" validate:"required,oneof=PREVIOUS_SESSION CHECKIN_REQUIRED"`
	PrerequisiteSessionID *string `json:"prerequisite_session_id,omitempty"`
	GroupID               string  `json:"group_id"`
	Operator              string  `json:"operator" validate:"omitempty,oneof=AND OR"`
	Priority              int     `json:"priority"`
	IsRequired            bool    `json:"is_required"`
	GracePeriodHours      int     `json:"grace_period_hours" validate:"gte=0"`
	AllowGracePeriod      bool    `json:"allow_grace_period"`
	AllowAdminOverride    bool    `json:"allow_admin_override"`
	ErrorMessage          string  `json:"error_message"`
}

// UnmetPrerequisite describes one prerequisite a registrant has not
// satisfied.
type UnmetPrerequisite struct {
	PrerequisiteID string           `json:"prerequisite_id,omitempty"`
	Type           PrerequisiteType `json:"type,omitempty"`
	GroupID        string           `json:"group_id,omitempty"`
	Message        string           `json:"message"`
}

// PrerequisiteCheck is the result of evaluating all prerequisites of a
// session for one registrant. Warnings list prerequisites that are unmet but
// tolerated (grace period, optional prerequisites).
type PrerequisiteCheck struct {
	Valid    bool                `json:"valid"`
	Unmet    []UnmetPrerequisite `json:"unmet_prerequisites"`
	Warnings []UnmetPrerequisite `json:"warnings,omitempty"`
}

// DependencyType classifies a session dependency edge.
type DependencyType string

const (
	// DependencySequence orders sessions in time: the dependent session is
	// meant to run after its parent.
	DependencySequence DependencyType = "SEQUENCE"
	// DependencyContent marks a content relationship (the dependent builds
	// on the parent's material) without a scheduling requirement.
	DependencyContent DependencyType = "CONTENT"
)

// Valid reports whether the dependency type is one of the known values.
func (t DependencyType) Valid() bool {
	return t == DependencySequence || t == DependencyContent
}

// SessionDependency is a directed parent → dependent edge between two
// sessions of the same event. The set of edges for an event must remain
// acyclic.
type SessionDependency struct {
	ID                 string         `json:"id"`
	EventID            string         `json:"event_id"`
	ParentSessionID    string         `json:"parent_session_id"`
	DependentSessionID string         `json:"dependent_session_id"`
	Type               DependencyType `json:"type"`

	// IsStrict makes a violated dependency a hard block; otherwise it is
	// reported as a warning.
	IsStrict bool `json:"is_strict"`

	// TimingGapMinutes is the minimum gap required between the parent's end
	// and the dependent's start.
	TimingGapMinutes int       `json:"timing_gap_minutes"`
	CreatedAt        time.Time `json:"created_at"`
}

// CreateDependencyRequest is the payload for adding a dependency edge.
type CreateDependencyRequest struct {
	ParentSessionID    string `json:"parent_session_id" validate:"required"`
	DependentSessionID string `json:"dependent_session_id" validate:"required"`
	Type               string `json:"type" validate:"omitempty,oneof=SEQUENCE CONTENT"`
	IsStrict           bool   `json:"is_strict"`
	TimingGapMinutes   int    `json:"timing_gap_minutes" validate:"gte=0"`
}

// DependencyPath is the result of a shortest-path query over the dependency
// graph. Found is false when no path exists; that is a normal result, not an
// error.
type DependencyPath struct {
	FromSessionID string   `json:"from_session_id"`
	ToSessionID   string   `json:"to_session_id"`
	Found         bool     `json:"found"`
	Path          []string `json:"path,omitempty"`
}

// DependencyAnalysis summarises the shape of an event's dependency graph.
type DependencyAnalysis struct {
	SessionCount    int            `json:"session_count"`
	DependencyCount int            `json:"dependency_count"`
	FanIn           map[string]int `json:"fan_in"`
	FanOut          map[string]int `json:"fan_out"`
	RootSessions    []string       `json:"root_sessions"`
	LeafSessions    []string       `json:"leaf_sessions"`
	LongestChain    []string       `json:"longest_chain,omitempty"`
}
