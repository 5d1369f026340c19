// internal/domain/queue/entity.go
package queue

import "time"

type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusInService Status = "in_service"
	StatusServed    Status = "served"
	StatusRemoved   Status = "removed"
)

// Action names a lifecycle operation that moves an entry between statuses.
type Action string

const (
	ActionApprove      Action = "approve"
	ActionStartService Action = "start_service"
	ActionComplete     Action = "complete"
	ActionRemove       Action = "remove"
)

var transitionMap = map[Action][]Status{
	ActionApprove:      {StatusPending},
	ActionStartService: {StatusApproved},
	ActionComplete:     {StatusInService},
	ActionRemove:       {StatusPending, StatusApproved, StatusInService},
}

// CanApply reports whether action is permitted from the given status.
func CanApply(action Action, from Status) bool {
	allowed, ok := transitionMap[action]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == from {
			return true
		}
	}
	return false
}

// IsActive reports whether the status counts toward position and wait-time math.
func (s Status) IsActive() bool {
	return s == StatusApproved || s == StatusInService
}

// IsTerminal reports whether no further transition is possible.
func (s Status) IsTerminal() bool {
	return s == StatusServed || s == StatusRemoved
}

// Entry is one customer's place in one business's queue.
// Position is 0 and EstimatedWait is nil while the entry is not active.
type Entry struct {
	ID                   string     `json:"id"`
	BusinessID           string     `json:"businessId"`
	CustomerName         string     `json:"customerName"`
	CustomerPhone        string     `json:"customerPhone"`
	ServiceType          *string    `json:"serviceType,omitempty"`
	Notes                *string    `json:"notes,omitempty"`
	Position             int        `json:"position"`
	EstimatedServiceTime int        `json:"estimatedServiceTime"`
	EstimatedWait        *int       `json:"estimatedWait"`
	Status               Status     `json:"status"`
	JoinedAt             time.Time  `json:"joinedAt"`
	ApprovedAt           *time.Time `json:"approvedAt"`
	ServiceStartedAt     *time.Time `json:"serviceStartedAt"`
	ServedAt             *time.Time `json:"servedAt"`
}

// Clone returns a deep copy so callers can never alias registry state.
func (e Entry) Clone() Entry {
	out := e
	out.ServiceType = cloneString(e.ServiceType)
	out.Notes = cloneString(e.Notes)
	out.EstimatedWait = cloneInt(e.EstimatedWait)
	out.ApprovedAt = cloneTime(e.ApprovedAt)
	out.ServiceStartedAt = cloneTime(e.ServiceStartedAt)
	out.ServedAt = cloneTime(e.ServedAt)
	return out
}

// Placement is the derived ordering data for one active entry.
type Placement struct {
	EntryID       string `json:"entryId"`
	Position      int    `json:"position"`
	EstimatedWait int    `json:"estimatedWait"`
}

// Snapshot is the observable state of one business queue right after a mutation.
type Snapshot struct {
	BusinessID string  `json:"businessId"`
	Active     []Entry `json:"active"`
	Pending    []Entry `json:"pending"`
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneInt(i *int) *int {
	if i == nil {
		return nil
	}
	v := *i
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
