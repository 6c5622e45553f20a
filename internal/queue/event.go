// Package queue defines the audit messages exchanged over the broker and
// the background consumer that records them.
package queue

// EmployeeChangedEvent is published whenever an employee record is created,
// updated or deleted. It carries enough for downstream consumers to build
// an audit trail without querying the primary database.
type EmployeeChangedEvent struct {
	EmployeeID    string `json:"employee_id"`
	Action        string `json:"action"` // created | updated | deleted
	PersonalEmail string `json:"personal_email"`
	EmployeeNo    string `json:"employee_no,omitempty"`
	ActorID       string `json:"actor_id"`
	OccurredAt    string `json:"occurred_at"`
}
