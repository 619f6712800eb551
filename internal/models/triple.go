package models

import "strings"

// Triple represents a directed relationship between two entities.
type Triple struct {
	UserID    string `json:"user_id"`
	Subject   string `json:"subject"`
	Predicate string `json:"predicate"`
	Object    string `json:"object"`
}

// Key returns the identity of a triple within its owner's graph. Two triples
// with the same key are the same edge.
func (t *Triple) Key() string {
	return strings.Join([]string{t.UserID, t.Subject, t.Predicate, t.Object}, "\x1f")
}

// Reflexive reports whether the triple points back at its own subject.
func (t *Triple) Reflexive() bool {
	return t.Subject == t.Object
}
