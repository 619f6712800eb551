package models

import "time"

// SpeakerRole 定义了消息发送者的角色。
type SpeakerRole string

const (
	SpeakerUser      SpeakerRole = "user"      // 用户角色。
	SpeakerAssistant SpeakerRole = "assistant" // 助手角色。
	SpeakerModel     SpeakerRole = "model"     // 模型角色。
)

// ConversationTurn is a single utterance from a conversation, the unit the
// memory engine ingests.
type ConversationTurn struct {
	Role       SpeakerRole `json:"role"`
	Text       string      `json:"text"`
	User       string      `json:"user,omitempty"`
	CreateTime time.Time   `json:"createTime,omitempty"`
}

// CandidateKind distinguishes the two kinds of extraction output.
type CandidateKind string

const (
	CandidateFact   CandidateKind = "fact"
	CandidateTriple CandidateKind = "triple"
)

// Candidate is an ephemeral fact or triple proposed by the extractor for one
// turn. It is never persisted on its own; the reconciler consumes it within
// the same add call.
type Candidate struct {
	Kind      CandidateKind `json:"kind"`
	Text      string        `json:"text,omitempty"`
	Subject   string        `json:"subject,omitempty"`
	Predicate string        `json:"predicate,omitempty"`
	Object    string        `json:"object,omitempty"`
}

// ReconciliationResult reports what one add call did to the store. Added,
// Updated and Deleted hold fact ids; AddedTriples holds the keys of newly
// created graph edges, which live in their own id space.
type ReconciliationResult struct {
	Added        []string `json:"added"`
	Updated      []string `json:"updated"`
	Deleted      []string `json:"deleted"`
	AddedTriples []string `json:"added_triples"`
	Noop         int      `json:"noop"`
}

// SearchResult is the retrieval output: ranked facts plus the raw triples
// found around the query's entities.
type SearchResult struct {
	Facts   []*Fact   `json:"facts"`
	Triples []*Triple `json:"triples"`
}

// MemoryEventType 枚举了记忆协调过程中可能发生的事件。
type MemoryEventType string

const (
	EventAdd    MemoryEventType = "ADD"
	EventUpdate MemoryEventType = "UPDATE"
	EventDelete MemoryEventType = "DELETE"
	EventNoop   MemoryEventType = "NONE"
)

// MemoryEvent is one entry of the decision trail: why a fact changed, from
// which turn, and whether the judgment fallback fired.
type MemoryEvent struct {
	ID         string          `bson:"_id" json:"id"`
	UserID     string          `bson:"user_id" json:"user_id"`
	FactID     string          `bson:"fact_id,omitempty" json:"fact_id,omitempty"`
	Event      MemoryEventType `bson:"event" json:"event"`
	PrevText   string          `bson:"prev_text,omitempty" json:"prev_text,omitempty"`
	NewText    string          `bson:"new_text,omitempty" json:"new_text,omitempty"`
	SourceTurn string          `bson:"source_turn,omitempty" json:"source_turn,omitempty"`
	Fallback   bool            `bson:"fallback,omitempty" json:"fallback,omitempty"`
	CreatedAt  time.Time       `bson:"created_at" json:"created_at"`
}
