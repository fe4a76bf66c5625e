package domain

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"time"
)

// Role identifies who authored a turn
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Citation is one retrieved source passage attached to an assistant turn
type Citation struct {
	Content  string         `json:"content"`
	Origin   string         `json:"origin"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Citations is either empty (no retrieved context was used) or a non-empty
// ordered list. The backing slice is never handed out, so a turn holding it
// stays immutable.
type Citations struct {
	items []Citation
}

// NoCitations is the zero value, kept as a name for readability at call sites
var NoCitations = Citations{}

// NewCitations copies items into a Citations value. An empty input yields NoCitations.
func NewCitations(items ...Citation) Citations {
	if len(items) == 0 {
		return NoCitations
	}
	out := make([]Citation, len(items))
	for i, c := range items {
		c.Metadata = maps.Clone(c.Metadata)
		out[i] = c
	}
	return Citations{items: out}
}

// Present reports whether any citation is attached
func (c Citations) Present() bool { return len(c.items) > 0 }

// Len returns the number of citations
func (c Citations) Len() int { return len(c.items) }

// At returns the i-th citation in backend order
func (c Citations) At(i int) Citation {
	item := c.items[i]
	item.Metadata = maps.Clone(item.Metadata)
	return item
}

// All returns a copy of the citations in backend order, or nil when none are present
func (c Citations) All() []Citation {
	if len(c.items) == 0 {
		return nil
	}
	out := make([]Citation, len(c.items))
	for i := range c.items {
		out[i] = c.At(i)
	}
	return out
}

// MarshalJSON encodes present citations as an array and absent ones as null
func (c Citations) MarshalJSON() ([]byte, error) {
	if !c.Present() {
		return []byte("null"), nil
	}
	return json.Marshal(c.items)
}

// UnmarshalJSON accepts null, an empty array, or an array of citations
func (c *Citations) UnmarshalJSON(data []byte) error {
	var items []Citation
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	*c = NewCitations(items...)
	return nil
}

// Turn is one message in the transcript. Turns are never edited after they are appended.
type Turn struct {
	ID        string
	Role      Role
	Text      string
	Citations Citations
	CreatedAt time.Time
}

type turnJSON struct {
	ID        string     `json:"id"`
	Role      Role       `json:"role"`
	Text      string     `json:"text"`
	Citations []Citation `json:"citations,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// MarshalJSON omits the citations key entirely for turns without sources
func (t Turn) MarshalJSON() ([]byte, error) {
	return json.Marshal(turnJSON{
		ID:        t.ID,
		Role:      t.Role,
		Text:      t.Text,
		Citations: t.Citations.All(),
		CreatedAt: t.CreatedAt,
	})
}

// UnmarshalJSON is the inverse of MarshalJSON. Unknown roles are rejected.
func (t *Turn) UnmarshalJSON(data []byte) error {
	var raw turnJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if !raw.Role.Valid() {
		return fmt.Errorf("unknown turn role %q", raw.Role)
	}
	*t = Turn{
		ID:        raw.ID,
		Role:      raw.Role,
		Text:      raw.Text,
		Citations: NewCitations(raw.Citations...),
		CreatedAt: raw.CreatedAt,
	}
	return nil
}

// UserTurn builds an unsaved user turn
func UserTurn(text string) Turn {
	return Turn{Role: RoleUser, Text: text}
}

// AssistantTurn builds an unsaved assistant turn
func AssistantTurn(text string, citations Citations) Turn {
	return Turn{Role: RoleAssistant, Text: text, Citations: citations}
}

// CloneTurns returns a copy of turns that shares no mutable state with the input
func CloneTurns(turns []Turn) []Turn {
	return slices.Clone(turns)
}
