package domain

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
)

// ContextPair is the (question, answer) tuple of one completed round
type ContextPair struct {
	Question string
	Answer   string
}

// MarshalJSON encodes the pair as a two-element array, the backend's history shape
func (p ContextPair) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{p.Question, p.Answer})
}

// UnmarshalJSON decodes a two-element array
func (p *ContextPair) UnmarshalJSON(data []byte) error {
	var raw []string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 2 {
		return fmt.Errorf("context pair must have 2 elements, got %d", len(raw))
	}
	p.Question, p.Answer = raw[0], raw[1]
	return nil
}

// ChatRequest is the payload sent to the question-answering backend
type ChatRequest struct {
	Question string        `json:"question"`
	History  []ContextPair `json:"history"`
}

// SourceDocument is one retrieved passage as the backend reports it
type SourceDocument struct {
	PageContent string         `json:"pageContent"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// ChatResponse is a decoded backend answer
type ChatResponse struct {
	Text            string           `json:"text"`
	SourceDocuments []SourceDocument `json:"sourceDocuments,omitempty"`
	Error           string           `json:"error,omitempty"`
}

// MetadataKeySource names the origin of a source document
const MetadataKeySource = "source"

// Citations converts the backend source documents into turn citations, keeping backend order
func (r *ChatResponse) Citations() Citations {
	if r == nil || len(r.SourceDocuments) == 0 {
		return NoCitations
	}
	items := make([]Citation, 0, len(r.SourceDocuments))
	for _, doc := range r.SourceDocuments {
		c := Citation{Content: doc.PageContent}
		if len(doc.Metadata) > 0 {
			if src, ok := doc.Metadata[MetadataKeySource]; ok && src != nil {
				c.Origin = originString(src)
			}
			rest := make(map[string]any, len(doc.Metadata))
			for k, v := range doc.Metadata {
				if k != MetadataKeySource {
					rest[k] = v
				}
			}
			if len(rest) > 0 {
				c.Metadata = rest
			}
		}
		items = append(items, c)
	}
	return NewCitations(items...)
}

// originString renders a metadata source; numbers keep their plain decimal form
func originString(v any) string {
	switch src := v.(type) {
	case string:
		return src
	case float64:
		return strconv.FormatFloat(src, 'f', -1, 64)
	case json.Number:
		return src.String()
	default:
		return fmt.Sprint(src)
	}
}

// Snapshot is everything a renderer needs to draw the conversation
type Snapshot struct {
	SessionID        string        `json:"session_id"`
	Turns            []Turn        `json:"turns"`
	ContextPairs     []ContextPair `json:"context_pairs"`
	PendingInput     string        `json:"pending_input"`
	AwaitingResponse bool          `json:"awaiting_response"`
	LastError        string        `json:"last_error,omitempty"`
}

// ClonePairs returns a copy of pairs; nil input yields an empty, non-nil slice
func ClonePairs(pairs []ContextPair) []ContextPair {
	if pairs == nil {
		return []ContextPair{}
	}
	return slices.Clone(pairs)
}
