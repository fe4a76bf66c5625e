package session

import "github.com/liliang-cn/policychat/internal/domain"

// History holds the context pairs sent to the backend as conversational memory.
// One pair is appended per answered round; it is never rebuilt from the transcript.
type History struct {
	pairs []domain.ContextPair
}

// NewHistory creates an empty history
func NewHistory() *History {
	return &History{}
}

// Append records a completed round
func (h *History) Append(question, answer string) {
	h.pairs = append(h.pairs, domain.ContextPair{Question: question, Answer: answer})
}

// Snapshot returns a copy of the pairs accumulated so far
func (h *History) Snapshot() []domain.ContextPair {
	return domain.ClonePairs(h.pairs)
}

// Len returns the number of pairs
func (h *History) Len() int {
	return len(h.pairs)
}

// Project derives the pairs a transcript implies: every user turn directly
// followed by an assistant turn. The seed greeting and unanswered questions
// produce nothing.
func Project(turns []domain.Turn) []domain.ContextPair {
	pairs := []domain.ContextPair{}
	for i := 1; i < len(turns); i++ {
		if turns[i-1].Role == domain.RoleUser && turns[i].Role == domain.RoleAssistant {
			pairs = append(pairs, domain.ContextPair{Question: turns[i-1].Text, Answer: turns[i].Text})
		}
	}
	return pairs
}
