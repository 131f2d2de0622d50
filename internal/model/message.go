package model

import "slices"

// MessageState is the processing state of a mailbox message, carried as a label.
type MessageState string

const (
	StateUnlabeled MessageState = "unlabeled"
	StateProcessed MessageState = "processed"
	StateFailed    MessageState = "failed"
)

// Label returns the mailbox label for a terminal state, or "" for StateUnlabeled.
func (s MessageState) Label() string {
	if s == StateUnlabeled {
		return ""
	}
	return string(s)
}

// Terminal reports whether the state stops further processing.
func (s MessageState) Terminal() bool {
	return s == StateProcessed || s == StateFailed
}

// MessageSummary is a list entry from the mailbox.
type MessageSummary struct {
	ID      string
	Subject string
	Labels  []string
}

// State derives the processing state from the message labels.
func (m MessageSummary) State() MessageState {
	switch {
	case slices.Contains(m.Labels, string(StateProcessed)):
		return StateProcessed
	case slices.Contains(m.Labels, string(StateFailed)):
		return StateFailed
	default:
		return StateUnlabeled
	}
}

// Message is the full body of a mailbox message.
type Message struct {
	ID   string
	Text string
	HTML string
}

// Transition decides the label a message gets after its URLs were attempted.
// total is the number of candidate URLs; zero URLs counts as handled.
func Transition(scraped, failed, total int) MessageState {
	switch {
	case total == 0:
		return StateProcessed
	case scraped > 0:
		return StateProcessed
	case failed == total:
		return StateFailed
	default:
		return StateUnlabeled
	}
}
