package pacer

import "fmt"

// The delivery sequence is a strict state machine. No transition may be
// skipped or reordered; the typing wait and the send must never run as
// concurrent tasks.
type sendState int

const (
	stateIdle sendState = iota
	stateTypingSignalSent
	stateWaiting
	stateSending
	stateDone
	stateFailed
)

func (s sendState) String() string {
	switch s {
	case stateIdle:
		return "Idle"
	case stateTypingSignalSent:
		return "TypingSignalSent"
	case stateWaiting:
		return "Waiting"
	case stateSending:
		return "Sending"
	case stateDone:
		return "Done"
	case stateFailed:
		return "Failed"
	}
	return "Unknown"
}

var transitions = map[sendState][]sendState{
	stateIdle:             {stateTypingSignalSent},
	stateTypingSignalSent: {stateWaiting},
	stateWaiting:          {stateSending},
	stateSending:          {stateDone, stateFailed},
}

type sendSequence struct {
	current sendState
}

func newSendSequence() *sendSequence {
	return &sendSequence{current: stateIdle}
}

func (m *sendSequence) to(next sendState) error {
	for _, allowed := range transitions[m.current] {
		if allowed == next {
			m.current = next
			return nil
		}
	}
	return fmt.Errorf("invalid delivery transition %s -> %s", m.current, next)
}
