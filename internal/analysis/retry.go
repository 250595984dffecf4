package analysis

import (
	"time"

	"github.com/styleglow/analyzer/internal/domain"
)

// attemptState enumerates the retry/fallback state machine. The sequence is
// fixed: two attempts on the primary model with 2s and 4s backoffs between
// overload signals, then one attempt on the fallback model.
type attemptState int

const (
	statePrimaryFirst attemptState = iota
	statePrimarySecond
	stateFallback
	stateDone
	stateFailed
)

func (s attemptState) String() string {
	switch s {
	case statePrimaryFirst:
		return "primary-attempt-1"
	case statePrimarySecond:
		return "primary-attempt-2"
	case stateFallback:
		return "fallback-attempt-3"
	case stateDone:
		return "done"
	case stateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// attempt reports which model class and attempt number a state represents.
func (s attemptState) attempt() (number int, fallback bool) {
	switch s {
	case statePrimaryFirst:
		return 1, false
	case statePrimarySecond:
		return 2, false
	case stateFallback:
		return 3, true
	default:
		return 0, false
	}
}

// terminal reports whether the machine has stopped.
func (s attemptState) terminal() bool {
	return s == stateDone || s == stateFailed
}

// outcome classifies the result of one attempt.
type outcome int

const (
	outcomeSuccess outcome = iota
	outcomeOverloaded
	outcomeTimeout
	outcomeOther
)

// effects are the side effects the orchestrator performs before the next
// attempt: an optional notification and an optional backoff delay.
type effects struct {
	notify    *Notification
	delay     time.Duration
	exhausted bool // all attempts used, terminal failure is Overloaded
}

// transition is the pure state transition function. It performs no I/O so
// the retry policy is testable independent of the network code.
func transition(s attemptState, o outcome) (attemptState, effects) {
	switch s {
	case statePrimaryFirst:
		switch o {
		case outcomeSuccess:
			return stateDone, effects{}
		case outcomeOverloaded:
			return statePrimarySecond, effects{
				notify: &Notification{Level: NotifyInfo, Message: "The AI service is busy, retrying..."},
				delay:  2 * time.Second,
			}
		default:
			return stateFailed, effects{}
		}

	case statePrimarySecond:
		switch o {
		case outcomeSuccess:
			return stateDone, effects{}
		case outcomeOverloaded:
			return stateFallback, effects{
				notify: &Notification{Level: NotifyWarning, Message: "Still busy, switching to backup model..."},
				delay:  4 * time.Second,
			}
		default:
			return stateFailed, effects{}
		}

	case stateFallback:
		if o == outcomeSuccess {
			return stateDone, effects{}
		}
		// Any failure on the fallback model exhausts the sequence.
		return stateFailed, effects{exhausted: o == outcomeOverloaded}

	default:
		return s, effects{}
	}
}

// classify maps an attempt error to a state machine outcome.
func classify(err error) outcome {
	if err == nil {
		return outcomeSuccess
	}
	switch domain.KindOf(err) {
	case domain.ErrorKindOverloaded:
		return outcomeOverloaded
	case domain.ErrorKindTimeout:
		return outcomeTimeout
	default:
		return outcomeOther
	}
}
