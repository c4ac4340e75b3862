package interp

import "fmt"

// Outcome classifies how a run ended. The String forms are the canonical
// labels the benchmark suites score against.
type Outcome uint8

const (
	// OutcomeOK is normal termination: the entry method returned.
	OutcomeOK Outcome = iota
	// OutcomeDivideByZero is an integer division with a zero divisor.
	OutcomeDivideByZero
	// OutcomeNullPointer is a dereference of a null reference.
	OutcomeNullPointer
	// OutcomeOutOfBounds is an index outside a string or array, including
	// a negative array size.
	OutcomeOutOfBounds
	// OutcomeAssertionError is a thrown exception, which in the suites is
	// always an assertion failure.
	OutcomeAssertionError
	// OutcomeExhausted means the step budget ran out before the run could
	// terminate, rendered as "*".
	OutcomeExhausted
)

var outcomeNames = [...]string{
	OutcomeOK:             "ok",
	OutcomeDivideByZero:   "divide by zero",
	OutcomeNullPointer:    "null pointer",
	OutcomeOutOfBounds:    "out of bounds",
	OutcomeAssertionError: "assertion error",
	OutcomeExhausted:      "*",
}

// String returns the canonical label.
func (o Outcome) String() string {
	if int(o) < len(outcomeNames) {
		return outcomeNames[o]
	}
	return fmt.Sprintf("outcome(%d)", uint8(o))
}

// IsFailure reports whether the outcome is a runtime fault of the program
// under test, as opposed to normal or truncated termination.
func (o Outcome) IsFailure() bool {
	switch o {
	case OutcomeDivideByZero, OutcomeNullPointer, OutcomeOutOfBounds, OutcomeAssertionError:
		return true
	}
	return false
}

// ParseOutcome maps a canonical label back to its Outcome.
func ParseOutcome(s string) (Outcome, error) {
	for o, name := range outcomeNames {
		if name == s {
			return Outcome(o), nil
		}
	}
	return 0, fmt.Errorf("unknown outcome %q", s)
}
