package fuzz

import (
	"github.com/Anygaardranloev/jpamb-group26/jvm"
)

// Testcase is one retained input vector together with the bookkeeping the
// scheduler needs. Inputs are immutable once recorded; children always
// mutate a copy.
type Testcase struct {
	// Inputs is the argument vector, one value per method parameter.
	Inputs []jvm.Value
	// Score is the local coverage score of the run that recorded this
	// testcase.
	Score int
	// Depth counts mutation generations back to the seed.
	Depth int
	// Stale counts consecutive iterations in which this testcase was the
	// parent without producing anything interesting.
	Stale int
}

// clone returns a mutable copy of the inputs, safe to hand to the mutator.
func (tc *Testcase) clone() []jvm.Value {
	out := make([]jvm.Value, len(tc.Inputs))
	for i, v := range tc.Inputs {
		out[i] = v.DeepCopy()
	}
	return out
}

// String renders the inputs in the benchmark literal syntax.
func (tc *Testcase) String() string {
	return jvm.FormatInputs(tc.Inputs)
}
