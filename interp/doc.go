// Package interp executes decoded suite methods under small-step semantics.
//
// A run starts from one entry method and an argument vector, and proceeds
// one instruction at a time until it terminates or a step budget runs out.
// Static calls into other suite methods push real frames, so helper methods
// and recursion behave as they would on a JVM.
//
// # Outcomes, errors and faults
//
// The interpreter keeps three failure channels strictly apart:
//
//   - Outcome values classify the behavior of the program under test:
//     normal return, divide by zero, null pointer, out of bounds, assertion
//     error, or "*" when the budget ran out. These are results, not errors.
//   - error returns from Run flag bad requests: an unknown method, or an
//     argument vector that does not fit the descriptor. They are reported
//     before any instruction executes.
//   - Fault panics mark bugs in the interpreter or its inputs, such as an
//     instruction outside the modeled subset slipping past decoding. A
//     correct setup never sees one.
//
// # Strings
//
// Strings live on a per-run heap. Pushed literals are interned so that two
// pushes of the same text are identical, while constructed strings (new
// String, concat, substring) get a fresh reference every time. Reference
// identity therefore behaves the way the source language defines it.
//
// # Instrumentation
//
// A Feedback implementation observes every executed instruction plus the
// operands of equality comparisons. The coverage package provides the one
// the fuzzer uses.
package interp
