// Package fuzz searches for failing inputs to one suite method with a
// coverage-guided mutational loop.
//
// A campaign seeds a corpus with one random argument vector, then repeats:
// pick a parent by score, mutate a copy of its inputs, run the interpreter
// under coverage instrumentation, and keep the child if it reached anything
// the campaign had not seen. Comparison operands observed during runs feed
// a dictionary that later mutations draw from, so equality tests against
// magic constants get solved by replay rather than by luck.
//
// Every failing outcome is a crash candidate. Crashes are deduplicated by
// outcome and coverage fingerprint: two inputs that fail the same way along
// the same path count once.
package fuzz
