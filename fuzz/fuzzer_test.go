package fuzz

import (
	"context"
	"testing"

	"github.com/Anygaardranloev/jpamb-group26/interp"
	"github.com/Anygaardranloev/jpamb-group26/jvm"
)

// ---------------------------------------------------------------------------
// Target programs
// ---------------------------------------------------------------------------

func push(v jvm.Value) jvm.Inst { return jvm.Inst{Op: jvm.OpPush, Value: v} }
func load(i int) jvm.Inst       { return jvm.Inst{Op: jvm.OpLoad, Index: i} }
func div() jvm.Inst {
	return jvm.Inst{Op: jvm.OpBinary, BinOp: jvm.BinDiv, Type: jvm.TypeInt}
}
func ifCmp(c jvm.Cmp, target int) jvm.Inst {
	return jvm.Inst{Op: jvm.OpIf, Cond: c, Target: target}
}
func ifz(c jvm.Cmp, target int) jvm.Inst {
	return jvm.Inst{Op: jvm.OpIfz, Cond: c, Target: target}
}
func ret(t jvm.Type) jvm.Inst { return jvm.Inst{Op: jvm.OpReturn, Type: t} }
func throw() jvm.Inst         { return jvm.Inst{Op: jvm.OpThrow} }

func program(t *testing.T, idText string, code ...jvm.Inst) (jvm.Source, jvm.MethodID) {
	t.Helper()
	id, err := jvm.ParseMethodID(idText)
	if err != nil {
		t.Fatal(err)
	}
	return jvm.MapSource{id: &jvm.Method{ID: id, Code: code}}, id
}

// divTarget computes 100 / (x / 50), which fails with divide by zero for
// every |x| <= 49.
func divTarget(t *testing.T) (jvm.Source, jvm.MethodID) {
	return program(t, "jpamb.cases.Fuzz.div:(I)I",
		push(jvm.Int(100)),
		load(0),
		push(jvm.Int(50)),
		div(),
		div(),
		ret(jvm.TypeInt),
	)
}

// ---------------------------------------------------------------------------
// Search behavior
// ---------------------------------------------------------------------------

func TestFindsDivideByZero(t *testing.T) {
	src, id := divTarget(t)
	f, err := New(src, id, Options{Seed: 1, MaxIters: 20000, StopOnCrash: true})
	if err != nil {
		t.Fatal(err)
	}
	sum, err := f.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if sum.Outcome != interp.OutcomeDivideByZero {
		t.Fatalf("outcome = %s after %d iterations, want divide by zero", sum.Outcome, sum.Iterations)
	}
	if sum.Reason != ReasonCrashed {
		t.Errorf("reason = %q, want %q", sum.Reason, ReasonCrashed)
	}
	if len(sum.Crashes) != 1 {
		t.Fatalf("crashes = %d, want 1", len(sum.Crashes))
	}
	if got := sum.Crashes[0].Inputs[0].Int(); got < -49 || got > 49 {
		t.Errorf("crashing input = %d, want |x| <= 49", got)
	}
	if sum.Score == 0 {
		t.Error("campaign ended with zero coverage")
	}
}

func TestFindsMagicComparison(t *testing.T) {
	// One guarded fault: if (x == 424242) throw. Random integers start in
	// [-100, 100], so only comparison feedback makes this reachable.
	src, id := program(t, "jpamb.cases.Fuzz.magic:(I)V",
		load(0),
		push(jvm.Int(424242)),
		ifCmp(jvm.CmpEq, 4),
		ret(jvm.TypeVoid),
		push(jvm.Int(1)),
		throw(),
	)
	f, err := New(src, id, Options{Seed: 7, MaxIters: 50000, StopOnCrash: true})
	if err != nil {
		t.Fatal(err)
	}
	sum, err := f.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if sum.Outcome != interp.OutcomeAssertionError {
		t.Fatalf("outcome = %s after %d iterations, want assertion error", sum.Outcome, sum.Iterations)
	}
	if got := sum.Crashes[0].Inputs[0]; !got.Identical(jvm.Int(424242)) {
		t.Errorf("crashing input = %s, want 424242", got)
	}
}

func TestFindsSecretString(t *testing.T) {
	// if (s.equals("hit!")) throw, solvable by replaying the comparison
	// operand from the dictionary.
	src, id := program(t, "jpamb.cases.Fuzz.secret:(Ljava/lang/String;)V",
		load(0),
		push(jvm.Str("hit!")),
		jvm.Inst{
			Op:     jvm.OpInvoke,
			Invoke: jvm.InvokeVirtual,
			Method: jvm.MethodRef{
				ClassName: "java/lang/String",
				Name:      "equals",
				Args:      []string{"Ljava/lang/Object;"},
				Returns:   "Z",
			},
		},
		ifz(jvm.CmpNe, 5),
		ret(jvm.TypeVoid),
		push(jvm.Int(1)),
		throw(),
	)
	f, err := New(src, id, Options{Seed: 11, MaxIters: 100000, StopOnCrash: true})
	if err != nil {
		t.Fatal(err)
	}
	sum, err := f.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if sum.Outcome != interp.OutcomeAssertionError {
		t.Fatalf("outcome = %s after %d iterations, want assertion error", sum.Outcome, sum.Iterations)
	}
	if got := sum.Crashes[0].Inputs[0]; got.Str() != "hit!" {
		t.Errorf("crashing input = %s, want \"hit!\"", got)
	}
}

// ---------------------------------------------------------------------------
// Campaign bookkeeping
// ---------------------------------------------------------------------------

func TestCrashDeduplication(t *testing.T) {
	// Fails the same way on every run; one crash should be recorded.
	src, id := program(t, "jpamb.cases.Fuzz.alwaysDiv:()V",
		push(jvm.Int(1)),
		push(jvm.Int(0)),
		div(),
		ret(jvm.TypeVoid),
	)
	f, err := New(src, id, Options{Seed: 3, MaxIters: 50})
	if err != nil {
		t.Fatal(err)
	}
	sum, err := f.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if sum.Iterations != 50 {
		t.Errorf("iterations = %d, want 50", sum.Iterations)
	}
	if len(sum.Crashes) != 1 {
		t.Errorf("crashes = %d, want 1", len(sum.Crashes))
	}
	if sum.Outcome != interp.OutcomeDivideByZero {
		t.Errorf("outcome = %s, want divide by zero", sum.Outcome)
	}
	if sum.Reason != ReasonMaxIters {
		t.Errorf("reason = %q, want %q", sum.Reason, ReasonMaxIters)
	}
}

func TestStagnationStops(t *testing.T) {
	src, id := program(t, "jpamb.cases.Fuzz.boring:()V",
		ret(jvm.TypeVoid),
	)
	f, err := New(src, id, Options{Seed: 5, MaxIters: 100000, StagnationStop: 40})
	if err != nil {
		t.Fatal(err)
	}
	sum, err := f.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if sum.Reason != ReasonStagnated {
		t.Fatalf("reason = %q, want %q", sum.Reason, ReasonStagnated)
	}
	if sum.Iterations < 40 || sum.Iterations > 60 {
		t.Errorf("iterations = %d, want just past the stagnation limit", sum.Iterations)
	}
	if sum.Outcome != interp.OutcomeOK || len(sum.Crashes) != 0 {
		t.Errorf("outcome = %s with %d crashes, want ok with none", sum.Outcome, len(sum.Crashes))
	}
}

func TestStopRequestBeforeFirstRun(t *testing.T) {
	src, id := divTarget(t)
	f, err := New(src, id, Options{Seed: 1, MaxIters: 1000})
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sum, err := f.Run(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if sum.Reason != ReasonStopped {
		t.Errorf("reason = %q, want %q", sum.Reason, ReasonStopped)
	}
	if sum.Iterations != 0 {
		t.Errorf("iterations = %d, want 0", sum.Iterations)
	}
}

func TestDeterministicReplay(t *testing.T) {
	runOnce := func() Summary {
		src, id := divTarget(t)
		f, err := New(src, id, Options{Seed: 42, MaxIters: 300})
		if err != nil {
			t.Fatal(err)
		}
		sum, err := f.Run(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		return sum
	}
	a, b := runOnce(), runOnce()
	if a.Outcome != b.Outcome || a.Score != b.Score || a.Iterations != b.Iterations {
		t.Errorf("replays diverged: %+v vs %+v", a, b)
	}
	if len(a.Crashes) != len(b.Crashes) {
		t.Fatalf("crash counts diverged: %d vs %d", len(a.Crashes), len(b.Crashes))
	}
	for i := range a.Crashes {
		if jvm.FormatInputs(a.Crashes[i].Inputs) != jvm.FormatInputs(b.Crashes[i].Inputs) {
			t.Errorf("crash %d inputs diverged", i)
		}
	}
}

func TestNewRejectsUnknownMethod(t *testing.T) {
	id, err := jvm.ParseMethodID("jpamb.cases.Fuzz.missing:()V")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := New(jvm.MapSource{}, id, Options{}); err == nil {
		t.Error("expected error for a method the source does not have")
	}
}

func TestSeedResolution(t *testing.T) {
	src, id := divTarget(t)
	f, err := New(src, id, Options{Seed: 99})
	if err != nil {
		t.Fatal(err)
	}
	if f.Seed() != 99 {
		t.Errorf("Seed() = %d, want 99", f.Seed())
	}
	f, err = New(src, id, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if f.Seed() == 0 {
		t.Error("zero option seed should resolve to a clock seed")
	}
}
