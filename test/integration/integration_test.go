package integration_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Anygaardranloev/jpamb-group26/fuzz"
	"github.com/Anygaardranloev/jpamb-group26/interp"
	"github.com/Anygaardranloev/jpamb-group26/jvm"
	"github.com/Anygaardranloev/jpamb-group26/manifest"
	"github.com/Anygaardranloev/jpamb-group26/report"
)

// ---------------------------------------------------------------------------
// Integration test helpers
// ---------------------------------------------------------------------------

// writeClass drops one class file into the suite tree under root, creating
// the package directories on the way.
func writeClass(t *testing.T, root, className, body string) {
	t.Helper()
	path := filepath.Join(root, "decompiled", filepath.FromSlash(className)+".json")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", className, err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", className, err)
	}
}

// buildSuite materializes the full fixture suite in root, replicating the
// layout a decompiled benchmark checkout has on disk.
func buildSuite(t *testing.T, root string) {
	t.Helper()
	writeClass(t, root, "jpamb/cases/Simple", `{
		"name": "jpamb/cases/Simple",
		"methods": [
			{
				"name": "half",
				"descriptor": "(I)I",
				"code": {"max_locals": 1, "max_stack": 2, "bytecode": [
					{"offset": 0, "opr": "load", "type": "int", "index": 0},
					{"offset": 1, "opr": "push", "value": {"type": "integer", "value": 2}},
					{"offset": 2, "opr": "binary", "type": "int", "operant": "div"},
					{"offset": 3, "opr": "return", "type": "int"}
				]}
			},
			{
				"name": "divideByN",
				"descriptor": "(I)I",
				"code": {"max_locals": 1, "max_stack": 2, "bytecode": [
					{"offset": 0, "opr": "push", "value": {"type": "integer", "value": 100}},
					{"offset": 1, "opr": "load", "type": "int", "index": 0},
					{"offset": 2, "opr": "binary", "type": "int", "operant": "div"},
					{"offset": 3, "opr": "return", "type": "int"}
				]}
			},
			{
				"name": "divideByTenth",
				"descriptor": "(I)I",
				"code": {"max_locals": 1, "max_stack": 3, "bytecode": [
					{"offset": 0, "opr": "push", "value": {"type": "integer", "value": 100}},
					{"offset": 1, "opr": "load", "type": "int", "index": 0},
					{"offset": 2, "opr": "push", "value": {"type": "integer", "value": 50}},
					{"offset": 3, "opr": "binary", "type": "int", "operant": "div"},
					{"offset": 4, "opr": "binary", "type": "int", "operant": "div"},
					{"offset": 5, "opr": "return", "type": "int"}
				]}
			}
		]
	}`)
	writeClass(t, root, "jpamb/cases/Calls", `{
		"name": "jpamb/cases/Calls",
		"methods": [
			{
				"name": "mean",
				"descriptor": "(II)I",
				"code": {"max_locals": 2, "max_stack": 2, "bytecode": [
					{"offset": 0, "opr": "load", "type": "int", "index": 0},
					{"offset": 1, "opr": "load", "type": "int", "index": 1},
					{"offset": 2, "opr": "invoke", "access": "static", "method": {"ref": {"kind": "class", "name": "jpamb/cases/Util"}, "name": "sum", "args": ["I", "I"], "returns": "I"}},
					{"offset": 3, "opr": "push", "value": {"type": "integer", "value": 2}},
					{"offset": 4, "opr": "binary", "type": "int", "operant": "div"},
					{"offset": 5, "opr": "return", "type": "int"}
				]}
			}
		]
	}`)
	writeClass(t, root, "jpamb/cases/Util", `{
		"name": "jpamb/cases/Util",
		"methods": [
			{
				"name": "sum",
				"descriptor": "(II)I",
				"code": {"max_locals": 2, "max_stack": 2, "bytecode": [
					{"offset": 0, "opr": "load", "type": "int", "index": 0},
					{"offset": 1, "opr": "load", "type": "int", "index": 1},
					{"offset": 2, "opr": "binary", "type": "int", "operant": "add"},
					{"offset": 3, "opr": "return", "type": "int"}
				]}
			}
		]
	}`)
	writeClass(t, root, "jpamb/cases/Asserts", `{
		"name": "jpamb/cases/Asserts",
		"methods": [
			{
				"name": "checkPositive",
				"descriptor": "(I)V",
				"code": {"max_locals": 1, "max_stack": 2, "bytecode": [
					{"offset": 0, "opr": "get", "static": true},
					{"offset": 1, "opr": "ifz", "condition": "ne", "target": 8},
					{"offset": 2, "opr": "load", "type": "int", "index": 0},
					{"offset": 3, "opr": "ifz", "condition": "gt", "target": 8},
					{"offset": 4, "opr": "new", "class": "java/lang/AssertionError"},
					{"offset": 5, "opr": "dup"},
					{"offset": 6, "opr": "invoke", "access": "special", "method": {"ref": {"kind": "class", "name": "java/lang/AssertionError"}, "name": "<init>", "args": [], "returns": null}},
					{"offset": 7, "opr": "throw"},
					{"offset": 8, "opr": "return"}
				]}
			}
		]
	}`)
	writeClass(t, root, "jpamb/cases/Arrays", `{
		"name": "jpamb/cases/Arrays",
		"methods": [
			{
				"name": "first",
				"descriptor": "([I)I",
				"code": {"max_locals": 1, "max_stack": 2, "bytecode": [
					{"offset": 0, "opr": "load", "type": "ref", "index": 0},
					{"offset": 1, "opr": "push", "value": {"type": "integer", "value": 0}},
					{"offset": 2, "opr": "array_load", "type": "int"},
					{"offset": 3, "opr": "return", "type": "int"}
				]}
			}
		]
	}`)
	writeClass(t, root, "jpamb/cases/Strings", `{
		"name": "jpamb/cases/Strings",
		"methods": [
			{
				"name": "mustBeHit",
				"descriptor": "(Ljava/lang/String;)V",
				"code": {"max_locals": 1, "max_stack": 2, "bytecode": [
					{"offset": 0, "opr": "load", "type": "ref", "index": 0},
					{"offset": 1, "opr": "push", "value": {"type": "string", "value": "hit!"}},
					{"offset": 2, "opr": "invoke", "access": "virtual", "method": {"ref": {"kind": "class", "name": "java/lang/String"}, "name": "equals", "args": ["Ljava/lang/Object;"], "returns": "Z"}},
					{"offset": 3, "opr": "ifz", "condition": "eq", "target": 8},
					{"offset": 4, "opr": "new", "class": "java/lang/AssertionError"},
					{"offset": 5, "opr": "dup"},
					{"offset": 6, "opr": "invoke", "access": "special", "method": {"ref": {"kind": "class", "name": "java/lang/AssertionError"}, "name": "<init>", "args": [], "returns": null}},
					{"offset": 7, "opr": "throw"},
					{"offset": 8, "opr": "return"}
				]}
			}
		]
	}`)
	writeClass(t, root, "jpamb/cases/Loops", `{
		"name": "jpamb/cases/Loops",
		"methods": [
			{
				"name": "forever",
				"descriptor": "()V",
				"code": {"max_locals": 0, "max_stack": 0, "bytecode": [
					{"offset": 0, "opr": "goto", "target": 0}
				]}
			}
		]
	}`)
	writeClass(t, root, "jpamb/cases/Fuzzy", `{
		"name": "jpamb/cases/Fuzzy",
		"methods": [
			{
				"name": "magic",
				"descriptor": "(I)V",
				"code": {"max_locals": 1, "max_stack": 2, "bytecode": [
					{"offset": 0, "opr": "load", "type": "int", "index": 0},
					{"offset": 1, "opr": "push", "value": {"type": "integer", "value": 31337000}},
					{"offset": 2, "opr": "if", "condition": "eq", "target": 4},
					{"offset": 3, "opr": "return"},
					{"offset": 4, "opr": "new", "class": "java/lang/AssertionError"},
					{"offset": 5, "opr": "dup"},
					{"offset": 6, "opr": "invoke", "access": "special", "method": {"ref": {"kind": "class", "name": "java/lang/AssertionError"}, "name": "<init>", "args": [], "returns": null}},
					{"offset": 7, "opr": "throw"}
				]}
			}
		]
	}`)
}

// openSuite builds the fixture suite in a fresh directory and opens it.
func openSuite(t *testing.T) *jvm.Suite {
	t.Helper()
	root := t.TempDir()
	buildSuite(t, root)
	suite, err := jvm.OpenSuite(root, 0)
	if err != nil {
		t.Fatalf("open suite: %v", err)
	}
	return suite
}

// interpret runs one method of the suite on the literal input text,
// replicating the cmd/interp pipeline.
func interpret(t *testing.T, suite *jvm.Suite, idText, inputText string, opts interp.Options) interp.Result {
	t.Helper()
	id, err := jvm.ParseMethodID(idText)
	if err != nil {
		t.Fatalf("parse method id %q: %v", idText, err)
	}
	args, err := jvm.ParseInputs(inputText)
	if err != nil {
		t.Fatalf("parse inputs %q: %v", inputText, err)
	}
	res, err := interp.New(suite, opts).Run(id, args)
	if err != nil {
		t.Fatalf("run %s %s: %v", idText, inputText, err)
	}
	return res
}

// campaign fuzzes one method of the suite, replicating the cmd/fuzz
// pipeline.
func campaign(t *testing.T, suite *jvm.Suite, idText string, opts fuzz.Options) fuzz.Summary {
	t.Helper()
	id, err := jvm.ParseMethodID(idText)
	if err != nil {
		t.Fatalf("parse method id %q: %v", idText, err)
	}
	f, err := fuzz.New(suite, id, opts)
	if err != nil {
		t.Fatalf("new fuzzer for %s: %v", idText, err)
	}
	sum, err := f.Run(context.Background())
	if err != nil {
		t.Fatalf("fuzz %s: %v", idText, err)
	}
	return sum
}

// ---------------------------------------------------------------------------
// 1. Arithmetic from disk: outcomes and returned values
// ---------------------------------------------------------------------------

func TestIntegrationE2E_Arithmetic(t *testing.T) {
	suite := openSuite(t)

	tests := []struct {
		input    string
		expected int32
	}{
		{"(8)", 4},
		{"(7)", 3},
		{"(-7)", -3},
		{"(0)", 0},
	}

	for _, tc := range tests {
		res := interpret(t, suite, "jpamb.cases.Simple.half:(I)I", tc.input, interp.Options{})
		if res.Outcome != interp.OutcomeOK {
			t.Errorf("half %s = %v, want ok", tc.input, res.Outcome)
			continue
		}
		if !res.HasReturn || !res.Returned.IsInt() || res.Returned.Int() != tc.expected {
			t.Errorf("half %s returned %v, want %d", tc.input, res.Returned, tc.expected)
		}
	}
}

// ---------------------------------------------------------------------------
// 2. Division faults
// ---------------------------------------------------------------------------

func TestIntegrationE2E_DivideByZero(t *testing.T) {
	suite := openSuite(t)

	res := interpret(t, suite, "jpamb.cases.Simple.divideByN:(I)I", "(4)", interp.Options{})
	if res.Outcome != interp.OutcomeOK || !res.Returned.IsInt() || res.Returned.Int() != 25 {
		t.Errorf("divideByN (4) = %v returning %v, want ok returning 25", res.Outcome, res.Returned)
	}

	res = interpret(t, suite, "jpamb.cases.Simple.divideByN:(I)I", "(0)", interp.Options{})
	if res.Outcome != interp.OutcomeDivideByZero {
		t.Errorf("divideByN (0) = %v, want divide by zero", res.Outcome)
	}
	if res.HasReturn {
		t.Errorf("divideByN (0) has a return value, want none")
	}
}

// ---------------------------------------------------------------------------
// 3. Static calls across class files
// ---------------------------------------------------------------------------

func TestIntegrationE2E_CrossClassCall(t *testing.T) {
	suite := openSuite(t)

	tests := []struct {
		input    string
		expected int32
	}{
		{"(6, 8)", 7},
		{"(5, 8)", 6},
		{"(-3, 3)", 0},
	}

	for _, tc := range tests {
		res := interpret(t, suite, "jpamb.cases.Calls.mean:(II)I", tc.input, interp.Options{})
		if res.Outcome != interp.OutcomeOK || !res.Returned.IsInt() || res.Returned.Int() != tc.expected {
			t.Errorf("mean %s = %v returning %v, want ok returning %d",
				tc.input, res.Outcome, res.Returned, tc.expected)
		}
	}
}

// ---------------------------------------------------------------------------
// 4. Assertions compiled the javac way
// ---------------------------------------------------------------------------

func TestIntegrationE2E_AssertionOutcomes(t *testing.T) {
	suite := openSuite(t)

	tests := []struct {
		input    string
		expected interp.Outcome
	}{
		{"(5)", interp.OutcomeOK},
		{"(1)", interp.OutcomeOK},
		{"(0)", interp.OutcomeAssertionError},
		{"(-3)", interp.OutcomeAssertionError},
	}

	for _, tc := range tests {
		res := interpret(t, suite, "jpamb.cases.Asserts.checkPositive:(I)V", tc.input, interp.Options{})
		if res.Outcome != tc.expected {
			t.Errorf("checkPositive %s = %v, want %v", tc.input, res.Outcome, tc.expected)
		}
	}
}

// ---------------------------------------------------------------------------
// 5. Array access: ok, out of bounds and null pointer
// ---------------------------------------------------------------------------

func TestIntegrationE2E_ArrayOutcomes(t *testing.T) {
	suite := openSuite(t)

	res := interpret(t, suite, "jpamb.cases.Arrays.first:([I)I", "([I:42, 7])", interp.Options{})
	if res.Outcome != interp.OutcomeOK || !res.Returned.IsInt() || res.Returned.Int() != 42 {
		t.Errorf("first [42 7] = %v returning %v, want ok returning 42", res.Outcome, res.Returned)
	}

	res = interpret(t, suite, "jpamb.cases.Arrays.first:([I)I", "([I:])", interp.Options{})
	if res.Outcome != interp.OutcomeOutOfBounds {
		t.Errorf("first [] = %v, want out of bounds", res.Outcome)
	}

	res = interpret(t, suite, "jpamb.cases.Arrays.first:([I)I", "(null)", interp.Options{})
	if res.Outcome != interp.OutcomeNullPointer {
		t.Errorf("first null = %v, want null pointer", res.Outcome)
	}
}

// ---------------------------------------------------------------------------
// 6. String equality guarding a throw
// ---------------------------------------------------------------------------

func TestIntegrationE2E_StringOutcomes(t *testing.T) {
	suite := openSuite(t)

	tests := []struct {
		input    string
		expected interp.Outcome
	}{
		{`("hit!")`, interp.OutcomeAssertionError},
		{`("miss")`, interp.OutcomeOK},
		{`("")`, interp.OutcomeOK},
		{`(null)`, interp.OutcomeNullPointer},
	}

	for _, tc := range tests {
		res := interpret(t, suite, "jpamb.cases.Strings.mustBeHit:(Ljava/lang/String;)V", tc.input, interp.Options{})
		if res.Outcome != tc.expected {
			t.Errorf("mustBeHit %s = %v, want %v", tc.input, res.Outcome, tc.expected)
		}
	}
}

// ---------------------------------------------------------------------------
// 7. Step budget exhaustion
// ---------------------------------------------------------------------------

func TestIntegrationE2E_BudgetExhaustion(t *testing.T) {
	suite := openSuite(t)

	res := interpret(t, suite, "jpamb.cases.Loops.forever:()V", "()", interp.Options{MaxSteps: 25})
	if res.Outcome != interp.OutcomeExhausted {
		t.Errorf("forever = %v, want *", res.Outcome)
	}
	if res.Steps != 25 {
		t.Errorf("forever ran %d steps, want 25", res.Steps)
	}
}

// ---------------------------------------------------------------------------
// 8. Manifest-driven configuration
// ---------------------------------------------------------------------------

func TestIntegrationE2E_ManifestConfig(t *testing.T) {
	root := t.TempDir()
	buildSuite(t, root)
	config := `
[project]
name = "integration"

[suite]
codebase = "."
cache-size = 16

[interp]
max-steps = 50
`
	if err := os.WriteFile(filepath.Join(root, "jpamb.toml"), []byte(config), 0o644); err != nil {
		t.Fatalf("write jpamb.toml: %v", err)
	}

	m, err := manifest.Load(root)
	if err != nil {
		t.Fatalf("load manifest: %v", err)
	}
	suite, err := jvm.OpenSuite(m.CodebasePath(), m.Suite.CacheSize)
	if err != nil {
		t.Fatalf("open suite via manifest: %v", err)
	}

	res := interpret(t, suite, "jpamb.cases.Loops.forever:()V", "()", interp.Options{MaxSteps: m.Interp.MaxSteps})
	if res.Outcome != interp.OutcomeExhausted || res.Steps != 50 {
		t.Errorf("forever under manifest budget = %v after %d steps, want * after 50", res.Outcome, res.Steps)
	}
}

// ---------------------------------------------------------------------------
// 9. Fuzzing a disk suite finds the zero divisor
// ---------------------------------------------------------------------------

func TestIntegrationE2E_FuzzDivideByZero(t *testing.T) {
	suite := openSuite(t)

	// divideByTenth computes 100 / (n / 50), so every |n| <= 49 zeroes the
	// divisor.
	sum := campaign(t, suite, "jpamb.cases.Simple.divideByTenth:(I)I", fuzz.Options{
		Seed:        3,
		MaxIters:    20000,
		StopOnCrash: true,
	})
	if sum.Outcome != interp.OutcomeDivideByZero {
		t.Fatalf("campaign outcome = %v, want divide by zero (reason %s)", sum.Outcome, sum.Reason)
	}
	if len(sum.Crashes) != 1 {
		t.Fatalf("campaign found %d crashes, want 1", len(sum.Crashes))
	}
	in := sum.Crashes[0].Inputs
	if len(in) != 1 || !in[0].IsInt() || in[0].Int() < -49 || in[0].Int() > 49 {
		t.Errorf("crashing inputs = %s, want one int with |n| <= 49", jvm.FormatInputs(in))
	}
}

// ---------------------------------------------------------------------------
// 10. Literal pool feeds the dictionary
// ---------------------------------------------------------------------------

func TestIntegrationE2E_FuzzWithLiteralsFile(t *testing.T) {
	suite := openSuite(t)

	litPath := filepath.Join(t.TempDir(), "literals.json")
	lit := `{"int_literals": ["31337000"], "string_literals": [], "char_literals": []}`
	if err := os.WriteFile(litPath, []byte(lit), 0o644); err != nil {
		t.Fatalf("write literals: %v", err)
	}
	pool, err := fuzz.LoadLiterals(litPath)
	if err != nil {
		t.Fatalf("load literals: %v", err)
	}
	if len(pool.Ints) != 1 || pool.Ints[0] != 31337000 {
		t.Fatalf("pool ints = %v, want [31337000]", pool.Ints)
	}

	sum := campaign(t, suite, "jpamb.cases.Fuzzy.magic:(I)V", fuzz.Options{
		Seed:        5,
		MaxIters:    50000,
		StopOnCrash: true,
		Literals:    pool,
	})
	if sum.Outcome != interp.OutcomeAssertionError {
		t.Fatalf("campaign outcome = %v, want assertion error (reason %s)", sum.Outcome, sum.Reason)
	}
	in := sum.Crashes[0].Inputs
	if len(in) != 1 || !in[0].IsInt() || in[0].Int() != 31337000 {
		t.Errorf("crashing inputs = %s, want (31337000)", jvm.FormatInputs(in))
	}
}

// ---------------------------------------------------------------------------
// 11. Session reports round-trip through the wire format
// ---------------------------------------------------------------------------

func TestIntegrationE2E_SessionReport(t *testing.T) {
	suite := openSuite(t)

	idText := "jpamb.cases.Simple.divideByTenth:(I)I"
	id, err := jvm.ParseMethodID(idText)
	if err != nil {
		t.Fatalf("parse method id: %v", err)
	}
	f, err := fuzz.New(suite, id, fuzz.Options{Seed: 9, MaxIters: 20000, StopOnCrash: true})
	if err != nil {
		t.Fatalf("new fuzzer: %v", err)
	}
	sum, err := f.Run(context.Background())
	if err != nil {
		t.Fatalf("fuzz: %v", err)
	}
	if sum.Outcome != interp.OutcomeDivideByZero {
		t.Fatalf("campaign outcome = %v, want divide by zero", sum.Outcome)
	}

	started := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	path := filepath.Join(t.TempDir(), "session.cbor")
	s := report.New(id, f.Seed(), started, started.Add(2*time.Second), sum)
	if err := s.WriteFile(path); err != nil {
		t.Fatalf("write report: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	got, err := report.UnmarshalSession(data)
	if err != nil {
		t.Fatalf("unmarshal report: %v", err)
	}
	if got.Method != idText {
		t.Errorf("report method = %q, want %q", got.Method, idText)
	}
	if got.Outcome != "divide by zero" {
		t.Errorf("report outcome = %q, want divide by zero", got.Outcome)
	}
	if len(got.Crashes) != 1 {
		t.Fatalf("report has %d crashes, want 1", len(got.Crashes))
	}
	vals, err := jvm.ParseInputs(got.Crashes[0].Inputs)
	if err != nil {
		t.Fatalf("crash inputs %q do not parse back: %v", got.Crashes[0].Inputs, err)
	}
	if len(vals) != 1 || !vals[0].IsInt() || vals[0].Int() < -49 || vals[0].Int() > 49 {
		t.Errorf("crash inputs = %q, want one int with |n| <= 49", got.Crashes[0].Inputs)
	}
}
