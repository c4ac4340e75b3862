package fuzz

import (
	"cmp"
	"context"
	"fmt"
	"math/rand"
	"slices"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/tliron/commonlog"

	"github.com/Anygaardranloev/jpamb-group26/coverage"
	"github.com/Anygaardranloev/jpamb-group26/interp"
	"github.com/Anygaardranloev/jpamb-group26/jvm"
)

var log = commonlog.GetLogger("jpamb.fuzz")

// ---------------------------------------------------------------------------
// Campaign knobs
// ---------------------------------------------------------------------------

const (
	// DefaultMaxIters bounds a campaign that nothing else stops.
	DefaultMaxIters = 100000000
	// DefaultMaxCorpus caps the corpus after pruning.
	DefaultMaxCorpus = 128
	// DefaultExploreAfter is the global staleness at which scheduling
	// flips from exploiting high scorers to exploring low ones.
	DefaultExploreAfter = 500
	// DefaultStaleLimit prunes testcases that went this many picks
	// without an interesting child.
	DefaultStaleLimit = 1000
	// DefaultStagnationStop ends the campaign after this many iterations
	// without any new global coverage.
	DefaultStagnationStop = 100000
)

// Exploitation picks the best testcase with probability pPickBest, another
// of the top fifth with pPickTop, and otherwise probes the whole corpus.
const (
	pPickBest = 0.7
	pPickTop  = 0.9
)

// Options configure a campaign. Zero values select the defaults above; the
// zero Seed draws one from the clock.
type Options struct {
	MaxIters       int
	Seed           int64
	MaxSteps       int // per-run interpreter budget
	MaxCorpus      int
	CoverageSize   int // cells in the coverage maps
	ExploreAfter   int
	StaleLimit     int
	StagnationStop int
	// StopOnCrash ends the campaign at the first failing outcome instead
	// of continuing to look for distinct crashes.
	StopOnCrash bool
	// Literals seeds the mutation dictionary with constants mined from
	// the target's sources.
	Literals *Pool
}

func (o Options) withDefaults() Options {
	if o.MaxIters <= 0 {
		o.MaxIters = DefaultMaxIters
	}
	if o.Seed == 0 {
		o.Seed = time.Now().UnixNano()
	}
	if o.MaxCorpus <= 0 {
		o.MaxCorpus = DefaultMaxCorpus
	}
	if o.ExploreAfter <= 0 {
		o.ExploreAfter = DefaultExploreAfter
	}
	if o.StaleLimit <= 0 {
		o.StaleLimit = DefaultStaleLimit
	}
	if o.StagnationStop <= 0 {
		o.StagnationStop = DefaultStagnationStop
	}
	return o
}

// ---------------------------------------------------------------------------
// Results
// ---------------------------------------------------------------------------

// Crash is one deduplicated failing run.
type Crash struct {
	Outcome interp.Outcome
	// Inputs is the argument vector that failed. It is never mutated
	// after recording.
	Inputs []jvm.Value
	// Depth and Score are copied from the crashing testcase.
	Depth int
	Score int
	// Iteration is the run that found it, counting from 1.
	Iteration int
}

// Reason says why a campaign stopped.
type Reason string

const (
	ReasonMaxIters  Reason = "iteration budget spent"
	ReasonStagnated Reason = "coverage stagnated"
	ReasonStopped   Reason = "stop requested"
	ReasonCrashed   Reason = "crash found"
)

// Summary is the final account of a campaign.
type Summary struct {
	// Outcome is the first crash's outcome, or ok when nothing failed.
	Outcome interp.Outcome
	// Score is the global coverage score.
	Score int
	// Iterations counts interpreter runs, the seed run included.
	Iterations int
	Crashes    []Crash
	Reason     Reason
}

// crashKey identifies a crash by what failed and the path that got there.
// Distinct inputs reaching the same fault through the same locations are
// one crash.
type crashKey struct {
	outcome interp.Outcome
	cov     uint64
}

// ---------------------------------------------------------------------------
// The engine
// ---------------------------------------------------------------------------

// Fuzzer drives a coverage-guided search for failing inputs to one method.
// Not safe for concurrent use; parallel campaigns each get their own.
type Fuzzer struct {
	id     jvm.MethodID
	params []jvm.Type
	opts   Options

	interp *interp.Interpreter
	local  *coverage.Map // reset before every run
	global *coverage.Map // accumulated over the campaign
	mut    *mutator

	corpus  []*Testcase
	seen    mapset.Set[crashKey]
	crashes []Crash

	iters       int
	globalStale int
}

// New prepares a campaign against the method named by id. The method must
// exist in src and have a well-formed descriptor; every parameter type the
// suites use is generatable.
func New(src jvm.Source, id jvm.MethodID, opts Options) (*Fuzzer, error) {
	if _, err := src.Lookup(id); err != nil {
		return nil, err
	}
	params, _, err := jvm.ParseDescriptor(id.Descriptor)
	if err != nil {
		return nil, fmt.Errorf("fuzz %s: %w", id, err)
	}
	opts = opts.withDefaults()
	local := coverage.New(opts.CoverageSize)
	r := rand.New(rand.NewSource(opts.Seed))
	return &Fuzzer{
		id:     id,
		params: params,
		opts:   opts,
		interp: interp.New(src, interp.Options{MaxSteps: opts.MaxSteps, Feedback: local}),
		local:  local,
		global: coverage.New(opts.CoverageSize),
		mut:    newMutator(r, opts.Literals),
		seen:   mapset.NewThreadUnsafeSet[crashKey](),
	}, nil
}

// Seed returns the PRNG seed the campaign runs with, for reproduction.
func (f *Fuzzer) Seed() int64 { return f.opts.Seed }

// Run fuzzes until the iteration budget is spent, coverage stagnates, a
// crash is found under StopOnCrash, or ctx is done. Cancellation is polled
// once per iteration; an in-flight run always completes first. The error is
// non-nil only when a run could not be started at all, which means the
// method changed underneath the campaign.
func (f *Fuzzer) Run(ctx context.Context) (Summary, error) {
	log.Infof("fuzzing %s with seed %d", f.id, f.opts.Seed)
	if ctx.Err() != nil {
		return f.summary(ReasonStopped), nil
	}

	seed := &Testcase{Inputs: f.mut.generate(f.params)}
	_, outcome, err := f.runOnce(seed)
	if err != nil {
		return Summary{}, err
	}
	f.corpus = append(f.corpus, seed)
	if outcome != interp.OutcomeOK && f.opts.StopOnCrash {
		return f.summary(ReasonCrashed), nil
	}

	for f.iters < f.opts.MaxIters {
		select {
		case <-ctx.Done():
			return f.summary(ReasonStopped), nil
		default:
		}
		if f.globalStale > f.opts.StagnationStop {
			return f.summary(ReasonStagnated), nil
		}

		parent := f.pickParent()
		child := &Testcase{Inputs: parent.clone(), Depth: parent.Depth + 1}
		f.mut.mutate(child.Inputs)

		interesting, outcome, err := f.runOnce(child)
		if err != nil {
			return Summary{}, err
		}
		if interesting {
			f.corpus = append(f.corpus, child)
			parent.Stale = 0
			f.globalStale = 0
			f.prune()
		} else {
			parent.Stale++
			f.globalStale++
		}
		if outcome != interp.OutcomeOK && f.opts.StopOnCrash {
			return f.summary(ReasonCrashed), nil
		}
	}
	return f.summary(ReasonMaxIters), nil
}

// runOnce executes one input vector and folds the run into the campaign:
// the testcase's score, the mutation dictionary, the crash log and the
// global coverage map.
func (f *Fuzzer) runOnce(tc *Testcase) (interesting bool, outcome interp.Outcome, err error) {
	f.local.Reset()
	res, err := f.interp.Run(f.id, tc.Inputs)
	if err != nil {
		return false, 0, fmt.Errorf("fuzz %s: %w", f.id, err)
	}
	f.iters++
	tc.Score = f.local.Score()
	if res.Outcome != interp.OutcomeOK {
		f.recordCrash(tc, res.Outcome)
	}
	f.mut.refresh(f.local.CmpInts(), f.local.CmpStrs())
	return f.local.MergeInteresting(f.global), res.Outcome, nil
}

func (f *Fuzzer) recordCrash(tc *Testcase, outcome interp.Outcome) {
	key := crashKey{outcome: outcome, cov: f.local.Hash()}
	if !f.seen.Add(key) {
		return
	}
	f.crashes = append(f.crashes, Crash{
		Outcome:   outcome,
		Inputs:    tc.Inputs,
		Depth:     tc.Depth,
		Score:     tc.Score,
		Iteration: f.iters,
	})
	log.Infof("crash %d at iteration %d: %s on %s", len(f.crashes), f.iters, outcome, tc)
}

// pickParent chooses the next testcase to mutate. While coverage keeps
// growing it exploits the high scorers; once the campaign has been stale
// past ExploreAfter it explores the bottom of the corpus instead. The
// choice is re-evaluated every iteration, so finding something new flips
// the policy straight back.
func (f *Fuzzer) pickParent() *Testcase {
	slices.SortFunc(f.corpus, func(a, b *Testcase) int {
		return cmp.Compare(b.Score, a.Score)
	})
	n := len(f.corpus)
	top := n / 5
	if top < 1 {
		top = 1
	}

	if f.globalStale > f.opts.ExploreAfter {
		if n > top {
			return f.corpus[top+f.r().Intn(n-top)]
		}
		return f.corpus[f.r().Intn(n)]
	}
	switch p := f.r().Float64(); {
	case p < pPickBest:
		return f.corpus[0]
	case p < pPickTop:
		return f.corpus[f.r().Intn(top)]
	default:
		return f.corpus[f.r().Intn(n)]
	}
}

func (f *Fuzzer) r() *rand.Rand { return f.mut.r }

// prune drops testcases that have gone stale, then cuts the corpus back to
// MaxCorpus by score. It only runs right after an append, so the corpus
// never empties.
func (f *Fuzzer) prune() {
	kept := f.corpus[:0]
	for _, tc := range f.corpus {
		if tc.Stale <= f.opts.StaleLimit {
			kept = append(kept, tc)
		}
	}
	f.corpus = kept
	if len(f.corpus) > f.opts.MaxCorpus {
		slices.SortFunc(f.corpus, func(a, b *Testcase) int {
			return cmp.Compare(b.Score, a.Score)
		})
		f.corpus = f.corpus[:f.opts.MaxCorpus]
	}
}

func (f *Fuzzer) summary(reason Reason) Summary {
	outcome := interp.OutcomeOK
	if len(f.crashes) > 0 {
		outcome = f.crashes[0].Outcome
	}
	s := Summary{
		Outcome:    outcome,
		Score:      f.global.Score(),
		Iterations: f.iters,
		Crashes:    f.crashes,
		Reason:     reason,
	}
	log.Infof("finished after %d iterations (%s): %s, score %d, %d distinct crashes",
		s.Iterations, reason, s.Outcome, s.Score, len(s.Crashes))
	return s
}
