// fuzz - coverage-guided search for failing inputs to one suite method
//
// Runs a mutational fuzzing campaign against a single method and reports
// the first failing outcome found, or ok when the budget is spent without
// one. SIGINT stops the campaign cooperatively.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/Anygaardranloev/jpamb-group26/fuzz"
	"github.com/Anygaardranloev/jpamb-group26/jvm"
	"github.com/Anygaardranloev/jpamb-group26/manifest"
	"github.com/Anygaardranloev/jpamb-group26/report"
)

func main() {
	codebase := flag.String("codebase", "", "Suite root directory holding decompiled/ (defaults to the manifest's)")
	maxIters := flag.Int("max-iters", 0, "Iteration budget (0 takes the manifest's, then the built-in default)")
	maxSteps := flag.Int("max-steps", 0, "Step budget per run (0 takes the manifest's, then the built-in default)")
	seed := flag.Int64("seed", 0, "PRNG seed (0 draws one from the clock)")
	corpus := flag.Int("corpus", 0, "Corpus size cap")
	stopOnCrash := flag.Bool("stop-on-crash", false, "End the campaign at the first failing outcome")
	literals := flag.String("literals", "", "Literal analyzer JSON to seed the mutation dictionary")
	reportPath := flag.String("report", "", "Write a session report (.cbor for CBOR, anything else for JSON)")
	verbose := flag.Bool("v", false, "Verbose output")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: fuzz [options] <method-id>\n\n")
		fmt.Fprintf(os.Stderr, "Fuzzes one suite method until a failing input is found or a budget runs out.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  fuzz 'jpamb.cases.Simple.divideByN:(I)I'\n")
		fmt.Fprintf(os.Stderr, "  fuzz -seed 42 -stop-on-crash 'jpamb.cases.Tricky.collatz:(I)I'\n")
		fmt.Fprintf(os.Stderr, "  fuzz -literals stats/literals.json -report session.cbor 'jpamb.cases.Strings.guess:(Ljava/lang/String;)V'\n")
	}
	flag.Parse()

	verbosity := 0
	if *verbose {
		verbosity = 1
	}
	commonlog.Configure(verbosity, nil)

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}
	id, err := jvm.ParseMethodID(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	m, err := manifest.FindAndLoad(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: error loading jpamb.toml: %v\n", err)
	}

	root := *codebase
	cacheSize := 0
	litPath := *literals
	opts := fuzz.Options{
		MaxIters:    *maxIters,
		Seed:        *seed,
		MaxSteps:    *maxSteps,
		MaxCorpus:   *corpus,
		StopOnCrash: *stopOnCrash,
	}
	if m != nil {
		if root == "" {
			root = m.CodebasePath()
		}
		cacheSize = m.Suite.CacheSize
		if litPath == "" {
			litPath = m.LiteralsPath()
		}
		if opts.MaxIters == 0 {
			opts.MaxIters = m.Fuzz.MaxIters
		}
		if opts.Seed == 0 {
			opts.Seed = m.Fuzz.Seed
		}
		if opts.MaxSteps == 0 {
			opts.MaxSteps = m.Interp.MaxSteps
		}
		if opts.MaxCorpus == 0 {
			opts.MaxCorpus = m.Fuzz.MaxCorpus
		}
		opts.CoverageSize = m.Fuzz.CoverageSize
		opts.ExploreAfter = m.Fuzz.ExploreAfter
		opts.StaleLimit = m.Fuzz.StaleLimit
		opts.StagnationStop = m.Fuzz.StagnationStop
		opts.StopOnCrash = opts.StopOnCrash || m.Fuzz.StopOnCrash
	}
	if root == "" {
		root = "."
	}

	if litPath != "" {
		pool, err := fuzz.LoadLiterals(litPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		opts.Literals = pool
	}

	suite, err := jvm.OpenSuite(root, cacheSize)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	f, err := fuzz.New(suite, id, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	started := time.Now()
	sum, err := f.Run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	finished := time.Now()

	fmt.Printf("Fuzzing finished with result: %s, coverage score: %d\n", sum.Outcome, sum.Score)
	for _, c := range sum.Crashes {
		fmt.Printf("  %s on %s (depth %d, iteration %d)\n", c.Outcome, jvm.FormatInputs(c.Inputs), c.Depth, c.Iteration)
	}

	if *reportPath != "" {
		s := report.New(id, f.Seed(), started, finished, sum)
		if err := s.WriteFile(*reportPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if *verbose {
			fmt.Printf("Report written to %s\n", *reportPath)
		}
	}
}
