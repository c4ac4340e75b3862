// interp - run one suite method on a fixed input vector
//
// Loads the method from a decompiled suite, interprets it under a step
// budget and prints the outcome label: ok, divide by zero, null pointer,
// out of bounds, assertion error, or * when the budget runs out.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/Anygaardranloev/jpamb-group26/interp"
	"github.com/Anygaardranloev/jpamb-group26/jvm"
	"github.com/Anygaardranloev/jpamb-group26/manifest"
)

func main() {
	codebase := flag.String("codebase", "", "Suite root directory holding decompiled/ (defaults to the manifest's)")
	maxSteps := flag.Int("max-steps", 0, "Step budget per run (0 takes the manifest's, then the built-in default)")
	trace := flag.Bool("trace", false, "Log every executed instruction")
	verbose := flag.Bool("v", false, "Verbose output")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: interp [options] <method-id> [inputs]\n\n")
		fmt.Fprintf(os.Stderr, "Runs one suite method on one input vector and prints the outcome label.\n")
		fmt.Fprintf(os.Stderr, "The inputs default to the empty vector ().\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  interp 'jpamb.cases.Simple.divideByZero:()I'\n")
		fmt.Fprintf(os.Stderr, "  interp 'jpamb.cases.Arrays.first:([I)I' '([I:1,2,3])'\n")
		fmt.Fprintf(os.Stderr, "  interp -trace -max-steps 50 'jpamb.cases.Loops.forever:()V'\n")
	}
	flag.Parse()

	verbosity := 0
	if *verbose {
		verbosity = 1
	}
	if *trace {
		verbosity = 2
	}
	commonlog.Configure(verbosity, nil)

	if flag.NArg() < 1 || flag.NArg() > 2 {
		flag.Usage()
		os.Exit(1)
	}
	id, err := jvm.ParseMethodID(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	inputText := "()"
	if flag.NArg() == 2 {
		inputText = flag.Arg(1)
	}
	args, err := jvm.ParseInputs(inputText)
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
	steps := *maxSteps
	traceOn := *trace
	if m != nil {
		if root == "" {
			root = m.CodebasePath()
		}
		cacheSize = m.Suite.CacheSize
		if steps == 0 {
			steps = m.Interp.MaxSteps
		}
		traceOn = traceOn || m.Interp.Trace
	}
	if root == "" {
		root = "."
	}

	suite, err := jvm.OpenSuite(root, cacheSize)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	in := interp.New(suite, interp.Options{MaxSteps: steps, Trace: traceOn})
	res, err := in.Run(id, args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *verbose {
		fmt.Printf("%s on %s: %s after %d steps\n", id, jvm.FormatInputs(args), res.Outcome, res.Steps)
		if res.HasReturn {
			fmt.Printf("returned %s\n", res.Returned)
		}
		return
	}
	fmt.Println(res.Outcome)
}
