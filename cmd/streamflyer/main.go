package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"

	"gopkg.in/yaml.v3"

	"github.com/amitshokeen/streamflyer/pkg/engine"
	"github.com/amitshokeen/streamflyer/pkg/rules"
	"github.com/amitshokeen/streamflyer/pkg/stream"
)

const (
	version = "0.1.0"
	usage   = `streamflyer - A streaming regex rewriter

Usage:
  streamflyer [options]

Options:
  -h, --help            Show this help message
  -v, --version         Show version information
  --input <file>        Input file (defaults to stdin)
  --output <file>       Output file (defaults to stdout)
  --rules <file>        Rules file, YAML or .tok (optional)
  --make-rules          Print the default rules to stdout
  --dsl                 With --make-rules, print the rules as .tok instead of YAML
  --glob <pattern>      Transform every file matching pattern (supports **)
  --outdir <dir>        Output directory for --glob
  --jobs <n>            Files transformed in parallel with --glob (default: CPUs)
  --chunk-size <n>      Bytes read at a time (default 4096)
  --log-level <level>   debug, info, warn or error (default warn)
  --exit0               Exit with code 0 even on errors (suppress stderr)

Examples:
  streamflyer                                        # Read from stdin, write to stdout
  streamflyer --input in.txt --output out.txt        # Read from file, write to file
  streamflyer --rules numbers.yaml --input in.txt    # Use custom rules
  streamflyer --rules numbers.tok --input in.txt     # Use rules written in the token DSL
  streamflyer --glob 'logs/**/*.log' --outdir clean  # Transform a tree of files
  streamflyer --make-rules                           # Generate default rules configuration

Without --rules, line endings are normalised to "\n".
`
)

func main() {
	var showHelp, showVersion, exit0, makeRules, dsl bool
	var inputFile, outputFile, rulesFile, globPattern, outDir, logLevel string
	var jobs, chunkSize int

	flag.BoolVar(&showHelp, "h", false, "Show help")
	flag.BoolVar(&showHelp, "help", false, "Show help")
	flag.BoolVar(&showVersion, "v", false, "Show version")
	flag.BoolVar(&showVersion, "version", false, "Show version")
	flag.BoolVar(&exit0, "exit0", false, "Exit with code 0 even on errors")
	flag.BoolVar(&makeRules, "make-rules", false, "Generate default rules")
	flag.BoolVar(&dsl, "dsl", false, "Generate rules in the token DSL")
	flag.StringVar(&inputFile, "input", "", "Input file (defaults to stdin)")
	flag.StringVar(&outputFile, "output", "", "Output file (defaults to stdout)")
	flag.StringVar(&rulesFile, "rules", "", "Rules file (optional)")
	flag.StringVar(&globPattern, "glob", "", "Input glob pattern")
	flag.StringVar(&outDir, "outdir", "", "Output directory for --glob")
	flag.StringVar(&logLevel, "log-level", "warn", "Log level")
	flag.IntVar(&jobs, "jobs", runtime.NumCPU(), "Parallel jobs for --glob")
	flag.IntVar(&chunkSize, "chunk-size", stream.DefaultChunkSize, "Read size in bytes")

	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
	}

	flag.Parse()

	if showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if showVersion {
		fmt.Printf("streamflyer version %s\n", version)
		os.Exit(0)
	}

	if makeRules {
		err := generateDefaultConfig(os.Stdout, dsl)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error generating default rules: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	// Reject any positional arguments
	if len(flag.Args()) > 0 {
		fmt.Fprintf(os.Stderr, "Error: Unexpected positional arguments. Use --input and --output flags instead.\n\n")
		flag.Usage()
		os.Exit(1)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid --log-level '%s': %v\n", logLevel, err)
		os.Exit(1)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	// Load rules if specified
	ruleSet := rules.DefaultRules()
	if rulesFile != "" {
		rf, err := rules.LoadRulesFile(rulesFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading rules file '%s': %v\n", rulesFile, err)
			os.Exit(1)
		}

		ruleSet, err = rules.ApplyRulesToDefaults(rf)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error applying rules: %v\n", err)
			os.Exit(1)
		}
	}

	matcher, err := ruleSet.NewMatcher()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error applying rules: %v\n", err)
		os.Exit(1)
	}
	logger.Debug("rules loaded", "tokens", len(matcher.Tokens()),
		"mode", matcher.Options().Mode, "tie_break", matcher.Options().TieBreak)
	engineOpts := ruleSet.EngineOptions(logger)
	streamOpts := stream.Options{ChunkSize: chunkSize, Logger: logger}

	// An interrupt ends the input; what was read so far is still written.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if globPattern != "" {
		batch, err := planBatch(globPattern, outDir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		err = runBatch(ctx, batch, matcher, engineOpts, streamOpts, jobs, logger)
		stop()
		exitOnTransformError(err, exit0)
		return
	}

	// Prepare input
	var input io.Reader = os.Stdin
	var inputCloser io.Closer
	if inputFile != "" {
		file, err := os.Open(inputFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading file '%s': %v\n", inputFile, err)
			os.Exit(1)
		}
		input = file
		inputCloser = file
	}

	// Prepare output destination
	var output io.Writer = os.Stdout
	var outputCloser io.Closer
	if outputFile != "" {
		file, err := os.Create(outputFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating output file '%s': %v\n", outputFile, err)
			closeInput(inputCloser)
			os.Exit(1)
		}
		output = file
		outputCloser = file
	}

	// Finalized output is written even if the transformation fails
	_, transformErr := stream.Transform(ctx, output, input, engine.New(matcher, engineOpts), streamOpts)
	closeInput(inputCloser)
	stop()

	// Close output file if we opened one
	if outputCloser != nil {
		if err := outputCloser.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Error closing output file '%s': %v\n", outputFile, err)
			os.Exit(1)
		}
	}

	exitOnTransformError(transformErr, exit0)
}

// closeInput closes the input file, if one was opened. Read-side close
// errors do not affect the result.
func closeInput(c io.Closer) {
	if c != nil {
		_ = c.Close()
	}
}

// exitOnTransformError reports err and exits unless err is nil.
func exitOnTransformError(err error, exit0 bool) {
	if err == nil {
		return
	}
	if exit0 {
		// With --exit0, exit normally despite error
		os.Exit(0)
	}
	fmt.Fprintf(os.Stderr, "Transform error: %v\n", err)
	os.Exit(1)
}

// generateDefaultConfig writes the default rules as YAML, or as .tok if dsl is set.
func generateDefaultConfig(w io.Writer, dsl bool) error {
	rulesFile := rules.DefaultRulesFile()

	if dsl {
		return rules.WriteDSL(w, rulesFile)
	}

	yamlBytes, err := yaml.Marshal(rulesFile)
	if err != nil {
		return fmt.Errorf("failed to marshal rules to YAML: %w", err)
	}

	_, err = w.Write(yamlBytes)
	return err
}
