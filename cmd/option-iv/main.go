package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/contactkeval/option-iv/internal/config"
	"github.com/contactkeval/option-iv/internal/data"
	"github.com/contactkeval/option-iv/internal/engine"
	"github.com/contactkeval/option-iv/internal/logger"
	"github.com/contactkeval/option-iv/internal/pricing"
	"github.com/contactkeval/option-iv/internal/report"
)

const usage = `usage: option-iv <command> [flags]

commands:
  price   solve the implied volatility of a single quote
  ingest  download option chains from Massive and clean them into CSV
  solve   solve every quote of the configured underlyings and write reports`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var err error
	switch os.Args[1] {
	case "price":
		err = runPrice(os.Args[2:])
	case "ingest":
		err = runIngest(ctx, os.Args[2:])
	case "solve":
		err = runSolve(ctx, os.Args[2:])
	case "-h", "-help", "--help", "help":
		fmt.Println(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s\n", os.Args[1], usage)
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("%s failed: %v", os.Args[1], err)
	}
}

// loadConfig loads the config file and applies the -v override on top.
func loadConfig(path, verbosity string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	logger.SetVerbosity(cfg.Logging.Verbosity())
	if verbosity != "" {
		lvl, err := logger.ParseLevel(verbosity)
		if err != nil {
			return nil, err
		}
		logger.SetVerbosity(lvl)
	}
	return cfg, nil
}

func runPrice(args []string) error {
	fs := flag.NewFlagSet("price", flag.ExitOnError)
	configPath := fs.String("config", "", "path to YAML config")
	verbosity := fs.String("v", "", "log level: error, info, debug, trace")
	optType := fs.String("type", "call", "option type: call or put")
	spot := fs.Float64("S", 100, "underlying price")
	strike := fs.Float64("K", 100, "strike")
	expiry := fs.Float64("t", 1, "time to expiry in years")
	rate := fs.Float64("r", data.DefaultRate, "risk-free rate")
	price := fs.Float64("price", 0, "observed option price")
	method := fs.String("method", "", "bisection or newton (default from config)")
	_ = fs.Parse(args)

	cfg, err := loadConfig(*configPath, *verbosity)
	if err != nil {
		return err
	}
	if *method != "" {
		cfg.Solver.Method = *method
	}
	m, err := pricing.ParseMethod(cfg.Solver.Method)
	if err != nil {
		return err
	}
	typ, err := pricing.ParseOptionType(*optType)
	if err != nil {
		return err
	}

	q := pricing.MarketQuote{Type: typ, Spot: *spot, Strike: *strike, Expiry: *expiry, Rate: *rate, Price: *price}
	res, err := q.ImpliedVol(m, cfg.Solver.IVOptions()...)
	if err != nil {
		return err
	}
	if !res.OK() {
		return fmt.Errorf("%s after %d iterations: %w", res.Status, res.Iterations, res.Err())
	}

	g := q.Greeks(res.Root)
	fmt.Printf("implied vol  %.6f (%s, %d iterations)\n", res.Root, m, res.Iterations)
	fmt.Printf("model price  %.6f\n", g.Price)
	fmt.Printf("delta        %.6f\n", g.Delta)
	fmt.Printf("gamma        %.6f\n", g.Gamma)
	fmt.Printf("vega         %.6f\n", g.Vega)
	return nil
}

func runIngest(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	configPath := fs.String("config", "", "path to YAML config")
	verbosity := fs.String("v", "", "log level: error, info, debug, trace")
	underlyings := fs.String("underlyings", "", "comma separated tickers (default from config)")
	skipClean := fs.Bool("raw-only", false, "write raw files without cleaning them")
	_ = fs.Parse(args)

	cfg, err := loadConfig(*configPath, *verbosity)
	if err != nil {
		return err
	}
	if cfg.Data.APIKey == "" {
		return fmt.Errorf("ingest needs a Massive API key (OPTIV_DATA_API_KEY or MASSIVE_API_KEY)")
	}
	tickers := cfg.Data.Underlyings
	if *underlyings != "" {
		tickers = strings.Split(*underlyings, ",")
	}

	src := data.NewMassiveDataProvider(cfg.Data.APIKey, cfg.Data.MassiveOptions())
	stats, err := data.Ingest(ctx, src, tickers, cfg.Data.RawDir, time.Now())
	if err != nil {
		return err
	}
	log.Printf("[info] wrote %d quotes in %d files to %s", stats.Quotes, stats.QuoteFiles, cfg.Data.RawDir)
	if *skipClean {
		return nil
	}

	cs, err := data.CleanRaw(cfg.Data.RawDir, cfg.Data.Dir, cfg.Data.Rate)
	if err != nil {
		return err
	}
	log.Printf("[done] kept %d quotes (%d dropped) and %d spots in %s", cs.Kept, cs.Dropped, cs.Spots, cfg.Data.Dir)
	return nil
}

func newSource(cfg *config.Config) data.Source {
	switch cfg.Data.Source {
	case "massive":
		logger.Infof("massive provider enabled")
		return data.NewMassiveDataProvider(cfg.Data.APIKey, cfg.Data.MassiveOptions())
	case "synthetic":
		logger.Infof("synthetic provider enabled")
		opts := data.DefaultSyntheticOptions()
		opts.Rate = cfg.Data.Rate
		if cfg.Data.Months > 0 {
			opts.Months = cfg.Data.Months
		}
		return data.NewSyntheticProvider(opts)
	default:
		logger.Infof("csv provider enabled (%s)", cfg.Data.Dir)
		return data.NewLocalCSVSource(cfg.Data.Dir, cfg.Data.Rate)
	}
}

func runSolve(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("solve", flag.ExitOnError)
	configPath := fs.String("config", "", "path to YAML config")
	verbosity := fs.String("v", "", "log level: error, info, debug, trace")
	source := fs.String("source", "", "csv, massive or synthetic (default from config)")
	method := fs.String("method", "", "bisection or newton (default from config)")
	underlyings := fs.String("underlyings", "", "comma separated tickers (default from config)")
	outDir := fs.String("out", "", "report directory (default from config)")
	quiet := fs.Bool("quiet", false, "hide the progress bar")
	_ = fs.Parse(args)

	cfg, err := loadConfig(*configPath, *verbosity)
	if err != nil {
		return err
	}
	if *source != "" {
		cfg.Data.Source = *source
	}
	if *method != "" {
		cfg.Solver.Method = *method
	}
	if *underlyings != "" {
		cfg.Data.Underlyings = strings.Split(*underlyings, ",")
	}
	if *outDir != "" {
		cfg.Report.Dir = *outDir
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	eng := engine.NewEngine(cfg, newSource(cfg))
	if !*quiet {
		eng.Progress = os.Stderr
	}

	if err := os.MkdirAll(cfg.Report.Dir, 0755); err != nil {
		return fmt.Errorf("create report dir %s: %w", cfg.Report.Dir, err)
	}

	start := time.Now()
	var total, solved int
	for _, u := range cfg.Data.Underlyings {
		res, err := eng.Run(ctx, u)
		if err != nil {
			return err
		}
		if err := report.Write(res, cfg.Report.Dir, cfg.Report.Formats); err != nil {
			return fmt.Errorf("write %s reports: %w", u, err)
		}
		total += len(res.Records)
		solved += res.Solved
	}
	log.Printf("[done] finished in %v, solved %d of %d quotes, reports in %s", time.Since(start), solved, total, cfg.Report.Dir)
	return nil
}
