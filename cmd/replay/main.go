package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/honeypot/internal/anthropic"
	"github.com/MikeSquared-Agency/honeypot/internal/callback"
	"github.com/MikeSquared-Agency/honeypot/internal/classifier"
	"github.com/MikeSquared-Agency/honeypot/internal/config"
	"github.com/MikeSquared-Agency/honeypot/internal/phrases"
	"github.com/MikeSquared-Agency/honeypot/internal/processor"
	"github.com/MikeSquared-Agency/honeypot/internal/replay"
	"github.com/MikeSquared-Agency/honeypot/internal/responder"
	"github.com/MikeSquared-Agency/honeypot/internal/state"
	"github.com/MikeSquared-Agency/honeypot/internal/store"
)

var (
	replayCfg  replay.Config
	storeKind  string
	sqlitePath string
	useLLM     bool
	seed       uint64
)

var rootCmd = &cobra.Command{
	Use:   "replay [dir]",
	Short: "Replay recorded scam transcripts through the reply pipeline",
	Long: `Runs every counterpart message of each .json or .jsonl transcript through
the full turn pipeline and reports, per transcript, fact values repeated in
full and technical excuses given more than once. Progress is saved so an
interrupted run resumes where it stopped.`,
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
	RunE:         runReplay,
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&replayCfg.File, "file", "", "replay a single transcript")
	f.StringVar(&replayCfg.StatePath, "state", replay.DefaultStatePath, "resumable state file")
	f.IntVar(&replayCfg.Concurrency, "concurrency", replay.DefaultConcurrency, "transcripts replayed at once")
	f.BoolVar(&replayCfg.Fresh, "fresh", false, "replay transcripts already recorded in the state file")
	f.StringVar(&storeKind, "store", store.DriverMemory, "session store: memory or sqlite")
	f.StringVar(&sqlitePath, "sqlite-path", "data/replay.db", "SQLite database for --store=sqlite")
	f.BoolVar(&useLLM, "llm", false, "generate candidates with the model (needs ANTHROPIC_API_KEY)")
	f.Uint64Var(&seed, "seed", 1, "random seed; 0 for unpredictable runs")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runReplay(cmd *cobra.Command, args []string) error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}
	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	if len(args) == 1 {
		replayCfg.Dir = args[0]
	}
	if replayCfg.Dir == "" && replayCfg.File == "" {
		return fmt.Errorf("a transcript directory or --file is required")
	}
	if storeKind != store.DriverMemory && storeKind != store.DriverSQLite {
		return fmt.Errorf("unsupported store %q", storeKind)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := store.Open(ctx, storeKind, "", sqlitePath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	book, err := phrases.Load(cfg.PhrasesFile)
	if err != nil {
		return err
	}

	opts := processor.Options{
		Registry: state.NewRegistry(state.Options{Similarity: cfg.Similarity(), Tactics: book.TacticPools()}, seed),
		Store:    db,
		Book:     book,
		Policy:   callback.Policy{MinTurns: cfg.MinEngagementTurns},
	}
	var llm *classifier.LLM
	if useLLM {
		if cfg.AnthropicAPIKey == "" {
			return fmt.Errorf("--llm needs ANTHROPIC_API_KEY")
		}
		client := anthropic.NewClient(cfg.AnthropicAPIKey, cfg.AnthropicModel)
		opts.Generator = responder.New(client, book, cfg.LLMTimeout, slog.Default())
		if cfg.LLMClassifier {
			llm = classifier.NewLLM(client)
		}
	}
	opts.Classifier = classifier.NewHybrid(llm, classifier.NewRules(classifier.DefaultThreshold), slog.Default())

	proc := processor.New(opts, slog.Default())
	runner := replay.NewRunner(replayCfg, proc, slog.Default())

	report, err := runner.Run(ctx)
	if report != nil {
		path := ""
		if st, err := replay.LoadState(replayCfg.StatePath); err == nil {
			path = st.Path()
		}
		report.WriteSummary(cmd.OutOrStdout(), path)
	}
	return err
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
