package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/quietriver/winnow/internal/app"
	"github.com/quietriver/winnow/internal/config"

	"github.com/spf13/cobra"
)

// buildConfig merges environment configuration with command flags; flags win.
func buildConfig(cmd *cobra.Command, args []string) (app.Config, error) {
	env, err := config.Load()
	if err != nil {
		return app.Config{}, err
	}

	dbPath, _ := cmd.Flags().GetString("db")
	if !cmd.Flags().Changed("db") {
		dbPath = env.DBPath
	}
	streamURL, _ := cmd.Flags().GetString("stream-url")
	if !cmd.Flags().Changed("stream-url") {
		streamURL = env.StreamURL
	}
	wordsFile, _ := cmd.Flags().GetString("words-file")
	if !cmd.Flags().Changed("words-file") {
		wordsFile = env.WordsFile
	}
	historyLimit, _ := cmd.Flags().GetInt("history-limit")
	if !cmd.Flags().Changed("history-limit") {
		historyLimit = env.HistoryLimit
	}
	noTermRemoving, _ := cmd.Flags().GetBool("no-term-removing")
	resolveURLs, _ := cmd.Flags().GetBool("resolve-urls")
	if !cmd.Flags().Changed("resolve-urls") {
		resolveURLs = env.ResolveURLs
	}
	quiet, _ := cmd.Flags().GetBool("quiet")
	debug, _ := cmd.Flags().GetBool("debug")

	// use positional arguments as sources, stdin by default
	sources := args
	if len(sources) == 0 {
		sources = []string{"-"}
	}

	return app.Config{
		Sources:      sources,
		DBPath:       dbPath,
		StreamURL:    streamURL,
		WordsFile:    wordsFile,
		HistoryLimit: historyLimit,
		MaxAge:       env.MaxAge,
		TermRemoving: env.TermRemoving && !noTermRemoving,
		ResolveURLs:  resolveURLs,
		Quiet:        quiet,
		Debug:        debug,
	}, nil
}

// setupLogger configures the default slog logger based on debug mode
func setupLogger(debug bool) {
	var level slog.Level
	if debug {
		level = slog.LevelDebug
	} else {
		level = slog.LevelError
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

var rootCmd = &cobra.Command{
	Use:   "winnow [sources...]",
	Short: "A quality scorer and near-duplicate detector for message streams",
	Long: `Winnow scores short messages for quality and flags near-duplicates by
comparing each message against its author's history. Sources are files of
newline-delimited JSON records, or standard input.

Examples:
  winnow tweets.ndjson
  cat tweets.ndjson | winnow --db history.db
  winnow listen --stream-url wss://example.com/stream`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := buildConfig(cmd, args)
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}
		setupLogger(cfg.Debug)

		ctx, stop := signalContext()
		defer stop()

		if err := app.Run(ctx, cfg, os.Stdout); err != nil {
			return fmt.Errorf("winnow failed: %w", err)
		}
		return nil
	},
}

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Score messages from a live websocket stream",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := buildConfig(cmd, args)
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}
		setupLogger(cfg.Debug)

		ctx, stop := signalContext()
		defer stop()

		if err := app.RunListen(ctx, cfg); err != nil {
			return fmt.Errorf("listen failed: %w", err)
		}
		return nil
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search stored messages by relevance",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := buildConfig(cmd, nil)
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}
		setupLogger(cfg.Debug)

		limit, _ := cmd.Flags().GetInt("limit")
		includeSpam, _ := cmd.Flags().GetBool("include-spam")

		ctx, stop := signalContext()
		defer stop()

		query := args[0]
		for _, extra := range args[1:] {
			query += " " + extra
		}
		if err := app.RunSearch(ctx, cfg, query, limit, includeSpam, os.Stdout); err != nil {
			return fmt.Errorf("search failed: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "SQLite database for per-author history (empty: stateless batch scoring)")
	rootCmd.PersistentFlags().String("words-file", "", "YAML file with extra noise words and whitelisted phrases")
	rootCmd.PersistentFlags().Int("history-limit", 0, "Max prior messages per author loaded for scoring (0: unlimited)")
	rootCmd.PersistentFlags().Bool("no-term-removing", false, "Keep terms not shared with any other message of the author")
	rootCmd.PersistentFlags().Bool("resolve-urls", false, "Fetch linked pages to resolve titles before scoring")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "Suppress progress output")
	rootCmd.PersistentFlags().BoolP("debug", "D", false, "Enable debug logging")
	_ = rootCmd.PersistentFlags().MarkHidden("debug")

	listenCmd.Flags().String("stream-url", "", "Websocket stream endpoint")

	searchCmd.Flags().Int("limit", 10, "Max results to return")
	searchCmd.Flags().Bool("include-spam", false, "Include spam-band messages in results")

	rootCmd.AddCommand(listenCmd)
	rootCmd.AddCommand(searchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
