package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/chatdj/internal/locale"
	"github.com/desertthunder/chatdj/internal/repositories"
	"github.com/desertthunder/chatdj/internal/shared"
	"github.com/desertthunder/chatdj/internal/ui"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	logger     *log.Logger
	output     io.Writer
	notifier   ui.Notifier
	translator *locale.Catalog
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Logger     *log.Logger
	Output     io.Writer
	Notifier   ui.Notifier
	Translator *locale.Catalog
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Notifier == nil {
		opts.Notifier = ui.NewConsoleNotifier(opts.Output, nil)
	}
	if opts.Translator == nil {
		opts.Translator = locale.NewCatalog()
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		logger:     opts.Logger,
		output:     opts.Output,
		notifier:   opts.Notifier,
		translator: opts.Translator,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		runCommand, authCommand, historyCommand, blacklistCommand, configCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// setupLocale selects the configured language, loading its catalog file when one is set.
func (r *Runner) setupLocale() {
	lc := r.config.Locale
	lang := lc.Language
	if lang == "" {
		lang = "en"
	}
	if lc.CatalogPath != "" {
		if err := r.translator.Load(lang, lc.CatalogPath); err != nil {
			r.logger.Warn("failed to load message catalog, using English", "path", lc.CatalogPath, "error", err)
			return
		}
	}
	if !r.translator.SetLanguage(lang) {
		r.logger.Warn("unknown language, using English", "language", lang)
	}
}

func (r *Runner) openBlacklist() (*repositories.BlacklistStore, error) {
	store, err := repositories.OpenBlacklistStore(repositories.DefaultBlacklistPaths(r.config.Storage))
	if err != nil {
		return nil, fmt.Errorf("failed to open blacklists: %w", err)
	}
	return store, nil
}

func (r *Runner) openHistory() (*repositories.PlaybackHistoryLog, error) {
	history, err := repositories.OpenPlaybackHistoryLog(r.config.Storage.Path(shared.HistoryFile))
	if err != nil {
		return nil, fmt.Errorf("failed to open playback history: %w", err)
	}
	return history, nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
