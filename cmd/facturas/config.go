package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/facturas/internal/batch"
	"github.com/zombor/facturas/internal/scanning"
)

const (
	providerOpenAI = "openai"
	providerGemini = "gemini"
)

// config holds everything main needs to wire the application
type config struct {
	APIKey    string
	Provider  string
	Model     string
	BaseURL   string
	OutputDir string
	DPI       float64
	Timeout   time.Duration
	Pause     time.Duration
	DBPath    string
	Storage   string
	Serve     bool
	Port      int
	AuthUser  string
	AuthPass  string
	History   bool
	LogLevel  string
	LogFormat string
	EnvFile   string
	Inputs    []string
}

// errHelp is returned when the caller asked for usage
var errHelp = errors.New("help requested")

func parseConfig(args []string) (*config, error) {
	fs := ff.NewFlagSet("facturas")
	var (
		apiKey    = fs.StringLong("api-key", "", "API key (or set OPENAI_API_KEY / GEMINI_API_KEY)")
		provider  = fs.StringLong("provider", providerOpenAI, "Vision provider: 'openai' or 'gemini'")
		model     = fs.StringLong("model", "", "Model name (default gpt-4o for openai, gemini-2.5-pro for gemini)")
		baseURL   = fs.StringLong("base-url", "", "OpenAI compatible API base URL")
		outputDir = fs.StringLong("output-dir", ".", "Directory for the generated spreadsheets")
		dpi       = fs.Float64Long("dpi", scanning.DefaultDPI, "Resolution used to render the first page")
		timeout   = fs.DurationLong("timeout", 2*time.Minute, "Timeout for each extraction request")
		pause     = fs.DurationLong("pause", batch.DefaultPause, "Pause between files")
		dbPath    = fs.StringLong("db", "facturas.db", "Run history database file path")
		storage   = fs.StringLong("storage", "./uploads", "Staging directory for uploaded files")
		serve     = fs.BoolLong("serve", "Serve the HTTP API instead of processing files")
		port      = fs.IntLong("port", 8080, "HTTP server port")
		authUser  = fs.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass  = fs.StringLong("auth-pass", "", "Basic auth password (optional)")
		history   = fs.BoolLong("history", "List previous runs and exit")
		logLevel  = fs.StringLong("log-level", "info", "Log level: debug, info, warn, error")
		logFormat = fs.StringLong("log-format", "text", "Log format: text or json")
		envFile   = fs.StringLong("env-file", ".env", "File with environment variables to load")
		_         = fs.StringLong("config", "", "Config file with one flag per line")
		_         = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, args,
		ff.WithEnvVarPrefix("FACTURAS"),
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(ff.PlainParser),
	); err != nil {
		if errors.Is(err, ff.ErrHelp) {
			return nil, fmt.Errorf("%w\n%s", errHelp, ffhelp.Flags(fs))
		}
		return nil, fmt.Errorf("%w\n%s", err, ffhelp.Flags(fs))
	}

	cfg := &config{
		APIKey:    *apiKey,
		Provider:  strings.ToLower(strings.TrimSpace(*provider)),
		Model:     *model,
		BaseURL:   *baseURL,
		OutputDir: *outputDir,
		DPI:       *dpi,
		Timeout:   *timeout,
		Pause:     *pause,
		DBPath:    *dbPath,
		Storage:   *storage,
		Serve:     *serve,
		Port:      *port,
		AuthUser:  *authUser,
		AuthPass:  *authPass,
		History:   *history,
		LogLevel:  *logLevel,
		LogFormat: *logFormat,
		EnvFile:   *envFile,
		Inputs:    fs.GetArgs(),
	}

	switch cfg.Provider {
	case providerOpenAI:
		if cfg.APIKey == "" {
			cfg.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	case providerGemini:
		if cfg.APIKey == "" {
			cfg.APIKey = os.Getenv("GEMINI_API_KEY")
		}
	default:
		return nil, fmt.Errorf("invalid provider %q: valid values are openai or gemini", cfg.Provider)
	}
	if cfg.DPI <= 0 {
		return nil, fmt.Errorf("invalid dpi %v: must be positive", cfg.DPI)
	}

	return cfg, nil
}

// loadEnvFile loads the env file named on the command line, if any, before
// flags are parsed. A missing default file is not an error.
func loadEnvFile(args []string) error {
	path, explicit := ".env", false
	for i, arg := range args {
		switch {
		case arg == "--env-file" && i+1 < len(args):
			path, explicit = args[i+1], true
		case strings.HasPrefix(arg, "--env-file="):
			path, explicit = strings.TrimPrefix(arg, "--env-file="), true
		}
	}
	if v := os.Getenv("FACTURAS_ENV_FILE"); v != "" && !explicit {
		path, explicit = v, true
	}

	if err := godotenv.Load(path); err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading env file %s: %w", path, err)
	}
	return nil
}
