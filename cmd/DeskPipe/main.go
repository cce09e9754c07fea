package main

import (
	"flag"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BTreeMap/DeskPipe/internal/api"
	"github.com/BTreeMap/DeskPipe/internal/content"
	"github.com/BTreeMap/DeskPipe/internal/genai"
	"github.com/BTreeMap/DeskPipe/internal/lockfile"
	"github.com/BTreeMap/DeskPipe/internal/notify"
	"github.com/BTreeMap/DeskPipe/internal/store"
	"github.com/BTreeMap/DeskPipe/internal/util"
	"github.com/joho/godotenv"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for DeskPipe state data
	DefaultStateDir = "/var/lib/deskpipe"
	// DefaultProfileDBFileName is the default SQLite database filename for user profiles
	DefaultProfileDBFileName = "profiles.db"
	// DefaultContentDBFileName is the default SQLite database filename for knowledge articles
	DefaultContentDBFileName = "content.db"
)

func main() {
	// Initialize structured logger
	initializeLogger()

	// Load environment configuration
	config := loadEnvironmentConfig()

	// Parse command line flags
	flags := parseCommandLineFlags(config)

	// Ensure required directories exist
	if err := ensureDirectoriesExist(flags); err != nil {
		slog.Error("Failed to create required directories", "error", err)
		os.Exit(1)
	}

	// Hold the state directory exclusively for the lifetime of this process
	lock, err := lockfile.AcquireLock(*flags.stateDir)
	if err != nil {
		slog.Error("Failed to lock state directory", "error", err)
		os.Exit(1)
	}
	defer lock.Release()

	// Build collaborators
	profiles, err := buildProfileStore(flags)
	if err != nil {
		slog.Error("Failed to open profile store", "error", err)
		os.Exit(1)
	}
	articles, err := buildContentStore(flags)
	if err != nil {
		slog.Error("Failed to open content store", "error", err)
		os.Exit(1)
	}
	notifier := buildNotifier()
	suggester := buildSuggester(flags)

	apiOpts := buildAPIOptions(flags, profiles, articles, notifier, suggester)

	// Start the service
	slog.Info("Bootstrapping DeskPipe with configured modules")
	slog.Debug("Final configuration", "state_dir", *flags.stateDir, "dsn_set", *flags.dbDSN != "", "api_addr", *flags.apiAddr)
	if err := api.NewServer(apiOpts...).Run(); err != nil {
		slog.Error("DeskPipe failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("DeskPipe exited successfully")
}

// Config holds environment configuration
type Config struct {
	DatabaseDSN    string
	ContentDSN     string
	StateDir       string
	OpenAIKey      string
	APIAddr        string
	TimeoutMinutes string
}

// Flags holds command line flag values
type Flags struct {
	stateDir       *string
	dbDSN          *string
	contentDSN     *string
	openaiKey      *string
	apiAddr        *string
	timeoutMinutes *string
}

// initializeLogger sets up structured logging. Debug level is on by default
// and can be disabled with DESKPIPE_DEBUG=false.
func initializeLogger() {
	level := slog.LevelInfo
	if util.ParseBoolEnv("DESKPIPE_DEBUG", true) {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		DatabaseDSN:    os.Getenv("DATABASE_DSN"),
		ContentDSN:     os.Getenv("CONTENT_DB_DSN"),
		StateDir:       os.Getenv("DESKPIPE_STATE_DIR"),
		OpenAIKey:      os.Getenv("OPENAI_API_KEY"),
		APIAddr:        os.Getenv("API_ADDR"),
		TimeoutMinutes: os.Getenv("SESSION_TIMEOUT_MINUTES"),
	}

	// Legacy DATABASE_URL support when DATABASE_DSN is not set
	if config.DatabaseDSN == "" {
		config.DatabaseDSN = os.Getenv("DATABASE_URL")
		if config.DatabaseDSN != "" {
			slog.Debug("Using DATABASE_URL as DATABASE_DSN", "dsn_set", true)
		}
	}

	// Set default state directory if not specified
	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("No DESKPIPE_STATE_DIR set, using default", "default_state_dir", config.StateDir)
	} else {
		slog.Debug("DESKPIPE_STATE_DIR found in environment", "state_dir", config.StateDir)
	}

	// If no database DSN is provided, default to SQLite in the state directory
	if config.DatabaseDSN == "" {
		config.DatabaseDSN = filepath.Join(config.StateDir, DefaultProfileDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", config.DatabaseDSN)
	}
	if config.ContentDSN == "" {
		config.ContentDSN = filepath.Join(config.StateDir, DefaultContentDBFileName)
		slog.Debug("No content DSN provided, defaulting to SQLite", "sqlite_path", config.ContentDSN)
	}

	slog.Debug("environment variables loaded",
		"DATABASE_DSN_SET", config.DatabaseDSN != "",
		"CONTENT_DB_DSN_SET", config.ContentDSN != "",
		"DESKPIPE_STATE_DIR", config.StateDir,
		"OPENAI_API_KEY_SET", config.OpenAIKey != "",
		"API_ADDR", config.APIAddr,
		"SESSION_TIMEOUT_MINUTES", config.TimeoutMinutes)

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		stateDir:       flag.String("state-dir", config.StateDir, "state directory for DeskPipe data (overrides $DESKPIPE_STATE_DIR)"),
		dbDSN:          flag.String("db-dsn", config.DatabaseDSN, "database DSN for the user-profile store (overrides $DATABASE_DSN or $DATABASE_URL)"),
		contentDSN:     flag.String("content-dsn", config.ContentDSN, "SQLite DSN for the knowledge-article store (overrides $CONTENT_DB_DSN)"),
		openaiKey:      flag.String("openai-api-key", config.OpenAIKey, "OpenAI API key for query suggestions (overrides $OPENAI_API_KEY)"),
		apiAddr:        flag.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
		timeoutMinutes: flag.String("session-timeout", config.TimeoutMinutes, "idle session timeout in minutes (overrides $SESSION_TIMEOUT_MINUTES)"),
	}

	flag.Parse()

	slog.Debug("flags parsed",
		"stateDir", *flags.stateDir,
		"dbDSN_set", *flags.dbDSN != "",
		"contentDSN_set", *flags.contentDSN != "",
		"openaiKeySet", *flags.openaiKey != "",
		"apiAddr", *flags.apiAddr,
		"timeoutMinutes", *flags.timeoutMinutes)

	// Update database DSNs if not explicitly set but state directory is provided
	if *flags.stateDir != config.StateDir {
		if *flags.dbDSN == filepath.Join(config.StateDir, DefaultProfileDBFileName) {
			*flags.dbDSN = filepath.Join(*flags.stateDir, DefaultProfileDBFileName)
			slog.Debug("Updated dbDSN based on state directory", "dsn_updated", true, "new_state_dir", *flags.stateDir)
		}
		if *flags.contentDSN == filepath.Join(config.StateDir, DefaultContentDBFileName) {
			*flags.contentDSN = filepath.Join(*flags.stateDir, DefaultContentDBFileName)
			slog.Debug("Updated contentDSN based on state directory", "dsn_updated", true, "new_state_dir", *flags.stateDir)
		}
	}

	return flags
}

// ensureDirectoriesExist creates necessary directories for file-based storage
func ensureDirectoriesExist(flags Flags) error {
	for _, dsn := range []string{*flags.dbDSN, *flags.contentDSN} {
		if dsn == "" || store.DetectDSNType(dsn) == "postgres" {
			continue
		}
		stateDir := filepath.Dir(dsn)
		slog.Debug("Creating state directory for file-based database", "state_dir", stateDir)
		if err := os.MkdirAll(stateDir, store.DefaultDirPermissions); err != nil {
			slog.Error("Failed to create state directory", "error", err, "state_dir", stateDir)
			return err
		}
	}
	return nil
}

// buildProfileStore opens the user-profile backend, picking the driver from
// the DSN shape.
func buildProfileStore(flags Flags) (store.ProfileStore, error) {
	if *flags.dbDSN == "" {
		slog.Debug("No database DSN provided, will use in-memory profile store")
		return store.NewInMemoryStore(), nil
	}
	if store.DetectDSNType(*flags.dbDSN) == "postgres" {
		slog.Debug("Detected PostgreSQL DSN, configuring PostgreSQL profile store", "dsn_type", "postgresql", "dsn_set", true)
		return store.NewPostgresStore(store.WithDSN(*flags.dbDSN))
	}
	slog.Debug("Detected SQLite DSN, configuring SQLite profile store", "dsn_type", "sqlite", "db_path", *flags.dbDSN)
	return store.NewSQLiteStore(store.WithDSN(*flags.dbDSN))
}

// buildContentStore opens the knowledge-article backend.
func buildContentStore(flags Flags) (content.ContentStore, error) {
	if *flags.contentDSN == "" {
		slog.Debug("No content DSN provided, will use in-memory content store")
		return content.NewInMemoryContent(), nil
	}
	slog.Debug("Configuring SQLite content store", "db_path", *flags.contentDSN)
	return content.NewSQLiteContent(store.WithDSN(*flags.contentDSN))
}

// buildNotifier configures the escalation notifier from Twilio environment
// variables, falling back to the no-op notifier when unconfigured.
func buildNotifier() notify.Notifier {
	notifier, err := notify.NewTwilioNotifier()
	if err != nil {
		slog.Info("Twilio not configured, escalation alerts disabled", "reason", err)
		return notify.NoopNotifier{}
	}
	slog.Info("Twilio escalation alerts enabled")
	return notifier
}

// buildSuggester configures the optional query suggester. A missing API key
// just disables the no-results rephrasing feature.
func buildSuggester(flags Flags) genai.Suggester {
	if *flags.openaiKey == "" {
		slog.Debug("No OpenAI API key provided, query suggestions disabled")
		return nil
	}
	client, err := genai.NewClient(genai.WithAPIKey(*flags.openaiKey))
	if err != nil {
		slog.Warn("Failed to configure query suggester", "error", err)
		return nil
	}
	return client
}

// buildAPIOptions constructs API server configuration options
func buildAPIOptions(flags Flags, profiles store.ProfileStore, articles content.ContentStore, notifier notify.Notifier, suggester genai.Suggester) []api.Option {
	apiOpts := []api.Option{
		api.WithProfileStore(profiles),
		api.WithContentStore(articles),
		api.WithNotifier(notifier),
	}
	if suggester != nil {
		apiOpts = append(apiOpts, api.WithSuggester(suggester))
	}
	if *flags.apiAddr != "" {
		apiOpts = append(apiOpts, api.WithAddr(*flags.apiAddr))
	}
	if *flags.timeoutMinutes != "" {
		minutes, err := strconv.Atoi(*flags.timeoutMinutes)
		if err != nil || minutes <= 0 {
			slog.Warn("Ignoring invalid session timeout", "value", *flags.timeoutMinutes)
		} else {
			apiOpts = append(apiOpts, api.WithSessionTimeout(time.Duration(minutes)*time.Minute))
		}
	}
	return apiOpts
}
