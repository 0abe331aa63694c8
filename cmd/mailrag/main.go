package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/ajramos/mailrag/internal/config"
	"github.com/ajramos/mailrag/internal/db"
	"github.com/ajramos/mailrag/internal/gmail"
	"github.com/ajramos/mailrag/internal/llm"
	"github.com/ajramos/mailrag/internal/metrics"
	"github.com/ajramos/mailrag/internal/services"
	"github.com/ajramos/mailrag/internal/tui"
	"github.com/ajramos/mailrag/internal/version"
	"github.com/ajramos/mailrag/pkg/auth"
	"github.com/99designs/keyring"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	configPathFlag := flag.String("config", "", "Path to configuration file (default: ~/.config/mailrag/config.yaml)")
	apiURLFlag := flag.String("api-url", "", "EmailRAG API base URL")
	emailFlag := flag.String("email", "", "Account email used to resolve the backend user")
	userIDFlag := flag.Int64("user-id", 0, "Backend user id, skips identity resolution")
	loginFlag := flag.Bool("login", false, "Sign in to EmailRAG and store the session token")
	signupFlag := flag.Bool("signup", false, "Create an EmailRAG account and store the session token")
	logoutFlag := flag.Bool("logout", false, "Remove the stored session token and exit")
	setupFlag := flag.Bool("setup", false, "Write a default configuration file")
	versionFlag := flag.Bool("version", false, "Show version information and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s\n\n", version.GetVersionString())
		fmt.Fprintf(os.Stderr, "Usage:\n")
		fmt.Fprintf(os.Stderr, "  %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Examples:\n")
		fmt.Fprintf(os.Stderr, "  %s                             # Open the inbox\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --login --email me@x.com    # Sign in first\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --user-id 42                # Skip identity lookup\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  MAILRAG_CONFIG     Override default config file path\n")
		fmt.Fprintf(os.Stderr, "  MAILRAG_API_URL    Override the API base URL\n")
		fmt.Fprintf(os.Stderr, "  MAILRAG_EMAIL      Override the account email\n")
		fmt.Fprintf(os.Stderr, "  MAILRAG_USER_ID    Override the backend user id\n")
		fmt.Fprintf(os.Stderr, "  MAILRAG_PASSWORD   Password for --login/--signup\n")
	}

	flag.Parse()

	if *versionFlag {
		fmt.Println(version.GetDetailedVersionString())
		return
	}

	configPath := getConfigPath(*configPathFlag)

	if *setupFlag {
		runSetup(configPath)
		return
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Printf("Warning: could not load configuration: %v", err)
		cfg = config.DefaultConfig()
	}
	applyFlags(cfg, *apiURLFlag, *emailFlag, *userIDFlag)

	logger, err := newLogger(cfg.LogFile, cfg.LogLevel)
	if err != nil {
		log.Printf("Warning: could not open log file: %v", err)
		logger = zap.NewNop()
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()

	configDir := config.DefaultConfigDir()
	ring, err := auth.OpenKeyring(configDir)
	if err != nil {
		logger.Warn("keyring unavailable", zap.Error(err))
	}
	tokens, err := openTokenStore(cfg.Storage.TokenBackend, configDir, ring)
	if err != nil {
		log.Fatalf("Could not open token store: %v", err)
	}
	var sessions *auth.SessionStore
	if ring != nil {
		sessions = auth.NewSessionStore(ring)
	}

	authClient := auth.NewClient(cfg.API.BaseURL, &http.Client{Timeout: cfg.APITimeout()}, tokens)
	if sessions != nil {
		authClient.SetSessionStore(sessions)
	}

	switch {
	case *logoutFlag:
		if err := authClient.Logout(); err != nil {
			log.Fatalf("Logout failed: %v", err)
		}
		fmt.Println("Signed out")
		return
	case *loginFlag, *signupFlag:
		if err := signIn(ctx, authClient, cfg, *signupFlag); err != nil {
			log.Fatalf("%v", err)
		}
		fmt.Println("Signed in")
		return
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	hc, err := authClient.HTTPClient(ctx, nil)
	if err != nil {
		if !errors.Is(err, auth.ErrNotAuthenticated) {
			logger.Warn("stored token unusable", zap.Error(err))
		}
	}
	clientOpts := []gmail.Option{
		gmail.WithTimeout(cfg.APITimeout()),
		gmail.WithLogger(logger),
		gmail.WithMetrics(m),
	}
	if hc != nil {
		clientOpts = append(clientOpts, gmail.WithHTTPClient(hc))
	}
	gmailClient := gmail.NewClient(cfg.API.BaseURL, clientOpts...)

	identity := services.NewIdentityResolver(cfg.Account.Email, gmailClient)
	identity.SetLogger(logger)
	identity.SetOverride(cfg.Account.UserID)
	if sessions != nil {
		identity.SetSessionStore(sessions)
	}

	var history services.GeneratedHistory
	dbPath := cfg.Storage.DatabasePath
	if dbPath == "" {
		dbPath = config.DefaultDatabasePath()
	}
	if store, err := db.Open(ctx, dbPath); err == nil {
		defer func() { _ = store.Close() }()
		identity.SetLocalStore(db.NewIdentityStore(store, cfg.Account.Email))
		history = db.NewGeneratedStore(store)
	} else {
		logger.Warn("local store unavailable", zap.String("path", dbPath), zap.Error(err))
	}

	repo := services.NewMessageRepository(gmailClient)
	session := services.NewInboxSession(repo, services.InboxOptions{
		PageSize:    cfg.API.PageSize,
		SyncTimeout: cfg.SyncTimeout(),
		Logger:      logger,
		Metrics:     m,
	})

	composer := services.NewCompositionService(gmailClient, cfg.Account.Email, cfg.Account.DisplayName)

	var generator services.GenerationService
	provider, err := llm.NewProvider(ctx, llm.Options{
		Provider: cfg.LLM.Provider,
		BaseURL:  cfg.API.BaseURL,
		Endpoint: cfg.LLM.Endpoint,
		Model:    cfg.LLM.Model,
		Region:   llmRegion(cfg.LLM.Region),
		Timeout:  cfg.GetLLMTimeout(),
		HTTP:     hc,
	})
	if err != nil {
		logger.Warn("llm provider unavailable", zap.String("provider", cfg.LLM.Provider), zap.Error(err))
	} else {
		generator = services.NewGenerationService(provider, history, cfg.Account.Email)
	}

	savedDir := cfg.Storage.SavedDir
	if savedDir == "" {
		savedDir = config.DefaultSavedDir()
	}

	app := tui.NewApp(cfg, tui.Deps{
		Session:   session,
		Identity:  identity,
		Composer:  composer,
		Generator: generator,
		Exporter:  services.NewExportService(savedDir),
		Logger:    logger,
	})
	if err := app.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running application: %v\n", err)
		os.Exit(1)
	}
}

// getConfigPath returns the configuration file path using the following priority:
// 1. CLI flag
// 2. Environment variable MAILRAG_CONFIG
// 3. Default path ~/.config/mailrag/config.yaml
func getConfigPath(flagValue string) string {
	if flagValue != "" {
		return expandPath(flagValue)
	}

	if envPath := os.Getenv("MAILRAG_CONFIG"); envPath != "" {
		return expandPath(envPath)
	}

	return config.DefaultConfigPath()
}

// openTokenStore selects the token backend. Without a usable keyring the
// token falls back to a file under dir.
func openTokenStore(backend, dir string, ring keyring.Keyring) (auth.TokenStore, error) {
	if ring == nil && (backend == "" || backend == "keyring") {
		backend = "file"
	}
	return auth.NewTokenStore(backend, dir, ring)
}

// applyFlags lets CLI flags override the loaded configuration
func applyFlags(cfg *config.Config, apiURL, email string, userID int64) {
	if apiURL = strings.TrimRight(strings.TrimSpace(apiURL), "/"); apiURL != "" {
		cfg.API.BaseURL = apiURL
	}
	if email = strings.TrimSpace(email); email != "" {
		cfg.Account.Email = email
	}
	if userID > 0 {
		cfg.Account.UserID = userID
	}
}

// llmRegion falls back to AWS_REGION when no region is configured
func llmRegion(configured string) string {
	if configured != "" {
		return configured
	}
	return os.Getenv("AWS_REGION")
}

// expandPath expands ~ to the user's home directory
func expandPath(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	if path == "~" {
		return home
	}

	return filepath.Join(home, path[2:])
}

// newLogger builds a file logger, or a no-op logger when path is empty
func newLogger(path, level string) (*zap.Logger, error) {
	if strings.TrimSpace(path) == "" {
		return zap.NewNop(), nil
	}
	path = expandPath(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	lvl := zapcore.InfoLevel
	if level != "" {
		if err := lvl.UnmarshalText([]byte(level)); err != nil {
			return nil, fmt.Errorf("log level %q: %w", level, err)
		}
	}

	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(lvl)
	zc.Encoding = "console"
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zc.OutputPaths = []string{path}
	zc.ErrorOutputPaths = []string{path}
	return zc.Build()
}

// signIn runs the login or signup flow from the terminal
func signIn(ctx context.Context, c *auth.Client, cfg *config.Config, signup bool) error {
	in := bufio.NewReader(os.Stdin)
	email := cfg.Account.Email
	if email == "" {
		email = prompt(in, "Email: ")
	}
	password := os.Getenv("MAILRAG_PASSWORD")
	if password == "" {
		password = prompt(in, "Password: ")
	}

	if signup {
		name := cfg.Account.DisplayName
		if name == "" {
			name = prompt(in, "Display name: ")
		}
		_, err := c.Signup(ctx, email, password, name)
		return err
	}
	_, err := c.Login(ctx, email, password)
	return err
}

func prompt(in *bufio.Reader, label string) string {
	fmt.Print(label)
	line, _ := in.ReadString('\n')
	return strings.TrimSpace(line)
}

// runSetup writes a default configuration file when none exists
func runSetup(path string) {
	if _, err := os.Stat(path); err == nil {
		fmt.Printf("Configuration file already exists: %s\n", path)
		return
	}
	cfg := config.DefaultConfig()
	cfg.Storage.DatabasePath = config.DefaultDatabasePath()
	cfg.Storage.SavedDir = config.DefaultSavedDir()
	cfg.LogFile = config.DefaultLogFile()
	if err := cfg.SaveConfig(path); err != nil {
		fmt.Printf("Failed to create config file: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Created configuration file: %s\n", path)
	fmt.Printf("Next: %s --login --email you@example.com\n", os.Args[0])
}
