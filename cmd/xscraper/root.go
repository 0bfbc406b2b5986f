package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"xscraper/pkg/auth"
	"xscraper/pkg/config"
	"xscraper/pkg/fetcher"
	"xscraper/pkg/identity"
	"xscraper/pkg/logger"
	"xscraper/pkg/ratelimit"
	"xscraper/pkg/storage"
	"xscraper/pkg/twitter"
)

var (
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
	outputDir  string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "xscraper",
	Short: "A resilient fetcher for public posts, timelines, and searches",
	Long: `xscraper fetches posts, user timelines, and search results from a
rate-limited social platform.

Every fetch walks a fallback chain: the structured API first, then a
conversation-search recovery for single posts, then raw page scraping.
Requests are paced by a global rate governor and spread across a pool
of accounts, each with its own concurrency cap and egress proxy.

Results are normalized into one canonical record shape, tagged with the
source that produced them, and saved as JSON batches.`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is .xscraper.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVarP(&outputDir, "output", "o", "", "output directory for batches")

	rootCmd.SetVersionTemplate(`xscraper {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// app bundles the wired components a fetch command needs.
type app struct {
	cfg     *config.Config
	logger  logger.Logger
	fetcher *fetcher.Fetcher
	storage *storage.Manager
}

// buildApp loads configuration, initializes logging, and wires the
// identity pool, governor, clients, fetcher, and storage.
func buildApp() (*app, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if outputDir != "" {
		cfg.Output.BaseDirectory = outputDir
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}
	log := logger.GetLogger()

	accounts := cfg.Accounts
	if len(accounts) == 0 {
		accounts = storedAccounts(log)
	}

	var identities []*identity.Identity
	for _, acc := range accounts {
		identities = append(identities, identity.New(
			acc.Name, acc.AuthToken, acc.CSRFToken, acc.Proxy,
			cfg.Fetch.PerIdentityConcurrency))
	}

	// Without credentials the structured API is unusable; run with an
	// anonymous identity and scrape public pages only.
	var client twitter.Client
	if len(identities) > 0 {
		client = twitter.NewAPIClient(cfg.Fetch.RequestTimeout, log)
	} else {
		log.Warn("no accounts configured, structured API disabled")
		identities = []*identity.Identity{
			identity.New("anonymous", "", "", "", cfg.Fetch.PerIdentityConcurrency),
		}
	}

	pool, err := identity.NewPool(identities)
	if err != nil {
		return nil, err
	}

	governor := ratelimit.NewGovernor(cfg.RateLimit.QPS, cfg.RateLimit.JitterLow, cfg.RateLimit.JitterHigh)
	transport := twitter.NewPageTransport(cfg.Fetch.RequestTimeout, cfg.Fetch.UserAgents, log)

	f := fetcher.New(client, transport, pool, governor, fetcher.Options{
		MaxAttempts: cfg.Fetch.MaxRetryAttempts,
	}, log)

	return &app{
		cfg:     cfg,
		logger:  log,
		fetcher: f,
		storage: storage.NewManager(cfg.Output.BaseDirectory, log),
	}, nil
}

// storedAccounts pulls accounts from the credential manager when the
// config carries none.
func storedAccounts(log logger.Logger) []config.AccountConfig {
	manager, err := auth.NewManager()
	if err != nil {
		log.WithError(err).Debug("credential manager unavailable")
		return nil
	}
	stored, err := manager.List()
	if err != nil {
		return nil
	}

	var accounts []config.AccountConfig
	for _, acc := range stored {
		accounts = append(accounts, config.AccountConfig{
			Name:      acc.Name,
			AuthToken: acc.AuthToken,
			CSRFToken: acc.CSRFToken,
			Proxy:     acc.Proxy,
		})
	}
	return accounts
}
