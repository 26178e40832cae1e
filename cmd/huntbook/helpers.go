package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"huntbook/internal/catalog"
	"huntbook/internal/config"
	"huntbook/internal/defender"
	"huntbook/internal/hunt"
	"huntbook/internal/logging"
	"huntbook/internal/orchestrate"
	"huntbook/internal/store"
)

// loadConfig reads the config file named by --config (or the default
// lookup) and initializes logging from it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(rootFlags.config)
	if err != nil {
		return nil, err
	}
	logging.Setup(cfg.LogLevel, cfg.LogFormat)
	return cfg, nil
}

// newBackend builds the hunting client from the configured auth mode.
func newBackend(cfg *config.Config) (hunt.Backend, error) {
	cred, err := newCredential(cfg)
	if err != nil {
		return nil, err
	}
	return defender.NewClient(defender.Config{
		BaseURL:    cfg.APIURL,
		Credential: cred,
	}), nil
}

func newCredential(cfg *config.Config) (defender.Credential, error) {
	switch cfg.AuthMode {
	case config.AuthClientSecret:
		if cfg.ClientSecret == "" {
			return nil, fmt.Errorf("auth mode %s requires HUNTBOOK_CLIENT_SECRET", cfg.AuthMode)
		}
		return &defender.ClientSecretCredential{
			TenantID: cfg.TenantID,
			ClientID: cfg.ClientID,
			Secret:   cfg.ClientSecret,
			AuthBase: cfg.AuthURL,
		}, nil
	case config.AuthCertificate:
		return &defender.CertificateCredential{
			TenantID:        cfg.TenantID,
			ClientID:        cfg.ClientID,
			CertificatePath: cfg.CertificatePath,
		}, nil
	case config.AuthDeviceCode, "":
		// The device-code prompt goes to stderr so stdout stays clean
		// for tables and, in serve mode, the transport.
		return &defender.DeviceCodeCredential{
			TenantID: cfg.TenantID,
			ClientID: cfg.ClientID,
			AuthBase: cfg.AuthURL,
			Prompt:   os.Stderr,
		}, nil
	default:
		return nil, fmt.Errorf("unknown auth mode %q (want %s, %s or %s)",
			cfg.AuthMode, config.AuthDeviceCode, config.AuthClientSecret, config.AuthCertificate)
	}
}

// resolveCatalog returns the catalog file for a kind: the --catalog
// flag wins, otherwise <kind>-queries.json under the configured
// catalog directory.
func resolveCatalog(cfg *config.Config, kind hunt.Kind, explicit string) string {
	if explicit != "" {
		return explicit
	}
	return filepath.Join(cfg.CatalogDir, strings.ToLower(string(kind))+"-queries.json")
}

// openHistory opens the run-history store. History is ancillary: a
// store that cannot be opened is a warning, not a fatal error, and the
// hunt proceeds without it.
func openHistory(path string) *store.Store {
	st, err := store.Open(path)
	if err != nil {
		logging.New("cli").Warn("run history unavailable", "path", path, "error", err)
		return nil
	}
	return st
}

// huntFlags is shared by the device and user commands; only one of
// them runs per invocation.
var huntFlags struct {
	timeframe string
	echo      bool
	export    bool
	catalog   string
	workers   int
	timeout   time.Duration
	db        string
	reportDir string
}

func addHuntFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&huntFlags.timeframe, "timeframe", "", "Time frame substituted into queries (default: 7d)")
	f.BoolVar(&huntFlags.echo, "echo", false, "Print each query's normalized table to the terminal")
	f.BoolVar(&huntFlags.export, "export", false, "Write a CSV extract per query with hits")
	f.StringVar(&huntFlags.catalog, "catalog", "", "Catalog file (default: <kind>-queries.json in the catalog dir)")
	f.IntVar(&huntFlags.workers, "workers", 1, "Parallel query workers (1 = sequential)")
	f.DurationVar(&huntFlags.timeout, "timeout", 0, "Per-query timeout (0 = none)")
	f.StringVar(&huntFlags.db, "db", "", "Run-history DB path (default from config)")
	f.StringVar(&huntFlags.reportDir, "report-dir", "", "Report output directory (default from config)")
}

// runHuntCommand is the shared body of the device and user commands.
func runHuntCommand(cmd *cobra.Command, kind hunt.Kind, entityID string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	backend, err := newBackend(cfg)
	if err != nil {
		return err
	}

	cat, err := catalog.Load(resolveCatalog(cfg, kind, huntFlags.catalog))
	if err != nil {
		return err
	}

	dbPath := huntFlags.db
	if dbPath == "" {
		dbPath = cfg.DBPath
	}
	history := openHistory(dbPath)
	if history != nil {
		defer history.Close()
	}

	reportDir := huntFlags.reportDir
	if reportDir == "" {
		reportDir = cfg.ReportDir
	}

	hctx := hunt.Context{
		TimeFrame: huntFlags.timeframe,
		Echo:      huntFlags.echo,
		Export:    huntFlags.export,
	}
	switch kind {
	case hunt.KindDevice:
		hctx.DeviceID = entityID
	case hunt.KindUser:
		hctx.UserPrincipalName = entityID
	}

	runner := orchestrate.NewRunner(backend, orchestrate.Options{
		Workers:   huntFlags.workers,
		Timeout:   huntFlags.timeout,
		Out:       cmd.OutOrStdout(),
		ReportDir: reportDir,
		History:   history,
	})
	summary, err := runner.Run(cmd.Context(), cat, kind, hctx)
	if err != nil {
		return err
	}
	if summary.Failed > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "%d of %d queries failed; their recorded hit counts were left unchanged\n",
			summary.Failed, len(summary.Outcomes))
	}
	return nil
}
