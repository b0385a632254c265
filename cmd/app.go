package cmd

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/abhisek/skillcert/internal/audit"
	"github.com/abhisek/skillcert/internal/config"
	"github.com/abhisek/skillcert/internal/ledger"
	"github.com/abhisek/skillcert/internal/logging"
	"github.com/abhisek/skillcert/internal/metrics"
	"github.com/abhisek/skillcert/internal/sessionstore"
	"github.com/abhisek/skillcert/internal/skills"
	"github.com/abhisek/skillcert/internal/store"
	"github.com/abhisek/skillcert/internal/testsession"
)

// app holds the wired services for one command invocation.
type app struct {
	cfg      config.Config
	log      *logrus.Logger
	registry *prometheus.Registry

	store   *store.Store
	ledger  *ledger.Service
	skills  *skills.Service
	engine  *testsession.Engine
	auditor *audit.Auditor
}

// openApp loads configuration, opens the store and builds every service.
// Callers must Close the result.
func openApp(cmd *cobra.Command) (*app, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}

	dbPath, err := resolveDBPath(cmd, cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("resolve DB path: %w", err)
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	var sessions store.SessionRepo = st.SessionRepo()
	if cfg.SessionBackend == config.BackendMemory {
		sessions = sessionstore.NewMemory(sessionstore.DefaultGrace)
	}

	led := ledger.NewService(ledger.Options{
		Repo:         st.LedgerRepo(),
		Skills:       st.SkillRepo(),
		Logger:       log.WithField("component", "ledger"),
		Metrics:      m,
		MinimalLevel: cfg.MinConfirmLevel,
	})

	a := &app{
		cfg:      cfg,
		log:      log,
		registry: reg,
		store:    st,
		ledger:   led,
		skills: skills.NewService(skills.Options{
			Repo:        st.SkillRepo(),
			Ledger:      led,
			Logger:      log.WithField("component", "skills"),
			AuthorLevel: cfg.AuthorLevel,
		}),
		engine: testsession.NewEngine(testsession.Options{
			Tests:           st.TestRepo(),
			Results:         st.ResultRepo(),
			Sessions:        sessions,
			Ledger:          led,
			Skills:          st.SkillRepo(),
			Logger:          log.WithField("component", "testsession"),
			Metrics:         m,
			PassLevel:       cfg.PassLevel,
			RetryMaxElapsed: cfg.AutoSubmitMaxElapsed,
		}),
		auditor: audit.New(audit.Options{
			Skills:  st.SkillRepo(),
			Ledger:  led,
			Logger:  log.WithField("component", "audit"),
			Metrics: m,
		}),
	}
	return a, nil
}

// Close stops the engine's timers before the store goes away.
func (a *app) Close() {
	a.engine.Close()
	if err := a.store.Close(); err != nil {
		a.log.WithError(err).Warn("close store")
	}
}

// requireDurableSessions rejects one-shot session commands when sessions
// would vanish with the process.
func (a *app) requireDurableSessions() error {
	if a.cfg.SessionBackend == config.BackendMemory {
		return fmt.Errorf("session commands need SKILLCERT_SESSION_BACKEND=%s; the %s backend does not outlive the process",
			config.BackendSQLite, config.BackendMemory)
	}
	return nil
}
