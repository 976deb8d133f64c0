package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/bnema/repo-digest-notifier/internal/adapters/auth"
	"github.com/bnema/repo-digest-notifier/internal/adapters/github"
	"github.com/bnema/repo-digest-notifier/internal/adapters/render/mrkdwn"
	sqliterepo "github.com/bnema/repo-digest-notifier/internal/adapters/repo/sqlite"
	tomlrepo "github.com/bnema/repo-digest-notifier/internal/adapters/repo/toml"
	"github.com/bnema/repo-digest-notifier/internal/adapters/slack"
	chainstore "github.com/bnema/repo-digest-notifier/internal/adapters/secrets/chain"
	filestore "github.com/bnema/repo-digest-notifier/internal/adapters/secrets/file"
	keyringstore "github.com/bnema/repo-digest-notifier/internal/adapters/secrets/keyring"
	"github.com/bnema/repo-digest-notifier/internal/adapters/state/memory"
	"github.com/bnema/repo-digest-notifier/internal/application"
	"github.com/bnema/repo-digest-notifier/internal/config"
	"github.com/bnema/repo-digest-notifier/internal/domain"
	"github.com/bnema/repo-digest-notifier/internal/logging"
	"github.com/bnema/repo-digest-notifier/internal/metrics"
	"github.com/bnema/repo-digest-notifier/internal/ports"
)

type app struct {
	cfg           config.Config
	logger        *slog.Logger
	secrets       ports.SecretStore
	states        ports.StateStore
	installations ports.InstallationRepository
	recorder      *metrics.Recorder
	clock         ports.Clock
	closers       []io.Closer
}

type wireOptions struct {
	configPath string
	explicit   bool
	purpose    config.Purpose
	logOutput  io.Writer
}

func wireApp(ctx context.Context, opts wireOptions) (*app, error) {
	cfg, err := config.Load(opts.configPath, opts.explicit)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, opts.logOutput)
	if err != nil {
		return nil, fmt.Errorf("wire logger: %w", err)
	}

	secrets, err := wireSecretStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("wire secret store: %w", err)
	}

	// Inspection commands never dereference secret:// values.
	if opts.purpose != config.PurposeInspect {
		if err := cfg.ResolveSecrets(ctx, secrets); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(opts.purpose); err != nil {
		return nil, err
	}

	a := &app{
		cfg:      cfg,
		logger:   logger,
		secrets:  secrets,
		recorder: metrics.NewRecorder(),
		clock:    ports.SystemClock{},
	}

	if err := a.wireStorage(); err != nil {
		return nil, errors.Join(fmt.Errorf("wire storage: %w", err), a.Close())
	}

	logger.Debug("configuration loaded", "config", cfg)
	return a, nil
}

func wireSecretStore(cfg config.Config) (ports.SecretStore, error) {
	if !cfg.Secrets.Keyring {
		return filestore.NewStore(cfg.Secrets.Dir), nil
	}

	return chainstore.NewKeyringFirstWithFileFallback(keyringstore.ServiceName, cfg.Secrets.Dir)
}

func (a *app) wireStorage() error {
	switch a.cfg.Storage.Backend {
	case config.BackendSQLite:
		db, err := sqliterepo.Open(a.cfg.Storage.SQLitePath, a.clock)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, db)
		a.states = db.States()
		a.installations = db.Installations()
	default:
		repo, err := tomlrepo.NewRepository(filepath.Join(a.cfg.Storage.Dir, tomlrepo.DefaultFileName))
		if err != nil {
			return err
		}
		a.states = memory.NewStore(a.clock)
		a.installations = repo
	}

	return nil
}

func (a *app) Close() error {
	var errs []error
	for _, closer := range a.closers {
		errs = append(errs, closer.Close())
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *app) pollConfig() (application.PollConfig, error) {
	loc, err := a.cfg.Location()
	if err != nil {
		return application.PollConfig{}, err
	}

	return application.PollConfig{
		Org:       a.cfg.Org,
		Location:  loc,
		Username:  a.cfg.Delivery.Username,
		IconEmoji: a.cfg.Delivery.IconEmoji,
	}, nil
}

func (a *app) source() ports.SourceReader {
	client := github.NewClient(a.cfg.GitHub.BaseURL, a.cfg.GitHub.Token,
		github.WithHTTPClient(&http.Client{Timeout: a.cfg.GitHub.Timeout}),
		github.WithMaxPages(a.cfg.GitHub.MaxPages),
	)
	return github.NewSource(client)
}

// pollService builds the orchestrator. render and deliverer default to the
// Slack mrkdwn renderer and the configured webhook.
func (a *app) pollService(render func(domain.Digest) string, deliverer ports.Deliverer) (*application.PollService, error) {
	cfg, err := a.pollConfig()
	if err != nil {
		return nil, err
	}

	if render == nil {
		render = mrkdwn.Render
	}
	if deliverer == nil {
		deliverer, err = a.webhook()
		if err != nil {
			return nil, err
		}
	}

	return application.NewPollService(cfg, a.source(), deliverer, render, a.clock, a.recorder, a.logger), nil
}

func (a *app) webhook() (ports.Deliverer, error) {
	timeout := a.cfg.Delivery.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	webhook, err := slack.NewWebhook(a.cfg.Delivery.WebhookURL, &http.Client{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("wire webhook: %w", err)
	}
	return webhook, nil
}

func (a *app) installService() (*application.InstallService, error) {
	provider, err := auth.NewSlackProvider(auth.SlackConfig{
		ClientID:     a.cfg.OAuth.ClientID,
		ClientSecret: a.cfg.OAuth.ClientSecret,
		RedirectURI:  a.cfg.OAuth.RedirectURL,
		Scopes:       a.cfg.OAuth.Scopes,
		AuthorizeURL: a.cfg.OAuth.AuthorizeURL,
		APIBaseURL:   a.cfg.OAuth.APIBaseURL,
	}, &http.Client{Timeout: 30 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("wire oauth provider: %w", err)
	}

	return application.NewInstallService(
		a.states,
		auth.StateGenerator{},
		provider,
		a.installations,
		a.secrets,
		a.clock,
		a.recorder,
		a.logger,
	), nil
}
