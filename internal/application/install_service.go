package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bnema/repo-digest-notifier/internal/domain"
	"github.com/bnema/repo-digest-notifier/internal/ports"
)

const (
	InstallSucceeded     = "success"
	InstallInvalidState  = "invalid_state"
	InstallStateError    = "state_store_error"
	InstallExchangeError = "exchange_error"
	InstallPersistError  = "persist_error"
)

// CallbackRequest carries the query parameters of an OAuth redirect.
type CallbackRequest struct {
	Code  string
	State string
	Error string
}

type InstallService struct {
	states        ports.StateStore
	tokens        ports.TokenGenerator
	provider      ports.OAuthProvider
	installations ports.InstallationRepository
	secrets       ports.SecretStore
	clock         ports.Clock
	recorder      ports.Recorder
	logger        *slog.Logger
}

func NewInstallService(
	states ports.StateStore,
	tokens ports.TokenGenerator,
	provider ports.OAuthProvider,
	installations ports.InstallationRepository,
	secrets ports.SecretStore,
	clock ports.Clock,
	recorder ports.Recorder,
	logger *slog.Logger,
) *InstallService {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if recorder == nil {
		recorder = ports.NopRecorder{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &InstallService{
		states:        states,
		tokens:        tokens,
		provider:      provider,
		installations: installations,
		secrets:       secrets,
		clock:         clock,
		recorder:      recorder,
		logger:        logger,
	}
}

// Issue creates and stores a fresh state token.
func (s *InstallService) Issue(ctx context.Context) (string, error) {
	token, err := s.tokens.NewToken()
	if err != nil {
		return "", fmt.Errorf("generate state token: %w", err)
	}

	if err := s.states.Put(ctx, domain.NewInstallationState(token, s.clock.Now())); err != nil {
		return "", fmt.Errorf("store state token: %w", err)
	}

	return token, nil
}

// Begin issues a state and returns the provider URL the user is sent to.
func (s *InstallService) Begin(ctx context.Context) (string, error) {
	token, err := s.Issue(ctx)
	if err != nil {
		return "", err
	}

	authorizeURL, err := s.provider.AuthorizeURL(token)
	if err != nil {
		return "", fmt.Errorf("build authorize url: %w", err)
	}

	return authorizeURL, nil
}

// Consume reports whether token was issued, unexpired and not yet consumed,
// marking it consumed when it was. Of concurrent callers with the same
// token at most one gets true.
func (s *InstallService) Consume(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}

	current, err := s.states.Get(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrStateNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("load state token: %w", err)
	}

	if !current.Consumable(s.clock.Now()) {
		return false, nil
	}

	swapped, err := s.states.CompareAndSwap(ctx, token, current, current.MarkConsumed())
	if err != nil {
		return false, fmt.Errorf("consume state token: %w", err)
	}

	return swapped, nil
}

func (s *InstallService) HandleCallback(ctx context.Context, req CallbackRequest) (domain.Installation, error) {
	installation, outcome, err := s.handleCallback(ctx, req)
	s.recorder.InstallCompleted(outcome)

	if err != nil {
		s.logger.Warn("install callback rejected", "outcome", outcome, "error", err)
		return domain.Installation{}, err
	}

	s.logger.Info("workspace installed",
		"workspace", installation.WorkspaceKey(),
		"team_name", installation.TeamName,
		"scope", installation.Scope)

	return installation, nil
}

func (s *InstallService) handleCallback(ctx context.Context, req CallbackRequest) (domain.Installation, string, error) {
	ok, err := s.Consume(ctx, req.State)
	if err != nil {
		return domain.Installation{}, InstallStateError, err
	}
	if !ok {
		return domain.Installation{}, InstallInvalidState, domain.ErrInvalidState
	}

	if req.Error != "" {
		return domain.Installation{}, InstallExchangeError, fmt.Errorf("%w: provider returned %q", domain.ErrExchangeFailed, req.Error)
	}
	if req.Code == "" {
		return domain.Installation{}, InstallExchangeError, domain.ErrMissingCode
	}

	installation, err := s.provider.Exchange(ctx, req.Code)
	if err != nil {
		if errors.Is(err, domain.ErrExchangeFailed) {
			return domain.Installation{}, InstallExchangeError, err
		}
		return domain.Installation{}, InstallExchangeError, fmt.Errorf("%w: %w", domain.ErrExchangeFailed, err)
	}
	if installation.InstalledAt.IsZero() {
		installation.InstalledAt = s.clock.Now().UTC()
	}

	saved, err := s.Persist(ctx, installation)
	if err != nil {
		return domain.Installation{}, InstallPersistError, err
	}

	return saved, InstallSucceeded, nil
}

// Persist stores the access token as a secret and saves the installation
// record referencing it. A later install for the same workspace replaces
// the earlier one.
func (s *InstallService) Persist(ctx context.Context, installation domain.Installation) (domain.Installation, error) {
	secretKey := BotTokenSecretKey(installation.WorkspaceKey())

	previous, err := s.secrets.Get(ctx, secretKey)
	hadPrevious := err == nil
	if err != nil && !errors.Is(err, domain.ErrSecretNotFound) {
		return domain.Installation{}, fmt.Errorf("load previous bot token: %w", err)
	}

	if err := s.secrets.Put(ctx, secretKey, installation.AccessToken); err != nil {
		return domain.Installation{}, fmt.Errorf("store bot token: %w", err)
	}

	record := installation
	record.AccessToken = ""
	record.SecretRef = secretKey

	if err := s.installations.Save(ctx, record); err != nil {
		var rollbackErr error
		if hadPrevious {
			rollbackErr = s.secrets.Put(ctx, secretKey, previous)
		} else {
			rollbackErr = s.secrets.Delete(ctx, secretKey)
		}
		if rollbackErr != nil {
			return domain.Installation{}, fmt.Errorf("save installation and rollback bot token: %w", errors.Join(err, rollbackErr))
		}

		return domain.Installation{}, fmt.Errorf("save installation: %w", err)
	}

	return record, nil
}

func (s *InstallService) List(ctx context.Context) ([]domain.Installation, error) {
	installations, err := s.installations.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list installations: %w", err)
	}

	return installations, nil
}

func BotTokenSecretKey(workspaceKey string) string {
	return fmt.Sprintf("slack/workspaces/%s/bot_token", workspaceKey)
}
