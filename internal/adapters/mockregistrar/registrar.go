package mockregistrar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"regdemo/go-backend/internal/domains/contracts"
	"regdemo/go-backend/internal/platform/inflight"
	"regdemo/go-backend/internal/platform/ratelimiter"
	"regdemo/go-backend/internal/securestore"
	"regdemo/go-backend/pkg/models"

	"github.com/mr-tron/base58/base58"
	"github.com/tyler-smith/go-bip39"
	"golang.org/x/crypto/blake2b"
)

const (
	userIDPrefix    = "usr1"
	throttleIdleTTL = 10 * time.Minute
)

var (
	ErrUsernameTaken    = errors.New("username already taken")
	ErrEmailTaken       = errors.New("email already registered")
	ErrThrottled        = errors.New("too many registration attempts")
	ErrMissingField     = errors.New("username, email and password are required")
	ErrPasswordMismatch = errors.New("password confirmation does not match")
	ErrUnknownAccount   = errors.New("account not found")
	ErrReplayConflict   = errors.New("idempotency key reused with a different form")
)

type Options struct {
	// Latency delays every registration. Cancelling the request context ends
	// the wait early.
	Latency           time.Duration
	AttemptsPerMinute int
	// StatePath persists accounts in a sealed file keyed by StateSecret.
	StatePath   string
	StateSecret string
	Logger      *slog.Logger
	Now         func() time.Time
}

type account struct {
	ID        string                `json:"id"`
	Username  string                `json:"username"`
	Email     string                `json:"email"`
	FirstName string                `json:"first_name,omitempty"`
	LastName  string                `json:"last_name,omitempty"`
	CreatedAt time.Time             `json:"created_at"`
	Recovery  *securestore.Envelope `json:"recovery"`
}

type persistedState struct {
	Accounts []account `json:"accounts"`
}

// Registrar is an in-memory user registry that behaves like a remote
// registration service: it enforces unique usernames and emails, throttles
// repeated attempts per username and answers replays of one submission with
// the original result.
type Registrar struct {
	latency     time.Duration
	statePath   string
	stateSecret string
	limiter     *ratelimiter.KeyedLimiter
	logger      *slog.Logger
	now         func() time.Time

	mu         sync.Mutex
	byUsername map[string]*account
	byEmail    map[string]*account
	replays    *replayCache
}

func New(opts Options) (*Registrar, error) {
	r := &Registrar{
		latency:     opts.Latency,
		statePath:   strings.TrimSpace(opts.StatePath),
		stateSecret: opts.StateSecret,
		limiter:     ratelimiter.NewPerMinute(opts.AttemptsPerMinute, opts.AttemptsPerMinute, throttleIdleTTL),
		logger:      opts.Logger,
		now:         opts.Now,
		byUsername:  make(map[string]*account),
		byEmail:     make(map[string]*account),
		replays:     newReplayCache(),
	}
	if r.logger == nil {
		r.logger = slog.New(slog.DiscardHandler)
	}
	if r.now == nil {
		r.now = func() time.Time { return time.Now().UTC() }
	}
	if r.statePath != "" {
		if strings.TrimSpace(r.stateSecret) == "" {
			return nil, contracts.WrapCategorizedError(contracts.ErrorCategoryStorage, errors.New("mockregistrar: state secret is required with a state path"))
		}
		if err := r.load(); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Send registers form. It implements the request client the registration
// coordinator drives; the submission id in ctx acts as the idempotency key.
func (r *Registrar) Send(ctx context.Context, form models.RegistrationForm) (models.RegistrationResult, error) {
	key, _ := inflight.SubmissionID(ctx)
	return r.Register(ctx, key, form)
}

// Register creates an account for form. A non-empty idempotencyKey that was
// already answered returns the earlier result without creating anything.
func (r *Registrar) Register(ctx context.Context, idempotencyKey string, form models.RegistrationForm) (models.RegistrationResult, error) {
	form = form.Normalized()
	idempotencyKey = strings.TrimSpace(idempotencyKey)
	formHash := hashForm(form)

	result, replayed, conflict := r.replay(idempotencyKey, formHash)
	if conflict || replayed {
		return r.replayed(idempotencyKey, result, conflict)
	}
	if err := validate(form); err != nil {
		return models.RegistrationResult{}, contracts.WrapCategorizedError(contracts.ErrorCategoryAPI, err)
	}
	if !r.limiter.Allow(form.Username, r.now()) {
		r.logger.Warn("registration throttled",
			"component", "mockregistrar",
			"operation", "register",
			"correlation_id", idempotencyKey,
			"username", form.Username,
		)
		return models.RegistrationResult{}, contracts.WrapCategorizedError(contracts.ErrorCategoryNetwork, ErrThrottled)
	}
	if err := r.wait(ctx); err != nil {
		return models.RegistrationResult{}, contracts.WrapCategorizedError(contracts.ErrorCategoryNetwork, err)
	}

	mnemonic, err := newRecoveryPhrase()
	if err != nil {
		return models.RegistrationResult{}, contracts.WrapCategorizedError(contracts.ErrorCategoryCrypto, err)
	}
	sealed, err := securestore.Seal(form.Password, []byte(mnemonic))
	if err != nil {
		return models.RegistrationResult{}, contracts.WrapCategorizedError(contracts.ErrorCategoryCrypto, err)
	}
	acct := &account{
		ID:        buildUserID(mnemonic, form.Username),
		Username:  form.Username,
		Email:     form.Email,
		FirstName: form.FirstName,
		LastName:  form.LastName,
		CreatedAt: r.now(),
		Recovery:  sealed,
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// A request with the same key may have finished while this one waited.
	result, replayed, conflict = r.replays.get(idempotencyKey, formHash, r.now())
	if conflict || replayed {
		return r.replayed(idempotencyKey, result, conflict)
	}
	if _, taken := r.byUsername[strings.ToLower(acct.Username)]; taken {
		return models.RegistrationResult{}, contracts.WrapCategorizedError(contracts.ErrorCategoryAPI, ErrUsernameTaken)
	}
	if _, taken := r.byEmail[acct.Email]; taken {
		return models.RegistrationResult{}, contracts.WrapCategorizedError(contracts.ErrorCategoryAPI, ErrEmailTaken)
	}
	r.index(acct)
	if err := r.persistLocked(); err != nil {
		r.unindex(acct)
		return models.RegistrationResult{}, err
	}

	result = models.RegistrationResult{
		UserID:         acct.ID,
		Username:       acct.Username,
		Email:          acct.Email,
		CreatedAt:      acct.CreatedAt,
		RecoveryPhrase: mnemonic,
	}
	r.replays.set(idempotencyKey, formHash, result, r.now())
	r.logger.Info("account registered",
		"component", "mockregistrar",
		"operation", "register",
		"correlation_id", idempotencyKey,
		"user_id", acct.ID,
	)
	return result, nil
}

// RecoveryPhrase opens the recovery phrase stored for username with password.
func (r *Registrar) RecoveryPhrase(username, password string) (string, error) {
	r.mu.Lock()
	acct, ok := r.byUsername[strings.ToLower(strings.TrimSpace(username))]
	r.mu.Unlock()
	if !ok {
		return "", ErrUnknownAccount
	}
	plain, err := securestore.Open(password, acct.Recovery)
	if err != nil {
		return "", contracts.WrapCategorizedError(contracts.ErrorCategoryCrypto, err)
	}
	return string(plain), nil
}

func (r *Registrar) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byUsername)
}

func (r *Registrar) wait(ctx context.Context) error {
	if r.latency <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(r.latency)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (r *Registrar) replayed(key string, result models.RegistrationResult, conflict bool) (models.RegistrationResult, error) {
	if conflict {
		return models.RegistrationResult{}, contracts.WrapCategorizedError(contracts.ErrorCategoryAPI, ErrReplayConflict)
	}
	r.logger.Info("registration replayed",
		"component", "mockregistrar",
		"operation", "register",
		"correlation_id", key,
		"user_id", result.UserID,
	)
	return result, nil
}

func (r *Registrar) replay(key, formHash string) (models.RegistrationResult, bool, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.replays.get(key, formHash, r.now())
}

func (r *Registrar) index(acct *account) {
	r.byUsername[strings.ToLower(acct.Username)] = acct
	r.byEmail[acct.Email] = acct
}

func (r *Registrar) unindex(acct *account) {
	delete(r.byUsername, strings.ToLower(acct.Username))
	delete(r.byEmail, acct.Email)
}

func (r *Registrar) load() error {
	var state persistedState
	if _, err := securestore.ReadSealedJSON(r.statePath, r.stateSecret, &state); err != nil {
		return contracts.WrapCategorizedError(contracts.ErrorCategoryStorage, fmt.Errorf("load registrar state: %w", err))
	}
	for i := range state.Accounts {
		r.index(&state.Accounts[i])
	}
	return nil
}

func (r *Registrar) persistLocked() error {
	if r.statePath == "" {
		return nil
	}
	state := persistedState{Accounts: make([]account, 0, len(r.byUsername))}
	for _, acct := range r.byUsername {
		state.Accounts = append(state.Accounts, *acct)
	}
	if err := securestore.WriteSealedJSON(r.statePath, r.stateSecret, state); err != nil {
		return contracts.WrapCategorizedError(contracts.ErrorCategoryStorage, fmt.Errorf("persist registrar state: %w", err))
	}
	return nil
}

func validate(form models.RegistrationForm) error {
	if form.Username == "" || form.Email == "" || form.Password == "" {
		return ErrMissingField
	}
	if form.Password != form.PasswordConfirmation {
		return ErrPasswordMismatch
	}
	return nil
}

func newRecoveryPhrase() (string, error) {
	entropy, err := bip39.NewEntropy(128)
	if err != nil {
		return "", err
	}
	return bip39.NewMnemonic(entropy)
}

func buildUserID(mnemonic, username string) string {
	h := blake2b.Sum256(bip39.NewSeed(mnemonic, strings.ToLower(username)))
	return userIDPrefix + base58.Encode(h[:16])
}
