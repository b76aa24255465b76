package service

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/AlibekovAA/book-exchange/backend/internal/account/domain"
	"github.com/AlibekovAA/book-exchange/backend/internal/common/clock"
	commoncrypto "github.com/AlibekovAA/book-exchange/backend/internal/common/crypto"
	commonerrors "github.com/AlibekovAA/book-exchange/backend/internal/common/errors"
	"github.com/AlibekovAA/book-exchange/backend/internal/common/logger"
	"github.com/AlibekovAA/book-exchange/backend/internal/observability/metrics"
	"github.com/AlibekovAA/book-exchange/backend/internal/recordstore"
)

type AccountServiceDeps struct {
	Store  recordstore.Store[domain.Account]
	Hasher commoncrypto.PasswordHasher
	Tokens *TokenIssuer
	Clock  clock.Clock
	Log    *logger.Logger
}

// AccountService is the account directory: registration, credential checks
// and read-only lookups.
type AccountService struct {
	store  recordstore.Store[domain.Account]
	hasher commoncrypto.PasswordHasher
	tokens *TokenIssuer
	clock  clock.Clock
	log    *logger.Logger

	dummyOnce sync.Once
	dummyHash string
}

func NewAccountService(deps AccountServiceDeps) *AccountService {
	c := deps.Clock
	if c == nil {
		c = clock.NewRealClock()
	}
	return &AccountService{
		store:  deps.Store,
		hasher: deps.Hasher,
		tokens: deps.Tokens,
		clock:  c,
		log:    deps.Log,
	}
}

type RegisterInput struct {
	Name     string
	Email    string
	Mobile   string
	Password string
	Role     string
}

type AuthenticateInput struct {
	Email    string
	Password string
}

type SessionResult struct {
	Account domain.Profile
	Token   string
}

func (s *AccountService) Register(ctx context.Context, input RegisterInput) (SessionResult, error) {
	input.Email = strings.TrimSpace(input.Email)

	s.log.WithFields(ctx, logger.Fields{
		"email":  input.Email,
		"action": "register_attempt",
	}).Info("register attempt")

	role, err := validateRegistration(input)
	if err != nil {
		s.log.WithFields(ctx, logger.Fields{
			"email":  input.Email,
			"action": "register_validation_failed",
		}).Warnf("register validation failed: %v", err)
		return SessionResult{}, err
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		s.log.WithFields(ctx, logger.Fields{
			"email":  input.Email,
			"action": "register_hash_failed",
		}).Errorf("register failed: password hash error: %v", err)
		return SessionResult{}, commonerrors.ErrInternalError.WithCause(err)
	}

	account := domain.Account{
		Name:         input.Name,
		Email:        input.Email,
		Mobile:       input.Mobile,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    s.clock.Now(),
	}

	account, err = s.store.AppendUnless(ctx, account, func(existing domain.Account) bool {
		return existing.Email == account.Email
	})
	if err != nil {
		if errors.Is(err, recordstore.ErrConflict) {
			s.log.WithFields(ctx, logger.Fields{
				"email":  input.Email,
				"action": "register_email_exists",
			}).Warn("register failed: already exists")
			return SessionResult{}, ErrEmailTaken
		}
		return SessionResult{}, s.storeError(ctx, "register", err)
	}

	token, err := s.issueToken(ctx, account)
	if err != nil {
		return SessionResult{}, err
	}

	metrics.AccountsRegisteredTotal.Inc()
	s.log.WithFields(ctx, logger.Fields{
		"account_id": account.ID,
		"role":       string(account.Role),
		"action":     "register_success",
	}).Info("register success")

	return SessionResult{Account: account.Profile(), Token: token}, nil
}

// Authenticate never reveals whether the email or the password was wrong.
func (s *AccountService) Authenticate(ctx context.Context, input AuthenticateInput) (SessionResult, error) {
	input.Email = strings.TrimSpace(input.Email)

	s.log.WithFields(ctx, logger.Fields{
		"email":  input.Email,
		"action": "authenticate_attempt",
	}).Info("authenticate attempt")

	if input.Email == "" || input.Password == "" {
		return SessionResult{}, ErrCredentialsRequired
	}
	if err := validateEmail(input.Email); err != nil {
		return SessionResult{}, err
	}

	accounts, err := s.store.LoadAll(ctx)
	if err != nil {
		return SessionResult{}, s.storeError(ctx, "authenticate", err)
	}

	idx, found := recordstore.FindFirst(accounts, func(a domain.Account) bool {
		return a.Email == input.Email
	})
	if !found {
		// Unknown emails still pay for one hash comparison.
		_ = s.hasher.Compare(s.placeholderHash(), input.Password)
		s.log.WithFields(ctx, logger.Fields{
			"email":  input.Email,
			"action": "authenticate_unknown_email",
		}).Warn("authenticate failed")
		metrics.AuthenticationsTotal.WithLabelValues("failure").Inc()
		return SessionResult{}, ErrInvalidCredentials
	}

	account := accounts[idx]
	if err := s.hasher.Compare(account.PasswordHash, input.Password); err != nil {
		s.log.WithFields(ctx, logger.Fields{
			"account_id": account.ID,
			"action":     "authenticate_password_mismatch",
		}).Warn("authenticate failed")
		metrics.AuthenticationsTotal.WithLabelValues("failure").Inc()
		return SessionResult{}, ErrInvalidCredentials
	}

	token, err := s.issueToken(ctx, account)
	if err != nil {
		return SessionResult{}, err
	}

	metrics.AuthenticationsTotal.WithLabelValues("success").Inc()
	s.log.WithFields(ctx, logger.Fields{
		"account_id": account.ID,
		"action":     "authenticate_success",
	}).Info("authenticate success")

	return SessionResult{Account: account.Profile(), Token: token}, nil
}

func (s *AccountService) placeholderHash() string {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash("book-exchange-placeholder")
		if err != nil {
			s.log.Errorf("placeholder hash failed: %v", err)
			return
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}

func (s *AccountService) GetByID(ctx context.Context, id string) (domain.Profile, error) {
	if id == "" {
		return domain.Profile{}, ErrAccountNotFound
	}

	accounts, err := s.store.LoadAll(ctx)
	if err != nil {
		return domain.Profile{}, s.storeError(ctx, "get_account", err)
	}

	idx, found := recordstore.FindFirst(accounts, recordstore.ByID[domain.Account](id))
	if !found {
		return domain.Profile{}, ErrAccountNotFound
	}
	return accounts[idx].Profile(), nil
}

func (s *AccountService) issueToken(ctx context.Context, account domain.Account) (string, error) {
	if s.tokens == nil {
		return "", nil
	}
	token, err := s.tokens.IssueSessionToken(account)
	if err != nil {
		s.log.WithFields(ctx, logger.Fields{
			"account_id": account.ID,
			"action":     "token_issue_failed",
		}).Errorf("token issue failed: %v", err)
		return "", commonerrors.ErrInternalError.WithCause(err)
	}
	return token, nil
}

func (s *AccountService) storeError(ctx context.Context, op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	s.log.WithFields(ctx, logger.Fields{
		"op":     op,
		"action": "account_store_failed",
	}).Errorf("account store failed: %v", err)
	return commonerrors.ErrStorage.WithCause(err)
}
