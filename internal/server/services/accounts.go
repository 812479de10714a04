// Package services contains the server-side business logic: account
// registration and login, and document storage that keeps the catalog and
// the blob store in step.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/bodypace/internal/common"
	"github.com/dmitrijs2005/bodypace/internal/cryptox"
	"github.com/dmitrijs2005/bodypace/internal/logging"
	"github.com/dmitrijs2005/bodypace/internal/server/auth"
	"github.com/dmitrijs2005/bodypace/internal/server/repositories/repomanager"
)

// TokenResponse is returned by a successful login.
type TokenResponse struct {
	AccessToken string
}

// AccountService registers accounts and exchanges credentials for tokens.
type AccountService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	issuer      *auth.Issuer
	hashCost    int
	log         logging.Logger
}

// NewAccountService constructs an AccountService. hashCost is the bcrypt cost
// used for new passwords.
func NewAccountService(db *sql.DB, m repomanager.RepositoryManager, issuer *auth.Issuer, hashCost int, log logging.Logger) *AccountService {
	return &AccountService{
		db:          db,
		repomanager: m,
		issuer:      issuer,
		hashCost:    hashCost,
		log:         log.With("module", "accounts"),
	}
}

func validateCredentials(username, password string) error {
	if username == "" {
		return common.NewValidationError("username", "must not be empty")
	}
	if password == "" {
		return common.NewValidationError("password", "must not be empty")
	}
	return nil
}

// Register creates an account. A taken username yields common.ErrUsernameTaken.
func (s *AccountService) Register(ctx context.Context, username, password string) error {
	if err := validateCredentials(username, password); err != nil {
		return err
	}

	hash, err := cryptox.HashPassword(password, s.hashCost)
	if err != nil {
		if errors.Is(err, cryptox.ErrPasswordTooLong) {
			return common.NewValidationError("password", "must be at most 72 bytes")
		}
		return fmt.Errorf("%w: hash password: %v", common.ErrorInternal, err)
	}

	repo := s.repomanager.Accounts(s.db)

	_, err = repo.FindByUsername(ctx, username)
	switch {
	case err == nil:
		return common.ErrUsernameTaken
	case !errors.Is(err, common.ErrorNotFound):
		return storeError(ctx, s.log, "find account", err)
	}

	account, err := repo.Create(ctx, username, hash)
	if err != nil {
		if errors.Is(err, common.ErrUsernameTaken) {
			return common.ErrUsernameTaken
		}
		return storeError(ctx, s.log, "create account", err)
	}

	s.log.Info(ctx, "account registered", "account_id", account.ID)
	return nil
}

// Login verifies the password and returns a signed access token. Unknown
// usernames, accounts without a password and wrong passwords all yield
// common.ErrInvalidCredentials.
func (s *AccountService) Login(ctx context.Context, username, password string) (*TokenResponse, error) {
	if err := validateCredentials(username, password); err != nil {
		return nil, err
	}

	account, err := s.repomanager.Accounts(s.db).FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			cryptox.BurnCompare(password)
			return nil, common.ErrInvalidCredentials
		}
		return nil, storeError(ctx, s.log, "find account", err)
	}

	if account.PasswordHash == "" {
		cryptox.BurnCompare(password)
		return nil, common.ErrInvalidCredentials
	}
	if !cryptox.CheckPassword(account.PasswordHash, password) {
		return nil, common.ErrInvalidCredentials
	}

	token, err := s.issuer.Issue(account.ID, account.Username)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	return &TokenResponse{AccessToken: token}, nil
}
