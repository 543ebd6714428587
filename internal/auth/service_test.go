package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/timebankhq/timebank-backend/internal/accounts"
	pkgauth "github.com/timebankhq/timebank-backend/pkg/auth"
	"github.com/timebankhq/timebank-backend/pkg/auth/session"
	"github.com/timebankhq/timebank-backend/pkg/config"
	"github.com/timebankhq/timebank-backend/pkg/db/models"
	"github.com/timebankhq/timebank-backend/pkg/enums"
	pkgerrors "github.com/timebankhq/timebank-backend/pkg/errors"
	"github.com/timebankhq/timebank-backend/pkg/outbox"
	"github.com/timebankhq/timebank-backend/pkg/security"
)

type fakeAccountsRepo struct {
	findByEmailFn func(ctx context.Context, email string) (*models.Account, error)
	findByIDFn    func(ctx context.Context, id uuid.UUID) (*models.Account, error)
	createFn      func(ctx context.Context, account *models.Account) error
	created       []*models.Account
	deltas        []accounts.Delta
	lastLogins    []uuid.UUID
}

func (f *fakeAccountsRepo) WithTx(tx *gorm.DB) accounts.Repository { return f }

func (f *fakeAccountsRepo) Create(ctx context.Context, account *models.Account) error {
	if f.createFn != nil {
		if err := f.createFn(ctx, account); err != nil {
			return err
		}
	}
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	f.created = append(f.created, account)
	return nil
}

func (f *fakeAccountsRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	if f.findByIDFn != nil {
		return f.findByIDFn(ctx, id)
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeAccountsRepo) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	if f.findByEmailFn != nil {
		return f.findByEmailFn(ctx, email)
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeAccountsRepo) ApplyDelta(ctx context.Context, id uuid.UUID, delta accounts.Delta) error {
	f.deltas = append(f.deltas, delta)
	return nil
}

func (f *fakeAccountsRepo) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	f.lastLogins = append(f.lastLogins, id)
	return nil
}

type fakeTxRunner struct{}

func (f *fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

type fakeOutbox struct {
	events []outbox.DomainEvent
}

func (f *fakeOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	f.events = append(f.events, event)
	return nil
}

type fakeSessionManager struct {
	generated []string
	revoked   []string
	rotateErr error
}

func (f *fakeSessionManager) Generate(ctx context.Context, accessID string) (string, error) {
	f.generated = append(f.generated, accessID)
	return "refresh-" + accessID, nil
}

func (f *fakeSessionManager) Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error) {
	if f.rotateErr != nil {
		return "", "", f.rotateErr
	}
	next := session.NewAccessID()
	return next, "refresh-" + next, nil
}

func (f *fakeSessionManager) Revoke(ctx context.Context, accessID string) error {
	f.revoked = append(f.revoked, accessID)
	return nil
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "test-secret",
		Issuer:            "timebank",
		ExpirationMinutes: 15,
	}
}

func testPasswordConfig() config.PasswordConfig {
	return config.PasswordConfig{
		ArgonMemoryKB:    8192,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     16,
		ArgonKeyLen:      32,
	}
}

type authFixture struct {
	repo    *fakeAccountsRepo
	outbox  *fakeOutbox
	session *fakeSessionManager
	svc     Service
}

func newAuthFixture(t *testing.T, grantHours string) *authFixture {
	t.Helper()
	f := &authFixture{
		repo:    &fakeAccountsRepo{},
		outbox:  &fakeOutbox{},
		session: &fakeSessionManager{},
	}
	svc, err := NewService(ServiceParams{
		AccountsRepo:   f.repo,
		TxRunner:       &fakeTxRunner{},
		Outbox:         f.outbox,
		SessionManager: f.session,
		JWTConfig:      testJWTConfig(),
		PasswordConfig: testPasswordConfig(),
		LedgerConfig:   config.LedgerConfig{SignupGrantHours: grantHours},
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	f.svc = svc
	return f
}

func TestRegisterGrantsSignupHours(t *testing.T) {
	f := newAuthFixture(t, "2")

	resp, err := f.svc.Register(context.Background(), RegisterRequest{
		Email:    "  Alice@Example.COM ",
		Password: "correct horse battery",
		Name:     "Alice",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if len(f.repo.created) != 1 {
		t.Fatalf("expected one account created, got %d", len(f.repo.created))
	}
	created := f.repo.created[0]
	if created.Email != "alice@example.com" {
		t.Fatalf("expected normalized email, got %q", created.Email)
	}
	if created.Role != enums.AccountRoleBoth {
		t.Fatalf("expected default role both, got %s", created.Role)
	}

	if len(f.repo.deltas) != 1 || !f.repo.deltas[0].Earned.Equal(decimal.RequireFromString("2")) {
		t.Fatal("expected a 2 hour signup grant")
	}
	if len(f.outbox.events) != 1 || f.outbox.events[0].EventType != enums.EventBalanceAdjusted {
		t.Fatal("expected a balance_adjusted event for the grant")
	}
	if !resp.Account.EarnedHours.Equal(decimal.RequireFromString("2")) {
		t.Fatalf("expected profile to carry the grant, got %s earned", resp.Account.EarnedHours)
	}
}

func TestRegisterZeroGrantSkipsLedgerWrite(t *testing.T) {
	f := newAuthFixture(t, "0")

	_, err := f.svc.Register(context.Background(), RegisterRequest{
		Email:    "bob@example.com",
		Password: "correct horse battery",
		Name:     "Bob",
		Role:     enums.AccountRoleProvider,
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if len(f.repo.deltas) != 0 || len(f.outbox.events) != 0 {
		t.Fatal("expected no grant delta or event when the grant is zero")
	}
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	f := newAuthFixture(t, "2")
	f.repo.findByEmailFn = func(ctx context.Context, email string) (*models.Account, error) {
		return &models.Account{ID: uuid.New(), Email: email}, nil
	}

	_, err := f.svc.Register(context.Background(), RegisterRequest{
		Email:    "alice@example.com",
		Password: "correct horse battery",
		Name:     "Alice",
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestRegisterMapsUniqueViolationToConflict(t *testing.T) {
	f := newAuthFixture(t, "2")
	f.repo.createFn = func(ctx context.Context, account *models.Account) error {
		return errors.New(`ERROR: duplicate key value violates unique constraint "ux_accounts_email" (SQLSTATE 23505)`)
	}

	_, err := f.svc.Register(context.Background(), RegisterRequest{
		Email:    "alice@example.com",
		Password: "correct horse battery",
		Name:     "Alice",
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict on unique violation, got %v", err)
	}
}

func TestRegisterRejectsAdminRole(t *testing.T) {
	f := newAuthFixture(t, "2")

	_, err := f.svc.Register(context.Background(), RegisterRequest{
		Email:    "root@example.com",
		Password: "correct horse battery",
		Name:     "Root",
		Role:     enums.AccountRoleAdmin,
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func seedCredentials(t *testing.T, f *authFixture, password string, active bool) *models.Account {
	t.Helper()
	hash, err := security.HashPassword(password, testPasswordConfig())
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	account := &models.Account{
		ID:           uuid.New(),
		Email:        "alice@example.com",
		PasswordHash: hash,
		Name:         "Alice",
		Role:         enums.AccountRoleBoth,
		IsActive:     active,
	}
	f.repo.findByEmailFn = func(ctx context.Context, email string) (*models.Account, error) {
		if email == account.Email {
			return account, nil
		}
		return nil, gorm.ErrRecordNotFound
	}
	f.repo.findByIDFn = func(ctx context.Context, id uuid.UUID) (*models.Account, error) {
		if id == account.ID {
			return account, nil
		}
		return nil, gorm.ErrRecordNotFound
	}
	return account
}

func TestLoginIssuesTokenPair(t *testing.T) {
	f := newAuthFixture(t, "2")
	account := seedCredentials(t, f, "correct horse battery", true)

	resp, err := f.svc.Login(context.Background(), LoginRequest{
		Email:    "Alice@Example.com",
		Password: "correct horse battery",
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	claims, err := pkgauth.ParseAccessToken(testJWTConfig(), resp.AccessToken)
	if err != nil {
		t.Fatalf("parse minted token: %v", err)
	}
	if claims.AccountID != account.ID {
		t.Fatal("expected token bound to the account")
	}
	if claims.Role != enums.AccountRoleBoth {
		t.Fatalf("expected role both in claims, got %s", claims.Role)
	}
	if resp.RefreshToken == "" {
		t.Fatal("expected a refresh token")
	}
	if len(f.repo.lastLogins) != 1 {
		t.Fatal("expected last login recorded")
	}
}

func TestLoginRejectsBadPassword(t *testing.T) {
	f := newAuthFixture(t, "2")
	seedCredentials(t, f, "correct horse battery", true)

	_, err := f.svc.Login(context.Background(), LoginRequest{
		Email:    "alice@example.com",
		Password: "wrong",
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestLoginRejectsInactiveAccount(t *testing.T) {
	f := newAuthFixture(t, "2")
	seedCredentials(t, f, "correct horse battery", false)

	_, err := f.svc.Login(context.Background(), LoginRequest{
		Email:    "alice@example.com",
		Password: "correct horse battery",
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestRefreshRotatesSession(t *testing.T) {
	f := newAuthFixture(t, "2")
	account := seedCredentials(t, f, "correct horse battery", true)

	login, err := f.svc.Login(context.Background(), LoginRequest{
		Email:    "alice@example.com",
		Password: "correct horse battery",
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	resp, err := f.svc.Refresh(context.Background(), RefreshRequest{
		AccessToken:  login.AccessToken,
		RefreshToken: login.RefreshToken,
	})
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if resp.AccessToken == login.AccessToken {
		t.Fatal("expected a new access token")
	}
	claims, err := pkgauth.ParseAccessToken(testJWTConfig(), resp.AccessToken)
	if err != nil {
		t.Fatalf("parse rotated token: %v", err)
	}
	if claims.AccountID != account.ID {
		t.Fatal("expected rotated token bound to the account")
	}
}

func TestRefreshRejectsInvalidRefreshToken(t *testing.T) {
	f := newAuthFixture(t, "2")
	seedCredentials(t, f, "correct horse battery", true)
	f.session.rotateErr = session.ErrInvalidRefreshToken

	login, err := f.svc.Login(context.Background(), LoginRequest{
		Email:    "alice@example.com",
		Password: "correct horse battery",
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	_, err = f.svc.Refresh(context.Background(), RefreshRequest{
		AccessToken:  login.AccessToken,
		RefreshToken: "stolen",
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	f := newAuthFixture(t, "2")

	if err := f.svc.Logout(context.Background(), "access-id"); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if len(f.session.revoked) != 1 || f.session.revoked[0] != "access-id" {
		t.Fatal("expected the session revoked")
	}
}
