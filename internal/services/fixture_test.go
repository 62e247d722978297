package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"kalam-backend/internal/audit"
	"kalam-backend/internal/config"
	"kalam-backend/internal/gateway"
	"kalam-backend/internal/models"
	"kalam-backend/internal/notify"
	"kalam-backend/internal/repositories"
	"kalam-backend/internal/repositories/repotest"
	"kalam-backend/internal/tokens"

	"github.com/google/uuid"
	mustreq "github.com/stretchr/testify/require"
)

const testEntryFee = 200

type fixture struct {
	cfg      *config.Config
	repo     *repositories.Repository
	store    *repotest.Store
	outbox   *outbox
	provider *fakeProvider
	audit    *memoryAudit

	auth     *AuthService
	cart     *CartService
	orders   *OrderService
	payments *PaymentService
	events   *EventService
	teams    *TeamService
	regs     *RegistrationService
	admin    *AdminService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	cfg := &config.Config{
		Env:              "test",
		QRDir:            t.TempDir(),
		PosterDir:        t.TempDir(),
		JWTSecret:        "access-secret-for-tests",
		JWTRefreshSecret: "refresh-secret-for-tests",
		AccessTokenTTL:   15 * time.Minute,
		RefreshTokenTTL:  24 * time.Hour,
		BcryptCost:       4,
		EntryFee:         testEntryFee,
		PublicBaseURL:    "http://api.kalam.test",
		FrontendURL:      "http://kalam.test",
		CatalogCacheTTL:  time.Minute,
	}

	repo, store := repotest.New()
	f := &fixture{
		cfg:      cfg,
		repo:     repo,
		store:    store,
		outbox:   &outbox{},
		provider: &fakeProvider{},
		audit:    &memoryAudit{},
	}

	f.auth = NewAuthService(repo, cfg, tokens.NewIssuer(cfg), f.outbox)
	f.cart = NewCartService(repo, cfg)
	f.orders = NewOrderService(repo, cfg, f.outbox)
	f.payments = NewPaymentService(repo, cfg, f.provider, f.orders, f.audit)
	f.events = NewEventService(repo, cfg)
	f.teams = NewTeamService(repo, cfg)
	f.regs = NewRegistrationService(repo, cfg)
	f.admin = NewAdminService(repo, cfg, f.events, f.orders, f.payments, f.audit)
	return f
}

func (f *fixture) user(t *testing.T, email string) *models.User {
	t.Helper()
	u, err := f.auth.Register(context.Background(), RegisterInput{
		Name:     "Test User",
		Email:    email,
		College:  "CEG",
		Password: "pw12345678",
	})
	mustreq.NoError(t, err)
	return u
}

func (f *fixture) category(t *testing.T) *models.EventCategory {
	t.Helper()
	c := &models.EventCategory{Name: "Technical " + uuid.NewString()[:6], Slug: "tech-" + uuid.NewString()[:6]}
	mustreq.NoError(t, f.repo.CategoryRepo.CreateCategory(context.Background(), c))
	return c
}

func (f *fixture) department(t *testing.T, code string) *models.Department {
	t.Helper()
	d := &models.Department{Name: "Dept " + code, Code: code}
	mustreq.NoError(t, f.repo.DepartmentRepo.CreateDepartment(context.Background(), d))
	return d
}

type eventOpt func(*models.Event)

func withTeam(min, max int) eventOpt {
	return func(e *models.Event) {
		e.RequiresTeam = true
		e.MinTeamSize = &min
		e.MaxTeamSize = &max
	}
}

func inDepartment(id uuid.UUID) eventOpt {
	return func(e *models.Event) { e.DepartmentID = &id }
}

func (f *fixture) event(t *testing.T, name string, fee int64, opts ...eventOpt) *models.Event {
	t.Helper()
	start := time.Now().Add(48 * time.Hour)
	e := &models.Event{
		Name:       name,
		Slug:       uuid.NewString()[:8] + "-event",
		CategoryID: f.category(t).ID,
		StartsAt:   start,
		EndsAt:     start.Add(3 * time.Hour),
		Fee:        fee,
		IsActive:   true,
	}
	for _, opt := range opts {
		opt(e)
	}
	mustreq.NoError(t, f.repo.EventRepo.CreateEvent(context.Background(), e))
	return e
}

func (f *fixture) superadmin(t *testing.T) *models.Admin {
	t.Helper()
	return f.adminWithRole(t, models.AdminRoleSuperadmin, nil, nil)
}

func (f *fixture) adminWithRole(t *testing.T, role string, dept *uuid.UUID, events []uuid.UUID) *models.Admin {
	t.Helper()
	a := &models.Admin{
		Name:         role,
		Email:        uuid.NewString()[:8] + "@admin.test",
		Password:     "x",
		Role:         role,
		DepartmentID: dept,
	}
	for _, id := range events {
		a.AssignedEvents = append(a.AssignedEvents, models.Event{ID: id})
	}
	mustreq.NoError(t, f.repo.AdminRepo.CreateAdmin(context.Background(), a))
	return a
}

// paidCallback builds the payload a gateway sends for payment.
func paidCallback(p *models.Payment, status string) map[string]string {
	return map[string]string{
		"txnid":    p.ProviderOrderID,
		"status":   status,
		"amount":   gateway.FormatAmount(p.Amount),
		"mihpayid": "mih-" + p.ProviderOrderID,
	}
}

type outbox struct {
	mu   sync.Mutex
	msgs []notify.Message
}

func (o *outbox) Publish(_ context.Context, msg notify.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.msgs = append(o.msgs, msg)
	return nil
}

func (o *outbox) ofType(typ string) []notify.Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []notify.Message
	for _, m := range o.msgs {
		if m.Type == typ {
			out = append(out, m)
		}
	}
	return out
}

type fakeProvider struct {
	reject      bool
	status      *gateway.StatusResult
	queryErr    error
	queries     int
	checkoutErr error
	checkouts   int
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) Checkout(req gateway.CheckoutRequest) (*gateway.Checkout, error) {
	p.checkouts++
	if p.checkoutErr != nil {
		return nil, p.checkoutErr
	}
	if req.TxnID == "" || req.Amount <= 0 {
		return nil, errors.New("checkout needs a txnid and a positive amount")
	}
	return &gateway.Checkout{
		RedirectURL: "https://pay.test/_payment",
		Params: map[string]string{
			"txnid":  req.TxnID,
			"amount": gateway.FormatAmount(req.Amount),
			"udf1":   req.UDF[0],
			"udf2":   req.UDF[1],
			"surl":   req.SuccessURL,
		},
	}, nil
}

func (p *fakeProvider) VerifyCallback(map[string]string, map[string]string) bool {
	return !p.reject
}

func (p *fakeProvider) QueryStatus(_ context.Context, txnID string) (*gateway.StatusResult, error) {
	p.queries++
	if p.queryErr != nil {
		return nil, p.queryErr
	}
	res := *p.status
	res.TxnID = txnID
	return &res, nil
}

type memoryAudit struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (a *memoryAudit) Record(_ context.Context, e audit.Entry) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, e)
	return nil
}

func (a *memoryAudit) ListByTxn(_ context.Context, txnID string, _ int64) ([]audit.Entry, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []audit.Entry
	for i := len(a.entries) - 1; i >= 0; i-- {
		if a.entries[i].TxnID == txnID {
			out = append(out, a.entries[i])
		}
	}
	return out, nil
}

func repoPage() repositories.ListParams {
	return repositories.ListParams{Page: 1, Limit: 20}
}
