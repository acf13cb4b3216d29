package app_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/meridian-bi/meridian/internal/analytics"
	"github.com/meridian-bi/meridian/internal/app"
	"github.com/meridian-bi/meridian/internal/assistant"
	"github.com/meridian-bi/meridian/internal/auth"
	"github.com/meridian-bi/meridian/internal/catalog"
	"github.com/meridian-bi/meridian/internal/demo"
	"github.com/meridian-bi/meridian/internal/export"
	"github.com/meridian-bi/meridian/internal/ingest"
	"github.com/meridian-bi/meridian/internal/receivables"
	"github.com/meridian-bi/meridian/internal/sales"
	"github.com/meridian-bi/meridian/internal/shared"
	"github.com/meridian-bi/meridian/internal/tenancy"
)

// memStore backs every repository port with maps so the full HTTP stack can
// run against it.
type memStore struct {
	mu           sync.Mutex
	nextID       int64
	companies    map[int64]*tenancy.Company
	invitations  map[int64]*tenancy.Invitation
	users        map[int64]*auth.User
	products     map[int64]*catalog.Product
	customers    map[int64]*sales.Customer
	sales        map[int64]*sales.Sale
	receivables  map[int64]*receivables.Receivable
	payments     map[int64][]receivables.Payment
	fingerprints map[string]bool
	convs        map[int64]*assistant.Conversation
	messages     map[int64][]assistant.Message
}

func newMemStore() *memStore {
	return &memStore{
		companies:    make(map[int64]*tenancy.Company),
		invitations:  make(map[int64]*tenancy.Invitation),
		users:        make(map[int64]*auth.User),
		products:     make(map[int64]*catalog.Product),
		customers:    make(map[int64]*sales.Customer),
		sales:        make(map[int64]*sales.Sale),
		receivables:  make(map[int64]*receivables.Receivable),
		payments:     make(map[int64][]receivables.Payment),
		fingerprints: make(map[string]bool),
		convs:        make(map[int64]*assistant.Conversation),
		messages:     make(map[int64][]assistant.Message),
	}
}

func (s *memStore) id() int64 {
	s.nextID++
	return s.nextID
}

// tenancyStore implements tenancy.RepositoryPort.
type tenancyStore struct{ *memStore }

func (s tenancyStore) CreateCompany(ctx context.Context, c tenancy.Company) (*tenancy.Company, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.companies {
		if existing.Slug == c.Slug {
			return nil, tenancy.ErrDuplicateSlug
		}
	}
	c.ID = s.id()
	s.companies[c.ID] = &c
	return &c, nil
}

func (s tenancyStore) GetCompany(ctx context.Context, id int64) (*tenancy.Company, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.companies[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return c, nil
}

func (s tenancyStore) GetCompanyBySlug(ctx context.Context, slug string) (*tenancy.Company, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.companies {
		if c.Slug == slug {
			return c, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (s tenancyStore) UpdateCompany(ctx context.Context, c tenancy.Company) (*tenancy.Company, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.companies[c.ID] = &c
	return &c, nil
}

func (s tenancyStore) DeactivateCompany(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.companies[id]; ok {
		c.IsActive = false
		return nil
	}
	return shared.ErrNotFound
}

func (s tenancyStore) ListCompanies(ctx context.Context) ([]tenancy.Company, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []tenancy.Company
	for _, c := range s.companies {
		out = append(out, *c)
	}
	return out, nil
}

func (s tenancyStore) CreateInvitation(ctx context.Context, inv tenancy.Invitation) (*tenancy.Invitation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv.ID = s.id()
	s.invitations[inv.ID] = &inv
	return &inv, nil
}

func (s tenancyStore) GetInvitationByToken(ctx context.Context, token string) (*tenancy.Invitation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, inv := range s.invitations {
		if inv.Token == token && inv.AcceptedAt == nil && inv.ExpiresAt.After(time.Now()) {
			return inv, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (s tenancyStore) ListInvitations(ctx context.Context, companyID int64) ([]tenancy.Invitation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []tenancy.Invitation
	for _, inv := range s.invitations {
		if inv.CompanyID == companyID {
			out = append(out, *inv)
		}
	}
	return out, nil
}

func (s tenancyStore) MarkInvitationAccepted(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invitations[id]
	if !ok {
		return shared.ErrNotFound
	}
	now := time.Now()
	inv.AcceptedAt = &now
	return nil
}

func (s tenancyStore) PurgeExpiredInvitations(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}

// userStore implements auth.UserRepository.
type userStore struct{ *memStore }

func (s userStore) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (s userStore) FindByID(ctx context.Context, id int64) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return u, nil
}

func (s userStore) Create(ctx context.Context, u auth.User) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.ID = s.id()
	s.users[u.ID] = &u
	return u.ID, nil
}

func (s userStore) ListByCompany(ctx context.Context, companyID int64) ([]auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []auth.User
	for _, u := range s.users {
		if u.CompanyID == companyID {
			out = append(out, *u)
		}
	}
	return out, nil
}

// catalogStore implements catalog.RepositoryPort.
type catalogStore struct{ *memStore }

func (s catalogStore) Create(ctx context.Context, p catalog.Product) (*catalog.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.products {
		if existing.CompanyID == p.CompanyID && existing.SKU == p.SKU {
			return nil, catalog.ErrDuplicateSKU
		}
	}
	p.ID = s.id()
	s.products[p.ID] = &p
	return &p, nil
}

func (s catalogStore) Get(ctx context.Context, companyID, id int64) (*catalog.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok || p.CompanyID != companyID {
		return nil, shared.ErrNotFound
	}
	return p, nil
}

func (s catalogStore) GetBySKU(ctx context.Context, companyID int64, sku string) (*catalog.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.products {
		if p.CompanyID == companyID && p.SKU == sku {
			return p, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (s catalogStore) List(ctx context.Context, filter catalog.ListFilter) ([]catalog.Product, int, error) {
	all, _ := s.ListAll(ctx, filter.CompanyID)
	return all, len(all), nil
}

func (s catalogStore) Update(ctx context.Context, p catalog.Product) (*catalog.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = &p
	return &p, nil
}

func (s catalogStore) Delete(ctx context.Context, companyID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.products, id)
	return nil
}

func (s catalogStore) ListLowStock(ctx context.Context, companyID int64) ([]catalog.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []catalog.Product
	for _, p := range s.products {
		if p.CompanyID == companyID && p.MinStock > 0 && p.Stock <= p.MinStock {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (s catalogStore) ListAll(ctx context.Context, companyID int64) ([]catalog.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []catalog.Product
	for _, p := range s.products {
		if p.CompanyID == companyID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (s catalogStore) AdjustStock(ctx context.Context, m catalog.StockMovement) (*catalog.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[m.ProductID]
	if !ok || p.CompanyID != m.CompanyID {
		return nil, shared.ErrNotFound
	}
	if p.Stock+m.Qty < 0 {
		return nil, catalog.ErrInsufficientStock
	}
	p.Stock += m.Qty
	return p, nil
}

func (s catalogStore) UpdateABCClasses(ctx context.Context, companyID int64, classes map[int64]catalog.ABCClass) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, class := range classes {
		if p, ok := s.products[id]; ok {
			p.ABCClass = class
		}
	}
	return nil
}

// salesStore implements sales.RepositoryPort plus the marker and import ports.
type salesStore struct{ *memStore }

func (s salesStore) CreateCustomer(ctx context.Context, c sales.Customer) (*sales.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = s.id()
	s.customers[c.ID] = &c
	return &c, nil
}

func (s salesStore) GetCustomer(ctx context.Context, companyID, id int64) (*sales.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.customers[id]
	if !ok || c.CompanyID != companyID {
		return nil, shared.ErrNotFound
	}
	return c, nil
}

func (s salesStore) FindCustomerByName(ctx context.Context, companyID int64, name string) (*sales.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.customers {
		if c.CompanyID == companyID && c.Name == name {
			return c, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (s salesStore) ListCustomers(ctx context.Context, companyID int64) ([]sales.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []sales.Customer
	for _, c := range s.customers {
		if c.CompanyID == companyID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (s salesStore) UpdateCustomer(ctx context.Context, c sales.Customer) (*sales.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.customers[c.ID] = &c
	return &c, nil
}

func (s salesStore) DeleteCustomer(ctx context.Context, companyID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.customers, id)
	return nil
}

func (s salesStore) CreateSale(ctx context.Context, sale sales.Sale, dueDate time.Time) (*sales.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range sale.Items {
		p, ok := s.products[item.ProductID]
		if !ok || p.Stock < item.Qty {
			return nil, fmt.Errorf("%w: product %d", catalog.ErrInsufficientStock, item.ProductID)
		}
	}
	for _, item := range sale.Items {
		s.products[item.ProductID].Stock -= item.Qty
	}
	sale.ID = s.id()
	sale.InvoiceNumber = fmt.Sprintf("INV-%06d", sale.ID)
	s.sales[sale.ID] = &sale
	if sale.PaymentStatus != sales.PaymentPaid {
		rec := &receivables.Receivable{
			ID:            s.id(),
			CompanyID:     sale.CompanyID,
			SaleID:        sale.ID,
			InvoiceNumber: sale.InvoiceNumber,
			CustomerID:    sale.CustomerID,
			CustomerName:  sale.CustomerName,
			Amount:        sale.Total,
			Status:        receivables.StatusPending,
			DueAt:         dueDate,
		}
		s.receivables[rec.ID] = rec
	}
	return &sale, nil
}

func (s salesStore) GetSale(ctx context.Context, companyID, id int64) (*sales.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sale, ok := s.sales[id]
	if !ok || sale.CompanyID != companyID {
		return nil, shared.ErrNotFound
	}
	return sale, nil
}

func (s salesStore) ListSales(ctx context.Context, filter sales.ListFilter) ([]sales.Sale, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []sales.Sale
	for _, sale := range s.sales {
		if sale.CompanyID == filter.CompanyID {
			out = append(out, *sale)
		}
	}
	return out, len(out), nil
}

func (s salesStore) Summarize(ctx context.Context, companyID int64, from, to time.Time) (sales.Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var sum sales.Summary
	for _, sale := range s.sales {
		if sale.CompanyID != companyID || sale.SoldAt.Before(from) || sale.SoldAt.After(to) {
			continue
		}
		sum.Count++
		sum.Revenue += sale.Total
		sum.TaxCollected += sale.TaxAmount
	}
	if sum.Count > 0 {
		sum.AvgTicket = sum.Revenue / float64(sum.Count)
	}
	return sum, nil
}

func (s salesStore) MarkPaymentStatus(ctx context.Context, companyID, saleID int64, status sales.PaymentStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sale, ok := s.sales[saleID]
	if !ok || sale.CompanyID != companyID {
		return shared.ErrNotFound
	}
	sale.PaymentStatus = status
	return nil
}

// arStore implements receivables.RepositoryPort.
type arStore struct{ *memStore }

func (s arStore) Get(ctx context.Context, companyID, id int64) (*receivables.Receivable, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.receivables[id]
	if !ok || rec.CompanyID != companyID {
		return nil, shared.ErrNotFound
	}
	return rec, nil
}

func (s arStore) List(ctx context.Context, filter receivables.ListFilter) ([]receivables.Receivable, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []receivables.Receivable
	for _, rec := range s.receivables {
		if rec.CompanyID != filter.CompanyID {
			continue
		}
		if filter.Status != "" && rec.Status != filter.Status {
			continue
		}
		out = append(out, *rec)
	}
	return out, len(out), nil
}

func (s arStore) ListOutstanding(ctx context.Context, companyID int64) ([]receivables.Receivable, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []receivables.Receivable
	for _, rec := range s.receivables {
		if rec.CompanyID == companyID && rec.Status != receivables.StatusPaid {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (s arStore) RecordPayment(ctx context.Context, payment receivables.Payment) (*receivables.Receivable, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.receivables[payment.ReceivableID]
	if !ok || rec.CompanyID != payment.CompanyID {
		return nil, shared.ErrNotFound
	}
	if rec.Status == receivables.StatusPaid {
		return nil, receivables.ErrAlreadyPaid
	}
	if payment.Amount > rec.Outstanding()+0.005 {
		return nil, receivables.ErrOverpayment
	}
	rec.PaidAmount += payment.Amount
	if rec.Outstanding() <= 0.005 {
		rec.Status = receivables.StatusPaid
		paidAt := payment.PaidAt
		rec.PaidAt = &paidAt
	} else {
		rec.Status = receivables.StatusPartial
	}
	s.payments[rec.ID] = append(s.payments[rec.ID], payment)
	return rec, nil
}

func (s arStore) ListPayments(ctx context.Context, companyID, receivableID int64) ([]receivables.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.payments[receivableID], nil
}

func (s arStore) RefreshOverdue(ctx context.Context, asOf time.Time) (int64, error) {
	return 0, nil
}

// statsStore implements analytics.RepositoryPort over the same maps.
type statsStore struct{ *memStore }

func (s statsStore) InventoryTotals(ctx context.Context, companyID int64) (float64, float64, int, int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var value, units float64
	var count, oos, low int
	for _, p := range s.products {
		if p.CompanyID != companyID || !p.IsActive {
			continue
		}
		value += p.Stock * p.Cost
		units += p.Stock
		count++
		if p.Stock <= 0 {
			oos++
		} else if p.MinStock > 0 && p.Stock <= p.MinStock {
			low++
		}
	}
	return value, units, count, oos, low, nil
}

func (s statsStore) SalesStats(ctx context.Context, companyID int64, from, to time.Time) (float64, float64, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var revenue, cogs float64
	var count int
	for _, sale := range s.sales {
		if sale.CompanyID != companyID || sale.SoldAt.Before(from) || sale.SoldAt.After(to) {
			continue
		}
		revenue += sale.Total
		count++
		for _, item := range sale.Items {
			if p, ok := s.products[item.ProductID]; ok {
				cogs += item.Qty * p.Cost
			}
		}
	}
	return revenue, cogs, count, nil
}

func (s statsStore) OutstandingReceivables(ctx context.Context, companyID int64) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total float64
	for _, rec := range s.receivables {
		if rec.CompanyID == companyID && rec.Status != receivables.StatusPaid {
			total += rec.Outstanding()
		}
	}
	return total, nil
}

func (s statsStore) MonthlyRevenue(ctx context.Context, companyID int64, months int) ([]analytics.TrendPoint, error) {
	return nil, nil
}

func (s statsStore) AnnualConsumption(ctx context.Context, companyID int64) ([]analytics.ConsumptionItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []analytics.ConsumptionItem
	for _, p := range s.products {
		if p.CompanyID == companyID {
			out = append(out, analytics.ConsumptionItem{ProductID: p.ID, SKU: p.SKU, Name: p.Name, Value: p.Stock * p.Price})
		}
	}
	return out, nil
}

func (s statsStore) Statistics(ctx context.Context, companyID int64) (analytics.DataStatistics, error) {
	return analytics.DataStatistics{}, nil
}

func (s statsStore) ReplaceAlertSnapshot(ctx context.Context, companyID int64, alerts []analytics.Alert) error {
	return nil
}

// chatStore implements assistant.RepositoryPort.
type chatStore struct{ *memStore }

func (s chatStore) CreateConversation(ctx context.Context, companyID, userID int64, title string) (*assistant.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := &assistant.Conversation{ID: s.id(), CompanyID: companyID, UserID: userID, Title: title}
	s.convs[c.ID] = c
	return c, nil
}

func (s chatStore) GetConversation(ctx context.Context, companyID, userID, id int64) (*assistant.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.convs[id]
	if !ok || c.CompanyID != companyID || c.UserID != userID {
		return nil, shared.ErrNotFound
	}
	return c, nil
}

func (s chatStore) ListConversations(ctx context.Context, companyID, userID int64) ([]assistant.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []assistant.Conversation
	for _, c := range s.convs {
		if c.CompanyID == companyID && c.UserID == userID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (s chatStore) AppendMessage(ctx context.Context, conversationID int64, role, content string) (*assistant.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := assistant.Message{ID: s.id(), ConversationID: conversationID, Role: role, Content: content}
	s.messages[conversationID] = append(s.messages[conversationID], m)
	return &m, nil
}

func (s chatStore) ListMessages(ctx context.Context, conversationID int64) ([]assistant.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.messages[conversationID], nil
}

func (s chatStore) RecentMessages(ctx context.Context, conversationID int64, limit int) ([]assistant.Message, error) {
	msgs, _ := s.ListMessages(ctx, conversationID)
	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return msgs, nil
}

type fingerprintStore struct{ *memStore }

func (s fingerprintStore) CheckAndInsert(ctx context.Context, key, module string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fingerprints[key] {
		return shared.ErrIdempotencyConflict
	}
	s.fingerprints[key] = true
	return nil
}

func (s fingerprintStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.fingerprints, key)
	return nil
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	store := newMemStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := &app.Config{AppEnv: "test", AppRequestTimeout: 10 * time.Second}

	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = redisClient.Close() })

	users := userStore{store}
	tokens := auth.NewTokenStore(redisClient, time.Hour)
	authService := auth.NewService(users, tokens)
	authenticator := &auth.Middleware{Tokens: tokens, Logger: logger}
	authHandler := auth.NewHandler(logger, authService, authenticator)

	tenancyService := tenancy.NewService(tenancyStore{store}, users, nil)
	tenancyHandler := tenancy.NewHandler(logger, tenancyService)

	catalogRepo := catalogStore{store}
	catalogService := catalog.NewService(catalogRepo, nil)
	catalogHandler := catalog.NewHandler(logger, catalogService)

	salesRepo := salesStore{store}
	salesService := sales.NewService(salesRepo, catalogRepo, nil, nil)
	salesHandler := sales.NewHandler(logger, salesService)

	arRepo := arStore{store}
	receivablesService := receivables.NewService(arRepo, salesRepo, nil, nil)
	receivablesHandler := receivables.NewHandler(logger, receivablesService)

	analyticsService := analytics.NewService(statsStore{store}, catalogRepo, nil)
	analyticsHandler := analytics.NewHandler(logger, analyticsService, authenticator.RequireRole(shared.RoleAdmin))

	ingestService := ingest.NewService(logger, catalogRepo, salesRepo, fingerprintStore{store}, nil, nil)
	ingestHandler := ingest.NewHandler(logger, ingestService, 1<<20)

	assistantService := assistant.NewService(chatStore{store}, assistant.NewGeminiClient("", "test"), analyticsService)
	assistantHandler := assistant.NewHandler(logger, assistantService)

	exportService := export.NewService(catalogRepo, salesRepo, arRepo, analyticsService, tenancyStore{store})
	exportHandler := export.NewHandler(logger, exportService)

	demoHandler := demo.NewHandler(logger, demo.NewGenerator(catalogRepo, salesRepo, nil))

	return app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		AuthHandler:        authHandler,
		TenancyHandler:     tenancyHandler,
		CatalogHandler:     catalogHandler,
		SalesHandler:       salesHandler,
		ReceivablesHandler: receivablesHandler,
		AnalyticsHandler:   analyticsHandler,
		IngestHandler:      ingestHandler,
		AssistantHandler:   assistantHandler,
		ExportHandler:      exportHandler,
		DemoHandler:        demoHandler,
		Authenticator:      authenticator,
	})
}

func doJSON(t *testing.T, handler http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dest any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dest))
}

func signupAndLogin(t *testing.T, handler http.Handler) string {
	t.Helper()
	rec := doJSON(t, handler, http.MethodPost, "/api/companies", "", map[string]any{
		"company_name":   "ACME Trading",
		"admin_email":    "admin@acme.test",
		"admin_name":     "Admin",
		"admin_password": "very-secret-pw",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = doJSON(t, handler, http.MethodPost, "/api/auth/login", "", map[string]any{
		"email":    "admin@acme.test",
		"password": "very-secret-pw",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var login struct {
		Token string `json:"token"`
	}
	decodeBody(t, rec, &login)
	require.NotEmpty(t, login.Token)
	return login.Token
}

func TestRouterRejectsMissingToken(t *testing.T) {
	handler := newTestRouter(t)
	rec := doJSON(t, handler, http.MethodGet, "/api/products", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHealthz(t *testing.T) {
	handler := newTestRouter(t)
	rec := doJSON(t, handler, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestOutOfStockProductShowsInAlerts(t *testing.T) {
	handler := newTestRouter(t)
	token := signupAndLogin(t, handler)

	rec := doJSON(t, handler, http.MethodPost, "/api/products", token, map[string]any{
		"sku":       "W-001",
		"name":      "Widget",
		"price":     1000,
		"stock":     0,
		"min_stock": 10,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = doJSON(t, handler, http.MethodGet, "/api/inventory/alerts", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Alerts []analytics.Alert `json:"alerts"`
	}
	decodeBody(t, rec, &body)
	require.Len(t, body.Alerts, 1)
	require.Equal(t, analytics.AlertOutOfStock, body.Alerts[0].Type)
	require.Equal(t, "W-001", body.Alerts[0].SKU)
}

func TestSaleOnCreditCreatesReceivable(t *testing.T) {
	handler := newTestRouter(t)
	token := signupAndLogin(t, handler)

	rec := doJSON(t, handler, http.MethodPost, "/api/products", token, map[string]any{
		"sku": "W-001", "name": "Widget", "price": 1000, "stock": 50,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var product catalog.Product
	decodeBody(t, rec, &product)

	rec = doJSON(t, handler, http.MethodPost, "/api/customers", token, map[string]any{"name": "ACME Ltda"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var customer sales.Customer
	decodeBody(t, rec, &customer)

	rec = doJSON(t, handler, http.MethodPost, "/api/sales", token, map[string]any{
		"customer_id": customer.ID,
		"tax_rate":    0.19,
		"items":       []map[string]any{{"product_id": product.ID, "qty": 3}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var sale sales.Sale
	decodeBody(t, rec, &sale)
	require.InDelta(t, 3570, sale.Total, 1e-9)

	// Stock moved with the sale.
	rec = doJSON(t, handler, http.MethodGet, fmt.Sprintf("/api/products/%d", product.ID), token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &product)
	require.InDelta(t, 47, product.Stock, 1e-9)

	// An unpaid sale opens a receivable for the full total.
	rec = doJSON(t, handler, http.MethodGet, "/api/collections", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Receivables []receivables.Receivable `json:"receivables"`
	}
	decodeBody(t, rec, &list)
	require.Len(t, list.Receivables, 1)
	require.InDelta(t, sale.Total, list.Receivables[0].Amount, 1e-9)
	require.Equal(t, receivables.StatusPending, list.Receivables[0].Status)
	require.Contains(t, rec.Body.String(), `"status":"pending"`)

	// The documented status values filter directly.
	rec = doJSON(t, handler, http.MethodGet, "/api/collections?status=pending", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &list)
	require.Len(t, list.Receivables, 1)
}

func TestImportEndpointAcceptsCSVUpload(t *testing.T) {
	handler := newTestRouter(t)
	token := signupAndLogin(t, handler)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "productos.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte("sku,name,price,stock\nA1,Thing,10,5\n"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/import/products", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var report ingest.Report
	decodeBody(t, rec, &report)
	require.Equal(t, 1, report.Imported)

	rec2 := doJSON(t, handler, http.MethodGet, "/api/products", token, nil)
	require.Equal(t, http.StatusOK, rec2.Code)
	require.Contains(t, rec2.Body.String(), "A1")
}

func TestExportInventoryCSV(t *testing.T) {
	handler := newTestRouter(t)
	token := signupAndLogin(t, handler)

	rec := doJSON(t, handler, http.MethodPost, "/api/products", token, map[string]any{
		"sku": "W-001", "name": "Widget", "price": 1000, "stock": 5,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, handler, http.MethodGet, "/api/export/inventory?format=csv", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
	require.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")
	require.Contains(t, rec.Body.String(), "W-001")
}

func TestChatWithoutAPIKeyDegrades(t *testing.T) {
	handler := newTestRouter(t)
	token := signupAndLogin(t, handler)

	rec := doJSON(t, handler, http.MethodPost, "/api/chat/messages", token, map[string]any{
		"content": "how is my inventory?",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Contains(t, rec.Body.String(), "not configured")
}

func TestAdminRoutesRejectViewerRole(t *testing.T) {
	handler := newTestRouter(t)

	rec := doJSON(t, handler, http.MethodPost, "/api/companies", "", map[string]any{
		"company_name":   "ACME Trading",
		"admin_email":    "admin@acme.test",
		"admin_name":     "Admin",
		"admin_password": "very-secret-pw",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var company tenancy.Company
	decodeBody(t, rec, &company)

	rec = doJSON(t, handler, http.MethodPost, "/api/auth/login", "", map[string]any{
		"email": "admin@acme.test", "password": "very-secret-pw",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var adminLogin struct {
		Token string `json:"token"`
	}
	decodeBody(t, rec, &adminLogin)

	rec = doJSON(t, handler, http.MethodPost, fmt.Sprintf("/api/companies/%d/invitations", company.ID), adminLogin.Token, map[string]any{
		"email": "viewer@acme.test", "role": "viewer",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var inv tenancy.Invitation
	decodeBody(t, rec, &inv)

	rec = doJSON(t, handler, http.MethodPost, "/api/invitations/"+inv.Token+"/accept", "", map[string]any{
		"name": "Viewer", "password": "viewer-secret-pw",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = doJSON(t, handler, http.MethodPost, "/api/auth/login", "", map[string]any{
		"email": "viewer@acme.test", "password": "viewer-secret-pw",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var viewerLogin struct {
		Token string `json:"token"`
	}
	decodeBody(t, rec, &viewerLogin)

	rec = doJSON(t, handler, http.MethodPost, "/api/generate-test-data", viewerLogin.Token, map[string]any{"seed": 7})
	require.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())

	rec = doJSON(t, handler, http.MethodPost, "/api/analytics/abc/reclassify", viewerLogin.Token, nil)
	require.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())

	// An admin passes the same gates.
	rec = doJSON(t, handler, http.MethodPost, "/api/analytics/abc/reclassify", adminLogin.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestGenerateTestData(t *testing.T) {
	handler := newTestRouter(t)
	token := signupAndLogin(t, handler)

	rec := doJSON(t, handler, http.MethodPost, "/api/generate-test-data", token, map[string]any{"seed": 42})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var result demo.Result
	decodeBody(t, rec, &result)
	require.Positive(t, result.Products)
	require.Positive(t, result.Sales)

	rec = doJSON(t, handler, http.MethodGet, "/api/analytics/kpis", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var summary analytics.KPISummary
	decodeBody(t, rec, &summary)
	require.Positive(t, summary.Revenue)
	require.Positive(t, summary.ProductCount)
}
