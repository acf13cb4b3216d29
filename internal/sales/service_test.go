package sales

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meridian-bi/meridian/internal/catalog"
	"github.com/meridian-bi/meridian/internal/shared"
)

type memorySalesRepo struct {
	nextID    int64
	customers map[int64]*Customer
	sales     map[int64]*Sale
	dueDates  map[int64]time.Time
}

func newMemorySalesRepo() *memorySalesRepo {
	return &memorySalesRepo{
		customers: make(map[int64]*Customer),
		sales:     make(map[int64]*Sale),
		dueDates:  make(map[int64]time.Time),
	}
}

func (r *memorySalesRepo) CreateCustomer(ctx context.Context, c Customer) (*Customer, error) {
	r.nextID++
	c.ID = r.nextID
	r.customers[c.ID] = &c
	return &c, nil
}

func (r *memorySalesRepo) GetCustomer(ctx context.Context, companyID, id int64) (*Customer, error) {
	c, ok := r.customers[id]
	if !ok || c.CompanyID != companyID {
		return nil, shared.ErrNotFound
	}
	return c, nil
}

func (r *memorySalesRepo) ListCustomers(ctx context.Context, companyID int64) ([]Customer, error) {
	var out []Customer
	for _, c := range r.customers {
		if c.CompanyID == companyID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (r *memorySalesRepo) UpdateCustomer(ctx context.Context, c Customer) (*Customer, error) {
	r.customers[c.ID] = &c
	return &c, nil
}

func (r *memorySalesRepo) DeleteCustomer(ctx context.Context, companyID, id int64) error {
	delete(r.customers, id)
	return nil
}

func (r *memorySalesRepo) CreateSale(ctx context.Context, sale Sale, dueDate time.Time) (*Sale, error) {
	r.nextID++
	sale.ID = r.nextID
	sale.InvoiceNumber = "INV-000001"
	r.sales[sale.ID] = &sale
	r.dueDates[sale.ID] = dueDate
	return &sale, nil
}

func (r *memorySalesRepo) GetSale(ctx context.Context, companyID, id int64) (*Sale, error) {
	s, ok := r.sales[id]
	if !ok || s.CompanyID != companyID {
		return nil, shared.ErrNotFound
	}
	return s, nil
}

func (r *memorySalesRepo) ListSales(ctx context.Context, filter ListFilter) ([]Sale, int, error) {
	var out []Sale
	for _, s := range r.sales {
		if s.CompanyID == filter.CompanyID {
			out = append(out, *s)
		}
	}
	return out, len(out), nil
}

func (r *memorySalesRepo) Summarize(ctx context.Context, companyID int64, from, to time.Time) (Summary, error) {
	var sum Summary
	for _, s := range r.sales {
		if s.CompanyID != companyID || s.SoldAt.Before(from) || s.SoldAt.After(to) {
			continue
		}
		sum.Count++
		sum.Revenue += s.Total
		sum.TaxCollected += s.TaxAmount
	}
	if sum.Count > 0 {
		sum.AvgTicket = sum.Revenue / float64(sum.Count)
	}
	return sum, nil
}

type staticProducts map[int64]*catalog.Product

func (p staticProducts) Get(ctx context.Context, companyID, id int64) (*catalog.Product, error) {
	product, ok := p[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return product, nil
}

func saleActor() *shared.Identity {
	return &shared.Identity{UserID: 3, CompanyID: 1, Role: shared.RoleManager}
}

func TestCreateSaleComputesTotals(t *testing.T) {
	repo := newMemorySalesRepo()
	products := staticProducts{
		10: {ID: 10, Name: "Widget", Price: 1000},
		11: {ID: 11, Name: "Gadget", Price: 250},
	}
	svc := NewService(repo, products, nil, nil)

	customer, err := svc.CreateCustomer(context.Background(), saleActor(), CustomerInput{Name: "ACME"})
	require.NoError(t, err)

	sale, err := svc.CreateSale(context.Background(), saleActor(), CreateSaleInput{
		CustomerID: customer.ID,
		TaxRate:    0.19,
		Discount:   100,
		Items: []SaleLineInput{
			{ProductID: 10, Qty: 2},
			{ProductID: 11, Qty: 4, UnitPrice: 200},
		},
	})
	require.NoError(t, err)

	// 2*1000 + 4*200 = 2800, minus 100 discount, 19% tax on 2700.
	require.InDelta(t, 2800, sale.Subtotal, 1e-9)
	require.InDelta(t, 513, sale.TaxAmount, 1e-9)
	require.InDelta(t, 3313, sale.Total, 1e-9)
	require.Equal(t, PaymentPending, sale.PaymentStatus)
	require.Equal(t, "ACME", sale.CustomerName)
	require.Len(t, sale.Items, 2)

	// Unpriced lines fall back to the catalog price.
	require.InDelta(t, 1000, sale.Items[0].UnitPrice, 1e-9)
}

func TestCreateSaleDefaultsDueDate(t *testing.T) {
	repo := newMemorySalesRepo()
	products := staticProducts{10: {ID: 10, Name: "Widget", Price: 100}}
	svc := NewService(repo, products, nil, nil)

	customer, err := svc.CreateCustomer(context.Background(), saleActor(), CustomerInput{Name: "ACME"})
	require.NoError(t, err)

	soldAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	sale, err := svc.CreateSale(context.Background(), saleActor(), CreateSaleInput{
		CustomerID: customer.ID,
		SoldAt:     soldAt,
		Items:      []SaleLineInput{{ProductID: 10, Qty: 1}},
	})
	require.NoError(t, err)
	require.Equal(t, soldAt.AddDate(0, 0, 30), repo.dueDates[sale.ID])
}

func TestCreateSalePaidFlag(t *testing.T) {
	repo := newMemorySalesRepo()
	products := staticProducts{10: {ID: 10, Name: "Widget", Price: 100}}
	svc := NewService(repo, products, nil, nil)

	customer, err := svc.CreateCustomer(context.Background(), saleActor(), CustomerInput{Name: "ACME"})
	require.NoError(t, err)

	sale, err := svc.CreateSale(context.Background(), saleActor(), CreateSaleInput{
		CustomerID: customer.ID,
		Paid:       true,
		Items:      []SaleLineInput{{ProductID: 10, Qty: 1}},
	})
	require.NoError(t, err)
	require.Equal(t, PaymentPaid, sale.PaymentStatus)
}

func TestCreateSaleRejectsBadInput(t *testing.T) {
	repo := newMemorySalesRepo()
	products := staticProducts{10: {ID: 10, Name: "Widget", Price: 100}}
	svc := NewService(repo, products, nil, nil)

	customer, err := svc.CreateCustomer(context.Background(), saleActor(), CustomerInput{Name: "ACME"})
	require.NoError(t, err)

	_, err = svc.CreateSale(context.Background(), saleActor(), CreateSaleInput{CustomerID: customer.ID})
	require.ErrorIs(t, err, ErrEmptySale)

	_, err = svc.CreateSale(context.Background(), saleActor(), CreateSaleInput{
		CustomerID: customer.ID,
		Items:      []SaleLineInput{{ProductID: 10, Qty: 0}},
	})
	require.ErrorIs(t, err, ErrInvalidLine)

	_, err = svc.CreateSale(context.Background(), saleActor(), CreateSaleInput{
		CustomerID: customer.ID,
		TaxRate:    19,
		Items:      []SaleLineInput{{ProductID: 10, Qty: 1}},
	})
	require.Error(t, err)
}

func TestSummarizeDefaultsTrailingWindow(t *testing.T) {
	repo := newMemorySalesRepo()
	products := staticProducts{10: {ID: 10, Name: "Widget", Price: 100}}
	svc := NewService(repo, products, nil, nil)

	customer, err := svc.CreateCustomer(context.Background(), saleActor(), CustomerInput{Name: "ACME"})
	require.NoError(t, err)

	_, err = svc.CreateSale(context.Background(), saleActor(), CreateSaleInput{
		CustomerID: customer.ID,
		Items:      []SaleLineInput{{ProductID: 10, Qty: 1}},
	})
	require.NoError(t, err)

	// An old sale outside the default window.
	_, err = svc.CreateSale(context.Background(), saleActor(), CreateSaleInput{
		CustomerID: customer.ID,
		SoldAt:     time.Now().AddDate(0, -6, 0),
		Items:      []SaleLineInput{{ProductID: 10, Qty: 5}},
	})
	require.NoError(t, err)

	sum, err := svc.Summarize(context.Background(), saleActor(), time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Equal(t, 1, sum.Count)
	require.InDelta(t, 100, sum.Revenue, 1e-9)
}
