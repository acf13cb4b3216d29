package ingest

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meridian-bi/meridian/internal/catalog"
	"github.com/meridian-bi/meridian/internal/sales"
	"github.com/meridian-bi/meridian/internal/shared"
)

type memoryFingerprints struct {
	seen map[string]bool
}

func newMemoryFingerprints() *memoryFingerprints {
	return &memoryFingerprints{seen: make(map[string]bool)}
}

func (s *memoryFingerprints) CheckAndInsert(ctx context.Context, key, module string) error {
	if s.seen[key] {
		return shared.ErrIdempotencyConflict
	}
	s.seen[key] = true
	return nil
}

func (s *memoryFingerprints) Delete(ctx context.Context, key string) error {
	delete(s.seen, key)
	return nil
}

type memoryProductWriter struct {
	nextID   int64
	products map[string]*catalog.Product
}

func newMemoryProductWriter() *memoryProductWriter {
	return &memoryProductWriter{products: make(map[string]*catalog.Product)}
}

func (w *memoryProductWriter) Create(ctx context.Context, p catalog.Product) (*catalog.Product, error) {
	if _, ok := w.products[p.SKU]; ok {
		return nil, catalog.ErrDuplicateSKU
	}
	w.nextID++
	p.ID = w.nextID
	w.products[p.SKU] = &p
	return &p, nil
}

func (w *memoryProductWriter) GetBySKU(ctx context.Context, companyID int64, sku string) (*catalog.Product, error) {
	p, ok := w.products[sku]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return p, nil
}

type memorySalesWriter struct {
	nextID    int64
	customers map[string]*sales.Customer
	sales     []sales.Sale
}

func newMemorySalesWriter() *memorySalesWriter {
	return &memorySalesWriter{customers: make(map[string]*sales.Customer)}
}

func (w *memorySalesWriter) CreateCustomer(ctx context.Context, c sales.Customer) (*sales.Customer, error) {
	w.nextID++
	c.ID = w.nextID
	w.customers[c.Name] = &c
	return &c, nil
}

func (w *memorySalesWriter) FindCustomerByName(ctx context.Context, companyID int64, name string) (*sales.Customer, error) {
	c, ok := w.customers[name]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return c, nil
}

func (w *memorySalesWriter) CreateSale(ctx context.Context, sale sales.Sale, dueDate time.Time) (*sales.Sale, error) {
	w.nextID++
	sale.ID = w.nextID
	w.sales = append(w.sales, sale)
	return &sale, nil
}

func newTestService(products *memoryProductWriter, writer *memorySalesWriter, prints *memoryFingerprints) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(logger, products, writer, prints, nil, nil)
}

func testActor() *shared.Identity {
	return &shared.Identity{UserID: 7, CompanyID: 1, Role: shared.RoleAdmin}
}

func TestImportProductsCSV(t *testing.T) {
	products := newMemoryProductWriter()
	svc := newTestService(products, newMemorySalesWriter(), newMemoryFingerprints())

	data := []byte("Código;Nombre;Precio;Stock;Stock Mínimo\nW-001;Widget;1.500,50;20;5\nW-002;Gadget;900;0;2\n")
	report, err := svc.Import(context.Background(), testActor(), EntityProducts, "productos.csv", data, nil)
	require.NoError(t, err)
	require.Equal(t, 2, report.TotalRows)
	require.Equal(t, 2, report.Imported)
	require.Empty(t, report.Invalid)

	widget := products.products["W-001"]
	require.NotNil(t, widget)
	require.InDelta(t, 1500.50, widget.Price, 1e-9)
	require.InDelta(t, 5, widget.MinStock, 1e-9)
	require.True(t, widget.IsActive)
}

func TestImportRejectsDuplicateFile(t *testing.T) {
	svc := newTestService(newMemoryProductWriter(), newMemorySalesWriter(), newMemoryFingerprints())

	data := []byte("sku,name,price\nA1,Thing,10\n")
	_, err := svc.Import(context.Background(), testActor(), EntityProducts, "a.csv", data, nil)
	require.NoError(t, err)

	_, err = svc.Import(context.Background(), testActor(), EntityProducts, "renamed.csv", data, nil)
	require.ErrorIs(t, err, ErrDuplicateFile)
}

func TestImportReleasesFingerprintOnParseFailure(t *testing.T) {
	prints := newMemoryFingerprints()
	svc := newTestService(newMemoryProductWriter(), newMemorySalesWriter(), prints)

	data := []byte("not a real spreadsheet")
	_, err := svc.Import(context.Background(), testActor(), EntityProducts, "a.xlsx", data, nil)
	require.Error(t, err)
	require.Empty(t, prints.seen)
}

func TestImportCollectsRowErrors(t *testing.T) {
	svc := newTestService(newMemoryProductWriter(), newMemorySalesWriter(), newMemoryFingerprints())

	data := []byte("sku,name,price\nA1,Thing,10\n,NoSKU,5\nA2,BadPrice,abc\n")
	report, err := svc.Import(context.Background(), testActor(), EntityProducts, "a.csv", data, nil)
	require.NoError(t, err)
	require.Equal(t, 1, report.Imported)
	require.Len(t, report.Invalid, 2)
	require.Equal(t, 3, report.Invalid[0].Row)
	require.Equal(t, 4, report.Invalid[1].Row)
}

func TestImportDuplicateSKURowFails(t *testing.T) {
	products := newMemoryProductWriter()
	svc := newTestService(products, newMemorySalesWriter(), newMemoryFingerprints())

	data := []byte("sku,name,price\nA1,First,10\nA1,Second,20\n")
	report, err := svc.Import(context.Background(), testActor(), EntityProducts, "a.csv", data, nil)
	require.NoError(t, err)
	require.Equal(t, 1, report.Imported)
	require.Len(t, report.Invalid, 1)
	require.Contains(t, report.Invalid[0].Errors[0], "already exists")
}

func TestImportSalesCreatesCustomerAndMarksPaid(t *testing.T) {
	products := newMemoryProductWriter()
	_, err := products.Create(context.Background(), catalog.Product{SKU: "W-001", Name: "Widget", Price: 100, Stock: 50})
	require.NoError(t, err)

	writer := newMemorySalesWriter()
	svc := newTestService(products, writer, newMemoryFingerprints())

	data := []byte("Factura,Cliente,Producto,Cantidad,Precio Unitario,Fecha\nF-1,ACME Ltda,W-001,3,100,2026-02-15\n")
	report, err := svc.Import(context.Background(), testActor(), EntitySales, "ventas.csv", data, nil)
	require.NoError(t, err)
	require.Equal(t, 1, report.Imported)

	require.Contains(t, writer.customers, "ACME Ltda")
	require.Len(t, writer.sales, 1)
	sale := writer.sales[0]
	require.Equal(t, sales.PaymentPaid, sale.PaymentStatus)
	require.InDelta(t, 300, sale.Total, 1e-9)
	require.Equal(t, "2026-02-15", sale.SoldAt.Format("2006-01-02"))
}

func TestImportSaleUnknownSKUFails(t *testing.T) {
	svc := newTestService(newMemoryProductWriter(), newMemorySalesWriter(), newMemoryFingerprints())

	data := []byte("Cliente,Producto,Cantidad,Precio Unitario\nACME,MISSING,1,10\n")
	report, err := svc.Import(context.Background(), testActor(), EntitySales, "ventas.csv", data, nil)
	require.NoError(t, err)
	require.Zero(t, report.Imported)
	require.Len(t, report.Invalid, 1)
	require.Contains(t, report.Invalid[0].Errors[0], "unknown sku")
}

func TestImportReportsProgress(t *testing.T) {
	svc := newTestService(newMemoryProductWriter(), newMemorySalesWriter(), newMemoryFingerprints())

	var updates []Progress
	data := []byte("sku,name,price\nA1,Thing,10\nA2,Other,20\n")
	_, err := svc.Import(context.Background(), testActor(), EntityProducts, "a.csv", data, func(p Progress) {
		updates = append(updates, p)
	})
	require.NoError(t, err)
	require.Len(t, updates, 2)
	require.Equal(t, Progress{Processed: 2, Total: 2, Imported: 2, Failed: 0}, updates[1])
}
