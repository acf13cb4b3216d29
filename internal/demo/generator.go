// Package demo seeds a company with a synthetic year of trading data.
package demo

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/meridian-bi/meridian/internal/catalog"
	"github.com/meridian-bi/meridian/internal/sales"
	"github.com/meridian-bi/meridian/internal/shared"
)

// ProductWriter persists generated products.
type ProductWriter interface {
	Create(ctx context.Context, p catalog.Product) (*catalog.Product, error)
}

// SalesWriter persists generated customers and sales.
type SalesWriter interface {
	CreateCustomer(ctx context.Context, c sales.Customer) (*sales.Customer, error)
	CreateSale(ctx context.Context, sale sales.Sale, dueDate time.Time) (*sales.Sale, error)
}

// CacheBumper invalidates analytics caches after seeding.
type CacheBumper interface {
	Bump(ctx context.Context) error
}

// Result summarises a generation run.
type Result struct {
	Products  int `json:"products"`
	Customers int `json:"customers"`
	Sales     int `json:"sales"`
}

// Generator produces the synthetic dataset. A fixed seed yields the same
// dataset on every run, which the seed script relies on.
type Generator struct {
	products ProductWriter
	sales    SalesWriter
	cache    CacheBumper
}

// NewGenerator builds Generator instance.
func NewGenerator(products ProductWriter, salesWriter SalesWriter, cache CacheBumper) *Generator {
	return &Generator{products: products, sales: salesWriter, cache: cache}
}

var productCatalog = []struct {
	name     string
	category string
	price    float64
}{
	{"Arabica Coffee Beans 1kg", "Beverages", 18.90},
	{"Robusta Coffee Beans 1kg", "Beverages", 12.50},
	{"Green Tea Box 50u", "Beverages", 8.90},
	{"Whole Milk 1L", "Dairy", 1.45},
	{"Greek Yogurt 500g", "Dairy", 3.20},
	{"Aged Cheddar 250g", "Dairy", 5.60},
	{"Sourdough Loaf", "Bakery", 4.10},
	{"Croissant 6-pack", "Bakery", 5.90},
	{"Olive Oil 750ml", "Pantry", 9.80},
	{"Basmati Rice 5kg", "Pantry", 11.30},
	{"Penne Pasta 500g", "Pantry", 1.80},
	{"Tomato Sauce 400g", "Pantry", 2.10},
	{"Dark Chocolate 85%", "Snacks", 3.60},
	{"Mixed Nuts 400g", "Snacks", 7.40},
	{"Potato Chips 200g", "Snacks", 2.90},
	{"Orange Juice 1.5L", "Beverages", 3.80},
	{"Sparkling Water 6x500ml", "Beverages", 4.50},
	{"Dish Soap 900ml", "Cleaning", 2.70},
	{"Laundry Detergent 3L", "Cleaning", 12.90},
	{"Paper Towels 6 rolls", "Cleaning", 6.80},
	{"Frozen Peas 1kg", "Frozen", 3.10},
	{"Ice Cream Vanilla 1L", "Frozen", 6.20},
	{"Chicken Breast 1kg", "Meat", 8.70},
	{"Ground Beef 1kg", "Meat", 10.40},
	{"Salmon Fillet 500g", "Meat", 13.90},
}

var customerNames = []string{
	"Comercial Andina Ltda", "Distribuidora El Roble", "Minimarket Central",
	"Cafe Buen Dia", "Restaurante La Plaza", "Hotel Mirador",
	"Almacen Don Pedro", "Panaderia San Jose", "Supermercado Norte",
	"Casino Institucional Sur", "Foodtruck La Esquina", "Catering Eventos MV",
}

// Generate seeds the company. Existing data is left untouched; duplicate SKUs
// from a previous run are skipped.
func (g *Generator) Generate(ctx context.Context, actor *shared.Identity, seed int64) (*Result, error) {
	rng := rand.New(rand.NewSource(seed))
	result := &Result{}

	products := make([]*catalog.Product, 0, len(productCatalog))
	for i, spec := range productCatalog {
		// Enough stock to survive a year of generated sales.
		stock := float64(rng.Intn(1500) + 500)
		minStock := float64(rng.Intn(15) + 5)
		created, err := g.products.Create(ctx, catalog.Product{
			CompanyID:    actor.CompanyID,
			SKU:          fmt.Sprintf("DEMO-%03d", i+1),
			Name:         spec.name,
			Category:     spec.category,
			Price:        spec.price,
			Cost:         spec.price * (0.55 + rng.Float64()*0.15),
			Stock:        stock,
			MinStock:     minStock,
			MaxStock:     minStock * 10,
			ReorderPoint: minStock * 2,
			IsActive:     true,
		})
		if errors.Is(err, catalog.ErrDuplicateSKU) {
			continue
		}
		if err != nil {
			return nil, err
		}
		products = append(products, created)
		result.Products++
	}
	if len(products) == 0 {
		return nil, fmt.Errorf("demo: no products created, company already seeded")
	}

	customers := make([]*sales.Customer, 0, len(customerNames))
	for _, name := range customerNames {
		created, err := g.sales.CreateCustomer(ctx, sales.Customer{
			CompanyID: actor.CompanyID,
			Name:      name,
			Email:     fmt.Sprintf("contact@%d.example.com", rng.Intn(100000)),
		})
		if err != nil {
			return nil, err
		}
		customers = append(customers, created)
		result.Customers++
	}

	// A year of sales, denser toward December.
	start := time.Now().AddDate(-1, 0, 0)
	for day := 0; day < 365; day++ {
		date := start.AddDate(0, 0, day)
		salesToday := rng.Intn(3)
		if date.Month() == time.December {
			salesToday += rng.Intn(3)
		}
		for n := 0; n < salesToday; n++ {
			customer := customers[rng.Intn(len(customers))]
			lineCount := rng.Intn(4) + 1

			sale := sales.Sale{
				CompanyID:    actor.CompanyID,
				CustomerID:   customer.ID,
				CustomerName: customer.Name,
				CreatedBy:    actor.UserID,
				SoldAt:       date.Add(time.Duration(rng.Intn(10)+9) * time.Hour),
			}
			seen := map[int64]bool{}
			for l := 0; l < lineCount; l++ {
				product := products[rng.Intn(len(products))]
				if seen[product.ID] {
					continue
				}
				seen[product.ID] = true
				qty := float64(rng.Intn(5) + 1)
				lineTotal := qty * product.Price
				sale.Subtotal += lineTotal
				sale.Items = append(sale.Items, sales.SaleItem{
					ProductID:   product.ID,
					ProductName: product.Name,
					Qty:         qty,
					UnitPrice:   product.Price,
					LineTotal:   lineTotal,
				})
			}
			if len(sale.Items) == 0 {
				continue
			}
			sale.TaxAmount = sale.Subtotal * 0.19
			sale.Total = sale.Subtotal + sale.TaxAmount
			sale.PaymentStatus = sales.PaymentPaid
			// Roughly a quarter of sales stay on credit.
			if rng.Float64() < 0.25 {
				sale.PaymentStatus = sales.PaymentPending
			}

			if _, err := g.sales.CreateSale(ctx, sale, sale.SoldAt.AddDate(0, 0, 30)); err != nil {
				// Stock ran out for a demo product; skip and keep going.
				if errors.Is(err, catalog.ErrInsufficientStock) {
					continue
				}
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				continue
			}
			result.Sales++
		}
	}

	if g.cache != nil {
		_ = g.cache.Bump(ctx)
	}
	return result, nil
}
