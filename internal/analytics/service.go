package analytics

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/meridian-bi/meridian/internal/catalog"
	"github.com/meridian-bi/meridian/internal/shared"
)

// RepositoryPort defines the aggregation queries the service needs.
type RepositoryPort interface {
	InventoryTotals(ctx context.Context, companyID int64) (value, units float64, productCount, outOfStock, lowStock int, err error)
	SalesStats(ctx context.Context, companyID int64, from, to time.Time) (revenue, cogs float64, count int, err error)
	OutstandingReceivables(ctx context.Context, companyID int64) (float64, error)
	MonthlyRevenue(ctx context.Context, companyID int64, months int) ([]TrendPoint, error)
	AnnualConsumption(ctx context.Context, companyID int64) ([]ConsumptionItem, error)
	Statistics(ctx context.Context, companyID int64) (DataStatistics, error)
	ReplaceAlertSnapshot(ctx context.Context, companyID int64, alerts []Alert) error
}

// ProductLister loads the full product set for alert generation.
type ProductLister interface {
	ListAll(ctx context.Context, companyID int64) ([]catalog.Product, error)
	UpdateABCClasses(ctx context.Context, companyID int64, classes map[int64]catalog.ABCClass) error
}

// Service computes dashboard figures from posted data.
type Service struct {
	repo    RepositoryPort
	catalog ProductLister
	cache   *Cache
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, catalog ProductLister, cache *Cache) *Service {
	return &Service{repo: repo, catalog: catalog, cache: cache}
}

// Summary resolves the KPI card, fanning the aggregations out in parallel.
func (s *Service) Summary(ctx context.Context, actor *shared.Identity, from, to time.Time) (KPISummary, error) {
	if to.IsZero() {
		to = time.Now()
	}
	if from.IsZero() {
		from = to.AddDate(0, 0, -30)
	}

	loader := func(ctx context.Context) (interface{}, error) {
		var summary KPISummary
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			value, units, count, oos, low, err := s.repo.InventoryTotals(gctx, actor.CompanyID)
			if err != nil {
				return err
			}
			summary.InventoryValue = value
			summary.InventoryUnits = units
			summary.ProductCount = count
			summary.OutOfStockProducts = oos
			summary.LowStockProducts = low
			return nil
		})
		g.Go(func() error {
			revenue, cogs, count, err := s.repo.SalesStats(gctx, actor.CompanyID, from, to)
			if err != nil {
				return err
			}
			summary.Revenue = revenue
			summary.COGS = cogs
			summary.SaleCount = count
			return nil
		})
		g.Go(func() error {
			outstanding, err := s.repo.OutstandingReceivables(gctx, actor.CompanyID)
			if err != nil {
				return err
			}
			summary.Outstanding = outstanding
			return nil
		})
		if err := g.Wait(); err != nil {
			return KPISummary{}, err
		}

		summary.GrossMargin = summary.Revenue - summary.COGS
		if summary.SaleCount > 0 {
			summary.AvgTicket = summary.Revenue / float64(summary.SaleCount)
		}
		if summary.InventoryValue > 0 {
			summary.InventoryTurnover = summary.COGS / summary.InventoryValue
		}
		return summary, nil
	}

	key, err := s.cache.BuildKey(ctx, keySummary(actor.CompanyID, from.Format("2006-01-02")+"_"+to.Format("2006-01-02")))
	if err != nil {
		return KPISummary{}, err
	}
	var summary KPISummary
	if err := s.cache.FetchJSON(ctx, key, &summary, loader); err != nil {
		return KPISummary{}, err
	}
	return summary, nil
}

// Trend returns monthly revenue history.
func (s *Service) Trend(ctx context.Context, actor *shared.Identity, months int) ([]TrendPoint, error) {
	if months <= 0 || months > 36 {
		months = 12
	}
	key, err := s.cache.BuildKey(ctx, keyTrend(actor.CompanyID, months))
	if err != nil {
		return nil, err
	}
	var points []TrendPoint
	err = s.cache.FetchJSON(ctx, key, &points, func(ctx context.Context) (interface{}, error) {
		return s.repo.MonthlyRevenue(ctx, actor.CompanyID, months)
	})
	return points, err
}

// ABC classifies the catalog by annual consumption value.
func (s *Service) ABC(ctx context.Context, actor *shared.Identity) ([]ABCAssignment, error) {
	key, err := s.cache.BuildKey(ctx, keyABC(actor.CompanyID))
	if err != nil {
		return nil, err
	}
	var assignments []ABCAssignment
	err = s.cache.FetchJSON(ctx, key, &assignments, func(ctx context.Context) (interface{}, error) {
		items, err := s.repo.AnnualConsumption(ctx, actor.CompanyID)
		if err != nil {
			return nil, err
		}
		return ClassifyABC(items), nil
	})
	return assignments, err
}

// Reclassify recomputes ABC classes and writes them back to the catalog.
func (s *Service) Reclassify(ctx context.Context, companyID int64) (int, error) {
	items, err := s.repo.AnnualConsumption(ctx, companyID)
	if err != nil {
		return 0, err
	}
	assignments := ClassifyABC(items)
	classes := make(map[int64]catalog.ABCClass, len(assignments))
	for _, a := range assignments {
		classes[a.ProductID] = catalog.ABCClass(a.Class)
	}
	if err := s.catalog.UpdateABCClasses(ctx, companyID, classes); err != nil {
		return 0, err
	}
	_ = s.cache.Bump(ctx)
	return len(classes), nil
}

// Alerts computes the live alert set from current stock levels.
func (s *Service) Alerts(ctx context.Context, companyID int64) ([]Alert, error) {
	products, err := s.catalog.ListAll(ctx, companyID)
	if err != nil {
		return nil, err
	}
	return GenerateAlerts(products), nil
}

// ScanAlerts recomputes and persists the alert snapshot for a company.
func (s *Service) ScanAlerts(ctx context.Context, companyID int64) (int, error) {
	alerts, err := s.Alerts(ctx, companyID)
	if err != nil {
		return 0, err
	}
	if err := s.repo.ReplaceAlertSnapshot(ctx, companyID, alerts); err != nil {
		return 0, err
	}
	return len(alerts), nil
}

// Statistics resolves the data coverage report.
func (s *Service) Statistics(ctx context.Context, actor *shared.Identity) (DataStatistics, error) {
	return s.repo.Statistics(ctx, actor.CompanyID)
}
