package service

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Kinterofoto/bakery-management-system-sub008/internal/planning/repository"
	"github.com/Kinterofoto/bakery-management-system-sub008/pkg/logger"
)

// DateFormat is the wire format of requirement and delivery dates
const DateFormat = "2006-01-02"

// RunContribution traces one run's share of a material requirement, kept
// for UI drill-down.
type RunContribution struct {
	RunID               string          `json:"run_id"`
	ProductID           string          `json:"product_id"`
	RunQuantity         decimal.Decimal `json:"run_quantity"`
	QuantityContributed decimal.Decimal `json:"quantity_contributed"`
}

// MaterialRequirement is the derived demand for one material on one
// delivery date. It is never persisted: the engine recomputes it from runs
// and recipes on every request, which keeps recomputation trivially
// idempotent. Only the procurement tracker and the inventory ledger carry
// real state.
type MaterialRequirement struct {
	MaterialID     string            `json:"material_id"`
	MaterialName   string            `json:"material_name"`
	Unit           string            `json:"unit"`
	DeliveryDate   string            `json:"delivery_date"`
	ProductionDate string            `json:"production_date"`
	TotalQuantity  decimal.Decimal   `json:"total_quantity"`
	Runs           []RunContribution `json:"runs"`
}

// RequirementMap buckets requirements by material and delivery date
type RequirementMap map[string]map[string]*MaterialRequirement

// Explode derives raw-material demand from production runs. For every run,
// each active recipe line of the run's product contributes
// quantity_needed x run.quantity to the (material, delivery date) bucket,
// where delivery date is the run's production date minus the lead time in
// calendar days. Runs on the same production date accumulate into the same
// bucket. Zero runs yield an empty map, not an error.
//
// Only lines whose material is a raw material contribute; semi-finished
// ingredients are exploded against their own recipes in a separate
// single-level pass (ExplodeCategory).
func Explode(runs []repository.ProductionRun, recipes []repository.RecipeLine, leadTimeDays int) RequirementMap {
	return ExplodeCategory(runs, recipes, leadTimeDays, repository.CategoryRawMaterial)
}

// ExplodeCategory is Explode restricted to recipe lines whose material has
// the given category.
func ExplodeCategory(runs []repository.ProductionRun, recipes []repository.RecipeLine, leadTimeDays int, category string) RequirementMap {
	linesByProduct := make(map[string][]repository.RecipeLine)
	for _, line := range recipes {
		if !line.IsActive || line.MaterialCategory != category {
			continue
		}
		linesByProduct[line.ProductID] = append(linesByProduct[line.ProductID], line)
	}

	out := make(RequirementMap)
	for _, run := range runs {
		productionDate := run.ProductionDate()
		deliveryDate := productionDate.AddDate(0, 0, -leadTimeDays)
		deliveryKey := deliveryDate.Format(DateFormat)

		for _, line := range linesByProduct[run.ProductID] {
			contributed := line.QuantityNeeded.Mul(run.Quantity)

			byDate, ok := out[line.MaterialID]
			if !ok {
				byDate = make(map[string]*MaterialRequirement)
				out[line.MaterialID] = byDate
			}

			req, ok := byDate[deliveryKey]
			if !ok {
				req = &MaterialRequirement{
					MaterialID:     line.MaterialID,
					MaterialName:   line.MaterialName,
					Unit:           line.MaterialUnit,
					DeliveryDate:   deliveryKey,
					ProductionDate: productionDate.Format(DateFormat),
				}
				byDate[deliveryKey] = req
			}

			req.TotalQuantity = req.TotalQuantity.Add(contributed)
			req.Runs = append(req.Runs, RunContribution{
				RunID:               run.ID,
				ProductID:           run.ProductID,
				RunQuantity:         run.Quantity,
				QuantityContributed: contributed,
			})
		}
	}

	return out
}

// DeliveryWindow returns the rolling 24h consolidated-delivery window
// containing now, anchored at cutoffHour: the window opens at the most
// recent occurrence of cutoffHour and closes 24 hours later.
func DeliveryWindow(now time.Time, cutoffHour int) (time.Time, time.Time) {
	start := time.Date(now.Year(), now.Month(), now.Day(), cutoffHour, 0, 0, 0, now.Location())
	if now.Before(start) {
		start = start.AddDate(0, 0, -1)
	}
	return start, start.Add(24 * time.Hour)
}

// DeliveryItem is one material on a consolidated delivery list
type DeliveryItem struct {
	MaterialID     string          `json:"material_id"`
	MaterialName   string          `json:"material_name"`
	Unit           string          `json:"unit"`
	TotalQuantity  decimal.Decimal `json:"total_quantity"`
	AvailableStock decimal.Decimal `json:"available_stock"`
	// HasWarning advises the requester that the central warehouse does not
	// hold enough stock. It never blocks movement creation; the ledger's
	// confirm step is what enforces balances.
	HasWarning bool              `json:"has_warning"`
	Runs       []RunContribution `json:"runs"`
}

// DeliveryList is the consolidated material list for one resource and window
type DeliveryList struct {
	ResourceID  string         `json:"resource_id"`
	WindowStart time.Time      `json:"window_start"`
	WindowEnd   time.Time      `json:"window_end"`
	Items       []DeliveryItem `json:"items"`
}

// ExplosionService computes material requirements on demand. It holds no
// state of its own; the explosion is a pure function of runs and recipes
// and may be recomputed freely.
type ExplosionService struct {
	runs      *repository.RunRepository
	recipes   *repository.RecipeRepository
	inventory *repository.InventoryRepository
	logger    *logger.Logger

	defaultLeadTimeDays int
	deliveryCutoffHour  int
	warehouseCode       string
}

// NewExplosionService creates a new explosion service
func NewExplosionService(
	runs *repository.RunRepository,
	recipes *repository.RecipeRepository,
	inventory *repository.InventoryRepository,
	defaultLeadTimeDays int,
	deliveryCutoffHour int,
	warehouseCode string,
	log *logger.Logger,
) *ExplosionService {
	return &ExplosionService{
		runs:                runs,
		recipes:             recipes,
		inventory:           inventory,
		logger:              log,
		defaultLeadTimeDays: defaultLeadTimeDays,
		deliveryCutoffHour:  deliveryCutoffHour,
		warehouseCode:       warehouseCode,
	}
}

// Requirements explodes all runs starting inside [from, to) into
// raw-material requirements. leadTimeDays < 0 selects the configured
// default.
func (s *ExplosionService) Requirements(ctx context.Context, from, to time.Time, leadTimeDays int) (RequirementMap, error) {
	if leadTimeDays < 0 {
		leadTimeDays = s.defaultLeadTimeDays
	}

	runs, err := s.runs.ListByRange(ctx, "", from, to)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return RequirementMap{}, nil
	}

	recipes, err := s.recipes.ListActiveByProducts(ctx, productIDsOf(runs))
	if err != nil {
		return nil, err
	}

	return Explode(runs, recipes, leadTimeDays), nil
}

// SemiFinishedRequirements is the separate pass over the same runs for
// semi-finished ingredients. Single level: the semi-finished demand is
// reported as-is, it is not chained into the raw materials behind it.
func (s *ExplosionService) SemiFinishedRequirements(ctx context.Context, from, to time.Time, leadTimeDays int) (RequirementMap, error) {
	if leadTimeDays < 0 {
		leadTimeDays = s.defaultLeadTimeDays
	}

	runs, err := s.runs.ListByRange(ctx, "", from, to)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return RequirementMap{}, nil
	}

	recipes, err := s.recipes.ListActiveByProducts(ctx, productIDsOf(runs))
	if err != nil {
		return nil, err
	}

	return ExplodeCategory(runs, recipes, leadTimeDays, repository.CategorySemiFinished), nil
}

// DeliveryListFor builds the consolidated same-day delivery list for one
// resource: materials for runs inside the current delivery window, with a
// stock warning per material when the central warehouse cannot cover it.
func (s *ExplosionService) DeliveryListFor(ctx context.Context, resourceID string, now time.Time) (*DeliveryList, error) {
	windowStart, windowEnd := DeliveryWindow(now, s.deliveryCutoffHour)

	list := &DeliveryList{
		ResourceID:  resourceID,
		WindowStart: windowStart,
		WindowEnd:   windowEnd,
		Items:       []DeliveryItem{},
	}

	runs, err := s.runs.ListByRange(ctx, resourceID, windowStart, windowEnd)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return list, nil
	}

	recipes, err := s.recipes.ListActiveByProducts(ctx, productIDsOf(runs))
	if err != nil {
		return nil, err
	}

	// Same-day internal delivery: no lead-time offset.
	requirements := Explode(runs, recipes, 0)

	materialIDs := make([]string, 0, len(requirements))
	for materialID := range requirements {
		materialIDs = append(materialIDs, materialID)
	}

	warehouse, err := s.inventory.GetCentralWarehouse(ctx, s.warehouseCode)
	if err != nil {
		return nil, err
	}
	available, err := s.inventory.BalancesAt(ctx, warehouse.ID, materialIDs)
	if err != nil {
		return nil, err
	}

	// The 24h window can straddle midnight, splitting one material across
	// two production dates; the delivery list merges them per material.
	merged := make(map[string]*DeliveryItem)
	for _, byDate := range requirements {
		dateKeys := make([]string, 0, len(byDate))
		for key := range byDate {
			dateKeys = append(dateKeys, key)
		}
		sort.Strings(dateKeys)

		for _, key := range dateKeys {
			req := byDate[key]
			item, ok := merged[req.MaterialID]
			if !ok {
				item = &DeliveryItem{
					MaterialID:   req.MaterialID,
					MaterialName: req.MaterialName,
					Unit:         req.Unit,
				}
				merged[req.MaterialID] = item
			}
			item.TotalQuantity = item.TotalQuantity.Add(req.TotalQuantity)
			item.Runs = append(item.Runs, req.Runs...)
		}
	}

	for _, item := range merged {
		stock := available[item.MaterialID]
		item.AvailableStock = stock
		item.HasWarning = stock.LessThan(item.TotalQuantity)
		list.Items = append(list.Items, *item)
	}

	sort.Slice(list.Items, func(i, j int) bool {
		return list.Items[i].MaterialID < list.Items[j].MaterialID
	})

	return list, nil
}

func productIDsOf(runs []repository.ProductionRun) []string {
	seen := make(map[string]struct{}, len(runs))
	ids := make([]string, 0, len(runs))
	for _, run := range runs {
		if _, ok := seen[run.ProductID]; ok {
			continue
		}
		seen[run.ProductID] = struct{}{}
		ids = append(ids, run.ProductID)
	}
	return ids
}
