package services

import (
	"context"

	"fleet-manager/internal/errs"
	"fleet-manager/internal/models"
	"fleet-manager/internal/repository"
	"fleet-manager/pkg/cache"
	"fleet-manager/pkg/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ExpenseService serves one expense kind. Monthly and yearly expenses share
// the document shape and differ only in collection and truck array.
type ExpenseService struct {
	cacheSupport
	eventSupport
	kind        models.ExpenseKind
	expenseRepo repository.ExpenseRepository
	integrity   *IntegrityService
}

func NewExpenseService(expenseRepo repository.ExpenseRepository, integrity *IntegrityService) *ExpenseService {
	return &ExpenseService{
		cacheSupport: cacheSupport{cacheConfig: cache.DefaultCacheConfig()},
		kind:         expenseRepo.Kind(),
		expenseRepo:  expenseRepo,
		integrity:    integrity,
	}
}

type CreateExpenseRequest struct {
	Truck       *string `json:"truck,omitempty" validate:"omitempty,mongodb"`
	Year        string  `json:"year" validate:"required,numeric,len=4"`
	Month       string  `json:"month,omitempty" validate:"max=20"`
	Fuel        float64 `json:"fuel,omitempty" validate:"gte=0"`
	Maintenance float64 `json:"maintenance,omitempty" validate:"gte=0"`
	Tolls       float64 `json:"tolls,omitempty" validate:"gte=0"`
	Wages       float64 `json:"wages,omitempty" validate:"gte=0"`
	Insurance   float64 `json:"insurance,omitempty" validate:"gte=0"`
	Permits     float64 `json:"permits,omitempty" validate:"gte=0"`
	Other       float64 `json:"other,omitempty" validate:"gte=0"`
	Notes       string  `json:"notes,omitempty" validate:"max=500"`
}

type UpdateExpenseRequest struct {
	Truck       *string  `json:"truck,omitempty" validate:"omitempty,mongodb"`
	Year        *string  `json:"year,omitempty" validate:"omitempty,numeric,len=4"`
	Month       *string  `json:"month,omitempty" validate:"omitempty,min=1,max=20"`
	Fuel        *float64 `json:"fuel,omitempty" validate:"omitempty,gte=0"`
	Maintenance *float64 `json:"maintenance,omitempty" validate:"omitempty,gte=0"`
	Tolls       *float64 `json:"tolls,omitempty" validate:"omitempty,gte=0"`
	Wages       *float64 `json:"wages,omitempty" validate:"omitempty,gte=0"`
	Insurance   *float64 `json:"insurance,omitempty" validate:"omitempty,gte=0"`
	Permits     *float64 `json:"permits,omitempty" validate:"omitempty,gte=0"`
	Other       *float64 `json:"other,omitempty" validate:"omitempty,gte=0"`
	Notes       *string  `json:"notes,omitempty" validate:"omitempty,max=500"`
}

// apply copies the provided fields onto expense.
func (r *UpdateExpenseRequest) apply(expense *models.Expense) error {
	if r.Truck != nil {
		oid, err := parseTruckRef(*r.Truck)
		if err != nil {
			return err
		}
		expense.Truck = &oid
	}
	if r.Year != nil {
		expense.Year = *r.Year
	}
	if r.Month != nil {
		expense.Month = utils.TitleCase(*r.Month)
	}
	assign(&expense.Fuel, r.Fuel)
	assign(&expense.Maintenance, r.Maintenance)
	assign(&expense.Tolls, r.Tolls)
	assign(&expense.Wages, r.Wages)
	assign(&expense.Insurance, r.Insurance)
	assign(&expense.Permits, r.Permits)
	assign(&expense.Other, r.Other)
	if r.Notes != nil {
		expense.Notes = *r.Notes
	}
	return nil
}

func (s *ExpenseService) Kind() models.ExpenseKind {
	return s.kind
}

func (s *ExpenseService) GetAllExpenses(ctx context.Context) ([]*models.Expense, error) {
	return s.expenseRepo.FindAll(ctx)
}

func (s *ExpenseService) GetExpenseByID(ctx context.Context, id string) (*models.Expense, error) {
	return s.expenseRepo.FindByID(ctx, id)
}

func (s *ExpenseService) CreateExpense(ctx context.Context, req *CreateExpenseRequest) (*models.Expense, error) {
	expense := &models.Expense{
		Year:        req.Year,
		Fuel:        req.Fuel,
		Maintenance: req.Maintenance,
		Tolls:       req.Tolls,
		Wages:       req.Wages,
		Insurance:   req.Insurance,
		Permits:     req.Permits,
		Other:       req.Other,
		Notes:       req.Notes,
	}

	switch s.kind {
	case models.ExpenseMonthly:
		if req.Month == "" {
			return nil, errs.InvalidArgument("month is required for monthly expenses")
		}
		expense.Month = utils.TitleCase(req.Month)
	case models.ExpenseYearly:
		if req.Month != "" {
			return nil, errs.InvalidArgument("month is not allowed for yearly expenses")
		}
	}

	if req.Truck != nil {
		oid, err := parseTruckRef(*req.Truck)
		if err != nil {
			return nil, err
		}
		expense.Truck = &oid
	}
	expense.ComputeTotal()

	created, err := s.integrity.CreateExpense(ctx, expense, s.kind)
	if err != nil {
		return nil, err
	}

	s.invalidateTrucks(ctx, created.Truck)
	s.publish(s.event(models.ChangeCreated, created))
	return created, nil
}

// UpdateExpense merges the provided fields and recomputes the total. A
// changed truck reference moves the expense between truck arrays.
func (s *ExpenseService) UpdateExpense(ctx context.Context, id string, req *UpdateExpenseRequest) (*models.Expense, error) {
	if s.kind == models.ExpenseYearly && req.Month != nil {
		return nil, errs.InvalidArgument("month is not allowed for yearly expenses")
	}

	current, err := s.expenseRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	previousTruck := current.Truck

	merged := *current
	if err := req.apply(&merged); err != nil {
		return nil, err
	}
	merged.ComputeTotal()

	moving := !sameRef(previousTruck, merged.Truck)
	if moving && merged.Truck != nil {
		if err := s.integrity.EnsureTruck(ctx, *merged.Truck); err != nil {
			return nil, err
		}
	}

	updated, err := s.expenseRepo.Update(ctx, id, expenseFields(&merged))
	if err != nil {
		return nil, err
	}

	if moving {
		err = s.integrity.MoveExpense(ctx, s.kind, updated, previousTruck)
	}

	s.invalidateTrucks(ctx, previousTruck, updated.Truck)
	if err != nil {
		return nil, err
	}
	s.publish(s.event(models.ChangeUpdated, updated))
	return updated, nil
}

func (s *ExpenseService) DeleteExpense(ctx context.Context, id string) error {
	expense, err := s.integrity.DeleteExpense(ctx, s.kind, id)
	if err != nil {
		return err
	}

	s.invalidateTrucks(ctx, expense.Truck)
	s.publish(s.event(models.ChangeDeleted, expense))
	return nil
}

func (s *ExpenseService) event(action models.ChangeAction, expense *models.Expense) models.ChangeEvent {
	return models.ChangeEvent{
		Resource: models.ResourceExpense,
		Kind:     s.kind,
		Action:   action,
		ID:       expense.ID.Hex(),
		Truck:    hexRef(expense.Truck),
		Data:     expense,
	}
}

func (s *ExpenseService) invalidateTrucks(ctx context.Context, trucks ...*primitive.ObjectID) {
	tags := []string{cache.TagTrucks}
	for _, truck := range trucks {
		if truck != nil {
			tags = append(tags, cache.TagTruck(truck.Hex()))
		}
	}
	s.invalidate(ctx, tags...)
}

func expenseFields(e *models.Expense) bson.M {
	fields := bson.M{
		"year":        e.Year,
		"fuel":        e.Fuel,
		"maintenance": e.Maintenance,
		"tolls":       e.Tolls,
		"wages":       e.Wages,
		"insurance":   e.Insurance,
		"permits":     e.Permits,
		"other":       e.Other,
		"total":       e.Total,
		"notes":       e.Notes,
	}
	if e.Truck != nil {
		fields["truck"] = *e.Truck
	}
	if e.Month != "" {
		fields["month"] = e.Month
	}
	return fields
}

func assign(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}
