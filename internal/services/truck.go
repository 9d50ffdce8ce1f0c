package services

import (
	"context"

	"fleet-manager/internal/models"
	"fleet-manager/internal/repository"
	"fleet-manager/pkg/cache"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"
)

const (
	cacheKeyTrucks          = "trucks:all"
	cacheKeyTrucksWithTrips = "trucks:with_trips"
)

type TruckService struct {
	cacheSupport
	eventSupport
	truckRepo repository.TruckRepository
	tripRepo  repository.TripRepository
	integrity *IntegrityService
}

func NewTruckService(truckRepo repository.TruckRepository, tripRepo repository.TripRepository, integrity *IntegrityService) *TruckService {
	return &TruckService{
		cacheSupport: cacheSupport{cacheConfig: cache.DefaultCacheConfig()},
		truckRepo:    truckRepo,
		tripRepo:     tripRepo,
		integrity:    integrity,
	}
}

type CreateTruckRequest struct {
	PlateNumber string  `json:"plateNumber" validate:"required,min=1,max=20"`
	Make        string  `json:"make,omitempty" validate:"max=50"`
	Model       string  `json:"model,omitempty" validate:"max=50"`
	Year        int     `json:"year,omitempty" validate:"omitempty,min=1900,max=2100"`
	Driver      string  `json:"driver,omitempty" validate:"max=100"`
	Capacity    float64 `json:"capacity,omitempty" validate:"gte=0"`
	Status      string  `json:"status,omitempty" validate:"max=30"`
}

type UpdateTruckRequest struct {
	PlateNumber *string  `json:"plateNumber,omitempty" validate:"omitempty,min=1,max=20"`
	Make        *string  `json:"make,omitempty" validate:"omitempty,max=50"`
	Model       *string  `json:"model,omitempty" validate:"omitempty,max=50"`
	Year        *int     `json:"year,omitempty" validate:"omitempty,min=1900,max=2100"`
	Driver      *string  `json:"driver,omitempty" validate:"omitempty,max=100"`
	Capacity    *float64 `json:"capacity,omitempty" validate:"omitempty,gte=0"`
	Status      *string  `json:"status,omitempty" validate:"omitempty,max=30"`
}

// Fields returns the $set document for the provided fields.
func (r *UpdateTruckRequest) Fields() bson.M {
	fields := bson.M{}
	setIf(fields, "plate_number", r.PlateNumber)
	setIf(fields, "make", r.Make)
	setIf(fields, "model", r.Model)
	setIf(fields, "year", r.Year)
	setIf(fields, "driver", r.Driver)
	setIf(fields, "capacity", r.Capacity)
	setIf(fields, "status", r.Status)
	return fields
}

func (s *TruckService) GetAllTrucks(ctx context.Context) ([]*models.Truck, error) {
	var trucks []*models.Truck
	if s.cached(ctx, cacheKeyTrucks, &trucks) {
		return trucks, nil
	}

	trucks, err := s.truckRepo.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	s.store(ctx, cacheKeyTrucks, trucks, s.cacheConfig.ListTTL, cache.TagTrucks)
	return trucks, nil
}

func (s *TruckService) GetTruckByID(ctx context.Context, id string) (*models.Truck, error) {
	key := cache.TagTruck(id)

	var truck models.Truck
	if s.cached(ctx, key, &truck) {
		return &truck, nil
	}

	found, err := s.truckRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.store(ctx, key, found, s.cacheConfig.TruckTTL, cache.TagTruck(id), cache.TagTrucks)
	return found, nil
}

// GetTrucksWithTrips lists every truck with its trip documents expanded.
// Trucks and trips are read concurrently and joined on the trip's truck.
func (s *TruckService) GetTrucksWithTrips(ctx context.Context) ([]*models.TruckWithTrips, error) {
	var joined []*models.TruckWithTrips
	if s.cached(ctx, cacheKeyTrucksWithTrips, &joined) {
		return joined, nil
	}

	var (
		trucks []*models.Truck
		trips  []*models.Trip
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		trucks, err = s.truckRepo.FindAll(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		trips, err = s.tripRepo.FindAll(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	byTruck := make(map[primitive.ObjectID][]*models.Trip)
	for _, trip := range trips {
		if trip.Truck != nil {
			byTruck[*trip.Truck] = append(byTruck[*trip.Truck], trip)
		}
	}

	joined = make([]*models.TruckWithTrips, 0, len(trucks))
	for _, truck := range trucks {
		details := byTruck[truck.ID]
		if details == nil {
			details = []*models.Trip{}
		}
		joined = append(joined, &models.TruckWithTrips{Truck: truck, TripDetails: details})
	}

	s.store(ctx, cacheKeyTrucksWithTrips, joined, s.cacheConfig.ListTTL, cache.TagTrucks, cache.TagTrips)
	return joined, nil
}

func (s *TruckService) CreateTruck(ctx context.Context, req *CreateTruckRequest) (*models.Truck, error) {
	truck := &models.Truck{
		PlateNumber: req.PlateNumber,
		Make:        req.Make,
		Model:       req.Model,
		Year:        req.Year,
		Driver:      req.Driver,
		Capacity:    req.Capacity,
		Status:      req.Status,
	}

	created, err := s.truckRepo.Create(ctx, truck)
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, cache.TagTrucks)
	s.publish(models.ChangeEvent{Resource: models.ResourceTruck, Action: models.ChangeCreated, ID: created.ID.Hex(), Truck: created.ID.Hex(), Data: created})
	return created, nil
}

func (s *TruckService) UpdateTruck(ctx context.Context, id string, req *UpdateTruckRequest) (*models.Truck, error) {
	updated, err := s.truckRepo.Update(ctx, id, req.Fields())
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, cache.TagTruck(id), cache.TagTrucks)
	s.publish(models.ChangeEvent{Resource: models.ResourceTruck, Action: models.ChangeUpdated, ID: updated.ID.Hex(), Truck: updated.ID.Hex(), Data: updated})
	return updated, nil
}

// DeleteTruck cascades to the truck's trips and expenses.
func (s *TruckService) DeleteTruck(ctx context.Context, id string) (*CascadeResult, error) {
	result, err := s.integrity.DeleteTruck(ctx, id)

	// A failed cascade may still have removed some documents.
	s.invalidate(ctx, cache.TagTruck(id), cache.TagTrucks, cache.TagTrips)
	if err == nil {
		s.publish(models.ChangeEvent{Resource: models.ResourceTruck, Action: models.ChangeDeleted, ID: id, Truck: id, Data: result})
	}
	return result, err
}

func setIf[T any](fields bson.M, key string, v *T) {
	if v != nil {
		fields[key] = *v
	}
}
