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

type TripService struct {
	cacheSupport
	eventSupport
	tripRepo  repository.TripRepository
	integrity *IntegrityService
}

func NewTripService(tripRepo repository.TripRepository, integrity *IntegrityService) *TripService {
	return &TripService{
		cacheSupport: cacheSupport{cacheConfig: cache.DefaultCacheConfig()},
		tripRepo:     tripRepo,
		integrity:    integrity,
	}
}

type CreateTripRequest struct {
	Truck       *string `json:"truck,omitempty" validate:"omitempty,mongodb"`
	Origin      string  `json:"origin,omitempty" validate:"max=200"`
	Destination string  `json:"destination,omitempty" validate:"max=200"`
	Driver      string  `json:"driver,omitempty" validate:"max=100"`
	Cargo       string  `json:"cargo,omitempty" validate:"max=200"`
	Distance    float64 `json:"distance,omitempty" validate:"gte=0"`
	Revenue     float64 `json:"revenue,omitempty" validate:"gte=0"`
	Year        string  `json:"year" validate:"required,numeric,len=4"`
	Month       string  `json:"month" validate:"required,max=20"`
	Status      string  `json:"status,omitempty" validate:"omitempty,oneof=Pending Completed pending completed"`
}

type UpdateTripRequest struct {
	Truck       *string  `json:"truck,omitempty" validate:"omitempty,mongodb"`
	Origin      *string  `json:"origin,omitempty" validate:"omitempty,max=200"`
	Destination *string  `json:"destination,omitempty" validate:"omitempty,max=200"`
	Driver      *string  `json:"driver,omitempty" validate:"omitempty,max=100"`
	Cargo       *string  `json:"cargo,omitempty" validate:"omitempty,max=200"`
	Distance    *float64 `json:"distance,omitempty" validate:"omitempty,gte=0"`
	Revenue     *float64 `json:"revenue,omitempty" validate:"omitempty,gte=0"`
	Year        *string  `json:"year,omitempty" validate:"omitempty,numeric,len=4"`
	Month       *string  `json:"month,omitempty" validate:"omitempty,max=20"`
	Status      *string  `json:"status,omitempty" validate:"omitempty,oneof=Pending Completed pending completed"`
}

// Fields returns the $set document for the provided fields, with month and
// status in canonical case.
func (r *UpdateTripRequest) Fields() (bson.M, error) {
	fields := bson.M{}
	if r.Truck != nil {
		oid, err := parseTruckRef(*r.Truck)
		if err != nil {
			return nil, err
		}
		fields["truck"] = oid
	}
	setIf(fields, "origin", r.Origin)
	setIf(fields, "destination", r.Destination)
	setIf(fields, "driver", r.Driver)
	setIf(fields, "cargo", r.Cargo)
	setIf(fields, "distance", r.Distance)
	setIf(fields, "revenue", r.Revenue)
	setIf(fields, "year", r.Year)
	if r.Month != nil {
		fields["month"] = utils.TitleCase(*r.Month)
	}
	if r.Status != nil {
		fields["status"] = utils.TitleCase(*r.Status)
	}
	return fields, nil
}

func (s *TripService) GetAllTrips(ctx context.Context) ([]*models.Trip, error) {
	return s.tripRepo.FindAll(ctx)
}

func (s *TripService) GetTripByID(ctx context.Context, id string) (*models.Trip, error) {
	return s.tripRepo.FindByID(ctx, id)
}

// GetTripsByTruckPeriod returns the trips of a truck in the given year and
// month.
func (s *TripService) GetTripsByTruckPeriod(ctx context.Context, truckID, year, month string) ([]*models.Trip, error) {
	oid, err := primitive.ObjectIDFromHex(truckID)
	if err != nil {
		return nil, errs.InvalidArgument("invalid truck ID")
	}
	return s.tripRepo.Find(ctx, repository.TripFilter{
		Truck: &oid,
		Year:  year,
		Month: utils.TitleCase(month),
	})
}

func (s *TripService) GetPendingTrips(ctx context.Context) ([]*models.Trip, error) {
	return s.tripRepo.Find(ctx, repository.TripFilter{Status: models.TripStatusPending})
}

// GetCompletedTrips returns completed trips, optionally narrowed by month and
// year. Empty arguments are not filtered on.
func (s *TripService) GetCompletedTrips(ctx context.Context, month, year string) ([]*models.Trip, error) {
	return s.tripRepo.Find(ctx, repository.TripFilter{
		Status: models.TripStatusCompleted,
		Year:   year,
		Month:  utils.TitleCase(month),
	})
}

func (s *TripService) CreateTrip(ctx context.Context, req *CreateTripRequest) (*models.Trip, error) {
	trip := &models.Trip{
		Origin:      req.Origin,
		Destination: req.Destination,
		Driver:      req.Driver,
		Cargo:       req.Cargo,
		Distance:    req.Distance,
		Revenue:     req.Revenue,
		Year:        req.Year,
		Month:       utils.TitleCase(req.Month),
		Status:      utils.TitleCase(req.Status),
	}
	if trip.Status == "" {
		trip.Status = models.TripStatusPending
	}
	if req.Truck != nil {
		oid, err := parseTruckRef(*req.Truck)
		if err != nil {
			return nil, err
		}
		trip.Truck = &oid
	}

	created, err := s.integrity.CreateTrip(ctx, trip)
	if err != nil {
		return nil, err
	}

	s.invalidateTrips(ctx, created.Truck)
	s.publish(tripEvent(models.ChangeCreated, created))
	return created, nil
}

// UpdateTrip merges the provided fields. When the truck reference changes the
// trip is moved between the trucks' trip arrays.
func (s *TripService) UpdateTrip(ctx context.Context, id string, req *UpdateTripRequest) (*models.Trip, error) {
	fields, err := req.Fields()
	if err != nil {
		return nil, err
	}

	current, err := s.tripRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	newTruck, moving := fields["truck"].(primitive.ObjectID)
	if moving && current.Truck != nil && *current.Truck == newTruck {
		moving = false
	}
	if moving {
		if err := s.integrity.EnsureTruck(ctx, newTruck); err != nil {
			return nil, err
		}
	}

	updated, err := s.tripRepo.Update(ctx, id, fields)
	if err != nil {
		return nil, err
	}

	if moving {
		if err := s.integrity.MoveTrip(ctx, updated.ID, current.Truck, updated.Truck); err != nil {
			s.invalidateTrips(ctx, current.Truck, updated.Truck)
			return nil, err
		}
	}

	s.invalidateTrips(ctx, current.Truck, updated.Truck)
	s.publish(tripEvent(models.ChangeUpdated, updated))
	return updated, nil
}

func (s *TripService) DeleteTrip(ctx context.Context, id string) error {
	trip, err := s.integrity.DeleteTrip(ctx, id)
	if err != nil {
		return err
	}

	s.invalidateTrips(ctx, trip.Truck)
	s.publish(tripEvent(models.ChangeDeleted, trip))
	return nil
}

func tripEvent(action models.ChangeAction, trip *models.Trip) models.ChangeEvent {
	return models.ChangeEvent{
		Resource: models.ResourceTrip,
		Action:   action,
		ID:       trip.ID.Hex(),
		Truck:    hexRef(trip.Truck),
		Data:     trip,
	}
}

func (s *TripService) invalidateTrips(ctx context.Context, trucks ...*primitive.ObjectID) {
	tags := []string{cache.TagTrips, cache.TagTrucks}
	for _, truck := range trucks {
		if truck != nil {
			tags = append(tags, cache.TagTruck(truck.Hex()))
		}
	}
	s.invalidate(ctx, tags...)
}

func parseTruckRef(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, errs.InvalidArgument("invalid truck ID")
	}
	return oid, nil
}
