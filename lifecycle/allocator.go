package lifecycle

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/aquasafe179-rgb/rapidcareBeta/databases"
	"github.com/aquasafe179-rgb/rapidcareBeta/models"
)

// Allocator owns the bed side of the admit/discharge flows. A bed flips
// Vacant -> Occupied only through a status-guarded update, so two records can
// never book the same bed.
type Allocator struct {
	Beds databases.BedDatabase
}

// NewAllocator creates an allocator over the bed database
func NewAllocator(beds databases.BedDatabase) *Allocator {
	return &Allocator{Beds: beds}
}

// Occupy books the bed for an admission. The bed must belong to the calling
// hospital and be Vacant; anything else is NotFound or Conflict respectively.
func (a *Allocator) Occupy(ctx context.Context, hospitalID, bedID string) (*models.Bed, error) {
	bed, err := a.Beds.FindOne(ctx, bson.M{"bed.hospitalId": hospitalID, "bed.bedId": bedID})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, NewNotFoundError("bed %s not found for hospital %s", bedID, hospitalID)
		}
		return nil, err
	}
	if bed.Details.Status != models.BedVacant {
		return nil, NewConflictError("bed %s is %s", bedID, bed.Details.Status)
	}
	updated, err := a.Beds.UpdateStatus(ctx, hospitalID, bedID, []string{models.BedVacant}, models.BedOccupied)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			// lost the race against another admission
			return nil, NewConflictError("bed %s is no longer vacant", bedID)
		}
		return nil, err
	}
	return updated, nil
}

// Release returns the bed to Vacant. A bed that is already vacant or no
// longer exists is a no-op, not an error: discharge must not fail because the
// bed record went away.
func (a *Allocator) Release(ctx context.Context, hospitalID, bedID string) (*models.Bed, error) {
	if bedID == "" {
		return nil, nil
	}
	updated, err := a.Beds.UpdateStatus(ctx, hospitalID, bedID, []string{models.BedOccupied, models.BedReserved}, models.BedVacant)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			zap.S().Warnw("release of a bed that was not occupied", "bedId", bedID, "hospitalId", hospitalID)
			return nil, nil
		}
		return nil, err
	}
	return updated, nil
}
