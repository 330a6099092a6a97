package databases

// go generate: mockery --name BedDatabase

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/aquasafe179-rgb/rapidcareBeta/models"
)

const bedName = "beds"

// BedDatabase contains the methods to use with the bed database. UpdateStatus
// only lands when the bed is currently in one of the expected statuses, which
// is what keeps a bed from being booked twice.
type BedDatabase interface {
	FindOne(context.Context, interface{}, ...*options.FindOneOptions) (*models.Bed, error)
	Find(context.Context, interface{}, ...*options.FindOptions) ([]models.Bed, error)
	InsertOne(context.Context, interface{}, ...*options.InsertOneOptions) (InsertOneResultHelper, error)
	CountDocuments(context.Context, interface{}, ...*options.CountOptions) (int64, error)
	UpdateStatus(ctx context.Context, hospitalID, bedID string, fromStatuses []string, toStatus string) (*models.Bed, error)
}

type bedDatabase struct {
	db DatabaseHelper
}

// NewBedDatabase initializes a new instance of bed database with the provided db connection
func NewBedDatabase(db DatabaseHelper) BedDatabase {
	return &bedDatabase{
		db: db,
	}
}

func (b *bedDatabase) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.Bed, error) {
	bed := &models.Bed{}
	err := b.db.Collection(bedName).FindOne(ctx, filter, opts...).Decode(&bed)
	if err != nil {
		return nil, err
	}
	return bed, nil
}

func (b *bedDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Bed, error) {
	var beds []models.Bed
	err := b.db.Collection(bedName).Find(ctx, filter, opts...).Decode(&beds)
	if err != nil {
		return nil, err
	}
	return beds, nil
}

func (b *bedDatabase) InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (InsertOneResultHelper, error) {
	return b.db.Collection(bedName).InsertOne(ctx, document, opts...)
}

func (b *bedDatabase) CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error) {
	return b.db.Collection(bedName).CountDocuments(ctx, filter, opts...)
}

func (b *bedDatabase) UpdateStatus(ctx context.Context, hospitalID, bedID string, fromStatuses []string, toStatus string) (*models.Bed, error) {
	filter := bson.M{
		"bed.hospitalId": hospitalID,
		"bed.bedId":      bedID,
		"bed.status":     bson.M{"$in": fromStatuses},
	}
	now := primitive.NewDateTimeFromTime(time.Now())
	update := bson.M{
		"$set": bson.M{
			"bed.status":      toStatus,
			"bed.lastUpdated": now,
			"bed.updatedAt":   now,
		},
		"$inc": bson.M{"__v": 1},
	}
	res, err := b.db.Collection(bedName).UpdateOne(ctx, filter, update)
	if err != nil {
		return nil, err
	}
	if res.MatchedCount() == 0 {
		return nil, mongo.ErrNoDocuments
	}
	bed := &models.Bed{}
	err = b.db.Collection(bedName).FindOne(ctx, bson.M{"bed.hospitalId": hospitalID, "bed.bedId": bedID}).Decode(&bed)
	if err != nil {
		return nil, err
	}
	return bed, nil
}
