package databases

// go generate: mockery --name EmergencyDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/aquasafe179-rgb/rapidcareBeta/models"
)

const emergencyName = "emergencies"

// EmergencyDatabase contains the methods to use with the emergency database.
// ConditionalUpdate is the single mutation primitive the lifecycle transitions
// go through: the update only lands when the record still has one of the
// expected statuses and the version the caller read.
type EmergencyDatabase interface {
	FindOne(context.Context, interface{}, ...*options.FindOneOptions) (*models.Emergency, error)
	Find(context.Context, interface{}, ...*options.FindOptions) ([]models.Emergency, error)
	InsertOne(context.Context, interface{}, ...*options.InsertOneOptions) (InsertOneResultHelper, error)
	ConditionalUpdate(ctx context.Context, id string, fromStatuses []string, version int32, set bson.M) (*models.Emergency, error)
}

type emergencyDatabase struct {
	db DatabaseHelper
}

// NewEmergencyDatabase initializes a new instance of emergency database with the provided db connection
func NewEmergencyDatabase(db DatabaseHelper) EmergencyDatabase {
	return &emergencyDatabase{
		db: db,
	}
}

func (e *emergencyDatabase) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.Emergency, error) {
	emergency := &models.Emergency{}
	err := e.db.Collection(emergencyName).FindOne(ctx, filter, opts...).Decode(&emergency)
	if err != nil {
		return nil, err
	}
	return emergency, nil
}

func (e *emergencyDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Emergency, error) {
	var emergencies []models.Emergency
	err := e.db.Collection(emergencyName).Find(ctx, filter, opts...).Decode(&emergencies)
	if err != nil {
		return nil, err
	}
	return emergencies, nil
}

func (e *emergencyDatabase) InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (InsertOneResultHelper, error) {
	return e.db.Collection(emergencyName).InsertOne(ctx, document, opts...)
}

func (e *emergencyDatabase) ConditionalUpdate(ctx context.Context, id string, fromStatuses []string, version int32, set bson.M) (*models.Emergency, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}
	filter := bson.M{
		"_id":              oid,
		"emergency.status": bson.M{"$in": fromStatuses},
		"__v":              version,
	}
	update := bson.M{
		"$set": set,
		"$inc": bson.M{"__v": 1},
	}
	res, err := e.db.Collection(emergencyName).UpdateOne(ctx, filter, update)
	if err != nil {
		return nil, err
	}
	if res.MatchedCount() == 0 {
		return nil, mongo.ErrNoDocuments
	}
	emergency := &models.Emergency{}
	err = e.db.Collection(emergencyName).FindOne(ctx, bson.M{"_id": oid}).Decode(&emergency)
	if err != nil {
		return nil, err
	}
	return emergency, nil
}
