package databases

// go generate: mockery --name AmbulanceDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/aquasafe179-rgb/rapidcareBeta/models"
)

const ambulanceName = "ambulances"

// AmbulanceDatabase contains the methods to use with the ambulance database
type AmbulanceDatabase interface {
	FindOne(context.Context, interface{}, ...*options.FindOneOptions) (*models.Ambulance, error)
	Find(context.Context, interface{}, ...*options.FindOptions) ([]models.Ambulance, error)
	UpdateOne(context.Context, interface{}, interface{}, ...*options.UpdateOptions) (*models.Ambulance, error)
}

type ambulanceDatabase struct {
	db DatabaseHelper
}

// NewAmbulanceDatabase initializes a new instance of ambulance database with the provided db connection
func NewAmbulanceDatabase(db DatabaseHelper) AmbulanceDatabase {
	return &ambulanceDatabase{
		db: db,
	}
}

func (a *ambulanceDatabase) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.Ambulance, error) {
	ambulance := &models.Ambulance{}
	err := a.db.Collection(ambulanceName).FindOne(ctx, filter, opts...).Decode(&ambulance)
	if err != nil {
		return nil, err
	}
	return ambulance, nil
}

func (a *ambulanceDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Ambulance, error) {
	var ambulances []models.Ambulance
	err := a.db.Collection(ambulanceName).Find(ctx, filter, opts...).Decode(&ambulances)
	if err != nil {
		return nil, err
	}
	return ambulances, nil
}

func (a *ambulanceDatabase) UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*models.Ambulance, error) {
	_, err := a.db.Collection(ambulanceName).UpdateOne(ctx, filter, update, opts...)
	if err != nil {
		return nil, err
	}
	ambulance := &models.Ambulance{}
	err = a.db.Collection(ambulanceName).FindOne(ctx, filter).Decode(&ambulance)
	if err != nil {
		return nil, err
	}
	return ambulance, nil
}
