package databases

// go generate: mockery --name HospitalDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/aquasafe179-rgb/rapidcareBeta/models"
)

const hospitalName = "hospitals"

// HospitalDatabase contains the methods to use with the hospital database
type HospitalDatabase interface {
	FindOne(context.Context, interface{}, ...*options.FindOneOptions) (*models.Hospital, error)
	Find(context.Context, interface{}, ...*options.FindOptions) ([]models.Hospital, error)
}

type hospitalDatabase struct {
	db DatabaseHelper
}

// NewHospitalDatabase initializes a new instance of hospital database with the provided db connection
func NewHospitalDatabase(db DatabaseHelper) HospitalDatabase {
	return &hospitalDatabase{
		db: db,
	}
}

func (h *hospitalDatabase) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.Hospital, error) {
	hospital := &models.Hospital{}
	err := h.db.Collection(hospitalName).FindOne(ctx, filter, opts...).Decode(&hospital)
	if err != nil {
		return nil, err
	}
	return hospital, nil
}

func (h *hospitalDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Hospital, error) {
	var hospitals []models.Hospital
	err := h.db.Collection(hospitalName).Find(ctx, filter, opts...).Decode(&hospitals)
	if err != nil {
		return nil, err
	}
	return hospitals, nil
}
