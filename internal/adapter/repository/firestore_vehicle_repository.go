package repository

import (
	"context"
	"log"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"carlink/internal/domain/entity"
	"carlink/internal/domain/repository"
	"carlink/pkg/errors"
)

type firestoreVehicleRepository struct {
	client *firestore.Client
}

func NewFirestoreVehicleRepository(client *firestore.Client) repository.VehicleRepository {
	return &firestoreVehicleRepository{
		client: client,
	}
}

func (r *firestoreVehicleRepository) GetByID(ctx context.Context, id string) (*entity.Vehicle, error) {
	doc, err := r.client.Collection("vehicles").Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Vehicle", err)
		}
		return nil, errors.Transient("Failed to get vehicle", err)
	}

	var vehicle entity.Vehicle
	if err := doc.DataTo(&vehicle); err != nil {
		return nil, errors.Internal("Failed to parse vehicle data", err)
	}

	return &vehicle, nil
}

func (r *firestoreVehicleRepository) List(ctx context.Context, filter map[string]interface{}, limit, offset int) ([]*entity.Vehicle, int64, error) {
	query := r.client.Collection("vehicles").Query

	if makeName, ok := filter["make"].(string); ok && makeName != "" {
		query = query.Where("make", "==", makeName)
	}
	if dealerID, ok := filter["dealerId"].(string); ok && dealerID != "" {
		query = query.Where("dealerId", "==", dealerID)
	}
	if maxPrice, ok := filter["maxPrice"].(float64); ok && maxPrice > 0 {
		query = query.Where("price", "<=", maxPrice)
	}

	query = query.OrderBy("createdAt", firestore.Desc)

	allDocs, err := query.Documents(ctx).GetAll()
	if err != nil {
		log.Printf("Firestore error while listing vehicles: %v", err)
		return nil, 0, errors.Transient("Failed to list vehicles", err)
	}

	total := int64(len(allDocs))

	start := offset
	end := len(allDocs)
	if limit > 0 {
		end = start + limit
		if end > len(allDocs) {
			end = len(allDocs)
		}
	}
	if start > len(allDocs) {
		start = len(allDocs)
	}

	var vehicles []*entity.Vehicle
	for i := start; i < end; i++ {
		var vehicle entity.Vehicle
		if err := allDocs[i].DataTo(&vehicle); err != nil {
			log.Printf("Error parsing vehicle data: %v", err)
			continue
		}
		vehicles = append(vehicles, &vehicle)
	}

	return vehicles, total, nil
}
