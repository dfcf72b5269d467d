package routing

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"docflow_app_go/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore keeps each case as one document with its history embedded.
type MongoStore struct {
	coll *mongo.Collection
}

// NewMongoStore wraps the correspondence collection.
func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{coll: db.Collection("correspondence")}
}

var mongoSortFields = map[string]string{
	SortCreatedAt:     "createdAt",
	SortUpdatedAt:     "updatedAt",
	SortRegExpediente: "regExpediente",
}

// EnsureIndexes creates the inbox indexes.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "ownerDept", Value: 1}, {Key: "ownerRole", Value: 1}, {Key: "estado", Value: 1}}},
		{Keys: bson.D{{Key: "ownerUserId", Value: 1}}},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "regExpediente", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create correspondence indexes: %w", err)
	}
	return nil
}

func (s *MongoStore) Create(ctx context.Context, c *models.Correspondence) error {
	if _, err := s.coll.InsertOne(ctx, c); err != nil {
		return fmt.Errorf("failed to insert correspondence: %w", err)
	}
	return nil
}

func (s *MongoStore) Get(ctx context.Context, id string) (*models.Correspondence, error) {
	var c models.Correspondence
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&c)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrCaseNotFound
		}
		return nil, fmt.Errorf("failed to load correspondence: %w", err)
	}
	return &c, nil
}

// Update is a single UpdateOne filtered on (_id, estado, version) that sets
// the mutable fields and pushes the new history entries.
func (s *MongoStore) Update(ctx context.Context, c *models.Correspondence, expectedState models.CorrespondenceState, expectedVersion int, appended []models.CorrespondenceHistory) error {
	filter := bson.M{"_id": c.ID, "estado": expectedState, "version": expectedVersion}
	update := bson.M{
		"$set": bson.M{
			"instrucciones": c.Instrucciones,
			"destino":       c.Destino,
			"jefeId":        c.JefeID,
			"jefeLabel":     c.JefeLabel,
			"tecnicoId":     c.TecnicoID,
			"tecnicoLabel":  c.TecnicoLabel,
			"estado":        c.Estado,
			"ownerDept":     c.OwnerDept,
			"ownerRole":     c.OwnerRole,
			"ownerUserId":   c.OwnerUserID,
			"activo":        c.Activo,
			"version":       c.Version,
			"updatedAt":     c.UpdatedAt,
		},
	}
	if len(appended) > 0 {
		update["$push"] = bson.M{"history": bson.M{"$each": appended}}
	}

	res, err := s.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update correspondence: %w", err)
	}
	if res.MatchedCount == 0 {
		n, err := s.coll.CountDocuments(ctx, bson.M{"_id": c.ID})
		if err != nil {
			return fmt.Errorf("failed to check correspondence: %w", err)
		}
		if n == 0 {
			return ErrCaseNotFound
		}
		return ErrStaleWrite
	}
	return nil
}

func (s *MongoStore) List(ctx context.Context, f ListFilter) ([]models.Correspondence, int64, error) {
	filter := mongoFilter(f)

	total, err := s.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count correspondence: %w", err)
	}

	opts := options.Find().
		SetSort(mongoSort(f)).
		SetSkip(int64(f.Offset())).
		SetProjection(bson.M{"history": 0})
	if f.Limit > 0 {
		opts.SetLimit(int64(f.Limit))
	}

	cur, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list correspondence: %w", err)
	}
	items := make([]models.Correspondence, 0)
	if err := cur.All(ctx, &items); err != nil {
		return nil, 0, fmt.Errorf("failed to decode correspondence: %w", err)
	}
	return items, total, nil
}

func mongoFilter(f ListFilter) bson.D {
	filter := bson.D{}
	if len(f.States) > 0 {
		filter = append(filter, bson.E{Key: "estado", Value: bson.M{"$in": f.States}})
	}
	if f.OwnerDept != "" {
		filter = append(filter, bson.E{Key: "ownerDept", Value: f.OwnerDept})
	}
	if f.OwnerRole != "" {
		filter = append(filter, bson.E{Key: "ownerRole", Value: f.OwnerRole})
	}
	if f.OwnerUserID != "" {
		filter = append(filter, bson.E{Key: "ownerUserId", Value: f.OwnerUserID})
	}
	if f.CreatedBy != "" {
		filter = append(filter, bson.E{Key: "createdBy", Value: f.CreatedBy})
	}
	if f.DateFrom != nil || f.DateTo != nil {
		field := "createdAt"
		if f.DateField == SortUpdatedAt {
			field = "updatedAt"
		}
		rng := bson.M{}
		if f.DateFrom != nil {
			rng["$gte"] = *f.DateFrom
		}
		if f.DateTo != nil {
			rng["$lt"] = *f.DateTo
		}
		filter = append(filter, bson.E{Key: field, Value: rng})
	}
	if f.Query != "" {
		re := bson.M{"$regex": regexp.QuoteMeta(f.Query), "$options": "i"}
		filter = append(filter, bson.E{Key: "$or", Value: bson.A{
			bson.M{"regExpediente": re},
			bson.M{"documentoRecibido": re},
			bson.M{"enviadoPor": re},
			bson.M{"notas": re},
			bson.M{"instrucciones": re},
		}})
	}
	return filter
}

func mongoSort(f ListFilter) bson.D {
	field, ok := mongoSortFields[f.Sort]
	if !ok {
		field = "createdAt"
	}
	dir := 1
	if f.Desc {
		dir = -1
	}
	return bson.D{{Key: field, Value: dir}, {Key: "_id", Value: dir}}
}
