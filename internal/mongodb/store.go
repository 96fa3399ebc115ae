package mongodb

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"rentals/internal/config"
	"rentals/internal/domain"
	"rentals/internal/models"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

var _ domain.Store = (*Store)(nil)

// Store keeps properties, with their reviews and images embedded, in MongoDB.
type Store struct {
	client     *mongo.Client
	properties *mongo.Collection
	bookings   *mongo.Collection
	favorites  *mongo.Collection
	users      *mongo.Collection
	logger     *zerolog.Logger
}

func Connect(ctx context.Context, cfg config.MongoConfig, logger *zerolog.Logger) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("MongoDB ping failed: %w", err)
	}

	db := client.Database(cfg.Name)
	s := &Store{
		client:     client,
		properties: db.Collection("properties"),
		bookings:   db.Collection("bookings"),
		favorites:  db.Collection("favorites"),
		users:      db.Collection("users"),
		logger:     logger,
	}

	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	logger.Info().Str("database", cfg.Name).Msg("Connected to MongoDB")
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	indexes := map[*mongo.Collection][]mongo.IndexModel{
		s.properties: {
			{Keys: bson.D{{Key: "reviews._id", Value: 1}}},
			{Keys: bson.D{{Key: "email", Value: 1}}},
			{Keys: bson.D{{Key: "type", Value: 1}}},
		},
		s.bookings: {
			{Keys: bson.D{{Key: "property", Value: 1}, {Key: "checkIn", Value: 1}}},
			{Keys: bson.D{{Key: "user", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
		s.favorites: {
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "propertyId", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
	}
	for coll, idx := range indexes {
		if _, err := coll.Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", coll.Name(), err)
		}
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("error closing database connection: %w", err)
	}
	s.logger.Info().Msg("MongoDB connection closed")
	return nil
}

// SearchFilter translates a catalog filter into a query document.
func SearchFilter(filter models.PropertyFilter) bson.M {
	filter = filter.Normalize()
	query := bson.M{}
	if filter.Location != "" {
		query["location"] = bson.M{"$regex": primitive.Regex{Pattern: regexp.QuoteMeta(filter.Location), Options: "i"}}
	}
	if filter.Type != "" {
		query["type"] = bson.M{"$regex": primitive.Regex{Pattern: "^" + regexp.QuoteMeta(filter.Type) + "$", Options: "i"}}
	}
	return query
}

func emailFilter(email string) bson.M {
	email = strings.TrimSpace(email)
	return bson.M{"email": bson.M{"$regex": primitive.Regex{Pattern: "^" + regexp.QuoteMeta(email) + "$", Options: "i"}}}
}

var withoutImageData = options.Find().SetProjection(bson.M{"images.data": 0})

// Properties

func (s *Store) CreateProperty(ctx context.Context, property *models.Property) error {
	if property.ID == "" {
		property.ID = primitive.NewObjectID().Hex()
	}
	now := time.Now().UTC()
	if property.CreatedAt.IsZero() {
		property.CreatedAt = now
	}
	property.UpdatedAt = now
	property.Version = 1

	if _, err := s.properties.InsertOne(ctx, property); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: property %s already exists", models.ErrConflict, property.ID)
		}
		return fmt.Errorf("failed to create property: %w", err)
	}
	return nil
}

func (s *Store) GetProperty(ctx context.Context, id string) (*models.Property, error) {
	return s.findProperty(ctx, bson.M{"_id": id}, models.ErrPropertyNotFound)
}

func (s *Store) GetPropertyByReviewID(ctx context.Context, reviewID string) (*models.Property, error) {
	return s.findProperty(ctx, bson.M{"reviews._id": reviewID}, models.ErrReviewNotFound)
}

func (s *Store) findProperty(ctx context.Context, filter bson.M, notFound error) (*models.Property, error) {
	var property models.Property
	if err := s.properties.FindOne(ctx, filter).Decode(&property); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, notFound
		}
		return nil, fmt.Errorf("failed to load property: %w", err)
	}
	if property.Reviews == nil {
		property.Reviews = []models.Review{}
	}
	return &property, nil
}

func (s *Store) ReplaceProperty(ctx context.Context, property *models.Property) error {
	next := *property
	next.Version = property.Version + 1
	next.UpdatedAt = time.Now().UTC()

	result, err := s.properties.ReplaceOne(ctx, bson.M{"_id": property.ID, "version": property.Version}, &next)
	if err != nil {
		return fmt.Errorf("failed to replace property: %w", err)
	}
	if result.MatchedCount == 0 {
		count, err := s.properties.CountDocuments(ctx, bson.M{"_id": property.ID})
		if err != nil {
			return fmt.Errorf("failed to check property: %w", err)
		}
		if count == 0 {
			return models.ErrPropertyNotFound
		}
		return models.ErrVersionConflict
	}

	property.Version = next.Version
	property.UpdatedAt = next.UpdatedAt
	return nil
}

func (s *Store) DeleteProperty(ctx context.Context, id string) error {
	result, err := s.properties.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete property: %w", err)
	}
	if result.DeletedCount == 0 {
		return models.ErrPropertyNotFound
	}
	if _, err := s.favorites.DeleteMany(ctx, bson.M{"propertyId": id}); err != nil {
		s.logger.Warn().Err(err).Str("property_id", id).Msg("Failed to drop favorites of deleted property")
	}
	return nil
}

func (s *Store) SearchProperties(ctx context.Context, filter models.PropertyFilter) ([]*models.Property, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	return s.findProperties(ctx, SearchFilter(filter), opts, withoutImageData)
}

func (s *Store) GetPropertiesByIDs(ctx context.Context, ids []string) ([]*models.Property, error) {
	if len(ids) == 0 {
		return []*models.Property{}, nil
	}
	found, err := s.findProperties(ctx, bson.M{"_id": bson.M{"$in": ids}}, withoutImageData)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*models.Property, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}
	ordered := make([]*models.Property, 0, len(found))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			ordered = append(ordered, p)
			delete(byID, id)
		}
	}
	return ordered, nil
}

func (s *Store) GetPropertiesByEmail(ctx context.Context, email string) ([]*models.Property, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	return s.findProperties(ctx, emailFilter(email), opts, withoutImageData)
}

func (s *Store) findProperties(ctx context.Context, filter bson.M, opts ...*options.FindOptions) ([]*models.Property, error) {
	cursor, err := s.properties.Find(ctx, filter, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to query properties: %w", err)
	}
	defer cursor.Close(ctx)

	properties := []*models.Property{}
	if err := cursor.All(ctx, &properties); err != nil {
		return nil, fmt.Errorf("failed to decode properties: %w", err)
	}
	return properties, nil
}

func (s *Store) GetPropertySummaries(ctx context.Context, ids []string) (map[string]models.PropertySummary, error) {
	summaries := make(map[string]models.PropertySummary, len(ids))
	if len(ids) == 0 {
		return summaries, nil
	}

	opts := options.Find().SetProjection(bson.M{"name": 1, "location": 1, "email": 1, "owner": 1})
	cursor, err := s.properties.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query property summaries: %w", err)
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var summary models.PropertySummary
		if err := cursor.Decode(&summary); err != nil {
			return nil, err
		}
		summaries[summary.ID] = summary
	}
	return summaries, cursor.Err()
}

func (s *Store) CountProperties(ctx context.Context) (int64, error) {
	count, err := s.properties.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to count properties: %w", err)
	}
	return count, nil
}

// Bookings

func (s *Store) CreateBooking(ctx context.Context, booking *models.Booking) error {
	if booking.ID == "" {
		booking.ID = primitive.NewObjectID().Hex()
	}
	if booking.Status == "" {
		booking.Status = models.StatusPending
	}
	now := time.Now().UTC()
	booking.CreatedAt = now
	booking.UpdatedAt = now

	if _, err := s.bookings.InsertOne(ctx, booking); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: booking %s already exists", models.ErrConflict, booking.ID)
		}
		return fmt.Errorf("failed to create booking: %w", err)
	}
	return nil
}

func (s *Store) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	var booking models.Booking
	if err := s.bookings.FindOne(ctx, bson.M{"_id": id}).Decode(&booking); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrBookingNotFound
		}
		return nil, fmt.Errorf("failed to load booking: %w", err)
	}
	return &booking, nil
}

func (s *Store) UpdateBookingStatus(ctx context.Context, id, from, to string) error {
	update := bson.M{"$set": bson.M{"status": to, "updatedAt": time.Now().UTC()}}
	result, err := s.bookings.UpdateOne(ctx, bson.M{"_id": id, "status": from}, update)
	if err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}
	if result.MatchedCount == 0 {
		if _, err := s.GetBooking(ctx, id); err != nil {
			return err
		}
		return models.ErrInvalidTransition
	}
	return nil
}

var newestFirst = options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})

func (s *Store) GetBookings(ctx context.Context) ([]*models.Booking, error) {
	return s.findBookings(ctx, bson.M{}, newestFirst)
}

func (s *Store) GetUserBookings(ctx context.Context, userID string) ([]*models.Booking, error) {
	return s.findBookings(ctx, bson.M{"user": userID}, newestFirst)
}

func (s *Store) GetPropertyBookings(ctx context.Context, propertyID string) ([]*models.Booking, error) {
	opts := options.Find().SetSort(bson.D{{Key: "checkIn", Value: 1}, {Key: "createdAt", Value: 1}})
	return s.findBookings(ctx, bson.M{"property": propertyID}, opts)
}

func (s *Store) GetActiveBookings(ctx context.Context, propertyID string) ([]*models.Booking, error) {
	filter := bson.M{
		"property": propertyID,
		"status":   bson.M{"$in": bson.A{models.StatusPending, models.StatusConfirmed}},
	}
	return s.findBookings(ctx, filter, options.Find().SetSort(bson.D{{Key: "checkIn", Value: 1}}))
}

func (s *Store) findBookings(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*models.Booking, error) {
	cursor, err := s.bookings.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookings: %w", err)
	}
	defer cursor.Close(ctx)

	bookings := []*models.Booking{}
	if err := cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("failed to decode bookings: %w", err)
	}
	return bookings, nil
}

// Favorites

func (s *Store) AddFavorite(ctx context.Context, favorite *models.Favorite) error {
	if favorite.CreatedAt.IsZero() {
		favorite.CreatedAt = time.Now().UTC()
	}
	filter := bson.M{"userId": favorite.UserID, "propertyId": favorite.PropertyID}
	update := bson.M{"$setOnInsert": favorite}
	if _, err := s.favorites.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true)); err != nil {
		return fmt.Errorf("failed to add favorite: %w", err)
	}
	return nil
}

func (s *Store) RemoveFavorite(ctx context.Context, userID, propertyID string) (bool, error) {
	result, err := s.favorites.DeleteOne(ctx, bson.M{"userId": userID, "propertyId": propertyID})
	if err != nil {
		return false, fmt.Errorf("failed to remove favorite: %w", err)
	}
	return result.DeletedCount > 0, nil
}

func (s *Store) GetFavoritePropertyIDs(ctx context.Context, userID string) ([]string, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	cursor, err := s.favorites.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query favorites: %w", err)
	}
	defer cursor.Close(ctx)

	var favorites []models.Favorite
	if err := cursor.All(ctx, &favorites); err != nil {
		return nil, fmt.Errorf("failed to decode favorites: %w", err)
	}
	ids := make([]string, 0, len(favorites))
	for _, f := range favorites {
		ids = append(ids, f.PropertyID)
	}
	return ids, nil
}

// Users

func (s *Store) UpsertUser(ctx context.Context, user *models.User) error {
	user.UpdatedAt = time.Now().UTC()
	set := bson.M{"updatedAt": user.UpdatedAt}
	if user.Name != "" {
		set["name"] = user.Name
	}
	if user.Email != "" {
		set["email"] = user.Email
	}
	_, err := s.users.UpdateOne(ctx, bson.M{"_id": user.ID}, bson.M{"$set": set}, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}

func (s *Store) GetUsersByIDs(ctx context.Context, ids []string) (map[string]models.User, error) {
	users := make(map[string]models.User, len(ids))
	if len(ids) == 0 {
		return users, nil
	}

	cursor, err := s.users.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var u models.User
		if err := cursor.Decode(&u); err != nil {
			return nil, err
		}
		users[u.ID] = u
	}
	return users, cursor.Err()
}
