package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/crypto/bcrypt"

	"github.com/patricktravel/portal/internal/core/domain"
)

const (
	usersCollection = "users"
	bcryptCost      = 10
)

// UserStore is the self-hosted credential store: users, bcrypt hashes and
// verification tokens live in MongoDB.
type UserStore struct {
	coll *mongo.Collection
	now  func() time.Time
}

func NewUserStore(db *mongo.Database) *UserStore {
	return &UserStore{coll: db.Collection(usersCollection), now: time.Now}
}

type mongoUser struct {
	ID                primitive.ObjectID `bson:"_id,omitempty"`
	FirstName         string             `bson:"first_name"`
	LastName          string             `bson:"last_name"`
	Email             string             `bson:"email"`
	PasswordHash      string             `bson:"password_hash"`
	AccountType       string             `bson:"account_type"`
	Country           string             `bson:"country,omitempty"`
	Nationality       string             `bson:"nationality,omitempty"`
	DateOfBirth       string             `bson:"date_of_birth,omitempty"`
	PlaceOfBirth      string             `bson:"place_of_birth,omitempty"`
	Gender            string             `bson:"gender,omitempty"`
	DocumentType      string             `bson:"document_type,omitempty"`
	DocumentNumber    string             `bson:"document_number,omitempty"`
	DocumentIssueDate string             `bson:"document_issue_date,omitempty"`
	HasHandicap       bool               `bson:"has_handicap"`
	HandicapDetails   string             `bson:"handicap_details,omitempty"`
	IsVerified        bool               `bson:"is_verified"`
	VerifyToken       string             `bson:"verification_token,omitempty"`
	VerifyExpires     int64              `bson:"verification_token_expires,omitempty"`
	CreatedAt         int64              `bson:"created_at"`
	UpdatedAt         int64              `bson:"updated_at"`
}

// EnsureIndexes enforces one account per email and speeds up link lookups.
func (s *UserStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "verification_token", Value: 1}}, Options: options.Index().SetSparse(true)},
	})
	if err != nil {
		return fmt.Errorf("create user indexes: %w", err)
	}
	return nil
}

func (s *UserStore) SignUp(ctx context.Context, reg domain.Registration) (*domain.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	verification, err := domain.NewVerification(now)
	if err != nil {
		return nil, err
	}

	doc := fromProfile(reg.Profile)
	doc.Email = domain.NormalizeEmail(reg.Email)
	doc.PasswordHash = string(hash)
	doc.VerifyToken = verification.Token
	doc.VerifyExpires = verification.ExpiresAt.Unix()
	doc.CreatedAt = now.Unix()
	doc.UpdatedAt = now.Unix()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := s.coll.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrDuplicateAccount
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		doc.ID = id
	}

	user := doc.toDomain()
	user.Verification = verification
	return user, nil
}

func (s *UserStore) SignIn(ctx context.Context, email, password string) (*domain.User, error) {
	mu, err := s.findOne(ctx, bson.M{"email": domain.NormalizeEmail(email)})
	if errors.Is(err, domain.ErrUserNotFound) {
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(mu.PasswordHash), []byte(password)) != nil {
		return nil, domain.ErrInvalidCredentials
	}
	return mu.toDomain(), nil
}

func (s *UserStore) FindByID(ctx context.Context, id string) (*domain.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrUserNotFound
	}
	mu, err := s.findOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return nil, err
	}
	return mu.toDomain(), nil
}

func (s *UserStore) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	mu, err := s.findOne(ctx, bson.M{"email": domain.NormalizeEmail(email)})
	if err != nil {
		return nil, err
	}
	return mu.toDomain(), nil
}

// ConfirmEmail consumes an unexpired verification token.
func (s *UserStore) ConfirmEmail(ctx context.Context, token string) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	now := s.now().UTC()
	filter := bson.M{
		"verification_token":         token,
		"verification_token_expires": bson.M{"$gt": now.Unix()},
	}
	update := bson.M{
		"$set":   bson.M{"is_verified": true, "updated_at": now.Unix()},
		"$unset": bson.M{"verification_token": "", "verification_token_expires": ""},
	}

	var mu mongoUser
	err := s.coll.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&mu)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrInvalidLink
		}
		return nil, fmt.Errorf("confirm email: %w", err)
	}
	return mu.toDomain(), nil
}

func (s *UserStore) UpdatePassword(ctx context.Context, userID, newPassword string) error {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return domain.ErrUserNotFound
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := s.coll.UpdateByID(ctx, oid, bson.M{"$set": bson.M{
		"password_hash": string(hash),
		"updated_at":    s.now().UTC().Unix(),
	}})
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (s *UserStore) findOne(ctx context.Context, filter bson.M) (*mongoUser, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var mu mongoUser
	if err := s.coll.FindOne(ctx, filter).Decode(&mu); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &mu, nil
}

func fromProfile(p domain.Profile) mongoUser {
	return mongoUser{
		FirstName:         p.FirstName,
		LastName:          p.LastName,
		Email:             p.Email,
		AccountType:       string(p.AccountType),
		Country:           p.Country,
		Nationality:       p.Nationality,
		DateOfBirth:       p.DateOfBirth,
		PlaceOfBirth:      p.PlaceOfBirth,
		Gender:            p.Gender,
		DocumentType:      p.DocumentType,
		DocumentNumber:    p.DocumentNumber,
		DocumentIssueDate: p.DocumentIssueDate,
		HasHandicap:       p.HasHandicap,
		HandicapDetails:   p.HandicapDetails,
	}
}

func (mu *mongoUser) toDomain() *domain.User {
	return &domain.User{
		ID: mu.ID.Hex(),
		Profile: domain.Profile{
			FirstName:         mu.FirstName,
			LastName:          mu.LastName,
			Email:             mu.Email,
			AccountType:       domain.AccountType(mu.AccountType),
			Country:           mu.Country,
			Nationality:       mu.Nationality,
			DateOfBirth:       mu.DateOfBirth,
			PlaceOfBirth:      mu.PlaceOfBirth,
			Gender:            mu.Gender,
			DocumentType:      mu.DocumentType,
			DocumentNumber:    mu.DocumentNumber,
			DocumentIssueDate: mu.DocumentIssueDate,
			HasHandicap:       mu.HasHandicap,
			HandicapDetails:   mu.HandicapDetails,
		},
		EmailConfirmed: mu.IsVerified,
		PasswordHash:   mu.PasswordHash,
		CreatedAt:      unixToTime(mu.CreatedAt),
		UpdatedAt:      unixToTime(mu.UpdatedAt),
	}
}

func unixToTime(ts int64) time.Time {
	if ts == 0 {
		return time.Time{}
	}
	return time.Unix(ts, 0).UTC()
}
