package mongodb

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/highspring-tester/hat/internal/models"
	"github.com/highspring-tester/hat/internal/repositories"
)

type UserMongo struct {
	db   *mongo.Database
	coll *mongo.Collection
}

func NewUserMongo(db *mongo.Database) repositories.UserRepository {
	return &UserMongo{db: db, coll: db.Collection(usersCollection)}
}

func (r *UserMongo) Create(ctx context.Context, user *models.User) error {
	id, err := nextID(ctx, r.db, usersCollection)
	if err != nil {
		return err
	}
	user.ID = id
	if _, err := r.coll.InsertOne(ctx, user); err != nil {
		return translateError(err, "create user")
	}
	return nil
}

func (r *UserMongo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := r.coll.FindOne(ctx, bson.M{"username": username}).Decode(&user); err != nil {
		return nil, translateError(err, "get user by username")
	}
	return &user, nil
}

func (r *UserMongo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.coll.FindOne(ctx, bson.M{"email": email}).Decode(&user); err != nil {
		return nil, translateError(err, "get user by email")
	}
	return &user, nil
}
