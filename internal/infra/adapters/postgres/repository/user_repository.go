package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/kinosync/kinosync/internal/domain/models"
)

type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
}

type userRepo struct {
	db *sqlx.DB
}

func NewUserRepo(db *sqlx.DB) UserRepository {
	return &userRepo{db: db}
}

func (r *userRepo) CreateUser(ctx context.Context, user *models.User) error {
	_, err := r.db.ExecContext(
		ctx,
		"INSERT INTO users (id, username, password, created_at) VALUES ($1, $2, $3, $4)",
		user.ID,
		user.Username,
		user.Password,
		user.CreatedAt,
	)

	return err
}

func (r *userRepo) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User

	err := r.db.GetContext(ctx, &user, "SELECT id, username, password, created_at FROM users WHERE id = $1", id)
	if err != nil {
		return nil, err
	}

	return &user, nil
}

func (r *userRepo) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User

	err := r.db.GetContext(ctx, &user, "SELECT id, username, password, created_at FROM users WHERE username = $1", username)
	if err != nil {
		return nil, err
	}

	return &user, nil
}
