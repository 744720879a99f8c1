package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/kinosync/kinosync/internal/domain/models"
)

var errNotFound = errors.New("user not found")

// fakeUserRepo keeps users in a map.
type fakeUserRepo struct {
	byID   map[uuid.UUID]*models.User
	byName map[string]*models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		byID:   make(map[uuid.UUID]*models.User),
		byName: make(map[string]*models.User),
	}
}

func (f *fakeUserRepo) CreateUser(_ context.Context, user *models.User) error {
	stored := *user
	f.byID[user.ID] = &stored
	f.byName[user.Username] = &stored
	return nil
}

func (f *fakeUserRepo) GetUserByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return nil, errNotFound
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUserRepo) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	u, ok := f.byName[username]
	if !ok {
		return nil, errNotFound
	}
	copied := *u
	return &copied, nil
}

func TestCreateUserHashesPassword(t *testing.T) {
	repo := newFakeUserRepo()
	uc := NewUserUsecase([]byte("secret"), repo)

	user, err := uc.CreateUser(context.Background(), "alice", "hunter2")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if user.Password != "" {
		t.Error("returned user still carries a password")
	}

	stored := repo.byName["alice"]
	if stored == nil {
		t.Fatal("user not persisted")
	}
	if stored.Password == "hunter2" || stored.Password == "" {
		t.Error("password stored unhashed")
	}
}

func TestValidateCredentials(t *testing.T) {
	repo := newFakeUserRepo()
	uc := NewUserUsecase([]byte("secret"), repo)

	if _, err := uc.CreateUser(context.Background(), "alice", "hunter2"); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	if _, err := uc.ValidateCredentials(context.Background(), "alice", "hunter2"); err != nil {
		t.Errorf("valid credentials rejected: %v", err)
	}
	if _, err := uc.ValidateCredentials(context.Background(), "alice", "wrong"); err == nil {
		t.Error("wrong password accepted")
	}
	if _, err := uc.ValidateCredentials(context.Background(), "ghost", "hunter2"); err == nil {
		t.Error("unknown user accepted")
	}
}

func TestJWTRoundTrip(t *testing.T) {
	repo := newFakeUserRepo()
	uc := NewUserUsecase([]byte("secret"), repo)

	user, err := uc.CreateUser(context.Background(), "alice", "hunter2")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	token, err := uc.GenerateJWT(user)
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}

	id, err := uc.ParseUserID(token)
	if err != nil {
		t.Fatalf("ParseUserID: %v", err)
	}
	if id != user.ID {
		t.Errorf("parsed id = %s, want %s", id, user.ID)
	}

	other := NewUserUsecase([]byte("different"), repo)
	if _, err := other.ParseUserID(token); err == nil {
		t.Error("token accepted under a different secret")
	}
}
