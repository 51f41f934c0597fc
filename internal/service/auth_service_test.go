package service

import (
	"context"
	"testing"

	"backend/internal/model"
	"backend/pkg/apperror"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type fakeUserRepo struct {
	byEmail map[string]*model.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byEmail: make(map[string]*model.User)}
}

func (f *fakeUserRepo) Create(_ context.Context, user *model.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	stored := *user
	f.byEmail[user.Email] = &stored
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	for _, u := range f.byEmail {
		if u.ID.String() == id {
			copied := *u
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	u, ok := f.byEmail[email]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *u
	return &copied, nil
}

func TestAuthService(t *testing.T) {
	secret := []byte("test_secret")

	t.Run("register then login round-trips", func(t *testing.T) {
		repo := newFakeUserRepo()
		svc := NewAuthService(repo, secret)

		user, err := svc.Register(context.Background(), RegisterRequest{
			Email:    "customer@example.com",
			Name:     "Test Customer",
			Password: "hunter22",
		})
		if err != nil {
			t.Fatalf("register: %v", err)
		}
		if user.Role != model.RoleCustomer {
			t.Fatalf("registration must always create a customer, got %s", user.Role)
		}
		if repo.byEmail["customer@example.com"].Password == "hunter22" {
			t.Fatal("password must be stored hashed")
		}

		resp, err := svc.Login(context.Background(), LoginRequest{
			Email:    "customer@example.com",
			Password: "hunter22",
		})
		if err != nil {
			t.Fatalf("login: %v", err)
		}

		token, err := jwt.Parse(resp.Token, func(*jwt.Token) (interface{}, error) { return secret, nil })
		if err != nil || !token.Valid {
			t.Fatalf("token does not verify: %v", err)
		}
		claims := token.Claims.(jwt.MapClaims)
		if claims["sub"] != user.ID || claims["role"] != model.RoleCustomer {
			t.Fatalf("unexpected claims: %+v", claims)
		}
	})

	t.Run("duplicate registration is rejected", func(t *testing.T) {
		repo := newFakeUserRepo()
		svc := NewAuthService(repo, secret)

		req := RegisterRequest{Email: "dup@example.com", Name: "First", Password: "hunter22"}
		if _, err := svc.Register(context.Background(), req); err != nil {
			t.Fatalf("first register: %v", err)
		}
		_, err := svc.Register(context.Background(), req)
		if apperror.CodeOf(err) != apperror.CodeValidation {
			t.Fatalf("expected VALIDATION_ERROR, got %v", err)
		}
	})

	t.Run("wrong password and unknown email fail identically", func(t *testing.T) {
		repo := newFakeUserRepo()
		svc := NewAuthService(repo, secret)
		if _, err := svc.Register(context.Background(), RegisterRequest{
			Email: "customer@example.com", Name: "Test", Password: "hunter22",
		}); err != nil {
			t.Fatalf("register: %v", err)
		}

		_, wrongPass := svc.Login(context.Background(), LoginRequest{Email: "customer@example.com", Password: "nope"})
		_, unknown := svc.Login(context.Background(), LoginRequest{Email: "ghost@example.com", Password: "nope"})

		if apperror.CodeOf(wrongPass) != apperror.CodeForbidden || apperror.CodeOf(unknown) != apperror.CodeForbidden {
			t.Fatalf("expected FORBIDDEN for both, got %v / %v", wrongPass, unknown)
		}
		if apperror.MessageOf(wrongPass) != apperror.MessageOf(unknown) {
			t.Fatal("login failures must not reveal whether the email exists")
		}
	})
}
