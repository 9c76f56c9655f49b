package auth

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// 秘密鍵は環境変数から。未設定なら開発用の固定値にフォールバック。
var jwtSecret = func() []byte {
	if s := os.Getenv("LABIS_JWT_SECRET"); s != "" {
		return []byte(s)
	}
	return []byte("dev-secret-key")
}()

// ロールは3種固定（admin: 全操作, tech: 在庫操作, faculty: 閲覧のみ）
const (
	RoleAdmin   = "admin"
	RoleTech    = "tech"
	RoleFaculty = "faculty"
)

var (
	ErrAlreadyExists = errors.New("already exists")
	ErrNotFound      = errors.New("not found")
	ErrSelfDelete    = errors.New("cannot delete own account")
	ErrInvalidRole   = errors.New("invalid role")
)

type Service struct {
	store UserStore
}

func NewService(db *sql.DB) *Service {
	return &Service{store: NewStore(db)}
}

type AuthService interface {
	Login(ctx context.Context, username, password string) (string, error)
	Register(ctx context.Context, username, password, role string) error
	Delete(ctx context.Context, username, actor string) error
	List(ctx context.Context) ([]UserResponse, error)
}

func JWTSecret() []byte {
	return jwtSecret
}

func validRole(role string) bool {
	return role == RoleAdmin || role == RoleTech || role == RoleFaculty
}

func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	u, err := s.store.GetByUsername(ctx, username)
	if err != nil {
		return "", err
	}
	if u == nil {
		return "", errors.New("authentication failed")
	}
	if u.IsDisabled {
		return "", errors.New("account disabled")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return "", errors.New("authentication failed")
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  u.Username,
		"role": u.Role,
		"exp":  time.Now().Add(24 * time.Hour).Unix(),
	})

	tokenString, err := token.SignedString(jwtSecret)
	if err != nil {
		return "", err
	}
	return tokenString, nil
}

func (s *Service) Register(ctx context.Context, username, password, role string) error {
	if !validRole(role) {
		return ErrInvalidRole
	}

	existing, err := s.store.GetByUsername(ctx, username)
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrAlreadyExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	return s.store.Create(ctx, &User{
		Username:     username,
		PasswordHash: string(hash),
		Role:         role,
	})
}

// Delete: 自分自身の削除は拒否する
func (s *Service) Delete(ctx context.Context, username, actor string) error {
	if username == actor {
		return ErrSelfDelete
	}
	n, err := s.store.Delete(ctx, username)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type UserResponse struct {
	Username  string `json:"username"`
	Role      string `json:"role"`
	Disabled  bool   `json:"disabled"`
	CreatedAt string `json:"created_at"`
}

func (s *Service) List(ctx context.Context) ([]UserResponse, error) {
	users, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, UserResponse{
			Username:  u.Username,
			Role:      u.Role,
			Disabled:  u.IsDisabled,
			CreatedAt: u.CreatedAt,
		})
	}
	return out, nil
}
