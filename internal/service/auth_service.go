package service

import (
	"context"
	"errors"
	"time"

	"github.com/jrrjunior2026-lang/PDV-WEB/internal/config"
	"github.com/jrrjunior2026-lang/PDV-WEB/internal/dto"
	"github.com/jrrjunior2026-lang/PDV-WEB/internal/model"
	"github.com/jrrjunior2026-lang/PDV-WEB/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

type AuthService interface {
	Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error)
}

type authService struct {
	repo repository.OperatorRepository
	cfg  *config.Config
}

func NewAuthService(repo repository.OperatorRepository, cfg *config.Config) AuthService {
	return &authService{repo: repo, cfg: cfg}
}

func (s *authService) Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error) {
	op, err := s.repo.FindByCode(ctx, req.OperatorCode)
	if err != nil {
		return nil, errors.New("credenciais inválidas")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(op.PINHash), []byte(req.PIN)); err != nil {
		return nil, errors.New("credenciais inválidas")
	}

	token, err := s.generateToken(op, time.Duration(s.cfg.JWTExpirationHours)*time.Hour)
	if err != nil {
		return nil, err
	}

	return &dto.LoginResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   s.cfg.JWTExpirationHours * 3600,
		Operator: dto.OperatorResponse{
			ID:   op.ID.String(),
			Code: op.Code,
			Name: op.Name,
			Role: op.Role,
		},
	}, nil
}

func (s *authService) generateToken(op *model.Operator, duration time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"operator_id":   op.ID.String(),
		"operator_code": op.Code,
		"operator_name": op.Name,
		"role":          op.Role,
		"exp":           time.Now().Add(duration).Unix(),
		"iat":           time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}
