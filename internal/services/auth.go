package services

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// AuthService issues and validates tokens for the read-only admin API. There
// is one admin credential, configured as a bcrypt hash.
type AuthService struct {
	adminUser string
	adminHash string
	jwtSecret []byte
}

func NewAuthService(adminUser, adminHash, jwtSecret string) *AuthService {
	return &AuthService{adminUser: adminUser, adminHash: adminHash, jwtSecret: []byte(jwtSecret)}
}

func (s *AuthService) Login(username, password string) (string, error) {
	if username != s.adminUser || s.adminHash == "" {
		return "", errors.New("invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(s.adminHash), []byte(password)); err != nil {
		return "", errors.New("invalid credentials")
	}
	return s.generateToken(username)
}

func (s *AuthService) generateToken(username string) (string, error) {
	claims := jwt.MapClaims{
		"sub": username,
		"exp": time.Now().Add(24 * time.Hour).Unix(),
		"iat": time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

func (s *AuthService) ValidateToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return "", errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("invalid claims")
	}
	sub, ok := claims["sub"].(string)
	if !ok {
		return "", errors.New("invalid subject in token")
	}
	return sub, nil
}
