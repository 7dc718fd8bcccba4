package usecase

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
)

var ErrInvalidToken = errors.New("invalid token")

// AuthUsecase checks the bearer tokens issued by the identity system. Users
// themselves live there; this service only sees their opaque id.
type AuthUsecase interface {
	// ValidateToken returns the owner id carried by a valid token.
	ValidateToken(tokenString string) (string, error)
	// IssueToken signs a token for ownerID, for operators and local testing.
	IssueToken(ownerID, email string, ttl time.Duration) (string, error)
}

type authUsecase struct {
	secret []byte
	now    func() time.Time
}

func NewAuthUsecase(jwtSecret string) AuthUsecase {
	return &authUsecase{secret: []byte(jwtSecret), now: time.Now}
}

func (u *authUsecase) IssueToken(ownerID, email string, ttl time.Duration) (string, error) {
	if ownerID == "" {
		return "", eris.New("auth: empty owner id")
	}
	now := u.now()
	claims := jwt.MapClaims{
		"user_id":  ownerID,
		"email":    email,
		"token_id": uuid.New().String(),
		"exp":      now.Add(ttl).Unix(),
		"iat":      now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(u.secret)
	if err != nil {
		return "", eris.Wrap(err, "auth: sign token")
	}
	return signed, nil
}

func (u *authUsecase) ValidateToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return u.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(u.now))
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidToken
	}
	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return "", ErrInvalidToken
	}
	return userID, nil
}
