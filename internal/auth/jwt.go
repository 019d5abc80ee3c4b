package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type JWT struct {
	secret []byte
}

func NewJWT(secret string) *JWT {
	return &JWT{secret: []byte(secret)}
}

func (j *JWT) Sign(userID, orgID uint64) (string, error) {
	claims := jwt.MapClaims{
		"sub": userID,
		"org": orgID,
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(7 * 24 * time.Hour).Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(j.secret)
}

func (j *JWT) Verify(tokenStr string) (userID, orgID uint64, err error) {
	t, err := jwt.Parse(tokenStr, func(token *jwt.Token) (any, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return j.secret, nil
	})
	if err != nil || !t.Valid {
		return 0, 0, errors.New("invalid token")
	}

	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok {
		return 0, 0, errors.New("invalid claims")
	}

	userID, err = claimID(claims, "sub")
	if err != nil {
		return 0, 0, err
	}
	orgID, err = claimID(claims, "org")
	if err != nil {
		return 0, 0, err
	}
	return userID, orgID, nil
}

func claimID(claims jwt.MapClaims, key string) (uint64, error) {
	v, ok := claims[key]
	if !ok {
		return 0, errors.New("missing " + key)
	}

	// jwt MapClaims numbers are float64
	f, ok := v.(float64)
	if !ok {
		return 0, errors.New("invalid " + key + " type")
	}
	return uint64(f), nil
}
