package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are issued by the identity provider. EmployeeID links the account to its
// directory record.
type Claims struct {
	UserID     string `json:"uid"`
	EmployeeID string `json:"eid"`
	Name       string `json:"name"`
	RoleName   string `json:"role"`
	jwt.RegisteredClaims
}

type UserContext struct {
	UserID     string
	EmployeeID string
	Name       string
	RoleName   string
	HROverride bool
}

func GenerateToken(secret string, claims Claims, ttl time.Duration) (string, error) {
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   claims.UserID,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func ParseToken(secret, tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.UserID == "" {
		return nil, errors.New("token missing uid")
	}
	return claims, nil
}

// UserFromClaims builds the request user, resolving the HR override from the role.
func UserFromClaims(claims *Claims, overrideRoles []string) UserContext {
	return UserContext{
		UserID:     claims.UserID,
		EmployeeID: claims.EmployeeID,
		Name:       claims.Name,
		RoleName:   claims.RoleName,
		HROverride: HasOverride(claims.RoleName, overrideRoles),
	}
}
