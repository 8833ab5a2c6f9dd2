package appMiddleware

import "github.com/golang-jwt/jwt/v5"

type contextKey string

const UserIDKey contextKey = "userID"
const UserRoleKey contextKey = "userRole"

type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// JwtSecretKey signs access tokens. SetSecret overrides the default from
// configuration at startup.
var JwtSecretKey = []byte("dev-only-secret")

func SetSecret(secret string) {
	if secret != "" {
		JwtSecretKey = []byte(secret)
	}
}
