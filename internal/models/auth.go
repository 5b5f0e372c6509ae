package models

import "github.com/golang-jwt/jwt/v5"

// LoginRequest holds the admin credentials.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// JWTClaims describes the payload embedded in issued access tokens.
type JWTClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Principal identifies the caller behind an accepted credential.
type Principal struct {
	Subject string
	Method  string
}

// Authentication methods recorded on a Principal.
const (
	AuthMethodStaticToken = "static_token"
	AuthMethodJWT         = "jwt"
)
