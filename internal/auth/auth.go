package auth

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

var ErrMissingCompany = errors.New("token carries no company")

// PartnerClaims identifies the company a partner token acts for.
type PartnerClaims struct {
	CompanyID   string `json:"company_id"`
	CompanyName string `json:"company_name"`
	Role        string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

type Authenticator interface {
	ValidateAccessToken(token string) (*PartnerClaims, error)
}
