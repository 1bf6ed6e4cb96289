package shared

import (
	"strconv"

	"github.com/golang-jwt/jwt/v4"
)

// Claims is the authorization claim set carried by an access token. It is the
// sole carrier of authorization state for the token's lifetime: roles and
// permissions are frozen at issuance and only expiry forces a refresh.
type Claims struct {
	Username    string   `json:"username"`
	CompanyID   int64    `json:"companyId"`
	Roles       []string `json:"roles"`
	Permissions []string `json:"permissions"`
	jwt.RegisteredClaims
}

// UserID returns the token subject as a numeric user ID.
func (c *Claims) UserID() int64 {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return 0
	}
	return id
}
