package ports

import "github.com/identikit/identity-api/internal/core/domain"

// TokenIssuer produces signed bearer tokens. Roles are embedded in the
// order given; the issuer never contacts storage.
type TokenIssuer interface {
	Issue(user *domain.User, roles []string) (string, error)
}
