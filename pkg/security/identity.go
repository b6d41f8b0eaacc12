package security

import (
	"context"

	"churchinventory/pkg/roles"

	"github.com/gin-gonic/gin"
)

const identityKey = "identity"

type identityContextKey struct{}

// Identity is the authenticated caller of a request. It is passed
// explicitly into every operation that needs to know who acted.
type Identity struct {
	UserID   int
	Username string
	Role     roles.Role
}

func (i Identity) IsAdmin() bool {
	return i.Role == roles.Admin
}

func (i Identity) IsZero() bool {
	return i.UserID == 0
}

func SetIdentity(c *gin.Context, identity Identity) {
	c.Set(identityKey, identity)
	c.Request = c.Request.WithContext(WithIdentity(c.Request.Context(), identity))
}

// IdentityFrom returns the identity placed by JWTMiddleware.
func IdentityFrom(c *gin.Context) (Identity, bool) {
	value, ok := c.Get(identityKey)
	if !ok {
		return Identity{}, false
	}
	identity, ok := value.(Identity)
	return identity, ok
}

func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, identity)
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityContextKey{}).(Identity)
	return identity, ok
}
