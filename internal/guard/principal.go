package guard

import (
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/passage/internal/google"
	sessiondomain "github.com/smallbiznis/passage/internal/session/domain"
	userdomain "github.com/smallbiznis/passage/internal/user/domain"
)

const principalKey = "guard.principal"

// Principal is the outcome of a successful strategy run. Which fields
// are populated depends on the strategy: most resolve a User, the
// refresh strategies also carry the backing Session, and the OAuth
// strategies may carry provider identities for accounts that do not
// exist yet.
type Principal struct {
	Strategy Strategy

	User    *userdomain.User
	Session *sessiondomain.Session

	// RefreshToken is the raw token presented by the refresh
	// strategies, kept so the handler can rotate the same session.
	RefreshToken string

	Google       *google.Profile
	WechatOpenID string
	// WechatPhone is the optional phone number bound alongside the
	// wechat credentials; the strategy owns the body read.
	WechatPhone string
}

func setPrincipal(c *gin.Context, p *Principal) {
	c.Set(principalKey, p)
}

// PrincipalFrom returns the principal a strategy attached to the
// request, if any.
func PrincipalFrom(c *gin.Context) (*Principal, bool) {
	value, ok := c.Get(principalKey)
	if !ok {
		return nil, false
	}
	p, ok := value.(*Principal)
	return p, ok
}

// CurrentUser returns the authenticated user or nil for public routes
// and provider principals without a local account.
func CurrentUser(c *gin.Context) *userdomain.User {
	p, ok := PrincipalFrom(c)
	if !ok {
		return nil
	}
	return p.User
}
