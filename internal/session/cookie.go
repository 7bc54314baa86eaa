package session

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/passage/internal/config"
)

// CookieName is the refresh-token cookie. The refresh token travels
// only in this cookie, never in a JSON body.
const CookieName = "refreshToken"

// CookieManager writes and clears the refresh-token cookie with the
// attributes the frontend contract fixes: httpOnly, SameSite=Strict,
// secure when the frontend is served over https.
type CookieManager struct {
	secure bool
}

func NewCookieManager(cfg config.Config) *CookieManager {
	return &CookieManager{secure: cfg.AuthCookieSecure}
}

func (m *CookieManager) Write(c *gin.Context, value string, expiresAt time.Time) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (m *CookieManager) Clear(c *gin.Context) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// Read returns the refresh token from the request cookie, if present.
func (m *CookieManager) Read(c *gin.Context) (string, bool) {
	cookie, err := c.Request.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}
