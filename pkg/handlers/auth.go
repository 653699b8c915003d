package handlers

import (
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"strings"

	"blog-cms/pkg/config"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"
)

const (
	sessionTokenKey = "access_token"
	sessionStateKey = "oauth_state"
)

func AuthRequired(c *gin.Context) {
	session := sessions.Default(c)
	if token, _ := session.Get(sessionTokenKey).(string); token == "" {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		} else {
			c.Redirect(http.StatusFound, "/login")
			c.Abort()
		}
		return
	}
	c.Next()
}

func LoginPage(c *gin.Context) {
	c.HTML(http.StatusOK, "login.html", gin.H{"SiteTitle": config.SiteTitle})
}

func newOAuthState() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func GithubLogin(c *gin.Context) {
	state, err := newOAuthState()
	if err != nil {
		_ = c.Error(err)
		c.String(http.StatusInternalServerError, "Failed to start login")
		return
	}

	session := sessions.Default(c)
	session.Set(sessionStateKey, state)
	if err := session.Save(); err != nil {
		_ = c.Error(err)
		c.String(http.StatusInternalServerError, "Failed to save session")
		return
	}

	url := config.OauthConf.AuthCodeURL(state, oauth2.AccessTypeOffline)
	c.Redirect(http.StatusTemporaryRedirect, url)
}

func AuthCallback(c *gin.Context) {
	session := sessions.Default(c)
	expected, _ := session.Get(sessionStateKey).(string)
	session.Delete(sessionStateKey)
	if expected == "" || c.Query("state") != expected {
		_ = session.Save()
		c.String(http.StatusBadRequest, "Invalid OAuth state")
		return
	}

	token, err := config.OauthConf.Exchange(c.Request.Context(), c.Query("code"))
	if err != nil {
		_ = c.Error(err)
		c.String(http.StatusInternalServerError, "OAuth Exchange Failed")
		return
	}

	session.Set(sessionTokenKey, token.AccessToken)
	if err := session.Save(); err != nil {
		_ = c.Error(err)
		c.String(http.StatusInternalServerError, "Failed to save session")
		return
	}
	c.Redirect(http.StatusFound, "/")
}

func Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	_ = session.Save()
	c.Redirect(http.StatusFound, "/login")
}
