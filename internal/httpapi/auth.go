package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/wardenio/warden"
)

const identityKey = "warden.identity"

// tokenRequest is the RFC 6749 password-grant request, accepted as form or
// query parameters.
type tokenRequest struct {
	GrantType string `form:"grant_type"`
	Username  string `form:"username"`
	Password  string `form:"password"`
}

// tokenResponse is the RFC 6749 success envelope, extended with the
// password-stripped user snapshot.
type tokenResponse struct {
	AccessToken string           `json:"access_token"`
	TokenType   string           `json:"token_type"`
	ExpiresIn   int64            `json:"expires_in"`
	AuthUser    *warden.AuthUser `json:"auth_user,omitempty"`
}

type oauthError struct {
	Code        string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

// token implements GET/POST /oauth/token for grant_type=password.
func (s *Server) token(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, oauthError{Code: "invalid_request", Description: err.Error()})
		return
	}
	if req.GrantType != "password" {
		c.JSON(http.StatusBadRequest, oauthError{Code: "unsupported_grant_type"})
		return
	}
	if req.Username == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, oauthError{Code: "invalid_request", Description: "username and password required"})
		return
	}

	result, err := s.engine.Login(s.requestContext(c), req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, warden.ErrAccountNotFound),
			errors.Is(err, warden.ErrPasswordIncorrect):
			c.JSON(http.StatusBadRequest, oauthError{Code: "invalid_grant", Description: "invalid account or password"})
		case errors.Is(err, warden.ErrAccountDisabled):
			c.JSON(http.StatusBadRequest, oauthError{Code: "invalid_grant", Description: "account disabled"})
		case errors.Is(err, warden.ErrLoginRateLimited):
			c.JSON(http.StatusTooManyRequests, oauthError{Code: "rate_limited"})
		default:
			c.JSON(http.StatusServiceUnavailable, oauthError{Code: "temporarily_unavailable"})
		}
		return
	}

	c.JSON(http.StatusOK, tokenResponse{
		AccessToken: result.Token,
		TokenType:   "bearer",
		ExpiresIn:   result.Expiration,
		AuthUser:    result.AuthUser,
	})
}

// bearerAuth validates the Authorization header and attaches the
// authenticated identity to the request context.
func (s *Server) bearerAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		bearer := bearerToken(c.GetHeader("Authorization"))
		if bearer == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		user, err := s.engine.Authenticate(s.requestContext(c), bearer)
		if err != nil {
			if errors.Is(err, warden.ErrTokenInvalid) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
				return
			}
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "temporarily unavailable"})
			return
		}

		identity := warden.Identity{
			UserID:  user.ID,
			Account: user.Account,
			Name:    user.Name,
		}
		c.Set(identityKey, identity)
		c.Request = c.Request.WithContext(warden.WithIdentity(c.Request.Context(), identity))
		c.Next()
	}
}

// me returns the authenticated principal.
func (s *Server) me(c *gin.Context) {
	identity, ok := warden.IdentityFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}
	c.JSON(http.StatusOK, identity)
}

// logout discards the cached session behind the presented bearer token.
func (s *Server) logout(c *gin.Context) {
	bearer := bearerToken(c.GetHeader("Authorization"))
	if err := s.engine.Logout(s.requestContext(c), bearer); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "temporarily unavailable"})
		return
	}
	c.Status(http.StatusNoContent)
}

// issueTransient mints a single-use verification token.
func (s *Server) issueTransient(c *gin.Context) {
	transient, err := s.engine.IssueTransientToken(s.requestContext(c))
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "temporarily unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": transient})
}

// consumeTransient atomically consumes a single-use token and reports whether
// it was still live.
func (s *Server) consumeTransient(c *gin.Context) {
	valid, err := s.engine.ConsumeTransientToken(s.requestContext(c), c.Param("token"))
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "temporarily unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": valid})
}

// requestContext enriches the request context with the caller's address and
// User-Agent so the engine and log recorder can see them.
func (s *Server) requestContext(c *gin.Context) context.Context {
	ctx := warden.WithClientIP(c.Request.Context(), c.ClientIP())
	return warden.WithUserAgent(ctx, c.Request.UserAgent())
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return header[len(prefix):]
	}
	return ""
}
