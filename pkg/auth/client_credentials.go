package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/saturnines/domo-export/pkg/config"
	"github.com/saturnines/domo-export/pkg/errors"
	"github.com/saturnines/domo-export/pkg/transport/rest"
)

// TokenPath is the OAuth token endpoint, relative to the API base URL
const TokenPath = "/oauth/token"

// TokenResponse represents the response from the OAuth2 token endpoint
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type,omitempty"`
	ExpiresIn   int    `json:"expires_in,omitempty"`
	Scope       string `json:"scope,omitempty"`
	UserID      int64  `json:"userId,omitempty"`
	Domain      string `json:"domain,omitempty"`
}

// ClientCredentials holds the access token of one run.
// The token is requested once, on first use, and never refreshed.
type ClientCredentials struct {
	basic  *BasicAuth
	http   *resty.Client
	logger *zap.Logger

	mutex sync.Mutex
	token string
}

// NewClientCredentials creates a token holder for the given credentials.
// It fails with a MissingCredentialError when either credential is blank.
func NewClientCredentials(http *resty.Client, creds config.Credentials, logger *zap.Logger) (*ClientCredentials, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ClientCredentials{
		basic:  NewBasicAuth(creds.ClientID, creds.ClientSecret),
		http:   http,
		logger: logger,
	}, nil
}

// Token returns the cached access token, requesting it first if needed
func (c *ClientCredentials) Token(ctx context.Context) (string, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.token != "" {
		return c.token, nil
	}

	token, err := c.requestToken(ctx)
	if err != nil {
		return "", err
	}

	c.token = token
	c.logger.Info("authenticated", zap.String("client_id", c.basic.Username))
	return c.token, nil
}

// Authenticated reports whether a token has been obtained
func (c *ClientCredentials) Authenticated() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.token != ""
}

// ApplyAuth adds the bearer token to the request, authenticating first if needed
func (c *ClientCredentials) ApplyAuth(req *resty.Request) error {
	token, err := c.Token(req.Context())
	if err != nil {
		return err
	}
	return NewBearerAuth(token).ApplyAuth(req)
}

// requestToken exchanges the client credentials for an access token
func (c *ClientCredentials) requestToken(ctx context.Context) (string, error) {
	req := c.http.R().
		SetContext(ctx).
		SetQueryParam("grant_type", "client_credentials").
		SetHeader("Accept", "application/json")

	if err := c.basic.ApplyAuth(req); err != nil {
		return "", errors.WrapError(err, errors.ErrAuthentication, "build token request")
	}

	res, err := req.Get(TokenPath)
	if err != nil {
		return "", errors.WrapError(err, errors.ErrAuthentication, "token request failed")
	}
	if err := rest.CheckResponse(res); err != nil {
		return "", errors.WrapError(err, errors.ErrAuthentication, "token request rejected")
	}

	var tokenResp TokenResponse
	if err := json.Unmarshal(res.Body(), &tokenResp); err != nil {
		return "", errors.WrapError(err, errors.ErrAuthentication, "failed to decode token response")
	}
	if tokenResp.AccessToken == "" {
		return "", errors.WrapError(
			fmt.Errorf("response has no access_token"),
			errors.ErrAuthentication,
			"failed to decode token response",
		)
	}

	return tokenResp.AccessToken, nil
}

// String returns a string representation of this auth method
func (c *ClientCredentials) String() string {
	return fmt.Sprintf("ClientCredentials(client_id: %s, url: %s%s)", c.basic.Username, c.http.BaseURL, TokenPath)
}
