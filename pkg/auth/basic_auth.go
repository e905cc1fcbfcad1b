package auth

import (
	"encoding/base64"
	"fmt"

	"github.com/go-resty/resty/v2"

	"github.com/saturnines/domo-export/pkg/errors"
)

// BasicAuth implements the interface for HTTP basic authentication
type BasicAuth struct {
	Username string // OAuth client id
	Password string // OAuth client secret
}

// NewBasicAuth creates a new basic authentication handler
func NewBasicAuth(username, password string) *BasicAuth {
	return &BasicAuth{
		Username: username,
		Password: password,
	}
}

// HeaderValue returns "Basic " followed by base64("username:password")
func (b *BasicAuth) HeaderValue() (string, error) {
	// Validate inputs
	if b.Username == "" {
		return "", errors.WrapError(
			fmt.Errorf("username is required"),
			errors.ErrConfiguration,
			"apply basic auth",
		)
	}
	// an empty secret is still a valid basic credential

	// encode "username:password"
	encoded := base64.StdEncoding.EncodeToString([]byte(b.Username + ":" + b.Password))
	return "Basic " + encoded, nil
}

// ApplyAuth adds the basic auth header to the request
func (b *BasicAuth) ApplyAuth(req *resty.Request) error {
	value, err := b.HeaderValue()
	if err != nil {
		return err
	}

	// Set the auth header
	req.SetHeader("Authorization", value)
	return nil
}

// String returns a string representation of this auth method for testing
func (b *BasicAuth) String() string {
	return fmt.Sprintf("BasicAuth(username: %s)", b.Username)
}
