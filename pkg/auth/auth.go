package auth

import (
	"github.com/go-resty/resty/v2"
)

// Handler defines the interface for auth handlers
type Handler interface {
	ApplyAuth(req *resty.Request) error
}
