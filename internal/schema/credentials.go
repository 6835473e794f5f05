package schema

import (
	"strings"

	"github.com/coinflex-exchange/api-connectors/errs"
)

// Credentials is the api key pair used for the login frame.
type Credentials struct {
	APIKey    string
	APISecret string
}

// Present reports whether both halves of the pair are set.
func (c Credentials) Present() bool {
	return strings.TrimSpace(c.APIKey) != "" && strings.TrimSpace(c.APISecret) != ""
}

// Validate enforces that the key and secret are both set or both empty.
func (c Credentials) Validate() error {
	hasKey := strings.TrimSpace(c.APIKey) != ""
	hasSecret := strings.TrimSpace(c.APISecret) != ""
	switch {
	case hasKey && !hasSecret:
		return errs.New("credentials", errs.CodeConfig,
			errs.WithMessage("api secret is required if api key is provided"))
	case !hasKey && hasSecret:
		return errs.New("credentials", errs.CodeConfig,
			errs.WithMessage("api key is required if api secret is provided"))
	}
	return nil
}
