// Package auth builds the signed login frame for private channels.
package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strconv"
	"time"

	"github.com/coinflex-exchange/api-connectors/errs"
	"github.com/coinflex-exchange/api-connectors/internal/command"
	"github.com/coinflex-exchange/api-connectors/internal/observability"
	"github.com/coinflex-exchange/api-connectors/internal/schema"
)

const (
	verifyMethod = "GET"
	verifyPath   = "/auth/self/verify"
)

// LoginTag is the correlation tag carried by every login frame.
var LoginTag = command.StringTag("hello")

type loginData struct {
	APIKey    string `json:"apiKey"`
	Timestamp string `json:"timestamp"`
	Signature string `json:"signature"`
}

// Sign returns base64(HMAC-SHA256(secret, timestamp + "GET" + "/auth/self/verify")).
func Sign(secret, timestamp string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp + verifyMethod + verifyPath))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// LoginFrame encodes the login request signed at now.
func LoginFrame(creds schema.Credentials, now time.Time) ([]byte, error) {
	if !creds.Present() {
		return nil, errs.New("auth.login", errs.CodeConfig,
			errs.WithMessage("api key and secret are required to log in"))
	}
	ts := strconv.FormatInt(now.UnixMilli(), 10)
	return command.Envelope{
		Op: command.OpLogin,
		Data: loginData{
			APIKey:    creds.APIKey,
			Timestamp: ts,
			Signature: Sign(creds.APISecret, ts),
		},
		Tag: LoginTag,
	}.Marshal()
}

// Sender writes one frame to the venue.
type Sender interface {
	Send(ctx context.Context, payload []byte) error
}

// Authenticator sends the login frame once the transport opens. Success is observed
// asynchronously when the venue answers with a Welcome event.
type Authenticator struct {
	creds  schema.Credentials
	now    func() time.Time
	logger observability.Logger
}

// Option customises an Authenticator.
type Option func(*Authenticator)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(a *Authenticator) {
		if now != nil {
			a.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger observability.Logger) Option {
	return func(a *Authenticator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// New returns an authenticator for a complete credential pair.
func New(creds schema.Credentials, opts ...Option) (*Authenticator, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}
	if !creds.Present() {
		return nil, errs.New("auth.new", errs.CodeConfig,
			errs.WithMessage("api key and secret are required"))
	}
	a := &Authenticator{
		creds:  creds,
		now:    time.Now,
		logger: observability.Log(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a, nil
}

// Authenticate signs and sends exactly one login frame.
func (a *Authenticator) Authenticate(ctx context.Context, sender Sender) error {
	payload, err := LoginFrame(a.creds, a.now())
	if err != nil {
		return err
	}
	if err := sender.Send(ctx, payload); err != nil {
		return errs.New("auth.login", errs.CodeAuth,
			errs.WithMessage("send login frame"),
			errs.WithCause(err))
	}
	a.logger.Debug("login frame sent", observability.Field{Key: "component", Value: "auth"})
	return nil
}
