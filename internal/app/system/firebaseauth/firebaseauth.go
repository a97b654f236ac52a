// Package firebaseauth verifies Firebase ID tokens issued to the web client.
package firebaseauth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

// ErrInvalidToken is returned for malformed, expired or revoked tokens.
var ErrInvalidToken = errors.New("invalid or expired firebase token")

// Identity is the subset of token claims used to find or create a user.
type Identity struct {
	UID           string
	Email         string
	EmailVerified bool
	Name          string
	Picture       string
}

// Verifier turns an ID token into an Identity.
type Verifier interface {
	Verify(ctx context.Context, idToken string) (Identity, error)
}

// Client verifies tokens with the Firebase Admin SDK.
type Client struct {
	auth *auth.Client
}

// New initializes a Firebase app for projectID. With an empty
// credentialsFile the SDK falls back to application default credentials.
func New(ctx context.Context, projectID, credentialsFile string) (*Client, error) {
	var conf *firebase.Config
	if projectID != "" {
		conf = &firebase.Config{ProjectID: projectID}
	}

	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	app, err := firebase.NewApp(ctx, conf, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase.NewApp: %w", err)
	}
	ac, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase auth client: %w", err)
	}
	return &Client{auth: ac}, nil
}

// Verify checks the token signature and expiry.
func (c *Client) Verify(ctx context.Context, idToken string) (Identity, error) {
	idToken = strings.TrimSpace(idToken)
	if idToken == "" {
		return Identity{}, ErrInvalidToken
	}
	tok, err := c.auth.VerifyIDToken(ctx, idToken)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return identityFromToken(tok), nil
}

func identityFromToken(tok *auth.Token) Identity {
	id := Identity{UID: tok.UID}
	if v, ok := tok.Claims["email"].(string); ok {
		id.Email = v
	}
	if v, ok := tok.Claims["email_verified"].(bool); ok {
		id.EmailVerified = v
	}
	if v, ok := tok.Claims["name"].(string); ok {
		id.Name = v
	}
	if v, ok := tok.Claims["picture"].(string); ok {
		id.Picture = v
	}
	return id
}

// BearerToken extracts the token from an "Authorization: Bearer x" value.
func BearerToken(header string) string {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
