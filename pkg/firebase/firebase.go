// Package firebase verifies Firebase ID tokens for the "Continue with Google" login.
package firebase

import (
	"context"
	"errors"
	"fmt"
	"os"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// Identity is what a verified ID token tells us about the signed in account
type Identity struct {
	UID           string
	Email         string
	EmailVerified bool
	Name          string
}

type idTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// Verifier turns Firebase ID tokens into identities
type Verifier struct {
	client idTokenVerifier
}

// NewVerifier initializes the Firebase app from a service account file
func NewVerifier(ctx context.Context, credentialsPath string, logger *zap.SugaredLogger) (*Verifier, error) {
	if credentialsPath == "" {
		return nil, errors.New("firebase credentials path not provided")
	}
	if _, err := os.Stat(credentialsPath); err != nil {
		return nil, fmt.Errorf("firebase credentials file: %w", err)
	}

	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsPath))
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("init firebase auth client: %w", err)
	}

	logger.Infof("Firebase sign-in enabled with credentials from %s", credentialsPath)
	return &Verifier{client: client}, nil
}

// Verify checks idToken and returns the identity it carries
func (v *Verifier) Verify(ctx context.Context, idToken string) (*Identity, error) {
	token, err := v.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, err
	}
	return identityFromToken(token), nil
}

func identityFromToken(token *auth.Token) *Identity {
	id := &Identity{UID: token.UID}
	id.Email, _ = token.Claims["email"].(string)
	id.EmailVerified, _ = token.Claims["email_verified"].(bool)
	id.Name, _ = token.Claims["name"].(string)
	return id
}
