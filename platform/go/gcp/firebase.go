package gcp

import (
	"context"
	"fmt"
	"strings"

	firebase "firebase.google.com/go/v4"
	firebaseauth "firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

// GetApp creates a Firebase App. An empty credentialsFile falls back to application default
// credentials.
func GetApp(ctx context.Context, credentialsFile string) (*firebase.App, error) {
	var opts []option.ClientOption
	if path := strings.TrimSpace(credentialsFile); path != "" {
		opts = append(opts, option.WithCredentialsFile(path))
	}
	return firebase.NewApp(ctx, nil, opts...)
}

// InitFirebaseAuth initializes the Firebase App and returns its Auth client, used both to
// verify ID tokens and to write the tenant custom claim.
func InitFirebaseAuth(ctx context.Context, credentialsFile string) (*firebase.App, *firebaseauth.Client, error) {
	app, err := GetApp(ctx, credentialsFile)
	if err != nil {
		return nil, nil, fmt.Errorf("error initializing firebase app [%w]", err)
	}

	fbAuth, err := app.Auth(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("error initializing firebase auth [%w]", err)
	}

	return app, fbAuth, nil
}
