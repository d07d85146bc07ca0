package firebase

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

// App wraps the Firebase clients used for social sign-in.
type App struct {
	App        *firebase.App
	AuthClient *auth.Client
}

// InitFirebase initializes the Firebase app from a service-account credentials
// file. Social sign-in is optional: callers may skip initialization entirely
// when no credentials path is configured.
func InitFirebase(ctx context.Context, credentialsPath string) (*App, error) {
	opt := option.WithCredentialsFile(credentialsPath)

	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %w", err)
	}

	authClient, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting firebase auth client: %w", err)
	}

	return &App{App: app, AuthClient: authClient}, nil
}
