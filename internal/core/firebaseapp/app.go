package firebaseapp

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"sync"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"

	"github.com/frahmantamala/household-ledger/internal"
)

// App owns the process-wide Firebase app and hands out its clients, each
// created once on first use.
type App struct {
	app *firebase.App

	firestoreOnce   sync.Once
	firestoreClient *firestore.Client
	firestoreErr    error

	authOnce   sync.Once
	authClient *auth.Client
	authErr    error
}

func New(ctx context.Context, cfg internal.FirebaseConfig) (*App, error) {
	opts, err := clientOptions(cfg)
	if err != nil {
		return nil, err
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("initialize firebase app: %w", err)
	}
	return &App{app: app}, nil
}

// clientOptions prefers inline credentials (raw or base64 JSON), then a file,
// then application default credentials.
func clientOptions(cfg internal.FirebaseConfig) ([]option.ClientOption, error) {
	switch {
	case cfg.CredentialsJSON != "":
		raw := strings.TrimSpace(cfg.CredentialsJSON)
		if !strings.HasPrefix(raw, "{") {
			decoded, err := base64.StdEncoding.DecodeString(raw)
			if err != nil {
				return nil, fmt.Errorf("decode firebase credentials: %w", err)
			}
			raw = string(decoded)
		}
		return []option.ClientOption{option.WithCredentialsJSON([]byte(raw))}, nil
	case cfg.CredentialsFile != "":
		return []option.ClientOption{option.WithCredentialsFile(cfg.CredentialsFile)}, nil
	default:
		return nil, nil
	}
}

func (a *App) Firestore(ctx context.Context) (*firestore.Client, error) {
	a.firestoreOnce.Do(func() {
		a.firestoreClient, a.firestoreErr = a.app.Firestore(ctx)
	})
	return a.firestoreClient, a.firestoreErr
}

func (a *App) Auth(ctx context.Context) (*auth.Client, error) {
	a.authOnce.Do(func() {
		a.authClient, a.authErr = a.app.Auth(ctx)
	})
	return a.authClient, a.authErr
}

func (a *App) Close() error {
	if a.firestoreClient != nil {
		return a.firestoreClient.Close()
	}
	return nil
}
