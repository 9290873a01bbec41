// Package googlecloud exposes Cloud Datastore kinds as export sources. A
// Client opens cursors over queries; it never writes entities.
package googlecloud

import (
	"context"
	"fmt"
	"os"

	"cloud.google.com/go/datastore"
	"github.com/rs/zerolog/log"
)

// Client reads the entities of one project for datastore-backed profiles.
type Client struct {
	ds        *datastore.Client
	projectID string
}

// NewClient connects to the Datastore of projectID. DATASTORE_EMULATOR_HOST
// is honoured by the underlying client and only logged here.
func NewClient(ctx context.Context, projectID string) (*Client, error) {
	ds, err := datastore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("connect datastore project %s: %w", projectID, err)
	}

	logEvent := log.Info().Str("project", projectID)
	if emulatorHost := os.Getenv("DATASTORE_EMULATOR_HOST"); emulatorHost != "" {
		logEvent = logEvent.Str("emulator", emulatorHost)
	}
	logEvent.Msg("datastore export source ready")

	return &Client{ds: ds, projectID: projectID}, nil
}

// ProjectID returns the project the client reads from.
func (c *Client) ProjectID() string {
	return c.projectID
}

// Close releases the connection. Cursors opened from it stop working.
func (c *Client) Close() error {
	if c.ds == nil {
		return nil
	}
	return c.ds.Close()
}
