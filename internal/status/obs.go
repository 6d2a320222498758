// Package status publishes the remaining slot count to an on-screen
// display.
//
// OBS drives a text source through obs-websocket 5.x. Redis mirrors the
// text into a hash and optionally publishes it, for overlays that are not
// OBS based.
package status

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"

	"github.com/andreykaipov/goobs"
	"github.com/andreykaipov/goobs/api/requests/inputs"
)

var (
	ErrUnavailable   = errors.New("status display unavailable")
	ErrRequestFailed = errors.New("status request failed")
)

// OBS sets the text of OBS text sources. A failed update drops the
// connection and the next update redials.
type OBS struct {
	host     string
	password string

	mu     sync.Mutex
	client *goobs.Client
}

// DialOBS connects and authenticates to obs-websocket at rawURL.
func DialOBS(ctx context.Context, rawURL, password string) (*OBS, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("%w: invalid OBS URL %q", ErrUnavailable, rawURL)
	}
	o := &OBS{host: u.Host, password: password}

	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.connect(ctx); err != nil {
		return nil, err
	}
	return o, nil
}

type dialResult struct {
	client *goobs.Client
	err    error
}

// connect dials OBS, giving up when ctx ends. Callers hold o.mu.
func (o *OBS) connect(ctx context.Context) error {
	results := make(chan dialResult, 1)
	go func() {
		client, err := goobs.New(o.host,
			goobs.WithPassword(o.password),
			goobs.WithLogger(obsLogger{}),
		)
		results <- dialResult{client: client, err: err}
	}()

	select {
	case r := <-results:
		if r.err != nil {
			return fmt.Errorf("%w: connecting to OBS at %s: %w", ErrUnavailable, o.host, r.err)
		}
		o.client = r.client
		slog.Info("connected to OBS", "host", o.host)
		return nil
	case <-ctx.Done():
		go func() {
			if r := <-results; r.client != nil {
				_ = r.client.Disconnect()
			}
		}()
		return fmt.Errorf("%w: connecting to OBS at %s: %w", ErrUnavailable, o.host, ctx.Err())
	}
}

// SetText sets the text of the OBS input named label.
func (o *OBS) SetText(ctx context.Context, label, text string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.client == nil {
		if err := o.connect(ctx); err != nil {
			return err
		}
	}

	params := inputs.NewSetInputSettingsParams().
		WithInputName(label).
		WithInputSettings(map[string]any{"text": text})

	client := o.client
	done := make(chan error, 1)
	go func() {
		_, err := client.Inputs.SetInputSettings(params)
		done <- err
	}()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}
	if err == nil {
		return nil
	}

	// goobs does not tell a rejected request from a broken socket, so
	// every failure redials on the next update.
	o.drop()
	return fmt.Errorf("%w: SetInputSettings %s: %w", ErrRequestFailed, label, err)
}

func (o *OBS) drop() {
	if o.client == nil {
		return
	}
	if err := o.client.Disconnect(); err != nil {
		slog.Debug("error disconnecting from OBS", "error", err)
	}
	o.client = nil
}

// Close disconnects from OBS.
func (o *OBS) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.client == nil {
		return nil
	}
	err := o.client.Disconnect()
	o.client = nil
	return err
}

// obsLogger routes goobs' printf logging into slog at debug level.
type obsLogger struct{}

func (obsLogger) Printf(format string, args ...any) {
	slog.Debug(fmt.Sprintf(format, args...), "component", "goobs")
}
