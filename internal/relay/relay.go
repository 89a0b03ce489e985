// Package relay forwards training lifecycle and metric events to an
// external socket.io monitoring endpoint. The relay is strictly best
// effort: a nil *Client is a valid no-op relay, connection failures degrade
// to warnings, and a slow endpoint never blocks a training run.
package relay

import (
	"context"
	"fmt"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"

	"github.com/macaw-rl/macawlab/internal/ctxlog"
)

// Event names emitted to the monitoring endpoint.
const (
	EventRunStarted  = "run_started"
	EventMetrics     = "metrics"
	EventRunFinished = "run_finished"
)

// connectTimeout bounds the initial handshake.
const connectTimeout = 10 * time.Second

// Client is a connected socket.io relay.
type Client struct {
	manager   *socket.Manager
	io        *socket.Socket
	connected atomic.Bool
}

// Dial connects to a socket.io monitoring endpoint. The URL's path selects
// the namespace ("/" when empty).
func Dial(ctx context.Context, rawURL string) (*Client, error) {
	logger := ctxlog.FromContext(ctx).With("relay_url", rawURL)

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse relay URL: %w", err)
	}

	namespace := parsedURL.Path
	if namespace == "" {
		namespace = "/"
	}
	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)

	opts := socket.DefaultOptions()
	opts.SetTransports(types.NewSet(transports.WebSocket))

	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket(namespace, opts)

	c := &Client{manager: manager, io: io}
	done := make(chan error, 1)

	io.On(types.EventName("connect"), func(...any) {
		c.connected.Store(true)
		logger.Info("Relay connected", "namespace", namespace, "sid", io.Id())
		select {
		case done <- nil:
		default:
		}
	})
	io.On(types.EventName("connect_error"), func(errs ...any) {
		err, _ := errs[0].(error)
		if err == nil {
			err = fmt.Errorf("relay connection failed: %v", errs[0])
		}
		select {
		case done <- err:
		default:
		}
	})
	io.On(types.EventName("disconnect"), func(...any) {
		c.connected.Store(false)
		logger.Warn("Relay disconnected")
	})

	io.Connect()

	dialCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	select {
	case <-dialCtx.Done():
		io.Disconnect()
		return nil, fmt.Errorf("timed out waiting for relay connection to %s", rawURL)
	case err := <-done:
		if err != nil {
			io.Disconnect()
			return nil, err
		}
		return c, nil
	}
}

// RunStarted announces that an experiment run has begun.
func (c *Client) RunStarted(runID, experiment string) {
	c.emit(EventRunStarted, LifecyclePayload(runID, experiment, nil))
}

// Metric forwards a parsed training metric line.
func (c *Client) Metric(runID, experiment string, metric map[string]any) {
	c.emit(EventMetrics, LifecyclePayload(runID, experiment, metric))
}

// RunFinished announces an experiment run's terminal status.
func (c *Client) RunFinished(runID, experiment, status string, exitCode int) {
	c.emit(EventRunFinished, LifecyclePayload(runID, experiment, map[string]any{
		"status":    status,
		"exit_code": exitCode,
	}))
}

// Close disconnects from the endpoint. Safe on a nil client.
func (c *Client) Close() {
	if c == nil {
		return
	}
	c.io.Disconnect()
}

// emit sends an event if the relay is connected. A nil client or a dropped
// connection silently discards the event.
func (c *Client) emit(event string, payload map[string]any) {
	if c == nil || !c.connected.Load() {
		return
	}
	c.io.Emit(event, payload)
}

// LifecyclePayload builds the wire payload for a relay event: the run
// identity plus any extra fields. Extra keys never clobber the identity.
func LifecyclePayload(runID, experiment string, extra map[string]any) map[string]any {
	payload := make(map[string]any, len(extra)+2)
	for k, v := range extra {
		payload[k] = v
	}
	payload["run_id"] = runID
	payload["experiment"] = experiment
	return payload
}
