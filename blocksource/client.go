// Package blocksource pulls DAG snapshots from the node API and keeps the
// console model fed from its push stream.
package blocksource

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"dag-console/apperr"
	"dag-console/logger"
	"dag-console/models"
)

// Sink receives every full snapshot delivered by the source.
type Sink interface {
	LoadSnapshot(nodes []models.Node, edges []models.Edge) error
}

type Config struct {
	BaseURL        string
	StreamURL      string
	RequestTimeout time.Duration
	ReconnectDelay time.Duration
	// Token, when set, is sent as a bearer credential on every call.
	Token func() (string, bool)
}

type Client struct {
	http   *resty.Client
	cfg    Config
	dialer *websocket.Dialer
}

func NewClient(cfg Config) *Client {
	c := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetHeader("Accept", "application/json")
	if cfg.RequestTimeout > 0 {
		c.SetTimeout(cfg.RequestTimeout)
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 5 * time.Second
	}
	dialer := *websocket.DefaultDialer
	dialer.EnableCompression = true
	return &Client{http: c, cfg: cfg, dialer: &dialer}
}

// Fetch downloads the current snapshot once.
func (c *Client) Fetch(ctx context.Context) (models.Snapshot, error) {
	var snap models.Snapshot
	req := c.http.R().SetContext(ctx).SetResult(&snap)
	if tok, ok := c.token(); ok {
		req.SetAuthToken(tok)
	}
	resp, err := req.Get("/dag/snapshot")
	if err != nil {
		if ctx.Err() != nil {
			return models.Snapshot{}, apperr.NewTimeout("fetch snapshot").WithCause(err)
		}
		return models.Snapshot{}, apperr.NewNetworkFailure("fetch snapshot failed").WithCause(err)
	}
	if resp.IsError() {
		return models.Snapshot{}, apperr.NewNetworkFailure(fmt.Sprintf("fetch snapshot: status %d", resp.StatusCode()))
	}
	return snap, nil
}

// Sync fetches a snapshot and hands it to sink.
func (c *Client) Sync(ctx context.Context, sink Sink) error {
	snap, err := c.Fetch(ctx)
	if err != nil {
		return err
	}
	return sink.LoadSnapshot(snap.Nodes, snap.Edges)
}

// Stream reads one JSON snapshot per text frame and loads it into sink until
// ctx is done. A dropped connection is redialled after ReconnectDelay.
func (c *Client) Stream(ctx context.Context, sink Sink) error {
	if c.cfg.StreamURL == "" {
		return apperr.NewValidation("stream url is not configured")
	}
	for {
		err := c.streamOnce(ctx, sink)
		if ctx.Err() != nil {
			return nil
		}
		logger.Logger.Warn("Block stream disconnected",
			zap.String("url", c.cfg.StreamURL), zap.Duration("retry_in", c.cfg.ReconnectDelay), zap.Error(err))

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(c.cfg.ReconnectDelay):
		}
	}
}

func (c *Client) streamOnce(ctx context.Context, sink Sink) error {
	header := http.Header{}
	if tok, ok := c.token(); ok {
		header.Set("Authorization", "Bearer "+tok)
	}
	conn, _, err := c.dialer.DialContext(ctx, c.cfg.StreamURL, header)
	if err != nil {
		return err
	}
	defer conn.Close()
	logger.Logger.Info("Block stream connected", zap.String("url", c.cfg.StreamURL))

	// unblock ReadMessage on cancellation
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		if kind != websocket.TextMessage {
			continue
		}
		var snap models.Snapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			logger.Logger.Warn("Skipping undecodable snapshot frame", zap.Error(err))
			continue
		}
		if err := sink.LoadSnapshot(snap.Nodes, snap.Edges); err != nil {
			logger.Logger.Warn("Skipping rejected snapshot", zap.Error(err))
		}
	}
}

func (c *Client) token() (string, bool) {
	if c.cfg.Token == nil {
		return "", false
	}
	tok, ok := c.cfg.Token()
	return tok, ok && tok != ""
}
