// internal/common/camunda/client.go
package camunda

import (
	"context"
	"fmt"
	"time"

	"doc-investigator/internal/common/config"
	"doc-investigator/internal/common/logger"

	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
)

// Client wraps the Zeebe gRPC client used by the investigation workers.
type Client struct {
	client         zbc.Client
	requestTimeout time.Duration
}

// ConnectRetry controls how often Connect retries the initial topology call.
type ConnectRetry struct {
	Attempts     int
	InitialDelay time.Duration
}

var DefaultConnectRetry = ConnectRetry{Attempts: 5, InitialDelay: 2 * time.Second}

// Connect dials the broker at cfg.BrokerAddress and waits until it answers a
// topology request, backing off exponentially between attempts.
func Connect(ctx context.Context, cfg config.CamundaConfig, retry ConnectRetry, log logger.Logger) (*Client, error) {
	zeebeClient, err := zbc.NewClient(&zbc.ClientConfig{
		GatewayAddress:         cfg.BrokerAddress,
		UsePlaintextConnection: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Zeebe client: %w", err)
	}

	c := &Client{client: zeebeClient, requestTimeout: requestTimeout(cfg)}

	err = retryWithBackoff(ctx, retry, log, "zeebe topology", func() error {
		return c.Ping(ctx)
	})
	if err != nil {
		_ = zeebeClient.Close()
		return nil, fmt.Errorf("failed to connect to Zeebe broker at %s: %w", cfg.BrokerAddress, err)
	}
	return c, nil
}

func requestTimeout(cfg config.CamundaConfig) time.Duration {
	if cfg.RequestTimeout > 0 {
		return config.GetDuration(cfg.RequestTimeout)
	}
	return 10 * time.Second
}

// Zeebe returns the raw client for opening job workers.
func (c *Client) Zeebe() zbc.Client {
	return c.client
}

// Ping sends a topology request. It satisfies database.Pinger so the broker
// shows up in readiness checks next to the stores.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	if _, err := c.client.NewTopologyCommand().Send(ctx); err != nil {
		return fmt.Errorf("zeebe health check failed: %w", err)
	}
	return nil
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	return c.client.Close()
}

func retryWithBackoff(ctx context.Context, retry ConnectRetry, log logger.Logger, operationName string, operation func() error) error {
	attempts := retry.Attempts
	if attempts < 1 {
		attempts = 1
	}
	delay := retry.InitialDelay

	var err error
	for i := 0; i < attempts; i++ {
		err = operation()
		if err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}

		log.Warn(operationName+" failed, retrying", map[string]interface{}{
			"error":       err,
			"attempt":     i + 1,
			"maxAttempts": attempts,
			"nextRetryIn": delay.String(),
		})
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return fmt.Errorf("%s cancelled after %d attempts: %w", operationName, i+1, ctx.Err())
		}
		delay *= 2
	}
	return fmt.Errorf("%s failed after %d attempts: %w", operationName, attempts, err)
}
