// Package pubsub wraps the Pub/Sub v2 client used by the outbox publisher.
package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

var errNotInitialized = errors.New("pubsub client not initialized")

// Client owns one Publisher per topic. Publishers batch in the background, so
// they are reused across calls and flushed on Close.
type Client struct {
	client    *pubsub.Client
	projectID string
	cfg       config.PubSubConfig

	mu         sync.Mutex
	publishers map[string]*pubsub.Publisher
}

// NewClient connects and verifies the orders topic, plus the orders
// subscription when one is configured.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger) (*Client, error) {
	projectID := strings.TrimSpace(gcp.ProjectID)
	switch {
	case projectID == "":
		return nil, errors.New("gcp project id is required")
	case strings.TrimSpace(cfg.OrdersTopic) == "":
		return nil, errors.New("pubsub orders topic is required")
	}

	raw, err := pubsub.NewClient(ctx, projectID, clientOptions(gcp)...)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}
	c := &Client{
		client:     raw,
		projectID:  projectID,
		cfg:        cfg,
		publishers: map[string]*pubsub.Publisher{},
	}
	if err := c.verify(ctx); err != nil {
		_ = raw.Close()
		return nil, err
	}
	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"project_id": projectID,
			"topic":      cfg.OrdersTopic,
		}), "pubsub.connected")
	}
	return c, nil
}

// clientOptions prefers inline credentials over a key file; with neither the
// client uses application default credentials.
func clientOptions(gcp config.GCPConfig) []option.ClientOption {
	switch {
	case strings.TrimSpace(gcp.CredentialsJSON) != "":
		return []option.ClientOption{option.WithCredentialsJSON([]byte(gcp.CredentialsJSON))}
	case strings.TrimSpace(gcp.ApplicationCredentials) != "":
		return []option.ClientOption{option.WithCredentialsFile(gcp.ApplicationCredentials)}
	}
	return nil
}

func (c *Client) verify(ctx context.Context) error {
	topic := TopicResourceName(c.projectID, c.cfg.OrdersTopic)
	_, err := c.client.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: topic})
	if err := lookupError("topic", c.cfg.OrdersTopic, err); err != nil {
		return err
	}

	name := strings.TrimSpace(c.cfg.OrdersSubscription)
	if name == "" {
		return nil
	}
	sub := SubscriptionResourceName(c.projectID, name)
	_, err = c.client.SubscriptionAdminClient.GetSubscription(ctx, &pubsubpb.GetSubscriptionRequest{Subscription: sub})
	return lookupError("subscription", name, err)
}

func lookupError(kind, name string, err error) error {
	switch {
	case err == nil:
		return nil
	case status.Code(err) == codes.NotFound:
		return fmt.Errorf("%s %q does not exist", kind, name)
	default:
		return fmt.Errorf("checking %s %q: %w", kind, name, err)
	}
}

// Publisher returns the shared publisher for a topic ID or resource name.
func (c *Client) Publisher(name string) *pubsub.Publisher {
	if c == nil || c.client == nil {
		return nil
	}
	full := TopicResourceName(c.projectID, name)
	if full == "" {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.publishers[full]; ok {
		return p
	}
	p := c.client.Publisher(full)
	c.publishers[full] = p
	return p
}

// Ping re-checks that the configured resources are reachable.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errNotInitialized
	}
	return c.verify(ctx)
}

// Close flushes every publisher before closing the connection.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	c.mu.Lock()
	for full, p := range c.publishers {
		p.Stop()
		delete(c.publishers, full)
	}
	c.mu.Unlock()
	return c.client.Close()
}

// TopicResourceName expands a topic ID to projects/<p>/topics/<id>.
func TopicResourceName(projectID, name string) string {
	return resourceName(projectID, "topics", name)
}

// SubscriptionResourceName expands a subscription ID to
// projects/<p>/subscriptions/<id>.
func SubscriptionResourceName(projectID, name string) string {
	return resourceName(projectID, "subscriptions", name)
}

func resourceName(projectID, collection, name string) string {
	n := strings.TrimSpace(name)
	if n == "" {
		return ""
	}
	if strings.HasPrefix(n, "projects/") && strings.Contains(n, "/"+collection+"/") {
		return n
	}
	p := strings.TrimSpace(projectID)
	if p == "" {
		return ""
	}
	return "projects/" + p + "/" + collection + "/" + n
}
