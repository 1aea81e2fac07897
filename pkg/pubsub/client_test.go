package pubsub

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/storefront-backend/pkg/config"
)

func TestResourceNames(t *testing.T) {
	cases := []struct {
		name string
		got  string
		want string
	}{
		{"topic id", TopicResourceName("proj", "orders"), "projects/proj/topics/orders"},
		{"topic trimmed", TopicResourceName(" proj ", " orders "), "projects/proj/topics/orders"},
		{"topic full name", TopicResourceName("other", "projects/proj/topics/orders"), "projects/proj/topics/orders"},
		{"topic missing project", TopicResourceName("", "orders"), ""},
		{"topic empty", TopicResourceName("proj", ""), ""},
		{"subscription id", SubscriptionResourceName("proj", "orders-sub"), "projects/proj/subscriptions/orders-sub"},
		{"subscription full name", SubscriptionResourceName("", "projects/proj/subscriptions/orders-sub"), "projects/proj/subscriptions/orders-sub"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.got)
		})
	}
}

func TestLookupError(t *testing.T) {
	assert.NoError(t, lookupError("topic", "orders", nil))

	err := lookupError("topic", "orders", status.Error(codes.NotFound, "gone"))
	assert.EqualError(t, err, `topic "orders" does not exist`)

	cause := status.Error(codes.PermissionDenied, "denied")
	err = lookupError("subscription", "orders-sub", cause)
	assert.True(t, errors.Is(err, cause))
}

func TestClientOptions(t *testing.T) {
	assert.Empty(t, clientOptions(config.GCPConfig{}))
	assert.Len(t, clientOptions(config.GCPConfig{CredentialsJSON: `{"type":"service_account"}`}), 1)
	assert.Len(t, clientOptions(config.GCPConfig{ApplicationCredentials: "/etc/gcp/key.json"}), 1)
}

func TestNilClientIsSafe(t *testing.T) {
	var c *Client
	assert.Nil(t, c.Publisher("orders"))
	assert.NoError(t, c.Close())
	assert.Error(t, c.Ping(context.Background()))
}

func TestNewClientValidatesConfig(t *testing.T) {
	_, err := NewClient(context.Background(), config.GCPConfig{}, config.PubSubConfig{OrdersTopic: "orders"}, nil)
	assert.Error(t, err)
	_, err = NewClient(context.Background(), config.GCPConfig{ProjectID: "proj"}, config.PubSubConfig{}, nil)
	assert.Error(t, err)
}
