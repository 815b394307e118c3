// Package pubsub connects the storefront to Google Cloud Pub/Sub, where the
// outbox relay publishes order lifecycle events.
package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const pingTimeout = 5 * time.Second

var ErrNotConnected = errors.New("pubsub client not initialized")

// Topic is a fully qualified topic reference.
type Topic struct {
	Project string
	ID      string
}

// ParseTopic accepts either a bare topic ID, qualified with projectID, or a
// full projects/<p>/topics/<id> resource name.
func ParseTopic(projectID, name string) (Topic, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Topic{}, errors.New("topic name is empty")
	}
	if rest, ok := strings.CutPrefix(name, "projects/"); ok {
		project, id, found := strings.Cut(rest, "/topics/")
		if !found || project == "" || id == "" || strings.Contains(id, "/") {
			return Topic{}, fmt.Errorf("malformed topic resource %q", name)
		}
		return Topic{Project: project, ID: id}, nil
	}
	if strings.Contains(name, "/") {
		return Topic{}, fmt.Errorf("malformed topic id %q", name)
	}
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return Topic{}, fmt.Errorf("topic %q needs a project id", name)
	}
	return Topic{Project: projectID, ID: name}, nil
}

func (t Topic) String() string {
	return "projects/" + t.Project + "/topics/" + t.ID
}

// Client owns the Pub/Sub connection and a single publisher for the orders
// topic. Close flushes that publisher before dropping the connection.
type Client struct {
	conn   *gcppubsub.Client
	orders Topic

	once sync.Once
	pub  *gcppubsub.Publisher
}

// NewClient connects to Pub/Sub and fails unless the orders topic exists.
// PUBSUB_EMULATOR_HOST is honored by the underlying library.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger) (*Client, error) {
	project := strings.TrimSpace(gcp.ProjectID)
	if project == "" {
		return nil, errors.New("gcp project id is required")
	}
	orders, err := ParseTopic(project, cfg.OrdersTopic)
	if err != nil {
		return nil, fmt.Errorf("orders topic: %w", err)
	}

	var opts []option.ClientOption
	if creds := strings.TrimSpace(gcp.CredentialsJSON); creds != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(creds)))
	}
	conn, err := gcppubsub.NewClient(ctx, project, opts...)
	if err != nil {
		return nil, fmt.Errorf("pubsub connect: %w", err)
	}

	c := &Client{conn: conn, orders: orders}
	if err := c.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}
	if logg != nil {
		logg.Info(logg.WithField(ctx, "topic", orders.String()), "pubsub client ready")
	}
	return c, nil
}

// OrdersPublisher returns the shared publisher for order events, or nil on
// an unconnected client.
func (c *Client) OrdersPublisher() *gcppubsub.Publisher {
	if c == nil || c.conn == nil {
		return nil
	}
	c.once.Do(func() {
		c.pub = c.conn.Publisher(c.orders.String())
	})
	return c.pub
}

// Ping looks the orders topic up. A missing topic is reported as such rather
// than as a transport error.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.conn == nil {
		return ErrNotConnected
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	_, err := c.conn.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: c.orders.String()})
	switch status.Code(err) {
	case codes.OK:
		return nil
	case codes.NotFound:
		return fmt.Errorf("topic %s does not exist", c.orders)
	}
	return fmt.Errorf("lookup topic %s: %w", c.orders, err)
}

func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}
	if c.pub != nil {
		c.pub.Stop()
	}
	return c.conn.Close()
}
