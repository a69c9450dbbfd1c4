package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/kupilikula/rocketshop-market-backend/pkg/config"
	"github.com/kupilikula/rocketshop-market-backend/pkg/logger"
)

var (
	errProjectIDRequired = errors.New("gcp project id is required")
	errNoTopics          = errors.New("at least one pubsub topic is required")
	errNotInitialized    = errors.New("pubsub client not initialized")
)

// Client owns the Pub/Sub connection for the topics the relay publishes to.
// PUBSUB_EMULATOR_HOST is honoured by the underlying library.
type Client struct {
	client    *pubsub.Client
	projectID string
	topics    []string
	getTopic  func(ctx context.Context, resource string) error
}

// NewClient connects and verifies that every topic exists.
func NewClient(ctx context.Context, gcp config.GCPConfig, topics []string, logg *logger.Logger) (*Client, error) {
	projectID := strings.TrimSpace(gcp.ProjectID)
	if projectID == "" {
		return nil, errProjectIDRequired
	}
	if len(topics) == 0 {
		return nil, errNoTopics
	}

	psClient, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}
	c := &Client{
		client:    psClient,
		projectID: projectID,
		topics:    topics,
		getTopic: func(ctx context.Context, resource string) error {
			_, err := psClient.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: resource})
			return err
		},
	}
	if err := c.checkTopics(ctx); err != nil {
		_ = psClient.Close()
		return nil, err
	}
	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{"project": projectID, "topics": topics}), "pubsub client initialized")
	}
	return c, nil
}

// checkTopics looks every topic up concurrently and reports the first miss.
func (c *Client) checkTopics(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, topic := range c.topics {
		resource := TopicResourceName(c.projectID, topic)
		if resource == "" {
			return fmt.Errorf("topic %q not configured", topic)
		}
		g.Go(func() error {
			err := c.getTopic(gctx, resource)
			switch {
			case err == nil:
				return nil
			case status.Code(err) == codes.NotFound:
				return fmt.Errorf("topic %q does not exist", topic)
			default:
				return fmt.Errorf("checking topic %q: %w", topic, err)
			}
		})
	}
	return g.Wait()
}

// Publisher returns a publisher handle for a topic ID or resource name.
func (c *Client) Publisher(name string) *pubsub.Publisher {
	if c == nil || c.client == nil {
		return nil
	}
	resource := TopicResourceName(c.projectID, name)
	if resource == "" {
		return nil
	}
	return c.client.Publisher(resource)
}

// Ping re-checks that the configured topics still exist.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.getTopic == nil {
		return errNotInitialized
	}
	return c.checkTopics(ctx)
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// TopicResourceName expands a bare topic ID to projects/<p>/topics/<id>.
// Full resource names pass through unchanged.
func TopicResourceName(projectID, name string) string {
	n := strings.TrimSpace(name)
	if n == "" {
		return ""
	}
	if strings.HasPrefix(n, "projects/") && strings.Contains(n, "/topics/") {
		return n
	}
	p := strings.TrimSpace(projectID)
	if p == "" {
		return ""
	}
	return fmt.Sprintf("projects/%s/topics/%s", p, n)
}
