// Package gcp wraps the Cloud Storage and Resource Manager clients behind the
// narrow calls the investigation needs. Every error it returns is a
// *models.FetchError.
package gcp

import (
	"context"
	"fmt"
	"time"

	resourcemanager "cloud.google.com/go/resourcemanager/apiv3"
	"cloud.google.com/go/storage"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"
)

// Options configures the SDK clients.
type Options struct {
	CredentialsFile   string
	QuotaProject      string
	UserAgent         string
	CallTimeout       time.Duration
	RequestsPerSecond float64
}

// Client performs read-only calls against Cloud Storage and Resource Manager.
type Client struct {
	storage  *storage.Client
	projects *resourcemanager.ProjectsClient
	limiter  *rate.Limiter
	timeout  time.Duration
}

// NewClient creates both SDK clients with the same client options.
func NewClient(ctx context.Context, opts Options) (*Client, error) {
	clientOpts := opts.clientOptions()

	sc, err := storage.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	pc, err := resourcemanager.NewProjectsClient(ctx, clientOpts...)
	if err != nil {
		_ = sc.Close()
		return nil, fmt.Errorf("failed to create resource manager client: %w", err)
	}

	return &Client{
		storage:  sc,
		projects: pc,
		limiter:  newLimiter(opts.RequestsPerSecond),
		timeout:  opts.CallTimeout,
	}, nil
}

// Close releases both SDK clients.
func (c *Client) Close() error {
	serr := c.storage.Close()
	perr := c.projects.Close()
	if serr != nil {
		return serr
	}
	return perr
}

func (o Options) clientOptions() []option.ClientOption {
	var opts []option.ClientOption
	if o.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(o.CredentialsFile))
	}
	if o.QuotaProject != "" {
		opts = append(opts, option.WithQuotaProject(o.QuotaProject))
	}
	if o.UserAgent != "" {
		opts = append(opts, option.WithUserAgent(o.UserAgent))
	}
	return opts
}

// newLimiter returns nil when rps is not positive, meaning unlimited.
func newLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(rps), 1)
}

// begin waits for the limiter and derives the per-call context.
func (c *Client) begin(ctx context.Context) (context.Context, context.CancelFunc, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, nil, err
		}
	}
	if c.timeout > 0 {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		return callCtx, cancel, nil
	}
	return ctx, func() {}, nil
}
