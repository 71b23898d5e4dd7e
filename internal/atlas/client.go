package atlas

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/pmadusud/salesagent/internal/types"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

// Aggregator runs an aggregation pipeline and returns the decoded documents
type Aggregator interface {
	Aggregate(ctx context.Context, pipeline mongo.Pipeline) ([]bson.D, error)
}

// Config holds the connection and index settings for one Atlas collection
type Config struct {
	URI                    string
	Database               string
	Collection             string
	AppName                string
	ConnectTimeout         time.Duration
	ServerSelectionTimeout time.Duration
}

// NewConfigFromTypes extracts the Atlas settings from the root configuration
func NewConfigFromTypes(cfg *types.Config) *Config {
	return &Config{
		URI:                    cfg.MongoDBAtlasURI,
		Database:               cfg.MongoDBAtlasDatabase,
		Collection:             cfg.MongoDBAtlasCollection,
		AppName:                cfg.MongoDBAppName,
		ConnectTimeout:         cfg.MongoDBConnectTimeout,
		ServerSelectionTimeout: cfg.MongoDBServerSelectTimout,
	}
}

// Validate checks that the connection settings are usable
func (c *Config) Validate() error {
	if c.URI == "" {
		return fmt.Errorf("MongoDB Atlas URI is required")
	}
	if c.Database == "" {
		return fmt.Errorf("MongoDB Atlas database is required")
	}
	if c.Collection == "" {
		return fmt.Errorf("MongoDB Atlas collection is required")
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 10 * time.Second
	}
	if c.ServerSelectionTimeout <= 0 {
		c.ServerSelectionTimeout = 10 * time.Second
	}
	return nil
}

// Client wraps a MongoDB client bound to a single collection
type Client struct {
	client     *mongo.Client
	collection *mongo.Collection
	config     *Config
	logger     *log.Logger
}

// NewClient creates the MongoDB client. No network round trip happens until first use or Ping.
func NewClient(config *Config) (*Client, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid Atlas config: %w", err)
	}

	opts := options.Client().
		ApplyURI(config.URI).
		SetServerAPIOptions(options.ServerAPI(options.ServerAPIVersion1)).
		SetConnectTimeout(config.ConnectTimeout).
		SetServerSelectionTimeout(config.ServerSelectionTimeout)
	if config.AppName != "" {
		opts.SetAppName(config.AppName)
	}

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create MongoDB client: %w", err)
	}

	return &Client{
		client:     client,
		collection: client.Database(config.Database).Collection(config.Collection),
		config:     config,
		logger:     log.New(log.Writer(), "[Atlas] ", log.LstdFlags),
	}, nil
}

// Ping verifies the cluster is reachable
func (c *Client) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("failed to ping MongoDB Atlas: %w", err)
	}
	return nil
}

// Aggregate runs pipeline against the configured collection
func (c *Client) Aggregate(ctx context.Context, pipeline mongo.Pipeline) ([]bson.D, error) {
	start := time.Now()

	cursor, err := c.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate failed: %w", err)
	}
	defer cursor.Close(ctx)

	var results []bson.D
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("failed to decode aggregate results: %w", err)
	}

	c.logger.Printf("aggregate on %s.%s returned %d documents in %v",
		c.config.Database, c.config.Collection, len(results), time.Since(start))
	return results, nil
}

// Close disconnects from the cluster
func (c *Client) Close(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	if err := c.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect MongoDB client: %w", err)
	}
	return nil
}
