package config

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/marmos91/dittohttp/internal/logger"
	"github.com/marmos91/dittohttp/pkg/counter/store"
	"github.com/marmos91/dittohttp/pkg/counter/store/badger"
	"github.com/marmos91/dittohttp/pkg/counter/store/memory"
	s3store "github.com/marmos91/dittohttp/pkg/counter/store/s3"
	"github.com/mitchellh/mapstructure"
)

// S3CounterStoreConfig is the counters.s3 section.
type S3CounterStoreConfig struct {
	// Endpoint overrides the S3 endpoint (MinIO, Localstack). Empty uses AWS.
	Endpoint string `mapstructure:"endpoint"`

	Region string `mapstructure:"region"`
	Bucket string `mapstructure:"bucket"`

	// AccessKeyID and SecretAccessKey are optional; when empty the default
	// AWS credential chain is used.
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`

	// KeyPrefix is prepended to the snapshot object key
	KeyPrefix string `mapstructure:"key_prefix"`

	// MaxRetries bounds attempts per request. Default: 10
	MaxRetries int `mapstructure:"max_retries"`
}

// CreateCounterStore creates the visit-count store selected by cfg.Type.
//
// The type-specific option map is decoded with mapstructure and handed to
// the store's constructor. The caller owns the returned store and must Close it.
func CreateCounterStore(ctx context.Context, cfg *CountersConfig) (store.Store, error) {
	switch cfg.Type {
	case "memory", "":
		return memory.NewMemoryStore(), nil
	case "badger":
		return createBadgerCounterStore(ctx, cfg.Badger)
	case "s3":
		return createS3CounterStore(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown counter store type: %q", cfg.Type)
	}
}

// createBadgerCounterStore opens a BadgerDB-backed store.
func createBadgerCounterStore(ctx context.Context, options map[string]any) (store.Store, error) {
	var storeCfg badger.BadgerCounterStoreConfig
	if err := mapstructure.Decode(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("invalid badger config: %w", err)
	}

	st, err := badger.NewBadgerCounterStore(ctx, storeCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}

	logger.Info("Badger counter store initialized: path=%s", storeCfg.DBPath)
	return st, nil
}

// createS3CounterStore builds an S3 client and wraps it in a snapshot store.
func createS3CounterStore(ctx context.Context, options map[string]any) (store.Store, error) {
	var storeCfg S3CounterStoreConfig
	if err := mapstructure.Decode(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode S3 counter store config: %w", err)
	}

	if storeCfg.Bucket == "" {
		return nil, fmt.Errorf("S3 counter store: bucket is required")
	}
	if storeCfg.Region == "" {
		return nil, fmt.Errorf("S3 counter store: region is required")
	}

	client, err := newS3Client(ctx, storeCfg)
	if err != nil {
		return nil, err
	}

	st, err := s3store.NewS3CounterStore(ctx, s3store.S3CounterStoreConfig{
		Client:    client,
		Bucket:    storeCfg.Bucket,
		KeyPrefix: storeCfg.KeyPrefix,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 counter store: %w", err)
	}

	logger.Info("S3 counter store initialized: bucket=%s, region=%s, key=%s",
		storeCfg.Bucket, storeCfg.Region, st.Key())

	return st, nil
}

// newS3Client loads AWS configuration for storeCfg and creates a client.
func newS3Client(ctx context.Context, storeCfg S3CounterStoreConfig) (*s3.Client, error) {
	var configOptions []func(*awsConfig.LoadOptions) error

	configOptions = append(configOptions, awsConfig.WithRegion(storeCfg.Region))

	if storeCfg.Endpoint != "" {
		//nolint:staticcheck // BaseEndpoint on s3.Options replaces this; kept for non-S3 services sharing the config
		customResolver := aws.EndpointResolverWithOptionsFunc(
			func(service, region string, options ...interface{}) (aws.Endpoint, error) {
				//nolint:staticcheck // see above
				return aws.Endpoint{
					URL:               storeCfg.Endpoint,
					HostnameImmutable: true,
					Source:            aws.EndpointSourceCustom,
				}, nil
			},
		)
		//nolint:staticcheck // see above
		configOptions = append(configOptions, awsConfig.WithEndpointResolverWithOptions(customResolver))
	}

	if storeCfg.AccessKeyID != "" && storeCfg.SecretAccessKey != "" {
		credProvider := credentials.NewStaticCredentialsProvider(
			storeCfg.AccessKeyID,
			storeCfg.SecretAccessKey,
			"",
		)
		configOptions = append(configOptions, awsConfig.WithCredentialsProvider(credProvider))
	}

	maxRetries := storeCfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = 10
	}
	configOptions = append(configOptions, awsConfig.WithRetryer(func() aws.Retryer {
		return retry.NewStandard(func(o *retry.StandardOptions) {
			o.MaxAttempts = maxRetries
		})
	}))

	cfg, err := awsConfig.LoadDefaultConfig(ctx, configOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		// MinIO and Localstack need path-style addressing
		if storeCfg.Endpoint != "" {
			o.UsePathStyle = true
		}
	})

	return client, nil
}
