// Package dynamo stores key-value records as DynamoDB items.
package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/example/bizdesk/internal/persistence"
)

const defaultTableName = "bizdesk_kv"

var _ persistence.KeyValueStore = (*Store)(nil)

// item is one record. Table requirements: PK "key" (string).
type item struct {
	Key       string `dynamodbav:"key"`
	Value     []byte `dynamodbav:"value"`
	UpdatedAt string `dynamodbav:"updated_at"`
}

// Store persists records in a single DynamoDB table.
type Store struct {
	ddb       *dynamodb.Client
	tableName string
	now       func() time.Time
}

// Config holds construction parameters.
type Config struct {
	Table  string
	Region string
	// Endpoint targets DynamoDB Local; static "local" credentials are used
	// when no access key is given, since the local server ignores them.
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Options         []func(*dynamodb.Options)
}

// New builds a client from cfg.
func New(ctx context.Context, cfg Config) (*Store, error) {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	switch {
	case cfg.AccessKeyID != "":
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	case cfg.Endpoint != "":
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider("local", "local", ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	optFns := append([]func(*dynamodb.Options){func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	}}, cfg.Options...)
	return NewWithClient(dynamodb.NewFromConfig(awsCfg, optFns...), cfg.Table), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(ddb *dynamodb.Client, table string) *Store {
	if table == "" {
		table = defaultTableName
	}
	return &Store{ddb: ddb, tableName: table, now: time.Now}
}

// Get reads the item stored under key with a consistent read.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := s.ddb.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"key": &types.AttributeValueMemberS{Value: key},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get item %s: %w", key, err)
	}
	if len(out.Item) == 0 {
		return nil, persistence.ErrNotFound
	}

	var it item
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return nil, fmt.Errorf("decode item %s: %w", key, err)
	}
	return it.Value, nil
}

// Set replaces the item stored under key.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	av, err := attributevalue.MarshalMap(item{
		Key:       key,
		Value:     value,
		UpdatedAt: s.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("encode item %s: %w", key, err)
	}
	if _, err := s.ddb.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      av,
	}); err != nil {
		return fmt.Errorf("put item %s: %w", key, err)
	}
	return nil
}

// Ping checks that the table exists.
func (s *Store) Ping(ctx context.Context) error {
	_, err := s.ddb.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(s.tableName)})
	var missing *types.ResourceNotFoundException
	if errors.As(err, &missing) {
		return fmt.Errorf("table %s: %w", s.tableName, persistence.ErrNotFound)
	}
	return err
}
