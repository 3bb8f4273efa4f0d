package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/zencounsel/counsel-api/internal/config"
)

// NewClient builds a DynamoDB client from the default credential chain.
// A non-empty Endpoint points it at a local emulator.
func NewClient(ctx context.Context, cfg config.DynamoConfig) (*dynamodb.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	}), nil
}

func TablesFromConfig(cfg config.DynamoConfig) Tables {
	return Tables{
		Appointments: cfg.AppointmentsTable,
		SlotLocks:    cfg.SlotLocksTable,
		SlotIndex:    cfg.SlotIndex,
	}
}
