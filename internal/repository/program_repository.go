package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/givetrack/givetrack/internal/models"
	"github.com/sirupsen/logrus"
)

type ProgramRepository struct {
	client    *dynamodb.Client
	tableName string
	logger    *logrus.Logger
}

func NewProgramRepository(client *dynamodb.Client, tableName string, logger *logrus.Logger) *ProgramRepository {
	return &ProgramRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

func (r *ProgramRepository) Create(ctx context.Context, program *models.Program) error {
	now := time.Now()
	program.CreatedAt = now
	program.UpdatedAt = now

	item, err := attributevalue.MarshalMap(program)
	if err != nil {
		return fmt.Errorf("failed to marshal program: %w", err)
	}

	item["PK"] = &types.AttributeValueMemberS{Value: program.GetPK()}
	item["SK"] = &types.AttributeValueMemberS{Value: program.GetSK()}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})

	if err != nil {
		r.logger.WithError(err).Error("Failed to create program in DynamoDB")
		return fmt.Errorf("failed to create program: %w", err)
	}

	return nil
}

// GetByID returns (nil, nil) when the program does not exist.
func (r *ProgramRepository) GetByID(ctx context.Context, id string) (*models.Program, error) {
	program := &models.Program{ID: id}

	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: program.GetPK()},
			"SK": &types.AttributeValueMemberS{Value: program.GetSK()},
		},
	})

	if err != nil {
		return nil, fmt.Errorf("failed to get program: %w", err)
	}

	if result.Item == nil {
		return nil, nil
	}

	var dbProgram models.Program
	if err := attributevalue.UnmarshalMap(result.Item, &dbProgram); err != nil {
		return nil, fmt.Errorf("failed to unmarshal program: %w", err)
	}

	return &dbProgram, nil
}

// List returns all programs; publicOnly restricts to publicly visible ones.
func (r *ProgramRepository) List(ctx context.Context, publicOnly bool) ([]models.Program, error) {
	input := &dynamodb.ScanInput{
		TableName:        aws.String(r.tableName),
		FilterExpression: aws.String("begins_with(PK, :pk_prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk_prefix": &types.AttributeValueMemberS{Value: "PROGRAM#"},
		},
	}

	if publicOnly {
		input.FilterExpression = aws.String("begins_with(PK, :pk_prefix) AND #public = :public")
		input.ExpressionAttributeNames = map[string]string{"#public": "Public"}
		input.ExpressionAttributeValues[":public"] = &types.AttributeValueMemberBOOL{Value: true}
	}

	result, err := r.client.Scan(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to list programs: %w", err)
	}

	var programs []models.Program
	if err := attributevalue.UnmarshalListOfMaps(result.Items, &programs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal programs: %w", err)
	}

	return programs, nil
}
