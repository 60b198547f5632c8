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

// OTPRepository stores verification codes in DynamoDB. Each record gets a
// unique sort key (CODE#<code>#<id>) so a race between two issuance calls
// can leave multiple records per recipient; the verifier matches and deletes
// all of them.
type OTPRepository struct {
	client    *dynamodb.Client
	tableName string
	logger    *logrus.Logger
}

func NewOTPRepository(client *dynamodb.Client, tableName string, logger *logrus.Logger) *OTPRepository {
	return &OTPRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

func otpPK(recipient string) string {
	return "OTP#" + models.NormalizeRecipient(recipient)
}

func otpSK(code, id string) string {
	return fmt.Sprintf("CODE#%s#%s", code, id)
}

// Create purges any existing records for the recipient, then inserts the new
// one. At most one active record per recipient survives a successful call.
func (r *OTPRepository) Create(ctx context.Context, rec models.OTPRecord) error {
	if err := r.PurgeRecipient(ctx, rec.Recipient); err != nil {
		return err
	}

	ttl := rec.ExpiresAt.Unix()

	item := map[string]types.AttributeValue{
		"PK":        &types.AttributeValueMemberS{Value: otpPK(rec.Recipient)},
		"SK":        &types.AttributeValueMemberS{Value: otpSK(rec.Code, rec.ID)},
		"ID":        &types.AttributeValueMemberS{Value: rec.ID},
		"Recipient": &types.AttributeValueMemberS{Value: models.NormalizeRecipient(rec.Recipient)},
		"Code":      &types.AttributeValueMemberS{Value: rec.Code},
		"CreatedAt": &types.AttributeValueMemberS{Value: rec.CreatedAt.Format(time.RFC3339Nano)},
		"ExpiresAt": &types.AttributeValueMemberS{Value: rec.ExpiresAt.Format(time.RFC3339Nano)},
		"TTL":       &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", ttl)},
	}

	_, err := r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})

	if err != nil {
		r.logger.WithError(err).Error("Failed to store OTP record in DynamoDB")
		return fmt.Errorf("failed to store OTP record: %w", err)
	}

	return nil
}

// FindMatching returns every record matching the (recipient, code) pair
// exactly. A wrong code yields zero matches.
func (r *OTPRepository) FindMatching(ctx context.Context, recipient, code string) ([]models.OTPRecord, error) {
	result, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :sk)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: otpPK(recipient)},
			":sk": &types.AttributeValueMemberS{Value: fmt.Sprintf("CODE#%s#", code)},
		},
	})

	if err != nil {
		return nil, fmt.Errorf("failed to query OTP records: %w", err)
	}

	var records []models.OTPRecord
	if err := attributevalue.UnmarshalListOfMaps(result.Items, &records); err != nil {
		return nil, fmt.Errorf("failed to unmarshal OTP records: %w", err)
	}

	return records, nil
}

// Delete removes a single record.
func (r *OTPRepository) Delete(ctx context.Context, rec models.OTPRecord) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: otpPK(rec.Recipient)},
			"SK": &types.AttributeValueMemberS{Value: otpSK(rec.Code, rec.ID)},
		},
	})

	if err != nil {
		return fmt.Errorf("failed to delete OTP record: %w", err)
	}

	return nil
}

// PurgeRecipient removes every record for the recipient regardless of code.
func (r *OTPRepository) PurgeRecipient(ctx context.Context, recipient string) error {
	result, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		KeyConditionExpression: aws.String("PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: otpPK(recipient)},
		},
		ProjectionExpression: aws.String("PK, SK"),
	})

	if err != nil {
		return fmt.Errorf("failed to query OTP records for purge: %w", err)
	}

	for _, item := range result.Items {
		_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
			TableName: aws.String(r.tableName),
			Key: map[string]types.AttributeValue{
				"PK": item["PK"],
				"SK": item["SK"],
			},
		})
		if err != nil {
			return fmt.Errorf("failed to purge OTP record: %w", err)
		}
	}

	return nil
}
