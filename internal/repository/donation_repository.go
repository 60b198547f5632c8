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

type DonationRepository struct {
	client    *dynamodb.Client
	tableName string
	logger    *logrus.Logger
}

func NewDonationRepository(client *dynamodb.Client, tableName string, logger *logrus.Logger) *DonationRepository {
	return &DonationRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

func donationPK(programID string) string {
	return "DONATION#" + programID
}

func donationSK(createdAt time.Time, id string) string {
	return fmt.Sprintf("TS#%s#%s", createdAt.UTC().Format(time.RFC3339Nano), id)
}

func (r *DonationRepository) Create(ctx context.Context, donation *models.Donation) error {
	donation.CreatedAt = time.Now()
	donation.DonorEmail = models.NormalizeRecipient(donation.DonorEmail)

	item, err := attributevalue.MarshalMap(donation)
	if err != nil {
		return fmt.Errorf("failed to marshal donation: %w", err)
	}

	item["PK"] = &types.AttributeValueMemberS{Value: donationPK(donation.ProgramID)}
	item["SK"] = &types.AttributeValueMemberS{Value: donationSK(donation.CreatedAt, donation.ID)}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})

	if err != nil {
		r.logger.WithError(err).Error("Failed to record donation in DynamoDB")
		return fmt.Errorf("failed to record donation: %w", err)
	}

	return nil
}

func (r *DonationRepository) ListByProgram(ctx context.Context, programID string) ([]models.Donation, error) {
	result, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		KeyConditionExpression: aws.String("PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: donationPK(programID)},
		},
	})

	if err != nil {
		return nil, fmt.Errorf("failed to query donations: %w", err)
	}

	var donations []models.Donation
	if err := attributevalue.UnmarshalListOfMaps(result.Items, &donations); err != nil {
		return nil, fmt.Errorf("failed to unmarshal donations: %w", err)
	}

	return donations, nil
}

func (r *DonationRepository) ListByDonor(ctx context.Context, donorEmail string) ([]models.Donation, error) {
	result, err := r.client.Scan(ctx, &dynamodb.ScanInput{
		TableName:        aws.String(r.tableName),
		FilterExpression: aws.String("begins_with(PK, :pk_prefix) AND DonorEmail = :donor"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk_prefix": &types.AttributeValueMemberS{Value: "DONATION#"},
			":donor":     &types.AttributeValueMemberS{Value: models.NormalizeRecipient(donorEmail)},
		},
	})

	if err != nil {
		return nil, fmt.Errorf("failed to scan donations by donor: %w", err)
	}

	var donations []models.Donation
	if err := attributevalue.UnmarshalListOfMaps(result.Items, &donations); err != nil {
		return nil, fmt.Errorf("failed to unmarshal donations: %w", err)
	}

	return donations, nil
}
