package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/givetrack/givetrack/internal/email"
	"github.com/givetrack/givetrack/internal/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

const resetTokenTTL = 1 * time.Hour

// DynamoProvider keeps bcrypt-hashed credentials in the application table.
type DynamoProvider struct {
	client       *dynamodb.Client
	tableName    string
	sender       email.Sender
	resetBaseURL string
	logger       *logrus.Logger
}

func NewDynamoProvider(client *dynamodb.Client, tableName string, sender email.Sender, resetBaseURL string, logger *logrus.Logger) *DynamoProvider {
	return &DynamoProvider{
		client:       client,
		tableName:    tableName,
		sender:       sender,
		resetBaseURL: strings.TrimRight(resetBaseURL, "/"),
		logger:       logger,
	}
}

func credPK(email string) string {
	return "CRED#" + models.NormalizeRecipient(email)
}

func (p *DynamoProvider) SignInMethods(ctx context.Context, emailAddr string) ([]string, error) {
	result, err := p.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(p.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: credPK(emailAddr)},
			"SK": &types.AttributeValueMemberS{Value: "METADATA"},
		},
	})

	if err != nil {
		return nil, fmt.Errorf("failed to look up sign-in methods: %w", err)
	}

	if result.Item == nil {
		return nil, nil
	}

	return []string{"password"}, nil
}

func (p *DynamoProvider) CreateUser(ctx context.Context, emailAddr, password, displayName string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	uid := uuid.New().String()

	item := map[string]types.AttributeValue{
		"PK":           &types.AttributeValueMemberS{Value: credPK(emailAddr)},
		"SK":           &types.AttributeValueMemberS{Value: "METADATA"},
		"UID":          &types.AttributeValueMemberS{Value: uid},
		"Email":        &types.AttributeValueMemberS{Value: models.NormalizeRecipient(emailAddr)},
		"DisplayName":  &types.AttributeValueMemberS{Value: displayName},
		"PasswordHash": &types.AttributeValueMemberS{Value: string(hash)},
		"CreatedAt":    &types.AttributeValueMemberS{Value: time.Now().Format(time.RFC3339)},
	}

	_, err = p.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(p.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})

	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return "", ErrEmailAlreadyInUse
		}
		p.logger.WithError(err).Error("Failed to store credentials in DynamoDB")
		return "", fmt.Errorf("failed to create account: %w", err)
	}

	return uid, nil
}

func (p *DynamoProvider) VerifyPassword(ctx context.Context, emailAddr, password string) (string, error) {
	result, err := p.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(p.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: credPK(emailAddr)},
			"SK": &types.AttributeValueMemberS{Value: "METADATA"},
		},
	})

	if err != nil {
		return "", fmt.Errorf("failed to look up credentials: %w", err)
	}

	if result.Item == nil {
		return "", ErrInvalidCredentials
	}

	hashAttr, ok := result.Item["PasswordHash"].(*types.AttributeValueMemberS)
	if !ok {
		return "", ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hashAttr.Value), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	uidAttr, ok := result.Item["UID"].(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("credential record missing uid")
	}

	return uidAttr.Value, nil
}

func (p *DynamoProvider) SendPasswordReset(ctx context.Context, emailAddr string) error {
	methods, err := p.SignInMethods(ctx, emailAddr)
	if err != nil {
		return err
	}
	// Unknown addresses are ignored so the endpoint does not leak which
	// emails have accounts.
	if len(methods) == 0 {
		return nil
	}

	token := uuid.New().String()
	expiresAt := time.Now().Add(resetTokenTTL)

	item := map[string]types.AttributeValue{
		"PK":        &types.AttributeValueMemberS{Value: "PWRESET#" + token},
		"SK":        &types.AttributeValueMemberS{Value: "METADATA"},
		"Email":     &types.AttributeValueMemberS{Value: models.NormalizeRecipient(emailAddr)},
		"ExpiresAt": &types.AttributeValueMemberS{Value: expiresAt.Format(time.RFC3339)},
		"TTL":       &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", expiresAt.Unix())},
	}

	_, err = p.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(p.tableName),
		Item:      item,
	})

	if err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}

	resetLink := fmt.Sprintf("%s/reset-password?token=%s", p.resetBaseURL, token)
	if err := p.sender.SendPasswordReset(ctx, emailAddr, resetLink); err != nil {
		return fmt.Errorf("failed to send reset email: %w", err)
	}

	return nil
}
