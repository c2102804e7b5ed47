package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/worklink-api/internal/domain"
)

// IdentityRepo provides typed DynamoDB operations for the identities table.
// PK: entity_key ("<role>#<entity_id>"). GSI: role-email-index for login lookup.
type IdentityRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewIdentityRepo(client *dynamodb.Client, tableName string) *IdentityRepo {
	return &IdentityRepo{client: client, tableName: tableName}
}

// Put creates an identity. Fails with a conflict when the entity key is taken.
func (r *IdentityRepo) Put(ctx context.Context, rec *domain.IdentityRecord) error {
	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return fmt.Errorf("marshal identity: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(entity_key)"),
	})
	if isConditionalFailure(err) {
		return fmt.Errorf("identity %s already exists: %w", rec.EntityKey, domain.ErrConflict)
	}
	return storeErr(err)
}

func (r *IdentityRepo) Get(ctx context.Context, entityKey string) (*domain.IdentityRecord, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("entity_key", entityKey),
	})
	if err != nil {
		return nil, storeErr(err)
	}
	if out.Item == nil {
		return nil, fmt.Errorf("identity %s: %w", entityKey, domain.ErrNotFound)
	}
	var rec domain.IdentityRecord
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// GetByEmail resolves an identity within a role partition via the role-email GSI.
func (r *IdentityRepo) GetByEmail(ctx context.Context, role domain.Role, email string) (*domain.IdentityRecord, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("role-email-index"),
		KeyConditionExpression: aws.String("#r = :r AND email = :e"),
		ExpressionAttributeNames: map[string]string{"#r": "role"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":r": &types.AttributeValueMemberS{Value: string(role)},
			":e": &types.AttributeValueMemberS{Value: email},
		},
		Limit: aws.Int32(1),
	})
	if err != nil {
		return nil, storeErr(err)
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("identity %s/%s: %w", role, email, domain.ErrNotFound)
	}
	var rec domain.IdentityRecord
	if err := attributevalue.UnmarshalMap(out.Items[0], &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// SoftDelete disables an identity; the record is superseded, never removed.
func (r *IdentityRepo) SoftDelete(ctx context.Context, entityKey string) error {
	return r.update(ctx, entityKey, map[string]interface{}{"enable": false})
}

func (r *IdentityRepo) update(ctx context.Context, entityKey string, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now().UTC().Format(time.RFC3339)
	ue, err := buildUpdateExpr(updates)
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("entity_key", entityKey),
		UpdateExpression:          aws.String(ue.Expr),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
		ConditionExpression:       aws.String("attribute_exists(entity_key)"),
	})
	if isConditionalFailure(err) {
		return fmt.Errorf("identity %s: %w", entityKey, domain.ErrNotFound)
	}
	return storeErr(err)
}
