package dynamo

import (
	"context"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/worklink-api/internal/domain"
)

// ContentItemRepo provides typed DynamoDB operations for the content items
// table. PK: item_id. GSI: target_audience-created_at-index for active-feed
// queries. DynamoDB TTL on expires_at reaps long-expired rows; the audience
// engine still applies the authoritative expiry check at read time.
type ContentItemRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewContentItemRepo(client *dynamodb.Client, tableName string) *ContentItemRepo {
	return &ContentItemRepo{client: client, tableName: tableName}
}

func (r *ContentItemRepo) Put(ctx context.Context, item *domain.ContentItem) error {
	item.SyncExpiry()
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("marshal content item: %w", err)
	}
	if item.ExpiresAtUnix == 0 {
		// TTL attribute must be absent, not zero, for never-expiring items.
		delete(av, "expires_at")
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      av,
	})
	return storeErr(err)
}

func (r *ContentItemRepo) Get(ctx context.Context, itemID string) (*domain.ContentItem, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("item_id", itemID),
	})
	if err != nil {
		return nil, storeErr(err)
	}
	if out.Item == nil {
		return nil, fmt.Errorf("content item %s: %w", itemID, domain.ErrNotFound)
	}
	var item domain.ContentItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, err
	}
	item.HydrateExpiry()
	return &item, nil
}

// ListByAudiences queries one audience partition per entry and merges the
// results newest-first. Kind narrows to broadcasts or job listings.
func (r *ContentItemRepo) ListByAudiences(ctx context.Context, kind domain.ContentKind, audiences []domain.TargetAudience) ([]domain.ContentItem, error) {
	var items []domain.ContentItem
	for _, audience := range audiences {
		out, err := r.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(r.tableName),
			IndexName:              aws.String("target_audience-created_at-index"),
			KeyConditionExpression: aws.String("target_audience = :a"),
			FilterExpression:       aws.String("kind = :k"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":a": &types.AttributeValueMemberS{Value: string(audience)},
				":k": &types.AttributeValueMemberS{Value: string(kind)},
			},
			ScanIndexForward: aws.Bool(false),
		})
		if err != nil {
			return nil, storeErr(err)
		}
		var page []domain.ContentItem
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, err
		}
		items = append(items, page...)
	}
	for i := range items {
		items[i].HydrateExpiry()
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	return items, nil
}

// ScanAll returns every item of a kind regardless of state, newest first.
// Admin-only surface; the table stays small because TTL reaps expired rows.
func (r *ContentItemRepo) ScanAll(ctx context.Context, kind domain.ContentKind) ([]domain.ContentItem, error) {
	out, err := r.client.Scan(ctx, &dynamodb.ScanInput{
		TableName:        aws.String(r.tableName),
		FilterExpression: aws.String("kind = :k"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":k": &types.AttributeValueMemberS{Value: string(kind)},
		},
	})
	if err != nil {
		return nil, storeErr(err)
	}
	var items []domain.ContentItem
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &items); err != nil {
		return nil, err
	}
	for i := range items {
		items[i].HydrateExpiry()
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	return items, nil
}

// Deactivate terminates an item early. The item row survives for audit.
func (r *ContentItemRepo) Deactivate(ctx context.Context, itemID string) error {
	ue, err := buildUpdateExpr(map[string]interface{}{"active": false})
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("item_id", itemID),
		UpdateExpression:          aws.String(ue.Expr),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
		ConditionExpression:       aws.String("attribute_exists(item_id)"),
	})
	if isConditionalFailure(err) {
		return fmt.Errorf("content item %s: %w", itemID, domain.ErrNotFound)
	}
	return storeErr(err)
}
