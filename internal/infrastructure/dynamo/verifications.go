package dynamo

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/worklink-api/internal/domain"
)

// pendingMarkerPrefix namespaces the per-entity pending marker rows that share
// the requests table. A marker row exists exactly while the entity has a
// pending request, which is what makes the one-pending-per-entity invariant a
// storage constraint instead of a check-then-insert.
const pendingMarkerPrefix = "PENDING#"

// VerificationRepo provides typed DynamoDB operations for the verification
// requests table. PK: request_id. GSIs: entity_key-created_at-index and
// entity_type-created_at-index for the admin review listing. Decide also
// writes the identities table, so the repo carries both table names.
type VerificationRepo struct {
	client          *dynamodb.Client
	tableName       string
	identitiesTable string
}

func NewVerificationRepo(client *dynamodb.Client, tableName, identitiesTable string) *VerificationRepo {
	return &VerificationRepo{client: client, tableName: tableName, identitiesTable: identitiesTable}
}

// Create writes the request and its pending marker in one transaction. The
// marker write is conditioned on absence, so two racing submissions for the
// same entity admit exactly one pending request; the loser gets ErrConflict.
func (r *VerificationRepo) Create(ctx context.Context, req *domain.VerificationRequest) error {
	item, err := attributevalue.MarshalMap(req)
	if err != nil {
		return fmt.Errorf("marshal verification request: %w", err)
	}
	marker := map[string]types.AttributeValue{
		"request_id": &types.AttributeValueMemberS{Value: pendingMarkerPrefix + req.EntityKey},
		"holds":      &types.AttributeValueMemberS{Value: req.RequestID},
	}
	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Put: &types.Put{
				TableName: aws.String(r.tableName),
				Item:      item,
			}},
			{Put: &types.Put{
				TableName:           aws.String(r.tableName),
				Item:                marker,
				ConditionExpression: aws.String("attribute_not_exists(request_id)"),
			}},
		},
	})
	if isTransactionConflict(err) {
		return fmt.Errorf("pending request exists for %s: %w", req.EntityKey, domain.ErrConflict)
	}
	return storeErr(err)
}

func (r *VerificationRepo) Get(ctx context.Context, requestID string) (*domain.VerificationRequest, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("request_id", requestID),
	})
	if err != nil {
		return nil, storeErr(err)
	}
	if out.Item == nil {
		return nil, fmt.Errorf("verification request %s: %w", requestID, domain.ErrNotFound)
	}
	var req domain.VerificationRequest
	if err := attributevalue.UnmarshalMap(out.Item, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

// Decide flips a pending request to its terminal status in one transaction
// that also releases the entity's pending marker and writes the identity's new
// verification status. A decided request therefore never coexists with a stale
// identity. The update is conditioned on the request still being pending: when
// two admins race, exactly one decision wins and the loser observes
// ErrInvalidState with the stored records untouched.
func (r *VerificationRepo) Decide(ctx context.Context, requestID, entityKey string, decision domain.RequestStatus, newStatus domain.VerificationStatus, deciderKey string, decidedAt time.Time, notes string) error {
	ue, err := buildUpdateExpr(map[string]interface{}{
		"status":     string(decision),
		"decided_by": deciderKey,
		"decided_at": decidedAt.UTC().Format(time.RFC3339),
		"notes":      notes,
	})
	if err != nil {
		return err
	}
	ue.Values[":pending"] = &types.AttributeValueMemberS{Value: string(domain.RequestPending)}
	ue.Names["#st"] = "status"
	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Update: &types.Update{
				TableName:                 aws.String(r.tableName),
				Key:                       strKey("request_id", requestID),
				UpdateExpression:          aws.String(ue.Expr),
				ExpressionAttributeNames:  ue.Names,
				ExpressionAttributeValues: ue.Values,
				ConditionExpression:       aws.String("#st = :pending"),
			}},
			{Delete: &types.Delete{
				TableName: aws.String(r.tableName),
				Key:       strKey("request_id", pendingMarkerPrefix+entityKey),
			}},
			{Update: &types.Update{
				TableName:        aws.String(r.identitiesTable),
				Key:              strKey("entity_key", entityKey),
				UpdateExpression: aws.String("SET verification_status = :vs, updated_at = :ua"),
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":vs": &types.AttributeValueMemberS{Value: string(newStatus)},
					":ua": &types.AttributeValueMemberS{Value: decidedAt.UTC().Format(time.RFC3339)},
				},
				ConditionExpression: aws.String("attribute_exists(entity_key)"),
			}},
		},
	})
	if isTransactionConflict(err) {
		return fmt.Errorf("request %s is no longer pending: %w", requestID, domain.ErrInvalidState)
	}
	return storeErr(err)
}

// ListByEntityType pages through requests for one entity type, newest first
// (the GSI is queried with created_at descending, so the sequence is restartable
// from any cursor). statusFilter narrows to one status when non-empty. cursor
// is an opaque base64 token from a previous page, empty for the first page.
func (r *VerificationRepo) ListByEntityType(ctx context.Context, entityType domain.EntityType, statusFilter domain.RequestStatus, limit int32, cursor string) ([]domain.VerificationRequest, string, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("entity_type-created_at-index"),
		KeyConditionExpression: aws.String("entity_type = :et"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":et": &types.AttributeValueMemberS{Value: string(entityType)},
		},
		ScanIndexForward: aws.Bool(false), // created_at descending
		Limit:            aws.Int32(limit),
	}
	if statusFilter != "" {
		input.FilterExpression = aws.String("#st = :st")
		input.ExpressionAttributeNames = map[string]string{"#st": "status"}
		input.ExpressionAttributeValues[":st"] = &types.AttributeValueMemberS{Value: string(statusFilter)}
	}
	if cursor != "" {
		requestID, createdAt, err := decodeCursor(cursor)
		if err != nil {
			return nil, "", fmt.Errorf("invalid cursor: %w", domain.ErrBadRequest)
		}
		input.ExclusiveStartKey = map[string]types.AttributeValue{
			"request_id":  &types.AttributeValueMemberS{Value: requestID},
			"entity_type": &types.AttributeValueMemberS{Value: string(entityType)},
			"created_at":  &types.AttributeValueMemberS{Value: createdAt},
		}
	}
	out, err := r.client.Query(ctx, input)
	if err != nil {
		return nil, "", storeErr(err)
	}
	var reqs []domain.VerificationRequest
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &reqs); err != nil {
		return nil, "", err
	}
	nextCursor := ""
	if key := out.LastEvaluatedKey; key != nil {
		rid, ridOK := key["request_id"].(*types.AttributeValueMemberS)
		cat, catOK := key["created_at"].(*types.AttributeValueMemberS)
		if ridOK && catOK {
			nextCursor = encodeCursor(rid.Value, cat.Value)
		}
	}
	return reqs, nextCursor, nil
}

func encodeCursor(requestID, createdAt string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(requestID + "|" + createdAt))
}

func decodeCursor(cursor string) (requestID, createdAt string, err error) {
	b, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return "", "", err
	}
	parts := strings.SplitN(string(b), "|", 2)
	if len(parts) != 2 {
		return "", "", fmt.Errorf("malformed cursor")
	}
	return parts[0], parts[1], nil
}
