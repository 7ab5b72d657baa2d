package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"github.com/yashrajoria/checkout-service/models"
)

// UserOrdersIndex is the GSI on the orders table keyed by user_id and created_at.
const UserOrdersIndex = "user_id-created_at-index"

// ddbTimeLayout has a fixed width so that created_at sorts lexically.
const ddbTimeLayout = "2006-01-02T15:04:05.000000Z"

// DynamoAPI is the subset of *dynamodb.Client the repositories call.
type DynamoAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

// DynamoOrderRepository implements OrderRepository using DynamoDB. The table
// is keyed by gateway_order_id.
type DynamoOrderRepository struct {
	client DynamoAPI
	table  string
}

func NewDynamoOrderRepository(client DynamoAPI, table string) *DynamoOrderRepository {
	return &DynamoOrderRepository{client: client, table: table}
}

type ddbOrder struct {
	GatewayOrderID string            `dynamodbav:"gateway_order_id"`
	ID             string            `dynamodbav:"id"`
	PaymentID      string            `dynamodbav:"payment_id,omitempty"`
	Signature      string            `dynamodbav:"signature,omitempty"`
	Receipt        string            `dynamodbav:"receipt"`
	Items          []models.LineItem `dynamodbav:"items"`
	Subtotal       float64           `dynamodbav:"subtotal"`
	Shipping       float64           `dynamodbav:"shipping"`
	Total          float64           `dynamodbav:"total"`
	Amount         int64             `dynamodbav:"amount"`
	Currency       string            `dynamodbav:"currency"`
	Customer       models.Customer   `dynamodbav:"customer"`
	Status         string            `dynamodbav:"status"`
	UserID         string            `dynamodbav:"user_id,omitempty"`
	PaidAt         string            `dynamodbav:"paid_at,omitempty"`
	FailedAt       string            `dynamodbav:"failed_at,omitempty"`
	CreatedAt      string            `dynamodbav:"created_at"`
	UpdatedAt      string            `dynamodbav:"updated_at"`
}

func formatDDBTime(t time.Time) string {
	return t.UTC().Format(ddbTimeLayout)
}

func parseDDBTime(s string) time.Time {
	t, _ := time.Parse(ddbTimeLayout, s)
	return t
}

func parseDDBTimePtr(s string) *time.Time {
	if s == "" {
		return nil
	}
	t := parseDDBTime(s)
	return &t
}

func toDDBOrder(o *models.Order) ddbOrder {
	d := ddbOrder{
		GatewayOrderID: o.GatewayOrderID,
		ID:             o.ID.String(),
		PaymentID:      o.PaymentID,
		Signature:      o.Signature,
		Receipt:        o.Receipt,
		Items:          o.Items,
		Subtotal:       o.Subtotal,
		Shipping:       o.Shipping,
		Total:          o.Total,
		Amount:         o.Amount,
		Currency:       o.Currency,
		Customer:       o.Customer,
		Status:         string(o.Status),
		CreatedAt:      formatDDBTime(o.CreatedAt),
		UpdatedAt:      formatDDBTime(o.UpdatedAt),
	}
	if o.UserID != nil {
		d.UserID = o.UserID.String()
	}
	if o.PaidAt != nil {
		d.PaidAt = formatDDBTime(*o.PaidAt)
	}
	if o.FailedAt != nil {
		d.FailedAt = formatDDBTime(*o.FailedAt)
	}
	return d
}

func (d ddbOrder) toModel() models.Order {
	o := models.Order{
		GatewayOrderID: d.GatewayOrderID,
		PaymentID:      d.PaymentID,
		Signature:      d.Signature,
		Receipt:        d.Receipt,
		Items:          d.Items,
		Subtotal:       d.Subtotal,
		Shipping:       d.Shipping,
		Total:          d.Total,
		Amount:         d.Amount,
		Currency:       d.Currency,
		Customer:       d.Customer,
		Status:         models.OrderStatus(d.Status),
		PaidAt:         parseDDBTimePtr(d.PaidAt),
		FailedAt:       parseDDBTimePtr(d.FailedAt),
		CreatedAt:      parseDDBTime(d.CreatedAt),
		UpdatedAt:      parseDDBTime(d.UpdatedAt),
	}
	o.ID, _ = uuid.Parse(d.ID)
	if uid, err := uuid.Parse(d.UserID); err == nil {
		o.UserID = &uid
	}
	return o
}

func (r *DynamoOrderRepository) Create(ctx context.Context, order *models.Order) error {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	item, err := attributevalue.MarshalMap(toDDBOrder(order))
	if err != nil {
		return fmt.Errorf("marshal order: %w", err)
	}

	cond := "attribute_not_exists(gateway_order_id)"
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           &r.table,
		Item:                item,
		ConditionExpression: &cond,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return ErrDuplicateOrder
		}
		return fmt.Errorf("dynamodb PutItem failed: %w", err)
	}
	return nil
}

func (r *DynamoOrderRepository) key(gatewayOrderID string) (map[string]types.AttributeValue, error) {
	key, err := attributevalue.MarshalMap(map[string]string{"gateway_order_id": gatewayOrderID})
	if err != nil {
		return nil, fmt.Errorf("marshal key: %w", err)
	}
	return key, nil
}

func (r *DynamoOrderRepository) FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*models.Order, error) {
	key, err := r.key(gatewayOrderID)
	if err != nil {
		return nil, err
	}

	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      &r.table,
		Key:            key,
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("dynamodb GetItem failed: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, ErrOrderNotFound
	}

	var d ddbOrder
	if err := attributevalue.UnmarshalMap(out.Item, &d); err != nil {
		return nil, fmt.Errorf("unmarshal order: %w", err)
	}
	o := d.toModel()
	return &o, nil
}

func (r *DynamoOrderRepository) UpdatePaymentStatus(ctx context.Context, gatewayOrderID string, update models.PaymentUpdate) error {
	key, err := r.key(gatewayOrderID)
	if err != nil {
		return err
	}

	at := formatDDBTime(update.At)
	expr := "SET #status = :status, payment_id = :pid, signature = :sig, updated_at = :now"
	switch update.Status {
	case models.OrderStatusPaid:
		expr += ", paid_at = :now"
	case models.OrderStatusFailed:
		expr += ", failed_at = :now"
	}
	condExpr := "attribute_exists(gateway_order_id) AND NOT (#status IN (:paid, :failed))"

	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           &r.table,
		Key:                 key,
		UpdateExpression:    &expr,
		ConditionExpression: &condExpr,
		ExpressionAttributeNames: map[string]string{
			"#status": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":status": &types.AttributeValueMemberS{Value: string(update.Status)},
			":pid":    &types.AttributeValueMemberS{Value: update.PaymentID},
			":sig":    &types.AttributeValueMemberS{Value: update.Signature},
			":now":    &types.AttributeValueMemberS{Value: at},
			":paid":   &types.AttributeValueMemberS{Value: string(models.OrderStatusPaid)},
			":failed": &types.AttributeValueMemberS{Value: string(models.OrderStatusFailed)},
		},
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			if len(ccf.Item) == 0 {
				return ErrOrderNotFound
			}
			return ErrOrderFinalized
		}
		return fmt.Errorf("update order failed: %w", err)
	}
	return nil
}

// FindByUserID queries the user GSI newest first. DynamoDB has no offset, so
// the page is cut from the full result set of the user.
func (r *DynamoOrderRepository) FindByUserID(ctx context.Context, userID uuid.UUID, page, limit int) ([]models.Order, int64, error) {
	page, limit = normalizePage(page, limit)

	keyCond := "user_id = :uid"
	input := &dynamodb.QueryInput{
		TableName:              &r.table,
		IndexName:              aws.String(UserOrdersIndex),
		KeyConditionExpression: &keyCond,
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uid": &types.AttributeValueMemberS{Value: userID.String()},
		},
		ScanIndexForward: aws.Bool(false),
	}

	var all []models.Order
	paginator := dynamodb.NewQueryPaginator(r.client, input)
	for paginator.HasMorePages() {
		out, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, 0, fmt.Errorf("dynamodb Query failed: %w", err)
		}
		var items []ddbOrder
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &items); err != nil {
			return nil, 0, fmt.Errorf("unmarshal orders: %w", err)
		}
		for _, d := range items {
			all = append(all, d.toModel())
		}
	}

	total := int64(len(all))
	start := (page - 1) * limit
	if start >= len(all) {
		return []models.Order{}, total, nil
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

// DynamoUserRepository implements UserRepository on a single table with a
// "pk" partition key. Besides the USER#<id> record, GOOGLE#<sub> and
// EMAIL#<email> guard items enforce uniqueness.
type DynamoUserRepository struct {
	client DynamoAPI
	table  string
}

func NewDynamoUserRepository(client DynamoAPI, table string) *DynamoUserRepository {
	return &DynamoUserRepository{client: client, table: table}
}

type ddbUser struct {
	PK        string `dynamodbav:"pk"`
	ID        string `dynamodbav:"id"`
	GoogleID  string `dynamodbav:"google_id"`
	Email     string `dynamodbav:"email"`
	Name      string `dynamodbav:"name"`
	Avatar    string `dynamodbav:"avatar,omitempty"`
	CreatedAt string `dynamodbav:"created_at"`
	LastLogin string `dynamodbav:"last_login"`
}

type ddbUserGuard struct {
	PK     string `dynamodbav:"pk"`
	UserID string `dynamodbav:"user_id"`
}

func userPK(id uuid.UUID) string { return "USER#" + id.String() }
func googlePK(sub string) string { return "GOOGLE#" + sub }
func emailPK(email string) string { return "EMAIL#" + strings.ToLower(email) }

func pkKey(pk string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{"pk": &types.AttributeValueMemberS{Value: pk}}
}

func (r *DynamoUserRepository) getItem(ctx context.Context, pk string, out interface{}) (bool, error) {
	res, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      &r.table,
		Key:            pkKey(pk),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return false, fmt.Errorf("dynamodb GetItem failed: %w", err)
	}
	if len(res.Item) == 0 {
		return false, nil
	}
	if err := attributevalue.UnmarshalMap(res.Item, out); err != nil {
		return false, fmt.Errorf("unmarshal item: %w", err)
	}
	return true, nil
}

func (r *DynamoUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var d ddbUser
	ok, err := r.getItem(ctx, userPK(id), &d)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrUserNotFound
	}

	u := &models.User{
		GoogleID:  d.GoogleID,
		Email:     d.Email,
		Name:      d.Name,
		Avatar:    d.Avatar,
		CreatedAt: parseDDBTime(d.CreatedAt),
		LastLogin: parseDDBTime(d.LastLogin),
	}
	u.ID, _ = uuid.Parse(d.ID)
	return u, nil
}

func (r *DynamoUserRepository) FindByGoogleID(ctx context.Context, googleID string) (*models.User, error) {
	var guard ddbUserGuard
	ok, err := r.getItem(ctx, googlePK(googleID), &guard)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrUserNotFound
	}
	id, err := uuid.Parse(guard.UserID)
	if err != nil {
		return nil, fmt.Errorf("corrupt google guard for %s: %w", googleID, err)
	}
	return r.FindByID(ctx, id)
}

// Create writes the user and both guard items in one transaction.
func (r *DynamoUserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}

	record, err := attributevalue.MarshalMap(ddbUser{
		PK:        userPK(user.ID),
		ID:        user.ID.String(),
		GoogleID:  user.GoogleID,
		Email:     user.Email,
		Name:      user.Name,
		Avatar:    user.Avatar,
		CreatedAt: formatDDBTime(user.CreatedAt),
		LastLogin: formatDDBTime(user.LastLogin),
	})
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	googleGuard, err := attributevalue.MarshalMap(ddbUserGuard{PK: googlePK(user.GoogleID), UserID: user.ID.String()})
	if err != nil {
		return fmt.Errorf("marshal guard: %w", err)
	}
	emailGuard, err := attributevalue.MarshalMap(ddbUserGuard{PK: emailPK(user.Email), UserID: user.ID.String()})
	if err != nil {
		return fmt.Errorf("marshal guard: %w", err)
	}

	cond := aws.String("attribute_not_exists(pk)")
	put := func(item map[string]types.AttributeValue) types.TransactWriteItem {
		return types.TransactWriteItem{Put: &types.Put{
			TableName:           &r.table,
			Item:                item,
			ConditionExpression: cond,
		}}
	}

	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{put(record), put(googleGuard), put(emailGuard)},
	})
	if err != nil {
		var tce *types.TransactionCanceledException
		if errors.As(err, &tce) {
			for _, reason := range tce.CancellationReasons {
				if aws.ToString(reason.Code) == "ConditionalCheckFailed" {
					return ErrDuplicateUser
				}
			}
		}
		return fmt.Errorf("dynamodb TransactWriteItems failed: %w", err)
	}
	return nil
}

func (r *DynamoUserRepository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	expr := "SET last_login = :now"
	cond := "attribute_exists(pk)"
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           &r.table,
		Key:                 pkKey(userPK(id)),
		UpdateExpression:    &expr,
		ConditionExpression: &cond,
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":now": &types.AttributeValueMemberS{Value: formatDDBTime(at)},
		},
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return ErrUserNotFound
		}
		return fmt.Errorf("update user failed: %w", err)
	}
	return nil
}
