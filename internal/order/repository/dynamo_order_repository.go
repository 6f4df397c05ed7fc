package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/shopspring/decimal"

	"storefront/internal/domain"
	apperrors "storefront/internal/errors"
)

// DynamoDBAPI is the subset of the DynamoDB client used by the order store.
type DynamoDBAPI interface {
	PutItem(ctx context.Context, params *dyn.PutItemInput, optFns ...func(*dyn.Options)) (*dyn.PutItemOutput, error)
	GetItem(ctx context.Context, params *dyn.GetItemInput, optFns ...func(*dyn.Options)) (*dyn.GetItemOutput, error)
	UpdateItem(ctx context.Context, params *dyn.UpdateItemInput, optFns ...func(*dyn.Options)) (*dyn.UpdateItemOutput, error)
	Scan(ctx context.Context, params *dyn.ScanInput, optFns ...func(*dyn.Options)) (*dyn.ScanOutput, error)
}

type DynamoOrderRepository struct {
	client    DynamoDBAPI
	tableName string
	now       func() time.Time
}

func NewDynamoOrderRepository(client DynamoDBAPI, tableName string) *DynamoOrderRepository {
	return &DynamoOrderRepository{
		client:    client,
		tableName: tableName,
		now:       time.Now,
	}
}

// orderRecord is the persisted item shape. Amounts are kept as decimal
// strings so no precision is lost through DynamoDB numbers.
type orderRecord struct {
	ID                string                    `dynamodbav:"id"`
	BuyerID           string                    `dynamodbav:"buyerId"`
	BuyerEmail        string                    `dynamodbav:"buyerEmail"`
	ProductID         string                    `dynamodbav:"productId"`
	SubProductID      *string                   `dynamodbav:"subProductId,omitempty"`
	AccountInfo       []domain.AccountInfoEntry `dynamodbav:"accountInfo"`
	BaseAmount        string                    `dynamodbav:"baseAmount"`
	Discount          *discountRecord           `dynamodbav:"discount,omitempty"`
	TotalAmount       string                    `dynamodbav:"totalAmount"`
	Status            string                    `dynamodbav:"status"`
	PaymentMethod     string                    `dynamodbav:"paymentMethod"`
	Evidence          *evidenceRecord           `dynamodbav:"evidence,omitempty"`
	CheckoutSessionID string                    `dynamodbav:"checkoutSessionId"`
	PaymentReference  string                    `dynamodbav:"paymentReference"`
	AdminNote         string                    `dynamodbav:"adminNote"`
	RefundAmount      *string                   `dynamodbav:"refundAmount,omitempty"`
	RefundDate        *time.Time                `dynamodbav:"refundDate,omitempty"`
	CreatedAt         time.Time                 `dynamodbav:"createdAt"`
	UpdatedAt         time.Time                 `dynamodbav:"updatedAt"`
}

type discountRecord struct {
	CouponCode string `dynamodbav:"couponCode"`
	Type       string `dynamodbav:"type"`
	Amount     string `dynamodbav:"amount"`
}

type evidenceRecord struct {
	TransferNumberEnc    string    `dynamodbav:"transferNumberEnc"`
	InstaHandleEnc       string    `dynamodbav:"instaHandleEnc"`
	TransferNumberMasked string    `dynamodbav:"transferNumberMasked"`
	InstaHandleMasked    string    `dynamodbav:"instaHandleMasked"`
	ImageURL             string    `dynamodbav:"imageUrl"`
	ImagePublicID        string    `dynamodbav:"imagePublicId"`
	SubmittedAt          time.Time `dynamodbav:"submittedAt"`
}

func (r *DynamoOrderRepository) Create(ctx context.Context, order domain.Order) (*domain.Order, error) {
	now := r.now().UTC()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = now

	item, err := attributevalue.MarshalMap(toRecord(order))
	if err != nil {
		return nil, fmt.Errorf("marshal order item: %w", err)
	}

	_, err = r.client.PutItem(ctx, &dyn.PutItemInput{
		TableName:           &r.tableName,
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(id)"),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return nil, apperrors.NewConflictError(fmt.Sprintf("order with id %s already exists", order.ID))
		}
		return nil, fmt.Errorf("put order item: %w", err)
	}

	return &order, nil
}

func (r *DynamoOrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	out, err := r.client.GetItem(ctx, &dyn.GetItemInput{
		TableName:      &r.tableName,
		Key:            orderKey(id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get order item: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("order with id %s not found", id))
	}

	return unmarshalOrder(out.Item)
}

func (r *DynamoOrderRepository) FindByCheckoutSession(ctx context.Context, sessionID string) (*domain.Order, error) {
	items, err := r.scan(ctx, "checkoutSessionId = :sid", nil, map[string]types.AttributeValue{
		":sid": &types.AttributeValueMemberS{Value: sessionID},
	})
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("order with checkout session %s not found", sessionID))
	}

	return unmarshalOrder(items[0])
}

// UpdateConditional writes the patch guarded by "#s = :expected". The old
// item is returned on a failed condition so a missing order can be told
// apart from a status mismatch.
func (r *DynamoOrderRepository) UpdateConditional(
	ctx context.Context,
	id string,
	expected domain.OrderStatus,
	patch domain.OrderPatch,
) (*domain.Order, error) {
	updateExpr, values, err := updateExpression(patch, r.now().UTC())
	if err != nil {
		return nil, err
	}
	values[":expected"] = &types.AttributeValueMemberS{Value: string(expected)}

	out, err := r.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName:                           &r.tableName,
		Key:                                 orderKey(id),
		UpdateExpression:                    &updateExpr,
		ConditionExpression:                 aws.String("#s = :expected"),
		ExpressionAttributeNames:            map[string]string{"#s": "status"},
		ExpressionAttributeValues:           values,
		ReturnValues:                        types.ReturnValueAllNew,
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			if len(ccf.Item) == 0 {
				return nil, apperrors.NewNotFoundError(fmt.Sprintf("order with id %s not found", id))
			}
			return nil, fmt.Errorf("order %s is not %s: %w", id, expected, apperrors.ErrStatusMismatch)
		}
		return nil, fmt.Errorf("update order item: %w", err)
	}

	return unmarshalOrder(out.Attributes)
}

// FindMany scans with a filter and pages in memory, newest first.
func (r *DynamoOrderRepository) FindMany(ctx context.Context, filter domain.OrderFilter, page domain.Page) (*domain.OrderPage, error) {
	page = page.Normalize()

	var (
		conds  []string
		names  map[string]string
		values = map[string]types.AttributeValue{}
	)
	if filter.Status != nil {
		conds = append(conds, "#s = :status")
		names = map[string]string{"#s": "status"}
		values[":status"] = &types.AttributeValueMemberS{Value: string(*filter.Status)}
	}
	if filter.PaymentMethod != nil {
		conds = append(conds, "paymentMethod = :method")
		values[":method"] = &types.AttributeValueMemberS{Value: string(*filter.PaymentMethod)}
	}
	if filter.BuyerID != "" {
		conds = append(conds, "buyerId = :buyer")
		values[":buyer"] = &types.AttributeValueMemberS{Value: filter.BuyerID}
	}

	items, err := r.scan(ctx, strings.Join(conds, " AND "), names, values)
	if err != nil {
		return nil, err
	}

	orders := make([]domain.Order, 0, len(items))
	for _, item := range items {
		order, err := unmarshalOrder(item)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *order)
	}

	sort.SliceStable(orders, func(i, j int) bool {
		if orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].ID < orders[j].ID
		}
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})

	result := &domain.OrderPage{
		Items:    []domain.Order{},
		Total:    len(orders),
		Page:     page.Number,
		PageSize: page.Size,
	}
	start := page.Offset()
	if start < len(orders) {
		end := min(start+page.Size, len(orders))
		result.Items = orders[start:end]
	}

	return result, nil
}

func (r *DynamoOrderRepository) scan(
	ctx context.Context,
	filterExpr string,
	names map[string]string,
	values map[string]types.AttributeValue,
) ([]map[string]types.AttributeValue, error) {
	input := &dyn.ScanInput{
		TableName:      &r.tableName,
		ConsistentRead: aws.Bool(true),
	}
	if filterExpr != "" {
		input.FilterExpression = &filterExpr
		input.ExpressionAttributeNames = names
		input.ExpressionAttributeValues = values
	}

	var items []map[string]types.AttributeValue
	for {
		out, err := r.client.Scan(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("scan orders: %w", err)
		}
		items = append(items, out.Items...)
		if len(out.LastEvaluatedKey) == 0 {
			return items, nil
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
}

func updateExpression(patch domain.OrderPatch, now time.Time) (string, map[string]types.AttributeValue, error) {
	sets := []string{"updatedAt = :ua"}
	values := map[string]types.AttributeValue{}

	ua, err := attributevalue.Marshal(now)
	if err != nil {
		return "", nil, fmt.Errorf("marshal updatedAt: %w", err)
	}
	values[":ua"] = ua

	if patch.Status != nil {
		sets = append(sets, "#s = :status")
		values[":status"] = &types.AttributeValueMemberS{Value: string(*patch.Status)}
	}
	if patch.AdminNote != nil {
		sets = append(sets, "adminNote = :note")
		values[":note"] = &types.AttributeValueMemberS{Value: *patch.AdminNote}
	}
	if patch.RefundAmount != nil {
		sets = append(sets, "refundAmount = :refund")
		values[":refund"] = &types.AttributeValueMemberS{Value: money(*patch.RefundAmount)}
	}
	if patch.RefundDate != nil {
		av, err := attributevalue.Marshal(patch.RefundDate.UTC())
		if err != nil {
			return "", nil, fmt.Errorf("marshal refundDate: %w", err)
		}
		sets = append(sets, "refundDate = :refundDate")
		values[":refundDate"] = av
	}
	if patch.Evidence != nil {
		av, err := attributevalue.Marshal(toEvidenceRecord(*patch.Evidence))
		if err != nil {
			return "", nil, fmt.Errorf("marshal evidence: %w", err)
		}
		sets = append(sets, "evidence = :evidence")
		values[":evidence"] = av
	}
	if patch.CheckoutSessionID != nil {
		sets = append(sets, "checkoutSessionId = :sid")
		values[":sid"] = &types.AttributeValueMemberS{Value: *patch.CheckoutSessionID}
	}
	if patch.PaymentReference != nil {
		sets = append(sets, "paymentReference = :ref")
		values[":ref"] = &types.AttributeValueMemberS{Value: *patch.PaymentReference}
	}

	return "SET " + strings.Join(sets, ", "), values, nil
}

func orderKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"id": &types.AttributeValueMemberS{Value: id},
	}
}

func unmarshalOrder(item map[string]types.AttributeValue) (*domain.Order, error) {
	var rec orderRecord
	if err := attributevalue.UnmarshalMap(item, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal order: %w", err)
	}
	return fromRecord(rec)
}

func toRecord(o domain.Order) orderRecord {
	rec := orderRecord{
		ID:                o.ID,
		BuyerID:           o.BuyerID,
		BuyerEmail:        o.BuyerEmail,
		ProductID:         o.ProductID,
		SubProductID:      o.SubProductID,
		AccountInfo:       o.AccountInfo,
		BaseAmount:        money(o.BaseAmount),
		TotalAmount:       money(o.TotalAmount),
		Status:            string(o.Status),
		PaymentMethod:     string(o.PaymentMethod),
		CheckoutSessionID: o.CheckoutSessionID,
		PaymentReference:  o.PaymentReference,
		AdminNote:         o.AdminNote,
		RefundDate:        o.RefundDate,
		CreatedAt:         o.CreatedAt,
		UpdatedAt:         o.UpdatedAt,
	}
	if o.Discount != nil {
		rec.Discount = &discountRecord{
			CouponCode: o.Discount.CouponCode,
			Type:       string(o.Discount.Type),
			Amount:     money(o.Discount.Amount),
		}
	}
	if o.Evidence != nil {
		evidence := toEvidenceRecord(*o.Evidence)
		rec.Evidence = &evidence
	}
	if o.RefundAmount != nil {
		amount := money(*o.RefundAmount)
		rec.RefundAmount = &amount
	}
	return rec
}

func toEvidenceRecord(e domain.PaymentEvidence) evidenceRecord {
	return evidenceRecord{
		TransferNumberEnc:    e.TransferNumberEnc,
		InstaHandleEnc:       e.InstaHandleEnc,
		TransferNumberMasked: e.TransferNumberMasked,
		InstaHandleMasked:    e.InstaHandleMasked,
		ImageURL:             e.ImageURL,
		ImagePublicID:        e.ImagePublicID,
		SubmittedAt:          e.SubmittedAt,
	}
}

// money matches the DECIMAL(10,2) representation of the MySQL store.
func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func fromRecord(rec orderRecord) (*domain.Order, error) {
	base, err := decimal.NewFromString(rec.BaseAmount)
	if err != nil {
		return nil, fmt.Errorf("parse baseAmount of order %s: %w", rec.ID, err)
	}
	total, err := decimal.NewFromString(rec.TotalAmount)
	if err != nil {
		return nil, fmt.Errorf("parse totalAmount of order %s: %w", rec.ID, err)
	}

	o := &domain.Order{
		ID:                rec.ID,
		BuyerID:           rec.BuyerID,
		BuyerEmail:        rec.BuyerEmail,
		ProductID:         rec.ProductID,
		SubProductID:      rec.SubProductID,
		AccountInfo:       rec.AccountInfo,
		BaseAmount:        base,
		TotalAmount:       total,
		Status:            domain.OrderStatus(rec.Status),
		PaymentMethod:     domain.PaymentMethod(rec.PaymentMethod),
		CheckoutSessionID: rec.CheckoutSessionID,
		PaymentReference:  rec.PaymentReference,
		AdminNote:         rec.AdminNote,
		RefundDate:        rec.RefundDate,
		CreatedAt:         rec.CreatedAt,
		UpdatedAt:         rec.UpdatedAt,
	}

	if rec.Discount != nil {
		amount, err := decimal.NewFromString(rec.Discount.Amount)
		if err != nil {
			return nil, fmt.Errorf("parse discount of order %s: %w", rec.ID, err)
		}
		o.Discount = &domain.OrderDiscount{
			CouponCode: rec.Discount.CouponCode,
			Type:       domain.CouponType(rec.Discount.Type),
			Amount:     amount,
		}
	}
	if rec.Evidence != nil {
		o.Evidence = &domain.PaymentEvidence{
			TransferNumberEnc:    rec.Evidence.TransferNumberEnc,
			InstaHandleEnc:       rec.Evidence.InstaHandleEnc,
			TransferNumberMasked: rec.Evidence.TransferNumberMasked,
			InstaHandleMasked:    rec.Evidence.InstaHandleMasked,
			ImageURL:             rec.Evidence.ImageURL,
			ImagePublicID:        rec.Evidence.ImagePublicID,
			SubmittedAt:          rec.Evidence.SubmittedAt,
		}
	}
	if rec.RefundAmount != nil {
		amount, err := decimal.NewFromString(*rec.RefundAmount)
		if err != nil {
			return nil, fmt.Errorf("parse refundAmount of order %s: %w", rec.ID, err)
		}
		o.RefundAmount = &amount
	}

	return o, nil
}
