package dynamo

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/zencounsel/counsel-api/internal/model"
	"github.com/zencounsel/counsel-api/internal/repository"
)

// API is the subset of the DynamoDB client the ledger uses.
type API interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

type Tables struct {
	Appointments string
	SlotLocks    string
	// SlotIndex is a GSI on the appointments table keyed (counsellorId, date).
	SlotIndex string
}

// appointmentRepository keeps one lock item per active slot key. Claiming
// a slot writes the lock (attribute_not_exists) and the appointment in one
// transaction; cancelling deletes the lock in the same transaction that
// flips the status.
type appointmentRepository struct {
	client API
	tables Tables
}

func NewAppointmentRepository(client API, tables Tables) repository.AppointmentRepository {
	return &appointmentRepository{client: client, tables: tables}
}

func (r *appointmentRepository) Create(ctx context.Context, a *model.Appointment) error {
	input := &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				Put: &types.Put{
					TableName:           aws.String(r.tables.SlotLocks),
					Item:                lockItem(a),
					ConditionExpression: aws.String("attribute_not_exists(slotKey)"),
				},
			},
			{
				Put: &types.Put{
					TableName:           aws.String(r.tables.Appointments),
					Item:                marshalAppointment(a),
					ConditionExpression: aws.String("attribute_not_exists(id)"),
				},
			},
		},
	}

	_, err := r.client.TransactWriteItems(ctx, input)
	if err == nil {
		return nil
	}
	if reasons, ok := cancellationReasons(err); ok && len(reasons) > 0 && isConditionFailure(reasons[0]) {
		return repository.ErrSlotTaken
	}
	return fmt.Errorf("failed to create appointment: %w", err)
}

func (r *appointmentRepository) Get(ctx context.Context, id string) (*model.Appointment, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tables.Appointments),
		Key:            map[string]types.AttributeValue{"id": str(id)},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, repository.ErrNotFound
	}
	return unmarshalAppointment(out.Item), nil
}

// BookedSlots reads the counsellor/date GSI, which is eventually
// consistent: a slot claimed a moment ago may be missing for a short while.
// Admission never relies on this read; the lock item decides.
func (r *appointmentRepository) BookedSlots(ctx context.Context, counsellorID, date string) ([]string, error) {
	items, err := r.queryCounsellorDate(ctx, counsellorID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to query booked slots: %w", err)
	}

	seen := make(map[string]struct{}, len(items))
	slots := []string{}
	for _, a := range items {
		if !a.IsActive() {
			continue
		}
		if _, dup := seen[a.TimeSlot]; dup {
			continue
		}
		seen[a.TimeSlot] = struct{}{}
		slots = append(slots, a.TimeSlot)
	}
	sort.Strings(slots)
	return slots, nil
}

func (r *appointmentRepository) queryCounsellorDate(ctx context.Context, counsellorID, date string) ([]*model.Appointment, error) {
	var (
		out  []*model.Appointment
		last map[string]types.AttributeValue
	)
	for {
		res, err := r.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(r.tables.Appointments),
			IndexName:              aws.String(r.tables.SlotIndex),
			KeyConditionExpression: aws.String("counsellorId = :c AND #dt = :d"),
			ExpressionAttributeNames: map[string]string{
				"#dt": "date",
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":c": str(counsellorID),
				":d": str(date),
			},
			ExclusiveStartKey: last,
		})
		if err != nil {
			return nil, err
		}
		for _, item := range res.Items {
			out = append(out, unmarshalAppointment(item))
		}
		if len(res.LastEvaluatedKey) == 0 {
			return out, nil
		}
		last = res.LastEvaluatedKey
	}
}

func (r *appointmentRepository) List(ctx context.Context, f model.AppointmentFilters) ([]*model.Appointment, error) {
	var (
		items []*model.Appointment
		err   error
	)
	if f.CounsellorID != "" && f.Date != "" {
		items, err = r.queryCounsellorDate(ctx, f.CounsellorID, f.Date)
	} else {
		items, err = r.scan(ctx, f)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}

	filtered := make([]*model.Appointment, 0, len(items))
	for _, a := range items {
		if f.SeekerID != "" && a.SeekerID != f.SeekerID {
			continue
		}
		if f.Status != "" && a.Status != f.Status {
			continue
		}
		filtered = append(filtered, a)
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		if filtered[i].Date != filtered[j].Date {
			return filtered[i].Date < filtered[j].Date
		}
		if filtered[i].TimeSlot != filtered[j].TimeSlot {
			return filtered[i].TimeSlot < filtered[j].TimeSlot
		}
		return filtered[i].CreatedAt.Before(filtered[j].CreatedAt)
	})
	return page(filtered, f.Limit, f.Offset), nil
}

func page(items []*model.Appointment, limit, offset int) []*model.Appointment {
	if offset >= len(items) {
		return []*model.Appointment{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func (r *appointmentRepository) scan(ctx context.Context, f model.AppointmentFilters) ([]*model.Appointment, error) {
	var (
		conds  []string
		names  = map[string]string{}
		values = map[string]types.AttributeValue{}
	)
	if f.SeekerID != "" {
		conds = append(conds, "seekerId = :s")
		values[":s"] = str(f.SeekerID)
	}
	if f.CounsellorID != "" {
		conds = append(conds, "counsellorId = :c")
		values[":c"] = str(f.CounsellorID)
	}
	if f.Date != "" {
		conds = append(conds, "#dt = :d")
		names["#dt"] = "date"
		values[":d"] = str(f.Date)
	}

	input := &dynamodb.ScanInput{TableName: aws.String(r.tables.Appointments)}
	if len(conds) > 0 {
		input.FilterExpression = aws.String(strings.Join(conds, " AND "))
		input.ExpressionAttributeValues = values
		if len(names) > 0 {
			input.ExpressionAttributeNames = names
		}
	}

	var out []*model.Appointment
	for {
		res, err := r.client.Scan(ctx, input)
		if err != nil {
			return nil, err
		}
		for _, item := range res.Items {
			out = append(out, unmarshalAppointment(item))
		}
		if len(res.LastEvaluatedKey) == 0 {
			return out, nil
		}
		input.ExclusiveStartKey = res.LastEvaluatedKey
	}
}

func (r *appointmentRepository) UpdateStatus(ctx context.Context, id string, from, to model.AppointmentStatus) (*model.Appointment, error) {
	current, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status != from {
		return nil, repository.ErrStatusChanged
	}

	now := time.Now().UTC()
	items := []types.TransactWriteItem{
		{
			Update: &types.Update{
				TableName:           aws.String(r.tables.Appointments),
				Key:                 map[string]types.AttributeValue{"id": str(id)},
				UpdateExpression:    aws.String("SET #st = :to, updatedAt = :now"),
				ConditionExpression: aws.String("#st = :from"),
				ExpressionAttributeNames: map[string]string{
					"#st": "status",
				},
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":to":   str(string(to)),
					":from": str(string(from)),
					":now":  str(now.Format(time.RFC3339Nano)),
				},
			},
		},
	}
	if to == model.AppointmentStatusCancelled {
		items = append(items, types.TransactWriteItem{
			Delete: &types.Delete{
				TableName:           aws.String(r.tables.SlotLocks),
				Key:                 map[string]types.AttributeValue{"slotKey": str(current.SlotKey().String())},
				ConditionExpression: aws.String("appointmentId = :id"),
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":id": str(id),
				},
			},
		})
	}

	if _, err := r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: items}); err != nil {
		if reasons, ok := cancellationReasons(err); ok && len(reasons) > 0 && isConditionFailure(reasons[0]) {
			return nil, repository.ErrStatusChanged
		}
		return nil, fmt.Errorf("failed to update appointment status: %w", err)
	}

	current.Status = to
	current.UpdatedAt = now
	return current, nil
}

func cancellationReasons(err error) ([]types.CancellationReason, bool) {
	var tce *types.TransactionCanceledException
	if errors.As(err, &tce) {
		return tce.CancellationReasons, true
	}
	return nil, false
}

func isConditionFailure(r types.CancellationReason) bool {
	return aws.ToString(r.Code) == "ConditionalCheckFailed"
}

func lockItem(a *model.Appointment) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"slotKey":       str(a.SlotKey().String()),
		"appointmentId": str(a.ID),
		"createdAt":     str(a.CreatedAt.Format(time.RFC3339Nano)),
	}
}

func marshalAppointment(a *model.Appointment) map[string]types.AttributeValue {
	item := map[string]types.AttributeValue{
		"id":            str(a.ID),
		"seekerId":      str(a.SeekerID),
		"counsellorId":  str(a.CounsellorID),
		"date":          str(a.Date),
		"timeSlot":      str(a.TimeSlot),
		"status":        str(string(a.Status)),
		"fee":           num(a.Fee),
		"paymentStatus": str(string(a.PaymentStatus)),
		"source":        str(a.Source),
		"createdAt":     str(a.CreatedAt.Format(time.RFC3339Nano)),
		"updatedAt":     str(a.UpdatedAt.Format(time.RFC3339Nano)),
	}
	optional := map[string]string{
		"seekerName":     a.SeekerName,
		"counsellorName": a.CounsellorName,
		"sessionType":    a.SessionType,
		"notes":          a.Notes,
	}
	for k, v := range optional {
		if v != "" {
			item[k] = str(v)
		}
	}
	return item
}

func unmarshalAppointment(item map[string]types.AttributeValue) *model.Appointment {
	a := &model.Appointment{
		ID:             getS(item, "id"),
		SeekerID:       getS(item, "seekerId"),
		SeekerName:     getS(item, "seekerName"),
		CounsellorID:   getS(item, "counsellorId"),
		CounsellorName: getS(item, "counsellorName"),
		SessionType:    getS(item, "sessionType"),
		Date:           getS(item, "date"),
		TimeSlot:       getS(item, "timeSlot"),
		Status:         model.AppointmentStatus(getS(item, "status")),
		Fee:            getN(item, "fee"),
		PaymentStatus:  model.PaymentStatus(getS(item, "paymentStatus")),
		Notes:          getS(item, "notes"),
		Source:         getS(item, "source"),
	}
	a.CreatedAt, _ = time.Parse(time.RFC3339Nano, getS(item, "createdAt"))
	a.UpdatedAt, _ = time.Parse(time.RFC3339Nano, getS(item, "updatedAt"))
	return a
}

func str(s string) types.AttributeValue {
	return &types.AttributeValueMemberS{Value: s}
}

func num(f float64) types.AttributeValue {
	return &types.AttributeValueMemberN{Value: strconv.FormatFloat(f, 'f', -1, 64)}
}

func getS(item map[string]types.AttributeValue, key string) string {
	if v, ok := item[key].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}

func getN(item map[string]types.AttributeValue, key string) float64 {
	if v, ok := item[key].(*types.AttributeValueMemberN); ok {
		f, _ := strconv.ParseFloat(v.Value, 64)
		return f
	}
	return 0
}
