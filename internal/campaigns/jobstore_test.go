package campaigns

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/samparkhq/sampark/pkg/logging"
)

type mockDynamo struct {
	putInput     *dynamodb.PutItemInput
	putErr       error
	updateInputs []*dynamodb.UpdateItemInput
	updateErr    error
	getOutput    *dynamodb.GetItemOutput
	getErr       error
}

func (m *mockDynamo) PutItem(_ context.Context, input *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	m.putInput = input
	return &dynamodb.PutItemOutput{}, m.putErr
}

func (m *mockDynamo) UpdateItem(_ context.Context, input *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	m.updateInputs = append(m.updateInputs, input)
	return &dynamodb.UpdateItemOutput{}, m.updateErr
}

func (m *mockDynamo) GetItem(_ context.Context, _ *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	if m.getOutput == nil && m.getErr == nil {
		return &dynamodb.GetItemOutput{}, nil
	}
	return m.getOutput, m.getErr
}

func TestJobStore_PutPendingPersistsDefaults(t *testing.T) {
	mock := &mockDynamo{}
	store := NewJobStore(mock, "broadcast_jobs", logging.Default())

	job := &JobRecord{
		JobID:      "job-123",
		CampaignID: "camp-1",
		OrgID:      "org-1",
	}

	if err := store.PutPending(context.Background(), job); err != nil {
		t.Fatalf("PutPending returned error: %v", err)
	}

	if mock.putInput == nil {
		t.Fatalf("expected PutItem to be called")
	}

	var stored JobRecord
	if err := attributevalue.UnmarshalMap(mock.putInput.Item, &stored); err != nil {
		t.Fatalf("failed to unmarshal stored job: %v", err)
	}

	if stored.Status != JobStatusPending {
		t.Fatalf("expected status pending, got %s", stored.Status)
	}
	if stored.CreatedAt == "" || stored.UpdatedAt == "" {
		t.Fatal("expected timestamps to be populated")
	}
	if stored.ExpiresAt <= time.Now().Unix() {
		t.Fatal("expected TTL to be in the future")
	}
	if expr := mock.putInput.ConditionExpression; expr == nil || *expr != "attribute_not_exists(jobId)" {
		t.Fatalf("expected condition expression to prevent overwrites, got %v", expr)
	}
}

func TestJobStore_PutPendingNilJob(t *testing.T) {
	store := NewJobStore(&mockDynamo{}, "broadcast_jobs", logging.Default())
	if err := store.PutPending(context.Background(), nil); err == nil {
		t.Fatal("expected error when job is nil")
	}
}

func TestJobStore_MarkCompletedWritesCounts(t *testing.T) {
	mock := &mockDynamo{}
	store := NewJobStore(mock, "broadcast_jobs", logging.Default())

	if err := store.MarkCompleted(context.Background(), "job-123", 50, 48, 2); err != nil {
		t.Fatalf("MarkCompleted returned error: %v", err)
	}

	if len(mock.updateInputs) != 1 {
		t.Fatalf("expected 1 update call, got %d", len(mock.updateInputs))
	}
	update := mock.updateInputs[0]

	names := update.ExpressionAttributeNames
	if names["#status"] != "status" || names["#error"] != "errorMessage" {
		t.Fatalf("expected reserved attribute names to be aliased, got %v", names)
	}

	values := update.ExpressionAttributeValues
	if got := values[":status"].(*types.AttributeValueMemberS).Value; got != string(JobStatusCompleted) {
		t.Fatalf("expected completed status, got %s", got)
	}
	if got := values[":sent"].(*types.AttributeValueMemberN).Value; got != "48" {
		t.Fatalf("expected sent count 48, got %s", got)
	}
	if got := values[":failed"].(*types.AttributeValueMemberN).Value; got != "2" {
		t.Fatalf("expected failed count 2, got %s", got)
	}
	if expr := update.ConditionExpression; expr == nil || *expr != "attribute_exists(jobId)" {
		t.Fatalf("expected existence condition, got %v", expr)
	}
}

func TestJobStore_MarkFailedWritesError(t *testing.T) {
	mock := &mockDynamo{}
	store := NewJobStore(mock, "broadcast_jobs", logging.Default())

	if err := store.MarkFailed(context.Background(), "job-123", "template not found"); err != nil {
		t.Fatalf("MarkFailed returned error: %v", err)
	}

	update := mock.updateInputs[0]
	values := update.ExpressionAttributeValues
	if got := values[":error"].(*types.AttributeValueMemberS).Value; got != "template not found" {
		t.Fatalf("expected error message persisted, got %s", got)
	}
}

func TestJobStore_GetJobNotFound(t *testing.T) {
	store := NewJobStore(&mockDynamo{}, "broadcast_jobs", logging.Default())

	if _, err := store.GetJob(context.Background(), "missing"); !errors.Is(err, ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
}

func TestJobStore_GetJobRoundTrip(t *testing.T) {
	record := JobRecord{
		JobID:        "job-9",
		CampaignID:   "camp-2",
		OrgID:        "org-5",
		Status:       JobStatusCompleted,
		ContactCount: 10,
		SentCount:    10,
	}
	item, err := attributevalue.MarshalMap(record)
	if err != nil {
		t.Fatalf("marshal fixture: %v", err)
	}

	store := NewJobStore(&mockDynamo{getOutput: &dynamodb.GetItemOutput{Item: item}}, "broadcast_jobs", logging.Default())

	got, err := store.GetJob(context.Background(), "job-9")
	if err != nil {
		t.Fatalf("GetJob returned error: %v", err)
	}
	if got.SentCount != 10 || got.Status != JobStatusCompleted {
		t.Fatalf("unexpected record %+v", got)
	}
}
