package broadcastworker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/samparkhq/sampark/internal/campaigns"
	"github.com/samparkhq/sampark/internal/contacts"
	"github.com/samparkhq/sampark/internal/delivery"
	"github.com/samparkhq/sampark/internal/templates"
	"github.com/samparkhq/sampark/pkg/template"
)

// fakeQueue hands out its messages once, then blocks until the context is
// canceled like long-polling SQS.
type fakeQueue struct {
	mu       sync.Mutex
	messages []campaigns.QueueMessage
	deleted  []string
}

func (q *fakeQueue) Publish(_ context.Context, _ campaigns.BroadcastMessage) error { return nil }

func (q *fakeQueue) Receive(ctx context.Context, _ int, _ int) ([]campaigns.QueueMessage, error) {
	q.mu.Lock()
	if len(q.messages) > 0 {
		out := q.messages
		q.messages = nil
		q.mu.Unlock()
		return out, nil
	}
	q.mu.Unlock()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(50 * time.Millisecond):
		return nil, nil
	}
}

func (q *fakeQueue) Delete(_ context.Context, receiptHandle string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.deleted = append(q.deleted, receiptHandle)
	return nil
}

type fakeCampaigns struct {
	mu       sync.Mutex
	campaign *campaigns.Campaign
	statuses []string
}

func (s *fakeCampaigns) Get(_ context.Context, id uuid.UUID) (*campaigns.Campaign, error) {
	if s.campaign == nil || s.campaign.ID != id {
		return nil, campaigns.ErrNotFound
	}
	return s.campaign, nil
}

func (s *fakeCampaigns) SetStatus(_ context.Context, _ uuid.UUID, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses = append(s.statuses, status)
	return nil
}

type fakeTemplates struct {
	record *templates.Template
}

func (s *fakeTemplates) Get(_ context.Context, id uuid.UUID) (*templates.Template, error) {
	if s.record == nil || s.record.ID != id {
		return nil, templates.ErrNotFound
	}
	return s.record, nil
}

type fakeContacts struct {
	contacts []contacts.Contact
}

func (s *fakeContacts) ListByOrg(_ context.Context, _ uuid.UUID, _ []string) ([]contacts.Contact, error) {
	return s.contacts, nil
}

type recordingSender struct {
	mu     sync.Mutex
	sent   []delivery.Message
	failTo string
}

func (s *recordingSender) Send(_ context.Context, msg delivery.Message) error {
	if s.failTo != "" && msg.To == s.failTo {
		return errors.New("gateway rejected")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, msg)
	return nil
}

type recordingEmailSender struct {
	mu   sync.Mutex
	sent []delivery.EmailMessage
}

func (s *recordingEmailSender) Send(_ context.Context, msg delivery.EmailMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, msg)
	return nil
}

type recordingJobs struct {
	mu        sync.Mutex
	completed []string
	counts    [3]int
	failed    map[string]string
}

func (j *recordingJobs) MarkCompleted(_ context.Context, jobID string, contactCount, sentCount, failedCount int) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.completed = append(j.completed, jobID)
	j.counts = [3]int{contactCount, sentCount, failedCount}
	return nil
}

func (j *recordingJobs) MarkFailed(_ context.Context, jobID string, errMsg string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.failed == nil {
		j.failed = map[string]string{}
	}
	j.failed[jobID] = errMsg
	return nil
}

func broadcastFixture(t *testing.T, content string, contactList []contacts.Contact) (*fakeQueue, *fakeCampaigns, *fakeTemplates, *fakeContacts, string) {
	t.Helper()
	orgID := uuid.New()
	record := &templates.Template{ID: uuid.New(), OrgID: orgID, Name: "greeting", Channel: "sms", Content: content}
	campaign := &campaigns.Campaign{
		ID:         uuid.New(),
		OrgID:      orgID,
		Name:       "broadcast",
		Channel:    "sms",
		TemplateID: record.ID,
		Tags:       []string{},
		Status:     campaigns.StatusQueued,
	}
	for i := range contactList {
		contactList[i].OrgID = orgID
	}

	jobID := uuid.NewString()
	body, err := json.Marshal(campaigns.BroadcastMessage{
		JobID:      jobID,
		CampaignID: campaign.ID.String(),
		OrgID:      orgID.String(),
	})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}

	queue := &fakeQueue{messages: []campaigns.QueueMessage{{ID: "m-1", Body: string(body), ReceiptHandle: "rh-1"}}}
	return queue, &fakeCampaigns{campaign: campaign}, &fakeTemplates{record: record}, &fakeContacts{contacts: contactList}, jobID
}

func runWorkerOnce(t *testing.T, w *Worker) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	w.Start(ctx)
	time.Sleep(200 * time.Millisecond)
	cancel()
	w.Wait()
}

func TestWorkerRendersPerContact(t *testing.T) {
	queue, campaignStore, templateStore, contactStore, jobID := broadcastFixture(t,
		"नमस्ते {name}, तपाईंको अर्डर {order_id|नयाँ} तयार छ।",
		[]contacts.Contact{
			{ID: uuid.New(), Name: "सीता", Phone: "+9779841000001", Attributes: map[string]string{"order_id": "A-1"}},
			{ID: uuid.New(), Name: "राम", Phone: "+9779841000002", Attributes: map[string]string{}},
		})

	sender := &recordingSender{}
	jobs := &recordingJobs{}
	w := NewWorker(queue, campaignStore, templateStore, contactStore, sender, jobs, template.NewCache(8), nil, nil, WithWorkerCount(1))

	runWorkerOnce(t, w)

	if len(sender.sent) != 2 {
		t.Fatalf("expected 2 sends, got %d", len(sender.sent))
	}

	byPhone := map[string]string{}
	for _, msg := range sender.sent {
		byPhone[msg.To] = msg.Body
	}
	if got := byPhone["+9779841000001"]; got != "नमस्ते सीता, तपाईंको अर्डर A-1 तयार छ।" {
		t.Errorf("rendered body = %q", got)
	}
	if got := byPhone["+9779841000002"]; got != "नमस्ते राम, तपाईंको अर्डर नयाँ तयार छ।" {
		t.Errorf("default not applied: %q", got)
	}

	if len(jobs.completed) != 1 || jobs.completed[0] != jobID {
		t.Fatalf("job not marked completed: %v", jobs.completed)
	}
	if jobs.counts != [3]int{2, 2, 0} {
		t.Errorf("counts = %v", jobs.counts)
	}
	if len(queue.deleted) != 1 || queue.deleted[0] != "rh-1" {
		t.Errorf("message not deleted: %v", queue.deleted)
	}

	campaignStore.mu.Lock()
	defer campaignStore.mu.Unlock()
	if len(campaignStore.statuses) == 0 || campaignStore.statuses[len(campaignStore.statuses)-1] != campaigns.StatusCompleted {
		t.Errorf("campaign statuses = %v", campaignStore.statuses)
	}
}

func TestWorkerCountsSendFailures(t *testing.T) {
	queue, campaignStore, templateStore, contactStore, _ := broadcastFixture(t,
		"नमस्ते {name}",
		[]contacts.Contact{
			{ID: uuid.New(), Name: "a", Phone: "+9779841000001"},
			{ID: uuid.New(), Name: "b", Phone: "+9779841000002"},
			{ID: uuid.New(), Name: "c", Phone: "+9779841000003"},
		})

	sender := &recordingSender{failTo: "+9779841000002"}
	jobs := &recordingJobs{}
	w := NewWorker(queue, campaignStore, templateStore, contactStore, sender, jobs, nil, nil, nil, WithWorkerCount(1))

	runWorkerOnce(t, w)

	if jobs.counts != [3]int{3, 2, 1} {
		t.Errorf("counts = %v", jobs.counts)
	}
}

func TestWorkerRoutesSurveyThroughEmail(t *testing.T) {
	queue, campaignStore, templateStore, contactStore, jobID := broadcastFixture(t,
		"नमस्ते {name}, कृपया हाम्रो सर्वेक्षण भर्नुहोस्।",
		[]contacts.Contact{
			{ID: uuid.New(), Name: "सीता", Phone: "+9779841000001", Email: "sita@example.com"},
			{ID: uuid.New(), Name: "राम", Phone: "+9779841000002"},
		})
	campaignStore.campaign.Channel = templates.ChannelSurvey
	campaignStore.campaign.Name = "ग्राहक सर्वेक्षण"

	sms := &recordingSender{}
	email := &recordingEmailSender{}
	jobs := &recordingJobs{}
	w := NewWorker(queue, campaignStore, templateStore, contactStore, sms, jobs, nil, nil, nil,
		WithWorkerCount(1), WithEmailSender(email))

	runWorkerOnce(t, w)

	if len(sms.sent) != 0 {
		t.Errorf("survey campaign should not send SMS, got %d", len(sms.sent))
	}
	if len(email.sent) != 1 {
		t.Fatalf("expected 1 email, got %d", len(email.sent))
	}
	msg := email.sent[0]
	if msg.To != "sita@example.com" || msg.ToName != "सीता" {
		t.Errorf("email addressed to %q (%q)", msg.To, msg.ToName)
	}
	if msg.Subject != "ग्राहक सर्वेक्षण" {
		t.Errorf("subject = %q", msg.Subject)
	}
	if msg.Body != "नमस्ते सीता, कृपया हाम्रो सर्वेक्षण भर्नुहोस्।" {
		t.Errorf("rendered body = %q", msg.Body)
	}

	// The contact with no email address counts as a delivery failure.
	if jobs.counts != [3]int{2, 1, 1} {
		t.Errorf("counts = %v", jobs.counts)
	}
	if len(jobs.completed) != 1 || jobs.completed[0] != jobID {
		t.Fatalf("job not marked completed: %v", jobs.completed)
	}
}

func TestWorkerFailsSurveyWithoutEmailSender(t *testing.T) {
	queue, campaignStore, templateStore, contactStore, jobID := broadcastFixture(t,
		"नमस्ते {name}",
		[]contacts.Contact{
			{ID: uuid.New(), Name: "सीता", Email: "sita@example.com"},
		})
	campaignStore.campaign.Channel = templates.ChannelSurvey

	sms := &recordingSender{}
	jobs := &recordingJobs{}
	w := NewWorker(queue, campaignStore, templateStore, contactStore, sms, jobs, nil, nil, nil, WithWorkerCount(1))

	runWorkerOnce(t, w)

	if _, ok := jobs.failed[jobID]; !ok {
		t.Fatalf("expected job marked failed, got %v", jobs.failed)
	}
	if len(sms.sent) != 0 {
		t.Errorf("expected no SMS fallback, got %d sends", len(sms.sent))
	}
}

func TestWorkerMarksJobFailedOnBadTemplate(t *testing.T) {
	queue, campaignStore, _, contactStore, jobID := broadcastFixture(t, "ignored", nil)

	// Template record written around the API with malformed content.
	broken := &fakeTemplates{record: &templates.Template{
		ID:      campaignStore.campaign.TemplateID,
		Content: "नमस्ते {name",
	}}

	sender := &recordingSender{}
	jobs := &recordingJobs{}
	w := NewWorker(queue, campaignStore, broken, contactStore, sender, jobs, nil, nil, nil, WithWorkerCount(1))

	runWorkerOnce(t, w)

	if _, ok := jobs.failed[jobID]; !ok {
		t.Fatalf("expected job marked failed, got %v", jobs.failed)
	}
	if len(sender.sent) != 0 {
		t.Errorf("expected no sends, got %d", len(sender.sent))
	}
	if len(queue.deleted) != 1 {
		t.Errorf("poison message should still be deleted: %v", queue.deleted)
	}
}
