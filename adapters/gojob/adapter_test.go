package gojob

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-cerm/core"

	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
	"github.com/goliatone/go-job/queue/worker"
)

func validateAddressMessage() *core.JobExecutionMessage {
	return &core.JobExecutionMessage{
		JobID:          JobIDValidateAddress,
		ScriptPath:     "cerm.validate_address",
		Parameters:     map[string]any{"customer_id": "C100", "street": "40 Langs Road"},
		IdempotencyKey: "addr-C100-1",
		DedupPolicy:    "drop",
	}
}

func submitSalesOrderMessage() *core.JobExecutionMessage {
	return &core.JobExecutionMessage{
		JobID:          JobIDSubmitSalesOrder,
		ScriptPath:     "cerm.salesorder.submit",
		Parameters:     map[string]any{"customer_id": "C100", "contact_id": "CT5"},
		IdempotencyKey: "so-web-42",
		DedupPolicy:    "merge",
	}
}

func TestDefaultRetryPolicy_PerJobBounds(t *testing.T) {
	validate := DefaultRetryPolicy(JobIDValidateAddress)
	if validate.MaxAttempts != 5 || validate.DeadLetterOnMax {
		t.Fatalf("expected lenient validate-address policy, got %+v", validate)
	}

	submit := DefaultRetryPolicy(JobIDSubmitSalesOrder)
	if submit.MaxAttempts != 3 || !submit.DeadLetterOnMax {
		t.Fatalf("expected dead-lettering sales-order policy, got %+v", submit)
	}

	unknown := DefaultRetryPolicy("cerm.someday.maybe")
	if unknown.MaxAttempts == 0 {
		t.Fatalf("expected unknown job ids to still get bounded retries")
	}
}

func TestExecutionMessageMappingRoundTrip(t *testing.T) {
	original := validateAddressMessage()
	original.JobID = "  " + original.JobID + "  "

	mapped := ToExecutionMessage(original)
	if mapped == nil {
		t.Fatalf("expected mapped message")
	}
	if mapped.JobID != JobIDValidateAddress {
		t.Fatalf("expected trimmed job id, got %q", mapped.JobID)
	}

	back := FromExecutionMessage(mapped)
	if back.ScriptPath != "cerm.validate_address" {
		t.Fatalf("expected script path to survive, got %q", back.ScriptPath)
	}
	if back.IdempotencyKey != "addr-C100-1" || back.DedupPolicy != "drop" {
		t.Fatalf("expected idempotency fields to survive, got %+v", back)
	}
	if back.Parameters["street"] != "40 Langs Road" {
		t.Fatalf("expected parameters to survive mapping")
	}

	back.Parameters["street"] = "mutated"
	if mapped.Parameters["street"] != "40 Langs Road" {
		t.Fatalf("expected mapping to copy parameters, not share them")
	}
}

func TestEnqueuerAdapter_RequiresJobID(t *testing.T) {
	adapter := NewEnqueuerAdapter(&stubQueueEnqueuer{})

	msg := submitSalesOrderMessage()
	msg.JobID = "   "
	if err := adapter.Enqueue(context.Background(), msg); err == nil {
		t.Fatalf("expected enqueue to reject a blank job id")
	}
	if err := adapter.Enqueue(context.Background(), nil); err == nil {
		t.Fatalf("expected enqueue to reject a nil message")
	}
}

func TestEnqueueThenDequeue_SalesOrderFlow(t *testing.T) {
	ctx := context.Background()
	enqueuer := &stubQueueEnqueuer{}

	if err := NewEnqueuerAdapter(enqueuer).Enqueue(ctx, submitSalesOrderMessage()); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if enqueuer.last == nil || enqueuer.last.JobID != JobIDSubmitSalesOrder {
		t.Fatalf("expected sales-order message on the queue")
	}

	dequeuer := &stubQueueDequeuer{delivery: &stubQueueDelivery{msg: enqueuer.last}}
	delivery, err := NewJobAwareDequeuerAdapter(dequeuer).Dequeue(ctx)
	if err != nil {
		t.Fatalf("dequeue: %v", err)
	}
	got := delivery.Message()
	if got == nil || got.IdempotencyKey != "so-web-42" {
		t.Fatalf("expected mapped sales-order delivery, got %+v", got)
	}
	if err := delivery.Ack(ctx); err != nil {
		t.Fatalf("ack: %v", err)
	}
	if !dequeuer.delivery.(*stubQueueDelivery).acked {
		t.Fatalf("expected ack to reach the underlying delivery")
	}
}

func TestJobAwareDequeuer_DeadLettersSalesOrderAtMaxAttempts(t *testing.T) {
	ctx := context.Background()
	raw := &stubQueueDelivery{msg: ToExecutionMessage(submitSalesOrderMessage())}
	dequeuer := &stubQueueDequeuer{delivery: raw}

	delivery, err := NewJobAwareDequeuerAdapter(dequeuer).Dequeue(ctx)
	if err != nil {
		t.Fatalf("dequeue: %v", err)
	}
	wrapped, ok := delivery.(*DeliveryAdapter)
	if !ok {
		t.Fatalf("expected delivery adapter, got %T", delivery)
	}

	if err := wrapped.NackForAttempt(ctx, core.JobNackOptions{
		Delay:   time.Second,
		Requeue: true,
		Reason:  "vendor 500",
	}, 3); err != nil {
		t.Fatalf("nack at max attempts: %v", err)
	}
	if raw.nackOpts.Requeue {
		t.Fatalf("expected no requeue once sales-order attempts are exhausted")
	}
	if !raw.nackOpts.DeadLetter {
		t.Fatalf("expected exhausted sales order to dead-letter")
	}
}

func TestJobAwareDequeuer_KeepsRetryingAddressValidation(t *testing.T) {
	ctx := context.Background()
	raw := &stubQueueDelivery{msg: ToExecutionMessage(validateAddressMessage())}
	dequeuer := &stubQueueDequeuer{delivery: raw}

	delivery, err := NewJobAwareDequeuerAdapter(dequeuer).Dequeue(ctx)
	if err != nil {
		t.Fatalf("dequeue: %v", err)
	}
	wrapped := delivery.(*DeliveryAdapter)

	if err := wrapped.NackForAttempt(ctx, core.JobNackOptions{
		Delay:   5 * time.Minute,
		Requeue: true,
		Reason:  "vendor timeout",
	}, 4); err != nil {
		t.Fatalf("nack attempt 4: %v", err)
	}
	if !raw.nackOpts.Requeue {
		t.Fatalf("expected validate-address to keep retrying below max attempts")
	}
	if raw.nackOpts.Delay != 30*time.Second {
		t.Fatalf("expected delay clamped to 30s, got %s", raw.nackOpts.Delay)
	}

	if err := wrapped.NackForAttempt(ctx, core.JobNackOptions{
		Delay:   time.Second,
		Requeue: true,
		Reason:  "still down",
	}, 5); err != nil {
		t.Fatalf("nack final attempt: %v", err)
	}
	if raw.nackOpts.Requeue || raw.nackOpts.DeadLetter {
		t.Fatalf("expected validate-address to drop without dead-letter, got %+v", raw.nackOpts)
	}
}

func TestNormalizeAttempt_NeverLosesMessagesBeforeMax(t *testing.T) {
	policy := DefaultRetryPolicy(JobIDValidateAddress)

	out := policy.NormalizeAttempt(core.JobNackOptions{Delay: -time.Second, Reason: "  odd  "}, 1)
	if !out.Requeue {
		t.Fatalf("expected a nack with neither requeue nor dead-letter to requeue")
	}
	if out.Delay != 0 {
		t.Fatalf("expected negative delay clamped to zero, got %s", out.Delay)
	}
	if out.Reason != "odd" {
		t.Fatalf("expected trimmed reason, got %q", out.Reason)
	}

	out = policy.NormalizeAttempt(core.JobNackOptions{Requeue: true, DeadLetter: true}, 1)
	if out.Requeue {
		t.Fatalf("expected an explicit dead-letter to win over requeue")
	}
}

func TestWorkerHookAdapter_TranslatesRetryEvents(t *testing.T) {
	started := time.Now().UTC().Add(-time.Second)
	hook := &recordingHook{}
	adapter := NewWorkerHookAdapter(hook)

	adapter.OnRetry(context.Background(), worker.Event{
		Message:   ToExecutionMessage(submitSalesOrderMessage()),
		Attempt:   2,
		Delay:     5 * time.Second,
		Err:       errors.New("vendor 429"),
		StartedAt: started,
		Duration:  250 * time.Millisecond,
	})

	got := hook.retries[0]
	if got.Message == nil || got.Message.JobID != JobIDSubmitSalesOrder {
		t.Fatalf("expected sales-order message on the event, got %+v", got.Message)
	}
	if got.Attempt != 2 || got.Delay != 5*time.Second {
		t.Fatalf("expected attempt and delay mapping, got attempt=%d delay=%s", got.Attempt, got.Delay)
	}
	if got.Err == nil || got.Err.Error() != "vendor 429" {
		t.Fatalf("expected error mapping, got %v", got.Err)
	}
	if got.StartedAt.IsZero() || got.Duration != 250*time.Millisecond {
		t.Fatalf("expected timing mapping, got %+v", got)
	}
}

func TestWorkerHookAdapter_FallsBackToDeliveryMessage(t *testing.T) {
	hook := &recordingHook{}
	adapter := NewWorkerHookAdapter(hook)

	adapter.OnRetry(context.Background(), worker.Event{
		Delivery: &stubQueueDelivery{msg: ToExecutionMessage(validateAddressMessage())},
		Attempt:  1,
	})

	got := hook.retries[0]
	if got.Message == nil || got.Message.JobID != JobIDValidateAddress {
		t.Fatalf("expected message recovered from the delivery, got %+v", got.Message)
	}
}

type stubQueueEnqueuer struct {
	last *job.ExecutionMessage
}

func (s *stubQueueEnqueuer) Enqueue(_ context.Context, msg *job.ExecutionMessage) error {
	s.last = msg
	return nil
}

type stubQueueDequeuer struct {
	delivery queue.Delivery
}

func (s *stubQueueDequeuer) Dequeue(context.Context) (queue.Delivery, error) {
	return s.delivery, nil
}

type stubQueueDelivery struct {
	msg      *job.ExecutionMessage
	acked    bool
	nackOpts queue.NackOptions
}

func (s *stubQueueDelivery) Message() *job.ExecutionMessage {
	return s.msg
}

func (s *stubQueueDelivery) Ack(context.Context) error {
	s.acked = true
	return nil
}

func (s *stubQueueDelivery) Nack(_ context.Context, opts queue.NackOptions) error {
	s.nackOpts = opts
	return nil
}

type recordingHook struct {
	retries []core.JobWorkerEvent
}

func (h *recordingHook) OnStart(context.Context, core.JobWorkerEvent)   {}
func (h *recordingHook) OnSuccess(context.Context, core.JobWorkerEvent) {}
func (h *recordingHook) OnFailure(context.Context, core.JobWorkerEvent) {}
func (h *recordingHook) OnRetry(_ context.Context, event core.JobWorkerEvent) {
	h.retries = append(h.retries, event)
}

var _ core.JobWorkerHook = (*recordingHook)(nil)
