package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/clinicware/clinic-pos/internal/observability/metrics"
)

// Fanout delivers each entry to every sink. A sink failure fails the entry so
// it stays pending and is retried on the next drain.
type Fanout struct {
	sinks []DeliveryHandler
}

func NewFanout(sinks ...DeliveryHandler) *Fanout {
	out := &Fanout{}
	for _, s := range sinks {
		if s != nil {
			out.sinks = append(out.sinks, s)
		}
	}
	return out
}

func (f *Fanout) Handle(ctx context.Context, entry OutboxEntry) error {
	for _, s := range f.sinks {
		if err := s.Handle(ctx, entry); err != nil {
			return err
		}
	}
	return nil
}

// LivePusher is the part of the live hub the sink needs.
type LivePusher interface {
	Publish(orgID, eventType string, payload json.RawMessage)
}

// LiveSink pushes events into the in-process WebSocket hub.
type LiveSink struct {
	hub     LivePusher
	metrics *metrics.OutboxMetrics
}

func NewLiveSink(hub LivePusher, m *metrics.OutboxMetrics) *LiveSink {
	return &LiveSink{hub: hub, metrics: m}
}

func (s *LiveSink) Handle(ctx context.Context, entry OutboxEntry) error {
	if s.hub == nil {
		return nil
	}
	s.hub.Publish(entry.OrgID, entry.Type, entry.Payload)
	s.metrics.ObserveDelivery("live", "ok")
	return nil
}

// SQSAPI is the subset of the SQS client used by the export sink.
type SQSAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSSink forwards events to an export queue consumed by external print and
// spreadsheet tooling. The queue is an opaque sink; no reply is expected.
type SQSSink struct {
	client   SQSAPI
	queueURL string
	metrics  *metrics.OutboxMetrics
}

func NewSQSSink(client SQSAPI, queueURL string, m *metrics.OutboxMetrics) *SQSSink {
	if client == nil || queueURL == "" {
		return nil
	}
	return &SQSSink{client: client, queueURL: queueURL, metrics: m}
}

type exportMessage struct {
	ID      string          `json:"id"`
	OrgID   string          `json:"org_id"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func (s *SQSSink) Handle(ctx context.Context, entry OutboxEntry) error {
	body, err := json.Marshal(exportMessage{
		ID:      entry.ID.String(),
		OrgID:   entry.OrgID,
		Type:    entry.Type,
		Payload: entry.Payload,
	})
	if err != nil {
		return fmt.Errorf("events: marshal export message: %w", err)
	}
	_, err = s.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(s.queueURL),
		MessageBody: aws.String(string(body)),
	})
	if err != nil {
		s.metrics.ObserveDelivery("sqs", "error")
		return fmt.Errorf("events: send export message: %w", err)
	}
	s.metrics.ObserveDelivery("sqs", "ok")
	return nil
}
