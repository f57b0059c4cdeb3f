package nats

import (
	"context"
	"fmt"
	"time"

	"github.com/tunogya/motif/pkg/report"
)

type publisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// ReportPublisher publishes finished pair reports to JetStream
type ReportPublisher struct {
	pub     publisher
	subject string
	now     func() time.Time
}

// NewReportPublisher creates a report.Sink publishing through client
func NewReportPublisher(client *Client) *ReportPublisher {
	return newReportPublisher(client)
}

func newReportPublisher(pub publisher) *ReportPublisher {
	return &ReportPublisher{
		pub:     pub,
		subject: SubjectPairReport,
		now:     time.Now,
	}
}

// Write implements report.Sink
func (p *ReportPublisher) Write(ctx context.Context, rep *report.PairReport) error {
	data, err := Encode(&PairReportMsg{Report: rep, PublishedAt: p.now().UTC()})
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return p.pub.Publish(ctx, p.subject, data)
}
