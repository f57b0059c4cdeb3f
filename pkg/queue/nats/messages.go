package nats

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/tunogya/motif/pkg/report"
)

// Subject constants
const (
	SubjectPairReport = "motif.reports.pair"

	// SubjectAll matches every subject the stream carries
	SubjectAll = "motif.reports.>"
)

// ErrEmptyMessage is returned when a message carries no report
var ErrEmptyMessage = errors.New("message has no report")

// PairReportMsg carries one finished pair report
type PairReportMsg struct {
	Report      *report.PairReport `json:"report"`
	PublishedAt time.Time          `json:"published_at"`
}

// Encode serializes a message to JSON bytes
func Encode(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

// DecodePairReport deserializes a PairReportMsg from JSON bytes
func DecodePairReport(data []byte) (*PairReportMsg, error) {
	var msg PairReportMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Report == nil {
		return nil, ErrEmptyMessage
	}
	return &msg, nil
}
