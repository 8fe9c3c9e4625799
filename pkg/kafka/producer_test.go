package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/pkg/models"
)

type recordingWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func silentLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func TestPublishUnifiedCompanies(t *testing.T) {
	writer := &recordingWriter{}
	producer := newProducer(writer, "company-events", silentLogger())

	n, err := producer.PublishUnifiedCompanies(context.Background(), "run-1", []models.UnifiedCompany{
		{BusinessNumber: "12345678901", CompanyName: "EXAMPLE", Confidence: 95},
		{BusinessNumber: "98765432109", CompanyName: "OTHER", Confidence: 90},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, writer.messages, 2)

	msg := writer.messages[0]
	assert.Equal(t, "company-events", msg.Topic)
	assert.Equal(t, "12345678901", string(msg.Key))

	headers := map[string]string{}
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, EventCompanyUnified, headers["event_type"])
	assert.Equal(t, "run-1", headers["run_id"])

	var event CompanyEvent
	require.NoError(t, json.Unmarshal(msg.Value, &event))
	assert.Equal(t, "12345678901", event.BusinessNumber)
	assert.Equal(t, "EXAMPLE", event.Company.CompanyName)
	assert.Equal(t, 95, event.Company.Confidence)
	assert.False(t, event.Timestamp.IsZero())

	require.NoError(t, producer.Close())
	assert.True(t, writer.closed)
}

func TestPublishUnifiedCompanies_Empty(t *testing.T) {
	writer := &recordingWriter{}
	n, err := newProducer(writer, "t", silentLogger()).PublishUnifiedCompanies(context.Background(), "run-1", nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, writer.messages)
}

func TestPublishUnifiedCompanies_WriteError(t *testing.T) {
	writer := &recordingWriter{err: errors.New("broker unavailable")}
	n, err := newProducer(writer, "t", silentLogger()).PublishUnifiedCompanies(context.Background(), "run-1", []models.UnifiedCompany{
		{BusinessNumber: "1"},
	})
	assert.EqualError(t, err, "broker unavailable")
	assert.Zero(t, n)
}
