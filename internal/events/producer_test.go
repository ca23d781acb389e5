package events

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureWriter struct {
	mu     sync.Mutex
	events []cloudevents.Event
	topics []string
	done   chan struct{}
	want   int
}

func newCaptureWriter(want int) *captureWriter {
	return &captureWriter{done: make(chan struct{}), want: want}
}

func (w *captureWriter) Write(_ context.Context, topic string, e cloudevents.Event) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.events = append(w.events, e)
	w.topics = append(w.topics, topic)
	if len(w.events) == w.want {
		close(w.done)
	}
	return nil
}

func (w *captureWriter) Close(context.Context) error { return nil }

func TestBuffer(t *testing.T) {
	b := newBuffer()
	assert.Equal(t, 0, b.Size())
	assert.Nil(t, b.Pop())

	require.NoError(t, b.PushBack(&message{Kind: "a"}))
	require.NoError(t, b.PushBack(&message{Kind: "b"}))
	assert.Equal(t, 2, b.Size())

	assert.Equal(t, "a", b.Pop().Kind)
	assert.Equal(t, "b", b.Pop().Kind)
	assert.Nil(t, b.Pop())
	assert.Equal(t, 0, b.Size())
}

func TestProducerDeliversJobEvents(t *testing.T) {
	writer := newCaptureWriter(2)
	ep := NewEventProducer(writer, WithOutputTopic("test.topic"))
	defer func() { _ = ep.Close() }()

	require.NoError(t, ep.WriteJobEvent(context.Background(), JobEvent{
		JobID:  "j1",
		Kind:   "model-generation",
		Status: "completed",
	}))
	require.NoError(t, ep.WriteJobEvent(context.Background(), JobEvent{
		JobID:  "j2",
		Kind:   "background-removal",
		Status: "failed",
		Error:  "boom",
	}))

	select {
	case <-writer.done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for events")
	}

	writer.mu.Lock()
	defer writer.mu.Unlock()
	require.Len(t, writer.events, 2)
	assert.Equal(t, []string{"test.topic", "test.topic"}, writer.topics)

	first := writer.events[0]
	assert.Equal(t, JobMessageKind, first.Type())
	assert.Equal(t, "asset.forge.api", first.Source())

	var ev JobEvent
	require.NoError(t, json.Unmarshal(first.Data(), &ev))
	assert.Equal(t, "j1", ev.JobID)
	assert.Equal(t, "completed", ev.Status)
}

func TestProducerWrite(t *testing.T) {
	writer := newCaptureWriter(1)
	ep := NewEventProducer(writer)
	defer func() { _ = ep.Close() }()

	require.NoError(t, ep.Write(context.Background(), JobMessageKind, strings.NewReader(`{"job_id":"j1"}`)))

	select {
	case <-writer.done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}
