package redis

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/justapithecus/assay/export"
	"github.com/justapithecus/assay/metric"
)

func testMetrics() []*metric.Metric {
	return []*metric.Metric{
		{
			Name:      "request.count",
			Unit:      "unit",
			Type:      metric.TypeCumulativeInt64,
			LabelKeys: []string{"region"},
			TimeSeries: []metric.TimeSeries{
				{
					LabelValues: []string{"us"},
					Point:       metric.NewInt64Point(time.Now(), 42),
				},
			},
		},
	}
}

// asyncReceive starts a goroutine that reads one message from the subscriber
// and sends it to the returned channel. Must be called BEFORE Export to avoid
// deadlocking miniredis's synchronous pub/sub delivery.
func asyncReceive(sub *miniredis.Subscriber) <-chan miniredis.PubsubMessage {
	ch := make(chan miniredis.PubsubMessage, 1)
	go func() {
		ch <- <-sub.Messages()
	}()
	return ch
}

func waitMessage(t *testing.T, ch <-chan miniredis.PubsubMessage) miniredis.PubsubMessage {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for pub/sub message")
		return miniredis.PubsubMessage{} // unreachable
	}
}

func TestExport_Success(t *testing.T) {
	mr := miniredis.RunT(t)

	s, err := New(Config{URL: "redis://" + mr.Addr(), Retries: 0})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer func() { _ = s.Close() }()

	sub := mr.NewSubscriber()
	sub.Subscribe(DefaultChannel)
	ch := asyncReceive(sub)

	if err := s.Export(t.Context(), testMetrics()); err != nil {
		t.Fatalf("export: %v", err)
	}

	msg := waitMessage(t, ch)

	var received export.Snapshot
	if err := json.Unmarshal([]byte(msg.Message), &received); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(received.Metrics) != 1 {
		t.Fatalf("len(Metrics) = %d, want 1", len(received.Metrics))
	}
	if received.Metrics[0].Name != "request.count" {
		t.Errorf("Name = %q, want request.count", received.Metrics[0].Name)
	}
	if received.Ts == "" {
		t.Error("Ts is empty, want a timestamp")
	}
}

func TestExport_CustomChannel(t *testing.T) {
	mr := miniredis.RunT(t)

	s, err := New(Config{URL: "redis://" + mr.Addr(), Channel: "custom:channel", Retries: 0})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer func() { _ = s.Close() }()

	sub := mr.NewSubscriber()
	sub.Subscribe("custom:channel")
	ch := asyncReceive(sub)

	if err := s.Export(t.Context(), nil); err != nil {
		t.Fatalf("export: %v", err)
	}

	msg := waitMessage(t, ch)
	if msg.Channel != "custom:channel" {
		t.Errorf("Channel = %q, want custom:channel", msg.Channel)
	}
}

func TestNew_EmptyURL(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Error("New() with empty URL succeeded, want error")
	}
}

func TestNew_InvalidURL(t *testing.T) {
	if _, err := New(Config{URL: "://not-a-url"}); err == nil {
		t.Error("New() with invalid URL succeeded, want error")
	}
}

func TestNew_NegativeRetries(t *testing.T) {
	if _, err := New(Config{URL: "redis://localhost:6379", Retries: -1}); err == nil {
		t.Error("New() with negative retries succeeded, want error")
	}
}

func TestNew_Defaults(t *testing.T) {
	s, err := New(Config{URL: "redis://localhost:6379"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer func() { _ = s.Close() }()

	if s.config.Channel != DefaultChannel {
		t.Errorf("Channel = %q, want %q", s.config.Channel, DefaultChannel)
	}
	if s.config.Timeout != DefaultTimeout {
		t.Errorf("Timeout = %v, want %v", s.config.Timeout, DefaultTimeout)
	}
}

func TestExport_ConnectionFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	s, err := New(Config{URL: "redis://" + addr, Retries: 0, Timeout: 100 * time.Millisecond})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer func() { _ = s.Close() }()

	if err := s.Export(t.Context(), nil); err == nil {
		t.Error("Export() against closed server succeeded, want error")
	}
}
