package mailer

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/launchwatch/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// mockSender はテスト用のSender。
type mockSender struct {
	sendFn func(ctx context.Context, msg Message) (string, error)
	sent   []Message
}

func (m *mockSender) Send(ctx context.Context, msg Message) (string, error) {
	m.sent = append(m.sent, msg)
	return m.sendFn(ctx, msg)
}

func TestMailer_SendTemplate_Success(t *testing.T) {
	sender := &mockSender{sendFn: func(context.Context, Message) (string, error) { return "id-1", nil }}
	var buf bytes.Buffer
	m := New(sender, newTestTemplates(t), time.Second, newTestLogger(&buf), nil)

	id, err := m.SendTemplate(context.Background(), TemplateConfirmation, "a@example.com")
	if err != nil {
		t.Fatalf("SendTemplate failed: %v", err)
	}
	if id != "id-1" {
		t.Errorf("id = %q, want id-1", id)
	}
	if len(sender.sent) != 1 || sender.sent[0].To != "a@example.com" {
		t.Errorf("sent = %+v", sender.sent)
	}
}

func TestMailer_SendTemplate_AppliesTimeout(t *testing.T) {
	sender := &mockSender{sendFn: func(ctx context.Context, _ Message) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}}
	var buf bytes.Buffer
	m := New(sender, newTestTemplates(t), 20*time.Millisecond, newTestLogger(&buf), nil)

	start := time.Now()
	_, err := m.SendTemplate(context.Background(), TemplateConfirmation, "a@example.com")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
	if time.Since(start) > time.Second {
		t.Error("send should be bounded by the timeout")
	}
}

func TestMailer_SendTemplate_RecordsMetrics(t *testing.T) {
	sender := &mockSender{sendFn: func(context.Context, Message) (string, error) {
		return "", errors.New("provider down")
	}}
	reg := prometheus.NewRegistry()
	var buf bytes.Buffer
	m := New(sender, newTestTemplates(t), time.Second, newTestLogger(&buf), metrics.NewCollector(reg))

	if _, err := m.SendTemplate(context.Background(), TemplateLaunchEve, "a@example.com"); err == nil {
		t.Fatal("expected error")
	}

	families, _ := reg.Gather()
	var found bool
	for _, mf := range families {
		if mf.GetName() != "launchwatch_email_sends_total" {
			continue
		}
		for _, metric := range mf.GetMetric() {
			var labels []string
			for _, lp := range metric.GetLabel() {
				labels = append(labels, lp.GetValue())
			}
			if strings.Join(labels, ",") == "failed,launch_eve" && metric.GetCounter().GetValue() == 1 {
				found = true
			}
		}
	}
	if !found {
		t.Error("expected failed launch_eve send to be recorded")
	}
}

func TestMailer_SendTemplate_UnknownTemplate(t *testing.T) {
	sender := &mockSender{sendFn: func(context.Context, Message) (string, error) { return "", nil }}
	var buf bytes.Buffer
	m := New(sender, newTestTemplates(t), time.Second, newTestLogger(&buf), nil)

	if _, err := m.SendTemplate(context.Background(), "nope", "a@example.com"); err == nil {
		t.Fatal("expected error for unknown template")
	}
	if len(sender.sent) != 0 {
		t.Error("nothing should be sent for an unknown template")
	}
}
