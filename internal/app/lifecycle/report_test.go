package lifecycle

import (
	"testing"

	"github.com/dkeye/Collab/internal/domain"
)

func TestNewReporter(t *testing.T) {
	if r, err := NewReporter(""); err != nil || r == nil {
		t.Fatalf("default reporter: %v", err)
	}
	if _, ok := mustReporter(t, ReportNotify).(*NotifyReporter); !ok {
		t.Fatal("notify mode should build a NotifyReporter")
	}
	if _, err := NewReporter("toast"); err == nil {
		t.Fatal("unknown mode accepted")
	}
}

func TestNotifyReporterQueuesNotification(t *testing.T) {
	r := NewNotifyReporter(1)
	r.Report("s1", &AcquireError{Stage: StageCallJoin, Err: errBoom})
	r.Report("s1", &AcquireError{Stage: StageCallJoin, Err: errBoom})

	n := <-r.Notifications()
	if n.SessionID != domain.SessionID("s1") || n.Stage != StageCallJoin || n.Message != "boom" {
		t.Fatalf("notification = %+v", n)
	}
	select {
	case extra := <-r.Notifications():
		t.Fatalf("second notification should be dropped, got %+v", extra)
	default:
	}
}

func mustReporter(t *testing.T, mode string) Reporter {
	t.Helper()
	r, err := NewReporter(mode)
	if err != nil {
		t.Fatal(err)
	}
	return r
}
