package ledger

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func openTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := Open(filepath.Join(t.TempDir(), "attempts.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func TestBeginNewURL(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()

	att, started, err := l.Begin(ctx, "https://example.com/chili")
	if err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	if !started {
		t.Fatal("started = false, want new job for unseen URL")
	}
	if att.Status != StatusRunning || att.Attempts != 1 {
		t.Errorf("attempt = %+v", att)
	}
}

func TestBeginDuplicateInFlight(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()

	first, _, _ := l.Begin(ctx, "https://example.com/chili")
	second, started, err := l.Begin(ctx, "https://example.com/chili")
	if err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	if started {
		t.Fatal("started = true, duplicate in-flight URL must not queue a second job")
	}
	if second.ID != first.ID {
		t.Errorf("second.ID = %q, want existing row %q", second.ID, first.ID)
	}
}

func TestBeginDuplicateCompleted(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()

	att, _, _ := l.Begin(ctx, "https://example.com/chili")
	if err := l.Complete(ctx, att.ID); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}

	_, started, err := l.Begin(ctx, "https://example.com/chili")
	if err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	if started {
		t.Error("completed URL must be acknowledged without a new job")
	}

	got, err := l.Get(ctx, att.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.CompletedAt == nil {
		t.Error("CompletedAt not recorded")
	}
}

func TestBeginDuplicateFailedRestarts(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()

	att, _, _ := l.Begin(ctx, "https://example.com/chili")
	if err := l.RecordFailure(ctx, att.ID, errors.New("synthesis failed")); err != nil {
		t.Fatalf("RecordFailure() error = %v", err)
	}

	again, started, err := l.Begin(ctx, "https://example.com/chili")
	if err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	if !started {
		t.Fatal("failed URL must get a fresh attempt")
	}
	if again.ID != att.ID {
		t.Errorf("ID = %q, want same row %q", again.ID, att.ID)
	}
	if again.Attempts != 2 {
		t.Errorf("Attempts = %d, want 2", again.Attempts)
	}
	if again.Status != StatusRunning || again.LastError != "" {
		t.Errorf("attempt = %+v", again)
	}
}

func TestRetry(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()

	att, _, _ := l.Begin(ctx, "https://example.com/chili")
	l.RecordNotRecipe(ctx, att.ID, "travel post")

	restarted, started, err := l.Retry(ctx, att.ID)
	if err != nil {
		t.Fatalf("Retry() error = %v", err)
	}
	if !started || restarted.Attempts != 2 {
		t.Errorf("started = %v, attempt = %+v", started, restarted)
	}

	// A running attempt must not be restarted again.
	_, started, err = l.Retry(ctx, att.ID)
	if err != nil {
		t.Fatalf("Retry() error = %v", err)
	}
	if started {
		t.Error("running attempt must not restart")
	}
}

func TestRetryUnknownID(t *testing.T) {
	l := openTestLedger(t)

	_, _, err := l.Retry(context.Background(), "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestListUnresolved(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()

	done, _, _ := l.Begin(ctx, "https://example.com/done")
	l.Complete(ctx, done.ID)
	failed, _, _ := l.Begin(ctx, "https://example.com/failed")
	l.RecordFailure(ctx, failed.ID, errors.New("boom"))
	l.Begin(ctx, "https://example.com/running")

	got, err := l.ListUnresolved(ctx)
	if err != nil {
		t.Fatalf("ListUnresolved() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want failed and running rows only", len(got))
	}
	for _, att := range got {
		if att.Status == StatusCompleted {
			t.Errorf("completed row %q leaked into unresolved list", att.URL)
		}
	}
}
