package jobservice

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/eniileme/nuclinotion/internal/apperr"
	"github.com/eniileme/nuclinotion/internal/checksum"
	"github.com/eniileme/nuclinotion/internal/models"
	"github.com/eniileme/nuclinotion/internal/testutil"
)

func testService(t *testing.T, opts ...Option) *Service {
	t.Helper()
	return NewService(testutil.TestSpool(t), testutil.TestStore(t), testutil.DiscardLogger(), opts...)
}

func makeNotesZip(t *testing.T, entries map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "notes.zip")
	out, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	w := zip.NewWriter(out)
	for name, content := range entries {
		f, err := w.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := f.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	out.Close()
	return path
}

func waitTerminal(t *testing.T, s *Service, id string) *models.JobStatus {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		status, err := s.Status(context.Background(), id)
		if err != nil {
			t.Fatal(err)
		}
		if status.Terminal() {
			return status
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("job did not reach a terminal state")
	return nil
}

func TestSubmitEndToEnd(t *testing.T) {
	s := testService(t)
	notesZip := makeNotesZip(t, map[string]string{
		"alpha.md": "# Alpha\nhello\n",
		"beta.md":  "# Beta\nworld\n",
	})

	initial, err := s.Submit(context.Background(), notesZip, "", models.ProcessingOptions{
		Strategy: models.StrategyHeadings,
	})
	if err != nil {
		t.Fatal(err)
	}
	if initial.ID == "" {
		t.Fatal("submit returned empty job id")
	}

	final := waitTerminal(t, s, initial.ID)
	if final.State != models.StateReady {
		t.Fatalf("state = %q (error %q), want ready", final.State, final.Error)
	}
	if final.Progress != 100 {
		t.Errorf("progress = %d, want 100", final.Progress)
	}
	if final.Result == nil || final.Result.TotalNotes != 2 {
		t.Fatalf("result = %+v, want 2 notes", final.Result)
	}

	// The staged archive was moved into the workspace.
	if _, err := os.Stat(notesZip); !os.IsNotExist(err) {
		t.Error("submitted archive left behind at its staging path")
	}

	zipPath, err := s.DownloadPath(context.Background(), initial.ID)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(zipPath); err != nil {
		t.Errorf("download artifact missing: %v", err)
	}

	report, err := s.Report(context.Background(), initial.ID)
	if err != nil {
		t.Fatal(err)
	}
	if report == "" {
		t.Error("report is empty")
	}
}

func TestSubmitBadArchiveEndsInError(t *testing.T) {
	s := testService(t)
	notesZip := makeNotesZip(t, map[string]string{"readme.txt": "nope"})

	initial, err := s.Submit(context.Background(), notesZip, "", models.ProcessingOptions{
		Strategy: models.StrategyCluster,
	})
	if err != nil {
		t.Fatal(err)
	}

	final := waitTerminal(t, s, initial.ID)
	if final.State != models.StateError {
		t.Fatalf("state = %q, want error", final.State)
	}
	if final.Error == "" {
		t.Error("error state must carry a message")
	}

	if _, err := s.DownloadPath(context.Background(), initial.ID); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("download err = %v, want ErrInvalidInput", err)
	}
}

func TestSubmitValidation(t *testing.T) {
	s := testService(t)

	if _, err := s.Submit(context.Background(), "", "", models.ProcessingOptions{}); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("empty notes path err = %v, want ErrInvalidInput", err)
	}
	if _, err := s.Submit(context.Background(), "x.zip", "", models.ProcessingOptions{
		Strategy: "alphabetical",
	}); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("bad strategy err = %v, want ErrInvalidInput", err)
	}
}

func TestStatusUnknownJob(t *testing.T) {
	s := testService(t)
	if _, err := s.Status(context.Background(), "nope"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestChunkedUploadRoundTrip(t *testing.T) {
	s := testService(t)
	ctx := context.Background()

	payload := []byte("first-second-third")
	chunks := [][]byte{payload[:6], payload[6:13], payload[13:]}

	id, err := s.InitiateUpload(ctx, "notes.zip", int64(len(payload)), len(chunks))
	if err != nil {
		t.Fatal(err)
	}

	// Out-of-order arrival is fine.
	for _, i := range []int{2, 0, 1} {
		if err := s.SaveChunk(ctx, id, i, bytes.NewReader(chunks[i])); err != nil {
			t.Fatalf("chunk %d: %v", i, err)
		}
	}

	path, sum, err := s.FinalizeUpload(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, payload) {
		t.Errorf("assembled = %q, want %q", data, payload)
	}
	if sum != checksum.Sum(payload) {
		t.Errorf("checksum = %s, want %s", sum, checksum.Sum(payload))
	}

	// Session is gone after finalize.
	if err := s.SaveChunk(ctx, id, 0, bytes.NewReader(chunks[0])); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("post-finalize chunk err = %v, want ErrNotFound", err)
	}
}

func TestFinalizeMissingChunk(t *testing.T) {
	s := testService(t)
	ctx := context.Background()

	id, err := s.InitiateUpload(ctx, "notes.zip", 10, 3)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.SaveChunk(ctx, id, 0, bytes.NewReader([]byte("abc"))); err != nil {
		t.Fatal(err)
	}

	if _, _, err := s.FinalizeUpload(ctx, id); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
}

func TestSaveChunkOutOfRange(t *testing.T) {
	s := testService(t)
	ctx := context.Background()

	id, err := s.InitiateUpload(ctx, "notes.zip", 10, 2)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.SaveChunk(ctx, id, 2, bytes.NewReader([]byte("x"))); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
}

func TestInitiateUploadValidation(t *testing.T) {
	s := testService(t)
	ctx := context.Background()

	if _, err := s.InitiateUpload(ctx, "", 10, 1); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("empty name err = %v, want ErrInvalidInput", err)
	}
	if _, err := s.InitiateUpload(ctx, "a.zip", 10, 0); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("zero chunks err = %v, want ErrInvalidInput", err)
	}
}

func TestNotifyReceivesTransitions(t *testing.T) {
	got := make(chan models.JobStatus, 64)
	s := testService(t, WithNotify(func(st models.JobStatus) { got <- st }))

	notesZip := makeNotesZip(t, map[string]string{"a.md": "# A\n"})
	initial, err := s.Submit(context.Background(), notesZip, "", models.ProcessingOptions{
		Strategy: models.StrategyHeadings,
	})
	if err != nil {
		t.Fatal(err)
	}
	waitTerminal(t, s, initial.ID)

	sawReady := false
	for {
		select {
		case st := <-got:
			if st.State == models.StateReady {
				sawReady = true
			}
		default:
			if !sawReady {
				t.Error("notifier never saw the ready transition")
			}
			return
		}
	}
}

func TestCleanupExpired(t *testing.T) {
	s := testService(t)

	old := time.Now().Add(-48 * time.Hour)
	if _, err := s.spool.CreateJob("stale", old); err != nil {
		t.Fatal(err)
	}
	if err := s.store.PutStatus(&models.JobStatus{
		ID: "stale", State: models.StateReady, Progress: 100,
		CreatedAt: old, ExpiresAt: old.Add(24 * time.Hour),
	}); err != nil {
		t.Fatal(err)
	}

	removed, err := s.CleanupExpired(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if _, err := s.Status(context.Background(), "stale"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("stale status err = %v, want ErrNotFound", err)
	}
}
