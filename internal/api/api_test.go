package api

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/eniileme/nuclinotion/internal/jobservice"
	"github.com/eniileme/nuclinotion/internal/models"
	"github.com/eniileme/nuclinotion/internal/testutil"
)

func newTestServer(t *testing.T, authEnabled bool, token string) *httptest.Server {
	t.Helper()

	svc := jobservice.NewService(testutil.TestSpool(t), testutil.TestStore(t), testutil.DiscardLogger())

	srv := httptest.NewServer(NewRouter(svc, authEnabled, token, nil, 50))
	t.Cleanup(srv.Close)
	return srv
}

func zipBytes(t *testing.T, entries map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
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
	return buf.Bytes()
}

func multipartJob(t *testing.T, notesZip []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	fw, err := w.CreateFormFile("notesZip", "notes.zip")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write(notesZip); err != nil {
		t.Fatal(err)
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return &body, w.FormDataContentType()
}

func decodeStatus(t *testing.T, r io.Reader) models.JobStatus {
	t.Helper()
	var status models.JobStatus
	if err := json.NewDecoder(r).Decode(&status); err != nil {
		t.Fatal(err)
	}
	return status
}

func pollUntilTerminal(t *testing.T, srv *httptest.Server, id string) models.JobStatus {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get(srv.URL + "/jobs/" + id + "/status")
		if err != nil {
			t.Fatal(err)
		}
		status := decodeStatus(t, resp.Body)
		resp.Body.Close()
		if status.Terminal() {
			return status
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("job never reached a terminal state")
	return models.JobStatus{}
}

func TestSubmitJobLifecycle(t *testing.T) {
	srv := newTestServer(t, false, "")

	notes := zipBytes(t, map[string]string{
		"alpha.md": "# Alpha\nhello\n",
		"beta.md":  "# Beta\nworld [alpha](alpha.md)\n",
	})
	body, contentType := multipartJob(t, notes, map[string]string{
		"groupingStrategy": "headings",
	})

	resp, err := http.Post(srv.URL+"/jobs", contentType, body)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		raw, _ := io.ReadAll(resp.Body)
		t.Fatalf("status = %d, body = %s", resp.StatusCode, raw)
	}
	initial := decodeStatus(t, resp.Body)
	if initial.ID == "" {
		t.Fatal("empty job id")
	}

	final := pollUntilTerminal(t, srv, initial.ID)
	if final.State != models.StateReady {
		t.Fatalf("state = %q (error %q), want ready", final.State, final.Error)
	}
	if final.Result == nil || final.Result.TotalNotes != 2 {
		t.Fatalf("result = %+v, want 2 notes", final.Result)
	}

	// Report is served as markdown.
	reportResp, err := http.Get(srv.URL + "/jobs/" + initial.ID + "/report")
	if err != nil {
		t.Fatal(err)
	}
	defer reportResp.Body.Close()
	if reportResp.StatusCode != http.StatusOK {
		t.Fatalf("report status = %d", reportResp.StatusCode)
	}
	report, _ := io.ReadAll(reportResp.Body)
	if !bytes.Contains(report, []byte("Processing Report")) {
		t.Errorf("report body = %q", report)
	}

	// Download yields a readable zip.
	dlResp, err := http.Get(srv.URL + "/jobs/" + initial.ID + "/download")
	if err != nil {
		t.Fatal(err)
	}
	defer dlResp.Body.Close()
	if dlResp.StatusCode != http.StatusOK {
		t.Fatalf("download status = %d", dlResp.StatusCode)
	}
	if got := dlResp.Header.Get("Content-Type"); got != "application/zip" {
		t.Errorf("content type = %q", got)
	}
	payload, _ := io.ReadAll(dlResp.Body)
	if _, err := zip.NewReader(bytes.NewReader(payload), int64(len(payload))); err != nil {
		t.Errorf("download is not a zip: %v", err)
	}
}

func TestSubmitJobValidation(t *testing.T) {
	srv := newTestServer(t, false, "")

	// Missing notesZip field.
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	w.WriteField("groupingStrategy", "headings")
	w.Close()
	resp, err := http.Post(srv.URL+"/jobs", w.FormDataContentType(), &body)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("missing notesZip status = %d, want 400", resp.StatusCode)
	}

	// Bad strategy.
	notes := zipBytes(t, map[string]string{"a.md": "# A\n"})
	jobBody, contentType := multipartJob(t, notes, map[string]string{
		"groupingStrategy": "alphabetical",
	})
	resp, err = http.Post(srv.URL+"/jobs", contentType, jobBody)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad strategy status = %d, want 400", resp.StatusCode)
	}

	// Non-numeric clusteringK.
	jobBody, contentType = multipartJob(t, notes, map[string]string{"clusteringK": "many"})
	resp, err = http.Post(srv.URL+"/jobs", contentType, jobBody)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad clusteringK status = %d, want 400", resp.StatusCode)
	}
}

func TestJobStatusNotFound(t *testing.T) {
	srv := newTestServer(t, false, "")
	resp, err := http.Get(srv.URL + "/jobs/nope/status")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestDownloadBeforeReady(t *testing.T) {
	srv := newTestServer(t, false, "")
	resp, err := http.Get(srv.URL + "/jobs/nope/download")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestChunkedUploadAndProcess(t *testing.T) {
	srv := newTestServer(t, false, "")

	notes := zipBytes(t, map[string]string{"a.md": "# A\nbody\n"})
	half := len(notes) / 2
	chunks := [][]byte{notes[:half], notes[half:]}

	// Initiate.
	initBody, _ := json.Marshal(InitiateUploadRequest{
		FileName:    "notes.zip",
		FileSize:    int64(len(notes)),
		TotalChunks: len(chunks),
	})
	resp, err := http.Post(srv.URL+"/uploads/initiate", "application/json", bytes.NewReader(initBody))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("initiate status = %d", resp.StatusCode)
	}
	var initResp InitiateUploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&initResp); err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	// Send chunks.
	for i, chunk := range chunks {
		var body bytes.Buffer
		w := multipart.NewWriter(&body)
		fw, err := w.CreateFormFile("chunk", "chunk.bin")
		if err != nil {
			t.Fatal(err)
		}
		fw.Write(chunk)
		w.Close()

		url := fmt.Sprintf("%s/uploads/%s/chunks/%d", srv.URL, initResp.UploadID, i)
		resp, err := http.Post(url, w.FormDataContentType(), &body)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusNoContent {
			t.Fatalf("chunk %d status = %d", i, resp.StatusCode)
		}
	}

	// Finalize.
	resp, err = http.Post(srv.URL+"/uploads/"+initResp.UploadID+"/finalize", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("finalize status = %d", resp.StatusCode)
	}
	var finResp FinalizeUploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&finResp); err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if finResp.Checksum == "" {
		t.Error("finalize returned empty checksum")
	}

	// Process the assembled archive by path.
	procBody, _ := json.Marshal(ProcessRequest{
		NotesZipPath:     finResp.Path,
		GroupingStrategy: "headings",
	})
	resp, err = http.Post(srv.URL+"/jobs/process", "application/json", bytes.NewReader(procBody))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusAccepted {
		raw, _ := io.ReadAll(resp.Body)
		t.Fatalf("process status = %d, body = %s", resp.StatusCode, raw)
	}
	initial := decodeStatus(t, resp.Body)
	resp.Body.Close()

	final := pollUntilTerminal(t, srv, initial.ID)
	if final.State != models.StateReady {
		t.Fatalf("state = %q (error %q), want ready", final.State, final.Error)
	}
}

func TestCleanupEndpoint(t *testing.T) {
	srv := newTestServer(t, false, "")
	resp, err := http.Post(srv.URL+"/cleanup", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var clean CleanupResponse
	if err := json.NewDecoder(resp.Body).Decode(&clean); err != nil {
		t.Fatal(err)
	}
	if clean.Removed != 0 {
		t.Errorf("removed = %d, want 0", clean.Removed)
	}
}

func TestAuthMiddleware(t *testing.T) {
	srv := newTestServer(t, true, "secret")

	// No token.
	resp, err := http.Get(srv.URL + "/jobs/x/status")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("no token status = %d, want 401", resp.StatusCode)
	}

	// Wrong token.
	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/jobs/x/status", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("wrong token status = %d, want 401", resp.StatusCode)
	}

	// Correct token reaches the handler (404 for unknown job).
	req, _ = http.NewRequest(http.MethodGet, srv.URL+"/jobs/x/status", nil)
	req.Header.Set("Authorization", "Bearer secret")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("good token status = %d, want 404", resp.StatusCode)
	}
}
