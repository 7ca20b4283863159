package http

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/brianly1003/lanterm/internal/adapters/git"
	"github.com/brianly1003/lanterm/internal/archive"
	"github.com/brianly1003/lanterm/internal/audit"
	"github.com/brianly1003/lanterm/internal/domain"
	"github.com/brianly1003/lanterm/internal/domain/events"
	"github.com/brianly1003/lanterm/internal/files"
	"github.com/brianly1003/lanterm/internal/pairing"
	"github.com/brianly1003/lanterm/internal/sandbox"
	"github.com/brianly1003/lanterm/internal/server/http/middleware"
	"github.com/brianly1003/lanterm/internal/session"
	"github.com/brianly1003/lanterm/internal/terminal"
	"github.com/brianly1003/lanterm/internal/testutil"
)

type testEnv struct {
	srv      *Server
	handler  http.Handler
	root     string
	recorder *testutil.Recorder
	sessions *session.Manager
}

func newTestEnv(t *testing.T, mutate func(*Deps)) *testEnv {
	t.Helper()
	sb, err := sandbox.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	rec := testutil.NewRecorder()
	spawner := &testutil.FakeSpawner{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sessions := session.NewManager(sb, spawner.Spawn, rec, logger, session.Options{})
	t.Cleanup(func() { _ = sessions.Stop() })

	deps := Deps{
		Files:     files.NewStore(sb, 0),
		Archives:  archive.NewInspector(sb, 0, 0),
		Sessions:  sessions,
		Git:       git.NewWorkflow(sb, "", 0, rec),
		Runner:    terminal.NewRunner(sb, []string{"echo"}, time.Minute),
		Publisher: rec,
	}
	if mutate != nil {
		mutate(&deps)
	}
	srv := New("127.0.0.1", 0, deps)
	return &testEnv{
		srv:      srv,
		handler:  srv.Handler(),
		root:     sb.Root(),
		recorder: rec,
		sessions: sessions,
	}
}

func (e *testEnv) do(t *testing.T, method, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

func (e *testEnv) writeFile(t *testing.T, rel, content string) {
	t.Helper()
	p := filepath.Join(e.root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

func expectError(t *testing.T, w *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	if w.Code != status {
		t.Fatalf("status = %d, want %d (body %s)", w.Code, status, w.Body.String())
	}
	resp := decode[ErrorResponse](t, w)
	if resp.Code != code {
		t.Errorf("code = %q, want %q", resp.Code, code)
	}
	if resp.Error == "" {
		t.Error("expected error message")
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	resp := decode[HealthResponse](t, w)
	if resp.Status != "ok" || resp.Time == "" {
		t.Errorf("unexpected health response: %+v", resp)
	}
}

func TestUnknownRoute(t *testing.T) {
	env := newTestEnv(t, nil)
	expectError(t, env.do(t, http.MethodGet, "/api/nope", nil), http.StatusNotFound, "NOT_FOUND")
	expectError(t, env.do(t, http.MethodPatch, "/api/files", nil), http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED")
}

func TestFileLifecycle(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodPut, "/api/files/content", WriteFileRequest{Path: "notes/a.txt", Content: "hello"})
	if w.Code != http.StatusOK {
		t.Fatalf("write: %d %s", w.Code, w.Body.String())
	}
	written := decode[files.TextFile](t, w)

	w = env.do(t, http.MethodGet, "/api/files/content?path=notes/a.txt", nil)
	if got := decode[files.TextFile](t, w); got.Content != "hello" {
		t.Errorf("read content = %q", got.Content)
	}

	// stale mtime
	stale := written.Mtime - 10_000
	w = env.do(t, http.MethodPut, "/api/files/content", WriteFileRequest{Path: "notes/a.txt", Content: "x", ExpectedMtime: &stale})
	expectError(t, w, http.StatusConflict, domain.ErrCodeConflict)

	w = env.do(t, http.MethodPost, "/api/files/mkdir", MkdirRequest{Dir: "notes", Name: "sub"})
	if w.Code != http.StatusCreated {
		t.Fatalf("mkdir: %d %s", w.Code, w.Body.String())
	}
	expectError(t, env.do(t, http.MethodPost, "/api/files/mkdir", MkdirRequest{Dir: "notes", Name: "../x"}), http.StatusBadRequest, domain.ErrCodeInvalidName)

	w = env.do(t, http.MethodPost, "/api/files/rename", RenameRequest{Path: "notes/a.txt", NewName: "b.txt"})
	if got := decode[PathResponse](t, w); got.Path != "notes/b.txt" {
		t.Errorf("rename path = %q", got.Path)
	}

	w = env.do(t, http.MethodPost, "/api/files/copy", files.TransferRequest{Src: "notes/b.txt", DestDir: "notes/sub"})
	if w.Code != http.StatusOK {
		t.Fatalf("copy: %d %s", w.Code, w.Body.String())
	}
	if got := decode[files.TransferResult](t, w); got.Copied != 1 {
		t.Errorf("copied = %d, want 1", got.Copied)
	}
	w = env.do(t, http.MethodPost, "/api/files/copy", files.TransferRequest{Src: "notes/b.txt", DestDir: "notes/sub"})
	expectError(t, w, http.StatusConflict, domain.ErrCodeConflict)

	w = env.do(t, http.MethodPost, "/api/files/move", files.TransferRequest{Src: "notes", DestDir: "notes/sub"})
	expectError(t, w, http.StatusBadRequest, domain.ErrCodeSelfContainment)

	w = env.do(t, http.MethodGet, "/api/files?path=notes", nil)
	list := decode[FileListResponse](t, w)
	if len(list.Entries) != 2 || list.Entries[0].Name != "sub" || list.Entries[1].Name != "b.txt" {
		t.Errorf("unexpected listing: %+v", list.Entries)
	}

	expectError(t, env.do(t, http.MethodDelete, "/api/files?path=notes", nil), http.StatusPreconditionRequired, domain.ErrCodeConfirmationRequired)
	if _, err := os.Stat(filepath.Join(env.root, "notes")); err != nil {
		t.Fatal("unconfirmed delete removed the directory")
	}
	w = env.do(t, http.MethodDelete, "/api/files?path=notes&confirm=true", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete: %d %s", w.Code, w.Body.String())
	}
	if _, err := os.Stat(filepath.Join(env.root, "notes")); !os.IsNotExist(err) {
		t.Error("directory still exists after delete")
	}

	ops := env.recorder.OfType(events.EventTypeFileOperation)
	if len(ops) < 6 {
		t.Fatalf("file_operation events = %d, want at least 6", len(ops))
	}
	last := ops[len(ops)-1].GetPayload().(events.FileOperationPayload)
	if last.Op != events.FileOpDelete || last.Outcome != events.OutcomeOK {
		t.Errorf("last event = %+v", last)
	}
}

func TestOutOfRoot(t *testing.T) {
	env := newTestEnv(t, nil)
	tests := []struct {
		method string
		target string
		body   interface{}
	}{
		{http.MethodGet, "/api/files?path=../", nil},
		{http.MethodGet, "/api/files/content?path=../../etc/passwd", nil},
		{http.MethodPut, "/api/files/content", WriteFileRequest{Path: "../escape.txt", Content: "x"}},
		{http.MethodDelete, "/api/files?path=../x&confirm=true", nil},
		{http.MethodGet, "/api/archive/entries?path=../a.zip", nil},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.target, func(t *testing.T) {
			expectError(t, env.do(t, tt.method, tt.target, tt.body), http.StatusForbidden, domain.ErrCodeOutOfRoot)
		})
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(env.root), "escape.txt")); err == nil {
		t.Fatal("write escaped the root")
	}
}

func TestDeleteRootForbidden(t *testing.T) {
	env := newTestEnv(t, nil)
	expectError(t, env.do(t, http.MethodDelete, "/api/files?path=.&confirm=true", nil), http.StatusForbidden, domain.ErrCodeRootForbidden)
}

func multipartBody(t *testing.T, dir, name, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if dir != "" {
		if err := mw.WriteField("dir", dir); err != nil {
			t.Fatal(err)
		}
	}
	fw, err := mw.CreateFormFile("file", name)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := io.WriteString(fw, content); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, mw.FormDataContentType()
}

func TestMultipartUpload(t *testing.T) {
	env := newTestEnv(t, nil)

	body, ct := multipartBody(t, "uploads", "data.bin", "0123456789")
	req := httptest.NewRequest(http.MethodPost, "/api/files/upload", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	env.handler.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("upload: %d %s", w.Code, w.Body.String())
	}
	res := decode[files.UploadResult](t, w)
	if res.Path != "uploads/data.bin" || res.Size != 10 {
		t.Errorf("unexpected result: %+v", res)
	}
	data, err := os.ReadFile(filepath.Join(env.root, "uploads", "data.bin"))
	if err != nil || string(data) != "0123456789" {
		t.Fatalf("uploaded file = %q, %v", data, err)
	}
}

func TestMultipartUploadOverLimit(t *testing.T) {
	env := newTestEnv(t, nil)
	env.srv.SetUploadLimit(4)

	body, ct := multipartBody(t, "", "big.bin", "0123456789")
	req := httptest.NewRequest(http.MethodPost, "/api/files/upload", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	env.handler.ServeHTTP(w, req)
	expectError(t, w, http.StatusRequestEntityTooLarge, domain.ErrCodePayloadTooLarge)

	entries, err := os.ReadDir(env.root)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("root not empty after rejected upload: %v", entries)
	}
}

func TestStreamUpload(t *testing.T) {
	env := newTestEnv(t, nil)
	env.srv.SetUploadLimit(8)

	// the multipart limit does not apply to raw streams
	big := strings.Repeat("b", 64)
	req := httptest.NewRequest(http.MethodPut, "/api/files/stream?path=s/big.bin", strings.NewReader(big))
	w := httptest.NewRecorder()
	env.handler.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("unbounded stream upload: %d %s", w.Code, w.Body.String())
	}
	if res := decode[files.UploadResult](t, w); res.Size != 64 || res.Path != "s/big.bin" {
		t.Errorf("upload result = %+v", res)
	}
	if data, _ := os.ReadFile(filepath.Join(env.root, "s", "big.bin")); string(data) != big {
		t.Errorf("stored %d bytes, want 64", len(data))
	}

	env.srv.SetStreamUploadLimit(8)
	req = httptest.NewRequest(http.MethodPut, "/api/files/stream?path=s/ok.txt", strings.NewReader("small"))
	w = httptest.NewRecorder()
	env.handler.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("stream upload: %d %s", w.Code, w.Body.String())
	}

	// body without a declared length is cut off while streaming
	req = httptest.NewRequest(http.MethodPut, "/api/files/stream?path=s/cut.txt", io.MultiReader(strings.NewReader("0123456789")))
	req.ContentLength = -1
	w = httptest.NewRecorder()
	env.handler.ServeHTTP(w, req)
	expectError(t, w, http.StatusRequestEntityTooLarge, domain.ErrCodePayloadTooLarge)
	if _, err := os.Stat(filepath.Join(env.root, "s", "cut.txt")); !os.IsNotExist(err) {
		t.Error("partial upload left behind")
	}

	req = httptest.NewRequest(http.MethodPut, "/api/files/stream?path=s/declared.txt", strings.NewReader("0123456789"))
	w = httptest.NewRecorder()
	env.handler.ServeHTTP(w, req)
	expectError(t, w, http.StatusRequestEntityTooLarge, domain.ErrCodePayloadTooLarge)
}

func writeZip(t *testing.T, path string, entries map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	zw := zip.NewWriter(f)
	for name, content := range entries {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := io.WriteString(w, content); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestArchiveEndpoints(t *testing.T) {
	env := newTestEnv(t, nil)
	writeZip(t, filepath.Join(env.root, "good.zip"), map[string]string{"a/one.txt": "1", "two.txt": "22"})
	writeZip(t, filepath.Join(env.root, "evil.zip"), map[string]string{"../escape.txt": "x"})

	w := env.do(t, http.MethodGet, "/api/archive/entries?path=good.zip", nil)
	listing := decode[archive.Listing](t, w)
	if listing.Format != archive.FormatZip || len(listing.Entries) != 2 || listing.Unsafe != 0 {
		t.Errorf("unexpected listing: %+v", listing)
	}

	w = env.do(t, http.MethodPost, "/api/archive/extract", ExtractRequest{Path: "good.zip", DestDir: "out"})
	if w.Code != http.StatusOK {
		t.Fatalf("extract: %d %s", w.Code, w.Body.String())
	}
	if res := decode[archive.ExtractResult](t, w); res.Extracted != 2 || res.Bytes != 3 {
		t.Errorf("unexpected result: %+v", res)
	}
	if data, _ := os.ReadFile(filepath.Join(env.root, "out", "a", "one.txt")); string(data) != "1" {
		t.Errorf("extracted content = %q", data)
	}

	w = env.do(t, http.MethodPost, "/api/archive/extract", ExtractRequest{Path: "evil.zip", DestDir: "out2"})
	expectError(t, w, http.StatusUnprocessableEntity, domain.ErrCodeUnsafeArchiveEntry)

	extracted := env.recorder.OfType(events.EventTypeArchiveExtracted)
	if len(extracted) != 2 {
		t.Fatalf("archive_extracted events = %d, want 2", len(extracted))
	}
	if p := extracted[1].GetPayload().(events.ArchiveExtractedPayload); p.Outcome != events.OutcomeFailed {
		t.Errorf("second extraction outcome = %q", p.Outcome)
	}

	env.writeFile(t, "plain.txt", "x")
	expectError(t, env.do(t, http.MethodGet, "/api/archive/entries?path=plain.txt", nil), http.StatusUnsupportedMediaType, domain.ErrCodeUnsupportedArchive)
}

func TestPartialFailureReportsCounts(t *testing.T) {
	env := newTestEnv(t, nil)

	// x.txt is written, then x.txt/y.txt cannot get its parent directory
	f, err := os.Create(filepath.Join(env.root, "clash.zip"))
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	for _, e := range []struct{ name, body string }{{"x.txt", "abc"}, {"x.txt/y.txt", "y"}} {
		fw, err := zw.Create(e.name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := io.WriteString(fw, e.body); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	_ = f.Close()

	w := env.do(t, http.MethodPost, "/api/archive/extract", ExtractRequest{Path: "clash.zip", DestDir: "out"})
	if w.Code < http.StatusBadRequest {
		t.Fatalf("extract status = %d, want failure", w.Code)
	}
	extract := decode[struct {
		Error  string                `json:"error"`
		Code   string                `json:"code"`
		Result archive.ExtractResult `json:"result"`
	}](t, w)
	if extract.Code == "" || extract.Result.Extracted != 1 || extract.Result.Bytes != 3 || extract.Result.Dest != "out" {
		t.Errorf("extract failure body = %s", w.Body.String())
	}
	if strings.Contains(extract.Error, env.root) {
		t.Errorf("error leaks host path: %q", extract.Error)
	}
	if data, _ := os.ReadFile(filepath.Join(env.root, "out", "x.txt")); string(data) != "abc" {
		t.Errorf("x.txt = %q", data)
	}

	env.writeFile(t, "src/a.txt", "a")
	env.writeFile(t, "dst/a.txt", "old")
	w = env.do(t, http.MethodPost, "/api/files/copy", files.TransferRequest{Src: "src/a.txt", DestDir: "dst", Policy: files.PolicyError})
	expectError(t, w, http.StatusConflict, domain.ErrCodeConflict)
	transfer := decode[struct {
		Error  string               `json:"error"`
		Result files.TransferResult `json:"result"`
	}](t, w)
	if transfer.Result.Dest != "dst/a.txt" || transfer.Result.Copied != 0 {
		t.Errorf("copy failure result = %+v", transfer.Result)
	}
	if strings.Contains(transfer.Error, env.root) {
		t.Errorf("error leaks host path: %q", transfer.Error)
	}
}

func TestSessionEndpoints(t *testing.T) {
	env := newTestEnv(t, nil)

	a, err := env.sessions.Create("", 80, 24, "client-a")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := env.sessions.Create("", 80, 24, "client-b"); err != nil {
		t.Fatal(err)
	}
	w := env.do(t, http.MethodGet, "/api/sessions?clientId=client-a", nil)
	list := decode[SessionListResponse](t, w)
	if len(list.Sessions) != 1 || list.Sessions[0].ID != a.ID {
		t.Fatalf("unexpected sessions: %+v", list.Sessions)
	}

	w = env.do(t, http.MethodGet, "/api/sessions/"+a.ID+"/history", nil)
	if got := decode[HistoryResponse](t, w); got.ID != a.ID {
		t.Errorf("history id = %q", got.ID)
	}
	expectError(t, env.do(t, http.MethodGet, "/api/sessions/missing/history", nil), http.StatusNotFound, domain.ErrCodeSessionNotFound)

	w = env.do(t, http.MethodDelete, "/api/sessions/"+a.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("terminate: %d %s", w.Code, w.Body.String())
	}
	expectError(t, env.do(t, http.MethodDelete, "/api/sessions/"+a.ID, nil), http.StatusNotFound, domain.ErrCodeSessionNotFound)

	w = env.do(t, http.MethodDelete, "/api/sessions", nil)
	if got := decode[TerminateResponse](t, w); got.Terminated != 1 {
		t.Errorf("terminated = %d, want 1", got.Terminated)
	}
	if env.sessions.Count() != 0 {
		t.Errorf("sessions left = %d", env.sessions.Count())
	}
}

func TestGitEndpointsValidation(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodPost, "/api/git/reset", GitResetRequest{Mode: "hard", Commit: "HEAD"})
	expectError(t, w, http.StatusPreconditionRequired, domain.ErrCodeConfirmationRequired)

	w = env.do(t, http.MethodPost, "/api/git/reset", GitResetRequest{Mode: "sideways", Commit: "HEAD"})
	expectError(t, w, http.StatusBadRequest, domain.ErrCodeInvalidPayload)

	expectError(t, env.do(t, http.MethodGet, "/api/git/commits?limit=abc", nil), http.StatusBadRequest, domain.ErrCodeInvalidPayload)

	w = env.do(t, http.MethodGet, "/api/git/info?cwd=../", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("info: %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/git/revert", strings.NewReader("{not json"))
	rw := httptest.NewRecorder()
	env.handler.ServeHTTP(rw, req)
	expectError(t, rw, http.StatusBadRequest, domain.ErrCodeInvalidPayload)
}

func TestExec(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("echo is a shell builtin on windows")
	}
	env := newTestEnv(t, nil)
	ts := httptest.NewServer(env.handler)
	defer ts.Close()

	post := func(req terminal.RunRequest) *http.Response {
		t.Helper()
		data, _ := json.Marshal(req)
		resp, err := http.Post(ts.URL+"/api/exec", "application/json", bytes.NewReader(data))
		if err != nil {
			t.Fatal(err)
		}
		return resp
	}

	resp := post(terminal.RunRequest{Command: "echo", Args: []string{"hello", "world"}})
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d body %s", resp.StatusCode, body)
	}
	if string(body) != "hello world\n" {
		t.Errorf("output = %q", body)
	}
	if got := resp.Trailer.Get(exitCodeTrailer); got != "0" {
		t.Errorf("exit code trailer = %q, want 0", got)
	}

	resp = post(terminal.RunRequest{Command: "rm", Args: []string{"-rf", "."}})
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("disallowed command status = %d", resp.StatusCode)
	}

	resp = post(terminal.RunRequest{Command: "echo", Cwd: "../"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("out-of-root cwd status = %d", resp.StatusCode)
	}

	executed := env.recorder.OfType(events.EventTypeCommandExecuted)
	if len(executed) != 3 {
		t.Fatalf("command_executed events = %d, want 3", len(executed))
	}
	if p := executed[0].GetPayload().(events.CommandExecutedPayload); p.Outcome != events.OutcomeOK || p.ExitCode != 0 {
		t.Errorf("first event = %+v", p)
	}
}

func TestExecRateLimited(t *testing.T) {
	limiter := middleware.NewRateLimiter(middleware.WithMaxRequests(1), middleware.WithBurst(1), middleware.WithWindow(time.Hour))
	t.Cleanup(limiter.Close)
	env := newTestEnv(t, func(d *Deps) { d.ExecLimiter = limiter })

	first := env.do(t, http.MethodPost, "/api/exec", terminal.RunRequest{Command: "not-allowed"})
	if first.Code != http.StatusForbidden {
		t.Fatalf("first status = %d", first.Code)
	}
	second := env.do(t, http.MethodPost, "/api/exec", terminal.RunRequest{Command: "not-allowed"})
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("second status = %d, want 429", second.Code)
	}
	if second.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After")
	}
}

func TestCORS(t *testing.T) {
	env := newTestEnv(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example")
	w := httptest.NewRecorder()
	env.handler.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Errorf("foreign origin status = %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	w = httptest.NewRecorder()
	env.handler.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}

	req = httptest.NewRequest(http.MethodOptions, "/api/files/content", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	w = httptest.NewRecorder()
	env.handler.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d", w.Code)
	}
}

func TestAudit(t *testing.T) {
	env := newTestEnv(t, nil)
	w := env.do(t, http.MethodGet, "/api/audit", nil)
	if got := decode[AuditResponse](t, w); got.Enabled {
		t.Error("audit reported enabled without a journal")
	}

	journal, err := audit.Open(filepath.Join(t.TempDir(), "audit.db"), 0)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = journal.Close() })
	env = newTestEnv(t, func(d *Deps) { d.Journal = journal })

	evt := events.NewFileOperationEvent(events.FileOperationPayload{Op: events.FileOpMkdir, Path: "x", Outcome: events.OutcomeOK})
	if err := journal.Record(t.Context(), evt); err != nil {
		t.Fatal(err)
	}
	w = env.do(t, http.MethodGet, "/api/audit?limit=5", nil)
	got := decode[AuditResponse](t, w)
	if !got.Enabled || len(got.Records) != 1 || got.Records[0].Type != string(events.EventTypeFileOperation) {
		t.Errorf("unexpected audit response: %+v", got)
	}
}

func TestQR(t *testing.T) {
	env := newTestEnv(t, nil)
	expectError(t, env.do(t, http.MethodGet, "/api/qr", nil), http.StatusNotFound, "NOT_FOUND")

	env = newTestEnv(t, func(d *Deps) { d.QR = pairing.NewQRGenerator("192.168.1.20", 8080) })
	w := env.do(t, http.MethodGet, "/api/qr?size=64", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %q", ct)
	}
	if !bytes.HasPrefix(w.Body.Bytes(), []byte("\x89PNG")) {
		t.Error("body is not a PNG")
	}
}

func TestWebSocketWithoutTransport(t *testing.T) {
	env := newTestEnv(t, nil)
	expectError(t, env.do(t, http.MethodGet, "/ws", nil), http.StatusServiceUnavailable, "UNAVAILABLE")
}
