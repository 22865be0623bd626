package bootstrap

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ats-backend/internal/intake"
	sharedauth "ats-backend/internal/shared/auth"
	"ats-backend/internal/shared/config"
)

func buildApp(t *testing.T) *App {
	t.Helper()
	app, err := Build(config.Config{
		Env:             "dev",
		ObjectStoreType: "local",
		LocalStoreDir:   t.TempDir(),
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return app
}

func buildDocx(t *testing.T, paragraphs ...string) []byte {
	t.Helper()
	var body strings.Builder
	for _, p := range paragraphs {
		body.WriteString("<w:p><w:r><w:t>" + p + "</w:t></w:r></w:p>")
	}
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatalf("create zip entry: %v", err)
	}
	if _, err := w.Write([]byte("<w:document><w:body>" + body.String() + "</w:body></w:document>")); err != nil {
		t.Fatalf("write zip entry: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

type upload struct {
	name string
	data []byte
}

func multipartBody(t *testing.T, policy string, uploads []upload) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("policy", policy); err != nil {
		t.Fatalf("write policy: %v", err)
	}
	for _, u := range uploads {
		part, err := mw.CreateFormFile("files", u.name)
		if err != nil {
			t.Fatalf("create part: %v", err)
		}
		if _, err := part.Write(u.data); err != nil {
			t.Fatalf("write part: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func doRequest(t *testing.T, srv *httptest.Server, method, path string, body io.Reader, contentType string, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, srv.URL+path, body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, raw
}

func TestBulkUploadEndToEnd(t *testing.T) {
	app := buildApp(t)
	srv := httptest.NewServer(app.Router)
	defer srv.Close()

	guest := map[string]string{"X-Guest-Id": "it-guest"}

	body, contentType := multipartBody(t, "skip", []upload{
		{name: "jane.docx", data: buildDocx(t, "Jane Doe", "jane@example.com", "555-0100")},
		{name: "john.docx", data: buildDocx(t, "John Smith", "john@example.com")},
	})
	resp, raw := doRequest(t, srv, http.MethodPost, "/api/v1/candidates/bulk", body, contentType, guest)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("bulk upload: status %d, body %s", resp.StatusCode, raw)
	}

	var result intake.Result
	if err := json.Unmarshal(raw, &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if result.TotalProcessed != 2 || result.Created != 2 {
		t.Fatalf("unexpected result: %+v", result)
	}

	resp, raw = doRequest(t, srv, http.MethodGet, "/api/v1/candidates", nil, "", guest)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list candidates: status %d, body %s", resp.StatusCode, raw)
	}
	var page []map[string]any
	if err := json.Unmarshal(raw, &page); err != nil {
		t.Fatalf("decode candidates: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(page))
	}
}

func TestBulkAsyncEndToEnd(t *testing.T) {
	app := buildApp(t)
	srv := httptest.NewServer(app.Router)
	defer srv.Close()

	guest := map[string]string{"X-Guest-Id": "it-guest"}

	body, contentType := multipartBody(t, "skip", []upload{
		{name: "async.docx", data: buildDocx(t, "Asia Ng", "asia@example.com")},
	})
	resp, raw := doRequest(t, srv, http.MethodPost, "/api/v1/candidates/bulk-async", body, contentType, guest)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("bulk-async: status %d, body %s", resp.StatusCode, raw)
	}
	var accepted struct {
		TaskID string `json:"task_id"`
	}
	if err := json.Unmarshal(raw, &accepted); err != nil || accepted.TaskID == "" {
		t.Fatalf("no task id in %s (%v)", raw, err)
	}

	deadline := time.Now().Add(10 * time.Second)
	for {
		if time.Now().After(deadline) {
			t.Fatal("task never completed")
		}
		resp, raw = doRequest(t, srv, http.MethodGet, "/api/v1/upload-tasks/"+accepted.TaskID, nil, "", guest)
		if resp.StatusCode == http.StatusTooManyRequests {
			time.Sleep(500 * time.Millisecond)
			continue
		}
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("task status: status %d, body %s", resp.StatusCode, raw)
		}
		var status struct {
			Status   string         `json:"status"`
			Progress int            `json:"progress"`
			Result   *intake.Result `json:"result"`
		}
		if err := json.Unmarshal(raw, &status); err != nil {
			t.Fatalf("decode status: %v", err)
		}
		if status.Status == intake.TaskStatusCompleted {
			if status.Progress != 100 || status.Result == nil || status.Result.Created != 1 {
				t.Fatalf("unexpected final status: %s", raw)
			}
			break
		}
		if status.Status == intake.TaskStatusFailed {
			t.Fatalf("task failed: %s", raw)
		}
		time.Sleep(1100 * time.Millisecond)
	}
}

func TestBulkRejectsOversizedSyncBatch(t *testing.T) {
	app := buildApp(t)
	srv := httptest.NewServer(app.Router)
	defer srv.Close()

	var uploads []upload
	for i := 0; i < 11; i++ {
		uploads = append(uploads, upload{
			name: fmt.Sprintf("f%d.docx", i),
			data: buildDocx(t, "Person", fmt.Sprintf("p%d@example.com", i)),
		})
	}
	body, contentType := multipartBody(t, "skip", uploads)
	resp, raw := doRequest(t, srv, http.MethodPost, "/api/v1/candidates/bulk", body, contentType, map[string]string{"X-Guest-Id": "g"})
	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d: %s", resp.StatusCode, raw)
	}
	if !strings.Contains(string(raw), "use_async") {
		t.Fatalf("expected use_async hint: %s", raw)
	}
}

func TestBulkRejectsInvalidFiles(t *testing.T) {
	app := buildApp(t)
	srv := httptest.NewServer(app.Router)
	defer srv.Close()

	body, contentType := multipartBody(t, "skip", []upload{
		{name: "empty.pdf", data: nil},
	})
	resp, raw := doRequest(t, srv, http.MethodPost, "/api/v1/candidates/bulk", body, contentType, map[string]string{"X-Guest-Id": "g"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", resp.StatusCode, raw)
	}
	if !strings.Contains(string(raw), "empty.pdf") {
		t.Fatalf("rejection should name the file: %s", raw)
	}
}

func TestBulkRequiresIdentity(t *testing.T) {
	app := buildApp(t)
	srv := httptest.NewServer(app.Router)
	defer srv.Close()

	body, contentType := multipartBody(t, "skip", []upload{
		{name: "a.docx", data: buildDocx(t, "A", "a@example.com")},
	})
	resp, _ := doRequest(t, srv, http.MethodPost, "/api/v1/candidates/bulk", body, contentType, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestBulkDeniedWithoutCapability(t *testing.T) {
	app := buildApp(t)
	srv := httptest.NewServer(app.Router)
	defer srv.Close()

	token, err := sharedauth.SignJWT(sharedauth.Claims{Sub: "user-hm", Role: "hiring_manager"})
	if err != nil {
		t.Fatalf("sign jwt: %v", err)
	}

	body, contentType := multipartBody(t, "skip", []upload{
		{name: "a.docx", data: buildDocx(t, "A", "a@example.com")},
	})
	resp, raw := doRequest(t, srv, http.MethodPost, "/api/v1/candidates/bulk", body, contentType, map[string]string{
		"Authorization": "Bearer " + token,
	})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", resp.StatusCode, raw)
	}

	// The same role can still read the permissions matrix.
	resp, raw = doRequest(t, srv, http.MethodGet, "/api/v1/permissions", nil, "", map[string]string{
		"Authorization": "Bearer " + token,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("permissions: status %d, body %s", resp.StatusCode, raw)
	}
	if !strings.Contains(string(raw), "candidates:read") {
		t.Fatalf("expected candidates:read in %s", raw)
	}
}
