package controllers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/kaanyildiz/hwboard/internal/app/controllers"
	"github.com/kaanyildiz/hwboard/internal/app/models/dto"
	"github.com/kaanyildiz/hwboard/internal/app/repositories"
	"github.com/kaanyildiz/hwboard/internal/app/routes"
	"github.com/kaanyildiz/hwboard/internal/app/services"
	"github.com/kaanyildiz/hwboard/internal/db"
	"github.com/kaanyildiz/hwboard/internal/pkg/filestorage"
)

func setupTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	database, err := db.NewSQLite(filepath.Join(t.TempDir(), "homework.db"))
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })

	repo := repositories.NewHomeworkRepository(database)
	if err := repo.InitSchema(context.Background()); err != nil {
		t.Fatalf("InitSchema: %v", err)
	}

	storage, err := filestorage.NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStorage: %v", err)
	}

	service := services.NewHomeworkService(repo, storage)
	router := gin.New()
	routes.SetupRouter(router, controllers.NewHomeworkController(service))
	return router
}

// multipartRequest builds a multipart form request with the given text
// fields and attachment files (original name -> content).
func multipartRequest(t *testing.T, method, url string, fields map[string]string, files map[string]string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for name, value := range fields {
		if err := w.WriteField(name, value); err != nil {
			t.Fatalf("WriteField: %v", err)
		}
	}
	for filename, content := range files {
		fw, err := w.CreateFormFile("attachments", filename)
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		if _, err := fw.Write([]byte(content)); err != nil {
			t.Fatalf("writing part: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("closing writer: %v", err)
	}

	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func validFields() map[string]string {
	return map[string]string{
		"time":    "2024-01-01",
		"subject": "Math",
		"title":   "Ch1",
		"content": "Do problems 1-10",
	}
}

func doRequest(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("decoding %q: %v", rec.Body.String(), err)
	}
}

func TestCreateThenListScenario(t *testing.T) {
	router := setupTestRouter(t)

	rec := doRequest(router, multipartRequest(t, http.MethodPost, "/homeworks", validFields(), nil))
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST /homeworks = %d, body %s", rec.Code, rec.Body.String())
	}

	var created dto.HomeworkSavedResponse
	decodeJSON(t, rec, &created)
	if created.ID <= 0 {
		t.Fatalf("expected positive id, got %d", created.ID)
	}

	rec = doRequest(router, httptest.NewRequest(http.MethodGet, "/homeworks", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /homeworks = %d", rec.Code)
	}

	var listed map[string]dto.SubjectGroup
	decodeJSON(t, rec, &listed)
	group, ok := listed["Math"]
	if !ok || len(group.Homeworks) != 1 {
		t.Fatalf("expected one Math homework, got %s", rec.Body.String())
	}
	hw := group.Homeworks[0]
	if hw.ID != created.ID || hw.Time != "2024-01-01" || hw.Title != "Ch1" || hw.Content != "Do problems 1-10" {
		t.Errorf("unexpected listing: %+v", hw)
	}
	if !strings.Contains(rec.Body.String(), `"attachments":[]`) {
		t.Errorf("attachments must serialize as an empty array: %s", rec.Body.String())
	}
}

func TestCreateMissingFieldReturns400(t *testing.T) {
	router := setupTestRouter(t)

	fields := validFields()
	delete(fields, "content")

	rec := doRequest(router, multipartRequest(t, http.MethodPost, "/homeworks", fields, nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	var body dto.ErrorResponse
	decodeJSON(t, rec, &body)
	if body.Error == "" {
		t.Error("expected a JSON error body")
	}

	// Nothing must have been created.
	rec = doRequest(router, httptest.NewRequest(http.MethodGet, "/homeworks", nil))
	if rec.Body.String() != "{}" {
		t.Errorf("list should be empty, got %s", rec.Body.String())
	}
}

func TestUploadLifecycle(t *testing.T) {
	router := setupTestRouter(t)

	rec := doRequest(router, multipartRequest(t, http.MethodPost, "/homeworks", validFields(),
		map[string]string{"worksheet.pdf": "pdf-bytes"}))
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST /homeworks = %d, body %s", rec.Code, rec.Body.String())
	}

	var created dto.HomeworkSavedResponse
	decodeJSON(t, rec, &created)
	if len(created.Attachments) != 1 {
		t.Fatalf("expected 1 attachment, got %v", created.Attachments)
	}
	storedName := created.Attachments[0].Filepath

	rec = doRequest(router, httptest.NewRequest(http.MethodGet, "/uploads/"+storedName, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /uploads/%s = %d", storedName, rec.Code)
	}
	if rec.Body.String() != "pdf-bytes" {
		t.Errorf("downloaded content = %q", rec.Body.String())
	}
	if !strings.Contains(rec.Header().Get("Content-Disposition"), "attachment") {
		t.Errorf("expected an attachment disposition, got %q", rec.Header().Get("Content-Disposition"))
	}

	rec = doRequest(router, httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/homeworks/%d", created.ID), nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("DELETE = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(router, httptest.NewRequest(http.MethodGet, "/uploads/"+storedName, nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("download after delete should be 404, got %d", rec.Code)
	}
}

func TestUpdateFlows(t *testing.T) {
	router := setupTestRouter(t)

	rec := doRequest(router, multipartRequest(t, http.MethodPost, "/homeworks", validFields(), nil))
	var created dto.HomeworkSavedResponse
	decodeJSON(t, rec, &created)

	fields := map[string]string{
		"time":    "2024-02-02",
		"subject": "Math",
		"title":   "Ch2",
		"content": "Do problems 11-20",
	}
	rec = doRequest(router, multipartRequest(t, http.MethodPut, fmt.Sprintf("/homeworks/%d", created.ID), fields,
		map[string]string{"extra.txt": "extra"}))
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT = %d, body %s", rec.Code, rec.Body.String())
	}

	var updated dto.HomeworkSavedResponse
	decodeJSON(t, rec, &updated)
	if updated.ID != created.ID || len(updated.Attachments) != 1 {
		t.Errorf("unexpected update response: %+v", updated)
	}

	// Unknown id is a 404.
	rec = doRequest(router, multipartRequest(t, http.MethodPut, "/homeworks/9999", fields, nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("PUT unknown id = %d, want 404", rec.Code)
	}

	// Missing field is a 400.
	delete(fields, "title")
	rec = doRequest(router, multipartRequest(t, http.MethodPut, fmt.Sprintf("/homeworks/%d", created.ID), fields, nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("PUT missing field = %d, want 400", rec.Code)
	}
}

func TestInvalidIDReturns400(t *testing.T) {
	router := setupTestRouter(t)

	for _, target := range []string{"/homeworks/abc", "/homeworks/-3", "/homeworks/0"} {
		rec := doRequest(router, multipartRequest(t, http.MethodPut, target, validFields(), nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("PUT %s = %d, want 400", target, rec.Code)
		}

		rec = doRequest(router, httptest.NewRequest(http.MethodDelete, target, nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("DELETE %s = %d, want 400", target, rec.Code)
		}
	}
}

func TestDeleteUnknownIDReturns404(t *testing.T) {
	router := setupTestRouter(t)

	rec := doRequest(router, httptest.NewRequest(http.MethodDelete, "/homeworks/31337", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestMissingDownloadReturns404(t *testing.T) {
	router := setupTestRouter(t)

	rec := doRequest(router, httptest.NewRequest(http.MethodGet, "/uploads/never-stored.bin", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}

	var body dto.ErrorResponse
	decodeJSON(t, rec, &body)
	if body.Error == "" {
		t.Error("expected a JSON error body")
	}
}
