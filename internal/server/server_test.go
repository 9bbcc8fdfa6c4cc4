package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/data-autopilot/internal/gallery"
	"github.com/jonathan/data-autopilot/internal/llm"
)

// writeSourceCSV drops a small CSV file into a temp dir and returns its path.
func writeSourceCSV(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "orders.csv")
	content := "product,revenue\nwidget,120\ngadget,45\nwidget,45\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newTestServer(t *testing.T, client llm.Client, store gallery.Store) *httptest.Server {
	t.Helper()
	s := New(Config{Addr: ":0", Client: client, Store: store})
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func createSession(t *testing.T, ts *httptest.Server, source string) SessionResponse {
	t.Helper()
	resp := postJSON(t, ts.URL+"/v1/sessions", CreateSessionRequest{Source: source})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created SessionResponse
	decodeBody(t, resp, &created)
	return created
}

func TestCreateSession_ReturnsShape(t *testing.T) {
	ts := newTestServer(t, nil, nil)

	created := createSession(t, ts, writeSourceCSV(t))
	assert.Equal(t, 3, created.Rows)
	assert.Equal(t, []string{"product", "revenue"}, created.Columns)

	resp, err := http.Get(ts.URL + "/v1/sessions")
	require.NoError(t, err)
	var listed []SessionResponse
	decodeBody(t, resp, &listed)
	require.Len(t, listed, 1)
	assert.Equal(t, created.ID, listed[0].ID)
}

func TestCreateSession_ValidatesRequest(t *testing.T) {
	ts := newTestServer(t, nil, nil)

	resp := postJSON(t, ts.URL+"/v1/sessions", map[string]string{})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreateSession_MissingFileIsLoadFault(t *testing.T) {
	ts := newTestServer(t, nil, nil)

	resp := postJSON(t, ts.URL+"/v1/sessions", CreateSessionRequest{Source: "no-such-file.csv"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var body map[string]string
	decodeBody(t, resp, &body)
	assert.Equal(t, "load_fault", body["category"])
}

func TestGetSession_UnknownID(t *testing.T) {
	ts := newTestServer(t, nil, nil)

	resp, err := http.Get(ts.URL + "/v1/sessions/not-a-uuid")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/v1/sessions/6a8f3f1e-0000-4000-8000-000000000000")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDeleteSession(t *testing.T) {
	ts := newTestServer(t, nil, nil)
	created := createSession(t, ts, writeSourceCSV(t))

	req, err := http.NewRequest(http.MethodDelete, fmt.Sprintf("%s/v1/sessions/%s", ts.URL, created.ID), nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	getResp, err := http.Get(fmt.Sprintf("%s/v1/sessions/%s", ts.URL, created.ID))
	require.NoError(t, err)
	getResp.Body.Close()
	assert.Equal(t, http.StatusNotFound, getResp.StatusCode)
}

func TestChat_RunsScriptedProgram(t *testing.T) {
	client := llm.NewScriptedClient(`{
		"ops": [{"op": "rename_column", "column": "product", "to": "item"}],
		"charts": [],
		"summary": "Renamed product to item."
	}`)
	ts := newTestServer(t, client, nil)
	created := createSession(t, ts, writeSourceCSV(t))

	resp := postJSON(t, fmt.Sprintf("%s/v1/sessions/%s/chat", ts.URL, created.ID),
		ChatRequest{Message: "rename the product column to item"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var msg struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	decodeBody(t, resp, &msg)
	assert.Equal(t, "assistant", msg.Role)
	assert.NotEmpty(t, msg.Content)

	getResp, err := http.Get(fmt.Sprintf("%s/v1/sessions/%s", ts.URL, created.ID))
	require.NoError(t, err)
	var detail struct {
		Session SessionResponse `json:"session"`
	}
	decodeBody(t, getResp, &detail)
	assert.Equal(t, []string{"item", "revenue"}, detail.Session.Columns)
}

func TestChat_WithoutModelAnswersWithFault(t *testing.T) {
	ts := newTestServer(t, nil, nil)
	created := createSession(t, ts, writeSourceCSV(t))

	resp := postJSON(t, fmt.Sprintf("%s/v1/sessions/%s/chat", ts.URL, created.ID),
		ChatRequest{Message: "do something"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var msg struct {
		Fault *struct {
			Category string `json:"category"`
		} `json:"fault"`
	}
	decodeBody(t, resp, &msg)
	require.NotNil(t, msg.Fault)
	assert.Equal(t, "provider_fault", msg.Fault.Category)
}

func TestChat_ValidatesMessage(t *testing.T) {
	ts := newTestServer(t, nil, nil)
	created := createSession(t, ts, writeSourceCSV(t))

	resp := postJSON(t, fmt.Sprintf("%s/v1/sessions/%s/chat", ts.URL, created.ID),
		ChatRequest{Message: ""})
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAutopilot_PersistsToGallery(t *testing.T) {
	store, err := gallery.OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	defer store.Close()

	ts := newTestServer(t, nil, store)
	created := createSession(t, ts, writeSourceCSV(t))

	resp := postJSON(t, fmt.Sprintf("%s/v1/sessions/%s/autopilot", ts.URL, created.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var report struct {
		Status string `json:"status"`
	}
	decodeBody(t, resp, &report)
	assert.Equal(t, "completed", report.Status)

	listResp, err := http.Get(ts.URL + "/v1/gallery/runs")
	require.NoError(t, err)
	var runs []gallery.RunRecord
	decodeBody(t, listResp, &runs)
	require.Len(t, runs, 1)
	assert.Equal(t, created.Source, runs[0].Source)

	runResp, err := http.Get(fmt.Sprintf("%s/v1/gallery/runs/%s", ts.URL, runs[0].ID))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, runResp.StatusCode)
	var stored struct {
		Report struct {
			Status string `json:"status"`
		} `json:"report"`
	}
	decodeBody(t, runResp, &stored)
	assert.Equal(t, "completed", stored.Report.Status)
}

func TestGallery_WithoutStoreIsUnavailable(t *testing.T) {
	ts := newTestServer(t, nil, nil)

	resp, err := http.Get(ts.URL + "/v1/gallery/runs")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestGallery_DeleteRun(t *testing.T) {
	store, err := gallery.OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	defer store.Close()

	runID, err := store.CreateRun(context.Background(), "orders.csv")
	require.NoError(t, err)

	ts := newTestServer(t, nil, store)

	req, err := http.NewRequest(http.MethodDelete, fmt.Sprintf("%s/v1/gallery/runs/%s", ts.URL, runID), nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	runs, err := store.ListRuns(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, runs)
}
