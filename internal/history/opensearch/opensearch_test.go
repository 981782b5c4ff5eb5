package opensearch

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/loykin/dreamlauncher/internal/history"
)

func TestOpenSearchSink_Send(t *testing.T) {
	var receivedBody []byte
	var receivedURL string
	var receivedMethod string
	var contentType string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedMethod = r.Method
		receivedURL = r.URL.Path
		contentType = r.Header.Get("Content-Type")
		body, _ := io.ReadAll(r.Body)
		receivedBody = body
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"_id":"test","_index":"launches","result":"created"}`))
	}))
	defer server.Close()

	sink := New(server.URL+"/", "launches")

	event := history.Event{
		Type:       history.EventLaunch,
		OccurredAt: time.Now().UTC(),
		Record: history.Record{
			Name:      "dreamseeker.exe",
			PID:       12345,
			Address:   "goon1.goonhub.com:26100",
			StartedAt: time.Now().Add(-time.Minute).UTC(),
		},
	}
	if err := sink.Send(context.Background(), event); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if receivedMethod != http.MethodPost {
		t.Errorf("Expected POST method, got: %s", receivedMethod)
	}
	if receivedURL != "/launches/_doc" {
		t.Errorf("Expected URL path /launches/_doc, got: %s", receivedURL)
	}
	if contentType != "application/json" {
		t.Errorf("Expected JSON content type, got: %s", contentType)
	}

	var got map[string]interface{}
	if err := json.Unmarshal(receivedBody, &got); err != nil {
		t.Fatalf("Failed to parse received JSON: %v", err)
	}
	if got["type"] != string(history.EventLaunch) {
		t.Errorf("Expected type %s, got: %v", history.EventLaunch, got["type"])
	}
	rec, ok := got["record"].(map[string]interface{})
	if !ok {
		t.Fatalf("Expected record object, got: %T", got["record"])
	}
	if rec["address"] != "goon1.goonhub.com:26100" {
		t.Errorf("Unexpected address: %v", rec["address"])
	}
	if rec["pid"] != float64(12345) {
		t.Errorf("Unexpected pid: %v", rec["pid"])
	}
}

func TestOpenSearchSink_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	err := New(server.URL, "launches").Send(context.Background(), history.Event{Type: history.EventExit})
	if err == nil || !strings.Contains(err.Error(), "400") {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestOpenSearchSink_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	sink := New(url, "launches").WithClient(&http.Client{Timeout: time.Second})
	if err := sink.Send(context.Background(), history.Event{Type: history.EventExit}); err == nil {
		t.Fatal("expected connection error")
	}
}
