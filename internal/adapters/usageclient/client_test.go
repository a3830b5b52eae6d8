package usageclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"promo-series/internal/domain"
)

func TestReportUsagePostsTrackRequest(t *testing.T) {
	var got trackRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/base/api/usage/track" {
			t.Errorf("неожиданный запрос: %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer tkn" {
			t.Errorf("нет токена: %q", r.Header.Get("Authorization"))
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client, err := New(srv.URL+"/base/", WithToken("tkn"))
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if err := client.ReportUsage(context.Background(), "u1", domain.UsageAITokensUsed, 120); err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if got.UserID != "u1" || got.UsageType != "ai_tokens_used" || got.Amount != 120 {
		t.Fatalf("неожиданное тело: %+v", got)
	}
}

func TestReportUsageReturnsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":"limit reached","code":"quota"}`))
	}))
	defer srv.Close()

	client, _ := New(srv.URL)
	err := client.ReportUsage(context.Background(), "u1", domain.UsageEmailsGenerated, 1)
	if err == nil || !strings.Contains(err.Error(), "[quota]") {
		t.Fatalf("ожидали ошибку API, получили %v", err)
	}
}

func TestNewRequiresBaseURL(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Fatal("ожидали ошибку без baseURL")
	}
}
