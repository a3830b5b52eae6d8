package aiapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"promo-series/internal/domain"
)

func newServer(t *testing.T, status int, payload string, check func(r *http.Request)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			check(r)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(payload))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCompleteParsesResponseShapes(t *testing.T) {
	cases := map[string]string{
		"content":    `{"content":[{"type":"text","text":"Subject: A\n\nB"}],"usage":{"input_tokens":12,"output_tokens":34}}`,
		"completion": `{"completion":"Subject: A\n\nB"}`,
		"text":       `{"text":"Subject: A\n\nB"}`,
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			srv := newServer(t, http.StatusOK, payload, nil)
			c := NewClient(srv.URL, "", "key", time.Second)
			out, err := c.Complete(context.Background(), domain.CompletionRequest{Prompt: "p", Model: "m"})
			if err != nil {
				t.Fatalf("неожиданная ошибка: %v", err)
			}
			if out.Text != "Subject: A\n\nB" {
				t.Fatalf("неожиданный текст: %q", out.Text)
			}
			if out.Model != "m" {
				t.Fatalf("ожидали модель из запроса, получили %q", out.Model)
			}
			if name == "content" && (out.InputTokens != 12 || out.OutputTokens != 34) {
				t.Fatalf("ожидали токены из ответа, получили %+v", out)
			}
		})
	}
}

func TestCompleteSendsBearerAndBody(t *testing.T) {
	srv := newServer(t, http.StatusOK, `{"text":"ok"}`, func(r *http.Request) {
		if r.URL.Path != "/v1/ai/generate" {
			t.Errorf("неожиданный путь: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("неожиданная авторизация: %q", got)
		}
		var body generateRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("не удалось разобрать тело: %v", err)
		}
		if body.MaxTokens != 10 || body.Prompt != "Hello" {
			t.Errorf("неожиданное тело: %+v", body)
		}
	})
	c := NewClient(srv.URL+"/", "", "secret", time.Second)
	if _, err := c.Complete(context.Background(), domain.CompletionRequest{Prompt: "Hello", MaxTokens: 10}); err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
}

func TestCompleteClassifiesErrors(t *testing.T) {
	cases := []struct {
		status  int
		payload string
		want    error
	}{
		{http.StatusUnauthorized, `{"error":"invalid token"}`, domain.ErrAIAuth},
		{http.StatusBadRequest, `{"error":{"message":"Invalid API key provided"}}`, domain.ErrAIAuth},
		{http.StatusBadGateway, `upstream down`, domain.ErrAIServer},
		{http.StatusNotFound, `{"message":"model not found"}`, domain.ErrAIModel},
		{http.StatusTooManyRequests, `{"message":"slow down"}`, domain.ErrAITransport},
	}
	for _, tc := range cases {
		srv := newServer(t, tc.status, tc.payload, nil)
		_, err := NewClient(srv.URL, "", "key", time.Second).Complete(context.Background(), domain.CompletionRequest{Model: "m"})
		if !errors.Is(err, tc.want) {
			t.Fatalf("статус %d: ожидали %v, получили %v", tc.status, tc.want, err)
		}
	}
}

func TestCompleteEmptyTextIsParseError(t *testing.T) {
	srv := newServer(t, http.StatusOK, `{"content":[]}`, nil)
	_, err := NewClient(srv.URL, "", "key", time.Second).Complete(context.Background(), domain.CompletionRequest{})
	if !errors.Is(err, domain.ErrAIParse) {
		t.Fatalf("ожидали ошибку разбора, получили %v", err)
	}
}

func TestCompleteWithoutKey(t *testing.T) {
	_, err := NewClient("http://127.0.0.1:1", "", "", time.Second).Complete(context.Background(), domain.CompletionRequest{})
	if !errors.Is(err, domain.ErrAIAuth) {
		t.Fatalf("ожидали ошибку авторизации, получили %v", err)
	}
}
