package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/2501Pr0ject/Scrapinium-sub000/config"
	"github.com/2501Pr0ject/Scrapinium-sub000/models"
)

func testTransformConfig(baseURL string) config.TransformConfig {
	return config.TransformConfig{
		BaseURL:        baseURL,
		Model:          "default-model",
		Timeout:        5 * time.Second,
		MaxPromptChars: 8000,
	}
}

func chatOK(content string) string {
	return `{"choices":[{"message":{"content":"` + content + `"}}],` +
		`"usage":{"prompt_tokens":12,"completion_tokens":5,"total_tokens":17}}`
}

func TestTransform_Success(t *testing.T) {
	var gotBody chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Error(err)
		}
		w.Write([]byte(chatOK("Transformed text.")))
	}))
	defer srv.Close()

	c := NewClient(nil, testTransformConfig(srv.URL))
	out, usage, err := c.Transform(context.Background(), "article body", "summarize", "")
	if err != nil {
		t.Fatal(err)
	}
	if out != "Transformed text." {
		t.Errorf("out = %q", out)
	}
	if usage.TotalTokens != 17 {
		t.Errorf("total tokens = %d", usage.TotalTokens)
	}
	if gotBody.Model != "default-model" {
		t.Errorf("model = %q, want config default", gotBody.Model)
	}
	if len(gotBody.Messages) != 2 || gotBody.Messages[0].Role != "system" {
		t.Errorf("messages = %+v", gotBody.Messages)
	}
	if !strings.Contains(gotBody.Messages[1].Content, "Instruction: summarize") {
		t.Error("instruction missing from the user message")
	}
}

func TestTransform_ModelOverride(t *testing.T) {
	var gotModel string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body chatRequest
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotModel = body.Model
		w.Write([]byte(chatOK("x")))
	}))
	defer srv.Close()

	c := NewClient(nil, testTransformConfig(srv.URL))
	if _, _, err := c.Transform(context.Background(), "body", "i", "special-model"); err != nil {
		t.Fatal(err)
	}
	if gotModel != "special-model" {
		t.Errorf("model = %q", gotModel)
	}
}

func TestTransform_PromptTruncation(t *testing.T) {
	var gotLen int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body chatRequest
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotLen = len(body.Messages[1].Content)
		w.Write([]byte(chatOK("x")))
	}))
	defer srv.Close()

	cfg := testTransformConfig(srv.URL)
	cfg.MaxPromptChars = 100
	c := NewClient(nil, cfg)

	if _, _, err := c.Transform(context.Background(), strings.Repeat("a", 10000), "i", ""); err != nil {
		t.Fatal(err)
	}
	if gotLen > 200 {
		t.Errorf("user message length = %d, content not truncated", gotLen)
	}
}

func TestTransform_BearerAuth(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(chatOK("x")))
	}))
	defer srv.Close()

	cfg := testTransformConfig(srv.URL)
	cfg.APIKey = "sk-test"
	c := NewClient(nil, cfg)

	if _, _, err := c.Transform(context.Background(), "body", "i", ""); err != nil {
		t.Fatal(err)
	}
	if gotAuth != "Bearer sk-test" {
		t.Errorf("auth = %q", gotAuth)
	}
}

func TestTransform_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"rate limited","type":"rate_limit"}}`))
	}))
	defer srv.Close()

	c := NewClient(nil, testTransformConfig(srv.URL))
	_, _, err := c.Transform(context.Background(), "body", "i", "")
	if err == nil {
		t.Fatal("expected error")
	}

	var te *models.TaskError
	if !errors.As(err, &te) {
		t.Fatalf("error type = %T", err)
	}
	if te.Kind != models.ErrKindTransform {
		t.Errorf("kind = %s", te.Kind)
	}
	if !strings.Contains(te.Message, "rate limited") {
		t.Errorf("message = %q, upstream detail lost", te.Message)
	}
}

func TestTransform_EmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	c := NewClient(nil, testTransformConfig(srv.URL))
	if _, _, err := c.Transform(context.Background(), "body", "i", ""); err == nil {
		t.Error("empty choices should be an error")
	}
}

func TestEnabled(t *testing.T) {
	if NewClient(nil, config.TransformConfig{}).Enabled() {
		t.Error("empty base URL should disable the transform")
	}
	if !NewClient(nil, testTransformConfig("http://localhost:1")).Enabled() {
		t.Error("configured base URL should enable the transform")
	}
}

func TestPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			t.Errorf("path = %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	if !NewClient(nil, testTransformConfig(srv.URL)).Ping(context.Background()) {
		t.Error("reachable endpoint reported unreachable")
	}
	if NewClient(nil, testTransformConfig("http://127.0.0.1:1")).Ping(context.Background()) {
		t.Error("unreachable endpoint reported reachable")
	}
	if NewClient(nil, config.TransformConfig{}).Ping(context.Background()) {
		t.Error("unconfigured client must not ping")
	}
}
