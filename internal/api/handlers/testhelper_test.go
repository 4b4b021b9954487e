package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hoanghai1803/sprout/internal/ai"
	"github.com/hoanghai1803/sprout/internal/pipeline"
	"github.com/hoanghai1803/sprout/internal/storage"
)

// newTestStore creates an in-memory SQLite store with migrations applied. It
// registers a cleanup function to close the database when the test
// completes.
func newTestStore(t *testing.T) *storage.Store {
	t.Helper()

	db, err := storage.OpenDatabase(":memory:")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := storage.RunMigrations(context.Background(), db); err != nil {
		t.Fatalf("running migrations: %v", err)
	}

	return storage.NewStore(db)
}

// fakeProvider is a chat-completion endpoint. Title requests get title,
// article requests get the next entry of articles (the last one repeats).
type fakeProvider struct {
	title    string
	articles []string
	status   int

	calls int
}

func (p *fakeProvider) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if p.status != 0 {
		w.WriteHeader(p.status)
		w.Write([]byte(`{"error":{"message":"provider says no"}}`))
		return
	}

	var req struct {
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	json.NewDecoder(r.Body).Decode(&req)

	text := p.title
	if len(req.Messages) == 0 || !strings.Contains(req.Messages[0].Content, "blog titles") {
		text = p.articles[min(p.calls, len(p.articles)-1)]
		p.calls++
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"choices": []map[string]any{{
			"message": map[string]any{"role": "assistant", "content": text},
		}},
	})
}

// newGenerator wires a real pipeline to store and an httptest provider.
func newGenerator(t *testing.T, store *storage.Store, provider http.Handler, opts ...pipeline.Option) *pipeline.Generator {
	t.Helper()
	srv := httptest.NewServer(provider)
	t.Cleanup(srv.Close)

	cfg := pipeline.DefaultConfig()
	cfg.SiteURL = "https://sprout.test"
	cfg.DefaultProvider = ai.ProviderConfig{
		ModelName:   "gpt-4o-mini",
		EndpointURL: srv.URL + "/v1/chat/completions",
		AuthType:    ai.AuthBearer,
		APIKeyEnv:   "TEST_PROVIDER_KEY",
	}

	adapter := ai.NewAdapter(5*time.Second, func(string) string { return "test-key" })
	return pipeline.NewGenerator(store, adapter, cfg, opts...)
}

// articleOfWords returns an article JSON whose body has n words.
func articleOfWords(title string, n int) string {
	words := make([]string, n)
	for i := range words {
		words[i] = fmt.Sprintf("word%d", i)
	}
	data, _ := json.Marshal(map[string]any{
		"title":          title,
		"seoTitle":       title,
		"seoDescription": "Ideas for parents.",
		"excerpt":        "Ideas for parents.",
		"body":           strings.Join(words, " "),
		"faq":            []map[string]string{{"question": "Is it hard?", "answer": "No."}},
	})
	return string(data)
}
