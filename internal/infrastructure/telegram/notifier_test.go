package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestPublishDigest(t *testing.T) {
	t.Parallel()

	texts := make(chan string, 4)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bottoken/sendMessage" {
			http.NotFound(w, r)
			return
		}
		if err := r.ParseForm(); err != nil || r.PostForm.Get("chat_id") != "42" || r.PostForm.Get("parse_mode") != "Markdown" {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		texts <- r.PostForm.Get("text")
	}))
	defer server.Close()

	n := NewNotifier("token", "42", server.URL+"/")
	if err := n.PublishDigest(context.Background(), "*Regulatory digest*\n1 urgent update"); err != nil {
		t.Fatalf("PublishDigest: %v", err)
	}
	if got := <-texts; !strings.HasPrefix(got, "*Regulatory digest*") {
		t.Fatalf("unexpected text: %q", got)
	}

	bad := NewNotifier("wrong", "42", server.URL)
	if err := bad.PublishDigest(context.Background(), "x"); err == nil {
		t.Fatal("expected status error")
	}
	if err := NewNotifier("", "", "").PublishDigest(context.Background(), "x"); err == nil {
		t.Fatal("expected misconfiguration error")
	}
}

func TestSplitMessage(t *testing.T) {
	t.Parallel()

	if parts := splitMessage("short", 10); len(parts) != 1 || parts[0] != "short" {
		t.Fatalf("unexpected parts: %q", parts)
	}

	parts := splitMessage("aaaa\nbbbb\ncccc", 10)
	if len(parts) != 2 || parts[0] != "aaaa\nbbbb" || parts[1] != "cccc" {
		t.Fatalf("unexpected parts: %q", parts)
	}

	parts = splitMessage(strings.Repeat("x", 25), 10)
	if len(parts) != 3 || len(parts[2]) != 5 {
		t.Fatalf("unexpected long-line split: %q", parts)
	}
	for _, p := range parts {
		if len([]rune(p)) > 10 {
			t.Fatalf("part exceeds limit: %q", p)
		}
	}
}
