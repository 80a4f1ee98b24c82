package service

import (
	"context"
	"testing"
)

func TestGenerateToken(t *testing.T) {
	token, err := GenerateToken()
	if err != nil {
		t.Fatalf("GenerateToken error: %v", err)
	}
	if len(token) != TokenLength {
		t.Fatalf("expected %d chars, got %d", TokenLength, len(token))
	}
	if !IsWellFormedToken(token) {
		t.Fatalf("generated token %q rejected by IsWellFormedToken", token)
	}
}

func TestIsWellFormedToken(t *testing.T) {
	cases := []struct {
		token string
		want  bool
	}{
		{token: "0123456789abcdef0123456789abcdef", want: true},
		{token: "0123456789ABCDEF0123456789abcdef", want: false},
		{token: "0123456789abcdef", want: false},
		{token: "does-not-exist", want: false},
		{token: "0123456789abcdef0123456789abcdeg", want: false},
		{token: "0123456789abcdef0123456789abcdef0", want: false},
	}
	for _, tc := range cases {
		if got := IsWellFormedToken(tc.token); got != tc.want {
			t.Errorf("IsWellFormedToken(%q) = %v, want %v", tc.token, got, tc.want)
		}
	}
}

func TestTokenFilter_Warm(t *testing.T) {
	repo := newMemoryLinkRepository()
	repo.links[1] = repoLink(1, "stored-one")
	repo.links[2] = repoLink(2, "stored-two")

	filter := NewTokenFilter(0, 0)
	n, err := filter.Warm(context.Background(), repo)
	if err != nil {
		t.Fatalf("Warm error: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 tokens warmed, got %d", n)
	}
	if !filter.MayContain("stored-one") || !filter.MayContain("stored-two") {
		t.Fatal("warmed tokens must be reported as present")
	}
}

func TestTokenFilter_Saturated(t *testing.T) {
	filter := NewTokenFilter(2, 0.01)
	filter.Add("one")
	filter.Add("two")
	if filter.Saturated() {
		t.Fatal("filter at capacity should not be saturated")
	}

	filter.Add("three")
	if !filter.Saturated() {
		t.Fatal("filter past capacity should be saturated")
	}

	repo := newMemoryLinkRepository()
	repo.links[1] = repoLink(1, "stored-one")
	warmed := NewTokenFilter(1, 0.01)
	if _, err := warmed.Warm(context.Background(), repo); err != nil {
		t.Fatalf("Warm error: %v", err)
	}
	if warmed.Saturated() {
		t.Fatal("one warmed token should fit a filter sized for one")
	}
	warmed.Add("fresh")
	if !warmed.Saturated() {
		t.Fatal("warmed tokens must count toward capacity")
	}
}
