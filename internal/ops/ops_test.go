package ops

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/promptforge/promptforge/internal/config"
	"github.com/promptforge/promptforge/internal/db"
	"github.com/promptforge/promptforge/internal/llm"
)

// newTestDB opens a fresh sqlite store under a temp dir.
func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("db.Init failed: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}

// fakeInvoker is a canned-reply Invoker for tests.
type fakeInvoker struct {
	name  string
	reply string
	err   error
	delay time.Duration

	calls []llm.Request
}

func (f *fakeInvoker) Name() string { return f.name }

func (f *fakeInvoker) Invoke(ctx context.Context, req llm.Request) (string, error) {
	f.calls = append(f.calls, req)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.reply, f.err
}

// fakeFactory resolves provider names against a fixed invoker set.
type fakeFactory struct {
	invokers map[string]*fakeInvoker
}

func (f *fakeFactory) Provider(name string) (llm.Invoker, error) {
	inv, ok := f.invokers[name]
	if !ok {
		return nil, fmt.Errorf("unsupported provider: %s", name)
	}
	return inv, nil
}

func floatPtr(f float64) *float64 { return &f }

func TestResolveCategory_Default(t *testing.T) {
	got, err := resolveCategory("", config.DefaultConfig())
	if err != nil {
		t.Fatalf("resolveCategory failed: %v", err)
	}
	if got != "general" {
		t.Errorf("category = %q, want general", got)
	}
}

func TestResolveCategory_Known(t *testing.T) {
	got, err := resolveCategory("trading", config.DefaultConfig())
	if err != nil {
		t.Fatalf("resolveCategory failed: %v", err)
	}
	if got != "trading" {
		t.Errorf("category = %q, want trading", got)
	}
}

func TestResolveCategory_Unknown(t *testing.T) {
	if _, err := resolveCategory("astrology", config.DefaultConfig()); err == nil {
		t.Error("unknown category should be rejected")
	}
}

func TestResolveCategory_CustomAllowed(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.AllowCustomCategories = true

	got, err := resolveCategory("astrology", cfg)
	if err != nil {
		t.Fatalf("resolveCategory failed: %v", err)
	}
	if got != "astrology" {
		t.Errorf("category = %q, want astrology", got)
	}
}

func TestResolveCategory_ConfiguredExtra(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Categories = []string{"compliance"}

	got, err := resolveCategory("compliance", cfg)
	if err != nil {
		t.Fatalf("resolveCategory failed: %v", err)
	}
	if got != "compliance" {
		t.Errorf("category = %q, want compliance", got)
	}
}

func TestUnfence(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{`{"a": 1}`, `{"a": 1}`},
		{"```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"```\n{\"a\": 1}\n```", `{"a": 1}`},
		{"```json\n{\"a\": 1}\n```\n", `{"a": 1}`},
		{"  {\"a\": 1}  ", `{"a": 1}`},
	}
	for _, c := range cases {
		if got := unfence(c.in); got != c.want {
			t.Errorf("unfence(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestDiffVariables(t *testing.T) {
	undeclared, unused := diffVariables("use {a} and {b}", []string{"b", "c"})
	if !reflect.DeepEqual(undeclared, []string{"a"}) {
		t.Errorf("undeclared = %v, want [a]", undeclared)
	}
	if !reflect.DeepEqual(unused, []string{"c"}) {
		t.Errorf("unused = %v, want [c]", unused)
	}
}

func TestDiffVariables_Match(t *testing.T) {
	undeclared, unused := diffVariables("use {a}", []string{"a"})
	if undeclared != nil || unused != nil {
		t.Errorf("matching declaration should yield no diffs: %v %v", undeclared, unused)
	}
}

func TestGenerateULID(t *testing.T) {
	a, err := generateULID()
	if err != nil {
		t.Fatalf("generateULID failed: %v", err)
	}
	b, err := generateULID()
	if err != nil {
		t.Fatalf("generateULID failed: %v", err)
	}
	if len(a) != 26 {
		t.Errorf("ULID length = %d, want 26", len(a))
	}
	if a == b {
		t.Error("consecutive ULIDs should differ")
	}
}
