// Package ops implements the public operations of the template engine.
// Every surface (CLI, shell, web, MCP) calls these and nothing below them.
package ops

import (
	"crypto/rand"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/promptforge/promptforge/internal/config"
	"github.com/promptforge/promptforge/internal/errors"
	"github.com/promptforge/promptforge/internal/prompt"
)

// generateULID generates a new ULID.
func generateULID() (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// resolveCategory defaults and validates a category against the known set.
func resolveCategory(category string, cfg *config.Config) (string, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return "general", nil
	}
	if cfg.AllowCustomCategories {
		return category, nil
	}
	if !prompt.KnownCategory(category, cfg.AllCategories(prompt.DefaultCategories)) {
		return "", errors.NewInvalidRequest("unknown category: " + category)
	}
	return category, nil
}

// unfence strips a surrounding markdown code fence from a model reply, if
// present, so the strict JSON parse sees the payload itself.
func unfence(reply string) string {
	trimmed := strings.TrimSpace(reply)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}

	lines := strings.Split(trimmed, "\n")
	if len(lines) < 2 {
		return trimmed
	}

	// Drop the opening fence line (``` or ```json) and a closing fence line.
	lines = lines[1:]
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	if len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "```" {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// diffVariables compares declared variables against the placeholders present
// in body. Returns placeholders missing from the declaration and declared
// variables that never appear.
func diffVariables(body string, declared []string) (undeclared, unused []string) {
	present := prompt.Placeholders(body)

	declaredSet := make(map[string]bool, len(declared))
	for _, v := range declared {
		declaredSet[v] = true
	}
	presentSet := make(map[string]bool, len(present))
	for _, v := range present {
		presentSet[v] = true
	}

	for _, v := range present {
		if !declaredSet[v] {
			undeclared = append(undeclared, v)
		}
	}
	for _, v := range declared {
		if !presentSet[v] {
			unused = append(unused, v)
		}
	}
	return undeclared, unused
}
