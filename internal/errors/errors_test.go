package errors

import (
	"fmt"
	"testing"
)

func TestNewInvalidRequest(t *testing.T) {
	err := NewInvalidRequest("name is required")
	if err.Code != ErrInvalidRequest {
		t.Errorf("Code = %q, want %q", err.Code, ErrInvalidRequest)
	}
	if err.Status != 400 {
		t.Errorf("Status = %d, want 400", err.Status)
	}
	if err.Message != "name is required" {
		t.Errorf("Message = %q", err.Message)
	}
}

func TestNewNotFound(t *testing.T) {
	err := NewNotFound("01ABC")
	if err.Code != ErrNotFound || err.Status != 404 {
		t.Errorf("Code/Status = %q/%d, want NOT_FOUND/404", err.Code, err.Status)
	}
	if err.Details["identifier"] != "01ABC" {
		t.Errorf("Details[identifier] = %v, want 01ABC", err.Details["identifier"])
	}
}

func TestNewProvider(t *testing.T) {
	err := NewProvider("openai", fmt.Errorf("connection refused"))
	if err.Code != ErrProvider || err.Status != 502 {
		t.Errorf("Code/Status = %q/%d, want PROVIDER_ERROR/502", err.Code, err.Status)
	}
	if err.Message != "openai: connection refused" {
		t.Errorf("Message = %q", err.Message)
	}
	if err.Details["provider"] != "openai" {
		t.Errorf("Details[provider] = %v", err.Details["provider"])
	}
}

func TestNewProvider_NilError(t *testing.T) {
	err := NewProvider("gemini", nil)
	if err.Message != "gemini: provider call failed" {
		t.Errorf("Message = %q", err.Message)
	}
}

func TestNewGeneration(t *testing.T) {
	err := NewGeneration(fmt.Errorf("reply missing required field"))
	if err.Code != ErrGeneration || err.Status != 502 {
		t.Errorf("Code/Status = %q/%d, want GENERATION_ERROR/502", err.Code, err.Status)
	}
}

func TestNewStorage(t *testing.T) {
	err := NewStorage(fmt.Errorf("disk full"))
	if err.Code != ErrStorage || err.Status != 500 {
		t.Errorf("Code/Status = %q/%d, want STORAGE/500", err.Code, err.Status)
	}
}

func TestNewInternal(t *testing.T) {
	err := NewInternal(nil)
	if err.Code != ErrInternal || err.Status != 500 {
		t.Errorf("Code/Status = %q/%d, want INTERNAL/500", err.Code, err.Status)
	}
	if err.Message != "internal error" {
		t.Errorf("Message = %q", err.Message)
	}
}

func TestErrorString(t *testing.T) {
	err := NewInvalidRequest("bad input")
	want := "INVALID_REQUEST: bad input"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestIs(t *testing.T) {
	err := NewNotFound("x")
	if !Is(err, ErrNotFound) {
		t.Error("Is should match the error's code")
	}
	if Is(err, ErrInvalidRequest) {
		t.Error("Is should not match a different code")
	}
	if Is(fmt.Errorf("plain"), ErrNotFound) {
		t.Error("Is should not match a non-ForgeError")
	}
	if Is(nil, ErrNotFound) {
		t.Error("Is should not match nil")
	}
}
