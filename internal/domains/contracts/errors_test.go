package contracts

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestWrapCategorizedError_NewErrorUsesProvidedCategory(t *testing.T) {
	wrapped := WrapCategorizedError(ErrorCategoryCrypto, errors.New("boom"))
	var classified *CategorizedError
	if !errors.As(wrapped, &classified) {
		t.Fatalf("expected categorized error, got %T", wrapped)
	}
	if classified.Category != ErrorCategoryCrypto {
		t.Fatalf("expected category=%q, got %q", ErrorCategoryCrypto, classified.Category)
	}
}

func TestWrapCategorizedError_NormalizesUnknownCategoryToAPI(t *testing.T) {
	wrapped := WrapCategorizedError("unknown", errors.New("boom"))
	if got := ErrorCategory(wrapped); got != ErrorCategoryAPI {
		t.Fatalf("expected category=%q, got %q", ErrorCategoryAPI, got)
	}
}

func TestWrapCategorizedError_KeepsExistingCategoryAndChain(t *testing.T) {
	inner := WrapCategorizedError(ErrorCategoryNetwork, context.DeadlineExceeded)
	outer := WrapCategorizedError(ErrorCategoryStorage, fmt.Errorf("register: %w", inner))
	if got := ErrorCategory(outer); got != ErrorCategoryNetwork {
		t.Fatalf("expected inner category to win, got %q", got)
	}
	if !errors.Is(outer, context.DeadlineExceeded) {
		t.Fatal("wrapped chain must stay inspectable")
	}
}

func TestErrorCategory_DefaultsToAPIForRegularErrors(t *testing.T) {
	if got := ErrorCategory(errors.New("plain")); got != ErrorCategoryAPI {
		t.Fatalf("expected default category=%q, got %q", ErrorCategoryAPI, got)
	}
	if WrapCategorizedError(ErrorCategoryAPI, nil) != nil {
		t.Fatal("nil error must stay nil")
	}
}
