package errors

import (
	"fmt"
	"net/http"
	"testing"
)

func TestNotReadyMessage(t *testing.T) {
	err := NotReady()
	if err.Message != "Transcriber not ready" {
		t.Fatalf("unexpected message: %q", err.Message)
	}
	if err.HTTPStatus != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", err.HTTPStatus)
	}
}

func TestUnwrap(t *testing.T) {
	cause := fmt.Errorf("boom")
	err := Engine(cause)
	if err.Unwrap() != cause {
		t.Fatal("expected cause to unwrap")
	}
}

func TestAsAppErrorThroughWrapping(t *testing.T) {
	inner := AudioNotFound("foo.ogg", nil)
	wrapped := fmt.Errorf("download: %w", inner)

	appErr, ok := AsAppError(wrapped)
	if !ok {
		t.Fatal("expected AppError through wrap chain")
	}
	if appErr.Code != ErrCodeNotFound {
		t.Fatalf("expected NOT_FOUND, got %s", appErr.Code)
	}
	if appErr.HTTPStatus != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", appErr.HTTPStatus)
	}
}

func TestHasCode(t *testing.T) {
	if !HasCode(Conversion("bad header"), ErrCodeConversion) {
		t.Fatal("expected CONVERSION_FAILED code")
	}
	if HasCode(fmt.Errorf("plain"), ErrCodeConversion) {
		t.Fatal("plain error must not match")
	}
}
