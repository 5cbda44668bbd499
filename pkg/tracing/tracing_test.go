package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/angelmondragon/librarydesk-backend/pkg/config"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestSetupWithoutEndpointIsNoop(t *testing.T) {
	shutdown, err := Setup(context.Background(), config.TracingConfig{}, "librarydesk-test")
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestEndRecordsErrors(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	tracer := provider.Tracer("test")

	_, ok := tracer.Start(context.Background(), "ok")
	End(ok, nil)
	_, failed := tracer.Start(context.Background(), "failed")
	End(failed, errors.New("boom"))

	spans := recorder.Ended()
	if len(spans) != 2 {
		t.Fatalf("expected 2 ended spans, got %d", len(spans))
	}
	if spans[0].Status().Code != codes.Unset {
		t.Fatalf("expected unset status for success, got %v", spans[0].Status().Code)
	}
	if spans[1].Status().Code != codes.Error || spans[1].Status().Description != "boom" {
		t.Fatalf("expected error status, got %+v", spans[1].Status())
	}
	if len(spans[1].Events()) == 0 {
		t.Fatalf("expected recorded error event")
	}
}
