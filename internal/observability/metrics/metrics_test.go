package metrics

import (
	"testing"

	"go.opentelemetry.io/otel/attribute"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("store_id", "123"),
		attribute.String("customer_email", "a@b.c"),
		attribute.String("country", "Peru"),
	)
	if len(attrs) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(attrs))
	}
	if attrs[0].Key != "store_id" && attrs[1].Key != "store_id" {
		t.Fatalf("expected store_id to be retained")
	}
	if attrs[0].Key != "country" && attrs[1].Key != "country" {
		t.Fatalf("expected country to be retained")
	}
}
