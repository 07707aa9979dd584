package telemetry

import "testing"

func TestDefaultResource(t *testing.T) {
	r := DefaultResource()
	if r.Attributes["service.name"] != "worldengine" {
		t.Errorf("service.name = %v, want worldengine", r.Attributes["service.name"])
	}
}

func TestResourceWithPackID(t *testing.T) {
	r := ResourceWithPackID("pack-1")
	if r.Attributes["pack.id"] != "pack-1" {
		t.Errorf("pack.id = %v, want pack-1", r.Attributes["pack.id"])
	}
	if r.Attributes["service.name"] != "worldengine" {
		t.Errorf("service.name = %v, want worldengine", r.Attributes["service.name"])
	}
}

func TestSpanStatusCodes(t *testing.T) {
	s := &SpanStatus{Code: StatusCodeError, Message: "boom"}
	if s.Code != StatusCodeError {
		t.Errorf("Code = %v, want StatusCodeError", s.Code)
	}
	if s.Message != "boom" {
		t.Errorf("Message = %v, want boom", s.Message)
	}
}

func TestSpanKindValues(t *testing.T) {
	kinds := []SpanKind{SpanKindUnspecified, SpanKindInternal, SpanKindServer, SpanKindClient, SpanKindProducer, SpanKindConsumer}
	for i, k := range kinds {
		if int(k) != i {
			t.Errorf("SpanKind %d has value %d", i, int(k))
		}
	}
}
