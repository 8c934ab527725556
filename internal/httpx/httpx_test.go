package httpx

import (
	"net/url"
	"strings"
	"testing"
)

func TestDecodeJSONRejectsUnknownAndTrailing(t *testing.T) {
	var v struct {
		Field string `json:"field"`
	}
	if err := DecodeJSON(strings.NewReader(`{"field":"name"}`), &v); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Field != "name" {
		t.Fatalf("field = %q", v.Field)
	}
	if err := DecodeJSON(strings.NewReader(`{"other":1}`), &v); err == nil {
		t.Fatalf("expected unknown field error")
	}
	if err := DecodeJSON(strings.NewReader(`{"field":"a"}{"field":"b"}`), &v); err == nil {
		t.Fatalf("expected trailing data error")
	}
}

func TestParseLimitOffset(t *testing.T) {
	limit, offset, err := ParseLimitOffset(url.Values{"limit": {"500"}, "offset": {"40"}}, 20, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if limit != 100 || offset != 40 {
		t.Fatalf("got limit=%d offset=%d", limit, offset)
	}

	limit, offset, err = ParseLimitOffset(url.Values{}, 20, 100)
	if err != nil || limit != 20 || offset != 0 {
		t.Fatalf("defaults: limit=%d offset=%d err=%v", limit, offset, err)
	}

	if _, _, err := ParseLimitOffset(url.Values{"limit": {"0"}}, 20, 100); err == nil {
		t.Fatalf("expected error for zero limit")
	}
	if _, _, err := ParseLimitOffset(url.Values{"offset": {"-1"}}, 20, 100); err == nil {
		t.Fatalf("expected error for negative offset")
	}
}

func TestQueryInt(t *testing.T) {
	v, err := QueryInt(url.Values{"size": {" 200 "}}, "size", 150)
	if err != nil || v != 200 {
		t.Fatalf("got %d, %v", v, err)
	}
	v, err = QueryInt(url.Values{}, "size", 150)
	if err != nil || v != 150 {
		t.Fatalf("fallback: got %d, %v", v, err)
	}
	if _, err := QueryInt(url.Values{"size": {"big"}}, "size", 150); err == nil || err.Error() != "invalid size" {
		t.Fatalf("expected invalid size, got %v", err)
	}
}
