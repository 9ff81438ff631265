package jsonx

import "testing"

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestDecodeObject_WithSurroundingProse(t *testing.T) {
	response := "Here is the result:\n```json\n{\"name\": \"a\", \"count\": 2}\n```\nDone."

	var p payload
	if err := DecodeObject(response, &p); err != nil {
		t.Fatalf("DecodeObject failed: %v", err)
	}
	if p.Name != "a" {
		t.Errorf("Name = %q, want %q", p.Name, "a")
	}
	if p.Count != 2 {
		t.Errorf("Count = %d, want 2", p.Count)
	}
}

func TestDecodeObject_NoJSON(t *testing.T) {
	var p payload
	err := DecodeObject("no json here", &p)
	if err == nil {
		t.Fatal("expected error for response without JSON")
	}
}

func TestDecodeObject_MalformedJSON(t *testing.T) {
	var p payload
	err := DecodeObject("{not valid json}", &p)
	if err == nil {
		t.Fatal("expected error for malformed JSON")
	}
}

func TestDecodeArray_WithSurroundingProse(t *testing.T) {
	response := `The items are: [{"name":"x","count":1},{"name":"y","count":2}] as requested.`

	var items []payload
	if err := DecodeArray(response, &items); err != nil {
		t.Fatalf("DecodeArray failed: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
	if items[1].Name != "y" {
		t.Errorf("items[1].Name = %q, want %q", items[1].Name, "y")
	}
}

func TestObjectOr_FallbackOnGarbage(t *testing.T) {
	fallback := payload{Name: "default"}

	got, usedFallback := ObjectOr("garbage", fallback)
	if !usedFallback {
		t.Error("expected fallback to be used")
	}
	if got.Name != "default" {
		t.Errorf("Name = %q, want %q", got.Name, "default")
	}

	got, usedFallback = ObjectOr(`{"name":"real"}`, fallback)
	if usedFallback {
		t.Error("fallback should not be used for valid JSON")
	}
	if got.Name != "real" {
		t.Errorf("Name = %q, want %q", got.Name, "real")
	}
}

func TestArrayOr_FallbackOnEmptyArray(t *testing.T) {
	fallback := []payload{{Name: "default"}}

	got, usedFallback := ArrayOr("[]", fallback)
	if !usedFallback {
		t.Error("expected fallback for empty array")
	}
	if len(got) != 1 || got[0].Name != "default" {
		t.Errorf("got %v, want fallback", got)
	}
}

func TestArrayOr_FallbackOnMalformed(t *testing.T) {
	fallback := []payload{{Name: "default"}}

	got, usedFallback := ArrayOr("[{broken]", fallback)
	if !usedFallback {
		t.Error("expected fallback for malformed array")
	}
	if len(got) != 1 {
		t.Errorf("got %d items, want 1", len(got))
	}
}

func TestDecodeObject_NestedBraces(t *testing.T) {
	response := `prefix {"name":"outer","count":1} suffix`

	var p payload
	if err := DecodeObject(response, &p); err != nil {
		t.Fatalf("DecodeObject failed: %v", err)
	}
	if p.Name != "outer" {
		t.Errorf("Name = %q, want %q", p.Name, "outer")
	}
}
