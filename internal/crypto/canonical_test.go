package crypto

import "testing"

func TestCanonicalSortsTopLevelKeys(t *testing.T) {
	a := map[string]interface{}{"b": 1, "a": 2}
	out, err := Canonical(a)
	if err != nil {
		t.Fatalf("canonical: %v", err)
	}
	want := `{"a":2,"b":1}`
	if out != want {
		t.Fatalf("want %s, got %s", want, out)
	}
}

func TestCanonicalSortsNestedKeys(t *testing.T) {
	a := map[string]interface{}{
		"outer": map[string]interface{}{"z": 1, "y": 2},
	}
	out, err := Canonical(a)
	if err != nil {
		t.Fatalf("canonical: %v", err)
	}
	want := `{"outer":{"y":2,"z":1}}`
	if out != want {
		t.Fatalf("want %s, got %s", want, out)
	}
}

func TestCanonicalIgnoresStructFieldOrder(t *testing.T) {
	type fieldsAB struct {
		A int `json:"a"`
		B int `json:"b"`
	}
	type fieldsBA struct {
		B int `json:"b"`
		A int `json:"a"`
	}

	ab, err := Canonical(fieldsAB{A: 1, B: 2})
	if err != nil {
		t.Fatalf("canonical: %v", err)
	}
	ba, err := Canonical(fieldsBA{A: 1, B: 2})
	if err != nil {
		t.Fatalf("canonical: %v", err)
	}
	if ab != ba {
		t.Fatalf("expected struct field declaration order to be irrelevant: %s != %s", ab, ba)
	}
}
