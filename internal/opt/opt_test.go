package opt

import (
	"encoding/json"
	"testing"
)

func TestZeroValueIsAbsent(t *testing.T) {
	var v Value[float64]
	if v.Present() {
		t.Fatalf("zero value should be absent")
	}
	if got := v.OrElse(7); got != 7 {
		t.Fatalf("OrElse mismatch: %v", got)
	}
	if v.Ptr() != nil {
		t.Fatalf("Ptr should be nil for absent value")
	}
}

func TestSomeZeroIsPresent(t *testing.T) {
	v := Some(0.0)
	got, ok := v.Get()
	if !ok || got != 0 {
		t.Fatalf("Some(0) should be present: %v %v", got, ok)
	}
}

func TestMapAndFlatMap(t *testing.T) {
	double := func(f float64) float64 { return f * 2 }
	if got := Map(Some(2.0), double).OrElse(0); got != 4 {
		t.Fatalf("map mismatch: %v", got)
	}
	if Map(None[float64](), double).Present() {
		t.Fatalf("map of absent should be absent")
	}

	positive := func(f float64) Value[float64] {
		if f <= 0 {
			return None[float64]()
		}
		return Some(f)
	}
	if FlatMap(Some(-1.0), positive).Present() {
		t.Fatalf("flatmap should drop negative value")
	}
	if got := FlatMap(Some(3.0), positive).OrElse(0); got != 3 {
		t.Fatalf("flatmap mismatch: %v", got)
	}
}

func TestOr(t *testing.T) {
	if got := None[int]().Or(Some(5)).OrElse(0); got != 5 {
		t.Fatalf("Or fallback mismatch: %d", got)
	}
	if got := Some(1).Or(Some(5)).OrElse(0); got != 1 {
		t.Fatalf("Or should keep present value: %d", got)
	}
}

func TestJSONNull(t *testing.T) {
	type payload struct {
		A Value[float64] `json:"a"`
		B Value[float64] `json:"b"`
	}

	data, err := json.Marshal(payload{A: Some(1.5)})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(data) != `{"a":1.5,"b":null}` {
		t.Fatalf("unexpected json: %s", data)
	}

	var decoded payload
	if err := json.Unmarshal([]byte(`{"a":null,"b":2}`), &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if decoded.A.Present() {
		t.Fatalf("a should be absent")
	}
	if got := decoded.B.OrElse(0); got != 2 {
		t.Fatalf("b mismatch: %v", got)
	}
}
