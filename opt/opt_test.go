package opt

import (
	"encoding/json"
	"testing"
)

func TestIndex(t *testing.T) {
	var none Index[int]
	if none.Valid() {
		t.Errorf("zero Index is valid")
	}
	if v := none.Or(-1); v != -1 {
		t.Errorf("None.Or(-1)=%d; expected -1", v)
	}
	some := Of(5)
	if v, ok := some.Get(); !ok || v != 5 {
		t.Errorf("Of(5).Get()=%d,%t; expected 5,true", v, ok)
	}
	if some.String() != "5" || none.String() != "none" {
		t.Errorf("unexpected strings %q %q", some.String(), none.String())
	}
}

func TestIndexMustGetPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Errorf("MustGet on None did not panic")
		}
	}()
	None[int]().MustGet()
}

func TestIndexJSON(t *testing.T) {
	in := []Index[int]{Of(3), None[int](), Of(0)}
	data, err := json.Marshal(in)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "[3,null,0]" {
		t.Errorf("json.Marshal=%s; expected [3,null,0]", data)
	}
	var out []Index[int]
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatal(err)
	}
	for i := range in {
		if in[i] != out[i] {
			t.Errorf("index %d: got %v; expected %v", i, out[i], in[i])
		}
	}
}
