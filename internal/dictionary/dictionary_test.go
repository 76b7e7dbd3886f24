package dictionary

import "testing"

func TestBuildRoundTrip(t *testing.T) {
	strs := []string{"banana", "apple", "cherry", "date", "apple", "fig", "grape"}
	d := Build(strs, 3)

	if got, want := d.Size(), 6; got != want {
		t.Fatalf("Size() = %d, want %d", got, want)
	}

	sorted := []string{"apple", "banana", "cherry", "date", "fig", "grape"}
	for i, s := range sorted {
		id, ok := d.IDOf(s)
		if !ok {
			t.Fatalf("IDOf(%q): not found", s)
		}
		if id != uint64(i+1) {
			t.Errorf("IDOf(%q) = %d, want %d", s, id, i+1)
		}
		got, ok := d.StringOf(id)
		if !ok || got != s {
			t.Errorf("StringOf(%d) = %q,%v, want %q,true", id, got, ok, s)
		}
	}
}

func TestIDOfMissing(t *testing.T) {
	d := Build([]string{"a", "m", "z"}, 2)
	if _, ok := d.IDOf("q"); ok {
		t.Fatal("IDOf(\"q\") should not be found")
	}
	if _, ok := d.IDOf("aa"); ok {
		t.Fatal("IDOf(\"aa\") should not be found")
	}
}

func TestStringOfOutOfRange(t *testing.T) {
	d := Build([]string{"a", "b"}, 4)
	if _, ok := d.StringOf(0); ok {
		t.Fatal("StringOf(0) should be out of range")
	}
	if _, ok := d.StringOf(3); ok {
		t.Fatal("StringOf(3) should be out of range")
	}
}

func TestEmptyDictionary(t *testing.T) {
	d := Build(nil, 4)
	if d.Size() != 0 {
		t.Fatalf("Size() = %d, want 0", d.Size())
	}
	if _, ok := d.IDOf("anything"); ok {
		t.Fatal("IDOf on empty dictionary should miss")
	}
}

func TestBuildOrderIndependence(t *testing.T) {
	a := Build([]string{"z", "a", "m", "q", "b"}, 2)
	b := Build([]string{"b", "q", "m", "a", "z"}, 2)
	for _, s := range []string{"a", "b", "m", "q", "z"} {
		ida, _ := a.IDOf(s)
		idb, _ := b.IDOf(s)
		if ida != idb {
			t.Errorf("id of %q differs by build order: %d vs %d", s, ida, idb)
		}
	}
}
