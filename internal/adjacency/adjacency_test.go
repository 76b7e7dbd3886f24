package adjacency

import (
	"reflect"
	"testing"
)

func TestSPIndex(t *testing.T) {
	idx := BuildSP([]Pair{
		{Key: 1, Value: 10}, {Key: 1, Value: 5}, {Key: 2, Value: 9}, {Key: 1, Value: 10},
	})

	if got, want := idx.Keys(), []uint64{1, 2}; !reflect.DeepEqual(got, want) {
		t.Fatalf("Keys() = %v, want %v", got, want)
	}
	got, ok := idx.Lookup(1)
	if !ok || !reflect.DeepEqual(got, []uint64{5, 10}) {
		t.Fatalf("Lookup(1) = %v,%v, want [5 10],true", got, ok)
	}
	if !idx.Has(1, 5) || !idx.Has(2, 9) {
		t.Fatal("Has should find staged pairs")
	}
	if idx.Has(1, 9) || idx.Has(3, 1) {
		t.Fatal("Has should not find absent pairs")
	}
	if _, ok := idx.Lookup(3); ok {
		t.Fatal("Lookup(3) should miss")
	}
}

func TestSPOIndex(t *testing.T) {
	idx := BuildSPO([]SPOTriple{
		{Subject: 1, Predicate: 2, Object: 100},
		{Subject: 1, Predicate: 2, Object: 50},
		{Subject: 1, Predicate: 3, Object: 7},
		{Subject: 1, Predicate: 2, Object: 100},
	})

	objs, ok := idx.Lookup(1, 2)
	if !ok || !reflect.DeepEqual(objs, []uint64{50, 100}) {
		t.Fatalf("Lookup(1,2) = %v,%v", objs, ok)
	}
	if !idx.Has(1, 2, 50) || !idx.Has(1, 3, 7) {
		t.Fatal("Has should find staged triples")
	}
	if idx.Has(1, 2, 999) {
		t.Fatal("Has should not find an absent object")
	}
}

func TestOSPIndexHasEarlyTermination(t *testing.T) {
	idx := BuildOSP([]SPOTriple{
		{Subject: 5, Predicate: 1, Object: 42},
		{Subject: 10, Predicate: 1, Object: 42},
		{Subject: 20, Predicate: 1, Object: 42},
	})

	pairs, ok := idx.Lookup(42)
	if !ok {
		t.Fatal("Lookup(42) should be found")
	}
	want := []SPKey{{Subject: 5, Predicate: 1}, {Subject: 10, Predicate: 1}, {Subject: 20, Predicate: 1}}
	if !reflect.DeepEqual(pairs, want) {
		t.Fatalf("Lookup(42) = %v, want %v", pairs, want)
	}
	if !idx.Has(42, 10, 1) {
		t.Fatal("Has(42,10,1) should be true")
	}
	if idx.Has(42, 15, 1) {
		t.Fatal("Has(42,15,1) should be false (no such pair, ascending scan should terminate)")
	}
	if idx.Has(42, 999, 1) {
		t.Fatal("Has(42,999,1) should be false: past the end of the ascending group")
	}
}

func TestBitsetRankSelect(t *testing.T) {
	bits := newBitset([]bool{false, true, false, false, true, true, false, true})
	if got, want := bits.len(), 8; got != want {
		t.Fatalf("len() = %d, want %d", got, want)
	}
	if got, want := bits.rank1(2), 1; got != want {
		t.Errorf("rank1(2) = %d, want %d", got, want)
	}
	if got, want := bits.rank1(6), 3; got != want {
		t.Errorf("rank1(6) = %d, want %d", got, want)
	}
	if got, want := bits.select1(0), 1; got != want {
		t.Errorf("select1(0) = %d, want %d", got, want)
	}
	if got, want := bits.select1(2), 5; got != want {
		t.Errorf("select1(2) = %d, want %d", got, want)
	}
	if got, want := bits.select1(3), 7; got != want {
		t.Errorf("select1(3) = %d, want %d", got, want)
	}
}
