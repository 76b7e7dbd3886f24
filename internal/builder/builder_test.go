package builder_test

import (
	"errors"
	"testing"

	"github.com/arclayer/layerstore/internal/builder"
	"github.com/arclayer/layerstore/internal/ids"
	"github.com/arclayer/layerstore/internal/triple"
)

func mustName(t *testing.T) ids.Name {
	t.Helper()
	n, err := ids.New()
	if err != nil {
		t.Fatalf("ids.New(): %v", err)
	}
	return n
}

func TestCommitBaseLayer(t *testing.T) {
	b := builder.New(nil)
	if err := b.AddStringTriple(triple.NewNode("alice", "knows", "bob")); err != nil {
		t.Fatalf("AddStringTriple: %v", err)
	}
	if err := b.AddStringTriple(triple.NewValue("alice", "age", "30")); err != nil {
		t.Fatalf("AddStringTriple: %v", err)
	}

	l, err := b.Commit(mustName(t))
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if !l.IsBase() {
		t.Fatal("layer built with a nil parent should be a base layer")
	}

	sid, ok := l.SubjectID("alice")
	if !ok {
		t.Fatal("alice should resolve")
	}
	pid, _ := l.PredicateID("knows")
	oid, ok := l.ObjectNodeID("bob")
	if !ok {
		t.Fatal("bob should resolve as a node")
	}
	if !l.TripleExists(sid, pid, oid) {
		t.Fatal("expected (alice,knows,bob) to exist")
	}

	vpid, _ := l.PredicateID("age")
	vid, ok := l.ObjectValueID("30")
	if !ok {
		t.Fatal("30 should resolve as a value")
	}
	if !l.TripleExists(sid, vpid, vid) {
		t.Fatal("expected (alice,age,30) to exist")
	}
}

func TestCommitIsSingleUse(t *testing.T) {
	b := builder.New(nil)
	if _, err := b.Commit(mustName(t)); err != nil {
		t.Fatalf("first Commit: %v", err)
	}
	if _, err := b.Commit(mustName(t)); err != builder.ErrBuilderConsumed {
		t.Fatalf("second Commit: got %v, want ErrBuilderConsumed", err)
	}
	if err := b.AddStringTriple(triple.NewNode("a", "p", "b")); err != builder.ErrBuilderConsumed {
		t.Fatalf("staging after commit: got %v, want ErrBuilderConsumed", err)
	}
}

func TestChildBuilderAddAndRemove(t *testing.T) {
	base := builder.New(nil)
	base.AddStringTriple(triple.NewNode("alice", "knows", "bob"))
	base.AddStringTriple(triple.NewNode("alice", "knows", "carol"))
	baseLayer, err := base.Commit(mustName(t))
	if err != nil {
		t.Fatalf("base Commit: %v", err)
	}

	child := builder.New(baseLayer)
	child.AddStringTriple(triple.NewNode("alice", "knows", "dave"))
	child.RemoveStringTriple(triple.NewNode("alice", "knows", "bob"))
	childLayer, err := child.Commit(mustName(t))
	if err != nil {
		t.Fatalf("child Commit: %v", err)
	}

	if childLayer.IsBase() {
		t.Fatal("a layer with a parent must not report IsBase")
	}
	if !baseLayer.IsAncestorOf(childLayer) {
		t.Fatal("base should be an ancestor of child")
	}

	sid, _ := childLayer.SubjectID("alice")
	pid, _ := childLayer.PredicateID("knows")

	bobID, _ := childLayer.ObjectNodeID("bob")
	if childLayer.TripleExists(sid, pid, bobID) {
		t.Fatal("removed triple should not exist in child")
	}
	carolID, _ := childLayer.ObjectNodeID("carol")
	if !childLayer.TripleExists(sid, pid, carolID) {
		t.Fatal("untouched triple should still exist in child")
	}
	daveID, _ := childLayer.ObjectNodeID("dave")
	if !childLayer.TripleExists(sid, pid, daveID) {
		t.Fatal("newly added triple should exist in child")
	}

	// The parent layer itself must remain untouched.
	if !baseLayer.TripleExists(sid, pid, bobID) {
		t.Fatal("child removal must not affect the parent layer")
	}
}

func TestCommitDropsNetNoOps(t *testing.T) {
	base := builder.New(nil)
	base.AddStringTriple(triple.NewNode("alice", "knows", "bob"))
	baseLayer, err := base.Commit(mustName(t))
	if err != nil {
		t.Fatalf("base Commit: %v", err)
	}

	child := builder.New(baseLayer)
	// Staging the exact same triple as both an addition and a removal in
	// one commit should cancel out: the triple must not exist afterward.
	child.AddStringTriple(triple.NewNode("alice", "knows", "eve"))
	child.RemoveStringTriple(triple.NewNode("alice", "knows", "eve"))
	childLayer, err := child.Commit(mustName(t))
	if err != nil {
		t.Fatalf("child Commit: %v", err)
	}

	sid, _ := childLayer.SubjectID("alice")
	pid, _ := childLayer.PredicateID("knows")
	eveID, ok := childLayer.ObjectNodeID("eve")
	if !ok {
		t.Fatal("eve was staged and should still resolve to an id even though its only triple netted to zero")
	}
	if childLayer.TripleExists(sid, pid, eveID) {
		t.Fatal("a triple staged as both an addition and a removal in the same commit must not exist")
	}
}

func TestAddIDTripleAgainstKnownParentIDs(t *testing.T) {
	base := builder.New(nil)
	base.AddStringTriple(triple.NewNode("alice", "knows", "bob"))
	base.AddStringTriple(triple.NewValue("alice", "age", "30"))
	baseLayer, err := base.Commit(mustName(t))
	if err != nil {
		t.Fatalf("base Commit: %v", err)
	}

	aliceID, _ := baseLayer.SubjectID("alice")
	knowsID, _ := baseLayer.PredicateID("knows")

	child := builder.New(baseLayer)
	if err := child.AddStringTriple(triple.NewNode("alice", "knows", "carol")); err != nil {
		t.Fatalf("AddStringTriple: %v", err)
	}
	carolLayer, err := child.Commit(mustName(t))
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	carolID, ok := carolLayer.ObjectNodeID("carol")
	if !ok {
		t.Fatal("carol should resolve after commit")
	}

	grandchild := builder.New(carolLayer)
	if err := grandchild.AddIDTriple(triple.IDTriple{Subject: aliceID, Predicate: knowsID, Object: carolID}, triple.KindNode); err != nil {
		t.Fatalf("AddIDTriple: %v", err)
	}
	gcLayer, err := grandchild.Commit(mustName(t))
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if !gcLayer.TripleExists(aliceID, knowsID, carolID) {
		t.Fatal("triple staged via AddIDTriple with ids known to the parent chain should exist")
	}
}

func TestAddIDTripleWithUnknownIDFails(t *testing.T) {
	base := builder.New(nil)
	base.AddStringTriple(triple.NewNode("alice", "knows", "bob"))
	baseLayer, err := base.Commit(mustName(t))
	if err != nil {
		t.Fatalf("base Commit: %v", err)
	}

	child := builder.New(baseLayer)
	bogus := triple.IDTriple{Subject: 1, Predicate: 1, Object: 999999}
	if err := child.AddIDTriple(bogus, triple.KindNode); err != nil {
		t.Fatalf("AddIDTriple (staging never validates): %v", err)
	}
	if _, err := child.Commit(mustName(t)); !errors.Is(err, builder.ErrUnresolvedID) {
		t.Fatalf("Commit: got %v, want ErrUnresolvedID", err)
	}
}

func TestRemoveIDTripleWithUnknownIDFails(t *testing.T) {
	base := builder.New(nil)
	base.AddStringTriple(triple.NewNode("alice", "knows", "bob"))
	baseLayer, err := base.Commit(mustName(t))
	if err != nil {
		t.Fatalf("base Commit: %v", err)
	}

	child := builder.New(baseLayer)
	bogus := triple.IDTriple{Subject: 1, Predicate: 1, Object: 999999}
	if err := child.RemoveIDTriple(bogus, triple.KindNode); err != nil {
		t.Fatalf("RemoveIDTriple (staging never validates): %v", err)
	}
	if _, err := child.Commit(mustName(t)); !errors.Is(err, builder.ErrUnresolvedID) {
		t.Fatalf("Commit: got %v, want ErrUnresolvedID", err)
	}
}

func TestAddIDTripleOnBaseLayerAlwaysFails(t *testing.T) {
	// A base layer's parent chain is empty, so no id can ever be
	// "already known": AddIDTriple/RemoveIDTriple make no sense on a
	// builder with a nil parent.
	base := builder.New(nil)
	if err := base.AddIDTriple(triple.IDTriple{Subject: 1, Predicate: 1, Object: 1}, triple.KindNode); err != nil {
		t.Fatalf("AddIDTriple (staging never validates): %v", err)
	}
	if _, err := base.Commit(mustName(t)); !errors.Is(err, builder.ErrUnresolvedID) {
		t.Fatalf("Commit: got %v, want ErrUnresolvedID", err)
	}
}

func TestS3ReAddAfterRemoval(t *testing.T) {
	l0b := builder.New(nil)
	if err := l0b.AddStringTriple(triple.NewNode("a", "p", "b")); err != nil {
		t.Fatalf("AddStringTriple: %v", err)
	}
	l0, err := l0b.Commit(mustName(t))
	if err != nil {
		t.Fatalf("L0 Commit: %v", err)
	}

	l1b := builder.New(l0)
	if err := l1b.RemoveStringTriple(triple.NewNode("a", "p", "b")); err != nil {
		t.Fatalf("RemoveStringTriple: %v", err)
	}
	l1, err := l1b.Commit(mustName(t))
	if err != nil {
		t.Fatalf("L1 Commit: %v", err)
	}

	l2b := builder.New(l1)
	if err := l2b.AddStringTriple(triple.NewNode("a", "p", "b")); err != nil {
		t.Fatalf("AddStringTriple: %v", err)
	}
	l2, err := l2b.Commit(mustName(t))
	if err != nil {
		t.Fatalf("L2 Commit: %v", err)
	}

	aID, _ := l0.SubjectID("a")
	pID, _ := l0.PredicateID("p")
	bID, _ := l0.ObjectNodeID("b")

	if !l0.TripleExists(aID, pID, bID) {
		t.Fatal("L0 should still report (a,p,b) as existing")
	}
	if l1.TripleExists(aID, pID, bID) {
		t.Fatal("L1 removed (a,p,b); it must not exist there")
	}
	if !l2.TripleExists(aID, pID, bID) {
		t.Fatal("L2 re-added (a,p,b) on top of L1's removal; it must exist again")
	}
}

func TestS4SameStringAsNodeAndValue(t *testing.T) {
	b := builder.New(nil)
	if err := b.AddStringTriple(triple.NewNode("x", "rel", "y")); err != nil {
		t.Fatalf("AddStringTriple (node): %v", err)
	}
	if err := b.AddStringTriple(triple.NewValue("x", "rel", "y")); err != nil {
		t.Fatalf("AddStringTriple (value): %v", err)
	}
	l, err := b.Commit(mustName(t))
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}

	xID, _ := l.SubjectID("x")
	relID, _ := l.PredicateID("rel")
	nodeYID, ok := l.ObjectNodeID("y")
	if !ok {
		t.Fatal("object_node_id(y) should resolve")
	}
	valueYID, ok := l.ObjectValueID("y")
	if !ok {
		t.Fatal("object_value_id(y) should resolve")
	}
	if nodeYID == valueYID {
		t.Fatal("the same literal string used as a node and as a value must receive two distinct ids")
	}
	if !l.TripleExists(xID, relID, nodeYID) {
		t.Fatal("(x,rel,Node(y)) should exist")
	}
	if !l.TripleExists(xID, relID, valueYID) {
		t.Fatal("(x,rel,Value(y)) should exist")
	}
}

func TestCommitIdempotentAcrossStagingOrder(t *testing.T) {
	name1, name2 := mustName(t), mustName(t)

	b1 := builder.New(nil)
	b1.AddStringTriple(triple.NewNode("zeta", "p", "a"))
	b1.AddStringTriple(triple.NewNode("alpha", "p", "b"))
	l1, err := b1.Commit(name1)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}

	b2 := builder.New(nil)
	b2.AddStringTriple(triple.NewNode("alpha", "p", "b"))
	b2.AddStringTriple(triple.NewNode("zeta", "p", "a"))
	l2, err := b2.Commit(name2)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}

	id1, _ := l1.SubjectID("alpha")
	id2, _ := l2.SubjectID("alpha")
	if id1 != id2 {
		t.Errorf("id assignment depends on staging order: %d vs %d", id1, id2)
	}
}
