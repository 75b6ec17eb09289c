package node

import "testing"

func TestManagerAcquireLowestAvailable(t *testing.T) {
	mgr := NewManager(3)

	id, ok := mgr.Acquire()
	if !ok || id != 1 {
		t.Fatalf("expected id=1 ok=true, got id=%d ok=%v", id, ok)
	}
	mgr.Add(&Node{ID: id})

	id, ok = mgr.Acquire()
	if !ok || id != 2 {
		t.Fatalf("expected id=2 ok=true, got id=%d ok=%v", id, ok)
	}
	mgr.Add(&Node{ID: id})

	mgr.Remove(1)

	id, ok = mgr.Acquire()
	if !ok || id != 1 {
		t.Fatalf("expected reused id=1 ok=true, got id=%d ok=%v", id, ok)
	}
}

func TestManagerAcquireCapacityAndReuse(t *testing.T) {
	mgr := NewManager(2)

	id1, ok := mgr.Acquire()
	if !ok || id1 != 1 {
		t.Fatalf("expected id=1 ok=true, got id=%d ok=%v", id1, ok)
	}
	mgr.Add(&Node{ID: id1})

	id2, ok := mgr.Acquire()
	if !ok || id2 != 2 {
		t.Fatalf("expected id=2 ok=true, got id=%d ok=%v", id2, ok)
	}
	mgr.Add(&Node{ID: id2})

	id3, ok := mgr.Acquire()
	if ok || id3 != 0 {
		t.Fatalf("expected id=0 ok=false when full, got id=%d ok=%v", id3, ok)
	}

	mgr.Remove(id1)

	id4, ok := mgr.Acquire()
	if !ok || id4 != 1 {
		t.Fatalf("expected reused id=1 ok=true, got id=%d ok=%v", id4, ok)
	}
}

func TestManagerReservedSlotsCount(t *testing.T) {
	mgr := NewManager(1)

	id, ok := mgr.Acquire()
	if !ok {
		t.Fatalf("expected first acquire to succeed")
	}
	if _, ok := mgr.Acquire(); ok {
		t.Fatalf("expected reserved slot to count against the limit")
	}
	if mgr.Count() != 0 {
		t.Fatalf("expected reserved slot not to count as active, got %d", mgr.Count())
	}

	mgr.Release(id)
	if _, ok := mgr.Acquire(); !ok {
		t.Fatalf("expected released slot to be reusable")
	}
}

func TestManagerListInfo(t *testing.T) {
	mgr := NewManager(4)
	a := &Node{ID: 2, Remote: "10.0.0.2:5000"}
	a.setIdentity("alice", "u1", "lobby")
	mgr.Add(a)
	mgr.Add(&Node{ID: 1, Remote: "10.0.0.1:5000"})

	info := mgr.ListInfo()
	if len(info) != 2 {
		t.Fatalf("expected 2 nodes, got %d", len(info))
	}
	if info[0].ID != 1 || info[0].UserName != "(logging in)" {
		t.Fatalf("unexpected first node: %+v", info[0])
	}
	if info[1].UserName != "alice" || info[1].AccountID != "u1" || info[1].Room != "lobby" {
		t.Fatalf("unexpected second node: %+v", info[1])
	}
}
