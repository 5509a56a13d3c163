package object

import (
	"bytes"
	"testing"

	"github.com/magoolation/intmud/value"
)

func TestHeadNextStepsClassListSkippingDeleted(t *testing.T) {
	a := New()
	o1 := a.Create("item", 0)
	o2 := a.Create("item", 0)
	o3 := a.Create("item", 0)
	a.Activate(o1.ID)
	a.Activate(o2.ID)
	a.Activate(o3.ID)

	var seen []value.ObjectID
	id := a.Head("item")
	for id != 0 {
		seen = append(seen, id)
		if id == o2.ID {
			a.MarkForDeletion(o2.ID)
		}
		id = a.Next(id)
	}
	if len(seen) != 3 || seen[0] != o1.ID || seen[1] != o2.ID || seen[2] != o3.ID {
		t.Fatalf("first pass seen = %v, want [%d %d %d]", seen, o1.ID, o2.ID, o3.ID)
	}

	seen = nil
	for id := a.Head("item"); id != 0; id = a.Next(id) {
		seen = append(seen, id)
	}
	if len(seen) != 2 || seen[0] != o1.ID || seen[1] != o3.ID {
		t.Fatalf("second pass seen = %v, want [%d %d] (o2 marked for deletion must be skipped)", seen, o1.ID, o3.ID)
	}
}

func TestCreateLinksIntoClassList(t *testing.T) {
	a := New()
	o1 := a.Create("jogador", 4)
	o2 := a.Create("jogador", 4)
	a.Create("sala", 0)

	var seen []value.ObjectID
	a.Each("jogador", func(o *Object) { seen = append(seen, o.ID) })
	if len(seen) != 2 || seen[0] != o1.ID || seen[1] != o2.ID {
		t.Fatalf("Each(jogador) = %v, want [%d %d]", seen, o1.ID, o2.ID)
	}
}

func TestMarkForDeletionDeferredToReap(t *testing.T) {
	a := New()
	o := a.Create("jogador", 0)
	a.Activate(o.ID)

	var count int
	a.Each("jogador", func(o *Object) {
		count++
		a.MarkForDeletion(o.ID)
	})
	if count != 1 {
		t.Fatalf("count = %d, want 1", count)
	}
	if _, ok := a.Get(o.ID); !ok {
		t.Fatal("object disappeared before Reap")
	}

	reaped := a.Reap()
	if len(reaped) != 1 || reaped[0] != o.ID {
		t.Fatalf("Reap() = %v, want [%d]", reaped, o.ID)
	}
	if _, ok := a.Get(o.ID); ok {
		t.Fatal("object still visible after Reap")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	a := New()
	o := a.Create("jogador", 2)
	o.Fields[0] = value.Int64(7)
	o.Fields[1] = value.Str("ana")
	a.Activate(o.ID)

	var buf bytes.Buffer
	if err := a.Save(&buf); err != nil {
		t.Fatal(err)
	}

	b := New()
	if err := b.Load(&buf); err != nil {
		t.Fatal(err)
	}
	got, ok := b.Get(o.ID)
	if !ok {
		t.Fatal("object missing after Load")
	}
	if got.Class != "jogador" || got.Fields[0].Int() != 7 || got.Fields[1].Text() != "ana" {
		t.Fatalf("got %+v", got)
	}
}
