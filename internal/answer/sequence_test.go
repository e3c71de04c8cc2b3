package answer

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func kinds(s *Sequence) []Kind {
	var out []Kind
	for _, b := range s.Blocks() {
		out = append(out, b.Kind())
	}
	return out
}

func TestInsertAfterText(t *testing.T) {
	s := NewSequence()
	first := s.IDs()[0]
	s.Update(first, Patch{Content: str("Hello")})

	id := s.Insert(KindHeading, first)
	if id == "" {
		t.Fatal("Insert returned empty id")
	}
	got := s.Serialize()
	want := []PersistedBlock{
		{Type: KindText, Content: str("Hello")},
		{Type: KindHeading, Content: str("")},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("blocks mismatch (-want +got):\n%s", diff)
	}
	if s.Index(id) != 1 {
		t.Fatalf("new block at %d, want 1", s.Index(id))
	}
}

func TestInsertWithoutAnchorAppends(t *testing.T) {
	s := NewSequence()
	a := s.Insert(KindCode, "")
	b := s.Insert(KindList, "no-such-block")
	ids := s.IDs()
	if ids[1] != a || ids[2] != b {
		t.Fatalf("unexpected order %v", ids)
	}
	blk, _ := s.Get(b)
	if diff := cmp.Diff([]string{""}, ItemsOf(blk.Body)); diff != "" {
		t.Fatalf("new list items (-want +got):\n%s", diff)
	}
}

func TestDeleteNeverEmpties(t *testing.T) {
	s := NewSequence()
	s.Insert(KindHeading, "")
	s.Insert(KindList, "")
	for i := 0; i < 10; i++ {
		ids := s.IDs()
		s.Delete(ids[i%len(ids)])
		if s.Len() < 1 {
			t.Fatalf("sequence empty after %d deletes", i+1)
		}
	}
	if got := kinds(s); !cmp.Equal(got, []Kind{KindText}) {
		t.Fatalf("kinds = %v, want [text]", got)
	}
}

func TestDeleteLastBlockReplaces(t *testing.T) {
	s := NewSequence()
	old := s.IDs()[0]
	s.Update(old, Patch{Content: str("gone")})
	focus, ok := s.Delete(old)
	if !ok {
		t.Fatal("Delete reported no-op")
	}
	if focus == old || s.IDs()[0] != focus {
		t.Fatalf("focus %q should be the fresh replacement %q", focus, s.IDs()[0])
	}
	if got := ContentOf(s.Blocks()[0].Body); got != "" {
		t.Fatalf("replacement content = %q", got)
	}
}

func TestDeleteFocus(t *testing.T) {
	s := NewSequence()
	a := s.IDs()[0]
	b := s.Insert(KindText, a)
	c := s.Insert(KindText, b)

	if focus, _ := s.Delete(b); focus != a {
		t.Fatalf("focus after deleting middle = %q, want predecessor %q", focus, a)
	}
	if focus, _ := s.Delete(a); focus != c {
		t.Fatalf("focus after deleting first = %q, want successor %q", focus, c)
	}
	if _, ok := s.Delete("missing"); ok {
		t.Fatal("deleting unknown id should be a no-op")
	}
}

func TestMoveBoundaries(t *testing.T) {
	s := NewSequence()
	a := s.IDs()[0]
	b := s.Insert(KindHeading, a)
	c := s.Insert(KindCode, b)

	before := s.IDs()
	if s.Move(a, Up) {
		t.Fatal("moving first block up should be a no-op")
	}
	if s.Move(c, Down) {
		t.Fatal("moving last block down should be a no-op")
	}
	if diff := cmp.Diff(before, s.IDs()); diff != "" {
		t.Fatalf("order changed (-want +got):\n%s", diff)
	}

	if !s.Move(a, Down) {
		t.Fatal("Move down failed")
	}
	if diff := cmp.Diff([]ID{b, a, c}, s.IDs()); diff != "" {
		t.Fatalf("order after move (-want +got):\n%s", diff)
	}
	if !s.Move(c, Up) {
		t.Fatal("Move up failed")
	}
	if diff := cmp.Diff([]ID{b, c, a}, s.IDs()); diff != "" {
		t.Fatalf("order after move (-want +got):\n%s", diff)
	}
}

func TestChangeKindClearsStaleFields(t *testing.T) {
	for _, k := range Kinds {
		t.Run(string(k), func(t *testing.T) {
			s := NewSequence()
			id := s.IDs()[0]
			s.ChangeKind(id, KindList)
			s.Update(id, Patch{Items: []string{"a", "b"}})
			s.ChangeKind(id, KindCallout)
			s.Update(id, Patch{Content: str("stale")})

			if !s.ChangeKind(id, k) {
				t.Fatal("ChangeKind failed")
			}
			p := s.Serialize()[0]
			if p.Type != k {
				t.Fatalf("type = %s", p.Type)
			}
			if k == KindList {
				if diff := cmp.Diff([]string{""}, p.Items); diff != "" {
					t.Fatalf("items (-want +got):\n%s", diff)
				}
				return
			}
			if p.Items != nil {
				t.Fatalf("items = %v, want nil", p.Items)
			}
			if p.Content == nil || *p.Content != "" {
				t.Fatalf("content = %v, want empty", p.Content)
			}
		})
	}
}

func TestUpdate(t *testing.T) {
	s := NewSequence()
	id := s.IDs()[0]
	if s.Update("missing", Patch{Content: str("x")}) {
		t.Fatal("update of unknown id should be a no-op")
	}
	if s.Update(id, Patch{Items: []string{"x"}}) {
		t.Fatal("items patch on a text block should be ignored")
	}

	img := s.Insert(KindImage, id)
	s.SetImage(img, Image{Ref: "fig1"})
	s.Update(img, Patch{Content: str("https://cdn.example.com/a.png")})
	blk, _ := s.Get(img)
	if diff := cmp.Diff(Image{URL: "https://cdn.example.com/a.png"}, blk.Body); diff != "" {
		t.Fatalf("image body (-want +got):\n%s", diff)
	}
}

func TestListItems(t *testing.T) {
	s := NewSequence()
	id := s.IDs()[0]
	s.ChangeKind(id, KindList)
	s.Update(id, Patch{Items: []string{"a", "b"}})

	items := func() []string {
		b, _ := s.Get(id)
		return ItemsOf(b.Body)
	}

	s.DeleteItem(id, 0)
	if diff := cmp.Diff([]string{"b"}, items()); diff != "" {
		t.Fatalf("after first delete (-want +got):\n%s", diff)
	}
	if s.DeleteItem(id, 0) {
		t.Fatal("deleting the sole item should be blocked")
	}
	if diff := cmp.Diff([]string{"b"}, items()); diff != "" {
		t.Fatalf("after blocked delete (-want +got):\n%s", diff)
	}

	idx, ok := s.InsertItem(id, 0)
	if !ok || idx != 1 {
		t.Fatalf("InsertItem = %d, %v", idx, ok)
	}
	s.EditItem(id, 1, "c")
	s.InsertItem(id, 0)
	if diff := cmp.Diff([]string{"b", "", "c"}, items()); diff != "" {
		t.Fatalf("after inserts (-want +got):\n%s", diff)
	}
	if s.EditItem(id, 7, "x") || s.DeleteItem(id, -1) {
		t.Fatal("out of range item ops should be no-ops")
	}
	if _, ok := s.InsertItem(s.Insert(KindText, ""), 0); ok {
		t.Fatal("item ops on non-list blocks should be no-ops")
	}
}

func TestBlocksIsACopy(t *testing.T) {
	s := NewSequence()
	id := s.IDs()[0]
	s.ChangeKind(id, KindList)
	b := s.Blocks()
	b[0].Body.(List).Items[0] = "mutated"
	got, _ := s.Get(id)
	if ItemsOf(got.Body)[0] != "" {
		t.Fatal("Blocks leaked internal list storage")
	}
}
