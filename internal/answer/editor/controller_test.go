package editor

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/mind-engage/mindengage-curriculum/internal/answer"
)

func strp(s string) *string { return &s }

func kindsOf(c *Controller) []answer.Kind {
	var out []answer.Kind
	for _, b := range c.Blocks() {
		out = append(out, b.Kind())
	}
	return out
}

func firstID(c *Controller) answer.ID { return c.Blocks()[0].ID }

func TestInsertFocusesNewBlock(t *testing.T) {
	c := New("Q")
	first := firstID(c)
	c.UpdateBlock(first, answer.Patch{Content: strp("Hello")})
	id := c.InsertBlock(answer.KindHeading, first)

	if c.Focus().Block != id {
		t.Fatalf("focus = %v, want %q", c.Focus(), id)
	}
	want := answer.Document{Title: "Q", Blocks: []answer.PersistedBlock{
		{Type: answer.KindText, Content: strp("Hello")},
		{Type: answer.KindHeading, Content: strp("")},
	}}
	if diff := cmp.Diff(want, c.Snapshot()); diff != "" {
		t.Fatalf("snapshot (-want +got):\n%s", diff)
	}
}

func TestPickerRetypesSameBlock(t *testing.T) {
	c := New("Q")
	id := firstID(c)

	out := c.HandleKey(id, KeyEvent{Key: KeyChar, Text: "/", Caret: 0})
	if !out.Handled || out.Picker == nil || out.Picker.Block != id {
		t.Fatalf("picker not opened: %+v", out)
	}
	if !c.PickKind(answer.KindList) {
		t.Fatal("PickKind failed")
	}
	if c.Picker() != nil {
		t.Fatal("picker should close after picking")
	}
	blocks := c.Blocks()
	if len(blocks) != 1 || blocks[0].ID != id || blocks[0].Kind() != answer.KindList {
		t.Fatalf("expected the same block retyped to list, got %+v", blocks)
	}
	if c.PickKind(answer.KindCode) {
		t.Fatal("PickKind without an open picker should be a no-op")
	}
}

func TestPickerOnlyOnEmptyText(t *testing.T) {
	c := New("Q")
	id := firstID(c)
	c.UpdateBlock(id, answer.Patch{Content: strp("a")})
	if out := c.HandleKey(id, KeyEvent{Key: KeyChar, Text: "/", Caret: 1}); out.Handled || out.Picker != nil {
		t.Fatalf("picker opened on non-empty block: %+v", out)
	}
	code := c.InsertBlock(answer.KindCode, id)
	if out := c.HandleKey(code, KeyEvent{Key: KeyChar, Text: "/"}); out.Handled {
		t.Fatalf("picker opened on code block: %+v", out)
	}
}

func TestEnter(t *testing.T) {
	tests := []struct {
		kind    answer.Kind
		shift   bool
		handled bool
		blocks  int
	}{
		{answer.KindText, false, true, 2},
		{answer.KindHeading, false, true, 2},
		{answer.KindCallout, false, true, 2},
		{answer.KindImage, false, true, 2},
		{answer.KindText, true, false, 1},
		{answer.KindCode, false, false, 1},
		{answer.KindList, false, true, 1},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			c := New("Q")
			id := firstID(c)
			c.ChangeBlockType(id, tt.kind)
			out := c.HandleKey(id, KeyEvent{Key: KeyEnter, Shift: tt.shift})
			if out.Handled != tt.handled {
				t.Fatalf("handled = %v, want %v", out.Handled, tt.handled)
			}
			blocks := c.Blocks()
			if len(blocks) != tt.blocks {
				t.Fatalf("blocks = %d, want %d", len(blocks), tt.blocks)
			}
			if tt.blocks == 2 {
				if blocks[1].Kind() != answer.KindText || out.Focus.Block != blocks[1].ID {
					t.Fatalf("new text block not focused: %+v", out)
				}
			}
		})
	}
}

func TestEnterInListAddsItem(t *testing.T) {
	c := New("Q")
	id := firstID(c)
	c.ChangeBlockType(id, answer.KindList)
	c.EditItem(id, 0, "one")
	out := c.HandleKey(id, KeyEvent{Key: KeyEnter, Item: 0, Caret: 3})
	if !out.Handled || out.Focus != (Focus{Block: id, Item: 1}) {
		t.Fatalf("outcome %+v", out)
	}
	if diff := cmp.Diff([]string{"one", ""}, answer.ItemsOf(c.Blocks()[0].Body)); diff != "" {
		t.Fatalf("items (-want +got):\n%s", diff)
	}
}

func TestBackspace(t *testing.T) {
	c := New("Q")
	a := firstID(c)
	c.UpdateBlock(a, answer.Patch{Content: strp("keep")})
	b := c.InsertBlock(answer.KindHeading, a)

	out := c.HandleKey(b, KeyEvent{Key: KeyBackspace})
	if !out.Handled || out.Focus.Block != a || !out.Focus.AtEnd {
		t.Fatalf("outcome %+v", out)
	}
	if got := kindsOf(c); !cmp.Equal(got, []answer.Kind{answer.KindText}) {
		t.Fatalf("kinds = %v", got)
	}

	// non-empty content is literal input
	if out := c.HandleKey(a, KeyEvent{Key: KeyBackspace, Caret: 4}); out.Handled {
		t.Fatal("backspace on non-empty block should not be handled")
	}

	// a single empty block is never deleted
	c2 := New("Q")
	if out := c2.HandleKey(firstID(c2), KeyEvent{Key: KeyBackspace}); out.Handled {
		t.Fatal("backspace on the only block should not be handled")
	}
}

func TestBackspaceSkipsImagesAndLists(t *testing.T) {
	c := New("Q")
	a := firstID(c)
	img := c.InsertBlock(answer.KindImage, a)
	list := c.InsertBlock(answer.KindList, img)

	if out := c.HandleKey(img, KeyEvent{Key: KeyBackspace}); out.Handled {
		t.Fatal("image blocks are not deleted by backspace")
	}
	if out := c.HandleKey(list, KeyEvent{Key: KeyBackspace}); out.Handled {
		t.Fatal("a list with one empty item is not deleted by backspace")
	}
	if len(c.Blocks()) != 3 {
		t.Fatalf("blocks = %d", len(c.Blocks()))
	}

	c.InsertItem(list, 0)
	out := c.HandleKey(list, KeyEvent{Key: KeyBackspace, Item: 1})
	if !out.Handled || out.Focus != (Focus{Block: list, Item: 0, AtEnd: true}) {
		t.Fatalf("outcome %+v", out)
	}
}

func TestArrowNavigation(t *testing.T) {
	c := New("Q")
	a := firstID(c)
	c.UpdateBlock(a, answer.Patch{Content: strp("héllo")})
	l := c.InsertBlock(answer.KindList, a)
	c.EditItem(l, 0, "x")
	c.InsertItem(l, 0)
	c.EditItem(l, 1, "yz")

	tests := []struct {
		name    string
		id      answer.ID
		ev      KeyEvent
		handled bool
		focus   Focus
	}{
		{"down at end of text", a, KeyEvent{Key: KeyArrowDown, Caret: 5}, true, Focus{Block: l}},
		{"down mid text", a, KeyEvent{Key: KeyArrowDown, Caret: 2}, false, Focus{}},
		{"up at start of first block", a, KeyEvent{Key: KeyArrowUp}, false, Focus{}},
		{"down between items", l, KeyEvent{Key: KeyArrowDown, Item: 0, Caret: 1}, true, Focus{Block: l, Item: 1}},
		{"up between items", l, KeyEvent{Key: KeyArrowUp, Item: 1}, true, Focus{Block: l, Item: 0, AtEnd: true}},
		{"up from first item", l, KeyEvent{Key: KeyArrowUp, Item: 0}, true, Focus{Block: a, AtEnd: true}},
		{"down from last block", l, KeyEvent{Key: KeyArrowDown, Item: 1, Caret: 2}, false, Focus{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := c.HandleKey(tt.id, tt.ev)
			if out.Handled != tt.handled {
				t.Fatalf("handled = %v, want %v", out.Handled, tt.handled)
			}
			if tt.handled && out.Focus != tt.focus {
				t.Fatalf("focus = %+v, want %+v", out.Focus, tt.focus)
			}
		})
	}
}

func TestUnknownIdentityIsNoop(t *testing.T) {
	c := New("Q")
	before := c.Snapshot()
	c.UpdateBlock("nope", answer.Patch{Content: strp("x")})
	c.DeleteBlock("nope")
	c.MoveBlock("nope", answer.Up)
	c.ChangeBlockType("nope", answer.KindCode)
	c.InsertItem("nope", 0)
	c.DeleteItem("nope", 0)
	c.EditItem("nope", 0, "x")
	if out := c.HandleKey("nope", KeyEvent{Key: KeyEnter}); out.Handled {
		t.Fatal("key on unknown block handled")
	}
	if diff := cmp.Diff(before, c.Snapshot()); diff != "" {
		t.Fatalf("document changed (-want +got):\n%s", diff)
	}
}

func TestDeleteEverythingKeepsOneBlock(t *testing.T) {
	c := New("Q")
	for i := 0; i < 4; i++ {
		c.InsertBlock(answer.KindCallout, "")
	}
	for i := 0; i < 8; i++ {
		c.DeleteBlock(c.Focus().Block)
		if len(c.Blocks()) == 0 {
			t.Fatal("document became empty")
		}
	}
	if got := kindsOf(c); !cmp.Equal(got, []answer.Kind{answer.KindText}) {
		t.Fatalf("kinds = %v", got)
	}
}

func TestOpenAndSave(t *testing.T) {
	doc := answer.Document{Title: "Define osmosis", Blocks: []answer.PersistedBlock{
		{Type: answer.KindText, Content: strp("Movement of water")},
		{Type: answer.KindImage, Ref: "fig1"},
	}}
	c, err := Open(doc)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	var saved answer.Document
	err = c.Save(context.Background(), SaverFunc(func(_ context.Context, d answer.Document) error {
		saved = d
		return nil
	}))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	want := answer.Document{Title: "Define osmosis", Blocks: []answer.PersistedBlock{
		{Type: answer.KindText, Content: strp("Movement of water")},
		{Type: answer.KindImage, Content: strp("")},
	}}
	if diff := cmp.Diff(want, saved); diff != "" {
		t.Fatalf("saved (-want +got):\n%s", diff)
	}

	boom := errors.New("disk full")
	err = c.Save(context.Background(), SaverFunc(func(context.Context, answer.Document) error { return boom }))
	if !errors.Is(err, ErrSaveFailed) || !errors.Is(err, boom) {
		t.Fatalf("Save error = %v", err)
	}
	if _, err := Open(answer.Document{Blocks: []answer.PersistedBlock{{Type: "table"}}}); err == nil {
		t.Fatal("Open should reject unknown kinds")
	}
}
