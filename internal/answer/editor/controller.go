// Package editor is the authoring controller for descriptive answers. It
// owns one live document for the duration of an editing session and
// applies user intent (operations and key presses) to it.
package editor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"unicode/utf8"

	"github.com/mind-engage/mindengage-curriculum/internal/answer"
	"github.com/mind-engage/mindengage-curriculum/internal/logger"
)

// PickerTrigger opens the block-type picker when typed into an empty text
// block.
const PickerTrigger = "/"

var ErrSaveFailed = errors.New("editor: save failed")

type Key string

const (
	KeyEnter     Key = "Enter"
	KeyBackspace Key = "Backspace"
	KeyArrowUp   Key = "ArrowUp"
	KeyArrowDown Key = "ArrowDown"
	KeyChar      Key = "Char"
)

// KeyEvent describes a key press inside a block. Caret is a rune offset
// into the block's text, or into item Item for lists.
type KeyEvent struct {
	Key   Key    `json:"key"`
	Text  string `json:"text,omitempty"`
	Shift bool   `json:"shift,omitempty"`
	Caret int    `json:"caret"`
	Item  int    `json:"item"`
}

// Focus is the block (and list item) that should hold input focus.
type Focus struct {
	Block answer.ID `json:"block"`
	Item  int       `json:"item"`
	AtEnd bool      `json:"at_end"`
}

// Picker is an open block-type picker anchored at a caret.
type Picker struct {
	Block answer.ID `json:"block"`
	Caret int       `json:"caret"`
}

// Outcome tells the UI whether a key press was consumed and where focus
// went. When Handled is false the key is literal input.
type Outcome struct {
	Handled bool    `json:"handled"`
	Focus   Focus   `json:"focus"`
	Picker  *Picker `json:"picker,omitempty"`
}

// Saver persists a serialized document.
type Saver interface {
	Save(ctx context.Context, doc answer.Document) error
}

// SaverFunc adapts a function to Saver.
type SaverFunc func(ctx context.Context, doc answer.Document) error

func (f SaverFunc) Save(ctx context.Context, doc answer.Document) error { return f(ctx, doc) }

type pendingUpload struct {
	cancel context.CancelFunc
	token  uint64
}

// Controller mediates every edit of one document. All methods are safe to
// call from multiple goroutines; they are applied one at a time.
type Controller struct {
	mu       sync.Mutex
	title    string
	seq      *answer.Sequence
	focus    Focus
	picker   *Picker
	uploads  map[answer.ID]pendingUpload
	uploadN  uint64
	uploader Uploader
	log      *logger.Logger
}

type Option func(*Controller)

func WithUploader(u Uploader) Option      { return func(c *Controller) { c.uploader = u } }
func WithLogger(l *logger.Logger) Option { return func(c *Controller) { c.log = l } }

// New starts a session on an empty document.
func New(title string, opts ...Option) *Controller {
	return newController(title, answer.NewSequence(), opts)
}

// Open starts a session on a persisted document.
func Open(doc answer.Document, opts ...Option) (*Controller, error) {
	seq, err := answer.Load(doc.Blocks)
	if err != nil {
		return nil, err
	}
	return newController(doc.Title, seq, opts), nil
}

func newController(title string, seq *answer.Sequence, opts []Option) *Controller {
	c := &Controller{
		title:   title,
		seq:     seq,
		uploads: map[answer.ID]pendingUpload{},
		log:     logger.Nop(),
	}
	for _, o := range opts {
		o(c)
	}
	c.focus = Focus{Block: seq.IDs()[0]}
	return c
}

func (c *Controller) Title() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.title
}

func (c *Controller) SetTitle(t string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.title = t
}

func (c *Controller) Focus() Focus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.focus
}

func (c *Controller) Picker() *Picker {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.picker == nil {
		return nil
	}
	p := *c.picker
	return &p
}

func (c *Controller) Blocks() []answer.EditableBlock {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq.Blocks()
}

// State is one consistent view of a session.
type State struct {
	Title  string
	Blocks []answer.EditableBlock
	Focus  Focus
	Picker *Picker
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := State{Title: c.title, Blocks: c.seq.Blocks(), Focus: c.focus}
	if c.picker != nil {
		p := *c.picker
		st.Picker = &p
	}
	return st
}

// Snapshot serializes the document. Unresolved image refs are dropped.
func (c *Controller) Snapshot() answer.Document {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot()
}

func (c *Controller) snapshot() answer.Document {
	return answer.Document{Title: c.title, Blocks: answer.DropRefs(c.seq.Serialize())}
}

// Save persists a snapshot through s. The controller stays editable while
// the save is in flight.
func (c *Controller) Save(ctx context.Context, s Saver) error {
	doc := c.Snapshot()
	if err := s.Save(ctx, doc); err != nil {
		c.log.Warn("answer save failed", "error", err)
		return fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}
	return nil
}

// InsertBlock inserts an empty block of kind k after the given block (or at
// the end) and focuses it.
func (c *Controller) InsertBlock(k answer.Kind, after answer.ID) answer.ID {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.seq.Insert(k, after)
	c.focus = Focus{Block: id}
	return id
}

func (c *Controller) UpdateBlock(id answer.ID, p answer.Patch) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.seq.Update(id, p) {
		// a manually entered URL supersedes an in-flight upload
		if p.Content != nil {
			c.cancelUpload(id)
		}
		if c.picker != nil && c.picker.Block == id {
			c.picker = nil
		}
	}
}

func (c *Controller) DeleteBlock(id answer.ID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deleteBlock(id)
}

func (c *Controller) deleteBlock(id answer.ID) bool {
	focus, ok := c.seq.Delete(id)
	if !ok {
		return false
	}
	c.cancelUpload(id)
	if c.picker != nil && c.picker.Block == id {
		c.picker = nil
	}
	c.focus = c.focusEnd(focus)
	return true
}

func (c *Controller) MoveBlock(id answer.ID, d answer.Direction) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq.Move(id, d)
}

func (c *Controller) ChangeBlockType(id answer.ID, k answer.Kind) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.changeKind(id, k)
}

func (c *Controller) changeKind(id answer.ID, k answer.Kind) bool {
	if !c.seq.ChangeKind(id, k) {
		return false
	}
	c.cancelUpload(id)
	if c.picker != nil && c.picker.Block == id {
		c.picker = nil
	}
	return true
}

func (c *Controller) InsertItem(id answer.ID, after int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if idx, ok := c.seq.InsertItem(id, after); ok {
		c.focus = Focus{Block: id, Item: idx}
	}
}

func (c *Controller) DeleteItem(id answer.ID, idx int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.seq.DeleteItem(id, idx) && c.focus.Block == id && c.focus.Item >= idx {
		c.focus = Focus{Block: id, Item: max(idx-1, 0), AtEnd: true}
	}
}

func (c *Controller) EditItem(id answer.ID, idx int, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq.EditItem(id, idx, text)
}

// SetFocus moves focus explicitly, e.g. on a click. Unknown blocks are
// ignored.
func (c *Controller) SetFocus(f Focus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.seq.Index(f.Block) >= 0 {
		c.focus = f
	}
}

// PickKind applies the open picker: the block it was opened on is retyped.
func (c *Controller) PickKind(k answer.Kind) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.picker == nil {
		return false
	}
	id := c.picker.Block
	c.picker = nil
	if !c.changeKind(id, k) {
		return false
	}
	c.focus = Focus{Block: id}
	return true
}

func (c *Controller) ClosePicker() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.picker = nil
}

// HandleKey applies the keyboard contract to a key press in block id.
func (c *Controller) HandleKey(id answer.ID, ev KeyEvent) Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()

	b, ok := c.seq.Get(id)
	if !ok {
		return c.outcome(false)
	}
	switch ev.Key {
	case KeyChar:
		return c.onChar(b, ev)
	case KeyEnter:
		return c.onEnter(b, ev)
	case KeyBackspace:
		return c.onBackspace(b, ev)
	case KeyArrowUp:
		return c.onArrowUp(b, ev)
	case KeyArrowDown:
		return c.onArrowDown(b, ev)
	}
	return c.outcome(false)
}

func (c *Controller) outcome(handled bool) Outcome {
	o := Outcome{Handled: handled, Focus: c.focus}
	if c.picker != nil {
		p := *c.picker
		o.Picker = &p
	}
	return o
}

func (c *Controller) onChar(b answer.EditableBlock, ev KeyEvent) Outcome {
	if ev.Text == PickerTrigger && b.Kind() == answer.KindText && answer.ContentOf(b.Body) == "" {
		c.picker = &Picker{Block: b.ID, Caret: ev.Caret}
		c.focus = Focus{Block: b.ID}
		return c.outcome(true)
	}
	if c.picker != nil && c.picker.Block == b.ID {
		c.picker = nil
	}
	return c.outcome(false)
}

func (c *Controller) onEnter(b answer.EditableBlock, ev KeyEvent) Outcome {
	if ev.Shift {
		return c.outcome(false)
	}
	switch b.Kind() {
	case answer.KindCode:
		return c.outcome(false)
	case answer.KindList:
		idx, ok := c.seq.InsertItem(b.ID, ev.Item)
		if !ok {
			return c.outcome(false)
		}
		c.focus = Focus{Block: b.ID, Item: idx}
		return c.outcome(true)
	}
	id := c.seq.Insert(answer.KindText, b.ID)
	c.picker = nil
	c.focus = Focus{Block: id}
	return c.outcome(true)
}

func (c *Controller) onBackspace(b answer.EditableBlock, ev KeyEvent) Outcome {
	switch b.Kind() {
	case answer.KindList:
		items := answer.ItemsOf(b.Body)
		if ev.Caret != 0 || ev.Item < 0 || ev.Item >= len(items) || items[ev.Item] != "" || len(items) < 2 {
			return c.outcome(false)
		}
		c.seq.DeleteItem(b.ID, ev.Item)
		c.focus = Focus{Block: b.ID, Item: max(ev.Item-1, 0), AtEnd: ev.Item > 0}
		return c.outcome(true)
	case answer.KindImage:
		return c.outcome(false)
	}
	if answer.ContentOf(b.Body) != "" || c.seq.Len() < 2 {
		return c.outcome(false)
	}
	c.deleteBlock(b.ID)
	return c.outcome(true)
}

func (c *Controller) onArrowUp(b answer.EditableBlock, ev KeyEvent) Outcome {
	if ev.Caret != 0 {
		return c.outcome(false)
	}
	if b.Kind() == answer.KindList && ev.Item > 0 {
		c.focus = Focus{Block: b.ID, Item: ev.Item - 1, AtEnd: true}
		return c.outcome(true)
	}
	prev, ok := c.seq.At(c.seq.Index(b.ID) - 1)
	if !ok {
		return c.outcome(false)
	}
	c.focus = c.focusEnd(prev.ID)
	return c.outcome(true)
}

func (c *Controller) onArrowDown(b answer.EditableBlock, ev KeyEvent) Outcome {
	text := answer.ContentOf(b.Body)
	if b.Kind() == answer.KindList {
		items := answer.ItemsOf(b.Body)
		if ev.Item < 0 || ev.Item >= len(items) {
			return c.outcome(false)
		}
		text = items[ev.Item]
		if ev.Caret >= utf8.RuneCountInString(text) && ev.Item < len(items)-1 {
			c.focus = Focus{Block: b.ID, Item: ev.Item + 1}
			return c.outcome(true)
		}
	}
	if ev.Caret < utf8.RuneCountInString(text) {
		return c.outcome(false)
	}
	next, ok := c.seq.At(c.seq.Index(b.ID) + 1)
	if !ok {
		return c.outcome(false)
	}
	c.focus = Focus{Block: next.ID}
	return c.outcome(true)
}

// focusEnd focuses the end of block id: its last item for lists.
func (c *Controller) focusEnd(id answer.ID) Focus {
	f := Focus{Block: id, AtEnd: true}
	if b, ok := c.seq.Get(id); ok {
		if items := answer.ItemsOf(b.Body); len(items) > 0 {
			f.Item = len(items) - 1
		}
	}
	return f
}
