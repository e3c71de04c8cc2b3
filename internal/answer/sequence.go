package answer

// Direction is the direction of a move.
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// Patch is a partial update. Content applies to every kind but list,
// Items only to lists.
type Patch struct {
	Content *string  `json:"content,omitempty"`
	Items   []string `json:"items,omitempty"`
}

// Sequence is the ordered, mutable block store of one document. Every
// operation addresses blocks by identity; unknown identities are no-ops.
// A Sequence is never empty. It is not safe for concurrent use; the
// editor controller serializes access.
type Sequence struct {
	blocks []EditableBlock
}

// NewSequence returns a sequence holding one empty text block.
func NewSequence() *Sequence {
	return &Sequence{blocks: []EditableBlock{{ID: NewID(), Body: Text{}}}}
}

// Load hydrates persisted blocks into a new sequence.
func Load(blocks []PersistedBlock) (*Sequence, error) {
	eb, err := Hydrate(blocks)
	if err != nil {
		return nil, err
	}
	return &Sequence{blocks: eb}, nil
}

func (s *Sequence) Len() int { return len(s.blocks) }

// Blocks returns a copy of the current blocks.
func (s *Sequence) Blocks() []EditableBlock {
	out := make([]EditableBlock, len(s.blocks))
	for i, b := range s.blocks {
		if l, ok := b.Body.(List); ok {
			b.Body = List{Items: append([]string(nil), l.Items...)}
		}
		out[i] = b
	}
	return out
}

// IDs returns the identities in order.
func (s *Sequence) IDs() []ID {
	out := make([]ID, len(s.blocks))
	for i, b := range s.blocks {
		out[i] = b.ID
	}
	return out
}

// Index returns the position of id, or -1.
func (s *Sequence) Index(id ID) int {
	for i, b := range s.blocks {
		if b.ID == id {
			return i
		}
	}
	return -1
}

// Get returns the block with the given identity.
func (s *Sequence) Get(id ID) (EditableBlock, bool) {
	i := s.Index(id)
	if i < 0 {
		return EditableBlock{}, false
	}
	return s.Blocks()[i], true
}

// At returns the block at position i.
func (s *Sequence) At(i int) (EditableBlock, bool) {
	if i < 0 || i >= len(s.blocks) {
		return EditableBlock{}, false
	}
	return s.Blocks()[i], true
}

// Serialize returns the persisted form of the sequence.
func (s *Sequence) Serialize() []PersistedBlock { return Serialize(s.blocks) }

// Insert adds an empty block of kind k right after the block identified by
// after, or at the end when after is empty or unknown.
func (s *Sequence) Insert(k Kind, after ID) ID {
	nb := EditableBlock{ID: NewID(), Body: EmptyBody(k)}
	at := len(s.blocks)
	if after != "" {
		if i := s.Index(after); i >= 0 {
			at = i + 1
		}
	}
	s.blocks = append(s.blocks, EditableBlock{})
	copy(s.blocks[at+1:], s.blocks[at:])
	s.blocks[at] = nb
	return nb.ID
}

// Update merges p into the block identified by id.
func (s *Sequence) Update(id ID, p Patch) bool {
	i := s.Index(id)
	if i < 0 {
		return false
	}
	body := s.blocks[i].Body
	switch body.(type) {
	case List:
		if p.Items == nil {
			return false
		}
		body = List{Items: normalizeItems(p.Items)}
	default:
		if p.Content == nil {
			return false
		}
		// withContent on an Image drops any pending ref.
		body = withContent(body, *p.Content)
	}
	s.blocks[i].Body = body
	return true
}

// SetImage replaces the body of an image block. It is a no-op for other
// kinds.
func (s *Sequence) SetImage(id ID, img Image) bool {
	i := s.Index(id)
	if i < 0 || s.blocks[i].Kind() != KindImage {
		return false
	}
	s.blocks[i].Body = img
	return true
}

// Delete removes the block identified by id and returns the identity that
// should receive focus: the predecessor, else the successor. Deleting the
// only block replaces it with a fresh empty text block.
func (s *Sequence) Delete(id ID) (focus ID, ok bool) {
	i := s.Index(id)
	if i < 0 {
		return "", false
	}
	if len(s.blocks) == 1 {
		s.blocks[0] = EditableBlock{ID: NewID(), Body: Text{}}
		return s.blocks[0].ID, true
	}
	s.blocks = append(s.blocks[:i], s.blocks[i+1:]...)
	if i > 0 {
		return s.blocks[i-1].ID, true
	}
	return s.blocks[0].ID, true
}

// Move swaps the block with its neighbour in direction d. Moving the first
// block up or the last block down does nothing.
func (s *Sequence) Move(id ID, d Direction) bool {
	i := s.Index(id)
	if i < 0 {
		return false
	}
	j := i - 1
	if d == Down {
		j = i + 1
	} else if d != Up {
		return false
	}
	if j < 0 || j >= len(s.blocks) {
		return false
	}
	s.blocks[i], s.blocks[j] = s.blocks[j], s.blocks[i]
	return true
}

// ChangeKind replaces the body of id with an empty body of kind k,
// keeping its identity.
func (s *Sequence) ChangeKind(id ID, k Kind) bool {
	i := s.Index(id)
	if i < 0 {
		return false
	}
	s.blocks[i].Body = EmptyBody(k)
	return true
}

func (s *Sequence) list(id ID) (int, List, bool) {
	i := s.Index(id)
	if i < 0 {
		return -1, List{}, false
	}
	l, ok := s.blocks[i].Body.(List)
	return i, l, ok
}

// InsertItem adds an empty item after index after and returns the index of
// the new item.
func (s *Sequence) InsertItem(id ID, after int) (int, bool) {
	i, l, ok := s.list(id)
	if !ok || after < 0 || after >= len(l.Items) {
		return -1, false
	}
	items := make([]string, 0, len(l.Items)+1)
	items = append(items, l.Items[:after+1]...)
	items = append(items, "")
	items = append(items, l.Items[after+1:]...)
	s.blocks[i].Body = List{Items: items}
	return after + 1, true
}

// DeleteItem removes the item at idx unless it is the only one.
func (s *Sequence) DeleteItem(id ID, idx int) bool {
	i, l, ok := s.list(id)
	if !ok || len(l.Items) <= 1 || idx < 0 || idx >= len(l.Items) {
		return false
	}
	items := make([]string, 0, len(l.Items)-1)
	items = append(items, l.Items[:idx]...)
	items = append(items, l.Items[idx+1:]...)
	s.blocks[i].Body = List{Items: items}
	return true
}

// EditItem sets the text of the item at idx.
func (s *Sequence) EditItem(id ID, idx int, text string) bool {
	i, l, ok := s.list(id)
	if !ok || idx < 0 || idx >= len(l.Items) {
		return false
	}
	items := append([]string(nil), l.Items...)
	items[idx] = text
	s.blocks[i].Body = List{Items: items}
	return true
}
