// internal/api/http/session.go
package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	nethttp "net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/mindengage-curriculum/internal/answer"
	"github.com/mind-engage/mindengage-curriculum/internal/answer/editor"
	"github.com/mind-engage/mindengage-curriculum/internal/curriculum"
	"github.com/mind-engage/mindengage-curriculum/internal/logger"
)

const (
	sessionReadLimit    = 16 << 20 // uploads arrive inline
	sessionWriteTimeout = 10 * time.Second
)

// Session operations.
const (
	opInsert     = "insert"
	opUpdate     = "update"
	opDelete     = "delete"
	opMove       = "move"
	opRetype     = "retype"
	opItemInsert = "item_insert"
	opItemDelete = "item_delete"
	opItemEdit   = "item_edit"
	opKey        = "key"
	opPick       = "pick"
	opTitle      = "title"
	opUpload     = "upload"
	opSave       = "save"
	opFocus      = "focus"
)

// sessionOp is one client message. Fields not used by Op are ignored.
type sessionOp struct {
	Op        string           `json:"op"`
	Seq       int64            `json:"seq,omitempty"` // echoed in the reply
	Block     answer.ID        `json:"block,omitempty"`
	After     answer.ID        `json:"after,omitempty"`
	Kind      answer.Kind      `json:"kind,omitempty"`
	Patch     answer.Patch     `json:"patch"`
	Direction answer.Direction `json:"direction,omitempty"`
	Item      int              `json:"item"`
	Text      string           `json:"text,omitempty"`
	Key       editor.KeyEvent  `json:"key_event"`
	Name      string           `json:"name,omitempty"`
	Data      []byte           `json:"data,omitempty"` // base64 in JSON
}

type wireBlock struct {
	ID      answer.ID   `json:"id"`
	Type    answer.Kind `json:"type"`
	Content *string     `json:"content,omitempty"`
	Items   []string    `json:"items,omitempty"`
}

// sessionMsg is every server message: the full editor state plus what
// caused it.
type sessionMsg struct {
	Type    string               `json:"type"` // state|upload|saved|error
	Seq     int64                `json:"seq,omitempty"`
	Title   string               `json:"title"`
	Blocks  []wireBlock          `json:"blocks"`
	Focus   editor.Focus         `json:"focus"`
	Picker  *editor.Picker       `json:"picker,omitempty"`
	Outcome *editor.Outcome      `json:"outcome,omitempty"`
	Upload  *editor.UploadResult `json:"upload,omitempty"`
	Error   string               `json:"error,omitempty"`
}

// GET /admin/questions/{questionID}/session
// afterSave, when set, runs after every successful save.
func SessionHandler(store curriculum.Store, up editor.Uploader, origins []string, afterSave func(context.Context) error, log *logger.Logger) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		qid := chi.URLParam(r, "questionID")
		q, err := store.GetQuestion(r.Context(), qid)
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		if q.Type != curriculum.TypeDescriptive {
			badRequest(w, "only descriptive answers have an editing session")
			return
		}
		qlog := log.With("question", qid)
		ctrl, err := editor.Open(q.AnswerDocument(), editor.WithUploader(up), editor.WithLogger(qlog))
		if err != nil {
			writeError(w, r, log, err)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: origins})
		if err != nil {
			qlog.Warn("websocket accept failed", "error", err)
			return
		}
		defer conn.CloseNow()
		conn.SetReadLimit(sessionReadLimit)

		s := &session{
			conn: conn,
			ctrl: ctrl,
			log:  qlog,
			saver: editor.SaverFunc(func(ctx context.Context, doc answer.Document) error {
				if _, err := store.SaveAnswer(ctx, qid, doc); err != nil {
					return err
				}
				if afterSave != nil {
					if err := afterSave(ctx); err != nil {
						qlog.Warn("after save hook failed", "error", err)
					}
				}
				return nil
			}),
		}
		// the request context ends when the handler returns, so the
		// session gets its own
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		s.run(ctx)
		conn.Close(websocket.StatusNormalClosure, "")
	}
}

type session struct {
	conn  *websocket.Conn
	ctrl  *editor.Controller
	saver editor.Saver
	log   *logger.Logger

	writeMu sync.Mutex
	uploads sync.WaitGroup
}

func (s *session) run(ctx context.Context) {
	defer s.uploads.Wait()
	defer s.ctrl.Close()

	s.log.Info("editing session opened")
	if err := s.send(ctx, s.state("state", 0)); err != nil {
		return
	}
	for {
		var op sessionOp
		if err := wsjson.Read(ctx, s.conn, &op); err != nil {
			if websocket.CloseStatus(err) == -1 && !errors.Is(err, context.Canceled) {
				s.log.Warn("session read failed", "error", err)
			}
			s.log.Info("editing session closed")
			return
		}
		msg := s.apply(ctx, op)
		if msg == nil {
			continue
		}
		if err := s.send(ctx, *msg); err != nil {
			return
		}
	}
}

// apply runs op against the controller. Uploads complete asynchronously
// and return nil here.
func (s *session) apply(ctx context.Context, op sessionOp) *sessionMsg {
	c := s.ctrl
	var outcome *editor.Outcome

	switch op.Op {
	case opInsert:
		k, err := answer.ParseKind(string(op.Kind))
		if err != nil {
			return s.fail(op, err)
		}
		c.InsertBlock(k, op.After)
	case opUpdate:
		c.UpdateBlock(op.Block, op.Patch)
	case opDelete:
		c.DeleteBlock(op.Block)
	case opMove:
		if op.Direction != answer.Up && op.Direction != answer.Down {
			return s.fail(op, fmt.Errorf("direction must be %q or %q", answer.Up, answer.Down))
		}
		c.MoveBlock(op.Block, op.Direction)
	case opRetype:
		k, err := answer.ParseKind(string(op.Kind))
		if err != nil {
			return s.fail(op, err)
		}
		c.ChangeBlockType(op.Block, k)
	case opItemInsert:
		c.InsertItem(op.Block, op.Item)
	case opItemDelete:
		c.DeleteItem(op.Block, op.Item)
	case opItemEdit:
		c.EditItem(op.Block, op.Item, op.Text)
	case opKey:
		o := c.HandleKey(op.Block, op.Key)
		outcome = &o
	case opPick:
		if op.Kind == "" {
			c.ClosePicker()
			break
		}
		k, err := answer.ParseKind(string(op.Kind))
		if err != nil {
			return s.fail(op, err)
		}
		c.PickKind(k)
	case opTitle:
		c.SetTitle(op.Text)
	case opFocus:
		c.SetFocus(editor.Focus{Block: op.Block, Item: op.Item})
	case opUpload:
		s.uploads.Add(1)
		go s.upload(ctx, op)
		return nil
	case opSave:
		if err := c.Save(ctx, s.saver); err != nil {
			return s.fail(op, err)
		}
		msg := s.state("saved", op.Seq)
		return &msg
	default:
		return s.fail(op, fmt.Errorf("unknown op %q", op.Op))
	}
	msg := s.state("state", op.Seq)
	msg.Outcome = outcome
	return &msg
}

func (s *session) upload(ctx context.Context, op sessionOp) {
	defer s.uploads.Done()
	res, err := s.ctrl.UploadImage(ctx, op.Block, op.Name, bytes.NewReader(op.Data))
	if err != nil {
		_ = s.send(ctx, *s.fail(op, err))
		return
	}
	msg := s.state("upload", op.Seq)
	msg.Upload = &res
	_ = s.send(ctx, msg)
}

func (s *session) fail(op sessionOp, err error) *sessionMsg {
	s.log.Debug("session op failed", "op", op.Op, "error", err)
	msg := s.state("error", op.Seq)
	msg.Error = err.Error()
	return &msg
}

func (s *session) state(typ string, seq int64) sessionMsg {
	st := s.ctrl.State()
	blocks := make([]wireBlock, len(st.Blocks))
	for i, b := range st.Blocks {
		p := answer.Encode(b.Body)
		blocks[i] = wireBlock{ID: b.ID, Type: p.Type, Content: p.Content, Items: p.Items}
	}
	return sessionMsg{
		Type:   typ,
		Seq:    seq,
		Title:  st.Title,
		Blocks: blocks,
		Focus:  st.Focus,
		Picker: st.Picker,
	}
}

// send serializes writes from the read loop and upload goroutines.
func (s *session) send(ctx context.Context, msg sessionMsg) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	ctx, cancel := context.WithTimeout(ctx, sessionWriteTimeout)
	defer cancel()
	return wsjson.Write(ctx, s.conn, msg)
}
