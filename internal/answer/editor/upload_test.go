package editor

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/mind-engage/mindengage-curriculum/internal/answer"
)

type uploadReply struct {
	url string
	err error
}

// gatedUploader blocks until the test releases it or its context ends.
type gatedUploader struct {
	started   chan struct{}
	release   chan uploadReply
	honourCtx bool
}

func newGatedUploader(honourCtx bool) *gatedUploader {
	return &gatedUploader{started: make(chan struct{}, 1), release: make(chan uploadReply, 1), honourCtx: honourCtx}
}

func (g *gatedUploader) Upload(ctx context.Context, _ string, r io.Reader) (string, error) {
	_, _ = io.ReadAll(r)
	g.started <- struct{}{}
	if g.honourCtx {
		select {
		case rep := <-g.release:
			return rep.url, rep.err
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	rep := <-g.release
	return rep.url, rep.err
}

type uploadOutcome struct {
	res UploadResult
	err error
}

func startUpload(c *Controller, id answer.ID) <-chan uploadOutcome {
	done := make(chan uploadOutcome, 1)
	go func() {
		res, err := c.UploadImage(context.Background(), id, "fig.png", strings.NewReader("png"))
		done <- uploadOutcome{res, err}
	}()
	return done
}

func wait(t *testing.T, ch <-chan uploadOutcome) uploadOutcome {
	t.Helper()
	select {
	case o := <-ch:
		return o
	case <-time.After(5 * time.Second):
		t.Fatal("upload did not finish")
		return uploadOutcome{}
	}
}

func imageURL(c *Controller, id answer.ID) string {
	for _, b := range c.Blocks() {
		if b.ID == id {
			return answer.ContentOf(b.Body)
		}
	}
	return ""
}

func TestUploadApplies(t *testing.T) {
	up := newGatedUploader(true)
	c := New("Q", WithUploader(up))
	img := c.InsertBlock(answer.KindImage, "")

	done := startUpload(c, img)
	<-up.started
	// the controller stays editable while the upload is in flight
	c.InsertBlock(answer.KindText, img)
	up.release <- uploadReply{url: "https://cdn.example.com/images/a.png"}

	o := wait(t, done)
	if o.err != nil || !o.res.Applied {
		t.Fatalf("result %+v, err %v", o.res, o.err)
	}
	if got := imageURL(c, img); got != "https://cdn.example.com/images/a.png" {
		t.Fatalf("url = %q", got)
	}
}

func TestUploadFailureLeavesBlock(t *testing.T) {
	up := newGatedUploader(true)
	c := New("Q", WithUploader(up))
	img := c.InsertBlock(answer.KindImage, "")

	done := startUpload(c, img)
	<-up.started
	up.release <- uploadReply{err: errors.New("503 from asset host")}

	o := wait(t, done)
	if !errors.Is(o.err, ErrUploadFailed) {
		t.Fatalf("err = %v, want ErrUploadFailed", o.err)
	}
	if got := imageURL(c, img); got != "" {
		t.Fatalf("url = %q, want empty", got)
	}
}

func TestDeleteCancelsUpload(t *testing.T) {
	up := newGatedUploader(true)
	c := New("Q", WithUploader(up))
	img := c.InsertBlock(answer.KindImage, "")

	done := startUpload(c, img)
	<-up.started
	c.DeleteBlock(img)

	o := wait(t, done)
	if o.err != nil || o.res.Applied {
		t.Fatalf("cancelled upload reported %+v, %v", o.res, o.err)
	}
}

func TestRetypeDiscardsLateUpload(t *testing.T) {
	up := newGatedUploader(false)
	c := New("Q", WithUploader(up))
	img := c.InsertBlock(answer.KindImage, "")

	done := startUpload(c, img)
	<-up.started
	c.ChangeBlockType(img, answer.KindText)
	c.ChangeBlockType(img, answer.KindImage)
	up.release <- uploadReply{url: "https://cdn.example.com/images/late.png"}

	o := wait(t, done)
	if o.err != nil || o.res.Applied {
		t.Fatalf("stale upload applied: %+v, %v", o.res, o.err)
	}
	if got := imageURL(c, img); got != "" {
		t.Fatalf("url = %q, want empty", got)
	}
}

func TestUploadToNonImageIsNoop(t *testing.T) {
	up := newGatedUploader(true)
	c := New("Q", WithUploader(up))
	res, err := c.UploadImage(context.Background(), firstID(c), "a.png", strings.NewReader("x"))
	if err != nil || res.Applied {
		t.Fatalf("got %+v, %v", res, err)
	}
	select {
	case <-up.started:
		t.Fatal("uploader should not have been called")
	default:
	}

	if _, err := New("Q").UploadImage(context.Background(), "x", "a.png", strings.NewReader("x")); !errors.Is(err, ErrNoUploader) {
		t.Fatalf("err = %v, want ErrNoUploader", err)
	}
}
