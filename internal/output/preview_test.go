package output

import (
	"bufio"
	"image"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestPreviewThrottlesFrames(t *testing.T) {
	p := NewPreviewOutput(Config{FPS: 10})
	clock := time.Unix(0, 0)
	p.now = func() time.Time { return clock }
	if err := p.Start(); err != nil {
		t.Fatal(err)
	}
	defer p.Stop()

	frame := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for i := 0; i < 10; i++ {
		if err := p.WriteFrame(frame); err != nil {
			t.Fatal(err)
		}
		clock = clock.Add(33 * time.Millisecond)
	}

	stats := p.Stats()
	// 0, 132, 264 ms pass the 100 ms gate
	if stats.Frames != 3 || stats.Dropped != 7 {
		t.Fatalf("frames=%d dropped=%d", stats.Frames, stats.Dropped)
	}
}

func TestPreviewRejectsWhenStopped(t *testing.T) {
	p := NewPreviewOutput(Config{})
	if err := p.WriteFrame(image.NewRGBA(image.Rect(0, 0, 1, 1))); err == nil {
		t.Fatal("expected error when not running")
	}

	rec := httptest.NewRecorder()
	p.StreamHandler()(rec, httptest.NewRequest(http.MethodGet, "/preview/stream", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestPreviewStreamDeliversJPEG(t *testing.T) {
	p := NewPreviewOutput(Config{FPS: 1000})
	if err := p.Start(); err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(p.StreamHandler())
	defer srv.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		frame := image.NewRGBA(image.Rect(0, 0, 8, 8))
		for i := 0; i < 500; i++ {
			select {
			case <-done:
				return
			default:
			}
			p.WriteFrame(frame)
			time.Sleep(5 * time.Millisecond)
		}
	}()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "multipart/x-mixed-replace") {
		t.Fatalf("content type %q", ct)
	}
	line, err := bufio.NewReader(resp.Body).ReadString('\n')
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(line) != "--frame" {
		t.Fatalf("first line %q", line)
	}
	p.Stop()
}
