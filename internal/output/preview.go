package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	"net/http"
	"sync"
	"time"

	"github.com/bryanchriswhite/FocusRecorder/internal/logger"
)

// PreviewOutput streams the frames being recorded as Motion JPEG over HTTP.
// Frames arriving faster than the configured FPS are dropped.
type PreviewOutput struct {
	config  Config
	running bool
	mu      sync.RWMutex

	frameMu    sync.RWMutex
	lastUpdate time.Time

	clientsMu sync.RWMutex
	clients   map[chan []byte]struct{}

	frameCount uint64
	dropped    uint64
	startTime  time.Time
	now        func() time.Time
}

// NewPreviewOutput creates a new MJPEG preview output
func NewPreviewOutput(config Config) *PreviewOutput {
	if config.FPS <= 0 {
		config.FPS = 10
	}
	return &PreviewOutput{
		config:  config,
		clients: make(map[chan []byte]struct{}),
		now:     time.Now,
	}
}

// Start marks the preview as accepting frames. HTTP handlers are mounted
// separately via StreamHandler and ViewerHandler.
func (p *PreviewOutput) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return fmt.Errorf("preview output already running")
	}

	p.running = true
	p.startTime = p.now()
	p.frameCount = 0
	p.dropped = 0

	logger.WithComponent("preview").Info().
		Int("fps", p.config.FPS).
		Msg("Preview output started")
	return nil
}

// Stop disconnects all clients
func (p *PreviewOutput) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return nil
	}
	p.running = false

	p.clientsMu.Lock()
	for ch := range p.clients {
		close(ch)
	}
	p.clients = make(map[chan []byte]struct{})
	p.clientsMu.Unlock()

	logger.WithComponent("preview").Info().
		Uint64("frames", p.frameCount).
		Uint64("dropped", p.dropped).
		Msg("Preview output stopped")
	return nil
}

// WriteFrame encodes frame and broadcasts it to connected clients, at most
// once per preview interval.
func (p *PreviewOutput) WriteFrame(frame *image.RGBA) error {
	if !p.IsRunning() {
		return fmt.Errorf("preview output not running")
	}

	now := p.now()
	minGap := time.Second / time.Duration(p.config.FPS)
	p.frameMu.Lock()
	if !p.lastUpdate.IsZero() && now.Sub(p.lastUpdate) < minGap {
		p.frameMu.Unlock()
		p.mu.Lock()
		p.dropped++
		p.mu.Unlock()
		return nil
	}
	p.lastUpdate = now
	p.frameMu.Unlock()

	p.clientsMu.RLock()
	clientCount := len(p.clients)
	p.clientsMu.RUnlock()

	p.mu.Lock()
	p.frameCount++
	p.mu.Unlock()

	if clientCount == 0 {
		return nil
	}

	buf := new(bytes.Buffer)
	if err := jpeg.Encode(buf, frame, &jpeg.Options{Quality: 80}); err != nil {
		return fmt.Errorf("failed to encode JPEG: %w", err)
	}
	jpegData := buf.Bytes()

	p.clientsMu.RLock()
	for ch := range p.clients {
		select {
		case ch <- jpegData:
		default:
			// Client is slow, skip this frame
		}
	}
	p.clientsMu.RUnlock()

	return nil
}

func (p *PreviewOutput) Name() string {
	return "MJPEG preview"
}

func (p *PreviewOutput) IsRunning() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.running
}

// PreviewStats is the JSON body served by StatsHandler
type PreviewStats struct {
	Running    bool    `json:"running"`
	Frames     uint64  `json:"frames"`
	Dropped    uint64  `json:"dropped"`
	Clients    int     `json:"clients"`
	ActualFPS  float64 `json:"actualFps"`
	TargetFPS  int     `json:"targetFps"`
	LastUpdate string  `json:"lastUpdate,omitempty"`
}

// Stats returns a snapshot of the preview counters
func (p *PreviewOutput) Stats() PreviewStats {
	p.mu.RLock()
	stats := PreviewStats{
		Running:   p.running,
		Frames:    p.frameCount,
		Dropped:   p.dropped,
		TargetFPS: p.config.FPS,
	}
	startTime := p.startTime
	p.mu.RUnlock()

	p.frameMu.RLock()
	if !p.lastUpdate.IsZero() {
		stats.LastUpdate = p.lastUpdate.Format(time.RFC3339Nano)
	}
	p.frameMu.RUnlock()

	p.clientsMu.RLock()
	stats.Clients = len(p.clients)
	p.clientsMu.RUnlock()

	if stats.Running && !startTime.IsZero() {
		if elapsed := p.now().Sub(startTime).Seconds(); elapsed > 0 {
			stats.ActualFPS = float64(stats.Frames) / elapsed
		}
	}
	return stats
}

// StreamHandler returns an http.Handler for the MJPEG stream
func (p *PreviewOutput) StreamHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !p.IsRunning() {
			http.Error(w, "preview not running", http.StatusServiceUnavailable)
			return
		}

		w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
		w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		w.Header().Set("Pragma", "no-cache")
		w.Header().Set("Expires", "0")
		w.Header().Set("Connection", "close")

		frameChan := make(chan []byte, 2)

		p.clientsMu.Lock()
		p.clients[frameChan] = struct{}{}
		clientCount := len(p.clients)
		p.clientsMu.Unlock()

		log := logger.WithComponent("preview")
		log.Info().Int("clients", clientCount).Msg("Preview client connected")

		defer func() {
			p.clientsMu.Lock()
			// Stop may already have closed and removed the channel
			if _, ok := p.clients[frameChan]; ok {
				delete(p.clients, frameChan)
			}
			clientCount := len(p.clients)
			p.clientsMu.Unlock()
			log.Info().Int("clients", clientCount).Msg("Preview client disconnected")
		}()

		for {
			select {
			case <-r.Context().Done():
				return
			case jpegData, ok := <-frameChan:
				if !ok {
					return
				}
				if _, err := fmt.Fprintf(w, "--frame\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", len(jpegData)); err != nil {
					return
				}
				if _, err := w.Write(jpegData); err != nil {
					return
				}
				if _, err := fmt.Fprintf(w, "\r\n"); err != nil {
					return
				}
				if f, ok := w.(http.Flusher); ok {
					f.Flush()
				}
			}
		}
	}
}

// StatsHandler serves the preview counters as JSON
func (p *PreviewOutput) StatsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(p.Stats())
	}
}

// ViewerHandler returns a minimal page embedding the stream
func (p *PreviewOutput) ViewerHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(viewerHTML))
	}
}

const viewerHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>FocusRecorder - Preview</title>
    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body {
            background: #000;
            display: flex;
            flex-direction: column;
            justify-content: center;
            align-items: center;
            min-height: 100vh;
            font-family: system-ui, -apple-system, sans-serif;
            color: #ccc;
        }
        img { max-width: 100vw; max-height: 90vh; object-fit: contain; background: #111; }
        #status { padding: 8px; font-size: 13px; }
    </style>
</head>
<body>
    <img src="/preview/stream" alt="Recording preview">
    <div id="status">idle</div>
    <script>
        const status = document.getElementById('status');
        const ws = new WebSocket((location.protocol === 'https:' ? 'wss://' : 'ws://') + location.host + '/api/events');
        ws.onmessage = (msg) => {
            const ev = JSON.parse(msg.data);
            if (ev.type === 'progress') {
                status.textContent = 'recording ' + (ev.elapsed_ms / 1000).toFixed(1) + 's';
            } else {
                status.textContent = ev.type + (ev.message ? ': ' + ev.message : '') + (ev.output ? ' ' + ev.output : '');
            }
        };
    </script>
</body>
</html>`
