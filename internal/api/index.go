package api

import (
	"net/http"
)

const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>FocusRecorder</title>
    <style>
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Oxygen, Ubuntu, Cantarell, sans-serif;
            max-width: 800px;
            margin: 50px auto;
            padding: 20px;
            background: #f5f5f5;
        }
        .container {
            background: white;
            padding: 30px;
            border-radius: 8px;
            box-shadow: 0 2px 4px rgba(0,0,0,0.1);
        }
        h1 { color: #333; margin-top: 0; }
        #state { padding: 10px; background: #e8f5e9; border-left: 4px solid #4caf50; margin: 20px 0; }
        button { margin-right: 8px; padding: 6px 14px; }
        code { background: #f5f5f5; padding: 2px 6px; border-radius: 3px; }
    </style>
</head>
<body>
    <div class="container">
        <h1>FocusRecorder</h1>
        <div id="state">connecting...</div>
        <button onclick="post('/api/recording/start')">Start</button>
        <button onclick="post('/api/recording/stop')">Stop</button>
        <button onclick="post('/api/recording/cancel')">Cancel</button>
        <a href="/preview">Live preview</a>
        <h3>API Endpoints:</h3>
        <ul>
            <li><code>POST /api/recording/start</code> {"region": {...}, "output": "..."}</li>
            <li><code>POST /api/recording/stop</code></li>
            <li><code>POST /api/recording/cancel</code></li>
            <li><a href="/api/recording/status">/api/recording/status</a></li>
            <li><a href="/api/config">/api/config</a></li>
            <li><a href="/api/health">/api/health</a></li>
        </ul>
    </div>
    <script>
        function post(path) {
            fetch(path, {method: 'POST'}).then(r => r.text()).then(t => show(t));
        }
        function show(text) {
            document.getElementById('state').textContent = text;
        }
        const ws = new WebSocket((location.protocol === 'https:' ? 'wss://' : 'ws://') + location.host + '/api/events');
        ws.onmessage = e => show(e.data);
        ws.onclose = () => show('disconnected');
    </script>
</body>
</html>`

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	w.Write([]byte(indexHTML))
}
