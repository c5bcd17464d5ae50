// Package liveview serves a single page, to a single client, over a single
// websocket, streaming genetic-search training progress. Grounded on
// tabular/server/server.go's Server/serveWebsocket/publishEleUpdates, adapted
// to push Update values instead of grid-world cell states; see DESIGN.md.
package liveview

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	channerics "github.com/niceyeti/channerics/channels"
)

const (
	// writeWait is the time allowed to write a message to the peer.
	writeWait = 1 * time.Second
	// maxMessageSize is the largest message read from the peer.
	maxMessageSize = 8192
	// pongWait is the time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second
	// pingPeriod must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// closeGracePeriod is how long to wait after a close message before force-closing.
	closeGracePeriod = 10 * time.Second
)

var upgrader = websocket.Upgrader{}

// Update is one progress report from a running genetic search.
type Update struct {
	FracComplete float64 `json:"fracComplete"`
	Generation   int     `json:"generation"`
	BestName     string  `json:"bestName,omitempty"`
	BestDna      []byte  `json:"bestDna,omitempty"`
}

// Server serves the progress page and streams Updates to whichever single
// client connects to /ws. Like its teacher, this intentionally supports only
// one connected viewer at a time.
type Server struct {
	addr    string
	updates <-chan Update
}

// NewServer returns a Server that will publish values received on updates.
func NewServer(addr string, updates <-chan Update) *Server {
	return &Server{addr: addr, updates: updates}
}

// Serve registers the index and websocket handlers and blocks serving HTTP.
func (s *Server) Serve() error {
	http.HandleFunc("/", s.serveIndex)
	http.HandleFunc("/ws", s.serveWebsocket)

	if err := http.ListenAndServe(s.addr, nil); err != nil {
		return fmt.Errorf("liveview: serve: %w", err)
	}
	return nil
}

func (s *Server) serveIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html")
	_, _ = w.Write([]byte(indexHTML))
}

func (s *Server) serveWebsocket(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	defer closeWebsocket(ws)
	s.publishUpdates(r.Context(), ws)
}

// publishUpdates pumps Update values onto ws until the client disconnects or
// stops answering pings. The read loop exists solely to drive gorilla's pong
// handler; this connection never expects an inbound application message.
func (s *Server) publishUpdates(ctx context.Context, ws *websocket.Conn) {
	pubCtx, cancelPub := context.WithCancel(ctx)
	defer cancelPub()

	pinger := channerics.NewTicker(pubCtx.Done(), pingPeriod)
	lastPong := time.Now()

	ws.SetReadLimit(maxMessageSize)

	pong := make(chan struct{})
	defer close(pong)
	ws.SetPongHandler(func(string) error {
		pong <- struct{}{}
		return nil
	})

	go func() {
		for {
			select {
			case <-pubCtx.Done():
				return
			default:
				if _, _, err := ws.ReadMessage(); err != nil {
					cancelPub()
					return
				}
			}
		}
	}()

	for {
		select {
		case <-pubCtx.Done():
			return
		case <-pinger:
			if time.Since(lastPong) > pongWait {
				return
			}
			if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-pong:
			lastPong = time.Now()
		case update, ok := <-s.updates:
			if !ok {
				return
			}
			if err := ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := ws.WriteJSON(update); err != nil {
				return
			}
		}
	}
}

func closeWebsocket(ws *websocket.Conn) {
	_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
	_ = ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	time.Sleep(closeGracePeriod)
	_ = ws.Close()
}

const indexHTML = `<!doctype html>
<html>
<head><title>flowforge-demo</title></head>
<body>
<h1>training progress</h1>
<pre id="status">connecting...</pre>
<script>
  const ws = new WebSocket("ws://" + location.host + "/ws");
  ws.onmessage = (ev) => {
    const update = JSON.parse(ev.data);
    document.getElementById("status").textContent =
      "generation " + update.generation + ": " +
      (update.fracComplete * 100).toFixed(1) + "% complete, best=" + update.bestName;
  };
</script>
</body>
</html>
`
