// Package devserver serves a project's files and pushes reload messages to
// connected browsers.
package devserver

import (
	"bytes"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("rill.dev")

const (
	// SocketPath is the websocket endpoint browsers connect to
	SocketPath = "/__rill/ws"
	// ClientPath serves the reload client script
	ClientPath = "/__rill/client.js"
)

// Message types sent to clients
const (
	TypeReload = "RELOAD"
	TypeError  = "ERROR"
	TypeAck    = "ACK"
)

// Message is the JSON frame exchanged with clients
type Message struct {
	Type  string `json:"type"`
	File  string `json:"file,omitempty"`
	Error string `json:"error,omitempty"`
}

const clientScript = `(function () {
	const proto = location.protocol === "https:" ? "wss:" : "ws:";
	const ws = new WebSocket(proto + "//" + location.host + "` + SocketPath + `");
	ws.onopen = () => ws.send(JSON.stringify({ type: "HELLO" }));
	ws.onmessage = (e) => {
		const msg = JSON.parse(e.data);
		if (msg.type === "` + TypeReload + `") location.reload();
		if (msg.type === "` + TypeError + `") console.error("[rill] " + msg.file + ": " + msg.error);
	};
})();
`

// Server is the development HTTP server
type Server struct {
	root      string
	wsClients map[*websocket.Conn]*sync.Mutex
	wsMutex   sync.RWMutex
	upgrader  websocket.Upgrader
}

// New creates a server for files under root
func New(root string) *Server {
	return &Server{
		root:      root,
		wsClients: make(map[*websocket.Conn]*sync.Mutex),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Allow all origins in dev mode
				return true
			},
		},
	}
}

// Handler returns the HTTP routes
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(SocketPath, s.handleWebSocket)
	mux.HandleFunc(ClientPath, s.serveClient)
	mux.HandleFunc("/", s.serveStatic)
	return mux
}

func (s *Server) serveClient(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/javascript")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write([]byte(clientScript))
}

// serveStatic serves files from root, injecting the reload client into
// HTML pages
func (s *Server) serveStatic(w http.ResponseWriter, r *http.Request) {
	path := filepath.Join(s.root, filepath.FromSlash(filepath.Clean("/"+r.URL.Path)))
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, "index.html")
	}

	if strings.HasSuffix(path, ".js") {
		w.Header().Set("Content-Type", "application/javascript")
	}
	w.Header().Set("Cache-Control", "no-cache")

	if !strings.HasSuffix(path, ".html") {
		http.ServeFile(w, r, path)
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(injectClient(data))
}

// injectClient adds the reload script before </body>, or at the end
func injectClient(page []byte) []byte {
	tag := []byte(`<script src="` + ClientPath + `"></script>`)
	if i := bytes.LastIndex(page, []byte("</body>")); i >= 0 {
		out := make([]byte, 0, len(page)+len(tag))
		out = append(out, page[:i]...)
		out = append(out, tag...)
		return append(out, page[i:]...)
	}
	return append(append([]byte{}, page...), tag...)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	// Register client
	writeMu := &sync.Mutex{}
	s.wsMutex.Lock()
	s.wsClients[conn] = writeMu
	s.wsMutex.Unlock()

	defer func() {
		s.wsMutex.Lock()
		delete(s.wsClients, conn)
		s.wsMutex.Unlock()
	}()

	// Handle messages
	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warning("websocket error", "error", err)
			}
			break
		}

		switch msg.Type {
		case "HELLO":
			writeMu.Lock()
			err := conn.WriteJSON(Message{Type: TypeAck})
			writeMu.Unlock()
			if err != nil {
				return
			}
		default:
			log.Debug("unknown websocket message", "type", msg.Type)
		}
	}
}

// Broadcast sends msg to every connected client
func (s *Server) Broadcast(msg Message) {
	s.wsMutex.RLock()
	defer s.wsMutex.RUnlock()

	for client, writeMu := range s.wsClients {
		writeMu.Lock()
		err := client.WriteJSON(msg)
		writeMu.Unlock()
		if err != nil {
			log.Warning("failed to send message to client", "error", err)
		}
	}
}

// Clients returns the number of connected clients
func (s *Server) Clients() int {
	s.wsMutex.RLock()
	defer s.wsMutex.RUnlock()
	return len(s.wsClients)
}
