package main

import (
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/phil-mansfield/geonav"
	"github.com/phil-mansfield/geonav/io"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// event is one message of the navigation stream. Kind is "visit" for every
// node visited by Locate, "sample" for every step of the ray and "done" at
// its end.
type event struct {
	Kind     string     `json:"kind"`
	Node     int        `json:"node,omitempty"`
	Material int        `json:"material"`
	Step     float64    `json:"step"`
	Distance float64    `json:"distance"`
	Position [3]float64 `json:"position"`
	Density  float64    `json:"density,omitempty"`
	Error    string     `json:"error,omitempty"`
}

// server traces the configured ray once per websocket client and streams
// the navigation events to it. Every client gets its own Context, so the
// geometry is shared read-only between connections.
type server struct {
	run      *io.RunConfig
	geometry *io.Geometry

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

func (srv *server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("WebSocket upgrade error:", err)
		return
	}
	defer conn.Close()

	srv.mu.Lock()
	if srv.clients == nil {
		srv.clients = map[*websocket.Conn]struct{}{}
	}
	srv.clients[conn] = struct{}{}
	n := len(srv.clients)
	srv.mu.Unlock()
	defer func() {
		srv.mu.Lock()
		delete(srv.clients, conn)
		srv.mu.Unlock()
	}()
	log.Printf("Client %s connected, %d active.", r.RemoteAddr, n)

	if err := stream(conn, srv.run, srv.geometry); err != nil {
		log.Println("WebSocket write error:", err)
	}
}

// stream traces the ray and writes every event to conn. Writes stop at the
// first error.
func stream(conn *websocket.Conn, con *io.RunConfig, g *io.Geometry) error {
	var werr error
	send := func(e event) {
		if werr == nil {
			werr = conn.WriteJSON(e)
		}
	}

	cb := func(id geonav.NodeID, st *geonav.State, m geonav.Medium, step float64) {
		send(event{
			Kind: "visit", Node: int(id), Material: material(m), Step: step,
			Distance: st.Distance, Position: st.Position,
		})
	}
	samples, err := trace(con, g, cb)
	for _, s := range samples {
		send(event{
			Kind: "sample", Material: int(s.Material), Step: s.Step,
			Distance: s.Distance, Position: s.Position, Density: s.Density,
		})
	}

	done := event{Kind: "done", Material: -1}
	if err != nil {
		done.Error = err.Error()
	}
	send(done)
	return werr
}

func material(m geonav.Medium) int {
	if m == nil {
		return -1
	}
	return m.Material()
}
