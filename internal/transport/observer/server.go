package observer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"worldforge.ai/internal/gen/encoding"
	"worldforge.ai/internal/gen/stage/biome"
	"worldforge.ai/internal/gen/world"
	"worldforge.ai/internal/observerproto"
)

// MaxLayersPerSubscribe bounds one SUBSCRIBE request.
const MaxLayersPerSubscribe = 16

// DefaultLayers are sent when a SUBSCRIBE names none.
var DefaultLayers = []string{"elevation", "biomes"}

// Server exposes a generated world read-only. Worlds are never mutated after
// generation, so handlers share w without locking.
type Server struct {
	world *world.World
	log   *log.Logger

	// AllowRemote disables the loopback-only check.
	AllowRemote bool

	upgrader websocket.Upgrader
	nextID   atomic.Uint64
}

func NewServer(w *world.World, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Server{
		world: w,
		log:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

// Routes mounts the bootstrap and websocket handlers on a new mux.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/bootstrap", s.BootstrapHandler())
	mux.HandleFunc("/v1/ws", s.WSHandler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	return mux
}

func (s *Server) Bootstrap() observerproto.BootstrapResponse {
	sum := s.world.Summary()
	resp := observerproto.BootstrapResponse{
		ProtocolVersion: observerproto.Version,
		WorldParams: observerproto.WorldParams{
			Seed:          sum.Seed,
			Width:         sum.Width,
			Height:        sum.Height,
			Digest:        sum.Digest,
			ConfigDigest:  sum.ConfigDigest,
			CatalogDigest: sum.CatalogDigest,
			BiomeTable:    sum.BiomeTable,
		},
		Biomes: sum.Biomes,
		Stages: world.StageNames(),
	}
	for _, name := range encoding.LayerNames() {
		kind, _ := encoding.LayerKind(name)
		resp.Layers = append(resp.Layers, observerproto.LayerInfo{Name: name, Kind: kind})
	}
	for _, b := range biome.All() {
		resp.BiomePalette = append(resp.BiomePalette, b.String())
	}
	return resp
}

func (s *Server) BootstrapHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !s.AllowRemote && !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(s.Bootstrap())
	}
}

func (s *Server) WSHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !s.AllowRemote && !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		// Handshake: must send SUBSCRIBE first.
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		sub, ok := parseSubscribe(msg)
		if !ok {
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected SUBSCRIBE"), time.Now().Add(time.Second))
			return
		}

		sid := fmt.Sprintf("O%d", s.nextID.Add(1))
		s.log.Printf("observer %s connected from %s", sid, r.RemoteAddr)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()
		out := make(chan []byte, MaxLayersPerSubscribe)

		// Writer goroutine.
		writeErr := make(chan error, 1)
		go func() {
			for {
				select {
				case <-ctx.Done():
					writeErr <- ctx.Err()
					return
				case b := <-out:
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						writeErr <- err
						cancel()
						return
					}
				}
			}
		}()

		s.serve(ctx, sub, out)

		// Reader loop: further SUBSCRIBE messages request more layers.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			sub, ok := parseSubscribe(msg)
			if !ok {
				s.send(ctx, out, s.errorMsg("bad_request", "expected SUBSCRIBE"))
				continue
			}
			s.serve(ctx, sub, out)
		}

		cancel()
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))
		s.log.Printf("observer %s disconnected", sid)

		// Best-effort wait for the writer to stop so it doesn't outlive conn.
		select {
		case <-writeErr:
		case <-time.After(500 * time.Millisecond):
		}
	}
}

func parseSubscribe(msg []byte) (observerproto.SubscribeMsg, bool) {
	var sub observerproto.SubscribeMsg
	if err := json.Unmarshal(msg, &sub); err != nil {
		return sub, false
	}
	if sub.Type != observerproto.TypeSubscribe || sub.ProtocolVersion != observerproto.Version {
		return sub, false
	}
	normalizeSubscribe(&sub)
	return sub, true
}

func normalizeSubscribe(sub *observerproto.SubscribeMsg) {
	if len(sub.Layers) == 0 {
		sub.Layers = append([]string(nil), DefaultLayers...)
	}
	if len(sub.Layers) > MaxLayersPerSubscribe {
		sub.Layers = sub.Layers[:MaxLayersPerSubscribe]
	}
}

// serve queues one LAYER (or ERROR) message per requested layer, in request
// order.
func (s *Server) serve(ctx context.Context, sub observerproto.SubscribeMsg, out chan<- []byte) {
	for _, name := range sub.Layers {
		b, err := s.LayerMessage(name)
		if err != nil {
			b = s.errorMsg("unknown_layer", err.Error())
		}
		if !s.send(ctx, out, b) {
			return
		}
	}
}

func (s *Server) send(ctx context.Context, out chan<- []byte, b []byte) bool {
	select {
	case out <- b:
		return true
	case <-ctx.Done():
		return false
	}
}

// LayerMessage renders the named layer as an encoded LAYER message.
func (s *Server) LayerMessage(name string) ([]byte, error) {
	vals, err := encoding.Layer(s.world, name)
	if err != nil {
		return nil, err
	}
	kind, _ := encoding.LayerKind(name)
	return json.Marshal(observerproto.LayerMsg{
		Type:            observerproto.TypeLayer,
		ProtocolVersion: observerproto.Version,
		Name:            name,
		Kind:            kind,
		Width:           s.world.Width,
		Height:          s.world.Height,
		Encoding:        observerproto.EncodingRLE,
		Data:            encoding.EncodeRLE(vals),
	})
}

func (s *Server) errorMsg(code, message string) []byte {
	b, _ := json.Marshal(observerproto.ErrorMsg{
		Type:            observerproto.TypeError,
		ProtocolVersion: observerproto.Version,
		Code:            code,
		Message:         message,
	})
	return b
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
