package handlers

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	socketio "github.com/googollee/go-socket.io"
	"github.com/googollee/go-socket.io/engineio"
	"github.com/googollee/go-socket.io/engineio/transport"
	"github.com/googollee/go-socket.io/engineio/transport/polling"
	"github.com/googollee/go-socket.io/engineio/transport/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/Raed-Bourouis/VoiceUP/internal/auth"
	"github.com/Raed-Bourouis/VoiceUP/internal/config"
	"github.com/Raed-Bourouis/VoiceUP/internal/services"
	"github.com/Raed-Bourouis/VoiceUP/pkg/logger"
)

// shellRoom is the room every authenticated shell connection joins.
// Session events are broadcast there.
const shellRoom = "shell"

// SocketGateway bridges open chat views to the UI shell. The shell
// opens a chat over the socket and receives every view update as a
// "view_update" event until it closes the chat again.
type SocketGateway struct {
	views    *services.ViewManager
	sessions *auth.Manager
	cfg      *config.Config
	log      zerolog.Logger

	// Each view's updates channel has a single consumer. The map
	// records which chats already have a forwarder running so a
	// repeated open never attaches a second one.
	mu         sync.Mutex
	forwarding map[string]bool
}

func NewSocketGateway(views *services.ViewManager, sessions *auth.Manager, cfg *config.Config) *SocketGateway {
	return &SocketGateway{
		views:      views,
		sessions:   sessions,
		cfg:        cfg,
		log:        logger.With("socket"),
		forwarding: make(map[string]bool),
	}
}

// Server builds the socket.io server, wires the chat view events and
// starts serving. The caller mounts it on the gin router.
func (g *SocketGateway) Server() *socketio.Server {
	server := socketio.NewServer(&engineio.Options{
		Transports: []transport.Transport{
			&websocket.Transport{
				CheckOrigin: func(r *http.Request) bool { return true },
			},
			&polling.Transport{
				CheckOrigin: func(r *http.Request) bool { return true },
			},
		},
	})

	server.OnConnect("/", func(s socketio.Conn) error {
		u := s.URL()
		if err := g.authorize(u.Query().Get("token")); err != nil {
			g.log.Warn().Str("socketId", s.ID()).Err(err).Msg("connection rejected")
			return err
		}
		s.Join(shellRoom)
		g.log.Info().Str("socketId", s.ID()).Msg("shell connected")
		return nil
	})

	server.OnEvent("/", "open_chat", func(s socketio.Conn, chatID string) {
		if chatID == "" {
			return
		}
		view, err := g.views.Open(context.Background(), chatID)
		if err != nil {
			// The failed load already produced a failure update; the
			// forwarder below delivers it so the shell can retry.
			g.log.Warn().Str("chatId", chatID).Err(err).Msg("open chat failed")
		}
		if view == nil {
			return
		}

		g.mu.Lock()
		if g.forwarding[chatID] {
			g.mu.Unlock()
			// Already forwarding; re-send the current window so a
			// re-opened screen can render immediately.
			s.Emit("view_update", view.Snapshot())
			return
		}
		g.forwarding[chatID] = true
		g.mu.Unlock()

		go g.forward(server, chatID, view)
	})

	server.OnEvent("/", "close_chat", func(s socketio.Conn, chatID string) {
		g.views.Close(chatID)
	})

	server.OnEvent("/", "load_older", func(s socketio.Conn, chatID string) {
		if view := g.views.Get(chatID); view != nil {
			view.LoadOlder(context.Background())
		}
	})

	server.OnEvent("/", "retry", func(s socketio.Conn, chatID string) {
		if view := g.views.Get(chatID); view != nil {
			view.Retry(context.Background())
		}
	})

	server.OnDisconnect("/", func(s socketio.Conn, reason string) {
		g.log.Info().Str("socketId", s.ID()).Str("reason", reason).Msg("shell disconnected")
		// The shell owns every open view. When it goes away the views
		// close too, which also restores push banners for those chats.
		g.views.CloseAll()
	})

	server.OnError("/", func(s socketio.Conn, e error) {
		g.log.Error().Err(e).Msg("socket error")
	})

	go g.forwardSessionEvents(server)
	go server.Serve()
	return server
}

// forward pumps one view's updates to the shell until the view closes.
func (g *SocketGateway) forward(server *socketio.Server, chatID string, view *services.ChatView) {
	defer func() {
		g.mu.Lock()
		delete(g.forwarding, chatID)
		g.mu.Unlock()
	}()

	for update := range view.Updates() {
		server.BroadcastToRoom("/", shellRoom, "view_update", update)
	}
}

// forwardSessionEvents relays sign-in and sign-out transitions so the
// shell can swap screens without polling.
func (g *SocketGateway) forwardSessionEvents(server *socketio.Server) {
	for event := range g.sessions.Events() {
		server.BroadcastToRoom("/", shellRoom, "session", event)
	}
}

// authorize applies the same token check as the HTTP middleware.
// Socket handshakes cannot set headers and pass the token as a query
// param instead.
func (g *SocketGateway) authorize(token string) error {
	if g.cfg.GatewayTokenHash == "" {
		if g.cfg.Environment == "development" {
			return nil
		}
		return fmt.Errorf("gateway token not configured")
	}
	if token == "" {
		return fmt.Errorf("authentication required")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(g.cfg.GatewayTokenHash), []byte(token)); err != nil {
		return fmt.Errorf("invalid token")
	}
	return nil
}

// SocketHandler wraps the socket.io server for gin.
func SocketHandler(server *socketio.Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		server.ServeHTTP(c.Writer, c.Request)
	}
}
