package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/crystal-mush/gomushcore/pkg/events"
	"github.com/crystal-mush/gomushcore/pkg/gamedb"
)

// WebConfig holds configuration for the web server.
type WebConfig struct {
	Port        int
	Host        string
	CertFile    string
	KeyFile     string
	StaticDir   string
	CORSOrigins []string
	RateLimit   int
	JWTSecret   string
	JWTExpiry   int
}

// WebServer provides HTTP/WebSocket transport alongside the TCP game
// server. WebSocket clients get an ordinary Descriptor, so WHO, stats
// and the event bus treat them like telnet connections.
type WebServer struct {
	srv       *Server
	game      *Game
	httpSrv   *http.Server
	mux       *http.ServeMux
	auth      *AuthService
	rl        *rateLimiter
	upgrader  websocket.Upgrader
	startTime time.Time
}

// NewWebServer creates a web server bound to the game server.
func NewWebServer(srv *Server, cfg WebConfig) *WebServer {
	ws := &WebServer{
		srv:       srv,
		game:      srv.Game,
		mux:       http.NewServeMux(),
		auth:      NewAuthService(srv.Game, cfg.JWTSecret, cfg.JWTExpiry),
		rl:        newRateLimiter(cfg.RateLimit),
		startTime: time.Now(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				if len(cfg.CORSOrigins) == 0 {
					return true
				}
				origin := r.Header.Get("Origin")
				for _, o := range cfg.CORSOrigins {
					if strings.EqualFold(o, origin) {
						return true
					}
				}
				return false
			},
		},
	}

	ws.registerRoutes(cfg)
	return ws
}

// Auth returns the auth service for external use.
func (ws *WebServer) Auth() *AuthService {
	return ws.auth
}

// registerRoutes sets up all HTTP routes.
func (ws *WebServer) registerRoutes(cfg WebConfig) {
	// Global middleware: CORS -> rate limit.
	handler := http.Handler(ws.mux)
	handler = rateLimitMiddleware(ws.rl, handler)
	handler = corsMiddleware(cfg.CORSOrigins, handler)

	ws.httpSrv = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler: handler,
	}

	ws.mux.HandleFunc("GET /ws", ws.handleWebSocket)

	ws.mux.HandleFunc("POST /api/v1/auth/login", ws.handleAuthLogin)
	ws.mux.HandleFunc("POST /api/v1/auth/refresh", ws.handleAuthRefresh)

	ws.RegisterRESTRoutes()

	ws.mux.HandleFunc("GET /health", ws.handleHealth)

	if ws.game.Metrics != nil {
		ws.mux.Handle("GET /metrics", ws.game.Metrics.Handler())
	}

	if cfg.StaticDir != "" {
		if _, err := os.Stat(cfg.StaticDir); err == nil {
			fsrv := http.FileServer(http.Dir(cfg.StaticDir))
			ws.mux.Handle("/", spaHandler(fsrv, cfg.StaticDir))
		}
	}
}

// Start begins listening. Uses HTTPS when a cert pair is configured,
// plain HTTP otherwise.
func (ws *WebServer) Start(cfg WebConfig) error {
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			ws.rl.cleanup()
		}
	}()

	var err error
	if cfg.CertFile != "" && cfg.KeyFile != "" {
		log.Printf("STARTUP: web server listening on %s (HTTPS)", ws.httpSrv.Addr)
		err = ws.httpSrv.ListenAndServeTLS(cfg.CertFile, cfg.KeyFile)
	} else {
		log.Printf("STARTUP: web server listening on %s (HTTP)", ws.httpSrv.Addr)
		err = ws.httpSrv.ListenAndServe()
	}
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Stop gracefully shuts down the web server.
func (ws *WebServer) Stop(ctx context.Context) error {
	return ws.httpSrv.Shutdown(ctx)
}

// --- WebSocket transport ---

// WSMessage is the JSON message format for WebSocket communication.
type WSMessage struct {
	Type    string         `json:"type"`
	Text    string         `json:"text,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
	Channel string         `json:"channel,omitempty"`
	Command string         `json:"command,omitempty"`
}

// wsConn serializes writes to the underlying WebSocket connection.
type wsConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (wc *wsConn) sendJSON(msg WSMessage) {
	wc.mu.Lock()
	defer wc.mu.Unlock()
	wc.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	wc.conn.WriteJSON(msg)
}

// handleWebSocket upgrades an HTTP connection to a WebSocket and creates
// a game Descriptor for the client.
func (ws *WebServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	// Authenticate via query param or bearer header; anonymous clients
	// log in over the socket instead.
	var claims *Claims
	token := r.URL.Query().Get("token")
	if token == "" {
		authHeader := r.Header.Get("Authorization")
		if strings.HasPrefix(authHeader, "Bearer ") {
			token = authHeader[7:]
		}
	}
	if token != "" {
		var err error
		claims, err = ws.auth.ValidateToken(token)
		if err != nil {
			http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
			return
		}
	}

	conn, err := ws.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("NET: websocket upgrade: %v", err)
		return
	}

	// Honor proxy headers so logs show the real client.
	remoteAddr := r.RemoteAddr
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx >= 0 {
			remoteAddr = strings.TrimSpace(xff[:idx])
		} else {
			remoteAddr = strings.TrimSpace(xff)
		}
	} else if xri := r.Header.Get("X-Real-IP"); xri != "" {
		remoteAddr = strings.TrimSpace(xri)
	}

	wc := &wsConn{conn: conn}
	d := ws.srv.registerDescriptor(func(id int) *Descriptor {
		now := time.Now()
		d := &Descriptor{
			ID:        id,
			State:     ConnLogin,
			Player:    gamedb.Nothing,
			Addr:      remoteAddr,
			Transport: TransportWebSocket,
			ConnTime:  now,
			LastCmd:   now,
		}
		d.SendFunc = func(msg string) {
			wc.sendJSON(WSMessage{Type: "text", Text: msg})
		}
		d.ReceiveFunc = func(ev events.Event) {
			wc.sendJSON(WSMessage{
				Type:    ev.Type.String(),
				Text:    ev.Text,
				Data:    ev.Data,
				Channel: ev.Channel,
			})
		}
		d.CloseFunc = func() { conn.Close() }
		return d
	})

	if claims != nil {
		ws.srv.attach(d, claims.PlayerRef)
		wc.sendJSON(WSMessage{
			Type: "login",
			Data: map[string]any{
				"player_ref":  int(claims.PlayerRef),
				"player_name": claims.PlayerName,
			},
		})
	} else {
		wc.sendJSON(WSMessage{Type: "welcome",
			Text: "Connected. Send {\"type\":\"login\",\"command\":\"connect name password\"} to authenticate."})
	}

	go ws.readLoop(d, wc)
}

func (ws *WebServer) readLoop(d *Descriptor, wc *wsConn) {
	defer func() {
		ws.srv.disconnect(d)
		log.Printf("NET: [ws:%d] websocket closed from %s", d.ID, d.Addr)
	}()

	for {
		_, msgBytes, err := wc.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("NET: [ws:%d] read: %v", d.ID, err)
			}
			return
		}

		d.LastCmd = time.Now()

		var msg WSMessage
		if err := json.Unmarshal(msgBytes, &msg); err != nil {
			wc.sendJSON(WSMessage{Type: "error", Text: "Invalid JSON message"})
			continue
		}

		switch msg.Type {
		case "command":
			if d.State == ConnLogin {
				ws.wsLogin(d, wc, msg.Command)
				continue
			}
			if strings.EqualFold(strings.TrimSpace(msg.Command), "QUIT") {
				return
			}
			d.CmdCount++
			ws.srv.runInput(d.Player, msg.Command)
		case "login":
			ws.wsLogin(d, wc, msg.Command)
		default:
			wc.sendJSON(WSMessage{Type: "error", Text: fmt.Sprintf("Unknown message type: %s", msg.Type)})
		}
	}
}

func (ws *WebServer) wsLogin(d *Descriptor, wc *wsConn, input string) {
	command, user, password := ParseConnect(input)
	switch command {
	case "connect", "ch", "cd":
		player := LookupPlayer(ws.game.DB, user)
		if player == gamedb.Nothing || !CheckPassword(ws.game.DB, player, password) {
			wc.sendJSON(WSMessage{Type: "error", Text: "Invalid credentials"})
			log.Printf("NET: failed websocket connect attempt for %q from %s", user, d.Addr)
			return
		}
		ws.srv.attach(d, player)
		wc.sendJSON(WSMessage{
			Type: "login",
			Data: map[string]any{
				"player_ref":  int(player),
				"player_name": ws.game.Name(player),
			},
		})
	default:
		wc.sendJSON(WSMessage{Type: "error", Text: "Use: connect <name> <password>"})
	}
}

// --- Auth HTTP handlers ---

func (ws *WebServer) handleAuthLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
		return
	}

	token, err := ws.auth.Login(req.Name, req.Password)
	if err != nil {
		http.Error(w, `{"error":"invalid credentials"}`, http.StatusUnauthorized)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"token": token})
}

func (ws *WebServer) handleAuthRefresh(w http.ResponseWriter, r *http.Request) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		http.Error(w, `{"error":"authorization required"}`, http.StatusUnauthorized)
		return
	}
	newToken, err := ws.auth.RefreshToken(authHeader[7:])
	if err != nil {
		http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"token": newToken})
}

// --- Health handler ---

func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":         "ok",
		"version":        Version,
		"uptime_seconds": time.Since(ws.startTime).Seconds(),
	})
}

// --- SPA handler ---

// spaHandler serves static files, falling back to index.html for SPA
// routing.
func spaHandler(fileServer http.Handler, staticDir string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := staticDir + r.URL.Path
		if _, err := os.Stat(path); os.IsNotExist(err) {
			http.ServeFile(w, r, staticDir+"/index.html")
			return
		}
		fileServer.ServeHTTP(w, r)
	})
}
