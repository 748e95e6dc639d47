package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/crystal-mush/gomushcore/pkg/events"
	"github.com/crystal-mush/gomushcore/pkg/gamedb"
)

// RegisterRESTRoutes registers all REST API endpoints on the web server's
// mux. Called from WebServer.registerRoutes after the mux is created.
func (ws *WebServer) RegisterRESTRoutes() {
	// WHO list (optional auth)
	ws.mux.Handle("GET /api/v1/who",
		authMiddleware(ws.auth, false, http.HandlerFunc(ws.handleWho)))

	// Command execution (required auth)
	ws.mux.Handle("POST /api/v1/command",
		authMiddleware(ws.auth, true, http.HandlerFunc(ws.handleCommand)))

	// Object info (required auth)
	ws.mux.Handle("GET /api/v1/objects/{dbref}",
		authMiddleware(ws.auth, true, http.HandlerFunc(ws.handleGetObject)))

	// Attribute value (required auth)
	ws.mux.Handle("GET /api/v1/objects/{dbref}/attrs/{name}",
		authMiddleware(ws.auth, true, http.HandlerFunc(ws.handleGetAttr)))

	// Room scrollback history (required auth)
	ws.mux.Handle("GET /api/v1/scrollback/{channel}",
		authMiddleware(ws.auth, true, http.HandlerFunc(ws.handleChannelHistory)))

	// Personal scrollback (required auth)
	ws.mux.Handle("GET /api/v1/scrollback",
		authMiddleware(ws.auth, true, http.HandlerFunc(ws.handleGetScrollback)))
	ws.mux.Handle("POST /api/v1/scrollback",
		authMiddleware(ws.auth, true, http.HandlerFunc(ws.handlePostScrollback)))
}

// --- WHO ---

// formatDuration renders "d h:mm" the way the WHO screen does.
func formatDuration(d time.Duration) string {
	secs := int(d.Seconds())
	days := secs / 86400
	hours := (secs % 86400) / 3600
	mins := (secs % 3600) / 60
	if days > 0 {
		return fmt.Sprintf("%dd %02d:%02d", days, hours, mins)
	}
	return fmt.Sprintf("%02d:%02d", hours, mins)
}

func (ws *WebServer) handleWho(w http.ResponseWriter, r *http.Request) {
	type whoEntry struct {
		Name      string `json:"name"`
		Ref       int    `json:"ref"`
		OnFor     string `json:"on_for"`
		Idle      string `json:"idle"`
		Transport string `json:"transport"`
	}

	now := time.Now()
	var entries []whoEntry

	for _, d := range ws.srv.AllDescriptors() {
		if d.State != ConnConnected {
			continue
		}
		entries = append(entries, whoEntry{
			Name:      ws.game.Name(d.Player),
			Ref:       int(d.Player),
			OnFor:     formatDuration(now.Sub(d.ConnTime)),
			Idle:      formatDuration(now.Sub(d.LastCmd)),
			Transport: d.Transport,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name < entries[j].Name
	})

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"players": entries,
		"count":   len(entries),
	})
}

// --- Command execution ---

// restCapture collects the text events a command produces for one player.
type restCapture struct {
	mu    sync.Mutex
	lines []string
	done  bool
}

func (c *restCapture) Receive(ev events.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.done && ev.Text != "" {
		c.lines = append(c.lines, ev.Text)
	}
}

func (c *restCapture) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

func (c *restCapture) finish() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.done = true
	return c.lines
}

func (ws *WebServer) handleCommand(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())
	if claims == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	var req struct {
		Command string `json:"command"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
		return
	}
	if req.Command == "" {
		http.Error(w, `{"error":"command is required"}`, http.StatusBadRequest)
		return
	}

	// Subscribe a capture for the duration of the command. The player's
	// live sessions still see the output, same as a typed command.
	capture := &restCapture{}
	ws.game.Bus.Subscribe(claims.PlayerRef, capture)

	ws.srv.runInput(claims.PlayerRef, req.Command)

	ws.game.Bus.Unsubscribe(claims.PlayerRef, capture)
	lines := capture.finish()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"output": lines,
	})
}

// --- Object info ---

func (ws *WebServer) handleGetObject(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())
	if claims == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	ref, err := parseDBRef(r.PathValue("dbref"))
	if err != nil {
		http.Error(w, `{"error":"invalid dbref"}`, http.StatusBadRequest)
		return
	}

	obj, ok := ws.game.DB.Objects[ref]
	if !ok {
		http.Error(w, `{"error":"object not found"}`, http.StatusNotFound)
		return
	}

	// Non-examinable objects expose basic info only.
	if !Examinable(ws.game, claims.PlayerRef, ref) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"ref":  int(ref),
			"name": obj.Name,
			"type": obj.ObjType().String(),
		})
		return
	}

	result := map[string]any{
		"ref":      int(ref),
		"name":     obj.Name,
		"type":     obj.ObjType().String(),
		"location": int(obj.Location),
		"owner":    int(obj.Owner),
		"parent":   int(obj.Parent),
		"zone":     int(obj.Zone),
		"flags":    FlagNames(obj),
	}

	// Include readable attributes.
	attrs := make(map[string]string)
	for i := range obj.Attrs {
		attr := &obj.Attrs[i]
		info, text := parseAttrInfo(attr.Value)
		defFlags := ws.game.DB.AttrFlags(attr.Number)
		if !CanReadAttr(ws.game, claims.PlayerRef, ref, defFlags, info.Flags, info.Owner) {
			continue
		}
		name := ws.game.DB.GetAttrName(attr.Number)
		if name == "" {
			name = fmt.Sprintf("ATTR_%d", attr.Number)
		}
		attrs[name] = text
	}
	result["attrs"] = attrs

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// --- Attribute value ---

func (ws *WebServer) handleGetAttr(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())
	if claims == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	ref, err := parseDBRef(r.PathValue("dbref"))
	if err != nil {
		http.Error(w, `{"error":"invalid dbref"}`, http.StatusBadRequest)
		return
	}

	attrName := strings.ToUpper(r.PathValue("name"))

	obj, ok := ws.game.DB.Objects[ref]
	if !ok {
		http.Error(w, `{"error":"object not found"}`, http.StatusNotFound)
		return
	}

	attrNum := ws.game.ResolveAttrNum(attrName)
	if attrNum < 0 {
		http.Error(w, `{"error":"attribute not found"}`, http.StatusNotFound)
		return
	}

	for i := range obj.Attrs {
		if obj.Attrs[i].Number != attrNum {
			continue
		}
		info, text := parseAttrInfo(obj.Attrs[i].Value)
		defFlags := ws.game.DB.AttrFlags(attrNum)
		if !CanReadAttr(ws.game, claims.PlayerRef, ref, defFlags, info.Flags, info.Owner) {
			http.Error(w, `{"error":"permission denied"}`, http.StatusForbidden)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"name":  attrName,
			"value": text,
		})
		return
	}

	http.Error(w, `{"error":"attribute not found"}`, http.StatusNotFound)
}

// --- Scrollback history ---

func sinceParam(r *http.Request) time.Time {
	since := time.Now().Add(-24 * time.Hour)
	if sinceStr := r.URL.Query().Get("since"); sinceStr != "" {
		if t, err := strconv.ParseInt(sinceStr, 10, 64); err == nil {
			since = time.Unix(t, 0)
		}
	}
	return since
}

func (ws *WebServer) handleChannelHistory(w http.ResponseWriter, r *http.Request) {
	channel := r.PathValue("channel")
	since := sinceParam(r)

	if ws.game.SQLDB == nil {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"messages": []any{}, "channel": channel})
		return
	}

	messages, err := ws.game.SQLDB.GetScrollback(channel, since, 500)
	if err != nil {
		http.Error(w, fmt.Sprintf(`{"error":%q}`, err.Error()), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"channel":  channel,
		"messages": messages,
	})
}

// --- Personal scrollback ---

func (ws *WebServer) handleGetScrollback(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())
	if claims == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	if ws.game.SQLDB == nil {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"entries": []any{}})
		return
	}

	entries, err := ws.game.SQLDB.GetPersonalScrollback(int(claims.PlayerRef), sinceParam(r), 500)
	if err != nil {
		http.Error(w, fmt.Sprintf(`{"error":%q}`, err.Error()), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"entries": entries})
}

func (ws *WebServer) handlePostScrollback(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())
	if claims == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	var req struct {
		EncryptedData []byte `json:"encrypted_data"`
		IV            []byte `json:"iv"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
		return
	}

	if ws.game.SQLDB == nil {
		http.Error(w, `{"error":"storage not available"}`, http.StatusServiceUnavailable)
		return
	}

	if err := ws.game.SQLDB.InsertPersonalScrollback(int(claims.PlayerRef), req.EncryptedData, req.IV); err != nil {
		http.Error(w, fmt.Sprintf(`{"error":%q}`, err.Error()), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// --- Helpers ---

func parseDBRef(s string) (gamedb.DBRef, error) {
	s = strings.TrimPrefix(s, "#")
	n, err := strconv.Atoi(s)
	if err != nil {
		return gamedb.Nothing, err
	}
	return gamedb.DBRef(n), nil
}
