package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"

	"fibtrivia/internal/domain"
)

// qrSize is the edge length of the join QR code in pixels
const qrSize = 320

// Response is a standard API response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorInfo  `json:"error,omitempty"`
}

// ErrorInfo contains error details
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// GetRoomResponse is the response for getting room info
type GetRoomResponse struct {
	RoomCode    string                  `json:"roomCode"`
	PlayerCount int                     `json:"playerCount"`
	Phase       string                  `json:"phase"`
	CanJoin     bool                    `json:"canJoin"`
	JoinURL     string                  `json:"joinUrl"`
	State       domain.GameStatePayload `json:"state"`
}

// HealthResponse is the response for health check
type HealthResponse struct {
	Status string `json:"status"`
}

// StatsResponse is the response for stats endpoint
type StatsResponse struct {
	ActiveRooms  int `json:"activeRooms"`
	TotalPlayers int `json:"totalPlayers"`
}

// handleGetRoom handles GET /api/rooms/:roomCode
func (s *Server) handleGetRoom(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	session, err := s.hub.GetSession(ps.ByName("roomCode"))
	if err != nil {
		s.sendLookupError(w, err)
		return
	}

	s.sendSuccess(w, &GetRoomResponse{
		RoomCode:    session.Code(),
		PlayerCount: session.GetPlayerCount(),
		Phase:       string(session.GetPhase()),
		CanJoin:     session.CanJoin(),
		JoinURL:     s.joinURL(r, session.Code()),
		State:       session.GameState(""),
	})
}

// handleRoomQR handles GET /api/rooms/:roomCode/qr with a PNG of the join link
func (s *Server) handleRoomQR(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	session, err := s.hub.GetSession(ps.ByName("roomCode"))
	if err != nil {
		s.sendLookupError(w, err)
		return
	}

	png, err := qrcode.Encode(s.joinURL(r, session.Code()), qrcode.Medium, qrSize)
	if err != nil {
		s.logger.Error("qr generation failed", "roomCode", session.Code(), "error", err)
		s.sendError(w, http.StatusInternalServerError, "QR_FAILED", "QR generation failed")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(png)
}

// handleHealth handles GET /api/health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s.sendSuccess(w, &HealthResponse{
		Status: "ok",
	})
}

// handleStats handles GET /api/stats
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s.sendSuccess(w, &StatsResponse{
		ActiveRooms:  s.hub.GetSessionCount(),
		TotalPlayers: s.hub.GetTotalPlayerCount(),
	})
}

// joinURL builds the link players open to join a room. The configured public
// URL wins over the request's own scheme and host.
func (s *Server) joinURL(r *http.Request, roomCode string) string {
	base := strings.TrimSuffix(s.config.Server.PublicURL, "/")
	if base == "" {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}
		base = scheme + "://" + r.Host
	}
	return base + "/?room=" + url.QueryEscape(roomCode)
}

func (s *Server) sendLookupError(w http.ResponseWriter, err error) {
	if errors.Is(err, domain.ErrRoomNotFound) {
		s.sendError(w, http.StatusNotFound, "ROOM_NOT_FOUND", "Room not found")
		return
	}
	s.sendError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
}

// sendSuccess sends a successful JSON response
func (s *Server) sendSuccess(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(&Response{
		Success: true,
		Data:    data,
	})
}

// sendError sends an error JSON response
func (s *Server) sendError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(&Response{
		Success: false,
		Error: &ErrorInfo{
			Code:    code,
			Message: message,
		},
	})
}
