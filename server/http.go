package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"

	"github.com/wfunc/gombiful/logger"
	"github.com/wfunc/gombiful/roomcode"
	"github.com/wfunc/gombiful/store"
)

const qrSize = 320

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Log.Debugf("write response: %v", err)
	}
}

func (s *GameServer) handleHealth(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "ok",
		"connections": s.sessionManager.Count(),
		"rooms":       s.roomManager.Count(),
	})
}

// handleRoom serves the spectator view of a session: no pool, no year of
// the song in play.
func (s *GameServer) handleRoom(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	code := roomcode.Normalize(ps.ByName("code"))
	if !roomcode.Valid(code) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid room code"})
		return
	}
	doc, err := s.store.Get(r.Context(), code)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Game not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"session":        doc.ViewFor(""),
		"remainingSongs": len(doc.AvailableSongs),
		"standings":      doc.Standings(),
	})
}

// JoinURL is the link encoded in a room's QR code.
func (s *GameServer) JoinURL(r *http.Request, code string) string {
	base := strings.TrimSuffix(s.publicURL, "/")
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
	return base + "/join/" + code
}

func (s *GameServer) handleQR(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	code := roomcode.Normalize(ps.ByName("code"))
	if !roomcode.Valid(code) {
		http.Error(w, "invalid room code", http.StatusBadRequest)
		return
	}
	png, err := qrcode.Encode(s.JoinURL(r, code), qrcode.Medium, qrSize)
	if err != nil {
		http.Error(w, "qr generation failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}
