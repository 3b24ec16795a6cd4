package mux

import (
	"net/http"
	"strings"

	"declare-server/internal/jwt"
	"declare-server/internal/rng"
	"declare-server/internal/util"
)

const maxNameLength = 40

type sessionRequest struct {
	Name string `json:"name"`
}

type sessionResponse struct {
	PlayerID int64  `json:"playerId"`
	Name     string `json:"name"`
	JWT      string `json:"jwt"`
}

// postSession issues a guest session. There are no accounts; a session
// is just a signed identity the websocket can trust.
func (m *Mux) postSession() http.HandlerFunc {
	r := rng.Crypto{}

	return func(w http.ResponseWriter, req *http.Request) {
		var payload sessionRequest
		if !decodeRequest(w, req, &payload) {
			return
		}

		name := strings.TrimSpace(payload.Name)
		if name == "" {
			name = util.GetRandomName()
		}

		if len(name) > maxNameLength {
			name = name[0:maxNameLength]
		}

		playerID := r.Int63()
		signed, err := jwt.Sign(playerID, name)
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, err)
			return
		}

		writeJSON(w, http.StatusCreated, sessionResponse{
			PlayerID: playerID,
			Name:     name,
			JWT:      signed,
		})
	}
}
