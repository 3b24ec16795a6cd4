package mux

import (
	"net/http"

	"declare-server/pkg/room"
)

type roomResponse struct {
	Code   string      `json:"code"`
	Status room.Status `json:"status"`
}

// postRoom creates a new room and returns its join code
func (m *Mux) postRoom() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rm, err := m.registry.CreateRoom()
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, err)
			return
		}

		writeJSON(w, http.StatusCreated, roomResponse{
			Code:   rm.Code(),
			Status: rm.Status(),
		})
	}
}

// getRoomCode lets a client check a join code before opening the socket
func (m *Mux) getRoomCode() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rm := r.Context().Value(ctxRoomKey).(*room.Room)

		writeJSON(w, http.StatusOK, roomResponse{
			Code:   rm.Code(),
			Status: rm.Status(),
		})
	}
}
