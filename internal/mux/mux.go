package mux

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	gmux "github.com/gorilla/mux"

	"declare-server/internal/config"
	"declare-server/internal/jwt"
	"declare-server/pkg/playable/declare"
	"declare-server/pkg/room"
)

type ctxKey int

const (
	ctxPlayerKey ctxKey = iota
	ctxRoomKey
)

// player is the authenticated session identity attached to the request
type player struct {
	ID   int64
	Name string
}

// Mux handles HTTP requests
type Mux struct {
	*gmux.Router
	version  string
	registry *room.Registry

	// store for testing purposes
	authRouter *gmux.Router
}

// NewMux returns a new HTTP mux
func NewMux(version string) *Mux {
	registry := room.NewRegistry(declare.Options{
		KingConfirmWindow: time.Second * time.Duration(config.Instance().KingConfirmSeconds),
	})
	registry.StartShift()

	this := &Mux{
		Router:   gmux.NewRouter(),
		version:  version,
		registry: registry,
	}

	this.authRouter = this.Router.NewRoute().Subrouter()
	this.authRouter.Use(this.authMiddleware)

	// unauthorized endpoints
	{
		r := this.Router
		r.Methods(http.MethodGet).Path("/health").Handler(this.getHealth())
		r.Methods(http.MethodPost).Path("/session").Handler(this.postSession())
	}

	// requires bearer authorization
	{
		r := this.authRouter

		r.Methods(http.MethodPost).Path("/room").Handler(this.postRoom())

		// joining the socket creates the room if it does not exist yet,
		// so it must not sit behind roomMiddleware
		r.Methods(http.MethodGet).Path("/room/{code:[A-Za-z0-9_-]{6}}/ws").Handler(this.getRoomCodeWS())

		rr := r.PathPrefix("/room/{code:[A-Za-z0-9_-]{6}}").Subrouter()
		rr.Use(this.roomMiddleware)

		rr.Methods(http.MethodGet).Path("").Handler(this.getRoomCode())
	}

	return this
}

func (m *Mux) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.FormValue("access_token")
		if token == "" {
			authHeader := strings.Split(r.Header.Get("Authorization"), " ")
			if len(authHeader) != 2 || strings.ToLower(authHeader[0]) != "bearer" {
				writeJSONError(w, http.StatusUnauthorized, nil)
				return
			}

			token = authHeader[1]
		}

		id, name, err := jwt.ValidSession(token)
		if err != nil {
			writeJSONError(w, http.StatusUnauthorized, nil)
			return
		}

		newCtx := context.WithValue(r.Context(), ctxPlayerKey, &player{ID: id, Name: name})
		w.Header().Set("Declare-PlayerID", strconv.FormatInt(id, 10))
		next.ServeHTTP(w, r.WithContext(newCtx))
	})
}

// roomMiddleware requires authMiddleware to execute first
func (m *Mux) roomMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		code := gmux.Vars(r)["code"]
		rm, ok := m.registry.Room(code)
		if !ok {
			writeJSONError(w, http.StatusNotFound, nil)
			return
		}

		newCtx := context.WithValue(r.Context(), ctxRoomKey, rm)
		next.ServeHTTP(w, r.WithContext(newCtx))
	})
}
