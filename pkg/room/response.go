package room

import (
	"declare-server/pkg/playable"
)

// roomState is the lobby-level view of a room sent to every client
type roomState struct {
	Code   string  `json:"code"`
	Status Status  `json:"status"`
	Seats  []*Seat `json:"seats"`
}

func newErrorResponse(ctx string, err error) *playable.Response {
	return &playable.Response{
		Key:     "error",
		Value:   err.Error(),
		Context: ctx,
	}
}
