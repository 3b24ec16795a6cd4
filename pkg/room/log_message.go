package room

import (
	"declare-server/pkg/playable"
)

const logMessageLimit = 25

// addLogMessages retains the most recent game log messages so they can
// be replayed to late joiners
// Note: this must only be called from within the run loop
func (r *Room) addLogMessages(messages []*playable.LogMessage) {
	m := append(r.logMessages, messages...)
	count := len(m)
	if count > logMessageLimit {
		m = m[count-logMessageLimit:]
	}

	r.logMessages = m
}
