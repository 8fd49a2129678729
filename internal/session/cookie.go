package session

import (
	"encoding/json"
	"errors"
	"time"
)

// cookiePayload is the JSON value carried by the session cookie.
type cookiePayload struct {
	SessionID string    `json:"session_id"`
	Expiry    time.Time `json:"expiry"`
}

var errBadCookie = errors.New("session: malformed cookie")

func encodeCookie(sessionID string, expiry time.Time) string {
	data, _ := json.Marshal(cookiePayload{SessionID: sessionID, Expiry: expiry})
	return string(data)
}

// decodeCookie parses the cookie value. Malformed JSON, missing fields and
// unparsable timestamps all fail the same way.
func decodeCookie(raw string) (cookiePayload, error) {
	var p cookiePayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return cookiePayload{}, errBadCookie
	}
	if p.SessionID == "" || p.Expiry.IsZero() {
		return cookiePayload{}, errBadCookie
	}
	return p, nil
}
