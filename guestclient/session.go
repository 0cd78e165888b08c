package guestclient

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// State keys handed to the embedder. They are scoped per browsing context on
// purpose: two tabs scanning two doors must not share a session.
const (
	StateKeyJWT  = "qr_session_jwt"
	StateKeyData = "qr_session_data"
)

// SessionInfo mirrors the portal's session metadata.
type SessionInfo struct {
	SessionID  string    `json:"sessionId"`
	TenantID   string    `json:"tenantId"`
	QRCodeID   string    `json:"qrCodeId"`
	HotelName  string    `json:"hotelName"`
	RoomNumber string    `json:"roomNumber"`
	Services   []string  `json:"services"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

// SessionContext holds one guest session's credential and metadata, in
// memory only. The credential expires exactly when the session does, so a
// restored stale state simply stops authenticating.
type SessionContext struct {
	mu     sync.Mutex
	token  string
	info   SessionInfo
	closed bool
}

// Info returns the session metadata snapshot.
func (s *SessionContext) Info() SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.info
}

// Expired reports whether the session has lapsed.
func (s *SessionContext) Expired(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.After(s.info.ExpiresAt)
}

// credential returns the bearer token, refusing after Close.
func (s *SessionContext) credential() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.token == "" {
		return "", ErrSessionClosed
	}
	return s.token, nil
}

// MarshalState exports the session for tab-scoped storage on the embedding
// side. The credential and metadata travel under separate keys so the
// embedder can drop the credential alone.
func (s *SessionContext) MarshalState() (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSessionClosed
	}

	data, err := json.Marshal(s.info)
	if err != nil {
		return nil, fmt.Errorf("failed to encode session state: %w", err)
	}
	return map[string]string{
		StateKeyJWT:  s.token,
		StateKeyData: string(data),
	}, nil
}

// RestoreState rebuilds a SessionContext from MarshalState output.
func RestoreState(state map[string]string) (*SessionContext, error) {
	token := state[StateKeyJWT]
	if token == "" {
		return nil, fmt.Errorf("missing %s", StateKeyJWT)
	}

	var info SessionInfo
	if raw := state[StateKeyData]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &info); err != nil {
			return nil, fmt.Errorf("failed to decode session state: %w", err)
		}
	}
	return &SessionContext{token: token, info: info}, nil
}

// Close zeroes the credential and metadata. Further use of the session
// returns ErrSessionClosed.
func (s *SessionContext) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.info = SessionInfo{}
	s.closed = true
}
