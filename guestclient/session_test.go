package guestclient

import (
	"errors"
	"testing"
	"time"
)

func testSession() *SessionContext {
	return &SessionContext{
		token: "signed-session-jwt",
		info: SessionInfo{
			SessionID:  "session-1",
			TenantID:   "tenant-1",
			QRCodeID:   "qr-1",
			HotelName:  "Grand Budapest",
			RoomNumber: "204",
			Services:   []string{"maintenance", "room_service"},
			ExpiresAt:  time.Now().Add(4 * time.Hour),
		},
	}
}

func TestMarshalStateKeys(t *testing.T) {
	state, err := testSession().MarshalState()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if state[StateKeyJWT] != "signed-session-jwt" {
		t.Errorf("%s = %q", StateKeyJWT, state[StateKeyJWT])
	}
	if state[StateKeyData] == "" {
		t.Errorf("%s must carry the session metadata", StateKeyData)
	}
	if len(state) != 2 {
		t.Errorf("state has %d keys, want exactly the jwt and data keys", len(state))
	}
}

func TestRestoreStateRoundTrip(t *testing.T) {
	original := testSession()
	state, err := original.MarshalState()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	restored, err := RestoreState(state)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}

	if restored.Info().SessionID != "session-1" {
		t.Errorf("SessionID = %q", restored.Info().SessionID)
	}
	if restored.Info().RoomNumber != "204" {
		t.Errorf("RoomNumber = %q", restored.Info().RoomNumber)
	}
	credential, err := restored.credential()
	if err != nil || credential != "signed-session-jwt" {
		t.Errorf("credential = %q, %v", credential, err)
	}
}

func TestRestoreStateMissingCredential(t *testing.T) {
	if _, err := RestoreState(map[string]string{StateKeyData: "{}"}); err == nil {
		t.Error("state without a credential must not restore")
	}
}

func TestCloseZeroesSession(t *testing.T) {
	s := testSession()
	s.Close()

	if _, err := s.credential(); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("credential after close: %v, want ErrSessionClosed", err)
	}
	if _, err := s.MarshalState(); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("marshal after close: %v, want ErrSessionClosed", err)
	}
	if s.Info().SessionID != "" {
		t.Error("close must zero the metadata")
	}
}

func TestExpired(t *testing.T) {
	s := testSession()

	if s.Expired(time.Now()) {
		t.Error("fresh session reported expired")
	}
	if !s.Expired(time.Now().Add(5 * time.Hour)) {
		t.Error("lapsed session reported live")
	}
}
