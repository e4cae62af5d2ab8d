package audio

import (
	"fmt"
	"strings"
)

// SessionState mirrors the AudioSessionState of the Windows Core Audio API.
type SessionState uint32

const (
	SessionStateInactive = SessionState(0)
	SessionStateActive   = SessionState(1)
	SessionStateExpired  = SessionState(2)
)

func (this SessionState) String() string {
	switch this {
	case SessionStateInactive:
		return "inactive"
	case SessionStateActive:
		return "active"
	case SessionStateExpired:
		return "expired"
	default:
		return fmt.Sprintf("illegal-session-state-%d", this)
	}
}

func (this *SessionState) Set(plain string) error {
	switch strings.TrimSpace(strings.ToLower(plain)) {
	case "inactive":
		*this = SessionStateInactive
	case "active":
		*this = SessionStateActive
	case "expired":
		*this = SessionStateExpired
	default:
		return fmt.Errorf("illegal-session-state: %s", plain)
	}
	return nil
}

type Session struct {
	Identifier string       `json:"identifier,omitempty"`
	HolderPid  uint32       `json:"pid,omitempty"`
	Muted      bool         `json:"muted,omitempty"`
	State      SessionState `json:"state"`
}

func (this Session) String() string {
	return fmt.Sprintf("%s#%d (%v, muted=%v)", this.Identifier, this.HolderPid, this.State, this.Muted)
}

type Sessions []Session

func (this Sessions) IsZero() bool {
	return len(this) <= 0
}

func (this Sessions) HasContent() bool {
	return !this.IsZero()
}
