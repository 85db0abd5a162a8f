package volume

import (
	"github.com/google/uuid"
	"github.com/nace/vcmounter/internal/ui"
)

// Session scopes one command: it owns the credentials and brackets the
// work with the CPU governor switch. Close must run on every exit path.
type Session struct {
	ID          string
	Credentials *Credentials

	governor Governor
	log      *ui.Logger
	closed   bool
}

// NewSession creates a session with empty credentials
func NewSession(governor Governor, log *ui.Logger) *Session {
	return &Session{
		ID:          uuid.NewString(),
		Credentials: NewCredentials(),
		governor:    governor,
		log:         log,
	}
}

// Begin switches the CPU to full speed for the cipher work
func (s *Session) Begin() {
	s.log.Debug("session %s", s.ID)
	if s.governor == nil {
		return
	}
	if err := s.governor.SetMax(); err != nil {
		s.log.Warning("cpu governor: %v", err)
	}
}

// Close restores the CPU governor and destroys the credentials. It is safe
// to call more than once.
func (s *Session) Close() {
	if s.closed {
		return
	}
	s.closed = true

	if s.governor != nil {
		if err := s.governor.Restore(); err != nil {
			s.log.Warning("cpu governor restore: %v", err)
		}
	}
	s.Credentials.Destroy()
}
