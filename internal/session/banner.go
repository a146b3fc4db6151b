package session

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/david/rfp-desk/internal/apperr"
)

// Banner is a dismissible notice about a failed or degraded operation.
type Banner struct {
	ID        string      `json:"id"`
	Op        string      `json:"op"`
	Kind      apperr.Kind `json:"kind"`
	Message   string      `json:"message"`
	Retryable bool        `json:"retryable"`
	CreatedAt time.Time   `json:"created_at"`
}

func newBanner(op string, err error, at time.Time) Banner {
	b := Banner{
		ID:        uuid.NewString(),
		Op:        op,
		Kind:      apperr.KindOf(err),
		Message:   err.Error(),
		Retryable: true,
		CreatedAt: at,
	}
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		b.Retryable = appErr.Retryable()
	}
	return b
}

// raise replaces any banner already shown for op. Caller holds s.mu.
func (s *Session) raise(op string, err error) {
	s.clearBanners(op)
	s.banners = append(s.banners, newBanner(op, err, s.now().UTC()))
}

// clearBanners drops banners for op. Caller holds s.mu.
func (s *Session) clearBanners(op string) {
	kept := s.banners[:0]
	for _, b := range s.banners {
		if b.Op != op {
			kept = append(kept, b)
		}
	}
	s.banners = kept
}

// Banners returns the active banners, oldest first.
func (s *Session) Banners() []Banner {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Banner(nil), s.banners...)
}

// Dismiss removes a banner. It reports false when id is unknown.
func (s *Session) Dismiss(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, b := range s.banners {
		if b.ID == id {
			s.banners = append(s.banners[:i], s.banners[i+1:]...)
			return true
		}
	}
	return false
}
