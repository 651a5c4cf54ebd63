// Package realtime pushes dashboard updates to connected leaders. Each
// team is a channel; events fan out to every subscriber over SSE.
// Access is gated by a short-lived JWT minted from a valid dashboard
// token, so the stream never trusts a raw query parameter.
package realtime

import (
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Event types published by the service layer.
const (
	EventMemberCompleted = "member_completed"
	EventMemberAdded     = "member_added"
	EventReportGenerated = "report_generated"
)

type Event struct {
	Type   string `json:"type"`
	TeamID string `json:"team_id"`
	Data   any    `json:"data,omitempty"`
}

type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[chan Event]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: map[string]map[chan Event]struct{}{}}
}

// Subscribe registers a listener for one team's events. The returned
// cancel func must be called when the client disconnects.
func (h *Hub) Subscribe(teamID string) (<-chan Event, func()) {
	ch := make(chan Event, 8)
	h.mu.Lock()
	if h.subs[teamID] == nil {
		h.subs[teamID] = map[chan Event]struct{}{}
	}
	h.subs[teamID][ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if set, ok := h.subs[teamID]; ok {
			delete(set, ch)
			if len(set) == 0 {
				delete(h.subs, teamID)
			}
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// Publish fans an event out to the team's subscribers. Slow consumers
// are skipped rather than blocking the submit path.
func (h *Hub) Publish(e Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs[e.TeamID] {
		select {
		case ch <- e:
		default:
		}
	}
}

// TokenService issues and verifies stream JWTs.
type TokenService struct {
	hmac []byte
	ttl  time.Duration
}

func NewTokenService(secret string) *TokenService {
	return &TokenService{hmac: []byte(secret), ttl: time.Hour}
}

// TTL is the stream token lifetime in seconds, surfaced to clients.
func (s *TokenService) TTL() int { return int(s.ttl.Seconds()) }

type channelClaims struct {
	TeamID string `json:"team_id"`
	Scope  string `json:"scope"`
	jwt.RegisteredClaims
}

func (s *TokenService) IssueChannelToken(teamID string) (string, error) {
	now := time.Now()
	claims := &channelClaims{
		TeamID: teamID,
		Scope:  "realtime",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "opstrengths",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.hmac)
}

// ParseChannelToken returns the team id a stream token grants access to.
func (s *TokenService) ParseChannelToken(tokenStr string) (string, error) {
	tok, err := jwt.ParseWithClaims(tokenStr, &channelClaims{}, func(t *jwt.Token) (interface{}, error) {
		return s.hmac, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !tok.Valid {
		return "", errors.New("invalid stream token")
	}
	c, ok := tok.Claims.(*channelClaims)
	if !ok || c.Scope != "realtime" || c.TeamID == "" {
		return "", errors.New("invalid stream token")
	}
	return c.TeamID, nil
}
