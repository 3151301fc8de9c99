package room

import (
	"crypto/rand"
	"math/big"
	"strings"
	"sync"
)

const (
	codeLength = 6
	codeChars  = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789" // no ambiguous chars
)

// Registry is the process-wide table of live rooms, keyed by room code.
// It never time-evicts: the only delete path is Evict after a room
// drains.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*Room
}

func NewRegistry() *Registry {
	return &Registry{rooms: make(map[string]*Room)}
}

// Create generates a code that collides with no live room, stores an
// empty room under it and returns both.
func (g *Registry) Create() (string, *Room) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for {
		code := generateCode()
		if _, taken := g.rooms[code]; taken {
			continue
		}
		r := newRoom(code)
		g.rooms[code] = r
		return code, r
	}
}

// Lookup resolves a room code case-insensitively.
func (g *Registry) Lookup(code string) (*Room, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	r, ok := g.rooms[strings.ToUpper(code)]
	return r, ok
}

// Evict removes a drained room from the table. The emptiness re-check
// under both locks closes the race with a join that landed between the
// caller's last leave and this call; an evicted room refuses all later
// joins.
func (g *Registry) Evict(r *Room) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || r.instructor != nil || len(r.students) > 0 {
		return false
	}
	r.closed = true
	delete(g.rooms, r.Code)
	return true
}

// Len reports the number of live rooms.
func (g *Registry) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.rooms)
}

func generateCode() string {
	code := make([]byte, codeLength)
	for i := range code {
		n, _ := rand.Int(rand.Reader, big.NewInt(int64(len(codeChars))))
		code[i] = codeChars[n.Int64()]
	}
	return string(code)
}
