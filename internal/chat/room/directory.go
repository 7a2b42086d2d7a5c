package room

import (
	"hash/fnv"
	"sync"

	"go.uber.org/zap"

	"github.com/parley-chat/parley/internal/config"
	"github.com/parley-chat/parley/internal/observability"
)

// Directory resolves a room ID to the single live coordinator for that
// room, creating it on first access. Creation is atomic per room ID: two
// concurrent first accesses observe the same coordinator.
type Directory struct {
	cfg     config.RoomsConfig
	logger  *zap.Logger
	metrics *observability.Metrics

	mu     sync.RWMutex
	rooms  map[string]*Coordinator
	closed bool
}

// NewDirectory creates an empty Directory.
//
// Precondition: cfg.Shards must be >= 1; logger and metrics must be non-nil.
func NewDirectory(cfg config.RoomsConfig, logger *zap.Logger, metrics *observability.Metrics) *Directory {
	return &Directory{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
		rooms:   make(map[string]*Coordinator),
	}
}

// Resolve returns the coordinator owning roomID, spawning it if absent.
// Safe under concurrent calls for the same and different room IDs.
//
// Postcondition: Returns a non-nil coordinator; repeated calls for the
// same roomID return the same instance until Close.
func (d *Directory) Resolve(roomID string) *Coordinator {
	d.mu.RLock()
	c, ok := d.rooms[roomID]
	d.mu.RUnlock()
	if ok {
		return c
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	// Re-check under the write lock: another caller may have won the race.
	if c, ok := d.rooms[roomID]; ok {
		return c
	}

	c = newCoordinator(roomID, d.cfg.InboxBuffer, d.logger, d.metrics)
	d.rooms[roomID] = c
	d.metrics.Rooms.Inc()
	d.logger.Info("room coordinator spawned",
		zap.String("room_id", roomID),
		zap.Int("shard", d.ShardFor(roomID)),
	)
	return c
}

// ShardFor returns the deterministic shard index for roomID.
// The same room ID always maps to the same shard.
//
// Postcondition: Returns a value in [0, shards).
func (d *Directory) ShardFor(roomID string) int {
	h := fnv.New32a()
	h.Write([]byte(roomID))
	return int(h.Sum32() % uint32(d.cfg.Shards))
}

// RoomCount returns the number of live coordinators.
func (d *Directory) RoomCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.rooms)
}

// Close stops every coordinator and discards all membership state.
// Resolve must not be called after Close.
//
// Postcondition: All coordinator run loops terminate.
func (d *Directory) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}
	d.closed = true

	for id, c := range d.rooms {
		c.stop()
		delete(d.rooms, id)
		d.metrics.Rooms.Dec()
	}
	d.logger.Info("room directory closed")
}
