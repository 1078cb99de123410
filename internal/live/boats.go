package live

import (
	"fmt"
	"sort"
	"sync"

	"github.com/regattaflow/trackcore/internal/models"
)

// boatCache holds the live boat state for one client. Mutations happen only
// from the client's event loop; the internal lock exists so the synchronous
// snapshot accessors can read at any time without touching the loop.
type boatCache struct {
	mu       sync.RWMutex
	boats    map[string]*models.LiveBoat
	trailCap int
}

func newBoatCache(trailCap int) *boatCache {
	return &boatCache{
		boats:    make(map[string]*models.LiveBoat),
		trailCap: trailCap,
	}
}

// upsert merges a position message into the cache, appending to the boat's
// trail and evicting the oldest entry beyond the trail cap. New boats get
// their stable color on first sight and default to active. The returned value
// is a detached copy safe to hand to callbacks.
func (c *boatCache) upsert(msg streamMessage) models.LiveBoat {
	c.mu.Lock()
	defer c.mu.Unlock()

	boat, ok := c.boats[msg.BoatID]
	if !ok {
		boat = &models.LiveBoat{
			ID:     msg.BoatID,
			Color:  BoatColor(msg.BoatID),
			Active: true,
		}
		c.boats[msg.BoatID] = boat
	}

	boat.Lat = msg.Lat
	boat.Lng = msg.Lng
	boat.SpeedKn = msg.SpeedKn
	boat.HeadingDeg = msg.HeadingDeg
	boat.LastUpdateMS = msg.TimestampMS
	if msg.SailNumber != "" {
		boat.SailNumber = msg.SailNumber
	}
	if msg.BoatName != "" {
		boat.Name = msg.BoatName
	}
	if msg.IsActive != nil {
		boat.Active = *msg.IsActive
	}

	boat.Trail = append(boat.Trail, models.TrailPoint{
		Lat:         msg.Lat,
		Lng:         msg.Lng,
		TimestampMS: msg.TimestampMS,
	})
	if c.trailCap > 0 && len(boat.Trail) > c.trailCap {
		boat.Trail = boat.Trail[len(boat.Trail)-c.trailCap:]
	}

	return copyBoat(boat)
}

// setActive flips a boat's active flag. Unknown boats are ignored; a status
// message can outrun the first position message.
func (c *boatCache) setActive(boatID string, active bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	boat, ok := c.boats[boatID]
	if !ok {
		return false
	}
	boat.Active = active
	return true
}

func (c *boatCache) get(boatID string) (models.LiveBoat, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	boat, ok := c.boats[boatID]
	if !ok {
		return models.LiveBoat{}, false
	}
	return copyBoat(boat), true
}

// snapshot returns detached copies of every boat, ordered by ID so repeated
// reads are stable.
func (c *boatCache) snapshot() []models.LiveBoat {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]models.LiveBoat, 0, len(c.boats))
	for _, boat := range c.boats {
		out = append(out, copyBoat(boat))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (c *boatCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.boats = make(map[string]*models.LiveBoat)
}

func (c *boatCache) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.boats)
}

func copyBoat(boat *models.LiveBoat) models.LiveBoat {
	out := *boat
	out.Trail = make([]models.TrailPoint, len(boat.Trail))
	copy(out.Trail, boat.Trail)
	return out
}

// BoatColor maps a boat ID to a stable display color. The same ID always
// yields the same color, across reconnects and across processes, so a boat
// keeps its rendering identity between sessions.
func BoatColor(boatID string) string {
	var h int32
	for _, ch := range boatID {
		h = h*31 + ch
	}
	hue := int(h) % 360
	if hue < 0 {
		hue += 360
	}
	return fmt.Sprintf("hsl(%d, 70%%, 45%%)", hue)
}
