// Package session sequences races and drives the broadcast loop: it owns
// the simulation, steps it in fixed batches, hands immutable snapshots to
// the publisher, and rolls a fresh race once the previous one finishes.
package session

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/segmentio/ksuid"
	log "github.com/sirupsen/logrus"

	"github.com/apexsim/raceserver/config"
	"github.com/apexsim/raceserver/internal/race"
	"github.com/apexsim/raceserver/internal/track"
)

// Publisher receives serialized race snapshots. The hub implements it; the
// loop never learns about connections or sockets.
type Publisher interface {
	Broadcast(data []byte)
	Audience() int
}

// Status is the control-surface view of the session.
type Status struct {
	RaceID       string       `json:"race_id"`
	RaceStarted  bool         `json:"race_started"`
	RaceFinished bool         `json:"race_finished"`
	Time         float64      `json:"time"`
	Weather      race.Weather `json:"weather"`
	TotalLaps    int          `json:"total_laps"`
}

// trackMessage is the greeting sent to each new observer.
type trackMessage struct {
	Type string       `json:"type"`
	Data trackPayload `json:"data"`
}

type trackPayload struct {
	Points      [][2]float64 `json:"points"`
	TotalLength float64      `json:"total_length"`
}

// Manager owns the simulation behind a mutex. The broadcast loop and the
// HTTP control handlers contend for the same lock, so a control operation
// lands between ticks, never inside one.
type Manager struct {
	mu  sync.Mutex
	sim *race.Sim
	pub Publisher

	raceID        string
	finishedSince time.Time
	trackMsg      []byte
}

// NewManager wires a simulation to a publisher under a fresh race ID.
func NewManager(sim *race.Sim, pub Publisher) *Manager {
	m := &Manager{
		sim:    sim,
		pub:    pub,
		raceID: ksuid.New().String(),
	}
	m.trackMsg = buildTrackMessage(sim.Track())
	return m
}

// Run drives the broadcast loop until stop is closed. Each interval it
// advances the simulation by a fixed batch of ticks and publishes exactly
// one snapshot; batching is a throughput knob and does not change per-tick
// semantics. Nothing is simulated while no observer is connected.
func (m *Manager) Run(stop <-chan struct{}) {
	ticker := time.NewTicker(config.BroadcastRateMS * time.Millisecond)
	defer ticker.Stop()

	log.WithField("race_id", m.raceID).Info("broadcast loop started")
	for {
		select {
		case <-stop:
			log.Info("broadcast loop stopped")
			return
		case <-ticker.C:
			if m.pub.Audience() == 0 {
				continue
			}
			m.pub.Broadcast(m.tick(time.Now()))
		}
	}
}

// tick runs one broadcast interval: sequence finished races, step the
// batch, and return the serialized snapshot. Factored out of Run so the
// loop body is testable without wall-clock timers.
func (m *Manager) tick(now time.Time) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sim.Finished() {
		// Hold the final classification briefly, then roll a new race.
		if m.finishedSince.IsZero() {
			m.finishedSince = now
			log.WithField("race_id", m.raceID).Info("race finished")
		} else if now.Sub(m.finishedSince) >= config.FinishHoldMS*time.Millisecond {
			m.rollNewRaceLocked()
		}
	}

	for i := 0; i < config.StepsPerBroadcast; i++ {
		if m.sim.Finished() {
			break
		}
		m.sim.Step()
	}

	return m.marshalSnapshotLocked()
}

// rollNewRaceLocked resets the simulation under a fresh race identity.
// Caller must hold the lock.
func (m *Manager) rollNewRaceLocked() {
	m.sim.Reset()
	m.raceID = ksuid.New().String()
	m.finishedSince = time.Time{}
	log.WithField("race_id", m.raceID).Info("new race on the grid")
}

func (m *Manager) marshalSnapshotLocked() []byte {
	snap := m.sim.Snapshot()
	snap.RaceID = m.raceID
	data, err := json.Marshal(snap)
	if err != nil {
		// Snapshot types are plain data; this cannot fail in practice.
		log.WithError(err).Error("snapshot marshal failed")
		return nil
	}
	return data
}

// StartRace resets the grid under the given weather and starts the race.
func (m *Manager) StartRace(w race.Weather) Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sim.SetWeather(w)
	m.rollNewRaceLocked()
	m.sim.Start()
	log.WithFields(log.Fields{
		"race_id": m.raceID,
		"rain":    w.Rain,
		"temp":    w.TrackTemp,
	}).Info("race started")
	return m.statusLocked()
}

// ResetRace abandons the current race and re-grids under a new identity.
func (m *Manager) ResetRace() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.rollNewRaceLocked()
	return m.statusLocked()
}

// Status reports the session state for the control API.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.statusLocked()
}

func (m *Manager) statusLocked() Status {
	return Status{
		RaceID:       m.raceID,
		RaceStarted:  m.sim.Started(),
		RaceFinished: m.sim.Finished(),
		Time:         m.sim.Clock(),
		Weather:      m.sim.Weather(),
		TotalLaps:    m.sim.TotalLaps(),
	}
}

// TrackMessage returns the serialized track greeting for new observers.
func (m *Manager) TrackMessage() []byte {
	return m.trackMsg
}

// TrackInfo returns the outline payload for the REST track endpoint.
func (m *Manager) TrackInfo() trackPayload {
	m.mu.Lock()
	defer m.mu.Unlock()
	return buildTrackPayload(m.sim.Track())
}

// HandleClientMessage processes the small inbound control vocabulary from
// observers; currently just a reset request.
func (m *Manager) HandleClientMessage(data []byte) {
	var msg struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	if msg.Type == "reset" {
		m.ResetRace()
	}
}

func buildTrackPayload(trk *track.Track) trackPayload {
	outline := trk.Outline()
	points := make([][2]float64, len(outline))
	for i, p := range outline {
		points[i] = [2]float64{p.X, p.Y}
	}
	return trackPayload{Points: points, TotalLength: trk.Length()}
}

func buildTrackMessage(trk *track.Track) []byte {
	data, err := json.Marshal(trackMessage{Type: "track", Data: buildTrackPayload(trk)})
	if err != nil {
		log.WithError(err).Error("track message marshal failed")
		return nil
	}
	return data
}
