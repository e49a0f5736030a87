package session

import (
	"encoding/json"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apexsim/raceserver/internal/race"
	"github.com/apexsim/raceserver/internal/track"
)

type fakePublisher struct {
	sent [][]byte
}

func (p *fakePublisher) Broadcast(data []byte) { p.sent = append(p.sent, data) }
func (p *fakePublisher) Audience() int         { return 1 }

func newTestManager(t *testing.T, laps int) (*Manager, *race.Sim) {
	t.Helper()
	trk, err := track.Build(track.GPLayout(), 500)
	require.NoError(t, err)
	sim := race.New(trk, race.Options{
		Cars:      3,
		TotalLaps: laps,
		Rand:      rand.New(rand.NewSource(7)),
	})
	return NewManager(sim, &fakePublisher{}), sim
}

func TestTickDoesNotAdvanceBeforeStart(t *testing.T) {
	t.Parallel()
	m, sim := newTestManager(t, 5)

	data := m.tick(time.Now())
	require.NotNil(t, data)
	assert.Zero(t, sim.Clock())

	var snap race.RaceSnapshot
	require.NoError(t, json.Unmarshal(data, &snap))
	assert.False(t, snap.RaceStarted)
	assert.NotEmpty(t, snap.RaceID)
}

func TestStartRaceAdvancesAndStampsID(t *testing.T) {
	t.Parallel()
	m, sim := newTestManager(t, 5)

	status := m.StartRace(race.Weather{Rain: 0.2, TrackTemp: 30})
	assert.True(t, status.RaceStarted)
	assert.Equal(t, 30.0, status.Weather.TrackTemp)

	m.tick(time.Now())
	assert.Equal(t, 1.5, sim.Clock(), "3 ticks of 0.5s per broadcast interval")
}

func TestFinishHoldThenNewRace(t *testing.T) {
	t.Parallel()
	m, sim := newTestManager(t, 1)
	m.StartRace(race.Weather{Rain: 0, TrackTemp: 25})
	firstID := m.Status().RaceID

	// Shove the leader over the line.
	leader := sim.Cars()[0]
	leader.S = sim.Track().Length() - 0.5
	leader.V = 50.0

	now := time.Now()
	m.tick(now)
	require.True(t, sim.Finished())

	// Within the hold window the finished state keeps broadcasting.
	m.tick(now.Add(500 * time.Millisecond))
	assert.True(t, sim.Finished())
	assert.Equal(t, firstID, m.Status().RaceID)

	// After the hold the session rolls a fresh race.
	m.tick(now.Add(3 * time.Second))
	assert.False(t, sim.Finished())
	assert.False(t, sim.Started(), "new race waits for a start command")
	assert.NotEqual(t, firstID, m.Status().RaceID)
}

func TestResetRaceMintsNewID(t *testing.T) {
	t.Parallel()
	m, _ := newTestManager(t, 5)

	a := m.Status().RaceID
	b := m.ResetRace().RaceID
	assert.NotEqual(t, a, b)
}

func TestTrackMessageGreeting(t *testing.T) {
	t.Parallel()
	m, sim := newTestManager(t, 5)

	var msg struct {
		Type string `json:"type"`
		Data struct {
			Points      [][2]float64 `json:"points"`
			TotalLength float64      `json:"total_length"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(m.TrackMessage(), &msg))
	assert.Equal(t, "track", msg.Type)
	assert.Len(t, msg.Data.Points, 500)
	assert.InDelta(t, sim.Track().Length(), msg.Data.TotalLength, 1e-9)
}

func TestClientResetMessage(t *testing.T) {
	t.Parallel()
	m, sim := newTestManager(t, 5)
	m.StartRace(race.Weather{Rain: 0, TrackTemp: 25})
	m.tick(time.Now())
	require.Greater(t, sim.Clock(), 0.0)

	m.HandleClientMessage([]byte(`{"type":"reset"}`))
	assert.Zero(t, sim.Clock())
	assert.False(t, sim.Started())

	// Garbage is ignored.
	m.HandleClientMessage([]byte(`not json`))
}
