package trustnet

import (
	"testing"

	"github.com/banshee-data/roadtrust/internal/geo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCorroborateNearbyHonestVehicles(t *testing.T) {
	t.Parallel()

	c := NewCorroborator(200)
	incident := NewIncidentReport("veh_001", "accident", geo.Point{X: 1000, Y: 0}, 50, false)

	honest := map[string]geo.Point{
		"wit_close":    {X: 1100, Y: 0},  // 100 away
		"wit_boundary": {X: 1200, Y: 0},  // exactly 200: outside the strict bound
		"wit_far":      {X: 1500, Y: 0},  // 500 away
		"veh_001":      {X: 1000, Y: 0},  // the reporter itself never witnesses
		"wit_lateral":  {X: 1000, Y: 30}, // 30 away
	}

	reports := c.Corroborate(incident, honest)
	require.Len(t, reports, 2)

	// Witness set recorded on the originating incident, sorted for stability.
	assert.Equal(t, []string{"wit_close", "wit_lateral"}, incident.Witnesses)

	for _, wr := range reports {
		assert.Equal(t, incident.Type, wr.Type)
		assert.Equal(t, incident.Location, wr.Location)
		assert.Equal(t, incident.Timestamp, wr.Timestamp)
		assert.False(t, wr.IsFake)
		assert.Empty(t, wr.Witnesses, "a witness report carries no witnesses of its own")
		assert.NotEqual(t, incident.Reporter, wr.Reporter)
	}
}

func TestCorroborateNoHonestNearby(t *testing.T) {
	t.Parallel()

	c := NewCorroborator(200)
	incident := NewIncidentReport("veh_001", "breakdown", geo.Point{X: 0, Y: 0}, 10, false)

	reports := c.Corroborate(incident, map[string]geo.Point{
		"wit_far": {X: 5000, Y: 0},
	})
	assert.Empty(t, reports)
	assert.Empty(t, incident.Witnesses)
}

func TestWitnessSetFrozenAfterRouting(t *testing.T) {
	t.Parallel()

	r := NewIncidentReport("veh_001", "accident", geo.Point{X: 100, Y: 0}, 10, false)
	r.AddWitness("early")

	nodeID := 0
	r.NodeID = &nodeID
	r.AddWitness("late")

	assert.Equal(t, []string{"early"}, r.Witnesses)
}
