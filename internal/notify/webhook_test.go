package notify

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/roadtrust/internal/geo"
	"github.com/banshee-data/roadtrust/internal/httputil"
	"github.com/banshee-data/roadtrust/internal/trustnet"
)

func TestWebhookNotify(t *testing.T) {
	t.Parallel()

	client := httputil.NewMockHTTPClient().AddResponse(202, "")
	wh := NewWebhook(client, "http://dispatch.example/hook")

	ev := trustnet.DispatchEvent{Reporter: "veh_001", Timestamp: 120, Location: geo.Point{X: 2100, Y: -45}}
	require.NoError(t, wh.Notify(ev))

	require.Equal(t, 1, client.RequestCount())
	var sent trustnet.DispatchEvent
	require.NoError(t, json.Unmarshal(client.RequestBody(0), &sent))
	assert.Equal(t, ev, sent)
}

func TestWebhookNotifyFailures(t *testing.T) {
	t.Parallel()

	t.Run("transport error", func(t *testing.T) {
		t.Parallel()
		client := httputil.NewMockHTTPClient().AddErrorResponse(errors.New("connection refused"))
		wh := NewWebhook(client, "http://dispatch.example/hook")
		assert.Error(t, wh.Notify(trustnet.DispatchEvent{Reporter: "veh_001"}))
	})

	t.Run("non-2xx status", func(t *testing.T) {
		t.Parallel()
		client := httputil.NewMockHTTPClient().AddResponse(503, "overloaded")
		wh := NewWebhook(client, "http://dispatch.example/hook")
		assert.ErrorContains(t, wh.Notify(trustnet.DispatchEvent{Reporter: "veh_001"}), "503")
	})
}

type countingRecorder struct {
	reports    int
	stats      int
	dispatches int
}

func (c *countingRecorder) RecordReport(*trustnet.IncidentReport) error { c.reports++; return nil }
func (c *countingRecorder) RecordStats(trustnet.StatsRow) error         { c.stats++; return nil }
func (c *countingRecorder) RecordDispatch(trustnet.DispatchEvent) error { c.dispatches++; return nil }

func TestRecorderForwardsAndNotifies(t *testing.T) {
	t.Parallel()

	client := httputil.NewMockHTTPClient()
	inner := &countingRecorder{}
	rec := NewRecorder(inner, NewWebhook(client, "http://dispatch.example/hook"))

	require.NoError(t, rec.RecordReport(&trustnet.IncidentReport{}))
	require.NoError(t, rec.RecordStats(trustnet.StatsRow{}))
	require.NoError(t, rec.RecordDispatch(trustnet.DispatchEvent{Reporter: "veh_001"}))

	assert.Equal(t, 1, inner.reports)
	assert.Equal(t, 1, inner.stats)
	assert.Equal(t, 1, inner.dispatches)
	assert.Equal(t, 1, client.RequestCount(), "only dispatches reach the webhook")
}
