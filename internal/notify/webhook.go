// Package notify forwards dispatch events to an external emergency services
// endpoint over HTTP.
package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/banshee-data/roadtrust/internal/httputil"
	"github.com/banshee-data/roadtrust/internal/trustnet"
)

// Webhook POSTs each dispatch event to a configured URL as JSON.
type Webhook struct {
	client httputil.HTTPClient
	url    string
}

// NewWebhook creates a Webhook. client may be nil, in which case the default
// HTTP client is used.
func NewWebhook(client httputil.HTTPClient, url string) *Webhook {
	if client == nil {
		client = httputil.NewStandardClient(nil)
	}
	return &Webhook{client: client, url: url}
}

// Notify delivers one dispatch event. Any non-2xx response is an error.
func (wh *Webhook) Notify(ev trustnet.DispatchEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode dispatch event: %w", err)
	}

	resp, err := wh.client.Post(wh.url, "application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to deliver dispatch webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("dispatch webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// Recorder decorates an inner trustnet.Recorder with webhook delivery on
// each dispatch. Reports and stats pass straight through.
type Recorder struct {
	inner   trustnet.Recorder
	webhook *Webhook
}

var _ trustnet.Recorder = (*Recorder)(nil)

// NewRecorder wraps inner so that recorded dispatches are also delivered via
// webhook. inner may be nil when only webhook delivery is wanted.
func NewRecorder(inner trustnet.Recorder, webhook *Webhook) *Recorder {
	return &Recorder{inner: inner, webhook: webhook}
}

func (r *Recorder) RecordReport(report *trustnet.IncidentReport) error {
	if r.inner == nil {
		return nil
	}
	return r.inner.RecordReport(report)
}

func (r *Recorder) RecordStats(row trustnet.StatsRow) error {
	if r.inner == nil {
		return nil
	}
	return r.inner.RecordStats(row)
}

func (r *Recorder) RecordDispatch(ev trustnet.DispatchEvent) error {
	if r.inner != nil {
		if err := r.inner.RecordDispatch(ev); err != nil {
			return err
		}
	}
	return r.webhook.Notify(ev)
}
