package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	log "github.com/echocat/slf4g"

	"github.com/blaubaer/presence-monitor/pkg/metrics"
	"github.com/blaubaer/presence-monitor/pkg/presence"
)

type payload struct {
	State string `json:"state"`
}

// Webhook triggers one Home Assistant webhook per monitored signal with the
// current state of it.
type Webhook struct {
	conf    Configuration
	signals presence.Signals
	client  *http.Client
}

func New(conf Configuration, signals presence.Signals) *Webhook {
	return &Webhook{
		conf:    conf,
		signals: signals,
		client: &http.Client{
			Timeout: conf.timeout(),
		},
	}
}

func (this *Webhook) GetType() presence.SinkType {
	return presence.SinkTypeWebhook
}

func (this *Webhook) Initialize(context.Context) error {
	return this.conf.Validate(this.signals)
}

func (this *Webhook) Dispose() error {
	this.client.CloseIdleConnections()
	return nil
}

func (this *Webhook) Publish(ctx context.Context, snapshot presence.Snapshot) {
	for _, signal := range this.signals {
		u := this.conf.urlOf(signal)
		if u == "" {
			continue
		}
		value := snapshot.StateOf(signal)
		if err := this.send(ctx, u, value); err != nil {
			log.WithError(err).
				With("signal", signal).
				With("value", value).
				Warn("Cannot send state to Home Assistant.")
			metrics.DeliveryFailed(presence.SinkTypeWebhook, signal)
			continue
		}
		log.With("signal", signal).
			With("value", value).
			Debug("State sent to Home Assistant.")
	}
}

func (this *Webhook) send(ctx context.Context, url, value string) error {
	body, err := json.Marshal(payload{value})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, this.conf.timeout())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	rsp, err := this.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, rsp.Body)
		_ = rsp.Body.Close()
	}()

	if rsp.StatusCode < 200 || rsp.StatusCode > 299 {
		return fmt.Errorf("unexpected status code: %d - %s", rsp.StatusCode, rsp.Status)
	}
	return nil
}
