package hue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/amimof/huego"
	log "github.com/echocat/slf4g"

	"github.com/blaubaer/presence-monitor/pkg/credentials"
	"github.com/blaubaer/presence-monitor/pkg/metrics"
	"github.com/blaubaer/presence-monitor/pkg/presence"
)

const appName = "github.com/blaubaer/presence-monitor"

var ErrNotPaired = errors.New("not paired with hue bridge; run 'presence-monitor hue pair' first")

type bridge interface {
	GetLightsContext(ctx context.Context) ([]huego.Light, error)
	GetGroupsContext(ctx context.Context) ([]huego.Group, error)
	SetLightStateContext(ctx context.Context, id int, state huego.State) (*huego.Response, error)
	SetGroupStateContext(ctx context.Context, id int, state huego.State) (*huego.Response, error)
}

// Hue switches all lights and groups whose name matches the target on while
// at least one monitored signal is active and off otherwise.
type Hue struct {
	conf    Configuration
	signals presence.Signals
	store   credentials.Store

	newBridge func(host, user string) bridge
	now       func() time.Time

	bridge      bridge
	lights      []huego.Light
	groups      []huego.Group
	lastRefresh time.Time
	mutex       sync.Mutex
}

func New(conf Configuration, signals presence.Signals, store credentials.Store) *Hue {
	return &Hue{
		conf:    conf,
		signals: signals,
		store:   store,
		newBridge: func(host, user string) bridge {
			return huego.New(host, user)
		},
		now: time.Now,
	}
}

func (this *Hue) GetType() presence.SinkType {
	return presence.SinkTypeHue
}

func (this *Hue) Initialize(ctx context.Context) error {
	this.mutex.Lock()
	defer this.mutex.Unlock()

	v, err := this.resolveCredentials()
	if err != nil {
		return err
	}
	this.bridge = this.newBridge(v.HueBridge, v.HueUser)

	if err := this.update(ctx); err != nil {
		log.WithError(err).
			With("bridge", v.HueBridge).
			Warn("Cannot discover hue lights. Will try again later.")
	}
	return nil
}

func (this *Hue) resolveCredentials() (credentials.Credentials, error) {
	if this.conf.Bridge != "" && this.conf.User != "" {
		return credentials.Credentials{
			HueBridge: this.conf.Bridge,
			HueUser:   this.conf.User,
		}, nil
	}

	var v credentials.Credentials
	if this.store != nil {
		buf, _, err := this.store.Read()
		if err != nil {
			return credentials.Credentials{}, err
		}
		v = buf
	}
	if this.conf.Bridge != "" {
		v.HueBridge = this.conf.Bridge
	}
	if this.conf.User != "" {
		v.HueUser = this.conf.User
	}
	if v.IsHueZero() {
		return credentials.Credentials{}, ErrNotPaired
	}
	return v, nil
}

func (this *Hue) update(ctx context.Context) error {
	lights, err := this.discoverLights(ctx)
	if err != nil {
		return err
	}
	groups, err := this.discoverGroups(ctx)
	if err != nil {
		return err
	}

	this.lights = lights
	this.groups = groups
	this.lastRefresh = this.now()

	log.With("lights", len(lights)).
		With("groups", len(groups)).
		Debug("Hue lights discovered.")
	return nil
}

// bounded limits every single request to the bridge by the configured
// timeout.
func (this *Hue) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, this.conf.timeout())
}

func (this *Hue) discoverLights(ctx context.Context) (result []huego.Light, _ error) {
	if this.conf.Kinds.Has(KindLight) {
		ctx, cancel := this.bounded(ctx)
		defer cancel()
		candidates, err := this.bridge.GetLightsContext(ctx)
		if err != nil {
			return nil, fmt.Errorf("cannot discover lights: %w", err)
		}
		for _, candidate := range candidates {
			if this.conf.Target.MatchString(candidate.Name) {
				if candidate.State == nil {
					candidate.State = &huego.State{}
				}
				result = append(result, candidate)
			}
		}
	}
	return
}

func (this *Hue) discoverGroups(ctx context.Context) (result []huego.Group, _ error) {
	if this.conf.Kinds.Has(KindGroup) {
		ctx, cancel := this.bounded(ctx)
		defer cancel()
		candidates, err := this.bridge.GetGroupsContext(ctx)
		if err != nil {
			return nil, fmt.Errorf("cannot discover groups: %w", err)
		}
		for _, candidate := range candidates {
			if this.conf.Target.MatchString(candidate.Name) {
				if candidate.State == nil {
					candidate.State = &huego.State{}
				}
				result = append(result, candidate)
			}
		}
	}
	return
}

func (this *Hue) Publish(ctx context.Context, snapshot presence.Snapshot) {
	this.mutex.Lock()
	defer this.mutex.Unlock()

	if this.bridge == nil {
		return
	}

	if this.now().Sub(this.lastRefresh) >= this.conf.refresh() {
		if err := this.update(ctx); err != nil {
			log.WithError(err).
				Warn("Cannot discover hue lights.")
			this.failed()
			return
		}
	}

	on := false
	for _, signal := range this.signals {
		on = on || snapshot.IsActive(signal)
	}

	if err := this.ensure(ctx, on); err != nil {
		log.WithError(err).
			With("on", on).
			Warn("Cannot switch hue lights.")
		this.failed()
		// Enforce a rediscovery, the bridge might have changed.
		this.lastRefresh = time.Time{}
	}
}

func (this *Hue) failed() {
	for _, signal := range this.signals {
		metrics.DeliveryFailed(presence.SinkTypeHue, signal)
	}
}

func (this *Hue) targetState(on bool, current *huego.State) *huego.State {
	if on {
		if !current.On || current.Bri != this.conf.Brightness || current.Hue != this.conf.Hue || current.Sat != this.conf.Saturation {
			return &huego.State{
				On:  true,
				Bri: this.conf.Brightness,
				Hue: this.conf.Hue,
				Sat: this.conf.Saturation,
			}
		}
		return nil
	}
	if current.On {
		return &huego.State{On: false}
	}
	return nil
}

func (this *Hue) ensure(ctx context.Context, on bool) error {
	for i := range this.lights {
		v := &this.lights[i]
		if target := this.targetState(on, v.State); target != nil {
			if err := this.set(ctx, this.bridge.SetLightStateContext, v.ID, *target); err != nil {
				return fmt.Errorf("cannot switch light %q#%d to on=%v: %w", v.Name, v.ID, on, err)
			}
			v.State = target
		}
	}
	for i := range this.groups {
		v := &this.groups[i]
		if target := this.targetState(on, v.State); target != nil {
			if err := this.set(ctx, this.bridge.SetGroupStateContext, v.ID, *target); err != nil {
				return fmt.Errorf("cannot switch group %q#%d to on=%v: %w", v.Name, v.ID, on, err)
			}
			v.State = target
		}
	}
	return nil
}

func (this *Hue) set(ctx context.Context, setter func(context.Context, int, huego.State) (*huego.Response, error), id int, state huego.State) error {
	ctx, cancel := this.bounded(ctx)
	defer cancel()
	_, err := setter(ctx, id, state)
	return err
}

// Dispose switches all handled lights off.
func (this *Hue) Dispose() error {
	this.mutex.Lock()
	defer this.mutex.Unlock()

	if this.bridge == nil {
		return nil
	}
	err := this.ensure(context.Background(), false)
	this.bridge = nil
	return err
}
