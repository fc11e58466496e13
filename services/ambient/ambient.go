// Package ambient polls room temperature sensors and publishes readings on
// env/temperature/<name> for the climate service.
package ambient

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"tinygo.org/x/drivers"

	"yorkir-go/bus"
	"yorkir-go/errcode"
	"yorkir-go/types"
	"yorkir-go/x/logx"
	"yorkir-go/x/timex"
)

const defaultPeriod = 10 * time.Second

var topicConfig = bus.T("config", "ambient")

func TemperatureTopic(name string) bus.Topic { return bus.T("env", "temperature", name) }
func HumidityTopic(name string) bus.Topic    { return bus.T("env", "humidity", name) }
func InfoTopic(name string) bus.Topic        { return bus.T("env", "info", name) }
func StateTopic(name string) bus.Topic       { return bus.T("ambient", "state", name) }

// I2CProvider returns the bus named in config ("i2c0", ...). Platform code
// supplies it; hosts without I2C leave it nil.
type I2CProvider func(name string) (drivers.I2C, error)

type Service struct {
	conn *bus.Connection
	i2c  I2CProvider
	now  timex.Clock

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewService(conn *bus.Connection, i2c I2CProvider) *Service {
	return &Service{conn: conn, i2c: i2c, now: time.Now}
}

// Start blocks until ctx is cancelled, restarting the pollers on every
// config/ambient message.
func (s *Service) Start(ctx context.Context) {
	sub := s.conn.Subscribe(topicConfig)
	defer s.conn.Unsubscribe(sub)
	for {
		select {
		case <-ctx.Done():
			s.stop()
			return
		case m := <-sub.Channel():
			cfg, err := decodeConfig(m.Payload)
			if err != nil {
				logx.Error("ambient: bad config: %v", err)
				continue
			}
			s.apply(ctx, cfg)
		}
	}
}

func (s *Service) stop() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Service) apply(parent context.Context, cfg types.AmbientConfig) {
	s.stop()
	ctx, cancel := context.WithCancel(parent)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	for _, sc := range cfg.Sensors {
		sensor, err := s.open(sc)
		if err != nil {
			logx.Error("ambient: sensor %s: %v", sc.Name, err)
			s.publishState(sc.Name, types.LevelError, "init_failed", err)
			continue
		}
		s.conn.Publish(s.conn.NewMessage(InfoTopic(sc.Name), types.Info{
			SchemaVersion: 1,
			Driver:        sc.Driver,
			Detail:        types.TemperatureInfo{Sensor: sc.Driver, Addr: sc.Addr, Bus: sc.Bus},
		}, true))
		period := time.Duration(sc.PeriodMs) * time.Millisecond
		if period <= 0 {
			period = defaultPeriod
		}
		s.wg.Add(1)
		go s.poll(ctx, sc.Name, sensor, period)
	}
}

func (s *Service) open(sc types.SensorConfig) (Sensor, error) {
	if s.i2c == nil {
		return nil, errcode.New(errcode.Unsupported, "ambient.open", "no i2c on this platform")
	}
	i2c, err := s.i2c(sc.Bus)
	if err != nil {
		return nil, err
	}
	return build(sc.Driver, i2c, sc.Addr)
}

func (s *Service) poll(ctx context.Context, name string, sensor Sensor, period time.Duration) {
	defer s.wg.Done()
	tick := time.NewTicker(period)
	defer tick.Stop()

	healthy := false
	for {
		r, err := sensor.Read(ctx)
		switch {
		case ctx.Err() != nil:
			return
		case err != nil:
			logx.Warn("ambient: %s read failed: %v", name, err)
			s.publishState(name, types.LevelDegraded, "read_failed", err)
			healthy = false
		default:
			s.conn.Publish(s.conn.NewMessage(TemperatureTopic(name), types.TemperatureValue{DeciC: r.DeciC}, true))
			s.conn.Publish(s.conn.NewMessage(HumidityTopic(name), types.HumidityValue{RHx100: r.RHx100}, true))
			if !healthy {
				s.publishState(name, types.LevelUp, "reading", nil)
				healthy = true
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
		}
	}
}

func (s *Service) publishState(name, level, status string, err error) {
	st := types.ServiceState{Level: level, Status: status, TS: s.now.Now().UnixMilli()}
	if err != nil {
		st.Error = err.Error()
	}
	s.conn.Publish(s.conn.NewMessage(StateTopic(name), st, true))
}

func decodeConfig(p any) (types.AmbientConfig, error) {
	var cfg types.AmbientConfig
	switch v := p.(type) {
	case types.AmbientConfig:
		return v, nil
	case []byte:
		return cfg, json.Unmarshal(v, &cfg)
	case string:
		return cfg, json.Unmarshal([]byte(v), &cfg)
	default:
		return cfg, errcode.New(errcode.InvalidPayload, "ambient.config", fmt.Sprintf("unsupported payload %T", p))
	}
}
