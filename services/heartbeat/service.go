// Package heartbeat publishes a retained liveness beat that the MQTT
// entity layer mirrors as availability.
package heartbeat

import (
	"context"
	"time"

	"yorkir-go/bus"
	"yorkir-go/types"
	"yorkir-go/x/logx"
	"yorkir-go/x/timex"
)

var (
	TopicHeartbeat       = bus.T("system", "heartbeat")
	topicConfigHeartbeat = bus.T("config", "heartbeat")
)

const defaultInterval = 10 * time.Second

type Service struct {
	Now timex.Clock // nil uses time.Now

	seq     uint32
	started time.Time
}

func (s *Service) serviceLoop(ctx context.Context, conn *bus.Connection) {
	cfgSub := conn.Subscribe(topicConfigHeartbeat)
	defer conn.Unsubscribe(cfgSub)

	s.started = s.Now.Now()
	tick := time.NewTicker(defaultInterval)
	defer tick.Stop()
	s.beat(conn)

	for {
		select {
		case <-ctx.Done():
			logx.Info("heartbeat: stopping")
			return
		case <-tick.C:
			s.beat(conn)
		case msg := <-cfgSub.Channel():
			if iv := interval(msg.Payload); iv > 0 {
				tick.Reset(iv)
				logx.Info("heartbeat: interval %s", iv)
			}
		}
	}
}

func (s *Service) beat(conn *bus.Connection) {
	s.seq++
	now := s.Now.Now()
	conn.Publish(conn.NewMessage(TopicHeartbeat, types.Heartbeat{
		Seq:      s.seq,
		UptimeMS: now.Sub(s.started).Milliseconds(),
		TS:       now.UnixMilli(),
	}, true))
	logx.Debug("heartbeat: %d", s.seq)
}

func interval(p any) time.Duration {
	switch v := p.(type) {
	case types.HeartbeatConfig:
		return time.Duration(v.IntervalS) * time.Second
	case map[string]any:
		if f, ok := v["interval_s"].(float64); ok {
			return time.Duration(f * float64(time.Second))
		}
	}
	return 0
}

// Start the heartbeat service.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) error {
	go s.serviceLoop(ctx, conn)
	return nil
}
