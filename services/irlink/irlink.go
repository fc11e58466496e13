// Package irlink carries raw IR bursts between the bus and the IR front end
// (a transceiver on a serial port, a TCP bridge or an on-chip UART).
package irlink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"yorkir-go/bus"
	"yorkir-go/errcode"
	"yorkir-go/types"
	"yorkir-go/x/logx"
	"yorkir-go/x/timex"
)

var (
	TopicTX    = bus.T("ir", "tx")
	TopicRX    = bus.T("ir", "rx")
	TopicState = bus.T("irlink", "state")

	topicConfig = bus.T("config", "irlink")
)

const defaultPing = 5 * time.Second

var errPeerClosed = errors.New("peer closed link")

// Start runs the link service. It blocks until ctx is cancelled and
// (re)configures the link on every config/irlink message.
func Start(ctx context.Context, conn *bus.Connection) {
	s := &Service{conn: conn, now: time.Now}
	s.run(ctx)
}

type Service struct {
	conn *bus.Connection
	now  timex.Clock

	mu     sync.Mutex
	curRun context.CancelFunc
}

func (s *Service) run(ctx context.Context) {
	cfgSub := s.conn.Subscribe(topicConfig)
	defer s.conn.Unsubscribe(cfgSub)

	s.publishState(types.LevelIdle, "awaiting_config", nil)

	for {
		select {
		case <-ctx.Done():
			s.stopCurrent()
			s.publishState(types.LevelDown, "stopped", nil)
			return
		case msg, ok := <-cfgSub.Channel():
			if !ok {
				s.publishState(types.LevelError, "config_subscription_closed", nil)
				return
			}
			cfg, err := decodeConfig(msg.Payload)
			if err != nil {
				s.publishState(types.LevelError, "config_decode_failed", err)
				continue
			}
			s.reconfigure(ctx, cfg)
		}
	}
}

func (s *Service) stopCurrent() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.curRun != nil {
		s.curRun()
		s.curRun = nil
	}
}

func (s *Service) reconfigure(parent context.Context, cfg types.IRLinkConfig) {
	s.mu.Lock()
	if s.curRun != nil {
		s.curRun()
	}
	ctx, cancel := context.WithCancel(parent)
	s.curRun = cancel
	s.mu.Unlock()

	go s.runLink(ctx, cfg)
}

func (s *Service) runLink(ctx context.Context, cfg types.IRLinkConfig) {
	tr, err := newTransport(cfg)
	if err != nil {
		s.publishState(types.LevelError, "transport_init_failed", err)
		return
	}
	ping := time.Duration(cfg.PingS) * time.Second
	if ping <= 0 {
		ping = defaultPing
	}

	backoff := backoffSeq(100*time.Millisecond, 5*time.Second)
	for {
		if ctx.Err() != nil {
			return
		}
		rwc, err := tr.Open(ctx)
		if err != nil {
			delay := backoff()
			s.publishState(types.LevelDegraded, "dial_failed_retrying", fmt.Errorf("%v (retry in %s)", err, delay))
			if !sleep(ctx, delay) {
				return
			}
			continue
		}

		logx.Info("irlink: up on %s", tr)
		backoff = backoffSeq(100*time.Millisecond, 5*time.Second)
		txSub := s.conn.Subscribe(TopicTX)
		s.publishState(types.LevelUp, "link_established", nil)
		err = s.handleLink(ctx, rwc, txSub, ping)
		s.conn.Unsubscribe(txSub)
		if err != nil {
			delay := backoff()
			logx.Warn("irlink: %s lost: %v", tr, err)
			s.publishState(types.LevelDegraded, "link_lost_retrying", fmt.Errorf("%v (retry in %s)", err, delay))
			if !sleep(ctx, delay) {
				return
			}
			continue
		}
		return
	}
}

// handleLink owns one link lifetime. Bursts from ir/tx are written as tx
// frames; rx frames are published on ir/rx stamped with the receive time.
func (s *Service) handleLink(ctx context.Context, rwc io.ReadWriteCloser, txSub *bus.Subscription, ping time.Duration) error {
	defer rwc.Close()
	rd := newFramedReader(rwc)
	wr := newFramedWriter(rwc)

	errCh := make(chan error, 1)
	pongCh := make(chan struct{}, 1)
	go func() {
		for {
			f, err := rd.ReadFrame()
			if err != nil {
				errCh <- err
				return
			}
			switch f.Type {
			case framePing:
				select {
				case pongCh <- struct{}{}:
				default:
				}
			case framePong:
			case frameRX:
				s.publishRX(f.Payload)
			case frameAck:
				logx.Debug("irlink: tx acknowledged")
			case frameClose:
				errCh <- errPeerClosed
				return
			default:
				logx.Debug("irlink: unknown frame type 0x%02x", f.Type)
			}
		}
	}()

	tick := time.NewTicker(ping)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = wr.WriteFrame(Frame{Type: frameClose})
			return nil
		case err := <-errCh:
			return err
		case <-pongCh:
			if err := wr.WriteFrame(Frame{Type: framePong}); err != nil {
				return err
			}
		case <-tick.C:
			if err := wr.WriteFrame(Frame{Type: framePing}); err != nil {
				return err
			}
		case m := <-txSub.Channel():
			f, ok := m.Payload.(types.IRFrame)
			if !ok {
				logx.Warn("irlink: ir/tx payload %T ignored", m.Payload)
				continue
			}
			p, err := AppendBurst(nil, f.CarrierKHz, f.Pulses)
			if err != nil {
				logx.Warn("irlink: %v", err)
				continue
			}
			if err := wr.WriteFrame(Frame{Type: frameTX, Payload: p}); err != nil {
				return err
			}
		}
	}
}

func (s *Service) publishRX(payload []byte) {
	carrier, pulses, err := ParseBurst(payload)
	if err != nil {
		logx.Warn("irlink: rx frame dropped: %v", err)
		return
	}
	now := s.now.Now()
	f := types.IRFrame{CarrierKHz: carrier, Pulses: pulses, TS: now.UnixMilli(), At: now}
	s.conn.Publish(s.conn.NewMessage(TopicRX, f, false))
}

func decodeConfig(p any) (types.IRLinkConfig, error) {
	var cfg types.IRLinkConfig
	switch v := p.(type) {
	case types.IRLinkConfig:
		return v, nil
	case *types.IRLinkConfig:
		if v == nil {
			return cfg, errcode.New(errcode.InvalidPayload, "irlink.config", "nil config")
		}
		return *v, nil
	case []byte:
		return cfg, json.Unmarshal(v, &cfg)
	case string:
		return cfg, json.Unmarshal([]byte(v), &cfg)
	default:
		return cfg, errcode.New(errcode.InvalidPayload, "irlink.config", fmt.Sprintf("unsupported payload %T", p))
	}
}

func (s *Service) publishState(level, status string, err error) {
	st := types.ServiceState{Level: level, Status: status, TS: s.now.Now().UnixMilli()}
	if err != nil {
		st.Error = err.Error()
	}
	s.conn.Publish(s.conn.NewMessage(TopicState, st, true))
}

func backoffSeq(min, max time.Duration) func() time.Duration {
	if min <= 0 {
		min = 100 * time.Millisecond
	}
	if max < min {
		max = min
	}
	cur := min
	return func() time.Duration {
		d := cur
		cur *= 2
		if cur > max {
			cur = max
		}
		return d
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
