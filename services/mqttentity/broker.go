package mqttentity

import (
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"yorkir-go/errcode"
	"yorkir-go/types"
	"yorkir-go/x/logx"
)

// Broker is the slice of an MQTT client the entity needs.
type Broker interface {
	Publish(topic string, retained bool, payload []byte) error
	Subscribe(filter string, h func(topic string, payload []byte)) error
}

// PahoBroker is a Broker over paho.
type PahoBroker struct {
	client paho.Client
	qos    byte
}

// Dial connects to cfg.Broker with a last will of "offline" on
// <base>/availability. onConnect runs after every (re)connect.
func Dial(cfg types.MQTTConfig, onConnect func()) (*PahoBroker, error) {
	b := &PahoBroker{qos: cfg.QoS}
	opts := paho.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetWill(cfg.BaseTopic+"/"+availabilitySuffix, offline, cfg.QoS, true)
	opts.SetOnConnectHandler(func(paho.Client) {
		logx.Info("mqtt: connected to %s", cfg.Broker)
		if onConnect != nil {
			onConnect()
		}
	})
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		logx.Warn("mqtt: connection lost: %v", err)
	})

	b.client = paho.NewClient(opts)
	if tok := b.client.Connect(); tok.WaitTimeout(10*time.Second) && tok.Error() != nil {
		return nil, errcode.Wrap(errcode.NotReady, "mqtt.dial", tok.Error())
	}
	return b, nil
}

func (b *PahoBroker) Publish(topic string, retained bool, payload []byte) error {
	tok := b.client.Publish(topic, b.qos, retained, payload)
	if !tok.WaitTimeout(5 * time.Second) {
		return errcode.New(errcode.Timeout, "mqtt.publish", topic)
	}
	return tok.Error()
}

func (b *PahoBroker) Subscribe(filter string, h func(topic string, payload []byte)) error {
	tok := b.client.Subscribe(filter, b.qos, func(_ paho.Client, m paho.Message) {
		h(m.Topic(), m.Payload())
	})
	if !tok.WaitTimeout(5 * time.Second) {
		return errcode.New(errcode.Timeout, "mqtt.subscribe", filter)
	}
	if err := tok.Error(); err != nil {
		return fmt.Errorf("subscribe %s: %w", filter, err)
	}
	return nil
}

// Close publishes offline and disconnects.
func (b *PahoBroker) Close(base string) {
	if b.client.IsConnected() {
		_ = b.Publish(base+"/"+availabilitySuffix, true, []byte(offline))
		b.client.Disconnect(1000)
	}
}
