package mqtt

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/ngochaukiet2005/shuttle-dispatch/core/notify"
	"github.com/ngochaukiet2005/shuttle-dispatch/infra/logger"
)

// Config defines the connection parameters for the Paho MQTT client.
type Config struct {
	Broker     string          `json:"broker"`
	ClientID   string          `json:"client_id"`
	Username   string          `json:"username"`
	Password   string          `json:"password"`
	AckTopic   string          `json:"ack_topic"`
	UseTLS     bool            `json:"use_tls"`
	ClientCert string          `json:"client_cert"`
	ClientKey  string          `json:"client_key"`
	CABundle   string          `json:"ca_bundle"`
	AuthMethod string          `json:"auth_method"`
	QoS        map[string]byte `json:"qos"`
	LWTTopic   string          `json:"lwt_topic"`
	LWTPayload string          `json:"lwt_payload"`
	LWTQoS     byte            `json:"lwt_qos"`
	LWTRetain  bool            `json:"lwt_retain"`
	MaxRetries int             `json:"max_retries"`
	BackoffMS  int             `json:"backoff_ms"`
	TLSConfig  *tls.Config     `json:"-"`
}

// DriverTopic returns the per-driver assignment topic.
func DriverTopic(driverID string) string {
	return fmt.Sprintf("driver/%s/assignment", driverID)
}

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
}

// PahoNotifier implements notify.Notifier using Eclipse Paho. Trip
// assignments go to per-driver topics; driver apps acknowledge on the
// shared ack topic with the command id they received.
type PahoNotifier struct {
	cli      pahoClient
	ackTopic string
	qos      map[string]byte

	mu       sync.Mutex
	ackChans map[string]chan struct{}
	logger   logger.Logger

	// fixed at construction, NotifyDriver runs concurrently
	maxRetries int
	backoff    time.Duration
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// NewPahoNotifier connects to the MQTT broker and subscribes to the ACK topic.
func NewPahoNotifier(cfg Config) (*PahoNotifier, error) {
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}

	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.BackoffMS <= 0 {
		cfg.BackoffMS = 100
	}

	log := logger.New("mqtt_notifier")
	n := &PahoNotifier{
		ackTopic:   cfg.AckTopic,
		ackChans:   make(map[string]chan struct{}),
		logger:     log,
		qos:        cfg.QoS,
		maxRetries: cfg.MaxRetries,
		backoff:    time.Duration(cfg.BackoffMS) * time.Millisecond,
	}

	opts.OnConnect = func(c paho.Client) {
		log.Infof("MQTT connected")
		qos := byte(0)
		if q, ok := n.qos["ack"]; ok {
			qos = q
		}
		if token := c.Subscribe(n.ackTopic, qos, n.onAck); token.Wait() && token.Error() != nil {
			log.Errorf("subscribe error: %v", token.Error())
		}
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		log.Warnf("reconnecting to MQTT broker")
	}
	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	n.cli = c
	return n, nil
}

// NewClientOptions builds mqtt client options from Config.
func NewClientOptions(cfg Config) (*paho.ClientOptions, error) {
	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	opts.AutoReconnect = true
	if cfg.AuthMethod == "username_password" || cfg.AuthMethod == "both" || cfg.AuthMethod == "" {
		if cfg.Username != "" {
			opts.SetUsername(cfg.Username)
		}
		if cfg.Password != "" {
			opts.SetPassword(cfg.Password)
		}
	}
	if cfg.UseTLS {
		tlsCfg, err := cfg.LoadTLSConfig()
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
	}
	if cfg.LWTTopic != "" {
		opts.SetWill(cfg.LWTTopic, cfg.LWTPayload, cfg.LWTQoS, cfg.LWTRetain)
	}
	return opts, nil
}

// LoadTLSConfig loads the TLS configuration from the file paths in the config.
func (c Config) LoadTLSConfig() (*tls.Config, error) {
	if c.TLSConfig != nil {
		return c.TLSConfig, nil
	}
	if c.ClientCert == "" || c.ClientKey == "" || c.CABundle == "" {
		return nil, fmt.Errorf("tls config requires client_cert, client_key and ca_bundle")
	}
	cert, err := tls.LoadX509KeyPair(c.ClientCert, c.ClientKey)
	if err != nil {
		return nil, fmt.Errorf("load cert: %w", err)
	}
	caBytes, err := os.ReadFile(c.CABundle)
	if err != nil {
		return nil, fmt.Errorf("read ca: %w", err)
	}
	pool := x509.NewCertPool()
	pool.AppendCertsFromPEM(caBytes)
	cfg := &tls.Config{Certificates: []tls.Certificate{cert}, RootCAs: pool, MinVersion: tls.VersionTLS12}
	return cfg, nil
}

func (n *PahoNotifier) onAck(_ paho.Client, msg paho.Message) {
	var m struct {
		CommandID string `json:"command_id"`
	}
	if err := json.Unmarshal(msg.Payload(), &m); err != nil {
		n.logger.Errorf("failed to decode ack: %v", err)
		return
	}
	n.mu.Lock()
	ch, ok := n.ackChans[m.CommandID]
	if ok {
		select {
		case ch <- struct{}{}:
		default:
		}
		n.logger.Infof("received ack %s", m.CommandID)
	}
	n.mu.Unlock()
}

// NotifyDriver publishes the event to the driver's assignment topic and
// returns the command identifier used for acknowledgment tracking.
func (n *PahoNotifier) NotifyDriver(driverID, event string, payload any) (string, error) {
	cmdID := uuid.NewString()
	envelope := struct {
		CommandID string `json:"command_id"`
		DriverID  string `json:"driver_id"`
		Event     string `json:"event"`
		Payload   any    `json:"payload"`
		Timestamp int64  `json:"timestamp"`
	}{
		CommandID: cmdID,
		DriverID:  driverID,
		Event:     event,
		Payload:   payload,
		Timestamp: time.Now().UnixMilli(),
	}
	data, err := json.Marshal(envelope)
	if err != nil {
		return "", err
	}

	topic := DriverTopic(driverID)
	qos := byte(0)
	if q, ok := n.qos["assignment"]; ok {
		qos = q
	}
	// Register the ack channel before publishing so a fast reply is
	// not lost.
	n.mu.Lock()
	n.ackChans[cmdID] = make(chan struct{}, 1)
	n.mu.Unlock()

	var publishErr error
	for attempt := 0; attempt <= n.maxRetries; attempt++ {
		token := n.cli.Publish(topic, qos, false, data)
		token.Wait()
		publishErr = token.Error()
		if publishErr == nil {
			n.logger.Infof("sent %s %s to %s", event, cmdID, topic)
			break
		}
		n.logger.Errorf("publish attempt %d failed: %v", attempt+1, publishErr)
		time.Sleep(n.backoff * time.Duration(1<<attempt))
	}
	if publishErr != nil {
		n.mu.Lock()
		delete(n.ackChans, cmdID)
		n.mu.Unlock()
		return "", publishErr
	}

	return cmdID, nil
}

// WaitForAck blocks until an ACK for the given command ID is received or timeout.
func (n *PahoNotifier) WaitForAck(commandID string, timeout time.Duration) (bool, error) {
	n.mu.Lock()
	ch := n.ackChans[commandID]
	n.mu.Unlock()
	if ch == nil {
		return false, fmt.Errorf("unknown command")
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-ch:
		n.mu.Lock()
		delete(n.ackChans, commandID)
		n.mu.Unlock()
		return true, nil
	case <-timer.C:
		n.mu.Lock()
		delete(n.ackChans, commandID)
		n.mu.Unlock()
		return false, fmt.Errorf("%w", notify.ErrAckTimeout)
	}
}

// Disconnect gracefully closes the MQTT connection.
func (n *PahoNotifier) Disconnect() {
	if n.cli != nil && n.cli.IsConnected() {
		n.cli.Disconnect(250)
	}
}
