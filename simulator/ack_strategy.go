package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

var rng = rand.New(rand.NewSource(time.Now().UnixNano()))

// AckStrategy defines how a simulated driver acknowledges assignments.
type AckStrategy interface {
	Ack(ctx context.Context, cli paho.Client, ackTopic, driverID, commandID string) bool
}

// AutoAck sends an acknowledgment after an optional fixed delay.
type AutoAck struct {
	Delay time.Duration
}

// Ack implements AckStrategy.
func (a AutoAck) Ack(ctx context.Context, cli paho.Client, ackTopic, driverID, commandID string) bool {
	if a.Delay > 0 {
		select {
		case <-time.After(a.Delay):
		case <-ctx.Done():
			return false
		}
	}
	return publishAck(cli, ackTopic, driverID, commandID)
}

// RandomAck drops acknowledgments with the configured probability and
// waits for the specified delay before sending.
type RandomAck struct {
	Delay    time.Duration
	DropRate float64
}

// Ack implements AckStrategy.
func (r RandomAck) Ack(ctx context.Context, cli paho.Client, ackTopic, driverID, commandID string) bool {
	if r.DropRate > 0 && rng.Float64() < r.DropRate {
		return false
	}
	return AutoAck{Delay: r.Delay}.Ack(ctx, cli, ackTopic, driverID, commandID)
}

func publishAck(cli paho.Client, ackTopic, driverID, commandID string) bool {
	payload, err := json.Marshal(struct {
		CommandID string `json:"command_id"`
		DriverID  string `json:"driver_id"`
	}{CommandID: commandID, DriverID: driverID})
	if err != nil {
		log.Printf("marshal ack: %v", err)
		return false
	}
	token := cli.Publish(ackTopic, 0, false, payload)
	if !token.WaitTimeout(5 * time.Second) {
		log.Printf("ack publish timeout for %s", driverID)
		return false
	}
	if err := token.Error(); err != nil {
		log.Printf("publish ack error for %s: %v", driverID, err)
		return false
	}
	return true
}

func newMQTTClient(broker, clientID string) (paho.Client, error) {
	opts := paho.NewClientOptions().AddBroker(broker).SetClientID(clientID)
	opts.AutoReconnect = true
	cli := paho.NewClient(opts)
	if token := cli.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connect %s: %w", broker, token.Error())
	}
	return cli, nil
}
