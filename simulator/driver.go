package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// assignment is the envelope published on the driver's assignment topic.
type assignment struct {
	CommandID string `json:"command_id"`
	DriverID  string `json:"driver_id"`
	Event     string `json:"event"`
	Payload   struct {
		TripID   string    `json:"trip_id"`
		TimeSlot time.Time `json:"time_slot"`
		Stops    []stop    `json:"stops"`
	} `json:"payload"`
}

type stop struct {
	RequestID string `json:"request_id"`
	Address   string `json:"address"`
	Type      string `json:"type"`
	Order     int    `json:"order"`
}

// stopUpdate is published on the driver's status topic while walking a
// trip.
type stopUpdate struct {
	TripID    string `json:"trip_id"`
	RequestID string `json:"request_id"`
	StopType  string `json:"stop_type"`
	Status    string `json:"status"`
}

// walkUpdates translates a route into the status updates a driver app
// would emit while serving it, in driving order.
func walkUpdates(tripID string, stops []stop) []stopUpdate {
	ordered := make([]stop, len(stops))
	copy(ordered, stops)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Order < ordered[j].Order })
	updates := make([]stopUpdate, 0, len(ordered))
	for _, s := range ordered {
		status := "picked_up"
		if s.Type == "dropoff" {
			status = "dropped_off"
		}
		updates = append(updates, stopUpdate{
			TripID:    tripID,
			RequestID: s.RequestID,
			StopType:  s.Type,
			Status:    status,
		})
	}
	return updates
}

// SimulatedDriver connects to MQTT and acknowledges trip assignments.
type SimulatedDriver struct {
	ID       string
	Broker   string
	AckTopic string
	Strategy AckStrategy

	WalkStops    bool
	WalkInterval time.Duration

	client paho.Client
}

// NewSimulatedDriver creates a driver-app stand-in.
func NewSimulatedDriver(id string, cfg Config, strat AckStrategy) *SimulatedDriver {
	return &SimulatedDriver{
		ID:           id,
		Broker:       cfg.Broker,
		AckTopic:     cfg.AckTopic,
		Strategy:     strat,
		WalkStops:    cfg.WalkStops,
		WalkInterval: cfg.WalkInterval,
	}
}

// Run connects to the broker and handles assignments until ctx is done.
func (d *SimulatedDriver) Run(ctx context.Context) error {
	cli, err := newMQTTClient(d.Broker, "sim-"+d.ID)
	if err != nil {
		return err
	}
	d.client = cli
	topic := fmt.Sprintf("driver/%s/assignment", d.ID)
	if token := cli.Subscribe(topic, 0, d.onAssignment(ctx)); token.Wait() && token.Error() != nil {
		cli.Disconnect(250)
		return token.Error()
	}
	<-ctx.Done()
	cli.Disconnect(250)
	return nil
}

func (d *SimulatedDriver) onAssignment(ctx context.Context) func(paho.Client, paho.Message) {
	return func(_ paho.Client, msg paho.Message) {
		var a assignment
		if err := json.Unmarshal(msg.Payload(), &a); err != nil {
			log.Printf("%s: decode assignment: %v", d.ID, err)
			return
		}
		go func() {
			acked := d.Strategy.Ack(ctx, d.client, d.AckTopic, d.ID, a.CommandID)
			log.Printf("%s: trip %s acked=%v (%d stops)", d.ID, a.Payload.TripID, acked, len(a.Payload.Stops))
			if acked && d.WalkStops {
				d.walk(ctx, a)
			}
		}()
	}
}

func (d *SimulatedDriver) walk(ctx context.Context, a assignment) {
	topic := fmt.Sprintf("driver/%s/status", d.ID)
	for _, u := range walkUpdates(a.Payload.TripID, a.Payload.Stops) {
		select {
		case <-time.After(d.WalkInterval):
		case <-ctx.Done():
			return
		}
		payload, err := json.Marshal(u)
		if err != nil {
			log.Printf("%s: marshal update: %v", d.ID, err)
			return
		}
		if token := d.client.Publish(topic, 0, false, payload); token.Wait() && token.Error() != nil {
			log.Printf("%s: publish update: %v", d.ID, token.Error())
		}
	}
}
