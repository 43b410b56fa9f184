// Package logic contains the charge-control core: channel sampling, voltage
// estimation, power-presence detection and the hysteretic charge state machine.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Hardware is reached through the Converter and Actuator interfaces and time is
// always injectable via time.Time parameters.
package logic

import (
	"fmt"
	"time"
)

// Raw is an unsigned count returned by the analog-to-digital converter.
type Raw uint16

// Channel identifies one of the two converter inputs.
type Channel uint8

const (
	ChannelA Channel = iota // primary channel, also used for presence detection
	ChannelB                // reference channel
)

// Next returns the channel converted after c.
func (c Channel) Next() Channel {
	if c == ChannelA {
		return ChannelB
	}
	return ChannelA
}

func (c Channel) String() string {
	switch c {
	case ChannelA:
		return "A"
	case ChannelB:
		return "B"
	}
	return fmt.Sprintf("Channel(%d)", uint8(c))
}

// ChargeState is the state of the charge controller.
type ChargeState string

const (
	StateDisconnected ChargeState = "DISCONNECTED"
	StateCharging     ChargeState = "CHARGING"
	StateFull         ChargeState = "FULL"
	StateProtect      ChargeState = "PROTECT"
)

// Presence reports whether an external power source is connected.
type Presence string

const (
	PresencePresent Presence = "PRESENT"
	PresenceAbsent  Presence = "ABSENT"
)

// Indicator identifies a status output.
type Indicator uint8

const (
	IndicatorLow Indicator = iota
	IndicatorFull
	IndicatorCharging
	IndicatorPresence
)

// AllIndicators lists every indicator in the order they are driven.
var AllIndicators = []Indicator{IndicatorLow, IndicatorFull, IndicatorCharging, IndicatorPresence}

func (i Indicator) String() string {
	switch i {
	case IndicatorLow:
		return "LOW"
	case IndicatorFull:
		return "FULL"
	case IndicatorCharging:
		return "CHARGING"
	case IndicatorPresence:
		return "PRESENCE"
	}
	return fmt.Sprintf("Indicator(%d)", uint8(i))
}

// IndicatorSet holds the desired level of every indicator.
type IndicatorSet struct {
	Low      bool
	Full     bool
	Charging bool
	Presence bool
}

// Get returns the level of a single indicator.
func (s IndicatorSet) Get(i Indicator) bool {
	switch i {
	case IndicatorLow:
		return s.Low
	case IndicatorFull:
		return s.Full
	case IndicatorCharging:
		return s.Charging
	case IndicatorPresence:
		return s.Presence
	}
	return false
}

// Converter starts analog conversions. Completion is delivered asynchronously
// to Core.OnConversionComplete by whoever owns the converter.
type Converter interface {
	StartConversion(ch Channel) error
}

// Actuator drives the charge-enable switch and the status indicators.
type Actuator interface {
	SetChargeEnable(enabled bool) error
	SetIndicator(kind Indicator, on bool) error
}

// Event represents a charge state transition to be published.
type Event struct {
	Timestamp    time.Time
	From         ChargeState
	To           ChargeState
	Value        int32 // settled differential estimate (0 when the source was lost)
	Presence     Presence
	ChargeEnable bool
}

// StateCounts tracks how many times each state was entered since startup.
type StateCounts struct {
	Disconnected int
	Charging     int
	Full         int
	Protect      int
}

func (c *StateCounts) add(s ChargeState) {
	switch s {
	case StateDisconnected:
		c.Disconnected++
	case StateCharging:
		c.Charging++
	case StateFull:
		c.Full++
	case StateProtect:
		c.Protect++
	}
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	State     ChargeState
	Cycles    uint64
	Settles   uint64
	Counts    StateCounts
}
