// Package stream drives the stream actuator from motion verdicts.
//
// The Controller is a three-state machine (Idle, Active, CoolingDown) that
// starts the stream on motion and stops it once motion has been absent for the
// inactivity timeout. Brief pauses in motion only move the controller into
// CoolingDown, so the actuator does not flap.
package stream
