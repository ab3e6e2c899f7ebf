package entities

import "time"

const (
	MinAngle = 0
	MaxAngle = 180

	// NeutralAngle is the rest position of every servo
	NeutralAngle = 90
	// MouthOpenAngle and MouthClosedAngle bound the jaw travel
	MouthOpenAngle   = 70
	MouthClosedAngle = 90
)

// Default servo channels on the microcontroller
const (
	DefaultEyeRightServo = 7
	DefaultEyeLeftServo  = 8
	DefaultMouthServo    = 9
)

// ServoMap maps the actor's named actuators to microcontroller channels
type ServoMap struct {
	EyeRight int `json:"eye_right" yaml:"eye_right"`
	EyeLeft  int `json:"eye_left" yaml:"eye_left"`
	Mouth    int `json:"mouth" yaml:"mouth"`
}

// DefaultServoMap returns the wiring of the reference build
func DefaultServoMap() ServoMap {
	return ServoMap{
		EyeRight: DefaultEyeRightServo,
		EyeLeft:  DefaultEyeLeftServo,
		Mouth:    DefaultMouthServo,
	}
}

// Lookup resolves a named actuator
func (m ServoMap) Lookup(name string) (int, bool) {
	switch name {
	case "eye_right":
		return m.EyeRight, true
	case "eye_left":
		return m.EyeLeft, true
	case "mouth":
		return m.Mouth, true
	}
	return 0, false
}

// ActuatorCommand asks one servo to move to an angle over a duration
type ActuatorCommand struct {
	Servo    int
	Angle    int
	Duration time.Duration
}

// Normalized returns the command with the angle clamped and a non-negative duration
func (c ActuatorCommand) Normalized() ActuatorCommand {
	c.Angle = ClampAngle(c.Angle)
	if c.Duration < 0 {
		c.Duration = 0
	}
	return c
}

// ClampAngle clamps an angle into [MinAngle, MaxAngle]
func ClampAngle(angle int) int {
	if angle < MinAngle {
		return MinAngle
	}
	if angle > MaxAngle {
		return MaxAngle
	}
	return angle
}
