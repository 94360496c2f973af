// Package control provides steering controllers for deflection plates.
//
// A controller implements [Steering]. Once per tick, before the plate
// snapshot is taken, the driver hands it the latest screen measurement
// and writes the returned charge to the steered plate:
//
//   - [None]: never writes; charges stay where the scene or the user put them
//   - [Sweep]: sinusoidal raster sweep over a fixed period in ticks
//   - [PID]: drives the mean landing coordinate toward a target
//
// # Usage
//
//	pid := control.NewPID(1e-9, 1e-11, 0, 0.5) // Kp, Ki, Kd, target
//	q, ok := pid.Compute(control.Measurement{Value: y, Samples: n}, tick)
//
// Controllers implementing [Configurable] support live tuning.
package control
