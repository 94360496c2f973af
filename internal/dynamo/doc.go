// Package dynamo holds the types shared by every stage of the particle
// simulation: the [Particle] record, its lifecycle [Phase], the
// [Integrator] contract and the error kinds raised by the core.
//
// Error kinds are sentinels matched with errors.Is:
//
//   - [ErrDomain]: the field is undefined at a point (zero distance to a
//     plate, or a non-finite result)
//   - [ErrConfiguration]: non-positive mass, half-extent or time step
//   - [ErrInvalidOrientation]: a plate normal outside X, Y, Z
package dynamo
