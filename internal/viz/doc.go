// Package viz renders a running scene in the terminal with Bubble Tea.
//
// The live view draws a side projection of the plates, the screen plane
// and every particle on a Braille [Canvas], or a rotatable 3D wireframe
// through a [Camera]. Rendering only reads copies of simulation state.
//
// # Key Bindings
//
//	Space  - Pause/Resume
//	Tab    - Select next plate
//	Up/K   - Raise selected plate charge
//	Down/J - Lower selected plate charge
//	0      - Zero selected plate charge
//	R      - Restart the scene
//	M      - Toggle 3D view
//	X/Y    - Rotate (3D)
//	+/-    - Zoom (3D)
//	T      - Cycle phosphor themes
//	?      - Show help overlay
//
// [Picker] lists the built-in scenes before the live view starts.
package viz
