package sim

import (
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/crtsim/internal/dynamo"
	"github.com/san-kum/crtsim/internal/geometry"
	"github.com/san-kum/crtsim/internal/integrators"
	"gonum.org/v1/gonum/spatial/r3"
)

var _ = Describe("Manager", func() {
	var (
		m    *Manager
		opts Options
	)

	BeforeEach(func() {
		opts = Options{
			Particle:   ParticleSpec{Charge: -1.6e-19, Mass: 9.1e-31, Velocity: r3.Vec{X: 1}},
			MaxAge:     6,
			TravelAxis: geometry.AxisX,
			Boundary:   3.5,
			Jitter:     0.25,
			Workers:    1,
		}
	})

	JustBeforeEach(func() {
		var err error
		m, err = New(opts, integrators.NewSemiImplicitEuler(), rand.New(rand.NewSource(11)))
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("Spawn", func() {
		It("creates moving particles with configured kinematics", func() {
			id, err := m.Spawn(r3.Vec{X: 0.5})
			Expect(err).NotTo(HaveOccurred())

			p, ok := m.Get(id)
			Expect(ok).To(BeTrue())
			Expect(p.Phase).To(Equal(dynamo.PhaseMoving))
			Expect(p.Velocity).To(Equal(r3.Vec{X: 1}))
			Expect(p.Charge).To(Equal(-1.6e-19))
			Expect(p.Age).To(BeZero())
		})

		It("hands out increasing ids", func() {
			a, _ := m.Spawn(r3.Vec{})
			b, _ := m.Spawn(r3.Vec{})
			Expect(b).To(BeNumerically(">", a))
		})
	})

	Describe("Tick", func() {
		It("moves, stops and keeps stopped particles", func() {
			id, _ := m.Spawn(r3.Vec{})
			phases := make([]dynamo.Phase, 0, 6)
			for i := 0; i < 6; i++ {
				_, err := m.Tick(nil, 1)
				Expect(err).NotTo(HaveOccurred())
				p, ok := m.Get(id)
				Expect(ok).To(BeTrue())
				phases = append(phases, p.Phase)
			}
			Expect(phases).To(Equal([]dynamo.Phase{
				dynamo.PhaseMoving, dynamo.PhaseMoving, dynamo.PhaseMoving,
				dynamo.PhaseStopped, dynamo.PhaseStopped, dynamo.PhaseStopped,
			}))
		})

		Context("when the screen is out of reach", func() {
			BeforeEach(func() {
				opts.Boundary = 1e6
			})

			It("retires and prunes at max age", func() {
				id, _ := m.Spawn(r3.Vec{})
				var retired []dynamo.ParticleID
				for i := 0; i < opts.MaxAge; i++ {
					rep, err := m.Tick(nil, 1)
					Expect(err).NotTo(HaveOccurred())
					retired = append(retired, rep.Retired...)
				}
				Expect(retired).To(ConsistOf(id))
				Expect(m.Len()).To(BeZero())
			})
		})

		It("never retires stopped particles on its own", func() {
			m.Spawn(r3.Vec{X: 3})
			for i := 0; i < 50; i++ {
				m.Tick(nil, 1)
			}
			Expect(m.Counts()).To(Equal(Counts{Stopped: 1}))
		})

		It("leaves retirement of stopped particles to caller policy", func() {
			m.Spawn(r3.Vec{X: 3})
			m.Tick(nil, 1)
			n := m.RetireWhere(func(p dynamo.Particle) bool { return p.Phase == dynamo.PhaseStopped })
			Expect(n).To(Equal(1))
			Expect(m.Prune()).To(HaveLen(1))
		})
	})

	Describe("SpawnOnSchedule", func() {
		It("keeps jitter in the plane orthogonal to travel", func() {
			for i := 0; i < 20; i++ {
				_, ok, err := m.SpawnOnSchedule(i*3, 3)
				Expect(err).NotTo(HaveOccurred())
				Expect(ok).To(BeTrue())
			}
			for _, p := range m.Particles() {
				Expect(p.Position.X).To(BeZero())
				Expect(p.Position.Y).To(BeNumerically("~", 0, 0.25))
				Expect(p.Position.Z).To(BeNumerically("~", 0, 0.25))
			}
		})
	})
})
