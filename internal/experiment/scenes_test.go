package experiment

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/crtsim/internal/config"
)

func meanLanding(hits []Hit, after int) (float64, int) {
	var sum float64
	n := 0
	for _, h := range hits {
		if h.Tick > after {
			sum += h.Position.Y
			n++
		}
	}
	if n == 0 {
		return 0, 0
	}
	return sum / float64(n), n
}

var _ = Describe("Scenes", func() {
	var (
		cfg *config.Config
		res *Result
	)

	JustBeforeEach(func() {
		exp, err := New(cfg)
		Expect(err).NotTo(HaveOccurred())
		res, err = exp.Run(context.Background())
		Expect(err).NotTo(HaveOccurred())
	})

	Context("with charged deflection plates", func() {
		BeforeEach(func() {
			cfg = config.GetPreset("deflect")
		})

		It("bends the beam away from the negative plate", func() {
			Expect(res.Hits).NotTo(BeEmpty())
			Expect(res.Metrics["mean_deflection"]).To(BeNumerically(">", 0.3))
			Expect(res.Metrics["spot_size"]).To(BeNumerically("<", 0.1))
		})

		It("keeps every particle clear of the plates", func() {
			Expect(res.Faults).To(BeEmpty())
		})
	})

	Context("with the PID controller", func() {
		BeforeEach(func() {
			cfg = config.GetPreset("steer")
		})

		It("walks the spot toward the target", func() {
			mean, n := meanLanding(res.Hits, 1500)
			Expect(n).To(BeNumerically(">", 50))
			Expect(mean).To(BeNumerically("~", cfg.Steering.Target, 0.15))
		})

		It("reports the controller it ran", func() {
			Expect(res.Controller).To(Equal("pid"))
		})
	})

	Context("with a single electron released at rest", func() {
		BeforeEach(func() {
			cfg = config.GetPreset("single")
		})

		It("samples every tick", func() {
			Expect(res.Frames).To(HaveLen(cfg.Ticks))
			Expect(res.Frames[0].Particles).To(HaveLen(1))
		})

		It("retires the particle at its maximum age", func() {
			last := res.Frames[len(res.Frames)-1]
			Expect(last.Particles).To(BeEmpty())
		})
	})
})

var _ = Describe("Registry", func() {
	reg := NewRegistry()

	It("lists the integrators", func() {
		Expect(reg.ListIntegrators()).To(ContainElements("euler", "symplectic"))
	})

	It("lists the controllers", func() {
		Expect(reg.ListControllers()).To(ConsistOf("none", "pid", "sweep"))
	})

	It("rejects unknown controllers", func() {
		_, err := reg.GetController(config.SteeringConfig{Controller: "lqr"})
		Expect(err).To(HaveOccurred())
	})
})
