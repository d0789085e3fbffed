//go:build integration

package integration

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Zhao-yangyang/pomodoro-bar/internal/clock"
	"github.com/Zhao-yangyang/pomodoro-bar/internal/domain"
	"github.com/Zhao-yangyang/pomodoro-bar/internal/usecase"
)

var _ = Describe("Timer Cycle", func() {
	var (
		ctx  context.Context
		core *usecase.Orchestrator
	)

	basePrefs := domain.Preferences{
		FocusMinutes:      25,
		ShortBreakMinutes: 5,
		LongBreakMinutes:  15,
		Cycles:            4,
		AutoStart:         false,
	}

	BeforeEach(func() {
		ctx = context.Background()
	})

	AfterEach(func() {
		if core != nil {
			core.Close()
			core = nil
		}
	})

	Describe("Skipping through focus blocks", func() {
		Context("with a four-block cycle and no auto-start", func() {
			It("should produce three short breaks then a long break", func() {
				core = usecase.New(ctx, usecase.Options{Prefs: basePrefs})

				var breaks []domain.Phase
				for i := 0; i < 4; i++ {
					Expect(core.Skip(ctx)).To(Succeed())
					state := core.State()
					breaks = append(breaks, state.Phase)
					Expect(state.IsRunning).To(BeFalse(), "transitions should leave the timer paused")

					Expect(core.Skip(ctx)).To(Succeed())
					Expect(core.State().Phase).To(Equal(domain.PhaseFocus))
				}

				Expect(breaks).To(Equal([]domain.Phase{
					domain.PhaseShortBreak,
					domain.PhaseShortBreak,
					domain.PhaseShortBreak,
					domain.PhaseLongBreak,
				}))
				Expect(core.State().CompletedFocus).To(Equal(4))
			})

			It("should repeat the break pattern on the next round", func() {
				core = usecase.New(ctx, usecase.Options{Prefs: basePrefs})

				// First full round
				for i := 0; i < 8; i++ {
					Expect(core.Skip(ctx)).To(Succeed())
				}
				Expect(core.State().CompletedFocus).To(Equal(4))

				// Fifth focus block earns a short break again
				Expect(core.Skip(ctx)).To(Succeed())
				Expect(core.State().Phase).To(Equal(domain.PhaseShortBreak))
				Expect(core.State().CompletedFocus).To(Equal(5))
			})
		})

		Context("with a single-block cycle", func() {
			It("should go straight to a long break after every focus block", func() {
				p := basePrefs
				p.Cycles = 1
				core = usecase.New(ctx, usecase.Options{Prefs: p})

				Expect(core.Skip(ctx)).To(Succeed())
				Expect(core.State().Phase).To(Equal(domain.PhaseLongBreak))

				Expect(core.Skip(ctx)).To(Succeed())
				Expect(core.Skip(ctx)).To(Succeed())
				Expect(core.State().Phase).To(Equal(domain.PhaseLongBreak))
				Expect(core.State().CompletedFocus).To(Equal(2))
			})
		})

		Context("with auto-start enabled", func() {
			It("should keep the timer running across transitions", func() {
				p := basePrefs
				p.AutoStart = true
				core = usecase.New(ctx, usecase.Options{Prefs: p})

				Expect(core.Skip(ctx)).To(Succeed())
				state := core.State()
				Expect(state.Phase).To(Equal(domain.PhaseShortBreak))
				Expect(state.IsRunning).To(BeTrue(), "break should begin without an explicit start")
			})
		})

		Context("while breaks are skipped", func() {
			It("should never count a break toward completed focus blocks", func() {
				core = usecase.New(ctx, usecase.Options{Prefs: basePrefs})

				Expect(core.Skip(ctx)).To(Succeed()) // focus -> short break
				Expect(core.Skip(ctx)).To(Succeed()) // short break -> focus
				Expect(core.Skip(ctx)).To(Succeed()) // focus -> short break
				Expect(core.Skip(ctx)).To(Succeed()) // short break -> focus

				Expect(core.State().CompletedFocus).To(Equal(2))
			})
		})
	})

	Describe("Editing preferences mid-session", func() {
		Context("while the timer is paused", func() {
			It("should refit the countdown to the new phase duration", func() {
				core = usecase.New(ctx, usecase.Options{Prefs: basePrefs})

				p := basePrefs
				p.FocusMinutes = 50
				Expect(core.SetPrefs(ctx, p)).To(Succeed())

				state := core.State()
				Expect(state.RemainingMs).To(Equal(clock.DurationForPhase(domain.PhaseFocus, p)))
			})
		})

		Context("while the timer is running", func() {
			It("should leave the in-flight countdown untouched", func() {
				core = usecase.New(ctx, usecase.Options{Prefs: basePrefs})
				Expect(core.Start(ctx)).To(Succeed())

				before := core.State().RemainingMs

				p := basePrefs
				p.FocusMinutes = 50
				Expect(core.SetPrefs(ctx, p)).To(Succeed())

				state := core.State()
				Expect(state.Prefs.FocusMinutes).To(Equal(50))
				Expect(state.RemainingMs).To(BeNumerically("<=", before))
				Expect(state.RemainingMs).To(BeNumerically(">", before-2000))
			})
		})
	})

	Describe("Reset", func() {
		It("should restore the current phase in full without changing it", func() {
			core = usecase.New(ctx, usecase.Options{Prefs: basePrefs})

			Expect(core.Skip(ctx)).To(Succeed()) // enter the short break
			Expect(core.Start(ctx)).To(Succeed())
			Expect(core.Reset(ctx)).To(Succeed())

			state := core.State()
			Expect(state.Phase).To(Equal(domain.PhaseShortBreak))
			Expect(state.IsRunning).To(BeFalse())
			Expect(state.RemainingMs).To(Equal(clock.DurationForPhase(domain.PhaseShortBreak, basePrefs)))
		})
	})
})
