package orchestration

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/stretchr/testify/mock"

	"github.com/imamik/netfabric/internal/config"
	"github.com/imamik/netfabric/internal/provisioning"
	nftesting "github.com/imamik/netfabric/internal/testing"
)

var _ = Describe("Staged fabric lifecycle", func() {
	var (
		backend *nftesting.MockBackend
		cfg     *config.Config
		obs     *nftesting.RecordingObserver
	)

	BeforeEach(func() {
		backend = &nftesting.MockBackend{}
		obs = nftesting.NewRecordingObserver()
		cfg = nftesting.NewConfigBuilder().WithFeature(config.FeatureMonitoring, true).Build()
	})

	run := func(opts Options) *RunOutcome {
		opts.Observer = obs
		return New(opts).Run(context.Background(), StagesFromConfig(cfg), backend)
	}

	accept := func() {
		backend.On("Init", mock.Anything, mock.Anything).Return(nil)
		backend.On("Apply", mock.Anything, mock.Anything, mock.Anything).Return(nil)
		backend.On("Destroy", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	}

	Context("when the backbone apply fails and the site destroy fails too", func() {
		var (
			applyFailure   error
			destroyFailure error
			outcome        *RunOutcome
		)

		BeforeEach(func() {
			applyFailure = &provisioning.Error{Phase: provisioning.PhaseApply, Dir: "/stages/backbone", Message: "peering rejected", ExitCode: 1}
			destroyFailure = &provisioning.Error{Phase: provisioning.PhaseDestroy, Dir: "/stages/site", Message: "vpc has dependencies", ExitCode: 1}
			backend.On("Apply", mock.Anything, "/stages/backbone", mock.Anything).Return(applyFailure)
			backend.On("Destroy", mock.Anything, "/stages/site", mock.Anything).Return(destroyFailure)
			accept()

			outcome = run(Options{})
		})

		It("reports the apply failure as the run error", func() {
			Expect(outcome.Success).To(BeFalse())
			Expect(outcome.Err).To(BeIdenticalTo(applyFailure))
		})

		It("never touches the monitoring stage", func() {
			Expect(backend.CallsTo("Init")).NotTo(ContainElement("/stages/monitoring"))
			Expect(backend.CallsTo("Destroy")).NotTo(ContainElement("/stages/monitoring"))
		})

		It("still attempts to destroy the site stage and keeps its failure", func() {
			Expect(backend.CallsTo("Destroy")).To(Equal([]string{"/stages/site"}))
			Expect(outcome.Failures).To(HaveLen(1))
			Expect(outcome.Failures[0].Name).To(Equal("site"))
			Expect(errors.Is(outcome.Failures[0], destroyFailure)).To(BeTrue())
		})

		It("ends in the failed state", func() {
			Expect(outcome.State.String()).To(Equal("finished(failed)"))
		})
	})

	Context("when the run verifies before tearing down", func() {
		It("runs the verification while every stage is up", func() {
			accept()
			var appliedAtVerify, destroyedAtVerify []string

			outcome := run(Options{Verify: func(context.Context) error {
				appliedAtVerify = backend.CallsTo("Apply")
				destroyedAtVerify = backend.CallsTo("Destroy")
				return nil
			}})

			Expect(outcome.Success).To(BeTrue())
			Expect(appliedAtVerify).To(HaveLen(3))
			Expect(destroyedAtVerify).To(BeEmpty())
			Expect(outcome.Destroyed).To(Equal([]string{"monitoring", "backbone", "site"}))
		})
	})

	Context("when the infrastructure is preserved", func() {
		It("leaves every applied stage in place", func() {
			cfg = nftesting.NewConfigBuilder().WithSkipDestroy(true).Build()
			accept()

			outcome := run(Options{PreserveInfrastructure: cfg.SkipDestroy})

			Expect(outcome.Success).To(BeTrue())
			Expect(outcome.Applied).To(Equal([]string{"site", "backbone"}))
			Expect(backend.CallsTo("Destroy")).To(BeEmpty())
			Expect(obs.Messages()).To(ContainElement(ContainSubstring("Preserving 2 applied stage(s)")))
		})
	})
})
