/*
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package autoscaler_test

import (
	"context"
	"fmt"
	"time"

	clock "k8s.io/utils/clock/testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	v1 "github.com/ecsautoscaler/ecs-autoscaler/pkg/apis/v1"
	"github.com/ecsautoscaler/ecs-autoscaler/pkg/autoscaler"
	autoscalingerrors "github.com/ecsautoscaler/ecs-autoscaler/pkg/errors"
	"github.com/ecsautoscaler/ecs-autoscaler/pkg/providers/cooldown"
)

type failingStore struct {
	cooldown.Store
	getErr, putErr error
}

func (f failingStore) Get(ctx context.Context, key v1.ServiceKey) (cooldown.Lookup, error) {
	if f.getErr != nil {
		return cooldown.Lookup{}, f.getErr
	}
	return f.Store.Get(ctx, key)
}

func (f failingStore) Put(ctx context.Context, key v1.ServiceKey, t time.Time) error {
	if f.putErr != nil {
		return f.putErr
	}
	return f.Store.Put(ctx, key, t)
}

var _ = Describe("Governor", func() {
	const delay = 300 * time.Second
	var fakeClock *clock.FakeClock
	var store *cooldown.MemoryStore
	var governor *autoscaler.Governor
	var applied int
	key := v1.ServiceKey{Cluster: "production", Service: "checkout"}
	apply := func(context.Context) error {
		applied++
		return nil
	}

	BeforeEach(func() {
		fakeClock = clock.NewFakeClock(time.Date(2024, time.January, 1, 12, 0, 0, 0, time.UTC))
		store = cooldown.NewMemoryStore()
		governor = autoscaler.NewGovernor(fakeClock, store)
		applied = 0
	})

	It("should start the cooldown without applying when there is no record", func() {
		state, err := governor.Gate(ctx, key, delay, apply)
		Expect(err).ToNot(HaveOccurred())
		Expect(state).To(Equal(autoscaler.NoRecord))
		Expect(applied).To(Equal(0))
		lookup, err := store.Get(ctx, key)
		Expect(err).ToNot(HaveOccurred())
		Expect(lookup).To(Equal(cooldown.Found(fakeClock.Now())))
	})
	It("should not apply or touch the record within the cooldown", func() {
		recorded := fakeClock.Now()
		Expect(store.Put(ctx, key, recorded)).To(Succeed())
		fakeClock.Step(delay - time.Second)

		state, err := governor.Gate(ctx, key, delay, apply)
		Expect(err).ToNot(HaveOccurred())
		Expect(state).To(Equal(autoscaler.WithinCooldown))
		Expect(applied).To(Equal(0))
		lookup, err := store.Get(ctx, key)
		Expect(err).ToNot(HaveOccurred())
		Expect(lookup.LastScaleDown).To(Equal(recorded))
	})
	It("should apply and restart the cooldown once the delay has fully elapsed", func() {
		Expect(store.Put(ctx, key, fakeClock.Now())).To(Succeed())
		fakeClock.Step(delay)

		state, err := governor.Gate(ctx, key, delay, apply)
		Expect(err).ToNot(HaveOccurred())
		Expect(state).To(Equal(autoscaler.CooldownExpired))
		Expect(applied).To(Equal(1))
		lookup, err := store.Get(ctx, key)
		Expect(err).ToNot(HaveOccurred())
		Expect(lookup.LastScaleDown).To(Equal(fakeClock.Now()))
	})
	It("should measure elapsed time in whole seconds", func() {
		Expect(store.Put(ctx, key, fakeClock.Now().Add(900*time.Millisecond))).To(Succeed())
		fakeClock.Step(delay)
		state, err := governor.State(ctx, key, delay)
		Expect(err).ToNot(HaveOccurred())
		Expect(state).To(Equal(autoscaler.CooldownExpired))
	})
	It("should treat a zero delay as always expired", func() {
		Expect(store.Put(ctx, key, fakeClock.Now())).To(Succeed())
		state, err := governor.State(ctx, key, 0)
		Expect(err).ToNot(HaveOccurred())
		Expect(state).To(Equal(autoscaler.CooldownExpired))
	})
	It("should apply at most once across two cycles starting without a record", func() {
		for range 2 {
			_, err := governor.Gate(ctx, key, delay, apply)
			Expect(err).ToNot(HaveOccurred())
		}
		Expect(applied).To(Equal(0))
	})
	It("should not restart the cooldown when apply fails", func() {
		recorded := fakeClock.Now()
		Expect(store.Put(ctx, key, recorded)).To(Succeed())
		fakeClock.Step(delay)

		_, err := governor.Gate(ctx, key, delay, func(context.Context) error { return fmt.Errorf("update failed") })
		Expect(err).To(MatchError(ContainSubstring("applying scale down, update failed")))
		lookup, err := store.Get(ctx, key)
		Expect(err).ToNot(HaveOccurred())
		Expect(lookup.LastScaleDown).To(Equal(recorded))
	})
	It("should report store read failures as dependency errors", func() {
		governor = autoscaler.NewGovernor(fakeClock, failingStore{Store: store, getErr: fmt.Errorf("access denied")})
		_, err := governor.Gate(ctx, key, delay, apply)
		Expect(autoscalingerrors.IsDependencyError(err)).To(BeTrue())
		Expect(err).To(MatchError(ContainSubstring(autoscaler.CooldownStoreDependency)))
		Expect(applied).To(Equal(0))
	})
	It("should report store write failures as dependency errors", func() {
		governor = autoscaler.NewGovernor(fakeClock, failingStore{Store: store, putErr: fmt.Errorf("slow down")})
		state, err := governor.Gate(ctx, key, delay, apply)
		Expect(state).To(Equal(autoscaler.NoRecord))
		Expect(autoscalingerrors.IsDependencyError(err)).To(BeTrue())
	})
})
