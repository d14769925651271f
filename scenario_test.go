package carealloc_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/viant/carealloc"
	"github.com/viant/carealloc/internal/clock"
	"github.com/viant/carealloc/model"
	"github.com/viant/carealloc/service/allocator"
)

var _ = Describe("Allocation engine", func() {
	var (
		ctx    context.Context
		manual *clock.Manual
		config *carealloc.Config
		rt     *carealloc.Runtime
	)

	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	BeforeEach(func() {
		ctx = context.Background()
		manual = clock.NewManual(start)
		previous := clock.NowFunc
		clock.NowFunc = manual.Now
		DeferCleanup(func() { clock.NowFunc = previous })
		config = carealloc.DefaultConfig()
	})

	JustBeforeEach(func() {
		srv, err := carealloc.New(ctx, carealloc.WithConfig(config))
		Expect(err).NotTo(HaveOccurred())
		rt = srv.Runtime()
		DeferCleanup(func() { _ = rt.Shutdown(context.Background()) })
		_, err = rt.Seed(ctx)
		Expect(err).NotTo(HaveOccurred())
	})

	labelsOf := func() []string {
		resources, err := rt.Resources(ctx)
		Expect(err).NotTo(HaveOccurred())
		var ret []string
		for _, resource := range resources {
			ret = append(ret, resource.Label)
		}
		return ret
	}

	Context("with the default inventory", func() {
		It("seeds three beds and two ventilators once", func() {
			Expect(labelsOf()).To(Equal([]string{"ICU_BED-1", "ICU_BED-2", "ICU_BED-3", "VENTILATOR-4", "VENTILATOR-5"}))
			seeded, err := rt.Seed(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(seeded).To(BeZero())
		})

		It("does nothing when the queue is empty", func() {
			cycle, err := rt.RunCycle(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(cycle.Idle()).To(BeTrue())
		})

		It("serves the most urgent requests first and leaves the rest queued", func() {
			names := []string{"P5", "P4", "P3", "P2", "P1", "P1-late"}
			priorities := []int{5, 4, 3, 2, 1, 1}
			for i, name := range names {
				_, err := rt.Submit(ctx, name, priorities[i], 60)
				Expect(err).NotTo(HaveOccurred())
				manual.Advance(time.Second)
			}
			cycle, err := rt.RunCycle(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(cycle.Matches).To(HaveLen(5))
			var served []string
			for _, match := range cycle.Matches {
				served = append(served, match.Request.Name)
			}
			Expect(served).To(Equal([]string{"P1", "P1-late", "P2", "P3", "P4"}))
			requests, err := rt.Requests(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(requests[0].Name).To(Equal("P5"))
			Expect(requests[0].Status).To(Equal(model.RequestStatusQueued))
		})
	})

	Context("with a single bed", func() {
		BeforeEach(func() {
			config.Inventory = []allocator.Stock{{Type: model.ResourceTypeICUBed, Count: 1}}
		})

		It("lets a long waiting low priority request overtake a fresh urgent one", func() {
			_, err := rt.Submit(ctx, "waiting", 5, 60)
			Expect(err).NotTo(HaveOccurred())
			manual.Advance(239 * time.Second)
			_, err = rt.Submit(ctx, "fresh", 2, 60)
			Expect(err).NotTo(HaveOccurred())
			manual.Advance(time.Second)

			cycle, err := rt.RunCycle(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(cycle.Matches).To(HaveLen(1))
			Expect(cycle.Matches[0].Request.Name).To(Equal("waiting"))
			Expect(cycle.Matches[0].EffectivePriority).To(Equal(1))
		})

		It("reallocates a released bed over HTTP", func() {
			server := httptest.NewServer(rt.Handler())
			DeferCleanup(server.Close)

			post := func(path, body string) (int, map[string]interface{}) {
				response, err := http.Post(server.URL+path, "application/json", strings.NewReader(body))
				Expect(err).NotTo(HaveOccurred())
				defer response.Body.Close()
				payload := map[string]interface{}{}
				Expect(json.NewDecoder(response.Body).Decode(&payload)).To(Succeed())
				return response.StatusCode, payload
			}

			status, _ := post("/api/request", `{"name":"A","priority":3}`)
			Expect(status).To(Equal(http.StatusCreated))
			manual.Advance(time.Second)
			_, err := rt.RunCycle(ctx)
			Expect(err).NotTo(HaveOccurred())

			status, _ = post("/api/request", `{"name":"B","priority":1}`)
			Expect(status).To(Equal(http.StatusCreated))
			cycle, err := rt.RunCycle(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(cycle.Idle()).To(BeTrue())

			views, err := rt.ActiveAllocations(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(views).To(HaveLen(1))
			Expect(views[0].Name).To(Equal("A"))

			status, payload := post("/api/release", `{"allocation_id":`+jsonInt(views[0].ID)+`}`)
			Expect(status).To(Equal(http.StatusOK))
			Expect(payload).To(HaveKeyWithValue("status", "released"))
			status, _ = post("/api/release", `{"allocation_id":`+jsonInt(views[0].ID)+`}`)
			Expect(status).To(Equal(http.StatusConflict))

			cycle, err = rt.RunCycle(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(cycle.Matches).To(HaveLen(1))
			Expect(cycle.Matches[0].Request.Name).To(Equal("B"))
			Expect(cycle.Matches[0].Resource.Label).To(Equal("ICU_BED-1"))
		})
	})

	Context("with the scheduler running", func() {
		BeforeEach(func() {
			config.Scheduler.Interval = 10 * time.Millisecond
		})

		It("allocates without explicit cycles and stops on shutdown", func() {
			Expect(rt.Start(ctx)).To(Succeed())
			for _, name := range []string{"A", "B"} {
				_, err := rt.Submit(ctx, name, 2, 30)
				Expect(err).NotTo(HaveOccurred())
			}
			Eventually(func() int {
				counts, err := rt.Occupancy(ctx)
				Expect(err).NotTo(HaveOccurred())
				return counts.Allocated
			}).WithTimeout(time.Second).WithPolling(5 * time.Millisecond).Should(Equal(2))

			Expect(rt.Shutdown(ctx)).To(Succeed())
			Expect(rt.Scheduler().Running()).To(BeFalse())
			Expect(rt.Scheduler().Failures()).To(BeZero())
		})
	})
})

func jsonInt(value int) string {
	data, _ := json.Marshal(value)
	return string(data)
}
