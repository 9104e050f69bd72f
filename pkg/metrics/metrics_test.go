package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with a private registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should register the pipeline metrics", func() {
				So(manager, ShouldNotBeNil)
				manager.recommendations.WithLabelValues(OutcomeRecommended).Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				names := make([]string, 0, len(families))
				for _, f := range families {
					names = append(names, f.GetName())
				}
				So(names, ShouldContain, "questrec_recommender_recommendations_total")
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("sub"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithMetricsEnabled(true),
				WithRefreshInterval(5*time.Second),
				WithCustomLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then the options should be applied", func() {
				So(manager.namespace, ShouldEqual, "test")
				So(manager.subsystem, ShouldEqual, "sub")
				So(manager.histogramBuckets, ShouldResemble, []float64{0.1, 0.5, 1.0})
				So(manager.RefreshInterval(), ShouldEqual, 5*time.Second)

				manager.storeBreakerState.Set(2)
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				So(len(families), ShouldBeGreaterThan, 0)
				var labelled bool
				for _, f := range families {
					if f.GetName() != "test_sub_store_breaker_state" {
						continue
					}
					for _, lp := range f.GetMetric()[0].GetLabel() {
						if lp.GetName() == "env" && lp.GetValue() == "test" {
							labelled = true
						}
					}
				}
				So(labelled, ShouldBeTrue)
			})
		})

		Convey("When creating with empty option values", func() {
			manager := NewManager(
				WithNamespace(""),
				WithSubsystem(""),
				WithRefreshInterval(0),
				WithPrometheusRegistry(prometheus.NewRegistry()),
			)

			Convey("Then defaults should be kept", func() {
				So(manager.namespace, ShouldEqual, "questrec")
				So(manager.subsystem, ShouldEqual, "recommender")
				So(manager.RefreshInterval(), ShouldEqual, defaultRefreshInterval)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics", t, func() {
		Convey("When recording recommendation outcomes", func() {
			before := testutil.ToFloat64(globalManager.recommendations.WithLabelValues(OutcomeNoData))
			RecordRecommendation(OutcomeNoData)
			RecordRecommendation(OutcomeNoData)

			Convey("Then the outcome counter increases", func() {
				after := testutil.ToFloat64(globalManager.recommendations.WithLabelValues(OutcomeNoData))
				So(after-before, ShouldEqual, 2)
			})
		})

		Convey("When recording store queries", func() {
			before := testutil.ToFloat64(globalManager.storeQueryErrors.WithLabelValues("questions"))
			RecordStoreQuery("questions", 1.5, nil)
			RecordStoreQuery("questions", 2.5, errors.New("boom"))

			Convey("Then only failures are counted as errors", func() {
				after := testutil.ToFloat64(globalManager.storeQueryErrors.WithLabelValues("questions"))
				So(after-before, ShouldEqual, 1)
			})
		})

		Convey("When updating gauges", func() {
			UpdateStoreBreakerState(1)
			UpdateStoreEvaluations(42)

			Convey("Then the gauges hold the last value", func() {
				So(testutil.ToFloat64(globalManager.storeBreakerState), ShouldEqual, 1)
				So(testutil.ToFloat64(globalManager.storeEvaluations), ShouldEqual, 42)
			})
		})

		Convey("When recording the remaining metrics", func() {
			Convey("Then nothing should panic", func() {
				So(func() {
					RecordRecommendLatency(12.5)
					RecordPipelineSizes(100, 4, 30, 3)
					RecordInconsistentQuestion()
					RecordHTTPRequest("recommend", "GET", "200")
					RecordHTTPRequestDuration("recommend", "GET", "200", 3.2)
					RecordRateLimited()
					RecordErrorByComponent("store", "timeout")
					RecordErrorByType("server_error", "high")
					RecordErrorByEndpoint("recommend", "GET", "not_found")
					RecordErrorLatency("http", "not_found", 1.0)
					UpdateSystemMemoryUsage(1024)
					UpdateSystemGoroutineCount(10)
					RecordSystemGCPauseTime(0.3)
				}, ShouldNotPanic)
			})
		})

		Convey("When reading the refresh interval", func() {
			So(RefreshInterval(), ShouldEqual, defaultRefreshInterval)
		})

		Convey("When reading the registry", func() {
			Convey("Then it should be the custom registry", func() {
				So(GetRegistry(), ShouldEqual, customRegistry)
			})
		})
	})
}

func TestConfigure(t *testing.T) {
	Convey("Given the global metrics", t, func() {
		prevRegistry, prevManager := customRegistry, globalManager
		Reset(func() {
			customRegistry, globalManager = prevRegistry, prevManager
		})

		Convey("When reconfiguring with a namespace and refresh interval", func() {
			Configure(
				WithNamespace("qr"),
				WithSubsystem("api"),
				WithRefreshInterval(3*time.Second),
			)
			RecordRateLimited()

			Convey("Then metrics move to a fresh registry under the new names", func() {
				So(GetRegistry(), ShouldNotEqual, prevRegistry)
				So(RefreshInterval(), ShouldEqual, 3*time.Second)

				families, err := GetRegistry().Gather()
				So(err, ShouldBeNil)
				names := make([]string, 0, len(families))
				for _, f := range families {
					names = append(names, f.GetName())
				}
				So(names, ShouldContain, "qr_api_http_rate_limited_total")
			})
		})

		Convey("When reconfiguring with metrics disabled", func() {
			Configure(WithMetricsEnabled(false))
			RecordRateLimited()
			RecordRecommendation(OutcomeRecommended)
			UpdateStoreEvaluations(7)

			Convey("Then nothing is recorded", func() {
				So(testutil.ToFloat64(globalManager.httpRateLimited), ShouldEqual, 0)
				So(testutil.ToFloat64(globalManager.recommendations.WithLabelValues(OutcomeRecommended)), ShouldEqual, 0)
				So(testutil.ToFloat64(globalManager.storeEvaluations), ShouldEqual, 0)
			})
		})
	})
}
