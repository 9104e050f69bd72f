package service_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/questrec/internal/adapters/repository"
	service "github.com/okian/questrec/internal/app"
	"github.com/okian/questrec/internal/domain/model"
	"github.com/okian/questrec/internal/domain/recommend"
	"github.com/okian/questrec/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

// twinStore seeds target 10 (subject 1) and its twin 11 (subject 2) on two
// questions. When later is set, subject 2 returns with evaluation 12.
func twinStore(later bool) *repository.MemStore {
	ctx := context.Background()
	s := repository.NewMemStore()
	mustDo(s.AddQuestion(ctx, model.Question{ID: 1, Scale: 1, DisplayOrder: 1, Content: "Q1"}))
	mustDo(s.AddQuestion(ctx, model.Question{ID: 2, Scale: 1, DisplayOrder: 2, Content: "Q2"}))
	mustDo(s.AddEvaluation(ctx, model.Evaluation{ID: 10, Subject: 1, Scale: 1}))
	mustDo(s.AddEvaluation(ctx, model.Evaluation{ID: 11, Subject: 2, Scale: 1}))
	mustDo(s.AddAnswer(ctx, 10, 1, 2))
	mustDo(s.AddAnswer(ctx, 10, 2, 4))
	mustDo(s.AddAnswer(ctx, 11, 1, 2))
	mustDo(s.AddAnswer(ctx, 11, 2, 4))
	if later {
		mustDo(s.AddEvaluation(ctx, model.Evaluation{ID: 12, Subject: 2, Scale: 1}))
		mustDo(s.AddAnswer(ctx, 12, 1, 5))
		mustDo(s.AddAnswer(ctx, 12, 2, 1))
	}
	return s
}

func mustDo(err error) {
	if err != nil {
		panic(err)
	}
}

// slowStore blocks every lookup until the context ends.
type slowStore struct {
	*repository.MemStore
}

func (s slowStore) FindEvaluation(ctx context.Context, _ model.SubjectID, _ model.EvaluationID, _ model.ScaleID) (model.Evaluation, bool, error) {
	<-ctx.Done()
	return model.Evaluation{}, false, ctx.Err()
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("Then it should have sensible defaults", func() {
			So(svc, ShouldNotBeNil)
			stats := svc.GetStats()
			So(stats["neighborCount"], ShouldEqual, recommend.DefaultNeighborCount)
			So(stats["requestTimeoutMs"], ShouldEqual, int64(10_000))
		})
	})

	Convey("Given a new service with custom options", t, func() {
		svc := service.New(
			service.WithNeighborCount(8),
			service.WithPoolWarnSize(100),
			service.WithRequestTimeout(time.Second),
			service.WithStatsInterval(time.Minute),
		)

		Convey("Then the options are applied", func() {
			stats := svc.GetStats()
			So(stats["neighborCount"], ShouldEqual, 8)
			So(stats["poolWarnSize"], ShouldEqual, 100)
			So(stats["requestTimeoutMs"], ShouldEqual, int64(1000))
		})
	})
}

func TestService_Start(t *testing.T) {
	Convey("Given a service without a store", t, func() {
		svc := service.New()

		Convey("When starting the service", func() {
			err := svc.Start(context.Background())

			Convey("Then it should refuse to start", func() {
				So(errors.Is(err, service.ErrNoStore), ShouldBeTrue)
			})
		})
	})

	Convey("Given a service with a store", t, func() {
		svc := service.New(service.WithStore(twinStore(true)))
		defer svc.Stop()

		Convey("When starting the service", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			err := svc.Start(ctx)

			Convey("Then it should start successfully", func() {
				So(err, ShouldBeNil)
			})

			Convey("And it should report the store size", func() {
				stats := svc.GetStats()
				So(stats["started"], ShouldEqual, true)
				So(stats["totalEvaluations"], ShouldEqual, 3)
			})

			Convey("And starting again is a no-op", func() {
				So(svc.Start(ctx), ShouldBeNil)
			})
		})
	})
}

func TestService_Stop(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc := service.New(service.WithStore(twinStore(false)))
		err := svc.Start(context.Background())
		So(err, ShouldBeNil)

		Convey("When stopping the service", func() {
			svc.Stop()

			Convey("Then it should be marked as stopped", func() {
				stats := svc.GetStats()
				So(stats["started"], ShouldEqual, false)
			})

			Convey("And stopping twice is safe", func() {
				svc.Stop()
			})

			Convey("And recommendations are refused", func() {
				_, err := svc.Recommend(context.Background(), 10, 1, 1)
				So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			})
		})
	})
}

func TestService_Recommend(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx := context.Background()

		Convey("When a peer later scored lower on Q2", func() {
			svc := service.New(service.WithStore(twinStore(true)))
			So(svc.Start(ctx), ShouldBeNil)
			defer svc.Stop()

			rec, err := svc.Recommend(ctx, 10, 1, 1)

			Convey("Then Q2 is recommended", func() {
				So(err, ShouldBeNil)
				So(rec.NoData, ShouldBeFalse)
				So(len(rec.Questions), ShouldEqual, 1)
				So(rec.Questions[0].QuestionID, ShouldEqual, model.QuestionID(2))
				So(rec.Questions[0].Content, ShouldEqual, "Q2")
			})
		})

		Convey("When no peer has a later evaluation", func() {
			svc := service.New(service.WithStore(twinStore(false)))
			So(svc.Start(ctx), ShouldBeNil)
			defer svc.Stop()

			rec, err := svc.Recommend(ctx, 10, 1, 1)

			Convey("Then there is no data", func() {
				So(err, ShouldBeNil)
				So(rec.NoData, ShouldBeTrue)
			})
		})

		Convey("When the evaluation does not exist", func() {
			svc := service.New(service.WithStore(twinStore(true)))
			So(svc.Start(ctx), ShouldBeNil)
			defer svc.Stop()

			_, err := svc.Recommend(ctx, 99, 1, 1)

			Convey("Then it is not found", func() {
				So(errors.Is(err, recommend.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When the store outlives the request timeout", func() {
			svc := service.New(
				service.WithStore(slowStore{twinStore(true)}),
				service.WithRequestTimeout(20*time.Millisecond),
			)
			So(svc.Start(ctx), ShouldBeNil)
			defer svc.Stop()

			_, err := svc.Recommend(ctx, 10, 1, 1)

			Convey("Then the whole run is cancelled", func() {
				So(errors.Is(err, context.DeadlineExceeded), ShouldBeTrue)
			})
		})

		Convey("When the caller cancels the request", func() {
			var logs bytes.Buffer
			So(logger.Init(logger.WithOutput(&logs)), ShouldBeNil)
			Reset(func() { _ = logger.Init() })

			svc := service.New(
				service.WithStore(slowStore{twinStore(true)}),
				service.WithLogger(logger.Get()),
			)
			So(svc.Start(ctx), ShouldBeNil)
			defer svc.Stop()

			reqCtx, cancel := context.WithCancel(ctx)
			cancel()
			_, err := svc.Recommend(reqCtx, 10, 1, 1)

			Convey("Then the cancellation is returned without an error log", func() {
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
				So(logs.String(), ShouldNotContainSubstring, "level=ERROR")
			})
		})
	})
}

func TestService_GetStats(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc := service.New()

		Convey("When getting stats before starting", func() {
			stats := svc.GetStats()

			Convey("Then it should return basic stats", func() {
				So(stats, ShouldNotBeNil)
				So(stats["started"], ShouldEqual, false)
				So(stats, ShouldNotContainKey, "totalEvaluations")
			})
		})
	})
}
