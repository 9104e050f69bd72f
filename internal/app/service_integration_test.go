package service_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/questrec/internal/adapters/repository"
	service "github.com/okian/questrec/internal/app"
	"github.com/okian/questrec/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

// cohortStore seeds subjects 1..n, each with a first evaluation and a
// follow-up, on a four question scale. Subject i's follow-up drops on
// question (i%4)+1.
func cohortStore(n int) *repository.MemStore {
	ctx := context.Background()
	s := repository.NewMemStore()
	for q := 1; q <= 4; q++ {
		mustDo(s.AddQuestion(ctx, model.Question{
			ID: model.QuestionID(q), Scale: 1, DisplayOrder: q, Content: fmt.Sprintf("question %d", q),
		}))
	}

	var id model.EvaluationID = 1
	for subj := 1; subj <= n; subj++ {
		first, next := id, id+model.EvaluationID(n)
		mustDo(s.AddEvaluation(ctx, model.Evaluation{ID: first, Subject: model.SubjectID(subj), Scale: 1}))
		mustDo(s.AddEvaluation(ctx, model.Evaluation{ID: next, Subject: model.SubjectID(subj), Scale: 1}))
		for q := 1; q <= 4; q++ {
			mustDo(s.AddAnswer(ctx, first, model.QuestionID(q), float64(2+(subj+q)%3)))
			score := 4.0
			if q == subj%4+1 {
				score = 0
			}
			mustDo(s.AddAnswer(ctx, next, model.QuestionID(q), score))
		}
		id++
	}
	return s
}

func TestServiceIntegration(t *testing.T) {
	Convey("Given a service over a seeded cohort", t, func() {
		svc := service.New(
			service.WithStore(cohortStore(12)),
			service.WithNeighborCount(5),
		)
		defer svc.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		So(svc.Start(ctx), ShouldBeNil)

		Convey("When recommending for a first evaluation", func() {
			rec, err := svc.Recommend(ctx, 1, 1, 1)

			Convey("Then every recommendation is a known question", func() {
				So(err, ShouldBeNil)
				So(rec.NoData, ShouldBeFalse)
				So(rec.Stats.Neighbors, ShouldEqual, 4)
				for _, q := range rec.Questions {
					So(int64(q.QuestionID), ShouldBeBetweenOrEqual, int64(1), int64(4))
				}
			})

			Convey("And repeated runs return the same ranking", func() {
				again, err := svc.Recommend(ctx, 1, 1, 1)
				So(err, ShouldBeNil)
				So(again.Questions, ShouldResemble, rec.Questions)
			})
		})

		Convey("When recommending for a subject's latest evaluation", func() {
			// Evaluation 13 is subject 1's follow-up; the pool holds every
			// other subject, whose follow-ups have no successor.
			rec, err := svc.Recommend(ctx, 13, 1, 1)
			So(err, ShouldBeNil)
			So(rec.Stats.Neighbors, ShouldEqual, 4)
		})
	})
}

func TestServiceConcurrency(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc := service.New(service.WithStore(cohortStore(20)))
		defer svc.Stop()
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)

		Convey("When many goroutines request recommendations", func() {
			const workers = 16
			var wg sync.WaitGroup
			errs := make(chan error, workers)
			for i := 0; i < workers; i++ {
				wg.Add(1)
				go func(subj int) {
					defer wg.Done()
					_, err := svc.Recommend(ctx, model.EvaluationID(subj), model.SubjectID(subj), 1)
					errs <- err
				}(i%20 + 1)
			}
			wg.Wait()
			close(errs)

			Convey("Then all requests succeed", func() {
				for err := range errs {
					So(err, ShouldBeNil)
				}
			})
		})
	})
}
