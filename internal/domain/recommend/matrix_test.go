package recommend

import (
	"errors"
	"testing"

	"github.com/okian/questrec/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func answer(eval model.EvaluationID, subject model.SubjectID, q model.QuestionID, score float64) model.Answer {
	return model.Answer{Evaluation: eval, Subject: subject, Question: q, Score: score}
}

func TestBuildMatrix(t *testing.T) {
	Convey("Given no answers", t, func() {
		m, owners, err := BuildMatrix(nil)

		Convey("Then it reports empty input", func() {
			So(errors.Is(err, ErrEmptyInput), ShouldBeTrue)
			So(m, ShouldBeNil)
			So(owners, ShouldBeNil)
		})
	})

	Convey("Given answers with a missing cell", t, func() {
		m, owners, err := BuildMatrix([]model.Answer{
			answer(20, 2, 3, 1),
			answer(10, 1, 1, 2),
			answer(10, 1, 3, 4),
			answer(20, 2, 1, 5),
			answer(30, 3, 1, 3),
		})
		So(err, ShouldBeNil)

		Convey("Then rows and columns are sorted ascending", func() {
			So(m.Rows(), ShouldResemble, []model.EvaluationID{10, 20, 30})
			So(m.Columns(), ShouldResemble, []model.QuestionID{1, 3})
			So(m.Len(), ShouldEqual, 3)
		})

		Convey("Then every evaluation keeps its owner", func() {
			So(owners, ShouldResemble, Owners{10: 1, 20: 2, 30: 3})
		})

		Convey("Then absent cells read as zero", func() {
			So(m.at(30, 3), ShouldEqual, 0)
			So(m.at(20, 3), ShouldEqual, 1)
			So(m.at(99, 1), ShouldEqual, 0)

			row, ok := m.Row(30)
			So(ok, ShouldBeTrue)
			So(row, ShouldResemble, Vector{1: 3, 3: 0})
		})

		Convey("Then unknown rows are reported", func() {
			_, ok := m.Row(99)
			So(ok, ShouldBeFalse)
		})

		Convey("Then column means include zero-filled cells", func() {
			means := m.ColumnMeans()
			So(means[1], ShouldAlmostEqual, 10.0/3, 1e-12)
			So(means[3], ShouldAlmostEqual, 5.0/3, 1e-12)
		})
	})

	Convey("Given the same cell twice", t, func() {
		m, _, err := BuildMatrix([]model.Answer{
			answer(10, 1, 1, 2),
			answer(10, 1, 1, 4),
		})
		So(err, ShouldBeNil)

		Convey("Then the values are averaged", func() {
			So(m.Len(), ShouldEqual, 1)
			So(m.at(10, 1), ShouldEqual, 3)
		})
	})
}
