package recommend

import (
	"math"
	"testing"

	"github.com/okian/questrec/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestCosineSimilarity(t *testing.T) {
	Convey("Given a pool with parallel, orthogonal and zero rows", t, func() {
		m, _, err := BuildMatrix([]model.Answer{
			answer(1, 1, 1, 2), answer(1, 1, 2, 4),
			answer(2, 2, 1, 1), answer(2, 2, 2, 2),
			answer(3, 3, 1, 4), answer(3, 3, 2, -2),
			answer(4, 4, 1, 0), answer(4, 4, 2, 0),
			answer(5, 5, 1, 3), answer(5, 5, 2, 1),
		})
		So(err, ShouldBeNil)
		s := CosineSimilarity(m)

		Convey("Then the index follows the matrix rows", func() {
			So(s.Index(), ShouldResemble, m.Rows())
			So(s.Len(), ShouldEqual, 5)
			So(s.Contains(3), ShouldBeTrue)
			So(s.Contains(42), ShouldBeFalse)
		})

		Convey("Then scaled vectors are fully similar", func() {
			v, ok := s.At(1, 2)
			So(ok, ShouldBeTrue)
			So(v, ShouldAlmostEqual, 1, 1e-12)
		})

		Convey("Then orthogonal vectors have zero similarity", func() {
			v, _ := s.At(1, 3)
			So(v, ShouldAlmostEqual, 0, 1e-12)
		})

		Convey("Then a zero row is zero everywhere, diagonal included", func() {
			for _, id := range s.Index() {
				v, _ := s.At(4, id)
				So(v, ShouldEqual, 0)
			}
		})

		Convey("Then the matrix is symmetric and bounded", func() {
			for _, a := range s.Index() {
				for _, b := range s.Index() {
					ab, _ := s.At(a, b)
					ba, _ := s.At(b, a)
					So(ab, ShouldEqual, ba)
					So(math.Abs(ab), ShouldBeLessThanOrEqualTo, 1)
				}
			}
		})

		Convey("Then nonzero rows are self-similar", func() {
			v, _ := s.At(5, 5)
			So(v, ShouldAlmostEqual, 1, 1e-12)
		})

		Convey("Then unknown pairs are reported", func() {
			_, ok := s.At(1, 42)
			So(ok, ShouldBeFalse)
		})
	})

	Convey("Given values that round past one", t, func() {
		So(clamp(1.0000000000000002), ShouldEqual, 1)
		So(clamp(-1.0000000000000002), ShouldEqual, -1)
		So(clamp(0.5), ShouldEqual, 0.5)
	})
}
