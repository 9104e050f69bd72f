package repository

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

const seedFixture = `
questions:
  - {id: 1, scale: 1, order: 1, content: "Sleeps well", domain: "sleep", color: "#0af"}
  - {id: 2, scale: 1, order: 2, content: "Eats well", domain: "food", color: "#fa0"}
evaluations:
  - id: 10
    subject: 100
    scale: 1
    answers:
      - {question: 1, score: 2}
      - {question: 2, score: 4}
  - id: 11
    subject: 200
    scale: 1
    answers:
      - {question: 1, score: 5}
`

func writeSeed(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	return path
}

func TestLoadSeedFile(t *testing.T) {
	Convey("Given a seed fixture", t, func() {
		ctx := context.Background()
		s := NewMemStore()

		Convey("When it is loaded", func() {
			err := LoadSeedFile(ctx, s, writeSeed(t, seedFixture))
			So(err, ShouldBeNil)

			Convey("Then questions, evaluations and answers are present", func() {
				n, _ := s.Count(ctx)
				So(n, ShouldEqual, 2)

				qs, _ := s.Questions(ctx, 1)
				So(len(qs), ShouldEqual, 2)
				So(qs[0].Domain, ShouldEqual, "sleep")

				answers, _ := s.PrimaryAnswers(ctx, 100, 10, 1)
				So(len(answers), ShouldEqual, 3)
				So(answers[1].Score, ShouldEqual, 4.0)
			})
		})

		Convey("When an answer references an unknown question", func() {
			bad := seedFixture + `
  - id: 12
    subject: 200
    scale: 1
    answers:
      - {question: 99, score: 1}
`
			err := LoadSeedFile(ctx, s, writeSeed(t, bad))
			So(errors.Is(err, ErrUnknownReference), ShouldBeTrue)
		})

		Convey("When the file is missing", func() {
			err := LoadSeedFile(ctx, s, filepath.Join(t.TempDir(), "nope.yaml"))
			So(err, ShouldNotBeNil)
		})
	})
}
