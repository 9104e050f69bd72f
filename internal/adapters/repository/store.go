// Package repository provides the assessment data stores consumed by the
// recommendation pipeline.
package repository

import (
	"context"

	"github.com/okian/questrec/internal/domain/recommend"
)

// Store provides read access to evaluations, answers and questions.
// It satisfies recommend.Source.
type Store interface {
	recommend.Source

	// Count returns the number of evaluations tracked by the store.
	Count(ctx context.Context) (int, error)
}
