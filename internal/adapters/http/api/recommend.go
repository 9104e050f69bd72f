package api

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/okian/questrec/internal/domain/model"
	"github.com/okian/questrec/internal/domain/recommend"
	"github.com/okian/questrec/pkg/logger"
)

// NoDataMessage is returned when no similar evaluation has a later one.
const NoDataMessage = "no data returned for the similar evaluations"

// RecommendDependencies defines the interface for recommendation operations.
type RecommendDependencies interface {
	Recommend(ctx context.Context, eval model.EvaluationID, subject model.SubjectID, scale model.ScaleID) (recommend.Recommendation, error)
}

// RecommendHandler handles recommendation requests.
type RecommendHandler struct {
	deps     RecommendDependencies
	validate *validator.Validate
	logger   logger.Logger
}

// NewRecommendHandler creates a new recommendation handler.
func NewRecommendHandler(deps RecommendDependencies, l logger.Logger) *RecommendHandler {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("query")
	})
	return &RecommendHandler{deps: deps, validate: v, logger: l}
}

// recommendQuery holds the raw query parameters. Digits only, and short
// enough to fit an int64.
type recommendQuery struct {
	Evaluation string `query:"avaliation" validate:"required,number,max=18"`
	Subject    string `query:"client" validate:"required,number,max=18"`
	Scale      string `query:"scale" validate:"required,number,max=18"`
}

type recommendResponse struct {
	FilteredQuestions []model.QuestionDescriptor `json:"filtered_questions"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// firstParam returns the first non-empty value among names.
func firstParam(r *http.Request, names ...string) string {
	q := r.URL.Query()
	for _, n := range names {
		if v := strings.TrimSpace(q.Get(n)); v != "" {
			return v
		}
	}
	return ""
}

func (h *RecommendHandler) parse(r *http.Request) (model.EvaluationID, model.SubjectID, model.ScaleID, error) {
	const op = "recommend.parse"
	q := recommendQuery{
		Evaluation: firstParam(r, "avaliation", "evaluation"),
		Subject:    firstParam(r, "client", "subject"),
		Scale:      firstParam(r, "scale"),
	}
	if err := h.validate.Struct(q); err != nil {
		return 0, 0, 0, WrapKind(op, ErrBadRequest, describeValidation(err))
	}

	// Validation guarantees at most 18 digits, so parsing cannot fail.
	eval, _ := strconv.ParseInt(q.Evaluation, 10, 64)
	subject, _ := strconv.ParseInt(q.Subject, 10, 64)
	scale, _ := strconv.ParseInt(q.Scale, 10, 64)
	return model.EvaluationID(eval), model.SubjectID(subject), model.ScaleID(scale), nil
}

func describeValidation(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			parts = append(parts, fe.Field()+" is required")
		case "number":
			parts = append(parts, fe.Field()+" must be a non-negative integer")
		case "max":
			parts = append(parts, fe.Field()+" is too large")
		default:
			parts = append(parts, fe.Field()+" is invalid")
		}
	}
	return errors.New(strings.Join(parts, "; "))
}

// HandleRecommend handles GET /recommend?avaliation=&client=&scale= requests.
func (h *RecommendHandler) HandleRecommend(w http.ResponseWriter, r *http.Request) {
	const op = "recommend"
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeError(w, r, NewKind(op, ErrMethodNotAllowed))
		return
	}

	eval, subject, scale, err := h.parse(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	rec, err := h.deps.Recommend(r.Context(), eval, subject, scale)
	if err != nil {
		reqLog := h.logger.With(
			logger.String("request_id", RequestIDFrom(r.Context())),
			logger.Int64("evaluation", int64(eval)),
			logger.Int64("subject", int64(subject)),
			logger.Int64("scale", int64(scale)),
		)
		switch status, _ := statusFor(err); {
		case status == StatusClientClosedRequest:
			reqLog.Debug(r.Context(), "recommend request canceled by client", logger.Error(err))
		case status >= http.StatusInternalServerError:
			reqLog.Error(r.Context(), "recommend request failed", logger.Error(err))
		}
		writeError(w, r, Wrap(op, err))
		return
	}

	if rec.NoData {
		writeJSON(w, http.StatusOK, messageResponse{Message: NoDataMessage})
		return
	}
	questions := rec.Questions
	if questions == nil {
		questions = []model.QuestionDescriptor{}
	}
	writeJSON(w, http.StatusOK, recommendResponse{FilteredQuestions: questions})
}
