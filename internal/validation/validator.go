package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"Mansoor88-6/activity-hub/internal/apperror"
	"Mansoor88-6/activity-hub/internal/models"

	"github.com/go-playground/validator/v10"
)

// MaxBatchSize caps the number of chunks accepted in one ingest call.
const MaxBatchSize = 500

// Validator checks request structs against their `validate` tags and reports
// failures as apperror.ValidationError with JSON field paths.
type Validator struct {
	v *validator.Validate
}

func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return field.Name
		}
		return name
	})
	return &Validator{v: v}
}

// Struct validates s. The returned error is nil or a *apperror.ValidationError.
func (val *Validator) Struct(s interface{}) error {
	err := val.v.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperror.Validation(err.Error())
	}

	issues := make([]apperror.Issue, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		issues = append(issues, apperror.Issue{
			Path:    trimRoot(fe.Namespace()),
			Message: describe(fe),
			Code:    fe.Tag(),
		})
	}
	return apperror.Validation("invalid payload", issues...)
}

// IngestBatch validates a whole ingest batch. Any failure rejects the batch.
func (val *Validator) IngestBatch(req *models.IngestRequest) error {
	if req == nil {
		return apperror.Validation("invalid payload", apperror.Issue{Path: "chunks", Message: "is required", Code: "required"})
	}
	if len(req.Chunks) > MaxBatchSize {
		return apperror.Validation("invalid payload", apperror.Issue{
			Path:    "chunks",
			Message: fmt.Sprintf("batch exceeds max size of %d chunks", MaxBatchSize),
			Code:    "max",
		})
	}
	return val.Struct(req)
}

// trimRoot drops the top-level struct name from a validator namespace.
func trimRoot(ns string) string {
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must have at least " + fe.Param() + " item(s) or characters"
	case "gte":
		return "must be >= " + fe.Param()
	case "gt":
		return "must be > " + fe.Param()
	case "lte":
		return "must be <= " + fe.Param()
	case "oneof":
		return "must be one of: " + fe.Param()
	default:
		return "failed " + fe.Tag() + " check"
	}
}
