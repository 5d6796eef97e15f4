package reconcile

import (
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/razherana/s5-web-4-carte/internal/ledger"
	"github.com/razherana/s5-web-4-carte/internal/model"
)

// ReportInput carries the mutable fields of a report.  Create requires
// the coordinates and the three budget factors; Update applies only the
// fields that are present.  A company is referenced either by id (must
// exist) or by name (found or created).
type ReportInput struct {
	Lat         *float64   `json:"lat" validate:"omitempty,gte=-90,lte=90"`
	Lng         *float64   `json:"lng" validate:"omitempty,gte=-180,lte=180"`
	Date        *time.Time `json:"date"`
	Description *string    `json:"description" validate:"omitempty,max=2000"`
	Category    *string    `json:"category" validate:"omitempty,max=64"`
	Surface     *float64   `json:"surface" validate:"omitempty,gt=0"`
	Level       *int       `json:"level" validate:"omitempty,gte=1,lte=10"`
	UnitPrice   *float64   `json:"unit_price" validate:"omitempty,gt=0"`
	CompanyID   *uint64    `json:"company_id" validate:"omitempty,gt=0"`
	CompanyName *string    `json:"company_name" validate:"omitempty,max=255"`
	Notes       *string    `json:"notes"`
	ImagesCount *int       `json:"images_count" validate:"omitempty,gte=0"`
}

// StatusInput appends a transition.  ChangedAt defaults to now; it may
// lie in the past to backfill history.
type StatusInput struct {
	Status    model.Status `json:"status" validate:"required"`
	ChangedAt *string      `json:"changed_at"`
	Notes     *string      `json:"notes"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// report json names so errors match the request body
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// checkStruct runs the tag rules and collects failures as field: tag.
func checkStruct(in any, verr *model.ValidationError) {
	err := validate.Struct(in)
	if err == nil {
		return
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		verr.Add("body", err.Error())
		return
	}
	for _, fe := range fieldErrs {
		verr.Add(fe.Field(), fe.Tag())
	}
}

func validateCreate(in ReportInput) *model.ValidationError {
	verr := model.NewValidationError()
	checkStruct(in, verr)
	if in.Lat == nil {
		verr.Add("lat", "required")
	}
	if in.Lng == nil {
		verr.Add("lng", "required")
	}
	if in.Surface == nil {
		verr.Add("surface", "required")
	}
	if in.Level == nil {
		verr.Add("level", "required")
	}
	if in.UnitPrice == nil {
		verr.Add("unit_price", "required")
	}
	checkCompanyRef(in, verr)
	return verr
}

func validateUpdate(in ReportInput) *model.ValidationError {
	verr := model.NewValidationError()
	checkStruct(in, verr)
	checkCompanyRef(in, verr)
	return verr
}

func checkCompanyRef(in ReportInput, verr *model.ValidationError) {
	if in.CompanyID != nil && in.CompanyName != nil {
		verr.Add("company_id", "excluded_with company_name")
	}
	if in.CompanyName != nil && strings.TrimSpace(*in.CompanyName) == "" {
		verr.Add("company_name", "required")
	}
}

// parseStatusInput validates in and resolves its timestamp.
func parseStatusInput(in StatusInput, now time.Time) (time.Time, error) {
	verr := model.NewValidationError()
	checkStruct(in, verr)
	if in.Status != "" && !in.Status.Valid() {
		verr.Add("status", "oneof pending in_progress resolved rejected")
	}
	at := now
	if in.ChangedAt != nil {
		t, err := ledger.ParseChangedAt(*in.ChangedAt)
		if err != nil {
			verr.Add("changed_at", "datetime")
		} else {
			at = t
		}
	}
	return at, verr.OrNil()
}

// apply copies the present fields of in onto rep.
func (in ReportInput) apply(rep *model.Report) {
	if in.Lat != nil {
		rep.Lat = *in.Lat
	}
	if in.Lng != nil {
		rep.Lng = *in.Lng
	}
	if in.Date != nil {
		rep.Date = in.Date.UTC()
	}
	if in.Description != nil {
		rep.Description = strings.TrimSpace(*in.Description)
	}
	if in.Category != nil {
		rep.Category = strings.TrimSpace(*in.Category)
	}
	if in.Surface != nil {
		rep.Surface = *in.Surface
	}
	if in.Level != nil {
		rep.Level = *in.Level
	}
	if in.UnitPrice != nil {
		rep.UnitPrice = *in.UnitPrice
	}
	if in.Notes != nil {
		rep.Notes = in.Notes
	}
	if in.ImagesCount != nil {
		rep.ImagesCount = *in.ImagesCount
	}
}
