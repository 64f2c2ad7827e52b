package validator

import (
	"strings"
	"time"

	"cfp-scheduler/core/controller"
	"cfp-scheduler/modules/schedule/dto"
	"cfp-scheduler/modules/schedule/entity"
)

type ValidationResult struct {
	Errors []controller.ValidationError `json:"errors"`
}

func (v *ValidationResult) Add(field, message string) {
	v.Errors = append(v.Errors, controller.NewValidationError(field, message))
}

func (v *ValidationResult) HasError() bool {
	return len(v.Errors) > 0
}

func validTime(value *string) bool {
	if value == nil || *value == "" {
		return true
	}
	_, err := time.Parse(time.RFC3339, *value)
	return err == nil
}

func ValidateSlotRequest(req *dto.SlotRequest) *ValidationResult {
	result := &ValidationResult{}

	if req.SlotType != "" && !entity.SlotType(req.SlotType).Valid() {
		result.Add("slot_type", "must be one of talk, break, blocker")
	}
	if !validTime(req.Start) {
		result.Add("start", "must be an RFC3339 timestamp")
	}
	if !validTime(req.End) {
		result.Add("end", "must be an RFC3339 timestamp")
	}
	if req.SubmissionID != nil && *req.SubmissionID <= 0 {
		result.Add("submission_id", "must be positive")
	}
	if req.RoomID != nil && *req.RoomID <= 0 {
		result.Add("room_id", "must be positive")
	}

	return result
}

func ValidateFreezeRequest(req *dto.FreezeRequest) *ValidationResult {
	result := &ValidationResult{}

	if len(strings.TrimSpace(req.Version)) > 190 {
		result.Add("version", "must be at most 190 characters")
	}
	if len(req.Comment) > 10000 {
		result.Add("comment", "is too long")
	}

	return result
}
