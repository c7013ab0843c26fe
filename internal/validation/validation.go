// Package validation holds the pre-commit checks run before any asset is
// uploaded or any record is written. Every function here is pure.
package validation

import (
	"errors"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/vbonduro/homealarm/internal/domain"
)

const MaxNameLen = 200

// AlarmInput is the structural part of an alarm create or update payload.
type AlarmInput struct {
	Name    string         `validate:"required,max=200"`
	Hour    int            `validate:"min=0,max=23"`
	Minute  int            `validate:"min=0,max=59"`
	Dow     []time.Weekday `validate:"dive,min=0,max=6"`
	HostIDs []int64        `validate:"dive,gt=0"`
}

type HouseInput struct {
	Name string `validate:"required,max=200"`
}

type HostInput struct {
	Name string `validate:"required,max=200"`
}

var (
	structValidator = validator.New(validator.WithRequiredStructEnabled())

	soundExt = regexp.MustCompile(`(?i)\.(wav|mp3|wma)$`)
	imageExt = regexp.MustCompile(`(?i)\.(jpg|jpeg|png|gif)$`)
)

// ValidateAlarm checks the day selection first, then the host selection,
// then the remaining fields.
func ValidateAlarm(in AlarmInput) error {
	if len(in.Dow) == 0 {
		return &domain.ValidationError{Reason: domain.MissingDow, Field: "dow", Message: "You must select at least one day!"}
	}
	if len(in.HostIDs) == 0 {
		return &domain.ValidationError{Reason: domain.MissingHosts, Field: "hosts", Message: "You need to select at least one host!"}
	}
	in.Name = strings.TrimSpace(in.Name)
	return translate(structValidator.Struct(in))
}

func ValidateHouse(in HouseInput) error {
	in.Name = strings.TrimSpace(in.Name)
	return translate(structValidator.Struct(in))
}

func ValidateHost(in HostInput) error {
	in.Name = strings.TrimSpace(in.Name)
	return translate(structValidator.Struct(in))
}

// CheckSoundFile accepts .wav, .mp3 and .wma names.
func CheckSoundFile(name string) error {
	if !soundExt.MatchString(filepath.Base(name)) {
		return &domain.ValidationError{Reason: domain.UnsupportedFile, Field: "sound", Message: "Only sound files are allowed!"}
	}
	return nil
}

// CheckImageFile accepts .jpg, .jpeg, .png and .gif names.
func CheckImageFile(name string) error {
	if !imageExt.MatchString(filepath.Base(name)) {
		return &domain.ValidationError{Reason: domain.UnsupportedFile, Field: "image", Message: "Only image files are allowed!"}
	}
	return nil
}

// NormalizeDow sorts days and drops duplicates.
func NormalizeDow(days []time.Weekday) []time.Weekday {
	var seen [7]bool
	for _, d := range days {
		if d >= time.Sunday && d <= time.Saturday {
			seen[d] = true
		}
	}
	out := make([]time.Weekday, 0, len(days))
	for d, ok := range seen {
		if ok {
			out = append(out, time.Weekday(d))
		}
	}
	return out
}

// NormalizeIDs drops duplicates, keeping first-seen order.
func NormalizeIDs(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func translate(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}

	fe := verrs[0]
	field := fe.StructField()
	if i := strings.IndexByte(field, '['); i >= 0 {
		field = field[:i]
	}
	switch field {
	case "Name":
		return &domain.ValidationError{Reason: domain.MissingName, Field: "name", Message: "A name of at most 200 characters is required"}
	case "Hour":
		return &domain.ValidationError{Reason: domain.InvalidHour, Field: "hour", Message: "Hour must be between 0 and 23"}
	case "Minute":
		return &domain.ValidationError{Reason: domain.InvalidMinute, Field: "minute", Message: "Minute must be between 0 and 59"}
	case "Dow":
		return &domain.ValidationError{Reason: domain.InvalidDow, Field: "dow", Message: "Days must be between 0 (Sunday) and 6 (Saturday)"}
	case "HostIDs":
		return &domain.ValidationError{Reason: domain.UnknownHost, Field: "hosts", Message: "Host ids must be positive"}
	}
	return err
}
