package web

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/vbonduro/homealarm/internal/assetstore"
	"github.com/vbonduro/homealarm/internal/domain"
	"github.com/vbonduro/homealarm/internal/service"
	"github.com/vbonduro/homealarm/internal/validation"
)

const maxUploadSize = 20 * 1024 * 1024 // 20 MB

// parseForm accepts multipart and urlencoded bodies alike.
func parseForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize+1024*1024)
	err := r.ParseMultipartForm(maxUploadSize)
	if err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return err
	}
	return nil
}

// formFile reads an optional upload. A part with no file name counts as
// absent, which is what browsers send for an empty file input.
func formFile(r *http.Request, field string) (*assetstore.File, error) {
	f, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	if header.Filename == "" {
		return nil, nil
	}
	data, err := io.ReadAll(io.LimitReader(f, maxUploadSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", field, err)
	}
	if len(data) > maxUploadSize {
		return nil, &domain.ValidationError{Reason: domain.UnsupportedFile, Field: field, Message: "File is too large"}
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = assetstore.ContentTypeFor(header.Filename)
	}
	return &assetstore.File{Name: header.Filename, ContentType: contentType, Data: data}, nil
}

// alarmForm reads the alarm fields. Numbers that do not parse are reported
// as the matching validation reason.
func alarmForm(r *http.Request) (service.AlarmUpdate, error) {
	unscope(r, "alarm")
	var upd service.AlarmUpdate
	upd.Name = r.FormValue("name")

	var err error
	if upd.Hour, err = formInt(r, "hour", domain.InvalidHour); err != nil {
		return upd, err
	}
	if upd.Minute, err = formInt(r, "minute", domain.InvalidMinute); err != nil {
		return upd, err
	}

	for _, v := range formValues(r, "dow") {
		d, err := strconv.Atoi(v)
		if err != nil {
			return upd, &domain.ValidationError{Reason: domain.InvalidDow, Field: "dow", Message: "Days must be between 0 (Sunday) and 6 (Saturday)"}
		}
		upd.Dow = append(upd.Dow, time.Weekday(d))
	}
	for _, v := range formValues(r, "hosts") {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return upd, &domain.ValidationError{Reason: domain.UnknownHost, Field: "hosts", Message: fmt.Sprintf("Unknown host %q", v)}
		}
		upd.HostIDs = append(upd.HostIDs, id)
	}

	if vals, ok := r.Form["active"]; ok && len(vals) > 0 {
		active := vals[0]
		upd.Active = &active
	}
	return upd, nil
}

func houseForm(r *http.Request) validation.HouseInput {
	unscope(r, "house")
	return validation.HouseInput{Name: r.FormValue("name")}
}

// unscope copies scoped keys such as alarm[name] or alarm[dow][] onto their
// plain names, after any plain values already present.
func unscope(r *http.Request, scope string) {
	prefix := scope + "["
	for key, vals := range r.Form {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		field, _, ok := strings.Cut(key[len(prefix):], "]")
		if !ok || field == "" {
			continue
		}
		r.Form[field] = append(r.Form[field], vals...)
		delete(r.Form, key)
	}
}

func formInt(r *http.Request, field string, reason domain.ValidationReason) (int, error) {
	raw := strings.TrimSpace(r.FormValue(field))
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &domain.ValidationError{Reason: reason, Field: field, Message: fmt.Sprintf("%s must be a number", field)}
	}
	return n, nil
}

// formValues returns every non-blank value of a repeated field. A single
// comma-separated value is split as well.
func formValues(r *http.Request, field string) []string {
	var out []string
	for _, v := range r.Form[field] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
