package web

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/vbonduro/homealarm/internal/domain"
)

type errorBody struct {
	Error    string  `json:"error"`
	Reason   string  `json:"reason,omitempty"`
	Field    string  `json:"field,omitempty"`
	Entity   string  `json:"entity,omitempty"`
	EntityID int64   `json:"entity_id,omitempty"`
	AssetID  string  `json:"asset_id,omitempty"`
	Failed   []int64 `json:"failed_ids,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps a service error to its status code.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verr    *domain.ValidationError
		nf      *domain.NotFoundError
		upErr   *domain.AssetUploadError
		delErr  *domain.AssetDeleteError
		partial *domain.PartialCommitError
		cascade *domain.CascadeError
	)
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: verr.Message, Reason: string(verr.Reason), Field: verr.Field})
	case errors.As(err, &nf):
		writeJSON(w, http.StatusNotFound, errorBody{Error: nf.Error(), Entity: nf.Entity, EntityID: nf.ID})
	case errors.As(err, &cascade):
		s.logger.Error("house cascade incomplete", "path", r.URL.Path, "error", err)
		var failed []int64
		for _, f := range cascade.Failures {
			if f.Entity != "house" {
				failed = append(failed, f.ID)
			}
		}
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "house deletion incomplete", Entity: "house", EntityID: cascade.HouseID, Failed: failed})
	case errors.As(err, &partial):
		s.logger.Error("partial commit", "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "saved but not linked to house", Entity: partial.Entity, EntityID: partial.EntityID})
	case errors.As(err, &upErr):
		writeJSON(w, http.StatusBadGateway, errorBody{Error: "asset upload failed"})
	case errors.As(err, &delErr):
		writeJSON(w, http.StatusBadGateway, errorBody{Error: "asset delete failed", AssetID: delErr.AssetID})
	default:
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}

func parseID(r *http.Request) (int64, error) {
	return parsePathID(r, "id")
}

func parsePathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(r.PathValue(name), 10, 64)
}

// closeWithLog closes c and logs any error, using label to identify the resource.
func closeWithLog(c io.Closer, label string, logger *slog.Logger) {
	if err := c.Close(); err != nil {
		logger.Error("failed to close resource", "label", label, "error", err)
	}
}
