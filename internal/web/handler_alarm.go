package web

import "net/http"

// alarmIDs parses the house and alarm path values, writing a 400 on failure.
func alarmIDs(w http.ResponseWriter, r *http.Request) (houseID, alarmID int64, ok bool) {
	houseID, err := parseID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid house id"})
		return 0, 0, false
	}
	alarmID, err = parsePathID(r, "alarm_id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid alarm id"})
		return 0, 0, false
	}
	return houseID, alarmID, true
}

func (s *Server) handleCreateAlarm(w http.ResponseWriter, r *http.Request) {
	houseID, err := parseID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid house id"})
		return
	}
	if err := parseForm(w, r); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "failed to parse form"})
		return
	}
	form, err := alarmForm(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sound, err := formFile(r, "sound")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	alarm, err := s.alarms.Create(r.Context(), houseID, claimsFrom(r.Context()).Subject, form.AlarmInput, sound)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAlarmView(alarm))
}

func (s *Server) handleGetAlarm(w http.ResponseWriter, r *http.Request) {
	houseID, alarmID, ok := alarmIDs(w, r)
	if !ok {
		return
	}
	detail, err := s.alarms.Get(r.Context(), alarmID, houseID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAlarmDetailView(detail))
}

func (s *Server) handleUpdateAlarm(w http.ResponseWriter, r *http.Request) {
	houseID, alarmID, ok := alarmIDs(w, r)
	if !ok {
		return
	}
	if err := parseForm(w, r); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "failed to parse form"})
		return
	}
	form, err := alarmForm(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sound, err := formFile(r, "sound")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	alarm, err := s.alarms.Update(r.Context(), alarmID, houseID, claimsFrom(r.Context()).Subject, form, sound)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAlarmView(alarm))
}

func (s *Server) handleDeleteAlarm(w http.ResponseWriter, r *http.Request) {
	houseID, alarmID, ok := alarmIDs(w, r)
	if !ok {
		return
	}
	if err := s.alarms.Delete(r.Context(), alarmID, houseID); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
