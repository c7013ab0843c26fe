package web

import "net/http"

func (s *Server) handleCreateHost(w http.ResponseWriter, r *http.Request) {
	houseID, err := parseID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid house id"})
		return
	}
	if err := parseForm(w, r); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "failed to parse form"})
		return
	}

	host, err := s.hosts.Create(r.Context(), houseID, r.FormValue("name"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toHostView(host))
}

func (s *Server) handleDeleteHost(w http.ResponseWriter, r *http.Request) {
	houseID, err := parseID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid house id"})
		return
	}
	hostID, err := parsePathID(r, "host_id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid host id"})
		return
	}

	if err := s.hosts.Delete(r.Context(), hostID, houseID); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
