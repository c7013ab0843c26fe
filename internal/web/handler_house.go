package web

import (
	"net/http"
)

func (s *Server) handleListHouses(w http.ResponseWriter, r *http.Request) {
	houses, err := s.houses.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]houseView, 0, len(houses))
	for _, h := range houses {
		out = append(out, toHouseView(h))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateHouse(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(w, r); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "failed to parse form"})
		return
	}
	image, err := formFile(r, "image")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	house, err := s.houses.Create(r.Context(), claimsFrom(r.Context()).Subject, houseForm(r), image)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toHouseView(house))
}

func (s *Server) handleGetHouse(w http.ResponseWriter, r *http.Request) {
	houseID, err := parseID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid house id"})
		return
	}
	detail, err := s.houses.Get(r.Context(), houseID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toHouseDetailView(detail))
}

func (s *Server) handleUpdateHouse(w http.ResponseWriter, r *http.Request) {
	houseID, err := parseID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid house id"})
		return
	}
	if err := parseForm(w, r); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "failed to parse form"})
		return
	}
	image, err := formFile(r, "image")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	house, err := s.houses.Update(r.Context(), houseID, houseForm(r), image)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toHouseView(house))
}

func (s *Server) handleDeleteHouse(w http.ResponseWriter, r *http.Request) {
	houseID, err := parseID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid house id"})
		return
	}
	result, err := s.houses.Delete(r.Context(), houseID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCascadeView(result))
}
