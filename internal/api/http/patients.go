package http

import (
	"encoding/json"
	"net/http"

	"github.com/mediward/visitor-gateway/internal/visitor"
)

// GET /api/patients
func ListPatientsHandler(store visitor.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ps, err := store.ListPatients(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, ps)
	}
}

// POST /api/patients (staff)
func CreatePatientHandler(store visitor.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var p visitor.Patient
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			writeJSONError(w, http.StatusBadRequest, "bad json")
			return
		}
		if p.Name == "" {
			writeJSONError(w, http.StatusBadRequest, "patient name required")
			return
		}
		id, err := store.CreatePatient(r.Context(), p)
		if err != nil {
			writeError(w, err)
			return
		}
		p.PatientID = id
		writeJSON(w, http.StatusCreated, p)
	}
}
