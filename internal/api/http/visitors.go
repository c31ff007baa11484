package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mediward/visitor-gateway/internal/visitor"
)

// POST /api/visitors (multipart form, optional file field "idProof")
func RegisterVisitorHandler(svc *visitor.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(16 << 20); err != nil {
			writeJSONError(w, http.StatusBadRequest, "multipart form required")
			return
		}

		in := visitor.RegisterInput{
			Name:          r.FormValue("name"),
			ContactNumber: r.FormValue("contact"),
			Address:       r.FormValue("address"),
			Purpose:       r.FormValue("purpose"),
		}
		if p := r.FormValue("patient"); p != "" {
			pid, err := strconv.ParseInt(p, 10, 64)
			if err != nil {
				writeJSONError(w, http.StatusBadRequest, "bad patient id")
				return
			}
			in.PatientID = &pid
		}

		f, hdr, err := r.FormFile("idProof")
		switch {
		case err == nil:
			defer f.Close()
			ct := hdr.Header.Get("Content-Type")
			if ct == "" {
				ct = "application/octet-stream"
			}
			in.Proof = &visitor.Upload{
				Filename:    hdr.Filename,
				ContentType: ct,
				Size:        hdr.Size,
				Content:     f,
			}
		case errors.Is(err, http.ErrMissingFile):
			// no proof submitted; registration proceeds without one
		default:
			writeJSONError(w, http.StatusBadRequest, "bad file field")
			return
		}

		reg, err := svc.Register(r.Context(), in)
		if err != nil {
			writeError(w, err)
			return
		}

		v := reg.Visitor
		var proofURL interface{}
		if reg.ObjectName != "" {
			proofURL = downloadPath(v.VisitorID)
		}
		writeJSON(w, http.StatusCreated, map[string]interface{}{
			"success": true,
			"visitor": map[string]interface{}{
				"VisitorID":     v.VisitorID,
				"Name":          v.Name,
				"ContactNumber": v.ContactNumber,
				"CheckInTime":   v.CheckInTime,
				"CheckOutTime":  nil,
				"IDProofUrl":    proofURL,
				"QRCode":        v.QRCode,
				"PatientName":   nullable(v.PatientName),
				"Ward":          nullable(v.Ward),
			},
		})
	}
}

// GET /api/visitors (staff)
func ListVisitorsHandler(store visitor.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vs, err := store.List(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		out := make([]map[string]interface{}, 0, len(vs))
		for _, v := range vs {
			var proofURL interface{}
			if v.IDProof != "" {
				proofURL = downloadPath(v.VisitorID)
			}
			out = append(out, map[string]interface{}{
				"VisitorID":     v.VisitorID,
				"Name":          v.Name,
				"ContactNumber": v.ContactNumber,
				"Address":       v.Address,
				"Purpose":       v.Purpose,
				"CheckInTime":   v.CheckInTime,
				"CheckOutTime":  v.CheckOutTime,
				"IDProofUrl":    proofURL,
				"QRCode":        v.QRCode,
				"PatientID":     v.PatientID,
				"PatientName":   nullable(v.PatientName),
				"Ward":          nullable(v.Ward),
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// PATCH /api/visitors/{visitorID}/checkout (staff)
func CheckOutHandler(svc *visitor.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := visitorID(w, r)
		if !ok {
			return
		}
		at, err := svc.CheckOut(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success":      true,
			"message":      "Visitor checked out successfully",
			"checkOutTime": at,
		})
	}
}

// GET /api/visitors/{visitorID}/download-id
// Redirects to a signed, time-limited retrieval URL. Never serves the raw
// storage location.
func DownloadIDHandler(svc *visitor.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := visitorID(w, r)
		if !ok {
			return
		}
		u, err := svc.ProofRedirectURL(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		http.Redirect(w, r, u, http.StatusFound)
	}
}

// GET /api/visitors/{visitorID}/id-proof (staff)
// Direct-download fallback: streams the stored object as an attachment.
func StreamIDProofHandler(svc *visitor.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := visitorID(w, r)
		if !ok {
			return
		}
		name, ct, rc, err := svc.OpenProof(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		defer rc.Close()
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
		w.Header().Set("Content-Type", ct)
		_, _ = io.Copy(w, rc)
	}
}

func visitorID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "visitorID"), 10, 64)
	if err != nil || id <= 0 {
		writeJSONError(w, http.StatusBadRequest, "bad visitor id")
		return 0, false
	}
	return id, true
}

func downloadPath(visitorID int64) string {
	return fmt.Sprintf("/api/visitors/%d/download-id", visitorID)
}

func writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, visitor.ErrValidation):
		code = http.StatusBadRequest
	case errors.Is(err, visitor.ErrNotFound):
		code = http.StatusNotFound
	}
	writeJSONError(w, code, err.Error())
}

func writeJSONError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
