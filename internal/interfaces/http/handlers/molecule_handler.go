package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	appMol "github.com/ClairePA/ChemistryToolkit/internal/application/molecule"
	"github.com/ClairePA/ChemistryToolkit/internal/infrastructure/monitoring/logging"
	"github.com/ClairePA/ChemistryToolkit/pkg/errors"
)

// MoleculeHandler serves /api/v1/molecules and /api/v1/fragments.
type MoleculeHandler struct {
	svc    appMol.Service
	logger logging.Logger
}

func NewMoleculeHandler(svc appMol.Service, logger logging.Logger) *MoleculeHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &MoleculeHandler{svc: svc, logger: logger.Named("http.molecule")}
}

// ExportRequest is the body of POST /molecules/export.  URLExpiry is a Go
// duration string such as "15m".
type ExportRequest struct {
	appMol.NotationInput
	Format    string `json:"format"`
	URLExpiry string `json:"url_expiry,omitempty"`
}

// LineageResponse lists the ancestors of a notation.
type LineageResponse struct {
	Notation  string   `json:"notation"`
	Depth     int      `json:"depth"`
	Ancestors []string `json:"ancestors"`
}

// EngineResponse names the engine behind the API.
type EngineResponse struct {
	Engine string `json:"engine"`
}

func (h *MoleculeHandler) Engine(w http.ResponseWriter, r *http.Request) {
	writeData(w, r, http.StatusOK, EngineResponse{Engine: h.svc.Engine()})
}

func (h *MoleculeHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req appMol.NotationInput
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, r, err)
		return
	}
	res, err := h.svc.Validate(r.Context(), &req)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, res)
}

func (h *MoleculeHandler) Canonicalize(w http.ResponseWriter, r *http.Request) {
	var req appMol.NotationInput
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, r, err)
		return
	}
	res, err := h.svc.Canonicalize(r.Context(), &req)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, res)
}

func (h *MoleculeHandler) Info(w http.ResponseWriter, r *http.Request) {
	var req appMol.NotationInput
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, r, err)
		return
	}
	res, err := h.svc.Info(r.Context(), &req)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, res)
}

// ToMolfile converts a notation into a V2000 molfile.
func (h *MoleculeHandler) ToMolfile(w http.ResponseWriter, r *http.Request) {
	var req appMol.NotationInput
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, r, err)
		return
	}
	res, err := h.svc.ToMolfile(r.Context(), &req)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, res)
}

// FromMolfile reads a molfile and answers with its canonical notation.
func (h *MoleculeHandler) FromMolfile(w http.ResponseWriter, r *http.Request) {
	var req appMol.MolfileInput
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, r, err)
		return
	}
	res, err := h.svc.FromMolfile(r.Context(), &req)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, res)
}

func (h *MoleculeHandler) Merge(w http.ResponseWriter, r *http.Request) {
	var req appMol.MergeInput
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, r, err)
		return
	}
	res, err := h.svc.Merge(r.Context(), &req)
	if err != nil {
		h.logger.Debug("merge failed", logging.String("code", string(errors.GetCode(err))), logging.Err(err))
		writeAppError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, res)
}

func (h *MoleculeHandler) Cap(w http.ResponseWriter, r *http.Request) {
	var req appMol.NotationInput
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, r, err)
		return
	}
	res, err := h.svc.Cap(r.Context(), &req)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, res)
}

func (h *MoleculeHandler) Export(w http.ResponseWriter, r *http.Request) {
	var req ExportRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, r, err)
		return
	}
	in := &appMol.ExportInput{NotationInput: req.NotationInput, Format: req.Format}
	if req.URLExpiry != "" {
		d, err := time.ParseDuration(req.URLExpiry)
		if err != nil || d <= 0 {
			writeAppError(w, r, errors.InvalidParam("url_expiry must be a positive duration").WithDetail(req.URLExpiry))
			return
		}
		in.URLExpiry = d
	}
	res, err := h.svc.Export(r.Context(), in)
	if err != nil {
		h.logger.Error("export failed", logging.Err(err))
		writeAppError(w, r, err)
		return
	}
	writeData(w, r, http.StatusCreated, res)
}

// Lineage answers GET /molecules/lineage?notation=...&depth=n.
func (h *MoleculeHandler) Lineage(w http.ResponseWriter, r *http.Request) {
	notation := r.URL.Query().Get("notation")
	if notation == "" {
		writeAppError(w, r, errors.InvalidParam("notation query parameter is required"))
		return
	}
	depth := 3
	if v := r.URL.Query().Get("depth"); v != "" {
		d, err := strconv.Atoi(v)
		if err != nil {
			writeAppError(w, r, errors.InvalidParam("depth must be an integer").WithDetail(v))
			return
		}
		depth = d
	}
	ancestors, err := h.svc.Lineage(r.Context(), notation, depth)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	if ancestors == nil {
		ancestors = []string{}
	}
	writeData(w, r, http.StatusOK, LineageResponse{Notation: notation, Depth: depth, Ancestors: ancestors})
}

func (h *MoleculeHandler) CreateFragment(w http.ResponseWriter, r *http.Request) {
	var req appMol.FragmentInput
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, r, err)
		return
	}
	f, err := h.svc.CreateFragment(r.Context(), &req)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeData(w, r, http.StatusCreated, f)
}

// GetFragment resolves {ref} as a fragment id or name.
func (h *MoleculeHandler) GetFragment(w http.ResponseWriter, r *http.Request) {
	f, err := h.svc.GetFragment(r.Context(), chi.URLParam(r, "ref"))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, f)
}

func (h *MoleculeHandler) ListFragments(w http.ResponseWriter, r *http.Request) {
	page, pageSize := parsePagination(r)
	list, err := h.svc.ListFragments(r.Context(), page, pageSize)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, list)
}

func (h *MoleculeHandler) DeleteFragment(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteFragment(r.Context(), chi.URLParam(r, "ref")); err != nil {
		writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
