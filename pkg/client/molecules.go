package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/ClairePA/ChemistryToolkit/pkg/errors"
	"github.com/ClairePA/ChemistryToolkit/pkg/types/molecule"
)

const (
	moleculesPath = "/api/v1/molecules"
	fragmentsPath = "/api/v1/fragments"
)

// MoleculesClient calls the notation endpoints.
type MoleculesClient struct {
	client *Client
}

func requireNotation(req *molecule.NotationRequest) error {
	if req == nil || strings.TrimSpace(req.Notation) == "" {
		return errors.InvalidParam("notation is required")
	}
	return nil
}

func (m *MoleculesClient) Validate(ctx context.Context, req *molecule.NotationRequest) (*molecule.ValidateResponse, error) {
	if err := requireNotation(req); err != nil {
		return nil, err
	}
	return call[molecule.ValidateResponse](ctx, m.client, http.MethodPost, moleculesPath+"/validate", req, true)
}

func (m *MoleculesClient) Canonicalize(ctx context.Context, req *molecule.NotationRequest) (*molecule.CanonicalResponse, error) {
	if err := requireNotation(req); err != nil {
		return nil, err
	}
	return call[molecule.CanonicalResponse](ctx, m.client, http.MethodPost, moleculesPath+"/canonicalize", req, true)
}

func (m *MoleculesClient) Info(ctx context.Context, req *molecule.NotationRequest) (*molecule.InfoResponse, error) {
	if err := requireNotation(req); err != nil {
		return nil, err
	}
	return call[molecule.InfoResponse](ctx, m.client, http.MethodPost, moleculesPath+"/info", req, true)
}

func (m *MoleculesClient) ToMolfile(ctx context.Context, req *molecule.NotationRequest) (*molecule.MolfileResponse, error) {
	if err := requireNotation(req); err != nil {
		return nil, err
	}
	return call[molecule.MolfileResponse](ctx, m.client, http.MethodPost, moleculesPath+"/molfile", req, true)
}

func (m *MoleculesClient) FromMolfile(ctx context.Context, req *molecule.MolfileRequest) (*molecule.CanonicalResponse, error) {
	if req == nil || strings.TrimSpace(req.Molfile) == "" {
		return nil, errors.InvalidParam("molfile is required")
	}
	return call[molecule.CanonicalResponse](ctx, m.client, http.MethodPost, moleculesPath+"/molfile/parse", req, true)
}

func (m *MoleculesClient) Cap(ctx context.Context, req *molecule.NotationRequest) (*molecule.CanonicalResponse, error) {
	if err := requireNotation(req); err != nil {
		return nil, err
	}
	return call[molecule.CanonicalResponse](ctx, m.client, http.MethodPost, moleculesPath+"/cap", req, true)
}

// Merge is not retried: every successful call records a new molecule and
// emits an event.
func (m *MoleculesClient) Merge(ctx context.Context, req *molecule.MergeRequest) (*molecule.MergeResponse, error) {
	if req == nil || (req.Left.Notation == "" && req.Left.Fragment == "") {
		return nil, errors.InvalidParam("left operand is required")
	}
	return call[molecule.MergeResponse](ctx, m.client, http.MethodPost, moleculesPath+"/merge", req, false)
}

func (m *MoleculesClient) Export(ctx context.Context, req *molecule.ExportRequest) (*molecule.ExportResponse, error) {
	if req == nil {
		return nil, errors.InvalidParam("notation is required")
	}
	if err := requireNotation(&req.NotationRequest); err != nil {
		return nil, err
	}
	return call[molecule.ExportResponse](ctx, m.client, http.MethodPost, moleculesPath+"/export", req, false)
}

// Lineage lists the ancestors of notation up to depth merges back.  A depth
// of zero uses the server default.
func (m *MoleculesClient) Lineage(ctx context.Context, notation string, depth int) (*molecule.LineageResponse, error) {
	if strings.TrimSpace(notation) == "" {
		return nil, errors.InvalidParam("notation is required")
	}
	q := url.Values{"notation": {notation}}
	if depth > 0 {
		q.Set("depth", strconv.Itoa(depth))
	}
	return call[molecule.LineageResponse](ctx, m.client, http.MethodGet, moleculesPath+"/lineage?"+q.Encode(), nil, true)
}

// Engine reports the chemistry engine the server runs.
func (m *MoleculesClient) Engine(ctx context.Context) (string, error) {
	res, err := call[molecule.EngineResponse](ctx, m.client, http.MethodGet, "/api/v1/engine", nil, true)
	if err != nil {
		return "", err
	}
	return res.Engine, nil
}

// FragmentsClient manages the fragment library.
type FragmentsClient struct {
	client *Client
}

func (f *FragmentsClient) Create(ctx context.Context, req *molecule.FragmentRequest) (*molecule.Fragment, error) {
	if req == nil || strings.TrimSpace(req.Name) == "" {
		return nil, errors.InvalidParam("fragment name is required")
	}
	if strings.TrimSpace(req.Notation) == "" {
		return nil, errors.InvalidParam("notation is required")
	}
	return call[molecule.Fragment](ctx, f.client, http.MethodPost, fragmentsPath, req, false)
}

// Get resolves ref as a fragment id or name.
func (f *FragmentsClient) Get(ctx context.Context, ref string) (*molecule.Fragment, error) {
	if ref == "" {
		return nil, errors.InvalidParam("fragment reference is required")
	}
	return call[molecule.Fragment](ctx, f.client, http.MethodGet, fragmentsPath+"/"+url.PathEscape(ref), nil, true)
}

func (f *FragmentsClient) List(ctx context.Context, page, pageSize int) (*molecule.FragmentList, error) {
	q := url.Values{}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if pageSize > 0 {
		q.Set("page_size", strconv.Itoa(pageSize))
	}
	path := fragmentsPath
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	return call[molecule.FragmentList](ctx, f.client, http.MethodGet, path, nil, true)
}

func (f *FragmentsClient) Delete(ctx context.Context, ref string) error {
	if ref == "" {
		return errors.InvalidParam("fragment reference is required")
	}
	_, err := f.client.do(ctx, http.MethodDelete, fragmentsPath+"/"+url.PathEscape(ref), nil, true)
	return err
}
