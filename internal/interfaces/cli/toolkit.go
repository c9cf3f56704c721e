package cli

import (
	"context"

	appMol "github.com/ClairePA/ChemistryToolkit/internal/application/molecule"
	domainMol "github.com/ClairePA/ChemistryToolkit/internal/domain/molecule"
	"github.com/ClairePA/ChemistryToolkit/pkg/client"
	"github.com/ClairePA/ChemistryToolkit/pkg/types/molecule"
)

// Toolkit is what the commands run against: the in-process service or a
// remote server reached through pkg/client.
type Toolkit interface {
	Engine(ctx context.Context) (string, error)
	Validate(ctx context.Context, req *molecule.NotationRequest) (*molecule.ValidateResponse, error)
	Canonicalize(ctx context.Context, req *molecule.NotationRequest) (*molecule.CanonicalResponse, error)
	Info(ctx context.Context, req *molecule.NotationRequest) (*molecule.InfoResponse, error)
	ToMolfile(ctx context.Context, req *molecule.NotationRequest) (*molecule.MolfileResponse, error)
	FromMolfile(ctx context.Context, req *molecule.MolfileRequest) (*molecule.CanonicalResponse, error)
	Cap(ctx context.Context, req *molecule.NotationRequest) (*molecule.CanonicalResponse, error)
	Merge(ctx context.Context, req *molecule.MergeRequest) (*molecule.MergeResponse, error)

	CreateFragment(ctx context.Context, req *molecule.FragmentRequest) (*molecule.Fragment, error)
	GetFragment(ctx context.Context, ref string) (*molecule.Fragment, error)
	ListFragments(ctx context.Context, page, pageSize int) (*molecule.FragmentList, error)
	DeleteFragment(ctx context.Context, ref string) error
}

type remoteToolkit struct {
	c *client.Client
}

// NewRemoteToolkit runs commands against the server behind c.
func NewRemoteToolkit(c *client.Client) Toolkit { return &remoteToolkit{c: c} }

func (r *remoteToolkit) Engine(ctx context.Context) (string, error) {
	return r.c.Molecules().Engine(ctx)
}

func (r *remoteToolkit) Validate(ctx context.Context, req *molecule.NotationRequest) (*molecule.ValidateResponse, error) {
	return r.c.Molecules().Validate(ctx, req)
}

func (r *remoteToolkit) Canonicalize(ctx context.Context, req *molecule.NotationRequest) (*molecule.CanonicalResponse, error) {
	return r.c.Molecules().Canonicalize(ctx, req)
}

func (r *remoteToolkit) Info(ctx context.Context, req *molecule.NotationRequest) (*molecule.InfoResponse, error) {
	return r.c.Molecules().Info(ctx, req)
}

func (r *remoteToolkit) ToMolfile(ctx context.Context, req *molecule.NotationRequest) (*molecule.MolfileResponse, error) {
	return r.c.Molecules().ToMolfile(ctx, req)
}

func (r *remoteToolkit) FromMolfile(ctx context.Context, req *molecule.MolfileRequest) (*molecule.CanonicalResponse, error) {
	return r.c.Molecules().FromMolfile(ctx, req)
}

func (r *remoteToolkit) Cap(ctx context.Context, req *molecule.NotationRequest) (*molecule.CanonicalResponse, error) {
	return r.c.Molecules().Cap(ctx, req)
}

func (r *remoteToolkit) Merge(ctx context.Context, req *molecule.MergeRequest) (*molecule.MergeResponse, error) {
	return r.c.Molecules().Merge(ctx, req)
}

func (r *remoteToolkit) CreateFragment(ctx context.Context, req *molecule.FragmentRequest) (*molecule.Fragment, error) {
	return r.c.Fragments().Create(ctx, req)
}

func (r *remoteToolkit) GetFragment(ctx context.Context, ref string) (*molecule.Fragment, error) {
	return r.c.Fragments().Get(ctx, ref)
}

func (r *remoteToolkit) ListFragments(ctx context.Context, page, pageSize int) (*molecule.FragmentList, error) {
	return r.c.Fragments().List(ctx, page, pageSize)
}

// DeleteFragment accepts a name as well as an id; the server only deletes by id.
func (r *remoteToolkit) DeleteFragment(ctx context.Context, ref string) error {
	f, err := r.c.Fragments().Get(ctx, ref)
	if err != nil {
		return err
	}
	return r.c.Fragments().Delete(ctx, f.ID)
}

type localToolkit struct {
	svc appMol.Service
}

// NewLocalToolkit runs commands in-process against svc.
func NewLocalToolkit(svc appMol.Service) Toolkit { return &localToolkit{svc: svc} }

func (l *localToolkit) Engine(context.Context) (string, error) { return l.svc.Engine(), nil }

func (l *localToolkit) Validate(ctx context.Context, req *molecule.NotationRequest) (*molecule.ValidateResponse, error) {
	res, err := l.svc.Validate(ctx, notationInput(req))
	if err != nil {
		return nil, err
	}
	return &molecule.ValidateResponse{Notation: res.Notation, Valid: res.Valid, Reason: res.Reason}, nil
}

func (l *localToolkit) Canonicalize(ctx context.Context, req *molecule.NotationRequest) (*molecule.CanonicalResponse, error) {
	return canonical(l.svc.Canonicalize(ctx, notationInput(req)))
}

func (l *localToolkit) Info(ctx context.Context, req *molecule.NotationRequest) (*molecule.InfoResponse, error) {
	res, err := l.svc.Info(ctx, notationInput(req))
	if err != nil {
		return nil, err
	}
	return &molecule.InfoResponse{Notation: res.Notation, Info: info(res.Info)}, nil
}

func (l *localToolkit) ToMolfile(ctx context.Context, req *molecule.NotationRequest) (*molecule.MolfileResponse, error) {
	res, err := l.svc.ToMolfile(ctx, notationInput(req))
	if err != nil {
		return nil, err
	}
	return &molecule.MolfileResponse{Notation: res.Notation, Molfile: res.Molfile}, nil
}

func (l *localToolkit) FromMolfile(ctx context.Context, req *molecule.MolfileRequest) (*molecule.CanonicalResponse, error) {
	in := &appMol.MolfileInput{}
	if req != nil {
		in.Molfile = req.Molfile
		in.Attachments = attachments(req.Attachments)
	}
	return canonical(l.svc.FromMolfile(ctx, in))
}

func (l *localToolkit) Cap(ctx context.Context, req *molecule.NotationRequest) (*molecule.CanonicalResponse, error) {
	return canonical(l.svc.Cap(ctx, notationInput(req)))
}

func (l *localToolkit) Merge(ctx context.Context, req *molecule.MergeRequest) (*molecule.MergeResponse, error) {
	in := &appMol.MergeInput{}
	if req != nil {
		in.Left = operand(req.Left)
		in.Right = operand(req.Right)
		in.CapAfter = req.CapAfter
	}
	res, err := l.svc.Merge(ctx, in)
	if err != nil {
		return nil, err
	}
	return &molecule.MergeResponse{
		MoleculeID: string(res.MoleculeID),
		Notation:   res.Notation,
		Info:       info(res.Info),
		EventID:    res.EventID,
		SelfMerge:  res.SelfMerge,
		Published:  res.Published,
	}, nil
}

func (l *localToolkit) CreateFragment(ctx context.Context, req *molecule.FragmentRequest) (*molecule.Fragment, error) {
	in := &appMol.FragmentInput{}
	if req != nil {
		in.Name = req.Name
		in.Notation = req.Notation
		in.Attachments = attachments(req.Attachments)
	}
	f, err := l.svc.CreateFragment(ctx, in)
	if err != nil {
		return nil, err
	}
	return fragment(f), nil
}

func (l *localToolkit) GetFragment(ctx context.Context, ref string) (*molecule.Fragment, error) {
	f, err := l.svc.GetFragment(ctx, ref)
	if err != nil {
		return nil, err
	}
	return fragment(f), nil
}

func (l *localToolkit) ListFragments(ctx context.Context, page, pageSize int) (*molecule.FragmentList, error) {
	list, err := l.svc.ListFragments(ctx, page, pageSize)
	if err != nil {
		return nil, err
	}
	out := &molecule.FragmentList{
		Fragments: make([]molecule.Fragment, 0, len(list.Fragments)),
		Pagination: molecule.Page{
			Page:     list.Pagination.Page,
			PageSize: list.Pagination.PageSize,
			Total:    list.Pagination.Total,
		},
	}
	for _, f := range list.Fragments {
		out.Fragments = append(out.Fragments, *fragment(f))
	}
	return out, nil
}

func (l *localToolkit) DeleteFragment(ctx context.Context, ref string) error {
	f, err := l.svc.GetFragment(ctx, ref)
	if err != nil {
		return err
	}
	return l.svc.DeleteFragment(ctx, string(f.ID))
}

func canonical(res *appMol.CanonicalResult, err error) (*molecule.CanonicalResponse, error) {
	if err != nil {
		return nil, err
	}
	return &molecule.CanonicalResponse{Input: res.Input, Notation: res.Notation, Cached: res.Cached}, nil
}

func notationInput(req *molecule.NotationRequest) *appMol.NotationInput {
	if req == nil {
		return nil
	}
	return &appMol.NotationInput{Notation: req.Notation, Attachments: attachments(req.Attachments)}
}

func operand(op molecule.MergeOperand) appMol.MergeOperand {
	return appMol.MergeOperand{
		NotationInput: appMol.NotationInput{Notation: op.Notation, Attachments: attachments(op.Attachments)},
		Fragment:      op.Fragment,
		Site:          op.Site,
	}
}

func attachments(in []molecule.Attachment) []domainMol.Attachment {
	if len(in) == 0 {
		return nil
	}
	out := make([]domainMol.Attachment, len(in))
	for i, a := range in {
		out[i] = domainMol.Attachment{ID: a.ID, Label: a.Label, CapGroup: a.CapGroup, Notation: a.Notation}
	}
	return out
}

func wireAttachments(in []domainMol.Attachment) []molecule.Attachment {
	out := make([]molecule.Attachment, len(in))
	for i, a := range in {
		out[i] = molecule.Attachment{ID: a.ID, Label: a.Label, CapGroup: a.CapGroup, Notation: a.Notation}
	}
	return out
}

func info(in *domainMol.Info) *molecule.Info {
	if in == nil {
		return nil
	}
	return &molecule.Info{
		Formula:         in.Formula,
		MolecularWeight: in.MolecularWeight,
		ExactMass:       in.ExactMass,
		AtomCount:       in.AtomCount,
		HeavyAtomCount:  in.HeavyAtomCount,
		BondCount:       in.BondCount,
		OpenSites:       in.OpenSites,
	}
}

func fragment(f *domainMol.Fragment) *molecule.Fragment {
	return &molecule.Fragment{
		ID:          string(f.ID),
		Name:        f.Name,
		Notation:    f.Notation,
		Attachments: wireAttachments(f.Attachments),
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
}
