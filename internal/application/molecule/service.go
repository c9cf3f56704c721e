// Package molecule is the application service of the toolkit.  HTTP, CLI
// and worker entry points call it; it orchestrates the engine, the fragment
// library, the canonical cache, the event stream and the artifact store.
package molecule

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/google/uuid"

	domainMol "github.com/ClairePA/ChemistryToolkit/internal/domain/molecule"
	"github.com/ClairePA/ChemistryToolkit/internal/infrastructure/messaging/kafka"
	"github.com/ClairePA/ChemistryToolkit/internal/infrastructure/monitoring/logging"
	"github.com/ClairePA/ChemistryToolkit/internal/infrastructure/monitoring/prometheus"
	storage "github.com/ClairePA/ChemistryToolkit/internal/infrastructure/storage/minio"
	"github.com/ClairePA/ChemistryToolkit/pkg/errors"
	"github.com/ClairePA/ChemistryToolkit/pkg/types/common"
)

// Service defines the toolkit operations.
type Service interface {
	Validate(ctx context.Context, input *NotationInput) (*ValidateResult, error)
	Canonicalize(ctx context.Context, input *NotationInput) (*CanonicalResult, error)
	Info(ctx context.Context, input *NotationInput) (*InfoResult, error)
	ToMolfile(ctx context.Context, input *NotationInput) (*MolfileResult, error)
	FromMolfile(ctx context.Context, input *MolfileInput) (*CanonicalResult, error)
	Merge(ctx context.Context, input *MergeInput) (*MergeResult, error)
	Cap(ctx context.Context, input *NotationInput) (*CanonicalResult, error)
	Export(ctx context.Context, input *ExportInput) (*ExportResult, error)
	Lineage(ctx context.Context, notation string, depth int) ([]string, error)

	CreateFragment(ctx context.Context, input *FragmentInput) (*domainMol.Fragment, error)
	GetFragment(ctx context.Context, idOrName string) (*domainMol.Fragment, error)
	ListFragments(ctx context.Context, page, pageSize int) (*FragmentList, error)
	DeleteFragment(ctx context.Context, id string) error

	// Engine is the registry name of the chemistry engine in use.
	Engine() string
}

// CanonicalCache memoises canonical notations per engine.
type CanonicalCache interface {
	GetOrLoad(ctx context.Context, engine, notation string, load func(context.Context) (string, error)) (string, bool, error)
}

// MergePublisher emits merge events.
type MergePublisher interface {
	PublishMerged(ctx context.Context, ev domainMol.MoleculeMergedEvent) error
}

// ArtifactStore keeps exported files.
type ArtifactStore interface {
	Put(ctx context.Context, id common.ID, f storage.Format, content []byte) (*storage.Artifact, error)
	URL(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// Deps are the collaborators of the service.  Engine is required; every
// other field may be nil, which disables the features that need it.
type Deps struct {
	Engine    domainMol.Manipulator
	Fragments domainMol.FragmentRepository
	Lineage   domainMol.LineageStore
	Cache     CanonicalCache
	Events    MergePublisher
	Artifacts ArtifactStore
	Metrics   *prometheus.ToolkitMetrics
	Logger    logging.Logger
}

type serviceImpl struct {
	engine    domainMol.Manipulator
	merger    *domainMol.Merger
	fragments domainMol.FragmentRepository
	lineage   domainMol.LineageStore
	cache     CanonicalCache
	events    MergePublisher
	artifacts ArtifactStore
	metrics   *prometheus.ToolkitMetrics
	logger    logging.Logger
}

// NewService creates the toolkit service.
func NewService(d Deps) (Service, error) {
	if d.Engine == nil {
		return nil, errors.New(errors.ErrCodeManipulatorUnknown, "no chemistry engine configured")
	}
	if d.Logger == nil {
		d.Logger = logging.NewNopLogger()
	}
	return &serviceImpl{
		engine:    d.Engine,
		merger:    domainMol.NewMerger(d.Engine),
		fragments: d.Fragments,
		lineage:   d.Lineage,
		cache:     d.Cache,
		events:    d.Events,
		artifacts: d.Artifacts,
		metrics:   d.Metrics,
		logger:    d.Logger.Named("toolkit"),
	}, nil
}

func (s *serviceImpl) Engine() string { return s.engine.Name() }

func (s *serviceImpl) observe(op string, start time.Time, err error) {
	prometheus.RecordOperation(s.metrics, op, err, time.Since(start))
}

func (s *serviceImpl) Validate(ctx context.Context, input *NotationInput) (res *ValidateResult, err error) {
	defer func(t time.Time) { s.observe("validate", t, err) }(time.Now())
	if err := input.validate(); err != nil {
		return nil, err
	}
	if s.engine.Validate(input.Notation) {
		return &ValidateResult{Notation: input.Notation, Valid: true}, nil
	}
	res = &ValidateResult{Notation: input.Notation}
	if _, perr := s.engine.Molecule(input.Notation, nil); perr != nil {
		res.Reason = reason(perr)
	}
	return res, nil
}

func (s *serviceImpl) Canonicalize(ctx context.Context, input *NotationInput) (res *CanonicalResult, err error) {
	defer func(t time.Time) { s.observe("canonicalize", t, err) }(time.Now())
	if err := input.validate(); err != nil {
		return nil, err
	}

	load := func(context.Context) (string, error) {
		m, err := s.engine.Molecule(input.Notation, input.attachmentList())
		if err != nil {
			return "", err
		}
		return s.engine.CanonicalNotation(m)
	}

	if s.cache == nil || len(input.Attachments) > 0 {
		canonical, err := load(ctx)
		if err != nil {
			return nil, err
		}
		return &CanonicalResult{Input: input.Notation, Notation: canonical}, nil
	}

	canonical, hit, err := s.cache.GetOrLoad(ctx, s.engine.Name(), input.Notation, load)
	if err != nil {
		return nil, err
	}
	prometheus.RecordCacheAccess(s.metrics, "canonical", hit)
	return &CanonicalResult{Input: input.Notation, Notation: canonical, Cached: hit}, nil
}

func (s *serviceImpl) Info(ctx context.Context, input *NotationInput) (res *InfoResult, err error) {
	defer func(t time.Time) { s.observe("info", t, err) }(time.Now())
	m, err := s.parse(input)
	if err != nil {
		return nil, err
	}
	canonical, err := s.engine.CanonicalNotation(m)
	if err != nil {
		return nil, err
	}
	return &InfoResult{Notation: canonical, Info: domainMol.ComputeInfo(m)}, nil
}

func (s *serviceImpl) ToMolfile(ctx context.Context, input *NotationInput) (res *MolfileResult, err error) {
	defer func(t time.Time) { s.observe("to_molfile", t, err) }(time.Now())
	m, err := s.parse(input)
	if err != nil {
		return nil, err
	}
	mol, err := s.engine.ToMolfile(m)
	if err != nil {
		return nil, err
	}
	return &MolfileResult{Notation: input.Notation, Molfile: mol}, nil
}

func (s *serviceImpl) FromMolfile(ctx context.Context, input *MolfileInput) (res *CanonicalResult, err error) {
	defer func(t time.Time) { s.observe("from_molfile", t, err) }(time.Now())
	if input == nil || input.Molfile == "" {
		return nil, errors.InvalidParam("molfile is required")
	}
	m, err := s.engine.FromMolfile(input.Molfile, domainMol.NewAttachmentList(input.Attachments...))
	if err != nil {
		return nil, err
	}
	canonical, err := s.engine.CanonicalNotation(m)
	if err != nil {
		return nil, err
	}
	return &CanonicalResult{Notation: canonical}, nil
}

func (s *serviceImpl) Cap(ctx context.Context, input *NotationInput) (res *CanonicalResult, err error) {
	defer func(t time.Time) { s.observe("cap", t, err) }(time.Now())
	m, err := s.parse(input)
	if err != nil {
		return nil, err
	}
	capped, err := domainMol.CapOpenSites(s.engine, s.merger, m)
	if err != nil {
		return nil, err
	}
	canonical, err := s.engine.CanonicalNotation(capped)
	if err != nil {
		return nil, err
	}
	return &CanonicalResult{Input: input.Notation, Notation: canonical}, nil
}

// Merge builds the operands, joins them and publishes the event.  A publish
// failure is logged and reported in the result; the merge itself stands.
func (s *serviceImpl) Merge(ctx context.Context, input *MergeInput) (res *MergeResult, err error) {
	start := time.Now()
	defer func() {
		prometheus.RecordMerge(s.metrics, s.engine.Name(), mergeOutcome(err), time.Since(start))
	}()
	if input == nil {
		return nil, errors.InvalidParam("merge input is required")
	}

	a, err := s.operand(ctx, &input.Left)
	if err != nil {
		return nil, err
	}
	b := a
	if !input.SelfMerge() {
		if b, err = s.operand(ctx, &input.Right); err != nil {
			return nil, err
		}
	}

	siteA, err := s.engine.RGroupAtom(a, input.Left.Site, true)
	if err != nil {
		return nil, err
	}
	siteB, err := s.engine.RGroupAtom(b, input.Right.Site, true)
	if err != nil {
		return nil, err
	}
	left := side(a, siteA)
	right := side(b, siteB)

	result, err := s.merger.Merge(a, siteA, b, siteB)
	if err != nil {
		s.logger.Debug("merge rejected",
			logging.String("left", left.Notation), logging.String("left_site", left.Site),
			logging.String("right", right.Notation), logging.String("right_site", right.Site),
			logging.Err(err))
		return nil, err
	}
	if input.CapAfter {
		if result, err = domainMol.CapOpenSites(s.engine, s.merger, result); err != nil {
			return nil, err
		}
	}

	canonical, err := s.engine.CanonicalNotation(result)
	if err != nil {
		return nil, err
	}
	ev := domainMol.NewMoleculeMergedEvent(s.engine.Name(), result, left, right, canonical)
	res = &MergeResult{
		MoleculeID: result.ID(),
		Notation:   canonical,
		Info:       domainMol.ComputeInfo(result),
		EventID:    ev.EventID(),
		SelfMerge:  ev.SelfMerge,
	}

	if s.events != nil {
		perr := s.events.PublishMerged(ctx, ev)
		prometheus.RecordPublish(s.metrics, kafka.TopicMoleculeMerged, perr)
		if perr != nil {
			s.logger.Warn("failed to publish merge event", logging.String("event_id", ev.EventID()), logging.Err(perr))
		} else {
			res.Published = true
		}
	}
	return res, nil
}

func (s *serviceImpl) Export(ctx context.Context, input *ExportInput) (res *ExportResult, err error) {
	defer func(t time.Time) { s.observe("export", t, err) }(time.Now())
	if s.artifacts == nil {
		return nil, errors.New(errors.ErrCodeFeatureDisabled, "artifact storage is disabled")
	}
	if input == nil {
		return nil, errors.InvalidParam("export input is required")
	}
	format, err := storage.ParseFormat(input.Format)
	if err != nil {
		return nil, err
	}
	m, err := s.parse(&input.NotationInput)
	if err != nil {
		return nil, err
	}

	var content string
	if format == storage.FormatMolfile {
		content, err = s.engine.ToMolfile(m)
	} else {
		content, err = s.engine.CanonicalNotation(m)
	}
	if err != nil {
		return nil, err
	}

	art, err := s.artifacts.Put(ctx, m.ID(), format, []byte(content))
	if err != nil {
		return nil, err
	}
	res = &ExportResult{Artifact: art}
	if input.URLExpiry > 0 {
		if res.URL, err = s.artifacts.URL(ctx, art.Key, input.URLExpiry); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func (s *serviceImpl) Lineage(ctx context.Context, notation string, depth int) ([]string, error) {
	if s.lineage == nil {
		return nil, errors.New(errors.ErrCodeFeatureDisabled, "lineage graph is disabled")
	}
	return s.lineage.Ancestors(ctx, notation, depth)
}

func (s *serviceImpl) CreateFragment(ctx context.Context, input *FragmentInput) (*domainMol.Fragment, error) {
	if s.fragments == nil {
		return nil, errors.New(errors.ErrCodeFeatureDisabled, "fragment library is disabled")
	}
	if input == nil {
		return nil, errors.InvalidParam("fragment input is required")
	}
	f, err := domainMol.NewFragment(input.Name, input.Notation, input.Attachments)
	if err != nil {
		return nil, err
	}
	if _, err := s.engine.Molecule(f.Notation, f.AttachmentList()); err != nil {
		return nil, err
	}
	if err := s.fragments.Save(ctx, f); err != nil {
		return nil, err
	}
	s.logger.Info("fragment created", logging.String("id", string(f.ID)), logging.String("name", f.Name))
	return f, nil
}

// GetFragment accepts a fragment id or a fragment name.
func (s *serviceImpl) GetFragment(ctx context.Context, idOrName string) (*domainMol.Fragment, error) {
	if s.fragments == nil {
		return nil, errors.New(errors.ErrCodeFeatureDisabled, "fragment library is disabled")
	}
	if idOrName == "" {
		return nil, errors.InvalidParam("fragment id or name is required")
	}
	if _, err := uuid.Parse(idOrName); err == nil {
		return s.fragments.FindByID(ctx, common.ID(idOrName))
	}
	return s.fragments.FindByName(ctx, idOrName)
}

func (s *serviceImpl) ListFragments(ctx context.Context, page, pageSize int) (*FragmentList, error) {
	if s.fragments == nil {
		return nil, errors.New(errors.ErrCodeFeatureDisabled, "fragment library is disabled")
	}
	p := common.Pagination{Page: page, PageSize: pageSize}
	if p.Page <= 0 {
		p.Page = 1
	}
	if p.PageSize <= 0 {
		p.PageSize = 20
	}
	if err := p.Validate(); err != nil {
		return nil, errors.InvalidParam(err.Error())
	}
	items, total, err := s.fragments.List(ctx, p.PageSize, p.Offset())
	if err != nil {
		return nil, err
	}
	p.Total = total
	return &FragmentList{Fragments: items, Pagination: p}, nil
}

func (s *serviceImpl) DeleteFragment(ctx context.Context, id string) error {
	if s.fragments == nil {
		return errors.New(errors.ErrCodeFeatureDisabled, "fragment library is disabled")
	}
	fid := common.ID(id)
	if err := fid.Validate(); err != nil {
		return errors.InvalidParam(err.Error())
	}
	return s.fragments.Delete(ctx, fid)
}

func (s *serviceImpl) parse(input *NotationInput) (*domainMol.Molecule, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	return s.engine.Molecule(input.Notation, input.attachmentList())
}

// operand parses op, taking notation and attachments from the fragment
// library when op names a fragment.  Explicit attachments are added to the
// fragment's own.
func (s *serviceImpl) operand(ctx context.Context, op *MergeOperand) (*domainMol.Molecule, error) {
	if op.Fragment == "" {
		return s.parse(&op.NotationInput)
	}
	f, err := s.GetFragment(ctx, op.Fragment)
	if err != nil {
		return nil, err
	}
	list := f.AttachmentList()
	for _, a := range op.Attachments {
		list.Add(a)
	}
	op.Notation = f.Notation
	return s.engine.Molecule(f.Notation, list)
}

func side(m *domainMol.Molecule, site *domainMol.AttachmentPoint) domainMol.MergeSide {
	return domainMol.MergeSide{
		MoleculeID: m.ID(),
		Notation:   m.Notation(),
		Site:       site.Label(),
		CapGroup:   site.CapGroup(),
	}
}

func mergeOutcome(err error) string {
	switch {
	case err == nil:
		return prometheus.MergeResultOK
	case errors.IsCode(err, errors.ErrCodeRGroupNotFound):
		return prometheus.MergeResultNotFound
	case errors.IsCode(err, errors.ErrCodeRGroupConsumed):
		return prometheus.MergeResultConsumed
	case errors.IsCode(err, errors.ErrCodeRGroupIncompatible):
		return prometheus.MergeResultIncompatible
	default:
		return prometheus.MergeResultError
	}
}

func reason(err error) string {
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		if appErr.Detail != "" {
			return appErr.Message + ": " + appErr.Detail
		}
		return appErr.Message
	}
	return err.Error()
}
