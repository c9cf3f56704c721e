package molecule

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	domainMol "github.com/ClairePA/ChemistryToolkit/internal/domain/molecule"
	"github.com/ClairePA/ChemistryToolkit/internal/infrastructure/chemistry/builtin"
	storage "github.com/ClairePA/ChemistryToolkit/internal/infrastructure/storage/minio"
	pkgerrors "github.com/ClairePA/ChemistryToolkit/pkg/errors"
	"github.com/ClairePA/ChemistryToolkit/pkg/types/common"
)

const riboseNotation = "O[C@H]1[C@H]([*])O[C@H](CO[*])[C@H]1O[*] |$;;;_R3;;;;;_R1;;;_R2$|"

func riboseAttachments() []domainMol.Attachment {
	return []domainMol.Attachment{
		{ID: "R1-H", Label: "R1", CapGroup: "H", Notation: "[*][H] |$_R1;$|"},
		{ID: "R2-H", Label: "R2", CapGroup: "H", Notation: "[*][H] |$_R2;$|"},
		{ID: "R3-OH", Label: "R3", CapGroup: "OH", Notation: "O[*] |$;_R3$|"},
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Mocks
// ─────────────────────────────────────────────────────────────────────────────

type MockFragmentRepository struct {
	mock.Mock
}

func (m *MockFragmentRepository) Save(ctx context.Context, f *domainMol.Fragment) error {
	return m.Called(ctx, f).Error(0)
}

func (m *MockFragmentRepository) FindByID(ctx context.Context, id common.ID) (*domainMol.Fragment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domainMol.Fragment), args.Error(1)
}

func (m *MockFragmentRepository) FindByName(ctx context.Context, name string) (*domainMol.Fragment, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domainMol.Fragment), args.Error(1)
}

func (m *MockFragmentRepository) List(ctx context.Context, limit, offset int) ([]*domainMol.Fragment, int64, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]*domainMol.Fragment), args.Get(1).(int64), args.Error(2)
}

func (m *MockFragmentRepository) Delete(ctx context.Context, id common.ID) error {
	return m.Called(ctx, id).Error(0)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishMerged(ctx context.Context, ev domainMol.MoleculeMergedEvent) error {
	return m.Called(ctx, ev).Error(0)
}

type MockCache struct {
	mock.Mock
}

func (m *MockCache) GetOrLoad(ctx context.Context, engine, notation string, load func(context.Context) (string, error)) (string, bool, error) {
	args := m.Called(ctx, engine, notation)
	if args.Bool(1) {
		return args.String(0), true, args.Error(2)
	}
	v, err := load(ctx)
	return v, false, err
}

type MockArtifactStore struct {
	mock.Mock
}

func (m *MockArtifactStore) Put(ctx context.Context, id common.ID, f storage.Format, content []byte) (*storage.Artifact, error) {
	args := m.Called(ctx, id, f, content)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storage.Artifact), args.Error(1)
}

func (m *MockArtifactStore) URL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	args := m.Called(ctx, key, expiry)
	return args.String(0), args.Error(1)
}

type MockLineageStore struct {
	mock.Mock
}

func (m *MockLineageStore) RecordMerge(ctx context.Context, e domainMol.MoleculeMergedEvent) error {
	return m.Called(ctx, e).Error(0)
}

func (m *MockLineageStore) Ancestors(ctx context.Context, notation string, depth int) ([]string, error) {
	args := m.Called(ctx, notation, depth)
	return args.Get(0).([]string), args.Error(1)
}

func newTestService(t *testing.T, d Deps) Service {
	t.Helper()
	d.Engine = builtin.New(nil, nil)
	svc, err := NewService(d)
	require.NoError(t, err)
	return svc
}

// ─────────────────────────────────────────────────────────────────────────────
// Tests
// ─────────────────────────────────────────────────────────────────────────────

func TestNewService_RequiresEngine(t *testing.T) {
	_, err := NewService(Deps{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeManipulatorUnknown))
}

func TestValidate(t *testing.T) {
	svc := newTestService(t, Deps{})
	ctx := context.Background()

	res, err := svc.Validate(ctx, &NotationInput{Notation: "CCO"})
	require.NoError(t, err)
	assert.True(t, res.Valid)

	res, err = svc.Validate(ctx, &NotationInput{Notation: "C1CC"})
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.NotEmpty(t, res.Reason)

	_, err = svc.Validate(ctx, &NotationInput{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeBadRequest))
}

func TestCanonicalize_UsesCache(t *testing.T) {
	cache := new(MockCache)
	svc := newTestService(t, Deps{Cache: cache})
	ctx := context.Background()

	cache.On("GetOrLoad", ctx, "builtin", "NC(=O)CO").Return("", false, nil).Once()
	cache.On("GetOrLoad", ctx, "builtin", "OCC(=O)N").Return("cached-form", true, nil).Once()

	miss, err := svc.Canonicalize(ctx, &NotationInput{Notation: "NC(=O)CO"})
	require.NoError(t, err)
	assert.False(t, miss.Cached)
	assert.NotEmpty(t, miss.Notation)

	hit, err := svc.Canonicalize(ctx, &NotationInput{Notation: "OCC(=O)N"})
	require.NoError(t, err)
	assert.True(t, hit.Cached)
	assert.Equal(t, "cached-form", hit.Notation)
	cache.AssertExpectations(t)
}

func TestCanonicalize_WithoutCache(t *testing.T) {
	svc := newTestService(t, Deps{})
	a, err := svc.Canonicalize(context.Background(), &NotationInput{Notation: "OCC(=O)N"})
	require.NoError(t, err)
	b, err := svc.Canonicalize(context.Background(), &NotationInput{Notation: "NC(=O)CO"})
	require.NoError(t, err)
	assert.Equal(t, a.Notation, b.Notation)

	_, err = svc.Canonicalize(context.Background(), &NotationInput{Notation: "C(("})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeNotation))
}

func TestInfoAndMolfileRoundTrip(t *testing.T) {
	svc := newTestService(t, Deps{})
	ctx := context.Background()
	in := &NotationInput{Notation: riboseNotation, Attachments: riboseAttachments()}

	info, err := svc.Info(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, []string{"R1", "R2", "R3"}, info.Info.OpenSites)

	mol, err := svc.ToMolfile(ctx, in)
	require.NoError(t, err)
	assert.Contains(t, mol.Molfile, "M  RGP")

	back, err := svc.FromMolfile(ctx, &MolfileInput{Molfile: mol.Molfile, Attachments: riboseAttachments()})
	require.NoError(t, err)
	assert.Equal(t, info.Notation, back.Notation)
}

func TestCap_Ribose(t *testing.T) {
	svc := newTestService(t, Deps{})
	res, err := svc.Cap(context.Background(), &NotationInput{Notation: riboseNotation, Attachments: riboseAttachments()})
	require.NoError(t, err)
	assert.NotContains(t, res.Notation, "*")

	info, err := svc.Info(context.Background(), &NotationInput{Notation: res.Notation})
	require.NoError(t, err)
	assert.Equal(t, "C5H10O5", info.Info.Formula)
}

func TestMerge_PublishesEvent(t *testing.T) {
	pub := new(MockPublisher)
	svc := newTestService(t, Deps{Events: pub})
	ctx := context.Background()

	pub.On("PublishMerged", ctx, mock.MatchedBy(func(ev domainMol.MoleculeMergedEvent) bool {
		return ev.Engine == "builtin" && ev.Left.Site == "R1" && ev.Right.Site == "R2" && !ev.SelfMerge
	})).Return(nil).Once()

	res, err := svc.Merge(ctx, &MergeInput{
		Left:  MergeOperand{NotationInput: NotationInput{Notation: "C[*] |$;_R1$|"}, Site: 1},
		Right: MergeOperand{NotationInput: NotationInput{Notation: "O[*] |$;_R2$|"}, Site: 2},
	})
	require.NoError(t, err)
	assert.Equal(t, "CO", res.Notation)
	assert.True(t, res.Published)
	assert.NotEmpty(t, res.EventID)
	assert.Equal(t, "CH4O", res.Info.Formula)
	pub.AssertExpectations(t)
}

func TestMerge_PublishFailureDoesNotFailMerge(t *testing.T) {
	pub := new(MockPublisher)
	svc := newTestService(t, Deps{Events: pub})
	pub.On("PublishMerged", mock.Anything, mock.Anything).Return(errors.New("broker down"))

	res, err := svc.Merge(context.Background(), &MergeInput{
		Left:  MergeOperand{NotationInput: NotationInput{Notation: "C[*] |$;_R1$|"}, Site: 1},
		Right: MergeOperand{NotationInput: NotationInput{Notation: "N[*] |$;_R1$|"}, Site: 1},
	})
	require.NoError(t, err)
	assert.False(t, res.Published)
}

func TestMerge_SelfMergeClosesRing(t *testing.T) {
	svc := newTestService(t, Deps{})
	res, err := svc.Merge(context.Background(), &MergeInput{
		Left:  MergeOperand{NotationInput: NotationInput{Notation: "[*]CCCC[*] |$_R1;;;;;_R2$|"}, Site: 1},
		Right: MergeOperand{Site: 2},
	})
	require.NoError(t, err)
	assert.True(t, res.SelfMerge)
	assert.Equal(t, "C1CCC1", res.Notation)
}

func TestMerge_Errors(t *testing.T) {
	svc := newTestService(t, Deps{})
	ribose := NotationInput{Notation: riboseNotation, Attachments: riboseAttachments()}

	tests := []struct {
		name string
		in   *MergeInput
		code pkgerrors.ErrorCode
	}{
		{"nil input", nil, pkgerrors.ErrCodeBadRequest},
		{"missing site", &MergeInput{
			Left:  MergeOperand{NotationInput: ribose, Site: 7},
			Right: MergeOperand{NotationInput: ribose, Site: 1},
		}, pkgerrors.ErrCodeRGroupNotFound},
		{"same site self merge", &MergeInput{
			Left:  MergeOperand{NotationInput: ribose, Site: 3},
			Right: MergeOperand{Site: 3},
		}, pkgerrors.ErrCodeRGroupConsumed},
		{"hydroxyl pair", &MergeInput{
			Left:  MergeOperand{NotationInput: ribose, Site: 3},
			Right: MergeOperand{NotationInput: ribose, Site: 3},
		}, pkgerrors.ErrCodeRGroupIncompatible},
		{"bad notation", &MergeInput{
			Left:  MergeOperand{NotationInput: NotationInput{Notation: "C(("}, Site: 1},
			Right: MergeOperand{NotationInput: ribose, Site: 1},
		}, pkgerrors.ErrCodeNotation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for i := 0; i < 2; i++ {
				res, err := svc.Merge(context.Background(), tt.in)
				assert.Nil(t, res)
				assert.True(t, pkgerrors.IsCode(err, tt.code), "attempt %d: %v", i, err)
			}
		})
	}
}

func TestMerge_FromFragmentLibrary(t *testing.T) {
	repo := new(MockFragmentRepository)
	svc := newTestService(t, Deps{Fragments: repo})
	ctx := context.Background()

	ribose, err := domainMol.NewFragment("ribose", riboseNotation, riboseAttachments())
	require.NoError(t, err)
	repo.On("FindByName", ctx, "ribose").Return(ribose, nil)

	res, err := svc.Merge(ctx, &MergeInput{
		Left:     MergeOperand{Fragment: "ribose", Site: 3},
		Right:    MergeOperand{Fragment: "ribose", Site: 1},
		CapAfter: true,
	})
	require.NoError(t, err)
	assert.Empty(t, res.Info.OpenSites)
	assert.Equal(t, "C10H18O9", res.Info.Formula)
}

func TestExport(t *testing.T) {
	store := new(MockArtifactStore)
	svc := newTestService(t, Deps{Artifacts: store})
	ctx := context.Background()

	art := &storage.Artifact{Key: "molecules/x.mol", Size: 10}
	store.On("Put", ctx, mock.AnythingOfType("common.ID"), storage.FormatMolfile, mock.MatchedBy(func(b []byte) bool {
		return len(b) > 0
	})).Return(art, nil)
	store.On("URL", ctx, "molecules/x.mol", time.Hour).Return("http://minio/x", nil)

	res, err := svc.Export(ctx, &ExportInput{NotationInput: NotationInput{Notation: "CCO"}, Format: "mol", URLExpiry: time.Hour})
	require.NoError(t, err)
	assert.Equal(t, art, res.Artifact)
	assert.Equal(t, "http://minio/x", res.URL)

	_, err = svc.Export(ctx, &ExportInput{NotationInput: NotationInput{Notation: "CCO"}, Format: "png"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeBadRequest))
}

func TestDisabledBackends(t *testing.T) {
	svc := newTestService(t, Deps{})
	ctx := context.Background()

	_, err := svc.Export(ctx, &ExportInput{NotationInput: NotationInput{Notation: "C"}, Format: "smi"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeFeatureDisabled))
	_, err = svc.Lineage(ctx, "C", 2)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeFeatureDisabled))
	_, err = svc.ListFragments(ctx, 1, 10)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeFeatureDisabled))
	assert.True(t, pkgerrors.IsCode(svc.DeleteFragment(ctx, string(common.NewID())), pkgerrors.ErrCodeFeatureDisabled))
}

func TestLineage(t *testing.T) {
	store := new(MockLineageStore)
	svc := newTestService(t, Deps{Lineage: store})
	store.On("Ancestors", mock.Anything, "CO", 3).Return([]string{"C[*]", "O[*]"}, nil)

	got, err := svc.Lineage(context.Background(), "CO", 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"C[*]", "O[*]"}, got)
}

func TestFragments(t *testing.T) {
	repo := new(MockFragmentRepository)
	svc := newTestService(t, Deps{Fragments: repo})
	ctx := context.Background()

	repo.On("Save", ctx, mock.AnythingOfType("*molecule.Fragment")).Return(nil).Once()
	f, err := svc.CreateFragment(ctx, &FragmentInput{Name: "ribose", Notation: riboseNotation, Attachments: riboseAttachments()})
	require.NoError(t, err)
	assert.Len(t, f.Attachments, 3)

	_, err = svc.CreateFragment(ctx, &FragmentInput{Name: "broken", Notation: "C(("})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeNotation))

	repo.On("FindByID", ctx, f.ID).Return(f, nil)
	got, err := svc.GetFragment(ctx, string(f.ID))
	require.NoError(t, err)
	assert.Equal(t, f, got)

	repo.On("FindByName", ctx, "missing").Return(nil, pkgerrors.New(pkgerrors.ErrCodeFragmentNotFound, "fragment not found"))
	_, err = svc.GetFragment(ctx, "missing")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeFragmentNotFound))

	repo.On("List", ctx, 10, 10).Return([]*domainMol.Fragment{f}, int64(11), nil)
	list, err := svc.ListFragments(ctx, 2, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(11), list.Pagination.Total)
	assert.Len(t, list.Fragments, 1)

	_, err = svc.ListFragments(ctx, 1, 1000)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeBadRequest))

	assert.True(t, pkgerrors.IsCode(svc.DeleteFragment(ctx, "not-a-uuid"), pkgerrors.ErrCodeBadRequest))
	repo.On("Delete", ctx, f.ID).Return(nil)
	assert.NoError(t, svc.DeleteFragment(ctx, string(f.ID)))
	repo.AssertExpectations(t)
}
