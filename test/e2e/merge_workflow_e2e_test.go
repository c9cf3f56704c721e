package e2e_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ClairePA/ChemistryToolkit/pkg/client"
	"github.com/ClairePA/ChemistryToolkit/pkg/errors"
	"github.com/ClairePA/ChemistryToolkit/pkg/types/molecule"
)

func TestEngineReported(t *testing.T) {
	name, err := env.sdk.Molecules().Engine(testContext(t))
	require.NoError(t, err)
	assert.NotEmpty(t, name)
}

func TestNotationRoundTrip(t *testing.T) {
	ctx := testContext(t)
	mols := env.sdk.Molecules()

	canon, err := mols.Canonicalize(ctx, &molecule.NotationRequest{Notation: "OCC"})
	require.NoError(t, err)

	mol, err := mols.ToMolfile(ctx, &molecule.NotationRequest{Notation: canon.Notation})
	require.NoError(t, err)
	assert.Contains(t, mol.Molfile, "V2000")

	back, err := mols.FromMolfile(ctx, &molecule.MolfileRequest{Molfile: mol.Molfile})
	require.NoError(t, err)
	assert.Equal(t, canon.Notation, back.Notation)
}

func TestMergeFromLibraryFragments(t *testing.T) {
	ctx := testContext(t)
	frags := env.sdk.Fragments()

	methyl := uniqueName("methyl")
	hydroxy := uniqueName("hydroxy")
	m, err := frags.Create(ctx, &molecule.FragmentRequest{Name: methyl, Notation: "C[*] |$;_R1$|"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = frags.Delete(ctx, m.ID) })
	h, err := frags.Create(ctx, &molecule.FragmentRequest{Name: hydroxy, Notation: "O[*] |$;_R2$|"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = frags.Delete(ctx, h.ID) })

	res, err := env.sdk.Molecules().Merge(ctx, &molecule.MergeRequest{
		Left:  molecule.MergeOperand{Fragment: methyl, Site: 1},
		Right: molecule.MergeOperand{Fragment: hydroxy, Site: 2},
	})
	require.NoError(t, err)
	assert.Equal(t, "CO", res.Notation)
	require.NotNil(t, res.Info)
	assert.Equal(t, "CH4O", res.Info.Formula)
	assert.Empty(t, res.Info.OpenSites)
	assert.False(t, res.SelfMerge)

	_, err = frags.Create(ctx, &molecule.FragmentRequest{Name: methyl, Notation: "C[*] |$;_R1$|"})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeFragmentAlreadyExists))
}

func TestMergeCapsRemainingSites(t *testing.T) {
	res, err := env.sdk.Molecules().Merge(testContext(t), &molecule.MergeRequest{
		Left: molecule.MergeOperand{
			Notation: "[*]CC[*] |$_R1;;;_R2$|",
			Site:     1,
			Attachments: []molecule.Attachment{
				{ID: "R2-OH", Label: "R2", CapGroup: "OH", Notation: "O[*] |$;_R2$|"},
			},
		},
		Right:    molecule.MergeOperand{Notation: "C[*] |$;_R1$|", Site: 1},
		CapAfter: true,
	})
	require.NoError(t, err)
	require.NotNil(t, res.Info)
	assert.Empty(t, res.Info.OpenSites)
	assert.Equal(t, "C3H8O", res.Info.Formula)
}

func TestMergeRejectsMissingSite(t *testing.T) {
	_, err := env.sdk.Molecules().Merge(testContext(t), &molecule.MergeRequest{
		Left:  molecule.MergeOperand{Notation: "C[*] |$;_R1$|", Site: 3},
		Right: molecule.MergeOperand{Notation: "O[*] |$;_R2$|", Site: 2},
	})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeRGroupNotFound))

	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
}

func TestMalformedBodyIsBadRequest(t *testing.T) {
	status, out := postRaw[molecule.CanonicalResponse](t, "/api/v1/molecules/canonicalize", map[string]int{"notation": 5})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.False(t, out.Success)
	require.NotNil(t, out.Error)
}

func TestLineageDisabledInMemory(t *testing.T) {
	if !env.embedded {
		t.Skip("lineage availability depends on the deployment")
	}
	_, err := env.sdk.Molecules().Lineage(testContext(t), "CO", 2)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeFeatureDisabled))
}
