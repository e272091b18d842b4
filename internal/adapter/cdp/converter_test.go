package cdp

import (
	"encoding/json"
	"testing"

	"github.com/mafredri/cdp/devtool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"offerpilot/pkg/model"
)

func TestToCandidates(t *testing.T) {
	raw := json.RawMessage(`[{"label":"Enroll in Offer for Acme","enrolled":false},{"label":"Enroll in Offer for Bolt","enrolled":true},{"label":""}]`)

	got, err := ToCandidates(raw)

	require.NoError(t, err)
	assert.Equal(t, []model.Candidate{
		{Label: "Enroll in Offer for Acme"},
		{Label: "Enroll in Offer for Bolt", Enrolled: true},
		{Label: ""},
	}, got)
}

func TestToCandidatesNullAndInvalid(t *testing.T) {
	got, err := ToCandidates(json.RawMessage(`null`))
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = ToCandidates(json.RawMessage(`{"label":"x"}`))
	assert.Error(t, err)

	_, err = ToCandidates(json.RawMessage(`[{`))
	assert.Error(t, err)
}

func TestToBool(t *testing.T) {
	v, err := ToBool(json.RawMessage(`true`))
	require.NoError(t, err)
	assert.True(t, v)

	v, err = ToBool(json.RawMessage(`null`))
	require.NoError(t, err)
	assert.False(t, v)

	_, err = ToBool(json.RawMessage(`"yes"`))
	assert.Error(t, err)
}

func TestToString(t *testing.T) {
	v, err := ToString(json.RawMessage(`"Unable to enroll merchant offer.\nPlease"`))
	require.NoError(t, err)
	assert.Equal(t, "Unable to enroll merchant offer.\nPlease", v)

	_, err = ToString(json.RawMessage(`12`))
	assert.Error(t, err)
}

func TestToTargetInfo(t *testing.T) {
	info := ToTargetInfo(&devtool.Target{ID: "A1", Type: devtool.Page, URL: "https://x", Title: "Offers"})
	assert.Equal(t, model.TargetInfo{ID: "A1", Type: "page", URL: "https://x", Title: "Offers"}, info)
}
