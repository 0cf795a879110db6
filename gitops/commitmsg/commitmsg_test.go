package commitmsg_test

import (
	"testing"

	"github.com/byte4ever/synthetic_git/gitops/commitmsg"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_produces_markers(t *testing.T) {
	t.Parallel()

	msg := commitmsg.Generate(
		"feat!: require vat_code for EU",
		"Breaking change: vat_code must be provided.",
		commitmsg.Annotations{
			Services: []string{"core-api-service"},
			APIs:     []string{"/v1/payments/create"},
		},
	)

	assert.Contains(t, msg, "--- synthetic annotations begin ---")
	assert.Contains(t, msg, "--- synthetic annotations end ---")
	assert.Contains(t, msg, "Service-Id: core-api-service")
	assert.Contains(t, msg, "Changed-Api: /v1/payments/create")
	assert.NotContains(t, msg, "Doc-Change")
}

func TestGenerate_without_annotations(t *testing.T) {
	t.Parallel()

	msg := commitmsg.Generate("chore: tweak", "", commitmsg.Annotations{})

	assert.Equal(t, "chore: tweak\n", msg)
}

func TestParse_roundtrip(t *testing.T) {
	t.Parallel()

	ann := commitmsg.Annotations{
		Services:   []string{"billing-service"},
		Components: []string{"billing.checkout"},
		APIs:       []string{"/v1/payments/create"},
		DocChange:  true,
	}

	msg := commitmsg.Generate(
		"docs: refresh onboarding",
		"Update API usage notes.",
		ann,
	)
	got := commitmsg.Parse(msg)

	assert.Equal(t, "docs: refresh onboarding", got.Subject)
	assert.Equal(t, "Update API usage notes.", got.Summary)
	require.Equal(t, ann, got.Annotations)
}

func TestParse_plain_message(t *testing.T) {
	t.Parallel()

	got := commitmsg.Parse("just a regular commit message")

	assert.Equal(t, "just a regular commit message", got.Subject)
	assert.Empty(t, got.Summary)
	assert.True(t, got.Annotations.IsZero())
}

func TestParse_missing_end_marker(t *testing.T) {
	t.Parallel()

	msg := "feat: x\n\n--- synthetic annotations begin ---\nService-Id: a\n"
	got := commitmsg.Parse(msg)

	assert.Equal(t, "feat: x", got.Subject)
	assert.True(t, got.Annotations.IsZero())
}
