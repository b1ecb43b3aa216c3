package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanJSON(t *testing.T) {
	cases := map[string]string{
		"```json\n{\"a\":1}\n```": `{"a":1}`,
		"```\n[1]\n```":           `[1]`,
		"  {\"a\":1}  ":           `{"a":1}`,
	}
	for in, want := range cases {
		assert.Equal(t, want, CleanJSON(in), in)
	}
}

func TestParsePagesObject(t *testing.T) {
	pages, err := ParsePages("```json\n{\"date\":\"18 Jun 2021\",\"amount\":\"HKD 13,000.00\",\"invoice\":\"25-AVS-RES-00109-RN\"}\n```")
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, "25-AVS-RES-00109-RN", pages[0].Invoice)
	assert.Equal(t, "HKD 13,000.00", pages[0].Amount)
}

func TestParsePagesArrayKeepsPagesWithoutInvoice(t *testing.T) {
	pages, err := ParsePages(`[{"page_number":1,"invoice":"A-1"},{"page_number":2,"payee":"AVS"}]`)
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Equal(t, []string{"A-1", ""}, Invoices(pages))
	assert.Equal(t, "AVS", pages[1].Payee)
}

func TestParsePagesRejectsOtherShapes(t *testing.T) {
	for _, in := range []string{"", "not json", `"text"`, `42`, `[1, 2]`} {
		_, err := ParsePages(in)
		assert.ErrorIs(t, err, ErrMalformedResponse, in)
	}
}

func TestBuildPrompt(t *testing.T) {
	single := BuildPrompt("Pay to AVS")
	assert.Contains(t, single, "as a JSON object")
	assert.Contains(t, single, "Pay to AVS")
	assert.NotContains(t, single, "page_number")

	multi := BuildPrompt("PAGE 1:\na\n------\nPAGE 2:\nb")
	assert.Contains(t, multi, "Process ALL pages")
	assert.Contains(t, multi, "page_number")
	assert.Contains(t, multi, "Respond only with valid JSON array.")
}
