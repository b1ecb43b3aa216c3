package crm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLocalSearcherClosesBrowser(t *testing.T) {
	d := loggedOutCRM()
	searcher := NewLocalSearcher(func(context.Context) (Driver, error) { return d, nil }, testOptions(), zap.NewNop())

	records, err := searcher.Search(context.Background(), []string{"25-AVS-RES-00109-RN"})
	require.NoError(t, err)
	assert.Len(t, records, 2)
	assert.True(t, d.closed)
}

func TestLocalSearcherLaunchFailure(t *testing.T) {
	boom := errors.New("no chrome")
	searcher := NewLocalSearcher(func(context.Context) (Driver, error) { return nil, boom }, testOptions(), nil)

	_, err := searcher.Search(context.Background(), []string{"X"})
	assert.ErrorIs(t, err, boom)

	// the semaphore is released after a failure
	d := loggedOutCRM()
	searcher.newDriver = func(context.Context) (Driver, error) { return d, nil }
	_, err = searcher.Search(context.Background(), []string{"X"})
	assert.NoError(t, err)
}

func TestLocalSearcherFeeOverride(t *testing.T) {
	d := loggedOutCRM()
	searcher := NewLocalSearcher(func(context.Context) (Driver, error) { return d, nil }, testOptions(), nil)

	records, err := searcher.SearchWithFee(context.Background(), []string{""}, "13000")
	require.NoError(t, err)
	require.NotEmpty(t, records)
	assert.Equal(t, "fee_search_13000", records[0].SourceInvoice)
	assert.Equal(t, 1, records[0].Index)
}
