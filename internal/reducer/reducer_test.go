package reducer

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReduceWalksAllPages(t *testing.T) {
	t.Parallel()

	pages := []Page{
		{IDs: []string{"1", "2"}, HasNext: true},
		{IDs: []string{"3"}, HasNext: true},
		{IDs: []string{"4", "5"}},
	}
	requests := 0
	fetcher := PageFetcherFunc(func(_ context.Context, page int) (Page, error) {
		requests++
		return pages[page-1], nil
	})

	ids, err := New(fetcher, nil).Reduce(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"1", "2", "3", "4", "5"}, ids)
	require.Equal(t, len(pages), requests)
}

func TestReduceToleratesEmptyTerminalPage(t *testing.T) {
	t.Parallel()

	fetcher := PageFetcherFunc(func(_ context.Context, page int) (Page, error) {
		if page == 1 {
			return Page{IDs: []string{"1"}, HasNext: true}, nil
		}
		return Page{}, nil
	})

	ids, err := New(fetcher, nil).Reduce(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"1"}, ids)
}

func TestReducePreservesOrderAndDuplicates(t *testing.T) {
	t.Parallel()

	fetcher := PageFetcherFunc(func(_ context.Context, page int) (Page, error) {
		if page == 1 {
			return Page{IDs: []string{"7", "7", "3"}, HasNext: true}, nil
		}
		return Page{IDs: []string{"3"}}, nil
	})

	ids, err := New(fetcher, nil).Reduce(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"7", "7", "3", "3"}, ids)
}

func TestReduceAbortsOnFetchFailure(t *testing.T) {
	t.Parallel()

	boom := errors.New("listing unavailable")
	fetcher := PageFetcherFunc(func(_ context.Context, page int) (Page, error) {
		if page == 2 {
			return Page{}, boom
		}
		return Page{IDs: []string{fmt.Sprint(page)}, HasNext: true}, nil
	})

	_, err := New(fetcher, nil).Reduce(context.Background())
	require.ErrorIs(t, err, boom)
}
