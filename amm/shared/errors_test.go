package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorCodesAreStable(t *testing.T) {
	for i, e := range all {
		require.Equal(t, uint32(i), e.Code, e.Msg)
		got, ok := FromCode(e.Code)
		require.True(t, ok)
		require.Same(t, e, got)
	}
	_, ok := FromCode(uint32(len(all)))
	require.False(t, ok)
}

func TestCodeThroughWrapping(t *testing.T) {
	cause := errors.New("rpc down")
	err := fmt.Errorf("swap: %w", fmt.Errorf("%w: %w", ErrExternalCallFailed, cause))

	require.ErrorIs(t, err, ErrExternalCallFailed)
	require.ErrorIs(t, err, cause)

	code, ok := Code(err)
	require.True(t, ok)
	require.Equal(t, ErrExternalCallFailed.Code, code)

	_, ok = Code(cause)
	require.False(t, ok)
}
