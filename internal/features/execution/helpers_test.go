package execution_test

import (
	"bytes"
	"io"
	"testing"

	"go-automation/pkg/action"

	"github.com/stretchr/testify/require"
)

func bytesReader(b []byte) io.Reader { return bytes.NewReader(b) }

func mustTag(t *testing.T) action.Action {
	t.Helper()
	a, err := action.New("a1", action.AddTag{TagName: "engaged"})
	require.NoError(t, err)
	return a
}
