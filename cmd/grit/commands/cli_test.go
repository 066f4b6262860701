package commands

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/smartcomputer-ai/agent-os-sub000/internal/grit"
)

// captureStdout runs fn with os.Stdout redirected to a pipe and returns
// whatever it wrote.
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	r, w, err := os.Pipe()
	require.NoError(t, err)
	orig := os.Stdout
	os.Stdout = w
	defer func() { os.Stdout = orig }()

	fn()

	require.NoError(t, w.Close())
	var buf bytes.Buffer
	_, err = io.Copy(&buf, r)
	require.NoError(t, err)
	return buf.String()
}

// withTempDB points dbPath at a fresh sqlite file for the duration of the
// test, restoring the previous value (and output format) afterwards.
func withTempDB(t *testing.T) {
	t.Helper()
	prevDB, prevFormat := dbPath, outputFormat
	dbPath = filepath.Join(t.TempDir(), "grit.db")
	outputFormat = "text"
	t.Cleanup(func() {
		dbPath, outputFormat = prevDB, prevFormat
	})
}

func TestPutThenGetRoundTrips(t *testing.T) {
	withTempDB(t)

	var id string
	out := captureStdout(t, func() {
		putText = "hello from the CLI"
		require.NoError(t, runPut(putCmd, nil))
	})
	id = strings.TrimSpace(out)
	require.NotEmpty(t, id)

	out = captureStdout(t, func() {
		require.NoError(t, runGet(getCmd, []string{id}))
	})
	require.Contains(t, out, "kind: blob")
	require.Contains(t, out, "hello from the CLI")
}

func TestRefsSetGetLsRoundTrip(t *testing.T) {
	withTempDB(t)

	var id string
	out := captureStdout(t, func() {
		putText = "ref target"
		require.NoError(t, runPut(putCmd, nil))
	})
	id = strings.TrimSpace(out)

	require.NoError(t, runRefsSet(refsSetCmd, []string{"heads/test", id}))

	out = captureStdout(t, func() {
		require.NoError(t, runRefsGet(refsGetCmd, []string{"heads/test"}))
	})
	require.Equal(t, id, strings.TrimSpace(out))

	refsLsPrefix = "heads/"
	out = captureStdout(t, func() {
		require.NoError(t, runRefsLs(refsLsCmd, nil))
	})
	require.Contains(t, out, "heads/test")

	require.NoError(t, runRefsRm(refsRmCmd, []string{"heads/test"}))
	err := runRefsGet(refsGetCmd, []string{"heads/test"})
	require.Error(t, err)
}

func TestPointIsPureAndMatchesAgentIdFromPoint(t *testing.T) {
	withTempDB(t)

	out := captureStdout(t, func() {
		require.NoError(t, runPoint(pointCmd, []string{"7"}))
	})
	require.Equal(t, grit.AgentIdFromPoint(grit.Point(7)).String(), strings.TrimSpace(out))
}

func TestGenesisIsIdempotent(t *testing.T) {
	withTempDB(t)

	out1 := captureStdout(t, func() {
		require.NoError(t, runGenesis(genesisCmd, []string{"3"}))
	})
	out2 := captureStdout(t, func() {
		require.NoError(t, runGenesis(genesisCmd, []string{"3"}))
	})
	require.Equal(t, out1, out2)
	require.Equal(t, grit.AgentIdFromPoint(grit.Point(3)).String(), strings.TrimSpace(out1))
}

func TestInjectAfterGenesisPrintsMessageId(t *testing.T) {
	withTempDB(t)

	captureStdout(t, func() {
		require.NoError(t, runGenesis(genesisCmd, []string{"11"}))
	})

	rootId := grit.AgentIdFromPoint(grit.Point(11))

	injectMessageType = "ping"
	injectContent = "hi"
	injectHeaders = nil
	out := captureStdout(t, func() {
		require.NoError(t, runInject(injectCmd, []string{rootId.String()}))
	})
	require.NotEmpty(t, strings.TrimSpace(out))
}
