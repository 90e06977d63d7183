package logrotate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		kind     string // active, archived or ""
		pid      int
		sequence int
		rawSeq   string
	}{
		{name: "ops.25559.log.001", kind: "active", pid: 25559, sequence: 1, rawSeq: "001"},
		{name: "ops.25559.log.001.gz", kind: "archived", pid: 25559, sequence: 1, rawSeq: "001"},
		{name: "web_api.7.log.12", kind: "active", pid: 7, sequence: 12, rawSeq: "12"},
		{name: "A1.0.log.0.gz", kind: "archived", pid: 0, sequence: 0, rawSeq: "0"},
		{name: "ops.25559.log", kind: ""},
		{name: "ops.25559.log.001.gz.1", kind: ""},
		{name: "ops.abc.log.001", kind: ""},
		{name: "ops-web.1.log.1", kind: ""},
		{name: ".1.log.1", kind: ""},
		{name: "ops.1.log.1.zip", kind: ""},
		{name: "ops.1.log.1.GZ", kind: ""},
		{name: "ops.99999999999999999999999.log.1", kind: ""},
		{name: "", kind: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Classify(testLogDir, []string{tt.name})

			switch tt.kind {
			case "active":
				require.Len(t, c.Active, 1)
				assert.Empty(t, c.Archived)
				rec := c.Active[0]
				assert.Equal(t, testLogDir+"/"+tt.name, rec.Path)
				assert.Equal(t, tt.pid, rec.PID)
				assert.Equal(t, tt.sequence, rec.Sequence)
				assert.Equal(t, tt.rawSeq, rec.RawSequence)
			case "archived":
				require.Len(t, c.Archived, 1)
				assert.Empty(t, c.Active)
				rec := c.Archived[0]
				assert.Equal(t, testLogDir+"/"+tt.name, rec.Path)
				assert.Equal(t, tt.pid, rec.PID)
				assert.Equal(t, tt.sequence, rec.Sequence)
				assert.Equal(t, tt.rawSeq, rec.RawSequence)
			default:
				assert.Empty(t, c.Active)
				assert.Empty(t, c.Archived)
			}
		})
	}
}

func TestClassifyKeepsListingOrder(t *testing.T) {
	names := []string{
		"b.2.log.2",
		"README",
		"a.1.log.1.gz",
		"a.1.log.3",
		"b.2.log.1.gz",
	}

	c := Classify(testLogDir, names)

	require.Len(t, c.Active, 2)
	require.Len(t, c.Archived, 2)
	assert.Equal(t, 2, c.Active[0].PID)
	assert.Equal(t, 3, c.Active[1].Sequence)
	assert.Equal(t, 1, c.Archived[0].PID)
	assert.Equal(t, 2, c.Archived[1].PID)
}

func TestListDirectoryFilesSkipsDirectories(t *testing.T) {
	mgr, fs := newMemManager(t, Config{})
	writeMemFile(t, fs, "ops.1.log.1", "x", zeroTime)
	require.NoError(t, fs.MkdirAll(testLogDir+"/ops.2.log.1", DirMode))

	names, err := mgr.ListDirectoryFiles(t.Context())
	require.NoError(t, err)
	assert.Equal(t, []string{"ops.1.log.1"}, names)
}

func TestListDirectoryFilesMissingDir(t *testing.T) {
	mgr, fs := newMemManager(t, Config{})
	require.NoError(t, fs.RemoveAll(testLogDir))

	_, err := mgr.ListDirectoryFiles(t.Context())
	var opErr *OpError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, OpList, opErr.Op)
}
