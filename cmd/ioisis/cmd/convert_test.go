package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bireme/ioisis-go/pkg/config"
)

func TestISO2JSONL_JSONL2ISO_RoundTrip(t *testing.T) {
	cfg = config.DefaultConfig()

	src := "{\"245\":[\"title\"],\"100\":[\"author\"]}\n"
	var iso bytes.Buffer
	require.NoError(t, runJSONL2ISO(bytes.NewBufferString(src), &iso))

	var jsonl bytes.Buffer
	require.NoError(t, runISO2JSONL(bytes.NewReader(iso.Bytes()), &jsonl))

	var got map[string][]string
	require.NoError(t, json.Unmarshal(bytes.TrimRight(jsonl.Bytes(), "\n"), &got))
	assert.Equal(t, []string{"title"}, got["245"])
	assert.Equal(t, []string{"author"}, got["100"])
}

func TestJSONL2ISO_SkipsBlankLines(t *testing.T) {
	cfg = config.DefaultConfig()

	src := "{\"245\":[\"title\"]}\n\n{\"100\":[\"author\"]}\n"
	var iso bytes.Buffer
	require.NoError(t, runJSONL2ISO(bytes.NewBufferString(src), &iso))

	var jsonl bytes.Buffer
	require.NoError(t, runISO2JSONL(bytes.NewReader(iso.Bytes()), &jsonl))

	lines := bytes.Split(bytes.TrimRight(jsonl.Bytes(), "\n"), []byte("\n"))
	assert.Len(t, lines, 2)
}

func TestMST2JSONL_WritesReservedKeys(t *testing.T) {
	cfg = config.DefaultConfig()

	dir := t.TempDir()
	mstPath := filepath.Join(dir, "sample.mst")
	xrfPath := filepath.Join(dir, "sample.xrf")

	// Build the minimal single-record fixture: control record, then one
	// ISIS-variant record for mfn 1 at block 1 offset 32.
	control := make([]byte, 32)
	putU32 := func(b []byte, off int, v int32) {
		b[off], b[off+1], b[off+2], b[off+3] = byte(v), byte(v>>8), byte(v>>16), byte(v>>24)
	}
	putU16 := func(b []byte, off int, v uint16) {
		b[off], b[off+1] = byte(v), byte(v>>8)
	}
	putU32(control, 4, 2) // next_mfn

	leader := make([]byte, 18)
	putU32(leader, 0, 1)   // mfn
	putU16(leader, 4, 30)  // total_len placeholder, set to 18(leader)+6(dir)+2("hi") = 26 below
	putU32(leader, 6, 0)   // old_block
	putU16(leader, 10, 0)  // old_offset
	putU16(leader, 12, 24) // base_addr = 18+6
	putU16(leader, 14, 1)  // num_fields
	putU16(leader, 16, 0)  // status

	dirEntry := make([]byte, 6)
	putU16(dirEntry, 0, 245) // tag
	putU16(dirEntry, 2, 0)   // pos
	putU16(dirEntry, 4, 2)   // len ("hi")

	fieldData := []byte("hi")
	putU16(leader, 4, uint16(24+len(fieldData)))

	var mstBytes []byte
	mstBytes = append(mstBytes, control...)
	mstBytes = append(mstBytes, leader...)
	mstBytes = append(mstBytes, dirEntry...)
	mstBytes = append(mstBytes, fieldData...)

	var raw uint32
	raw |= uint32(1) << 11 // block 1
	raw |= 1 << 9          // active
	raw |= uint32(32)      // offset 32
	xrfEntry0 := make([]byte, 4)
	xrfEntry1 := []byte{byte(raw), byte(raw >> 8), byte(raw >> 16), byte(raw >> 24)}

	require.NoError(t, os.WriteFile(mstPath, mstBytes, 0o644))
	require.NoError(t, os.WriteFile(xrfPath, append(xrfEntry0, xrfEntry1...), 0o644))

	var out bytes.Buffer
	require.NoError(t, runMST2JSONL(mstPath, &out))

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimRight(out.Bytes(), "\n"), &got))
	assert.Equal(t, float64(1), got["mfn"].([]interface{})[0])
	assert.Equal(t, true, got["active"].([]interface{})[0])
	assert.Equal(t, "hi", got["245"].([]interface{})[0])
}

func TestExitCodeFor(t *testing.T) {
	assert.Equal(t, ExitOK, exitCodeFor(nil))
}
