package notifylog

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rokthenats/karting-registry/internal/application"
)

func TestFileSink_AppendsOneLinePerRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "failed.jsonl")
	sink, err := NewFileSink(path)
	require.NoError(t, err)

	first := application.FailedNotification{
		ReceivedAt: time.Now().UTC(),
		Payload:    map[string][]string{"m_payment_id": {"RACE-abc"}},
		Headers:    map[string][]string{"User-Agent": {"PayFast"}},
		Error:      "signature verification failed",
	}
	second := first
	second.Payload = map[string][]string{"m_payment_id": {"RACE-def"}}

	require.NoError(t, sink.Append(first))
	require.NoError(t, sink.Append(second))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var lines []application.FailedNotification
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var rec application.FailedNotification
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &rec))
		lines = append(lines, rec)
	}
	require.NoError(t, scanner.Err())

	require.Len(t, lines, 2)
	assert.Equal(t, []string{"RACE-abc"}, lines[0].Payload["m_payment_id"])
	assert.Equal(t, []string{"RACE-def"}, lines[1].Payload["m_payment_id"])
	assert.Equal(t, "signature verification failed", lines[0].Error)
}

func TestFileSink_CreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deeply", "nested", "failed.jsonl")
	sink, err := NewFileSink(path)
	require.NoError(t, err)

	require.NoError(t, sink.Append(application.FailedNotification{Error: "x"}))
	_, err = os.Stat(path)
	assert.NoError(t, err)
}
