package aesdlogd

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/c2h5oh/datasize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSize(t *testing.T) {
	cases := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"1024", 1024, false},
		{"1KB", 1024, false},
		{"1K", 1024, false},
		{"2MB", 2 * 1024 * 1024, false},
		{"", 0, true},
		{"3XB", 0, true},
	}

	for _, c := range cases {
		got, err := ParseSize(c.in)
		if c.wantErr {
			assert.Error(t, err, "ParseSize(%q)", c.in)
			continue
		}
		require.NoError(t, err, "ParseSize(%q)", c.in)
		assert.Equal(t, c.want, got, "ParseSize(%q)", c.in)
	}
}

func TestParseDuration(t *testing.T) {
	cases := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"10s", 10 * time.Second, false},
		{"1d", 24 * time.Hour, false},
		{"", 0, true},
		{"1q", 0, true},
	}

	for _, c := range cases {
		got, err := ParseDuration(c.in)
		if c.wantErr {
			assert.Error(t, err, "ParseDuration(%q)", c.in)
			continue
		}
		require.NoError(t, err, "ParseDuration(%q)", c.in)
		assert.Equal(t, c.want, got, "ParseDuration(%q)", c.in)
	}
}

func TestDefaultConfigMatchesReferenceConstants(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 10, cfg.RingCapacity, "RingCapacity should match the reference CAP")
	assert.Equal(t, ":9000", cfg.Addr, "Addr should match the reference port 9000")
	assert.Equal(t, 10*time.Second, cfg.TimerInterval, "TimerInterval should match the reference T")
	assert.Equal(t, datasize.ByteSize(1024), cfg.ScratchSize, "ScratchSize should default to 1KiB")
}

func TestLoadConfigMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().RingCapacity, cfg.RingCapacity, "missing config file should yield defaults")
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aesdlogd.yaml")
	yamlBody := "ring_capacity: 4\naddr: \":9001\"\ntimer_interval_str: \"5s\"\nscratch_size: \"2KB\"\n"
	require.NoError(t, os.WriteFile(path, []byte(yamlBody), 0600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.RingCapacity)
	assert.Equal(t, ":9001", cfg.Addr)
	assert.Equal(t, 5*time.Second, cfg.TimerInterval)
	assert.Equal(t, datasize.ByteSize(2*1024), cfg.ScratchSize)
}

func TestRetryFileOperationEventualSuccess(t *testing.T) {
	attempts := 0
	err := RetryFileOperation(func() error {
		attempts++
		if attempts < 2 {
			return os.ErrDeadlineExceeded
		}
		return nil
	}, 3, time.Millisecond)

	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
}
