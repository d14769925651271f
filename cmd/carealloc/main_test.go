package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/carealloc"
	"github.com/viant/carealloc/service/messaging"
)

func TestConfigure(t *testing.T) {
	configURL := filepath.Join(t.TempDir(), "carealloc.yaml")
	require.NoError(t, os.WriteFile(configURL, []byte("http:\n  addr: \":7070\"\naging:\n  interval: 90s\n"), 0o644))

	var testCases = []struct {
		description string
		args        []string
		env         map[string]string
		expect      func(t *testing.T, config *carealloc.Config)
		expectErr   bool
	}{
		{
			description: "defaults",
			expect: func(t *testing.T, config *carealloc.Config) {
				assert.Equal(t, carealloc.DefaultConfig(), config)
			},
		},
		{
			description: "plain interval env in seconds",
			env:         map[string]string{"SCHEDULER_INTERVAL": "7", "AGING_INTERVAL": "120"},
			expect: func(t *testing.T, config *carealloc.Config) {
				assert.Equal(t, 7*time.Second, config.Scheduler.Interval)
				assert.Equal(t, 120*time.Second, config.Aging.Interval)
			},
		},
		{
			description: "flags win over config file",
			args:        []string{"--config", configURL, "--addr", ":6060", "--scheduler-interval", "3"},
			expect: func(t *testing.T, config *carealloc.Config) {
				assert.Equal(t, ":6060", config.HTTP.Addr)
				assert.Equal(t, 90*time.Second, config.Aging.Interval)
				assert.Equal(t, 3*time.Second, config.Scheduler.Interval)
			},
		},
		{
			description: "prefixed env selects mysql",
			env: map[string]string{
				"CAREALLOC_STORE":   "mysql",
				"CAREALLOC_DB_HOST": "db",
				"CAREALLOC_DB_NAME": "carealloc",
			},
			expect: func(t *testing.T, config *carealloc.Config) {
				assert.Equal(t, carealloc.StoreMySQL, config.Store.Vendor)
				require.NotNil(t, config.Store.MySQL)
				assert.Equal(t, "db", config.Store.MySQL.Host)
				assert.Equal(t, "carealloc", config.Store.MySQL.Database)
			},
		},
		{
			description: "fs events and tracing",
			args:        []string{"--events", "fs", "--events-url", "/tmp/events", "--trace-file", "/tmp/spans.json"},
			expect: func(t *testing.T, config *carealloc.Config) {
				require.NotNil(t, config.Events)
				assert.Equal(t, messaging.VendorFs, config.Events.Vendor)
				assert.Equal(t, "/tmp/events", config.Events.BaseURL)
				require.NotNil(t, config.Tracing)
				assert.True(t, config.Tracing.Enabled)
				assert.Equal(t, "/tmp/spans.json", config.Tracing.OutputFile)
			},
		},
		{
			description: "zero interval is rejected",
			env:         map[string]string{"SCHEDULER_INTERVAL": "0"},
			expectErr:   true,
		},
		{
			description: "fs store without url is rejected",
			args:        []string{"--store", "fs"},
			expectErr:   true,
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			for key, value := range testCase.env {
				t.Setenv(key, value)
			}
			flags := newFlagSet()
			require.NoError(t, flags.Parse(testCase.args))
			v, err := newViper(flags)
			require.NoError(t, err)
			config, err := configure(context.Background(), v)
			if testCase.expectErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			testCase.expect(t, config)
		})
	}
}
