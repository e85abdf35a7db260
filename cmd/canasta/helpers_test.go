package main

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canastalabs/canasta/internal/common"
)

func setValidConfig() {
	viper.Set("dataset.dir", "dataset")
	viper.Set("results.dir", "results")
	viper.Set("database.path", "results/canasta.db")
	viper.Set("rules.min_support", 0.01)
	viper.Set("rules.min_confidence", 0.3)
	viper.Set("segmentation.clusters", 4)
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func()
		wantErr error
	}{
		{
			name:   "valid configuration passes",
			mutate: func() {},
		},
		{
			name:    "empty dataset dir",
			mutate:  func() { viper.Set("dataset.dir", "") },
			wantErr: common.ErrMissingConfig,
		},
		{
			name:    "empty results dir",
			mutate:  func() { viper.Set("results.dir", "") },
			wantErr: common.ErrMissingConfig,
		},
		{
			name:    "empty database path",
			mutate:  func() { viper.Set("database.path", "") },
			wantErr: common.ErrMissingConfig,
		},
		{
			name:    "zero min support",
			mutate:  func() { viper.Set("rules.min_support", 0.0) },
			wantErr: common.ErrInvalidConfig,
		},
		{
			name:    "min support above one",
			mutate:  func() { viper.Set("rules.min_support", 1.5) },
			wantErr: common.ErrInvalidConfig,
		},
		{
			name:    "negative min confidence",
			mutate:  func() { viper.Set("rules.min_confidence", -0.1) },
			wantErr: common.ErrInvalidConfig,
		},
		{
			name:    "zero clusters",
			mutate:  func() { viper.Set("segmentation.clusters", 0) },
			wantErr: common.ErrInvalidConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			viper.Reset()
			t.Cleanup(viper.Reset)
			setValidConfig()
			tt.mutate()

			err := validateConfig()
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
