package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateKey(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr bool
	}{
		{
			name:    "valid key - single segment",
			key:     "session",
			wantErr: false,
		},
		{
			name:    "valid key - namespaced",
			key:     "queue.actions",
			wantErr: false,
		},
		{
			name:    "valid key - with dash and underscore",
			key:     "cache.calendar-events_v2",
			wantErr: false,
		},
		{
			name:    "empty key",
			key:     "",
			wantErr: true,
		},
		{
			name:    "uppercase letters",
			key:     "Queue.Actions",
			wantErr: true,
		},
		{
			name:    "starts with digit",
			key:     "1queue.actions",
			wantErr: true,
		},
		{
			name:    "trailing dot",
			key:     "queue.",
			wantErr: true,
		},
		{
			name:    "double dot",
			key:     "queue..actions",
			wantErr: true,
		},
		{
			name:    "spaces",
			key:     "queue actions",
			wantErr: true,
		},
		{
			name:    "too long",
			key:     "a" + strings.Repeat("b", MaxKeyLen),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateKey(tt.key)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
