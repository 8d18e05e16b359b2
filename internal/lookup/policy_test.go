package lookup

import (
	"errors"
	"testing"
	"time"

	"tweet-price-lab/internal/domain"
)

func TestPolicyValidate(t *testing.T) {
	tests := []struct {
		name    string
		policy  Policy
		wantErr bool
	}{
		{name: "default", policy: DefaultPolicy()},
		{name: "single step", policy: Policy{Steps: []Step{{Resolution: domain.Resolution1h, MaxStaleness: time.Hour}}}},
		{
			name: "equal bounds allowed",
			policy: Policy{Steps: []Step{
				{Resolution: domain.Resolution1m, MaxStaleness: time.Hour},
				{Resolution: domain.Resolution1h, MaxStaleness: time.Hour},
			}},
		},
		{name: "empty", policy: Policy{}, wantErr: true},
		{
			name: "coarse bound below fine bound",
			policy: Policy{Steps: []Step{
				{Resolution: domain.Resolution1m, MaxStaleness: 24 * time.Hour},
				{Resolution: domain.Resolution1h, MaxStaleness: time.Hour},
			}},
			wantErr: true,
		},
		{
			name: "coarse before fine",
			policy: Policy{Steps: []Step{
				{Resolution: domain.Resolution1h, MaxStaleness: time.Hour},
				{Resolution: domain.Resolution1m, MaxStaleness: 24 * time.Hour},
			}},
			wantErr: true,
		},
		{
			name: "duplicate resolution",
			policy: Policy{Steps: []Step{
				{Resolution: domain.Resolution1h, MaxStaleness: time.Hour},
				{Resolution: domain.Resolution1h, MaxStaleness: time.Hour},
			}},
			wantErr: true,
		},
		{name: "unknown resolution", policy: Policy{Steps: []Step{{Resolution: "5m", MaxStaleness: time.Hour}}}, wantErr: true},
		{name: "zero bound", policy: Policy{Steps: []Step{{Resolution: domain.Resolution1m}}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.policy.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidPolicy) {
					t.Errorf("expected ErrInvalidPolicy, got %v", err)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestPolicyResolutions(t *testing.T) {
	got := DefaultPolicy().Resolutions()
	want := []domain.Resolution{domain.Resolution1m, domain.Resolution1h, domain.Resolution1d}
	if len(got) != len(want) {
		t.Fatalf("expected %d resolutions, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}
