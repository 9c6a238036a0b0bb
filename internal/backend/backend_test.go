package backend

import (
	"strings"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in      string
		want    Tier
		auto    bool
		wantErr bool
	}{
		{"", Baseline, true, false},
		{"auto", Baseline, true, false},
		{"  Baseline ", Baseline, false, false},
		{"scalar", Baseline, false, false},
		{"avx2", Mid, false, false},
		{"NEON", Mid, false, false},
		{"wide", Wide, false, false},
		{"avx512", Wide, false, false},
		{"sve", Wide, false, false},
		{"cuda", Baseline, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, auto, err := Normalize(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Normalize(%q) error = %v, wantErr %t", tt.in, err, tt.wantErr)
			}
			if got != tt.want || auto != tt.auto {
				t.Fatalf("Normalize(%q) = %s, %t; want %s, %t", tt.in, got, auto, tt.want, tt.auto)
			}
		})
	}
}

func TestSelectExplicitWins(t *testing.T) {
	t.Setenv(TierEnv, "baseline")
	t.Setenv(NoSimdEnv, "1")
	got, err := Select("wide")
	if err != nil {
		t.Fatal(err)
	}
	if got != Wide {
		t.Fatalf("Select(wide) = %s", got)
	}
}

func TestSelectNoSimd(t *testing.T) {
	t.Setenv(TierEnv, "wide")
	t.Setenv(NoSimdEnv, "true")
	got, err := Select(Auto)
	if err != nil {
		t.Fatal(err)
	}
	if got != Baseline {
		t.Fatalf("Select with %s = %s, want baseline", NoSimdEnv, got)
	}
}

func TestSelectNoSimdFalse(t *testing.T) {
	t.Setenv(TierEnv, "mid")
	t.Setenv(NoSimdEnv, "0")
	got, err := Select("")
	if err != nil {
		t.Fatal(err)
	}
	if got != Mid {
		t.Fatalf("Select = %s, want mid", got)
	}
}

func TestSelectBadEnv(t *testing.T) {
	t.Setenv(NoSimdEnv, "")
	t.Setenv(TierEnv, "turbo")
	if _, err := Select(Auto); err == nil || !strings.Contains(err.Error(), TierEnv) {
		t.Fatalf("expected %s error, got %v", TierEnv, err)
	}
}

func TestSelectDetects(t *testing.T) {
	t.Setenv(NoSimdEnv, "")
	t.Setenv(TierEnv, "")
	got, err := Select(Auto)
	if err != nil {
		t.Fatal(err)
	}
	if want := Detect().Tier; got != want {
		t.Fatalf("Select = %s, detected %s", got, want)
	}
}

func TestDetectAndAvailable(t *testing.T) {
	caps := Detect()
	if caps.Arch == "" {
		t.Fatal("empty arch")
	}
	if caps.TierName != caps.Tier.String() {
		t.Fatalf("tier name %q does not match %s", caps.TierName, caps.Tier)
	}
	avail := strings.Split(Available(), ",")
	if avail[0] != "baseline" {
		t.Fatalf("Available() = %v, baseline must come first", avail)
	}
	if avail[len(avail)-1] != caps.Tier.String() {
		t.Fatalf("Available() = %v, want detected tier %s last", avail, caps.Tier)
	}
}
