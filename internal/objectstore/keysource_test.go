package objectstore

import "testing"

func TestMode_String(t *testing.T) {
	cases := map[Mode]string{
		ModeSymmetric:                 "symmetric",
		ModeHardwareChallengeResponse: "hardware-challenge-response",
		ModeKMIPWrapped:               "kmip-wrapped",
		Mode(99):                      "unknown",
	}
	for mode, want := range cases {
		if got := mode.String(); got != want {
			t.Errorf("Mode(%d).String() = %q, want %q", mode, got, want)
		}
	}
}

func TestModeFromByte(t *testing.T) {
	for _, m := range []Mode{ModeSymmetric, ModeHardwareChallengeResponse, ModeKMIPWrapped} {
		got, err := modeFromByte(byte(m))
		if err != nil {
			t.Fatalf("modeFromByte(%d): %v", m, err)
		}
		if got != m {
			t.Fatalf("modeFromByte(%d) = %d, want %d", m, got, m)
		}
	}
}

func TestModeFromByte_RejectsUnknown(t *testing.T) {
	if _, err := modeFromByte(0xFF); err == nil {
		t.Fatal("expected an error for an unknown mode byte")
	}
}
