package opus

import "testing"

func TestEncode(t *testing.T) {
	enc, err := NewEncoder(48000, 2)
	if err != nil {
		t.Fatalf("no encoder, %v", err)
	}

	// 10 ms of stereo silence at 48 kHz
	data, err := enc.Encode(make([]int16, 960))
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if len(data) == 0 {
		t.Errorf("expected a packet, got none")
	}

	if data, err = enc.Encode(nil); data != nil || err != nil {
		t.Errorf("expected a no-op for empty pcm, got %v, %v", data, err)
	}

	// 350 samples per channel is not a valid Opus frame
	if _, err = enc.Encode(make([]int16, 700)); err == nil {
		t.Errorf("expected a bad frame error, but got none")
	}
}
