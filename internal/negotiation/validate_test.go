package negotiation

import (
	"errors"
	"reflect"
	"testing"

	"github.com/mossy-p/ptt-signaling/internal/models"
)

const audioOffer = "v=0\r\n" +
	"o=- 4611731400430051336 2 IN IP4 127.0.0.1\r\n" +
	"s=-\r\n" +
	"t=0 0\r\n" +
	"a=group:BUNDLE 0\r\n" +
	"m=audio 9 UDP/TLS/RTP/SAVPF 111\r\n" +
	"c=IN IP4 0.0.0.0\r\n" +
	"a=mid:0\r\n" +
	"a=sendrecv\r\n" +
	"a=rtpmap:111 opus/48000/2\r\n"

func TestValidateOffer(t *testing.T) {
	summary, err := Validate(models.SignalTypeOffer, map[string]any{"type": "offer", "sdp": audioOffer})
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if !reflect.DeepEqual(summary.Media, []string{"audio"}) {
		t.Errorf("Media = %v, want [audio]", summary.Media)
	}
}

func TestValidateDescriptionErrors(t *testing.T) {
	tests := []struct {
		name   string
		typ    models.SignalType
		signal any
		want   error
	}{
		{"nil signal", models.SignalTypeOffer, nil, ErrEmptySignal},
		{"type mismatch", models.SignalTypeAnswer, map[string]any{"type": "offer", "sdp": audioOffer}, ErrTypeMismatch},
		{"garbage sdp", models.SignalTypeOffer, map[string]any{"type": "offer", "sdp": "hello"}, ErrMalformedSDP},
		{"unsupported signal type", models.SignalType("renegotiate"), map[string]any{}, ErrUnsupportedType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Validate(tt.typ, tt.signal)
			if !errors.Is(err, tt.want) {
				t.Errorf("Validate() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestValidateUnknownDescriptionType(t *testing.T) {
	if _, err := Validate(models.SignalTypeOffer, map[string]any{"type": "bogus", "sdp": audioOffer}); err == nil {
		t.Error("expected an error for an unknown description type")
	}
}

func TestValidateCandidate(t *testing.T) {
	signal := map[string]any{
		"candidate":     "candidate:842163049 1 udp 1677729535 203.0.113.7 46154 typ srflx raddr 10.0.0.2 rport 46154",
		"sdpMid":        "0",
		"sdpMLineIndex": 0,
	}
	summary, err := Validate(models.SignalTypeCandidate, signal)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if summary.Candidate != "srflx" {
		t.Errorf("Candidate = %q, want srflx", summary.Candidate)
	}

	endOfCandidates, err := Validate(models.SignalTypeCandidate, map[string]any{"candidate": ""})
	if err != nil {
		t.Fatalf("end-of-candidates rejected: %v", err)
	}
	if endOfCandidates.Candidate != "" {
		t.Errorf("Candidate = %q, want empty", endOfCandidates.Candidate)
	}

	if _, err := Validate(models.SignalTypeCandidate, map[string]any{"candidate": "candidate:1 1 udp"}); !errors.Is(err, ErrMalformedICE) {
		t.Errorf("short candidate error = %v", err)
	}
	if _, err := Validate(models.SignalTypeCandidate, map[string]any{"candidate": "candidate:1 1 udp 1 1.2.3.4 9 typ bogus"}); !errors.Is(err, ErrMalformedICE) {
		t.Errorf("unknown type error = %v", err)
	}

	garbage := []string{
		"candidate:x notanumber zzz -5 not-an-ip 99999999 typ host",
		"candidate:1 1 udp 2122260223 192.0.2.1 99999999 typ host",
		"candidate:1 1 udp 2122260223 not-an-ip 54321 typ host",
	}
	for _, candidate := range garbage {
		if _, err := Validate(models.SignalTypeCandidate, map[string]any{"candidate": candidate}); !errors.Is(err, ErrMalformedICE) {
			t.Errorf("Validate(%q) error = %v, want ErrMalformedICE", candidate, err)
		}
	}

	host, err := Validate(models.SignalTypeCandidate, map[string]any{"candidate": "candidate:1 1 udp 2122260223 192.0.2.1 54321 typ host"})
	if err != nil {
		t.Fatalf("host candidate rejected: %v", err)
	}
	if host.Candidate != "host" {
		t.Errorf("Candidate = %q, want host", host.Candidate)
	}
}

func TestNormalizeMsgpackMaps(t *testing.T) {
	signal := map[any]any{"type": "offer", "sdp": audioOffer}
	if _, err := Validate(models.SignalTypeOffer, signal); err != nil {
		t.Errorf("Validate() with interface-keyed map error = %v", err)
	}
}
