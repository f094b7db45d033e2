// Package negotiation inspects relayed WebRTC negotiation payloads. The relay
// forwards signals untouched; this package only decides whether a payload is
// well formed when strict validation is switched on.
package negotiation

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mossy-p/ptt-signaling/internal/models"
	"github.com/pion/ice/v4"
	"github.com/pion/webrtc/v4"
)

var (
	ErrEmptySignal     = errors.New("signal payload is empty")
	ErrTypeMismatch    = errors.New("session description type does not match signal type")
	ErrMalformedSDP    = errors.New("malformed session description")
	ErrMalformedICE    = errors.New("malformed ice candidate")
	ErrUnsupportedType = errors.New("unsupported signal type")
)

// Summary describes a validated signal, for logging.
type Summary struct {
	Type  models.SignalType
	Media []string
	// Candidate is the candidate type (host, srflx, relay, prflx), empty for
	// descriptions and end-of-candidates.
	Candidate string
}

// Validate checks the signal against its declared type.
func Validate(signalType models.SignalType, signal any) (*Summary, error) {
	if signal == nil {
		return nil, ErrEmptySignal
	}
	raw, err := json.Marshal(normalize(signal))
	if err != nil {
		return nil, fmt.Errorf("re-encode signal: %w", err)
	}

	switch signalType {
	case models.SignalTypeOffer, models.SignalTypeAnswer:
		return validateDescription(signalType, raw)
	case models.SignalTypeCandidate:
		return validateCandidate(raw)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, signalType)
}

func validateDescription(signalType models.SignalType, raw []byte) (*Summary, error) {
	var desc webrtc.SessionDescription
	if err := json.Unmarshal(raw, &desc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSDP, err)
	}
	if desc.Type.String() != string(signalType) {
		return nil, fmt.Errorf("%w: %s vs %s", ErrTypeMismatch, desc.Type, signalType)
	}
	parsed, err := desc.Unmarshal()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSDP, err)
	}

	summary := &Summary{Type: signalType}
	for _, media := range parsed.MediaDescriptions {
		summary.Media = append(summary.Media, media.MediaName.Media)
	}
	return summary, nil
}

func validateCandidate(raw []byte) (*Summary, error) {
	var init webrtc.ICECandidateInit
	if err := json.Unmarshal(raw, &init); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedICE, err)
	}

	summary := &Summary{Type: models.SignalTypeCandidate}
	// An empty candidate string signals end-of-candidates.
	if init.Candidate == "" {
		return summary, nil
	}

	typ, err := candidateType(init.Candidate)
	if err != nil {
		return nil, err
	}
	summary.Candidate = typ
	return summary, nil
}

func candidateType(candidate string) (string, error) {
	parsed, err := ice.UnmarshalCandidate(strings.TrimPrefix(candidate, "candidate:"))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedICE, err)
	}
	return parsed.Type().String(), nil
}

// normalize converts msgpack-decoded generic maps into a shape
// encoding/json can marshal.
func normalize(v any) any {
	switch t := v.(type) {
	case map[any]any:
		m := make(map[string]any, len(t))
		for k, val := range t {
			m[fmt.Sprint(k)] = normalize(val)
		}
		return m
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, val := range t {
			m[k] = normalize(val)
		}
		return m
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalize(val)
		}
		return out
	}
	return v
}
