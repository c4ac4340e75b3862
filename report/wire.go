package report

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fxamacker/cbor/v2"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// cborEncMode holds CBOR encoding options with canonical mode for
// deterministic encoding.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("report: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// MarshalSession serializes a Session to CBOR bytes.
func MarshalSession(s *Session) ([]byte, error) {
	return cborEncMode.Marshal(s)
}

// UnmarshalSession deserializes a Session from CBOR bytes.
func UnmarshalSession(data []byte) (*Session, error) {
	var s Session
	if err := cbor.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("report: unmarshal session: %w", err)
	}
	return &s, nil
}

// WriteFile writes the session to path. The extension picks the encoding:
// .cbor gets the wire form, everything else indented JSON.
func (s *Session) WriteFile(path string) error {
	var data []byte
	var err error
	if filepath.Ext(path) == ".cbor" {
		data, err = MarshalSession(s)
	} else {
		data, err = json.MarshalIndent(s, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("report %s: %w", path, err)
	}
	return os.WriteFile(path, data, 0o644)
}
