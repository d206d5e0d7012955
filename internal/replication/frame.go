package replication

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"

	"github.com/Jerry0022/PYCO/internal/docstore"
)

// FrameType identifies a protocol message.
type FrameType string

const (
	FrameHello     FrameType = "hello"
	FrameChanges   FrameType = "changes"
	FrameAck       FrameType = "ack"
	FrameSubscribe FrameType = "subscribe"
	FrameCaughtUp  FrameType = "caught_up"
	FrameError     FrameType = "error"
)

// Frame is the single message shape of the protocol. Fields not used by a
// frame type are left zero and omitted on the wire.
type Frame struct {
	Type FrameType `cbor:"type"`

	// hello
	Session  string `cbor:"session,omitempty"`
	Database string `cbor:"database,omitempty"`
	Compress bool   `cbor:"compress,omitempty"`

	// subscribe
	Since      int64 `cbor:"since,omitempty"`
	Continuous bool  `cbor:"continuous,omitempty"`

	// changes, ack, caught_up: the sender's seq of the last change covered
	Seq     int64             `cbor:"seq,omitempty"`
	Changes []docstore.Change `cbor:"changes,omitempty"`

	// error
	Message string `cbor:"message,omitempty"`
}

// Frame flag bytes. Protocol constants.
const (
	flagRaw  byte = 0
	flagZstd byte = 1
)

// encMode uses Core Deterministic Encoding so equal frames encode to equal
// bytes.
var encMode cbor.EncMode

var decMode cbor.DecMode

// zstd.Encoder and zstd.Decoder are safe for concurrent use through
// EncodeAll/DecodeAll.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error

	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("replication: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("replication: CBOR decoder initialization failed: " + err.Error())
	}

	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("replication: zstd encoder initialization failed: " + err.Error())
	}

	zstdDecoder, err = zstd.NewReader(nil, zstd.WithDecoderMaxMemory(64<<20))
	if err != nil {
		panic("replication: zstd decoder initialization failed: " + err.Error())
	}
}

// EncodeFrame serializes f, zstd compressing the CBOR body when compress is
// set.
func EncodeFrame(f Frame, compress bool) ([]byte, error) {
	body, err := encMode.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("encode %s frame: %w", f.Type, err)
	}
	if !compress {
		out := make([]byte, 0, len(body)+1)
		out = append(out, flagRaw)
		return append(out, body...), nil
	}
	return zstdEncoder.EncodeAll(body, []byte{flagZstd}), nil
}

// DecodeFrame parses a message produced by EncodeFrame.
func DecodeFrame(data []byte) (Frame, error) {
	if len(data) == 0 {
		return Frame{}, errors.New("decode frame: empty message")
	}

	body := data[1:]
	switch data[0] {
	case flagRaw:
	case flagZstd:
		var err error
		body, err = zstdDecoder.DecodeAll(body, nil)
		if err != nil {
			return Frame{}, fmt.Errorf("decode frame: decompress: %w", err)
		}
	default:
		return Frame{}, fmt.Errorf("decode frame: unknown flag %d", data[0])
	}

	var f Frame
	if err := decMode.Unmarshal(body, &f); err != nil {
		return Frame{}, fmt.Errorf("decode frame: %w", err)
	}
	if f.Type == "" {
		return Frame{}, errors.New("decode frame: missing type")
	}
	return f, nil
}
