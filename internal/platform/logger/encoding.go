package logger

import (
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"

	"github.com/JadeOpenClawAI/ai-chat-sub001/internal/security"
)

var bufferPool = buffer.NewPool()

// redactingEncoder wraps a zap encoder and scrubs credential-shaped text from
// every encoded line, so a token that slips into a message or field never
// reaches the output.
type redactingEncoder struct {
	zapcore.Encoder
}

func NewRedactingEncoder(enc zapcore.Encoder) zapcore.Encoder {
	return &redactingEncoder{Encoder: enc}
}

// Clone is required to implement the Encoder interface
func (e *redactingEncoder) Clone() zapcore.Encoder {
	return &redactingEncoder{Encoder: e.Encoder.Clone()}
}

func (e *redactingEncoder) EncodeEntry(ent zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	buf, err := e.Encoder.EncodeEntry(ent, fields)
	if err != nil {
		return nil, err
	}

	line := buf.String()
	clean := security.Redact(line)
	if clean == line {
		return buf, nil
	}

	out := bufferPool.Get()
	out.AppendString(clean)
	buf.Free()
	return out, nil
}
