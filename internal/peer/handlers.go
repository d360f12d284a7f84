package peer

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"

	"github.com/Alia5/xrinput/apitypes"
	"github.com/Alia5/xrinput/internal/log"
	"github.com/Alia5/xrinput/internal/metrics"
)

// Ack acknowledges an accepted batch on the event stream.
const Ack byte = 0x00

// BatchFunc consumes one received batch. A non-nil error is sent back to
// the client as an ApiError and ends the stream.
type BatchFunc func(ctx context.Context, b *apitypes.EventBatch) error

// Ping answers with the server name and version.
func Ping(version string) HandlerFunc {
	return func(_ *Request, res *Response, _ *slog.Logger) error {
		data, err := json.Marshal(apitypes.PingResponse{Server: "xrinput", Version: version})
		if err != nil {
			return err
		}
		res.JSON = string(data)
		return nil
	}
}

// Events reads apitypes.EventBatch frames until the client hangs up and
// hands each to onBatch. raw may be nil.
func Events(onBatch BatchFunc, raw log.RawLogger) StreamHandlerFunc {
	if raw == nil {
		raw = log.NewRaw(nil)
	}
	return func(req *Request, r io.Reader, w io.Writer, logger *slog.Logger) error {
		for {
			b, err := apitypes.ReadEventBatch(r)
			if err != nil {
				if errors.Is(err, io.EOF) {
					return nil
				}
				writeError(w, apitypes.ErrBadRequest(err.Error()))
				return err
			}
			if data, err := b.MarshalBinary(); err == nil {
				raw.Log(true, data)
			}
			logger.Log(req.Ctx, log.LevelTrace, "batch", "handle", b.Handle, "events", len(b.Events))

			if err := onBatch(req.Ctx, b); err != nil {
				metrics.RecordPeerBatch(len(b.Events), false)
				writeError(w, err)
				return err
			}
			metrics.RecordPeerBatch(len(b.Events), true)
			if _, err := w.Write([]byte{Ack}); err != nil {
				return err
			}
			raw.Log(false, []byte{Ack})
		}
	}
}
