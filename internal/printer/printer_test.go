package printer

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"testing"

	"bergbridge/internal/logger"
	"bergbridge/internal/payload"
	"bergbridge/internal/rle"
	"bergbridge/internal/types"
)

func TestMain(m *testing.M) {
	logger.Setup(io.Discard)
	os.Exit(m.Run())
}

// recorder tracks stage calls in order.
type recorder struct {
	calls []string
}

type fakeDecoder struct {
	rec *recorder
	err error
}

func (f *fakeDecoder) Decode(ctx context.Context, blob []byte) (*payload.Payload, error) {
	f.rec.calls = append(f.rec.calls, "decode")
	if f.err != nil {
		return nil, f.err
	}
	return &payload.Payload{PrintID: 1, Width: 4, RLE: payload.Block{Data: blob}}, nil
}

type fakeDecompressor struct {
	rec *recorder
	err error
}

func (f *fakeDecompressor) Decompress(ctx context.Context, block []byte) ([]byte, error) {
	f.rec.calls = append(f.rec.calls, "decompress")
	if f.err != nil {
		return nil, f.err
	}
	return []byte{0, 1, 0, 1}, nil
}

type fakeSink struct {
	rec    *recorder
	result bool
	bits   []byte
	meta   *payload.Payload
}

func (f *fakeSink) Print(ctx context.Context, bits []byte, p *payload.Payload) bool {
	f.rec.calls = append(f.rec.calls, "print")
	f.bits = bits
	f.meta = p
	return f.result
}

func newFakes(result bool) (*recorder, *fakeDecoder, *fakeDecompressor, *fakeSink) {
	rec := &recorder{}
	return rec, &fakeDecoder{rec: rec}, &fakeDecompressor{rec: rec}, &fakeSink{rec: rec, result: result}
}

func envelope(cmd types.CommandCode, id uint32) *types.CommandEnvelope {
	return &types.CommandEnvelope{
		Header:  types.CommandHeader{DeviceType: types.DeviceLittlePrinter, Command: cmd, CommandID: id},
		Payload: []byte{1, 2, 3},
	}
}

func TestHandle_PrintSuccess(t *testing.T) {
	rec, dec, dcmp, sink := newFakes(true)
	d := New(sink, dec, dcmp)

	for _, cmd := range []types.CommandCode{types.CmdSetDeliveryAndPrint, types.CmdSetDeliveryAndPrintNoFace} {
		rec.calls = nil
		resp := d.Handle(context.Background(), envelope(cmd, 77))
		if resp.Code != types.RespSuccess {
			t.Errorf("%s: code = %s, want Success", cmd, resp.Code)
		}
		if resp.CommandID != 77 {
			t.Errorf("%s: command id = %d, want 77", cmd, resp.CommandID)
		}
		if len(rec.calls) != 3 {
			t.Errorf("%s: expected 3 stage calls, got %v", cmd, rec.calls)
		}
	}

	if !bytes.Equal(sink.bits, []byte{0, 1, 0, 1}) {
		t.Errorf("sink got bits %v", sink.bits)
	}
	if sink.meta == nil || sink.meta.PrintID != 1 {
		t.Errorf("sink got metadata %+v", sink.meta)
	}
}

func TestHandle_PrintRejectedIsBusy(t *testing.T) {
	_, dec, dcmp, sink := newFakes(false)
	d := New(sink, dec, dcmp)

	resp := d.Handle(context.Background(), envelope(types.CmdSetDeliveryAndPrint, 5))
	if resp.Code != types.RespBusy {
		t.Errorf("code = %s, want Busy", resp.Code)
	}
	if resp.CommandID != 5 {
		t.Errorf("command id = %d, want 5", resp.CommandID)
	}
}

func TestHandle_NonPrintCommandsAreBridgeErrors(t *testing.T) {
	rec, dec, dcmp, sink := newFakes(true)
	d := New(sink, dec, dcmp)

	var buf bytes.Buffer
	logger.Setup(&buf)
	defer logger.Setup(io.Discard)

	cmds := []types.CommandCode{
		types.CmdSetDelivery,
		types.CmdSetDeliveryNoFace,
		types.CmdSetPersonality,
		types.CmdSetPersonalityWithMessage,
		types.CmdSetQuip,
		types.CommandCode(0x999),
		types.CommandCode(0),
	}
	for i, cmd := range cmds {
		id := uint32(100 + i)
		resp := d.Handle(context.Background(), envelope(cmd, id))
		if resp.Code != types.RespBridgeError {
			t.Errorf("%s: code = %s, want BridgeError", cmd, resp.Code)
		}
		if resp.CommandID != id {
			t.Errorf("%s: command id = %d, want %d", cmd, resp.CommandID, id)
		}
	}

	if len(rec.calls) != 0 {
		t.Errorf("non-print commands touched the pipeline: %v", rec.calls)
	}
	if !bytes.Contains(buf.Bytes(), []byte("unknown printer command: 0x999")) {
		t.Errorf("missing unknown-command warning in %q", buf.String())
	}
	if !bytes.Contains(buf.Bytes(), []byte("unhandled printer command: SetQuip (0x202)")) {
		t.Errorf("missing SetQuip warning in %q", buf.String())
	}
}

func TestPrint_NoSinkSkipsPipeline(t *testing.T) {
	rec, dec, dcmp, _ := newFakes(true)
	d := New(nil, dec, dcmp)

	ok, err := d.Print(context.Background(), []byte{1})
	if ok {
		t.Error("Print succeeded without a sink")
	}
	if !errors.Is(err, ErrNoSink) {
		t.Errorf("expected ErrNoSink, got %v", err)
	}
	if len(rec.calls) != 0 {
		t.Errorf("decode/decompress called without a sink: %v", rec.calls)
	}

	resp := d.Handle(context.Background(), envelope(types.CmdSetDeliveryAndPrint, 9))
	if resp.Code != types.RespBusy || resp.CommandID != 9 {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestPrint_StageOrdering(t *testing.T) {
	rec, dec, dcmp, sink := newFakes(true)
	d := New(sink, dec, dcmp)

	ok, err := d.Print(context.Background(), []byte{1})
	if err != nil || !ok {
		t.Fatalf("Print = %v, %v", ok, err)
	}
	want := []string{"decode", "decompress", "print"}
	for i := range want {
		if i >= len(rec.calls) || rec.calls[i] != want[i] {
			t.Fatalf("stage order = %v, want %v", rec.calls, want)
		}
	}
}

func TestPrint_DecodeFailureStopsPipeline(t *testing.T) {
	rec, dec, dcmp, sink := newFakes(true)
	dec.err = payload.ErrTruncated
	d := New(sink, dec, dcmp)

	ok, err := d.Print(context.Background(), []byte{1})
	if ok {
		t.Error("Print succeeded after decode failure")
	}
	if !errors.Is(err, payload.ErrTruncated) {
		t.Errorf("expected wrapped ErrTruncated, got %v", err)
	}
	if len(rec.calls) != 1 || rec.calls[0] != "decode" {
		t.Errorf("stages after failed decode: %v", rec.calls)
	}

	resp := d.Handle(context.Background(), envelope(types.CmdSetDeliveryAndPrint, 3))
	if resp.Code != types.RespBusy {
		t.Errorf("code = %s, want Busy", resp.Code)
	}
}

func TestPrint_DecompressFailureSkipsSink(t *testing.T) {
	rec, dec, dcmp, sink := newFakes(true)
	dcmp.err = rle.ErrEmpty
	d := New(sink, dec, dcmp)

	ok, err := d.Print(context.Background(), []byte{1})
	if ok || !errors.Is(err, rle.ErrEmpty) {
		t.Errorf("Print = %v, %v", ok, err)
	}
	if len(rec.calls) != 2 {
		t.Errorf("sink reached after failed decompress: %v", rec.calls)
	}
}

func TestHandle_RealPipeline(t *testing.T) {
	rec := &recorder{}
	sink := &fakeSink{rec: rec, result: true}
	d := New(sink, payload.Decoder{}, rle.Decompressor{})

	blob := payload.Encode(&payload.Payload{PrintID: 12, Width: 4, RLE: payload.Block{Data: []byte{1, 2, 1}}})
	resp := d.Handle(context.Background(), &types.CommandEnvelope{
		Header:  types.CommandHeader{Command: types.CmdSetDeliveryAndPrint, CommandID: 1},
		Payload: blob,
	})
	if resp.Code != types.RespSuccess {
		t.Fatalf("code = %s, want Success", resp.Code)
	}
	if !bytes.Equal(sink.bits, []byte{0, 1, 1, 0}) {
		t.Errorf("bits = %v", sink.bits)
	}
	if sink.meta.PrintID != 12 {
		t.Errorf("print id = %d", sink.meta.PrintID)
	}
}
