package recognizer

import (
	"context"
	"encoding/binary"
	"errors"
	"math"
	"testing"
)

const testRate = 1000 // samples per second, keeps chunks small

// tone returns n samples of constant amplitude.
func tone(n int, amplitude int16) []byte {
	pcm := make([]byte, 2*n)
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint16(pcm[2*i:], uint16(amplitude))
	}
	return pcm
}

func newTestWhisper(transcribe transcribeFunc) *WhisperCppAdapter {
	a := NewWhisperCppAdapter(WhisperCppConfig{
		ModelPath:      "/unused",
		SampleRate:     testRate,
		PauseThreshold: 0.5,
	})
	a.transcribe = transcribe
	return a
}

func TestWhisperCppAdapter_UtteranceAtPause(t *testing.T) {
	var got []byte
	a := newTestWhisper(func(_ context.Context, pcm []byte) (string, error) {
		got = append([]byte(nil), pcm...)
		return " hello there world ", nil
	})

	// 0.2 s silence, 0.4 s speech, then silence until the pause closes the utterance
	if res, _ := a.Feed(tone(200, 0)); res.IsFinal() || res.Partial != "" {
		t.Fatalf("leading silence produced %+v", res)
	}
	for i := 0; i < 2; i++ {
		res, err := a.Feed(tone(200, 3000))
		if err != nil || res.Partial != SpeakingHint {
			t.Fatalf("speech chunk %d = %+v, %v", i, res, err)
		}
	}
	// 0.2 s of silence is below the 0.5 s threshold
	if res, _ := a.Feed(tone(200, 0)); res.IsFinal() {
		t.Fatal("utterance closed too early")
	}
	res, err := a.Feed(tone(400, 0))
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsFinal() {
		t.Fatalf("expected final after pause, got %+v", res)
	}

	ev, ok := res.Event()
	if !ok || ev.Text != "hello there world" {
		t.Fatalf("event = %+v", ev)
	}
	if math.Abs(*ev.Start-0.2) > 1e-9 || math.Abs(*ev.End-0.6) > 1e-9 {
		t.Errorf("offsets = %v..%v, want 0.2..0.6", *ev.Start, *ev.End)
	}
	if len(res.Words) != 3 {
		t.Errorf("words = %+v", res.Words)
	}
	// speech plus trailing silence
	if len(got) != 2*(400+600) {
		t.Errorf("transcribed %d bytes", len(got))
	}

	if res, _ := a.Flush(); res.IsFinal() {
		t.Error("nothing left to flush")
	}
}

func TestWhisperCppAdapter_FlushMidUtterance(t *testing.T) {
	a := newTestWhisper(func(context.Context, []byte) (string, error) { return "tail", nil })

	a.Feed(tone(100, 0))
	a.Feed(tone(100, 4000))
	res, err := a.Flush()
	if err != nil {
		t.Fatal(err)
	}
	ev, ok := res.Event()
	if !ok || ev.Text != "tail" || math.Abs(*ev.Start-0.1) > 1e-9 || math.Abs(*ev.End-0.2) > 1e-9 {
		t.Errorf("flush event = %+v", ev)
	}
}

func TestWhisperCppAdapter_EmptyTranscriptAndErrors(t *testing.T) {
	a := newTestWhisper(func(context.Context, []byte) (string, error) { return "   ", nil })
	a.Feed(tone(100, 4000))
	if res, err := a.Flush(); err != nil || res.IsFinal() {
		t.Errorf("blank transcript should yield no result, got %+v, %v", res, err)
	}

	boom := errors.New("whisper crashed")
	a = newTestWhisper(func(context.Context, []byte) (string, error) { return "", boom })
	a.Feed(tone(100, 4000))
	if _, err := a.Flush(); !errors.Is(err, boom) {
		t.Errorf("expected transcribe error, got %v", err)
	}
	// state is reset after a failed utterance
	if res, err := a.Flush(); err != nil || res.IsFinal() {
		t.Errorf("second flush = %+v, %v", res, err)
	}
}

func TestSpreadWords(t *testing.T) {
	words := spreadWords("a b c d", 1, 3)
	if len(words) != 4 {
		t.Fatalf("got %d words", len(words))
	}
	if words[0].Start != 1 || words[3].End != 3 || words[1].Start != 1.5 {
		t.Errorf("words = %+v", words)
	}
	if spreadWords("  ", 0, 1) != nil {
		t.Error("blank text should give no words")
	}
}

func TestRMS(t *testing.T) {
	if rms(nil) != 0 {
		t.Error("empty rms should be 0")
	}
	if got := rms(tone(10, -1000)); math.Abs(got-1000) > 1e-9 {
		t.Errorf("rms = %v, want 1000", got)
	}
}

func TestPcmToWAV(t *testing.T) {
	pcm := tone(8, 1)
	wav := pcmToWAV(pcm, 16000)
	if len(wav) != 44+len(pcm) {
		t.Fatalf("wav length = %d", len(wav))
	}
	if string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" || string(wav[36:40]) != "data" {
		t.Error("bad chunk ids")
	}
	if binary.LittleEndian.Uint32(wav[24:28]) != 16000 {
		t.Error("bad sample rate")
	}
	if binary.LittleEndian.Uint32(wav[40:44]) != uint32(len(pcm)) {
		t.Error("bad data size")
	}
}
