package transcribe

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mattermost/calls-speaker-transcriber/cmd/transcriber/audio"

	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	tcs := []struct {
		name string
		res  Result
		err  error
		exp  Outcome
	}{
		{
			name: "error",
			res:  Result{Text: "partial", Language: "en"},
			err:  fmt.Errorf("boom"),
			exp:  Outcome{Status: StatusFailed, Text: FailedText, Language: LanguageUnknown},
		},
		{
			name: "empty",
			res:  Result{Language: "en"},
			exp:  Outcome{Status: StatusNoSpeech, Text: NoSpeechText, Language: LanguageUnknown},
		},
		{
			name: "blank",
			res:  Result{Text: "  \n ", Language: "en"},
			exp:  Outcome{Status: StatusNoSpeech, Text: NoSpeechText, Language: LanguageUnknown},
		},
		{
			name: "text",
			res:  Result{Text: " hello there ", Language: "en"},
			exp:  Outcome{Status: StatusOK, Text: "hello there", Language: "English"},
		},
		{
			name: "unmapped language",
			res:  Result{Text: "hallo", Language: "xx"},
			exp:  Outcome{Status: StatusOK, Text: "hallo", Language: LanguageUnknown},
		},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.exp, Resolve(tc.res, tc.err))
		})
	}
}

func TestStatus(t *testing.T) {
	require.Equal(t, NoSpeechText, StatusNoSpeech.Sentinel())
	require.Equal(t, FailedText, StatusFailed.Sentinel())
	require.Empty(t, StatusOK.Sentinel())

	var s Status
	require.NoError(t, s.UnmarshalText([]byte("no_speech")))
	require.Equal(t, StatusNoSpeech, s)
	require.Error(t, s.UnmarshalText([]byte("nope")))
}

func TestLanguageName(t *testing.T) {
	require.Equal(t, "English", LanguageName("en"))
	require.Equal(t, "English", LanguageName("en-US"))
	require.Equal(t, "Spanish", LanguageName("ES"))
	require.Equal(t, "Chinese", LanguageName("zh"))
	require.Equal(t, "German", LanguageName("german"))
	require.Equal(t, LanguageUnknown, LanguageName(""))
	require.Equal(t, LanguageUnknown, LanguageName("auto"))
}

type mockLoader struct {
	buf audio.Buffer
	err error
}

func (l *mockLoader) Load(_ context.Context, _ string) (audio.Buffer, error) {
	return l.buf, l.err
}

type mockEngine struct {
	res       Result
	err       error
	delay     time.Duration
	inFlight  atomic.Int32
	maxFlight atomic.Int32
	destroyed atomic.Bool
}

func (e *mockEngine) Transcribe(_ []float32) (Result, error) {
	n := e.inFlight.Add(1)
	defer e.inFlight.Add(-1)
	for {
		cur := e.maxFlight.Load()
		if n <= cur || e.maxFlight.CompareAndSwap(cur, n) {
			break
		}
	}
	time.Sleep(e.delay)
	return e.res, e.err
}

func (e *mockEngine) Destroy() error {
	e.destroyed.Store(true)
	return nil
}

func TestClipTranscriber(t *testing.T) {
	loader := &mockLoader{buf: audio.Buffer{Samples: make([]float32, 1600), SampleRate: audio.SampleRate}}

	t.Run("invalid", func(t *testing.T) {
		_, err := NewClipTranscriber(nil, &mockEngine{})
		require.EqualError(t, err, "loader should not be nil")

		_, err = NewClipTranscriber(loader)
		require.EqualError(t, err, "at least one engine is required")
	})

	t.Run("success", func(t *testing.T) {
		engine := &mockEngine{res: Result{Text: "hi", Language: "en"}}
		tr, err := NewClipTranscriber(loader, engine)
		require.NoError(t, err)

		res, err := tr.Transcribe(context.Background(), "clip.wav")
		require.NoError(t, err)
		require.Equal(t, Result{Text: "hi", Language: "en"}, res)

		require.NoError(t, tr.Destroy())
		require.True(t, engine.destroyed.Load())
	})

	t.Run("engine failure", func(t *testing.T) {
		tr, err := NewClipTranscriber(loader, &mockEngine{err: fmt.Errorf("whisper_full failed")})
		require.NoError(t, err)

		_, err = tr.Transcribe(context.Background(), "clip.wav")
		require.EqualError(t, err, "failed to transcribe clip: whisper_full failed")
	})

	t.Run("load failure", func(t *testing.T) {
		tr, err := NewClipTranscriber(&mockLoader{err: fmt.Errorf("not found")}, &mockEngine{})
		require.NoError(t, err)

		_, err = tr.Transcribe(context.Background(), "clip.wav")
		require.EqualError(t, err, "failed to load clip: not found")
	})

	t.Run("empty clip", func(t *testing.T) {
		tr, err := NewClipTranscriber(&mockLoader{}, &mockEngine{res: Result{Text: "ghost"}})
		require.NoError(t, err)

		res, err := tr.Transcribe(context.Background(), "clip.wav")
		require.NoError(t, err)
		require.Empty(t, res.Text)
	})

	t.Run("engines are never shared", func(t *testing.T) {
		engine := &mockEngine{res: Result{Text: "hi"}, delay: 5 * time.Millisecond}
		tr, err := NewClipTranscriber(loader, engine)
		require.NoError(t, err)

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := tr.Transcribe(context.Background(), "clip.wav")
				require.NoError(t, err)
			}()
		}
		wg.Wait()

		require.Equal(t, int32(1), engine.maxFlight.Load())
	})

	t.Run("canceled while waiting for an engine", func(t *testing.T) {
		engine := &mockEngine{res: Result{Text: "hi"}, delay: 200 * time.Millisecond}
		tr, err := NewClipTranscriber(loader, engine)
		require.NoError(t, err)

		go func() {
			_, _ = tr.Transcribe(context.Background(), "clip.wav")
		}()
		time.Sleep(20 * time.Millisecond)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		_, err = tr.Transcribe(ctx, "clip.wav")
		require.ErrorIs(t, err, context.DeadlineExceeded)
	})
}
