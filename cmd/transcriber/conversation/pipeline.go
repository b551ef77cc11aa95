package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/mattermost/calls-speaker-transcriber/cmd/transcriber/audio"
	"github.com/mattermost/calls-speaker-transcriber/cmd/transcriber/transcribe"

	"github.com/google/uuid"
)

var (
	ErrInputNotFound = errors.New("input recording not found")
	ErrNoTurns       = errors.New("no speaker turns detected")
)

// SpeakerIdentifier resolves a clip to an enrolled speaker name, or to
// "Unknown" when no enrolled profile matches.
type SpeakerIdentifier interface {
	IdentifyBuffer(ctx context.Context, buf audio.Buffer) string
}

type AudioLoader interface {
	Load(ctx context.Context, path string) (audio.Buffer, error)
}

type Pipeline struct {
	cfg         Config
	segmenter   Segmenter
	identifier  SpeakerIdentifier
	transcriber transcribe.Transcriber
	loader      AudioLoader
}

// Run holds the state and the results of a single pipeline execution.
type Run struct {
	ID         string
	State      State
	Turns      []Turn
	Segments   []transcribe.Segment
	Transcript transcribe.Transcript

	workDir string
}

func (r *Run) setState(state State) {
	slog.Debug("pipeline state change",
		slog.String("runID", r.ID),
		slog.String("from", r.State.String()),
		slog.String("to", state.String()))
	r.State = state
}

func NewPipeline(cfg Config, segmenter Segmenter, identifier SpeakerIdentifier, transcriber transcribe.Transcriber, loader AudioLoader) (*Pipeline, error) {
	cfg.SetDefaults()
	if err := cfg.IsValid(); err != nil {
		return nil, fmt.Errorf("failed to validate config: %w", err)
	}
	if segmenter == nil {
		return nil, fmt.Errorf("segmenter should not be nil")
	}
	if identifier == nil {
		return nil, fmt.Errorf("identifier should not be nil")
	}
	if transcriber == nil {
		return nil, fmt.Errorf("transcriber should not be nil")
	}
	if loader == nil {
		return nil, fmt.Errorf("loader should not be nil")
	}

	return &Pipeline{
		cfg:         cfg,
		segmenter:   segmenter,
		identifier:  identifier,
		transcriber: transcriber,
		loader:      loader,
	}, nil
}

// Run segments the recording at audioPath, identifies and transcribes every
// turn and assembles the resulting transcript. The returned run is never nil.
func (p *Pipeline) Run(ctx context.Context, audioPath string) (*Run, error) {
	run := &Run{
		ID:    uuid.NewString(),
		State: StateInit,
	}

	if _, err := os.Stat(audioPath); err != nil {
		run.setState(StateFailed)
		if os.IsNotExist(err) {
			return run, fmt.Errorf("%w: %s", ErrInputNotFound, audioPath)
		}
		return run, fmt.Errorf("failed to stat input: %w", err)
	}

	run.workDir = filepath.Join(p.cfg.DataDir, tmpDirName, run.ID)
	if err := os.MkdirAll(run.workDir, 0700); err != nil {
		run.setState(StateFailed)
		return run, fmt.Errorf("failed to create work dir: %w", err)
	}
	defer removeIfEmpty(run.workDir)

	slog.Info("processing recording", slog.String("runID", run.ID), slog.String("path", audioPath))

	recording, err := p.loader.Load(ctx, audioPath)
	if err != nil {
		run.setState(StateFailed)
		return run, fmt.Errorf("failed to load recording: %w", err)
	}

	run.setState(StateSegmenting)
	turns, err := p.segment(ctx, run, audioPath, recording)
	if err != nil {
		run.setState(StateFailed)
		return run, fmt.Errorf("failed to segment recording: %w", err)
	}
	if len(turns) == 0 {
		run.setState(StateFailed)
		return run, ErrNoTurns
	}
	run.Turns = turns
	slog.Info("segmentation completed", slog.String("runID", run.ID), slog.Int("turns", len(turns)))

	run.setState(StateProcessingTurns)
	start := time.Now()
	segments, err := p.processTurns(ctx, run, recording)
	if err != nil {
		run.setState(StateFailed)
		return run, err
	}
	run.Segments = segments

	var samplesDur time.Duration
	for _, t := range turns {
		samplesDur += time.Duration(t.Duration() * float64(time.Second))
	}
	dur := time.Since(start)
	slog.Info(fmt.Sprintf("turn processing completed: transcribed %v of audio in %v, %0.2fx",
		samplesDur, dur, samplesDur.Seconds()/dur.Seconds()), slog.String("runID", run.ID))

	run.setState(StateAssembling)
	run.Transcript = transcribe.Assemble(segments)
	run.setState(StateDone)

	return run, nil
}

// Process runs the pipeline and writes the transcript to outputPath, or to
// <DataDir>/<base>_transcript.txt when outputPath is empty. It returns the
// path of the text transcript. A missing input or a recording with no speaker
// turns yields an empty path and no error.
func (p *Pipeline) Process(ctx context.Context, audioPath, outputPath string) (string, error) {
	run, err := p.Run(ctx, audioPath)
	if errors.Is(err, ErrInputNotFound) || errors.Is(err, ErrNoTurns) {
		slog.Error("no transcript produced", slog.String("runID", run.ID), slog.String("err", err.Error()))
		return "", nil
	} else if err != nil {
		return "", err
	}

	if outputPath == "" {
		base := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
		outputPath = filepath.Join(p.cfg.DataDir, base+outputSuffix+".txt")
	}

	if err := p.writeOutputs(run, outputPath); err != nil {
		return "", err
	}

	return outputPath, nil
}

func (p *Pipeline) writeOutputs(run *Run, outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0700); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}

	var sb strings.Builder
	if err := run.Transcript.Text(&sb, p.cfg.Output.Text); err != nil {
		return fmt.Errorf("failed to render transcript: %w", err)
	}
	if err := os.WriteFile(outputPath, []byte(sb.String()), 0600); err != nil {
		return fmt.Errorf("failed to write transcript: %w", err)
	}

	slog.Info("transcript saved", slog.String("runID", run.ID), slog.String("path", outputPath))

	preview := sb.String()
	if len(preview) > previewLen {
		preview = preview[:previewLen] + "..."
	}
	slog.Debug("transcript preview", slog.String("runID", run.ID), slog.String("text", preview))

	base := strings.TrimSuffix(outputPath, filepath.Ext(outputPath))

	if p.cfg.Output.WriteWebVTT {
		if err := writeFile(base+".vtt", func(f *os.File) error {
			return run.Transcript.WebVTT(f, p.cfg.Output.WebVTT)
		}); err != nil {
			return fmt.Errorf("failed to write WebVTT file: %w", err)
		}
	}

	if p.cfg.Output.WriteJSON {
		if err := writeFile(base+".json", func(f *os.File) error {
			return transcribe.WriteJSON(f, run.Segments)
		}); err != nil {
			return fmt.Errorf("failed to write JSON file: %w", err)
		}
	}

	return nil
}

// segment hands the recording to the segmenter. Recordings that are not WAV
// are first normalized into a temporary WAV file.
func (p *Pipeline) segment(ctx context.Context, run *Run, audioPath string, recording audio.Buffer) ([]Turn, error) {
	if strings.EqualFold(filepath.Ext(audioPath), ".wav") {
		return p.segmenter.Segment(ctx, audioPath)
	}

	path, cleanup, err := audio.TempClip(run.workDir, "recording-*.wav", recording)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	return p.segmenter.Segment(ctx, path)
}

func (p *Pipeline) processTurns(ctx context.Context, run *Run, recording audio.Buffer) ([]transcribe.Segment, error) {
	segments := make([]transcribe.Segment, len(run.Turns))

	jobs := make(chan int)
	var wg sync.WaitGroup
	for i := 0; i < p.cfg.NumWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				segments[idx] = p.processTurn(ctx, run, idx, recording)
			}
		}()
	}

loop:
	for idx := range run.Turns {
		if ctx.Err() != nil {
			break
		}
		select {
		case jobs <- idx:
		case <-ctx.Done():
			break loop
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("turn processing interrupted: %w", err)
	}

	return segments, nil
}

// processTurn never fails: any error degrades the turn to a sentinel segment.
func (p *Pipeline) processTurn(ctx context.Context, run *Run, idx int, recording audio.Buffer) transcribe.Segment {
	turn := run.Turns[idx]
	seg := transcribe.Segment{
		Start:    turn.Start,
		End:      turn.End,
		Speaker:  unknownSpeaker,
		RawLabel: turn.Label,
	}

	log := slog.With(slog.String("runID", run.ID), slog.Int("turn", idx), slog.String("label", turn.Label))
	stage := func(s TurnStage) {
		log.Debug("turn stage", slog.String("stage", s.String()))
	}
	fail := func(msg string, err error) transcribe.Segment {
		log.Error(msg, slog.String("err", err.Error()))
		outcome := transcribe.Resolve(transcribe.Result{}, err)
		seg.Text = outcome.Text
		seg.Language = outcome.Language
		seg.Status = outcome.Status
		stage(StageRecorded)
		return seg
	}

	stage(StageExtracting)
	clip, err := recording.Extract(turn.Start, turn.End)
	if err != nil {
		return fail("failed to extract turn", err)
	}

	stage(StageIdentifying)
	speaker, err := withDeadline(ctx, p.cfg.TurnTimeout, func(ctx context.Context) (string, error) {
		return p.identifier.IdentifyBuffer(ctx, clip), nil
	})
	if err != nil {
		log.Warn("speaker identification timed out", slog.String("err", err.Error()))
	} else {
		seg.Speaker = speaker
	}

	stage(StageTranscribing)
	clipPath, cleanup, err := audio.TempClip(run.workDir, fmt.Sprintf("turn-%04d-*.wav", idx), clip)
	if err != nil {
		return fail("failed to write turn clip", err)
	}

	// The clip is owned by the transcription call: a call abandoned on timeout
	// may still be reading it, and keeps its engine, until it returns.
	res, err := withDeadline(ctx, p.cfg.TurnTimeout, func(ctx context.Context) (transcribe.Result, error) {
		defer cleanup()
		return p.transcriber.Transcribe(ctx, clipPath)
	})
	if err != nil {
		return fail("failed to transcribe turn", err)
	}

	outcome := transcribe.Resolve(res, nil)
	seg.Text = outcome.Text
	seg.Language = outcome.Language
	seg.Status = outcome.Status

	stage(StageRecorded)
	log.Debug("turn processed",
		slog.String("speaker", seg.Speaker),
		slog.String("status", seg.Status.String()),
		slog.String("language", seg.Language))

	return seg
}

// withDeadline runs fn and gives up waiting once timeout elapses. A zero
// timeout waits for as long as ctx allows. On expiry fn is left running in
// the background and its result is discarded.
func withDeadline[T any](ctx context.Context, timeout time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type result struct {
		val T
		err error
	}
	resCh := make(chan result, 1)
	go func() {
		val, err := fn(ctx)
		resCh <- result{val, err}
	}()

	select {
	case res := <-resCh:
		return res.val, res.err
	case <-ctx.Done():
		return zero, fmt.Errorf("deadline reached: %w", ctx.Err())
	}
}

func writeFile(path string, write func(f *os.File) error) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to open output file: %w", err)
	}
	defer f.Close()

	if err := write(f); err != nil {
		return err
	}

	slog.Info("output saved", slog.String("path", path))

	return nil
}

// removeIfEmpty removes dir only when nothing was left behind in it.
func removeIfEmpty(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		slog.Error("failed to read work dir", slog.String("err", err.Error()), slog.String("path", dir))
		return
	}
	if len(entries) > 0 {
		slog.Warn("work dir is not empty, leaving it in place", slog.String("path", dir), slog.Int("entries", len(entries)))
		return
	}
	if err := os.Remove(dir); err != nil {
		slog.Error("failed to remove work dir", slog.String("err", err.Error()), slog.String("path", dir))
	}
}
