package piper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/mitchellh/go-homedir"

	"github.com/dgnsrekt/recite/tts"
)

const modelExt = ".onnx"

// ErrBinaryNotFound is returned when no Piper executable can be located.
var ErrBinaryNotFound = errors.New("piper binary not found")

// Request is one synthesis job.
type Request struct {
	Text    string
	Model   string  // Path to the .onnx voice model
	Rate    float64 // Speech rate multiplier, 1.0 = normal
	Speaker int     // Speaker of multi-speaker models
}

// Synthesizer turns text into 16-bit little-endian mono PCM.
type Synthesizer interface {
	Synthesize(ctx context.Context, req Request) ([]byte, error)
}

// SynthesizerFunc adapts a function to the Synthesizer interface.
type SynthesizerFunc func(ctx context.Context, req Request) ([]byte, error)

// Synthesize calls f.
func (f SynthesizerFunc) Synthesize(ctx context.Context, req Request) ([]byte, error) {
	return f(ctx, req)
}

// Process runs a fresh Piper process per request.
type Process struct {
	binary string
	cfg    tts.PiperConfig
}

// NewProcess locates the Piper binary.
func NewProcess(cfg tts.PiperConfig) (*Process, error) {
	binary, err := findBinary(cfg.Binary)
	if err != nil {
		return nil, err
	}
	return &Process{binary: binary, cfg: cfg}, nil
}

// Binary returns the path of the Piper executable.
func (p *Process) Binary() string {
	return p.binary
}

// Synthesize runs Piper with the text on stdin and returns its raw output.
func (p *Process) Synthesize(ctx context.Context, req Request) ([]byte, error) {
	cmd := exec.CommandContext(ctx, p.binary, p.args(req)...)
	cmd.Stdin = strings.NewReader(req.Text + "\n")

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("piper failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return out, nil
}

func (p *Process) args(req Request) []string {
	rate := req.Rate
	if rate <= 0 {
		rate = 1
	}

	args := []string{
		"--model", req.Model,
		"--output_raw",
		"--length_scale", strconv.FormatFloat(1/rate, 'f', 3, 64),
		"--noise_scale", strconv.FormatFloat(p.cfg.NoiseScale, 'f', 3, 64),
		"--noise_w", strconv.FormatFloat(p.cfg.NoiseW, 'f', 3, 64),
	}
	if req.Speaker > 0 {
		args = append(args, "--speaker", strconv.Itoa(req.Speaker))
	}
	return args
}

// ModelPath returns the model file for a voice. Absolute paths and paths
// ending in .onnx are used as given.
func ModelPath(dir, voice string) string {
	if filepath.IsAbs(voice) || strings.HasSuffix(voice, modelExt) {
		return voice
	}
	return filepath.Join(dir, voice+modelExt)
}

// ListVoices returns a voice for each model file in dir.
func ListVoices(dir string) ([]tts.Voice, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read voice directory: %w", err)
	}

	var voices []tts.Voice
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, modelExt) {
			continue
		}
		id := strings.TrimSuffix(name, modelExt)
		voices = append(voices, tts.Voice{
			ID:       id,
			Name:     id,
			Language: languageOf(id),
		})
	}
	sort.Slice(voices, func(i, j int) bool { return voices[i].ID < voices[j].ID })
	return voices, nil
}

// languageOf reads the locale prefix of a model name such as
// "en_US-lessac-medium".
func languageOf(model string) string {
	locale, _, _ := strings.Cut(model, "-")
	return strings.ReplaceAll(locale, "_", "-")
}

// findBinary resolves name on PATH and in the usual user locations.
func findBinary(name string) (string, error) {
	if name == "" {
		name = "piper"
	}
	if strings.ContainsRune(name, filepath.Separator) {
		path, err := homedir.Expand(name)
		if err != nil {
			return "", err
		}
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("%w: %w", ErrBinaryNotFound, err)
		}
		return path, nil
	}

	if path, err := exec.LookPath(name); err == nil {
		return path, nil
	}
	if home, err := homedir.Dir(); err == nil {
		for _, dir := range []string{
			filepath.Join(home, ".local", "bin"),
			filepath.Join(home, "bin"),
		} {
			if path, err := exec.LookPath(filepath.Join(dir, name)); err == nil {
				return path, nil
			}
		}
	}
	return "", fmt.Errorf("%w: %q", ErrBinaryNotFound, name)
}
