package bench

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/verte-zerg/subcrack/internal/analyzer"
	"github.com/verte-zerg/subcrack/internal/langmodel"
)

const (
	// DefaultWaitDelay bounds how long Run waits for output pipes after a kill.
	DefaultWaitDelay = time.Second

	maxStderr = 4096
)

// ErrMalformedOutput is returned when a program does not print a key line.
var ErrMalformedOutput = errors.New("bench: malformed algorithm output")

// Input names the files handed to one algorithm run.
type Input struct {
	CipherPath  string
	BigramsPath string
	WorkDir     string
	Seed        int64
}

// Output is what an algorithm reports back.
type Output struct {
	Key       string
	Plaintext string
	ExitCode  int
	Stderr    string
}

// Algorithm is one contestant in a benchmark.
type Algorithm interface {
	Name() string
	Run(ctx context.Context, in Input) (Output, error)
}

// InProcess runs the built-in analyzer.
type InProcess struct {
	Label   string
	Options analyzer.Options
}

// Name implements Algorithm.
func (p InProcess) Name() string {
	if p.Label != "" {
		return p.Label
	}
	algo, err := analyzer.ParseAlgorithm(string(p.Options.Algorithm))
	if err != nil {
		return string(p.Options.Algorithm)
	}
	return string(algo)
}

// Run implements Algorithm.
func (p InProcess) Run(ctx context.Context, in Input) (Output, error) {
	data, err := os.ReadFile(in.CipherPath)
	if err != nil {
		return Output{}, fmt.Errorf("failed to read ciphertext: %w", err)
	}
	opts := p.Options
	opts.Rand = nil
	opts.Trace = nil
	opts.Seed = in.Seed
	a, err := analyzer.New(opts)
	if err != nil {
		return Output{}, err
	}
	w, err := langmodel.LoadFile(in.BigramsPath, opts.Alpha, opts.Alphabet)
	if err != nil {
		return Output{}, fmt.Errorf("failed to load bigrams: %w", err)
	}
	res, err := a.Analyze(ctx, string(data), w)
	if err != nil {
		return Output{}, err
	}
	return Output{Key: res.Key.String(), Plaintext: res.Plaintext}, nil
}

// External runs a separate program. Args may contain the placeholders
// {cipher}, {bigrams}, {workdir} and {seed}. The program prints the key on
// its first non-empty stdout line and the plaintext after it.
type External struct {
	Label   string
	Command string
	Args    []string
	Env     []string
}

// NewExternal splits a command line on whitespace.
func NewExternal(label, commandLine string) (External, error) {
	fields := strings.Fields(commandLine)
	if len(fields) == 0 {
		return External{}, errors.New("bench: empty command")
	}
	if label == "" {
		label = fields[0]
	}
	return External{Label: label, Command: fields[0], Args: fields[1:]}, nil
}

// Name implements Algorithm.
func (e External) Name() string {
	if e.Label != "" {
		return e.Label
	}
	return e.Command
}

// Run implements Algorithm. The process is killed when ctx ends.
func (e External) Run(ctx context.Context, in Input) (Output, error) {
	repl := strings.NewReplacer(
		"{cipher}", in.CipherPath,
		"{bigrams}", in.BigramsPath,
		"{workdir}", in.WorkDir,
		"{seed}", strconv.FormatInt(in.Seed, 10),
	)
	args := make([]string, len(e.Args))
	for i, arg := range e.Args {
		args[i] = repl.Replace(arg)
	}

	cmd := exec.CommandContext(ctx, e.Command, args...)
	cmd.Dir = in.WorkDir
	cmd.WaitDelay = DefaultWaitDelay
	if len(e.Env) > 0 {
		cmd.Env = append(os.Environ(), e.Env...)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	// ExitCode is -1 when the process never started or was killed.
	out := Output{ExitCode: cmd.ProcessState.ExitCode(), Stderr: tail(stderr.String(), maxStderr)}
	if err != nil {
		return out, err
	}
	key, plain, err := parseOutput(stdout.String())
	if err != nil {
		return out, err
	}
	out.Key = key
	out.Plaintext = plain
	return out, nil
}

func parseOutput(stdout string) (string, string, error) {
	lines := strings.Split(strings.ReplaceAll(stdout, "\r\n", "\n"), "\n")
	for i, line := range lines {
		key := strings.TrimSpace(line)
		if key == "" {
			continue
		}
		plain := strings.TrimRight(strings.Join(lines[i+1:], "\n"), "\n")
		return key, plain, nil
	}
	return "", "", ErrMalformedOutput
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
