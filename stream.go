package logrotate

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"sync"

	"github.com/nxadm/tail"
)

// Stream is one running read of a file.
type Stream interface {
	// Run delivers output chunks to onChunk until the read ends, then
	// returns its exit code. A killed or failed stream reports -1.
	// Run is called at most once.
	Run(onChunk func([]byte)) int
	// Kill ends the read. It may be called before, during or after Run.
	Kill() error
}

// Streamer starts reads of files. Tail with follow set keeps reading as the
// file grows until the stream is killed.
type Streamer interface {
	Tail(file string, lines int, follow bool) (Stream, error)
	Head(file string, lines int) (Stream, error)
}

// DefaultStreamer spawns tail and head when both are on PATH and reads in
// process otherwise.
func DefaultStreamer() Streamer {
	tailPath, tailErr := exec.LookPath(DefaultTailPath)
	headPath, headErr := exec.LookPath(DefaultHeadPath)
	if tailErr == nil && headErr == nil {
		return &ExecStreamer{TailPath: tailPath, HeadPath: headPath}
	}
	return NativeStreamer{}
}

// ExecStreamer spawns the tail and head binaries.
type ExecStreamer struct {
	// TailPath is the tail binary, DefaultTailPath when empty
	TailPath string
	// HeadPath is the head binary, DefaultHeadPath when empty
	HeadPath string
}

// Tail spawns tail -n lines, adding -F when following
func (s *ExecStreamer) Tail(file string, lines int, follow bool) (Stream, error) {
	bin := s.TailPath
	if bin == "" {
		bin = DefaultTailPath
	}
	args := []string{"-n", strconv.Itoa(lines)}
	if follow {
		args = append(args, "-F")
	}
	args = append(args, file)
	return startExecStream(bin, args...)
}

// Head spawns head -n lines
func (s *ExecStreamer) Head(file string, lines int) (Stream, error) {
	bin := s.HeadPath
	if bin == "" {
		bin = DefaultHeadPath
	}
	return startExecStream(bin, "-n", strconv.Itoa(lines), file)
}

type execStream struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
}

func startExecStream(bin string, args ...string) (*execStream, error) {
	cmd := exec.Command(bin, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe for %s: %w", bin, err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", bin, err)
	}
	return &execStream{cmd: cmd, stdout: stdout}, nil
}

func (s *execStream) Run(onChunk func([]byte)) int {
	buf := make([]byte, 32*1024)
	for {
		n, err := s.stdout.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			onChunk(chunk)
		}
		if err != nil {
			break
		}
	}

	if err := s.cmd.Wait(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode()
		}
		return -1
	}
	return s.cmd.ProcessState.ExitCode()
}

func (s *execStream) Kill() error {
	if err := s.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}

// NativeStreamer reads files in process. Following is backed by nxadm/tail.
type NativeStreamer struct{}

// Tail reads the last lines of file and, when following, keeps reading
// from the end of what was read.
func (NativeStreamer) Tail(file string, lines int, follow bool) (Stream, error) {
	last, offset, err := readLastLines(file, lines, !follow)
	if err != nil {
		return nil, err
	}
	s := &nativeStream{prefix: last}
	if !follow {
		return s, nil
	}

	t, err := tail.TailFile(file, tail.Config{
		Location:  &tail.SeekInfo{Offset: offset, Whence: io.SeekStart},
		Follow:    true,
		ReOpen:    true,
		MustExist: true,
		Logger:    tail.DiscardingLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("follow %s: %w", file, err)
	}
	s.follower = t
	return s, nil
}

// Head reads the first lines of file
func (NativeStreamer) Head(file string, lines int) (Stream, error) {
	first, err := readFirstLines(file, lines)
	if err != nil {
		return nil, err
	}
	return &nativeStream{prefix: first}, nil
}

type nativeStream struct {
	prefix   []string
	follower *tail.Tail

	once   sync.Once
	mu     sync.Mutex
	killed bool
}

func (s *nativeStream) Run(onChunk func([]byte)) int {
	for _, line := range s.prefix {
		if s.isKilled() {
			return -1
		}
		onChunk([]byte(line + "\n"))
	}
	if s.follower == nil {
		return 0
	}

	for line := range s.follower.Lines {
		if line.Err != nil {
			continue
		}
		onChunk([]byte(line.Text + "\n"))
	}
	if s.isKilled() {
		return -1
	}
	if err := s.follower.Err(); err != nil {
		return 1
	}
	return 0
}

func (s *nativeStream) Kill() error {
	s.mu.Lock()
	s.killed = true
	s.mu.Unlock()

	var err error
	s.once.Do(func() {
		if s.follower != nil {
			err = s.follower.Stop()
			s.follower.Cleanup()
		}
	})
	return err
}

func (s *nativeStream) isKilled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.killed
}

// readLastLines returns up to limit trailing lines of path and the offset just
// past the last complete line. An unterminated final line is counted as a
// line only when includePartial is set; a follower picks it up otherwise.
func readLastLines(path string, limit int, includePartial bool) ([]string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer file.Close()

	reader := bufio.NewReader(file)
	var ring []string
	if limit > 0 {
		ring = make([]string, limit)
	}
	count, idx := 0, 0
	var offset int64
	for {
		line, err := reader.ReadString('\n')
		complete := len(line) > 0 && line[len(line)-1] == '\n'
		if complete {
			offset += int64(len(line))
			line = line[:len(line)-1]
		}
		if (complete || (includePartial && line != "")) && limit > 0 {
			ring[idx] = line
			idx = (idx + 1) % limit
			if count < limit {
				count++
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("read %s: %w", path, err)
		}
	}

	lines := make([]string, count)
	if count == limit && limit > 0 {
		for i := 0; i < count; i++ {
			lines[i] = ring[(idx+i)%limit]
		}
	} else {
		copy(lines, ring[:count])
	}
	return lines, offset, nil
}

func readFirstLines(path string, limit int) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var lines []string
	for len(lines) < limit && scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return lines, nil
}
