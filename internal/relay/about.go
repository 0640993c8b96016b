package relay

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Primer serves the CoqHammer introduction text behind /learnhammer/.
type Primer struct {
	path string
}

func NewPrimer(path string) *Primer {
	return &Primer{path: filepath.Clean(path)}
}

func (p *Primer) Path() string {
	return p.path
}

// Lines reads the primer fresh on every call and returns its lines in order.
// Each line keeps its trailing newline; only the last one may lack it.
// A missing file yields an error satisfying errors.Is(err, fs.ErrNotExist).
func (p *Primer) Lines() ([]string, error) {
	f, err := os.Open(p.path) // #nosec G304 -- path comes from config
	if err != nil {
		return nil, fmt.Errorf("opening primer: %w", err)
	}
	defer f.Close()

	lines := []string{}
	r := bufio.NewReader(f)
	for {
		line, err := r.ReadString('\n')
		if line != "" {
			lines = append(lines, line)
		}
		if errors.Is(err, io.EOF) {
			return lines, nil
		}
		if err != nil {
			return nil, fmt.Errorf("reading primer: %w", err)
		}
	}
}
