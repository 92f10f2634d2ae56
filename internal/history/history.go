// Package history writes an audit trail of agent invocations: one markdown
// record per answered query, filed under a per-stage directory with a
// monotonically increasing ID.
//
// Recording is fire-and-forget from the agent's point of view; a failed
// record never affects the answer already produced.
package history

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/siterag/siterag/internal/log"
)

// DefaultStage files records that do not belong to a specific feature.
const DefaultStage = "general"

// SourceRef is one retrieved source cited by a response.
type SourceRef struct {
	URL   string
	Score float32
}

// Entry is one recorded agent invocation.
type Entry struct {
	Prompt   string
	Response string
	Title    string
	Stage    string // record category; empty means DefaultStage
	Model    string
	Command  string // the CLI invocation that triggered the query
	Sources  []SourceRef
	Outcome  string // one-line summary of the interaction's outcome
}

// Recorder writes entries under a base directory.
type Recorder struct {
	dir    string
	now    func() time.Time
	logger log.Logger
}

// NewRecorder creates a Recorder rooted at dir.
func NewRecorder(dir string, logger log.Logger) *Recorder {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Recorder{
		dir:    dir,
		now:    time.Now,
		logger: logger,
	}
}

// recordFileRe matches existing record filenames so the next ID can be
// allocated as max+1.
var recordFileRe = regexp.MustCompile(`^(\d+)-.*\.prompt\.md$`)

// Record writes one entry and returns the path of the stored file.
func (r *Recorder) Record(entry Entry) (string, error) {
	stage := entry.Stage
	if stage == "" {
		stage = DefaultStage
	}

	stageDir := filepath.Join(r.dir, stage)
	if err := os.MkdirAll(stageDir, 0o750); err != nil {
		return "", fmt.Errorf("create history dir: %w", err)
	}

	id, err := r.nextID(stageDir)
	if err != nil {
		return "", err
	}

	name := fmt.Sprintf("%03d-%s.%s.prompt.md", id, slug(entry.Title), stage)
	path := filepath.Join(stageDir, name)

	if err := os.WriteFile(path, []byte(r.render(id, stage, entry)), 0o640); err != nil {
		return "", fmt.Errorf("write history record: %w", err)
	}

	r.logger.Debug("recorded prompt history", "path", path)
	return path, nil
}

// nextID scans stageDir for existing records and returns max ID + 1.
func (r *Recorder) nextID(stageDir string) (int, error) {
	entries, err := os.ReadDir(stageDir)
	if err != nil {
		return 0, fmt.Errorf("scan history dir: %w", err)
	}

	maxID := 0
	for _, e := range entries {
		m := recordFileRe.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		if id, err := strconv.Atoi(m[1]); err == nil && id > maxID {
			maxID = id
		}
	}
	return maxID + 1, nil
}

var nonWordRe = regexp.MustCompile(`[^\w\s-]`)
var separatorRe = regexp.MustCompile(`[\s_-]+`)

// slug converts a title into a filename-friendly form.
func slug(title string) string {
	s := strings.ToLower(title)
	s = nonWordRe.ReplaceAllString(s, "")
	s = separatorRe.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

func (r *Recorder) render(id int, stage string, entry Entry) string {
	var sb strings.Builder

	sb.WriteString("---\n")
	fmt.Fprintf(&sb, "id: %d\n", id)
	fmt.Fprintf(&sb, "title: %q\n", entry.Title)
	fmt.Fprintf(&sb, "stage: %s\n", stage)
	fmt.Fprintf(&sb, "date: %s\n", r.now().Format(time.RFC3339))
	fmt.Fprintf(&sb, "model: %s\n", entry.Model)
	fmt.Fprintf(&sb, "command: %q\n", entry.Command)
	sb.WriteString("sources:\n")
	if len(entry.Sources) == 0 {
		sb.WriteString("  - none\n")
	}
	for _, src := range entry.Sources {
		fmt.Fprintf(&sb, "  - url: %s\n    score: %.4f\n", src.URL, src.Score)
	}
	fmt.Fprintf(&sb, "outcome: %q\n", entry.Outcome)
	sb.WriteString("---\n\n")

	sb.WriteString("## Prompt\n\n")
	sb.WriteString(entry.Prompt)
	sb.WriteString("\n\n## Response\n\n")
	sb.WriteString(entry.Response)
	sb.WriteString("\n")

	return sb.String()
}
