package oracle

import (
	"os"
	"time"

	"vibetrader/internal/logger"
	"vibetrader/internal/types"
)

// FileSource feeds the engine from a decision drop file: an upstream
// process writes the JSON decision array, the loop consumes it at most
// once per modification. A missing file means no new decisions.
type FileSource struct {
	path     string
	parser   *Parser
	consumed time.Time
}

func NewFileSource(path string, parser *Parser) *FileSource {
	return &FileSource{path: path, parser: parser}
}

// Next returns the intents from the drop file when it has changed since
// the last consume. A payload that fails validation is logged, marked
// consumed and dropped: a bad batch must not be retried every cycle.
func (s *FileSource) Next() ([]types.Intent, bool, error) {
	if s.path == "" {
		return nil, false, nil
	}
	info, err := os.Stat(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	if !info.ModTime().After(s.consumed) {
		return nil, false, nil
	}

	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, false, err
	}
	s.consumed = info.ModTime()

	intents, err := s.parser.Parse(string(raw))
	if err != nil {
		logger.Errorf("decision payload rejected: %v", err)
		return nil, false, nil
	}
	logger.Infof("consumed %d decision(s) from %s", len(intents), s.path)
	return intents, true, nil
}
