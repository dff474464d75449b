package collector

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"InstabilitySentinel/internal/model"
)

// FileSource reads scores from a drop file written by the scoring producer.
// The file is YAML; JSON documents parse as well.
//
//	scores:
//	  - code: UA
//	    score: 65
//	    components: {unrest: 45, security: 78, information: 52}
type FileSource struct {
	Path string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

func (f *FileSource) Name() string { return "file:" + f.Path }

type scoreFile struct {
	Scores []model.CountryScore `yaml:"scores"`
}

func (f *FileSource) FetchScores() ([]model.CountryScore, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("read scores: %w", err)
	}
	var doc scoreFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse scores: %w", err)
	}
	return doc.Scores, nil
}
