package source

import (
	"context"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/talent-matcher/internal/model"
	"github.com/sells-group/talent-matcher/internal/similarity"
)

// FileSource reads reviewer profiles from a YAML file and filters them
// in memory. It backs the CLI and test fixtures.
type FileSource struct {
	path string
}

// NewFileSource creates a source over a YAML pool file.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

type poolFile struct {
	Reviewers []model.Reviewer `yaml:"reviewers"`
}

func (s *FileSource) Fetch(ctx context.Context, criteria Criteria) ([]model.Reviewer, error) {
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "source: fetch cancelled")
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, eris.Wrapf(err, "source: read %s", s.path)
	}

	var pool poolFile
	if err := yaml.Unmarshal(data, &pool); err != nil {
		// Allow a bare list of reviewers as well as the wrapped form.
		var bare []model.Reviewer
		if err2 := yaml.Unmarshal(data, &bare); err2 != nil {
			return nil, eris.Wrapf(err, "source: parse %s", s.path)
		}
		pool.Reviewers = bare
	}

	out := make([]model.Reviewer, 0, len(pool.Reviewers))
	for i := range pool.Reviewers {
		if matches(&pool.Reviewers[i], criteria) {
			out = append(out, pool.Reviewers[i])
		}
	}
	return sanitize(out, criteria.Limit), nil
}

// hasSkillFor reports whether any reviewer skill covers the category,
// matched on normalized tags in either containment direction.
func hasSkillFor(r *model.Reviewer, category string) bool {
	want := similarity.NormalizeTag(category)
	if want == "" {
		return true
	}
	for _, s := range r.Skills {
		got := similarity.NormalizeTag(s)
		if got == "" {
			continue
		}
		if strings.Contains(got, want) || strings.Contains(want, got) {
			return true
		}
	}
	return false
}
