package importer

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/mind-engage/mindengage-curriculum/internal/answer/editor"
	"github.com/mind-engage/mindengage-curriculum/internal/curriculum"
	"github.com/mind-engage/mindengage-curriculum/internal/logger"
)

// seedNamespace derives stable IDs for seed entries that name no UUID, so
// seeding the same directory twice updates rather than duplicates.
var seedNamespace = uuid.MustParse("5b7d1f0e-3c55-4d6b-9a51-6a1c0f2e8d34")

type seedSubject struct {
	ID          string     `yaml:"id"`
	Name        string     `yaml:"name"`
	Slug        string     `yaml:"slug"`
	Description string     `yaml:"description"`
	Position    int        `yaml:"position"`
	Units       []seedUnit `yaml:"units"`
}

type seedUnit struct {
	ID        string         `yaml:"id"`
	Name      string         `yaml:"name"`
	Questions []seedQuestion `yaml:"questions"`
}

type seedQuestion struct {
	ID           string   `yaml:"id"`
	Type         string   `yaml:"type"`
	Prompt       string   `yaml:"prompt"`
	Options      []string `yaml:"options"`
	CorrectIndex *int     `yaml:"correct_index"`
	Blanks       []string `yaml:"blanks"`
	Explanation  string   `yaml:"explanation"`
	Tags         []string `yaml:"tags"`
	AnswerMD     string   `yaml:"answer_md"`
}

// SeedStats counts what a seed run wrote.
type SeedStats struct {
	Files     int      `json:"files"`
	Subjects  int      `json:"subjects"`
	Units     int      `json:"units"`
	Questions int      `json:"questions"`
	Images    int      `json:"images"`
	Missing   []string `json:"missing,omitempty"`
}

// Seeder loads a directory of subject YAML files into a store.
type Seeder struct {
	Store       curriculum.Store
	Uploader    editor.Uploader // nil leaves image refs unresolved
	TrustedBase string
	Log         *logger.Logger
}

// SeedDir walks dir and upserts every subject file found. Image refs in
// answer_md resolve against files next to the YAML file.
func (s *Seeder) SeedDir(ctx context.Context, dir string) (SeedStats, error) {
	var st SeedStats
	log := s.Log
	if log == nil {
		log = logger.Nop()
	}
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		var subj seedSubject
		if err := yaml.Unmarshal(data, &subj); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		if subj.Name == "" {
			log.Warn("skipping seed file without subject name", "path", path)
			return nil
		}
		st.Files++
		if err := s.seedSubject(ctx, subj, DirAttachments(filepath.Dir(path)), &st); err != nil {
			return fmt.Errorf("seed %s: %w", path, err)
		}
		return nil
	})
	if err != nil {
		return st, err
	}
	log.Info("seed loaded", "dir", dir, "subjects", st.Subjects, "units", st.Units, "questions", st.Questions)
	return st, nil
}

func (s *Seeder) seedSubject(ctx context.Context, in seedSubject, files Attachments, st *SeedStats) error {
	slug := in.Slug
	if slug == "" {
		slug = curriculum.Slugify(in.Name)
	}
	subj, err := s.Store.PutSubject(ctx, curriculum.Subject{
		ID:          seedID(in.ID, "subject/"+slug),
		Name:        in.Name,
		Slug:        slug,
		Description: in.Description,
		Position:    in.Position,
	})
	if err != nil {
		return err
	}
	st.Subjects++

	for ui, su := range in.Units {
		unit, err := s.Store.PutUnit(ctx, curriculum.Unit{
			ID:        seedID(su.ID, fmt.Sprintf("%s/unit/%d", subj.ID, ui)),
			SubjectID: subj.ID,
			Name:      su.Name,
			Position:  ui,
		})
		if err != nil {
			return fmt.Errorf("unit %q: %w", su.Name, err)
		}
		st.Units++

		for qi, sq := range su.Questions {
			q := curriculum.Question{
				ID:           seedID(sq.ID, fmt.Sprintf("%s/question/%d", unit.ID, qi)),
				UnitID:       unit.ID,
				Type:         curriculum.QuestionType(sq.Type),
				Prompt:       sq.Prompt,
				Options:      sq.Options,
				CorrectIndex: sq.CorrectIndex,
				Blanks:       sq.Blanks,
				Explanation:  sq.Explanation,
				Tags:         sq.Tags,
				Position:     qi,
			}
			if q.Type == curriculum.TypeDescriptive && sq.AnswerMD != "" {
				doc, res, err := ResolveAttachments(ctx, Markdown([]byte(sq.AnswerMD), q.Prompt), files, s.Uploader, s.TrustedBase)
				if err != nil {
					return fmt.Errorf("question %d of unit %q: %w", qi, su.Name, err)
				}
				q.Prompt, q.Answer = doc.Title, doc.Blocks
				st.Images += len(res.Uploaded)
				st.Missing = append(st.Missing, res.Missing...)
				st.Missing = append(st.Missing, res.Rejected...)
			}
			if _, err := s.Store.PutQuestion(ctx, q); err != nil {
				return fmt.Errorf("question %d of unit %q: %w", qi, su.Name, err)
			}
			st.Questions++
		}
	}
	return nil
}

// seedID keeps a UUID as given and derives one from anything else.
func seedID(given, fallback string) string {
	if given != "" && curriculum.ValidID(given) {
		return given
	}
	if given != "" {
		fallback = given
	}
	return uuid.NewSHA1(seedNamespace, []byte(fallback)).String()
}
