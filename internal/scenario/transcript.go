package scenario

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Entry is a single command submission captured during a session:
// the command line the learner typed and the output the terminal showed.
type Entry struct {
	Command string `yaml:"command" json:"command"`
	Output  string `yaml:"output,omitempty" json:"output,omitempty"`
}

// Transcript is an ordered record of command submissions, most recent
// last. Transcripts let a whole session be checked offline against a step
// without replaying it through a live terminal.
type Transcript struct {
	Entries []Entry `yaml:"entries" json:"entries"`
}

// Commands returns just the command lines, in submission order.
func (t *Transcript) Commands() []string {
	cmds := make([]string, len(t.Entries))
	for i, e := range t.Entries {
		cmds[i] = e.Command
	}
	return cmds
}

// Last returns the final entry, or a zero Entry for an empty transcript.
func (t *Transcript) Last() Entry {
	if len(t.Entries) == 0 {
		return Entry{}
	}
	return t.Entries[len(t.Entries)-1]
}

// LoadTranscript reads and parses a transcript YAML file.
func LoadTranscript(path string) (*Transcript, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read transcript file: %w", err)
	}

	var tr Transcript
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&tr); err != nil {
		return nil, fmt.Errorf("%s: failed to parse YAML: %w", path, err)
	}

	for i, e := range tr.Entries {
		if e.Command == "" {
			return nil, fmt.Errorf("%s: entries[%d]: command is required", path, i)
		}
	}
	return &tr, nil
}
