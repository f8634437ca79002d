package participant

import (
	"bytes"
	"encoding/json"
	"io/ioutil"
	"path/filepath"
	"strings"
	"sync"
)

const jsonParticipantsPath = "participants.json"

// JSONParticipantSet provides participant persistence on disk in the form of
// a JSON file.
type JSONParticipantSet struct {
	l    sync.Mutex
	path string
}

// NewJSONParticipantSet creates a new JSONParticipantSet with reference to the
// base directory where the JSON file resides.
func NewJSONParticipantSet(base string) *JSONParticipantSet {
	return &JSONParticipantSet{
		path: filepath.Join(base, jsonParticipantsPath),
	}
}

// Participants parses the underlying JSON file and returns the corresponding
// participants.
func (j *JSONParticipantSet) Participants() ([]*Participant, error) {
	j.l.Lock()
	defer j.l.Unlock()

	buf, err := ioutil.ReadFile(j.path)
	if err != nil {
		return nil, err
	}

	if len(buf) == 0 {
		return nil, nil
	}

	var participants []*Participant
	dec := json.NewDecoder(bytes.NewReader(buf))
	if err := dec.Decode(&participants); err != nil {
		return nil, err
	}

	cleanseParticipants(participants)

	return participants, nil
}

// cleanseParticipants standardises the public key strings to match the format
// rill derives from a private key.
func cleanseParticipants(participants []*Participant) {
	for _, p := range participants {
		p.PubKeyHex = "0X" + strings.TrimPrefix(strings.ToUpper(p.PubKeyHex), "0X")
		p.LastVotedEpoch = -1
	}
}

// Write persists participants to the JSON file.
func (j *JSONParticipantSet) Write(participants []*Participant) error {
	j.l.Lock()
	defer j.l.Unlock()

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "\t")
	if err := enc.Encode(participants); err != nil {
		return err
	}

	return ioutil.WriteFile(j.path, buf.Bytes(), 0644)
}
