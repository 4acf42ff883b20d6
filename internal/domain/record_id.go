package domain

import (
	"errors"
	"strings"
)

// RecordIDSeparator joins the segments of a compound work record id.
const RecordIDSeparator = ":"

var errMalformedRecordID = errors.New("record id must have three non-empty segments")

// RecordID addresses a work record by the three path segments of its
// containment chain: project, resource assignment, record.
type RecordID struct {
	Project  string
	Resource string
	Record   string
}

// ParseRecordID splits a compound id. Anything other than exactly three
// non-empty segments is rejected.
func ParseRecordID(s string) (RecordID, error) {
	parts := strings.Split(s, RecordIDSeparator)
	if len(parts) != 3 {
		return RecordID{}, errMalformedRecordID
	}
	for _, p := range parts {
		if p == "" || strings.Contains(p, PathSeparator) {
			return RecordID{}, errMalformedRecordID
		}
	}
	return RecordID{Project: parts[0], Resource: parts[1], Record: parts[2]}, nil
}

// RecordIDFromPath extracts the compound id from a work record path below
// the given activity segment root.
func RecordIDFromPath(root, p Path) (RecordID, error) {
	rel, ok := p.RelativeTo(root)
	if !ok || len(rel) != 6 ||
		rel[0] != string(KindActivity) ||
		rel[2] != string(KindAssignment) ||
		rel[4] != string(KindWorkRecord) {
		return RecordID{}, errMalformedRecordID
	}
	return RecordID{Project: rel[1], Resource: rel[3], Record: rel[5]}, nil
}

func (id RecordID) String() string {
	return id.Project + RecordIDSeparator + id.Resource + RecordIDSeparator + id.Record
}

// Path resolves the id to the work record's location under root.
func (id RecordID) Path(root Path) Path {
	return root.Descendant(
		string(KindActivity), id.Project,
		string(KindAssignment), id.Resource,
		string(KindWorkRecord), id.Record,
	)
}
