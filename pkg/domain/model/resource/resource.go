package resource

import (
	"fmt"
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

// URIPrefix is the addressing scheme for repository file resources. The
// remainder of the URI is the repository-relative file path, verbatim.
const URIPrefix = "github://file/"

// Coordinate identifies the repository to expose. Owner and Repo are
// mandatory; an empty Branch means the repository's default branch.
type Coordinate struct {
	Owner  string
	Repo   string
	Branch string
}

func (x Coordinate) String() string {
	return x.Owner + "/" + x.Repo
}

// ParseRepository splits an "owner/name" string into a Coordinate. Exactly
// one separator is accepted and both sides must be non-empty.
func ParseRepository(s string) (Coordinate, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Coordinate{}, goerr.New("repository must be in 'owner/name' format",
			goerr.V("repository", s))
	}

	return Coordinate{Owner: parts[0], Repo: parts[1]}, nil
}

// TreeEntry is one blob reported by the remote tree listing.
type TreeEntry struct {
	Path string
	Name string
	Size int64
}

// NewTreeEntry builds a TreeEntry from a repository-relative path and the
// reported byte size. The leaf name is the segment after the last slash.
func NewTreeEntry(path string, size int64) TreeEntry {
	name := path
	if idx := strings.LastIndex(path, "/"); idx >= 0 {
		name = path[idx+1:]
	}

	return TreeEntry{Path: path, Name: name, Size: size}
}

// Descriptor is the immutable metadata record published for one file. All
// fields are fixed at construction; the file body is never embedded and is
// fetched on demand.
type Descriptor struct {
	Name        string
	URI         string
	Title       string
	Description string
	MIMEType    string
	Size        int64
}

// NewDescriptor materializes a Descriptor from a tree entry and its inferred
// media type.
func NewDescriptor(entry TreeEntry, mimeType string) *Descriptor {
	return &Descriptor{
		Name:        entry.Path,
		URI:         URIPrefix + entry.Path,
		Title:       entry.Name,
		Description: fmt.Sprintf("Repository file %s (%d bytes)", entry.Path, entry.Size),
		MIMEType:    mimeType,
		Size:        entry.Size,
	}
}

// Content is the payload returned when a descriptor's body is requested. URI
// carries the requester's URI as-is, not a re-derived one.
type Content struct {
	URI         string
	Text        string
	MIMEType    string
	Title       string
	Description string
	Size        int64
}
