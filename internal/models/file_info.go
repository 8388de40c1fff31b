package models

import "time"

// Origin records how a source file entered the session.
type Origin string

const (
	OriginLocal  Origin = "local"
	OriginRemote Origin = "remote"
)

// FileInfo represents metadata about a stored blob.
type FileInfo struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	MediaType  string    `json:"mediaType"`
	Size       int64     `json:"size"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// SourceFile is the staged input of a session: a stored blob with a name and declared media type.
type SourceFile struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	MediaType    string    `json:"mediaType"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"lastModified"`
	Origin       Origin    `json:"origin"`
}
