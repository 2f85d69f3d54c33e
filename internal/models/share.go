package models

// Share object types.
const (
	ShareTypeFile   = "file"
	ShareTypeFolder = "folder"
)

// CloudShare is a short-key share link pointing at a cloud drive object.
type CloudShare struct {
	ID        int64  `json:"id"`
	Key       string `json:"key"`
	Type      string `json:"type"`
	Path      string `json:"path"`
	Name      string `json:"name"`
	ExpiresAt int64  `json:"expire"`
}
