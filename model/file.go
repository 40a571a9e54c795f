package model

// File types accepted on upload. Folders carry no bytes, so their
// StoragePath stays empty
const (
	TypeFolder = "folder"
	TypeFile   = "file"
	TypeImage  = "image"
)

// RootParentID marks a file that lives at the top level of a user's tree
const RootParentID = "0"

type File struct {
	ID     string `gorm:"primaryKey" json:"id"`
	UserID string `gorm:"index;not null" json:"userId"`

	Name string `json:"name"`
	Type string `gorm:"not null" json:"type"`

	// "0" for the root, otherwise the ID of a record of type folder
	ParentID string `gorm:"index;default:0" json:"parentId"`

	IsPublic bool `json:"isPublic"`

	// Absolute path of the stored bytes. Renditions live right next to
	// it as <StoragePath>_<size>, so this is never exposed to clients
	StoragePath string `json:"-"`

	Size      int64 `json:"size"`
	CreatedAt int64 `gorm:"not null" json:"created_at"`
}
